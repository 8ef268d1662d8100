package main

import (
	"fmt"
	"os"

	"github.com/depfix-tools/depfix/internal/cli"
)

func main() {
	err := cli.Execute()
	if err != nil && err.Error() != "" {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	}
	os.Exit(cli.ExitCode(err))
}
