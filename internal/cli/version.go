package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// Version is the depfix release version, overridable at build time with
// -ldflags "-X github.com/depfix-tools/depfix/internal/cli.Version=...".
var Version = "dev"

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the depfix version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("depfix %s\n", Version)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
