package cli

import (
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/depfix-tools/depfix/internal/report"
)

var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Scan the environment for dependency conflicts",
	Long: `Scan enumerates the installed environment, checks every dependency
edge against its version constraint, and reports the conflicts. Exits 0
when the environment is clean and 2 when conflicts are present.`,
	RunE: runScan,
}

func init() {
	rootCmd.AddCommand(scanCmd)
	scanCmd.Flags().Bool("json", false, "Emit a machine-readable JSON report")
}

func runScan(cmd *cobra.Command, args []string) error {
	jsonOut, _ := cmd.Flags().GetBool("json")

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	manager := newManager(cfg)

	if !jsonOut {
		cyan := color.New(color.FgCyan).SprintFunc()
		fmt.Printf("%s Scanning for dependency conflicts...\n", cyan("→"))
	}

	depmap, err := snapshot(cmd.Context(), manager)
	if err != nil {
		return err
	}

	conflicts := scanConflicts(cmd.Context(), manager, depmap)

	if jsonOut {
		data, err := report.New(conflicts, nil).JSON()
		if err != nil {
			return err
		}
		os.Stdout.Write(data)
	} else {
		report.WriteConflicts(os.Stdout, conflicts)
	}

	if len(conflicts) > 0 {
		return exitWithCode(2, "")
	}
	return nil
}
