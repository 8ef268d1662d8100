package cli

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var outdatedCmd = &cobra.Command{
	Use:   "outdated",
	Short: "List packages with a newer release available",
	RunE:  runOutdated,
}

func init() {
	rootCmd.AddCommand(outdatedCmd)
	outdatedCmd.Flags().Bool("json", false, "Emit machine-readable JSON")
}

func runOutdated(cmd *cobra.Command, args []string) error {
	jsonOut, _ := cmd.Flags().GetBool("json")

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	manager := newManager(cfg)

	outdated, err := manager.ListOutdated(cmd.Context())
	if err != nil {
		return err
	}

	if jsonOut {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(map[string]any{"updates": outdated})
	}

	if len(outdated) == 0 {
		fmt.Println("All packages up to date.")
		return nil
	}

	fmt.Println("Outdated packages:")
	for _, item := range outdated {
		fmt.Printf("- %s %s -> %s\n", item.Name, item.Version, item.LatestVersion)
	}
	return nil
}
