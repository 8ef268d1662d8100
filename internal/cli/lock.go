package cli

import (
	"fmt"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/depfix-tools/depfix/internal/lockfile"
	"github.com/depfix-tools/depfix/internal/lockstore"
)

var lockCmd = &cobra.Command{
	Use:   "lock",
	Short: "Lock the current environment to a canonical snapshot",
	Long: `Lock captures the exact installed set, including every dependency
edge's raw constraint, as a canonical JSON document that restore can
reconstruct deterministically.`,
	RunE: runLock,
}

func init() {
	rootCmd.AddCommand(lockCmd)
	lockCmd.Flags().StringP("output", "o", lockfile.DefaultLockFileName, "Output file")
	lockCmd.Flags().String("store", "", "Also upload to a configured lockstore name or URL")
}

func runLock(cmd *cobra.Command, args []string) error {
	output, _ := cmd.Flags().GetString("output")
	storeArg, _ := cmd.Flags().GetString("store")

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	manager := newManager(cfg)

	depmap, err := snapshot(cmd.Context(), manager)
	if err != nil {
		return err
	}

	lock := lockfile.Snapshot(depmap, time.Now())
	if err := lock.Write(output); err != nil {
		return err
	}

	green := color.New(color.FgGreen).SprintFunc()
	fmt.Printf("%s Environment locked to %s (%d entries)\n", green("✓"), output, len(lock.Entries))

	if storeArg != "" {
		url, ok := cfg.Lockstore(storeArg)
		if !ok {
			return fmt.Errorf("unknown lockstore %q", storeArg)
		}
		store, err := lockstore.New(url)
		if err != nil {
			return err
		}
		data, err := lock.Marshal()
		if err != nil {
			return err
		}
		if err := store.Put(cmd.Context(), lockfile.DefaultLockFileName, data); err != nil {
			return err
		}
		fmt.Printf("%s Snapshot uploaded to %s\n", green("✓"), url)
	}

	return nil
}
