package cli

import (
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/depfix-tools/depfix/internal/config"
	"github.com/depfix-tools/depfix/internal/executor"
	"github.com/depfix-tools/depfix/internal/lockfile"
	"github.com/depfix-tools/depfix/internal/lockstore"
	"github.com/depfix-tools/depfix/internal/report"
)

var restoreCmd = &cobra.Command{
	Use:   "restore [lockfile]",
	Short: "Reconstruct the environment from a lock snapshot",
	Long: `Restore computes the delta between the current environment and a
lock snapshot and applies exactly the changes needed to match it.
Restoring an already-matching environment makes no subprocess calls.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runRestore,
}

func init() {
	rootCmd.AddCommand(restoreCmd)
	restoreCmd.Flags().String("from", "", "Fetch the snapshot from a configured lockstore name or URL")
	restoreCmd.Flags().Bool("prune", false, "Uninstall packages not present in the lock")
	restoreCmd.Flags().Bool("dry-run", false, "Show intended changes without applying them")
}

func runRestore(cmd *cobra.Command, args []string) error {
	fromArg, _ := cmd.Flags().GetString("from")
	prune, _ := cmd.Flags().GetBool("prune")
	dryRun, _ := cmd.Flags().GetBool("dry-run")

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	manager := newManager(cfg)

	lock, source, err := readLock(cmd, cfg, args, fromArg)
	if err != nil {
		return err
	}

	depmap, err := snapshot(cmd.Context(), manager)
	if err != nil {
		return err
	}

	plan := lockfile.Diff(lock, depmap, prune)

	green := color.New(color.FgGreen).SprintFunc()
	cyan := color.New(color.FgCyan).SprintFunc()

	if plan.Empty() {
		fmt.Printf("%s Environment already matches %s (generated %s)\n",
			green("✓"), source, report.LockAge(lock.GeneratedAt))
		return nil
	}

	fmt.Printf("%s Restoring from %s (generated %s)\n", cyan("→"), source, report.LockAge(lock.GeneratedAt))
	report.WritePlan(os.Stdout, plan)

	exec := executor.NewExecutor(manager, dryRun, os.Stdout)
	result, err := exec.Execute(cmd.Context(), plan)
	if err != nil {
		return err
	}

	report.WriteExecution(os.Stdout, result)
	if len(result.Failed()) > 0 {
		return exitWithCode(1, "some restore items failed")
	}
	return nil
}

// readLock loads the snapshot from a lockstore (--from) or a local file.
func readLock(cmd *cobra.Command, cfg *config.Config, args []string, fromArg string) (*lockfile.LockFile, string, error) {
	if fromArg != "" {
		url, ok := cfg.Lockstore(fromArg)
		if !ok {
			return nil, "", fmt.Errorf("unknown lockstore %q", fromArg)
		}
		store, err := lockstore.New(url)
		if err != nil {
			return nil, "", err
		}
		data, err := store.Get(cmd.Context(), lockfile.DefaultLockFileName)
		if err != nil {
			return nil, "", err
		}
		lock, err := lockfile.Parse(url, data)
		return lock, url, err
	}

	path := lockfile.DefaultLockFileName
	if len(args) > 0 {
		path = args[0]
	}
	lock, err := lockfile.Read(path)
	return lock, path, err
}
