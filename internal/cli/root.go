// Package cli implements the command-line interface for depfix.
package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/depfix-tools/depfix/internal/config"
	"github.com/depfix-tools/depfix/internal/envtree"
	"github.com/depfix-tools/depfix/internal/errors"
	"github.com/depfix-tools/depfix/internal/index"
	"github.com/depfix-tools/depfix/internal/pip"
	"github.com/depfix-tools/depfix/internal/resolver"
	"github.com/depfix-tools/depfix/pkg/pep440"
)

var (
	// Global flags
	verbose    int
	configPath string
	pythonFlag string
)

// rootCmd is the base command for depfix
var rootCmd = &cobra.Command{
	Use:   "depfix",
	Short: "Detect and resolve dependency conflicts in Python environments",
	Long: `Depfix inspects an installed Python environment, detects version
conflicts between installed distributions and what their dependents require,
computes a minimally disruptive set of upgrades that resolves them, and can
apply the fix, lock the environment, or restore it from a lock file.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().CountVarP(&verbose, "verbose", "v", "Increase verbosity (-v info, -vv debug)")
	rootCmd.PersistentFlags().StringVarP(&configPath, "path", "p", ".", "Directory containing depfix.hcl")
	rootCmd.PersistentFlags().StringVar(&pythonFlag, "python", "", "Python interpreter to use")
}

// Execute runs the root command
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return rootCmd.ExecuteContext(ctx)
}

// GetRootCmd returns the root command for testing
func GetRootCmd() *cobra.Command {
	return rootCmd
}

// exitError carries a process exit code through cobra's error return.
type exitError struct {
	code int
	msg  string
}

func (e *exitError) Error() string {
	return e.msg
}

// exitWithCode builds an error carrying the given exit code. An empty
// message suppresses output (the command already printed its report).
func exitWithCode(code int, msg string) error {
	return &exitError{code: code, msg: msg}
}

// ExitCode maps a command error to the process exit code: 0 success,
// 1 general error, 2 conflicts present or fix incomplete.
func ExitCode(err error) int {
	if err == nil {
		return 0
	}
	var exit *exitError
	if errors.As(err, &exit) {
		return exit.code
	}
	return 1
}

// loadConfig reads depfix.hcl from the configured directory.
func loadConfig() (*config.Config, error) {
	return config.Load(configPath)
}

// newManager builds the pip adapter from config and flags. The --python
// flag wins over the configuration file.
func newManager(cfg *config.Config) *pip.Manager {
	interpreter := pythonFlag
	if interpreter == "" {
		interpreter = cfg.Interpreter()
	}
	return pip.NewManager(interpreter, nil)
}

// newIndexClient builds the index client from config.
func newIndexClient(cfg *config.Config) *index.Client {
	opts := []index.Option{
		index.WithBaseURL(cfg.IndexURL()),
	}
	if interval := cfg.RequestInterval(); interval >= 0 {
		opts = append(opts, index.WithRequestInterval(interval))
	}
	if dir := cfg.CacheDir(); dir != "" {
		opts = append(opts, index.WithDiskCache(index.NewCache(dir)))
	}
	return index.NewClient(opts...)
}

// snapshot enumerates and normalizes the current environment, reporting
// normalizer warnings at -v.
func snapshot(ctx context.Context, manager *pip.Manager) (*envtree.DependencyMap, error) {
	depmap, warnings, err := envtree.Snapshot(ctx, manager.Runner(), manager.Interpreter())
	if err != nil {
		return nil, err
	}
	if verbose > 0 {
		for _, warning := range warnings {
			fmt.Fprintf(os.Stderr, "warning: %v\n", warning)
		}
	}
	return depmap, nil
}

// scanConflicts runs the detector and, when it finds nothing, falls back
// to parsing `pip check`: pip sees requirement metadata the enumerator
// occasionally omits.
func scanConflicts(ctx context.Context, manager *pip.Manager, depmap *envtree.DependencyMap) []resolver.Conflict {
	conflicts := resolver.Detect(depmap)
	if len(conflicts) > 0 {
		return conflicts
	}

	var fallback []resolver.Conflict
	for _, c := range manager.Check(ctx) {
		kind := resolver.KindVersionMismatch
		if c.NotInstalled {
			kind = resolver.KindNotInstalled
		}
		required, err := pep440.ParseSpecifierSet(c.RequiredConstraint)
		if err != nil && verbose > 0 {
			fmt.Fprintf(os.Stderr, "warning: pip check constraint %q: %v\n", c.RequiredConstraint, err)
		}
		fallback = append(fallback, resolver.Conflict{
			Parent:             c.Package,
			ParentVersion:      c.PackageVersion,
			Dependency:         c.Dependency,
			InstalledVersion:   c.InstalledVersion,
			RequiredConstraint: c.RequiredConstraint,
			Required:           required,
			Kind:               kind,
		})
	}
	return fallback
}
