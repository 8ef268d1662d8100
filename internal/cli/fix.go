package cli

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/depfix-tools/depfix/internal/executor"
	"github.com/depfix-tools/depfix/internal/report"
	"github.com/depfix-tools/depfix/internal/resolver"
)

var fixCmd = &cobra.Command{
	Use:   "fix",
	Short: "Resolve detected conflicts and apply the fixes",
	Long: `Fix scans for conflicts, computes the least disruptive set of version
changes that resolves them, and applies the plan through pip. Exits 0 when
everything is fixed, 2 when conflicts remain unresolved, and 1 on
execution failures.`,
	RunE: runFix,
}

func init() {
	rootCmd.AddCommand(fixCmd)
	fixCmd.Flags().Bool("json", false, "Emit a machine-readable JSON report")
	fixCmd.Flags().BoolP("yes", "y", false, "Apply without prompting")
	fixCmd.Flags().Bool("dry-run", false, "Show intended changes without applying them")
}

func runFix(cmd *cobra.Command, args []string) error {
	jsonOut, _ := cmd.Flags().GetBool("json")
	yes, _ := cmd.Flags().GetBool("yes")
	dryRun, _ := cmd.Flags().GetBool("dry-run")

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	manager := newManager(cfg)

	green := color.New(color.FgGreen).SprintFunc()
	cyan := color.New(color.FgCyan).SprintFunc()

	if !jsonOut {
		fmt.Printf("%s Auto-fixing dependency conflicts...\n", cyan("→"))
	}

	depmap, err := snapshot(cmd.Context(), manager)
	if err != nil {
		return err
	}

	conflicts := scanConflicts(cmd.Context(), manager, depmap)
	if len(conflicts) == 0 {
		if jsonOut {
			data, err := report.New(nil, nil).JSON()
			if err != nil {
				return err
			}
			os.Stdout.Write(data)
		} else {
			fmt.Printf("%s No conflicts to fix!\n", green("✓"))
		}
		return nil
	}

	plan, err := resolver.NewResolver(newIndexClient(cfg)).Resolve(cmd.Context(), depmap, conflicts)
	if err != nil {
		return err
	}

	if jsonOut {
		data, err := report.New(conflicts, plan).JSON()
		if err != nil {
			return err
		}
		os.Stdout.Write(data)
	} else {
		report.WritePlan(os.Stdout, plan)
	}

	if plan.Empty() {
		if !jsonOut {
			fmt.Println("No compatible resolutions found.")
		}
		return exitWithCode(2, "")
	}

	if !yes && !confirm("Proceed with applying fixes?") {
		fmt.Println("Fix application cancelled.")
		return nil
	}

	exec := executor.NewExecutor(manager, dryRun, os.Stdout)
	result, err := exec.Execute(cmd.Context(), plan)
	if err != nil {
		return err
	}

	if !jsonOut {
		report.WriteExecution(os.Stdout, result)
	}

	switch {
	case len(result.Failed()) > 0:
		return exitWithCode(1, "some fixes failed")
	case len(plan.Unsolvable) > 0:
		return exitWithCode(2, "")
	default:
		return nil
	}
}

// confirm asks a yes/no question on the terminal.
func confirm(prompt string) bool {
	fmt.Printf("\n%s (y/N): ", prompt)
	reader := bufio.NewReader(os.Stdin)
	answer, err := reader.ReadString('\n')
	if err != nil {
		return false
	}
	answer = strings.ToLower(strings.TrimSpace(answer))
	return answer == "y" || answer == "yes"
}
