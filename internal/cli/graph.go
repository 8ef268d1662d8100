package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var graphCmd = &cobra.Command{
	Use:   "graph",
	Short: "Render the installed dependency graph",
	Long:  "Graph renders the normalized dependency map as JSON or Graphviz DOT.",
	RunE:  runGraph,
}

func init() {
	rootCmd.AddCommand(graphCmd)
	graphCmd.Flags().StringP("format", "f", "json", "Output format: json or dot")
}

func runGraph(cmd *cobra.Command, args []string) error {
	format, _ := cmd.Flags().GetString("format")

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	manager := newManager(cfg)

	depmap, err := snapshot(cmd.Context(), manager)
	if err != nil {
		return err
	}

	switch format {
	case "json":
		data, err := depmap.GraphJSON()
		if err != nil {
			return err
		}
		os.Stdout.Write(data)
		fmt.Println()
	case "dot":
		fmt.Println(depmap.GraphDOT())
	default:
		return fmt.Errorf("unknown graph format %q (expected json or dot)", format)
	}
	return nil
}
