package main

import (
	"fmt"

	"github.com/aretw0/pubflow/internal/cli"
	"github.com/aretw0/pubflow/internal/presentation/graph"
	"github.com/aretw0/pubflow/pkg/domain"
	"github.com/spf13/cobra"
)

// graphCmd represents the graph command
var graphCmd = &cobra.Command{
	Use:   "graph",
	Short: "Export the task graph visualization",
	Long: `Outputs a Mermaid diagram (graph TD) of the registered tasks and their edges.
With --report the task nodes are colored by the status they ended with in that run.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		reportID, _ := cmd.Flags().GetString("report")

		p, err := openProject(cmd, cli.Options{})
		if err != nil {
			return err
		}
		defer p.Close()

		var overlay *domain.ExecutionReport
		if reportID != "" {
			if reportID == "latest" {
				overlay, err = p.Workspace.Reports().Latest(cmd.Context())
			} else {
				overlay, err = p.Workspace.Reports().Load(cmd.Context(), reportID)
			}
			if err != nil {
				return fmt.Errorf("failed to load report %s: %w", reportID, err)
			}
		}

		fmt.Fprint(cmd.OutOrStdout(), graph.GenerateMermaid(p.Scope.Snapshot(), overlay))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(graphCmd)
	graphCmd.Flags().String("report", "", "Run id (or latest) whose statuses are overlaid on the graph")
}
