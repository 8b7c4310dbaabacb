package main

import (
	"fmt"

	"github.com/aretw0/pubflow/internal/cli"
	"github.com/spf13/cobra"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Check the task graph for consistency",
	Long:  `Checks that every edge names a registered task and that the whole graph is acyclic.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		p, err := openProject(cmd, cli.Options{})
		if err != nil {
			return err
		}
		defer p.Close()

		if err := p.Scope.Validate(); err != nil {
			return fmt.Errorf("validation failed: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Task graph is valid (%d tasks).\n", len(p.Scope.Snapshot()))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(validateCmd)
}
