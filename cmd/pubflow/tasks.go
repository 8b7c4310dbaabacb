package main

import (
	"fmt"
	"sort"
	"text/tabwriter"

	"github.com/aretw0/pubflow/internal/cli"
	"github.com/aretw0/pubflow/pkg/domain"
	"github.com/spf13/cobra"
)

var tasksCmd = &cobra.Command{
	Use:   "tasks",
	Short: "List the registered tasks by group",
	RunE: func(cmd *cobra.Command, args []string) error {
		all, _ := cmd.Flags().GetBool("all")

		p, err := openProject(cmd, cli.Options{})
		if err != nil {
			return err
		}
		defer p.Close()

		groups := map[string][]*domain.Task{}
		for _, t := range p.Scope.Snapshot() {
			if !t.Enabled && !all {
				continue
			}
			groups[t.Group] = append(groups[t.Group], t)
		}

		names := make([]string, 0, len(groups))
		for g := range groups {
			names = append(names, g)
		}
		sort.Strings(names)

		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		for i, g := range names {
			if i > 0 {
				fmt.Fprintln(w)
			}
			title := g
			if title == "" {
				title = "Other"
			}
			fmt.Fprintf(w, "%s tasks\n", title)
			for _, t := range groups[g] {
				desc := t.Description
				if !t.Enabled {
					desc += " (disabled)"
				}
				fmt.Fprintf(w, "  %s\t%s\n", t.Name, desc)
			}
		}
		return w.Flush()
	},
}

func init() {
	rootCmd.AddCommand(tasksCmd)
	tasksCmd.Flags().Bool("all", false, "Include disabled tasks")
}
