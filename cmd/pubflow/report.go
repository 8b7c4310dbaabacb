package main

import (
	"encoding/json"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/aretw0/pubflow/internal/cli"
	"github.com/aretw0/pubflow/pkg/domain"
	"github.com/spf13/cobra"
)

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Inspect stored execution reports",
}

var reportLsCmd = &cobra.Command{
	Use:   "ls",
	Short: "List stored reports, newest first",
	RunE: func(cmd *cobra.Command, args []string) error {
		p, err := openReports(cmd)
		if err != nil {
			return err
		}
		defer p.Close()

		ids, err := p.Workspace.Reports().List(cmd.Context())
		if err != nil {
			return err
		}

		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tSTARTED\tRESULT\tTASKS")
		for _, id := range ids {
			r, err := p.Workspace.Reports().Load(cmd.Context(), id)
			if err != nil {
				fmt.Fprintf(w, "%s\t-\tunreadable\t-\n", id)
				continue
			}
			result := "succeeded"
			if !r.Succeeded() {
				result = "failed"
			}
			fmt.Fprintf(w, "%s\t%s\t%s\t%d\n", id, r.StartedAt.Format(time.RFC3339), result, len(r.Order))
		}
		return w.Flush()
	},
}

var reportInspectCmd = &cobra.Command{
	Use:   "inspect <id|latest>",
	Short: "Print a stored report",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		jsonMode, _ := cmd.Flags().GetBool("json")

		p, err := openReports(cmd)
		if err != nil {
			return err
		}
		defer p.Close()

		var report *domain.ExecutionReport
		if args[0] == "latest" {
			report, err = p.Workspace.Reports().Latest(cmd.Context())
		} else {
			report, err = p.Workspace.Reports().Load(cmd.Context(), args[0])
		}
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		return cli.PrintReport(report, cli.Output{W: out, JSON: jsonMode, Color: cli.IsTerminal(out)})
	},
}

var reportRmCmd = &cobra.Command{
	Use:   "rm <id>...",
	Short: "Delete stored reports",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		p, err := openReports(cmd)
		if err != nil {
			return err
		}
		defer p.Close()

		for _, id := range args {
			if err := p.Workspace.Reports().Delete(cmd.Context(), id); err != nil {
				return fmt.Errorf("failed to delete %s: %w", id, err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), id)
		}
		return nil
	},
}

var reportDiffCmd = &cobra.Command{
	Use:   "diff <from> <to>",
	Short: "Compare the task statuses of two runs",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		p, err := openReports(cmd)
		if err != nil {
			return err
		}
		defer p.Close()

		diff, err := p.Workspace.Reports().Diff(cmd.Context(), args[0], args[1])
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		if jsonMode, _ := cmd.Flags().GetBool("json"); jsonMode {
			enc := json.NewEncoder(out)
			enc.SetIndent("", "  ")
			return enc.Encode(diff)
		}
		if diff.Empty() {
			fmt.Fprintln(out, "No differences.")
			return nil
		}
		for _, c := range diff.Changed {
			fmt.Fprintf(out, "~ %s: %s -> %s\n", c.Task, c.From, c.To)
		}
		for _, c := range diff.Added {
			fmt.Fprintf(out, "+ %s: %s\n", c.Task, c.To)
		}
		for _, c := range diff.Removed {
			fmt.Fprintf(out, "- %s: %s\n", c.Task, c.From)
		}
		if n := len(diff.Regressions()); n > 0 {
			return &cli.ExitError{Code: 1, Err: fmt.Errorf("%d task(s) regressed", n)}
		}
		return nil
	},
}

// openReports opens the project only to reach its report store.
func openReports(cmd *cobra.Command) (*cli.Project, error) {
	redisAddr, _ := cmd.Flags().GetString("redis")
	return openProject(cmd, cli.Options{RedisAddr: redisAddr})
}

func init() {
	rootCmd.AddCommand(reportCmd)
	reportCmd.AddCommand(reportLsCmd, reportInspectCmd, reportRmCmd, reportDiffCmd)

	reportCmd.PersistentFlags().String("redis", "", "Redis address of the shared report store")
	reportInspectCmd.Flags().Bool("json", false, "Print the report as JSON")
	reportDiffCmd.Flags().Bool("json", false, "Print the diff as JSON")
}
