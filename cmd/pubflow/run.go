package main

import (
	"github.com/aretw0/pubflow/internal/cli"
	"github.com/aretw0/pubflow/internal/presentation/tui"
	"github.com/aretw0/pubflow/pkg/domain"
	"github.com/aretw0/pubflow/pkg/observability"
	"github.com/spf13/cobra"
)

// runCmd represents the run command
var runCmd = &cobra.Command{
	Use:   "run [tasks...]",
	Short: "Run tasks and their dependencies",
	Long: `Runs the requested tasks, assemble when none are given, after everything they depend on.
The exit code is 0 when every scheduled task is satisfied and 1 otherwise.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		parallel, _ := cmd.Flags().GetInt("parallel")
		noIncremental, _ := cmd.Flags().GetBool("no-incremental")
		redisAddr, _ := cmd.Flags().GetString("redis")
		jsonMode, _ := cmd.Flags().GetBool("json")
		pubDir, _ := cmd.Flags().GetString("publication-dir")

		if len(args) == 0 {
			args = []string{domain.TaskAssemble}
		}

		logger, err := newLogger(cmd)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		color := cli.IsTerminal(out)

		// Progress goes to stderr: the status lines on a console, logs otherwise.
		hooks := observability.LoggingHooks(logger)
		if !jsonMode {
			hooks = tui.NewStatusPrinter(cmd.ErrOrStderr(), cli.IsTerminal(cmd.ErrOrStderr())).Hooks()
		}

		p, err := openProject(cmd, cli.Options{
			Logger:         logger,
			Parallelism:    parallel,
			NoIncremental:  noIncremental,
			RedisAddr:      redisAddr,
			PublicationDir: pubDir,
			Hooks:          hooks,
		})
		if err != nil {
			return err
		}
		defer p.Close()

		ctx := cli.NewSignalContext(cmd.Context())
		defer ctx.Cancel()

		_, err = cli.RunTasks(ctx, p, args, cli.Output{W: out, JSON: jsonMode, Color: color})
		cli.PrintInterrupted(cmd.ErrOrStderr(), ctx)
		return err
	},
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().IntP("parallel", "p", 0, "Maximum number of tasks run at once (default from pubflow.yaml, else 1)")
	runCmd.Flags().Bool("no-incremental", false, "Run every task even when its outputs are up to date")
	runCmd.Flags().String("redis", "", "Redis address for the shared report store and build lock")
	runCmd.Flags().Bool("json", false, "Print the execution report as JSON")
	runCmd.Flags().String("publication-dir", "", "Directory the publication is staged into")
}
