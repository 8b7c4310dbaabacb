package main

import (
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/aretw0/pubflow/internal/cli"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "pubflow",
	Short: "pubflow builds and publishes Dart packages",
	Long: `pubflow models the build and publication of a Dart package as a graph of tasks.
Tasks come from the standard build and publish groups plus the ones declared in pubflow.yaml.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		var exit *cli.ExitError
		if !errors.As(err, &exit) || exit.Err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
		os.Exit(cli.ExitCode(err))
	}
}

func init() {
	// Persistent flags (available to all commands)
	rootCmd.PersistentFlags().String("dir", ".", "Directory containing the pubflow project")
	rootCmd.PersistentFlags().String("log-level", "info", "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().String("log-format", "text", "Log format (text, json)")
}

// newLogger builds the logger from the persistent flags. Logs go to stderr.
func newLogger(cmd *cobra.Command) (*slog.Logger, error) {
	level, _ := cmd.Flags().GetString("log-level")
	format, _ := cmd.Flags().GetString("log-format")
	return cli.CreateLogger(level, format, cmd.ErrOrStderr())
}

// openProject loads the project named by --dir.
func openProject(cmd *cobra.Command, opts cli.Options) (*cli.Project, error) {
	if opts.Logger == nil {
		logger, err := newLogger(cmd)
		if err != nil {
			return nil, err
		}
		opts.Logger = logger
	}
	opts.Dir, _ = cmd.Flags().GetString("dir")
	return cli.Open(opts)
}
