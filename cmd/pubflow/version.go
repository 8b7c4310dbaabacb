package main

import (
	"github.com/aretw0/pubflow"
	"github.com/aretw0/pubflow/internal/cli"
	"github.com/aretw0/pubflow/internal/presentation/tui"
	"github.com/spf13/cobra"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number of pubflow",
	Run: func(cmd *cobra.Command, args []string) {
		out := cmd.OutOrStdout()
		tui.PrintBanner(out, pubflow.Version, cli.IsTerminal(out))
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
