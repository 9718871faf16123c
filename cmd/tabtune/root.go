package main

import (
	"github.com/spf13/cobra"

	"github.com/YuminosukeSato/tabtune/pkg/log"
)

var version = "dev"

func newRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tabtune",
		Short: "tabtune - train, tune and compare regression models on a tabular dataset",
		Long: `tabtune runs a supervised-learning walkthrough over the bundled housing
table: inspect the data, encode the categorical column, split train/test,
tune several model families with cross-validation or out-of-bag scoring,
and compare their hold-out performance.`,
		Version:      version,
		SilenceUsage: true,
	}

	verbose := cmd.PersistentFlags().BoolP("verbose", "v", false, "enable debug logging")
	cmd.PersistentPreRun = func(cmd *cobra.Command, args []string) {
		if *verbose {
			log.SetLevel(log.LevelDebug)
		}
	}

	cmd.AddCommand(newRunCommand())
	cmd.AddCommand(newInspectCommand())

	return cmd
}

func execute() error {
	return newRootCommand().Execute()
}
