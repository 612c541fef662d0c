package main

import (
	"github.com/spf13/cobra"

	"github.com/rwx-research/conductor/internal/cli"
	"github.com/rwx-research/conductor/internal/errors"
)

var (
	// parseCmd represents the `parse` sub-command itself
	parseCmd = &cobra.Command{
		Use:    "parse",
		Short:  "Parse result files of the BDD runner",
		Hidden: true,
	}

	// parseResultsCmd is the 'results' sub-command of 'parse'
	parseResultsCmd = &cobra.Command{
		Use:  "results [file]...",
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			format, err := cmd.Flags().GetString("format")
			if err != nil {
				return errors.WithStack(err)
			}

			return errors.WithStack(conductor.Parse(cmd.Context(), cli.ParseConfig{Files: args, Format: format}))
		},
	}
)

func init() {
	parseResultsCmd.Flags().String("format", cli.ParseFormatJSON, "the output format of the merged results: 'json' or 'text'")
	parseCmd.AddCommand(parseResultsCmd)
	rootCmd.AddCommand(parseCmd)
}
