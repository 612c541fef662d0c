package main

import (
	"github.com/spf13/cobra"

	"github.com/rwx-research/conductor/internal/errors"
)

var (
	reportCmd = &cobra.Command{
		Use:   "report",
		Short: "Build reports from existing result files",
		Long:  descriptionReport,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := getConfig(cmd)
			if err != nil {
				return errors.WithStack(err)
			}

			return errors.WithStack(conductor.Report(cmd.Context(), cfg.Report))
		},
	}

	trendCmd = &cobra.Command{
		Use:   "trend",
		Short: "Build the trend report of all recorded runs",
		Long:  descriptionTrend,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := getConfig(cmd)
			if err != nil {
				return errors.WithStack(err)
			}

			return errors.WithStack(conductor.Trend(cmd.Context(), cfg.Run.ReportsDir))
		},
	}
)

// AddReportFlags adds the flags of `conductor report`
func AddReportFlags(cmd *cobra.Command) {
	AddReportsDirFlag(cmd)
	cmd.Flags().StringSlice("results", nil, "result files to report on (default: every result file in the reports dir)")
	cmd.Flags().Bool("trend-analysis", false, "chart the trends of all recorded runs")
	cmd.Flags().Bool("save-history", false, "record the results in the history")
}

func init() {
	AddReportFlags(reportCmd)
	rootCmd.AddCommand(reportCmd)

	AddReportsDirFlag(trendCmd)
	rootCmd.AddCommand(trendCmd)
}
