package main

import (
	"github.com/spf13/cobra"

	"github.com/rwx-research/conductor/internal/errors"
	"github.com/rwx-research/conductor/internal/flakiness"
)

var (
	flakinessCmd = &cobra.Command{
		Use:   "flakiness",
		Short: "Inspect the flakiness history",
		Long:  descriptionFlakiness,
	}

	analyzeFlakinessCmd = &cobra.Command{
		Use:   "analyze",
		Short: "Report flaky tests without running anything",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := getConfig(cmd)
			if err != nil {
				return errors.WithStack(err)
			}

			return errors.WithStack(conductor.AnalyzeFlakiness(cmd.Context(), cfg.Flakiness))
		},
	}

	clearFlakinessCmd = &cobra.Command{
		Use:   "clear",
		Short: "Forget the flakiness history",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := getConfig(cmd)
			if err != nil {
				return errors.WithStack(err)
			}

			return errors.WithStack(conductor.ClearFlakiness(cmd.Context(), cfg.Flakiness))
		},
	}
)

func init() {
	for _, cmd := range []*cobra.Command{analyzeFlakinessCmd, clearFlakinessCmd} {
		AddReportsDirFlag(cmd)
		flakinessCmd.AddCommand(cmd)
	}

	analyzeFlakinessCmd.Flags().Float64(
		"flakiness-threshold",
		flakiness.DefaultThreshold,
		"the confidence above which a test is flaky",
	)

	rootCmd.AddCommand(flakinessCmd)
}
