package main

import (
	"github.com/spf13/cobra"

	"github.com/rwx-research/conductor/internal/cli"
	"github.com/rwx-research/conductor/internal/errors"
	"github.com/rwx-research/conductor/internal/flakiness"
	"github.com/rwx-research/conductor/internal/runner"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Execute the BDD suite and report on it",
	Long:  descriptionRun,
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := getConfig(cmd)
		if err != nil {
			return errors.WithStack(err)
		}

		return errors.WithStack(conductor.Run(cmd.Context(), cfg.Run))
	},
}

// AddReportsDirFlag adds the `--reports-dir` flag
func AddReportsDirFlag(cmd *cobra.Command) {
	cmd.Flags().String("reports-dir", cli.DefaultReportsDir, "the directory for result files & reports")
}

// AddRunFlags adds the flags of `conductor run`
func AddRunFlags(cmd *cobra.Command) {
	flags := cmd.Flags()

	flags.String("test-type", "all", "the tests to run: ui, api, all, smoke, or regression")
	flags.String("tags", "", "additional comma-separated tags every group is filtered by")
	flags.Int("parallel", 1, "the number of groups to run at once")
	flags.String("group-by", "types", "how a parallel run of all tests is split up: types, tags, features, or balanced")

	flags.String("browser", cli.DefaultBrowser, "the browser of UI tests: chromium, firefox, or webkit")
	flags.Bool("headless", true, "run the browser without a window")
	flags.String("env", cli.DefaultEnvironment, "the environment to test against: dev, stg, or prod")

	flags.Bool("retry", false, "retry transient failures of API tests")
	flags.Int("max-retries", cli.DefaultMaxRetries, "the number of retries after the first attempt")
	flags.Bool("retry-all-failures", false, "retry every failure, including assertion failures")

	flags.Bool("analyze-flakiness", false, "record the run & report flaky tests")
	flags.Float64("flakiness-threshold", flakiness.DefaultThreshold, "the confidence above which a test is flaky")
	flags.Bool("trend-analysis", false, "chart the trends of all recorded runs")
	flags.Bool("allure", false, "write allure results & generate the allure report")

	AddReportsDirFlag(cmd)
	flags.String("features-dir", cli.DefaultFeaturesDir, "the directory of the feature files")
	flags.StringSlice("artifact-dir", cli.DefaultArtifactDirs, "directories emptied before the run")
	flags.String("executor", runner.DefaultExecutor, "the command that runs the BDD suite")
	flags.Duration("group-timeout", runner.DefaultGroupTimeout, "the time limit of a single group")
	flags.String("groups-file", "", "a YAML file with custom groups to run in parallel")
	flags.Bool("no-capture", false, "don't capture the output of steps")
}

func init() {
	AddRunFlags(runCmd)
	rootCmd.AddCommand(runCmd)
}
