package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/rwx-research/conductor/internal/errors"
	"github.com/rwx-research/conductor/internal/exec"
	"github.com/rwx-research/conductor/internal/flakiness"
	"github.com/rwx-research/conductor/internal/parsing"
	"github.com/rwx-research/conductor/internal/reporting"
	"github.com/rwx-research/conductor/internal/results"
	"github.com/rwx-research/conductor/internal/retry"
	"github.com/rwx-research/conductor/internal/runner"
	"github.com/rwx-research/conductor/internal/scheduler"
)

const (
	logsDirName      = "logs"
	retryBaseDelay   = 2 * time.Second
	allureResultsDir = "allure-results"
	allureReportDir  = "allure-report"
)

// preservedReportFiles survive the clean-up of the reports directory
var preservedReportFiles = []string{reporting.HistoryFileName, flakiness.HistoryFileName}

// runOutcome is what a run mode hands back to the reporting half of `Run`
type runOutcome struct {
	success    bool
	returnCode int
	stdout     string
	sequential bool
}

// Run executes the configured test run and builds every report afterwards. A failed run results in an
// `ExecutionError`, everything else that goes wrong after the runner finished is only logged.
func (s Service) Run(ctx context.Context, cfg RunConfig) error {
	if err := cfg.Validate(); err != nil {
		return errors.WithStack(err)
	}

	start := s.clock().Now()
	testType := cfg.testType()
	reportsDir := cfg.reportsDir()

	if err := s.prepareDirectories(cfg); err != nil {
		return s.logError(err)
	}

	var (
		features     []string
		detector     *flakiness.Detector
		customGroups []scheduler.TestGroup
	)

	// Discovering features, loading the flakiness history, and reading the groups file are independent
	var eg errgroup.Group
	eg.Go(func() error {
		if !testType.IsTagScoped() {
			return nil
		}

		var err error
		features, err = scheduler.FeaturesForTestType(s.FileSystem, cfg.featuresDir(), testType)
		if err != nil {
			s.Log.Warnf("Unable to discover feature files in %q: %s", cfg.featuresDir(), err)
		}

		return nil
	})
	eg.Go(func() error {
		if cfg.AnalyzeFlakiness {
			detector = s.newDetector(reportsDir, cfg.flakinessThreshold())
		}

		return nil
	})
	eg.Go(func() error {
		if cfg.GroupsFile == "" {
			return nil
		}

		var err error
		customGroups, err = s.loadGroups(cfg.GroupsFile)
		return err
	})

	if err := eg.Wait(); err != nil {
		return s.logError(err)
	}

	r := &runner.Runner{
		Log:        s.Log,
		TaskRunner: s.TaskRunner,
		Commands: runner.CommandBuilder{
			Executor:    cfg.Executor,
			FeaturesDir: cfg.featuresDir(),
			ReportsDir:  reportsDir,
			Headless:    cfg.Headless,
			Browser:     cfg.Browser,
			Environment: cfg.Environment,
			Allure:      cfg.Allure,
			NoCapture:   cfg.NoCapture,
		},
		Clock:        s.clock(),
		Telemetry:    s.Telemetry,
		Console:      s.console(),
		Verbose:      cfg.Verbose,
		MaxWorkers:   cfg.Parallel,
		GroupTimeout: cfg.GroupTimeout,
	}

	var outcome runOutcome
	switch {
	case len(customGroups) > 0:
		outcome = s.runParallel(ctx, r, customGroups)
	case cfg.Parallel > 1 && testType.IsTagScoped():
		s.Log.Warnf(
			"Parallel execution is only supported for the test type %q, running %s tests sequentially",
			scheduler.TestTypeAll, testType,
		)
		outcome = s.runSequential(ctx, r, cfg, testType, features)
	case cfg.Parallel > 1:
		groups, err := s.parallelGroups(cfg, testType, features)
		if err != nil {
			return s.logError(err)
		}

		outcome = s.runParallel(ctx, r, groups)
	default:
		outcome = s.runSequential(ctx, r, cfg, testType, features)
	}

	set, loaded := parsing.LoadResultFiles(s.FileSystem, reportsDir, parsing.Config{
		Logger:       s.Log,
		IgnoredFiles: preservedReportFiles,
	})
	if len(loaded) == 0 && outcome.stdout != "" {
		s.Log.Warn("No result files were found, parsing the runner output instead")
		set = parsing.Parse([]byte(outcome.stdout), parsing.Config{Logger: s.Log})
	}

	success := outcome.success && len(set.Failed()) == 0

	reportingCfg := s.reportingConfiguration(string(testType), rerunCommand(cfg))

	if detector != nil {
		reportingCfg.FlakyScenarios = s.recordFlakiness(detector, reportsDir, set, success)
	}

	if !set.IsEmpty() || len(loaded) > 0 {
		paths := s.generator(reportsDir).GenerateComprehensive(ctx, set, reportingCfg)
		s.logReportPaths(paths)

		snapshots, err := reporting.NewHistoryStore(s.Log, s.FileSystem, reportsDir).
			Append(reporting.NewSnapshot(set, reportingCfg))
		if err != nil {
			s.Log.Warnf("Could not save historical data: %s", err)
		}

		if cfg.TrendAnalysis {
			s.generator(reportsDir).GenerateTrendReport(ctx, snapshots, reportingCfg)
		}
	} else {
		s.Log.Warn("No test results were found, skipping report generation")
	}

	metrics := reporting.ComputeMetrics(set)
	s.Telemetry.SetScenarioCounts(metrics.StatusCounts(), metrics.ScenarioPassRate)
	s.Telemetry.SetRunDuration(s.clock().Since(start))
	if path, err := s.Telemetry.WriteTextfile(reportsDir); err != nil {
		s.Log.Warnf("Could not write run metrics: %s", err)
	} else if path != "" {
		s.Log.Debugf("Run metrics written to %q", path)
	}

	if cfg.Allure {
		s.generateAllureReport(ctx, reportsDir)
	}

	if success {
		s.Log.Infof("Test run completed successfully in %s", s.clock().Since(start).Round(time.Millisecond))
		return nil
	}

	if err := reporting.PrintFailureAnalysis(s.console(), reporting.AnalyzeFailures(set, outcome.stdout)); err != nil {
		s.Log.Warnf("Could not print the failure analysis: %s", err)
	}

	code := 1
	if outcome.sequential && outcome.returnCode > 0 {
		code = outcome.returnCode
	}

	return errors.NewExecutionError(code, "Test run failed")
}

// parallelGroups partitions a parallel run of all tests according to the configured grouping. Tag-scoped types never
// get here, they are run sequentially.
func (s Service) parallelGroups(
	cfg RunConfig,
	testType scheduler.TestType,
	features []string,
) ([]scheduler.TestGroup, error) {
	customTags := scheduler.SplitTags(cfg.Tags)

	var groups []scheduler.TestGroup
	switch cfg.groupBy() {
	case scheduler.GroupByTags:
		return scheduler.ByTags(customTags), nil
	case scheduler.GroupByFeatures:
		paths, err := scheduler.DiscoverFeatures(s.FileSystem, cfg.featuresDir(), nil, nil)
		if err != nil {
			return nil, errors.WithStack(err)
		}

		groups = scheduler.ByFeatures(paths)
	case scheduler.GroupByBalanced:
		scenarios, err := scheduler.DiscoverScenarios(s.FileSystem, cfg.featuresDir())
		if err != nil {
			return nil, errors.WithStack(err)
		}

		for _, group := range scheduler.Balanced(scenarios, cfg.Parallel) {
			// an empty group would run the complete suite
			if len(group.Scenarios) == 0 {
				continue
			}

			// scenarios are selected by name, the merged tags would only run scenarios carrying all of them
			group.Tags = []string{}
			groups = append(groups, group)
		}
	default:
		return scheduler.ForTestType(testType, cfg.Parallel, cfg.Tags, features), nil
	}

	if len(groups) == 0 {
		s.Log.Warnf("No feature files were found in %q, running the default groups", cfg.featuresDir())
		return scheduler.ForTestType(testType, cfg.Parallel, cfg.Tags, features), nil
	}

	for i := range groups {
		groups[i].Tags = append(groups[i].Tags, customTags...)
	}

	return groups, nil
}

func (s Service) runParallel(ctx context.Context, r *runner.Runner, groups []scheduler.TestGroup) runOutcome {
	summary := r.Run(ctx, groups).SortedByName()
	runner.PrintSummary(s.console(), summary)

	outcome := runOutcome{success: summary.Success()}
	if failure, ok := summary.FirstFailure(); ok {
		outcome.returnCode = failure.ReturnCode
	}

	stdout := make([]string, 0, len(summary.GroupResults))
	for _, result := range summary.GroupResults {
		stdout = append(stdout, result.Stdout)
	}
	outcome.stdout = strings.Join(stdout, "\n")

	return outcome
}

func (s Service) runSequential(
	ctx context.Context,
	r *runner.Runner,
	cfg RunConfig,
	testType scheduler.TestType,
	features []string,
) runOutcome {
	group := scheduler.ForSequentialRun(testType, cfg.Tags, features)
	s.Log.Infof("Running %s tests sequentially", testType)

	var result runner.GroupResult
	if testType == scheduler.TestTypeAPI && cfg.Retry {
		policy := retry.Policy{
			MaxAttempts:        cfg.MaxRetries + 1,
			BaseDelay:          retryBaseDelay,
			ExponentialBackoff: true,
			RetryableKinds:     retry.Kinds(retry.KindTransient, retry.KindTimeout),
			RetryAll:           cfg.RetryAllFailures,
		}

		result = r.RunGroupWithRetry(ctx, retry.NewEngine(s.Log, s.clock()), policy, group)
	} else {
		result = r.RunGroup(ctx, group)
	}

	if result.Error != "" {
		s.Log.Errorf("Test run of %q ended as %s: %s", group.Name, result.State, result.Error)
	}

	return runOutcome{
		success:    result.Success,
		returnCode: result.ReturnCode,
		stdout:     result.Stdout,
		sequential: true,
	}
}

func (s Service) loadGroups(path string) ([]scheduler.TestGroup, error) {
	fd, err := s.FileSystem.Open(path)
	if err != nil {
		return nil, errors.NewConfigurationError(
			fmt.Sprintf("Unable to open the groups file %q", path),
			err.Error(),
			"Please make sure the groups file exists or leave out --groups-file.",
		)
	}
	defer fd.Close()

	groups, err := scheduler.LoadGroups(fd)
	if err != nil {
		return nil, errors.WithStack(err)
	}

	return groups, nil
}

// prepareDirectories empties the reports directory (except for the history files) & the artifact directories and
// makes sure every output directory exists.
func (s Service) prepareDirectories(cfg RunConfig) error {
	reportsDir := cfg.reportsDir()

	if err := s.cleanDirectory(reportsDir, true, preservedReportFiles); err != nil {
		return err
	}

	for _, dir := range cfg.artifactDirs() {
		if err := s.cleanDirectory(dir, false, nil); err != nil {
			return err
		}
	}

	logsDir := filepath.Join(filepath.Dir(reportsDir), logsDirName)
	for _, dir := range append([]string{reportsDir, logsDir}, cfg.artifactDirs()...) {
		if err := s.FileSystem.MkdirAll(dir); err != nil {
			return errors.NewSystemError("unable to create directory %q: %s", dir, err)
		}
	}

	return nil
}

func (s Service) cleanDirectory(dir string, removeSubdirectories bool, keep []string) error {
	entries, err := s.FileSystem.ReadDir(dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}

		s.Log.Warnf("Unable to clean %q: %s", dir, err)
		return nil
	}

	removed := 0
	for _, entry := range entries {
		if oneOf(entry.Name(), keep) {
			continue
		}

		path := filepath.Join(dir, entry.Name())

		if entry.IsDir() {
			if !removeSubdirectories {
				continue
			}

			err = s.FileSystem.RemoveAll(path)
		} else {
			err = s.FileSystem.Remove(path)
		}

		if err != nil {
			return errors.NewSystemError("unable to remove %q: %s", path, err)
		}

		removed++
	}

	s.Log.Debugf("Removed %d entries from %q", removed, dir)
	return nil
}

// recordFlakiness records the run, writes the flakiness report & returns the identities of the flaky scenarios
func (s Service) recordFlakiness(
	detector *flakiness.Detector,
	reportsDir string,
	set results.ResultSet,
	success bool,
) []string {
	detector.RecordResults(set, success)

	report := flakiness.BuildReport(detector)
	path, err := flakiness.WriteReport(s.FileSystem, reportsDir, report)
	if err != nil {
		s.Log.Warnf("Could not write the flakiness report: %s", err)
	} else {
		s.Log.Infof("Flakiness report generated: %s", path)
	}

	flakiness.PrintTable(s.console(), report)
	s.Telemetry.SetFlakyTests(report.FlakyTestsFound)

	identities := make([]string, 0, len(report.FlakyTests))
	for _, entry := range report.FlakyTests {
		identities = append(identities, entry.Identity)
	}

	return identities
}

// generateAllureReport turns the allure results of the run into an HTML report. A missing `allure` binary is not an
// error of the run.
func (s Service) generateAllureReport(ctx context.Context, reportsDir string) {
	out := new(strings.Builder)

	cmd, err := s.TaskRunner.NewCommand(ctx, exec.CommandConfig{
		Name: "allure",
		Args: []string{
			"generate", filepath.Join(reportsDir, allureResultsDir),
			"-o", filepath.Join(reportsDir, allureReportDir),
			"--clean",
		},
		Stdout: out,
		Stderr: out,
	})
	if err == nil {
		err = cmd.Start()
	}
	if err == nil {
		err = cmd.Wait()
	}

	if err != nil {
		s.Log.Warnf("Could not generate the Allure report: %s", err)
		if out.Len() > 0 {
			s.Log.Debugf("allure output: %s", out.String())
		}

		return
	}

	s.Log.Infof("Allure report generated in %q", filepath.Join(reportsDir, allureReportDir))
}

func rerunCommand(cfg RunConfig) string {
	args := []string{"conductor", "run", "--test-type", string(cfg.testType())}

	if cfg.Tags != "" {
		args = append(args, "--tags", cfg.Tags)
	}

	if cfg.Environment != "" {
		args = append(args, "--env", cfg.Environment)
	}

	if cfg.Browser != "" {
		args = append(args, "--browser", cfg.Browser)
	}

	return strings.Join(args, " ")
}
