// Package cli holds the main business logic of conductor. This is mainly:
// 1. Deciding how the requested test run is split up and executed.
// 2. Turning the results into reports, history, and flakiness data.
// 3. User-friendly logging
// However, this package _does not_ implement the actual terminal UI. That part is handled by `cmd/conductor`.
package cli

import (
	"context"
	"io"
	"os"
	"path/filepath"

	"github.com/benbjohnson/clock"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/rwx-research/conductor/internal/errors"
	"github.com/rwx-research/conductor/internal/exec"
	"github.com/rwx-research/conductor/internal/flakiness"
	"github.com/rwx-research/conductor/internal/fs"
	"github.com/rwx-research/conductor/internal/parsing"
	"github.com/rwx-research/conductor/internal/reporting"
	"github.com/rwx-research/conductor/internal/results"
	"github.com/rwx-research/conductor/internal/telemetry"
)

// Service is the main CLI service.
type Service struct {
	Log        *zap.SugaredLogger
	FileSystem fs.FileSystem
	TaskRunner exec.TaskRunner
	Clock      clock.Clock
	Telemetry  *telemetry.Recorder

	// Console receives the live output of the runner, summary tables, and failure analyses. Nil means stdout.
	Console io.Writer

	RunID  string
	Commit string
}

func (s Service) logError(err error) error {
	s.Log.Errorf(err.Error())
	return err
}

func (s Service) clock() clock.Clock {
	if s.Clock == nil {
		return clock.New()
	}

	return s.Clock
}

func (s Service) console() io.Writer {
	if s.Console == nil {
		return os.Stdout
	}

	return s.Console
}

func (s Service) runID() string {
	if s.RunID != "" {
		return s.RunID
	}

	if s.Telemetry != nil && s.Telemetry.RunID() != "" {
		return s.Telemetry.RunID()
	}

	return uuid.NewString()
}

func (s Service) reportingConfiguration(suiteName, rerunCommand string) reporting.Configuration {
	return reporting.Configuration{
		GeneratedAt:  s.clock().Now(),
		RunID:        s.runID(),
		Commit:       s.Commit,
		SuiteName:    suiteName,
		RerunCommand: rerunCommand,
	}
}

func (s Service) generator(reportsDir string) reporting.Generator {
	return reporting.Generator{
		Log:        s.Log,
		FileSystem: s.FileSystem,
		Telemetry:  s.Telemetry,
		Dir:        reportsDir,
	}
}

func (s Service) newDetector(reportsDir string, threshold float64) *flakiness.Detector {
	clk := s.clock()
	now := func() float64 { return float64(clk.Now().UnixNano()) / 1e9 }
	store := flakiness.NewFileStore(s.FileSystem, reportsDir, now)

	return flakiness.NewDetector(s.Log, store, clk, threshold)
}

// Report builds every report from existing result files, e.g. after a run that was interrupted.
func (s Service) Report(ctx context.Context, cfg ReportConfig) error {
	reportsDir := cfg.ReportsDir
	if reportsDir == "" {
		reportsDir = DefaultReportsDir
	}

	set, loaded := s.loadResults(reportsDir, cfg.ResultFiles)
	if len(loaded) == 0 {
		return s.logError(errors.NewInputError("No result files were found in %q", reportsDir))
	}

	reportingCfg := s.reportingConfiguration("", "")
	paths := s.generator(reportsDir).GenerateComprehensive(ctx, set, reportingCfg)
	s.logReportPaths(paths)

	if !cfg.SaveHistory && !cfg.TrendAnalysis {
		return nil
	}

	history := reporting.NewHistoryStore(s.Log, s.FileSystem, reportsDir)

	var snapshots []reporting.Snapshot
	var err error
	if cfg.SaveHistory {
		snapshots, err = history.Append(reporting.NewSnapshot(set, reportingCfg))
	} else {
		snapshots, err = history.Load()
	}
	if err != nil {
		s.Log.Warnf("Could not update historical data: %s", err)
	}

	if cfg.TrendAnalysis {
		s.generator(reportsDir).GenerateTrendReport(ctx, snapshots, reportingCfg)
	}

	return nil
}

// Trend writes the trend report from the stored history
func (s Service) Trend(ctx context.Context, reportsDir string) error {
	if reportsDir == "" {
		reportsDir = DefaultReportsDir
	}

	snapshots, err := reporting.NewHistoryStore(s.Log, s.FileSystem, reportsDir).Load()
	if err != nil {
		s.Log.Warnf("Could not load historical data: %s", err)
	}

	paths := s.generator(reportsDir).GenerateTrendReport(ctx, snapshots, s.reportingConfiguration("", ""))
	if paths.HTML == "" {
		return errors.NewInputError("No trend report was generated")
	}

	return nil
}

// AnalyzeFlakiness prints & writes the flakiness report of the stored history without running anything
func (s Service) AnalyzeFlakiness(_ context.Context, cfg FlakinessConfig) error {
	reportsDir := cfg.ReportsDir
	if reportsDir == "" {
		reportsDir = DefaultReportsDir
	}

	detector := s.newDetector(reportsDir, cfg.Threshold)
	report := flakiness.BuildReport(detector)

	path, err := flakiness.WriteReport(s.FileSystem, reportsDir, report)
	if err != nil {
		s.Log.Warnf("Could not write the flakiness report: %s", err)
	} else {
		s.Log.Infof("Flakiness report generated: %s", path)
	}

	flakiness.PrintTable(s.console(), report)
	s.Telemetry.SetFlakyTests(report.FlakyTestsFound)

	return nil
}

// ClearFlakiness forgets the flakiness history
func (s Service) ClearFlakiness(_ context.Context, cfg FlakinessConfig) error {
	reportsDir := cfg.ReportsDir
	if reportsDir == "" {
		reportsDir = DefaultReportsDir
	}

	s.newDetector(reportsDir, cfg.Threshold).Clear()
	return nil
}

// loadResults parses the given result files, or every result file in the reports directory if none are given
func (s Service) loadResults(reportsDir string, files []string) (results.ResultSet, []string) {
	parseCfg := parsing.Config{Logger: s.Log, IgnoredFiles: preservedReportFiles}

	if len(files) == 0 {
		return parsing.LoadResultFiles(s.FileSystem, reportsDir, parseCfg)
	}

	sets := make([]results.ResultSet, 0, len(files))
	loaded := make([]string, 0, len(files))

	for _, path := range files {
		raw, err := fs.ReadFile(s.FileSystem, path)
		if err != nil {
			s.Log.Warnf("Could not load results from %q: %s", path, err)
			continue
		}

		sets = append(sets, parsing.Parse(raw, parseCfg))
		loaded = append(loaded, path)
	}

	return results.Merge(sets...), loaded
}

func (s Service) logReportPaths(paths reporting.ReportPaths) {
	s.Log.Info("Enhanced reports generated:")

	for name, path := range map[string]string{
		"html": paths.HTML, "json": paths.JSON, "junit": paths.JUnit, "markdown": paths.Markdown,
	} {
		if path != "" {
			s.Log.Debugf("  %s: %s", name, path)
		}
	}

	for _, path := range []string{paths.HTML, paths.JSON, paths.JUnit, paths.Markdown} {
		if path != "" {
			s.Log.Infof("  %s", filepath.Base(path))
		}
	}

	if len(paths.Charts) > 0 {
		s.Log.Infof("  charts: %d files", len(paths.Charts))
		for _, chart := range paths.Charts {
			s.Log.Infof("    - %s", filepath.Base(chart))
		}
	}
}
