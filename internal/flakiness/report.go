package flakiness

import (
	"encoding/json"
	"fmt"
	"io"
	"path/filepath"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/rwx-research/conductor/internal/errors"
	"github.com/rwx-research/conductor/internal/fs"
)

// minimumRunsForAnalysis is the number of runs below which a verdict is not very meaningful yet
const minimumRunsForAnalysis = 5

// ReportEntry is a flaky test as listed in a report
type ReportEntry struct {
	Flaky
	Recommendation string `json:"recommendation"`
}

// RunCounts are the counters of a single test
type RunCounts struct {
	TotalRuns  int `json:"total_runs"`
	FailedRuns int `json:"failed_runs"`
	RetryRuns  int `json:"retry_runs"`
}

// Report is a snapshot of the analysis of every recorded test
type Report struct {
	Timestamp          float64              `json:"timestamp"`
	AnalysisDate       string               `json:"analysis_date"`
	Threshold          float64              `json:"threshold"`
	TotalTests         int                  `json:"total_tests"`
	FlakyTestsFound    int                  `json:"flaky_tests_found"`
	FlakyTests         []ReportEntry        `json:"flaky_tests"`
	TestHistorySummary map[string]RunCounts `json:"test_history_summary"`

	generatedAt time.Time
	identities  []string
}

// BuildReport analyses every test known to the detector
func BuildReport(d *Detector) Report {
	now := d.clock.Now()
	flaky := d.ListFlaky(d.threshold)
	identities := d.Identities()

	report := Report{
		Timestamp:          float64(now.UnixNano()) / float64(time.Second),
		AnalysisDate:       now.Format("2006-01-02 15:04:05"),
		Threshold:          d.threshold,
		TotalTests:         len(identities),
		FlakyTestsFound:    len(flaky),
		FlakyTests:         make([]ReportEntry, 0, len(flaky)),
		TestHistorySummary: make(map[string]RunCounts, len(identities)),
		generatedAt:        now,
		identities:         identities,
	}

	for _, test := range flaky {
		report.FlakyTests = append(report.FlakyTests, ReportEntry{Flaky: test, Recommendation: test.Recommendation()})
	}

	for _, identity := range identities {
		record, _ := d.RecordFor(identity)
		report.TestHistorySummary[identity] = RunCounts{
			TotalRuns:  record.TotalRuns,
			FailedRuns: record.FailedRuns,
			RetryRuns:  record.RetryRuns,
		}
	}

	return report
}

// FileName is the name of the report file, derived from the time the report was built
func (r Report) FileName() string {
	return fmt.Sprintf("flakiness_report_%s.json", r.generatedAt.Format("20060102_150405"))
}

// WriteReport writes the report as JSON into `dir` and returns the path of the file.
func WriteReport(fileSystem fs.FileSystem, dir string, report Report) (string, error) {
	if err := fileSystem.MkdirAll(dir); err != nil {
		return "", errors.NewSystemError("unable to create %q: %s", dir, err)
	}

	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return "", errors.NewInternalError("unable to encode flakiness report: %s", err)
	}

	path := filepath.Join(dir, report.FileName())
	if err := fs.WriteFile(fileSystem, path, data); err != nil {
		return "", errors.NewSystemError("unable to write %q: %s", path, err)
	}

	return path, nil
}

// PrintTable renders the flaky tests of a report. Without flaky tests, the run counts of every known test are
// listed instead so it's visible how much history is available.
func PrintTable(w io.Writer, report Report) {
	if len(report.FlakyTests) > 0 {
		t := table.NewWriter()
		t.SetOutputMirror(w)
		t.SetTitle(fmt.Sprintf("Flaky Tests (%d)", len(report.FlakyTests)))
		t.AppendHeader(table.Row{"#", "Test", "Confidence", "Failure Rate", "Retry Rate", "Runs", "Recommendation"})
		t.SetColumnConfigs([]table.ColumnConfig{
			{Name: "Test", WidthMax: 60, WidthMaxEnforcer: text.WrapSoft},
			{Name: "Confidence", Align: text.AlignRight},
			{Name: "Failure Rate", Align: text.AlignRight},
			{Name: "Retry Rate", Align: text.AlignRight},
			{Name: "Runs", Align: text.AlignRight},
		})

		for i, entry := range report.FlakyTests {
			t.AppendRow(table.Row{
				i + 1,
				entry.Identity,
				percentage(entry.Confidence),
				percentage(entry.FailureRate),
				percentage(entry.RetryRate),
				entry.TotalRuns,
				entry.Recommendation,
			})
		}

		t.SetStyle(table.StyleLight)
		t.Render()
		return
	}

	fmt.Fprintln(w, "No flaky tests detected")

	if len(report.identities) == 0 {
		fmt.Fprintln(w, "No test execution history found. Run tests with --analyze-flakiness to build one.")
		return
	}

	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.AppendHeader(table.Row{"Test", "Runs", "Status"})
	for _, identity := range report.identities {
		counts := report.TestHistorySummary[identity]

		status := "need at least 5 runs for a meaningful analysis"
		if counts.TotalRuns >= minimumRunsForAnalysis {
			status = fmt.Sprintf("below the %s threshold", percentage(report.Threshold))
		}

		t.AppendRow(table.Row{identity, counts.TotalRuns, status})
	}

	t.SetStyle(table.StyleLight)
	t.Render()
}

func percentage(ratio float64) string {
	return fmt.Sprintf("%.1f%%", ratio*100)
}
