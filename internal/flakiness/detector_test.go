package flakiness_test

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/benbjohnson/clock"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/rwx-research/conductor/internal/errors"
	"github.com/rwx-research/conductor/internal/flakiness"
	"github.com/rwx-research/conductor/internal/fs"
	"github.com/rwx-research/conductor/internal/mocks"
	"github.com/rwx-research/conductor/internal/results"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("Detector", func() {
	var (
		dir      string
		mockClk  *clock.Mock
		log      *zap.SugaredLogger
		logs     *observer.ObservedLogs
		store    *flakiness.FileStore
		detector *flakiness.Detector
	)

	BeforeEach(func() {
		var core zapcore.Core
		core, logs = observer.New(zapcore.DebugLevel)
		log = zap.New(core).Sugar()

		dir = filepath.Join(GinkgoT().TempDir(), "reports")
		mockClk = clock.NewMock()
		mockClk.Set(time.Date(2024, 3, 1, 12, 30, 0, 0, time.UTC))

		store = flakiness.NewFileStore(fs.Local{}, dir, func() float64 { return 1 })
		detector = flakiness.NewDetector(log, store, mockClk, 0)
	})

	It("keeps counters in line with the executions", func() {
		detector.Record("Login/valid login", true, 1)
		detector.Record("Login/valid login", false, 1)
		detector.Record("Login/valid login", true, 3)

		record, ok := detector.RecordFor("Login/valid login")
		Expect(ok).To(BeTrue())
		Expect(record.Executions).To(HaveLen(3))
		Expect(record.TotalRuns).To(Equal(3))
		Expect(record.FailedRuns).To(Equal(1))
		Expect(record.RetryRuns).To(Equal(1))
		Expect(record.Executions[0].Timestamp).To(Equal(float64(mockClk.Now().Unix())))
	})

	It("persists every record and loads it again", func() {
		detector.Record("Login/valid login", false, 1)
		detector.Record("Users/list users", true, 2)

		_, err := os.Stat(filepath.Join(dir, flakiness.HistoryFileName))
		Expect(err).NotTo(HaveOccurred())

		reloaded := flakiness.NewDetector(log, store, mockClk, 0)
		Expect(reloaded.Identities()).To(ConsistOf("Login/valid login", "Users/list users"))
		Expect(reloaded.Analyze("Login/valid login").FailureRate).To(Equal(1.0))
	})

	It("restores the insertion order from the execution timestamps", func() {
		detector.Record("b", true, 1)
		mockClk.Add(time.Second)
		detector.Record("a", true, 1)

		reloaded := flakiness.NewDetector(log, store, mockClk, 0)
		Expect(reloaded.Identities()).To(Equal([]string{"b", "a"}))
	})

	It("writes the history in the documented format", func() {
		detector.Record("Login/valid login", true, 1)

		data, err := os.ReadFile(filepath.Join(dir, flakiness.HistoryFileName))
		Expect(err).NotTo(HaveOccurred())
		Expect(string(data)).To(ContainSubstring(`"last_updated": 1`))
		Expect(string(data)).To(ContainSubstring(`"test_history"`))
		Expect(string(data)).To(ContainSubstring(`"total_runs": 1`))
	})

	It("does not consider unknown tests flaky", func() {
		analysis := detector.Analyze("nope")

		Expect(analysis.IsFlaky).To(BeFalse())
		Expect(analysis.Reason).To(Equal("No execution history"))
	})

	It("lists flaky tests by confidence, ties in insertion order", func() {
		detector.Record("stable", true, 1)
		detector.Record("tie-1", false, 1)
		detector.Record("tie-1", true, 1)
		detector.Record("broken", false, 1)
		detector.Record("tie-2", true, 1)
		detector.Record("tie-2", false, 1)

		flaky := detector.ListFlaky(flakiness.DefaultThreshold)

		identities := make([]string, 0, len(flaky))
		for _, test := range flaky {
			identities = append(identities, test.Identity)
		}
		Expect(identities).To(Equal([]string{"broken", "tie-1", "tie-2"}))
		Expect(flaky[0].Confidence).To(BeNumerically("~", 0.7, 1e-9))
	})

	It("clears the history in memory and on disk", func() {
		detector.Record("Login/valid login", true, 1)
		detector.Clear()

		Expect(detector.Identities()).To(BeEmpty())
		_, err := os.Stat(filepath.Join(dir, flakiness.HistoryFileName))
		Expect(os.IsNotExist(err)).To(BeTrue())
		Expect(logs.FilterMessage("Cleared persistent flakiness history").Len()).To(Equal(1))
	})

	It("records scenarios of a run together with the overall outcome", func() {
		detector.RecordResults(results.NewResultSet(
			results.NewTestOutcome("Login", "valid login", results.StatusPassed, 1),
			results.NewTestOutcome("Login", "slow login", results.StatusPassed, 12.5),
			results.NewTestOutcome("Login", "bad login", results.StatusFailed, 1),
		), false)

		Expect(detector.Identities()).To(Equal([]string{
			"Login/valid login",
			"Login/slow login",
			"Login/bad login",
			flakiness.OverallExecutionIdentity,
		}))

		slow, _ := detector.RecordFor("Login/slow login")
		Expect(slow.RetryRuns).To(Equal(1))

		bad, _ := detector.RecordFor("Login/bad login")
		Expect(bad.FailedRuns).To(Equal(1))

		overall, _ := detector.RecordFor(flakiness.OverallExecutionIdentity)
		Expect(overall.FailedRuns).To(Equal(1))
	})

	Context("when the history can't be loaded", func() {
		It("starts with an empty history", func() {
			Expect(os.MkdirAll(dir, 0o755)).To(Succeed())
			Expect(os.WriteFile(filepath.Join(dir, flakiness.HistoryFileName), []byte("{nope"), 0o600)).To(Succeed())

			detector = flakiness.NewDetector(log, store, mockClk, 0)

			Expect(detector.Identities()).To(BeEmpty())
			Expect(logs.FilterMessageSnippet("Could not load flakiness history").Len()).To(Equal(1))
		})
	})

	Context("when the history can't be saved", func() {
		It("keeps the record in memory and logs a warning", func() {
			fileSystem := new(mocks.FileSystem)
			fileSystem.MockOpen = func(name string) (fs.File, error) {
				return nil, errors.WithStack(os.ErrNotExist)
			}
			fileSystem.MockCreate = func(name string) (fs.File, error) {
				return nil, errors.NewSystemError("disk full")
			}

			detector = flakiness.NewDetector(log, flakiness.NewFileStore(fileSystem, "reports", nil), mockClk, 0)
			detector.Record("Login/valid login", true, 1)

			Expect(detector.Identities()).To(Equal([]string{"Login/valid login"}))
			Expect(logs.FilterMessageSnippet("Could not save flakiness history").Len()).To(Equal(1))
		})
	})

	Describe("reports", func() {
		BeforeEach(func() {
			detector.Record("Login/bad login", false, 1)
			detector.Record("Login/bad login", false, 1)
			detector.Record("Login/valid login", true, 1)
		})

		It("builds a report of all flaky tests", func() {
			report := flakiness.BuildReport(detector)

			Expect(report.AnalysisDate).To(Equal("2024-03-01 12:30:00"))
			Expect(report.TotalTests).To(Equal(2))
			Expect(report.FlakyTestsFound).To(Equal(1))
			Expect(report.FlakyTests[0].Identity).To(Equal("Login/bad login"))
			Expect(report.FlakyTests[0].Recommendation).To(ContainSubstring("investigate test logic"))
			Expect(report.TestHistorySummary["Login/valid login"]).To(Equal(flakiness.RunCounts{TotalRuns: 1}))
		})

		It("writes the report with a timestamped name", func() {
			path, err := flakiness.WriteReport(fs.Local{}, dir, flakiness.BuildReport(detector))

			Expect(err).NotTo(HaveOccurred())
			Expect(filepath.Base(path)).To(Equal("flakiness_report_20240301_123000.json"))

			data, err := os.ReadFile(path)
			Expect(err).NotTo(HaveOccurred())
			Expect(string(data)).To(ContainSubstring(`"flaky_tests_found": 1`))
			Expect(string(data)).To(ContainSubstring(`"test_name": "Login/bad login"`))
		})

		It("prints flaky tests as a table", func() {
			var out strings.Builder
			flakiness.PrintTable(&out, flakiness.BuildReport(detector))

			Expect(out.String()).To(ContainSubstring("Login/bad login"))
			Expect(out.String()).To(ContainSubstring("70.0%"))
			Expect(out.String()).NotTo(ContainSubstring("Login/valid login"))
		})

		It("prints the available history when nothing is flaky", func() {
			detector.Clear()
			detector.Record("Login/valid login", true, 1)

			var out strings.Builder
			flakiness.PrintTable(&out, flakiness.BuildReport(detector))

			Expect(out.String()).To(ContainSubstring("No flaky tests detected"))
			Expect(out.String()).To(ContainSubstring("need at least 5 runs"))
		})
	})
})
