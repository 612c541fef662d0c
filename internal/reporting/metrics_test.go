package reporting_test

import (
	"math"

	"github.com/rwx-research/conductor/internal/reporting"
	"github.com/rwx-research/conductor/internal/results"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("Metrics", func() {
	It("aggregates scenarios & features", func() {
		metrics := reporting.ComputeMetrics(fixtureResultSet())

		Expect(metrics).To(Equal(reporting.Metrics{
			TotalScenarios:   4,
			PassedScenarios:  2,
			FailedScenarios:  1,
			SkippedScenarios: 1,
			ScenarioPassRate: 50,
			TotalFeatures:    2,
			PassedFeatures:   1,
			FailedFeatures:   1,
			FeaturePassRate:  50,
			TotalDuration:    4,
			AverageDuration:  1,
		}))
	})

	It("rounds rates to two decimals", func() {
		set := results.NewResultSet(
			results.NewTestOutcome("F", "a", results.StatusPassed, 0.333),
			results.NewTestOutcome("F", "b", results.StatusFailed, 0.333),
			results.NewTestOutcome("F", "c", results.StatusFailed, 0.333),
		)

		metrics := reporting.ComputeMetrics(set)
		Expect(metrics.ScenarioPassRate).To(Equal(33.33))
		Expect(metrics.TotalDuration).To(Equal(1.0))
		Expect(metrics.AverageDuration).To(Equal(0.33))
	})

	It("is all zeros for an empty result set", func() {
		Expect(reporting.ComputeMetrics(results.NewResultSet())).To(Equal(reporting.Metrics{}))
	})

	It("ignores non-finite durations", func() {
		set := results.ResultSet{Scenarios: []results.TestOutcome{
			{Feature: "F", Scenario: "a", Status: results.StatusPassed, DurationSeconds: math.NaN()},
			{Feature: "F", Scenario: "b", Status: results.StatusPassed, DurationSeconds: math.Inf(1)},
			{Feature: "F", Scenario: "c", Status: results.StatusPassed, DurationSeconds: 2},
		}}

		metrics := reporting.ComputeMetrics(set)
		Expect(metrics.TotalDuration).To(Equal(2.0))
		Expect(math.IsNaN(metrics.AverageDuration)).To(BeFalse())
	})

	DescribeTable("SafeRatio",
		func(numerator, denominator, expected float64) {
			Expect(reporting.SafeRatio(numerator, denominator)).To(Equal(expected))
		},
		Entry("regular division", 1.0, 4.0, 0.25),
		Entry("zero denominator", 1.0, 0.0, 0.0),
		Entry("NaN numerator", math.NaN(), 2.0, 0.0),
		Entry("infinite numerator", math.Inf(1), 2.0, 0.0),
	)

	It("counts scenarios by status", func() {
		counts := reporting.ComputeMetrics(fixtureResultSet()).StatusCounts()
		Expect(counts).To(Equal(map[string]int{"passed": 2, "failed": 1, "skipped": 1, "unknown": 0}))
	})
})
