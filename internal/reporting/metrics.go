package reporting

import (
	"math"

	"github.com/rwx-research/conductor/internal/results"
)

// Metrics are the aggregate numbers of a single run. Rates are percentages, durations are seconds.
type Metrics struct {
	TotalScenarios   int     `json:"total_scenarios"`
	PassedScenarios  int     `json:"passed_scenarios"`
	FailedScenarios  int     `json:"failed_scenarios"`
	SkippedScenarios int     `json:"skipped_scenarios"`
	ScenarioPassRate float64 `json:"scenario_pass_rate"`
	TotalFeatures    int     `json:"total_features"`
	PassedFeatures   int     `json:"passed_features"`
	FailedFeatures   int     `json:"failed_features"`
	FeaturePassRate  float64 `json:"feature_pass_rate"`
	TotalDuration    float64 `json:"total_duration"`
	AverageDuration  float64 `json:"avg_scenario_duration"`
}

// ComputeMetrics aggregates a result set. It never produces NaN or infinite values.
func ComputeMetrics(set results.ResultSet) Metrics {
	m := Metrics{
		TotalScenarios:   len(set.Scenarios),
		PassedScenarios:  len(set.Passed()),
		FailedScenarios:  len(set.Failed()),
		SkippedScenarios: len(set.Skipped()),
		TotalFeatures:    len(set.Features),
		PassedFeatures:   len(set.FeaturesWithStatus(results.StatusPassed)),
		FailedFeatures:   len(set.FeaturesWithStatus(results.StatusFailed)),
	}

	total := set.TotalDuration()

	m.ScenarioPassRate = results.Round(SafeRatio(float64(m.PassedScenarios), float64(m.TotalScenarios))*100, 2)
	m.FeaturePassRate = results.Round(SafeRatio(float64(m.PassedFeatures), float64(m.TotalFeatures))*100, 2)
	m.TotalDuration = results.Round(total, 2)
	m.AverageDuration = results.Round(SafeRatio(total, float64(m.TotalScenarios)), 2)

	return m
}

// SafeRatio divides `numerator` by `denominator`, returning 0 instead of NaN or ±Inf.
func SafeRatio(numerator, denominator float64) float64 {
	if denominator == 0 {
		return 0
	}

	ratio := numerator / denominator
	if math.IsNaN(ratio) || math.IsInf(ratio, 0) {
		return 0
	}

	return ratio
}

// StatusCounts returns the scenario counts keyed by status, e.g. for telemetry
func (m Metrics) StatusCounts() map[string]int {
	return map[string]int{
		string(results.StatusPassed):  m.PassedScenarios,
		string(results.StatusFailed):  m.FailedScenarios,
		string(results.StatusSkipped): m.SkippedScenarios,
		string(results.StatusUnknown): m.TotalScenarios - m.PassedScenarios - m.FailedScenarios - m.SkippedScenarios,
	}
}
