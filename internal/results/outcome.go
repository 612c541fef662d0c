// Package results holds the normalized result model that every report, metric, and flakiness record is derived from.
package results

import (
	"math"
)

// StepFailure describes a single failed step of a scenario.
type StepFailure struct {
	Keyword  string `json:"keyword"`
	Name     string `json:"name"`
	Location string `json:"location,omitempty"`
	Message  string `json:"message"`
}

// TestOutcome is the outcome of a single scenario. It should not be modified once created.
type TestOutcome struct {
	Feature         string        `json:"feature"`
	Scenario        string        `json:"scenario"`
	Status          Status        `json:"status"`
	DurationSeconds float64       `json:"duration"`
	Location        string        `json:"location,omitempty"`
	Tags            []string      `json:"tags,omitempty"`
	FailedSteps     []StepFailure `json:"failed_steps,omitempty"`
}

// NewTestOutcome returns a TestOutcome with a sanitized duration & status.
func NewTestOutcome(feature, scenario string, status Status, durationSeconds float64) TestOutcome {
	if status == "" {
		status = StatusUnknown
	}

	return TestOutcome{
		Feature:         feature,
		Scenario:        scenario,
		Status:          status,
		DurationSeconds: SafeDuration(durationSeconds),
	}
}

// Identity is the name a scenario is tracked under across runs, e.g. for flakiness detection.
func (o TestOutcome) Identity() string {
	return o.Feature + "/" + o.Scenario
}

func (o TestOutcome) key() outcomeKey {
	return outcomeKey{scenario: o.Scenario, feature: o.Feature, status: o.Status}
}

// FeatureOutcome is the aggregated status of all scenarios of a feature.
type FeatureOutcome struct {
	Name   string `json:"name"`
	Status Status `json:"status"`
}

// SafeDuration coerces NaN, infinite and negative durations to 0.
func SafeDuration(seconds float64) float64 {
	if math.IsNaN(seconds) || math.IsInf(seconds, 0) || seconds < 0 {
		return 0
	}

	return seconds
}

// Round rounds `value` to `places` decimal places.
func Round(value float64, places int) float64 {
	factor := math.Pow(10, float64(places))
	return math.Round(value*factor) / factor
}
