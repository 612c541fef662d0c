package parsing

import (
	"github.com/rwx-research/conductor/internal/results"
)

// FailureDetail is one failed scenario with every failed step, ready to be printed.
type FailureDetail struct {
	Feature          string
	Scenario         string
	ScenarioLocation string
	Steps            []results.StepFailure
}

// FailureDetails collects the failed scenarios of a result set. Scenarios without any recorded failed step are
// reported as well, so a failure never goes unmentioned.
func FailureDetails(set results.ResultSet) []FailureDetail {
	details := make([]FailureDetail, 0)

	for _, scenario := range set.Failed() {
		details = append(details, FailureDetail{
			Feature:          scenario.Feature,
			Scenario:         scenario.Scenario,
			ScenarioLocation: scenario.Location,
			Steps:            scenario.FailedSteps,
		})
	}

	return details
}
