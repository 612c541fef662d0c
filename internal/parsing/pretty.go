package parsing

import (
	"regexp"
	"strings"

	"github.com/acarl005/stripansi"

	"github.com/rwx-research/conductor/internal/errors"
	"github.com/rwx-research/conductor/internal/results"
)

var (
	prettyFeature   = regexp.MustCompile(`^Feature:\s+(.*?)\s+#\s+(.*)$`)
	prettyScenario  = regexp.MustCompile(`^\s*Scenario(?: Outline)?:\s+(.*?)\s+#\s+(.*)$`)
	prettyStep      = regexp.MustCompile(`^\s*(Given|When|Then|And|But)\s+(.*?)\s+#\s+(.*)$`)
	prettyAssertion = regexp.MustCompile(`^\s*ASSERT FAILED:\s*(.*)$`)
)

// PrettyDecoder decodes the human-readable output of behave's "pretty" formatter. Only lines with a `# location`
// marker are considered, and an `ASSERT FAILED:` line marks the most recent step as failed.
type PrettyDecoder struct{}

type prettyStepState struct {
	keyword  string
	name     string
	location string
}

type prettyScenarioState struct {
	feature  string
	name     string
	location string
	failures []results.StepFailure
}

func (d PrettyDecoder) Decode(raw []byte) ([]results.TestOutcome, error) {
	var (
		feature   string
		scenario  *prettyScenarioState
		lastStep  *prettyStepState
		scenarios = make([]*prettyScenarioState, 0)
		byKey     = make(map[[2]string]*prettyScenarioState)
	)

	for _, rawLine := range strings.Split(string(raw), "\n") {
		line := strings.TrimSpace(stripansi.Strip(rawLine))
		if line == "" {
			continue
		}

		if match := prettyFeature.FindStringSubmatch(line); match != nil {
			feature = strings.TrimSpace(match[1])
			scenario = nil
			lastStep = nil
			continue
		}

		if match := prettyScenario.FindStringSubmatch(line); match != nil {
			lastStep = nil
			if feature == "" {
				scenario = nil
				continue
			}

			name := strings.TrimSpace(match[1])
			key := [2]string{feature, name}

			// A scenario that shows up repeatedly (e.g. retried by the runner) collapses into one record.
			if existing, ok := byKey[key]; ok {
				scenario = existing
				continue
			}

			scenario = &prettyScenarioState{feature: feature, name: name, location: strings.TrimSpace(match[2])}
			byKey[key] = scenario
			scenarios = append(scenarios, scenario)
			continue
		}

		if scenario == nil {
			continue
		}

		if match := prettyStep.FindStringSubmatch(line); match != nil {
			lastStep = &prettyStepState{
				keyword:  match[1],
				name:     strings.TrimSpace(match[2]),
				location: strings.TrimSpace(match[3]),
			}
			continue
		}

		if match := prettyAssertion.FindStringSubmatch(line); match != nil && lastStep != nil {
			scenario.failures = append(scenario.failures, results.StepFailure{
				Keyword:  lastStep.keyword,
				Name:     lastStep.name,
				Location: lastStep.location,
				Message:  "ASSERT FAILED: " + strings.TrimSpace(match[1]),
			})
			lastStep = nil
		}
	}

	if len(scenarios) == 0 {
		return nil, errors.NewInputError("No scenarios were found in the pretty-printed output")
	}

	outcomes := make([]results.TestOutcome, 0, len(scenarios))
	for _, s := range scenarios {
		status := results.StatusPassed
		if len(s.failures) > 0 {
			status = results.StatusFailed
		}

		outcome := results.NewTestOutcome(s.feature, s.name, status, 0)
		outcome.Location = s.location
		outcome.FailedSteps = s.failures
		outcomes = append(outcomes, outcome)
	}

	return outcomes, nil
}
