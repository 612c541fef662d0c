package reporting

import (
	"fmt"
	"io"
	"unicode"

	"github.com/rwx-research/conductor/internal/errors"
	"github.com/rwx-research/conductor/internal/results"
)

// WriteTextSummary writes a plain-text overview, listing every scenario that didn't pass
func WriteTextSummary(file io.Writer, set results.ResultSet, _ Configuration) error {
	metrics := ComputeMetrics(set)

	_, err := file.Write([]byte(fmt.Sprintf(
		"Conductor detected a total of %d %s in %d %s.\n",
		metrics.TotalScenarios, pluralize(metrics.TotalScenarios, "scenario", "scenarios"),
		metrics.TotalFeatures, pluralize(metrics.TotalFeatures, "feature", "features"),
	)))
	if err != nil {
		return errors.WithStack(err)
	}

	for _, status := range []results.Status{results.StatusFailed, results.StatusSkipped, results.StatusUnknown} {
		scenarios := set.WithStatus(status)
		if len(scenarios) == 0 {
			continue
		}

		statusName := []rune(string(status))
		statusName[0] = unicode.ToUpper(statusName[0])

		_, err := file.Write([]byte(fmt.Sprintf("\n%s (%d):\n", string(statusName), len(scenarios))))
		if err != nil {
			return errors.WithStack(err)
		}

		for _, scenario := range scenarios {
			_, err := file.Write([]byte(fmt.Sprintf("- %s: %s\n", scenario.Feature, scenario.Scenario)))
			if err != nil {
				return errors.WithStack(err)
			}
		}
	}

	return nil
}

func pluralize(count int, singular string, plural string) string {
	if count == 1 {
		return singular
	}

	return plural
}
