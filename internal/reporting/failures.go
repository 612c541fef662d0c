package reporting

import (
	"fmt"
	"io"
	"strings"

	"github.com/acarl005/stripansi"

	"github.com/rwx-research/conductor/internal/errors"
	"github.com/rwx-research/conductor/internal/parsing"
	"github.com/rwx-research/conductor/internal/results"
)

// FailureSource tells where the failure analysis came from
type FailureSource string

const (
	FailureSourceResults FailureSource = "results"
	FailureSourceSummary FailureSource = "summary"
	FailureSourceConsole FailureSource = "console"
	FailureSourceNone    FailureSource = "none"
)

// FailureAnalysis is the best available explanation of why a run failed
type FailureAnalysis struct {
	Source     FailureSource
	Details    []parsing.FailureDetail
	Summary    parsing.RunSummary
	ErrorLines []string
}

// AnalyzeFailures prefers structured results, then the runner's closing summary, and finally any console lines that
// look like errors.
func AnalyzeFailures(set results.ResultSet, output string) FailureAnalysis {
	if details := parsing.FailureDetails(set); len(details) > 0 {
		return FailureAnalysis{Source: FailureSourceResults, Details: details}
	}

	if summary := parsing.ExtractRunSummary(output); len(summary.Failing) > 0 {
		return FailureAnalysis{Source: FailureSourceSummary, Summary: summary}
	}

	if lines := parsing.ExtractErrorLines(output, parsing.DefaultMaxErrorLines); len(lines) > 0 {
		return FailureAnalysis{Source: FailureSourceConsole, ErrorLines: lines}
	}

	return FailureAnalysis{Source: FailureSourceNone}
}

const failureRule = "================================================================================"

// PrintFailureAnalysis writes a human-readable breakdown of the failures
func PrintFailureAnalysis(w io.Writer, analysis FailureAnalysis) error {
	out := new(strings.Builder)

	fmt.Fprintf(out, "\n%s\nFAILURE ANALYSIS\n%s\n", failureRule, failureRule)

	switch analysis.Source {
	case FailureSourceResults:
		fmt.Fprintf(out, "%d failed %s:\n",
			len(analysis.Details), pluralize(len(analysis.Details), "scenario", "scenarios"))

		for i, detail := range analysis.Details {
			fmt.Fprintf(out, "\n%d. %s\n   Scenario: %s\n", i+1, detail.Feature, detail.Scenario)
			if detail.ScenarioLocation != "" {
				fmt.Fprintf(out, "   Location: %s\n", detail.ScenarioLocation)
			}

			if len(detail.Steps) == 0 {
				fmt.Fprintf(out, "   No failed step was recorded\n")
				continue
			}

			for _, step := range detail.Steps {
				fmt.Fprintf(out, "   Step: %s\n", strings.TrimSpace(step.Keyword+" "+step.Name))
				if step.Location != "" {
					fmt.Fprintf(out, "   Step location: %s\n", step.Location)
				}

				for _, line := range strings.Split(strings.TrimSpace(stripansi.Strip(step.Message)), "\n") {
					fmt.Fprintf(out, "     %s\n", line)
				}
			}
		}
	case FailureSourceSummary:
		for _, stat := range analysis.Summary.Stats {
			fmt.Fprintf(out, "%s\n", stat)
		}

		fmt.Fprintf(out, "\nFailing scenarios:\n")
		for _, failing := range analysis.Summary.Failing {
			kind := "failed"
			if failing.Errored {
				kind = "errored"
			}

			fmt.Fprintf(out, "  - %s (%s) %s\n", failing.Name, kind, failing.Location)
		}
	case FailureSourceConsole:
		fmt.Fprintf(out, "No structured results were available. Error output:\n")
		for _, line := range analysis.ErrorLines {
			fmt.Fprintf(out, "  %s\n", line)
		}
	default:
		fmt.Fprintf(out, "No failure details could be found. Check the runner output above.\n")
	}

	fmt.Fprintf(out, "%s\n", failureRule)

	_, err := io.WriteString(w, out.String())
	return errors.WithStack(err)
}
