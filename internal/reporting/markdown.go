package reporting

import (
	"fmt"
	"strings"
	"text/template"

	"github.com/acarl005/stripansi"

	"github.com/rwx-research/conductor/internal/errors"
	"github.com/rwx-research/conductor/internal/fs"
	"github.com/rwx-research/conductor/internal/results"
)

type markdownScenarioSection string

var (
	flakySection   markdownScenarioSection = "🔁 Flaky"
	failedSection  markdownScenarioSection = "❌ Failed"
	unknownSection markdownScenarioSection = "❔ Unknown"
)

type markdownScenario struct {
	Name     string
	Feature  string
	Location string
	Command  string
	Steps    []results.StepFailure
}

const (
	oneMB                    = 1000000
	markdownResultsTruncated = "\n\nYour results have been truncated; markdown summarization has a 1MB limit."
	markdownScenarioTemplate = `<details>
<summary><strong>{{ .Feature }}: {{ .Name }}</strong></summary>

<dl>
{{ if .Location }}<dd>Defined at <code>{{ .Location }}</code></dd>{{ end }}
{{ if .Command }}<dd>Re-run with <code>{{ .Command }}</code></dd>{{ end }}
{{ range .Steps }}
<dd>
<details>
<summary>{{ .Keyword }} {{ .Name }}</summary><br />
<pre>{{ .Message }}</pre>
</details>
</dd>
{{ end }}
</dl>
</details>
`
)

func WriteMarkdownSummary(file fs.File, set results.ResultSet, cfg Configuration) error {
	markdown := new(strings.Builder)
	if _, err := markdown.WriteString(fmt.Sprintf("# `%v` Summary\n\n", cfg.suiteName())); err != nil {
		return errors.WithStack(err)
	}

	if err := writeMarkdownSummaryLine(markdown, set, cfg); err != nil {
		return errors.WithStack(err)
	}

	scenariosBySection := scenariosByMarkdownSection(set, cfg)
	orderedSections := []markdownScenarioSection{flakySection, failedSection, unknownSection}

	for _, section := range orderedSections {
		shouldTruncate, err := writeMarkdownSection(markdown, section, scenariosBySection[section], cfg)
		if err != nil {
			return errors.WithStack(err)
		}
		if shouldTruncate {
			if _, err := markdown.WriteString(markdownResultsTruncated); err != nil {
				return errors.WithStack(err)
			}
			if _, err := file.Write([]byte(markdown.String())); err != nil {
				return errors.WithStack(err)
			}
			return nil
		}
	}

	if _, err := file.Write([]byte(markdown.String())); err != nil {
		return errors.WithStack(err)
	}

	return nil
}

func writeMarkdownSummaryStatus(markdown *strings.Builder, value int, singular string, plural string) error {
	if value <= 0 {
		return nil
	}

	if _, err := markdown.WriteString(fmt.Sprintf(", %v %v", value, pluralize(value, singular, plural))); err != nil {
		return errors.WithStack(err)
	}

	return nil
}

func writeMarkdownSummaryLine(markdown *strings.Builder, set results.ResultSet, cfg Configuration) error {
	metrics := ComputeMetrics(set)

	if _, err := markdown.WriteString(
		fmt.Sprintf("%v %v", metrics.TotalScenarios, pluralize(metrics.TotalScenarios, "scenario", "scenarios")),
	); err != nil {
		return errors.WithStack(err)
	}

	if err := writeMarkdownSummaryStatus(markdown, len(cfg.FlakyScenarios), "flaky", "flaky"); err != nil {
		return errors.WithStack(err)
	}

	if err := writeMarkdownSummaryStatus(markdown, metrics.FailedScenarios, "failed", "failed"); err != nil {
		return errors.WithStack(err)
	}

	if err := writeMarkdownSummaryStatus(markdown, metrics.SkippedScenarios, "skipped", "skipped"); err != nil {
		return errors.WithStack(err)
	}

	if _, err := markdown.WriteString(
		fmt.Sprintf(" (%.2f%% pass rate, %.2fs)\n", metrics.ScenarioPassRate, metrics.TotalDuration),
	); err != nil {
		return errors.WithStack(err)
	}

	return nil
}

func scenariosByMarkdownSection(set results.ResultSet, cfg Configuration) map[markdownScenarioSection][]results.TestOutcome {
	flaky := make(map[string]struct{}, len(cfg.FlakyScenarios))
	for _, identity := range cfg.FlakyScenarios {
		flaky[identity] = struct{}{}
	}

	scenariosBySection := map[markdownScenarioSection][]results.TestOutcome{
		flakySection:   make([]results.TestOutcome, 0),
		failedSection:  make([]results.TestOutcome, 0),
		unknownSection: make([]results.TestOutcome, 0),
	}

	for _, scenario := range set.Scenarios {
		// Flaky first so that anything that's flaky will end up only in that section.
		if _, ok := flaky[scenario.Identity()]; ok {
			scenariosBySection[flakySection] = append(scenariosBySection[flakySection], scenario)
			continue
		}

		switch scenario.Status {
		case results.StatusFailed:
			scenariosBySection[failedSection] = append(scenariosBySection[failedSection], scenario)
		case results.StatusUnknown:
			scenariosBySection[unknownSection] = append(scenariosBySection[unknownSection], scenario)
		}
	}

	return scenariosBySection
}

func writeMarkdownSection(
	markdown *strings.Builder,
	section markdownScenarioSection,
	scenarios []results.TestOutcome,
	cfg Configuration,
) (bool, error) {
	if len(scenarios) == 0 {
		return false, nil
	}

	if _, err := markdown.WriteString(fmt.Sprintf("\n## %v\n\n", section)); err != nil {
		return false, errors.WithStack(err)
	}

	parsedTemplate, err := template.New("markdownScenarioTemplate").Parse(markdownScenarioTemplate)
	if err != nil {
		return false, errors.WithStack(err)
	}

	for _, scenario := range scenarios {
		command := ""
		if cfg.RerunCommand != "" && scenario.Location != "" {
			command = fmt.Sprintf("%s %s", cfg.RerunCommand, scenario.Location)
		}

		steps := make([]results.StepFailure, 0, len(scenario.FailedSteps))
		for _, step := range scenario.FailedSteps {
			step.Message = stripansi.Strip(step.Message)
			steps = append(steps, step)
		}

		scenarioMarkdown := new(strings.Builder)
		if err := parsedTemplate.Execute(scenarioMarkdown, markdownScenario{
			Name:     scenario.Scenario,
			Feature:  scenario.Feature,
			Location: scenario.Location,
			Command:  command,
			Steps:    steps,
		}); err != nil {
			return false, errors.WithStack(err)
		}

		if oneMB-markdown.Len()-scenarioMarkdown.Len()-len(markdownResultsTruncated) <= 0 {
			return true, nil
		}

		if _, err := markdown.WriteString(scenarioMarkdown.String()); err != nil {
			return false, errors.WithStack(err)
		}
	}

	return false, nil
}
