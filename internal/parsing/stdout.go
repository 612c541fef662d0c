package parsing

import (
	"regexp"
	"strings"

	"github.com/acarl005/stripansi"
)

// DefaultMaxErrorLines is how many lines `ExtractErrorLines` returns by default
const DefaultMaxErrorLines = 10

// FailingScenario is an entry of the "Failing scenarios:" or "Errored scenarios:" block that behave prints at the end
// of a run.
type FailingScenario struct {
	Location string
	Name     string
	Errored  bool
}

// RunSummary is what can be recovered from the runner's console output without any structured results.
type RunSummary struct {
	// Stats holds the counter lines, e.g. "2 features passed, 1 failed, 0 skipped", ordered by feature, scenario,
	// step, and timing.
	Stats   []string
	Failing []FailingScenario
}

// IsEmpty is true if nothing could be extracted
func (s RunSummary) IsEmpty() bool {
	return len(s.Stats) == 0 && len(s.Failing) == 0
}

var (
	countLine = regexp.MustCompile(`(?i)^\d+\s+(features?|scenarios?|steps?)\s+(passed|failed|skipped|error)`)
	tookLine  = regexp.MustCompile(`^Took\s+.*(min|sec|s)`)
)

func isRecordLine(line string) bool {
	return strings.HasPrefix(line, `{"keyword":`) || strings.HasPrefix(line, `[{"keyword":`)
}

func consoleLines(output string) []string {
	raw := strings.Split(stripansi.Strip(strings.ReplaceAll(output, "\r\n", "\n")), "\n")
	lines := make([]string, 0, len(raw))
	for _, line := range raw {
		lines = append(lines, strings.TrimSpace(line))
	}
	return lines
}

// ExtractRunSummary scans the runner's console output for its closing summary.
func ExtractRunSummary(output string) RunSummary {
	summary := RunSummary{}
	statsByKind := map[string][]string{}

	capturing := false
	errored := false

	for _, line := range consoleLines(output) {
		if isRecordLine(line) {
			continue
		}

		if match := countLine.FindStringSubmatch(line); match != nil {
			kind := strings.TrimSuffix(strings.ToLower(match[1]), "s")
			statsByKind[kind] = append(statsByKind[kind], line)
			capturing = false
			continue
		}

		if tookLine.MatchString(line) {
			statsByKind["time"] = append(statsByKind["time"], line)
			continue
		}

		switch {
		case strings.HasPrefix(line, "Failing scenarios:"):
			capturing, errored = true, false
			continue
		case strings.HasPrefix(line, "Errored scenarios:"):
			capturing, errored = true, true
			continue
		}

		if !capturing {
			continue
		}

		if line == "" {
			capturing = false
			continue
		}

		location, name, _ := strings.Cut(line, " ")
		summary.Failing = append(summary.Failing, FailingScenario{
			Location: location,
			Name:     strings.TrimSpace(name),
			Errored:  errored,
		})
	}

	for _, kind := range []string{"feature", "scenario", "step", "time"} {
		summary.Stats = append(summary.Stats, statsByKind[kind]...)
	}

	return summary
}

var errorKeywords = []string{"error", "failed", "exception", "traceback"}

// ExtractErrorLines is the last resort when no structured failure information is available: it returns up to `max`
// console lines that look like errors, skipping the runner's own bookkeeping.
func ExtractErrorLines(output string, max int) []string {
	if max <= 0 {
		max = DefaultMaxErrorLines
	}

	found := make([]string, 0)
	for _, line := range consoleLines(output) {
		if len(found) == max {
			break
		}

		if line == "" || isRecordLine(line) || line == "[" || line == "]" {
			continue
		}

		if strings.HasPrefix(line, "USING RUNNER:") || countLine.MatchString(line) ||
			strings.HasPrefix(line, "Failing scenarios:") || strings.HasPrefix(line, "Errored scenarios:") ||
			(strings.HasPrefix(line, "features/") && strings.Contains(line, ":")) {
			continue
		}

		lower := strings.ToLower(line)
		for _, keyword := range errorKeywords {
			if strings.Contains(lower, keyword) {
				found = append(found, line)
				break
			}
		}
	}

	return found
}
