package reporting

import (
	"time"

	"github.com/rwx-research/conductor/internal/fs"
	"github.com/rwx-research/conductor/internal/results"
)

// TimestampLayout is the layout of the timestamp that's part of every artifact name
const TimestampLayout = "20060102_150405"

type Configuration struct {
	GeneratedAt time.Time
	RunID       string
	Commit      string
	SuiteName   string

	// RerunCommand is prefixed to a scenario location to show how a single failed scenario can be re-run
	RerunCommand string

	// FlakyScenarios are the identities of scenarios that are known to be flaky
	FlakyScenarios []string

	// Charts are the file names of already rendered charts, relative to the report. They are embedded into HTML reports.
	Charts []string
}

// Writer writes a single report for a result set
type Writer func(file fs.File, set results.ResultSet, cfg Configuration) error

func (c Configuration) timestamp() string {
	if c.GeneratedAt.IsZero() {
		return time.Now().Format(TimestampLayout)
	}

	return c.GeneratedAt.Format(TimestampLayout)
}

func (c Configuration) generatedOn() string {
	if c.GeneratedAt.IsZero() {
		return time.Now().Format("2006-01-02 15:04:05")
	}

	return c.GeneratedAt.Format("2006-01-02 15:04:05")
}

func (c Configuration) suiteName() string {
	if c.SuiteName == "" {
		return "conductor"
	}

	return c.SuiteName
}
