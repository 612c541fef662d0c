package cli

import (
	"fmt"
	"strings"
	"time"

	"github.com/rwx-research/conductor/internal/errors"
	"github.com/rwx-research/conductor/internal/flakiness"
	"github.com/rwx-research/conductor/internal/scheduler"
)

const (
	DefaultReportsDir  = "reports"
	DefaultFeaturesDir = "features"
	DefaultMaxRetries  = 2
	DefaultBrowser     = "chromium"
	DefaultEnvironment = "dev"
)

var (
	browsers     = []string{"chromium", "firefox", "webkit"}
	environments = []string{"dev", "stg", "prod"}

	// DefaultArtifactDirs are the directories the browser automation leaves its artifacts in. They are emptied before
	// every run.
	DefaultArtifactDirs = []string{"screenshots", "traces", "videos", "har"}
)

// RunConfig holds the configuration for running a test suite (used by `Run`)
type RunConfig struct {
	TestType string
	Tags     string
	Parallel int
	GroupBy  string

	Browser     string
	Headless    *bool
	Environment string

	Retry            bool
	MaxRetries       int
	RetryAllFailures bool

	AnalyzeFlakiness   bool
	FlakinessThreshold float64
	TrendAnalysis      bool
	Allure             bool

	ReportsDir   string
	FeaturesDir  string
	ArtifactDirs []string
	Executor     string
	GroupTimeout time.Duration
	GroupsFile   string

	NoCapture bool
	Verbose   bool
}

func oneOf(value string, allowed []string) bool {
	for _, candidate := range allowed {
		if value == candidate {
			return true
		}
	}

	return false
}

// Validate checks the enumerations & bounds of the configuration. Empty values are valid and replaced by defaults.
func (rc RunConfig) Validate() error {
	if _, err := scheduler.ParseTestType(rc.TestType); err != nil {
		return errors.WithStack(err)
	}

	groupBy, err := scheduler.ParseGroupBy(rc.GroupBy)
	if err != nil {
		return errors.WithStack(err)
	}

	if groupBy == scheduler.GroupByTags && len(scheduler.SplitTags(rc.Tags)) == 0 {
		return errors.NewConfigurationError(
			"Missing tags",
			"Grouping by tags builds one group per tag given in --tags.",
			"Please pass --tags, e.g. `--tags @smoke,@api`, or use another grouping.",
		)
	}

	if rc.Browser != "" && !oneOf(rc.Browser, browsers) {
		return errors.NewConfigurationError(
			fmt.Sprintf("Unknown browser %q", rc.Browser),
			"The browser decides which engine runs the UI scenarios.",
			fmt.Sprintf("Use one of %s.", strings.Join(browsers, ", ")),
		)
	}

	if rc.Environment != "" && !oneOf(rc.Environment, environments) {
		return errors.NewConfigurationError(
			fmt.Sprintf("Unknown environment %q", rc.Environment),
			"The environment decides which deployment the scenarios run against.",
			fmt.Sprintf("Use one of %s.", strings.Join(environments, ", ")),
		)
	}

	if rc.Parallel < 0 {
		return errors.NewConfigurationError(
			"Invalid parallel count",
			"--parallel must not be negative.",
			"Use 1 (or leave it out) for a sequential run.",
		)
	}

	if rc.MaxRetries < 0 {
		return errors.NewConfigurationError(
			"Invalid retry count",
			"--max-retries must not be negative.",
			"Use 0 to disable retries.",
		)
	}

	if rc.FlakinessThreshold < 0 || rc.FlakinessThreshold > 1 {
		return errors.NewConfigurationError(
			"Invalid flakiness threshold",
			"The flakiness threshold is a confidence between 0 and 1.",
			fmt.Sprintf("Leave it out to use the default of %.1f.", flakiness.DefaultThreshold),
		)
	}

	if rc.GroupTimeout < 0 {
		return errors.NewConfigurationError(
			"Invalid group timeout",
			"The group timeout must not be negative.",
			"Leave it out to use the default.",
		)
	}

	return nil
}

func (rc RunConfig) testType() scheduler.TestType {
	testType, err := scheduler.ParseTestType(rc.TestType)
	if err != nil {
		return scheduler.TestTypeAll
	}

	return testType
}

func (rc RunConfig) groupBy() scheduler.GroupBy {
	groupBy, err := scheduler.ParseGroupBy(rc.GroupBy)
	if err != nil {
		return scheduler.GroupByTypes
	}

	return groupBy
}

func (rc RunConfig) reportsDir() string {
	if rc.ReportsDir == "" {
		return DefaultReportsDir
	}

	return rc.ReportsDir
}

func (rc RunConfig) featuresDir() string {
	if rc.FeaturesDir == "" {
		return DefaultFeaturesDir
	}

	return rc.FeaturesDir
}

func (rc RunConfig) artifactDirs() []string {
	if rc.ArtifactDirs == nil {
		return DefaultArtifactDirs
	}

	return rc.ArtifactDirs
}

func (rc RunConfig) flakinessThreshold() float64 {
	if rc.FlakinessThreshold == 0 {
		return flakiness.DefaultThreshold
	}

	return rc.FlakinessThreshold
}

// ReportConfig holds the configuration of `Report`, which builds reports from existing result files
type ReportConfig struct {
	ReportsDir    string
	ResultFiles   []string
	TrendAnalysis bool
	SaveHistory   bool
}

// FlakinessConfig holds the configuration of the flakiness sub-commands
type FlakinessConfig struct {
	ReportsDir string
	Threshold  float64
}
