package cli

// ConfigFile holds all options that can be set over the config file
type ConfigFile struct {
	Flags  map[string]any
	Output struct {
		Debug   bool
		Verbose bool
		LogFile string `yaml:"log-file"`
	}
	RunDefaults RunConfigFile `yaml:"run"`
}

// RunConfigFile holds the defaults of `conductor run`. Flags & environment variables take precedence.
type RunConfigFile struct {
	TestType     string `yaml:"test-type"`
	Tags         string
	Parallel     int
	GroupBy      string `yaml:"group-by"`
	Browser      string
	Headless     *bool
	Environment  string `yaml:"env"`
	Executor     string
	ReportsDir   string   `yaml:"reports-dir"`
	FeaturesDir  string   `yaml:"features-dir"`
	ArtifactDirs []string `yaml:"artifact-dirs"`
	GroupsFile   string   `yaml:"groups-file"`
	GroupTimeout string   `yaml:"group-timeout"`
	Allure       bool
	Trends       bool

	Retries   RetriesConfigFile
	Flakiness FlakinessConfigFile
}

type RetriesConfigFile struct {
	Enabled     bool
	MaxRetries  int  `yaml:"max-retries"`
	AllFailures bool `yaml:"all-failures"`
}

type FlakinessConfigFile struct {
	Analyze   bool
	Threshold float64
}
