package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/caarlos0/env/v7"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/rwx-research/conductor/internal/cli"
	"github.com/rwx-research/conductor/internal/errors"
)

// EnvConfig holds the environment variables the test suite shares with conductor
type EnvConfig struct {
	TestEnv          string `env:"TEST_ENV"`
	EnableAllure     *bool  `env:"ENABLE_ALLURE"`
	SharedLogFile    string `env:"SHARED_LOG_FILE"`
	MaxRetries       *int   `env:"MAX_RETRIES"`
	RetryAllFailures *bool  `env:"RETRY_ALL_FAILURES"`
	Debug            bool   `env:"CONDUCTOR_DEBUG"`
}

// Config is the internal representation of the configuration.
type Config struct {
	cli.ConfigFile

	Env EnvConfig

	Run       cli.RunConfig
	Report    cli.ReportConfig
	Flakiness cli.FlakinessConfig
}

type contextKey string

var configKey = contextKey("conductorConfig")

func getConfig(cmd *cobra.Command) (Config, error) {
	val := cmd.Context().Value(configKey)
	if val == nil {
		return Config{}, errors.NewInternalError(
			"Tried to fetch config from the command but it wasn't set. This should never happen!")
	}

	cfg, ok := val.(Config)
	if !ok {
		return Config{}, errors.NewInternalError(
			"Tried to fetch config from the command but it was of the wrong type. This should never happen!")
	}

	return cfg, nil
}

// adds config to cmd's context
func setConfigContext(cmd *cobra.Command, cfg Config) error {
	if cmd.Context() == nil {
		cmd.SetContext(context.Background())
	}

	if _, err := getConfig(cmd); err == nil {
		return errors.NewInternalError("Tried to set config on the command but it was already set. This should never happen!")
	}

	ctx := context.WithValue(cmd.Context(), configKey, cfg)
	cmd.SetContext(ctx)
	return nil
}

const (
	conductorDirectory = ".conductor"
	configFileName     = "config"
	envPrefix          = "conductor"
)

var configFileExtensions = []string{"yaml", "yml"}

// findInParentDir starts at the current working directory and walk up to the root, trying
// to find the specified fileName
func findInParentDir(fileName string) (string, error) {
	var match string
	var walk func(string, string) error

	walk = func(base, root string) error {
		if base == root {
			return errors.WithStack(os.ErrNotExist)
		}

		match = path.Join(base, fileName)

		info, err := os.Stat(match)
		if err != nil && !errors.Is(err, os.ErrNotExist) {
			return errors.WithStack(err)
		}

		if info != nil {
			return nil
		}

		return walk(filepath.Dir(base), root)
	}

	pwd, err := os.Getwd()
	if err != nil {
		return "", errors.WithStack(err)
	}

	volumeName := filepath.VolumeName(pwd)
	if volumeName == "" {
		volumeName = string(os.PathSeparator)
	}

	if err := walk(pwd, volumeName); err != nil {
		return "", errors.WithStack(err)
	}

	return match, nil
}

func locateConfigFile() (string, error) {
	possibleConfigFilePaths := make([]string, 0, 2)

	for _, extension := range configFileExtensions {
		configFilePath, err := findInParentDir(
			filepath.Join(conductorDirectory, fmt.Sprintf("%s.%s", configFileName, extension)),
		)

		if err == nil {
			possibleConfigFilePaths = append(possibleConfigFilePaths, configFilePath)
			continue
		}

		if !errors.Is(err, os.ErrNotExist) {
			return "", errors.NewConfigurationError(
				"Unable to read configuration file",
				fmt.Sprintf("The following system error occurred while looking for the config file: %s", err.Error()),
				"Please make sure that conductor has the correct permissions to access the config file.",
			)
		}
	}

	if len(possibleConfigFilePaths) > 1 {
		return "", errors.NewConfigurationError(
			"Unable to identify configuration file",
			fmt.Sprintf(
				"conductor found multiple configuration files in your environment: %s\n",
				strings.Join(possibleConfigFilePaths, ", "),
			),
			"Please make sure only one config file is present in your environment or explicitly specify "+
				"one using the '--config-file' flag.",
		)
	}

	if len(possibleConfigFilePaths) == 0 {
		return "", nil
	}

	return possibleConfigFilePaths[0], nil
}

func readConfigFile(configFilePath string) (cli.ConfigFile, error) {
	var configFile cli.ConfigFile

	fd, err := os.Open(configFilePath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return configFile, errors.NewConfigurationError(
				"Configuration file not found",
				fmt.Sprintf("There is no config file at %q.", configFilePath),
				"Please check the path passed to '--config-file'.",
			)
		}

		return configFile, errors.Wrap(err, fmt.Sprintf("unable to open config file %q", configFilePath))
	}
	defer fd.Close()

	decoder := yaml.NewDecoder(fd)
	decoder.KnownFields(true)
	if err = decoder.Decode(&configFile); err != nil {
		if errors.Is(err, io.EOF) {
			return configFile, nil
		}

		typeError := new(yaml.TypeError)
		if errors.As(err, &typeError) {
			err = errors.NewConfigurationError(
				"Parsing Error",
				strings.Join(typeError.Errors, "\n"),
				"Please refer to the README for the correct config file syntax.",
			)
		}

		return configFile, errors.Wrap(err, "unable to parse config file")
	}

	return configFile, nil
}

// fileDefaults turns the `run` section of the config file into flag defaults
func fileDefaults(file cli.RunConfigFile) map[string]any {
	defaults := map[string]any{
		"test-type":           file.TestType,
		"tags":                file.Tags,
		"parallel":            file.Parallel,
		"group-by":            file.GroupBy,
		"browser":             file.Browser,
		"env":                 file.Environment,
		"executor":            file.Executor,
		"reports-dir":         file.ReportsDir,
		"features-dir":        file.FeaturesDir,
		"groups-file":         file.GroupsFile,
		"group-timeout":       file.GroupTimeout,
		"allure":              file.Allure,
		"trend-analysis":      file.Trends,
		"retry":               file.Retries.Enabled,
		"max-retries":         file.Retries.MaxRetries,
		"retry-all-failures":  file.Retries.AllFailures,
		"analyze-flakiness":   file.Flakiness.Analyze,
		"flakiness-threshold": file.Flakiness.Threshold,
	}

	if file.Headless != nil {
		defaults["headless"] = *file.Headless
	}

	if len(file.ArtifactDirs) > 0 {
		defaults["artifact-dir"] = file.ArtifactDirs
	}

	// Unset values keep the flag defaults
	for key, value := range defaults {
		switch v := value.(type) {
		case string:
			if v == "" {
				delete(defaults, key)
			}
		case int:
			if v == 0 {
				delete(defaults, key)
			}
		case float64:
			if v == 0 {
				delete(defaults, key)
			}
		case bool:
			if !v {
				delete(defaults, key)
			}
		}
	}

	return defaults
}

// envDefaults are the shared environment variables of the test suite. They override the config file.
func envDefaults(envCfg EnvConfig) map[string]any {
	defaults := make(map[string]any)

	if envCfg.TestEnv != "" {
		defaults["env"] = envCfg.TestEnv
	}

	if envCfg.EnableAllure != nil {
		defaults["allure"] = *envCfg.EnableAllure
	}

	if envCfg.MaxRetries != nil {
		defaults["max-retries"] = *envCfg.MaxRetries
	}

	if envCfg.RetryAllFailures != nil {
		defaults["retry-all-failures"] = *envCfg.RetryAllFailures
	}

	return defaults
}

// InitConfig reads our configuration from the system.
// The config file has the lowest precedence, followed by the shared environment variables (e.g. `TEST_ENV`) and
// `CONDUCTOR_*` environment variables. Flags take precedence over all other options.
func InitConfig(cmd *cobra.Command) (cfg Config, err error) {
	configFilePath := ""
	if flag := cmd.Flags().Lookup("config-file"); flag != nil {
		configFilePath = flag.Value.String()
	}

	if configFilePath == "" {
		if configFilePath, err = locateConfigFile(); err != nil {
			return cfg, errors.WithStack(err)
		}
	}

	if configFilePath != "" {
		if cfg.ConfigFile, err = readConfigFile(configFilePath); err != nil {
			return cfg, errors.WithStack(err)
		}
	}

	for name, value := range cfg.Flags {
		if cmd.Flags().Lookup(name) == nil {
			continue
		}

		if err := cmd.Flags().Set(name, fmt.Sprintf("%v", value)); err != nil {
			return cfg, errors.Wrap(err, fmt.Sprintf("unable to set flag %q", name))
		}
	}

	if err = env.Parse(&cfg.Env); err != nil {
		return cfg, errors.Wrap(err, "unable to parse environment variables")
	}

	values := viper.New()
	values.SetEnvPrefix(envPrefix)
	values.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	values.AutomaticEnv()

	if err := values.BindPFlags(cmd.Flags()); err != nil {
		return cfg, errors.Wrap(err, "unable to bind flags")
	}

	for _, defaults := range []map[string]any{fileDefaults(cfg.RunDefaults), envDefaults(cfg.Env)} {
		for key, value := range defaults {
			values.SetDefault(key, value)
		}
	}

	cfg.Output.Debug = cfg.Output.Debug || cfg.Env.Debug || values.GetBool("debug")
	cfg.Output.Verbose = cfg.Output.Verbose || values.GetBool("verbose")
	if logFile := values.GetString("log-file"); logFile != "" {
		cfg.Output.LogFile = logFile
	} else if cfg.Env.SharedLogFile != "" {
		cfg.Output.LogFile = cfg.Env.SharedLogFile
	}

	if cfg.Run, err = bindRunConfig(values); err != nil {
		return cfg, errors.WithStack(err)
	}
	cfg.Run.Verbose = cfg.Output.Verbose

	cfg.Report = cli.ReportConfig{
		ReportsDir:    cfg.Run.ReportsDir,
		ResultFiles:   values.GetStringSlice("results"),
		TrendAnalysis: cfg.Run.TrendAnalysis,
		SaveHistory:   values.GetBool("save-history"),
	}

	cfg.Flakiness = cli.FlakinessConfig{
		ReportsDir: cfg.Run.ReportsDir,
		Threshold:  cfg.Run.FlakinessThreshold,
	}

	if err = setConfigContext(cmd, cfg); err != nil {
		return cfg, errors.WithStack(err)
	}

	return cfg, nil
}

func bindRunConfig(values *viper.Viper) (cli.RunConfig, error) {
	runCfg := cli.RunConfig{
		TestType:           values.GetString("test-type"),
		Tags:               values.GetString("tags"),
		Parallel:           values.GetInt("parallel"),
		GroupBy:            values.GetString("group-by"),
		Browser:            values.GetString("browser"),
		Environment:        values.GetString("env"),
		Retry:              values.GetBool("retry"),
		MaxRetries:         values.GetInt("max-retries"),
		RetryAllFailures:   values.GetBool("retry-all-failures"),
		AnalyzeFlakiness:   values.GetBool("analyze-flakiness"),
		FlakinessThreshold: values.GetFloat64("flakiness-threshold"),
		TrendAnalysis:      values.GetBool("trend-analysis"),
		Allure:             values.GetBool("allure"),
		ReportsDir:         values.GetString("reports-dir"),
		FeaturesDir:        values.GetString("features-dir"),
		Executor:           values.GetString("executor"),
		GroupsFile:         values.GetString("groups-file"),
		NoCapture:          values.GetBool("no-capture"),
	}

	if values.IsSet("artifact-dir") {
		runCfg.ArtifactDirs = values.GetStringSlice("artifact-dir")
	}

	// Without an explicit value, the test suite decides whether the browser is headless
	if values.IsSet("headless") {
		headless := values.GetBool("headless")
		runCfg.Headless = &headless
	}

	if timeout := values.GetString("group-timeout"); timeout != "" {
		duration, err := time.ParseDuration(timeout)
		if err != nil {
			return runCfg, errors.NewConfigurationError(
				fmt.Sprintf("Invalid group timeout %q", timeout),
				err.Error(),
				"Use a duration like 30m or 1h.",
			)
		}

		runCfg.GroupTimeout = duration
	}

	return runCfg, nil
}
