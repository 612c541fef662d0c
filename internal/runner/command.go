package runner

import (
	"path/filepath"
	"strconv"
	"strings"

	"github.com/mattn/go-shellwords"

	"github.com/rwx-research/conductor/internal/errors"
	"github.com/rwx-research/conductor/internal/exec"
	"github.com/rwx-research/conductor/internal/scheduler"
	"github.com/rwx-research/conductor/internal/templating"
)

// DefaultExecutor is the command that runs the BDD suite
const DefaultExecutor = "python -m behave"

const allureFormatter = "allure_behave.formatter:AllureFormatter"

// Placeholders that may appear in the executor, e.g. `docker run --name '{{ group }}' suite behave`
var executorKeywords = []string{"group", "type", "reports-dir", "features-dir", "env"}

// CommandBuilder turns a group into an invocation of the BDD runner
type CommandBuilder struct {
	// Executor is split like a shell would, e.g. "python -m behave". See executorKeywords for its placeholders.
	Executor    string
	FeaturesDir string
	ReportsDir  string
	Dir         string

	Headless    *bool
	Browser     string
	Environment string
	Allure      bool
	NoCapture   bool
}

// Build returns the command config (without output writers) and the path of the JSON result file of the group
func (b CommandBuilder) Build(group scheduler.TestGroup) (exec.CommandConfig, string, error) {
	executor := b.Executor
	if strings.TrimSpace(executor) == "" {
		executor = DefaultExecutor
	}

	executor, err := b.substitute(executor, group)
	if err != nil {
		return exec.CommandConfig{}, "", err
	}

	argv, err := shellwords.Parse(executor)
	if err != nil {
		return exec.CommandConfig{}, "", errors.NewConfigurationError(
			"Unable to parse the executor",
			err.Error(),
			"Please make sure quotes in the executor command are balanced.",
		)
	}

	if len(argv) == 0 {
		return exec.CommandConfig{}, "", errors.NewConfigurationError(
			"Empty executor",
			"The command that runs the BDD suite is empty.",
			"Please configure an executor, e.g. `python -m behave`.",
		)
	}

	args := append([]string{}, argv[1:]...)

	if len(group.Features) > 0 {
		args = append(args, group.Features...)
	} else {
		args = append(args, b.featuresDir())
	}

	for _, tag := range group.Tags {
		if tag = strings.TrimSpace(tag); tag != "" {
			args = append(args, "-t", tag)
		}
	}

	for _, scenario := range group.Scenarios {
		args = append(args, "--name", scenario)
	}

	if b.NoCapture {
		args = append(args, "--no-capture")
	}

	outputFile := filepath.Join(b.reportsDir(), group.ResultFileName())
	args = append(args, "-f", "json", "-o", outputFile)

	if b.Allure {
		args = append(args, "-f", allureFormatter, "-o", filepath.Join(b.reportsDir(), "allure-results"))
	}

	return exec.CommandConfig{
		Name: argv[0],
		Args: args,
		Dir:  b.Dir,
		Env:  b.environment(group),
	}, outputFile, nil
}

func (b CommandBuilder) substitute(executor string, group scheduler.TestGroup) (string, error) {
	template, err := templating.CompileTemplate(executor)
	if err == nil {
		err = template.Validate(executorKeywords...)
	}
	if err != nil {
		return "", errors.NewConfigurationError("Invalid executor", err.Error(), "")
	}

	return template.Substitute(map[string]string{
		"group":        templating.ShellEscape(group.NormalizedName()),
		"type":         string(group.Type),
		"reports-dir":  templating.ShellEscape(b.reportsDir()),
		"features-dir": templating.ShellEscape(b.featuresDir()),
		"env":          templating.ShellEscape(b.Environment),
	}), nil
}

func (b CommandBuilder) environment(group scheduler.TestGroup) []string {
	env := make([]string, 0)

	if group.Type == scheduler.GroupTypeAPI {
		env = append(env, "API_ONLY=true", "SKIP_BROWSER=true")
	}

	if b.Headless != nil {
		env = append(env, "HEADLESS="+strconv.FormatBool(*b.Headless))
	}

	if b.Browser != "" {
		env = append(env, "BROWSER="+b.Browser)
	}

	if b.Environment != "" {
		env = append(env, "TEST_ENV="+b.Environment)
	}

	if b.Allure {
		env = append(env, "ENABLE_ALLURE=true")
	}

	return env
}

func (b CommandBuilder) featuresDir() string {
	if b.FeaturesDir == "" {
		return "features"
	}

	return b.FeaturesDir
}

func (b CommandBuilder) reportsDir() string {
	if b.ReportsDir == "" {
		return "reports"
	}

	return b.ReportsDir
}
