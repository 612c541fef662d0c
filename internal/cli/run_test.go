package cli_test

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/rwx-research/conductor/internal/cli"
	"github.com/rwx-research/conductor/internal/errors"
	"github.com/rwx-research/conductor/internal/exec"
	"github.com/rwx-research/conductor/internal/fs"
	"github.com/rwx-research/conductor/internal/mocks"
	"github.com/rwx-research/conductor/internal/reporting"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

const passingResults = `[{"keyword": "Feature", "name": "Login", "location": "features/login.feature:1", "status": "passed",
 "elements": [{"type": "scenario", "keyword": "Scenario", "name": "valid login", "location": "features/login.feature:3",
  "status": "passed", "tags": ["api"], "steps": [{"keyword": "Given", "name": "a user", "location": "features/login.feature:4",
  "result": {"status": "passed", "duration": 0.5}}]}]}]`

const failingResults = `[{"keyword": "Feature", "name": "Login", "location": "features/login.feature:1", "status": "failed",
 "elements": [{"type": "scenario", "keyword": "Scenario", "name": "bad login", "location": "features/login.feature:9",
  "status": "failed", "tags": ["api"], "steps": [{"keyword": "Then", "name": "I am rejected",
  "location": "features/login.feature:10", "result": {"status": "failed", "duration": 0.25,
  "error_message": ["Assertion Failed: expected 401", "but got 200"]}}]}]}]`

// outputFileOf returns the path behave is told to write its JSON results to
func outputFileOf(cfg exec.CommandConfig) string {
	for i, arg := range cfg.Args {
		if arg == "-o" && i+1 < len(cfg.Args) && strings.HasSuffix(cfg.Args[i+1], "_results.json") {
			return cfg.Args[i+1]
		}
	}

	return ""
}

type invocation struct {
	results  string
	stdout   string
	exitCode int
}

var _ = Describe("Run", func() {
	var (
		ctx        context.Context
		dir        string
		console    *strings.Builder
		logs       *observer.ObservedLogs
		service    cli.Service
		taskRunner *mocks.TaskRunner
		cfg        cli.RunConfig

		mu          sync.Mutex
		invocations []invocation
		commands    []exec.CommandConfig
	)

	BeforeEach(func() {
		ctx = context.Background()
		dir = GinkgoT().TempDir()
		console = new(strings.Builder)
		invocations = []invocation{{results: passingResults}}
		commands = nil

		var core zapcore.Core
		core, logs = observer.New(zapcore.DebugLevel)

		taskRunner = new(mocks.TaskRunner)
		taskRunner.MockNewCommand = func(_ context.Context, commandCfg exec.CommandConfig) (exec.Command, error) {
			mu.Lock()
			defer mu.Unlock()

			if commandCfg.Name == "allure" {
				return nil, errors.NewSystemError("allure is not installed")
			}

			attempt := invocations[0]
			if len(invocations) > 1 {
				invocations = invocations[1:]
			}
			commands = append(commands, commandCfg)

			command := new(mocks.Command)
			command.MockStart = func() error {
				if attempt.stdout != "" {
					_, _ = commandCfg.Stdout.Write([]byte(attempt.stdout))
				}

				if attempt.results == "" {
					return nil
				}

				return os.WriteFile(outputFileOf(commandCfg), []byte(attempt.results), 0o600)
			}
			command.MockWait = func() error {
				if attempt.exitCode != 0 {
					return errors.NewExecutionError(attempt.exitCode, "exit status %d", attempt.exitCode)
				}

				return nil
			}

			return command, nil
		}
		taskRunner.MockGetExitStatusFromError = func(err error) (int, error) {
			if executionErr, ok := errors.AsExecutionError(err); ok {
				return executionErr.Code, nil
			}

			return 0, err
		}

		service = cli.Service{
			Log:        zap.New(core).Sugar(),
			FileSystem: fs.Local{},
			TaskRunner: taskRunner,
			Console:    console,
			RunID:      "run-1",
		}

		cfg = cli.RunConfig{
			ReportsDir:   filepath.Join(dir, "reports"),
			FeaturesDir:  filepath.Join(dir, "features"),
			ArtifactDirs: []string{filepath.Join(dir, "screenshots")},
		}
	})

	reportFiles := func(pattern string) []string {
		matches, err := filepath.Glob(filepath.Join(cfg.ReportsDir, pattern))
		Expect(err).ToNot(HaveOccurred())
		return matches
	}

	Context("with invalid configuration", func() {
		It("fails before running anything", func() {
			cfg.Browser = "lynx"

			err := service.Run(ctx, cfg)
			Expect(err).To(HaveOccurred())

			_, ok := errors.AsConfigurationError(err)
			Expect(ok).To(BeTrue())
			Expect(commands).To(BeEmpty())
		})
	})

	Context("with a passing sequential run", func() {
		It("succeeds and writes the reports & history", func() {
			Expect(service.Run(ctx, cfg)).To(Succeed())

			Expect(commands).To(HaveLen(1))
			Expect(outputFileOf(commands[0])).To(Equal(filepath.Join(cfg.ReportsDir, "all_results.json")))

			Expect(reportFiles("test_report_*.html")).To(HaveLen(1))
			Expect(reportFiles("test_report_*.json")).To(HaveLen(1))
			Expect(reportFiles("junit_*.xml")).To(HaveLen(1))
			Expect(reportFiles("historical_results.json")).To(HaveLen(1))
			Expect(console.String()).ToNot(ContainSubstring("FAILURE ANALYSIS"))
		})

		It("warns that the Allure report could not be generated", func() {
			cfg.Allure = true

			Expect(service.Run(ctx, cfg)).To(Succeed())
			Expect(logs.FilterMessageSnippet("Could not generate the Allure report").Len()).To(Equal(1))
		})
	})

	Context("with leftovers of a previous run", func() {
		BeforeEach(func() {
			Expect(os.MkdirAll(filepath.Join(cfg.ReportsDir, "old"), 0o750)).To(Succeed())
			Expect(os.MkdirAll(filepath.Join(dir, "screenshots", "keep"), 0o750)).To(Succeed())
			for _, name := range []string{"stale_results.json", "historical_results.json", "flakiness_history.json"} {
				Expect(os.WriteFile(filepath.Join(cfg.ReportsDir, name), []byte("[]"), 0o600)).To(Succeed())
			}
			Expect(os.WriteFile(filepath.Join(dir, "screenshots", "failure.png"), []byte("png"), 0o600)).To(Succeed())
		})

		It("removes everything but the history files", func() {
			Expect(service.Run(ctx, cfg)).To(Succeed())

			Expect(filepath.Join(cfg.ReportsDir, "stale_results.json")).ToNot(BeAnExistingFile())
			Expect(filepath.Join(cfg.ReportsDir, "old")).ToNot(BeADirectory())
			Expect(filepath.Join(cfg.ReportsDir, "flakiness_history.json")).To(BeAnExistingFile())
			Expect(filepath.Join(dir, "screenshots", "failure.png")).ToNot(BeAnExistingFile())
			Expect(filepath.Join(dir, "screenshots", "keep")).To(BeADirectory())
		})
	})

	Context("with the history of a previous run", func() {
		BeforeEach(func() {
			invocations = []invocation{
				{results: passingResults},
				{
					exitCode: 1,
					stdout: "Feature: Login # features/login.feature:1\n" +
						"  Scenario: bad login # features/login.feature:9\n" +
						"    Then I am rejected # features/steps/login.py:10\n" +
						"      ASSERT FAILED: expected 401 got 200\n",
				},
			}
		})

		It("doesn't mistake the history for results", func() {
			Expect(service.Run(ctx, cfg)).To(Succeed())
			Expect(service.Run(ctx, cfg)).To(HaveOccurred())

			Expect(logs.FilterMessageSnippet("parsing the runner output instead").Len()).To(Equal(1))

			history, err := reporting.NewHistoryStore(service.Log, fs.Local{}, cfg.ReportsDir).Load()
			Expect(err).ToNot(HaveOccurred())
			Expect(history).To(HaveLen(2))
			Expect(history[1].Metrics.TotalScenarios).To(Equal(1))
			Expect(history[1].Metrics.FailedScenarios).To(Equal(1))
		})
	})

	Context("with a failing sequential run", func() {
		BeforeEach(func() {
			invocations = []invocation{{results: failingResults, exitCode: 3}}
		})

		It("returns the exit code of the runner and prints the failure analysis", func() {
			err := service.Run(ctx, cfg)
			Expect(err).To(HaveOccurred())

			executionErr, ok := errors.AsExecutionError(err)
			Expect(ok).To(BeTrue())
			Expect(executionErr.Code).To(Equal(3))

			Expect(console.String()).To(ContainSubstring("FAILURE ANALYSIS"))
			Expect(console.String()).To(ContainSubstring("Scenario: bad login"))
			Expect(console.String()).To(ContainSubstring("Assertion Failed: expected 401"))
		})

		It("falls back to the console output without result files", func() {
			invocations = []invocation{{
				exitCode: 1,
				stdout:   "Failing scenarios:\n  features/login.feature:9  bad login\n\n0 features passed, 1 failed, 0 skipped\n",
			}}

			err := service.Run(ctx, cfg)
			Expect(err).To(HaveOccurred())

			Expect(console.String()).To(ContainSubstring("bad login (failed) features/login.feature:9"))
			Expect(logs.FilterMessageSnippet("skipping report generation").Len()).To(Equal(1))
		})
	})

	Context("when a scenario failed but the runner exited successfully", func() {
		BeforeEach(func() {
			invocations = []invocation{{results: failingResults}}
		})

		It("fails the run", func() {
			err := service.Run(ctx, cfg)

			executionErr, ok := errors.AsExecutionError(err)
			Expect(ok).To(BeTrue())
			Expect(executionErr.Code).To(Equal(1))
		})
	})

	Context("with a tag-scoped test type and --parallel", func() {
		It("runs sequentially", func() {
			cfg.TestType = "smoke"
			cfg.Parallel = 4

			Expect(service.Run(ctx, cfg)).To(Succeed())

			Expect(commands).To(HaveLen(1))
			Expect(commands[0].Args).To(ContainElements("-t", "@smoke"))
			Expect(logs.FilterMessageSnippet("running smoke tests sequentially").Len()).To(Equal(1))
		})
	})

	Context("with --parallel for all tests", func() {
		It("runs the default groups and prints a summary", func() {
			cfg.Parallel = 2

			Expect(service.Run(ctx, cfg)).To(Succeed())

			Expect(commands).To(HaveLen(4))
			Expect(console.String()).To(ContainSubstring("Smoke Tests"))
			Expect(console.String()).To(ContainSubstring("Regression Tests"))
		})
	})

	Context("with --parallel and a grouping", func() {
		flagValues := func(flag string) []string {
			values := make([]string, 0)
			for _, command := range commands {
				for i, arg := range command.Args {
					if arg == flag && i+1 < len(command.Args) {
						values = append(values, command.Args[i+1])
					}
				}
			}

			return values
		}

		writeFeature := func(name, content string) string {
			path := filepath.Join(cfg.FeaturesDir, name)
			Expect(os.MkdirAll(filepath.Dir(path), 0o755)).To(Succeed())
			Expect(os.WriteFile(path, []byte(content), 0o600)).To(Succeed())
			return path
		}

		BeforeEach(func() {
			cfg.Parallel = 2
		})

		It("runs one group per tag", func() {
			cfg.GroupBy = "tags"
			cfg.Tags = "@smoke, @checkout"

			Expect(service.Run(ctx, cfg)).To(Succeed())

			Expect(commands).To(HaveLen(2))
			Expect(flagValues("-t")).To(ConsistOf("@smoke", "@checkout"))
			Expect(console.String()).To(ContainSubstring("Tests with tag @checkout"))
		})

		It("runs one group per feature file", func() {
			cfg.GroupBy = "features"
			cfg.Tags = "~@wip"
			users := writeFeature("api/users.feature", "@api\nFeature: Users\n")
			login := writeFeature("login.feature", "@ui\nFeature: Login\n")

			Expect(service.Run(ctx, cfg)).To(Succeed())

			Expect(commands).To(HaveLen(2))
			Expect(flagValues("-t")).To(Equal([]string{"~@wip", "~@wip"}))

			paths := make([]string, 0, len(commands))
			for _, command := range commands {
				paths = append(paths, command.Args...)
			}
			Expect(paths).To(ContainElements(users, login))
		})

		It("spreads the scenarios over balanced groups", func() {
			cfg.GroupBy = "balanced"
			writeFeature("users.feature", strings.Join([]string{
				"@api",
				"Feature: Users",
				"  Scenario: list users",
				"  @slow",
				"  Scenario: create a user",
			}, "\n"))
			writeFeature("login.feature", "Feature: Login\n  Scenario: login\n")

			Expect(service.Run(ctx, cfg)).To(Succeed())

			Expect(commands).To(HaveLen(2))
			Expect(flagValues("--name")).To(ConsistOf("list users", "create a user", "login"))
			Expect(flagValues("-t")).To(BeEmpty())
		})

		It("falls back to the default groups without feature files", func() {
			cfg.GroupBy = "features"

			Expect(service.Run(ctx, cfg)).To(Succeed())

			Expect(commands).To(HaveLen(4))
			Expect(logs.FilterMessageSnippet("running the default groups").Len()).To(Equal(1))
		})
	})

	Context("with a groups file", func() {
		It("runs the configured groups", func() {
			cfg.GroupsFile = filepath.Join(dir, "groups.yaml")
			Expect(os.WriteFile(cfg.GroupsFile, []byte(strings.Join([]string{
				"groups:",
				"  - name: Checkout",
				"    tags: [\"@checkout\"]",
				"    type: ui",
			}, "\n")), 0o600)).To(Succeed())

			Expect(service.Run(ctx, cfg)).To(Succeed())

			Expect(commands).To(HaveLen(1))
			Expect(outputFileOf(commands[0])).To(Equal(filepath.Join(cfg.ReportsDir, "checkout_results.json")))
		})

		It("fails if the groups file does not exist", func() {
			cfg.GroupsFile = filepath.Join(dir, "missing.yaml")

			err := service.Run(ctx, cfg)
			Expect(err).To(HaveOccurred())

			_, ok := errors.AsConfigurationError(err)
			Expect(ok).To(BeTrue())
			Expect(commands).To(BeEmpty())
		})
	})

	Context("with retries for API tests", func() {
		var mockClock *clock.Mock

		BeforeEach(func() {
			mockClock = clock.NewMock()
			service.Clock = mockClock

			cfg.TestType = "api"
			cfg.Retry = true
			cfg.MaxRetries = 2
		})

		run := func() error {
			done := make(chan error, 1)
			go func() { done <- service.Run(ctx, cfg) }()

			for {
				select {
				case err := <-done:
					return err
				case <-time.After(time.Millisecond):
					mockClock.Add(time.Second)
				}
			}
		}

		It("retries transient failures", func() {
			invocations = []invocation{
				{stdout: "requests.exceptions.ConnectionError: Connection refused\n", exitCode: 1},
				{results: passingResults},
			}

			Expect(run()).To(Succeed())
			Expect(commands).To(HaveLen(2))
		})

		It("does not retry assertion failures", func() {
			invocations = []invocation{{results: failingResults, stdout: "AssertionError: expected 401\n", exitCode: 1}}

			Expect(run()).To(HaveOccurred())
			Expect(commands).To(HaveLen(1))
		})

		It("retries everything with --retry-all-failures", func() {
			cfg.RetryAllFailures = true
			invocations = []invocation{{results: failingResults, stdout: "AssertionError: expected 401\n", exitCode: 1}}

			Expect(run()).To(HaveOccurred())
			Expect(commands).To(HaveLen(3))
		})
	})

	Context("with flakiness analysis", func() {
		It("records the run and writes a flakiness report", func() {
			cfg.AnalyzeFlakiness = true

			Expect(service.Run(ctx, cfg)).To(Succeed())

			Expect(reportFiles("flakiness_history.json")).To(HaveLen(1))
			Expect(reportFiles("flakiness_report_*.json")).To(HaveLen(1))
		})
	})

	Context("with trend analysis", func() {
		It("writes a trend report from the history", func() {
			cfg.TrendAnalysis = true

			Expect(service.Run(ctx, cfg)).To(Succeed())
			Expect(reportFiles("trend_report_*.html")).To(HaveLen(1))
		})
	})
})
