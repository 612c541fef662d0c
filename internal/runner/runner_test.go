package runner_test

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"

	"github.com/rwx-research/conductor/internal/errors"
	"github.com/rwx-research/conductor/internal/exec"
	"github.com/rwx-research/conductor/internal/mocks"
	"github.com/rwx-research/conductor/internal/retry"
	"github.com/rwx-research/conductor/internal/runner"
	"github.com/rwx-research/conductor/internal/scheduler"
	"github.com/rwx-research/conductor/internal/telemetry"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

type exitError struct{ code int }

func (e exitError) Error() string { return fmt.Sprintf("exit status %d", e.code) }

// syncBuilder is a strings.Builder that can be written to from several groups at once
type syncBuilder struct {
	mu sync.Mutex
	sb strings.Builder
}

func (b *syncBuilder) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.sb.Write(p)
}

func (b *syncBuilder) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.sb.String()
}

var _ = Describe("Runner", func() {
	var (
		ctx        context.Context
		console    *syncBuilder
		taskRunner *mocks.TaskRunner
		r          *runner.Runner

		// script maps a group name to the output & exit code of its fake process
		script map[string]struct {
			output string
			code   int
		}
		scriptMu sync.Mutex
	)

	group := func(name string) scheduler.TestGroup {
		return scheduler.TestGroup{Name: name, Tags: []string{"@" + name}, Type: scheduler.GroupTypeMixed}
	}

	setScript := func(name, output string, code int) {
		scriptMu.Lock()
		defer scriptMu.Unlock()
		script[name] = struct {
			output string
			code   int
		}{output, code}
	}

	BeforeEach(func() {
		ctx = context.Background()
		console = new(syncBuilder)
		script = make(map[string]struct {
			output string
			code   int
		})

		taskRunner = new(mocks.TaskRunner)
		taskRunner.MockNewCommand = func(_ context.Context, cfg exec.CommandConfig) (exec.Command, error) {
			// the group name is the value of the first tag without its @
			name := strings.TrimPrefix(cfg.Args[indexOf(cfg.Args, "-t")+1], "@")

			scriptMu.Lock()
			entry := script[name]
			scriptMu.Unlock()

			return &mocks.Command{
				MockStart: func() error {
					_, err := cfg.Stdout.Write([]byte(entry.output))
					return err
				},
				MockWait: func() error {
					if entry.code != 0 {
						return exitError{entry.code}
					}
					return nil
				},
			}, nil
		}
		taskRunner.MockGetExitStatusFromError = func(err error) (int, error) {
			var exitErr exitError
			if errors.As(err, &exitErr) {
				return exitErr.code, nil
			}
			return 0, errors.NewInternalError("not an exit error")
		}

		r = &runner.Runner{
			Log:        zaptest.NewLogger(GinkgoT()).Sugar(),
			TaskRunner: taskRunner,
			Console:    console,
			MaxWorkers: 2,
		}
	})

	Describe("RunGroup", func() {
		It("captures the complete output of a successful group", func() {
			setScript("smoke", "Feature: Login\n{\"keyword\": \"Feature\"}\n1 feature passed\n", 0)

			result := r.RunGroup(ctx, group("smoke"))

			Expect(result.Success).To(BeTrue())
			Expect(result.State).To(Equal(runner.StateSucceeded))
			Expect(result.ReturnCode).To(Equal(0))
			Expect(result.Stdout).To(Equal("Feature: Login\n{\"keyword\": \"Feature\"}\n1 feature passed\n"))
			Expect(result.OutputFile).To(Equal("reports/smoke_results.json"))
		})

		It("only mirrors important lines with a prefix to the console", func() {
			setScript("smoke", "Feature: Login\n{\"keyword\": \"Feature\"}\n1 feature passed\npartial line with error", 0)

			r.RunGroup(ctx, group("smoke"))

			Expect(console.String()).To(Equal("[smoke] 1 feature passed\n[smoke] partial line with error\n"))
		})

		It("mirrors everything but JSON records when verbose", func() {
			r.Verbose = true
			setScript("smoke", "Feature: Login\n[{\"keyword\": \"Feature\"}]\n", 0)

			r.RunGroup(ctx, group("smoke"))

			Expect(console.String()).To(Equal("[smoke] Feature: Login\n"))
		})

		It("fails on a non-zero exit code", func() {
			setScript("smoke", "1 scenario failed\n", 1)

			result := r.RunGroup(ctx, group("smoke"))

			Expect(result.Success).To(BeFalse())
			Expect(result.State).To(Equal(runner.StateFailed))
			Expect(result.ReturnCode).To(Equal(1))
			Expect(result.Error).To(BeEmpty())
		})

		It("errors when the process can't be started", func() {
			taskRunner.MockNewCommand = func(_ context.Context, _ exec.CommandConfig) (exec.Command, error) {
				return &mocks.Command{MockStart: func() error { return errors.NewSystemError("executable not found") }}, nil
			}

			result := r.RunGroup(ctx, group("smoke"))

			Expect(result.State).To(Equal(runner.StateErrored))
			Expect(result.Success).To(BeFalse())
			Expect(result.ReturnCode).To(Equal(-1))
			Expect(result.Error).To(ContainSubstring("executable not found"))
		})

		It("errors for invalid groups", func() {
			result := r.RunGroup(ctx, scheduler.TestGroup{Name: "broken", Type: "desktop"})

			Expect(result.State).To(Equal(runner.StateErrored))
		})

		It("times out and keeps the partial output", func() {
			r.GroupTimeout = 20 * time.Millisecond
			taskRunner.MockNewCommand = func(cmdCtx context.Context, cfg exec.CommandConfig) (exec.Command, error) {
				return &mocks.Command{
					MockStart: func() error {
						_, err := cfg.Stdout.Write([]byte("Starting scenario\n"))
						return err
					},
					MockWait: func() error {
						<-cmdCtx.Done()
						return errors.New("signal: killed")
					},
				}, nil
			}

			result := r.RunGroup(ctx, group("smoke"))

			Expect(result.State).To(Equal(runner.StateTimedOut))
			Expect(result.Success).To(BeFalse())
			Expect(result.ReturnCode).To(Equal(-1))
			Expect(result.Stdout).To(Equal("Starting scenario\n"))
			Expect(result.Error).To(ContainSubstring("timed out"))
		})

		It("records the group in telemetry", func() {
			r.Telemetry = telemetry.NewRecorder("run")
			setScript("smoke", "", 0)

			r.RunGroup(ctx, group("smoke"))

			families, err := r.Telemetry.Registry().Gather()
			Expect(err).NotTo(HaveOccurred())
			Expect(families).NotTo(BeEmpty())
		})
	})

	Describe("Run", func() {
		It("runs every group and aggregates the results", func() {
			setScript("a", "1 feature passed\n", 0)
			setScript("b", "1 feature failed\n", 2)
			setScript("c", "1 feature passed\n", 0)

			summary := r.Run(ctx, []scheduler.TestGroup{group("a"), group("b"), group("c")})

			Expect(summary.TotalGroups).To(Equal(3))
			Expect(summary.Passed).To(Equal(2))
			Expect(summary.Failed).To(Equal(1))
			Expect(summary.Success()).To(BeFalse())

			names := make([]string, 0, 3)
			for _, result := range summary.SortedByName().GroupResults {
				names = append(names, result.GroupName)
			}
			Expect(names).To(Equal([]string{"a", "b", "c"}))
		})

		It("never runs more groups at once than there are workers", func() {
			var running, peak int32

			taskRunner.MockNewCommand = func(_ context.Context, _ exec.CommandConfig) (exec.Command, error) {
				return &mocks.Command{
					MockStart: func() error {
						current := atomic.AddInt32(&running, 1)
						for {
							old := atomic.LoadInt32(&peak)
							if current <= old || atomic.CompareAndSwapInt32(&peak, old, current) {
								break
							}
						}
						return nil
					},
					MockWait: func() error {
						time.Sleep(10 * time.Millisecond)
						atomic.AddInt32(&running, -1)
						return nil
					},
				}, nil
			}

			groups := make([]scheduler.TestGroup, 0, 6)
			for i := 0; i < 6; i++ {
				groups = append(groups, group(fmt.Sprintf("g%d", i)))
			}

			summary := r.Run(ctx, groups)

			Expect(summary.Passed).To(Equal(6))
			Expect(atomic.LoadInt32(&peak)).To(BeNumerically("<=", 2))
		})
	})

	Describe("RunGroupWithRetry", func() {
		var (
			engine   *retry.Engine
			policy   retry.Policy
			attempts int32
		)

		BeforeEach(func() {
			engine = retry.NewEngine(zap.NewNop().Sugar(), nil)
			policy = retry.Policy{MaxAttempts: 3, RetryableKinds: retry.Kinds(retry.KindTransient, retry.KindTimeout)}
			attempts = 0

			taskRunner.MockNewCommand = func(_ context.Context, cfg exec.CommandConfig) (exec.Command, error) {
				attempt := atomic.AddInt32(&attempts, 1)

				return &mocks.Command{
					MockStart: func() error {
						if attempt < 3 {
							_, err := cfg.Stdout.Write([]byte("requests.exceptions.ConnectionError: Connection refused\n"))
							return err
						}
						_, err := cfg.Stdout.Write([]byte("1 feature passed\n"))
						return err
					},
					MockWait: func() error {
						if attempt < 3 {
							return exitError{1}
						}
						return nil
					},
				}, nil
			}
		})

		It("retries transient failures", func() {
			result := r.RunGroupWithRetry(ctx, engine, policy, group("api"))

			Expect(result.Success).To(BeTrue())
			Expect(result.Attempts).To(Equal(3))
			Expect(atomic.LoadInt32(&attempts)).To(Equal(int32(3)))
		})

		It("does not retry assertion failures", func() {
			taskRunner.MockNewCommand = func(_ context.Context, cfg exec.CommandConfig) (exec.Command, error) {
				atomic.AddInt32(&attempts, 1)
				return &mocks.Command{
					MockStart: func() error {
						_, err := cfg.Stdout.Write([]byte("AssertionError: expected 200 but got 404\n"))
						return err
					},
					MockWait: func() error { return exitError{1} },
				}, nil
			}

			result := r.RunGroupWithRetry(ctx, engine, policy, group("api"))

			Expect(result.Success).To(BeFalse())
			Expect(result.ReturnCode).To(Equal(1))
			Expect(result.Attempts).To(Equal(1))
			Expect(atomic.LoadInt32(&attempts)).To(Equal(int32(1)))
		})
	})
})

func indexOf(values []string, value string) int {
	for i, candidate := range values {
		if candidate == value {
			return i
		}
	}
	return -1
}
