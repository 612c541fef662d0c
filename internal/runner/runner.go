// Package runner executes test groups as sub-processes of the BDD runner, either one at a time or with a bounded
// number of workers.
package runner

import (
	"context"
	"io"
	"runtime"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/sourcegraph/conc/pool"
	"go.uber.org/zap"

	"github.com/rwx-research/conductor/internal/errors"
	"github.com/rwx-research/conductor/internal/exec"
	"github.com/rwx-research/conductor/internal/scheduler"
	"github.com/rwx-research/conductor/internal/telemetry"
)

// DefaultGroupTimeout is the wall-clock ceiling of a single group
const DefaultGroupTimeout = 30 * time.Minute

// abnormalReturnCode is reported for groups that did not exit on their own
const abnormalReturnCode = -1

// DefaultWorkers is the number of groups executed at once unless configured otherwise
func DefaultWorkers() int {
	if cpus := runtime.NumCPU(); cpus < 4 {
		return cpus
	}

	return 4
}

// Runner executes groups. Groups share nothing but the console.
type Runner struct {
	Log        *zap.SugaredLogger
	TaskRunner exec.TaskRunner
	Commands   CommandBuilder
	Clock      clock.Clock
	Telemetry  *telemetry.Recorder

	// Console receives the live output of all groups. Nil discards it.
	Console io.Writer
	// Verbose shows every output line on the console instead of only the important ones
	Verbose bool

	MaxWorkers   int
	GroupTimeout time.Duration

	consoleMu sync.Mutex
}

func (r *Runner) clock() clock.Clock {
	if r.Clock == nil {
		return clock.New()
	}

	return r.Clock
}

func (r *Runner) workers() int {
	if r.MaxWorkers > 0 {
		return r.MaxWorkers
	}

	return DefaultWorkers()
}

func (r *Runner) groupTimeout() time.Duration {
	if r.GroupTimeout > 0 {
		return r.GroupTimeout
	}

	return DefaultGroupTimeout
}

// Run executes all groups with a bounded worker pool. Results are collected in completion order.
func (r *Runner) Run(ctx context.Context, groups []scheduler.TestGroup) ParallelSummary {
	workers := r.workers()
	r.Log.Infof("Starting parallel execution of %d group(s) with %d worker(s)", len(groups), workers)

	start := r.clock().Now()

	var mu sync.Mutex
	groupResults := make([]GroupResult, 0, len(groups))

	p := pool.New().WithMaxGoroutines(workers)
	for _, group := range groups {
		group := group

		p.Go(func() {
			result := r.RunGroup(ctx, group)

			mu.Lock()
			groupResults = append(groupResults, result)
			mu.Unlock()

			verdict := "PASSED"
			if !result.Success {
				verdict = "FAILED"
			}
			r.Log.Infof("Group %q completed: %s", group.Name, verdict)
		})
	}
	p.Wait()

	summary := NewParallelSummary(groupResults, r.clock().Since(start).Seconds())
	r.Log.Infof("Parallel execution completed: %d passed, %d failed", summary.Passed, summary.Failed)

	return summary
}

// RunGroup executes a single group and waits for it. It never returns an error, failures of any kind end up in the
// returned GroupResult.
func (r *Runner) RunGroup(ctx context.Context, group scheduler.TestGroup) GroupResult {
	clk := r.clock()
	start := clk.Now()

	result := GroupResult{GroupName: group.Name, GroupType: string(group.Type), State: StatePending, Attempts: 1}
	result.State, _ = result.State.Transition(StateRunning)

	finish := func(state State, err error) GroupResult {
		result.State, _ = result.State.Transition(state)
		result.Success = state == StateSucceeded
		result.DurationSeconds = clk.Since(start).Seconds()

		if err != nil {
			result.Error = err.Error()
		}

		r.Telemetry.ObserveGroup(string(group.Type), string(result.State), clk.Since(start))
		return result
	}

	if err := group.Validate(); err != nil {
		r.Log.Errorf("Test group %q is invalid: %s", group.Name, err)
		result.ReturnCode = abnormalReturnCode
		return finish(StateErrored, err)
	}

	cfg, outputFile, err := r.Commands.Build(group)
	if err != nil {
		r.Log.Errorf("Unable to build the command of test group %q: %s", group.Name, err)
		result.ReturnCode = abnormalReturnCode
		return finish(StateErrored, err)
	}
	result.OutputFile = outputFile

	stream := newOutputStream(r.Console, &r.consoleMu, group.Name, r.Verbose)
	cfg.Stdout = stream
	cfg.Stderr = stream

	groupCtx, cancel := context.WithTimeout(ctx, r.groupTimeout())
	defer cancel()

	r.Log.Infof("Starting test group: %s", group.Name)
	r.Log.Debugf("Running command for %s: %s %v", group.Name, cfg.Name, cfg.Args)

	cmd, err := r.TaskRunner.NewCommand(groupCtx, cfg)
	if err != nil {
		r.Log.Errorf("Test group %q could not be started: %s", group.Name, err)
		result.ReturnCode = abnormalReturnCode
		return finish(StateErrored, err)
	}

	if err := cmd.Start(); err != nil {
		r.Log.Errorf("Test group %q could not be started: %s", group.Name, err)
		result.ReturnCode = abnormalReturnCode
		return finish(StateErrored, errors.NewSystemError("unable to start %q: %s", cfg.Name, err))
	}

	waitErr := cmd.Wait()
	stream.Flush()
	result.Stdout = stream.String()

	if errors.Is(groupCtx.Err(), context.DeadlineExceeded) && ctx.Err() == nil {
		r.Log.Errorf("Test group %q timed out after %s", group.Name, r.groupTimeout())
		result.ReturnCode = abnormalReturnCode
		return finish(StateTimedOut, errors.NewExecutionError(abnormalReturnCode, "Test execution timed out"))
	}

	if ctx.Err() != nil {
		result.ReturnCode = abnormalReturnCode
		return finish(StateErrored, errors.WithStack(ctx.Err()))
	}

	if waitErr == nil {
		r.Log.Infof("Group %s completed with return code 0", group.Name)
		return finish(StateSucceeded, nil)
	}

	code, err := r.TaskRunner.GetExitStatusFromError(waitErr)
	if err != nil {
		r.Log.Errorf("Test group %q failed: %s", group.Name, waitErr)
		result.ReturnCode = abnormalReturnCode
		return finish(StateErrored, waitErr)
	}

	result.ReturnCode = code
	r.Log.Infof("Group %s completed with return code %d", group.Name, code)

	if code == 0 {
		return finish(StateSucceeded, nil)
	}

	return finish(StateFailed, nil)
}
