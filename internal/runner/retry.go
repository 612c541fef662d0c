package runner

import (
	"context"

	"github.com/rwx-research/conductor/internal/errors"
	"github.com/rwx-research/conductor/internal/retry"
	"github.com/rwx-research/conductor/internal/scheduler"
)

// RunGroupWithRetry executes a group with the retry engine. Failed attempts are classified by their output, so only
// transient failures are retried unless the policy retries everything. The result of the last attempt is returned.
func (r *Runner) RunGroupWithRetry(
	ctx context.Context,
	engine *retry.Engine,
	policy retry.Policy,
	group scheduler.TestGroup,
) GroupResult {
	var last GroupResult

	operation := func(ctx context.Context, attempt int) (GroupResult, error) {
		result := r.RunGroup(ctx, group)
		result.Attempts = attempt
		last = result

		r.Telemetry.ObserveAttempt(group.Name, result.Success)

		if result.Success {
			return result, nil
		}

		kind := failureKind(result)
		if kind == retry.KindTransient {
			r.Log.Warn("Detected transient failure that may benefit from retry")
		}

		return result, retry.NewError(kind, errors.NewExecutionError(
			result.ReturnCode,
			"test group %q ended as %s (exit code: %d)",
			group.Name, result.State, result.ReturnCode,
		))
	}

	result, outcome, err := retry.Do(ctx, engine, group.Name, policy, operation)
	if err != nil {
		r.Log.Errorf("Test group %q failed after %d attempt(s): %s", group.Name, outcome.AttemptsUsed, err)
		last.Attempts = outcome.AttemptsUsed
		if last.Attempts == 0 {
			last = GroupResult{
				GroupName:  group.Name,
				GroupType:  string(group.Type),
				State:      StateErrored,
				Error:      err.Error(),
				ReturnCode: abnormalReturnCode,
			}
		}

		return last
	}

	return result
}

func failureKind(result GroupResult) retry.ErrorKind {
	switch result.State {
	case StateTimedOut:
		return retry.KindTimeout
	case StateErrored:
		return retry.KindLaunch
	default:
		return retry.KindForOutput(result.Stdout)
	}
}
