package runner

import (
	"github.com/rwx-research/conductor/internal/errors"
)

// State is the lifecycle state of a single group.
// pending -> running -> one of succeeded, failed, timed_out, errored
type State string

const (
	StatePending   State = "pending"
	StateRunning   State = "running"
	StateSucceeded State = "succeeded"
	StateFailed    State = "failed"
	StateTimedOut  State = "timed_out"
	StateErrored   State = "errored"
)

// IsTerminal is true for the final states
func (s State) IsTerminal() bool {
	switch s {
	case StateSucceeded, StateFailed, StateTimedOut, StateErrored:
		return true
	default:
		return false
	}
}

// Transition returns `next` if the state machine allows moving there from `s`
func (s State) Transition(next State) (State, error) {
	switch {
	case s == StatePending && next == StateRunning:
		return next, nil
	case s == StateRunning && next.IsTerminal():
		return next, nil
	default:
		return s, errors.NewInternalError("invalid group state transition from %q to %q", s, next)
	}
}
