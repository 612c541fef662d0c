package retry

import (
	"time"

	"github.com/rwx-research/conductor/internal/errors"
)

// ErrorKind categorises why an attempt failed. The policy decides per kind whether another attempt is made.
type ErrorKind string

const (
	KindUnknown   ErrorKind = "unknown"
	KindTransient ErrorKind = "transient"
	KindAssertion ErrorKind = "assertion"
	KindTimeout   ErrorKind = "timeout"
	KindLaunch    ErrorKind = "launch"
)

// Policy is the configuration of a single retry invocation. It is a value and should not be mutated once in use.
type Policy struct {
	MaxAttempts        int
	BaseDelay          time.Duration
	ExponentialBackoff bool
	RetryableKinds     map[ErrorKind]struct{}

	// RetryAll retries every failure regardless of its kind. This includes deterministic assertion failures, which
	// hides flaky tests behind retries. Only ever enable this explicitly.
	RetryAll bool
}

// DefaultPolicy retries transient failures and timeouts up to 3 attempts with exponential backoff starting at 1s.
func DefaultPolicy() Policy {
	return Policy{
		MaxAttempts:        3,
		BaseDelay:          time.Second,
		ExponentialBackoff: true,
		RetryableKinds:     Kinds(KindTransient, KindTimeout),
	}
}

// Kinds is a small helper to build a set of error kinds
func Kinds(kinds ...ErrorKind) map[ErrorKind]struct{} {
	set := make(map[ErrorKind]struct{}, len(kinds))
	for _, kind := range kinds {
		set[kind] = struct{}{}
	}
	return set
}

// Validate checks the policy for consistency
func (p Policy) Validate() error {
	if p.MaxAttempts < 1 {
		return errors.NewConfigurationError(
			"Invalid retry policy",
			"The maximum number of attempts needs to be at least 1.",
			"",
		)
	}

	if p.BaseDelay < 0 {
		return errors.NewConfigurationError(
			"Invalid retry policy",
			"The delay between attempts can't be negative.",
			"",
		)
	}

	return nil
}

// Retryable reports whether a failure of the given kind should be retried
func (p Policy) Retryable(kind ErrorKind) bool {
	if p.RetryAll {
		return true
	}

	_, ok := p.RetryableKinds[kind]
	return ok
}

// Delay is the time to wait after the failed attempt number `attempt` (starting at 1) before making the next one.
func (p Policy) Delay(attempt int) time.Duration {
	if !p.ExponentialBackoff || attempt < 1 {
		return p.BaseDelay
	}

	return p.BaseDelay * time.Duration(1<<(attempt-1))
}
