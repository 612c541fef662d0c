// Package retry runs operations repeatedly until they succeed, fail in a non-retryable way, or run out of attempts.
package retry

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"go.uber.org/zap"

	"github.com/rwx-research/conductor/internal/errors"
)

// Operation is a single attempt. Attempts are numbered starting at 1.
// Errors should carry their ErrorKind (see `NewError`), otherwise they are treated as unknown.
type Operation[T any] func(ctx context.Context, attempt int) (T, error)

// Attempt is the record of a single attempt
type Attempt struct {
	Number    int           `json:"attempt"`
	Succeeded bool          `json:"succeeded"`
	Duration  time.Duration `json:"duration"`
	Error     string        `json:"error,omitempty"`
}

// Outcome summarises all attempts of one invocation
type Outcome struct {
	Succeeded     bool          `json:"succeeded"`
	AttemptsUsed  int           `json:"attempts_used"`
	TotalDuration time.Duration `json:"total_duration"`
	Attempts      []Attempt     `json:"attempts"`
}

// Engine executes operations according to a Policy and keeps statistics per operation name.
type Engine struct {
	log   *zap.SugaredLogger
	clock clock.Clock

	mu    sync.Mutex
	stats map[string]*Stats
}

// NewEngine returns an Engine. The clock is used for sleeping between attempts & measuring durations.
func NewEngine(log *zap.SugaredLogger, clk clock.Clock) *Engine {
	if clk == nil {
		clk = clock.New()
	}

	return &Engine{log: log, clock: clk, stats: make(map[string]*Stats)}
}

// Do runs `op` until it succeeds or the policy says to stop. On failure, the error of the last attempt is returned
// (wrapped, so `errors.Is` & `errors.As` keep working). The backoff happens on the calling goroutine.
func Do[T any](ctx context.Context, e *Engine, name string, policy Policy, op Operation[T]) (T, Outcome, error) {
	var zero T

	if err := policy.Validate(); err != nil {
		return zero, Outcome{}, errors.WithStack(err)
	}

	if policy.RetryAll {
		e.log.Warnf("Retrying %q on every failure. Assertion failures will be retried as well.", name)
	}

	outcome := Outcome{Attempts: make([]Attempt, 0, policy.MaxAttempts)}
	start := e.clock.Now()

	var lastErr error
	for attempt := 1; attempt <= policy.MaxAttempts; attempt++ {
		attemptStart := e.clock.Now()
		value, err := op(ctx, attempt)
		duration := e.clock.Since(attemptStart)

		record := Attempt{Number: attempt, Succeeded: err == nil, Duration: duration}

		if err == nil {
			outcome.Attempts = append(outcome.Attempts, record)
			outcome.Succeeded = true
			outcome.AttemptsUsed = attempt
			outcome.TotalDuration = e.clock.Since(start)

			e.log.Infof("%s: attempt %d/%d succeeded after %s", name, attempt, policy.MaxAttempts, duration)
			e.record(name, attempt, true)

			return value, outcome, nil
		}

		record.Error = err.Error()
		outcome.Attempts = append(outcome.Attempts, record)
		lastErr = err

		kind := KindOf(err)
		e.log.Warnf("%s: attempt %d/%d failed after %s (%s): %s",
			name, attempt, policy.MaxAttempts, duration, kind, err)

		if !policy.Retryable(kind) {
			e.log.Infof("%s: %s failures are not retried", name, kind)
			break
		}

		if attempt == policy.MaxAttempts {
			break
		}

		delay := policy.Delay(attempt)
		e.log.Infof("%s: retrying in %s", name, delay)

		if err := e.sleep(ctx, delay); err != nil {
			e.log.Warnf("%s: giving up, %s", name, err)
			break
		}
	}

	outcome.AttemptsUsed = len(outcome.Attempts)
	outcome.TotalDuration = e.clock.Since(start)
	e.record(name, outcome.AttemptsUsed, false)

	return zero, outcome, errors.Wrapf(lastErr, "%s failed after %d attempt(s)", name, outcome.AttemptsUsed)
}

func (e *Engine) sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return errors.WithStack(ctx.Err())
	}

	timer := e.clock.Timer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return errors.WithStack(ctx.Err())
	case <-timer.C:
		return nil
	}
}

func (e *Engine) record(name string, attempts int, succeeded bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	stats, ok := e.stats[name]
	if !ok {
		stats = new(Stats)
		e.stats[name] = stats
	}

	stats.record(attempts, succeeded)
}

// Stats returns a snapshot of the statistics of every operation
func (e *Engine) Stats() map[string]Stats {
	e.mu.Lock()
	defer e.mu.Unlock()

	snapshot := make(map[string]Stats, len(e.stats))
	for name, stats := range e.stats {
		snapshot[name] = *stats
	}

	return snapshot
}

// StatsFor returns the statistics of one operation
func (e *Engine) StatsFor(name string) (Stats, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	stats, ok := e.stats[name]
	if !ok {
		return Stats{}, false
	}

	return *stats, true
}

// OperationNames lists every operation with statistics, sorted
func (e *Engine) OperationNames() []string {
	e.mu.Lock()
	defer e.mu.Unlock()

	names := make([]string, 0, len(e.stats))
	for name := range e.stats {
		names = append(names, name)
	}
	sort.Strings(names)

	return names
}

// ResetStats drops all statistics
func (e *Engine) ResetStats() {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.stats = make(map[string]*Stats)
}
