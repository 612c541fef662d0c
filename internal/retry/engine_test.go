package retry_test

import (
	"context"
	"time"

	"github.com/benbjohnson/clock"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/rwx-research/conductor/internal/errors"
	"github.com/rwx-research/conductor/internal/retry"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("Engine", func() {
	var (
		ctx    context.Context
		engine *retry.Engine
		logs   *observer.ObservedLogs
		policy retry.Policy
	)

	BeforeEach(func() {
		var core zapcore.Core
		core, logs = observer.New(zapcore.DebugLevel)

		ctx = context.Background()
		engine = retry.NewEngine(zap.New(core).Sugar(), clock.New())
		policy = retry.Policy{
			MaxAttempts:    3,
			BaseDelay:      time.Millisecond,
			RetryableKinds: retry.Kinds(retry.KindTransient),
		}
	})

	It("returns immediately after a success", func() {
		calls := 0
		value, outcome, err := retry.Do(ctx, engine, "api", policy, func(_ context.Context, attempt int) (int, error) {
			calls++
			return attempt * 10, nil
		})

		Expect(err).NotTo(HaveOccurred())
		Expect(value).To(Equal(10))
		Expect(calls).To(Equal(1))
		Expect(outcome.Succeeded).To(BeTrue())
		Expect(outcome.AttemptsUsed).To(Equal(1))
		Expect(outcome.Attempts).To(HaveLen(1))
		Expect(outcome.Attempts[0].Number).To(Equal(1))
	})

	It("retries transient failures until one succeeds", func() {
		value, outcome, err := retry.Do(ctx, engine, "api", policy, func(_ context.Context, attempt int) (string, error) {
			if attempt < 3 {
				return "", retry.NewError(retry.KindTransient, errors.NewSystemError("connection refused"))
			}
			return "ok", nil
		})

		Expect(err).NotTo(HaveOccurred())
		Expect(value).To(Equal("ok"))
		Expect(outcome.AttemptsUsed).To(Equal(3))
		Expect(outcome.Attempts[0].Succeeded).To(BeFalse())
		Expect(outcome.Attempts[0].Error).To(Equal("connection refused"))
		Expect(outcome.Attempts[2].Succeeded).To(BeTrue())
	})

	It("makes exactly MaxAttempts attempts and returns the last error", func() {
		var last error
		calls := 0

		_, outcome, err := retry.Do(ctx, engine, "api", policy, func(_ context.Context, attempt int) (int, error) {
			calls++
			last = retry.NewError(retry.KindTransient, errors.NewSystemError("attempt %d failed", attempt))
			return 0, last
		})

		Expect(err).To(HaveOccurred())
		Expect(calls).To(Equal(3))
		Expect(outcome.Succeeded).To(BeFalse())
		Expect(outcome.AttemptsUsed).To(Equal(3))
		Expect(errors.Is(err, last)).To(BeTrue())
		Expect(err.Error()).To(ContainSubstring("attempt 3 failed"))
	})

	It("stops at the first non-retryable failure", func() {
		calls := 0
		_, outcome, err := retry.Do(ctx, engine, "api", policy, func(_ context.Context, _ int) (int, error) {
			calls++
			return 0, retry.NewError(retry.KindAssertion, errors.NewInputError("expected 200 but got 404"))
		})

		Expect(err).To(HaveOccurred())
		Expect(calls).To(Equal(1))
		Expect(outcome.AttemptsUsed).To(Equal(1))
		Expect(retry.KindOf(err)).To(Equal(retry.KindAssertion))
	})

	It("treats errors without a kind as unknown", func() {
		calls := 0
		_, _, err := retry.Do(ctx, engine, "api", policy, func(_ context.Context, _ int) (int, error) {
			calls++
			return 0, errors.NewSystemError("boom")
		})

		Expect(err).To(HaveOccurred())
		Expect(calls).To(Equal(1))
	})

	It("retries everything with RetryAll", func() {
		policy.RetryAll = true
		calls := 0

		_, _, err := retry.Do(ctx, engine, "api", policy, func(_ context.Context, _ int) (int, error) {
			calls++
			return 0, retry.NewError(retry.KindAssertion, errors.NewInputError("expected 200 but got 404"))
		})

		Expect(err).To(HaveOccurred())
		Expect(calls).To(Equal(3))
		Expect(logs.FilterMessageSnippet("Assertion failures will be retried").Len()).To(Equal(1))
	})

	It("rejects invalid policies without calling the operation", func() {
		called := false
		_, _, err := retry.Do(ctx, engine, "api", retry.Policy{}, func(_ context.Context, _ int) (int, error) {
			called = true
			return 0, nil
		})

		Expect(err).To(HaveOccurred())
		Expect(called).To(BeFalse())
	})

	It("logs every attempt", func() {
		_, _, _ = retry.Do(ctx, engine, "api", policy, func(_ context.Context, attempt int) (int, error) {
			if attempt == 1 {
				return 0, retry.NewError(retry.KindTransient, errors.NewSystemError("bad gateway"))
			}
			return 1, nil
		})

		Expect(logs.FilterMessageSnippet("attempt 1/3 failed").Len()).To(Equal(1))
		Expect(logs.FilterMessageSnippet("attempt 2/3 succeeded").Len()).To(Equal(1))
	})

	It("stops waiting once the context is cancelled", func() {
		mock := clock.NewMock()
		engine = retry.NewEngine(zap.NewNop().Sugar(), mock)
		policy.BaseDelay = time.Hour

		cancelCtx, cancel := context.WithCancel(ctx)
		done := make(chan error, 1)
		calls := 0

		go func() {
			_, _, err := retry.Do(cancelCtx, engine, "api", policy, func(_ context.Context, _ int) (int, error) {
				calls++
				return 0, retry.NewError(retry.KindTransient, errors.NewSystemError("connection refused"))
			})
			done <- err
		}()

		cancel()

		var err error
		Eventually(done).Should(Receive(&err))
		Expect(err).To(HaveOccurred())
		Expect(calls).To(Equal(1))
	})

	Describe("statistics", func() {
		It("tracks executions per operation", func() {
			flaky := func(_ context.Context, attempt int) (int, error) {
				if attempt == 1 {
					return 0, retry.NewError(retry.KindTransient, errors.NewSystemError("gateway timeout"))
				}
				return 1, nil
			}
			broken := func(_ context.Context, _ int) (int, error) {
				return 0, retry.NewError(retry.KindAssertion, errors.NewInputError("assert failed"))
			}

			_, _, _ = retry.Do(ctx, engine, "flaky", policy, flaky)
			_, _, _ = retry.Do(ctx, engine, "flaky", policy, flaky)
			_, _, _ = retry.Do(ctx, engine, "broken", policy, broken)

			stats, ok := engine.StatsFor("flaky")
			Expect(ok).To(BeTrue())
			Expect(stats).To(Equal(retry.Stats{
				TotalExecutions:      2,
				SuccessfulExecutions: 2,
				FailedExecutions:     0,
				TotalAttempts:        4,
				AvgAttemptsToSuccess: 2,
			}))

			stats, _ = engine.StatsFor("broken")
			Expect(stats.FailedExecutions).To(Equal(1))
			Expect(stats.AvgAttemptsToSuccess).To(Equal(0.0))

			Expect(engine.OperationNames()).To(Equal([]string{"broken", "flaky"}))
			Expect(engine.Stats()).To(HaveLen(2))
		})

		It("can be reset", func() {
			_, _, _ = retry.Do(ctx, engine, "api", policy, func(_ context.Context, _ int) (int, error) { return 1, nil })
			engine.ResetStats()

			_, ok := engine.StatsFor("api")
			Expect(ok).To(BeFalse())
		})
	})
})
