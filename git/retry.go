package git

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"

	"github.com/example42/sai-suite-sub001/errors"
)

// newBackOff returns the 1s, 2s, 4s, ... schedule capped at maxRetries
// retries. Jitter is disabled so the schedule is predictable.
func newBackOff(ctx context.Context, initial time.Duration, maxRetries int) backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = initial
	b.Multiplier = 2
	b.RandomizationFactor = 0
	b.MaxInterval = time.Minute
	b.MaxElapsedTime = 0
	b.Reset()
	return backoff.WithContext(backoff.WithMaxRetries(b, uint64(maxRetries)), ctx)
}

// retry runs op until it succeeds, returns a non-retryable error, or the
// retry budget is spent. beforeRetry runs between attempts and is used to
// remove partial clones. The last error is returned.
func (t *Transport) retry(ctx context.Context, action string, op func() error, beforeRetry func()) error {
	attempt := 0
	wrapped := func() error {
		attempt++
		err := op()
		if err == nil {
			return nil
		}
		if !errors.IsRetryable(err) {
			return backoff.Permanent(err)
		}
		return err
	}

	notify := func(err error, next time.Duration) {
		t.logger.Warn("git operation failed, retrying",
			zap.String("action", action),
			zap.Int("attempt", attempt),
			zap.Duration("retry_in", next),
			zap.Error(err))
		if beforeRetry != nil {
			beforeRetry()
		}
	}

	return backoff.RetryNotify(wrapped, newBackOff(ctx, t.initialBackoff, t.maxRetries), notify)
}
