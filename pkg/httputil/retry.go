package httputil

import (
	"context"
	"time"

	"github.com/matzehuels/deputy/pkg/errors"
)

// Retry executes fn up to attempts times with exponential backoff.
//
// Registry clients never retry on their own; Retry is for callers that
// decide a repeated attempt is worth it. Only network and timeout failures
// are retried. Rate limits are not: a limited registry either fails fast
// until credentials change or is already throttled by its crawl limiter.
// The delay doubles after each failed attempt. Returns the last error if all
// attempts fail, or ctx.Err() if cancelled.
func Retry(ctx context.Context, attempts int, delay time.Duration, fn func() error) error {
	attempts = max(attempts, 1)
	var lastErr error

	for i := range attempts {
		if err := fn(); err == nil {
			return nil
		} else if lastErr = err; !isRetryable(err) {
			return err
		}

		if i < attempts-1 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
				delay *= 2
			}
		}
	}
	return lastErr
}

func isRetryable(err error) bool {
	return errors.IsTransient(err) && !errors.IsRateLimited(err)
}
