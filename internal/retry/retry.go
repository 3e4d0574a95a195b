// Package retry provides the bounded retry policy used for oracle calls.
// There are no unbounded retry loops anywhere in the pipeline.
package retry

import (
	"context"
	"time"
)

// BackoffFunc returns the delay to wait before the given attempt.
// Attempts are counted from 1.
type BackoffFunc func(attempt int) time.Duration

// Linear returns a backoff that grows by step per completed attempt:
// 0, step, 2*step, ...
func Linear(step time.Duration) BackoffFunc {
	return func(attempt int) time.Duration {
		return time.Duration(attempt-1) * step
	}
}

// Policy is a bounded retry policy: at most MaxAttempts tries with Backoff
// between them.
type Policy struct {
	MaxAttempts int
	Backoff     BackoffFunc
}

// Do runs fn until it succeeds, the attempts are exhausted, or the context
// is cancelled. The last error is returned on exhaustion.
func (p Policy) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	attempts := p.MaxAttempts
	if attempts <= 0 {
		attempts = 1
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if delay := p.backoffFor(attempt); delay > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
		}

		lastErr = fn(ctx)
		if lastErr == nil {
			return nil
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
	}
	return lastErr
}

func (p Policy) backoffFor(attempt int) time.Duration {
	if attempt <= 1 || p.Backoff == nil {
		return 0
	}
	return p.Backoff(attempt)
}
