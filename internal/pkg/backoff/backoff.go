// Copyright 2026 The flexfolio Authors
//
// All rights reserved.

// Package backoff provides exponential backoff with jitter for retrying operations.
package backoff

import (
	"context"
	"fmt"
	"math/rand/v2"
	"time"
)

// Policy bounds a retry loop.
type Policy struct {
	// MaxAttempts is the total number of calls, the first one included.
	MaxAttempts int
	// InitialDelay is the delay before the first retry.
	InitialDelay time.Duration
	// MaxDelay caps the exponentially growing delay.
	MaxDelay time.Duration
}

// Retry calls f until it succeeds, returns a non-transient error, or the
// policy's attempt budget is exhausted, waiting between attempts with
// exponential backoff and jitter.
//
// f reports, alongside its result and error, whether the error is transient:
// a transient error is retried, any other error ends the loop immediately.
// A cancelled context ends the loop during a wait.
func Retry[T any](
	ctx context.Context,
	policy Policy,
	f func(ctx context.Context, attempt int) (T, bool, error),
) (T, error) {
	var zero T
	var lastErr error
	delay := policy.InitialDelay
	for attempt := range policy.MaxAttempts {
		result, transient, err := f(ctx, attempt)
		if err == nil {
			return result, nil
		}
		if !transient {
			return zero, err
		}
		lastErr = err
		if attempt == policy.MaxAttempts-1 {
			break
		}
		select {
		case <-ctx.Done():
			return zero, ctx.Err()
		case <-time.After(jitter(delay)):
		}
		delay = min(delay*2, policy.MaxDelay)
	}
	return zero, fmt.Errorf("failed after %d attempts: %w", policy.MaxAttempts, lastErr)
}

// jitter picks a random duration between half the delay and the full delay,
// so concurrent retriers do not synchronize on the same schedule.
func jitter(delay time.Duration) time.Duration {
	half := delay / 2
	return half + time.Duration(rand.Int64N(int64(half)+1))
}
