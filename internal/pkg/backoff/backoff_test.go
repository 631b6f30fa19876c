// Copyright 2026 The flexfolio Authors
//
// All rights reserved.

package backoff

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

var testPolicy = Policy{
	MaxAttempts:  5,
	InitialDelay: time.Millisecond,
	MaxDelay:     2 * time.Millisecond,
}

func TestRetrySucceedsAfterTransientErrors(t *testing.T) {
	t.Parallel()
	calls := 0
	result, err := Retry(context.Background(), testPolicy,
		func(ctx context.Context, attempt int) (string, bool, error) {
			calls++
			if calls < 3 {
				return "", true, errors.New("transient")
			}
			return "done", false, nil
		},
	)
	require.NoError(t, err)
	require.Equal(t, "done", result)
	require.Equal(t, 3, calls)
}

func TestRetryStopsOnPermanentError(t *testing.T) {
	t.Parallel()
	permanent := errors.New("permanent")
	calls := 0
	_, err := Retry(context.Background(), testPolicy,
		func(ctx context.Context, attempt int) (int, bool, error) {
			calls++
			return 0, false, permanent
		},
	)
	require.ErrorIs(t, err, permanent)
	require.Equal(t, 1, calls)
}

func TestRetryExhaustsAttempts(t *testing.T) {
	t.Parallel()
	transient := errors.New("transient")
	policy := testPolicy
	policy.MaxAttempts = 3
	calls := 0
	_, err := Retry(context.Background(), policy,
		func(ctx context.Context, attempt int) (int, bool, error) {
			calls++
			return 0, true, transient
		},
	)
	require.ErrorContains(t, err, "failed after 3 attempts")
	// The last underlying error stays reachable through the wrap.
	require.ErrorIs(t, err, transient)
	require.Equal(t, 3, calls)
}

func TestRetryHonorsContextCancellation(t *testing.T) {
	t.Parallel()
	policy := Policy{
		MaxAttempts:  5,
		InitialDelay: time.Hour,
		MaxDelay:     time.Hour,
	}
	ctx, cancel := context.WithCancel(context.Background())
	_, err := Retry(ctx, policy,
		func(ctx context.Context, attempt int) (int, bool, error) {
			cancel()
			return 0, true, errors.New("transient")
		},
	)
	require.ErrorIs(t, err, context.Canceled)
}
