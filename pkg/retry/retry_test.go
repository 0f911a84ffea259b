package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fastPolicy(maxAttempts int) Policy {
	return Policy{
		MaxAttempts:     maxAttempts,
		InitialInterval: time.Millisecond,
		MaxInterval:     5 * time.Millisecond,
		Multiplier:      2.0,
	}
}

func TestRetrySucceedsFirstAttempt(t *testing.T) {
	attempts := 0
	err := Retry(context.Background(), fastPolicy(3), func() error {
		attempts++
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 1, attempts)
}

func TestRetrySucceedsAfterFailures(t *testing.T) {
	attempts := 0
	err := Retry(context.Background(), fastPolicy(3), func() error {
		attempts++
		if attempts < 3 {
			return errors.New("transient")
		}
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 3, attempts)
}

func TestRetryExhaustsAttempts(t *testing.T) {
	attempts := 0
	err := Retry(context.Background(), fastPolicy(3), func() error {
		attempts++
		return errors.New("persistent")
	})

	require.Error(t, err)
	assert.Equal(t, 3, attempts)
	assert.Contains(t, err.Error(), "persistent")
}

func TestRetryStopsOnFatalError(t *testing.T) {
	attempts := 0
	cause := errors.New("unrecoverable")
	err := Retry(context.Background(), fastPolicy(5), func() error {
		attempts++
		return NewFatalError(cause)
	})

	require.Error(t, err)
	assert.Equal(t, 1, attempts)
	assert.ErrorIs(t, err, cause)
}

func TestRetryStopsOnContextCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	attempts := 0
	err := Retry(ctx, fastPolicy(10), func() error {
		attempts++
		if attempts == 2 {
			cancel()
		}
		return errors.New("transient")
	})

	require.Error(t, err)
	assert.LessOrEqual(t, attempts, 3)
}

func TestRetryCallbackFiresBeforeEachWait(t *testing.T) {
	type retryEvent struct {
		attempt int
		delay   time.Duration
	}
	var events []retryEvent

	attempts := 0
	err := RetryWithCallback(context.Background(), fastPolicy(3), func() error {
		attempts++
		return errors.New("transient")
	}, func(attempt int, err error, nextDelay time.Duration) {
		events = append(events, retryEvent{attempt: attempt, delay: nextDelay})
	})

	require.Error(t, err)
	assert.Equal(t, 3, attempts)
	// The final attempt has no wait after it, so no callback.
	require.Len(t, events, 2)
	assert.Equal(t, 1, events[0].attempt)
	assert.Equal(t, 2, events[1].attempt)
	assert.Greater(t, events[1].delay, time.Duration(0))
}

func TestRetryDefaultsZeroMaxAttempts(t *testing.T) {
	attempts := 0
	err := Retry(context.Background(), Policy{
		InitialInterval: time.Millisecond,
		MaxInterval:     2 * time.Millisecond,
		Multiplier:      2.0,
	}, func() error {
		attempts++
		return errors.New("transient")
	})

	require.Error(t, err)
	assert.Equal(t, 3, attempts)
}

func TestRetryableErrorUnwraps(t *testing.T) {
	cause := errors.New("root")
	err := NewRetryableError(cause)
	assert.True(t, err.IsRetryable())
	assert.ErrorIs(t, err, cause)
	assert.Nil(t, NewRetryableError(nil))
}

func TestFatalErrorUnwraps(t *testing.T) {
	cause := errors.New("root")
	err := NewFatalError(cause)
	assert.True(t, err.IsFatal())
	assert.ErrorIs(t, err, cause)
	assert.Nil(t, NewFatalError(nil))
}

func TestCalculateBackoffDuration(t *testing.T) {
	initial := 100 * time.Millisecond
	max := time.Second

	assert.Equal(t, 100*time.Millisecond, CalculateBackoffDuration(0, initial, 2.0, max))
	assert.Equal(t, 200*time.Millisecond, CalculateBackoffDuration(1, initial, 2.0, max))
	assert.Equal(t, 400*time.Millisecond, CalculateBackoffDuration(2, initial, 2.0, max))
	// Capped at the maximum.
	assert.Equal(t, time.Second, CalculateBackoffDuration(10, initial, 2.0, max))
}
