package circuitbreaker

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/sony/gobreaker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWrapperExecuteSuccess(t *testing.T) {
	w := NewWrapper(DefaultConfig("test"))

	result, err := w.Execute(func() (interface{}, error) {
		return "ok", nil
	})

	require.NoError(t, err)
	assert.Equal(t, "ok", result)
	assert.Equal(t, gobreaker.StateClosed, w.State())
	assert.False(t, w.IsOpen())
}

func TestWrapperOpensOnFailures(t *testing.T) {
	cfg := DefaultConfig("test-open")
	cfg.ReadyToTrip = func(counts gobreaker.Counts) bool {
		return counts.ConsecutiveFailures >= 3
	}
	w := NewWrapper(cfg)

	failing := func() (interface{}, error) {
		return nil, errors.New("boom")
	}

	for i := 0; i < 3; i++ {
		_, err := w.Execute(failing)
		require.Error(t, err)
	}

	assert.True(t, w.IsOpen())

	_, err := w.Execute(failing)
	assert.ErrorIs(t, err, gobreaker.ErrOpenState)
}

func TestWrapperExecuteWithContextCancelled(t *testing.T) {
	w := NewWrapper(DefaultConfig("test-ctx"))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	called := false
	_, err := w.ExecuteWithContext(ctx, func() (interface{}, error) {
		called = true
		return nil, nil
	})

	require.ErrorIs(t, err, context.Canceled)
	assert.False(t, called)
}

func TestWrapperStateChangeCallback(t *testing.T) {
	transitions := make(chan gobreaker.State, 4)

	cfg := Config{
		Name:        "test-transitions",
		MaxRequests: 1,
		Timeout:     20 * time.Millisecond,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 1
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			transitions <- to
		},
	}
	w := NewWrapper(cfg)

	_, err := w.Execute(func() (interface{}, error) {
		return nil, errors.New("boom")
	})
	require.Error(t, err)
	assert.Equal(t, gobreaker.StateOpen, <-transitions)

	// After the timeout the breaker probes half-open and a success
	// closes it again.
	time.Sleep(30 * time.Millisecond)
	_, err = w.Execute(func() (interface{}, error) {
		return nil, nil
	})
	require.NoError(t, err)
	assert.Equal(t, gobreaker.StateHalfOpen, <-transitions)
	assert.Equal(t, gobreaker.StateClosed, <-transitions)
}
