package retry

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fastConfig(maxRetries int) Config {
	return Config{
		MaxRetries:     maxRetries,
		InitialBackoff: 5 * time.Millisecond,
		MaxBackoff:     20 * time.Millisecond,
		Multiplier:     2.0,
	}
}

func TestWithExponentialBackoff_SuccessFirstAttempt(t *testing.T) {
	attempts := 0
	err := WithExponentialBackoff(context.Background(), fastConfig(3), func(ctx context.Context) error {
		attempts++
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 1, attempts)
}

func TestWithExponentialBackoff_SuccessAfterRetries(t *testing.T) {
	attempts := 0
	var waits []time.Duration
	cfg := fastConfig(5)
	cfg.OnRetry = func(attempt int, err error, wait time.Duration) {
		waits = append(waits, wait)
	}

	err := WithExponentialBackoff(context.Background(), cfg, func(ctx context.Context) error {
		attempts++
		if attempts < 3 {
			return errors.New("temporary failure")
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 3, attempts)
	assert.Equal(t, []time.Duration{5 * time.Millisecond, 10 * time.Millisecond}, waits)
}

func TestWithExponentialBackoff_ExhaustsRetries(t *testing.T) {
	attempts := 0
	expectedErr := errors.New("permanent failure")

	err := WithExponentialBackoff(context.Background(), fastConfig(3), func(ctx context.Context) error {
		attempts++
		return expectedErr
	})
	require.Error(t, err)
	assert.Equal(t, 4, attempts)
	assert.ErrorIs(t, err, expectedErr)
}

func TestWithExponentialBackoff_ShouldRetryStops(t *testing.T) {
	fatal := errors.New("fatal")
	cfg := fastConfig(10)
	cfg.ShouldRetry = func(err error) bool { return !errors.Is(err, fatal) }

	attempts := 0
	err := WithExponentialBackoff(context.Background(), cfg, func(ctx context.Context) error {
		attempts++
		if attempts == 2 {
			return fatal
		}
		return errors.New("transient")
	})
	assert.Same(t, fatal, err)
	assert.Equal(t, 2, attempts)
}

func TestWithExponentialBackoff_ContextCancellation(t *testing.T) {
	cfg := Config{
		MaxRetries:     10,
		InitialBackoff: 50 * time.Millisecond,
		MaxBackoff:     time.Second,
		Multiplier:     2.0,
	}

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	attempts := 0
	err := WithExponentialBackoff(ctx, cfg, func(ctx context.Context) error {
		attempts++
		return errors.New("always fails")
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.NotZero(t, attempts)
	assert.LessOrEqual(t, attempts, 5)
}

func TestWithExponentialBackoff_UnlimitedRetries(t *testing.T) {
	cfg := Config{
		MaxRetries:     -1,
		InitialBackoff: time.Millisecond,
		MaxBackoff:     2 * time.Millisecond,
		Multiplier:     2.0,
	}

	attempts := 0
	err := WithExponentialBackoff(context.Background(), cfg, func(ctx context.Context) error {
		attempts++
		if attempts == 10 {
			return nil
		}
		return errors.New("keep retrying")
	})
	require.NoError(t, err)
	assert.Equal(t, 10, attempts)
}

func TestCalculateBackoff_ExponentialGrowth(t *testing.T) {
	cfg := Config{
		InitialBackoff: time.Second,
		MaxBackoff:     30 * time.Second,
		Multiplier:     2.0,
	}

	tests := []struct {
		retryNumber int
		want        time.Duration
	}{
		{0, 0},
		{1, time.Second},
		{2, 2 * time.Second},
		{3, 4 * time.Second},
		{5, 16 * time.Second},
		{6, 30 * time.Second}, // 32s capped
		{10, 30 * time.Second},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("retry_%d", tt.retryNumber), func(t *testing.T) {
			assert.Equal(t, tt.want, calculateBackoff(tt.retryNumber, cfg))
		})
	}
}

func TestCalculateBackoff_WithJitter(t *testing.T) {
	cfg := Config{
		InitialBackoff: time.Second,
		MaxBackoff:     10 * time.Second,
		Multiplier:     2.0,
		Jitter:         true,
	}

	base := 4 * time.Second
	seen := make(map[time.Duration]bool)
	for i := 0; i < 20; i++ {
		got := calculateBackoff(3, cfg)
		assert.GreaterOrEqual(t, got, time.Duration(float64(base)*0.75))
		assert.LessOrEqual(t, got, time.Duration(float64(base)*1.25))
		seen[got] = true
	}
	assert.GreaterOrEqual(t, len(seen), 5)
}
