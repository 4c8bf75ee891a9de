package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fastConfig(maxRetries int) Config {
	return Config{
		Name:       "test",
		MaxRetries: maxRetries,
		BaseDelay:  5 * time.Millisecond,
		MaxDelay:   20 * time.Millisecond,
		Timeout:    time.Second,
	}
}

func TestWithRetrySuccess(t *testing.T) {
	calls := 0
	result, err := WithRetry(context.Background(), fastConfig(3), func(ctx context.Context) (string, error) {
		calls++
		return "ok", nil
	})
	require.NoError(t, err)
	assert.Equal(t, "ok", result)
	assert.Equal(t, 1, calls)
}

func TestWithRetrySuccessAfterRetries(t *testing.T) {
	calls := 0
	result, err := WithRetry(context.Background(), fastConfig(3), func(ctx context.Context) (int, error) {
		calls++
		if calls < 3 {
			return 0, errors.New("temporary failure")
		}
		return 42, nil
	})
	require.NoError(t, err)
	assert.Equal(t, 42, result)
	assert.Equal(t, 3, calls)
}

func TestWithRetryFailureAfterMaxRetries(t *testing.T) {
	calls := 0
	sentinel := errors.New("persistent failure")
	_, err := WithRetry(context.Background(), fastConfig(2), func(ctx context.Context) (string, error) {
		calls++
		return "", sentinel
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, sentinel)
	assert.Equal(t, 3, calls)
}

func TestWithRetryStopsOnPermanentError(t *testing.T) {
	permanent := errors.New("bad credentials")
	cfg := fastConfig(5)
	cfg.Retryable = func(err error) bool { return !errors.Is(err, permanent) }

	calls := 0
	_, err := WithRetry(context.Background(), cfg, func(ctx context.Context) (struct{}, error) {
		calls++
		return struct{}{}, permanent
	})
	require.ErrorIs(t, err, permanent)
	assert.Equal(t, 1, calls)
}

func TestWithRetryContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	_, err := WithRetry(ctx, fastConfig(5), func(ctx context.Context) (string, error) {
		calls++
		if calls == 2 {
			cancel()
		}
		return "", errors.New("failure")
	})
	assert.ErrorIs(t, err, context.Canceled)
	assert.LessOrEqual(t, calls, 3)
}

func TestWithRetryAttemptTimeout(t *testing.T) {
	cfg := fastConfig(0)
	cfg.Timeout = 10 * time.Millisecond

	_, err := WithRetry(context.Background(), cfg, func(ctx context.Context) (string, error) {
		<-ctx.Done()
		return "", ctx.Err()
	})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestCalculateBackoffDelay(t *testing.T) {
	base := 10 * time.Millisecond
	maxDelay := 100 * time.Millisecond

	tests := []struct {
		attempt int
		lo, hi  time.Duration
	}{
		{0, 5 * time.Millisecond, 15 * time.Millisecond},
		{1, 10 * time.Millisecond, 30 * time.Millisecond},
		{2, 20 * time.Millisecond, 60 * time.Millisecond},
		{4, 50 * time.Millisecond, 100 * time.Millisecond},
		{35, 50 * time.Millisecond, 100 * time.Millisecond},
		{100, 50 * time.Millisecond, 100 * time.Millisecond},
	}

	for _, tt := range tests {
		for i := 0; i < 10; i++ {
			got := calculateBackoffDelay(tt.attempt, base, maxDelay)
			if got < tt.lo || got > tt.hi {
				t.Errorf("calculateBackoffDelay(%d) = %v, want between %v and %v", tt.attempt, got, tt.lo, tt.hi)
			}
		}
	}
}
