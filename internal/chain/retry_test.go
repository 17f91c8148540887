package chain_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrz1836/linkbridge/internal/chain"
	linkerr "github.com/mrz1836/linkbridge/pkg/errors"
)

var errNonRetryable = errors.New("non-retryable error")

func fastRetry() chain.RetryConfig {
	return chain.RetryConfig{MaxAttempts: 3, BaseDelay: time.Millisecond, MaxDelay: 4 * time.Millisecond}
}

func TestRetryWithConfig(t *testing.T) {
	t.Parallel()

	t.Run("success after retry", func(t *testing.T) {
		t.Parallel()
		attempts := 0
		result, err := chain.RetryWithConfig(context.Background(), fastRetry(), func() (string, error) {
			attempts++
			if attempts < 3 {
				return "", chain.WrapRetryable(linkerr.ErrNetworkError)
			}
			return "sig", nil
		})
		require.NoError(t, err)
		assert.Equal(t, "sig", result)
		assert.Equal(t, 3, attempts)
	})

	t.Run("non retryable stops", func(t *testing.T) {
		t.Parallel()
		attempts := 0
		_, err := chain.RetryWithConfig(context.Background(), fastRetry(), func() (string, error) {
			attempts++
			return "", errNonRetryable
		})
		require.ErrorIs(t, err, errNonRetryable)
		assert.Equal(t, 1, attempts)
	})

	t.Run("max attempts", func(t *testing.T) {
		t.Parallel()
		attempts := 0
		_, err := chain.RetryWithConfig(context.Background(), fastRetry(), func() (string, error) {
			attempts++
			return "", chain.ErrRateLimited
		})
		require.ErrorIs(t, err, chain.ErrRateLimited)
		assert.Equal(t, 3, attempts)
	})

	t.Run("canceled context", func(t *testing.T) {
		t.Parallel()
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		cfg := chain.RetryConfig{MaxAttempts: 5, BaseDelay: time.Second, MaxDelay: time.Second}
		_, err := chain.RetryWithConfig(ctx, cfg, func() (string, error) {
			return "", chain.ErrTimeout
		})
		require.ErrorIs(t, err, context.Canceled)
	})
}

func TestIsRetryable(t *testing.T) {
	t.Parallel()
	assert.True(t, chain.IsRetryable(chain.ErrRetryable))
	assert.True(t, chain.IsRetryable(chain.ErrTimeout))
	assert.True(t, chain.IsRetryable(chain.ErrRateLimited))
	assert.True(t, chain.IsRetryable(linkerr.ErrNetworkError))
	assert.True(t, chain.IsRetryable(context.DeadlineExceeded))
	assert.False(t, chain.IsRetryable(linkerr.ErrUserRejected))
	assert.False(t, chain.IsRetryable(nil))
}

func TestParseRetryAfter(t *testing.T) {
	t.Parallel()
	assert.Equal(t, 5*time.Second, chain.ParseRetryAfter("5"))
	assert.Equal(t, time.Duration(0), chain.ParseRetryAfter(""))
	assert.Equal(t, time.Duration(0), chain.ParseRetryAfter("soon"))
}

func TestWaitFor(t *testing.T) {
	t.Parallel()

	t.Run("returns once done", func(t *testing.T) {
		t.Parallel()
		polls := 0
		got, err := chain.WaitFor(context.Background(), chain.NewRateLimiter(1000, 1), chain.PollConfig{Endpoint: "receipt"},
			func(context.Context) (string, bool, error) {
				polls++
				return "0xabc", polls == 3, nil
			})
		require.NoError(t, err)
		assert.Equal(t, "0xabc", got)
		assert.Equal(t, 3, polls)
	})

	t.Run("times out", func(t *testing.T) {
		t.Parallel()
		_, err := chain.WaitFor(context.Background(), chain.NewRateLimiter(100, 1),
			chain.PollConfig{Endpoint: "receipt", Timeout: 30 * time.Millisecond},
			func(context.Context) (string, bool, error) { return "", false, nil })
		require.ErrorIs(t, err, linkerr.ErrConfirmationTimeout)
	})

	t.Run("check error propagates", func(t *testing.T) {
		t.Parallel()
		_, err := chain.WaitFor(context.Background(), chain.NewRateLimiter(1000, 1), chain.PollConfig{Endpoint: "x"},
			func(context.Context) (string, bool, error) { return "", false, errNonRetryable })
		require.ErrorIs(t, err, errNonRetryable)
	})
}

func TestRateLimiter_SeparateEndpoints(t *testing.T) {
	t.Parallel()
	rl := chain.NewRateLimiter(10, 2)

	assert.True(t, rl.Allow("endpoint1"))
	assert.True(t, rl.Allow("endpoint1"))
	assert.False(t, rl.Allow("endpoint1"))

	assert.True(t, rl.Allow("endpoint2"))
}
