package chain

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"strconv"
	"time"

	linkerr "github.com/mrz1836/linkbridge/pkg/errors"
)

// Sentinel errors for retry logic.
var (
	ErrRetryable = &linkerr.LinkError{
		Code:     "RETRYABLE_ERROR",
		Message:  "retryable error",
		ExitCode: linkerr.ExitNetwork,
	}

	ErrTimeout = &linkerr.LinkError{
		Code:     "TIMEOUT",
		Message:  "operation timed out",
		ExitCode: linkerr.ExitNetwork,
	}

	ErrRateLimited = &linkerr.LinkError{
		Code:     "RATE_LIMITED",
		Message:  "rate limited",
		ExitCode: linkerr.ExitNetwork,
	}
)

// RetryConfig configures retry behavior.
type RetryConfig struct {
	MaxAttempts int           // Maximum number of attempts (including initial)
	BaseDelay   time.Duration // Initial delay between retries
	MaxDelay    time.Duration // Maximum delay between retries
}

// DefaultRetryConfig returns the retry configuration used for broadcasts:
// 3 attempts with delays of roughly 500ms and 1s.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts: 3,
		BaseDelay:   500 * time.Millisecond,
		MaxDelay:    2 * time.Second,
	}
}

// Retry executes the operation with the default retry configuration.
func Retry[T any](ctx context.Context, operation func() (T, error)) (T, error) {
	return RetryWithConfig(ctx, DefaultRetryConfig(), operation)
}

// RetryWithConfig executes the operation with exponential backoff. Only
// errors accepted by IsRetryable are retried.
func RetryWithConfig[T any](ctx context.Context, cfg RetryConfig, operation func() (T, error)) (T, error) {
	var result T
	var err error

	for attempt := 0; attempt < cfg.MaxAttempts; attempt++ {
		result, err = operation()
		if err == nil {
			return result, nil
		}

		if !IsRetryable(err) {
			return result, err
		}

		if attempt < cfg.MaxAttempts-1 {
			if waitErr := sleep(ctx, calculateDelay(attempt, cfg.BaseDelay, cfg.MaxDelay)); waitErr != nil {
				return result, waitErr
			}
		}
	}

	return result, fmt.Errorf("operation failed after %d attempts: %w", cfg.MaxAttempts, err)
}

// calculateDelay returns 2^attempt * baseDelay capped at maxDelay, with jitter in [delay/2, delay).
func calculateDelay(attempt int, baseDelay, maxDelay time.Duration) time.Duration {
	delay := baseDelay * (1 << attempt)
	if delay > maxDelay {
		delay = maxDelay
	}
	half := delay / 2
	if half <= 0 {
		return delay
	}
	return half + rand.N(half) //nolint:gosec // G404: Jitter does not require cryptographic randomness
}

func sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// IsRetryable returns true if the error should trigger a retry.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}

	return errors.Is(err, ErrRetryable) ||
		errors.Is(err, ErrTimeout) ||
		errors.Is(err, ErrRateLimited) ||
		errors.Is(err, linkerr.ErrNetworkError) ||
		errors.Is(err, context.DeadlineExceeded)
}

// ParseRetryAfter parses the Retry-After header value.
// Returns the duration to wait, or 0 if parsing fails.
func ParseRetryAfter(header string) time.Duration {
	if header == "" {
		return 0
	}

	seconds, err := strconv.Atoi(header)
	if err != nil {
		return 0
	}

	return time.Duration(seconds) * time.Second
}

// WrapRetryable wraps an error to mark it as retryable.
func WrapRetryable(err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%w: %w", ErrRetryable, err)
}

// PollConfig configures WaitFor.
type PollConfig struct {
	Endpoint string        // Rate limiter key
	Timeout  time.Duration // Overall deadline, zero means no extra deadline
}

// WaitFor polls check until it reports done, an error, or the timeout
// elapses. Each poll waits for the rate limiter first.
func WaitFor[T any](ctx context.Context, limiter *RateLimiter, cfg PollConfig, check func(ctx context.Context) (T, bool, error)) (T, error) {
	var zero T
	if cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.Timeout)
		defer cancel()
	}

	for {
		// rate.Limiter.Wait also fails early when the next token lands past the deadline.
		if err := limiter.Wait(ctx, cfg.Endpoint); err != nil {
			return zero, linkerr.WithCause(linkerr.ErrConfirmationTimeout, err)
		}

		v, done, err := check(ctx)
		if err != nil {
			return zero, err
		}
		if done {
			return v, nil
		}
	}
}
