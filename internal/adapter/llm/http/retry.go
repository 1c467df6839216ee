package http

import (
	"context"
	"errors"
	"math"
	"math/rand"
	"time"
)

// RetryConfig holds retry behavior for provider API calls.
type RetryConfig struct {
	MaxRetries     int
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
	Multiplier     float64
}

// DefaultRetryConfig returns the retry defaults used by all providers.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxRetries:     3,
		InitialBackoff: time.Second,
		MaxBackoff:     30 * time.Second,
		Multiplier:     2.0,
	}
}

// ExponentialBackoff returns the wait before the given retry attempt:
// min(initial * multiplier^attempt, max) with ±25% jitter, so
// concurrent per-file requests do not retry in lockstep.
func ExponentialBackoff(attempt int, config RetryConfig) time.Duration {
	backoff := float64(config.InitialBackoff) * math.Pow(config.Multiplier, float64(attempt))
	if backoff > float64(config.MaxBackoff) {
		backoff = float64(config.MaxBackoff)
	}

	jitterRange := 0.25 * backoff
	backoff += (rand.Float64() * 2 * jitterRange) - jitterRange

	if backoff > float64(config.MaxBackoff) {
		backoff = float64(config.MaxBackoff)
	}
	if backoff < 0 {
		backoff = 0
	}
	return time.Duration(backoff)
}

// ShouldRetry reports whether err is worth retrying. Only typed
// provider errors carry retry classification; anything else fails
// immediately.
func ShouldRetry(err error) bool {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr.IsRetryable()
	}
	return false
}

// Operation is a retryable unit of work.
type Operation func(ctx context.Context) error

// RetryWithBackoff runs operation until it succeeds, fails with a
// non-retryable error, or exhausts config.MaxRetries. Context
// cancellation is honored both before each attempt and while waiting.
func RetryWithBackoff(ctx context.Context, operation Operation, config RetryConfig) error {
	var lastErr error

	for attempt := 0; attempt <= config.MaxRetries; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		err := operation(ctx)
		if err == nil {
			return nil
		}
		lastErr = err

		if !ShouldRetry(err) || attempt >= config.MaxRetries {
			return err
		}

		select {
		case <-time.After(ExponentialBackoff(attempt, config)):
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	return lastErr
}
