package http_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	llmhttp "github.com/lutradev/lutra/internal/adapter/llm/http"
)

func fastRetryConfig() llmhttp.RetryConfig {
	return llmhttp.RetryConfig{
		MaxRetries:     3,
		InitialBackoff: time.Millisecond,
		MaxBackoff:     5 * time.Millisecond,
		Multiplier:     2.0,
	}
}

func TestRetryWithBackoff_SucceedsFirstTry(t *testing.T) {
	calls := 0
	err := llmhttp.RetryWithBackoff(context.Background(), func(ctx context.Context) error {
		calls++
		return nil
	}, fastRetryConfig())
	require.NoError(t, err)
	assert.Equal(t, 1, calls)
}

func TestRetryWithBackoff_RetriesRetryableError(t *testing.T) {
	calls := 0
	err := llmhttp.RetryWithBackoff(context.Background(), func(ctx context.Context) error {
		calls++
		if calls < 3 {
			return llmhttp.NewRateLimitError("openai", "slow down")
		}
		return nil
	}, fastRetryConfig())
	require.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestRetryWithBackoff_NonRetryableFailsImmediately(t *testing.T) {
	calls := 0
	err := llmhttp.RetryWithBackoff(context.Background(), func(ctx context.Context) error {
		calls++
		return llmhttp.NewAuthenticationError("openai", "bad key")
	}, fastRetryConfig())
	require.Error(t, err)
	assert.Equal(t, 1, calls)
}

func TestRetryWithBackoff_GenericErrorNotRetried(t *testing.T) {
	calls := 0
	err := llmhttp.RetryWithBackoff(context.Background(), func(ctx context.Context) error {
		calls++
		return errors.New("plain failure")
	}, fastRetryConfig())
	require.Error(t, err)
	assert.Equal(t, 1, calls)
}

func TestRetryWithBackoff_ExhaustsRetries(t *testing.T) {
	calls := 0
	err := llmhttp.RetryWithBackoff(context.Background(), func(ctx context.Context) error {
		calls++
		return llmhttp.NewServiceUnavailableError("openai", "down")
	}, fastRetryConfig())
	require.Error(t, err)
	// Initial attempt plus MaxRetries.
	assert.Equal(t, 4, calls)

	var apiErr *llmhttp.Error
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, llmhttp.ErrTypeServiceUnavailable, apiErr.Type)
}

func TestRetryWithBackoff_ContextCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	calls := 0
	err := llmhttp.RetryWithBackoff(ctx, func(ctx context.Context) error {
		calls++
		return nil
	}, fastRetryConfig())
	require.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, calls)
}

func TestRetryWithBackoff_CancelDuringBackoff(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	config := fastRetryConfig()
	config.InitialBackoff = time.Hour
	config.MaxBackoff = time.Hour

	done := make(chan error, 1)
	go func() {
		done <- llmhttp.RetryWithBackoff(ctx, func(ctx context.Context) error {
			return llmhttp.NewRateLimitError("openai", "x")
		}, config)
	}()

	cancel()
	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(5 * time.Second):
		t.Fatal("retry loop did not honor cancellation")
	}
}

func TestExponentialBackoff_Bounds(t *testing.T) {
	config := llmhttp.DefaultRetryConfig()
	for attempt := 0; attempt < 10; attempt++ {
		d := llmhttp.ExponentialBackoff(attempt, config)
		assert.GreaterOrEqual(t, d, time.Duration(0))
		assert.LessOrEqual(t, d, config.MaxBackoff)
	}
}

func TestExponentialBackoff_Grows(t *testing.T) {
	config := llmhttp.RetryConfig{
		InitialBackoff: time.Second,
		MaxBackoff:     time.Hour,
		Multiplier:     2.0,
	}
	// Jitter is ±25%, so attempt 4 (16s base) always exceeds attempt 0
	// (1s base) regardless of jitter draw.
	early := llmhttp.ExponentialBackoff(0, config)
	late := llmhttp.ExponentialBackoff(4, config)
	assert.Greater(t, late, early)
}

func TestShouldRetry(t *testing.T) {
	assert.False(t, llmhttp.ShouldRetry(nil))
	assert.False(t, llmhttp.ShouldRetry(errors.New("generic")))
	assert.True(t, llmhttp.ShouldRetry(llmhttp.NewRateLimitError("p", "m")))
	assert.False(t, llmhttp.ShouldRetry(llmhttp.NewInvalidRequestError("p", "m")))
}
