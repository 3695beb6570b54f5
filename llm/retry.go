package llm

import (
	"context"
	"log/slog"
	"math/rand/v2"
	"time"
)

// RetryConfig holds retry configuration for rate-limited operations.
type RetryConfig struct {
	// MaxRetries is the number of retries after the initial attempt.
	MaxRetries int

	// InitialDelay is the backoff before the first retry.
	InitialDelay time.Duration

	// MaxDelay caps the backoff duration.
	MaxDelay time.Duration
}

// DefaultRetryConfig returns sensible retry defaults for provider calls.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxRetries:   5,
		InitialDelay: time.Second,
		MaxDelay:     32 * time.Second,
	}
}

// WithRetry runs op, retrying with exponential backoff while the error is
// transient (rate limits). The operation runs at most MaxRetries+1 times;
// non-transient errors surface immediately, and after the budget is spent
// the last error surfaces.
func WithRetry(ctx context.Context, cfg RetryConfig, op func() error) error {
	var lastErr error
	for attempt := 0; ; attempt++ {
		lastErr = op()
		if lastErr == nil {
			return nil
		}
		if !IsTransient(lastErr) {
			return lastErr
		}
		if attempt >= cfg.MaxRetries {
			return lastErr
		}

		delay := backoffDelay(cfg, attempt)
		slog.Debug("Rate limited, retrying",
			"attempt", attempt+1,
			"max_retries", cfg.MaxRetries,
			"backoff", delay)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
	}
}

// WithRetryValue is WithRetry for operations that return a value.
func WithRetryValue[T any](ctx context.Context, cfg RetryConfig, op func() (T, error)) (T, error) {
	var result T
	err := WithRetry(ctx, cfg, func() error {
		var opErr error
		result, opErr = op()
		return opErr
	})
	return result, err
}

// backoffDelay computes min(initial × 2^attempt, max) scaled by uniform
// jitter in [0.5, 1.0]. Jitter prevents synchronized retries.
func backoffDelay(cfg RetryConfig, attempt int) time.Duration {
	delay := cfg.InitialDelay
	for i := 0; i < attempt; i++ {
		delay *= 2
		if delay >= cfg.MaxDelay {
			delay = cfg.MaxDelay
			break
		}
	}
	if delay > cfg.MaxDelay {
		delay = cfg.MaxDelay
	}

	jitter := 0.5 + rand.Float64()*0.5
	return time.Duration(float64(delay) * jitter)
}
