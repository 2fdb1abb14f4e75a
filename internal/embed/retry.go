package embed

import (
	"context"
	"math/rand"
	"time"
)

// RetryConfig controls retry behavior for transient provider failures.
type RetryConfig struct {
	MaxRetries   int
	InitialDelay time.Duration
	MaxDelay     time.Duration
	Multiplier   float64
	Jitter       float64
}

// DefaultRetryConfig returns sensible retry defaults for a local provider.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxRetries:   DefaultMaxRetries,
		InitialDelay: 500 * time.Millisecond,
		MaxDelay:     10 * time.Second,
		Multiplier:   2.0,
		Jitter:       0.2,
	}
}

// withRetry executes fn with exponential backoff. The predicate decides
// whether an error is worth retrying; non-retryable errors return
// immediately.
func withRetry(ctx context.Context, cfg RetryConfig, retryable func(error) bool, fn func() error) error {
	var lastErr error
	delay := cfg.InitialDelay

	for attempt := 0; attempt <= cfg.MaxRetries; attempt++ {
		if attempt > 0 {
			jittered := delay
			if cfg.Jitter > 0 {
				span := float64(delay) * cfg.Jitter
				jittered = delay + time.Duration(rand.Float64()*2*span-span)
			}

			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(jittered):
			}

			delay = time.Duration(float64(delay) * cfg.Multiplier)
			if delay > cfg.MaxDelay {
				delay = cfg.MaxDelay
			}
		}

		lastErr = fn()
		if lastErr == nil {
			return nil
		}
		if !retryable(lastErr) {
			return lastErr
		}
	}

	return lastErr
}
