package resilience

import (
	"context"
	"math"
	"math/rand/v2"
	"time"

	"go.uber.org/zap"
)

// BackoffFunc returns the wait after the given failed attempt (1-based).
type BackoffFunc func(attempt int) time.Duration

// SleepFunc blocks for d or until ctx is done, whichever comes first.
type SleepFunc func(ctx context.Context, d time.Duration) error

// RetryConfig controls retry behavior.
type RetryConfig struct {
	// MaxAttempts is the total number of attempts (including the first try).
	// A value of 1 means no retries. Default: 5.
	MaxAttempts int

	// Backoff computes the wait before the next attempt. Default: LinearBackoff(5s).
	Backoff BackoffFunc

	// ShouldRetry optionally restricts which errors are retried.
	// If nil, every error is retried.
	ShouldRetry func(err error) bool

	// OnRetry is called before each retry sleep with attempt number, wait and error.
	OnRetry func(attempt int, wait time.Duration, err error)

	// Sleep performs the wait. Default: Sleep.
	Sleep SleepFunc
}

// DefaultRetryConfig returns the retry configuration used for extraction calls.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts: 5,
		Backoff:     LinearBackoff(5 * time.Second),
		Sleep:       Sleep,
	}
}

// LinearBackoff waits base*attempt after each failure.
func LinearBackoff(base time.Duration) BackoffFunc {
	return func(attempt int) time.Duration {
		return base * time.Duration(attempt)
	}
}

// ExponentialBackoff waits initial*multiplier^(attempt-1), capped at maxDelay, with
// ±jitterFraction random jitter.
func ExponentialBackoff(initial, maxDelay time.Duration, multiplier, jitterFraction float64) BackoffFunc {
	return func(attempt int) time.Duration {
		delay := float64(initial) * math.Pow(multiplier, float64(attempt-1))
		if delay > float64(maxDelay) {
			delay = float64(maxDelay)
		}

		// Apply jitter: ±JitterFraction of delay.
		if jitterFraction > 0 {
			jitterRange := delay * jitterFraction
			jitter := (rand.Float64()*2 - 1) * jitterRange // [-jitterRange, +jitterRange]
			delay += jitter
		}

		if delay < 0 {
			delay = 0
		}
		return time.Duration(delay)
	}
}

// Sleep waits for d on a timer and returns ctx.Err() if the context ends first.
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Do executes fn with retry logic according to cfg. Context cancellation
// stops retries immediately.
func Do(ctx context.Context, cfg RetryConfig, fn func(ctx context.Context) error) error {
	_, err := DoVal(ctx, cfg, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, fn(ctx)
	})
	return err
}

// DoVal executes fn returning a value with retry logic. Same semantics as Do
// but preserves the return value from the successful call. No wait follows the
// final failed attempt.
func DoVal[T any](ctx context.Context, cfg RetryConfig, fn func(ctx context.Context) (T, error)) (T, error) {
	cfg = applyDefaults(cfg)

	var zero T
	var lastErr error
	for attempt := 1; attempt <= cfg.MaxAttempts; attempt++ {
		val, err := fn(ctx)
		if err == nil {
			return val, nil
		}
		lastErr = err

		// Don't retry on context cancellation.
		if ctx.Err() != nil {
			return zero, lastErr
		}

		if cfg.ShouldRetry != nil && !cfg.ShouldRetry(lastErr) {
			return zero, lastErr
		}

		if attempt == cfg.MaxAttempts {
			break
		}

		wait := cfg.Backoff(attempt)
		if cfg.OnRetry != nil {
			cfg.OnRetry(attempt, wait, lastErr)
		}

		if err := cfg.Sleep(ctx, wait); err != nil {
			return zero, lastErr
		}
	}

	return zero, lastErr
}

func applyDefaults(cfg RetryConfig) RetryConfig {
	def := DefaultRetryConfig()
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = def.MaxAttempts
	}
	if cfg.Backoff == nil {
		cfg.Backoff = def.Backoff
	}
	if cfg.Sleep == nil {
		cfg.Sleep = def.Sleep
	}
	return cfg
}

// RetryLogger returns an OnRetry callback that logs each retry attempt.
func RetryLogger(service, operation string, fields ...zap.Field) func(int, time.Duration, error) {
	return func(attempt int, wait time.Duration, err error) {
		zap.L().Warn("request failed, retrying",
			append([]zap.Field{
				zap.String("service", service),
				zap.String("operation", operation),
				zap.Int("attempt", attempt),
				zap.Duration("wait", wait),
				zap.Bool("transient", IsTransient(err)),
				zap.Error(err),
			}, fields...)...,
		)
	}
}
