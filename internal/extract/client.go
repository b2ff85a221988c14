// Package extract submits prompts to a text-generation provider with bounded
// retry, linear backoff and rate-limit spacing.
package extract

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/sells-group/listing-extract/internal/config"
	"github.com/sells-group/listing-extract/internal/resilience"
)

// MaxRetriesError reports a batch whose every extraction attempt failed.
type MaxRetriesError struct {
	BatchStart int
	Attempts   int
	Err        error
}

func (e *MaxRetriesError) Error() string {
	return fmt.Sprintf("extract: max retries exceeded for batch %d after %d attempts: %v", e.BatchStart, e.Attempts, e.Err)
}

func (e *MaxRetriesError) Unwrap() error { return e.Err }

// Options configures a Client.
type Options struct {
	// MaxRetries is the total number of attempts per batch.
	MaxRetries int
	// RateLimitDelay is the base wait: failures wait RateLimitDelay*attempt and
	// a success waits RateLimitDelay once before returning.
	RateLimitDelay time.Duration
	// Backoff is "linear" or "exponential".
	Backoff string
	// RequestsPerMinute caps the request rate when positive.
	RequestsPerMinute int
	// Sleep performs every wait. Default: resilience.Sleep.
	Sleep resilience.SleepFunc
}

// OptionsFromConfig maps extraction settings to client options.
func OptionsFromConfig(cfg config.ExtractConfig) Options {
	return Options{
		MaxRetries:        cfg.MaxRetries,
		RateLimitDelay:    cfg.RateLimitDelay(),
		Backoff:           cfg.Backoff,
		RequestsPerMinute: cfg.RequestsPerMinute,
	}
}

// Result is a successful extraction call.
type Result struct {
	Text     string
	Attempts int
}

// Client submits prompts to a Provider.
type Client struct {
	provider Provider
	retry    resilience.RetryConfig
	delay    time.Duration
	sleep    resilience.SleepFunc
	limiter  *rate.Limiter
}

// NewClient creates a Client for p.
func NewClient(p Provider, opts Options) *Client {
	if opts.Sleep == nil {
		opts.Sleep = resilience.Sleep
	}

	retry := resilience.FromExtractConfig(opts.MaxRetries, opts.RateLimitDelay, opts.Backoff)
	retry.Sleep = opts.Sleep

	c := &Client{
		provider: p,
		retry:    retry,
		delay:    opts.RateLimitDelay,
		sleep:    opts.Sleep,
	}
	if opts.RequestsPerMinute > 0 {
		c.limiter = rate.NewLimiter(rate.Every(time.Minute/time.Duration(opts.RequestsPerMinute)), 1)
	}
	return c
}

// Provider returns the underlying provider.
func (c *Client) Provider() Provider { return c.provider }

// Submit sends prompt for the batch starting at batchStart. Every failure is
// retried until the attempt budget runs out, which yields a *MaxRetriesError.
// A cancelled context returns the context's error.
func (c *Client) Submit(ctx context.Context, batchStart int, prompt string) (Result, error) {
	retry := c.retry
	retry.OnRetry = resilience.RetryLogger(c.provider.Name(), "complete", zap.Int("batch_start", batchStart))

	var attempts int
	text, err := resilience.DoVal(ctx, retry, func(ctx context.Context) (string, error) {
		attempts++
		if c.limiter != nil {
			if err := c.limiter.Wait(ctx); err != nil {
				return "", err
			}
		}
		return c.provider.Complete(ctx, prompt)
	})
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return Result{Attempts: attempts}, ctxErr
		}
		return Result{Attempts: attempts}, &MaxRetriesError{BatchStart: batchStart, Attempts: attempts, Err: err}
	}

	if err := c.sleep(ctx, c.delay); err != nil {
		return Result{Text: text, Attempts: attempts}, err
	}
	return Result{Text: text, Attempts: attempts}, nil
}
