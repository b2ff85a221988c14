package resilience

import (
	"time"
)

// FromExtractConfig converts extraction settings to a RetryConfig. The
// "exponential" strategy starts at delay, doubles per attempt and caps at
// twelve times delay; anything else is linear.
func FromExtractConfig(maxAttempts int, delay time.Duration, strategy string) RetryConfig {
	cfg := DefaultRetryConfig()
	if maxAttempts > 0 {
		cfg.MaxAttempts = maxAttempts
	}
	if delay < 0 {
		delay = 0
	}
	switch strategy {
	case "exponential":
		cfg.Backoff = ExponentialBackoff(delay, 12*delay, 2.0, 0.25)
	default:
		cfg.Backoff = LinearBackoff(delay)
	}
	return cfg
}
