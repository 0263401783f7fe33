package resilience

import (
	"time"
)

// FromRetryConfig converts config values to a RetryConfig. Zero or negative
// values keep the defaults.
func FromRetryConfig(maxAttempts, initialBackoffSecs int, multiplier float64) RetryConfig {
	cfg := DefaultRetryConfig()
	if maxAttempts > 0 {
		cfg.MaxAttempts = maxAttempts
	}
	if initialBackoffSecs > 0 {
		cfg.InitialBackoff = time.Duration(initialBackoffSecs) * time.Second
	}
	if multiplier > 0 {
		cfg.Multiplier = multiplier
	}
	return cfg
}
