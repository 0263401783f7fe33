// Package resilience provides backoff helpers for calls to rate-limited
// external services.
package resilience

import (
	"errors"
	"net/http"
	"strings"
)

// RateLimitError marks an error as a rate-limit or quota rejection.
type RateLimitError struct {
	Err        error
	StatusCode int
}

func (e *RateLimitError) Error() string {
	return e.Err.Error()
}

func (e *RateLimitError) Unwrap() error {
	return e.Err
}

// NewRateLimitError wraps err as a rate-limit rejection.
func NewRateLimitError(err error, statusCode int) *RateLimitError {
	return &RateLimitError{Err: err, StatusCode: statusCode}
}

// rateLimitPatterns are lowercase substrings that providers use in
// rate-limit and quota error messages.
var rateLimitPatterns = []string{
	"429",
	"resource exhausted",
	"quota",
	"rate limit",
	"rate_limit",
	"too many requests",
}

// IsRateLimited reports whether err (or any error in its chain) signals a
// rate-limit or quota rejection. Detection is by RateLimitError in the
// chain or by known message substrings; anything else, including network
// failures, is not a rate limit.
func IsRateLimited(err error) bool {
	if err == nil {
		return false
	}

	var rl *RateLimitError
	if errors.As(err, &rl) {
		return true
	}

	msg := strings.ToLower(err.Error())
	for _, p := range rateLimitPatterns {
		if strings.Contains(msg, p) {
			return true
		}
	}
	return false
}

// IsRateLimitStatus reports whether an HTTP status code is a rate-limit rejection.
func IsRateLimitStatus(statusCode int) bool {
	return statusCode == http.StatusTooManyRequests
}
