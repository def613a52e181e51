package solaredge

import (
	"errors"
	"fmt"
	"net/http"
	"time"
)

// APIError is a failed upstream request. StatusCode is 0 for transport failures.
type APIError struct {
	StatusCode int
	Message    string
	Err        error
}

func (e *APIError) Error() string {
	if e.StatusCode == 0 {
		return fmt.Sprintf("api request failed: %s", e.Message)
	}
	return fmt.Sprintf("api request failed with status %d: %s", e.StatusCode, e.Message)
}

func (e *APIError) Unwrap() error {
	return e.Err
}

// Retryable reports whether the request may succeed when repeated.
func (e *APIError) Retryable() bool {
	return e.StatusCode == 0 || e.StatusCode >= http.StatusInternalServerError
}

// RateLimitError is a 429 answered by the remote side. It is never retried automatically.
type RateLimitError struct {
	Message string
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("api rate limited (429): %s", e.Message)
}

// RateLimitExceededError is returned by the local limiter when the rolling daily quota is used up.
type RateLimitExceededError struct {
	Limit   int
	ResetAt time.Time
}

func (e *RateLimitExceededError) Error() string {
	return fmt.Sprintf("daily API limit (%d) reached, resets at %s", e.Limit, e.ResetAt.Format(time.RFC3339))
}

// StatusCode extracts the HTTP status of an API error, or 0.
func StatusCode(err error) int {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode
	}
	var rl *RateLimitError
	if errors.As(err, &rl) {
		return http.StatusTooManyRequests
	}
	return 0
}

// IsUnavailable reports whether err is an API error carrying one of codes,
// which strategies treat as "feature not available for this site".
func IsUnavailable(err error, codes ...int) bool {
	status := StatusCode(err)
	if status == 0 {
		return false
	}
	for _, code := range codes {
		if status == code {
			return true
		}
	}
	return false
}

// IsRetryable reports whether err belongs to a retryable class: 5xx responses and transport failures.
// Client errors, rate limits and caller cancellation are final.
func IsRetryable(err error) bool {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Retryable()
	}
	return false
}
