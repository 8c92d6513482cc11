package bigcommerce

import (
	"errors"
	"fmt"
)

var (
	ErrUnavailable = errors.New("bigcommerce api unavailable")
	ErrTimeout     = errors.New("bigcommerce request timeout")
)

// APIError is a typed error from the BigCommerce API carrying the HTTP
// status. 429 responses also carry the platform's retry hint.
type APIError struct {
	StatusCode   int
	Message      string
	RetryAfterMs int
}

func (e *APIError) Error() string {
	if e.RetryAfterMs > 0 {
		return fmt.Sprintf("bigcommerce api error (status %d, retry after %dms): %s", e.StatusCode, e.RetryAfterMs, e.Message)
	}
	return fmt.Sprintf("bigcommerce api error (status %d): %s", e.StatusCode, e.Message)
}

// IsRateLimited reports whether err is a 429 from BigCommerce.
func IsRateLimited(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == 429
}

// IsRetryable reports whether the request may be retried: rate limits,
// server errors and timeouts. 4xx client errors are not retryable.
func IsRetryable(err error) bool {
	if errors.Is(err, ErrTimeout) || errors.Is(err, ErrUnavailable) {
		return true
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode == 429 || apiErr.StatusCode >= 500
	}
	return false
}
