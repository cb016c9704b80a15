package fastlane

import (
	"fmt"
	"net/http"

	"github.com/fastlane/backend/internal/domain"
)

// ErrorType represents the category of a failed page fetch
type ErrorType string

const (
	// ErrorTypeNetwork indicates a network-level error (connection refused, DNS, etc.)
	ErrorTypeNetwork ErrorType = "network"
	// ErrorTypeTimeout indicates the request did not finish within the configured timeout
	ErrorTypeTimeout ErrorType = "timeout"
	// ErrorTypeRateLimit indicates the site rejected us with HTTP 429
	ErrorTypeRateLimit ErrorType = "rate_limit"
	// ErrorTypeServer indicates an HTTP 5xx response
	ErrorTypeServer ErrorType = "server"
	// ErrorTypeClient indicates an HTTP 4xx response other than 429
	ErrorTypeClient ErrorType = "client"
	// ErrorTypeUnknown indicates any other non-success status
	ErrorTypeUnknown ErrorType = "unknown"
)

// FetchError is a structured page fetch failure. It unwraps to domain.ErrFetchFailure
// so callers can match it without knowing the concrete type.
type FetchError struct {
	Type       ErrorType
	StatusCode int
	Cause      error
}

// Error implements the error interface
func (e *FetchError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("%s error (status %d)", e.Type, e.StatusCode)
	}
	if e.Cause != nil {
		return fmt.Sprintf("%s error: %v", e.Type, e.Cause)
	}
	return fmt.Sprintf("%s error", e.Type)
}

// Unwrap exposes both the fetch failure sentinel and the underlying cause
func (e *FetchError) Unwrap() []error {
	if e.Cause == nil {
		return []error{domain.ErrFetchFailure}
	}
	return []error{domain.ErrFetchFailure, e.Cause}
}

// Timeout reports whether the failure was a timeout
func (e *FetchError) Timeout() bool {
	return e.Type == ErrorTypeTimeout
}

// ClassifyStatus maps a non-success HTTP status code to a FetchError
func ClassifyStatus(statusCode int) *FetchError {
	switch {
	case statusCode == http.StatusTooManyRequests:
		return &FetchError{Type: ErrorTypeRateLimit, StatusCode: statusCode}
	case statusCode >= 500:
		return &FetchError{Type: ErrorTypeServer, StatusCode: statusCode}
	case statusCode >= 400:
		return &FetchError{Type: ErrorTypeClient, StatusCode: statusCode}
	default:
		return &FetchError{Type: ErrorTypeUnknown, StatusCode: statusCode}
	}
}
