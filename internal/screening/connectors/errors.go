package connectors

import (
	"errors"
	"fmt"
)

// ErrorCategory is the normalized failure taxonomy for sources.
type ErrorCategory string

const (
	ErrorTimeout           ErrorCategory = "timeout"
	ErrorBadData           ErrorCategory = "bad_data"
	ErrorBadRequest        ErrorCategory = "bad_request"
	ErrorAuthentication    ErrorCategory = "authentication"
	ErrorSourceOutage      ErrorCategory = "source_outage"
	ErrorNotFound          ErrorCategory = "not_found"
	ErrorRateLimited       ErrorCategory = "rate_limited"
	ErrorInvalidIdentifier ErrorCategory = "invalid_identifier"
	ErrorCircuitOpen       ErrorCategory = "circuit_open"
	ErrorCancelled         ErrorCategory = "cancelled"
	ErrorInternal          ErrorCategory = "internal"
)

// SourceError wraps a source failure with its category.
type SourceError struct {
	Category   ErrorCategory
	SourceID   string
	Message    string
	Underlying error
	Retryable  bool
}

func (e *SourceError) Error() string {
	if e.Underlying != nil {
		return fmt.Sprintf("source %s [%s]: %s: %v", e.SourceID, e.Category, e.Message, e.Underlying)
	}
	return fmt.Sprintf("source %s [%s]: %s", e.SourceID, e.Category, e.Message)
}

func (e *SourceError) Unwrap() error {
	return e.Underlying
}

// NewSourceError builds a categorized error. Timeouts, outages and rate
// limits are retryable by the caller; the orchestrator itself never retries.
func NewSourceError(category ErrorCategory, sourceID, message string, underlying error) *SourceError {
	return &SourceError{
		Category:   category,
		SourceID:   sourceID,
		Message:    message,
		Underlying: underlying,
		Retryable: category == ErrorTimeout ||
			category == ErrorSourceOutage ||
			category == ErrorRateLimited,
	}
}

// IsRetryable reports whether err is worth retrying later.
func IsRetryable(err error) bool {
	var se *SourceError
	if errors.As(err, &se) {
		return se.Retryable
	}
	return false
}

// GetCategory extracts the category, defaulting to ErrorInternal.
func GetCategory(err error) ErrorCategory {
	var se *SourceError
	if errors.As(err, &se) {
		return se.Category
	}
	return ErrorInternal
}

// Annotation is the short audit note written next to an unavailable source.
func Annotation(err error) string {
	if err == nil {
		return ""
	}
	switch GetCategory(err) {
	case ErrorTimeout:
		return "source timed out; no result obtained"
	case ErrorRateLimited:
		return "source rate limited the request; no result obtained"
	case ErrorCircuitOpen:
		return "source skipped after repeated failures; no result obtained"
	case ErrorCancelled:
		return "screening cancelled before the source answered; no result obtained"
	case ErrorAuthentication:
		return "source rejected credentials; no result obtained"
	case ErrorBadData:
		return "source returned an unreadable response; no result obtained"
	case ErrorInvalidIdentifier:
		return "identifier failed local validation; source not called"
	}
	return "source unavailable; no result obtained"
}
