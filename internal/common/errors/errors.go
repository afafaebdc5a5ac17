// Package errors provides the standardized error taxonomy for the
// recommendation pipeline.
package errors

import (
	stderrors "errors"
	"fmt"
	"time"
)

// ErrorCode represents standardized internal error codes.
type ErrorCode string

const (
	// ErrCodeNotFound: valid request, zero matching entities. Surfaced to the
	// caller, never retried.
	ErrCodeNotFound ErrorCode = "NOT_FOUND"

	// ErrCodeNarrativeUnavailable: generation collaborator failed after
	// retries. Recovered locally with a placeholder; the request still
	// succeeds.
	ErrCodeNarrativeUnavailable ErrorCode = "NARRATIVE_UNAVAILABLE"

	// ErrCodeStoreUnavailable: record-store lookup failed after retries.
	// Fatal for the top-level query, degrades to empty for per-row
	// enrichment lookups.
	ErrCodeStoreUnavailable ErrorCode = "STORE_UNAVAILABLE"

	// ErrCodeMalformedIntent: classifier output unparseable. Recovered
	// locally by routing to the unknown intent.
	ErrCodeMalformedIntent ErrorCode = "MALFORMED_INTENT"

	// ErrCodeInvalidParameter: unsupported opportunity type, top_n out of
	// range and similar. Rejected before any I/O.
	ErrCodeInvalidParameter ErrorCode = "INVALID_PARAMETER"
)

// StandardError represents a structured application error.
type StandardError struct {
	Code      ErrorCode `json:"code"`
	Message   string    `json:"message"`
	Details   string    `json:"details,omitempty"`
	Retryable bool      `json:"retryable"`
	Timestamp time.Time `json:"timestamp"`
}

func (e *StandardError) Error() string {
	return fmt.Sprintf("StandardError[%s]: %s", e.Code, e.Message)
}

// NewNotFoundError creates a non-retryable empty-result error.
func NewNotFoundError(message string) *StandardError {
	return &StandardError{
		Code:      ErrCodeNotFound,
		Message:   message,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewNarrativeUnavailableError wraps a generation failure that survived the
// retry budget.
func NewNarrativeUnavailableError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeNarrativeUnavailable,
		Message:   "Narrative generation failed",
		Details:   err.Error(),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewStoreUnavailableError wraps a record-store failure that survived the
// retry budget.
func NewStoreUnavailableError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeStoreUnavailable,
		Message:   "Record store query failed",
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewMalformedIntentError creates an error for unparseable classifier output.
func NewMalformedIntentError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeMalformedIntent,
		Message:   "Intent classifier output could not be parsed",
		Details:   err.Error(),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewInvalidParameterError creates a non-retryable validation error.
func NewInvalidParameterError(details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeInvalidParameter,
		Message:   "Invalid request parameter",
		Details:   details,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// HasCode reports whether err is (or wraps) a StandardError with the given
// code.
func HasCode(err error, code ErrorCode) bool {
	var stdErr *StandardError
	if stderrors.As(err, &stdErr) {
		return stdErr.Code == code
	}
	return false
}

// IsNotFound reports whether err signals an empty-result condition.
func IsNotFound(err error) bool {
	return HasCode(err, ErrCodeNotFound)
}

// IsInvalidParameter reports whether err signals a rejected parameter.
func IsInvalidParameter(err error) bool {
	return HasCode(err, ErrCodeInvalidParameter)
}
