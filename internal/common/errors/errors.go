// Package errors provides standardized error handling for the dialogue engine.
package errors

import (
	"errors"
	"fmt"
	"time"
)

// ErrorCode represents standardized internal error codes.
//
// Low-confidence classifications and session expiry are deliberately not
// error codes: the former resolves to the fallback utterance and the latter
// to a transparent session renewal, so neither ever surfaces as an error.
type ErrorCode string

const (
	ErrCodeCapabilityTimeout     ErrorCode = "CAPABILITY_TIMEOUT"
	ErrCodeCapabilityUnavailable ErrorCode = "CAPABILITY_UNAVAILABLE"
	ErrCodeCapabilityNotFound    ErrorCode = "CAPABILITY_NOT_FOUND"
	ErrCodeInvalidSessionID      ErrorCode = "INVALID_SESSION_ID"
	ErrCodeInvalidParameter      ErrorCode = "INVALID_PARAMETER"
)

// StandardError represents a structured application error.
type StandardError struct {
	Code      ErrorCode              `json:"code"`
	Message   string                 `json:"message"`
	Details   string                 `json:"details,omitempty"`
	Retryable bool                   `json:"retryable"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
}

func (e *StandardError) Error() string {
	return fmt.Sprintf("StandardError[%s]: %s", e.Code, e.Message)
}

// NewCapabilityTimeoutError creates a retryable timeout error for a backend call.
func NewCapabilityTimeoutError(capability string) *StandardError {
	return &StandardError{
		Code:      ErrCodeCapabilityTimeout,
		Message:   "Capability call timed out",
		Details:   fmt.Sprintf("capability: %s", capability),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewCapabilityUnavailableError creates a retryable transport error for a backend call.
func NewCapabilityUnavailableError(capability string, err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeCapabilityUnavailable,
		Message:   "Capability service unavailable",
		Details:   fmt.Sprintf("capability: %s, error: %s", capability, err.Error()),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewCapabilityNotFoundError creates a non-retryable application error, e.g.
// an unknown user id. Distinct from a transport failure.
func NewCapabilityNotFoundError(capability, details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeCapabilityNotFound,
		Message:   "No data found for request",
		Details:   fmt.Sprintf("capability: %s, %s", capability, details),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewInvalidSessionIDError creates the only error that propagates out of the
// turn pipeline as a hard failure.
func NewInvalidSessionIDError(details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeInvalidSessionID,
		Message:   "Invalid session id",
		Details:   details,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewInvalidParameterError creates a non-retryable parameter validation error.
func NewInvalidParameterError(details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeInvalidParameter,
		Message:   "Invalid parameter value",
		Details:   details,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// GetRetryCount returns the bounded retry budget per code. Non-idempotent
// operations are gated by the caller regardless of this value.
func GetRetryCount(code ErrorCode) int {
	switch code {
	case ErrCodeCapabilityUnavailable:
		return 3
	case ErrCodeCapabilityTimeout:
		return 2
	default:
		return 0
	}
}

// IsRetryableErrorCode checks if an error code is retryable.
func IsRetryableErrorCode(code ErrorCode) bool {
	return GetRetryCount(code) > 0
}

// HasCode reports whether err is, or wraps, a StandardError with the given code.
func HasCode(err error, code ErrorCode) bool {
	var se *StandardError
	return errors.As(err, &se) && se.Code == code
}
