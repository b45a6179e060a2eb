// internal/common/errors/errors.go

// Package errors provides standardized error handling for the application
// lifecycle engine and its collaborators.
package errors

import (
	"errors"
	"fmt"
	"time"
)

// ErrorCode represents standardized internal error codes.
type ErrorCode string

const (
	ErrCodeNotFound         ErrorCode = "NOT_FOUND"
	ErrCodeForbidden        ErrorCode = "FORBIDDEN"
	ErrCodeValidationFailed ErrorCode = "VALIDATION_ERROR"
	ErrCodeConflict         ErrorCode = "CONFLICT"
	ErrCodeTransientStorage ErrorCode = "TRANSIENT_STORAGE_ERROR"

	ErrCodeNotificationSendFailed ErrorCode = "NOTIFICATION_SEND_FAILED"
)

// Error is a structured service error carrying a machine-readable code.
type Error struct {
	Code      ErrorCode `json:"code"`
	Message   string    `json:"message"`
	Details   string    `json:"details,omitempty"`
	Retryable bool      `json:"retryable"`
	Timestamp time.Time `json:"timestamp"`
	cause     error
}

func (e *Error) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("%s: %s (%s)", e.Code, e.Message, e.Details)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error {
	return e.cause
}

// Is matches two service errors by code so callers can use errors.Is with
// the constructors' zero-detail sentinels.
func (e *Error) Is(target error) bool {
	var te *Error
	if !errors.As(target, &te) {
		return false
	}
	return e.Code == te.Code
}

// NewNotFound creates an error for a missing application or audit subject.
func NewNotFound(resource, id string) *Error {
	return &Error{
		Code:      ErrCodeNotFound,
		Message:   fmt.Sprintf("%s not found", resource),
		Details:   id,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewForbidden creates an error for an actor whose role may not apply the
// requested status.
func NewForbidden(details string) *Error {
	return &Error{
		Code:      ErrCodeForbidden,
		Message:   "insufficient permissions",
		Details:   details,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewValidation creates an error for malformed input, rejected before any
// store access.
func NewValidation(details string) *Error {
	return &Error{
		Code:      ErrCodeValidationFailed,
		Message:   "validation failed",
		Details:   details,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewConflict creates an error for a uniqueness or state conflict.
func NewConflict(details string) *Error {
	return &Error{
		Code:      ErrCodeConflict,
		Message:   "resource conflict",
		Details:   details,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewTransientStorage wraps a storage-layer fault. The whole operation is
// safe to retry because the transactional boundary is all-or-nothing.
func NewTransientStorage(op string, cause error) *Error {
	return &Error{
		Code:      ErrCodeTransientStorage,
		Message:   "storage operation failed",
		Details:   fmt.Sprintf("op: %s, error: %v", op, cause),
		Retryable: true,
		Timestamp: time.Now().UTC(),
		cause:     cause,
	}
}

// NewNotificationSendFailed wraps a delivery failure. Never surfaced as a
// transition failure, only logged.
func NewNotificationSendFailed(channel string, cause error) *Error {
	return &Error{
		Code:      ErrCodeNotificationSendFailed,
		Message:   "notification delivery failed",
		Details:   fmt.Sprintf("channel: %s, error: %v", channel, cause),
		Retryable: true,
		Timestamp: time.Now().UTC(),
		cause:     cause,
	}
}

// CodeOf extracts the error code, or empty string for foreign errors.
func CodeOf(err error) ErrorCode {
	var se *Error
	if errors.As(err, &se) {
		return se.Code
	}
	return ""
}

func IsNotFound(err error) bool  { return CodeOf(err) == ErrCodeNotFound }
func IsForbidden(err error) bool { return CodeOf(err) == ErrCodeForbidden }
func IsValidation(err error) bool {
	return CodeOf(err) == ErrCodeValidationFailed
}
func IsConflict(err error) bool { return CodeOf(err) == ErrCodeConflict }

// IsRetryable reports whether the caller may safely retry the whole operation.
func IsRetryable(err error) bool {
	var se *Error
	if errors.As(err, &se) {
		return se.Retryable
	}
	return false
}
