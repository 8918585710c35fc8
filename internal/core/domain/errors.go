package domain

import (
	"errors"
	"fmt"
)

// DomainError represents a command error with a structured error code.
type DomainError struct {
	Code    string // Error code (e.g., "KV-KEY-4040")
	Message string // Client-facing message
	Details string // Optional additional details
	Cause   error  // Underlying error (if any)
}

// Error implements the error interface.
func (e *DomainError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("[%s] %s: %s", e.Code, e.Message, e.Details)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Text returns the message as sent to clients, without the code.
func (e *DomainError) Text() string {
	if e.Details != "" {
		return e.Message + ": " + e.Details
	}
	return e.Message
}

// Unwrap returns the underlying error for errors.Unwrap() support.
func (e *DomainError) Unwrap() error {
	return e.Cause
}

// Is implements errors.Is() support for error comparison.
func (e *DomainError) Is(target error) bool {
	t, ok := target.(*DomainError)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// NewDomainError creates a new DomainError with the given code and message.
func NewDomainError(code, message string) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
	}
}

// WithDetails returns a copy of the error with additional details.
func (e *DomainError) WithDetails(details string) *DomainError {
	return &DomainError{
		Code:    e.Code,
		Message: e.Message,
		Details: details,
		Cause:   e.Cause,
	}
}

// WithCause returns a copy of the error wrapping the given cause.
func (e *DomainError) WithCause(cause error) *DomainError {
	return &DomainError{
		Code:    e.Code,
		Message: e.Message,
		Details: e.Details,
		Cause:   cause,
	}
}

// WithMessage returns a copy of the error with a different client message.
// The code is kept, so errors.Is still matches the original.
func (e *DomainError) WithMessage(message string) *DomainError {
	return &DomainError{
		Code:    e.Code,
		Message: message,
		Details: e.Details,
		Cause:   e.Cause,
	}
}

// IsDomainError checks if an error is a DomainError with the given code.
// If code is empty, it only checks if the error is a DomainError.
func IsDomainError(err error, code string) bool {
	var de *DomainError
	if errors.As(err, &de) {
		if code == "" {
			return true
		}
		return de.Code == code
	}
	return false
}

// GetErrorCode extracts the error code from an error if it's a DomainError.
func GetErrorCode(err error) string {
	var de *DomainError
	if errors.As(err, &de) {
		return de.Code
	}
	return ""
}

// ============================================================================
// Command Errors (CMD)
// ============================================================================

var (
	// ErrUnknownCommand indicates an unrecognized command or request shape.
	ErrUnknownCommand = NewDomainError("KV-CMD-4000", "unknown command")

	// ErrInvalidCommandFormat indicates the command name is missing or not a bulk string.
	ErrInvalidCommandFormat = NewDomainError("KV-CMD-4001", "invalid command format")
)

// ============================================================================
// Argument Errors (ARG)
// ============================================================================

var (
	// ErrInvalidArgument indicates a malformed argument. Commands narrow the
	// message with WithMessage, e.g. "invalid GET argument. Expected key".
	ErrInvalidArgument = NewDomainError("KV-ARG-4000", "invalid argument")

	// ErrSyntax indicates an unknown option.
	ErrSyntax = NewDomainError("KV-ARG-4001", "syntax error")

	// ErrInvalidExpireTime indicates a non-numeric or negative expiry.
	ErrInvalidExpireTime = NewDomainError("KV-ARG-4002", "invalid expire time")

	// ErrInvalidOptionFormat indicates an option token that is not a bulk string.
	ErrInvalidOptionFormat = NewDomainError("KV-ARG-4003", "invalid option format")

	// ErrNotIntegerOrRange indicates a numeric argument that does not parse.
	ErrNotIntegerOrRange = NewDomainError("KV-ARG-4004", "value is not an integer or out of range")

	// ErrWrongArity indicates a command received the wrong number of arguments.
	ErrWrongArity = NewDomainError("KV-ARG-4005", "wrong number of arguments")
)

// ============================================================================
// Key Errors (KEY)
// ============================================================================

var (
	// ErrKeyNotFound indicates the key is not stored.
	ErrKeyNotFound = NewDomainError("KV-KEY-4040", "key does not exist")

	// ErrKeyExpired indicates the key was dead and has been evicted.
	ErrKeyExpired = NewDomainError("KV-KEY-4041", "key has expired")
)

// ============================================================================
// Value Errors (VAL)
// ============================================================================

var (
	// ErrNotInteger indicates the stored payload is not a 64-bit integer.
	ErrNotInteger = NewDomainError("KV-VAL-4000", "value is not an integer")

	// ErrOverflow indicates INCR or DECR would leave the int64 range.
	ErrOverflow = NewDomainError("KV-VAL-4001", "increment or decrement would overflow")
)

// ============================================================================
// Snapshot Errors (SNAP)
// ============================================================================

var (
	// ErrSnapshotFailed indicates the snapshot sink rejected a save.
	ErrSnapshotFailed = NewDomainError("KV-SNAP-5000", "snapshot failed")

	// ErrSnapshotUnavailable indicates no snapshot sink is configured.
	ErrSnapshotUnavailable = NewDomainError("KV-SNAP-5030", "snapshot sink not configured")
)

// ============================================================================
// System Errors (SYS)
// ============================================================================

var (
	// ErrInternal indicates an unexpected failure while executing a command.
	ErrInternal = NewDomainError("KV-SYS-5000", "internal error")

	// ErrRateLimited indicates the client exceeded its request rate.
	ErrRateLimited = NewDomainError("KV-SYS-4290", "too many requests")
)
