package domainerrors

import (
	"errors"
	"time"
)

// Code represents a domain error category independent of transport layer.
// These codes describe what went wrong in business logic terms, not HTTP terms.
type Code string

const (
	CodeNotFound     Code = "not_found"
	CodeBadRequest   Code = "bad_request"
	CodeInvalidInput Code = "invalid_input"
	CodeValidation   Code = "validation_failed"
	CodeInternal     Code = "internal_error"
	CodeConflict     Code = "conflict"
	CodeUnauthorized Code = "unauthorized"
	CodeForbidden    Code = "forbidden"
	CodeTimeout      Code = "timeout"

	// Authentication lifecycle codes. These carry anti-enumeration weight:
	// callers translate them to deliberately vague client messages.
	CodeAccountLocked     Code = "account_locked"
	CodeAccountDisabled   Code = "account_disabled"
	CodeEmailNotVerified  Code = "email_not_verified"
	CodeMFARequired       Code = "mfa_required"
	CodeMFASetupRequired  Code = "mfa_setup_required"
	CodeRateLimited       Code = "rate_limited"
	CodeSecurityViolation Code = "security_violation"
	CodeTokenReuse        Code = "token_reuse"
)

// Error wraps domain or infrastructure failures with a stable code.
// It is transport-agnostic and can be used across service, store, and other layers.
type Error struct {
	Code    Code
	Message string
	Err     error

	// RetryAfter, when non-zero, tells the transport layer how long the
	// caller should wait before retrying (rate limits, lockouts).
	RetryAfter time.Duration
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return string(e.Code)
}

// Unwrap implements error unwrapping for error chains.
func (e *Error) Unwrap() error {
	return e.Err
}

// Is enables errors.Is() to match errors by code.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// New creates a new domain error with the given code and message.
func New(code Code, msg string) error {
	return &Error{Code: code, Message: msg}
}

// NewRetryable creates a domain error carrying a retry-after hint.
func NewRetryable(code Code, msg string, retryAfter time.Duration) error {
	return &Error{Code: code, Message: msg, RetryAfter: retryAfter}
}

// Wrap creates a new domain error wrapping an existing error.
// If the wrapped error is already a domain error, the original code is preserved.
func Wrap(err error, code Code, msg string) error {
	var existing *Error
	if errors.As(err, &existing) {
		// Preserve the original domain code, update message
		return &Error{Code: existing.Code, Message: msg, Err: err, RetryAfter: existing.RetryAfter}
	}
	return &Error{Code: code, Message: msg, Err: err}
}

// HasCode checks if an error is a domain error with the given code.
func HasCode(err error, code Code) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Code == code
	}
	return false
}

// RetryAfter extracts the retry-after hint from an error chain, if any.
func RetryAfter(err error) time.Duration {
	var e *Error
	if errors.As(err, &e) {
		return e.RetryAfter
	}
	return 0
}
