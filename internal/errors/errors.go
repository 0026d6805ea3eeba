package errors

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// Error codes for categorizing errors
const (
	ErrConfig    = "CONFIG"
	ErrBackend   = "BACKEND"
	ErrLookup    = "LOOKUP"
	ErrProvision = "PROVISION"
	ErrSSH       = "SSH"
	ErrExec      = "EXEC"
)

// HTTP-style statuses attached to errors handed back to request handlers.
const (
	StatusUnavailable = http.StatusServiceUnavailable // 503
	StatusAborted     = http.StatusNoContent          // 204
)

// Error represents a structured error with code, message, suggestion, and optional cause.
// Rendered as:
//
//	✗ <What failed>
//
//	  <Why it failed - technical details>
//
//	  <How to fix it - actionable steps>
//
// Status is an optional HTTP-style status for callers that answer web requests.
type Error struct {
	Code       string
	Message    string
	Suggestion string
	Status     int
	Cause      error
}

// New creates a new structured error with the given code, message, and suggestion.
func New(code, message, suggestion string) *Error {
	return &Error{
		Code:       code,
		Message:    message,
		Suggestion: suggestion,
	}
}

// Wrap wraps an existing error with a message, defaulting to ErrExec code.
func Wrap(err error, message string) *Error {
	return &Error{
		Code:    ErrExec,
		Message: message,
		Cause:   err,
	}
}

// WrapWithCode wraps an existing error with a specific code, message, and suggestion.
func WrapWithCode(err error, code, message, suggestion string) *Error {
	return &Error{
		Code:       code,
		Message:    message,
		Suggestion: suggestion,
		Cause:      err,
	}
}

// WithStatus sets the HTTP-style status and returns the same error for chaining.
func (e *Error) WithStatus(status int) *Error {
	e.Status = status
	return e
}

// Error implements the error interface.
func (e *Error) Error() string {
	var b strings.Builder

	b.WriteString(fmt.Sprintf("✗ %s\n", e.Message))

	if e.Cause != nil {
		b.WriteString(fmt.Sprintf("\n  %s\n", e.Cause.Error()))
	}

	if e.Suggestion != "" {
		b.WriteString(fmt.Sprintf("\n  %s\n", e.Suggestion))
	}

	return b.String()
}

// Unwrap returns the underlying cause for use with errors.Is/errors.As.
func (e *Error) Unwrap() error {
	return e.Cause
}

// IsCode checks if an error is a structured Error with the given code.
func IsCode(err error, code string) bool {
	if err == nil {
		return false
	}
	var mErr *Error
	if errors.As(err, &mErr) {
		return mErr.Code == code
	}
	return false
}

// StatusOf returns the HTTP-style status carried by err.
// Structured errors without a status and plain errors report 503.
func StatusOf(err error) int {
	if err == nil {
		return http.StatusOK
	}
	var mErr *Error
	if errors.As(err, &mErr) && mErr.Status != 0 {
		return mErr.Status
	}
	return StatusUnavailable
}
