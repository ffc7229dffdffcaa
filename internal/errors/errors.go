package errors

import (
	stderrors "errors"
	"fmt"
	"strings"
)

// ErrorCode represents a narrsvc error code.
type ErrorCode string

const (
	ErrInvalidArgument     ErrorCode = "INVALID_ARGUMENT"     // 400
	ErrNotFound            ErrorCode = "NOT_FOUND"            // 404
	ErrUpstreamUnavailable ErrorCode = "UPSTREAM_UNAVAILABLE" // 502
	ErrInternal            ErrorCode = "INTERNAL"             // 500
)

// NarrError represents a structured error with code, status, and details.
type NarrError struct {
	Code    ErrorCode
	Status  int
	Message string
	Details map[string]any

	// Err is the underlying cause, if any. Only upstream and internal errors carry one.
	Err error
}

// Error implements the error interface.
func (e *NarrError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap exposes the underlying cause.
func (e *NarrError) Unwrap() error {
	return e.Err
}

// FieldError describes one invalid input field.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// NewInvalidArgument creates a 400 error for a malformed or missing option.
func NewInvalidArgument(msg string) *NarrError {
	return &NarrError{
		Code:    ErrInvalidArgument,
		Status:  400,
		Message: msg,
	}
}

// NewInvalidFields creates a single 400 error covering every invalid field.
// The message joins the per-field messages so each one is visible to callers.
func NewInvalidFields(fields []FieldError) *NarrError {
	msgs := make([]string, 0, len(fields))
	for _, f := range fields {
		msgs = append(msgs, f.Message)
	}
	return &NarrError{
		Code:    ErrInvalidArgument,
		Status:  400,
		Message: strings.Join(msgs, "; "),
		Details: map[string]any{"fields": fields},
	}
}

// NewNotFound creates a 404 error for a missing workspace or object.
func NewNotFound(identifier string) *NarrError {
	return &NarrError{
		Code:    ErrNotFound,
		Status:  404,
		Message: fmt.Sprintf("not found: %s", identifier),
		Details: map[string]any{"identifier": identifier},
	}
}

// NewUpstream wraps a collaborator failure. The upstream message is kept verbatim.
func NewUpstream(service string, err error) *NarrError {
	msg := "upstream call failed"
	if err != nil {
		msg = err.Error()
	}
	return &NarrError{
		Code:    ErrUpstreamUnavailable,
		Status:  502,
		Message: msg,
		Details: map[string]any{"service": service},
		Err:     err,
	}
}

// NewInternal creates a 500 error for unexpected internal errors.
// The message is generic; the cause is kept in Details for logging only.
func NewInternal(err error) *NarrError {
	details := map[string]any{}
	if err != nil {
		details["internal_error"] = err.Error()
	}
	return &NarrError{
		Code:    ErrInternal,
		Status:  500,
		Message: "an internal error occurred",
		Details: details,
		Err:     err,
	}
}

// As finds the first NarrError in err's chain.
func As(err error) (*NarrError, bool) {
	var nErr *NarrError
	if stderrors.As(err, &nErr) {
		return nErr, true
	}
	return nil, false
}

// Is checks if an error (or anything it wraps) is a NarrError with the given code.
func Is(err error, code ErrorCode) bool {
	if nErr, ok := As(err); ok {
		return nErr.Code == code
	}
	return false
}
