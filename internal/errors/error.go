package errors

import (
	stderrors "errors"
	"fmt"
)

// Category represents the type of error.
type Category string

const (
	CategoryEffect     Category = "effect"
	CategoryValidation Category = "validation"
	CategoryFetch      Category = "fetch"
	CategoryConfig     Category = "config"
	CategorySession    Category = "session"
	CategoryBackend    Category = "backend"
)

// NoaiError is a structured error with a code, category and optional cause.
type NoaiError struct {
	// Code is a unique error identifier (e.g., "E001").
	Code string

	// Category is the error type.
	Category Category

	// Message is a short description of the error.
	Message string

	// Detail is a longer explanation of the error.
	Detail string

	// Suggestion is a hint on how to fix the error.
	Suggestion string

	// Wrapped is the underlying error, if any.
	Wrapped error
}

// Error implements the error interface.
func (e *NoaiError) Error() string {
	msg := e.Message
	if e.Code != "" {
		msg = fmt.Sprintf("%s: %s", e.Code, e.Message)
	}
	if e.Wrapped != nil {
		msg += ": " + e.Wrapped.Error()
	}
	return msg
}

// Unwrap returns the wrapped error for errors.Is/As support.
func (e *NoaiError) Unwrap() error {
	return e.Wrapped
}

// Is reports whether target is a NoaiError with the same code.
func (e *NoaiError) Is(target error) bool {
	t, ok := target.(*NoaiError)
	if !ok || t.Code == "" {
		return false
	}
	return t.Code == e.Code
}

// WithDetail adds a detailed explanation to the error.
func (e *NoaiError) WithDetail(d string) *NoaiError {
	e.Detail = d
	return e
}

// WithDetailf adds a formatted detailed explanation to the error.
func (e *NoaiError) WithDetailf(format string, args ...any) *NoaiError {
	e.Detail = fmt.Sprintf(format, args...)
	return e
}

// WithSuggestion adds a fix suggestion to the error.
func (e *NoaiError) WithSuggestion(s string) *NoaiError {
	e.Suggestion = s
	return e
}

// Wrap wraps another error.
func (e *NoaiError) Wrap(err error) *NoaiError {
	e.Wrapped = err
	return e
}

// New creates a NoaiError from a registered error code.
func New(code string) *NoaiError {
	template, ok := registry[code]
	if !ok {
		return &NoaiError{
			Code:    code,
			Message: "Unknown error",
		}
	}
	return &NoaiError{
		Code:     code,
		Category: template.Category,
		Message:  template.Message,
		Detail:   template.Detail,
	}
}

// Newf creates a new NoaiError with a formatted message (no code).
func Newf(category Category, format string, args ...any) *NoaiError {
	return &NoaiError{
		Category: category,
		Message:  fmt.Sprintf(format, args...),
	}
}

// FromError wraps a standard error in a NoaiError.
// Errors that already carry a NoaiError in their chain are returned as is.
func FromError(err error, code string) *NoaiError {
	if err == nil {
		return nil
	}
	var ne *NoaiError
	if stderrors.As(err, &ne) {
		return ne
	}
	return New(code).Wrap(err)
}

// CodeOf returns the code of the first NoaiError in err's chain, or "".
func CodeOf(err error) string {
	var ne *NoaiError
	if stderrors.As(err, &ne) {
		return ne.Code
	}
	return ""
}

// CategoryOf returns the category of the first NoaiError in err's chain, or "".
func CategoryOf(err error) Category {
	var ne *NoaiError
	if stderrors.As(err, &ne) {
		return ne.Category
	}
	return ""
}

// Is is errors.Is, re-exported so callers importing this package under the
// name errors keep the standard helpers.
func Is(err, target error) bool { return stderrors.Is(err, target) }

// As is errors.As.
func As(err error, target any) bool { return stderrors.As(err, target) }
