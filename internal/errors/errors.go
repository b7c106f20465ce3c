// Package errors provides the structured error type used across agentci
// tasks for category-based classification and exit-code selection.
package errors

import (
	"errors"
	"fmt"
)

// ErrorCategory classifies a task error.
type ErrorCategory string

const (
	// User-facing input and precondition errors
	CategoryPrecondition ErrorCategory = "precondition"
	CategoryConfig       ErrorCategory = "config"

	// An expected-unique glob matched more than one artifact. Always fatal.
	CategoryAmbiguous ErrorCategory = "ambiguous"

	// External tool / API integration errors
	CategoryExternal ErrorCategory = "external"
	CategoryNetwork  ErrorCategory = "network"

	// Recoverable parse failures on semi-structured input
	CategoryParse ErrorCategory = "parse"

	CategoryInternal ErrorCategory = "internal"
)

// ErrorSeverity indicates how critical an error is.
type ErrorSeverity string

const (
	SeverityFatal   ErrorSeverity = "fatal"   // Stops execution
	SeverityError   ErrorSeverity = "error"   // Error, but not fatal
	SeverityWarning ErrorSeverity = "warning" // Continues with degraded functionality
)

// TaskError is a structured error with category, exit code, and context.
type TaskError struct {
	Category ErrorCategory `json:"category"`
	Severity ErrorSeverity `json:"severity"`
	Message  string        `json:"message"`
	Cause    error         `json:"cause,omitempty"`
	ExitCode int           `json:"exit_code"`
	Context  ContextFields `json:"context,omitempty"`
}

// ContextFields carries structured context for TaskError.
type ContextFields map[string]any

// Error implements the error interface.
func (e *TaskError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s (%s): %s: %v", e.Category, e.Severity, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s (%s): %s", e.Category, e.Severity, e.Message)
}

// Unwrap implements error unwrapping for Go 1.13+ error handling.
func (e *TaskError) Unwrap() error {
	return e.Cause
}

// WithContext adds context information to the error.
func (e *TaskError) WithContext(key string, value any) *TaskError {
	if e.Context == nil {
		e.Context = make(ContextFields)
	}
	e.Context[key] = value
	return e
}

// WithExitCode overrides the process exit code the error maps to.
func (e *TaskError) WithExitCode(code int) *TaskError {
	e.ExitCode = code
	return e
}

// New creates a new TaskError.
func New(category ErrorCategory, severity ErrorSeverity, message string) *TaskError {
	return &TaskError{
		Category: category,
		Severity: severity,
		Message:  message,
		ExitCode: 1,
	}
}

// Wrap creates a new TaskError that wraps an existing error.
func Wrap(err error, category ErrorCategory, severity ErrorSeverity, message string) *TaskError {
	return &TaskError{
		Category: category,
		Severity: severity,
		Message:  message,
		Cause:    err,
		ExitCode: 1,
	}
}

// Preconditionf creates a fatal precondition error with a formatted message.
func Preconditionf(format string, args ...any) *TaskError {
	return New(CategoryPrecondition, SeverityFatal, fmt.Sprintf(format, args...))
}

// Ambiguousf creates a fatal ambiguity error with a formatted message.
// Used when an expected-unique glob matched more than one artifact.
func Ambiguousf(format string, args ...any) *TaskError {
	return New(CategoryAmbiguous, SeverityFatal, fmt.Sprintf(format, args...))
}

// Externalf wraps a failed external invocation.
func Externalf(err error, format string, args ...any) *TaskError {
	return Wrap(err, CategoryExternal, SeverityFatal, fmt.Sprintf(format, args...))
}

// IsCategory checks if an error belongs to a specific category.
func IsCategory(err error, category ErrorCategory) bool {
	var te *TaskError
	if errors.As(err, &te) {
		return te.Category == category
	}
	return false
}

// GetCategory extracts the category from an error, or CategoryInternal if
// the error is not a TaskError.
func GetCategory(err error) ErrorCategory {
	var te *TaskError
	if errors.As(err, &te) {
		return te.Category
	}
	return CategoryInternal
}

// ExitCode returns the exit code an error maps to. Plain errors map to 1.
func ExitCode(err error) int {
	var te *TaskError
	if errors.As(err, &te) && te.ExitCode != 0 {
		return te.ExitCode
	}
	return 1
}
