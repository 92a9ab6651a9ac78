// Package errors provides standardized error types for the ETL pipeline.
// It defines PipelineError for consistent error handling across frame
// operations and pipeline stages, with operation context and error
// wrapping support.
package errors

import (
	"fmt"
)

// PipelineError represents standardized errors across frame operations
// and pipeline stages
type PipelineError struct {
	Op      string // Operation or stage name (e.g., "Join", "clean", "quality")
	Column  string // Column or table name if applicable
	Message string // Human-readable error description
	Cause   error  // Underlying error cause
}

// Error implements the error interface
func (e *PipelineError) Error() string {
	if e.Column != "" {
		return fmt.Sprintf("%s failed on %q: %s", e.Op, e.Column, e.Message)
	}
	return fmt.Sprintf("%s failed: %s", e.Op, e.Message)
}

// Unwrap returns the underlying cause for error wrapping support
func (e *PipelineError) Unwrap() error {
	return e.Cause
}

// Is implements error equality checking for errors.Is()
func (e *PipelineError) Is(target error) bool {
	if pe, ok := target.(*PipelineError); ok {
		return e.Op == pe.Op && e.Column == pe.Column && e.Message == pe.Message
	}
	return false
}

// NewColumnNotFoundError creates an error for operations on non-existent columns
func NewColumnNotFoundError(op, column string) *PipelineError {
	return &PipelineError{
		Op:      op,
		Column:  column,
		Message: "column does not exist",
	}
}

// NewInvalidInputError creates an error for invalid operation inputs
func NewInvalidInputError(op, message string) *PipelineError {
	return &PipelineError{
		Op:      op,
		Message: message,
	}
}

// NewUnsupportedTypeError creates an error for unsupported data types
func NewUnsupportedTypeError(op, typeName string) *PipelineError {
	return &PipelineError{
		Op:      op,
		Message: fmt.Sprintf("unsupported type: %s", typeName),
	}
}

// NewValidationError creates an error for input validation failures
func NewValidationError(op, column, message string) *PipelineError {
	return &PipelineError{
		Op:      op,
		Column:  column,
		Message: message,
	}
}

// NewQualityError creates an error for a failed data quality check
func NewQualityError(table, message string) *PipelineError {
	return &PipelineError{
		Op:      "quality",
		Column:  table,
		Message: message,
	}
}

// NewInternalError creates an error for internal operation failures
func NewInternalError(op string, cause error) *PipelineError {
	return &PipelineError{
		Op:      op,
		Message: "internal error occurred",
		Cause:   cause,
	}
}

// ErrEmptyFrame indicates operations on empty frames
var ErrEmptyFrame = &PipelineError{
	Op:      "validation",
	Message: "operation not supported on an empty frame",
}
