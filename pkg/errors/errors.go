// Package errors provides structured error types for scvrprep.
//
// This package defines error codes and types that enable:
//   - Consistent error handling across the CLI, the export pipeline and the report server
//   - Machine-readable error codes for programmatic handling
//   - User-friendly error messages
//   - Error wrapping with context preservation
//
// # Error Codes
//
// Codes map one-to-one onto the failure taxonomy of the export pipeline:
//   - UNSUPPORTED_DATASET_KIND, MISSING_REQUIRED_FIELD, INVALID_DATASET: the input handle
//   - UNRESOLVED_LABEL: a requested label column does not exist (fatal)
//   - UNRESOLVED_GENE: a requested gene does not exist (warning only)
//   - DANGLING_EDGE_REFERENCE: an edge names a node that was never exported
//   - IO_FAILURE, OUTPUT_EXISTS: filesystem problems around the output directory
//
// # Usage
//
//	err := errors.New(errors.ErrCodeUnresolvedLabel, "label %q not found", name)
//	if errors.Is(err, errors.ErrCodeUnresolvedLabel) {
//	    // Tell the user which columns exist
//	}
//
//	// Wrap existing errors
//	err := errors.Wrap(errors.ErrCodeIO, origErr, "write %s", path)
package errors

import (
	"errors"
	"fmt"
)

// Code represents a machine-readable error code.
type Code string

// Error codes for different error categories.
const (
	// Input errors
	ErrCodeInvalidInput           Code = "INVALID_INPUT"
	ErrCodeUnsupportedDatasetKind Code = "UNSUPPORTED_DATASET_KIND"
	ErrCodeMissingRequiredField   Code = "MISSING_REQUIRED_FIELD"
	ErrCodeInvalidDataset         Code = "INVALID_DATASET"
	ErrCodeUnresolvedLabel        Code = "UNRESOLVED_LABEL"
	ErrCodeUnresolvedGene         Code = "UNRESOLVED_GENE"

	// Consistency errors
	ErrCodeDanglingEdgeReference Code = "DANGLING_EDGE_REFERENCE"

	// Filesystem errors
	ErrCodeIO           Code = "IO_FAILURE"
	ErrCodeOutputExists Code = "OUTPUT_EXISTS"

	// Resource not found errors
	ErrCodeNotFound Code = "NOT_FOUND"

	// Internal errors
	ErrCodeInternal Code = "INTERNAL_ERROR"
)

// Error is a structured error with a code and optional cause.
type Error struct {
	Code    Code   // Machine-readable error code
	Message string // Human-readable message
	Cause   error  // Underlying error (optional)
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause for errors.Is/As compatibility.
func (e *Error) Unwrap() error {
	return e.Cause
}

// New creates a new Error with the given code and formatted message.
func New(code Code, format string, args ...any) *Error {
	return &Error{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
	}
}

// Wrap creates a new Error wrapping an existing error.
func Wrap(code Code, cause error, format string, args ...any) *Error {
	return &Error{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
		Cause:   cause,
	}
}

// Is reports whether err has the given error code.
// It unwraps the error chain looking for an *Error with a matching code.
func Is(err error, code Code) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Code == code
	}
	return false
}

// GetCode extracts the error code from an error, if available.
// Returns empty string if the error is not an *Error.
func GetCode(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// UserMessage returns a user-friendly message for the error.
// For *Error types, returns the message without the code prefix.
// For other errors, returns the error string as-is.
func UserMessage(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Message
	}
	return err.Error()
}

// Warning is a non-fatal condition collected during a run.
// Warnings never abort the pipeline; they are returned next to a successful result.
type Warning struct {
	Code    Code
	Subject string // what the warning is about, e.g. a gene name or a path
	Message string
}

// String formats the warning for display.
func (w Warning) String() string {
	return fmt.Sprintf("%s: %s", w.Code, w.Message)
}
