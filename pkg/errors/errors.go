// Package errors provides structured error types for chainopt.
//
// This package defines error codes and types that enable:
//   - Fail-fast structural validation while a network is being built
//   - Machine-readable error codes for programmatic handling
//   - User-friendly error messages in the CLI
//   - Error wrapping with context preservation
//
// # Error Codes
//
// Error codes follow a hierarchical naming convention:
//   - INVALID_*: Input validation failures
//   - LAYER_* and DIMENSION_*: Network structure failures
//   - SOLVER_*: Failures reported by an LP/MIP backend
//   - INTERNAL_*: Unexpected internal errors
//
// Solver-reported infeasibility is not an error: it is carried as a status
// on the solution and never surfaces through this package.
//
// # Usage
//
//	err := errors.New(errors.ErrCodeInvalidInput, "layer name cannot be empty")
//	if errors.Is(err, errors.ErrCodeDimensionMismatch) {
//	    // Handle shape error
//	}
//
//	// Wrap existing errors
//	err := errors.Wrap(errors.ErrCodeSolver, origErr, "glpsol failed on %s", path)
package errors

import (
	"errors"
	"fmt"
)

// Code represents a machine-readable error code.
type Code string

// Error codes for different error categories.
const (
	// Input validation errors
	ErrCodeInvalidInput      Code = "INVALID_INPUT"
	ErrCodeInvalidScenario   Code = "INVALID_SCENARIO"
	ErrCodeInvalidIndicators Code = "INVALID_INDICATOR_ASSIGNMENT"

	// Network structure errors
	ErrCodeLayerNotAttached  Code = "LAYER_NOT_ATTACHED"
	ErrCodeDimensionMismatch Code = "DIMENSION_MISMATCH"

	// Model compilation errors
	ErrCodeDuplicateConstraint Code = "DUPLICATE_CONSTRAINT"
	ErrCodeNonFinite           Code = "NON_FINITE_COEFFICIENT"

	// Resource errors
	ErrCodeFileNotFound Code = "FILE_NOT_FOUND"

	// Solver errors
	ErrCodeSolver Code = "SOLVER_FAILED"

	// Internal errors
	ErrCodeInternal    Code = "INTERNAL_ERROR"
	ErrCodeUnsupported Code = "UNSUPPORTED"
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

// DimensionError describes a shape disagreement between a matrix or vector
// and the layer size it has to line up with.
type DimensionError struct {
	What string // what was measured, e.g. "cost rows" or "inbound totals"
	Want int
	Got  int
}

// Error implements the error interface.
func (e *DimensionError) Error() string {
	return fmt.Sprintf("dimensions %d and %d do not match (%s)", e.Got, e.Want, e.What)
}

// Dimension returns a DIMENSION_MISMATCH error carrying a *DimensionError.
func Dimension(what string, want, got int) *Error {
	return Wrap(ErrCodeDimensionMismatch, &DimensionError{What: what, Want: want, Got: got},
		"%s: expected %d, got %d", what, want, got)
}

// NotAttachedError identifies a layer that was used on a chain it is not
// registered with.
type NotAttachedError struct {
	Layer string
	Chain string
}

// Error implements the error interface.
func (e *NotAttachedError) Error() string {
	return fmt.Sprintf("layer %q not explicitly attached to chain %q", e.Layer, e.Chain)
}

// NotAttached returns a LAYER_NOT_ATTACHED error carrying a *NotAttachedError.
func NotAttached(layer, chain string) *Error {
	return Wrap(ErrCodeLayerNotAttached, &NotAttachedError{Layer: layer, Chain: chain},
		"cannot connect layer %q", layer)
}
