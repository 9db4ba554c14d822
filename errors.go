package harness

import (
	"errors"
	"fmt"
)

// RuntimeError represents an operational error that should lead to exit code 2.
// Examples include an unreadable or invalid suite file, a suite path that does
// not exist, a bad filter pattern or an interpreter that cannot be started.
type RuntimeError struct {
	Err error
}

// Error implements the error interface
func (e *RuntimeError) Error() string {
	return fmt.Sprintf("runtime error: %v", e.Err)
}

// Unwrap implements the errors.Unwrap interface
func (e *RuntimeError) Unwrap() error {
	return e.Err
}

// NewRuntimeError wraps err so the application exits with code 2
func NewRuntimeError(err error) *RuntimeError {
	return &RuntimeError{Err: err}
}

// IsRuntimeError checks if the error is or wraps a RuntimeError
func IsRuntimeError(err error) bool {
	var runtimeErr *RuntimeError
	return err != nil && errors.As(err, &runtimeErr)
}

// TestFailureError represents a completed run in which at least one case
// failed (exit code 1). Skipped cases never produce one.
type TestFailureError struct {
	Message string // Summary of the run, as printed after the results table
}

// Error implements the error interface
func (e *TestFailureError) Error() string {
	return fmt.Sprintf("test failure: %s", e.Message)
}

// NewTestFailureError creates a TestFailureError carrying the run summary
func NewTestFailureError(message string) *TestFailureError {
	return &TestFailureError{Message: message}
}

// IsTestFailureError checks if the error is or wraps a TestFailureError
func IsTestFailureError(err error) bool {
	var testErr *TestFailureError
	return err != nil && errors.As(err, &testErr)
}
