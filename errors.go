package craftreport

import (
	"errors"
	"fmt"
)

// RuntimeError represents an operational error that should lead to exit code 2.
// Examples include configuration errors, malformed input and failed writes.
type RuntimeError struct {
	Err error
}

func (e *RuntimeError) Error() string {
	return fmt.Sprintf("runtime error: %v", e.Err)
}

// Unwrap implements the errors.Unwrap interface
func (e *RuntimeError) Unwrap() error {
	return e.Err
}

// NewRuntimeError creates a new RuntimeError
func NewRuntimeError(err error) *RuntimeError {
	return &RuntimeError{Err: err}
}

// IsRuntimeError checks if the error is or wraps a RuntimeError
func IsRuntimeError(err error) bool {
	var runtimeErr *RuntimeError
	return err != nil && errors.As(err, &runtimeErr)
}

// TestFailureError reports a run whose report was written but which had failed tests (exit code 1)
type TestFailureError struct {
	Failed int
	Total  int
}

func (e *TestFailureError) Error() string {
	if e.Failed == 0 {
		return fmt.Sprintf("test failure: run failed outside its %d tests", e.Total)
	}
	return fmt.Sprintf("test failure: %d of %d tests failed", e.Failed, e.Total)
}

// NewTestFailureError creates a new TestFailureError
func NewTestFailureError(failed, total int) *TestFailureError {
	return &TestFailureError{Failed: failed, Total: total}
}

// IsTestFailureError checks if the error is or wraps a TestFailureError
func IsTestFailureError(err error) bool {
	var testErr *TestFailureError
	return err != nil && errors.As(err, &testErr)
}
