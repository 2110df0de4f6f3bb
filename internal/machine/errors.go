package machine

import (
	"errors"
	"fmt"
)

// DispatchError reports an inconsistency between the state table and the
// transitions its own state functions declared. It aborts the run.
type DispatchError struct {
	// Code identifies the error category.
	Code DispatchErrorCode

	// State is the name the loop tried to dispatch.
	State string

	// From is the state that returned State, empty on the first dispatch.
	From string

	// Step is the 1-based dispatch attempt that failed.
	Step int
}

// DispatchErrorCode categorizes dispatch errors.
type DispatchErrorCode string

const (
	// ErrCodeUnknownState indicates a state name absent from the state table.
	ErrCodeUnknownState DispatchErrorCode = "UNKNOWN_STATE"

	// ErrCodeNullState indicates a state name mapped to an explicit nil placeholder.
	ErrCodeNullState DispatchErrorCode = "NULL_STATE"
)

// Error implements the error interface.
func (e *DispatchError) Error() string {
	if e.From != "" {
		return fmt.Sprintf("%s: cannot dispatch %q (returned by %q, step %d)", e.Code, e.State, e.From, e.Step)
	}
	return fmt.Sprintf("%s: cannot dispatch %q (step %d)", e.Code, e.State, e.Step)
}

// IsDispatchError returns true if err is or wraps a *DispatchError.
func IsDispatchError(err error) bool {
	var de *DispatchError
	return errors.As(err, &de)
}

// IsUnknownState returns true if err is an unknown-state dispatch error.
// Uses errors.As to handle wrapped errors.
func IsUnknownState(err error) bool {
	var de *DispatchError
	if errors.As(err, &de) {
		return de.Code == ErrCodeUnknownState
	}
	return false
}

// IsNullState returns true if err is a null-state dispatch error.
// Uses errors.As to handle wrapped errors.
func IsNullState(err error) bool {
	var de *DispatchError
	if errors.As(err, &de) {
		return de.Code == ErrCodeNullState
	}
	return false
}
