package errors

import (
	"errors"
	"fmt"
)

// Authentication errors are surfaced distinctly so a caller can prompt for
// re-login instead of retrying.
var (
	// ErrAuthRequired means no usable token exists: neither a stored access
	// token nor a refresh exchange could produce one.
	ErrAuthRequired = errors.New("authentication token not found, please log in again")

	// ErrListenerClosed is returned when an operation is attempted on a
	// feed listener after teardown.
	ErrListenerClosed = errors.New("listener is closed")
)

// StatusError is a transport/server failure: the backend answered with a
// non-success status. Detail carries the server-provided message when the
// body had one.
type StatusError struct {
	StatusCode int
	Detail     string
}

func (e *StatusError) Error() string {
	if e.Detail != "" {
		return e.Detail
	}
	return fmt.Sprintf("server responded with status %d", e.StatusCode)
}

// AllocationError is a recoverable business failure from the allocation
// endpoint, distinct from a transport failure. Callers show it as a
// warning, not a hard error.
type AllocationError struct {
	Reason string
}

func (e *AllocationError) Error() string {
	return e.Reason
}

// IsAuth reports whether err is (or wraps) an authentication error.
func IsAuth(err error) bool {
	return errors.Is(err, ErrAuthRequired)
}
