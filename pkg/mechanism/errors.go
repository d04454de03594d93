package mechanism

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidParams is wrapped by errors caused by malformed bounds,
	// privacy parameters or masks.
	ErrInvalidParams = errors.New("invalid mechanism parameters")

	// ErrUnknownHandle is returned for handles the engine did not issue.
	ErrUnknownHandle = errors.New("unknown dataset handle")

	// ErrUnsupportedOperation is returned for operations the engine cannot run.
	ErrUnsupportedOperation = errors.New("unsupported operation")

	// ErrSessionState is returned when session calls arrive out of order.
	ErrSessionState = errors.New("invalid session state")

	// ErrNotReleased is returned when a release is read before its session
	// has been committed.
	ErrNotReleased = errors.New("release not committed")
)

// Error is the error type produced by engines. Accountants propagate it
// unchanged.
type Error struct {
	// Op is the operation that failed.
	Op Operation

	// Cause is the underlying failure.
	Cause error
}

// Error implements the error interface.
func (e *Error) Error() string {
	return fmt.Sprintf("mechanism %s: %v", e.Op, e.Cause)
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Cause
}

func opError(op Operation, cause error) *Error {
	return &Error{Op: op, Cause: cause}
}

func invalid(op Operation, format string, args ...any) *Error {
	return opError(op, fmt.Errorf("%w: %s", ErrInvalidParams, fmt.Sprintf(format, args...)))
}
