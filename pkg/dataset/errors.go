package dataset

import "fmt"

// UnsupportedShapeError is returned when input is neither a column mapping nor
// a flat sequence of scalars.
type UnsupportedShapeError struct {
	// Type is the Go type that was rejected.
	Type string

	// Reason optionally narrows down what was wrong.
	Reason string
}

// Error implements the error interface.
func (e *UnsupportedShapeError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("unsupported dataset shape %s: %s", e.Type, e.Reason)
	}
	return fmt.Sprintf("unsupported dataset shape %s: more complex types not yet handled", e.Type)
}
