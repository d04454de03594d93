package guard

import (
	"errors"
	"fmt"
)

// ErrProtected is matched by every ProtectedAccessError via errors.Is.
var ErrProtected = errors.New("protected attribute")

// ProtectedAccessError is returned when code without the owning key tries to
// read a sealed value or write a guarded counter.
type ProtectedAccessError struct {
	// Field names the protected value.
	Field string

	// Op is the attempted operation ("read", "write", "marshal").
	Op string
}

// Error implements the error interface.
func (e *ProtectedAccessError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("protected attribute: %s denied", e.Op)
	}
	return fmt.Sprintf("protected attribute %q: %s denied", e.Field, e.Op)
}

// Is reports whether target is ErrProtected.
func (e *ProtectedAccessError) Is(target error) bool {
	return target == ErrProtected
}

func denied(field, op string) *ProtectedAccessError {
	return &ProtectedAccessError{Field: field, Op: op}
}
