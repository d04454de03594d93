package accountant

import (
	"errors"
	"fmt"
)

// ErrBudgetExhausted is returned when no budget remains for a
// privacy-consuming call. The mechanism is not invoked.
var ErrBudgetExhausted = errors.New("privacy budget exhausted")

// ErrClosed is returned by calls made after Close.
var ErrClosed = errors.New("accountant closed")

// InvalidCostError is returned for a requested cost that is NaN, infinite or
// not positive. No state changes.
type InvalidCostError struct {
	Op   string
	Cost float64
}

// Error implements the error interface.
func (e *InvalidCostError) Error() string {
	return fmt.Sprintf("invalid privacy cost %v for %s: must be finite and positive", e.Cost, e.Op)
}
