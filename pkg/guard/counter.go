package guard

import (
	"fmt"
	"math"
	"strconv"
	"sync/atomic"
)

// Counter is a float64 that anyone may read but only the owning key may
// write.
//
// Counter is safe for concurrent use; writes are atomic.
type Counter struct {
	owner *Key
	field string
	bits  atomic.Uint64
}

// NewCounter returns a zeroed counter owned by owner.
func NewCounter(owner *Key, field string) *Counter {
	return &Counter{owner: owner, field: field}
}

// Load returns the current value.
func (c *Counter) Load() float64 {
	return math.Float64frombits(c.bits.Load())
}

// Add adds delta to the counter and returns the new value.
func (c *Counter) Add(k *Key, delta float64) (float64, error) {
	if !c.owns(k) {
		return c.Load(), denied(c.field, "write")
	}

	for {
		old := c.bits.Load()
		next := math.Float64frombits(old) + delta
		if c.bits.CompareAndSwap(old, math.Float64bits(next)) {
			return next, nil
		}
	}
}

// Store overwrites the counter.
func (c *Counter) Store(k *Key, v float64) error {
	if !c.owns(k) {
		return denied(c.field, "write")
	}
	c.bits.Store(math.Float64bits(v))
	return nil
}

// Reset sets the counter back to zero.
func (c *Counter) Reset(k *Key) error {
	return c.Store(k, 0)
}

func (c *Counter) owns(k *Key) bool {
	return k != nil && c.owner == k
}

// String renders the public value.
func (c *Counter) String() string {
	return strconv.FormatFloat(c.Load(), 'g', -1, 64)
}

// Format renders the public value without exposing the owner key.
func (c *Counter) Format(f fmt.State, verb rune) {
	_, _ = f.Write([]byte(c.String()))
}

// MarshalJSON encodes the public value.
func (c *Counter) MarshalJSON() ([]byte, error) {
	v := c.Load()
	if math.IsInf(v, 0) || math.IsNaN(v) {
		return nil, fmt.Errorf("counter %q holds non-finite value", c.field)
	}
	return []byte(c.String()), nil
}
