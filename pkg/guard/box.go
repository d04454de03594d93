package guard

import (
	"fmt"
	"sync"
)

const redacted = "<protected>"

// Box holds a value that only the owning key can read or replace.
//
// Box is safe for concurrent use.
type Box[T any] struct {
	owner *Key
	field string

	mu sync.RWMutex
	v  T
}

// Seal wraps v so that only owner can open it. Sealing with a nil key
// produces a box nobody can open.
func Seal[T any](owner *Key, field string, v T) *Box[T] {
	return &Box[T]{owner: owner, field: field, v: v}
}

// Open returns the sealed value if k is the owning key.
func (b *Box[T]) Open(k *Key) (T, error) {
	var zero T
	if b == nil {
		return zero, denied("", "read")
	}
	if !b.owns(k) {
		return zero, denied(b.field, "read")
	}

	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.v, nil
}

// Replace swaps the sealed value if k is the owning key.
func (b *Box[T]) Replace(k *Key, v T) error {
	if b == nil {
		return denied("", "write")
	}
	if !b.owns(k) {
		return denied(b.field, "write")
	}

	b.mu.Lock()
	b.v = v
	b.mu.Unlock()
	return nil
}

// Field returns the name the box was sealed under.
func (b *Box[T]) Field() string {
	return b.field
}

func (b *Box[T]) owns(k *Key) bool {
	return k != nil && b.owner == k
}

// String implements fmt.Stringer without revealing the value.
func (b *Box[T]) String() string {
	return redacted
}

// GoString implements fmt.GoStringer without revealing the value.
func (b *Box[T]) GoString() string {
	return redacted
}

// Format implements fmt.Formatter so that %v, %+v, %#v and %s never walk
// the struct through reflection.
func (b *Box[T]) Format(f fmt.State, verb rune) {
	_, _ = f.Write([]byte(redacted))
}

// MarshalJSON refuses to serialize the sealed value.
func (b *Box[T]) MarshalJSON() ([]byte, error) {
	return nil, denied(b.field, "marshal")
}

// MarshalYAML refuses to serialize the sealed value.
func (b *Box[T]) MarshalYAML() (interface{}, error) {
	return nil, denied(b.field, "marshal")
}

// MarshalText refuses to serialize the sealed value.
func (b *Box[T]) MarshalText() ([]byte, error) {
	return nil, denied(b.field, "marshal")
}

// GobEncode refuses to serialize the sealed value.
func (b *Box[T]) GobEncode() ([]byte, error) {
	return nil, denied(b.field, "marshal")
}
