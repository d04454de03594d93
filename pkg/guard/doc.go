// Package guard provides capability-based protection for sensitive fields.
//
// # Overview
//
// A value sealed in a Box can only be read or replaced by code that holds the
// Key it was sealed with. Holding a reference to the Box (or to the struct that
// contains it) is not enough. The same rule applies to writes on a Counter,
// while reads of a Counter stay public.
//
// Keys are unforgeable: their identity is a pointer created by NewKey, so the
// only way to obtain one is to be handed it by its creator. Owners keep their
// key in an unexported field and never return it.
//
// # Reflection
//
// Box and Counter refuse to be dumped through fmt verbs, encoding/json,
// gopkg.in/yaml.v3 or encoding/gob. Printing a Box yields "<protected>";
// marshaling one fails with a ProtectedAccessError.
//
// # Usage
//
//	key := guard.NewKey()
//	box := guard.Seal(key, "dataset", secret)
//
//	v, err := box.Open(key)        // ok
//	_, err = box.Open(nil)         // *ProtectedAccessError
//
//	used := guard.NewCounter(key, "used_budget")
//	_, err = used.Add(key, 0.5)    // ok
//	_, err = used.Add(other, 1)    // *ProtectedAccessError
//	total := used.Load()           // public
package guard
