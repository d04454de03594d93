package accountant

import (
	"encoding/json"
	"fmt"
)

// String reports only the public accounting figures.
func (a *Accountant) String() string {
	s := a.Snapshot()
	return fmt.Sprintf("Accountant{total: %g, used: %g, remaining: %g}", s.Total, s.Used, s.Remaining)
}

// GoString keeps %#v from walking the private fields.
func (a *Accountant) GoString() string {
	return a.String()
}

// Format routes every verb through String so no verb exposes internal state.
func (a *Accountant) Format(f fmt.State, verb rune) {
	switch verb {
	case 'q':
		fmt.Fprintf(f, "%q", a.String())
	default:
		fmt.Fprint(f, a.String())
	}
}

// MarshalJSON encodes the Snapshot.
func (a *Accountant) MarshalJSON() ([]byte, error) {
	return json.Marshal(a.Snapshot())
}

// MarshalYAML encodes the Snapshot.
func (a *Accountant) MarshalYAML() (any, error) {
	return a.Snapshot(), nil
}
