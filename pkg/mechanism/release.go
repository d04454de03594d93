package mechanism

import "sync"

// Release is the pending result of a submitted request. Its value and actual
// usage become readable once the owning session commits.
type Release struct {
	op Operation

	mu    sync.RWMutex
	done  bool
	value any
	usage string
	err   error
}

// NewRelease returns an unsettled release for op. Engines call Settle on it
// when the request is evaluated.
func NewRelease(op Operation) *Release {
	return &Release{op: op}
}

// Settle records the outcome of the request. usage is the descriptor of the
// privacy usage actually consumed.
func (r *Release) Settle(value any, usage string, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.done = true
	r.value = value
	r.usage = usage
	r.err = err
}

// Value returns the released statistic.
func (r *Release) Value() (any, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if !r.done {
		return nil, opError(r.op, ErrNotReleased)
	}
	if r.err != nil {
		return nil, r.err
	}
	return r.value, nil
}

// ActualUsage returns the descriptor of the privacy usage actually consumed.
func (r *Release) ActualUsage() (string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if !r.done {
		return "", opError(r.op, ErrNotReleased)
	}
	if r.err != nil {
		return "", r.err
	}
	return r.usage, nil
}

// Float64 is a convenience for releases holding a float64.
func (r *Release) Float64() (float64, error) {
	v, err := r.Value()
	if err != nil {
		return 0, err
	}
	switch n := v.(type) {
	case float64:
		return n, nil
	case int64:
		return float64(n), nil
	default:
		return 0, opError(r.op, ErrUnsupportedOperation)
	}
}

// Int64 is a convenience for releases holding an int64.
func (r *Release) Int64() (int64, error) {
	v, err := r.Value()
	if err != nil {
		return 0, err
	}
	switch n := v.(type) {
	case int64:
		return n, nil
	case float64:
		return int64(n), nil
	default:
		return 0, opError(r.op, ErrUnsupportedOperation)
	}
}
