package mechanism

import (
	"context"

	"mercator-hq/epsilon/pkg/dataset"
)

// Operation names a mechanism call.
type Operation string

// Operations understood by NoiseEngine.
const (
	OpLoad    Operation = "load"
	OpToFloat Operation = "to_float"
	OpFilter  Operation = "filter"
	OpDrop    Operation = "drop"
	OpMean    Operation = "mean"
	OpCount   Operation = "count"
	OpSum     Operation = "sum"
)

// Engine is the differential-privacy collaborator.
type Engine interface {
	// Begin opens a new session.
	Begin(ctx context.Context) (Session, error)
}

// Session brackets a unit of work against an Engine.
//
// The expected order is: any number of Load, ToFloat, Filter, Drop and Submit calls,
// then End, then Commit. Abort discards pending work at any point.
type Session interface {
	// Load registers a dataset with the engine.
	Load(ds *dataset.Dataset) (Handle, error)

	// ToFloat derives a single-column handle holding column cast to numbers.
	// An empty column selects the first one. The derived handle lives only
	// until the session commits or aborts.
	ToFloat(h Handle, column string) (Handle, error)

	// Filter derives a handle restricted to rows where mask is true.
	Filter(h Handle, mask []bool, opts FilterOptions) (Handle, error)

	// Drop releases h once the session commits without error. Abort keeps it.
	Drop(h Handle) error

	// Submit queues a privacy-consuming request. Validation errors are
	// returned immediately; evaluation happens on Commit.
	Submit(req Request) (*Release, error)

	// End closes the session to further calls.
	End() error

	// Commit evaluates every queued request. It requires End.
	Commit(ctx context.Context) error

	// Abort discards the session.
	Abort()
}

// Handle refers to a dataset held by an engine. The zero Handle is invalid.
type Handle struct {
	id uint64
}

// NewHandle returns the handle for an engine-assigned id. Engines must not
// issue id 0.
func NewHandle(id uint64) Handle {
	return Handle{id: id}
}

// ID returns the engine-assigned id.
func (h Handle) ID() uint64 {
	return h.id
}

// IsZero reports whether h was never issued.
func (h Handle) IsZero() bool {
	return h.id == 0
}

// Request is a single privacy-consuming call.
type Request struct {
	// Op is the statistic to compute.
	Op Operation

	// Data is the dataset to compute it over.
	Data Handle

	// Column selects a column; empty means the first one.
	Column string

	// Usage is the privacy cost the caller is willing to spend.
	Usage Usage

	// Params carries statistic-specific arguments.
	Params Params
}

// Params holds optional statistic arguments.
type Params struct {
	// Lower and Upper bound each record's contribution.
	Lower float64
	Upper float64

	// N is the assumed number of records. Zero means use the actual row count.
	N int

	// Extra carries engine-specific options.
	Extra map[string]any
}

// FilterOptions narrows the output of Filter.
type FilterOptions struct {
	// Columns keeps only the listed columns. Empty keeps all.
	Columns []string
}
