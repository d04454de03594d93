package accountant

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"sync"
	"time"

	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"mercator-hq/epsilon/pkg/dataset"
	"mercator-hq/epsilon/pkg/guard"
	"mercator-hq/epsilon/pkg/mechanism"
)

// Source selects which dataset a call reads.
type Source string

const (
	// SourceDataset is the dataset the Accountant was built with.
	SourceDataset Source = "dataset"

	// SourceFiltered is the view produced by the last successful Filter.
	SourceFiltered Source = "filtered"
)

// Target names the data a statistic is computed over. The zero Target is the
// first column of the original dataset.
type Target struct {
	Source Source
	Column string
}

// MeanParams are the arguments to Mean.
type MeanParams struct {
	Lower float64
	Upper float64
	N     int
	Extra map[string]any
}

// CountParams are the arguments to Count.
type CountParams struct {
	Extra map[string]any
}

// FilterOptions narrows the output of Filter.
type FilterOptions = mechanism.FilterOptions

// Accountant tracks privacy-budget expenditure over a single dataset.
//
// Accountant is safe for concurrent use.
type Accountant struct {
	key     *guard.Key
	engine  mechanism.Engine
	dataset *guard.Box[mechanism.Handle]
	view    *guard.Box[mechanism.Handle]
	used    *guard.Counter
	total   float64

	admin  AdminConfig
	strict bool
	slack  float64

	logger  *slog.Logger
	metrics Metrics
	tracer  trace.Tracer
	journal Journal
	now     func() time.Time

	mu     sync.Mutex
	closed bool
}

// New builds an Accountant over data. data may be a column mapping
// (map[string][]T) or a flat sequence ([]T); anything else fails with a
// *dataset.UnsupportedShapeError. The dataset is registered with engine
// inside a begin/end session.
func New(ctx context.Context, engine mechanism.Engine, data any, opts ...Option) (*Accountant, error) {
	if engine == nil {
		return nil, fmt.Errorf("accountant: engine is nil")
	}

	ds, err := dataset.New(data)
	if err != nil {
		return nil, err
	}

	key := guard.NewKey()
	a := &Accountant{
		key:     key,
		engine:  engine,
		used:    guard.NewCounter(key, "used_budget"),
		total:   DefaultTotalBudget,
		slack:   DefaultReportingSlack,
		logger:  slog.Default(),
		metrics: nopMetrics{},
		tracer:  noop.NewTracerProvider().Tracer("accountant"),
		journal: nopJournal{},
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(a)
	}
	a.logger = a.logger.With("component", "accountant")

	if math.IsNaN(a.total) || math.IsInf(a.total, 0) || a.total < 0 {
		return nil, fmt.Errorf("accountant: total budget must be finite and non-negative, got %v", a.total)
	}
	if math.IsNaN(a.slack) || a.slack < 0 {
		return nil, fmt.Errorf("accountant: reporting slack must be non-negative, got %v", a.slack)
	}

	sess, err := engine.Begin(ctx)
	if err != nil {
		return nil, err
	}
	h, err := sess.Load(ds)
	if err != nil {
		sess.Abort()
		return nil, err
	}
	vh, err := sess.Load(dataset.Empty())
	if err != nil {
		sess.Abort()
		return nil, err
	}
	if err := sess.End(); err != nil {
		sess.Abort()
		return nil, err
	}
	if err := sess.Commit(ctx); err != nil {
		return nil, err
	}

	a.dataset = guard.Seal(key, "dataset", h)
	a.view = guard.Seal(key, "filtered_view", vh)

	a.metrics.UpdateBudget(0, a.total)
	a.logger.Debug("accountant initialized",
		"total_budget", a.total,
		"rows", ds.Rows(),
		"columns", len(ds.Columns()),
		"strict_accounting", a.strict,
	)

	return a, nil
}

// Used returns the consumed budget.
func (a *Accountant) Used() float64 {
	return a.used.Load()
}

// Total returns the declared total budget.
func (a *Accountant) Total() float64 {
	return a.total
}

// Remaining returns the unspent budget, never below zero.
func (a *Accountant) Remaining() float64 {
	return a.remaining(a.used.Load())
}

// remaining treats a leftover smaller than any epsilon the engine accepts as
// spent.
func (a *Accountant) remaining(used float64) float64 {
	r := a.total - used
	if r < mechanism.MinEpsilon {
		return 0
	}
	return r
}

// Snapshot is a point-in-time view of the public accounting figures.
type Snapshot struct {
	Total     float64 `json:"total" yaml:"total"`
	Used      float64 `json:"used" yaml:"used"`
	Remaining float64 `json:"remaining" yaml:"remaining"`
	Exhausted bool    `json:"exhausted" yaml:"exhausted"`
	Strict    bool    `json:"strict_accounting" yaml:"strict_accounting"`
}

// Snapshot returns the current public accounting figures.
func (a *Accountant) Snapshot() Snapshot {
	used := a.used.Load()
	remaining := a.remaining(used)
	return Snapshot{
		Total:     a.total,
		Used:      used,
		Remaining: remaining,
		Exhausted: remaining <= 0,
		Strict:    a.strict,
	}
}

// Close stops the Accountant. Later calls fail with ErrClosed. If the
// journal has a Close method it is called, flushing pending ledger writes.
func (a *Accountant) Close() error {
	a.mu.Lock()
	if a.closed {
		a.mu.Unlock()
		return nil
	}
	a.closed = true
	a.mu.Unlock()

	if c, ok := a.journal.(interface{ Close() error }); ok {
		return c.Close()
	}
	return nil
}

// Ping reports whether the Accountant still accepts calls. It returns
// ErrClosed after Close.
func (a *Accountant) Ping(ctx context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.closed {
		return ErrClosed
	}
	return ctx.Err()
}

// Permissible returns the cost a call may spend: the request itself, or the
// remaining budget when the request would overdraw it.
func Permissible(used, total, requested float64) float64 {
	if math.Abs(used-total) < requested {
		return total - used
	}
	return requested
}

// handle opens the handle for a target. Caller must hold a.mu.
func (a *Accountant) handle(t Target) (mechanism.Handle, error) {
	switch t.Source {
	case "", SourceDataset:
		return a.dataset.Open(a.key)
	case SourceFiltered:
		return a.view.Open(a.key)
	default:
		return mechanism.Handle{}, fmt.Errorf("accountant: unknown source %q", t.Source)
	}
}
