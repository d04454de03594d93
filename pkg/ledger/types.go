package ledger

import (
	"context"
	"time"
)

// Outcome classifies a ledger entry.
type Outcome string

const (
	// OutcomeCharged marks a statistic that was released and charged.
	OutcomeCharged Outcome = "charged"

	// OutcomeExhausted marks a request refused because no budget remained.
	OutcomeExhausted Outcome = "exhausted"

	// OutcomeReset marks a successful budget reset.
	OutcomeReset Outcome = "reset"

	// OutcomeRefused marks a reset attempt that was not authorized.
	OutcomeRefused Outcome = "refused"
)

// Entry is a single ledger record.
type Entry struct {
	// Identity
	ID        string `json:"id"`                   // UUID v4
	RequestID string `json:"request_id,omitempty"` // From the HTTP layer, if any

	// What happened
	Operation string  `json:"operation"` // "mean", "count", "reset", ...
	Outcome   Outcome `json:"outcome"`

	// Costs, all in epsilon
	Requested float64 `json:"requested"` // What the caller asked for
	Effective float64 `json:"effective"` // After clamping to the remaining budget
	Actual    float64 `json:"actual"`    // What the engine reported
	Recorded  float64 `json:"recorded"`  // What was added to usage
	Clamped   bool    `json:"clamped"`   // Effective < Requested

	// Budget after the operation
	UsedAfter float64 `json:"used_after"`
	Total     float64 `json:"total"`

	Timestamp time.Time `json:"timestamp"`
}

// Query defines filter parameters for ledger lookups.
type Query struct {
	// Time range, both inclusive
	StartTime *time.Time `json:"start_time,omitempty"`
	EndTime   *time.Time `json:"end_time,omitempty"`

	// Filters
	Operation string  `json:"operation,omitempty"`
	Outcome   Outcome `json:"outcome,omitempty"`

	// Pagination
	Limit  int `json:"limit,omitempty"`
	Offset int `json:"offset,omitempty"`

	// SortOrder is "asc" or "desc" on Timestamp. Default: desc.
	SortOrder string `json:"sort_order,omitempty"`
}

// Storage defines the interface for ledger storage backends.
// Implementations must be safe for concurrent use.
type Storage interface {
	// Append persists an entry.
	Append(ctx context.Context, entry *Entry) error

	// Query returns entries matching the query, newest first unless the
	// query asks otherwise.
	Query(ctx context.Context, query *Query) ([]*Entry, error)

	// Count returns the number of entries matching the query.
	Count(ctx context.Context, query *Query) (int64, error)

	// Delete removes entries matching the query and returns how many were
	// removed. Pagination fields are ignored.
	Delete(ctx context.Context, query *Query) (int64, error)

	// Ping reports whether the backend is usable.
	Ping(ctx context.Context) error

	// Close releases any resources held by the backend.
	Close() error
}
