package accountant

import (
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/trace"
)

// DefaultTotalBudget is the total budget used when none is given.
const DefaultTotalBudget = 10

// DefaultReportingSlack is how far an engine may over-report actual usage
// before the accountant flags it.
const DefaultReportingSlack = 1e-9

// AdminConfig authorizes Reset. Reset succeeds only when DebugMode is true and
// the credential equals DebugPassword.
type AdminConfig struct {
	DebugPassword string
	DebugMode     bool
}

// Option configures an Accountant.
type Option func(*Accountant)

// WithTotalBudget sets the total budget. Default: 10.
func WithTotalBudget(total float64) Option {
	return func(a *Accountant) { a.total = total }
}

// WithAdmin sets the Reset authorization.
func WithAdmin(admin AdminConfig) Option {
	return func(a *Accountant) { a.admin = admin }
}

// WithStrictAccounting caps each recorded cost at the effective request
// instead of trusting the engine's report.
func WithStrictAccounting(strict bool) Option {
	return func(a *Accountant) { a.strict = strict }
}

// WithReportingSlack sets the over-report tolerance. Default: 1e-9.
func WithReportingSlack(slack float64) Option {
	return func(a *Accountant) { a.slack = slack }
}

// WithLogger sets the logger. Default: slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(a *Accountant) {
		if logger != nil {
			a.logger = logger
		}
	}
}

// WithMetrics sets the metrics sink.
func WithMetrics(m Metrics) Option {
	return func(a *Accountant) {
		if m != nil {
			a.metrics = m
		}
	}
}

// WithTracer sets the tracer used for per-call spans.
func WithTracer(t trace.Tracer) Option {
	return func(a *Accountant) {
		if t != nil {
			a.tracer = t
		}
	}
}

// WithJournal sets the ledger journal.
func WithJournal(j Journal) Option {
	return func(a *Accountant) {
		if j != nil {
			a.journal = j
		}
	}
}

// WithClock overrides time.Now for ledger timestamps.
func WithClock(now func() time.Time) Option {
	return func(a *Accountant) {
		if now != nil {
			a.now = now
		}
	}
}
