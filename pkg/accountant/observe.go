package accountant

import (
	"context"
	"time"

	"mercator-hq/epsilon/pkg/ledger"
)

// Metrics receives accounting events. *metrics.Collector implements it.
type Metrics interface {
	// RecordRelease records a privacy-consuming call. outcome is "charged",
	// "exhausted" or "error".
	RecordRelease(op, outcome string, recorded float64, d time.Duration)

	// RecordClamp records a request reduced to the remaining budget.
	RecordClamp(op string)

	// RecordOverReport records an engine reporting more usage than granted.
	RecordOverReport(op string, excess float64)

	// UpdateBudget publishes the current figures.
	UpdateBudget(used, total float64)

	// RecordReset records a reset attempt.
	RecordReset(ok bool)
}

// Journal receives ledger entries. *recorder.Recorder implements it.
type Journal interface {
	Record(ctx context.Context, entry *ledger.Entry) error
}

type nopMetrics struct{}

func (nopMetrics) RecordRelease(string, string, float64, time.Duration) {}
func (nopMetrics) RecordClamp(string) {}
func (nopMetrics) RecordOverReport(string, float64) {}
func (nopMetrics) UpdateBudget(float64, float64) {}
func (nopMetrics) RecordReset(bool) {}

type nopJournal struct{}

func (nopJournal) Record(context.Context, *ledger.Entry) error { return nil }
