package metrics

import (
	"time"

	"mercator-hq/epsilon/pkg/config"

	"github.com/prometheus/client_golang/prometheus"
)

// LedgerMetrics tracks the audit ledger.
//
// Metrics:
//   - epsilon_ledger_writes_total: Storage writes by result
//   - epsilon_ledger_write_duration_seconds: Storage write latency
//   - epsilon_ledger_pruned_total: Entries removed by retention
type LedgerMetrics struct {
	writesTotal   *prometheus.CounterVec
	writeDuration prometheus.Histogram
	prunedTotal   prometheus.Counter
}

// NewLedgerMetrics creates and registers ledger metrics with the provided registry.
func NewLedgerMetrics(cfg *config.MetricsConfig, registry *prometheus.Registry) *LedgerMetrics {
	lm := &LedgerMetrics{
		writesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: "ledger",
				Name:      "writes_total",
				Help:      "Ledger storage writes by result",
			},
			[]string{"result"},
		),

		writeDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: cfg.Namespace,
				Subsystem: "ledger",
				Name:      "write_duration_seconds",
				Help:      "Duration of ledger storage writes in seconds",
				Buckets:   cfg.DurationBuckets,
			},
		),

		prunedTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: "ledger",
				Name:      "pruned_total",
				Help:      "Ledger entries removed by retention",
			},
		),
	}

	registry.MustRegister(
		lm.writesTotal,
		lm.writeDuration,
		lm.prunedTotal,
	)

	return lm
}

// RecordWrite records one storage write.
func (lm *LedgerMetrics) RecordWrite(err error, d time.Duration) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	lm.writesTotal.WithLabelValues(result).Inc()
	lm.writeDuration.Observe(d.Seconds())
}

// RecordPruned records entries removed by retention.
func (lm *LedgerMetrics) RecordPruned(n int64) {
	if n > 0 {
		lm.prunedTotal.Add(float64(n))
	}
}
