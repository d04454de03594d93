package metrics

import (
	"time"

	"mercator-hq/epsilon/pkg/config"

	"github.com/prometheus/client_golang/prometheus"
)

// BudgetMetrics tracks privacy-budget accounting.
//
// Metrics:
//   - epsilon_budget_used: Consumed budget
//   - epsilon_budget_total: Declared total budget
//   - epsilon_budget_remaining: Unspent budget
//   - epsilon_budget_releases_total: Privacy-consuming calls by operation and outcome
//   - epsilon_budget_release_duration_seconds: Call latency by operation
//   - epsilon_budget_recorded_cost: Recorded cost per charged call
//   - epsilon_budget_clamps_total: Requests reduced to the remaining budget
//   - epsilon_budget_over_reports_total: Engine reports above the granted cost
//   - epsilon_budget_over_report_excess_total: Sum of over-reported cost
//   - epsilon_budget_resets_total: Reset attempts by result
type BudgetMetrics struct {
	used      prometheus.Gauge
	total     prometheus.Gauge
	remaining prometheus.Gauge

	releasesTotal   *prometheus.CounterVec
	releaseDuration *prometheus.HistogramVec
	recordedCost    *prometheus.HistogramVec

	clampsTotal      *prometheus.CounterVec
	overReportsTotal *prometheus.CounterVec
	overReportExcess *prometheus.CounterVec

	resetsTotal *prometheus.CounterVec
}

// NewBudgetMetrics creates and registers budget metrics with the provided registry.
func NewBudgetMetrics(cfg *config.MetricsConfig, registry *prometheus.Registry) *BudgetMetrics {
	gauge := func(name, help string) prometheus.Gauge {
		return prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: cfg.Namespace,
			Subsystem: "budget",
			Name:      name,
			Help:      help,
		})
	}
	counter := func(name, help string, labels ...string) *prometheus.CounterVec {
		return prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: cfg.Namespace,
			Subsystem: "budget",
			Name:      name,
			Help:      help,
		}, labels)
	}

	bm := &BudgetMetrics{
		used:      gauge("used", "Privacy budget consumed"),
		total:     gauge("total", "Declared total privacy budget"),
		remaining: gauge("remaining", "Privacy budget not yet consumed"),

		releasesTotal: counter("releases_total",
			"Privacy-consuming calls by operation and outcome", "operation", "outcome"),

		releaseDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: cfg.Namespace,
				Subsystem: "budget",
				Name:      "release_duration_seconds",
				Help:      "Duration of privacy-consuming calls in seconds",
				Buckets:   cfg.DurationBuckets,
			},
			[]string{"operation"},
		),

		recordedCost: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: cfg.Namespace,
				Subsystem: "budget",
				Name:      "recorded_cost",
				Help:      "Privacy cost recorded per charged call",
				Buckets:   prometheus.ExponentialBuckets(0.001, 4, 10),
			},
			[]string{"operation"},
		),

		clampsTotal: counter("clamps_total",
			"Requests reduced to the remaining budget", "operation"),
		overReportsTotal: counter("over_reports_total",
			"Calls where the engine reported more usage than granted", "operation"),
		overReportExcess: counter("over_report_excess_total",
			"Total privacy cost reported above the granted amount", "operation"),

		resetsTotal: counter("resets_total", "Reset attempts by result", "result"),
	}

	registry.MustRegister(
		bm.used,
		bm.total,
		bm.remaining,
		bm.releasesTotal,
		bm.releaseDuration,
		bm.recordedCost,
		bm.clampsTotal,
		bm.overReportsTotal,
		bm.overReportExcess,
		bm.resetsTotal,
	)

	return bm
}

// RecordRelease records one privacy-consuming call. The recorded cost is
// only observed for charged calls.
func (bm *BudgetMetrics) RecordRelease(op, outcome string, recorded float64, d time.Duration) {
	bm.releasesTotal.WithLabelValues(op, outcome).Inc()
	bm.releaseDuration.WithLabelValues(op).Observe(d.Seconds())
	if outcome == OutcomeCharged {
		bm.recordedCost.WithLabelValues(op).Observe(recorded)
	}
}

// RecordClamp records a request reduced to the remaining budget.
func (bm *BudgetMetrics) RecordClamp(op string) {
	bm.clampsTotal.WithLabelValues(op).Inc()
}

// RecordOverReport records an engine reporting excess usage above the grant.
func (bm *BudgetMetrics) RecordOverReport(op string, excess float64) {
	bm.overReportsTotal.WithLabelValues(op).Inc()
	if excess > 0 {
		bm.overReportExcess.WithLabelValues(op).Add(excess)
	}
}

// UpdateBudget publishes the current figures.
func (bm *BudgetMetrics) UpdateBudget(used, total float64) {
	remaining := total - used
	if remaining < 0 {
		remaining = 0
	}
	bm.used.Set(used)
	bm.total.Set(total)
	bm.remaining.Set(remaining)
}

// RecordReset records a reset attempt.
func (bm *BudgetMetrics) RecordReset(ok bool) {
	result := "refused"
	if ok {
		result = "ok"
	}
	bm.resetsTotal.WithLabelValues(result).Inc()
}
