package metrics

import (
	"net/http"
	"sync"
	"time"

	"mercator-hq/epsilon/pkg/config"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// Release outcomes reported by the accountant.
const (
	OutcomeCharged   = "charged"
	OutcomeExhausted = "exhausted"
	OutcomeError     = "error"
)

// Collector is the main orchestrator for all Prometheus metrics in Epsilon.
// It owns a private registry, so several collectors can coexist in one
// process (one per test, for example).
//
// Collector implements the accountant's Metrics interface. Every method is a
// no-op when metrics are disabled.
type Collector struct {
	config   *config.MetricsConfig
	registry *prometheus.Registry

	budgetMetrics  *BudgetMetrics
	ledgerMetrics  *LedgerMetrics
	requestMetrics *RequestMetrics

	// Cardinality tracking for the HTTP route label
	cardinalityLimiter *CardinalityLimiter
}

// NewCollector creates a new metrics collector with the specified
// configuration. If registry is nil, a new registry carrying the Go runtime
// and process collectors is created.
//
// Example:
//
//	collector := metrics.NewCollector(&cfg.Telemetry.Metrics, nil)
//	acct, err := accountant.New(ctx, engine, data, accountant.WithMetrics(collector))
func NewCollector(cfg *config.MetricsConfig, registry *prometheus.Registry) *Collector {
	if registry == nil {
		registry = prometheus.NewRegistry()
		registry.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
	}

	c := *cfg
	if c.Namespace == "" {
		c.Namespace = config.DefaultMetricsNamespace
	}
	if c.Path == "" {
		c.Path = config.DefaultPrometheusPath
	}
	if len(c.DurationBuckets) == 0 {
		c.DurationBuckets = config.DefaultDurationBuckets
	}

	return &Collector{
		config:             &c,
		registry:           registry,
		budgetMetrics:      NewBudgetMetrics(&c, registry),
		ledgerMetrics:      NewLedgerMetrics(&c, registry),
		requestMetrics:     NewRequestMetrics(&c, registry),
		cardinalityLimiter: NewCardinalityLimiter(100),
	}
}

// RecordRelease records a privacy-consuming call.
//
// Parameters:
//   - op: Operation name ("mean", "count", ...)
//   - outcome: "charged", "exhausted" or "error"
//   - recorded: Cost added to the used budget
//   - d: Call duration
func (c *Collector) RecordRelease(op, outcome string, recorded float64, d time.Duration) {
	if !c.config.Enabled {
		return
	}
	c.budgetMetrics.RecordRelease(op, outcome, recorded, d)
}

// RecordClamp records a request reduced to the remaining budget.
func (c *Collector) RecordClamp(op string) {
	if !c.config.Enabled {
		return
	}
	c.budgetMetrics.RecordClamp(op)
}

// RecordOverReport records an engine reporting more usage than granted.
func (c *Collector) RecordOverReport(op string, excess float64) {
	if !c.config.Enabled {
		return
	}
	c.budgetMetrics.RecordOverReport(op, excess)
}

// UpdateBudget publishes the used and total budget.
func (c *Collector) UpdateBudget(used, total float64) {
	if !c.config.Enabled {
		return
	}
	c.budgetMetrics.UpdateBudget(used, total)
}

// RecordReset records a reset attempt.
func (c *Collector) RecordReset(ok bool) {
	if !c.config.Enabled {
		return
	}
	c.budgetMetrics.RecordReset(ok)
}

// RecordLedgerWrite records one ledger storage write. Its signature matches
// the recorder's OnWrite hook.
func (c *Collector) RecordLedgerWrite(err error, d time.Duration) {
	if !c.config.Enabled {
		return
	}
	c.ledgerMetrics.RecordWrite(err, d)
}

// RecordLedgerPruned records entries removed by retention.
func (c *Collector) RecordLedgerPruned(n int64) {
	if !c.config.Enabled {
		return
	}
	c.ledgerMetrics.RecordPruned(n)
}

// RecordRequest records metrics for a completed HTTP request. Routes past
// the cardinality limit are folded into "other".
func (c *Collector) RecordRequest(route, method string, code int, duration time.Duration) {
	if !c.config.Enabled {
		return
	}
	if !c.cardinalityLimiter.Allow(route) {
		route = "other"
	}
	c.requestMetrics.RecordRequest(route, method, code, duration)
}

// Middleware records request count, duration and in-flight gauge for every
// request served by next. The route label is the request path.
func (c *Collector) Middleware(next http.Handler) http.Handler {
	if !c.config.Enabled {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		c.requestMetrics.InFlight(1)
		defer c.requestMetrics.InFlight(-1)

		sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(sw, r)

		c.RecordRequest(r.URL.Path, r.Method, sw.status, time.Since(start))
	})
}

// Registry returns the Prometheus registry used by this collector.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// Enabled reports whether metrics are collected.
func (c *Collector) Enabled() bool {
	return c.config.Enabled
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

func (w *statusWriter) Unwrap() http.ResponseWriter {
	return w.ResponseWriter
}

// CardinalityLimiter prevents metric cardinality explosion by limiting
// the number of unique label values.
type CardinalityLimiter struct {
	maxCardinality int
	current        map[string]struct{}
	mu             sync.RWMutex
}

// NewCardinalityLimiter creates a new cardinality limiter with the specified
// maximum cardinality.
func NewCardinalityLimiter(maxCardinality int) *CardinalityLimiter {
	return &CardinalityLimiter{
		maxCardinality: maxCardinality,
		current:        make(map[string]struct{}),
	}
}

// Allow checks if a label set is allowed. Returns true if the label set
// already exists or if we haven't reached the cardinality limit yet.
// Returns false if adding this label set would exceed the limit.
func (cl *CardinalityLimiter) Allow(labelSet string) bool {
	cl.mu.RLock()
	if _, exists := cl.current[labelSet]; exists {
		cl.mu.RUnlock()
		return true
	}
	cl.mu.RUnlock()

	cl.mu.Lock()
	defer cl.mu.Unlock()

	// Double-check after acquiring write lock
	if _, exists := cl.current[labelSet]; exists {
		return true
	}

	if len(cl.current) >= cl.maxCardinality {
		return false
	}

	cl.current[labelSet] = struct{}{}
	return true
}

// Count returns the current cardinality.
func (cl *CardinalityLimiter) Count() int {
	cl.mu.RLock()
	defer cl.mu.RUnlock()
	return len(cl.current)
}
