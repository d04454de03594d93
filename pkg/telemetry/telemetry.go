package telemetry

import (
	"context"
	"errors"
	"fmt"
	"io"

	"mercator-hq/epsilon/pkg/config"
	"mercator-hq/epsilon/pkg/telemetry/health"
	"mercator-hq/epsilon/pkg/telemetry/logging"
	"mercator-hq/epsilon/pkg/telemetry/metrics"
	"mercator-hq/epsilon/pkg/telemetry/tracing"
)

// Options adjusts how New builds the telemetry stack.
type Options struct {
	// Writer receives log output. Default: os.Stdout.
	Writer io.Writer

	// Secrets are literal values masked in every log record.
	Secrets []string
}

// Telemetry bundles the logger, metrics collector, tracer and health
// checker built from one TelemetryConfig.
type Telemetry struct {
	logger  *logging.Logger
	metrics *metrics.Collector
	tracer  *tracing.Tracer
	health  *health.Checker
}

// New builds the telemetry stack. Shutdown must be called when done.
func New(cfg *config.TelemetryConfig, opts Options) (*Telemetry, error) {
	if cfg == nil {
		return nil, errors.New("telemetry config is nil")
	}

	logger, err := logging.New(logging.Config{
		Level:          cfg.Logging.Level,
		Format:         cfg.Logging.Format,
		AddSource:      cfg.Logging.AddSource,
		RedactPII:      cfg.Logging.RedactPII,
		RedactPatterns: cfg.Logging.RedactPatterns,
		Secrets:        opts.Secrets,
		Writer:         opts.Writer,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}

	tracer, err := tracing.New(&cfg.Tracing)
	if err != nil {
		return nil, fmt.Errorf("failed to create tracer: %w", err)
	}

	return &Telemetry{
		logger:  logger,
		metrics: metrics.NewCollector(&cfg.Metrics, nil),
		tracer:  tracer,
		health:  health.New(cfg.Health.CheckTimeout),
	}, nil
}

// Logger returns the redacting logger.
func (t *Telemetry) Logger() *logging.Logger { return t.logger }

// Metrics returns the metrics collector.
func (t *Telemetry) Metrics() *metrics.Collector { return t.metrics }

// Tracer returns the tracer.
func (t *Telemetry) Tracer() *tracing.Tracer { return t.tracer }

// Health returns the health checker.
func (t *Telemetry) Health() *health.Checker { return t.health }

// Shutdown flushes pending spans and syncs the log writer.
func (t *Telemetry) Shutdown(ctx context.Context) error {
	return errors.Join(
		t.tracer.Shutdown(ctx),
		t.logger.Shutdown(),
	)
}
