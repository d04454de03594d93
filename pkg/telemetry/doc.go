// Package telemetry provides observability for Epsilon.
//
// # Components
//
//   - logging: Structured logging with secret and PII redaction
//   - metrics: Prometheus metrics for budget, ledger and HTTP
//   - tracing: OpenTelemetry distributed tracing
//   - health: Liveness, readiness and version endpoints
//
// # Usage
//
//	tel, err := telemetry.New(&cfg.Telemetry, telemetry.Options{
//		Secrets: []string{cfg.Accountant.DebugPassword},
//	})
//	defer tel.Shutdown(ctx)
//
//	acct, err := accountant.New(ctx, engine, data,
//		accountant.WithLogger(tel.Logger().Slog()),
//		accountant.WithMetrics(tel.Metrics()),
//		accountant.WithTracer(tel.Tracer().Tracer()),
//	)
//
// The debug password is passed as a secret so it is masked in every log
// record even when PII redaction is off.
package telemetry
