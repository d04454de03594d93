// Package metrics provides Prometheus metrics for Epsilon.
//
// A Collector owns its own registry and groups metrics into three
// subsystems:
//
//   - budget: used, total and remaining gauges; releases by operation and
//     outcome; clamps, over-reports and resets
//   - ledger: storage writes and retention pruning
//   - http: request count, duration and in-flight gauge
//
// Collector satisfies the accountant's Metrics interface and the ledger
// recorder's OnWrite hook:
//
//	collector := metrics.NewCollector(&cfg.Telemetry.Metrics, nil)
//	rec := recorder.NewRecorder(store, &recorder.Config{OnWrite: collector.RecordLedgerWrite})
//	acct, _ := accountant.New(ctx, engine, data,
//		accountant.WithMetrics(collector),
//		accountant.WithJournal(rec),
//	)
//	mux.Handle(cfg.Telemetry.Metrics.Path, collector.Handler())
//
// The HTTP route label is capped at 100 distinct values; later routes are
// reported as "other".
package metrics
