// Package health provides liveness, readiness and version endpoints.
//
// Liveness only reports that the process is running. Readiness runs every
// registered check concurrently, each bounded by the checker's timeout, and
// reports "degraded" with a 503 when any of them fails. An exhausted budget
// does not make the service unready; releases simply return 409.
//
// The serve command registers two checks:
//
//	checker := health.New(cfg.Telemetry.Health.CheckTimeout)
//	checker.RegisterCheck("accountant", health.PingCheck("accountant", acct))
//	checker.RegisterCheck("ledger", health.PingCheck("ledger", store))
//	health.Register(mux, checker, cfg.Telemetry.Health, versionInfo)
package health
