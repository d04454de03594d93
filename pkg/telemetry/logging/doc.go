// Package logging provides structured logging with secret redaction.
//
// The package wraps log/slog. A Logger writes JSON, text or console output,
// masks sensitive fields, and adds request-scoped fields from the context.
//
// # Usage
//
//	logger, err := logging.New(logging.Config{
//	    Level:     "info",
//	    Format:    "json",
//	    RedactPII: true,
//	    Secrets:   []string{cfg.Accountant.DebugPassword},
//	})
//
//	ctx = logging.WithRequestID(ctx, "req-123")
//	logger.InfoContext(ctx, "mean released", "cost", 0.5)
//
// Slog returns a *slog.Logger sharing the same handler, for packages that
// accept a plain slog logger:
//
//	acct, err := accountant.New(ctx, engine, data,
//	    accountant.WithLogger(logger.Slog()))
//
// # Redaction
//
// Values under sensitive keys (password, secret, token, credential, auth)
// are replaced with "***". String values, messages and error texts are
// scanned for registered secrets, email addresses, SSNs, bearer tokens and
// password assignments. Secrets are masked even when RedactPII is false.
//
// SetLevel changes the level of a Logger and every logger derived from it.
package logging
