// Package middleware provides the HTTP middleware of the Epsilon server.
//
// The server applies them outermost first:
//
//	Recovery -> RequestID -> tracing -> metrics -> Logging -> Timeout -> routes
//
// RequestID stores the request ID in the context with logging.WithRequestID,
// so every log line and ledger entry written while serving the request
// carries it.
package middleware
