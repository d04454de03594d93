package logging

import (
	"context"
	"log/slog"

	"go.opentelemetry.io/otel/trace"
)

// Context keys for common log fields.
type contextKey string

const (
	// RequestIDKey is the context key for request IDs.
	RequestIDKey contextKey = "request_id"

	// RemoteAddrKey is the context key for the client address.
	RemoteAddrKey contextKey = "remote_addr"
)

// WithRequestID adds a request ID to the context.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, RequestIDKey, requestID)
}

// GetRequestID retrieves the request ID from the context.
func GetRequestID(ctx context.Context) string {
	if requestID, ok := ctx.Value(RequestIDKey).(string); ok {
		return requestID
	}
	return ""
}

// WithRemoteAddr adds a client address to the context.
func WithRemoteAddr(ctx context.Context, addr string) context.Context {
	return context.WithValue(ctx, RemoteAddrKey, addr)
}

// GetRemoteAddr retrieves the client address from the context.
func GetRemoteAddr(ctx context.Context) string {
	if addr, ok := ctx.Value(RemoteAddrKey).(string); ok {
		return addr
	}
	return ""
}

// contextAttrs extracts log fields from ctx. Trace and span IDs come from
// the active OpenTelemetry span, if any.
func contextAttrs(ctx context.Context) []slog.Attr {
	if ctx == nil {
		return nil
	}

	var attrs []slog.Attr
	if v := GetRequestID(ctx); v != "" {
		attrs = append(attrs, slog.String("request_id", v))
	}
	if v := GetRemoteAddr(ctx); v != "" {
		attrs = append(attrs, slog.String("remote_addr", v))
	}
	if sc := trace.SpanContextFromContext(ctx); sc.IsValid() {
		attrs = append(attrs,
			slog.String("trace_id", sc.TraceID().String()),
			slog.String("span_id", sc.SpanID().String()),
		)
	}
	return attrs
}

// extractContextFields is contextAttrs as key-value pairs for With.
func extractContextFields(ctx context.Context) []any {
	attrs := contextAttrs(ctx)
	fields := make([]any, 0, len(attrs))
	for _, a := range attrs {
		fields = append(fields, a)
	}
	return fields
}
