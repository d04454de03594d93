package tracing

import (
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Attribute keys used on Epsilon spans. Custom keys use the "epsilon.*"
// namespace; HTTP keys follow OpenTelemetry semantic conventions.
const (
	// Accountant attributes
	AttrOperation     = "epsilon.operation"
	AttrSource        = "epsilon.source"
	AttrCostRequested = "epsilon.cost.requested"
	AttrCostEffective = "epsilon.cost.effective"
	AttrCostRecorded  = "epsilon.cost.recorded"
	AttrClamped       = "epsilon.cost.clamped"
	AttrMaskLength    = "epsilon.filter.mask_length"
	AttrColumns       = "epsilon.filter.columns"

	// Request attributes
	AttrRequestID = "epsilon.request_id"

	// HTTP attributes
	AttrHTTPMethod     = "http.method"
	AttrHTTPRoute      = "http.route"
	AttrHTTPStatusCode = "http.status_code"
)

// SetRequestAttributes records the request ID on the span.
func SetRequestAttributes(span trace.Span, requestID string) {
	if requestID == "" {
		return
	}
	span.SetAttributes(attribute.String(AttrRequestID, requestID))
}

// SetHTTPStatus records the response status code on the span.
func SetHTTPStatus(span trace.Span, status int) {
	span.SetAttributes(attribute.Int(AttrHTTPStatusCode, status))
}

// AddEvent adds an event to the span with optional attributes.
func AddEvent(span trace.Span, name string, attrs ...attribute.KeyValue) {
	span.AddEvent(name, trace.WithAttributes(attrs...))
}
