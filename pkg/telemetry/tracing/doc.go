// Package tracing provides OpenTelemetry distributed tracing for Epsilon.
//
// # Overview
//
// Every accountant operation (mean, count, release, filter, reset) runs in a
// span carrying the requested, effective and recorded privacy cost. HTTP
// requests are wrapped in a server span by HTTPMiddleware, which also joins
// any W3C trace context sent by the caller:
//
//	traceparent: 00-4bf92f3577b34da6a3ce929d0e0e4736-00f067aa0ba902b7-01
//
// # Sampling Strategies
//
// Three sampling strategies are supported:
//   - always: Sample all traces
//   - never: Sample no traces
//   - ratio: Sample a fraction of traces by trace ID
//
// All samplers respect the parent's sampling decision.
//
// # Export
//
// Spans are exported to an OTLP gRPC collector. The connection is made
// lazily; an unreachable collector drops spans but never blocks a release.
//
//	telemetry:
//	  tracing:
//	    enabled: true
//	    endpoint: localhost:4317
//	    sampler: ratio
//	    sample_ratio: 0.1
//	    otlp:
//	      insecure: true
//
// When tracing is disabled a noop tracer is used. Tests construct a Tracer
// with NewWithExporter and an in-memory exporter.
package tracing
