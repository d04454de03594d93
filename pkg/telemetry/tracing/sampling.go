package tracing

import (
	"fmt"
	"strings"

	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

// Sampler names accepted in telemetry.tracing.sampler.
const (
	// SamplerAlways samples every trace.
	SamplerAlways = "always"

	// SamplerNever samples nothing.
	SamplerNever = "never"

	// SamplerRatio samples the configured fraction of traces by trace ID.
	SamplerRatio = "ratio"

	// SamplerCharges always samples accountant spans and samples everything
	// else by ratio. Every budget charge is traced even when HTTP traffic is
	// sampled lightly.
	SamplerCharges = "charges"
)

// AccountantSpanPrefix prefixes the names of spans started by the
// accountant ("accountant.mean", "accountant.filter", ...).
const AccountantSpanPrefix = "accountant."

// createSampler builds the sampler for strategy. Every strategy respects
// the parent's decision when there is one; SamplerCharges overrides it for
// accountant spans.
//
//	telemetry:
//	  tracing:
//	    sampler: charges
//	    sample_ratio: 0.05
func createSampler(strategy string, ratio float64) (sdktrace.Sampler, error) {
	switch strategy {
	case SamplerAlways:
		return sdktrace.ParentBased(sdktrace.AlwaysSample()), nil
	case SamplerNever:
		return sdktrace.ParentBased(sdktrace.NeverSample()), nil
	case SamplerRatio, SamplerCharges:
	default:
		return nil, fmt.Errorf("unknown sampler strategy: %s (valid: always, never, ratio, charges)", strategy)
	}

	if ratio < 0.0 || ratio > 1.0 {
		return nil, fmt.Errorf("sample ratio must be between 0.0 and 1.0, got %f", ratio)
	}

	base := sdktrace.ParentBased(sdktrace.TraceIDRatioBased(ratio))
	if strategy == SamplerRatio {
		return base, nil
	}
	return chargeSampler{fallback: base}, nil
}

// chargeSampler records every accountant span and defers to fallback for
// the rest.
type chargeSampler struct {
	fallback sdktrace.Sampler
}

func (s chargeSampler) ShouldSample(p sdktrace.SamplingParameters) sdktrace.SamplingResult {
	if strings.HasPrefix(p.Name, AccountantSpanPrefix) {
		return sdktrace.AlwaysSample().ShouldSample(p)
	}
	return s.fallback.ShouldSample(p)
}

func (s chargeSampler) Description() string {
	return fmt.Sprintf("ChargeSampler{%s}", s.fallback.Description())
}
