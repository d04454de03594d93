package config

import (
	"errors"
	"math"
	"strings"
	"testing"
	"time"
)

func TestValidate_ValidConfig(t *testing.T) {
	if err := Validate(NewTestConfig().Build()); err != nil {
		t.Errorf("expected valid config to pass validation, got error: %v", err)
	}
}

func TestValidate_MultipleErrors(t *testing.T) {
	cfg := NewTestConfig().
		WithTotalBudget(-1).
		WithMechanism("exponential", 0).
		WithListenAddress("").
		Build()

	err := Validate(cfg)
	if err == nil {
		t.Fatal("expected validation to fail")
	}

	var validationErr ValidationError
	if !errors.As(err, &validationErr) {
		t.Fatalf("expected ValidationError, got %T", err)
	}
	if len(validationErr.Errors) != 3 {
		t.Errorf("expected 3 errors, got %d: %v", len(validationErr.Errors), validationErr.Errors)
	}
	if !strings.Contains(validationErr.Error(), "validation failed with 3 errors") {
		t.Errorf("error message should mention multiple errors: %s", validationErr.Error())
	}
}

func TestValidate_Fields(t *testing.T) {
	tests := []struct {
		name      string
		mutate    func(*Config)
		wantField string
	}{
		{"negative budget", func(c *Config) { c.Accountant.TotalBudget = -0.5 }, "accountant.total_budget"},
		{"infinite budget", func(c *Config) { c.Accountant.TotalBudget = math.Inf(1) }, "accountant.total_budget"},
		{"negative slack", func(c *Config) { c.Accountant.ReportingSlack = -1 }, "accountant.reporting_slack"},
		{"debug mode without password", func(c *Config) { c.Accountant.DebugMode = true }, "accountant.debug_pw"},
		{
			name: "values and columns together",
			mutate: func(c *Config) {
				c.Dataset.Columns = map[string][]any{"a": {1, 2, 3}}
			},
			wantField: "dataset",
		},
		{
			name: "ragged columns",
			mutate: func(c *Config) {
				c.Dataset.Values = nil
				c.Dataset.Columns = map[string][]any{"a": {1, 2}, "b": {1}}
			},
			wantField: "dataset.columns.b",
		},
		{"unknown mechanism", func(c *Config) { c.Mechanism.Kind = "exponential" }, "mechanism.kind"},
		{"laplace with delta", func(c *Config) { c.Mechanism.Delta = 0.1 }, "mechanism.delta"},
		{"gaussian without delta", func(c *Config) { c.Mechanism.Kind = "gaussian" }, "mechanism.delta"},
		{"unknown backend", func(c *Config) { c.Ledger.Backend = "postgres" }, "ledger.backend"},
		{
			name: "bad sqlite driver",
			mutate: func(c *Config) {
				c.Ledger.Backend = "sqlite"
				c.Ledger.SQLite.Driver = "pgx"
			},
			wantField: "ledger.sqlite.driver",
		},
		{"bad cron", func(c *Config) { c.Ledger.Retention.Schedule = "every day" }, "ledger.retention.schedule"},
		{"negative retention", func(c *Config) { c.Ledger.Retention.Days = -1 }, "ledger.retention.days"},
		{"excessive retention", func(c *Config) { c.Ledger.Retention.Days = 4000 }, "ledger.retention.days"},
		{
			name: "default limit above max",
			mutate: func(c *Config) {
				c.Ledger.Query.DefaultLimit = 500
				c.Ledger.Query.MaxLimit = 100
			},
			wantField: "ledger.query.default_limit",
		},
		{"listen address without port", func(c *Config) { c.Server.ListenAddress = "localhost" }, "server.listen_address"},
		{"negative read timeout", func(c *Config) { c.Server.ReadTimeout = -time.Second }, "server.read_timeout"},
		{"negative body limit", func(c *Config) { c.Server.MaxBodyBytes = -1 }, "server.max_body_bytes"},
		{"bad log level", func(c *Config) { c.Telemetry.Logging.Level = "trace" }, "telemetry.logging.level"},
		{"bad log format", func(c *Config) { c.Telemetry.Logging.Format = "xml" }, "telemetry.logging.format"},
		{"relative metrics path", func(c *Config) { c.Telemetry.Metrics.Path = "metrics" }, "telemetry.metrics.path"},
		{
			name:      "unsorted buckets",
			mutate:    func(c *Config) { c.Telemetry.Metrics.DurationBuckets = []float64{1, 0.5} },
			wantField: "telemetry.metrics.duration_buckets",
		},
		{"tracing without endpoint", func(c *Config) { c.Telemetry.Tracing.Enabled = true }, "telemetry.tracing.endpoint"},
		{"bad sampler", func(c *Config) { c.Telemetry.Tracing.Sampler = "sometimes" }, "telemetry.tracing.sampler"},
		{"ratio above one", func(c *Config) { c.Telemetry.Tracing.SampleRatio = 1.5 }, "telemetry.tracing.sample_ratio"},
		{"relative readiness path", func(c *Config) { c.Telemetry.Health.ReadinessPath = "ready" }, "telemetry.health.readiness_path"},
		{"long check timeout", func(c *Config) { c.Telemetry.Health.CheckTimeout = 2 * time.Minute }, "telemetry.health.check_timeout"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := NewTestConfig().Build()
			tt.mutate(cfg)

			err := Validate(cfg)
			if err == nil {
				t.Fatalf("expected error for field %s", tt.wantField)
			}
			var vErr ValidationError
			if !errors.As(err, &vErr) {
				t.Fatalf("expected ValidationError, got %T", err)
			}
			if !vErr.Has(tt.wantField) {
				t.Errorf("expected error for field %s, got %v", tt.wantField, vErr.Errors)
			}
		})
	}
}

func TestValidate_AcceptedVariants(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero budget", func(c *Config) { c.Accountant.TotalBudget = 0 }},
		{"debug mode with password", func(c *Config) { c.Accountant.DebugMode, c.Accountant.DebugPassword = true, "pw" }},
		{"gaussian", func(c *Config) { c.Mechanism.Kind, c.Mechanism.Delta = "gaussian", 1e-5 }},
		{"no ledger", func(c *Config) { c.Ledger.Backend = "none" }},
		{"sqlite via mattn", func(c *Config) { c.Ledger.Backend, c.Ledger.SQLite.Driver = "sqlite", "sqlite3" }},
		{"retention forever", func(c *Config) { c.Ledger.Retention.Days = 0 }},
		{"console logs", func(c *Config) { c.Telemetry.Logging.Format = "console" }},
		{"tracing with endpoint", func(c *Config) {
			c.Telemetry.Tracing.Enabled = true
			c.Telemetry.Tracing.Endpoint = "localhost:4317"
		}},
		{"health disabled with empty paths", func(c *Config) {
			c.Telemetry.Health.Enabled = false
			c.Telemetry.Health.LivenessPath = ""
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := NewTestConfig().Build()
			tt.mutate(cfg)
			if err := Validate(cfg); err != nil {
				t.Errorf("expected valid config, got %v", err)
			}
		})
	}
}

func TestFieldError_Error(t *testing.T) {
	err := FieldError{Field: "accountant.debug_pw", Message: "required"}
	if err.Error() != "accountant.debug_pw: required" {
		t.Errorf("Expected %q, got %q", "accountant.debug_pw: required", err.Error())
	}
}
