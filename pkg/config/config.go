package config

import "time"

// Config is the root configuration structure for Epsilon.
// It holds the accountant settings, the inline dataset, the mechanism
// selection, the ledger, the HTTP server and telemetry.
type Config struct {
	// Accountant contains the budget and admin settings.
	Accountant AccountantConfig `yaml:"accountant"`

	// Dataset is the inline dataset the accountant guards.
	Dataset DatasetConfig `yaml:"dataset"`

	// Mechanism selects the noise engine.
	Mechanism MechanismConfig `yaml:"mechanism"`

	// Ledger contains the audit journal configuration.
	Ledger LedgerConfig `yaml:"ledger"`

	// Server contains HTTP server configuration for the serve command.
	Server ServerConfig `yaml:"server"`

	// Telemetry contains logging, metrics, tracing and health configuration.
	Telemetry TelemetryConfig `yaml:"telemetry"`
}

// AccountantConfig contains budget accounting configuration.
type AccountantConfig struct {
	// TotalBudget is the declared total privacy budget (epsilon).
	// Zero is valid and means every privacy-consuming call is refused.
	// Default: 10
	TotalBudget float64 `yaml:"total_budget"`

	// DebugPassword authorizes Reset when DebugMode is on.
	// It is always masked in logs.
	DebugPassword string `yaml:"debug_pw"`

	// DebugMode enables Reset.
	// Default: false
	DebugMode bool `yaml:"debug_mode"`

	// StrictAccounting caps each recorded cost at the granted cost.
	// Default: false
	StrictAccounting bool `yaml:"strict_accounting"`

	// ReportingSlack is how far a mechanism may over-report usage before a
	// warning is logged.
	// Default: 1e-9
	ReportingSlack float64 `yaml:"reporting_slack"`
}

// DatasetConfig holds an inline dataset. Exactly one of Values or Columns
// must be set.
type DatasetConfig struct {
	// Values is a flat sequence, loaded as a single column.
	Values []any `yaml:"values"`

	// Columns maps column names to equal-length sequences.
	Columns map[string][]any `yaml:"columns"`
}

// Data returns the dataset in a shape accepted by accountant.New.
func (d DatasetConfig) Data() any {
	if len(d.Columns) > 0 {
		return d.Columns
	}
	return d.Values
}

// MechanismConfig selects and tunes the noise engine.
type MechanismConfig struct {
	// Kind is the noise distribution.
	// Options: "laplace", "gaussian"
	// Default: "laplace"
	Kind string `yaml:"kind"`

	// Delta is the delta parameter for the gaussian mechanism.
	// Must be 0 for laplace.
	Delta float64 `yaml:"delta"`
}

// LedgerConfig contains audit journal configuration.
type LedgerConfig struct {
	// Backend selects the storage backend.
	// Options: "memory", "sqlite", "none"
	// Default: "memory"
	Backend string `yaml:"backend"`

	// SQLite contains SQLite backend settings.
	SQLite LedgerSQLiteConfig `yaml:"sqlite"`

	// Memory contains in-memory backend settings.
	Memory LedgerMemoryConfig `yaml:"memory"`

	// Recorder contains async recorder settings.
	Recorder RecorderConfig `yaml:"recorder"`

	// Retention contains pruning settings.
	Retention RetentionConfig `yaml:"retention"`

	// Query contains read limits for the ledger endpoints and commands.
	Query QueryConfig `yaml:"query"`
}

// LedgerSQLiteConfig contains SQLite-specific configuration.
type LedgerSQLiteConfig struct {
	// Path is the file path for the SQLite database.
	// Default: "data/ledger.db"
	Path string `yaml:"path"`

	// Driver selects the database/sql driver.
	// Options: "sqlite" (modernc.org/sqlite), "sqlite3" (github.com/mattn/go-sqlite3)
	// Default: "sqlite"
	Driver string `yaml:"driver"`

	// BusyTimeout is the duration to wait when the database is locked.
	// Default: 5s
	BusyTimeout time.Duration `yaml:"busy_timeout"`

	// CheckpointInterval is how often the WAL is checkpointed.
	// Default: 5m
	CheckpointInterval time.Duration `yaml:"checkpoint_interval"`
}

// LedgerMemoryConfig contains in-memory backend configuration.
type LedgerMemoryConfig struct {
	// MaxEntries is the maximum number of entries kept. Oldest are evicted.
	// Default: 10000
	MaxEntries int `yaml:"max_entries"`
}

// RecorderConfig contains async recorder configuration.
type RecorderConfig struct {
	// AsyncBuffer is the size of the async write channel buffer.
	// Default: 1000
	AsyncBuffer int `yaml:"async_buffer"`

	// EnqueueTimeout is how long Record waits for buffer space.
	// Default: 1s
	EnqueueTimeout time.Duration `yaml:"enqueue_timeout"`

	// WriteTimeout is the maximum duration for a single storage write.
	// Default: 5s
	WriteTimeout time.Duration `yaml:"write_timeout"`
}

// RetentionConfig contains ledger retention configuration.
type RetentionConfig struct {
	// Days is how long entries are kept. 0 keeps entries forever.
	// Default: 90
	Days int `yaml:"days"`

	// Schedule is the cron expression for pruning.
	// Default: "0 3 * * *"
	Schedule string `yaml:"schedule"`

	// MaxEntries keeps only the newest entries. 0 is unlimited.
	// Default: 0
	MaxEntries int64 `yaml:"max_entries"`
}

// QueryConfig contains ledger read limits.
type QueryConfig struct {
	// DefaultLimit is used when a caller gives no limit.
	// Default: 100
	DefaultLimit int `yaml:"default_limit"`

	// MaxLimit caps caller-supplied limits.
	// Default: 1000
	MaxLimit int `yaml:"max_limit"`
}

// ServerConfig contains configuration for the HTTP server.
type ServerConfig struct {
	// ListenAddress is the address and port to listen on.
	// Default: "127.0.0.1:8080"
	ListenAddress string `yaml:"listen_address"`

	// ReadTimeout is the maximum duration for reading the entire request.
	// Default: 30s
	ReadTimeout time.Duration `yaml:"read_timeout"`

	// WriteTimeout is the maximum duration before timing out writes of the
	// response.
	// Default: 30s
	WriteTimeout time.Duration `yaml:"write_timeout"`

	// IdleTimeout is the maximum time to wait for the next request when
	// keep-alives are enabled.
	// Default: 120s
	IdleTimeout time.Duration `yaml:"idle_timeout"`

	// ShutdownTimeout is the maximum duration to wait for graceful shutdown.
	// Default: 30s
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`

	// MaxHeaderBytes limits request header size.
	// Default: 1048576 (1MB)
	MaxHeaderBytes int `yaml:"max_header_bytes"`

	// MaxBodyBytes limits request body size. A filter mask is one boolean
	// per row, so this bounds the largest dataset that can be filtered.
	// Default: 10485760 (10MB)
	MaxBodyBytes int64 `yaml:"max_body_bytes"`
}

// TelemetryConfig contains observability configuration.
type TelemetryConfig struct {
	// Logging contains logging configuration.
	Logging LoggingConfig `yaml:"logging"`

	// Metrics contains metrics collection configuration.
	Metrics MetricsConfig `yaml:"metrics"`

	// Tracing contains distributed tracing configuration.
	Tracing TracingConfig `yaml:"tracing"`

	// Health contains health check configuration.
	Health HealthConfig `yaml:"health"`
}

// LoggingConfig contains logging configuration.
type LoggingConfig struct {
	// Level is the minimum log level to emit. Hot-reloaded by serve.
	// Options: "debug", "info", "warn", "error"
	// Default: "info"
	Level string `yaml:"level"`

	// Format controls the log output format.
	// Options: "json", "text", "console"
	// Default: "json"
	Format string `yaml:"format"`

	// AddSource includes file and line number in log entries.
	// Default: false
	AddSource bool `yaml:"add_source"`

	// RedactPII enables pattern redaction in logs. The debug password is
	// masked regardless.
	// Default: true
	RedactPII bool `yaml:"redact_pii"`

	// RedactPatterns contains custom redaction patterns.
	RedactPatterns []RedactPattern `yaml:"redact_patterns"`
}

// RedactPattern defines a custom redaction pattern.
type RedactPattern struct {
	// Name is a descriptive name for the pattern.
	Name string `yaml:"name"`

	// Pattern is the regular expression to match.
	Pattern string `yaml:"pattern"`

	// Replacement is the string to replace matches with.
	Replacement string `yaml:"replacement"`
}

// MetricsConfig contains metrics collection configuration.
type MetricsConfig struct {
	// Enabled controls whether metrics are collected and served.
	// Default: true
	Enabled bool `yaml:"enabled"`

	// Path is the HTTP path for the Prometheus metrics endpoint.
	// Default: "/metrics"
	Path string `yaml:"path"`

	// Namespace is the metric name prefix.
	// Default: "epsilon"
	Namespace string `yaml:"namespace"`

	// DurationBuckets defines histogram buckets for durations (seconds).
	// Default: [0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1]
	DurationBuckets []float64 `yaml:"duration_buckets"`
}

// TracingConfig contains distributed tracing configuration.
type TracingConfig struct {
	// Enabled controls whether distributed tracing is active.
	// Default: false
	Enabled bool `yaml:"enabled"`

	// Sampler determines the sampling strategy.
	// Options: "always", "never", "ratio", "charges"
	// Default: "ratio"
	Sampler string `yaml:"sampler"`

	// SampleRatio is the fraction of traces to sample (0.0 to 1.0).
	// Default: 1.0
	SampleRatio float64 `yaml:"sample_ratio"`

	// Exporter determines the trace exporter to use.
	// Options: "otlp"
	// Default: "otlp"
	Exporter string `yaml:"exporter"`

	// Endpoint is the OTLP gRPC collector endpoint, e.g. "localhost:4317".
	Endpoint string `yaml:"endpoint"`

	// ServiceName is the service name in traces.
	// Default: "epsilon"
	ServiceName string `yaml:"service_name"`

	// OTLP contains OTLP exporter specific configuration.
	OTLP OTLPConfig `yaml:"otlp"`
}

// OTLPConfig contains OTLP exporter configuration.
type OTLPConfig struct {
	// Insecure disables TLS for the OTLP connection.
	// Default: false
	Insecure bool `yaml:"insecure"`

	// Timeout is the timeout for OTLP exports.
	// Default: 10s
	Timeout time.Duration `yaml:"timeout"`
}

// HealthConfig contains health check endpoint configuration.
type HealthConfig struct {
	// Enabled controls whether health check endpoints are served.
	// Default: true
	Enabled bool `yaml:"enabled"`

	// LivenessPath is the path for the liveness endpoint.
	// Default: "/health"
	LivenessPath string `yaml:"liveness_path"`

	// ReadinessPath is the path for the readiness endpoint.
	// Default: "/ready"
	ReadinessPath string `yaml:"readiness_path"`

	// VersionPath is the path for the version information endpoint.
	// Default: "/version"
	VersionPath string `yaml:"version_path"`

	// CheckTimeout is the timeout for individual component health checks.
	// Default: 5s
	CheckTimeout time.Duration `yaml:"check_timeout"`
}
