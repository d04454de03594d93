package config

import "time"

// Default values for configuration fields.
const (
	// Accountant defaults
	DefaultTotalBudget    = 10.0
	DefaultReportingSlack = 1e-9

	// Mechanism defaults
	DefaultMechanismKind = "laplace"

	// Ledger defaults
	DefaultLedgerBackend            = "memory"
	DefaultLedgerSQLitePath         = "data/ledger.db"
	DefaultLedgerSQLiteDriver       = "sqlite"
	DefaultLedgerSQLiteBusyTimeout  = 5 * time.Second
	DefaultLedgerSQLiteCheckpoint   = 5 * time.Minute
	DefaultLedgerMemoryMaxEntries   = 10000
	DefaultLedgerRecorderBuffer     = 1000
	DefaultLedgerRecorderEnqueue    = time.Second
	DefaultLedgerRecorderWrite      = 5 * time.Second
	DefaultLedgerRetentionDays      = 90
	DefaultLedgerRetentionSchedule  = "0 3 * * *"
	DefaultLedgerQueryDefaultLimit  = 100
	DefaultLedgerQueryMaxLimit      = 1000

	// Server defaults
	DefaultListenAddress   = "127.0.0.1:8080"
	DefaultReadTimeout     = 30 * time.Second
	DefaultWriteTimeout    = 30 * time.Second
	DefaultIdleTimeout     = 120 * time.Second
	DefaultShutdownTimeout = 30 * time.Second
	DefaultMaxHeaderBytes  = 1048576  // 1MB
	DefaultMaxBodyBytes    = 10485760 // 10MB

	// Telemetry defaults
	DefaultLoggingLevel        = "info"
	DefaultLoggingFormat       = "json"
	DefaultLoggingRedactPII    = true
	DefaultMetricsEnabled      = true
	DefaultPrometheusPath      = "/metrics"
	DefaultMetricsNamespace    = "epsilon"
	DefaultTracingEnabled      = false
	DefaultTracingSampler      = "ratio"
	DefaultTracingSamplingRate = 1.0
	DefaultTracingExporter     = "otlp"
	DefaultTracingServiceName  = "epsilon"
	DefaultOTLPTimeout         = 10 * time.Second
	DefaultHealthEnabled       = true
	DefaultLivenessPath        = "/health"
	DefaultReadinessPath       = "/ready"
	DefaultVersionPath         = "/version"
	DefaultHealthCheckTimeout  = 5 * time.Second
)

// DefaultDurationBuckets are the default histogram buckets, in seconds.
var DefaultDurationBuckets = []float64{0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1}

// Default returns a Config with every default applied, including the
// boolean and numeric defaults that ApplyDefaults cannot tell apart from an
// explicit zero. LoadConfig decodes the file on top of it, so fields absent
// from the file keep these values.
func Default() *Config {
	cfg := &Config{
		Accountant: AccountantConfig{
			TotalBudget:    DefaultTotalBudget,
			ReportingSlack: DefaultReportingSlack,
		},
		Ledger: LedgerConfig{
			Retention: RetentionConfig{
				Days: DefaultLedgerRetentionDays,
			},
		},
		Telemetry: TelemetryConfig{
			Logging: LoggingConfig{
				RedactPII: DefaultLoggingRedactPII,
			},
			Metrics: MetricsConfig{
				Enabled: DefaultMetricsEnabled,
			},
			Tracing: TracingConfig{
				Enabled:     DefaultTracingEnabled,
				SampleRatio: DefaultTracingSamplingRate,
			},
			Health: HealthConfig{
				Enabled: DefaultHealthEnabled,
			},
		},
	}
	ApplyDefaults(cfg)
	return cfg
}

// ApplyDefaults applies default values to a Config struct.
// It sets defaults for string, duration and size fields that have zero
// values. Booleans, the total budget and the retention period are left
// alone since their zero values are meaningful; use Default for those.
// This function is idempotent and safe to call multiple times.
func ApplyDefaults(cfg *Config) {
	// Accountant defaults
	if cfg.Accountant.ReportingSlack == 0 {
		cfg.Accountant.ReportingSlack = DefaultReportingSlack
	}

	// Mechanism defaults
	if cfg.Mechanism.Kind == "" {
		cfg.Mechanism.Kind = DefaultMechanismKind
	}

	applyLedgerDefaults(&cfg.Ledger)

	// Server defaults
	if cfg.Server.ListenAddress == "" {
		cfg.Server.ListenAddress = DefaultListenAddress
	}
	if cfg.Server.ReadTimeout == 0 {
		cfg.Server.ReadTimeout = DefaultReadTimeout
	}
	if cfg.Server.WriteTimeout == 0 {
		cfg.Server.WriteTimeout = DefaultWriteTimeout
	}
	if cfg.Server.IdleTimeout == 0 {
		cfg.Server.IdleTimeout = DefaultIdleTimeout
	}
	if cfg.Server.ShutdownTimeout == 0 {
		cfg.Server.ShutdownTimeout = DefaultShutdownTimeout
	}
	if cfg.Server.MaxHeaderBytes == 0 {
		cfg.Server.MaxHeaderBytes = DefaultMaxHeaderBytes
	}
	if cfg.Server.MaxBodyBytes == 0 {
		cfg.Server.MaxBodyBytes = DefaultMaxBodyBytes
	}

	applyTelemetryDefaults(&cfg.Telemetry)
}

func applyLedgerDefaults(cfg *LedgerConfig) {
	if cfg.Backend == "" {
		cfg.Backend = DefaultLedgerBackend
	}
	if cfg.SQLite.Path == "" {
		cfg.SQLite.Path = DefaultLedgerSQLitePath
	}
	if cfg.SQLite.Driver == "" {
		cfg.SQLite.Driver = DefaultLedgerSQLiteDriver
	}
	if cfg.SQLite.BusyTimeout == 0 {
		cfg.SQLite.BusyTimeout = DefaultLedgerSQLiteBusyTimeout
	}
	if cfg.SQLite.CheckpointInterval == 0 {
		cfg.SQLite.CheckpointInterval = DefaultLedgerSQLiteCheckpoint
	}
	if cfg.Memory.MaxEntries == 0 {
		cfg.Memory.MaxEntries = DefaultLedgerMemoryMaxEntries
	}
	if cfg.Recorder.AsyncBuffer == 0 {
		cfg.Recorder.AsyncBuffer = DefaultLedgerRecorderBuffer
	}
	if cfg.Recorder.EnqueueTimeout == 0 {
		cfg.Recorder.EnqueueTimeout = DefaultLedgerRecorderEnqueue
	}
	if cfg.Recorder.WriteTimeout == 0 {
		cfg.Recorder.WriteTimeout = DefaultLedgerRecorderWrite
	}
	if cfg.Retention.Schedule == "" {
		cfg.Retention.Schedule = DefaultLedgerRetentionSchedule
	}
	if cfg.Query.DefaultLimit == 0 {
		cfg.Query.DefaultLimit = DefaultLedgerQueryDefaultLimit
	}
	if cfg.Query.MaxLimit == 0 {
		cfg.Query.MaxLimit = DefaultLedgerQueryMaxLimit
	}
}

func applyTelemetryDefaults(cfg *TelemetryConfig) {
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = DefaultLoggingLevel
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = DefaultLoggingFormat
	}
	if cfg.Metrics.Path == "" {
		cfg.Metrics.Path = DefaultPrometheusPath
	}
	if cfg.Metrics.Namespace == "" {
		cfg.Metrics.Namespace = DefaultMetricsNamespace
	}
	if len(cfg.Metrics.DurationBuckets) == 0 {
		cfg.Metrics.DurationBuckets = append([]float64(nil), DefaultDurationBuckets...)
	}
	if cfg.Tracing.Sampler == "" {
		cfg.Tracing.Sampler = DefaultTracingSampler
	}
	if cfg.Tracing.Exporter == "" {
		cfg.Tracing.Exporter = DefaultTracingExporter
	}
	if cfg.Tracing.ServiceName == "" {
		cfg.Tracing.ServiceName = DefaultTracingServiceName
	}
	if cfg.Tracing.OTLP.Timeout == 0 {
		cfg.Tracing.OTLP.Timeout = DefaultOTLPTimeout
	}
	if cfg.Health.LivenessPath == "" {
		cfg.Health.LivenessPath = DefaultLivenessPath
	}
	if cfg.Health.ReadinessPath == "" {
		cfg.Health.ReadinessPath = DefaultReadinessPath
	}
	if cfg.Health.VersionPath == "" {
		cfg.Health.VersionPath = DefaultVersionPath
	}
	if cfg.Health.CheckTimeout == 0 {
		cfg.Health.CheckTimeout = DefaultHealthCheckTimeout
	}
}
