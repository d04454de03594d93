package config

import "time"

// ConfigBuilder provides a fluent API for building Config instances in tests.
// It starts with default values and allows selective overrides.
type ConfigBuilder struct {
	cfg Config
}

// NewTestConfig creates a new ConfigBuilder with sensible defaults for testing.
// The resulting configuration is valid and can be used immediately.
func NewTestConfig() *ConfigBuilder {
	cfg := Default()
	cfg.Dataset.Values = []any{1, 2, 3}
	return &ConfigBuilder{cfg: *cfg}
}

// Build returns the built Config instance.
func (b *ConfigBuilder) Build() *Config {
	return &b.cfg
}

// WithTotalBudget sets the accountant total budget.
func (b *ConfigBuilder) WithTotalBudget(total float64) *ConfigBuilder {
	b.cfg.Accountant.TotalBudget = total
	return b
}

// WithDebug enables debug mode with the given password.
func (b *ConfigBuilder) WithDebug(password string) *ConfigBuilder {
	b.cfg.Accountant.DebugMode = true
	b.cfg.Accountant.DebugPassword = password
	return b
}

// WithMechanism sets the mechanism kind and delta.
func (b *ConfigBuilder) WithMechanism(kind string, delta float64) *ConfigBuilder {
	b.cfg.Mechanism.Kind = kind
	b.cfg.Mechanism.Delta = delta
	return b
}

// WithLedgerBackend sets the ledger backend.
func (b *ConfigBuilder) WithLedgerBackend(backend string) *ConfigBuilder {
	b.cfg.Ledger.Backend = backend
	return b
}

// WithListenAddress sets the server listen address.
func (b *ConfigBuilder) WithListenAddress(addr string) *ConfigBuilder {
	b.cfg.Server.ListenAddress = addr
	return b
}

// WithReadTimeout sets the server read timeout.
func (b *ConfigBuilder) WithReadTimeout(d time.Duration) *ConfigBuilder {
	b.cfg.Server.ReadTimeout = d
	return b
}

// WithLogLevel sets the logging level.
func (b *ConfigBuilder) WithLogLevel(level string) *ConfigBuilder {
	b.cfg.Telemetry.Logging.Level = level
	return b
}
