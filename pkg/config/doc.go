// Package config provides configuration management for Epsilon.
//
// This package handles loading, validating, and watching configuration from
// YAML files with environment variable overrides.
//
// # Configuration Loading
//
//	cfg, err := config.LoadConfig("epsilon.yaml")
//	cfg, err := config.LoadConfigWithEnvOverrides("epsilon.yaml")
//
// The file is decoded on top of Default, so fields missing from the file
// keep their defaults while explicit zeroes (total_budget: 0,
// metrics.enabled: false) are honored. Unknown fields are rejected.
//
// # Environment Variable Overrides
//
// Environment variables follow the naming convention EPSILON_SECTION_FIELD:
//
//   - EPSILON_ACCOUNTANT_DEBUG_PW overrides accountant.debug_pw
//   - EPSILON_LEDGER_BACKEND overrides ledger.backend
//   - EPSILON_TELEMETRY_LOGGING_LEVEL overrides telemetry.logging.level
//
// # Validation
//
// Validate collects every failure into a ValidationError holding one
// FieldError per problem, keyed by the dotted YAML path.
//
// # Hot Reload
//
// Watcher reloads the file when it changes. The serve command applies only
// the logging level from a reload; budget, admin and dataset settings are
// fixed for the life of the process.
package config
