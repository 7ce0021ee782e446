// Package config loads armlens settings from the environment. Flags
// on individual commands override these values per request.
package config

import (
	"fmt"

	"github.com/caarlos0/env/v8"
)

// Config carries the write-guard limits and ambient settings. The
// write flags are read once at request start and passed into the core
// by value; nothing here is consulted as global mutable state.
type Config struct {
	EnableWrites bool   `env:"ARMLENS_ENABLE_WRITES" envDefault:"false" json:"enableWrites" jsonschema:"title=Enable Writes,description=Allow mutating operations (renames and comments)"`
	MaxWrites    int    `env:"ARMLENS_MAX_WRITES" envDefault:"8" json:"maxWrites" jsonschema:"title=Max Writes,description=Write tokens available to one request"`
	MaxItems     int    `env:"ARMLENS_MAX_ITEMS" envDefault:"256" json:"maxItems" jsonschema:"title=Max Items,description=Slots one batch request may visit"`
	AuditLog     string `env:"ARMLENS_AUDIT_LOG" envDefault:"armlens-audit.jsonl" json:"auditLog" jsonschema:"title=Audit Log,description=Path of the JSONL audit trail"`
	LogLevel     string `env:"ARMLENS_LOG_LEVEL" envDefault:"info" json:"logLevel" jsonschema:"title=Log Level,description=debug info warn or error"`
}

// Load parses the environment and validates the limits.
func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse environment: %w", err)
	}
	if cfg.MaxWrites < 0 || cfg.MaxItems <= 0 {
		return Config{}, fmt.Errorf("invalid limits: max writes %d, max items %d", cfg.MaxWrites, cfg.MaxItems)
	}
	return cfg, nil
}
