// Package config defines service configuration and its loading.
package config

import (
	"fmt"
	"runtime"
	"strings"
)

// Store drivers.
const (
	DriverMemory   = "memory"
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`
	// LogJSON switches log records to JSON.
	LogJSON bool `koanf:"log_json"`

	// Addr configures the HTTP listen address, e.g. ":8080".
	Addr string `koanf:"addr"`

	// QueueSize bounds the in-memory mutation queue.
	QueueSize int `koanf:"queue_size"`

	// WorkerCount sets the number of scoring workers.
	WorkerCount int `koanf:"worker_count"`

	// DedupeSize bounds the delivery id window used to drop redeliveries.
	DedupeSize int `koanf:"dedupe_size"`

	// StoreDriver selects the repository backend: memory, sqlite or postgres.
	StoreDriver string `koanf:"store_driver"`
	// StoreDSN is the connection string for sqlite and postgres.
	StoreDSN string `koanf:"store_dsn"`

	// BatchLimit is the maximum number of writes in one batch.
	BatchLimit int `koanf:"batch_limit"`

	// TeamLookupConcurrency bounds parallel team reads during a ranking pass.
	TeamLookupConcurrency int `koanf:"team_lookup_concurrency"`

	// NATSURL enables the NATS mutation subscriber when set.
	NATSURL        string `koanf:"nats_url"`
	NATSSubject    string `koanf:"nats_subject"`
	NATSQueueGroup string `koanf:"nats_queue_group"`

	// AdminRatePerSec and AdminBurst limit the bulk admin endpoints.
	AdminRatePerSec float64 `koanf:"admin_rate_per_sec"`
	AdminBurst      int     `koanf:"admin_burst"`

	// SeedFile is a YAML file of teams and events loaded at startup.
	SeedFile string `koanf:"seed_file"`
}

// New returns a Config populated with defaults.
func New() *Config {
	return &Config{
		LogLevel:              "info",
		Addr:                  ":9080",
		QueueSize:             10_000,
		WorkerCount:           runtime.NumCPU(),
		DedupeSize:            100_000,
		StoreDriver:           DriverMemory,
		BatchLimit:            500,
		TeamLookupConcurrency: 16,
		NATSSubject:           "wodboard.results.mutated",
		NATSQueueGroup:        "wodboard-engine",
		AdminRatePerSec:       2,
		AdminBurst:            4,
	}
}

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	switch {
	case c.Addr == "":
		return fmt.Errorf("%w: addr must not be empty", ErrInvalidConfig)
	case c.QueueSize <= 0:
		return fmt.Errorf("%w: queue_size must be positive", ErrInvalidConfig)
	case c.WorkerCount <= 0:
		return fmt.Errorf("%w: worker_count must be positive", ErrInvalidConfig)
	case c.BatchLimit <= 0:
		return fmt.Errorf("%w: batch_limit must be positive", ErrInvalidConfig)
	case c.TeamLookupConcurrency <= 0:
		return fmt.Errorf("%w: team_lookup_concurrency must be positive", ErrInvalidConfig)
	case c.AdminRatePerSec <= 0 || c.AdminBurst <= 0:
		return fmt.Errorf("%w: admin rate and burst must be positive", ErrInvalidConfig)
	}

	c.StoreDriver = strings.ToLower(strings.TrimSpace(c.StoreDriver))
	switch c.StoreDriver {
	case DriverMemory:
	case DriverSQLite:
		if c.StoreDSN == "" {
			c.StoreDSN = "file:wodboard.db?cache=shared"
		}
	case DriverPostgres:
		if c.StoreDSN == "" {
			return fmt.Errorf("%w: store_dsn is required for postgres", ErrInvalidConfig)
		}
	default:
		return fmt.Errorf("%w: unknown store_driver %q", ErrInvalidConfig, c.StoreDriver)
	}
	return nil
}
