// Package config provides configuration management for Caseflow.
package config

import (
	"time"
)

// Config is the root configuration structure for Caseflow.
type Config struct {
	Database DatabaseConfig `mapstructure:"database"`
	Queue    QueueConfig    `mapstructure:"queue"`
	Logging  LoggingConfig  `mapstructure:"logging"`
	Metrics  MetricsConfig  `mapstructure:"metrics"`
}

// DatabaseConfig holds database settings.
type DatabaseConfig struct {
	// Path to SQLite database file
	Path string `mapstructure:"path"`

	// Enable WAL mode (recommended)
	WALMode bool `mapstructure:"wal_mode"`

	// Cache size in KB (negative for KB, positive for pages)
	CacheSize int `mapstructure:"cache_size"`

	// Busy timeout in milliseconds
	BusyTimeout time.Duration `mapstructure:"busy_timeout"`

	// Enable foreign keys
	ForeignKeys bool `mapstructure:"foreign_keys"`

	// Maximum open connections
	MaxOpenConns int `mapstructure:"max_open_conns"`

	// Maximum idle connections
	MaxIdleConns int `mapstructure:"max_idle_conns"`

	// Connection max lifetime
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
}

// QueueConfig holds job queue runtime settings.
type QueueConfig struct {
	// PollInterval is how often the worker polls for due jobs
	PollInterval time.Duration `mapstructure:"poll_interval"`

	// BatchSize is how many due jobs a single poll picks up
	BatchSize int `mapstructure:"batch_size"`

	// Retention is how long finished jobs are kept before the
	// expired-job sweep removes them
	Retention time.Duration `mapstructure:"retention"`

	// MaxAttempts is the default attempt budget for jobs that
	// carry no explicit retry params
	MaxAttempts int `mapstructure:"max_attempts"`

	// RetryBackoff is the fixed delay between attempts
	RetryBackoff time.Duration `mapstructure:"retry_backoff"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	// Log level (trace, debug, info, warn, error)
	Level string `mapstructure:"level"`

	// Log format (console, json)
	Format string `mapstructure:"format"`

	// Include caller information
	Caller bool `mapstructure:"caller"`

	// Include timestamps
	Timestamp bool `mapstructure:"timestamp"`
}

// MetricsConfig holds metrics endpoint settings.
type MetricsConfig struct {
	// Enable the Prometheus metrics endpoint
	Enabled bool `mapstructure:"enabled"`

	// Address to serve metrics on
	Addr string `mapstructure:"addr"`
}
