package config

import "time"

// Default configuration values.
const (
	// Database defaults.
	DefaultDBPath       = "caseflow.db"
	DefaultCacheSize    = -64000 // 64MB
	DefaultBusyTimeout  = 5 * time.Second
	DefaultMaxOpenConns = 1 // SQLite works best with single writer
	DefaultMaxIdleConns = 1

	// Queue defaults.
	DefaultPollInterval = 1 * time.Second
	DefaultBatchSize    = 100
	DefaultRetention    = 7 * 24 * time.Hour
	DefaultMaxAttempts  = 1
	DefaultRetryBackoff = 30 * time.Second

	// Logging defaults.
	DefaultLogLevel  = "info"
	DefaultLogFormat = "console"

	// Metrics defaults.
	DefaultMetricsAddr = "localhost:9190"
)

// Default returns a Config with sensible defaults.
func Default() *Config {
	return &Config{
		Database: DatabaseConfig{
			Path:            DefaultDBPath,
			WALMode:         true,
			CacheSize:       DefaultCacheSize,
			BusyTimeout:     DefaultBusyTimeout,
			ForeignKeys:     true,
			MaxOpenConns:    DefaultMaxOpenConns,
			MaxIdleConns:    DefaultMaxIdleConns,
			ConnMaxLifetime: 1 * time.Hour,
		},
		Queue: QueueConfig{
			PollInterval: DefaultPollInterval,
			BatchSize:    DefaultBatchSize,
			Retention:    DefaultRetention,
			MaxAttempts:  DefaultMaxAttempts,
			RetryBackoff: DefaultRetryBackoff,
		},
		Logging: LoggingConfig{
			Level:     DefaultLogLevel,
			Format:    DefaultLogFormat,
			Caller:    false,
			Timestamp: true,
		},
		Metrics: MetricsConfig{
			Enabled: false,
			Addr:    DefaultMetricsAddr,
		},
	}
}
