package config

import (
	"fmt"
)

var validLogLevels = map[string]bool{
	"trace": true,
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

var validLogFormats = map[string]bool{
	"console": true,
	"json":    true,
}

// Validate checks a Config for values that would break the runtime.
func Validate(cfg *Config) error {
	if cfg.Database.Path == "" {
		return fmt.Errorf("%w: database.path must not be empty", ErrInvalidConfig)
	}

	if cfg.Queue.PollInterval <= 0 {
		return fmt.Errorf("%w: queue.poll_interval must be positive", ErrInvalidConfig)
	}
	if cfg.Queue.BatchSize <= 0 {
		return fmt.Errorf("%w: queue.batch_size must be positive", ErrInvalidConfig)
	}
	if cfg.Queue.MaxAttempts < 1 {
		return fmt.Errorf("%w: queue.max_attempts must be at least 1", ErrInvalidConfig)
	}
	if cfg.Queue.RetryBackoff < 0 {
		return fmt.Errorf("%w: queue.retry_backoff must not be negative", ErrInvalidConfig)
	}

	if !validLogLevels[cfg.Logging.Level] {
		return fmt.Errorf("%w: logging.level %q is not one of trace, debug, info, warn, error", ErrInvalidConfig, cfg.Logging.Level)
	}
	if !validLogFormats[cfg.Logging.Format] {
		return fmt.Errorf("%w: logging.format %q is not one of console, json", ErrInvalidConfig, cfg.Logging.Format)
	}

	if cfg.Metrics.Enabled && cfg.Metrics.Addr == "" {
		return fmt.Errorf("%w: metrics.addr must be set when metrics are enabled", ErrInvalidConfig)
	}

	return nil
}
