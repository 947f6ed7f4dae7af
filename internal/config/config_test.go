package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	require.Equal(t, DefaultDBPath, cfg.Database.Path)
	require.True(t, cfg.Database.WALMode)
	require.Equal(t, DefaultPollInterval, cfg.Queue.PollInterval)
	require.Equal(t, DefaultBatchSize, cfg.Queue.BatchSize)
	require.Equal(t, DefaultLogLevel, cfg.Logging.Level)
	require.NoError(t, Validate(cfg))
}

func TestLoadFromFile(t *testing.T) {
	tmpDir := t.TempDir()
	path := filepath.Join(tmpDir, "caseflow.yaml")

	content := `
database:
  path: /tmp/jobs.db
queue:
  poll_interval: 5s
  batch_size: 25
logging:
  level: debug
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := LoadFromFile(path)
	require.NoError(t, err)
	require.Equal(t, "/tmp/jobs.db", cfg.Database.Path)
	require.Equal(t, 5*time.Second, cfg.Queue.PollInterval)
	require.Equal(t, 25, cfg.Queue.BatchSize)
	require.Equal(t, "debug", cfg.Logging.Level)

	// Unset keys fall back to defaults.
	require.Equal(t, DefaultRetention, cfg.Queue.Retention)
}

func TestLoadEnvOverride(t *testing.T) {
	t.Setenv("CASEFLOW_LOGGING_LEVEL", "warn")

	cfg, err := Load(LoadOptions{})
	require.NoError(t, err)
	require.Equal(t, "warn", cfg.Logging.Level)
}

func TestValidateRejectsBadValues(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"empty db path", func(c *Config) { c.Database.Path = "" }},
		{"zero poll interval", func(c *Config) { c.Queue.PollInterval = 0 }},
		{"zero batch size", func(c *Config) { c.Queue.BatchSize = 0 }},
		{"zero attempts", func(c *Config) { c.Queue.MaxAttempts = 0 }},
		{"negative backoff", func(c *Config) { c.Queue.RetryBackoff = -time.Second }},
		{"bad log level", func(c *Config) { c.Logging.Level = "loud" }},
		{"bad log format", func(c *Config) { c.Logging.Format = "xml" }},
		{"metrics without addr", func(c *Config) { c.Metrics.Enabled = true; c.Metrics.Addr = "" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			require.ErrorIs(t, Validate(cfg), ErrInvalidConfig)
		})
	}
}
