// Package cli implements the caseflow command-line interface.
package cli

import (
	"fmt"
	"os"
	"strings"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/caseflow/caseflow/internal/config"
)

var (
	cfgFile string
	verbose bool
)

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "caseflow",
	Short: "Scheduling engine for counselor/beneficiary case management",
	Long: `Caseflow schedules the asynchronous work of a case-management backend:

  - Appointment, session and action reminders with fixed lead times
  - At-most-once intake of partner event feeds
  - Staged notification campaigns sent in timed batches
  - A recurring job catalog (offer sweeps, digests, cleanups)

Jobs are durable in SQLite and executed by a polling worker.

Start the worker:
  caseflow worker

Rebuild the queue from scratch:
  caseflow jobs resync`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		setupLogging()
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./caseflow.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose output")
}

// loadConfig reads configuration from the file and CASEFLOW_* environment
// variables, applying defaults for anything unset.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(config.LoadOptions{ConfigFile: cfgFile})
	if err != nil {
		return nil, fmt.Errorf("loading configuration: %w", err)
	}
	return cfg, nil
}

// setupLogging configures zerolog before config is available; the worker
// re-applies the configured level and format once it has loaded config.
func setupLogging() {
	output := zerolog.ConsoleWriter{Out: os.Stderr}

	if verbose {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	} else {
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}

	log.Logger = zerolog.New(output).With().Timestamp().Logger()
}

// applyLoggingConfig reconfigures the global logger from config. The
// --verbose flag wins over the configured level.
func applyLoggingConfig(cfg config.LoggingConfig) {
	level, err := zerolog.ParseLevel(strings.ToLower(cfg.Level))
	if err != nil {
		level = zerolog.InfoLevel
	}
	if verbose {
		level = zerolog.DebugLevel
	}
	zerolog.SetGlobalLevel(level)

	var logger zerolog.Logger
	if cfg.Format == "json" {
		logger = zerolog.New(os.Stderr)
	} else {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr})
	}

	logCtx := logger.With()
	if cfg.Timestamp {
		logCtx = logCtx.Timestamp()
	}
	if cfg.Caller {
		logCtx = logCtx.Caller()
	}
	log.Logger = logCtx.Logger()
}

// Version returns the version string.
func Version() string {
	return fmt.Sprintf("caseflow version %s", "0.1.0-dev")
}
