package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/caseflow/caseflow/internal/config"
	"github.com/caseflow/caseflow/internal/database"
	"github.com/caseflow/caseflow/internal/metrics"
	"github.com/caseflow/caseflow/internal/monitor"
	"github.com/caseflow/caseflow/internal/planner"
	"github.com/caseflow/caseflow/internal/queue"
)

var workerCmd = &cobra.Command{
	Use:   "worker",
	Short: "Run the job queue worker",
	Long: `Starts the polling worker. On boot it registers the recurring job
catalog; a catalog entry that fails to register aborts startup.`,
	RunE: runWorker,
}

func init() {
	rootCmd.AddCommand(workerCmd)
}

func runWorker(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	applyLoggingConfig(cfg.Logging)

	db, err := database.Open(&cfg.Database)
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer db.Close()

	q := queue.New(db, cfg.Queue)
	svc := planner.NewService(q, planner.SystemClock(), monitor.NewSink())

	q.Subscribe(dispatchJob(svc))

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	// The catalog must register completely before any work runs.
	if err := svc.PlanCronJobs(ctx, planner.DefaultCronCatalog()); err != nil {
		return fmt.Errorf("registering cron catalog: %w", err)
	}

	if err := q.Start(ctx); err != nil {
		return fmt.Errorf("starting worker: %w", err)
	}

	var metricsSrv *http.Server
	if cfg.Metrics.Enabled {
		metricsSrv = serveMetrics(cfg.Metrics)
	}

	log.Info().
		Str("database", cfg.Database.Path).
		Msg("Caseflow worker running")

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh
	log.Info().Str("signal", sig.String()).Msg("Shutting down")

	q.Stop()
	if metricsSrv != nil {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		_ = metricsSrv.Shutdown(shutdownCtx)
	}

	return nil
}

func serveMetrics(cfg config.MetricsConfig) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler())

	srv := &http.Server{Addr: cfg.Addr, Handler: mux}
	go func() {
		log.Info().Str("addr", cfg.Addr).Msg("Metrics endpoint listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error().Err(err).Msg("Metrics endpoint failed")
		}
	}()

	return srv
}

// dispatchJob routes dequeued jobs. Maintenance kinds are handled here;
// notification kinds belong to the delivery services, which register their
// own handlers when embedded. Standalone, they are logged and acknowledged
// so an undeliverable job cannot poison the queue.
func dispatchJob(svc *planner.Service) planner.Handler {
	return func(ctx context.Context, job *planner.Job) error {
		switch job.Type {
		case planner.JobTypeCleanupJobs:
			stats, err := svc.CleanupExpiredJobs(ctx)
			if err != nil {
				return err
			}
			log.Info().
				Int("deleted", stats.Deleted).
				Msg("Expired job cleanup ran")
			return nil

		case planner.JobTypeNotifyBeneficiaries:
			var payload planner.NotifyBeneficiariesPayload
			if raw, ok := job.Payload.(json.RawMessage); ok {
				if err := json.Unmarshal(raw, &payload); err != nil {
					return fmt.Errorf("decoding campaign payload: %w", err)
				}
			}
			log.Info().
				Str("notification_type", payload.NotificationType).
				Int("offset", payload.Offset).
				Int("batch_size", payload.BatchSize).
				Msg("Campaign batch due, no delivery service registered")
			return nil

		default:
			log.Warn().
				Str("type", string(job.Type)).
				Msg("No handler registered for job type")
			return nil
		}
	}
}
