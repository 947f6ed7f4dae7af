package cli

import (
	"fmt"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/caseflow/caseflow/internal/database"
	"github.com/caseflow/caseflow/internal/monitor"
	"github.com/caseflow/caseflow/internal/planner"
	"github.com/caseflow/caseflow/internal/queue"
)

var jobsCmd = &cobra.Command{
	Use:   "jobs",
	Short: "Inspect and maintain the job queue",
}

var jobsCleanupCmd = &cobra.Command{
	Use:   "cleanup",
	Short: "Sweep finished jobs past the retention window",
	RunE: func(cmd *cobra.Command, args []string) error {
		svc, closeDeps, err := openService()
		if err != nil {
			return err
		}
		defer closeDeps()

		stats, err := svc.CleanupExpiredJobs(cmd.Context())
		if err != nil {
			return err
		}

		fmt.Printf("Scanned %d finished jobs, deleted %d\n", stats.Scanned, stats.Deleted)
		return nil
	},
}

var jobsPurgeCmd = &cobra.Command{
	Use:   "purge",
	Short: "Delete every one-shot job",
	RunE: func(cmd *cobra.Command, args []string) error {
		if !purgeConfirmed {
			return fmt.Errorf("refusing to purge without --yes")
		}

		_, q, closeDeps, err := openQueue()
		if err != nil {
			return err
		}
		defer closeDeps()

		if err := q.DeleteAllJobs(cmd.Context()); err != nil {
			return err
		}

		log.Info().Msg("All one-shot jobs deleted")
		return nil
	},
}

var jobsPurgeCronsCmd = &cobra.Command{
	Use:   "purge-crons",
	Short: "Delete every recurring schedule",
	RunE: func(cmd *cobra.Command, args []string) error {
		if !purgeConfirmed {
			return fmt.Errorf("refusing to purge without --yes")
		}

		_, q, closeDeps, err := openQueue()
		if err != nil {
			return err
		}
		defer closeDeps()

		if err := q.DeleteAllCronJobs(cmd.Context()); err != nil {
			return err
		}

		log.Info().Msg("All recurring schedules deleted")
		return nil
	},
}

var jobsResyncCmd = &cobra.Command{
	Use:   "resync",
	Short: "Rebuild the queue from scratch",
	Long: `Deletes every job and recurring schedule, then re-registers the
recurring catalog. One-shot reminders are not re-derived; the owning
subsystems reschedule them on their next write.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		svc, closeDeps, err := openService()
		if err != nil {
			return err
		}
		defer closeDeps()

		if err := svc.Resynchronize(cmd.Context(), planner.DefaultCronCatalog()); err != nil {
			return err
		}

		log.Info().Msg("Queue re-synchronized")
		return nil
	},
}

var jobsCronsCmd = &cobra.Command{
	Use:   "crons",
	Short: "List registered recurring schedules",
	RunE: func(cmd *cobra.Command, args []string) error {
		_, q, closeDeps, err := openQueue()
		if err != nil {
			return err
		}
		defer closeDeps()

		crons, err := q.ListCrons(cmd.Context())
		if err != nil {
			return err
		}

		if len(crons) == 0 {
			fmt.Println("No recurring schedules registered")
			return nil
		}

		for _, c := range crons {
			next := "-"
			if c.NextRun != nil {
				next = c.NextRun.UTC().Format("2006-01-02 15:04")
			}
			fmt.Printf("%-28s %-14s next %s  %s\n", c.Type, c.Expression, next, c.Description)
		}
		return nil
	},
}

var purgeConfirmed bool

func init() {
	jobsPurgeCmd.Flags().BoolVar(&purgeConfirmed, "yes", false, "confirm the purge")
	jobsPurgeCronsCmd.Flags().BoolVar(&purgeConfirmed, "yes", false, "confirm the purge")

	jobsCmd.AddCommand(jobsCleanupCmd)
	jobsCmd.AddCommand(jobsPurgeCmd)
	jobsCmd.AddCommand(jobsPurgeCronsCmd)
	jobsCmd.AddCommand(jobsResyncCmd)
	jobsCmd.AddCommand(jobsCronsCmd)
	rootCmd.AddCommand(jobsCmd)
}

// openQueue opens the database and queue for a one-off maintenance command.
func openQueue() (*database.DB, *queue.Queue, func(), error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, nil, nil, err
	}
	applyLoggingConfig(cfg.Logging)

	db, err := database.Open(&cfg.Database)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("opening database: %w", err)
	}

	q := queue.New(db, cfg.Queue)
	return db, q, func() { db.Close() }, nil
}

func openService() (*planner.Service, func(), error) {
	_, q, closeDeps, err := openQueue()
	if err != nil {
		return nil, nil, err
	}

	svc := planner.NewService(q, planner.SystemClock(), monitor.NewSink())
	return svc, closeDeps, nil
}
