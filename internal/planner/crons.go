package planner

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"

	"github.com/caseflow/caseflow/internal/metrics"
)

// DefaultCronCatalog returns the static list of recurring jobs the system
// runs. The catalog is passed to PlanCronJobs at bootstrap rather than
// registered from package state, so deployments and tests can swap it.
func DefaultCronCatalog() []CronJob {
	return []CronJob{
		{
			Type:        JobTypeJobOfferSweep,
			Expression:  "0 9 * * *",
			Description: "notify beneficiaries about new job offers matching saved searches",
		},
		{
			Type:        JobTypeCivicOfferSweep,
			Expression:  "0 11 * * *",
			Description: "notify beneficiaries about new civic-service offers",
		},
		{
			Type:        JobTypeCounselorDigest,
			Expression:  "0 8 * * 1-5",
			Description: "email counselors a digest of unread messages",
		},
		{
			Type:        JobTypeMailingListSync,
			Expression:  "0 1 * * *",
			Description: "sync counselor contacts to mailing lists",
		},
		{
			Type:        JobTypePartnerSituationFetch,
			Expression:  "0 0 * * *",
			Description: "fetch beneficiary situations from the partner platform",
		},
		{
			Type:        JobTypeCleanupJobs,
			Expression:  "0 4 * * *",
			Description: "delete expired jobs from the queue",
		},
		{
			Type:           JobTypeCleanupAttachments,
			Expression:     "0 2 * * *",
			Description:    "delete attachments past their retention window",
			ActivationDate: activation(2022, time.October, 1),
		},
		{
			Type:           JobTypeCleanupArchives,
			Expression:     "0 3 * * *",
			Description:    "delete beneficiary archives past their retention window",
			ActivationDate: activation(2024, time.July, 8),
		},
		{
			Type:        JobTypeAnalyticsLoad,
			Expression:  "30 5 * * *",
			Description: "load raw analytics events into the warehouse",
		},
		{
			Type:        JobTypeAnalyticsEnrich,
			Expression:  "0 6 * * *",
			Description: "enrich loaded analytics events",
		},
	}
}

func activation(year int, month time.Month, day int) *time.Time {
	t := time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
	return &t
}

// PlanCronJobs validates the catalog and registers every entry with the
// queue. It runs once at process start and fails fast: a broken catalog is
// a deployment-blocking condition, not a per-request concern.
func (s *Service) PlanCronJobs(ctx context.Context, catalog []CronJob) error {
	for i := range catalog {
		entry := &catalog[i]

		if _, err := cron.ParseStandard(entry.Expression); err != nil {
			return fmt.Errorf("cron catalog entry %s has invalid expression %q: %w", entry.Type, entry.Expression, err)
		}

		if err := s.queue.CreateCronJob(ctx, entry); err != nil {
			return fmt.Errorf("registering cron job %s: %w", entry.Type, err)
		}

		metrics.RecordCronJobRegistered()

		log.Info().
			Str("type", string(entry.Type)).
			Str("expression", entry.Expression).
			Msg("Cron job registered")
	}

	return nil
}
