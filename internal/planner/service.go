package planner

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/caseflow/caseflow/internal/metrics"
)

// Reminder lead times, in days before the triggering date.
const (
	appointmentFarLead  = 7
	appointmentNearLead = 1
	actionLead          = 3
)

// Partner events jump the reminder traffic and get a small bounded retry
// budget. Retries themselves are the queue's concern.
var partnerEventParams = &JobParams{
	Priority:    10,
	MaxAttempts: 3,
	Backoff:     30 * time.Second,
}

// Campaign defaults, applied when the payload leaves them zero.
const (
	defaultCampaignBatchGap  = 5   // minutes between batches
	defaultCampaignBatchSize = 500 // beneficiaries per batch
)

// Service computes what to schedule, when, and under which identity, and
// hands the result to the queue. It owns no locks and no background work;
// concurrent schedule calls for the same entity resolve through the queue's
// idempotent create.
type Service struct {
	queue    Queue
	clock    Clock
	reporter Reporter
}

// NewService creates a scheduling service. clock and reporter may be nil;
// they default to the system clock and a log-only reporter.
func NewService(queue Queue, clock Clock, reporter Reporter) *Service {
	if clock == nil {
		clock = SystemClock()
	}
	if reporter == nil {
		reporter = NopReporter{}
	}
	return &Service{
		queue:    queue,
		clock:    clock,
		reporter: reporter,
	}
}

// ScheduleAppointmentReminders schedules up to two reminders for an
// appointment: one 7 days before and one 1 day before its date. Each tier
// only fires when the appointment is strictly more than that many days
// away, so an appointment exactly 1 day out gets no reminder at all. The
// strict inequality is deliberate; it keeps a reminder from firing at the
// moment of the appointment itself.
func (s *Service) ScheduleAppointmentReminders(ctx context.Context, appt Appointment) error {
	daysUntil := s.daysUntil(appt.Date)

	if daysUntil > appointmentFarLead {
		if err := s.createAppointmentReminder(ctx, appt, appointmentFarLead); err != nil {
			return err
		}
	}

	if daysUntil > appointmentNearLead {
		if err := s.createAppointmentReminder(ctx, appt, appointmentNearLead); err != nil {
			return err
		}
	}

	return nil
}

// SchedulePartnerSessionReminders applies the same two-tier rule to a
// beneficiary's enrollment in a partner-platform session.
func (s *Service) SchedulePartnerSessionReminders(ctx context.Context, session PartnerSession) error {
	daysUntil := s.daysUntil(session.StartDate)

	if daysUntil > appointmentFarLead {
		if err := s.createSessionReminder(ctx, session, appointmentFarLead); err != nil {
			return err
		}
	}

	if daysUntil > appointmentNearLead {
		if err := s.createSessionReminder(ctx, session, appointmentNearLead); err != nil {
			return err
		}
	}

	return nil
}

// ScheduleActionReminder schedules exactly one reminder 3 days before the
// action's due date. There is no threshold gate: every action with a due
// date gets its reminder, even when the due date is already close or past.
func (s *Service) ScheduleActionReminder(ctx context.Context, action Action) error {
	identity := ActionReminderIdentity(action.ID, actionLead)

	job := &Job{
		ExecutionTime: action.DueDate.AddDate(0, 0, -actionLead),
		Type:          JobTypeActionReminder,
		Payload:       ActionReminderPayload{ActionID: action.ID},
	}

	if err := s.queue.CreateJob(ctx, job, identity, nil); err != nil {
		return fmt.Errorf("creating action reminder %s: %w", identity, err)
	}

	metrics.RecordJobScheduled(string(JobTypeActionReminder))

	log.Debug().
		Str("identity", identity).
		Time("execute_at", job.ExecutionTime).
		Msg("Action reminder scheduled")

	return nil
}

// CancelRemindersFor deletes every job whose identity contains entityID,
// covering all lead-time variants at once. Used whenever the triggering
// entity is deleted or its date changes.
func (s *Service) CancelRemindersFor(ctx context.Context, entityID string) error {
	if err := s.queue.DeleteJobsMatching(ctx, entityID); err != nil {
		return fmt.Errorf("canceling reminders for %s: %w", entityID, err)
	}

	log.Debug().Str("entity_id", entityID).Msg("Reminders canceled")

	return nil
}

// RescheduleAppointmentReminders handles a date change by canceling every
// existing reminder for the appointment and recreating from scratch. The
// cancel completes before any create is issued; delete-then-recreate
// trades a brief window without reminders for freedom from partial-update
// inconsistency, acceptable because reminders are best-effort.
func (s *Service) RescheduleAppointmentReminders(ctx context.Context, appt Appointment) error {
	if err := s.CancelRemindersFor(ctx, appt.ID); err != nil {
		return err
	}

	return s.ScheduleAppointmentReminders(ctx, appt)
}

// EnqueuePartnerEventOnce schedules immediate ingestion of a partner event.
// The feed delivers at least once; the identity keyed on the event id plus
// the queue's idempotent create collapse redeliveries into at most one job.
func (s *Service) EnqueuePartnerEventOnce(ctx context.Context, event PartnerEvent) error {
	identity := PartnerEventIdentity(event.ID)

	job := &Job{
		ExecutionTime: s.clock.Now(),
		Type:          JobTypePartnerEvent,
		Payload: PartnerEventPayload{
			EventID:       event.ID,
			ObjectID:      event.ObjectID,
			ObjectType:    event.ObjectType,
			Action:        event.Action,
			BeneficiaryID: event.BeneficiaryID,
			OccurredAt:    event.OccurredAt,
		},
	}

	if err := s.queue.CreateJob(ctx, job, identity, partnerEventParams); err != nil {
		return fmt.Errorf("enqueuing partner event %s: %w", identity, err)
	}

	metrics.RecordJobScheduled(string(JobTypePartnerEvent))

	return nil
}

// ScheduleSessionClosureJob schedules closure of the given sessions at
// closeAt. It is best-effort: failures are logged and reported, never
// returned, so callers on write paths need no wrapping of their own.
func (s *Service) ScheduleSessionClosureJob(ctx context.Context, sessionIDs []string, structureID string, closeAt time.Time) {
	s.isolate("schedule_session_closure", structureID, func() error {
		identity := fmt.Sprintf("close:%s:%s", structureID, closeAt.Format("2006-01-02"))

		job := &Job{
			ExecutionTime: closeAt,
			Type:          JobTypeSessionClosure,
			Payload: SessionClosurePayload{
				SessionIDs:  sessionIDs,
				StructureID: structureID,
				CloseAt:     closeAt,
			},
		}

		if err := s.queue.CreateJob(ctx, job, identity, nil); err != nil {
			return fmt.Errorf("creating session closure job %s: %w", identity, err)
		}

		metrics.RecordJobScheduled(string(JobTypeSessionClosure))

		return nil
	})
}

// ScheduleNotificationCampaign enqueues the first batch of a beneficiary
// notification campaign for immediate execution and returns the job
// identity. The batch handler advances Offset and schedules the next batch
// itself, making the campaign resumable from its cursor.
func (s *Service) ScheduleNotificationCampaign(ctx context.Context, payload NotifyBeneficiariesPayload) (string, error) {
	if payload.MinutesBetween <= 0 {
		payload.MinutesBetween = defaultCampaignBatchGap
	}
	// A zero batch size would leave the cursor stuck at offset 0 forever.
	if payload.BatchSize <= 0 {
		payload.BatchSize = defaultCampaignBatchSize
	}

	identity := fmt.Sprintf("campaign:%s", uuid.New().String())

	job := &Job{
		ExecutionTime: s.clock.Now(),
		Type:          JobTypeNotifyBeneficiaries,
		Payload:       payload,
	}

	if err := s.queue.CreateJob(ctx, job, identity, nil); err != nil {
		return "", fmt.Errorf("creating notification campaign job: %w", err)
	}

	metrics.RecordJobScheduled(string(JobTypeNotifyBeneficiaries))

	log.Info().
		Str("identity", identity).
		Str("notification_type", payload.NotificationType).
		Int("batch_size", payload.BatchSize).
		Msg("Notification campaign scheduled")

	return identity, nil
}

// ScheduleNextCampaignBatch schedules the follow-up batch of a running
// campaign, MinutesBetween after now, with the cursor already advanced by
// the caller. Invoked by the batch handler, not by request paths.
func (s *Service) ScheduleNextCampaignBatch(ctx context.Context, payload NotifyBeneficiariesPayload) error {
	job := &Job{
		ExecutionTime: s.clock.Now().Add(time.Duration(payload.MinutesBetween) * time.Minute),
		Type:          JobTypeNotifyBeneficiaries,
		Payload:       payload,
	}

	identity := fmt.Sprintf("campaign:%s", uuid.New().String())

	if err := s.queue.CreateJob(ctx, job, identity, nil); err != nil {
		return fmt.Errorf("creating campaign batch job at offset %d: %w", payload.Offset, err)
	}

	metrics.RecordJobScheduled(string(JobTypeNotifyBeneficiaries))

	return nil
}

// Resynchronize tears down every job and recurring schedule and re-plans
// the cron catalog from scratch. Bootstrap-class: errors propagate.
func (s *Service) Resynchronize(ctx context.Context, catalog []CronJob) error {
	if err := s.queue.DeleteAllJobs(ctx); err != nil {
		return fmt.Errorf("deleting jobs during resync: %w", err)
	}

	if err := s.queue.DeleteAllCronJobs(ctx); err != nil {
		return fmt.Errorf("deleting cron jobs during resync: %w", err)
	}

	if err := s.PlanCronJobs(ctx, catalog); err != nil {
		return fmt.Errorf("re-planning cron jobs during resync: %w", err)
	}

	log.Info().Msg("Queue resynchronized")

	return nil
}

// CleanupExpiredJobs runs the expired-job sweep and records its stats.
func (s *Service) CleanupExpiredJobs(ctx context.Context) (*CleanupStats, error) {
	stats, err := s.queue.DeleteExpiredJobs(ctx)
	if err != nil {
		return nil, fmt.Errorf("deleting expired jobs: %w", err)
	}

	metrics.RecordExpiredJobsDeleted(stats.Deleted)

	log.Info().
		Int("scanned", stats.Scanned).
		Int("deleted", stats.Deleted).
		Int("errors", stats.Errors).
		Msg("Expired jobs swept")

	return stats, nil
}

// daysUntil returns the fractional number of days between now and t.
func (s *Service) daysUntil(t time.Time) float64 {
	return t.Sub(s.clock.Now()).Hours() / 24
}

func (s *Service) createAppointmentReminder(ctx context.Context, appt Appointment, days int) error {
	identity := AppointmentReminderIdentity(appt.ID, days)

	job := &Job{
		ExecutionTime: appt.Date.AddDate(0, 0, -days),
		Type:          JobTypeAppointmentReminder,
		Payload:       AppointmentReminderPayload{AppointmentID: appt.ID},
	}

	if err := s.queue.CreateJob(ctx, job, identity, nil); err != nil {
		return fmt.Errorf("creating appointment reminder %s: %w", identity, err)
	}

	metrics.RecordJobScheduled(string(JobTypeAppointmentReminder))

	log.Debug().
		Str("identity", identity).
		Time("execute_at", job.ExecutionTime).
		Msg("Appointment reminder scheduled")

	return nil
}

func (s *Service) createSessionReminder(ctx context.Context, session PartnerSession, days int) error {
	identity := SessionReminderIdentity(session.EnrollmentID, days)

	job := &Job{
		ExecutionTime: session.StartDate.AddDate(0, 0, -days),
		Type:          JobTypeSessionReminder,
		Payload: SessionReminderPayload{
			EnrollmentID: session.EnrollmentID,
			SessionID:    session.SessionID,
			RecordID:     session.RecordID,
		},
	}

	if err := s.queue.CreateJob(ctx, job, identity, nil); err != nil {
		return fmt.Errorf("creating session reminder %s: %w", identity, err)
	}

	metrics.RecordJobScheduled(string(JobTypeSessionReminder))

	return nil
}
