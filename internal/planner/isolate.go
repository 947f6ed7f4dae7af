package planner

import (
	"context"

	"github.com/rs/zerolog/log"

	"github.com/caseflow/caseflow/internal/metrics"
)

// Reporter is the error-tracking sink scheduling failures are forwarded to.
type Reporter interface {
	CaptureError(err error, tags map[string]string)
}

// NopReporter discards every error. The log line written by the isolation
// wrapper still carries the context needed to replay the operation by hand.
type NopReporter struct{}

func (NopReporter) CaptureError(error, map[string]string) {}

// isolate runs fn and guarantees no error escapes: failures are logged with
// the triggering entity and operation, counted, and forwarded to the
// reporter. A primary business write must succeed or fail on its own
// persistence step, never on scheduling-infrastructure availability.
func (s *Service) isolate(op, entityID string, fn func() error) {
	err := fn()
	if err == nil {
		return
	}

	log.Error().
		Err(err).
		Str("operation", op).
		Str("entity_id", entityID).
		Msg("Scheduling failed; primary operation unaffected")

	metrics.RecordScheduleFailure(op)

	s.reporter.CaptureError(err, map[string]string{
		"operation": op,
		"entity_id": entityID,
	})
}

// The Try variants wrap the scheduling operations that run as side effects
// of primary business writes. Dedicated scheduling commands call the
// error-returning methods directly instead.

// TryScheduleAppointmentReminders schedules appointment reminders,
// swallowing any scheduling failure.
func (s *Service) TryScheduleAppointmentReminders(ctx context.Context, appt Appointment) {
	s.isolate("schedule_appointment_reminders", appt.ID, func() error {
		return s.ScheduleAppointmentReminders(ctx, appt)
	})
}

// TrySchedulePartnerSessionReminders schedules session reminders,
// swallowing any scheduling failure.
func (s *Service) TrySchedulePartnerSessionReminders(ctx context.Context, session PartnerSession) {
	s.isolate("schedule_session_reminders", session.EnrollmentID, func() error {
		return s.SchedulePartnerSessionReminders(ctx, session)
	})
}

// TryScheduleActionReminder schedules the action reminder, swallowing any
// scheduling failure.
func (s *Service) TryScheduleActionReminder(ctx context.Context, action Action) {
	s.isolate("schedule_action_reminder", action.ID, func() error {
		return s.ScheduleActionReminder(ctx, action)
	})
}

// TryCancelReminders cancels an entity's reminders, swallowing any
// scheduling failure.
func (s *Service) TryCancelReminders(ctx context.Context, entityID string) {
	s.isolate("cancel_reminders", entityID, func() error {
		return s.CancelRemindersFor(ctx, entityID)
	})
}

// TryRescheduleAppointmentReminders recreates an appointment's reminders
// after a date change, swallowing any scheduling failure.
func (s *Service) TryRescheduleAppointmentReminders(ctx context.Context, appt Appointment) {
	s.isolate("reschedule_appointment_reminders", appt.ID, func() error {
		return s.RescheduleAppointmentReminders(ctx, appt)
	})
}
