package planner

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestTryWrappers_SwallowFailures(t *testing.T) {
	q := newFakeQueue()
	q.createErr = errors.New("broker gone")
	q.deleteErr = errors.New("broker gone")

	reporter := &recordingReporter{}
	svc := NewService(q, fixedClock{now: testNow}, reporter)
	ctx := context.Background()

	svc.TryScheduleAppointmentReminders(ctx, Appointment{ID: "rdv-1", Date: testNow.AddDate(0, 0, 9)})
	svc.TrySchedulePartnerSessionReminders(ctx, PartnerSession{EnrollmentID: "enr-1", StartDate: testNow.AddDate(0, 0, 9)})
	svc.TryScheduleActionReminder(ctx, Action{ID: "act-1", DueDate: testNow.AddDate(0, 0, 9)})
	svc.TryCancelReminders(ctx, "rdv-1")
	svc.TryRescheduleAppointmentReminders(ctx, Appointment{ID: "rdv-1", Date: testNow.AddDate(0, 0, 9)})

	require.Len(t, reporter.errs, 5, "every failure reaches the sink, none escapes")

	ops := make([]string, 0, len(reporter.tags))
	for _, tags := range reporter.tags {
		ops = append(ops, tags["operation"])
	}
	require.Equal(t, []string{
		"schedule_appointment_reminders",
		"schedule_session_reminders",
		"schedule_action_reminder",
		"cancel_reminders",
		"reschedule_appointment_reminders",
	}, ops)
}

func TestTryWrappers_PassThroughOnSuccess(t *testing.T) {
	q := newFakeQueue()
	reporter := &recordingReporter{}
	svc := NewService(q, fixedClock{now: testNow}, reporter)

	svc.TryScheduleActionReminder(context.Background(), Action{ID: "act-2", DueDate: testNow.AddDate(0, 0, 9)})

	require.Empty(t, reporter.errs)
	require.Len(t, q.jobs, 1)
}

func TestIsolateTagsCarryEntityID(t *testing.T) {
	q := newFakeQueue()
	q.createErr = errors.New("nope")
	reporter := &recordingReporter{}
	svc := NewService(q, fixedClock{now: testNow}, reporter)

	svc.TryScheduleActionReminder(context.Background(), Action{ID: "act-9", DueDate: testNow})

	require.Len(t, reporter.tags, 1)
	require.Equal(t, "act-9", reporter.tags[0]["entity_id"])
}
