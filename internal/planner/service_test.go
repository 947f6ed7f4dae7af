package planner

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2026, time.August, 31, 12, 0, 0, 0, time.UTC)

func newTestService(q *fakeQueue) *Service {
	return NewService(q, fixedClock{now: testNow}, nil)
}

func TestScheduleAppointmentReminders_EightDaysOut(t *testing.T) {
	q := newFakeQueue()
	svc := newTestService(q)

	appt := Appointment{ID: "rdv-42", Date: testNow.AddDate(0, 0, 8)}
	require.NoError(t, svc.ScheduleAppointmentReminders(context.Background(), appt))

	require.Len(t, q.jobs, 2)

	far, ok := q.jobs["appt:rdv-42:7"]
	require.True(t, ok, "7-day reminder should exist")
	require.Equal(t, appt.Date.AddDate(0, 0, -7), far.ExecutionTime)
	require.Equal(t, JobTypeAppointmentReminder, far.Type)
	require.Equal(t, AppointmentReminderPayload{AppointmentID: "rdv-42"}, far.Payload)

	near, ok := q.jobs["appt:rdv-42:1"]
	require.True(t, ok, "1-day reminder should exist")
	require.Equal(t, appt.Date.AddDate(0, 0, -1), near.ExecutionTime)
}

func TestScheduleAppointmentReminders_FiveDaysOut(t *testing.T) {
	q := newFakeQueue()
	svc := newTestService(q)

	appt := Appointment{ID: "rdv-5", Date: testNow.AddDate(0, 0, 5)}
	require.NoError(t, svc.ScheduleAppointmentReminders(context.Background(), appt))

	require.Len(t, q.jobs, 1)
	_, ok := q.jobs["appt:rdv-5:1"]
	require.True(t, ok, "only the 1-day reminder should exist")
}

func TestScheduleAppointmentReminders_OneDayOut(t *testing.T) {
	q := newFakeQueue()
	svc := newTestService(q)

	appt := Appointment{ID: "rdv-1", Date: testNow.AddDate(0, 0, 1)}
	require.NoError(t, svc.ScheduleAppointmentReminders(context.Background(), appt))

	require.Empty(t, q.jobs, "an appointment exactly 1 day out gets no reminder")
}

func TestScheduleAppointmentReminders_StrictThresholds(t *testing.T) {
	// Exactly 7 days out: the 7-day tier stays silent, the 1-day tier fires.
	q := newFakeQueue()
	svc := newTestService(q)

	appt := Appointment{ID: "rdv-7", Date: testNow.AddDate(0, 0, 7)}
	require.NoError(t, svc.ScheduleAppointmentReminders(context.Background(), appt))

	require.Len(t, q.jobs, 1)
	_, ok := q.jobs["appt:rdv-7:1"]
	require.True(t, ok)

	// A hair past 7 days and both tiers fire.
	q2 := newFakeQueue()
	svc2 := newTestService(q2)

	appt2 := Appointment{ID: "rdv-7h", Date: testNow.AddDate(0, 0, 7).Add(time.Hour)}
	require.NoError(t, svc2.ScheduleAppointmentReminders(context.Background(), appt2))
	require.Len(t, q2.jobs, 2)
}

func TestSchedulePartnerSessionReminders(t *testing.T) {
	q := newFakeQueue()
	svc := newTestService(q)

	session := PartnerSession{
		EnrollmentID: "enr-9",
		SessionID:    "sess-3",
		RecordID:     "rec-12",
		StartDate:    testNow.AddDate(0, 0, 10),
	}
	require.NoError(t, svc.SchedulePartnerSessionReminders(context.Background(), session))

	require.Len(t, q.jobs, 2)
	far, ok := q.jobs["session:enr-9:7"]
	require.True(t, ok)
	require.Equal(t, JobTypeSessionReminder, far.Type)
	require.Equal(t, SessionReminderPayload{
		EnrollmentID: "enr-9",
		SessionID:    "sess-3",
		RecordID:     "rec-12",
	}, far.Payload)
	_, ok = q.jobs["session:enr-9:1"]
	require.True(t, ok)
}

func TestScheduleActionReminder_AlwaysSchedules(t *testing.T) {
	tests := []struct {
		name    string
		dueDate time.Time
	}{
		{"far out", testNow.AddDate(0, 0, 30)},
		{"tomorrow", testNow.AddDate(0, 0, 1)},
		{"already past", testNow.AddDate(0, 0, -2)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q := newFakeQueue()
			svc := newTestService(q)

			action := Action{ID: "act-1", DueDate: tt.dueDate}
			require.NoError(t, svc.ScheduleActionReminder(context.Background(), action))

			require.Len(t, q.jobs, 1)
			job, ok := q.jobs["action:act-1:3"]
			require.True(t, ok)
			require.Equal(t, tt.dueDate.AddDate(0, 0, -3), job.ExecutionTime)
			require.Equal(t, JobTypeActionReminder, job.Type)
		})
	}
}

func TestCancelRemindersFor_RemovesAllVariants(t *testing.T) {
	q := newFakeQueue()
	svc := newTestService(q)
	ctx := context.Background()

	appt := Appointment{ID: "rdv-77", Date: testNow.AddDate(0, 0, 9)}
	require.NoError(t, svc.ScheduleAppointmentReminders(ctx, appt))
	require.Len(t, q.jobs, 2)

	require.NoError(t, svc.CancelRemindersFor(ctx, "rdv-77"))
	require.Empty(t, q.jobs, "one cancel covers every lead-time variant")
}

func TestRescheduleAppointmentReminders_CancelsBeforeCreating(t *testing.T) {
	q := newFakeQueue()
	svc := newTestService(q)
	ctx := context.Background()

	appt := Appointment{ID: "rdv-8", Date: testNow.AddDate(0, 0, 9)}
	require.NoError(t, svc.ScheduleAppointmentReminders(ctx, appt))

	q.calls = nil
	moved := Appointment{ID: "rdv-8", Date: testNow.AddDate(0, 0, 12)}
	require.NoError(t, svc.RescheduleAppointmentReminders(ctx, moved))

	require.GreaterOrEqual(t, len(q.calls), 3)
	require.Equal(t, "delete:rdv-8", q.calls[0], "cancel must precede every create")
	require.Equal(t, "create:appt:rdv-8:7", q.calls[1])
	require.Equal(t, "create:appt:rdv-8:1", q.calls[2])

	require.Equal(t, moved.Date.AddDate(0, 0, -7), q.jobs["appt:rdv-8:7"].ExecutionTime)
}

func TestEnqueuePartnerEventOnce_Idempotent(t *testing.T) {
	q := newFakeQueue()
	svc := newTestService(q)
	ctx := context.Background()

	event := PartnerEvent{
		ID:            "evt-123",
		ObjectID:      "obj-1",
		ObjectType:    "SESSION",
		Action:        "CREATE",
		BeneficiaryID: "ben-4",
		OccurredAt:    testNow.Add(-time.Minute),
	}

	require.NoError(t, svc.EnqueuePartnerEventOnce(ctx, event))
	require.NoError(t, svc.EnqueuePartnerEventOnce(ctx, event))

	require.Len(t, q.jobs, 1, "redelivery must collapse to one job")

	job := q.jobs["event:evt-123"]
	require.NotNil(t, job)
	require.Equal(t, JobTypePartnerEvent, job.Type)
	require.Equal(t, testNow, job.ExecutionTime, "partner events run immediately")

	params := q.params["event:evt-123"]
	require.NotNil(t, params)
	require.Equal(t, 10, params.Priority)
	require.Equal(t, 3, params.MaxAttempts)
	require.Equal(t, 30*time.Second, params.Backoff)
}

func TestScheduleSessionClosureJob_SwallowsFailures(t *testing.T) {
	q := newFakeQueue()
	q.createErr = errors.New("queue unreachable")

	reporter := &recordingReporter{}
	svc := NewService(q, fixedClock{now: testNow}, reporter)

	// Must not panic and must not surface the error.
	svc.ScheduleSessionClosureJob(context.Background(), []string{"s1", "s2"}, "struct-1", testNow.AddDate(0, 0, 1))

	require.Len(t, reporter.errs, 1)
	require.ErrorContains(t, reporter.errs[0], "queue unreachable")
	require.Equal(t, "schedule_session_closure", reporter.tags[0]["operation"])
	require.Equal(t, "struct-1", reporter.tags[0]["entity_id"])
}

func TestScheduleSessionClosureJob_Schedules(t *testing.T) {
	q := newFakeQueue()
	svc := newTestService(q)

	closeAt := testNow.AddDate(0, 0, 2)
	svc.ScheduleSessionClosureJob(context.Background(), []string{"s1"}, "struct-9", closeAt)

	require.Len(t, q.jobs, 1)
	job := q.jobs["close:struct-9:"+closeAt.Format("2006-01-02")]
	require.NotNil(t, job)
	require.Equal(t, JobTypeSessionClosure, job.Type)
	require.Equal(t, closeAt, job.ExecutionTime)
}

func TestScheduleNotificationCampaign(t *testing.T) {
	q := newFakeQueue()
	svc := newTestService(q)

	identity, err := svc.ScheduleNotificationCampaign(context.Background(), NotifyBeneficiariesPayload{
		NotificationType: "OUTILS",
		Title:            "Try the new tools",
		Structures:       []string{"MILO"},
		Push:             true,
		BatchSize:        500,
	})
	require.NoError(t, err)
	require.Contains(t, identity, "campaign:")

	job := q.jobs[identity]
	require.NotNil(t, job)
	require.Equal(t, JobTypeNotifyBeneficiaries, job.Type)
	require.Equal(t, testNow, job.ExecutionTime)

	payload, ok := job.Payload.(NotifyBeneficiariesPayload)
	require.True(t, ok)
	require.Equal(t, 5, payload.MinutesBetween, "batch gap defaults to 5 minutes")
}

func TestScheduleNotificationCampaign_DefaultsBatchSize(t *testing.T) {
	q := newFakeQueue()
	svc := newTestService(q)

	identity, err := svc.ScheduleNotificationCampaign(context.Background(), NotifyBeneficiariesPayload{
		NotificationType: "OUTILS",
	})
	require.NoError(t, err)

	payload, ok := q.jobs[identity].Payload.(NotifyBeneficiariesPayload)
	require.True(t, ok)
	require.Equal(t, 500, payload.BatchSize, "a zero batch size would never advance the cursor")
	require.Equal(t, 5, payload.MinutesBetween)
}

func TestScheduleNextCampaignBatch(t *testing.T) {
	q := newFakeQueue()
	svc := newTestService(q)

	payload := NotifyBeneficiariesPayload{
		NotificationType: "OUTILS",
		Offset:           500,
		BatchSize:        500,
		MinutesBetween:   5,
	}
	require.NoError(t, svc.ScheduleNextCampaignBatch(context.Background(), payload))

	require.Len(t, q.jobs, 1)
	for _, job := range q.jobs {
		require.Equal(t, testNow.Add(5*time.Minute), job.ExecutionTime)
		got, ok := job.Payload.(NotifyBeneficiariesPayload)
		require.True(t, ok)
		require.Equal(t, 500, got.Offset)
	}
}

func TestResynchronize_Order(t *testing.T) {
	q := newFakeQueue()
	svc := newTestService(q)
	ctx := context.Background()

	require.NoError(t, svc.ScheduleActionReminder(ctx, Action{ID: "a1", DueDate: testNow.AddDate(0, 0, 5)}))

	q.calls = nil
	catalog := []CronJob{{Type: JobTypeCleanupJobs, Expression: "0 4 * * *"}}
	require.NoError(t, svc.Resynchronize(ctx, catalog))

	require.Equal(t, []string{"delete_all_jobs", "delete_all_crons", "cron:CLEANUP_JOBS"}, q.calls)
	require.Empty(t, q.jobs)
	require.Len(t, q.crons, 1)
}

func TestCleanupExpiredJobs(t *testing.T) {
	q := newFakeQueue()
	q.cleanup = CleanupStats{Scanned: 40, Deleted: 12}
	svc := newTestService(q)

	stats, err := svc.CleanupExpiredJobs(context.Background())
	require.NoError(t, err)
	require.Equal(t, 12, stats.Deleted)
	require.Equal(t, 40, stats.Scanned)
}

func TestScheduleAppointmentReminders_PropagatesQueueError(t *testing.T) {
	q := newFakeQueue()
	q.createErr = errors.New("disk full")
	svc := newTestService(q)

	appt := Appointment{ID: "rdv-err", Date: testNow.AddDate(0, 0, 9)}
	err := svc.ScheduleAppointmentReminders(context.Background(), appt)
	require.ErrorContains(t, err, "disk full")
}
