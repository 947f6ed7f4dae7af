// Package planner decides when asynchronous notification jobs fire for
// business events (appointments, partner sessions, actions, partner event
// feeds), under which identity, and isolates scheduling failures from the
// primary business write. Execution mechanics belong to the Queue contract.
package planner

import "time"

// JobType identifies a kind of deferred work. Workers use it to route an
// executing job back to the matching handler; the planner only carries it.
type JobType string

// One-shot job kinds.
const (
	// JobTypeAppointmentReminder notifies a beneficiary before an appointment.
	JobTypeAppointmentReminder JobType = "APPOINTMENT_REMINDER"
	// JobTypeSessionReminder notifies before a partner-platform session.
	JobTypeSessionReminder JobType = "SESSION_REMINDER"
	// JobTypeActionReminder notifies before an action's due date.
	JobTypeActionReminder JobType = "ACTION_REMINDER"
	// JobTypePartnerEvent processes one event from a partner feed.
	JobTypePartnerEvent JobType = "PARTNER_EVENT"
	// JobTypeSessionClosure closes stale partner sessions for a structure.
	JobTypeSessionClosure JobType = "CLOSE_SESSIONS"
	// JobTypeNotifyBeneficiaries sends one batch of a notification campaign.
	JobTypeNotifyBeneficiaries JobType = "NOTIFY_BENEFICIARIES"
)

// Recurring job kinds, registered once at bootstrap via the cron catalog.
const (
	JobTypeJobOfferSweep         JobType = "NEW_JOB_OFFERS"
	JobTypeCivicOfferSweep       JobType = "NEW_CIVIC_SERVICE_OFFERS"
	JobTypeCounselorDigest       JobType = "COUNSELOR_MESSAGE_DIGEST"
	JobTypeMailingListSync       JobType = "MAILING_LIST_SYNC"
	JobTypePartnerSituationFetch JobType = "FETCH_PARTNER_SITUATIONS"
	JobTypeCleanupJobs           JobType = "CLEANUP_JOBS"
	JobTypeCleanupAttachments    JobType = "CLEANUP_ATTACHMENTS"
	JobTypeCleanupArchives       JobType = "CLEANUP_ARCHIVES"
	JobTypeAnalyticsLoad         JobType = "ANALYTICS_LOAD_EVENTS"
	JobTypeAnalyticsEnrich       JobType = "ANALYTICS_ENRICH_EVENTS"
)

// Job is one unit of deferred work. ExecutionTime may be in the past; the
// queue decides whether that means run immediately. Payload varies by Type
// and must be JSON-serializable.
type Job struct {
	ExecutionTime time.Time
	Type          JobType
	Payload       any
}

// CronJob is a recurring schedule, created declaratively at bootstrap and
// never mutated. ActivationDate lets an entry exist in source before it is
// allowed to fire.
type CronJob struct {
	Type           JobType
	Expression     string
	Description    string
	ActivationDate *time.Time
}

// JobParams carries priority and retry hints, passed through to the queue
// opaquely. The planner never retries anything itself.
type JobParams struct {
	Priority    int
	MaxAttempts int
	Backoff     time.Duration
}

// CleanupStats reports the outcome of an expired-job sweep.
type CleanupStats struct {
	Scanned int
	Deleted int
	Errors  int
}

// AppointmentReminderPayload references the appointment to remind about.
type AppointmentReminderPayload struct {
	AppointmentID string `json:"appointment_id"`
}

// SessionReminderPayload references a beneficiary's enrollment in a
// partner-platform session.
type SessionReminderPayload struct {
	EnrollmentID string `json:"enrollment_id"`
	SessionID    string `json:"session_id"`
	RecordID     string `json:"record_id"`
}

// ActionReminderPayload references the action to remind about.
type ActionReminderPayload struct {
	ActionID string `json:"action_id"`
}

// PartnerEventPayload carries a full event from a partner feed.
type PartnerEventPayload struct {
	EventID       string    `json:"event_id"`
	ObjectID      string    `json:"object_id"`
	ObjectType    string    `json:"object_type"`
	Action        string    `json:"action"`
	BeneficiaryID string    `json:"beneficiary_id"`
	OccurredAt    time.Time `json:"occurred_at"`
}

// SessionClosurePayload names the sessions to close for a structure.
type SessionClosurePayload struct {
	SessionIDs  []string  `json:"session_ids"`
	StructureID string    `json:"structure_id"`
	CloseAt     time.Time `json:"close_at"`
}

// NotifyBeneficiariesPayload carries one batch of a notification campaign.
// Offset is the resume cursor: the handler for a batch schedules the next
// one with Offset advanced by BatchSize.
type NotifyBeneficiariesPayload struct {
	NotificationType string   `json:"notification_type"`
	Title            string   `json:"title"`
	Description      string   `json:"description"`
	Structures       []string `json:"structures"`
	Push             bool     `json:"push"`
	Offset           int      `json:"offset"`
	BatchSize        int      `json:"batch_size"`
	MinutesBetween   int      `json:"minutes_between"`
}

// Appointment is the slice of an appointment the planner needs: its id and
// the trigger date. The owning subsystem holds the rest.
type Appointment struct {
	ID   string
	Date time.Time
}

// PartnerSession is a beneficiary's enrollment in an externally-sourced
// session, reduced to what reminder scheduling needs.
type PartnerSession struct {
	EnrollmentID string
	SessionID    string
	RecordID     string
	StartDate    time.Time
}

// Action is a to-do item with a due date.
type Action struct {
	ID      string
	DueDate time.Time
}

// PartnerEvent is an externally-delivered event that must be processed at
// most once despite possible redelivery.
type PartnerEvent struct {
	ID            string
	ObjectID      string
	ObjectType    string
	Action        string
	BeneficiaryID string
	OccurredAt    time.Time
}
