package planner

import "fmt"

// Job identities are deterministic: identical inputs always produce the
// identical key. Variants for one entity share the entity id, so a single
// pattern delete on the id cancels every lead-time variant at once.

// AppointmentReminderIdentity keys the reminder for an appointment at the
// given lead time in days.
func AppointmentReminderIdentity(appointmentID string, days int) string {
	return fmt.Sprintf("appt:%s:%d", appointmentID, days)
}

// SessionReminderIdentity keys the reminder for a session enrollment at the
// given lead time in days.
func SessionReminderIdentity(enrollmentID string, days int) string {
	return fmt.Sprintf("session:%s:%d", enrollmentID, days)
}

// ActionReminderIdentity keys the reminder for an action at the given lead
// time in days.
func ActionReminderIdentity(actionID string, days int) string {
	return fmt.Sprintf("action:%s:%d", actionID, days)
}

// PartnerEventIdentity keys the at-most-once ingestion job for a partner
// event.
func PartnerEventIdentity(eventID string) string {
	return fmt.Sprintf("event:%s", eventID)
}
