package model

import "time"

const (
	StatusPending   = "pending"
	StatusConfirmed = "confirmed"
	StatusCompleted = "completed"
	StatusCancelled = "cancelled"
	StatusRejected  = "rejected"
)

// IsActiveStatus reports whether an appointment in this status still occupies its time.
func IsActiveStatus(status string) bool {
	return status != StatusCancelled && status != StatusRejected
}

type Appointment struct {
	ID           string
	ClinicID     string
	ProviderID   string
	PatientID    string
	ServiceIDs   []string
	Date         time.Time
	StartMinute  int
	EndMinute    int
	Status       string
	FollowUpOf   string
	Notes        string
	CancelledAt  *time.Time
	CancelReason string
	CreatedAt    time.Time
}

func (a Appointment) IsActive() bool {
	return IsActiveStatus(a.Status)
}

// DateString is the appointment's calendar date as YYYY-MM-DD.
func (a Appointment) DateString() string {
	return a.Date.Format(DateLayout)
}

const DateLayout = "2006-01-02"

// ParseDate parses a YYYY-MM-DD calendar date at midnight UTC.
func ParseDate(s string) (time.Time, error) {
	return time.ParseInLocation(DateLayout, s, time.UTC)
}

// SameDate compares calendar dates, ignoring clock and location.
func SameDate(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}
