package model

import "time"

const (
	StatusConfirmed = "confirmed"
	StatusPending   = "pending"
	StatusCancelled = "cancelled"
)

// Appointment is the persisted booking record. Patient name and phone are
// copied from the requester's profile at booking time so the record stays
// self-contained when the profile changes later.
type Appointment struct {
	ID           string
	UserID       string
	PatientName  string
	PatientPhone string
	Service      string
	Date         time.Time // calendar day; time-of-day lives in Slot
	Slot         string    // "15:04"
	Status       string
	CreatedAt    time.Time
}
