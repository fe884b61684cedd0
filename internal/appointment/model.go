package appointment

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

type Status string

const (
	StatusPending   Status = "pending"
	StatusConfirmed Status = "confirmed"
	StatusArrived   Status = "arrived"
	StatusCompleted Status = "completed"
	StatusAbsent    Status = "absent"
	StatusCancelled Status = "cancelled"
)

// ParseStatus rejects anything outside the closed status set.
func ParseStatus(s string) (Status, error) {
	switch st := Status(s); st {
	case StatusPending, StatusConfirmed, StatusArrived, StatusCompleted, StatusAbsent, StatusCancelled:
		return st, nil
	}
	return "", fmt.Errorf("unknown appointment status %q", s)
}

// IsLive reports whether the status holds its slot. Live appointments count
// towards both the slot conflict check and the per-provider patient limit.
func (s Status) IsLive() bool {
	switch s {
	case StatusPending, StatusConfirmed, StatusArrived:
		return true
	}
	return false
}

// IsTerminal reports whether no further transitions are defined.
func (s Status) IsTerminal() bool {
	switch s {
	case StatusCompleted, StatusAbsent, StatusCancelled:
		return true
	}
	return false
}

// LiveStatuses lists the statuses for which IsLive is true.
func LiveStatuses() []Status {
	return []Status{StatusPending, StatusConfirmed, StatusArrived}
}

// BlockedSlotPatient marks an administratively blocked slot with no real patient.
var BlockedSlotPatient = uuid.Max

// PatientSnapshot is copied onto the appointment at booking time and never
// re-joined, so later profile edits do not rewrite history.
type PatientSnapshot struct {
	Name  string `json:"name"`
	Email string `json:"email,omitempty"`
	Phone string `json:"phone,omitempty"`
}

type Appointment struct {
	ID           uuid.UUID
	ProviderID   uuid.UUID
	PatientID    uuid.UUID
	Patient      PatientSnapshot
	Date         time.Time // calendar day, midnight UTC
	Time         string    // slot label, "HH:MM"
	Status       Status
	CreatedAt    time.Time
	UpdatedAt    time.Time
	ArrivedAt    *time.Time
	MedicalNotes *string
	Attachments  []string
}

// IsBlock reports whether the appointment is an administrative block.
func (a Appointment) IsBlock() bool {
	return a.PatientID == BlockedSlotPatient
}

// Occupies reports whether a holds the slot (date, label).
func (a Appointment) Occupies(date time.Time, label string) bool {
	return a.Status.IsLive() && a.Time == label && a.Date.Equal(date)
}

func (a Appointment) clone() Appointment {
	c := a
	if a.ArrivedAt != nil {
		t := *a.ArrivedAt
		c.ArrivedAt = &t
	}
	if a.MedicalNotes != nil {
		n := *a.MedicalNotes
		c.MedicalNotes = &n
	}
	if a.Attachments != nil {
		c.Attachments = append([]string(nil), a.Attachments...)
	}
	return c
}
