package appointment

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Store is the durable appointment collection. Implementations must make
// Reserve atomic: the conflict check and the insert commit together or not at all.
type Store interface {
	// ListByProvider returns the provider's appointments on calendar days
	// from..to inclusive, ordered by date then time.
	ListByProvider(ctx context.Context, providerID uuid.UUID, from, to time.Time) ([]Appointment, error)
	// ListLive returns live appointments of every provider on days from..to inclusive.
	ListLive(ctx context.Context, from, to time.Time) ([]Appointment, error)
	CountLiveForPatient(ctx context.Context, patientID, providerID uuid.UUID) (int, error)

	// Reserve inserts appt unless another live appointment holds the same
	// provider, date and time, in which case it returns ErrSlotTaken.
	// A lost serialization race is reported as ErrTxConflict.
	Reserve(ctx context.Context, appt Appointment) error

	GetByID(ctx context.Context, id uuid.UUID) (*Appointment, error)
	// UpdateStatus writes Status, UpdatedAt and ArrivedAt of appt if the stored
	// status still equals from, otherwise it returns ErrStaleStatus.
	UpdateStatus(ctx context.Context, appt Appointment, from Status) error
	UpdateNotes(ctx context.Context, id uuid.UUID, notes string, updatedAt time.Time) error
}

// conflicting returns the first appointment in existing that holds the slot.
func conflicting(existing []Appointment, date time.Time, label string) *Appointment {
	for i := range existing {
		if existing[i].Occupies(date, label) {
			return &existing[i]
		}
	}
	return nil
}
