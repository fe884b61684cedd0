package appointment

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/hackgods/clinic-booking-engine/internal/schedule"
)

// MemoryStore is an in-process Store. A single mutex serialises Reserve, which
// gives the same all-or-nothing guarantee as the Postgres transaction.
type MemoryStore struct {
	mu    sync.RWMutex
	byID  map[uuid.UUID]Appointment
	order []uuid.UUID
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{byID: make(map[uuid.UUID]Appointment)}
}

func (s *MemoryStore) ListByProvider(ctx context.Context, providerID uuid.UUID, from, to time.Time) ([]Appointment, error) {
	return s.list(ctx, func(a Appointment) bool {
		return a.ProviderID == providerID && inDays(a.Date, from, to)
	})
}

func (s *MemoryStore) ListLive(ctx context.Context, from, to time.Time) ([]Appointment, error) {
	return s.list(ctx, func(a Appointment) bool {
		return a.Status.IsLive() && inDays(a.Date, from, to)
	})
}

func (s *MemoryStore) CountLiveForPatient(ctx context.Context, patientID, providerID uuid.UUID) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := 0
	for _, a := range s.byID {
		if a.PatientID == patientID && a.ProviderID == providerID && a.Status.IsLive() {
			n++
		}
	}
	return n, nil
}

func (s *MemoryStore) Reserve(ctx context.Context, appt Appointment) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	appt.Date = schedule.DateOf(appt.Date)
	for _, a := range s.byID {
		if a.ProviderID == appt.ProviderID && a.Occupies(appt.Date, appt.Time) {
			return ErrSlotTaken
		}
	}
	s.byID[appt.ID] = appt.clone()
	s.order = append(s.order, appt.ID)
	return nil
}

func (s *MemoryStore) GetByID(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.byID[id]
	if !ok {
		return nil, ErrAppointmentNotFound
	}
	c := a.clone()
	return &c, nil
}

func (s *MemoryStore) UpdateStatus(ctx context.Context, appt Appointment, from Status) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, ok := s.byID[appt.ID]
	if !ok {
		return ErrAppointmentNotFound
	}
	if cur.Status != from {
		return ErrStaleStatus
	}
	cur.Status = appt.Status
	cur.UpdatedAt = appt.UpdatedAt
	cur.ArrivedAt = appt.clone().ArrivedAt
	s.byID[appt.ID] = cur
	return nil
}

func (s *MemoryStore) UpdateNotes(ctx context.Context, id uuid.UUID, notes string, updatedAt time.Time) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, ok := s.byID[id]
	if !ok {
		return ErrAppointmentNotFound
	}
	cur.MedicalNotes = &notes
	cur.UpdatedAt = updatedAt
	s.byID[id] = cur
	return nil
}

func (s *MemoryStore) list(ctx context.Context, keep func(Appointment) bool) ([]Appointment, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []Appointment
	for _, id := range s.order {
		if a := s.byID[id]; keep(a) {
			out = append(out, a.clone())
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].Date.Equal(out[j].Date) {
			return out[i].Date.Before(out[j].Date)
		}
		return out[i].Time < out[j].Time
	})
	return out, nil
}

func inDays(d, from, to time.Time) bool {
	d = schedule.DateOf(d)
	return !d.Before(schedule.DateOf(from)) && !d.After(schedule.DateOf(to))
}
