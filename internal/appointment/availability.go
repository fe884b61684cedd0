package appointment

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/hackgods/clinic-booking-engine/internal/config"
	"github.com/hackgods/clinic-booking-engine/internal/schedule"
)

type SlotState string

const (
	SlotFree     SlotState = "free"
	SlotOccupied SlotState = "occupied"
	SlotBlocked  SlotState = "blocked"
	SlotPast     SlotState = "past"
)

type Slot struct {
	ProviderID   uuid.UUID
	ProviderName string
	Date         time.Time
	Time         string
	State        SlotState
	// Appointment is set for occupied slots and for slots blocked by an administrative block.
	Appointment *Appointment
}

// ComputeDaySlots derives the provider's slots for one calendar day. It is
// pure: the result depends only on its arguments and is ordered by time.
//
// A non-working weekday yields no slots. An exception day yields every slot
// tagged blocked, so callers can tell the two apart.
func ComputeDaySlots(p schedule.Provider, date time.Time, exceptions schedule.ExceptionRegistry, onDate []Appointment, now time.Time, loc *time.Location) []Slot {
	date = schedule.DateOf(date)
	if !p.Schedule.WorksOn(date) {
		return []Slot{}
	}

	labels := p.Schedule.Labels()
	slots := make([]Slot, 0, len(labels))

	if exceptions.Blocks(date, p.ID) {
		for _, l := range labels {
			slots = append(slots, Slot{ProviderID: p.ID, ProviderName: p.DisplayName, Date: date, Time: l.String(), State: SlotBlocked})
		}
		return slots
	}

	// A real patient's booking wins over an administrative block if both are live.
	holders := make(map[string]Appointment)
	for _, a := range onDate {
		if a.ProviderID != p.ID || !a.Status.IsLive() || !schedule.DateOf(a.Date).Equal(date) {
			continue
		}
		if cur, ok := holders[a.Time]; ok && !cur.IsBlock() {
			continue
		}
		holders[a.Time] = a
	}

	for _, l := range labels {
		s := Slot{ProviderID: p.ID, ProviderName: p.DisplayName, Date: date, Time: l.String()}
		if a, ok := holders[s.Time]; ok {
			c := a.clone()
			s.Appointment = &c
			if a.IsBlock() {
				s.State = SlotBlocked
			} else {
				s.State = SlotOccupied
			}
		} else if l.On(date, loc).Before(now) {
			s.State = SlotPast
		} else {
			s.State = SlotFree
		}
		slots = append(slots, s)
	}
	return slots
}

// MergeDaySlots flattens per-provider slot lists ordered by time, then provider id.
func MergeDaySlots(perProvider ...[]Slot) []Slot {
	var out []Slot
	for _, s := range perProvider {
		out = append(out, s...)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Time != out[j].Time {
			return out[i].Time < out[j].Time
		}
		return bytes.Compare(out[i].ProviderID[:], out[j].ProviderID[:]) < 0
	})
	return out
}

// Availability is the read path: it gathers the calculator inputs from the
// directory and the store and never writes.
type Availability struct {
	store     Store
	directory schedule.Directory
	loc       *time.Location
	timeout   time.Duration
	now       func() time.Time
}

func NewAvailability(store Store, directory schedule.Directory, cfg config.Config) *Availability {
	loc := cfg.ClinicTimezone
	if loc == nil {
		loc = time.UTC
	}
	return &Availability{
		store:     store,
		directory: directory,
		loc:       loc,
		timeout:   cfg.StoreTimeout,
		now:       time.Now,
	}
}

// WithClock overrides the time source.
func (a *Availability) WithClock(now func() time.Time) *Availability {
	a.now = now
	return a
}

// DaySlots returns the slots of one provider on date.
func (a *Availability) DaySlots(ctx context.Context, providerID uuid.UUID, date time.Time) ([]Slot, error) {
	ctx, cancel := withTimeout(ctx, a.timeout)
	defer cancel()

	p, err := a.directory.GetProvider(ctx, providerID)
	if err != nil {
		return nil, storeError("load provider", err)
	}
	exceptions, err := a.directory.ExceptionsOn(ctx, date)
	if err != nil {
		return nil, storeError("load exception days", err)
	}
	appts, err := a.store.ListByProvider(ctx, providerID, date, date)
	if err != nil {
		return nil, storeError("load appointments", err)
	}

	return ComputeDaySlots(*p, date, exceptions, appts, a.now(), a.loc), nil
}

// AllDaySlots returns the merged slots of every bookable provider on date.
func (a *Availability) AllDaySlots(ctx context.Context, date time.Time) ([]Slot, error) {
	ctx, cancel := withTimeout(ctx, a.timeout)
	defer cancel()

	providers, err := a.directory.ListBookableProviders(ctx)
	if err != nil {
		return nil, storeError("list providers", err)
	}
	exceptions, err := a.directory.ExceptionsOn(ctx, date)
	if err != nil {
		return nil, storeError("load exception days", err)
	}
	live, err := a.store.ListLive(ctx, date, date)
	if err != nil {
		return nil, storeError("load appointments", err)
	}

	now := a.now()
	perProvider := make([][]Slot, 0, len(providers))
	for _, p := range providers {
		perProvider = append(perProvider, ComputeDaySlots(p, date, exceptions, live, now, a.loc))
	}
	return MergeDaySlots(perProvider...), nil
}

func withTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, d)
}

// storeError keeps domain errors intact and classifies everything else,
// deadlines included, as the store being unavailable.
func storeError(op string, err error) error {
	switch {
	case errors.Is(err, ErrNotFound),
		errors.Is(err, ErrProviderNotFound),
		errors.Is(err, ErrSlotTaken),
		errors.Is(err, ErrStaleStatus),
		errors.Is(err, ErrTxConflict):
		return err
	}
	return fmt.Errorf("%s: %w: %w", op, ErrStoreUnavailable, err)
}
