package appointment

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/hackgods/clinic-booking-engine/internal/config"
	"github.com/hackgods/clinic-booking-engine/internal/dispatch"
	"github.com/hackgods/clinic-booking-engine/internal/logging"
	"github.com/hackgods/clinic-booking-engine/internal/metrics"
	"github.com/hackgods/clinic-booking-engine/internal/schedule"
)

type Event string

const (
	EventConfirm       Event = "confirm"
	EventMarkArrived   Event = "mark-arrived"
	EventMarkCompleted Event = "mark-completed"
	EventUndoArrival   Event = "undo"
	EventMarkAbsent    Event = "mark-absent"
	EventCancel        Event = "cancel"
	EventUnblock       Event = "unblock"

	// EventRecordNotes is the audit action for visit notes; it changes no status.
	EventRecordNotes = "record-notes"
)

// transitions is the whole state machine: event -> from -> to.
var transitions = map[Event]map[Status]Status{
	EventConfirm: {
		StatusPending: StatusConfirmed,
	},
	EventMarkArrived: {
		StatusPending:   StatusArrived,
		StatusConfirmed: StatusArrived,
	},
	EventMarkCompleted: {
		StatusArrived: StatusCompleted,
	},
	EventUndoArrival: {
		StatusArrived: StatusConfirmed,
	},
	EventMarkAbsent: {
		StatusConfirmed: StatusAbsent,
	},
	EventCancel: {
		StatusPending:   StatusCancelled,
		StatusConfirmed: StatusCancelled,
		StatusArrived:   StatusCancelled,
	},
	EventUnblock: {
		StatusPending:   StatusCancelled,
		StatusConfirmed: StatusCancelled,
		StatusArrived:   StatusCancelled,
	},
}

// ParseEvent rejects events outside the transition table.
func ParseEvent(s string) (Event, error) {
	ev := Event(s)
	if _, ok := transitions[ev]; !ok {
		return "", fmt.Errorf("%w: unknown event %q", ErrInvalidTransition, s)
	}
	return ev, nil
}

// NextStatus looks up the table. It knows nothing about preconditions.
func NextStatus(from Status, ev Event) (Status, bool) {
	to, ok := transitions[ev][from]
	return to, ok
}

// Lifecycle applies table-approved transitions to stored appointments.
type Lifecycle struct {
	store       Store
	effects     Effects
	logger      *zap.Logger
	metrics     *metrics.BookingMetrics
	loc         *time.Location
	timeout     time.Duration
	maxAttempts int
	now         func() time.Time
}

func NewLifecycle(store Store, effects Effects, cfg config.Config, logger *zap.Logger) *Lifecycle {
	if effects == nil {
		effects = noEffects{}
	}
	loc := cfg.ClinicTimezone
	if loc == nil {
		loc = time.UTC
	}
	attempts := cfg.BookingMaxAttempts
	if attempts < 1 {
		attempts = 1
	}
	return &Lifecycle{
		store:       store,
		effects:     effects,
		logger:      logging.OrNop(logger),
		loc:         loc,
		timeout:     cfg.StoreTimeout,
		maxAttempts: attempts,
		now:         time.Now,
	}
}

func (l *Lifecycle) WithMetrics(m *metrics.BookingMetrics) *Lifecycle {
	l.metrics = m
	return l
}

func (l *Lifecycle) WithClock(now func() time.Time) *Lifecycle {
	l.now = now
	return l
}

// apply returns appt moved by ev, or ErrInvalidTransition when the table or a
// precondition forbids it.
func (l *Lifecycle) apply(appt Appointment, ev Event, now time.Time) (Appointment, error) {
	to, ok := NextStatus(appt.Status, ev)
	if !ok {
		return appt, fmt.Errorf("%w: %s from %s", ErrInvalidTransition, ev, appt.Status)
	}

	switch ev {
	case EventUnblock:
		if !appt.IsBlock() {
			return appt, fmt.Errorf("%w: unblock applies to blocked slots only", ErrInvalidTransition)
		}
	case EventConfirm, EventMarkArrived, EventMarkCompleted, EventUndoArrival, EventMarkAbsent:
		if appt.IsBlock() {
			return appt, fmt.Errorf("%w: %s does not apply to a blocked slot", ErrInvalidTransition, ev)
		}
	}

	next := appt.clone()
	next.Status = to
	next.UpdatedAt = now

	switch ev {
	case EventMarkArrived:
		if appt.Date.Before(schedule.Today(now, l.loc)) {
			return appt, fmt.Errorf("%w: appointment on %s is in the past", ErrInvalidTransition, appt.Date.Format(schedule.DateLayout))
		}
		arrived := now
		next.ArrivedAt = &arrived
	case EventUndoArrival:
		next.ArrivedAt = nil
	}
	return next, nil
}

// Transition applies ev to the appointment and returns its new state. The
// write is conditional on the status it was read with; a concurrent change
// causes a re-read and re-evaluation. When every attempt loses the race, a
// final read still decides whether the event has become illegal.
func (l *Lifecycle) Transition(ctx context.Context, id uuid.UUID, ev Event, actorID string) (*Appointment, error) {
	ctx, span := tracer.Start(ctx, "appointment.Transition", trace.WithAttributes(
		attribute.String("appointment_id", id.String()),
		attribute.String("event", string(ev)),
	))
	defer span.End()

	updated, err := l.transition(ctx, id, ev, actorID)
	l.metrics.ObserveTransition(string(ev), Code(err))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, Code(err))
		return nil, err
	}
	return updated, nil
}

func (l *Lifecycle) transition(ctx context.Context, id uuid.UUID, ev Event, actorID string) (*Appointment, error) {
	if _, ok := transitions[ev]; !ok {
		return nil, fmt.Errorf("%w: unknown event %q", ErrInvalidTransition, ev)
	}

	ctx, cancel := withTimeout(ctx, l.timeout)
	defer cancel()

	for attempt := 1; ; attempt++ {
		cur, err := l.store.GetByID(ctx, id)
		if err != nil {
			return nil, storeError("load appointment", err)
		}

		next, err := l.apply(*cur, ev, l.now().UTC())
		if err != nil {
			return nil, err
		}
		if attempt > l.maxAttempts {
			return nil, fmt.Errorf("%s still contended after %d attempts: %w: %w", ev, l.maxAttempts, ErrStoreUnavailable, ErrStaleStatus)
		}

		err = l.store.UpdateStatus(ctx, next, cur.Status)
		if errors.Is(err, ErrStaleStatus) {
			l.logger.Debug("appointment changed during transition, re-reading",
				zap.String("appointment_id", id.String()), zap.String("event", string(ev)), zap.Int("attempt", attempt))
			continue
		}
		if err != nil {
			return nil, storeError("update appointment status", err)
		}

		l.afterTransition(*cur, next, ev, actorID)
		return &next, nil
	}
}

func (l *Lifecycle) afterTransition(prev, next Appointment, ev Event, actorID string) {
	l.effects.Audit(dispatch.AuditEntry{
		Action:  string(ev),
		ActorID: actorID,
		At:      next.UpdatedAt,
		Metadata: map[string]any{
			"appointment_id": next.ID.String(),
			"provider_id":    next.ProviderID.String(),
			"from":           string(prev.Status),
			"to":             string(next.Status),
		},
	})

	if next.IsBlock() {
		return
	}
	switch ev {
	case EventCancel:
		l.effects.Notify(notificationFor(dispatch.KindCancellation, next))
	case EventMarkAbsent:
		l.effects.Notify(notificationFor(dispatch.KindAbsence, next))
	}
}

// RecordVisitNotes stores the provider's notes on an arrived or completed visit.
func (l *Lifecycle) RecordVisitNotes(ctx context.Context, id uuid.UUID, notes, actorID string) (*Appointment, error) {
	ctx, cancel := withTimeout(ctx, l.timeout)
	defer cancel()

	cur, err := l.store.GetByID(ctx, id)
	if err != nil {
		return nil, storeError("load appointment", err)
	}
	if cur.Status != StatusArrived && cur.Status != StatusCompleted {
		return nil, fmt.Errorf("%w: notes require an arrived or completed visit, got %s", ErrInvalidTransition, cur.Status)
	}

	now := l.now().UTC()
	if err := l.store.UpdateNotes(ctx, id, notes, now); err != nil {
		return nil, storeError("update medical notes", err)
	}
	cur.MedicalNotes = &notes
	cur.UpdatedAt = now

	l.effects.Audit(dispatch.AuditEntry{
		Action:  EventRecordNotes,
		ActorID: actorID,
		At:      now,
		Metadata: map[string]any{
			"appointment_id": id.String(),
		},
	})
	return cur, nil
}

// Get returns an appointment by id, including cancelled ones.
func (l *Lifecycle) Get(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	ctx, cancel := withTimeout(ctx, l.timeout)
	defer cancel()

	appt, err := l.store.GetByID(ctx, id)
	if err != nil {
		return nil, storeError("get appointment", err)
	}
	return appt, nil
}
