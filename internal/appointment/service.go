package appointment

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
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

const (
	EventAppointmentCreated = "APPOINTMENT_CREATED"
)

var tracer = otel.Tracer("github.com/hackgods/clinic-booking-engine/internal/appointment")

// Effects receives post-commit side effects. Implementations must not block
// and must not report failures back; *dispatch.Dispatcher is the production one.
type Effects interface {
	Audit(e dispatch.AuditEntry)
	Notify(n dispatch.Notification)
}

// SlotLocker serialises work on one slot key across processes. It only
// reduces contention; the store transaction is what guarantees uniqueness.
type SlotLocker interface {
	WithSlotLock(ctx context.Context, key string, fn func(ctx context.Context) error) error
}

type noEffects struct{}

func (noEffects) Audit(dispatch.AuditEntry)      {}
func (noEffects) Notify(dispatch.Notification) {}

type BookRequest struct {
	ProviderID uuid.UUID
	PatientID  uuid.UUID
	// ActorID is recorded on the audit entry; it defaults to the patient.
	ActorID string
	Date    time.Time
	Time    string
	Patient PatientSnapshot
	// Attachments are references to documents stored elsewhere.
	Attachments []string
}

func (r BookRequest) validate() error {
	if r.ProviderID == uuid.Nil {
		return fmt.Errorf("%w: provider id is required", ErrInvalidRequest)
	}
	if r.PatientID == uuid.Nil {
		return fmt.Errorf("%w: patient id is required", ErrInvalidRequest)
	}
	if r.Date.IsZero() {
		return fmt.Errorf("%w: date is required", ErrInvalidRequest)
	}
	if _, err := schedule.ParseClock(r.Time); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidRequest, err)
	}
	if r.PatientID != BlockedSlotPatient && r.Patient.Name == "" {
		return fmt.Errorf("%w: patient name is required", ErrInvalidRequest)
	}
	return nil
}

// Coordinator is the write path for new appointments.
type Coordinator struct {
	store         Store
	directory     schedule.Directory
	locker        SlotLocker
	effects       Effects
	logger        *zap.Logger
	metrics       *metrics.BookingMetrics
	loc           *time.Location
	timeout       time.Duration
	maxAttempts   int
	initialStatus Status
	backoff       time.Duration
	now           func() time.Time
}

func NewCoordinator(store Store, directory schedule.Directory, locker SlotLocker, effects Effects, cfg config.Config, logger *zap.Logger) *Coordinator {
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
	initial := StatusConfirmed
	if cfg.RequireProviderConfirmation {
		initial = StatusPending
	}
	return &Coordinator{
		store:         store,
		directory:     directory,
		locker:        locker,
		effects:       effects,
		logger:        logging.OrNop(logger),
		loc:           loc,
		timeout:       cfg.StoreTimeout,
		maxAttempts:   attempts,
		initialStatus: initial,
		backoff:       15 * time.Millisecond,
		now:           time.Now,
	}
}

func (c *Coordinator) WithMetrics(m *metrics.BookingMetrics) *Coordinator {
	c.metrics = m
	return c
}

func (c *Coordinator) WithClock(now func() time.Time) *Coordinator {
	c.now = now
	return c
}

// Book reserves a slot and returns the new appointment id. Losers of a race
// for the same slot get ErrSlotTaken. Side effects run after the commit and
// cannot fail the booking.
func (c *Coordinator) Book(ctx context.Context, req BookRequest) (uuid.UUID, error) {
	ctx, span := tracer.Start(ctx, "appointment.Book", trace.WithAttributes(
		attribute.String("provider_id", req.ProviderID.String()),
		attribute.String("slot", req.Time),
	))
	defer span.End()

	start := time.Now()
	id, err := c.book(ctx, req)
	c.metrics.ObserveBooking(Code(err), time.Since(start).Seconds())
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, Code(err))
		return uuid.Nil, err
	}
	span.SetAttributes(attribute.String("appointment_id", id.String()))
	return id, nil
}

func (c *Coordinator) book(ctx context.Context, req BookRequest) (uuid.UUID, error) {
	if err := req.validate(); err != nil {
		return uuid.Nil, err
	}
	req.Date = schedule.DateOf(req.Date)
	// Labels are compared as strings everywhere, including the unique index.
	req.Time = schedule.MustClock(req.Time).String()

	ctx, cancel := withTimeout(ctx, c.timeout)
	defer cancel()

	if err := c.checkOffered(ctx, req); err != nil {
		return uuid.Nil, err
	}

	blocking := req.PatientID == BlockedSlotPatient

	// Advisory: a race here can let a patient exceed the limit by one.
	if !blocking {
		n, err := c.store.CountLiveForPatient(ctx, req.PatientID, req.ProviderID)
		if err != nil {
			return uuid.Nil, storeError("count live appointments", err)
		}
		if n >= 1 {
			return uuid.Nil, ErrLimitExceeded
		}
	}

	now := c.now().UTC()
	appt := Appointment{
		ID:         uuid.New(),
		ProviderID: req.ProviderID,
		PatientID:  req.PatientID,
		Patient:    req.Patient,
		Date:       req.Date,
		Time:       req.Time,
		Status:     c.initialStatus,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if len(req.Attachments) > 0 {
		appt.Attachments = append([]string(nil), req.Attachments...)
	}
	if blocking {
		appt.Status = StatusConfirmed
	}

	if err := c.reserveLocked(ctx, appt); err != nil {
		return uuid.Nil, err
	}

	c.afterCreate(appt, req.ActorID)
	return appt.ID, nil
}

// checkOffered rejects slots the provider's schedule does not produce, days
// blocked by an exception, and slots already in the past.
func (c *Coordinator) checkOffered(ctx context.Context, req BookRequest) error {
	p, err := c.directory.GetProvider(ctx, req.ProviderID)
	if err != nil {
		return storeError("load provider", err)
	}
	if !p.Bookable() {
		return fmt.Errorf("%w: provider %s is not accepting bookings", ErrProviderNotFound, p.ID)
	}
	if !p.Schedule.WorksOn(req.Date) || !p.Schedule.HasLabel(req.Time) {
		return fmt.Errorf("%w: %s %s", ErrSlotUnavailable, req.Date.Format(schedule.DateLayout), req.Time)
	}
	exceptions, err := c.directory.ExceptionsOn(ctx, req.Date)
	if err != nil {
		return storeError("load exception days", err)
	}
	if reason, blocked := exceptions.Reason(req.Date, p.ID); blocked {
		return fmt.Errorf("%w: day blocked (%s)", ErrSlotUnavailable, reason)
	}
	at := schedule.MustClock(req.Time).On(req.Date, c.loc)
	if at.Before(c.now()) {
		return fmt.Errorf("%w: slot %s is in the past", ErrSlotUnavailable, req.Time)
	}
	return nil
}

func (c *Coordinator) reserveLocked(ctx context.Context, appt Appointment) error {
	if c.locker == nil {
		return c.reserve(ctx, appt)
	}

	key := fmt.Sprintf("%s:%s:%s", appt.ProviderID, appt.Date.Format(schedule.DateLayout), appt.Time)
	ran := false
	err := c.locker.WithSlotLock(ctx, key, func(lockCtx context.Context) error {
		ran = true
		return c.reserve(lockCtx, appt)
	})
	if !ran {
		if ctx.Err() != nil {
			return storeError("acquire slot lock", ctx.Err())
		}
		c.logger.Warn("slot lock unavailable, relying on store transaction",
			zap.String("slot", key), zap.Error(err))
		return c.reserve(ctx, appt)
	}
	return err
}

// reserve retries the store transaction on serialization conflicts.
func (c *Coordinator) reserve(ctx context.Context, appt Appointment) error {
	var err error
	for attempt := 1; attempt <= c.maxAttempts; attempt++ {
		err = c.store.Reserve(ctx, appt)
		if !errors.Is(err, ErrTxConflict) {
			break
		}
		if attempt == c.maxAttempts {
			break
		}
		c.metrics.ObserveTxRetry()
		c.logger.Debug("reservation conflict, retrying",
			zap.String("provider_id", appt.ProviderID.String()),
			zap.String("slot", appt.Time),
			zap.Int("attempt", attempt))

		select {
		case <-ctx.Done():
			return storeError("reserve slot", ctx.Err())
		case <-time.After(time.Duration(attempt) * c.backoff):
		}
	}

	switch {
	case err == nil:
		return nil
	case errors.Is(err, ErrSlotTaken):
		return ErrSlotTaken
	case errors.Is(err, ErrTxConflict):
		return fmt.Errorf("reserve slot after %d attempts: %w: %w", c.maxAttempts, ErrStoreUnavailable, err)
	}
	return storeError("reserve slot", err)
}

func (c *Coordinator) afterCreate(appt Appointment, actorID string) {
	if actorID == "" {
		actorID = appt.PatientID.String()
	}
	c.effects.Audit(dispatch.AuditEntry{
		Action:  EventAppointmentCreated,
		ActorID: actorID,
		At:      appt.CreatedAt,
		Metadata: map[string]any{
			"appointment_id": appt.ID.String(),
			"provider_id":    appt.ProviderID.String(),
			"patient_id":     appt.PatientID.String(),
			"date":           appt.Date.Format(schedule.DateLayout),
			"time":           appt.Time,
			"status":         string(appt.Status),
		},
	})
	if appt.IsBlock() {
		return
	}
	c.effects.Notify(notificationFor(dispatch.KindConfirmation, appt))
}

func notificationFor(kind dispatch.Kind, appt Appointment) dispatch.Notification {
	return dispatch.Notification{
		Kind:          kind,
		AppointmentID: appt.ID.String(),
		Recipient: dispatch.Recipient{
			PatientID: appt.PatientID.String(),
			Name:      appt.Patient.Name,
			Email:     appt.Patient.Email,
			Phone:     appt.Patient.Phone,
		},
		TemplateData: map[string]string{
			"provider_id": appt.ProviderID.String(),
			"date":        appt.Date.Format(schedule.DateLayout),
			"time":        appt.Time,
			"status":      string(appt.Status),
		},
	}
}
