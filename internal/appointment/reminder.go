package appointment

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/hackgods/clinic-booking-engine/internal/config"
	"github.com/hackgods/clinic-booking-engine/internal/dispatch"
	"github.com/hackgods/clinic-booking-engine/internal/logging"
	"github.com/hackgods/clinic-booking-engine/internal/metrics"
	"github.com/hackgods/clinic-booking-engine/internal/schedule"
)

// ReminderMarker records that a reminder went out. MarkOnce returns true only
// for the first caller of a key.
type ReminderMarker interface {
	MarkOnce(ctx context.Context, key string, ttl time.Duration) (bool, error)
}

// ReminderScanner queues one reminder per upcoming appointment.
type ReminderScanner struct {
	store    Store
	effects  Effects
	marker   ReminderMarker
	leadTime time.Duration
	loc      *time.Location
	logger   *zap.Logger
	metrics  *metrics.BookingMetrics
}

func NewReminderScanner(store Store, effects Effects, marker ReminderMarker, cfg config.Config, logger *zap.Logger) *ReminderScanner {
	if effects == nil {
		effects = noEffects{}
	}
	loc := cfg.ClinicTimezone
	if loc == nil {
		loc = time.UTC
	}
	return &ReminderScanner{
		store:    store,
		effects:  effects,
		marker:   marker,
		leadTime: cfg.ReminderLeadTime,
		loc:      loc,
		logger:   logging.OrNop(logger),
	}
}

func (r *ReminderScanner) WithMetrics(m *metrics.BookingMetrics) *ReminderScanner {
	r.metrics = m
	return r
}

// Run queues reminders for the calendar day leadTime after now and returns
// how many were queued. A marker failure skips the appointment rather than
// risk a duplicate.
func (r *ReminderScanner) Run(ctx context.Context, now time.Time) (int, error) {
	day := schedule.Today(now.Add(r.leadTime), r.loc)

	appts, err := r.store.ListLive(ctx, day, day)
	if err != nil {
		return 0, fmt.Errorf("list upcoming appointments: %w", err)
	}

	queued := 0
	for _, a := range appts {
		if a.IsBlock() || a.Status == StatusArrived {
			continue
		}
		if r.marker != nil {
			first, err := r.marker.MarkOnce(ctx, "reminder:sent:"+a.ID.String(), 2*r.leadTime+24*time.Hour)
			if err != nil {
				r.logger.Warn("reminder mark failed, skipping", zap.String("appointment_id", a.ID.String()), zap.Error(err))
				continue
			}
			if !first {
				continue
			}
		}
		r.effects.Notify(notificationFor(dispatch.KindReminder, a))
		r.metrics.ObserveReminderQueued()
		queued++
	}
	return queued, nil
}
