package schedule

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

var ErrInvalidSchedule = errors.New("invalid weekly schedule")

// WeeklySchedule is a provider's static working pattern. End may be
// EndOfDay for a provider who works until midnight.
type WeeklySchedule struct {
	Start        Clock
	End          Clock
	SlotDuration time.Duration
	WorkingDays  []time.Weekday
}

func (s WeeklySchedule) Validate() error {
	if len(s.WorkingDays) == 0 {
		return fmt.Errorf("%w: no working days", ErrInvalidSchedule)
	}
	for _, d := range s.WorkingDays {
		if d < time.Sunday || d > time.Saturday {
			return fmt.Errorf("%w: weekday %d out of range", ErrInvalidSchedule, d)
		}
	}
	if s.SlotDuration < time.Minute || s.SlotDuration%time.Minute != 0 {
		return fmt.Errorf("%w: slot duration %s must be whole minutes", ErrInvalidSchedule, s.SlotDuration)
	}
	if s.Start >= s.End {
		return fmt.Errorf("%w: start %s not before end %s", ErrInvalidSchedule, s.Start, s.End)
	}
	return nil
}

// WorksOn reports whether the weekday of date is a working day.
func (s WeeklySchedule) WorksOn(date time.Time) bool {
	wd := date.Weekday()
	for _, d := range s.WorkingDays {
		if d == wd {
			return true
		}
	}
	return false
}

// Labels enumerates slot start times over [Start, End). The last slot starts
// strictly before End even if it would run past it.
func (s WeeklySchedule) Labels() []Clock {
	step := Clock(s.SlotDuration / time.Minute)
	if step <= 0 || s.Start >= s.End {
		return nil
	}
	labels := make([]Clock, 0, int(s.End-s.Start)/int(step)+1)
	for c := s.Start; c < s.End; c += step {
		labels = append(labels, c)
	}
	return labels
}

// HasLabel reports whether label is one of the generated slot start times.
func (s WeeklySchedule) HasLabel(label string) bool {
	c, err := ParseClock(label)
	if err != nil {
		return false
	}
	step := Clock(s.SlotDuration / time.Minute)
	if step <= 0 || c < s.Start || c >= s.End {
		return false
	}
	return (c-s.Start)%step == 0
}

// Provider is read-only to the booking engine. Deleted providers are kept for
// appointment history and are never offered for booking.
type Provider struct {
	ID          uuid.UUID
	DisplayName string
	Schedule    WeeklySchedule
	Active      bool
	Deleted     bool
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Bookable reports whether new appointments may be taken for the provider.
func (p Provider) Bookable() bool {
	return p.Active && !p.Deleted
}
