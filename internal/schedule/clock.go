package schedule

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Clock is a time of day in whole minutes since midnight. Its string form is
// the slot label persisted on appointments, e.g. "09:20".
type Clock int

// EndOfDay is "24:00". It is only meaningful as a schedule end; no slot can
// start there.
const EndOfDay Clock = 24 * 60

// ParseClock parses a 24h "HH:MM" label. A one-digit hour is accepted, so
// callers that persist labels must store String(), never the input.
func ParseClock(s string) (Clock, error) {
	hh, mm, ok := strings.Cut(s, ":")
	if !ok || len(hh) < 1 || len(hh) > 2 || len(mm) != 2 || !digits(hh) || !digits(mm) {
		return 0, fmt.Errorf("invalid time label %q: want HH:MM", s)
	}
	h, errH := strconv.Atoi(hh)
	m, errM := strconv.Atoi(mm)
	if errH != nil || errM != nil || m > 59 {
		return 0, fmt.Errorf("invalid time label %q: want HH:MM", s)
	}
	c := Clock(h*60 + m)
	if c > EndOfDay {
		return 0, fmt.Errorf("invalid time label %q: past 24:00", s)
	}
	return c, nil
}

func digits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// MustClock is ParseClock for literals; it panics on malformed input.
func MustClock(s string) Clock {
	c, err := ParseClock(s)
	if err != nil {
		panic(err)
	}
	return c
}

func (c Clock) String() string {
	return fmt.Sprintf("%02d:%02d", int(c)/60, int(c)%60)
}

// On returns the instant this clock time falls on for the given calendar day in loc.
func (c Clock) On(date time.Time, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.UTC
	}
	y, m, d := date.Date()
	return time.Date(y, m, d, int(c)/60, int(c)%60, 0, 0, loc)
}
