package schedule

import (
	"fmt"
	"time"
)

// DateLayout is the wire and query format for calendar days.
const DateLayout = "2006-01-02"

// DateOf strips the time of day from t and normalises it to midnight UTC.
// Calendar days are compared and stored in this form.
func DateOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// ParseDate parses a YYYY-MM-DD calendar day.
func ParseDate(s string) (time.Time, error) {
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q: %w", s, err)
	}
	return t, nil
}

// Today is the current calendar day as observed in loc.
func Today(now time.Time, loc *time.Location) time.Time {
	if loc != nil {
		now = now.In(loc)
	}
	return DateOf(now)
}
