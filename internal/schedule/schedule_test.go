package schedule

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func weekdays() []time.Weekday {
	return []time.Weekday{time.Monday, time.Tuesday, time.Wednesday, time.Thursday, time.Friday}
}

func TestParseClock(t *testing.T) {
	c, err := ParseClock("09:20")
	require.NoError(t, err)
	assert.Equal(t, Clock(9*60+20), c)
	assert.Equal(t, "09:20", c.String())

	short, err := ParseClock("8:05")
	require.NoError(t, err)
	assert.Equal(t, "08:05", short.String())

	end, err := ParseClock("24:00")
	require.NoError(t, err)
	assert.Equal(t, EndOfDay, end)

	for _, bad := range []string{"", "9", "24:01", "25:00", "09:60", "09:5", "-1:00", "123:00", "nine", "+8:00"} {
		_, err := ParseClock(bad)
		assert.Error(t, err, bad)
	}
}

func TestScheduleUntilMidnight(t *testing.T) {
	s := WeeklySchedule{Start: MustClock("22:00"), End: MustClock("24:00"), SlotDuration: 30 * time.Minute, WorkingDays: weekdays()}
	require.NoError(t, s.Validate())

	var got []string
	for _, l := range s.Labels() {
		got = append(got, l.String())
	}
	assert.Equal(t, []string{"22:00", "22:30", "23:00", "23:30"}, got)
	assert.True(t, s.HasLabel("23:30"))
	assert.False(t, s.HasLabel("24:00"))
}

func TestClockOn(t *testing.T) {
	loc, err := time.LoadLocation("Europe/Madrid")
	require.NoError(t, err)

	day := time.Date(2026, 10, 19, 0, 0, 0, 0, time.UTC)
	at := MustClock("08:40").On(day, loc)
	assert.Equal(t, time.Date(2026, 10, 19, 8, 40, 0, 0, loc), at)
}

func TestLabelsHalfOpen(t *testing.T) {
	s := WeeklySchedule{Start: MustClock("08:00"), End: MustClock("09:00"), SlotDuration: 20 * time.Minute, WorkingDays: weekdays()}
	require.NoError(t, s.Validate())

	var got []string
	for _, l := range s.Labels() {
		got = append(got, l.String())
	}
	assert.Equal(t, []string{"08:00", "08:20", "08:40"}, got)
}

func TestLabelsLastSlotStartsBeforeEnd(t *testing.T) {
	s := WeeklySchedule{Start: MustClock("08:00"), End: MustClock("09:00"), SlotDuration: 25 * time.Minute, WorkingDays: weekdays()}

	var got []string
	for _, l := range s.Labels() {
		got = append(got, l.String())
	}
	assert.Equal(t, []string{"08:00", "08:25", "08:50"}, got)
}

func TestHasLabel(t *testing.T) {
	s := WeeklySchedule{Start: MustClock("08:00"), End: MustClock("09:00"), SlotDuration: 20 * time.Minute, WorkingDays: weekdays()}

	assert.True(t, s.HasLabel("08:20"))
	assert.False(t, s.HasLabel("08:10"))
	assert.False(t, s.HasLabel("09:00"))
	assert.False(t, s.HasLabel("07:40"))
	assert.False(t, s.HasLabel("garbage"))
	assert.True(t, s.HasLabel("8:20"))
}

func TestValidate(t *testing.T) {
	base := WeeklySchedule{Start: MustClock("08:00"), End: MustClock("12:00"), SlotDuration: 15 * time.Minute, WorkingDays: weekdays()}

	tests := []struct {
		name   string
		mutate func(*WeeklySchedule)
	}{
		{"no working days", func(s *WeeklySchedule) { s.WorkingDays = nil }},
		{"weekday out of range", func(s *WeeklySchedule) { s.WorkingDays = []time.Weekday{7} }},
		{"zero duration", func(s *WeeklySchedule) { s.SlotDuration = 0 }},
		{"fractional minutes", func(s *WeeklySchedule) { s.SlotDuration = 90 * time.Second }},
		{"start after end", func(s *WeeklySchedule) { s.Start, s.End = s.End, s.Start }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := base
			tt.mutate(&s)
			assert.ErrorIs(t, s.Validate(), ErrInvalidSchedule)
		})
	}
	assert.NoError(t, base.Validate())
}

func TestWorksOn(t *testing.T) {
	s := WeeklySchedule{WorkingDays: weekdays()}
	assert.True(t, s.WorksOn(time.Date(2026, 10, 19, 0, 0, 0, 0, time.UTC)))  // Monday
	assert.False(t, s.WorksOn(time.Date(2026, 10, 18, 0, 0, 0, 0, time.UTC))) // Sunday
}

func TestExceptionRegistry(t *testing.T) {
	day := time.Date(2026, 12, 25, 0, 0, 0, 0, time.UTC)
	p1, p2 := uuid.New(), uuid.New()

	reg := ExceptionRegistry{
		{Date: day, ProviderID: &p1, Reason: "leave"},
	}
	assert.True(t, reg.Blocks(day.Add(10*time.Hour), p1))
	assert.False(t, reg.Blocks(day, p2))
	assert.False(t, reg.Blocks(day.AddDate(0, 0, 1), p1))

	reg = append(reg, ExceptionDay{Date: day, Reason: "holiday"})
	assert.True(t, reg.Blocks(day, p2))

	reason, ok := reg.Reason(day, p2)
	assert.True(t, ok)
	assert.Equal(t, "holiday", reason)
}

func TestDateHelpers(t *testing.T) {
	d, err := ParseDate("2026-10-19")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 10, 19, 0, 0, 0, 0, time.UTC), d)

	_, err = ParseDate("19/10/2026")
	assert.Error(t, err)

	loc := time.FixedZone("UTC+10", 10*3600)
	now := time.Date(2026, 10, 19, 20, 0, 0, 0, time.UTC)
	assert.Equal(t, time.Date(2026, 10, 20, 0, 0, 0, 0, time.UTC), Today(now, loc))
}
