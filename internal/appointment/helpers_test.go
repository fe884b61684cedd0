package appointment

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/hackgods/clinic-booking-engine/internal/config"
	"github.com/hackgods/clinic-booking-engine/internal/dispatch"
	"github.com/hackgods/clinic-booking-engine/internal/schedule"
)

var (
	// Thursday; monday is the next working day.
	fixedNow = time.Date(2026, 10, 15, 12, 0, 0, 0, time.UTC)
	monday   = time.Date(2026, 10, 19, 0, 0, 0, 0, time.UTC)
	sunday   = time.Date(2026, 10, 18, 0, 0, 0, 0, time.UTC)
)

func clock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func testConfig() config.Config {
	return config.Config{
		StoreTimeout:       time.Second,
		BookingMaxAttempts: 3,
		ClinicTimezone:     time.UTC,
		ReminderLeadTime:   24 * time.Hour,
	}
}

func newProvider(name string) schedule.Provider {
	return schedule.Provider{
		ID:          uuid.New(),
		DisplayName: name,
		Active:      true,
		Schedule: schedule.WeeklySchedule{
			Start:        schedule.MustClock("08:00"),
			End:          schedule.MustClock("09:00"),
			SlotDuration: 20 * time.Minute,
			WorkingDays:  []time.Weekday{time.Monday, time.Tuesday, time.Wednesday, time.Thursday, time.Friday},
		},
	}
}

func patient(name string) PatientSnapshot {
	return PatientSnapshot{Name: name, Email: name + "@example.com", Phone: "+15550000000"}
}

type recordingEffects struct {
	mu     sync.Mutex
	audits []dispatch.AuditEntry
	notes  []dispatch.Notification
}

func (r *recordingEffects) Audit(e dispatch.AuditEntry) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.audits = append(r.audits, e)
}

func (r *recordingEffects) Notify(n dispatch.Notification) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.notes = append(r.notes, n)
}

func (r *recordingEffects) actions() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []string
	for _, a := range r.audits {
		out = append(out, a.Action)
	}
	return out
}

func (r *recordingEffects) kinds() []dispatch.Kind {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []dispatch.Kind
	for _, n := range r.notes {
		out = append(out, n.Kind)
	}
	return out
}

type fixture struct {
	store     *MemoryStore
	directory *schedule.MemoryDirectory
	effects   *recordingEffects
	coord     *Coordinator
	life      *Lifecycle
	avail     *Availability
	provider  schedule.Provider
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		store:     NewMemoryStore(),
		directory: schedule.NewMemoryDirectory(),
		effects:   &recordingEffects{},
		provider:  newProvider("Dr. Vega"),
	}
	f.directory.PutProvider(f.provider)
	cfg := testConfig()
	f.coord = NewCoordinator(f.store, f.directory, nil, f.effects, cfg, nil).WithClock(clock(fixedNow))
	f.life = NewLifecycle(f.store, f.effects, cfg, nil).WithClock(clock(fixedNow))
	f.avail = NewAvailability(f.store, f.directory, cfg).WithClock(clock(fixedNow))
	return f
}

func (f *fixture) book(t *testing.T, providerID uuid.UUID, name, label string) (uuid.UUID, error) {
	t.Helper()
	return f.coord.Book(context.Background(), BookRequest{
		ProviderID: providerID,
		PatientID:  uuid.New(),
		Date:       monday,
		Time:       label,
		Patient:    patient(name),
	})
}
