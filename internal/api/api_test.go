package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hackgods/clinic-booking-engine/internal/appointment"
	"github.com/hackgods/clinic-booking-engine/internal/config"
	"github.com/hackgods/clinic-booking-engine/internal/schedule"
)

var now = time.Date(2026, 10, 15, 12, 0, 0, 0, time.UTC)

type testServer struct {
	handler  http.Handler
	provider schedule.Provider
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	cfg := config.Config{StoreTimeout: time.Second, BookingMaxAttempts: 3, ClinicTimezone: time.UTC}
	store := appointment.NewMemoryStore()
	dir := schedule.NewMemoryDirectory()
	p := schedule.Provider{
		ID:          uuid.New(),
		DisplayName: "Dr. Vega",
		Active:      true,
		Schedule: schedule.WeeklySchedule{
			Start:        schedule.MustClock("08:00"),
			End:          schedule.MustClock("09:00"),
			SlotDuration: 20 * time.Minute,
			WorkingDays:  []time.Weekday{time.Monday, time.Tuesday, time.Wednesday, time.Thursday, time.Friday},
		},
	}
	dir.PutProvider(p)

	clock := func() time.Time { return now }
	h := NewRouter(RouterConfig{
		Availability:   appointment.NewAvailability(store, dir, cfg).WithClock(clock),
		Coordinator:    appointment.NewCoordinator(store, dir, nil, nil, cfg, nil).WithClock(clock),
		Lifecycle:      appointment.NewLifecycle(store, nil, cfg, nil).WithClock(clock),
		AllowedOrigins: []string{"*"},
	})
	return &testServer{handler: h, provider: p}
}

func (s *testServer) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)
	return rec
}

func (s *testServer) book(t *testing.T, name, slot string) *httptest.ResponseRecorder {
	return s.do(t, http.MethodPost, "/appointments", CreateAppointmentRequest{
		ProviderID: s.provider.ID.String(),
		PatientID:  uuid.NewString(),
		Date:       "2026-10-19",
		Time:       slot,
		Patient:    PatientRequest{Name: name},
	})
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v))
	return v
}

func TestBookAndListSlots(t *testing.T) {
	s := newTestServer(t)

	rec := s.book(t, "Ana", "08:20")
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	created := decode[CreatedResponse](t, rec)
	assert.NotEqual(t, uuid.Nil, created.ID)
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))

	rec = s.do(t, http.MethodGet, "/providers/"+s.provider.ID.String()+"/slots?date=2026-10-19", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	slots := decode[SlotsResponse](t, rec)
	require.Len(t, slots.Slots, 3)
	assert.Equal(t, "free", slots.Slots[0].State)
	assert.Equal(t, "occupied", slots.Slots[1].State)
	require.NotNil(t, slots.Slots[1].AppointmentID)
	assert.Equal(t, created.ID, *slots.Slots[1].AppointmentID)

	rec = s.do(t, http.MethodGet, "/slots?date=2026-10-19", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[SlotsResponse](t, rec).Slots, 3)

	rec = s.do(t, http.MethodGet, "/slots?date=2026-10-18", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, decode[SlotsResponse](t, rec).Slots)
}

func TestBookErrors(t *testing.T) {
	s := newTestServer(t)
	require.Equal(t, http.StatusCreated, s.book(t, "Ana", "08:20").Code)

	rec := s.book(t, "Ben", "08:20")
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "SLOT_TAKEN", decode[ErrorResponse](t, rec).Error)

	rec = s.book(t, "Ben", "08:25")
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Equal(t, "SLOT_UNAVAILABLE", decode[ErrorResponse](t, rec).Error)

	rec = s.do(t, http.MethodPost, "/appointments", map[string]string{"provider_id": "nope"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = s.do(t, http.MethodPost, "/appointments", CreateAppointmentRequest{
		ProviderID: uuid.NewString(), PatientID: uuid.NewString(), Date: "2026-10-19", Time: "08:00",
		Patient: PatientRequest{Name: "Cy"},
	})
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = s.do(t, http.MethodGet, "/slots?date=tomorrow", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestBookReturnsCanonicalTimeAndAttachments(t *testing.T) {
	s := newTestServer(t)
	rec := s.do(t, http.MethodPost, "/appointments", CreateAppointmentRequest{
		ProviderID:  s.provider.ID.String(),
		PatientID:   uuid.NewString(),
		Date:        "2026-10-19",
		Time:        "8:20",
		Patient:     PatientRequest{Name: "Ana"},
		Attachments: []string{"referrals/ana-2026-10.pdf"},
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	id := decode[CreatedResponse](t, rec).ID

	rec = s.do(t, http.MethodGet, "/appointments/"+id.String(), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	appt := decode[AppointmentResponse](t, rec)
	assert.Equal(t, "08:20", appt.Time)
	assert.Equal(t, []string{"referrals/ana-2026-10.pdf"}, appt.Attachments)

	rec = s.book(t, "Ben", "08:20")
	assert.Equal(t, http.StatusConflict, rec.Code)

	id = decode[CreatedResponse](t, s.book(t, "Cy", "08:40")).ID
	rec = s.do(t, http.MethodGet, "/appointments/"+id.String(), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []string{}, decode[AppointmentResponse](t, rec).Attachments)
}

func TestLimitExceeded(t *testing.T) {
	s := newTestServer(t)
	patientID := uuid.NewString()
	req := CreateAppointmentRequest{
		ProviderID: s.provider.ID.String(), PatientID: patientID, Date: "2026-10-19", Time: "08:00",
		Patient: PatientRequest{Name: "Ana"},
	}
	require.Equal(t, http.StatusCreated, s.do(t, http.MethodPost, "/appointments", req).Code)

	req.Time = "08:40"
	rec := s.do(t, http.MethodPost, "/appointments", req)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "LIMIT_EXCEEDED", decode[ErrorResponse](t, rec).Error)
}

func TestTransitionsAndNotes(t *testing.T) {
	s := newTestServer(t)
	id := decode[CreatedResponse](t, s.book(t, "Ana", "08:00")).ID
	base := "/appointments/" + id.String()

	rec := s.do(t, http.MethodPost, base+"/transitions", TransitionRequest{Event: "mark-completed", ActorID: "dr"})
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "INVALID_TRANSITION", decode[ErrorResponse](t, rec).Error)

	rec = s.do(t, http.MethodPost, base+"/transitions", TransitionRequest{Event: "mark-arrived", ActorID: "desk"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	appt := decode[AppointmentResponse](t, rec)
	assert.Equal(t, "arrived", appt.Status)
	assert.NotNil(t, appt.ArrivedAt)

	rec = s.do(t, http.MethodPut, base+"/notes", NotesRequest{Notes: "all good", ActorID: "dr"})
	require.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, decode[AppointmentResponse](t, rec).MedicalNotes)

	rec = s.do(t, http.MethodPost, base+"/transitions", TransitionRequest{Event: "cancel", ActorID: "Ana"})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = s.do(t, http.MethodGet, base, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "cancelled", decode[AppointmentResponse](t, rec).Status)

	rec = s.do(t, http.MethodPost, base+"/transitions", TransitionRequest{Event: "warp"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = s.do(t, http.MethodGet, "/appointments/"+uuid.NewString(), nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestBlockAndUnblock(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodPost, "/providers/"+s.provider.ID.String()+"/blocks", BlockSlotRequest{Date: "2026-10-19", Time: "08:40", ActorID: "admin"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	blockID := decode[CreatedResponse](t, rec).ID

	rec = s.book(t, "Ana", "08:40")
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = s.do(t, http.MethodGet, "/appointments/"+blockID.String(), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, decode[AppointmentResponse](t, rec).Blocked)

	rec = s.do(t, http.MethodPost, "/appointments/"+blockID.String()+"/transitions", TransitionRequest{Event: "unblock", ActorID: "admin"})
	require.Equal(t, http.StatusOK, rec.Code)

	assert.Equal(t, http.StatusCreated, s.book(t, "Ana", "08:40").Code)
}

func TestCreateRejectsSentinelPatient(t *testing.T) {
	s := newTestServer(t)
	rec := s.do(t, http.MethodPost, "/appointments", CreateAppointmentRequest{
		ProviderID: s.provider.ID.String(), PatientID: appointment.BlockedSlotPatient.String(), Date: "2026-10-19", Time: "08:00",
		Patient: PatientRequest{Name: "x"},
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleServiceErrorStatuses(t *testing.T) {
	tests := []struct {
		err    error
		status int
	}{
		{appointment.ErrStoreUnavailable, http.StatusServiceUnavailable},
		{appointment.ErrInvalidRequest, http.StatusBadRequest},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		rec := httptest.NewRecorder()
		handleServiceError(rec, tt.err)
		assert.Equal(t, tt.status, rec.Code, tt.err.Error())
	}
}

func TestReadiness(t *testing.T) {
	ok := func(context.Context) error { return nil }
	down := func(context.Context) error { return errors.New("down") }

	tests := []struct {
		name       string
		pg, redis  pingFunc
		wantStatus string
		wantCode   int
	}{
		{"all up", ok, ok, "ok", http.StatusOK},
		{"redis down", ok, down, "degraded", http.StatusOK},
		{"redis disabled", ok, nil, "ok", http.StatusOK},
		{"postgres down", down, ok, "error", http.StatusServiceUnavailable},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := &HealthHandler{postgres: tt.pg, redis: tt.redis, env: "test"}
			rec := httptest.NewRecorder()
			h.Readiness(rec, httptest.NewRequest(http.MethodGet, "/health/ready", nil))

			assert.Equal(t, tt.wantCode, rec.Code)
			assert.Equal(t, tt.wantStatus, decode[ReadinessResponse](t, rec).Status)
		})
	}
}

func TestRequestIDPropagates(t *testing.T) {
	s := newTestServer(t)
	req := httptest.NewRequest(http.MethodGet, "/slots?date=2026-10-19", nil)
	req.Header.Set("X-Request-ID", "req-42")
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)
	assert.Equal(t, "req-42", rec.Header().Get("X-Request-ID"))
}
