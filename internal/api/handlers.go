package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/hackgods/clinic-booking-engine/internal/appointment"
	"github.com/hackgods/clinic-booking-engine/internal/schedule"
)

func providerSlotsHandler(av *appointment.Availability) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		providerID, err := uuid.Parse(chi.URLParam(r, "providerID"))
		if err != nil {
			writeError(w, http.StatusBadRequest, appointment.CodeInvalidRequest, "providerID must be a valid UUID")
			return
		}
		date, raw, ok := dateParam(w, r)
		if !ok {
			return
		}

		slots, err := av.DaySlots(r.Context(), providerID, date)
		if err != nil {
			handleServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, toSlotsResponse(raw, slots))
	}
}

func allSlotsHandler(av *appointment.Availability) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		date, raw, ok := dateParam(w, r)
		if !ok {
			return
		}

		slots, err := av.AllDaySlots(r.Context(), date)
		if err != nil {
			handleServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, toSlotsResponse(raw, slots))
	}
}

func createAppointmentHandler(coord *appointment.Coordinator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req CreateAppointmentRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, appointment.CodeInvalidRequest, "could not parse JSON")
			return
		}

		providerID, err := uuid.Parse(req.ProviderID)
		if err != nil {
			writeError(w, http.StatusBadRequest, appointment.CodeInvalidRequest, "provider_id must be a valid UUID")
			return
		}
		patientID, err := uuid.Parse(req.PatientID)
		if err != nil || patientID == appointment.BlockedSlotPatient {
			writeError(w, http.StatusBadRequest, appointment.CodeInvalidRequest, "patient_id must be a valid patient UUID")
			return
		}
		date, err := schedule.ParseDate(req.Date)
		if err != nil {
			writeError(w, http.StatusBadRequest, appointment.CodeInvalidRequest, err.Error())
			return
		}

		id, err := coord.Book(r.Context(), appointment.BookRequest{
			ProviderID: providerID,
			PatientID:  patientID,
			ActorID:    req.ActorID,
			Date:       date,
			Time:       req.Time,
			Patient: appointment.PatientSnapshot{
				Name:  req.Patient.Name,
				Email: req.Patient.Email,
				Phone: req.Patient.Phone,
			},
			Attachments: req.Attachments,
		})
		if err != nil {
			handleServiceError(w, err)
			return
		}

		writeJSON(w, http.StatusCreated, CreatedResponse{ID: id})
	}
}

func blockSlotHandler(coord *appointment.Coordinator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		providerID, err := uuid.Parse(chi.URLParam(r, "providerID"))
		if err != nil {
			writeError(w, http.StatusBadRequest, appointment.CodeInvalidRequest, "providerID must be a valid UUID")
			return
		}

		var req BlockSlotRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, appointment.CodeInvalidRequest, "could not parse JSON")
			return
		}
		date, err := schedule.ParseDate(req.Date)
		if err != nil {
			writeError(w, http.StatusBadRequest, appointment.CodeInvalidRequest, err.Error())
			return
		}

		id, err := coord.Book(r.Context(), appointment.BookRequest{
			ProviderID: providerID,
			PatientID:  appointment.BlockedSlotPatient,
			ActorID:    req.ActorID,
			Date:       date,
			Time:       req.Time,
		})
		if err != nil {
			handleServiceError(w, err)
			return
		}

		writeJSON(w, http.StatusCreated, CreatedResponse{ID: id})
	}
}

func getAppointmentHandler(life *appointment.Lifecycle) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := appointmentID(w, r)
		if !ok {
			return
		}

		appt, err := life.Get(r.Context(), id)
		if err != nil {
			handleServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, toAppointmentResponse(appt))
	}
}

func transitionHandler(life *appointment.Lifecycle) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := appointmentID(w, r)
		if !ok {
			return
		}

		var req TransitionRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, appointment.CodeInvalidRequest, "could not parse JSON")
			return
		}
		ev, err := appointment.ParseEvent(req.Event)
		if err != nil {
			writeError(w, http.StatusBadRequest, appointment.CodeInvalidRequest, err.Error())
			return
		}

		appt, err := life.Transition(r.Context(), id, ev, req.ActorID)
		if err != nil {
			handleServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, toAppointmentResponse(appt))
	}
}

func notesHandler(life *appointment.Lifecycle) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := appointmentID(w, r)
		if !ok {
			return
		}

		var req NotesRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, appointment.CodeInvalidRequest, "could not parse JSON")
			return
		}

		appt, err := life.RecordVisitNotes(r.Context(), id, req.Notes, req.ActorID)
		if err != nil {
			handleServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, toAppointmentResponse(appt))
	}
}

func appointmentID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, appointment.CodeInvalidRequest, "id must be a valid UUID")
		return uuid.Nil, false
	}
	return id, true
}

func dateParam(w http.ResponseWriter, r *http.Request) (date time.Time, raw string, ok bool) {
	raw = r.URL.Query().Get("date")
	date, err := schedule.ParseDate(raw)
	if err != nil {
		writeError(w, http.StatusBadRequest, appointment.CodeInvalidRequest, "date must be YYYY-MM-DD")
		return time.Time{}, raw, false
	}
	return date, raw, true
}
