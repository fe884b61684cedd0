package api

import (
	"time"

	"github.com/google/uuid"

	"github.com/hackgods/clinic-booking-engine/internal/appointment"
	"github.com/hackgods/clinic-booking-engine/internal/schedule"
)

type PatientRequest struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	Phone string `json:"phone"`
}

type CreateAppointmentRequest struct {
	ProviderID  string         `json:"provider_id"`
	PatientID   string         `json:"patient_id"`
	Date        string         `json:"date"`
	Time        string         `json:"time"`
	Patient     PatientRequest `json:"patient"`
	Attachments []string       `json:"attachments,omitempty"`
	ActorID     string         `json:"actor_id"`
}

type BlockSlotRequest struct {
	Date    string `json:"date"`
	Time    string `json:"time"`
	ActorID string `json:"actor_id"`
}

type TransitionRequest struct {
	Event   string `json:"event"`
	ActorID string `json:"actor_id"`
}

type NotesRequest struct {
	Notes   string `json:"notes"`
	ActorID string `json:"actor_id"`
}

type CreatedResponse struct {
	ID uuid.UUID `json:"id"`
}

type SlotResponse struct {
	ProviderID    uuid.UUID  `json:"provider_id"`
	ProviderName  string     `json:"provider_name"`
	Date          string     `json:"date"`
	Time          string     `json:"time"`
	State         string     `json:"state"`
	AppointmentID *uuid.UUID `json:"appointment_id,omitempty"`
}

type SlotsResponse struct {
	Date  string         `json:"date"`
	Slots []SlotResponse `json:"slots"`
}

type AppointmentResponse struct {
	ID           uuid.UUID                   `json:"id"`
	ProviderID   uuid.UUID                   `json:"provider_id"`
	PatientID    uuid.UUID                   `json:"patient_id"`
	Patient      appointment.PatientSnapshot `json:"patient"`
	Blocked      bool                        `json:"blocked"`
	Date         string                      `json:"date"`
	Time         string                      `json:"time"`
	Status       string                      `json:"status"`
	CreatedAt    time.Time                   `json:"created_at"`
	UpdatedAt    time.Time                   `json:"updated_at"`
	ArrivedAt    *time.Time                  `json:"arrived_at,omitempty"`
	MedicalNotes *string                     `json:"medical_notes,omitempty"`
	Attachments  []string                    `json:"attachments"`
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

func toAppointmentResponse(a *appointment.Appointment) AppointmentResponse {
	resp := AppointmentResponse{
		ID:           a.ID,
		ProviderID:   a.ProviderID,
		PatientID:    a.PatientID,
		Patient:      a.Patient,
		Blocked:      a.IsBlock(),
		Date:         a.Date.Format(schedule.DateLayout),
		Time:         a.Time,
		Status:       string(a.Status),
		CreatedAt:    a.CreatedAt,
		UpdatedAt:    a.UpdatedAt,
		ArrivedAt:    a.ArrivedAt,
		MedicalNotes: a.MedicalNotes,
		Attachments:  a.Attachments,
	}
	if resp.Attachments == nil {
		resp.Attachments = []string{}
	}
	return resp
}

func toSlotsResponse(date string, slots []appointment.Slot) SlotsResponse {
	out := SlotsResponse{Date: date, Slots: make([]SlotResponse, 0, len(slots))}
	for _, s := range slots {
		sr := SlotResponse{
			ProviderID:   s.ProviderID,
			ProviderName: s.ProviderName,
			Date:         s.Date.Format(schedule.DateLayout),
			Time:         s.Time,
			State:        string(s.State),
		}
		if s.Appointment != nil {
			id := s.Appointment.ID
			sr.AppointmentID = &id
		}
		out.Slots = append(out.Slots, sr)
	}
	return out
}
