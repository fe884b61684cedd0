package api

import (
	"encoding/json"
	"net/http"

	"github.com/hackgods/clinic-booking-engine/internal/appointment"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, details string) {
	writeJSON(w, status, ErrorResponse{Error: code, Details: details})
}

// handleServiceError maps the engine's error codes onto HTTP statuses.
func handleServiceError(w http.ResponseWriter, err error) {
	code := appointment.Code(err)
	switch code {
	case appointment.CodeSlotTaken, appointment.CodeLimitExceeded, appointment.CodeInvalidTransition:
		writeError(w, http.StatusConflict, code, err.Error())
	case appointment.CodeNotFound:
		writeError(w, http.StatusNotFound, code, err.Error())
	case appointment.CodeSlotUnavailable:
		writeError(w, http.StatusUnprocessableEntity, code, err.Error())
	case appointment.CodeInvalidRequest:
		writeError(w, http.StatusBadRequest, code, err.Error())
	case appointment.CodeStoreUnavailable:
		writeError(w, http.StatusServiceUnavailable, code, "appointment store is unavailable, retry later")
	default:
		writeError(w, http.StatusInternalServerError, appointment.CodeInternal, "internal error")
	}
}
