package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/udayaugustin/BMD/internal/appointment"
	"github.com/udayaugustin/BMD/internal/auth"
	"github.com/udayaugustin/BMD/internal/clinic"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, details string) {
	writeJSON(w, status, ErrorResponse{Error: code, Details: details})
}

const maxBodyBytes = 64 << 10

// readJSON decodes a size-limited request body into dst. On failure it writes
// the error response and returns false.
func readJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "request_too_large", "request body too large")
			return false
		}
		writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
		return false
	}
	return true
}

// idParam reads a positive integer URL parameter.
func idParam(r *http.Request, name string) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

// handleError maps service errors to HTTP responses. Anything unrecognised is
// logged and reported as a 500 without its details.
func handleError(w http.ResponseWriter, r *http.Request, err error) {
	var (
		outside  *appointment.OutsideWindowError
		capacity *appointment.CapacityError
	)

	switch {
	case errors.Is(err, auth.ErrUnauthenticated):
		writeError(w, http.StatusUnauthorized, "unauthorized", err.Error())
	case errors.Is(err, auth.ErrForbidden):
		writeError(w, http.StatusForbidden, "forbidden", err.Error())

	case errors.Is(err, clinic.ErrDoctorClinicNotFound):
		writeError(w, http.StatusNotFound, "doctor_clinic_not_found", err.Error())
	case errors.Is(err, clinic.ErrDoctorNotFound):
		writeError(w, http.StatusNotFound, "doctor_not_found", err.Error())
	case errors.Is(err, appointment.ErrAppointmentNotFound):
		writeError(w, http.StatusNotFound, "appointment_not_found", err.Error())

	case errors.Is(err, appointment.ErrUnavailable):
		writeError(w, http.StatusConflict, "doctor_unavailable", err.Error())
	case errors.Is(err, appointment.ErrNoWindow):
		writeError(w, http.StatusUnprocessableEntity, "no_consulting_window", err.Error())
	case errors.As(err, &outside):
		writeJSON(w, http.StatusUnprocessableEntity, ErrorResponse{
			Error:   "outside_consulting_hours",
			Details: err.Error(),
			Windows: outside.Windows,
		})
	case errors.As(err, &capacity):
		writeJSON(w, http.StatusConflict, ErrorResponse{
			Error:       "capacity_exceeded",
			Details:     err.Error(),
			MaxPatients: capacity.MaxPatients,
			Booked:      capacity.Booked,
			Window:      capacity.Window,
		})
	case errors.Is(err, appointment.ErrInvalidTransition):
		writeError(w, http.StatusConflict, "invalid_status_transition", err.Error())
	case errors.Is(err, appointment.ErrConflict):
		w.Header().Set("Retry-After", "1")
		writeError(w, http.StatusConflict, "booking_conflict", err.Error())

	case errors.Is(err, appointment.ErrInvalidStatus):
		writeError(w, http.StatusBadRequest, "invalid_status", err.Error())
	case errors.Is(err, appointment.ErrPatientRequired):
		writeError(w, http.StatusBadRequest, "invalid_patient_id", err.Error())
	case errors.Is(err, clinic.ErrInvalidToken):
		writeError(w, http.StatusBadRequest, "invalid_token", err.Error())
	case errors.Is(err, clinic.ErrInvalidSearch):
		writeError(w, http.StatusBadRequest, "invalid_search", err.Error())

	default:
		zerolog.Ctx(r.Context()).Error().Err(err).
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Msg("request failed")
		writeError(w, http.StatusInternalServerError, "internal_error", "internal server error")
	}
}
