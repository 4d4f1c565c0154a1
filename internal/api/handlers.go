package api

import (
	"net/http"
	"strconv"

	"github.com/udayaugustin/BMD/internal/appointment"
	"github.com/udayaugustin/BMD/internal/auth"
)

func callerFrom(r *http.Request) auth.Identity {
	id, _ := auth.IdentityFromContext(r.Context())
	return id
}

func createAppointmentHandler(svc AppointmentService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req CreateAppointmentRequest
		if !readJSON(w, r, &req) {
			return
		}
		if req.DoctorClinicID <= 0 {
			writeError(w, http.StatusBadRequest, "invalid_doctor_clinic_id", "doctor_clinic_id must be a positive integer")
			return
		}
		if req.PatientID < 0 {
			writeError(w, http.StatusBadRequest, "invalid_patient_id", "patient_id must be a positive integer")
			return
		}

		appt, err := svc.Book(r.Context(), callerFrom(r), appointment.BookRequest{
			DoctorClinicID:  req.DoctorClinicID,
			AppointmentTime: req.AppointmentTime,
			PatientID:       req.PatientID,
		})
		if err != nil {
			handleError(w, r, err)
			return
		}

		writeJSON(w, http.StatusCreated, toAppointmentResponse(appt))
	}
}

func listAppointmentsHandler(svc AppointmentService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var patientID int64
		if raw := r.URL.Query().Get("patient_id"); raw != "" {
			id, err := strconv.ParseInt(raw, 10, 64)
			if err != nil || id <= 0 {
				writeError(w, http.StatusBadRequest, "invalid_patient_id", "patient_id must be a positive integer")
				return
			}
			patientID = id
		}

		list, err := svc.ListAppointments(r.Context(), callerFrom(r), patientID)
		if err != nil {
			handleError(w, r, err)
			return
		}

		resp := make([]AppointmentDetailResponse, 0, len(list))
		for i := range list {
			resp = append(resp, AppointmentDetailResponse{
				AppointmentResponse: toAppointmentResponse(&list[i].Appointment),
				DoctorName:          list[i].DoctorName,
				ClinicName:          list[i].ClinicName,
				CurrentToken:        list[i].CurrentToken,
			})
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

func getAppointmentHandler(svc AppointmentService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := idParam(r, "id")
		if !ok {
			writeError(w, http.StatusBadRequest, "invalid_appointment_id", "id must be a positive integer")
			return
		}

		appt, err := svc.GetAppointment(r.Context(), callerFrom(r), id)
		if err != nil {
			handleError(w, r, err)
			return
		}

		writeJSON(w, http.StatusOK, toAppointmentResponse(appt))
	}
}

func updateAppointmentStatusHandler(svc AppointmentService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := idParam(r, "id")
		if !ok {
			writeError(w, http.StatusBadRequest, "invalid_appointment_id", "id must be a positive integer")
			return
		}

		var req UpdateAppointmentStatusRequest
		if !readJSON(w, r, &req) {
			return
		}

		appt, err := svc.UpdateStatus(r.Context(), callerFrom(r), id, appointment.Status(req.Status))
		if err != nil {
			handleError(w, r, err)
			return
		}

		writeJSON(w, http.StatusOK, toAppointmentResponse(appt))
	}
}
