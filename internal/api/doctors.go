package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/udayaugustin/BMD/internal/clinic"
)

func searchDoctorsHandler(svc DoctorSearcher) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		params := clinic.SearchParams{
			Specialty: q.Get("specialty"),
			Query:     q.Get("q"),
		}

		for _, f := range []struct {
			key string
			dst **float64
		}{
			{"lat", &params.Latitude},
			{"lng", &params.Longitude},
			{"max_distance_km", &params.MaxDistanceKm},
		} {
			raw := q.Get(f.key)
			if raw == "" {
				continue
			}
			v, err := strconv.ParseFloat(raw, 64)
			if err != nil {
				writeError(w, http.StatusBadRequest, "invalid_search", f.key+" must be a number")
				return
			}
			*f.dst = &v
		}

		results, err := svc.Search(r.Context(), params)
		if err != nil {
			handleError(w, r, err)
			return
		}

		resp := make([]SearchResultResponse, 0, len(results))
		for _, res := range results {
			resp = append(resp, SearchResultResponse{
				DoctorID:        res.DoctorID,
				DoctorName:      res.DoctorName,
				Specialty:       res.Specialty,
				ExperienceYears: res.ExperienceYears,
				ClinicID:        res.ClinicID,
				ClinicName:      res.ClinicName,
				DoctorClinicID:  res.DoctorClinicID,
				DistanceKm:      res.DistanceKm,
				IsAvailable:     res.IsAvailable,
				HasArrived:      res.HasArrived,
				CurrentToken:    res.CurrentToken,
			})
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

func listDoctorsHandler(svc DoctorRegistry) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		doctors, err := svc.ListDoctors(r.Context())
		if err != nil {
			handleError(w, r, err)
			return
		}

		resp := make([]DoctorResponse, 0, len(doctors))
		for i := range doctors {
			resp = append(resp, toDoctorResponse(&doctors[i]))
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

func getDoctorHandler(svc DoctorRegistry) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := idParam(r, "id")
		if !ok {
			writeError(w, http.StatusBadRequest, "invalid_doctor_id", "id must be a positive integer")
			return
		}

		d, err := svc.GetDoctor(r.Context(), id)
		if err != nil {
			handleError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, toDoctorResponse(d))
	}
}

func doctorClinicsHandler(svc DoctorRegistry) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := idParam(r, "id")
		if !ok {
			writeError(w, http.StatusBadRequest, "invalid_doctor_id", "id must be a positive integer")
			return
		}

		clinics, err := svc.ClinicsForDoctor(r.Context(), id)
		if err != nil {
			handleError(w, r, err)
			return
		}

		resp := make([]DoctorClinicDetailResponse, 0, len(clinics))
		for i := range clinics {
			resp = append(resp, DoctorClinicDetailResponse{
				DoctorClinicResponse: toDoctorClinicResponse(&clinics[i].DoctorClinic),
				ClinicName:           clinics[i].ClinicName,
				ClinicAddress:        clinics[i].ClinicAddress,
			})
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

func doctorClinicStatusHandler(svc DoctorRegistry) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := idParam(r, "id")
		if !ok {
			writeError(w, http.StatusBadRequest, "invalid_doctor_clinic_id", "id must be a positive integer")
			return
		}

		dc, err := svc.StatusOf(r.Context(), id)
		if err != nil {
			handleError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, toDoctorClinicResponse(dc))
	}
}

// consultingHoursHandler returns the weekly schedule, or one weekday's windows
// when ?day=0..6 is given (0 is Sunday).
func consultingHoursHandler(registry DoctorRegistry, dir HoursDirectory) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := idParam(r, "id")
		if !ok {
			writeError(w, http.StatusBadRequest, "invalid_doctor_clinic_id", "id must be a positive integer")
			return
		}

		var (
			hours []clinic.ConsultingHours
			err   error
		)
		if raw := r.URL.Query().Get("day"); raw != "" {
			day, perr := strconv.Atoi(raw)
			if perr != nil || day < 0 || day > 6 {
				writeError(w, http.StatusBadRequest, "invalid_day", "day must be 0 (Sunday) to 6 (Saturday)")
				return
			}
			if _, err = registry.StatusOf(r.Context(), id); err == nil {
				hours, err = dir.WindowsFor(r.Context(), id, time.Weekday(day))
			}
		} else {
			hours, err = dir.ListHours(r.Context(), id)
		}
		if err != nil {
			handleError(w, r, err)
			return
		}

		resp := make([]ConsultingHoursResponse, 0, len(hours))
		for _, h := range hours {
			resp = append(resp, toConsultingHoursResponse(h))
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

func updateDoctorStatusHandler(svc DoctorRegistry) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := idParam(r, "id")
		if !ok {
			writeError(w, http.StatusBadRequest, "invalid_doctor_clinic_id", "id must be a positive integer")
			return
		}

		var req UpdateDoctorStatusRequest
		if !readJSON(w, r, &req) {
			return
		}
		if req.IsAvailable == nil || req.HasArrived == nil {
			writeError(w, http.StatusBadRequest, "invalid_status", "is_available and has_arrived are both required")
			return
		}

		dc, err := svc.SetStatus(r.Context(), callerFrom(r), id, *req.IsAvailable, *req.HasArrived)
		if err != nil {
			handleError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, toDoctorClinicResponse(dc))
	}
}

func updateTokenHandler(svc DoctorRegistry) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := idParam(r, "id")
		if !ok {
			writeError(w, http.StatusBadRequest, "invalid_doctor_clinic_id", "id must be a positive integer")
			return
		}

		var req UpdateTokenRequest
		if !readJSON(w, r, &req) {
			return
		}
		if req.CurrentToken == nil {
			writeError(w, http.StatusBadRequest, "invalid_token", "current_token is required")
			return
		}

		dc, err := svc.SetCurrentToken(r.Context(), callerFrom(r), id, *req.CurrentToken)
		if err != nil {
			handleError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, toDoctorClinicResponse(dc))
	}
}
