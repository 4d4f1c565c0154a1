package api

import (
	"time"

	"github.com/udayaugustin/BMD/internal/appointment"
	"github.com/udayaugustin/BMD/internal/clinic"
)

const dayLayout = "2006-01-02"

type CreateAppointmentRequest struct {
	DoctorClinicID  int64      `json:"doctor_clinic_id"`
	AppointmentTime *time.Time `json:"appointment_time,omitempty"`
	PatientID       int64      `json:"patient_id,omitempty"`
}

type UpdateAppointmentStatusRequest struct {
	Status string `json:"status"`
}

// UpdateDoctorStatusRequest requires both flags; pointers tell a missing
// field apart from false.
type UpdateDoctorStatusRequest struct {
	IsAvailable *bool `json:"is_available"`
	HasArrived  *bool `json:"has_arrived"`
}

type UpdateTokenRequest struct {
	CurrentToken *int `json:"current_token"`
}

type AppointmentResponse struct {
	ID              int64     `json:"id"`
	PatientID       int64     `json:"patient_id"`
	DoctorClinicID  int64     `json:"doctor_clinic_id"`
	TokenNumber     int       `json:"token_number"`
	AppointmentTime time.Time `json:"appointment_time"`
	AppointmentDay  string    `json:"appointment_day"`
	Status          string    `json:"status"`
	CreatedAt       time.Time `json:"created_at"`
}

type AppointmentDetailResponse struct {
	AppointmentResponse
	DoctorName   string `json:"doctor_name"`
	ClinicName   string `json:"clinic_name"`
	CurrentToken int    `json:"current_token"`
}

type DoctorResponse struct {
	ID              int64   `json:"id"`
	Name            string  `json:"name"`
	Specialty       string  `json:"specialty"`
	ExperienceYears int     `json:"experience_years"`
	ImageURL        *string `json:"image_url,omitempty"`
}

type DoctorClinicResponse struct {
	ID           int64     `json:"id"`
	DoctorID     int64     `json:"doctor_id"`
	ClinicID     int64     `json:"clinic_id"`
	IsAvailable  bool      `json:"is_available"`
	HasArrived   bool      `json:"has_arrived"`
	CurrentToken int       `json:"current_token"`
	UpdatedAt    time.Time `json:"updated_at"`
}

type DoctorClinicDetailResponse struct {
	DoctorClinicResponse
	ClinicName    string  `json:"clinic_name"`
	ClinicAddress *string `json:"clinic_address,omitempty"`
}

type ConsultingHoursResponse struct {
	ID             int64  `json:"id"`
	DoctorClinicID int64  `json:"doctor_clinic_id"`
	DayOfWeek      int    `json:"day_of_week"`
	StartTime      string `json:"start_time"`
	EndTime        string `json:"end_time"`
	MaxPatients    int    `json:"max_patients"`
}

type SearchResultResponse struct {
	DoctorID        int64   `json:"doctor_id"`
	DoctorName      string  `json:"doctor_name"`
	Specialty       string  `json:"specialty"`
	ExperienceYears int     `json:"experience_years"`
	ClinicID        int64   `json:"clinic_id"`
	ClinicName      string  `json:"clinic_name"`
	DoctorClinicID  int64   `json:"doctor_clinic_id"`
	DistanceKm      float64 `json:"distance_km"`
	IsAvailable     bool    `json:"is_available"`
	HasArrived      bool    `json:"has_arrived"`
	CurrentToken    int     `json:"current_token"`
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`

	// Set for outside_consulting_hours.
	Windows []string `json:"windows,omitempty"`

	// Set for capacity_exceeded.
	MaxPatients int    `json:"max_patients,omitempty"`
	Booked      int    `json:"booked,omitempty"`
	Window      string `json:"window,omitempty"`
}

func toAppointmentResponse(a *appointment.Appointment) AppointmentResponse {
	return AppointmentResponse{
		ID:              a.ID,
		PatientID:       a.PatientID,
		DoctorClinicID:  a.DoctorClinicID,
		TokenNumber:     a.TokenNumber,
		AppointmentTime: a.AppointmentTime,
		AppointmentDay:  a.AppointmentDay.Format(dayLayout),
		Status:          string(a.Status),
		CreatedAt:       a.CreatedAt,
	}
}

func toDoctorResponse(d *clinic.Doctor) DoctorResponse {
	return DoctorResponse{
		ID:              d.ID,
		Name:            d.Name,
		Specialty:       d.Specialty,
		ExperienceYears: d.ExperienceYears,
		ImageURL:        d.ImageURL,
	}
}

func toDoctorClinicResponse(dc *clinic.DoctorClinic) DoctorClinicResponse {
	return DoctorClinicResponse{
		ID:           dc.ID,
		DoctorID:     dc.DoctorID,
		ClinicID:     dc.ClinicID,
		IsAvailable:  dc.IsAvailable,
		HasArrived:   dc.HasArrived,
		CurrentToken: dc.CurrentToken,
		UpdatedAt:    dc.UpdatedAt,
	}
}

func toConsultingHoursResponse(h clinic.ConsultingHours) ConsultingHoursResponse {
	return ConsultingHoursResponse{
		ID:             h.ID,
		DoctorClinicID: h.DoctorClinicID,
		DayOfWeek:      int(h.DayOfWeek),
		StartTime:      h.StartTime.String(),
		EndTime:        h.EndTime.String(),
		MaxPatients:    h.MaxPatients,
	}
}
