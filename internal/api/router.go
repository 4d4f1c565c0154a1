package api

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/udayaugustin/BMD/internal/appointment"
	"github.com/udayaugustin/BMD/internal/auth"
	"github.com/udayaugustin/BMD/internal/clinic"
)

type AppointmentService interface {
	Book(ctx context.Context, caller auth.Identity, req appointment.BookRequest) (*appointment.Appointment, error)
	UpdateStatus(ctx context.Context, caller auth.Identity, id int64, next appointment.Status) (*appointment.Appointment, error)
	GetAppointment(ctx context.Context, caller auth.Identity, id int64) (*appointment.Appointment, error)
	ListAppointments(ctx context.Context, caller auth.Identity, patientID int64) ([]appointment.AppointmentDetail, error)
}

type DoctorRegistry interface {
	StatusOf(ctx context.Context, doctorClinicID int64) (*clinic.DoctorClinic, error)
	SetStatus(ctx context.Context, caller auth.Identity, doctorClinicID int64, isAvailable, hasArrived bool) (*clinic.DoctorClinic, error)
	SetCurrentToken(ctx context.Context, caller auth.Identity, doctorClinicID int64, token int) (*clinic.DoctorClinic, error)
	ClinicsForDoctor(ctx context.Context, doctorID int64) ([]clinic.DoctorClinicDetail, error)
	ListDoctors(ctx context.Context) ([]clinic.Doctor, error)
	GetDoctor(ctx context.Context, doctorID int64) (*clinic.Doctor, error)
}

type HoursDirectory interface {
	WindowsFor(ctx context.Context, doctorClinicID int64, day time.Weekday) ([]clinic.ConsultingHours, error)
	ListHours(ctx context.Context, doctorClinicID int64) ([]clinic.ConsultingHours, error)
}

type DoctorSearcher interface {
	Search(ctx context.Context, p clinic.SearchParams) ([]clinic.SearchResult, error)
}

type RouterConfig struct {
	Appointments AppointmentService
	Registry     DoctorRegistry
	Directory    HoursDirectory
	Search       DoctorSearcher
	Auth         *auth.Authenticator
	Health       *HealthHandler
	Metrics      http.Handler
	Logger       zerolog.Logger
}

func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	// Apply middleware
	r.Use(RequestIDMiddleware)
	r.Use(middleware.RealIP)
	r.Use(RequestLogger(cfg.Logger))
	r.Use(middleware.Recoverer)

	// Health and metrics
	if cfg.Health != nil {
		r.Get("/health/live", cfg.Health.Liveness)
		r.Get("/health/ready", cfg.Health.Readiness)
	}
	if cfg.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", cfg.Metrics)
	}

	// Public directory endpoints
	r.Get("/doctors", listDoctorsHandler(cfg.Registry))
	r.Get("/doctors/search", searchDoctorsHandler(cfg.Search))
	r.Get("/doctors/{id}", getDoctorHandler(cfg.Registry))
	r.Get("/doctors/{id}/clinics", doctorClinicsHandler(cfg.Registry))
	r.Get("/doctor-clinics/{id}", doctorClinicStatusHandler(cfg.Registry))
	r.Get("/doctor-clinics/{id}/consulting-hours", consultingHoursHandler(cfg.Registry, cfg.Directory))

	// Authenticated endpoints; role checks happen in the services
	r.Group(func(r chi.Router) {
		r.Use(cfg.Auth.Middleware(func(w http.ResponseWriter, err error) {
			writeError(w, http.StatusUnauthorized, "unauthorized", err.Error())
		}))

		r.Put("/doctor-clinics/{id}/status", updateDoctorStatusHandler(cfg.Registry))
		r.Put("/doctor-clinics/{id}/token", updateTokenHandler(cfg.Registry))

		r.Post("/appointments", createAppointmentHandler(cfg.Appointments))
		r.Get("/appointments", listAppointmentsHandler(cfg.Appointments))
		r.Get("/appointments/{id}", getAppointmentHandler(cfg.Appointments))
		r.Patch("/appointments/{id}/status", updateAppointmentStatusHandler(cfg.Appointments))
	})

	return r
}
