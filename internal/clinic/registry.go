package clinic

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/udayaugustin/BMD/internal/auth"
	"github.com/udayaugustin/BMD/internal/metrics"
)

var tracer = otel.Tracer("bmd.internal.clinic")

// Registry tracks whether a doctor is accepting patients at a clinic, whether
// they have arrived, and which token is being served.
type Registry struct {
	repo    Repository
	logger  zerolog.Logger
	metrics *metrics.BookingMetrics
}

func NewRegistry(repo Repository, logger zerolog.Logger, m *metrics.BookingMetrics) *Registry {
	return &Registry{repo: repo, logger: logger, metrics: m}
}

func (r *Registry) StatusOf(ctx context.Context, doctorClinicID int64) (*DoctorClinic, error) {
	dc, err := r.repo.GetDoctorClinic(ctx, doctorClinicID)
	if err != nil {
		if errors.Is(err, ErrDoctorClinicNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("load doctor-clinic %d: %w", doctorClinicID, err)
	}
	return dc, nil
}

// SetStatus records staff-reported availability and arrival.
func (r *Registry) SetStatus(ctx context.Context, caller auth.Identity, doctorClinicID int64, isAvailable, hasArrived bool) (*DoctorClinic, error) {
	ctx, span := tracer.Start(ctx, "clinic.set_status")
	defer span.End()
	span.SetAttributes(attribute.Int64("clinic.doctor_clinic_id", doctorClinicID))

	if err := caller.RequireStaff(); err != nil {
		return nil, err
	}

	dc, err := r.repo.UpdateDoctorClinicStatus(ctx, doctorClinicID, isAvailable, hasArrived)
	if err != nil {
		if errors.Is(err, ErrDoctorClinicNotFound) {
			return nil, err
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, "update status")
		return nil, fmt.Errorf("update doctor-clinic status: %w", err)
	}

	r.metrics.ObserveStatusUpdate("availability")
	r.logger.Info().
		Int64("doctor_clinic_id", doctorClinicID).
		Int64("staff_id", caller.UserID).
		Bool("is_available", isAvailable).
		Bool("has_arrived", hasArrived).
		Msg("doctor status updated")

	return dc, nil
}

// SetCurrentToken moves the "now serving" pointer. It is independent of
// booking and may go backwards when staff recall a patient.
func (r *Registry) SetCurrentToken(ctx context.Context, caller auth.Identity, doctorClinicID int64, token int) (*DoctorClinic, error) {
	ctx, span := tracer.Start(ctx, "clinic.set_current_token")
	defer span.End()
	span.SetAttributes(
		attribute.Int64("clinic.doctor_clinic_id", doctorClinicID),
		attribute.Int("clinic.token", token),
	)

	if err := caller.RequireStaff(); err != nil {
		return nil, err
	}
	if token < 0 {
		return nil, ErrInvalidToken
	}

	dc, err := r.repo.UpdateCurrentToken(ctx, doctorClinicID, token)
	if err != nil {
		if errors.Is(err, ErrDoctorClinicNotFound) {
			return nil, err
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, "update current token")
		return nil, fmt.Errorf("update current token: %w", err)
	}

	r.metrics.ObserveStatusUpdate("token")
	r.logger.Info().
		Int64("doctor_clinic_id", doctorClinicID).
		Int64("staff_id", caller.UserID).
		Int("current_token", token).
		Msg("current token updated")

	return dc, nil
}

// ListDoctors returns the doctor directory ordered by name.
func (r *Registry) ListDoctors(ctx context.Context) ([]Doctor, error) {
	doctors, err := r.repo.ListDoctors(ctx)
	if err != nil {
		return nil, fmt.Errorf("list doctors: %w", err)
	}
	return doctors, nil
}

func (r *Registry) GetDoctor(ctx context.Context, doctorID int64) (*Doctor, error) {
	d, err := r.repo.GetDoctor(ctx, doctorID)
	if err != nil {
		if errors.Is(err, ErrDoctorNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("load doctor %d: %w", doctorID, err)
	}
	return d, nil
}

// ClinicsForDoctor lists every clinic a doctor practices at.
func (r *Registry) ClinicsForDoctor(ctx context.Context, doctorID int64) ([]DoctorClinicDetail, error) {
	if _, err := r.repo.GetDoctor(ctx, doctorID); err != nil {
		if errors.Is(err, ErrDoctorNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("load doctor %d: %w", doctorID, err)
	}

	clinics, err := r.repo.ListDoctorClinics(ctx, doctorID)
	if err != nil {
		return nil, err
	}
	return clinics, nil
}
