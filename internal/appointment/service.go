package appointment

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/udayaugustin/BMD/internal/auth"
	"github.com/udayaugustin/BMD/internal/clinic"
	"github.com/udayaugustin/BMD/internal/config"
	"github.com/udayaugustin/BMD/internal/lock"
	"github.com/udayaugustin/BMD/internal/metrics"
)

var tracer = otel.Tracer("bmd.internal.appointment")

// Booking outcomes as reported to metrics.
const (
	OutcomeBooked        = "booked"
	OutcomeNotFound      = "not_found"
	OutcomeUnavailable   = "unavailable"
	OutcomeNoWindow      = "no_window"
	OutcomeOutsideWindow = "outside_window"
	OutcomeCapacity      = "capacity_exceeded"
	OutcomeConflict      = "conflict"
	OutcomeRejected      = "rejected"
	OutcomeError         = "error"
)

// StatusReader is the part of the status registry booking depends on.
type StatusReader interface {
	StatusOf(ctx context.Context, doctorClinicID int64) (*clinic.DoctorClinic, error)
}

// HoursDirectory is the part of the consulting hours directory booking depends on.
type HoursDirectory interface {
	WindowsFor(ctx context.Context, doctorClinicID int64, day time.Weekday) ([]clinic.ConsultingHours, error)
}

type Service struct {
	repo    Repository
	status  StatusReader
	hours   HoursDirectory
	locker  lock.Locker
	tokens  TokenAllocator
	metrics *metrics.BookingMetrics
	logger  zerolog.Logger
	cfg     config.Config
	now     func() time.Time
}

func NewService(
	repo Repository,
	status StatusReader,
	hours HoursDirectory,
	locker lock.Locker,
	m *metrics.BookingMetrics,
	logger zerolog.Logger,
	cfg config.Config,
) *Service {
	if cfg.Location == nil {
		cfg.Location = time.Local
	}
	if cfg.BookingRetries < 0 {
		cfg.BookingRetries = 0
	}
	return &Service{
		repo:    repo,
		status:  status,
		hours:   hours,
		locker:  locker,
		metrics: m,
		logger:  logger,
		cfg:     cfg,
		now:     time.Now,
	}
}

// Book admits a booking request and assigns the next token for the
// doctor-clinic-day. Checks run in order and stop at the first failure:
// pairing exists, doctor available, a window exists that day, the time falls
// in one of them, the day is below that window's capacity.
//
// Capacity counting, token allocation and the insert run under the
// doctor-clinic lock and inside one transaction.
func (s *Service) Book(ctx context.Context, caller auth.Identity, req BookRequest) (*Appointment, error) {
	started := time.Now()
	ctx, span := tracer.Start(ctx, "appointment.book")
	defer span.End()
	span.SetAttributes(attribute.Int64("appointment.doctor_clinic_id", req.DoctorClinicID))

	appt, err := s.book(ctx, caller, req)
	outcome := bookingOutcome(err)
	s.metrics.ObserveBooking(outcome, time.Since(started).Seconds())

	if err != nil {
		span.SetAttributes(attribute.String("appointment.outcome", outcome))
		if outcome == OutcomeError {
			span.RecordError(err)
			span.SetStatus(codes.Error, "book")
			s.logger.Error().Err(err).
				Int64("doctor_clinic_id", req.DoctorClinicID).
				Msg("booking failed")
		} else {
			s.logger.Info().Err(err).
				Int64("doctor_clinic_id", req.DoctorClinicID).
				Str("outcome", outcome).
				Msg("booking rejected")
		}
		return nil, err
	}

	span.SetAttributes(
		attribute.Int64("appointment.id", appt.ID),
		attribute.Int("appointment.token", appt.TokenNumber),
	)
	s.logger.Info().
		Int64("appointment_id", appt.ID).
		Int64("doctor_clinic_id", appt.DoctorClinicID).
		Int64("patient_id", appt.PatientID).
		Int("token", appt.TokenNumber).
		Msg("appointment booked")

	return appt, nil
}

func (s *Service) book(ctx context.Context, caller auth.Identity, req BookRequest) (*Appointment, error) {
	patientID, err := s.resolvePatient(caller, req.PatientID)
	if err != nil {
		return nil, err
	}

	dc, err := s.status.StatusOf(ctx, req.DoctorClinicID)
	if err != nil {
		return nil, err
	}
	if !dc.IsAvailable {
		return nil, ErrUnavailable
	}

	at := s.now()
	if req.AppointmentTime != nil {
		at = *req.AppointmentTime
	}
	at = at.In(s.cfg.Location)

	windows, err := s.hours.WindowsFor(ctx, dc.ID, at.Weekday())
	if err != nil {
		return nil, fmt.Errorf("load consulting hours: %w", err)
	}
	if len(windows) == 0 {
		return nil, ErrNoWindow
	}
	window, err := matchWindow(windows, at)
	if err != nil {
		return nil, err
	}

	day := DayOf(at, s.cfg.Location)
	for attempt := 0; ; attempt++ {
		appt, err := s.admit(ctx, patientID, dc.ID, at, day, window)
		if !errors.Is(err, ErrTokenConflict) {
			return appt, err
		}

		s.metrics.ObserveTokenConflict()
		if attempt >= s.cfg.BookingRetries {
			return nil, fmt.Errorf("%w: token allocation failed after %d attempts", ErrConflict, attempt+1)
		}
		s.logger.Warn().Err(err).
			Int64("doctor_clinic_id", dc.ID).
			Int("attempt", attempt+1).
			Msg("token conflict, retrying")
	}
}

// resolvePatient decides whom the booking is for. Patients book for
// themselves; staff must name the patient.
func (s *Service) resolvePatient(caller auth.Identity, requested int64) (int64, error) {
	if !caller.Role.Valid() || caller.UserID <= 0 {
		return 0, auth.ErrUnauthenticated
	}
	if requested == 0 {
		if caller.IsStaff() {
			return 0, ErrPatientRequired
		}
		return caller.UserID, nil
	}
	if !caller.CanActFor(requested) {
		return 0, auth.ErrForbidden
	}
	return requested, nil
}

// matchWindow returns the first window containing the wall-clock time of at.
func matchWindow(windows []clinic.ConsultingHours, at time.Time) (clinic.ConsultingHours, error) {
	tod := clinic.TimeOfDayOf(at)
	bounds := make([]string, 0, len(windows))
	for _, w := range windows {
		if w.Contains(tod) {
			return w, nil
		}
		bounds = append(bounds, w.Bounds())
	}
	return clinic.ConsultingHours{}, &OutsideWindowError{Day: at.Weekday(), Windows: bounds}
}

func (s *Service) admit(ctx context.Context, patientID, doctorClinicID int64, at, day time.Time, window clinic.ConsultingHours) (*Appointment, error) {
	var created *Appointment

	err := s.locker.WithKeyLock(ctx, lock.DoctorClinicKey(doctorClinicID), func(lockCtx context.Context) error {
		return s.repo.InTx(lockCtx, func(ctx context.Context, tx TxRepository) error {
			if err := tx.LockDoctorClinic(ctx, doctorClinicID); err != nil {
				return err
			}

			booked, err := tx.CountForDay(ctx, doctorClinicID, day, s.cfg.CountCancelled)
			if err != nil {
				return err
			}
			if booked >= window.MaxPatients {
				return &CapacityError{MaxPatients: window.MaxPatients, Booked: booked, Window: window.Bounds()}
			}

			token, err := s.tokens.Next(ctx, tx, doctorClinicID, day)
			if err != nil {
				return err
			}

			appt, err := tx.InsertAppointment(ctx, Appointment{
				PatientID:       patientID,
				DoctorClinicID:  doctorClinicID,
				TokenNumber:     token,
				AppointmentTime: at,
				AppointmentDay:  day,
				Status:          StatusScheduled,
			})
			if err != nil {
				return err
			}
			created = appt
			return nil
		})
	})
	if err != nil {
		if errors.Is(err, lock.ErrNotAcquired) {
			return nil, fmt.Errorf("%w: %v", ErrConflict, err)
		}
		return nil, err
	}
	return created, nil
}

func bookingOutcome(err error) string {
	switch {
	case err == nil:
		return OutcomeBooked
	case errors.Is(err, clinic.ErrDoctorClinicNotFound):
		return OutcomeNotFound
	case errors.Is(err, ErrUnavailable):
		return OutcomeUnavailable
	case errors.Is(err, ErrNoWindow):
		return OutcomeNoWindow
	case errors.Is(err, ErrOutsideWindow):
		return OutcomeOutsideWindow
	case errors.Is(err, ErrCapacityExceeded):
		return OutcomeCapacity
	case errors.Is(err, ErrConflict):
		return OutcomeConflict
	case errors.Is(err, auth.ErrUnauthenticated),
		errors.Is(err, auth.ErrForbidden),
		errors.Is(err, ErrPatientRequired):
		return OutcomeRejected
	}
	return OutcomeError
}

// UpdateStatus moves an appointment along its lifecycle. Only clinic staff may
// call it. The write is a compare-and-set on the status read just before, so
// a concurrent change makes this call fail instead of overwriting it.
func (s *Service) UpdateStatus(ctx context.Context, caller auth.Identity, id int64, next Status) (*Appointment, error) {
	ctx, span := tracer.Start(ctx, "appointment.update_status")
	defer span.End()
	span.SetAttributes(
		attribute.Int64("appointment.id", id),
		attribute.String("appointment.status", string(next)),
	)

	if err := caller.RequireStaff(); err != nil {
		return nil, err
	}
	if !next.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidStatus, next)
	}

	current, err := s.repo.GetAppointmentByID(ctx, id)
	if err != nil {
		if errors.Is(err, ErrAppointmentNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("load appointment: %w", err)
	}
	if !CanTransition(current.Status, next) {
		return nil, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, current.Status, next)
	}

	updated, err := s.repo.UpdateAppointmentStatus(ctx, id, current.Status, next)
	if err != nil {
		if !errors.Is(err, ErrAppointmentNotFound) {
			span.RecordError(err)
			span.SetStatus(codes.Error, "update status")
			s.logger.Error().Err(err).Int64("appointment_id", id).Msg("status update failed")
			return nil, fmt.Errorf("update appointment status: %w", err)
		}
		// Someone else changed the status first.
		fresh, ferr := s.repo.GetAppointmentByID(ctx, id)
		if ferr != nil {
			return nil, ferr
		}
		return nil, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, fresh.Status, next)
	}

	s.metrics.ObserveTransition(string(current.Status), string(next))
	s.logger.Info().
		Int64("appointment_id", id).
		Int64("staff_id", caller.UserID).
		Str("from", string(current.Status)).
		Str("to", string(next)).
		Msg("appointment status changed")

	return updated, nil
}

// GetAppointment returns one appointment to its patient or to staff.
func (s *Service) GetAppointment(ctx context.Context, caller auth.Identity, id int64) (*Appointment, error) {
	appt, err := s.repo.GetAppointmentByID(ctx, id)
	if err != nil {
		if errors.Is(err, ErrAppointmentNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("get appointment: %w", err)
	}
	if !caller.CanActFor(appt.PatientID) {
		return nil, auth.ErrForbidden
	}
	return appt, nil
}

// ListAppointments returns a patient's appointments, newest first. Patients
// may omit patientID to list their own.
func (s *Service) ListAppointments(ctx context.Context, caller auth.Identity, patientID int64) ([]AppointmentDetail, error) {
	patientID, err := s.resolvePatient(caller, patientID)
	if err != nil {
		return nil, err
	}

	list, err := s.repo.ListByPatient(ctx, patientID)
	if err != nil {
		return nil, fmt.Errorf("list appointments by patient: %w", err)
	}
	return list, nil
}
