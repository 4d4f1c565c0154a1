package appointment

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

var (
	ErrAppointmentNotFound = errors.New("appointment not found")
	ErrUnavailable         = errors.New("doctor is not accepting appointments")
	ErrNoWindow            = errors.New("no consulting hours on that day")
	ErrOutsideWindow       = errors.New("requested time is outside consulting hours")
	ErrCapacityExceeded    = errors.New("daily capacity reached")
	ErrInvalidTransition   = errors.New("invalid status transition")
	ErrInvalidStatus       = errors.New("unknown appointment status")
	ErrPatientRequired     = errors.New("patient_id is required")

	// ErrConflict is returned when a booking could not be serialized in time.
	// The request is safe to retry.
	ErrConflict = errors.New("booking conflict, please retry")

	// ErrTokenConflict is returned by repositories when the token uniqueness
	// constraint or transaction isolation rejected a write.
	ErrTokenConflict = errors.New("token already taken")
)

// OutsideWindowError lists every window configured for the requested day.
type OutsideWindowError struct {
	Day     time.Weekday
	Windows []string
}

func (e *OutsideWindowError) Error() string {
	return fmt.Sprintf("%s: %s consulting hours are %s", ErrOutsideWindow, e.Day, strings.Join(e.Windows, ", "))
}

func (e *OutsideWindowError) Is(target error) bool {
	return target == ErrOutsideWindow
}

// CapacityError reports the window whose daily limit was hit.
type CapacityError struct {
	MaxPatients int
	Booked      int
	Window      string
}

func (e *CapacityError) Error() string {
	return fmt.Sprintf("%s: %d of %d booked (window %s)", ErrCapacityExceeded, e.Booked, e.MaxPatients, e.Window)
}

func (e *CapacityError) Is(target error) bool {
	return target == ErrCapacityExceeded
}
