package appointment

import (
	"context"
	"time"
)

// Repository contains all DB interactions needed by the service.
type Repository interface {
	// InTx runs fn in one transaction. Nothing fn wrote survives an error.
	InTx(ctx context.Context, fn func(ctx context.Context, tx TxRepository) error) error

	GetAppointmentByID(ctx context.Context, id int64) (*Appointment, error)
	// UpdateAppointmentStatus only applies when the stored status still equals from.
	// ErrAppointmentNotFound otherwise.
	UpdateAppointmentStatus(ctx context.Context, id int64, from, to Status) (*Appointment, error)
	ListByPatient(ctx context.Context, patientID int64) ([]AppointmentDetail, error)
}

// TxRepository is the transactional part of admission.
type TxRepository interface {
	// LockDoctorClinic row-locks the pairing for the rest of the transaction.
	LockDoctorClinic(ctx context.Context, doctorClinicID int64) error
	CountForDay(ctx context.Context, doctorClinicID int64, day time.Time, includeCancelled bool) (int, error)
	// MaxTokenForDay is 0 when nothing is booked.
	MaxTokenForDay(ctx context.Context, doctorClinicID int64, day time.Time) (int, error)
	InsertAppointment(ctx context.Context, a Appointment) (*Appointment, error)
}
