package clinic

import (
	"context"
	"errors"
	"time"
)

var (
	ErrDoctorNotFound       = errors.New("doctor not found")
	ErrDoctorClinicNotFound = errors.New("doctor-clinic not found")
	ErrInvalidToken         = errors.New("token number must not be negative")
	ErrInvalidSearch        = errors.New("invalid search parameters")
)

// Repository contains all DB interactions needed by the clinic services.
type Repository interface {
	GetDoctor(ctx context.Context, id int64) (*Doctor, error)
	ListDoctors(ctx context.Context) ([]Doctor, error)
	GetDoctorClinic(ctx context.Context, id int64) (*DoctorClinic, error)
	ListDoctorClinics(ctx context.Context, doctorID int64) ([]DoctorClinicDetail, error)

	// Staff mutations, last writer wins
	UpdateDoctorClinicStatus(ctx context.Context, id int64, isAvailable, hasArrived bool) (*DoctorClinic, error)
	UpdateCurrentToken(ctx context.Context, id int64, token int) (*DoctorClinic, error)

	ListConsultingHours(ctx context.Context, doctorClinicID int64) ([]ConsultingHours, error)
	ListConsultingHoursForDay(ctx context.Context, doctorClinicID int64, day time.Weekday) ([]ConsultingHours, error)

	ListSearchCandidates(ctx context.Context) ([]SearchCandidate, error)
}
