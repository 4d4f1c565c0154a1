package clinic

import (
	"context"
	"fmt"
	"time"
)

// Directory is the read-only view of consulting hours.
type Directory struct {
	repo Repository
}

func NewDirectory(repo Repository) *Directory {
	return &Directory{repo: repo}
}

// WindowsFor returns the windows configured for one weekday, ordered by start
// time. An empty result means the doctor-clinic cannot be booked that day.
func (d *Directory) WindowsFor(ctx context.Context, doctorClinicID int64, day time.Weekday) ([]ConsultingHours, error) {
	hours, err := d.repo.ListConsultingHoursForDay(ctx, doctorClinicID, day)
	if err != nil {
		return nil, fmt.Errorf("windows for %s: %w", day, err)
	}
	if hours == nil {
		hours = []ConsultingHours{}
	}
	return hours, nil
}

// ListHours returns the whole weekly schedule of an existing doctor-clinic.
func (d *Directory) ListHours(ctx context.Context, doctorClinicID int64) ([]ConsultingHours, error) {
	if _, err := d.repo.GetDoctorClinic(ctx, doctorClinicID); err != nil {
		return nil, err
	}
	hours, err := d.repo.ListConsultingHours(ctx, doctorClinicID)
	if err != nil {
		return nil, err
	}
	if hours == nil {
		hours = []ConsultingHours{}
	}
	return hours, nil
}
