package clinic

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
)

type querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type PgRepository struct {
	pool querier
}

// NewPgRepository accepts a *pgxpool.Pool or anything with the same query methods.
func NewPgRepository(pool querier) *PgRepository {
	return &PgRepository{pool: pool}
}

const doctorClinicCols = `id, doctor_id, clinic_id, is_available, has_arrived, current_token, created_at, updated_at`

const hoursCols = `id, doctor_clinic_id, day_of_week, start_time, end_time, max_patients`

// Helpers

func scanDoctor(row pgx.Row) (*Doctor, error) {
	var d Doctor
	err := row.Scan(
		&d.ID,
		&d.Name,
		&d.Specialty,
		&d.ExperienceYears,
		&d.ImageURL,
		&d.CreatedAt,
		&d.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrDoctorNotFound
		}
		return nil, err
	}
	return &d, nil
}

func scanDoctorClinic(row pgx.Row) (*DoctorClinic, error) {
	var dc DoctorClinic
	err := row.Scan(
		&dc.ID,
		&dc.DoctorID,
		&dc.ClinicID,
		&dc.IsAvailable,
		&dc.HasArrived,
		&dc.CurrentToken,
		&dc.CreatedAt,
		&dc.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrDoctorClinicNotFound
		}
		return nil, err
	}
	return &dc, nil
}

func scanHours(row pgx.Row) (*ConsultingHours, error) {
	var (
		h          ConsultingHours
		day        int16
		start, end pgtype.Time
	)
	if err := row.Scan(&h.ID, &h.DoctorClinicID, &day, &start, &end, &h.MaxPatients); err != nil {
		return nil, err
	}
	h.DayOfWeek = time.Weekday(day)
	h.StartTime = TimeOfDay(time.Duration(start.Microseconds) * time.Microsecond)
	h.EndTime = TimeOfDay(time.Duration(end.Microseconds) * time.Microsecond)
	return &h, nil
}

func collectHours(rows pgx.Rows) ([]ConsultingHours, error) {
	defer rows.Close()

	var result []ConsultingHours
	for rows.Next() {
		h, err := scanHours(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *h)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

// Interface methods

func (r *PgRepository) GetDoctor(ctx context.Context, id int64) (*Doctor, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT id, name, specialty, experience_years, image_url, created_at, updated_at
		FROM doctors
		WHERE id = $1
	`, id)
	return scanDoctor(row)
}

func (r *PgRepository) ListDoctors(ctx context.Context) ([]Doctor, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, name, specialty, experience_years, image_url, created_at, updated_at
		FROM doctors
		ORDER BY name, id
	`)
	if err != nil {
		return nil, fmt.Errorf("list doctors: %w", err)
	}
	defer rows.Close()

	result := []Doctor{}
	for rows.Next() {
		d, err := scanDoctor(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *d)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func (r *PgRepository) GetDoctorClinic(ctx context.Context, id int64) (*DoctorClinic, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+doctorClinicCols+`
		FROM doctor_clinics
		WHERE id = $1
	`, id)
	return scanDoctorClinic(row)
}

func (r *PgRepository) ListDoctorClinics(ctx context.Context, doctorID int64) ([]DoctorClinicDetail, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT dc.id, dc.doctor_id, dc.clinic_id, dc.is_available, dc.has_arrived, dc.current_token,
		       dc.created_at, dc.updated_at, c.name, c.address
		FROM doctor_clinics dc
		JOIN clinics c ON c.id = dc.clinic_id
		WHERE dc.doctor_id = $1
		ORDER BY c.name
	`, doctorID)
	if err != nil {
		return nil, fmt.Errorf("list doctor clinics: %w", err)
	}
	defer rows.Close()

	var result []DoctorClinicDetail
	for rows.Next() {
		var d DoctorClinicDetail
		if err := rows.Scan(
			&d.ID, &d.DoctorID, &d.ClinicID, &d.IsAvailable, &d.HasArrived, &d.CurrentToken,
			&d.CreatedAt, &d.UpdatedAt, &d.ClinicName, &d.ClinicAddress,
		); err != nil {
			return nil, err
		}
		result = append(result, d)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func (r *PgRepository) UpdateDoctorClinicStatus(ctx context.Context, id int64, isAvailable, hasArrived bool) (*DoctorClinic, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE doctor_clinics
		SET is_available = $2,
		    has_arrived = $3,
		    updated_at = now()
		WHERE id = $1
		RETURNING `+doctorClinicCols, id, isAvailable, hasArrived)
	return scanDoctorClinic(row)
}

func (r *PgRepository) UpdateCurrentToken(ctx context.Context, id int64, token int) (*DoctorClinic, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE doctor_clinics
		SET current_token = $2,
		    updated_at = now()
		WHERE id = $1
		RETURNING `+doctorClinicCols, id, token)
	return scanDoctorClinic(row)
}

func (r *PgRepository) ListConsultingHours(ctx context.Context, doctorClinicID int64) ([]ConsultingHours, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+hoursCols+`
		FROM consulting_hours
		WHERE doctor_clinic_id = $1
		ORDER BY day_of_week, start_time
	`, doctorClinicID)
	if err != nil {
		return nil, fmt.Errorf("list consulting hours: %w", err)
	}
	return collectHours(rows)
}

func (r *PgRepository) ListConsultingHoursForDay(ctx context.Context, doctorClinicID int64, day time.Weekday) ([]ConsultingHours, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+hoursCols+`
		FROM consulting_hours
		WHERE doctor_clinic_id = $1
		  AND day_of_week = $2
		ORDER BY start_time
	`, doctorClinicID, int16(day))
	if err != nil {
		return nil, fmt.Errorf("list consulting hours for day: %w", err)
	}
	return collectHours(rows)
}

func (r *PgRepository) ListSearchCandidates(ctx context.Context) ([]SearchCandidate, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT d.id, d.name, d.specialty, d.experience_years,
		       c.id, c.name, c.latitude, c.longitude,
		       dc.id, dc.is_available, dc.has_arrived, dc.current_token
		FROM doctor_clinics dc
		JOIN doctors d ON d.id = dc.doctor_id
		JOIN clinics c ON c.id = dc.clinic_id
	`)
	if err != nil {
		return nil, fmt.Errorf("list search candidates: %w", err)
	}
	defer rows.Close()

	var result []SearchCandidate
	for rows.Next() {
		var c SearchCandidate
		if err := rows.Scan(
			&c.DoctorID, &c.DoctorName, &c.Specialty, &c.ExperienceYears,
			&c.ClinicID, &c.ClinicName, &c.Latitude, &c.Longitude,
			&c.DoctorClinicID, &c.IsAvailable, &c.HasArrived, &c.CurrentToken,
		); err != nil {
			return nil, err
		}
		result = append(result, c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}
