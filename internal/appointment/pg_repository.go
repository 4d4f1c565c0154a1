package appointment

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/udayaugustin/BMD/internal/clinic"
	"github.com/udayaugustin/BMD/internal/db"
)

// dateLayout is how appointment_day is sent to Postgres.
const dateLayout = "2006-01-02"

const appointmentCols = `id, patient_id, doctor_clinic_id, token_number, appointment_time, appointment_day, status, created_at, updated_at`

type pool interface {
	BeginTx(ctx context.Context, txOptions pgx.TxOptions) (pgx.Tx, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type PgRepository struct {
	pool pool
}

func NewPgRepository(p pool) *PgRepository {
	return &PgRepository{pool: p}
}

// Helpers

func scanAppointment(row pgx.Row) (*Appointment, error) {
	var a Appointment
	err := row.Scan(
		&a.ID,
		&a.PatientID,
		&a.DoctorClinicID,
		&a.TokenNumber,
		&a.AppointmentTime,
		&a.AppointmentDay,
		&a.Status,
		&a.CreatedAt,
		&a.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrAppointmentNotFound
		}
		return nil, err
	}
	return &a, nil
}

func conflictOr(err error, op string) error {
	if db.IsConflict(err) {
		return fmt.Errorf("%w: %v", ErrTokenConflict, err)
	}
	return fmt.Errorf("%s: %w", op, err)
}

// Interface methods

func (r *PgRepository) InTx(ctx context.Context, fn func(ctx context.Context, tx TxRepository) error) (err error) {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted})
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(context.Background())
		}
	}()

	if err = fn(ctx, &pgTx{tx: tx}); err != nil {
		return err
	}
	if err = tx.Commit(ctx); err != nil {
		return conflictOr(err, "commit tx")
	}
	return nil
}

func (r *PgRepository) GetAppointmentByID(ctx context.Context, id int64) (*Appointment, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+appointmentCols+`
		FROM appointments
		WHERE id = $1
	`, id)
	return scanAppointment(row)
}

func (r *PgRepository) UpdateAppointmentStatus(ctx context.Context, id int64, from, to Status) (*Appointment, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE appointments
		SET status = $2,
		    updated_at = now()
		WHERE id = $1
		  AND status = $3
		RETURNING `+appointmentCols, id, string(to), string(from))
	return scanAppointment(row)
}

func (r *PgRepository) ListByPatient(ctx context.Context, patientID int64) ([]AppointmentDetail, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT a.id, a.patient_id, a.doctor_clinic_id, a.token_number, a.appointment_time,
		       a.appointment_day, a.status, a.created_at, a.updated_at,
		       d.name, c.name, dc.current_token
		FROM appointments a
		JOIN doctor_clinics dc ON dc.id = a.doctor_clinic_id
		JOIN doctors d ON d.id = dc.doctor_id
		JOIN clinics c ON c.id = dc.clinic_id
		WHERE a.patient_id = $1
		ORDER BY a.appointment_time DESC, a.id DESC
	`, patientID)
	if err != nil {
		return nil, fmt.Errorf("list appointments by patient: %w", err)
	}
	defer rows.Close()

	result := []AppointmentDetail{}
	for rows.Next() {
		var d AppointmentDetail
		if err := rows.Scan(
			&d.ID, &d.PatientID, &d.DoctorClinicID, &d.TokenNumber, &d.AppointmentTime,
			&d.AppointmentDay, &d.Status, &d.CreatedAt, &d.UpdatedAt,
			&d.DoctorName, &d.ClinicName, &d.CurrentToken,
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

type pgTx struct {
	tx pgx.Tx
}

func (t *pgTx) LockDoctorClinic(ctx context.Context, doctorClinicID int64) error {
	var id int64
	err := t.tx.QueryRow(ctx, `
		SELECT id
		FROM doctor_clinics
		WHERE id = $1
		FOR UPDATE
	`, doctorClinicID).Scan(&id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return clinic.ErrDoctorClinicNotFound
		}
		return conflictOr(err, "lock doctor-clinic")
	}
	return nil
}

func (t *pgTx) CountForDay(ctx context.Context, doctorClinicID int64, day time.Time, includeCancelled bool) (int, error) {
	var n int
	err := t.tx.QueryRow(ctx, `
		SELECT COUNT(*)
		FROM appointments
		WHERE doctor_clinic_id = $1
		  AND appointment_day = $2::date
		  AND ($3 OR status <> 'cancelled')
	`, doctorClinicID, day.Format(dateLayout), includeCancelled).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count appointments: %w", err)
	}
	return n, nil
}

func (t *pgTx) MaxTokenForDay(ctx context.Context, doctorClinicID int64, day time.Time) (int, error) {
	var n int
	err := t.tx.QueryRow(ctx, `
		SELECT COALESCE(MAX(token_number), 0)
		FROM appointments
		WHERE doctor_clinic_id = $1
		  AND appointment_day = $2::date
	`, doctorClinicID, day.Format(dateLayout)).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("max token: %w", err)
	}
	return n, nil
}

func (t *pgTx) InsertAppointment(ctx context.Context, a Appointment) (*Appointment, error) {
	row := t.tx.QueryRow(ctx, `
		INSERT INTO appointments (patient_id, doctor_clinic_id, token_number, appointment_time, appointment_day, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5::date, $6, now(), now())
		RETURNING `+appointmentCols,
		a.PatientID, a.DoctorClinicID, a.TokenNumber, a.AppointmentTime, a.AppointmentDay.Format(dateLayout), string(a.Status))

	created, err := scanAppointment(row)
	if err != nil {
		return nil, conflictOr(err, "insert appointment")
	}
	return created, nil
}
