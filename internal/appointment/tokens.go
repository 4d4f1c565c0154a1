package appointment

import (
	"context"
	"fmt"
	"time"
)

// TokenAllocator hands out queue positions per doctor-clinic-day.
// Callers must hold the doctor-clinic lock and stay inside the transaction
// that inserts the appointment.
type TokenAllocator struct{}

func (TokenAllocator) Next(ctx context.Context, tx TxRepository, doctorClinicID int64, day time.Time) (int, error) {
	highest, err := tx.MaxTokenForDay(ctx, doctorClinicID, day)
	if err != nil {
		return 0, fmt.Errorf("max token: %w", err)
	}
	return highest + 1, nil
}

// DayOf truncates t to midnight of its date in loc.
func DayOf(t time.Time, loc *time.Location) time.Time {
	y, m, d := t.In(loc).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, loc)
}
