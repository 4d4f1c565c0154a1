package appointment

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/udayaugustin/BMD/internal/clinic"
)

// memRepo is an in-memory Repository. Transactions are write-through and
// undo their inserts on error.
type memRepo struct {
	mu        sync.Mutex
	appts     []Appointment
	nextID    int64
	pairings  map[int64]bool
	conflicts int // remaining inserts to reject with ErrTokenConflict
	inserts   int
	txCount   int
}

func newMemRepo(doctorClinicIDs ...int64) *memRepo {
	r := &memRepo{pairings: make(map[int64]bool)}
	for _, id := range doctorClinicIDs {
		r.pairings[id] = true
	}
	return r
}

func (r *memRepo) InTx(ctx context.Context, fn func(ctx context.Context, tx TxRepository) error) error {
	r.mu.Lock()
	r.txCount++
	r.mu.Unlock()

	tx := &memTx{repo: r}
	if err := fn(ctx, tx); err != nil {
		r.rollback(tx.inserted)
		return err
	}
	return nil
}

func (r *memRepo) rollback(ids []int64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, id := range ids {
		for i := range r.appts {
			if r.appts[i].ID == id {
				r.appts = append(r.appts[:i], r.appts[i+1:]...)
				break
			}
		}
	}
}

func (r *memRepo) GetAppointmentByID(_ context.Context, id int64) (*Appointment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, a := range r.appts {
		if a.ID == id {
			cp := a
			return &cp, nil
		}
	}
	return nil, ErrAppointmentNotFound
}

func (r *memRepo) UpdateAppointmentStatus(_ context.Context, id int64, from, to Status) (*Appointment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.appts {
		if r.appts[i].ID == id && r.appts[i].Status == from {
			r.appts[i].Status = to
			r.appts[i].UpdatedAt = time.Now()
			cp := r.appts[i]
			return &cp, nil
		}
	}
	return nil, ErrAppointmentNotFound
}

func (r *memRepo) ListByPatient(_ context.Context, patientID int64) ([]AppointmentDetail, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := []AppointmentDetail{}
	for _, a := range r.appts {
		if a.PatientID == patientID {
			out = append(out, AppointmentDetail{Appointment: a, DoctorName: "Dr. Test", ClinicName: "Test Clinic"})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].AppointmentTime.After(out[j].AppointmentTime) })
	return out, nil
}

func (r *memRepo) setStatus(id int64, s Status) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.appts {
		if r.appts[i].ID == id {
			r.appts[i].Status = s
		}
	}
}

func (r *memRepo) all() []Appointment {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Appointment(nil), r.appts...)
}

type memTx struct {
	repo     *memRepo
	inserted []int64
}

func (t *memTx) LockDoctorClinic(_ context.Context, doctorClinicID int64) error {
	t.repo.mu.Lock()
	defer t.repo.mu.Unlock()
	if !t.repo.pairings[doctorClinicID] {
		return clinic.ErrDoctorClinicNotFound
	}
	return nil
}

func (t *memTx) CountForDay(_ context.Context, doctorClinicID int64, day time.Time, includeCancelled bool) (int, error) {
	t.repo.mu.Lock()
	defer t.repo.mu.Unlock()
	n := 0
	for _, a := range t.repo.appts {
		if a.DoctorClinicID != doctorClinicID || !a.AppointmentDay.Equal(day) {
			continue
		}
		if !includeCancelled && a.Status == StatusCancelled {
			continue
		}
		n++
	}
	return n, nil
}

func (t *memTx) MaxTokenForDay(_ context.Context, doctorClinicID int64, day time.Time) (int, error) {
	t.repo.mu.Lock()
	defer t.repo.mu.Unlock()
	highest := 0
	for _, a := range t.repo.appts {
		if a.DoctorClinicID == doctorClinicID && a.AppointmentDay.Equal(day) && a.TokenNumber > highest {
			highest = a.TokenNumber
		}
	}
	return highest, nil
}

func (t *memTx) InsertAppointment(_ context.Context, a Appointment) (*Appointment, error) {
	t.repo.mu.Lock()
	defer t.repo.mu.Unlock()
	t.repo.inserts++
	if t.repo.conflicts > 0 {
		t.repo.conflicts--
		return nil, ErrTokenConflict
	}
	for _, existing := range t.repo.appts {
		if existing.DoctorClinicID == a.DoctorClinicID &&
			existing.AppointmentDay.Equal(a.AppointmentDay) &&
			existing.TokenNumber == a.TokenNumber {
			return nil, ErrTokenConflict
		}
	}
	t.repo.nextID++
	a.ID = t.repo.nextID
	a.CreatedAt = time.Now()
	a.UpdatedAt = a.CreatedAt
	t.repo.appts = append(t.repo.appts, a)
	t.inserted = append(t.inserted, a.ID)
	cp := a
	return &cp, nil
}
