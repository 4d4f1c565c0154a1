package clinic

import (
	"context"
	"sort"
	"sync"
	"time"
)

type fakeRepo struct {
	mu       sync.Mutex
	doctors  map[int64]*Doctor
	clinics  map[int64]*Clinic
	pairings map[int64]*DoctorClinic
	hours    []ConsultingHours
	err      error
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{
		doctors:  make(map[int64]*Doctor),
		clinics:  make(map[int64]*Clinic),
		pairings: make(map[int64]*DoctorClinic),
	}
}

func (f *fakeRepo) addPairing(id int64, doctor Doctor, clinic Clinic, available bool) {
	f.doctors[doctor.ID] = &doctor
	f.clinics[clinic.ID] = &clinic
	f.pairings[id] = &DoctorClinic{ID: id, DoctorID: doctor.ID, ClinicID: clinic.ID, IsAvailable: available}
}

func (f *fakeRepo) GetDoctor(_ context.Context, id int64) (*Doctor, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	d, ok := f.doctors[id]
	if !ok {
		return nil, ErrDoctorNotFound
	}
	cp := *d
	return &cp, nil
}

func (f *fakeRepo) ListDoctors(_ context.Context) ([]Doctor, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	out := []Doctor{}
	for _, d := range f.doctors {
		out = append(out, *d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (f *fakeRepo) GetDoctorClinic(_ context.Context, id int64) (*DoctorClinic, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	dc, ok := f.pairings[id]
	if !ok {
		return nil, ErrDoctorClinicNotFound
	}
	cp := *dc
	return &cp, nil
}

func (f *fakeRepo) ListDoctorClinics(_ context.Context, doctorID int64) ([]DoctorClinicDetail, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []DoctorClinicDetail
	for _, dc := range f.pairings {
		if dc.DoctorID == doctorID {
			out = append(out, DoctorClinicDetail{DoctorClinic: *dc, ClinicName: f.clinics[dc.ClinicID].Name})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ClinicName < out[j].ClinicName })
	return out, nil
}

func (f *fakeRepo) UpdateDoctorClinicStatus(_ context.Context, id int64, isAvailable, hasArrived bool) (*DoctorClinic, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	dc, ok := f.pairings[id]
	if !ok {
		return nil, ErrDoctorClinicNotFound
	}
	dc.IsAvailable = isAvailable
	dc.HasArrived = hasArrived
	dc.UpdatedAt = time.Now()
	cp := *dc
	return &cp, nil
}

func (f *fakeRepo) UpdateCurrentToken(_ context.Context, id int64, token int) (*DoctorClinic, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	dc, ok := f.pairings[id]
	if !ok {
		return nil, ErrDoctorClinicNotFound
	}
	dc.CurrentToken = token
	cp := *dc
	return &cp, nil
}

func (f *fakeRepo) ListConsultingHours(_ context.Context, doctorClinicID int64) ([]ConsultingHours, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []ConsultingHours
	for _, h := range f.hours {
		if h.DoctorClinicID == doctorClinicID {
			out = append(out, h)
		}
	}
	return out, nil
}

func (f *fakeRepo) ListConsultingHoursForDay(_ context.Context, doctorClinicID int64, day time.Weekday) ([]ConsultingHours, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	var out []ConsultingHours
	for _, h := range f.hours {
		if h.DoctorClinicID == doctorClinicID && h.DayOfWeek == day {
			out = append(out, h)
		}
	}
	return out, nil
}

func (f *fakeRepo) ListSearchCandidates(_ context.Context) ([]SearchCandidate, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	var out []SearchCandidate
	for _, dc := range f.pairings {
		d := f.doctors[dc.DoctorID]
		c := f.clinics[dc.ClinicID]
		out = append(out, SearchCandidate{
			DoctorID:       d.ID,
			DoctorName:     d.Name,
			Specialty:      d.Specialty,
			ClinicID:       c.ID,
			ClinicName:     c.Name,
			Latitude:       c.Latitude,
			Longitude:      c.Longitude,
			DoctorClinicID: dc.ID,
			IsAvailable:    dc.IsAvailable,
			HasArrived:     dc.HasArrived,
			CurrentToken:   dc.CurrentToken,
		})
	}
	return out, nil
}
