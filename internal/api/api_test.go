package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/udayaugustin/BMD/internal/appointment"
	"github.com/udayaugustin/BMD/internal/auth"
	"github.com/udayaugustin/BMD/internal/clinic"
)

const testSecret = "api-test-secret"

var (
	patient = auth.Identity{UserID: 7, Role: auth.RolePatient}
	staff   = auth.Identity{UserID: 900, Role: auth.RoleClinicStaff}
	monday  = time.Date(2024, 6, 3, 0, 0, 0, 0, time.UTC)
)

type stubAppointments struct {
	bookErr    error
	lastBook   appointment.BookRequest
	lastCaller auth.Identity
	lastStatus appointment.Status
	list       []appointment.AppointmentDetail
}

func (s *stubAppointments) Book(_ context.Context, caller auth.Identity, req appointment.BookRequest) (*appointment.Appointment, error) {
	s.lastCaller = caller
	s.lastBook = req
	if s.bookErr != nil {
		return nil, s.bookErr
	}
	patientID := req.PatientID
	if patientID == 0 {
		patientID = caller.UserID
	}
	return &appointment.Appointment{
		ID:              31,
		PatientID:       patientID,
		DoctorClinicID:  req.DoctorClinicID,
		TokenNumber:     4,
		AppointmentTime: monday.Add(10 * time.Hour),
		AppointmentDay:  monday,
		Status:          appointment.StatusScheduled,
	}, nil
}

func (s *stubAppointments) UpdateStatus(_ context.Context, caller auth.Identity, id int64, next appointment.Status) (*appointment.Appointment, error) {
	s.lastStatus = next
	if err := caller.RequireStaff(); err != nil {
		return nil, err
	}
	if !next.Valid() {
		return nil, appointment.ErrInvalidStatus
	}
	if next == appointment.StatusScheduled {
		return nil, appointment.ErrInvalidTransition
	}
	return &appointment.Appointment{ID: id, Status: next, AppointmentDay: monday}, nil
}

func (s *stubAppointments) GetAppointment(_ context.Context, caller auth.Identity, id int64) (*appointment.Appointment, error) {
	if id != 31 {
		return nil, appointment.ErrAppointmentNotFound
	}
	if !caller.CanActFor(patient.UserID) {
		return nil, auth.ErrForbidden
	}
	return &appointment.Appointment{ID: 31, PatientID: patient.UserID, TokenNumber: 4, AppointmentDay: monday}, nil
}

func (s *stubAppointments) ListAppointments(_ context.Context, caller auth.Identity, patientID int64) ([]appointment.AppointmentDetail, error) {
	s.lastCaller = caller
	if patientID != 0 && !caller.CanActFor(patientID) {
		return nil, auth.ErrForbidden
	}
	return s.list, nil
}

type stubRegistry struct {
	dc          clinic.DoctorClinic
	statusCalls int
	err         error
}

func (s *stubRegistry) StatusOf(_ context.Context, id int64) (*clinic.DoctorClinic, error) {
	if id != s.dc.ID {
		return nil, clinic.ErrDoctorClinicNotFound
	}
	dc := s.dc
	return &dc, nil
}

func (s *stubRegistry) SetStatus(_ context.Context, caller auth.Identity, id int64, isAvailable, hasArrived bool) (*clinic.DoctorClinic, error) {
	s.statusCalls++
	if err := caller.RequireStaff(); err != nil {
		return nil, err
	}
	s.dc.IsAvailable = isAvailable
	s.dc.HasArrived = hasArrived
	return s.StatusOf(context.Background(), id)
}

func (s *stubRegistry) SetCurrentToken(_ context.Context, caller auth.Identity, id int64, token int) (*clinic.DoctorClinic, error) {
	if err := caller.RequireStaff(); err != nil {
		return nil, err
	}
	if token < 0 {
		return nil, clinic.ErrInvalidToken
	}
	s.dc.CurrentToken = token
	return s.StatusOf(context.Background(), id)
}

func (s *stubRegistry) ClinicsForDoctor(_ context.Context, doctorID int64) ([]clinic.DoctorClinicDetail, error) {
	if s.err != nil {
		return nil, s.err
	}
	if doctorID != s.dc.DoctorID {
		return nil, clinic.ErrDoctorNotFound
	}
	return []clinic.DoctorClinicDetail{{DoctorClinic: s.dc, ClinicName: "City Care"}}, nil
}

type stubDirectory struct {
	lastDay *time.Weekday
}

func (s *stubDirectory) WindowsFor(_ context.Context, id int64, day time.Weekday) ([]clinic.ConsultingHours, error) {
	s.lastDay = &day
	if day != time.Monday {
		return []clinic.ConsultingHours{}, nil
	}
	return []clinic.ConsultingHours{{ID: 1, DoctorClinicID: id, DayOfWeek: day, StartTime: clinic.TimeOfDay(9 * time.Hour), EndTime: clinic.TimeOfDay(12 * time.Hour), MaxPatients: 2}}, nil
}

func (s *stubDirectory) ListHours(ctx context.Context, id int64) ([]clinic.ConsultingHours, error) {
	if id != 1 {
		return nil, clinic.ErrDoctorClinicNotFound
	}
	return s.WindowsFor(ctx, id, time.Monday)
}

type stubSearch struct {
	last clinic.SearchParams
}

func (s *stubSearch) Search(_ context.Context, p clinic.SearchParams) ([]clinic.SearchResult, error) {
	s.last = p
	if p.Latitude != nil && *p.Latitude > 90 {
		return nil, clinic.ErrInvalidSearch
	}
	return []clinic.SearchResult{{
		SearchCandidate: clinic.SearchCandidate{DoctorID: 1, DoctorName: "Dr. Sarah Johnson", Specialty: "General Medicine", ClinicID: 2, ClinicName: "City Care", DoctorClinicID: 1, IsAvailable: true, CurrentToken: 3},
		DistanceKm:      111.19,
	}}, nil
}

func (s *stubRegistry) ListDoctors(context.Context) ([]clinic.Doctor, error) {
	if s.err != nil {
		return nil, s.err
	}
	return []clinic.Doctor{
		{ID: s.dc.DoctorID, Name: "Dr. Sarah Johnson", Specialty: "General Medicine", ExperienceYears: 8},
	}, nil
}

func (s *stubRegistry) GetDoctor(_ context.Context, doctorID int64) (*clinic.Doctor, error) {
	if s.err != nil {
		return nil, s.err
	}
	if doctorID != s.dc.DoctorID {
		return nil, clinic.ErrDoctorNotFound
	}
	return &clinic.Doctor{ID: doctorID, Name: "Dr. Sarah Johnson", Specialty: "General Medicine", ExperienceYears: 8}, nil
}

type testServer struct {
	handler   http.Handler
	appts     *stubAppointments
	registry  *stubRegistry
	directory *stubDirectory
	search    *stubSearch
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	ts := &testServer{
		appts:     &stubAppointments{},
		registry:  &stubRegistry{dc: clinic.DoctorClinic{ID: 1, DoctorID: 10, ClinicID: 2, IsAvailable: true}},
		directory: &stubDirectory{},
		search:    &stubSearch{},
	}
	ts.handler = NewRouter(RouterConfig{
		Appointments: ts.appts,
		Registry:     ts.registry,
		Directory:    ts.directory,
		Search:       ts.search,
		Auth:         auth.NewAuthenticator(testSecret),
		Health:       NewHealthHandler(okPinger{}, nil, "test", "v0"),
		Metrics:      http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) { _, _ = w.Write([]byte("# metrics\n")) }),
		Logger:       zerolog.Nop(),
	})
	return ts
}

func (ts *testServer) do(t *testing.T, method, path string, as *auth.Identity, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	if as != nil {
		token, err := auth.IssueToken(testSecret, *as, time.Hour)
		require.NoError(t, err)
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	ts.handler.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func TestCreateAppointment(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(t, http.MethodPost, "/appointments", &patient, map[string]any{"doctor_clinic_id": 1})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	resp := decode[AppointmentResponse](t, rec)
	assert.Equal(t, int64(31), resp.ID)
	assert.Equal(t, 4, resp.TokenNumber)
	assert.Equal(t, "scheduled", resp.Status)
	assert.Equal(t, patient.UserID, resp.PatientID)
	assert.Equal(t, "2024-06-03", resp.AppointmentDay)

	assert.Equal(t, patient, ts.appts.lastCaller)
	assert.Nil(t, ts.appts.lastBook.AppointmentTime)
}

func TestCreateAppointmentParsesTime(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(t, http.MethodPost, "/appointments", &staff, map[string]any{
		"doctor_clinic_id": 1,
		"appointment_time": "2024-06-03T09:30:00Z",
		"patient_id":       55,
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	require.NotNil(t, ts.appts.lastBook.AppointmentTime)
	assert.True(t, ts.appts.lastBook.AppointmentTime.Equal(monday.Add(9*time.Hour+30*time.Minute)))
	assert.Equal(t, int64(55), ts.appts.lastBook.PatientID)
}

func TestCreateAppointmentRequiresToken(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(t, http.MethodPost, "/appointments", nil, map[string]any{"doctor_clinic_id": 1})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "unauthorized", decode[ErrorResponse](t, rec).Error)

	req := httptest.NewRequest(http.MethodPost, "/appointments", bytes.NewBufferString(`{"doctor_clinic_id":1}`))
	req.Header.Set("Authorization", "Bearer not-a-token")
	rec = httptest.NewRecorder()
	ts.handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestCreateAppointmentBadBody(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(t, http.MethodPost, "/appointments", &patient, "not an object")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = ts.do(t, http.MethodPost, "/appointments", &patient, map[string]any{"doctor_clinic_id": 0})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "invalid_doctor_clinic_id", decode[ErrorResponse](t, rec).Error)
}

func TestRequestBodyTooLarge(t *testing.T) {
	ts := newTestServer(t)
	huge := map[string]any{"doctor_clinic_id": 1, "note": strings.Repeat("x", maxBodyBytes)}

	rec := ts.do(t, http.MethodPost, "/appointments", &patient, huge)
	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
	assert.Equal(t, "request_too_large", decode[ErrorResponse](t, rec).Error)
	assert.Zero(t, ts.appts.lastBook.DoctorClinicID)

	rec = ts.do(t, http.MethodPut, "/doctor-clinics/1/token", &staff, huge)
	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
}

func TestCreateAppointmentErrorMapping(t *testing.T) {
	for name, tc := range map[string]struct {
		err    error
		status int
		code   string
	}{
		"not found":      {clinic.ErrDoctorClinicNotFound, http.StatusNotFound, "doctor_clinic_not_found"},
		"unavailable":    {appointment.ErrUnavailable, http.StatusConflict, "doctor_unavailable"},
		"no window":      {appointment.ErrNoWindow, http.StatusUnprocessableEntity, "no_consulting_window"},
		"forbidden":      {auth.ErrForbidden, http.StatusForbidden, "forbidden"},
		"patient needed": {appointment.ErrPatientRequired, http.StatusBadRequest, "invalid_patient_id"},
		"internal":       {errors.New("pq: connection refused"), http.StatusInternalServerError, "internal_error"},
	} {
		t.Run(name, func(t *testing.T) {
			ts := newTestServer(t)
			ts.appts.bookErr = tc.err

			rec := ts.do(t, http.MethodPost, "/appointments", &patient, map[string]any{"doctor_clinic_id": 1})
			assert.Equal(t, tc.status, rec.Code)
			resp := decode[ErrorResponse](t, rec)
			assert.Equal(t, tc.code, resp.Error)
			assert.NotContains(t, resp.Details, "connection refused")
		})
	}
}

func TestCreateAppointmentOutsideWindowCarriesBounds(t *testing.T) {
	ts := newTestServer(t)
	ts.appts.bookErr = &appointment.OutsideWindowError{Day: time.Monday, Windows: []string{"09:00-12:00", "16:00-18:00"}}

	rec := ts.do(t, http.MethodPost, "/appointments", &patient, map[string]any{"doctor_clinic_id": 1})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	resp := decode[ErrorResponse](t, rec)
	assert.Equal(t, "outside_consulting_hours", resp.Error)
	assert.Equal(t, []string{"09:00-12:00", "16:00-18:00"}, resp.Windows)
}

func TestCreateAppointmentCapacityCarriesDetail(t *testing.T) {
	ts := newTestServer(t)
	ts.appts.bookErr = &appointment.CapacityError{MaxPatients: 2, Booked: 2, Window: "09:00-12:00"}

	rec := ts.do(t, http.MethodPost, "/appointments", &patient, map[string]any{"doctor_clinic_id": 1})
	assert.Equal(t, http.StatusConflict, rec.Code)
	resp := decode[ErrorResponse](t, rec)
	assert.Equal(t, "capacity_exceeded", resp.Error)
	assert.Equal(t, 2, resp.MaxPatients)
	assert.Equal(t, 2, resp.Booked)
	assert.Equal(t, "09:00-12:00", resp.Window)
}

func TestCreateAppointmentConflictIsRetryable(t *testing.T) {
	ts := newTestServer(t)
	ts.appts.bookErr = appointment.ErrConflict

	rec := ts.do(t, http.MethodPost, "/appointments", &patient, map[string]any{"doctor_clinic_id": 1})
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "1", rec.Header().Get("Retry-After"))
	assert.Equal(t, "booking_conflict", decode[ErrorResponse](t, rec).Error)
}

func TestListAppointments(t *testing.T) {
	ts := newTestServer(t)
	ts.appts.list = []appointment.AppointmentDetail{{
		Appointment:  appointment.Appointment{ID: 31, PatientID: patient.UserID, TokenNumber: 4, AppointmentDay: monday, Status: appointment.StatusScheduled},
		DoctorName:   "Dr. Sarah Johnson",
		ClinicName:   "City Care",
		CurrentToken: 2,
	}}

	rec := ts.do(t, http.MethodGet, "/appointments", &patient, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	list := decode[[]AppointmentDetailResponse](t, rec)
	require.Len(t, list, 1)
	assert.Equal(t, "Dr. Sarah Johnson", list[0].DoctorName)
	assert.Equal(t, 2, list[0].CurrentToken)
	assert.Equal(t, 4, list[0].TokenNumber)

	rec = ts.do(t, http.MethodGet, "/appointments?patient_id=8", &patient, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = ts.do(t, http.MethodGet, "/appointments?patient_id=abc", &staff, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGetAppointment(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(t, http.MethodGet, "/appointments/31", &patient, nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	other := auth.Identity{UserID: 8, Role: auth.RolePatient}
	rec = ts.do(t, http.MethodGet, "/appointments/31", &other, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = ts.do(t, http.MethodGet, "/appointments/99", &staff, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = ts.do(t, http.MethodGet, "/appointments/x", &staff, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestUpdateAppointmentStatus(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(t, http.MethodPatch, "/appointments/31/status", &staff, map[string]string{"status": "in_progress"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "in_progress", decode[AppointmentResponse](t, rec).Status)

	rec = ts.do(t, http.MethodPatch, "/appointments/31/status", &staff, map[string]string{"status": "scheduled"})
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "invalid_status_transition", decode[ErrorResponse](t, rec).Error)

	rec = ts.do(t, http.MethodPatch, "/appointments/31/status", &staff, map[string]string{"status": "teleported"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = ts.do(t, http.MethodPatch, "/appointments/31/status", &patient, map[string]string{"status": "cancelled"})
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestUpdateDoctorStatus(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(t, http.MethodPut, "/doctor-clinics/1/status", &staff, map[string]bool{"is_available": false, "has_arrived": true})
	require.Equal(t, http.StatusOK, rec.Code)
	resp := decode[DoctorClinicResponse](t, rec)
	assert.False(t, resp.IsAvailable)
	assert.True(t, resp.HasArrived)

	rec = ts.do(t, http.MethodPut, "/doctor-clinics/1/status", &staff, map[string]bool{"is_available": true})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, 1, ts.registry.statusCalls, "incomplete body must not reach the registry")

	rec = ts.do(t, http.MethodPut, "/doctor-clinics/1/status", &patient, map[string]bool{"is_available": true, "has_arrived": true})
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = ts.do(t, http.MethodPut, "/doctor-clinics/1/status", nil, map[string]bool{"is_available": true, "has_arrived": true})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = ts.do(t, http.MethodPut, "/doctor-clinics/5/status", &staff, map[string]bool{"is_available": true, "has_arrived": true})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestUpdateToken(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(t, http.MethodPut, "/doctor-clinics/1/token", &staff, map[string]int{"current_token": 3})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 3, decode[DoctorClinicResponse](t, rec).CurrentToken)

	rec = ts.do(t, http.MethodPut, "/doctor-clinics/1/token", &staff, map[string]int{"current_token": -1})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "invalid_token", decode[ErrorResponse](t, rec).Error)

	rec = ts.do(t, http.MethodPut, "/doctor-clinics/1/token", &staff, map[string]int{})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = ts.do(t, http.MethodPut, "/doctor-clinics/1/token", &patient, map[string]int{"current_token": 1})
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestDoctorClinicReads(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(t, http.MethodGet, "/doctor-clinics/1", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, decode[DoctorClinicResponse](t, rec).IsAvailable)

	rec = ts.do(t, http.MethodGet, "/doctor-clinics/2", nil, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = ts.do(t, http.MethodGet, "/doctors/10/clinics", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	clinics := decode[[]DoctorClinicDetailResponse](t, rec)
	require.Len(t, clinics, 1)
	assert.Equal(t, "City Care", clinics[0].ClinicName)

	rec = ts.do(t, http.MethodGet, "/doctors/11/clinics", nil, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "doctor_not_found", decode[ErrorResponse](t, rec).Error)
}

func TestDoctorDirectory(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(t, http.MethodGet, "/doctors", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	doctors := decode[[]DoctorResponse](t, rec)
	require.Len(t, doctors, 1)
	assert.Equal(t, int64(10), doctors[0].ID)
	assert.Equal(t, "General Medicine", doctors[0].Specialty)

	rec = ts.do(t, http.MethodGet, "/doctors/10", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 8, decode[DoctorResponse](t, rec).ExperienceYears)

	rec = ts.do(t, http.MethodGet, "/doctors/11", nil, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "doctor_not_found", decode[ErrorResponse](t, rec).Error)

	rec = ts.do(t, http.MethodGet, "/doctors/abc", nil, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "invalid_doctor_id", decode[ErrorResponse](t, rec).Error)

	ts.registry.err = errors.New("connection refused")
	rec = ts.do(t, http.MethodGet, "/doctors", nil, nil)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestConsultingHours(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(t, http.MethodGet, "/doctor-clinics/1/consulting-hours", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	hours := decode[[]ConsultingHoursResponse](t, rec)
	require.Len(t, hours, 1)
	assert.Equal(t, "09:00", hours[0].StartTime)
	assert.Equal(t, "12:00", hours[0].EndTime)
	assert.Equal(t, 1, hours[0].DayOfWeek)

	rec = ts.do(t, http.MethodGet, "/doctor-clinics/1/consulting-hours?day=0", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "[]\n", rec.Body.String())
	require.NotNil(t, ts.directory.lastDay)
	assert.Equal(t, time.Sunday, *ts.directory.lastDay)

	rec = ts.do(t, http.MethodGet, "/doctor-clinics/1/consulting-hours?day=7", nil, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = ts.do(t, http.MethodGet, "/doctor-clinics/3/consulting-hours?day=1", nil, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestSearchDoctors(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(t, http.MethodGet, "/doctors/search?lat=0&lng=0&max_distance_km=500&specialty=Cardiology&q=sar", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	results := decode[[]SearchResultResponse](t, rec)
	require.Len(t, results, 1)
	assert.InDelta(t, 111.19, results[0].DistanceKm, 1e-9)
	assert.Equal(t, 3, results[0].CurrentToken)

	p := ts.search.last
	require.NotNil(t, p.Latitude)
	require.NotNil(t, p.Longitude)
	require.NotNil(t, p.MaxDistanceKm)
	assert.Equal(t, 500.0, *p.MaxDistanceKm)
	assert.Equal(t, "Cardiology", p.Specialty)
	assert.Equal(t, "sar", p.Query)

	rec = ts.do(t, http.MethodGet, "/doctors/search?lat=north", nil, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	for i := 0; i < 20; i++ {
		rec = ts.do(t, http.MethodGet, "/doctors/search?max_distance_km=far&lng=west&lat=north", nil, nil)
		require.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "lat must be a number", decode[ErrorResponse](t, rec).Details)
	}

	rec = ts.do(t, http.MethodGet, "/doctors/search?lat=95&lng=0", nil, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "invalid_search", decode[ErrorResponse](t, rec).Error)
}

func TestMetricsAndRequestID(t *testing.T) {
	ts := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	req.Header.Set("X-Request-ID", "req-123")
	rec := httptest.NewRecorder()
	ts.handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "req-123", rec.Header().Get("X-Request-ID"))
	assert.Contains(t, rec.Body.String(), "# metrics")

	rec = ts.do(t, http.MethodGet, "/health/live", nil, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))
}
