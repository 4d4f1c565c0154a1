package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"
	"net/http"
	"os"
	"slices"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	"github.com/udayaugustin/BMD/internal/auth"
	"github.com/udayaugustin/BMD/internal/clinic"
	"github.com/udayaugustin/BMD/internal/config"
	"github.com/udayaugustin/BMD/internal/db"
	"github.com/udayaugustin/BMD/internal/logging"
)

type SimConfig struct {
	APIBaseURL      string
	Duration        time.Duration
	Workers         int
	BookingRatio    float64
	LifecycleRatio  float64
	ReadRatio       float64
	DoctorClinics   int
	DoctorClinicIDs []int64
	Patients        int
	PostgresDSN     string
	JWTSecret       string
	CountCancelled  bool
	Location        *time.Location
}

// Target is a doctor-clinic with the windows it offers on the simulated day.
type Target struct {
	DoctorClinicID int64
	Windows        []clinic.ConsultingHours
}

func (t Target) maxCapacity() int {
	highest := 0
	for _, w := range t.Windows {
		highest = max(highest, w.MaxPatients)
	}
	return highest
}

type DataPool struct {
	Day           time.Time
	Targets       []Target
	PatientTokens []string
	StaffToken    string
	mu            sync.RWMutex
	appointments  []int64 // created appointment ids
}

func (dp *DataPool) AddAppointment(id int64) {
	dp.mu.Lock()
	defer dp.mu.Unlock()
	dp.appointments = append(dp.appointments, id)
}

func (dp *DataPool) GetRandomAppointment(rng *rand.Rand) (int64, bool) {
	dp.mu.RLock()
	defer dp.mu.RUnlock()
	if len(dp.appointments) == 0 {
		return 0, false
	}
	return dp.appointments[rng.Intn(len(dp.appointments))], true
}

type OperationMetrics struct {
	Total     int64
	Success   int64
	Rejected  int64
	Error     int64
	Latencies []time.Duration
	Codes     map[string]int64
	mu        sync.Mutex
}

// Record counts one call. code is the API error code for 4xx responses.
func (om *OperationMetrics) Record(latency time.Duration, success bool, code string) {
	atomic.AddInt64(&om.Total, 1)
	switch {
	case success:
		atomic.AddInt64(&om.Success, 1)
	case code != "":
		atomic.AddInt64(&om.Rejected, 1)
	default:
		atomic.AddInt64(&om.Error, 1)
	}

	om.mu.Lock()
	om.Latencies = append(om.Latencies, latency)
	if code != "" {
		if om.Codes == nil {
			om.Codes = make(map[string]int64)
		}
		om.Codes[code]++
	}
	om.mu.Unlock()
}

func (om *OperationMetrics) Stats() (avg, low, high, p50, p95 time.Duration) {
	om.mu.Lock()
	latencies := slices.Clone(om.Latencies)
	om.mu.Unlock()

	if len(latencies) == 0 {
		return 0, 0, 0, 0, 0
	}
	slices.Sort(latencies)

	var sum time.Duration
	for _, l := range latencies {
		sum += l
	}

	percentile := func(p int) time.Duration {
		idx := len(latencies) * p / 100
		if idx >= len(latencies) {
			idx = len(latencies) - 1
		}
		return latencies[idx]
	}

	return sum / time.Duration(len(latencies)), latencies[0], latencies[len(latencies)-1], percentile(50), percentile(95)
}

type Metrics struct {
	Booking       OperationMetrics
	Lifecycle     OperationMetrics
	ReadByID      OperationMetrics
	ListByPatient OperationMetrics
	DoctorStatus  OperationMetrics
}

type Simulator struct {
	config  SimConfig
	pool    *DataPool
	client  *http.Client
	metrics Metrics
	logger  zerolog.Logger
}

func main() {
	cfg := loadConfig()
	logger := logging.New(os.Getenv("LOG_LEVEL"), "dev")
	if err := validateConfig(cfg); err != nil {
		logger.Fatal().Err(err).Msg("invalid config")
	}

	logger.Info().
		Dur("duration", cfg.Duration).
		Int("workers", cfg.Workers).
		Float64("booking", cfg.BookingRatio).
		Float64("lifecycle", cfg.LifecycleRatio).
		Float64("read", cfg.ReadRatio).
		Msg("simulator starting")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	pgPool, err := db.ConnectPostgres(ctx, cfg.PostgresDSN)
	if err != nil {
		logger.Fatal().Err(err).Msg("connect postgres")
	}
	defer pgPool.Close()

	dataPool, err := loadDataPool(ctx, pgPool, cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("load data pool")
	}

	logger.Info().
		Int("doctor_clinics", len(dataPool.Targets)).
		Int("patients", len(dataPool.PatientTokens)).
		Str("day", dataPool.Day.Format("2006-01-02")).
		Msg("data pool loaded")

	sim := &Simulator{
		config: cfg,
		pool:   dataPool,
		client: &http.Client{
			Timeout: 10 * time.Second,
		},
		logger: logger,
	}

	sim.Run()
	sim.PrintReport()

	verifyCtx, cancelVerify := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancelVerify()
	violations, err := verifyTokens(verifyCtx, pgPool, dataPool, cfg.CountCancelled)
	if err != nil {
		logger.Fatal().Err(err).Msg("verify tokens")
	}
	if len(violations) > 0 {
		for _, v := range violations {
			fmt.Println("VIOLATION:", v)
		}
		os.Exit(1)
	}
	fmt.Println("token sequences gapless, unique and within capacity")
}

func loadConfig() SimConfig {
	baseCfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load base config: %v\n", err)
		os.Exit(1)
	}

	cfg := SimConfig{
		APIBaseURL:      getEnv("SIM_API_BASE_URL", "http://localhost:8080"),
		Duration:        getDuration("SIM_DURATION", 30*time.Second),
		Workers:         getInt("SIM_WORKERS", 20),
		BookingRatio:    getFloat("SIM_BOOKING_RATIO", 0.6),
		LifecycleRatio:  getFloat("SIM_LIFECYCLE_RATIO", 0.1),
		ReadRatio:       getFloat("SIM_READ_RATIO", 0.3),
		DoctorClinics:   getInt("SIM_DOCTOR_CLINICS", 5),
		DoctorClinicIDs: getIDs("SIM_DOCTOR_CLINIC_IDS"),
		Patients:        getInt("SIM_PATIENTS", 500),
		PostgresDSN:     baseCfg.PostgresDSN,
		JWTSecret:       baseCfg.JWTSecret,
		CountCancelled:  baseCfg.CountCancelled,
		Location:        baseCfg.Location,
	}

	// Normalize ratios
	total := cfg.BookingRatio + cfg.LifecycleRatio + cfg.ReadRatio
	if total > 0 {
		cfg.BookingRatio /= total
		cfg.LifecycleRatio /= total
		cfg.ReadRatio /= total
	}

	return cfg
}

func validateConfig(cfg SimConfig) error {
	if cfg.JWTSecret == "" {
		return errors.New("JWT_SECRET is required to issue simulator tokens")
	}
	if cfg.Workers <= 0 {
		return errors.New("SIM_WORKERS must be > 0")
	}
	if cfg.Duration <= 0 {
		return errors.New("SIM_DURATION must be > 0")
	}
	if cfg.Patients <= 0 {
		return errors.New("SIM_PATIENTS must be > 0")
	}
	return nil
}

// loadDataPool picks available doctor-clinics with consulting windows today
// and issues one token per simulated patient plus a staff token.
func loadDataPool(ctx context.Context, pool *pgxpool.Pool, cfg SimConfig) (*DataPool, error) {
	now := time.Now().In(cfg.Location)
	dataPool := &DataPool{
		Day: time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, cfg.Location),
	}

	ids := cfg.DoctorClinicIDs

	rows, err := pool.Query(ctx, `
		SELECT ch.id, ch.doctor_clinic_id, ch.start_time::text, ch.end_time::text, ch.max_patients
		FROM consulting_hours ch
		JOIN doctor_clinics dc ON dc.id = ch.doctor_clinic_id
		WHERE dc.is_available AND ch.day_of_week = $1
		  AND ($2::bigint[] IS NULL OR dc.id = ANY($2))
		ORDER BY ch.doctor_clinic_id, ch.start_time
	`, int(now.Weekday()), ids)
	if err != nil {
		return nil, fmt.Errorf("load windows: %w", err)
	}
	defer rows.Close()

	byID := map[int64]int{}
	for rows.Next() {
		var (
			h          clinic.ConsultingHours
			start, end string
		)
		if err := rows.Scan(&h.ID, &h.DoctorClinicID, &start, &end, &h.MaxPatients); err != nil {
			return nil, err
		}
		if h.StartTime, err = clinic.ParseTimeOfDay(start); err != nil {
			return nil, err
		}
		if h.EndTime, err = clinic.ParseTimeOfDay(end); err != nil {
			return nil, err
		}
		h.DayOfWeek = now.Weekday()

		idx, ok := byID[h.DoctorClinicID]
		if !ok {
			if len(ids) == 0 && len(dataPool.Targets) >= cfg.DoctorClinics {
				continue
			}
			idx = len(dataPool.Targets)
			byID[h.DoctorClinicID] = idx
			dataPool.Targets = append(dataPool.Targets, Target{DoctorClinicID: h.DoctorClinicID})
		}
		dataPool.Targets[idx].Windows = append(dataPool.Targets[idx].Windows, h)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(dataPool.Targets) == 0 {
		return nil, fmt.Errorf("no available doctor-clinics with consulting hours on %s", now.Weekday())
	}

	for i := 0; i < cfg.Patients; i++ {
		token, err := auth.IssueToken(cfg.JWTSecret, auth.Identity{UserID: int64(100000 + i), Role: auth.RolePatient}, time.Hour)
		if err != nil {
			return nil, err
		}
		dataPool.PatientTokens = append(dataPool.PatientTokens, token)
	}

	dataPool.StaffToken, err = auth.IssueToken(cfg.JWTSecret, auth.Identity{UserID: 1, Role: auth.RoleClinicStaff}, time.Hour)
	if err != nil {
		return nil, err
	}

	return dataPool, nil
}

func (s *Simulator) Run() {
	ctx, cancel := context.WithTimeout(context.Background(), s.config.Duration)
	defer cancel()

	s.logger.Info().Dur("duration", s.config.Duration).Int("workers", s.config.Workers).Msg("starting simulation")

	var wg sync.WaitGroup
	for i := 0; i < s.config.Workers; i++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			s.worker(ctx, workerID)
		}(i)
	}

	wg.Wait()
	s.logger.Info().Msg("simulation complete")
}

func (s *Simulator) worker(ctx context.Context, workerID int) {
	rng := rand.New(rand.NewSource(time.Now().UnixNano() + int64(workerID)))

	for {
		select {
		case <-ctx.Done():
			return
		default:
			r := rng.Float64()
			switch {
			case r < s.config.BookingRatio:
				s.doBooking(ctx, rng)
			case r < s.config.BookingRatio+s.config.LifecycleRatio:
				s.doLifecycle(ctx, rng)
			default:
				switch rng.Intn(3) {
				case 0:
					s.doReadByID(ctx, rng)
				case 1:
					s.doListByPatient(ctx, rng)
				case 2:
					s.doDoctorStatus(ctx, rng)
				}
			}
		}
	}
}

func (s *Simulator) doBooking(ctx context.Context, rng *rand.Rand) {
	target := s.pool.Targets[rng.Intn(len(s.pool.Targets))]
	w := target.Windows[rng.Intn(len(target.Windows))]
	span := int64(w.EndTime - w.StartTime)
	at := (w.StartTime + clinic.TimeOfDay(rng.Int63n(span+1))).On(s.pool.Day).Truncate(time.Second)

	body, _ := json.Marshal(map[string]any{
		"doctor_clinic_id": target.DoctorClinicID,
		"appointment_time": at,
	})
	token := s.pool.PatientTokens[rng.Intn(len(s.pool.PatientTokens))]

	var created struct {
		ID int64 `json:"id"`
	}
	latency, status, code, err := s.call(ctx, http.MethodPost, "/appointments", token, body, &created)
	success := err == nil && status == http.StatusCreated
	if success && created.ID > 0 {
		s.pool.AddAppointment(created.ID)
	}
	s.metrics.Booking.Record(latency, success, code)
}

// doLifecycle moves a random appointment one step forward as clinic staff.
func (s *Simulator) doLifecycle(ctx context.Context, rng *rand.Rand) {
	id, ok := s.pool.GetRandomAppointment(rng)
	if !ok {
		return
	}

	next := []string{"in_progress", "completed", "cancelled"}[rng.Intn(3)]
	body, _ := json.Marshal(map[string]string{"status": next})

	latency, status, code, err := s.call(ctx, http.MethodPatch, fmt.Sprintf("/appointments/%d/status", id), s.pool.StaffToken, body, nil)
	s.metrics.Lifecycle.Record(latency, err == nil && status == http.StatusOK, code)
}

func (s *Simulator) doReadByID(ctx context.Context, rng *rand.Rand) {
	id, ok := s.pool.GetRandomAppointment(rng)
	if !ok {
		return
	}

	latency, status, code, err := s.call(ctx, http.MethodGet, fmt.Sprintf("/appointments/%d", id), s.pool.StaffToken, nil, nil)
	s.metrics.ReadByID.Record(latency, err == nil && status == http.StatusOK, code)
}

func (s *Simulator) doListByPatient(ctx context.Context, rng *rand.Rand) {
	token := s.pool.PatientTokens[rng.Intn(len(s.pool.PatientTokens))]

	latency, status, code, err := s.call(ctx, http.MethodGet, "/appointments", token, nil, nil)
	s.metrics.ListByPatient.Record(latency, err == nil && status == http.StatusOK, code)
}

func (s *Simulator) doDoctorStatus(ctx context.Context, rng *rand.Rand) {
	target := s.pool.Targets[rng.Intn(len(s.pool.Targets))]

	latency, status, code, err := s.call(ctx, http.MethodGet, fmt.Sprintf("/doctor-clinics/%d", target.DoctorClinicID), "", nil, nil)
	s.metrics.DoctorStatus.Record(latency, err == nil && status == http.StatusOK, code)
}

// call performs one API request. For 4xx responses code carries the API
// error code; out, when non-nil, receives a 2xx body.
func (s *Simulator) call(ctx context.Context, method, path, token string, body []byte, out any) (time.Duration, int, string, error) {
	req, err := http.NewRequestWithContext(ctx, method, s.config.APIBaseURL+path, bytes.NewReader(body))
	if err != nil {
		return 0, 0, "", err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	start := time.Now()
	resp, err := s.client.Do(req)
	latency := time.Since(start)
	if err != nil {
		return latency, 0, "", err
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		if out != nil {
			_ = json.NewDecoder(resp.Body).Decode(out)
		}
		return latency, resp.StatusCode, "", nil
	case resp.StatusCode >= 400 && resp.StatusCode < 500:
		var apiErr struct {
			Error string `json:"error"`
		}
		_ = json.NewDecoder(resp.Body).Decode(&apiErr)
		if apiErr.Error == "" {
			apiErr.Error = strconv.Itoa(resp.StatusCode)
		}
		return latency, resp.StatusCode, apiErr.Error, nil
	default:
		return latency, resp.StatusCode, "", fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
}

// verifyTokens checks every simulated doctor-clinic on the simulated day:
// tokens are exactly 1..n with no duplicates, and the counted appointments
// never exceed the largest window capacity of that day.
func verifyTokens(ctx context.Context, pool *pgxpool.Pool, dp *DataPool, countCancelled bool) ([]string, error) {
	ids := make([]int64, 0, len(dp.Targets))
	capacity := make(map[int64]int, len(dp.Targets))
	for _, t := range dp.Targets {
		ids = append(ids, t.DoctorClinicID)
		capacity[t.DoctorClinicID] = t.maxCapacity()
	}

	rows, err := pool.Query(ctx, `
		SELECT doctor_clinic_id,
		       COUNT(*),
		       COUNT(DISTINCT token_number),
		       MIN(token_number),
		       MAX(token_number),
		       COUNT(*) FILTER (WHERE $3 OR status <> 'cancelled')
		FROM appointments
		WHERE doctor_clinic_id = ANY($1) AND appointment_day = $2::date
		GROUP BY doctor_clinic_id
		ORDER BY doctor_clinic_id
	`, ids, dp.Day.Format("2006-01-02"), countCancelled)
	if err != nil {
		return nil, fmt.Errorf("query token sequences: %w", err)
	}
	defer rows.Close()

	var violations []string
	fmt.Println("\nTOKEN SEQUENCES")
	for rows.Next() {
		var (
			dcID                       int64
			total, distinct, low, high int
			counted                    int
		)
		if err := rows.Scan(&dcID, &total, &distinct, &low, &high, &counted); err != nil {
			return nil, err
		}
		fmt.Printf("  doctor_clinic=%d tokens=%d..%d total=%d counted=%d capacity=%d\n",
			dcID, low, high, total, counted, capacity[dcID])

		if distinct != total {
			violations = append(violations, fmt.Sprintf("doctor_clinic %d: %d duplicate tokens", dcID, total-distinct))
		}
		if low != 1 || high != total {
			violations = append(violations, fmt.Sprintf("doctor_clinic %d: tokens %d..%d for %d appointments", dcID, low, high, total))
		}
		if counted > capacity[dcID] {
			violations = append(violations, fmt.Sprintf("doctor_clinic %d: %d appointments over capacity %d", dcID, counted, capacity[dcID]))
		}
	}
	return violations, rows.Err()
}

func (s *Simulator) PrintReport() {
	fmt.Println("\n" + strings.Repeat("=", 80))
	fmt.Println("SIMULATION REPORT")
	fmt.Println(strings.Repeat("=", 80))
	fmt.Printf("Duration: %s\n", s.config.Duration)
	fmt.Printf("Workers: %d\n", s.config.Workers)
	fmt.Printf("Doctor-clinics: %d\n", len(s.pool.Targets))
	fmt.Println()

	printOperationReport("Booking", &s.metrics.Booking)
	printOperationReport("Lifecycle", &s.metrics.Lifecycle)
	printOperationReport("Read by ID", &s.metrics.ReadByID)
	printOperationReport("List by Patient", &s.metrics.ListByPatient)
	printOperationReport("Doctor Status", &s.metrics.DoctorStatus)
}

func printOperationReport(name string, om *OperationMetrics) {
	total := atomic.LoadInt64(&om.Total)
	if total == 0 {
		return
	}

	success := atomic.LoadInt64(&om.Success)
	rejected := atomic.LoadInt64(&om.Rejected)
	failed := atomic.LoadInt64(&om.Error)

	avg, low, high, p50, p95 := om.Stats()

	fmt.Printf("%s:\n", name)
	fmt.Printf("  Total: %d\n", total)
	fmt.Printf("  Success: %d (%.1f%%)\n", success, float64(success)/float64(total)*100)
	if rejected > 0 {
		fmt.Printf("  Rejected: %d (%.1f%%)\n", rejected, float64(rejected)/float64(total)*100)
		om.mu.Lock()
		codes := make([]string, 0, len(om.Codes))
		for code := range om.Codes {
			codes = append(codes, code)
		}
		slices.Sort(codes)
		for _, code := range codes {
			fmt.Printf("    %s: %d\n", code, om.Codes[code])
		}
		om.mu.Unlock()
	}
	if failed > 0 {
		fmt.Printf("  Errors: %d (%.1f%%)\n", failed, float64(failed)/float64(total)*100)
	}
	fmt.Printf("  Latency: avg=%s min=%s max=%s p50=%s p95=%s\n",
		avg.Round(time.Millisecond), low.Round(time.Millisecond), high.Round(time.Millisecond),
		p50.Round(time.Millisecond), p95.Round(time.Millisecond))
	fmt.Println()
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}

func getInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func getFloat(key string, def float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}

// getIDs parses a comma separated id list such as "3,7,12".
func getIDs(key string) []int64 {
	var ids []int64
	for _, part := range strings.Split(os.Getenv(key), ",") {
		if n, err := strconv.ParseInt(strings.TrimSpace(part), 10, 64); err == nil && n > 0 {
			ids = append(ids, n)
		}
	}
	return ids
}
