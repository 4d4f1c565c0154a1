package main

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	"github.com/udayaugustin/BMD/internal/auth"
	"github.com/udayaugustin/BMD/internal/db"
	"github.com/udayaugustin/BMD/internal/logging"
)

var specialties = []string{
	"General Practice",
	"Cardiology",
	"Dermatology",
	"Orthopedics",
	"Endocrinology",
	"Neurology",
	"Pediatrics",
	"Psychiatry",
	"Ophthalmology",
	"ENT",
}

// window is a consulting session template; the seed gives each pairing a
// morning session and, on some days, an evening one.
type window struct {
	start, end string
}

var (
	morning = window{"09:00:00", "12:00:00"}
	evening = window{"17:00:00", "20:00:00"}
)

type seedConfig struct {
	clinics       int
	doctors       int
	clinicsPerDoc int
	centerLat     float64
	centerLng     float64
	spreadDeg     float64
}

func main() {
	_ = godotenv.Load()
	logger := logging.New(os.Getenv("LOG_LEVEL"), "dev")
	logger.Info().Msg("seed starting")

	dsn := os.Getenv("POSTGRES_DSN")
	if dsn == "" {
		logger.Fatal().Msg("POSTGRES_DSN is required")
	}

	cfg := seedConfig{
		clinics:       envInt("SEED_CLINICS", 20),
		doctors:       envInt("SEED_DOCTORS", 60),
		clinicsPerDoc: envInt("SEED_CLINICS_PER_DOCTOR", 2),
		centerLat:     envFloat("SEED_CENTER_LAT", 12.9716),
		centerLng:     envFloat("SEED_CENTER_LNG", 77.5946),
		spreadDeg:     envFloat("SEED_SPREAD_DEG", 0.15),
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	pool, err := db.ConnectPostgres(ctx, dsn)
	if err != nil {
		logger.Fatal().Err(err).Msg("connect postgres")
	}
	defer pool.Close()

	if seed := os.Getenv("SEED_RANDOM"); seed != "" {
		n, _ := strconv.ParseInt(seed, 10, 64)
		_ = gofakeit.Seed(n)
	}

	clinicIDs, err := seedClinics(ctx, pool, logger, cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("seed clinics")
	}
	doctorIDs, err := seedDoctors(ctx, pool, logger, cfg.doctors)
	if err != nil {
		logger.Fatal().Err(err).Msg("seed doctors")
	}
	pairings, err := seedPairings(ctx, pool, logger, doctorIDs, clinicIDs, cfg.clinicsPerDoc)
	if err != nil {
		logger.Fatal().Err(err).Msg("seed doctor clinics")
	}
	if err := seedConsultingHours(ctx, pool, logger, pairings); err != nil {
		logger.Fatal().Err(err).Msg("seed consulting hours")
	}

	logger.Info().
		Int("clinics", len(clinicIDs)).
		Int("doctors", len(doctorIDs)).
		Int("doctor_clinics", len(pairings)).
		Msg("seed complete")

	printDevTokens(logger)
}

func seedClinics(ctx context.Context, pool *pgxpool.Pool, logger zerolog.Logger, cfg seedConfig) ([]int64, error) {
	logger.Info().Int("count", cfg.clinics).Msg("seeding clinics")

	tx, err := pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	ids := make([]int64, 0, cfg.clinics)
	for i := 0; i < cfg.clinics; i++ {
		name := fmt.Sprintf("%s %s Clinic", gofakeit.LastName(), gofakeit.RandomString([]string{"Family", "Health", "Care", "Medical"}))
		address := fmt.Sprintf("%s, %s", gofakeit.Street(), gofakeit.City())
		lat := cfg.centerLat + gofakeit.Float64Range(-cfg.spreadDeg, cfg.spreadDeg)
		lng := cfg.centerLng + gofakeit.Float64Range(-cfg.spreadDeg, cfg.spreadDeg)

		var id int64
		err := tx.QueryRow(ctx, `
			INSERT INTO clinics (name, address, latitude, longitude)
			VALUES ($1, $2, $3, $4)
			RETURNING id
		`, name, address, lat, lng).Scan(&id)
		if err != nil {
			return nil, fmt.Errorf("insert clinic: %w", err)
		}
		ids = append(ids, id)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return ids, nil
}

func seedDoctors(ctx context.Context, pool *pgxpool.Pool, logger zerolog.Logger, count int) ([]int64, error) {
	logger.Info().Int("count", count).Msg("seeding doctors")

	tx, err := pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	ids := make([]int64, 0, count)
	for i := 0; i < count; i++ {
		name := "Dr. " + gofakeit.Name()
		spec := specialties[gofakeit.Number(0, len(specialties)-1)]

		var id int64
		err := tx.QueryRow(ctx, `
			INSERT INTO doctors (name, specialty, experience_years)
			VALUES ($1, $2, $3)
			RETURNING id
		`, name, spec, gofakeit.Number(1, 35)).Scan(&id)
		if err != nil {
			return nil, fmt.Errorf("insert doctor: %w", err)
		}
		ids = append(ids, id)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return ids, nil
}

// seedPairings attaches every doctor to perDoctor distinct clinics.
func seedPairings(ctx context.Context, pool *pgxpool.Pool, logger zerolog.Logger, doctorIDs, clinicIDs []int64, perDoctor int) ([]int64, error) {
	if perDoctor > len(clinicIDs) {
		perDoctor = len(clinicIDs)
	}
	logger.Info().Int("per_doctor", perDoctor).Msg("seeding doctor clinics")

	tx, err := pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	ids := make([]int64, 0, len(doctorIDs)*perDoctor)
	for _, doctorID := range doctorIDs {
		picked := make([]int64, len(clinicIDs))
		copy(picked, clinicIDs)
		gofakeit.ShuffleAnySlice(picked)

		for _, clinicID := range picked[:perDoctor] {
			var id int64
			err := tx.QueryRow(ctx, `
				INSERT INTO doctor_clinics (doctor_id, clinic_id, is_available, has_arrived, current_token)
				VALUES ($1, $2, $3, $4, 0)
				RETURNING id
			`, doctorID, clinicID, gofakeit.Number(1, 10) > 1, gofakeit.Bool()).Scan(&id)
			if err != nil {
				return nil, fmt.Errorf("insert doctor clinic: %w", err)
			}
			ids = append(ids, id)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return ids, nil
}

// seedConsultingHours gives each pairing Monday to Saturday morning sessions
// and evening sessions on a random subset of those days.
func seedConsultingHours(ctx context.Context, pool *pgxpool.Pool, logger zerolog.Logger, pairings []int64) error {
	logger.Info().Int("doctor_clinics", len(pairings)).Msg("seeding consulting hours")

	batch := &pgx.Batch{}
	for _, dcID := range pairings {
		for day := time.Monday; day <= time.Saturday; day++ {
			windows := []window{morning}
			if gofakeit.Bool() {
				windows = append(windows, evening)
			}
			for _, w := range windows {
				batch.Queue(`
					INSERT INTO consulting_hours (doctor_clinic_id, day_of_week, start_time, end_time, max_patients)
					VALUES ($1, $2, $3::time, $4::time, $5)
				`, dcID, int(day), w.start, w.end, gofakeit.Number(10, 30))
			}
		}
	}

	queued := batch.Len()
	if err := pool.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("insert consulting hours: %w", err)
	}

	logger.Info().Int("rows", queued).Msg("consulting hours seeded")
	return nil
}

// printDevTokens prints a staff and a patient bearer token for local testing.
func printDevTokens(logger zerolog.Logger) {
	secret := os.Getenv("JWT_SECRET")
	if secret == "" {
		logger.Info().Msg("JWT_SECRET not set; skipping dev tokens")
		return
	}

	for _, id := range []auth.Identity{
		{UserID: 1, Role: auth.RoleClinicStaff},
		{UserID: 1001, Role: auth.RolePatient},
	} {
		token, err := auth.IssueToken(secret, id, 24*time.Hour)
		if err != nil {
			logger.Error().Err(err).Msg("issue dev token")
			return
		}
		fmt.Printf("%s (user %d): %s\n", id.Role, id.UserID, token)
	}
}

func envInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			return n
		}
	}
	return def
}

func envFloat(key string, def float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}
