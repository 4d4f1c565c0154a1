package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/udayaugustin/BMD/internal/api"
	"github.com/udayaugustin/BMD/internal/appointment"
	"github.com/udayaugustin/BMD/internal/auth"
	"github.com/udayaugustin/BMD/internal/clinic"
	"github.com/udayaugustin/BMD/internal/config"
	"github.com/udayaugustin/BMD/internal/db"
	"github.com/udayaugustin/BMD/internal/lock"
	"github.com/udayaugustin/BMD/internal/logging"
	"github.com/udayaugustin/BMD/internal/metrics"
	redisclient "github.com/udayaugustin/BMD/internal/redis"
)

// set with -ldflags "-X main.version=..."
var version = "dev"

func main() {
	cfg, err := config.Load()
	if err != nil {
		bootLogger := zerolog.New(os.Stderr)
		bootLogger.Fatal().Err(err).Msg("config load error")
	}

	logger := logging.New(cfg.LogLevel, cfg.Env)
	logger.Info().
		Str("env", cfg.Env).
		Str("http_port", cfg.HTTPPort).
		Str("lock_backend", cfg.LockBackend).
		Str("timezone", cfg.Location.String()).
		Msg("api-server starting up")

	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Connect Postgres
	pgCtx, cancelPg := context.WithTimeout(rootCtx, 10*time.Second)
	pgPool, err := db.ConnectPostgres(pgCtx, cfg.PostgresDSN)
	cancelPg()
	if err != nil {
		logger.Fatal().Err(err).Msg("postgres connection error")
	}
	defer pgPool.Close()
	logger.Info().Msg("connected to Postgres")

	// Pick the admission lock backend
	var (
		locker      lock.Locker
		redisHealth api.Pinger
	)
	if cfg.UsesRedis() {
		var rdb *redis.Client
		rdb, err = redisclient.NewRedisClient(rootCtx, cfg.RedisAddr, cfg.RedisUsername, cfg.RedisPassword)
		if err != nil {
			logger.Fatal().Err(err).Msg("redis connection error")
		}
		defer func() {
			if err := rdb.Close(); err != nil {
				logger.Error().Err(err).Msg("error closing redis")
			}
		}()
		logger.Info().Msg("connected to Redis")

		locker = redisclient.NewKeyLocker(rdb, cfg.LockTTL, cfg.LockWait)
		redisHealth = api.RedisPinger{Client: rdb}
	} else {
		logger.Warn().Msg("using in-process lock; run a single api-server instance")
		locker = lock.NewKeyedMutex()
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	bookingMetrics := metrics.NewBookingMetrics(reg)

	clinicRepo := clinic.NewPgRepository(pgPool)
	registry := clinic.NewRegistry(clinicRepo, logger, bookingMetrics)
	directory := clinic.NewDirectory(clinicRepo)
	searcher := clinic.NewSearcher(clinicRepo)

	appointments := appointment.NewService(
		appointment.NewPgRepository(pgPool),
		registry,
		directory,
		locker,
		bookingMetrics,
		logger,
		cfg,
	)

	if cfg.JWTSecret == "" {
		logger.Warn().Msg("JWT_SECRET is empty; authenticated endpoints will reject every request")
	}

	handler := api.NewRouter(api.RouterConfig{
		Appointments: appointments,
		Registry:     registry,
		Directory:    directory,
		Search:       searcher,
		Auth:         auth.NewAuthenticator(cfg.JWTSecret),
		Health:       api.NewHealthHandler(pgPool, redisHealth, cfg.Env, version),
		Metrics:      promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}),
		Logger:       logger,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           handler,
		ReadTimeout:       cfg.ReadTimeout,
		ReadHeaderTimeout: cfg.ReadTimeout,
		WriteTimeout:      cfg.WriteTimeout,
		IdleTimeout:       60 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		logger.Info().Str("addr", srv.Addr).Msg("http server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	select {
	case <-rootCtx.Done():
	case err := <-serverErr:
		if err != nil {
			logger.Error().Err(err).Msg("http server error")
		}
	}

	logger.Info().Msg("shutting down api-server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("graceful shutdown failed")
	}
}
