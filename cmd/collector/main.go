package main

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/trackbeam/beacon/internal/adapter/api"
	"github.com/trackbeam/beacon/internal/adapter/api/handler"
	"github.com/trackbeam/beacon/internal/adapter/api/middleware"
	"github.com/trackbeam/beacon/internal/adapter/metrics"
	"github.com/trackbeam/beacon/internal/adapter/repository/postgres"
	redisrepo "github.com/trackbeam/beacon/internal/adapter/repository/redis"
	"github.com/trackbeam/beacon/internal/adapter/repository/wal"
	"github.com/trackbeam/beacon/internal/pkg/config"
	"github.com/trackbeam/beacon/internal/pkg/logger"
	"github.com/trackbeam/beacon/internal/tracker"
	"github.com/trackbeam/beacon/internal/usecase"

	_ "github.com/lib/pq" // postgres driver
)

const consumerGroup = "event-sinkers"

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	log := logger.New(cfg.LogLevel)
	slog.SetDefault(log)

	m := metrics.NewCollectorMetrics()

	if len(cfg.ExtraSensitive) > 0 {
		tracker.ExtendSensitiveDenylist(cfg.ExtraSensitive)
		log.Info("extended sensitive-field denylist", "entries", len(cfg.ExtraSensitive))
	}

	// --- Start Admin and Metrics Server ---
	adminMux := http.NewServeMux()
	adminMux.Handle("/metrics", promhttp.Handler())

	adminServer := &http.Server{
		Addr:    cfg.AdminAddr,
		Handler: adminMux,
	}

	go func() {
		log.Info("starting admin & metrics server", "addr", adminServer.Addr)
		if err := adminServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("admin & metrics server failed", "error", err)
		}
	}()

	// --- Graceful Shutdown Context ---
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// --- Database and Redis Connections ---
	db, err := sql.Open("postgres", cfg.PostgresURL)
	if err != nil {
		log.Error("failed to connect to postgres", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	redisOpts, err := redis.ParseURL(cfg.RedisAddr)
	if err != nil {
		log.Error("failed to parse redis url", "error", err)
		os.Exit(1)
	}
	redisClient := redis.NewClient(redisOpts)
	if err := redisClient.Ping(ctx).Err(); err != nil {
		log.Warn("could not connect to redis, will proceed in WAL-only mode", "error", err)
	}

	// --- Initialize Repositories ---
	walRepo, err := wal.NewWALRepository(cfg.WALPath, cfg.WALSegmentSize, cfg.WALMaxDiskSize, log)
	if err != nil {
		log.Error("failed to initialize WAL repository", "error", err)
		os.Exit(1)
	}
	defer walRepo.Close()

	keyRepo := postgres.NewTrackingKeyRepository(db, log, cfg.TrackingKeyTTL, m)
	eventLog, err := redisrepo.NewEventLog(redisClient, log, consumerGroup, cfg.RedisDLQStream, walRepo, m)
	if err != nil {
		log.Error("failed to initialize redis event log", "error", err)
		os.Exit(1)
	}

	// Start Redis health check and WAL replay loop
	go eventLog.StartHealthCheck(ctx, 5*time.Second)

	// --- Initialize Admin API ---
	redisAdminRepo := redisrepo.NewAdminRepository(redisClient, log)
	adminUseCase := usecase.NewAdminStreamUseCase(redisAdminRepo)
	adminRouter := api.NewAdminRouter(adminUseCase, log)
	adminMux.Handle("/", adminRouter)

	// --- Initialize Tracker Core ---
	sseBroker := handler.NewSSEBroker(ctx, log)

	emitter := tracker.NewEmitter(eventLog, log, m)
	emitter.AddObserver(sseBroker.ReportEvent)

	registry := tracker.NewSessionRegistry(log)
	go registry.StartEviction(ctx, cfg.SessionSweep, cfg.SessionTTL)

	// --- Initialize Collector Server ---
	collectorRouter := api.NewRouter(cfg, log, keyRepo, registry, emitter, m, sseBroker)
	collectorServer := &http.Server{
		Addr:         cfg.CollectorAddr,
		Handler:      middleware.Logging(log)(collectorRouter),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 0, // the live feed holds its response open
		IdleTimeout:  15 * time.Second,
	}

	go func() {
		log.Info("starting collector server", "addr", collectorServer.Addr)
		if err := collectorServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("collector server failed", "error", err)
			stop() // Trigger shutdown on server error
		}
	}()

	// --- Wait for shutdown signal ---
	<-ctx.Done()
	log.Info("shutting down servers...")

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancelShutdown()

	if err := adminServer.Shutdown(shutdownCtx); err != nil {
		log.Error("admin server shutdown failed", "error", err)
	}
	if err := collectorServer.Shutdown(shutdownCtx); err != nil {
		log.Error("collector server shutdown failed", "error", err)
	}

	log.Info("servers shut down gracefully")
}
