package main

import (
	"context"
	"database/sql"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/lib/pq"
	"github.com/redis/go-redis/v9"

	"github.com/trackbeam/beacon/internal/adapter/repository/postgres"
	redisrepo "github.com/trackbeam/beacon/internal/adapter/repository/redis"
	"github.com/trackbeam/beacon/internal/pkg/config"
	"github.com/trackbeam/beacon/internal/pkg/logger"
	"github.com/trackbeam/beacon/internal/usecase"
)

const (
	consumerGroup      = "event-sinkers"
	processingInterval = 1 * time.Second
	sinkRetryCount     = 3
	sinkRetryBackoff   = 1 * time.Second
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	log := logger.New(cfg.LogLevel)
	log.Info("starting consumer worker")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Connect to Redis
	redisOpts, err := redis.ParseURL(cfg.RedisAddr)
	if err != nil {
		log.Error("failed to parse redis url", "error", err)
		os.Exit(1)
	}
	redisClient := redis.NewClient(redisOpts)
	if err := redisClient.Ping(ctx).Err(); err != nil {
		log.Error("failed to connect to redis", "error", err)
		os.Exit(1)
	}
	log.Info("connected to redis")

	// Connect to PostgreSQL
	db, err := sql.Open("postgres", cfg.PostgresURL)
	if err != nil {
		log.Error("failed to open postgres connection", "error", err)
		os.Exit(1)
	}
	defer db.Close()
	if err := db.PingContext(ctx); err != nil {
		log.Error("failed to connect to postgres", "error", err)
		os.Exit(1)
	}
	log.Info("connected to postgres")

	// Create a unique consumer name for this instance
	consumerName, err := os.Hostname()
	if err != nil {
		log.Warn("could not get hostname for consumer name, using default", "error", err)
		consumerName = "consumer-default"
	}

	// Instantiate repositories
	bufferRepo, err := redisrepo.NewEventLog(redisClient, log, consumerGroup, cfg.RedisDLQStream, nil, nil)
	if err != nil {
		log.Error("failed to create redis event log", "error", err)
		os.Exit(1)
	}
	sinkRepo := postgres.NewEventRepository(db, log)

	processEvents := usecase.NewProcessEventsUseCase(bufferRepo, sinkRepo, log, consumerGroup, consumerName, sinkRetryCount, sinkRetryBackoff)

	ticker := time.NewTicker(processingInterval)
	defer ticker.Stop()

	log.Info("consumer worker started, sinking events...", "group", consumerGroup, "consumer", consumerName)

Loop:
	for {
		select {
		case <-ticker.C:
			if _, err := processEvents.ProcessBatch(ctx); err != nil {
				log.Error("error processing batch", "error", err)
			}
		case <-ctx.Done():
			log.Info("context cancelled, shutting down consumer loop")
			break Loop
		}
	}

	log.Info("consumer worker shut down gracefully")
}
