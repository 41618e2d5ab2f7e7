package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"canvas-analytics-etl/internal/config"
	"canvas-analytics-etl/internal/db"
	"canvas-analytics-etl/internal/logger"
	"canvas-analytics-etl/internal/queue"
	"canvas-analytics-etl/internal/etlworker"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		panic(fmt.Sprintf("Failed to load config: %v", err))
	}

	// Initialize logger
	logger.Init(cfg.Logging.Level, cfg.Logging.Format)
	log := logger.Get()

	log.Info().Str("version", cfg.App.Version).Msg("Starting ETL worker")

	// A worker without a token or course list can never run a pipeline,
	// so fail at startup rather than on the first job.
	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("Invalid configuration")
	}

	// Initialize database
	database, err := db.NewConnection(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to database")
	}
	defer database.Close()

	if err := db.EnsureSchema(context.Background(), database); err != nil {
		log.Fatal().Err(err).Msg("Failed to ensure schema")
	}

	// Initialize Redis client
	redisClient, err := queue.NewRedisClient(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to Redis")
	}
	defer redisClient.Close()

	etlWorker := etlworker.NewETLWorker(cfg, database, redisClient)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Start worker
	go func() {
		if err := etlWorker.Start(ctx); err != nil && err != context.Canceled {
			log.Fatal().Err(err).Msg("ETL worker failed")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down ETL worker...")
	cancel()
	log.Info().Msg("ETL worker exited")
}
