package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"canvas-analytics-etl/internal/config"
	"canvas-analytics-etl/internal/db"
	"canvas-analytics-etl/internal/logger"
	"canvas-analytics-etl/internal/pipeline"
)

// One-shot pipeline run, for cron jobs and manual reloads. No queue or API
// involved: the process exits non-zero when the run fails.
func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(fmt.Sprintf("Failed to load config: %v", err))
	}

	logger.Init(cfg.Logging.Level, cfg.Logging.Format)
	log := logger.Get()

	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("Invalid configuration")
	}

	database, err := db.NewConnection(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to database")
	}
	defer database.Close()

	ctx := context.Background()

	if err := db.EnsureSchema(ctx, database); err != nil {
		log.Fatal().Err(err).Msg("Failed to ensure schema")
	}

	runID := fmt.Sprintf("run-%s", time.Now().UTC().Format("20060102T150405"))
	summary, err := pipeline.New(cfg, database).Run(ctx, runID)
	if err != nil {
		log.Error().Err(err).Msg("Run failed")
		os.Exit(1)
	}

	log.Info().
		Str("run_id", summary.RunID).
		Dur("duration", summary.Duration).
		Msg("Run succeeded")
}
