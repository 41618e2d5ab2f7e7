package etlworker

import (
	"context"
	"database/sql"
	"encoding/json"

	"canvas-analytics-etl/internal/config"
	"canvas-analytics-etl/internal/logger"
	"canvas-analytics-etl/internal/model"
	"canvas-analytics-etl/internal/pipeline"
	"canvas-analytics-etl/internal/queue"

	"github.com/rs/zerolog"
)

// ETLWorker consumes run jobs from the queue and executes one pipeline run
// per job. Runs execute one at a time: the destination store is exclusively
// owned by the importer for the duration of the reload.
type ETLWorker struct {
	cfg      *config.Config
	pipeline *pipeline.Pipeline
	consumer *queue.Consumer
	status   *queue.StatusStore
	log      zerolog.Logger
}

func NewETLWorker(
	cfg *config.Config,
	conn *sql.DB,
	redisClient *queue.RedisClient,
) *ETLWorker {
	return &ETLWorker{
		cfg:      cfg,
		pipeline: pipeline.New(cfg, conn),
		consumer: queue.NewConsumer(redisClient, cfg),
		status:   queue.NewStatusStore(redisClient),
		log:      logger.Get(),
	}
}

func (w *ETLWorker) Start(ctx context.Context) error {
	w.log.Info().Msg("Starting ETL worker")
	return w.consumer.ConsumeRunQueue(ctx, w.handleMessage)
}

func (w *ETLWorker) handleMessage(ctx context.Context, data []byte) error {
	var job model.RunJob
	if err := json.Unmarshal(data, &job); err != nil {
		w.log.Error().Err(err).Msg("Failed to unmarshal run job")
		return err
	}

	summary, err := w.pipeline.Run(ctx, job.RunID)

	if statusErr := w.status.SetLatestRun(ctx, summary); statusErr != nil {
		w.log.Error().Err(statusErr).Msg("Failed to record run summary")
	}

	return err
}
