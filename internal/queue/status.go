package queue

import (
	"context"
	"encoding/json"
	"fmt"

	"canvas-analytics-etl/internal/model"

	"github.com/go-redis/redis/v8"
)

const latestRunKey = "pipeline:run:latest"

// StatusStore shares the latest run summary between the ETL worker and the
// API process.
type StatusStore struct {
	client *redis.Client
}

func NewStatusStore(redisClient *RedisClient) *StatusStore {
	return &StatusStore{client: redisClient.Client()}
}

func (s *StatusStore) SetLatestRun(ctx context.Context, summary model.RunSummary) error {
	data, err := json.Marshal(summary)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, latestRunKey, data, 0).Err()
}

// GetLatestRun returns nil when no run has been recorded yet.
func (s *StatusStore) GetLatestRun(ctx context.Context) (*model.RunSummary, error) {
	data, err := s.client.Get(ctx, latestRunKey).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var summary model.RunSummary
	if err := json.Unmarshal(data, &summary); err != nil {
		return nil, fmt.Errorf("failed to unmarshal run summary: %w", err)
	}
	return &summary, nil
}
