package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	redisv9 "github.com/redis/go-redis/v9"

	"cocoaguard/internal/model"
)

// PredictionCache keeps each farmer's recent predictions in Redis in
// front of MySQL. Because rows are persisted asynchronously, a dirty
// marker suppresses re-caching until the worker has caught up.
type PredictionCache struct {
	client         *redisv9.Client
	historyTTL     time.Duration
	dirtyMarkerTTL time.Duration
}

func NewPredictionCache(client *redisv9.Client, historyTTL, dirtyMarkerTTL time.Duration) *PredictionCache {
	if historyTTL <= 0 {
		historyTTL = 60 * time.Second
	}
	if dirtyMarkerTTL <= 0 {
		dirtyMarkerTTL = 5 * time.Second
	}
	return &PredictionCache{
		client:         client,
		historyTTL:     historyTTL,
		dirtyMarkerTTL: dirtyMarkerTTL,
	}
}

func (c *PredictionCache) GetHistory(ctx context.Context, farmerID uint) ([]model.Prediction, bool, error) {
	key := c.historyKey(farmerID)
	raw, err := c.client.Get(ctx, key).Result()
	if err == redisv9.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("redis get prediction history failed: %w", err)
	}

	var predictions []model.Prediction
	if err := json.Unmarshal([]byte(raw), &predictions); err != nil {
		return nil, false, fmt.Errorf("unmarshal cached predictions failed: %w", err)
	}
	return predictions, true, nil
}

func (c *PredictionCache) SetHistory(ctx context.Context, farmerID uint, predictions []model.Prediction) error {
	key := c.historyKey(farmerID)
	payload, err := json.Marshal(predictions)
	if err != nil {
		return fmt.Errorf("marshal prediction cache failed: %w", err)
	}
	if err := c.client.Set(ctx, key, payload, c.historyTTL).Err(); err != nil {
		return fmt.Errorf("redis set prediction history failed: %w", err)
	}
	return nil
}

func (c *PredictionCache) DeleteHistory(ctx context.Context, farmerID uint) error {
	key := c.historyKey(farmerID)
	if err := c.client.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("redis delete prediction history failed: %w", err)
	}
	return nil
}

func (c *PredictionCache) MarkDirty(ctx context.Context, farmerID uint) error {
	key := c.dirtyKey(farmerID)
	if err := c.client.Set(ctx, key, "1", c.dirtyMarkerTTL).Err(); err != nil {
		return fmt.Errorf("redis set dirty marker failed: %w", err)
	}
	return nil
}

func (c *PredictionCache) IsDirty(ctx context.Context, farmerID uint) (bool, error) {
	key := c.dirtyKey(farmerID)
	exists, err := c.client.Exists(ctx, key).Result()
	if err != nil {
		return false, fmt.Errorf("redis check dirty marker failed: %w", err)
	}
	return exists > 0, nil
}

func (c *PredictionCache) historyKey(farmerID uint) string {
	return fmt.Sprintf("prediction:history:%d", farmerID)
}

func (c *PredictionCache) dirtyKey(farmerID uint) string {
	return fmt.Sprintf("prediction:history:dirty:%d", farmerID)
}
