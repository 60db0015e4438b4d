package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/dietvite/backend/internal/diet"
)

// ScoreCache stores computed adherence scores
type ScoreCache interface {
	Get(ctx context.Context, key string) (*diet.ScoreResult, bool, error)
	Set(ctx context.Context, key string, result *diet.ScoreResult) error
}

// RedisScoreCache keeps scores in Redis for a fixed TTL
type RedisScoreCache struct {
	redis *redis.Client
	ttl   time.Duration
}

func NewRedisScoreCache(client *redis.Client, ttl time.Duration) *RedisScoreCache {
	return &RedisScoreCache{redis: client, ttl: ttl}
}

func (c *RedisScoreCache) Get(ctx context.Context, key string) (*diet.ScoreResult, bool, error) {
	data, err := c.redis.Get(ctx, "score:"+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to get score from Redis: %w", err)
	}

	var result diet.ScoreResult
	if err := json.Unmarshal(data, &result); err != nil {
		return nil, false, fmt.Errorf("failed to unmarshal score: %w", err)
	}
	return &result, true, nil
}

func (c *RedisScoreCache) Set(ctx context.Context, key string, result *diet.ScoreResult) error {
	data, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("failed to marshal score: %w", err)
	}
	if err := c.redis.Set(ctx, "score:"+key, data, c.ttl).Err(); err != nil {
		return fmt.Errorf("failed to save score to Redis: %w", err)
	}
	return nil
}
