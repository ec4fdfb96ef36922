package coding

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/synaptica-ai/icd-mapper/pkg/common/models"
)

const cacheKeyPrefix = "icd10:map:"

type RedisCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisCache(client *redis.Client, ttl time.Duration) *RedisCache {
	return &RedisCache{client: client, ttl: ttl}
}

func (c *RedisCache) Get(ctx context.Context, key string) ([]models.CodeSuggestion, bool, error) {
	raw, err := c.client.Get(ctx, cacheKeyPrefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("reading cached mapping: %w", err)
	}

	var suggestions []models.CodeSuggestion
	if err := json.Unmarshal(raw, &suggestions); err != nil {
		return nil, false, fmt.Errorf("decoding cached mapping: %w", err)
	}
	return suggestions, true, nil
}

func (c *RedisCache) Set(ctx context.Context, key string, suggestions []models.CodeSuggestion) error {
	raw, err := json.Marshal(suggestions)
	if err != nil {
		return fmt.Errorf("encoding mapping for cache: %w", err)
	}
	return c.client.Set(ctx, cacheKeyPrefix+key, raw, c.ttl).Err()
}
