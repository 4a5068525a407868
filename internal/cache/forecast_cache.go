package cache

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/flowpos/forecast-engine/internal/config"
	"github.com/flowpos/forecast-engine/internal/domain"
)

const (
	forecastKeyPrefix     = "forecast:points"
	forecastScanBatchSize = 100
)

// CachedForecast is the unit stored per forecast query. Points are
// immutable once created, so a TTL is the only invalidation needed
// besides a model swap.
type CachedForecast struct {
	Points   []domain.ForecastPoint `json:"points"`
	Metadata domain.BatchMetadata   `json:"metadata"`
}

type ForecastCache interface {
	Get(ctx context.Context, filter domain.ForecastFilter) (*CachedForecast, bool, error)
	Set(ctx context.Context, filter domain.ForecastFilter, cached *CachedForecast) error
	InvalidateAll(ctx context.Context) error
}

type redisForecastCache struct {
	client *redis.Client
	ttl    time.Duration
}

type noopForecastCache struct{}

// NewForecastCache returns the redis-backed cache when caching is
// enabled and reachable, the no-op cache otherwise.
func NewForecastCache(cfg config.CacheConfig) (ForecastCache, error) {
	if !cfg.Enabled {
		return &noopForecastCache{}, nil
	}

	client, ttl, err := newRedisClient(cfg)
	if err != nil {
		return nil, err
	}

	return &redisForecastCache{client: client, ttl: ttl}, nil
}

func NewNoopForecastCache() ForecastCache {
	return &noopForecastCache{}
}

func (c *redisForecastCache) Get(ctx context.Context, filter domain.ForecastFilter) (*CachedForecast, bool, error) {
	key := buildForecastKey(filter)

	payload, err := c.client.Get(ctx, key).Bytes()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("redis get failed: %w", err)
	}

	var cached CachedForecast
	if err := json.Unmarshal(payload, &cached); err != nil {
		return nil, false, fmt.Errorf("decode forecast cache: %w", err)
	}
	return &cached, true, nil
}

func (c *redisForecastCache) Set(ctx context.Context, filter domain.ForecastFilter, cached *CachedForecast) error {
	key := buildForecastKey(filter)
	payload, err := json.Marshal(cached)
	if err != nil {
		return fmt.Errorf("encode forecast cache: %w", err)
	}

	if err := c.client.Set(ctx, key, payload, c.ttl).Err(); err != nil {
		return fmt.Errorf("redis set failed: %w", err)
	}
	return nil
}

// InvalidateAll drops every cached forecast, called after a model swap so
// stale ensembles are not served under the new model identity.
func (c *redisForecastCache) InvalidateAll(ctx context.Context) error {
	return deleteKeysWithPrefix(ctx, c.client, forecastKeyPrefix, forecastScanBatchSize)
}

func (c *noopForecastCache) Get(ctx context.Context, filter domain.ForecastFilter) (*CachedForecast, bool, error) {
	return nil, false, nil
}

func (c *noopForecastCache) Set(ctx context.Context, filter domain.ForecastFilter, cached *CachedForecast) error {
	return nil
}

func (c *noopForecastCache) InvalidateAll(ctx context.Context) error {
	return nil
}

func buildForecastKey(filter domain.ForecastFilter) string {
	payload, _ := json.Marshal(filter)
	sum := sha1.Sum(payload)
	return fmt.Sprintf("%s:%s", forecastKeyPrefix, hex.EncodeToString(sum[:]))
}
