package attribution

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/rafaesapata/AWS-EVO-sub012/internal/models"
)

// Cache memoizes resolved configs per routing metadata. Implementations
// must bound the entry lifetime: a cached attribution must never outlive
// its TTL, or configuration changes would be masked.
type Cache interface {
	Get(ctx context.Context, q Query) (*models.MonitoringConfig, bool)
	Set(ctx context.Context, q Query, cfg *models.MonitoringConfig)
}

// RedisCache is a TTL-bounded attribution cache backed by Redis. Cache
// failures are treated as misses so Redis being down only costs lookups.
type RedisCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisCache creates a cache from a redis URL. ttl must be positive.
func NewRedisCache(redisURL string, ttl time.Duration) (*RedisCache, error) {
	if ttl <= 0 {
		return nil, fmt.Errorf("attribution cache requires a positive TTL, got %s", ttl)
	}

	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}

	return &RedisCache{
		client: redis.NewClient(opts),
		ttl:    ttl,
	}, nil
}

func cacheKey(q Query) string {
	return "waf:attribution:" + q.LogGroup + ":" + q.OwnerAccountID
}

func (c *RedisCache) Get(ctx context.Context, q Query) (*models.MonitoringConfig, bool) {
	data, err := c.client.Get(ctx, cacheKey(q)).Bytes()
	if err != nil {
		return nil, false
	}

	var cfg models.MonitoringConfig
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, false
	}
	return &cfg, true
}

func (c *RedisCache) Set(ctx context.Context, q Query, cfg *models.MonitoringConfig) {
	data, err := json.Marshal(cfg)
	if err != nil {
		return
	}
	c.client.Set(ctx, cacheKey(q), data, c.ttl)
}

// Close releases the Redis connection.
func (c *RedisCache) Close() error {
	return c.client.Close()
}
