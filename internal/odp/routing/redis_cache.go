package routing

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/mmcloughlin/geohash"
	"github.com/redis/go-redis/v9"

	"github.com/example/odpfinder/internal/odp/domain"
)

const (
	defaultRedisCachePrefix = "odp:route:"
	defaultRedisCacheTTL    = 24 * time.Hour
	// keys carry the ~150m geohash cell of the origin
	originCellPrecision = 7
)

// RedisCache shares resolved routes between service replicas.
type RedisCache struct {
	client redis.Cmdable
	prefix string
	ttl    time.Duration
}

// NewRedisCache constructs the cache. Empty prefix or non-positive ttl fall back to defaults.
func NewRedisCache(client redis.Cmdable, prefix string, ttl time.Duration) *RedisCache {
	if prefix == "" {
		prefix = defaultRedisCachePrefix
	}
	if ttl <= 0 {
		ttl = defaultRedisCacheTTL
	}
	return &RedisCache{client: client, prefix: prefix, ttl: ttl}
}

// Key returns the redis key used for k.
func (r *RedisCache) Key(k CacheKey) string {
	cell := geohash.EncodeWithPrecision(k.Origin.Lat, k.Origin.Lng, originCellPrecision)
	return r.prefix + cell + ":" + k.String()
}

// Get satisfies Cache.
func (r *RedisCache) Get(ctx context.Context, key CacheKey) (domain.RouteResult, bool, error) {
	raw, err := r.client.Get(ctx, r.Key(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return domain.RouteResult{}, false, nil
	}
	if err != nil {
		return domain.RouteResult{}, false, fmt.Errorf("redis get: %w", err)
	}
	var result domain.RouteResult
	if err := json.Unmarshal(raw, &result); err != nil {
		return domain.RouteResult{}, false, fmt.Errorf("decode cached route: %w", err)
	}
	return result, true, nil
}

// Set satisfies Cache.
func (r *RedisCache) Set(ctx context.Context, key CacheKey, result domain.RouteResult) error {
	payload, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("encode route: %w", err)
	}
	if err := r.client.Set(ctx, r.Key(key), payload, r.ttl).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}
