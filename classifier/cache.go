package classifier

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// VerdictCache remembers verdicts by image digest.
type VerdictCache interface {
	Get(ctx context.Context, digest string) (Verdict, bool, error)
	Set(ctx context.Context, digest string, v Verdict) error
}

const verdictKeyPrefix = "verdict:"

type RedisCache struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewRedisCache(rdb *redis.Client, ttl time.Duration) *RedisCache {
	return &RedisCache{rdb: rdb, ttl: ttl}
}

func (c *RedisCache) Get(ctx context.Context, digest string) (Verdict, bool, error) {
	val, err := c.rdb.Get(ctx, verdictKeyPrefix+digest).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("RedisCache - Get - c.rdb.Get: %w", err)
	}

	v, err := ParseVerdict(val)
	if err != nil {
		return "", false, fmt.Errorf("RedisCache - Get: %w", err)
	}

	return v, true, nil
}

func (c *RedisCache) Set(ctx context.Context, digest string, v Verdict) error {
	if err := c.rdb.Set(ctx, verdictKeyPrefix+digest, string(v), c.ttl).Err(); err != nil {
		return fmt.Errorf("RedisCache - Set - c.rdb.Set: %w", err)
	}
	return nil
}
