package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/easywinget/backend/internal/core/ports"
	"github.com/easywinget/backend/internal/domain"
	"github.com/redis/go-redis/v9"
)

const keyPrefix = "easywinget:view:"

type redisViewCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisViewCache connects to addr and returns a listing cache whose
// entries expire after ttl (0 keeps them until invalidated).
func NewRedisViewCache(ctx context.Context, opts *redis.Options, ttl time.Duration) (ports.ViewCache, func() error, error) {
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}
	return &redisViewCache{client: client, ttl: ttl}, client.Close, nil
}

func key(view domain.View) string {
	return keyPrefix + string(view)
}

func (c *redisViewCache) Get(ctx context.Context, view domain.View) ([]string, bool, error) {
	raw, err := c.client.Get(ctx, key(view)).Result()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}

	var lines []string
	if err := json.Unmarshal([]byte(raw), &lines); err != nil {
		return nil, false, fmt.Errorf("decode cached %s: %w", view, err)
	}
	return lines, true, nil
}

func (c *redisViewCache) Set(ctx context.Context, view domain.View, lines []string) error {
	data, err := json.Marshal(lines)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, key(view), data, c.ttl).Err()
}

func (c *redisViewCache) Invalidate(ctx context.Context, view domain.View) error {
	return c.client.Del(ctx, key(view)).Err()
}

type noopViewCache struct{}

// NewNoopViewCache is used when Redis is disabled; every read misses.
func NewNoopViewCache() ports.ViewCache {
	return noopViewCache{}
}

func (noopViewCache) Get(context.Context, domain.View) ([]string, bool, error) {
	return nil, false, nil
}
func (noopViewCache) Set(context.Context, domain.View, []string) error { return nil }
func (noopViewCache) Invalidate(context.Context, domain.View) error    { return nil }
