// Package cache keeps the tag list out of the database on hot paths.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/streed/study-notes/internal/config"
	"github.com/streed/study-notes/internal/logger"
)

// TagCache stores the sorted tag list. A miss or a backend failure is
// reported as ok=false; callers then read from storage.
//
// Get also returns the generation it observed. Set stores the list under that
// generation, and Invalidate starts a new one, so a list read from storage
// before an invalidation is never served after it.
type TagCache interface {
	Get(ctx context.Context) (tags []string, gen int64, ok bool)
	Set(ctx context.Context, gen int64, tags []string)
	Invalidate(ctx context.Context)
}

const (
	tagsKey       = "study-notes:tags"
	generationKey = "study-notes:tags:generation"
)

func generationTagsKey(gen int64) string {
	return fmt.Sprintf("%s:%d", tagsKey, gen)
}

type RedisTagCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisTagCache connects to Redis and verifies the connection with a PING.
func NewRedisTagCache(ctx context.Context, cfg config.CacheConfig) (*RedisTagCache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddress,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to redis at %s: %w", cfg.RedisAddress, err)
	}
	return newRedisTagCache(client, cfg.TTL), nil
}

func newRedisTagCache(client *redis.Client, ttl time.Duration) *RedisTagCache {
	return &RedisTagCache{client: client, ttl: ttl}
}

// Get returns gen -1 when the generation cannot be read; Set ignores it.
func (c *RedisTagCache) Get(ctx context.Context) ([]string, int64, bool) {
	gen, err := c.client.Get(ctx, generationKey).Int64()
	if errors.Is(err, redis.Nil) {
		gen = 0
	} else if err != nil {
		logger.Warn("Tag cache read failed: %v", err)
		return nil, -1, false
	}

	data, err := c.client.Get(ctx, generationTagsKey(gen)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, gen, false
	}
	if err != nil {
		logger.Warn("Tag cache read failed: %v", err)
		return nil, gen, false
	}

	var tags []string
	if err := json.Unmarshal(data, &tags); err != nil {
		logger.Warn("Tag cache holds invalid data: %v", err)
		return nil, gen, false
	}
	return tags, gen, true
}

func (c *RedisTagCache) Set(ctx context.Context, gen int64, tags []string) {
	if gen < 0 {
		return
	}
	data, err := json.Marshal(tags)
	if err != nil {
		return
	}
	if err := c.client.Set(ctx, generationTagsKey(gen), data, c.ttl).Err(); err != nil {
		logger.Warn("Tag cache write failed: %v", err)
	}
}

// Invalidate bumps the generation. Lists stored under older generations are
// no longer read and expire with the TTL.
func (c *RedisTagCache) Invalidate(ctx context.Context) {
	if err := c.client.Incr(ctx, generationKey).Err(); err != nil {
		logger.Warn("Tag cache invalidation failed: %v", err)
	}
}

// Ping reports whether Redis is reachable.
func (c *RedisTagCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

func (c *RedisTagCache) Close() error {
	return c.client.Close()
}
