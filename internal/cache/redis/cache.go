// Package redis implements the search result cache on top of Redis.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/Daption-ciray/proapp/internal/cache"
	"github.com/Daption-ciray/proapp/internal/metrics"
)

// Cache implements cache.Cache using Redis string values holding JSON.
type Cache struct {
	client *redis.Client
	logger *slog.Logger
}

// NewCache creates a Redis-backed result cache. Callers normally go through
// Connect, which probes the server first.
func NewCache(client *redis.Client, logger *slog.Logger) *Cache {
	return &Cache{
		client: client,
		logger: logger,
	}
}

// Probe checks once whether the Redis server is reachable.
func Probe(ctx context.Context, client *redis.Client) error {
	if err := client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis ping: %w", err)
	}
	return nil
}

// Connect probes client and returns a Redis cache when the server answers.
// Otherwise caching is disabled for the lifetime of the process and a
// cache.Nop is returned.
func Connect(ctx context.Context, client *redis.Client, logger *slog.Logger) cache.Cache {
	if err := Probe(ctx, client); err != nil {
		logger.WarnContext(ctx, "redis unavailable, result caching disabled",
			slog.String("error", err.Error()),
		)
		metrics.CacheUnavailable.Set(1)
		return cache.Nop{}
	}
	metrics.CacheUnavailable.Set(0)
	return NewCache(client, logger)
}

// Get returns the cached entry for key. Any failure counts as a miss.
func (c *Cache) Get(ctx context.Context, key string) (*cache.Entry, bool) {
	data, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.logger.WarnContext(ctx, "redis get failed",
				slog.String("key", key),
				slog.String("error", err.Error()),
			)
		}
		return nil, false
	}

	var entry cache.Entry
	if err := json.Unmarshal(data, &entry); err != nil {
		c.logger.WarnContext(ctx, "discarding undecodable cache entry",
			slog.String("key", key),
			slog.String("error", err.Error()),
		)
		return nil, false
	}

	return &entry, true
}

// Set stores entry under key with the given TTL. Failures are logged and
// otherwise ignored.
func (c *Cache) Set(ctx context.Context, key string, entry *cache.Entry, ttl time.Duration) {
	if entry == nil {
		return
	}
	if ttl <= 0 {
		ttl = cache.DefaultTTL
	}

	data, err := json.Marshal(entry)
	if err != nil {
		c.logger.WarnContext(ctx, "marshal cache entry", slog.String("error", err.Error()))
		return
	}

	if err := c.client.Set(ctx, key, data, ttl).Err(); err != nil {
		c.logger.WarnContext(ctx, "redis set failed",
			slog.String("key", key),
			slog.String("error", err.Error()),
		)
	}
}
