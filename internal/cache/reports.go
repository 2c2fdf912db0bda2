// Package cache stores rendered report payloads between ledger mutations.
package cache

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// Entry is the result of a cache lookup. Generation identifies the cache
// generation the lookup observed; a report computed after a miss must be
// stored under that generation so a concurrent Invalidate hides it.
type Entry struct {
	Value      []byte
	Hit        bool
	Generation string
}

// ReportCache caches serialized reports. Invalidate drops every entry.
type ReportCache interface {
	Get(ctx context.Context, key string) (Entry, error)
	Set(ctx context.Context, key, generation string, value []byte) error
	Invalidate(ctx context.Context) error
}

// NoopReportCache never stores anything.
type NoopReportCache struct{}

// Get always misses.
func (NoopReportCache) Get(context.Context, string) (Entry, error) { return Entry{}, nil }

// Set performs no action.
func (NoopReportCache) Set(context.Context, string, string, []byte) error { return nil }

// Invalidate performs no action.
func (NoopReportCache) Invalidate(context.Context) error { return nil }

// RedisReportCache keeps reports in Redis under a generation prefix.
// Invalidate bumps the generation so stale entries are never read again and
// expire on their own TTL.
type RedisReportCache struct {
	client redis.UniversalClient
	prefix string
	ttl    time.Duration
}

// NewRedisReportCache constructs a RedisReportCache.
func NewRedisReportCache(client redis.UniversalClient, prefix string, ttl time.Duration) *RedisReportCache {
	if prefix == "" {
		prefix = "fitchallenge:reports"
	}
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &RedisReportCache{client: client, prefix: prefix, ttl: ttl}
}

func (c *RedisReportCache) generationKey() string {
	return c.prefix + ":generation"
}

func (c *RedisReportCache) generation(ctx context.Context) (string, error) {
	gen, err := c.client.Get(ctx, c.generationKey()).Result()
	if errors.Is(err, redis.Nil) {
		return "0", nil
	}
	if err != nil {
		return "", err
	}
	if _, err := strconv.ParseInt(gen, 10, 64); err != nil {
		return "", err
	}
	return gen, nil
}

func (c *RedisReportCache) entryKey(gen, key string) string {
	return c.prefix + ":" + gen + ":" + key
}

// Get returns the cached payload for key in the current generation.
func (c *RedisReportCache) Get(ctx context.Context, key string) (Entry, error) {
	gen, err := c.generation(ctx)
	if err != nil {
		return Entry{}, err
	}
	value, err := c.client.Get(ctx, c.entryKey(gen, key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return Entry{Generation: gen}, nil
	}
	if err != nil {
		return Entry{}, err
	}
	return Entry{Value: value, Hit: true, Generation: gen}, nil
}

// Set stores value for key under generation, normally the one returned by
// the Get that missed. Entries written for a superseded generation are
// never read.
func (c *RedisReportCache) Set(ctx context.Context, key, generation string, value []byte) error {
	if _, err := strconv.ParseInt(generation, 10, 64); err != nil {
		return fmt.Errorf("report cache generation %q: %w", generation, err)
	}
	return c.client.Set(ctx, c.entryKey(generation, key), value, c.ttl).Err()
}

// Invalidate starts a new generation.
func (c *RedisReportCache) Invalidate(ctx context.Context) error {
	return c.client.Incr(ctx, c.generationKey()).Err()
}
