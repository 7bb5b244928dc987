// Package tilecache caches encoded tiles in memory and, when configured, in
// Redis. Concurrent requests for the same missing tile render it once.
package tilecache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/paulmach/orb/maptile"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"

	"github.com/beetlebugorg/osmrender/internal/cache"
	"github.com/beetlebugorg/osmrender/internal/logging"
	"github.com/beetlebugorg/osmrender/internal/metrics"
)

const (
	levelMemory = "memory"
	levelRedis  = "redis"
)

// Options configures a Cache.
type Options struct {
	// MaxBytes bounds the in-memory level. Zero means unbounded.
	MaxBytes int64

	// Redis enables the second level. Nil keeps the cache in memory only.
	Redis *redis.Client
	TTL   time.Duration

	// Prefix namespaces Redis keys, so several rulesets can share a server.
	Prefix string

	Metrics *metrics.Collectors
	Logger  logging.Logger
}

// RenderFunc produces the encoded bytes of a tile on a cache miss.
type RenderFunc func(ctx context.Context, key maptile.Tile) ([]byte, error)

type Cache struct {
	mem    *cache.LRU[[]byte]
	rc     *redis.Client
	ttl    time.Duration
	prefix string
	group  singleflight.Group
	m      *metrics.Collectors
	log    logging.Logger
}

func New(opts Options) *Cache {
	prefix := opts.Prefix
	if prefix == "" {
		prefix = "osmrender"
	}
	return &Cache{
		mem:    cache.New[[]byte](opts.MaxBytes, func(b []byte) int64 { return int64(len(b)) }),
		rc:     opts.Redis,
		ttl:    opts.TTL,
		prefix: prefix,
		m:      opts.Metrics,
		log:    logging.OrNop(opts.Logger),
	}
}

// Key returns the cache key of a tile.
func (c *Cache) Key(t maptile.Tile) string {
	return fmt.Sprintf("%s:tile:%d/%d/%d", c.prefix, t.Z, t.X, t.Y)
}

// Get returns the tile from memory, then Redis, then render. Redis failures
// are logged and treated as misses. A shared render outlives the cancellation
// of the caller that started it, since other callers may be waiting on it.
func (c *Cache) Get(ctx context.Context, t maptile.Tile, render RenderFunc) ([]byte, error) {
	key := c.Key(t)
	if data, ok := c.mem.Lookup(key); ok {
		c.m.CacheHit(levelMemory)
		return data, nil
	}
	c.m.CacheMiss(levelMemory)

	shared := context.WithoutCancel(ctx)
	v, err, _ := c.group.Do(key, func() (interface{}, error) {
		ctx := shared
		if data, ok := c.fromRedis(ctx, key); ok {
			_ = c.mem.Add(key, data)
			return data, nil
		}

		data, err := render(ctx, t)
		if err != nil {
			return nil, err
		}
		_ = c.mem.Add(key, data)
		c.toRedis(ctx, key, data)
		return data, nil
	})
	if err != nil {
		return nil, fmt.Errorf("render tile %d/%d/%d: %w", t.Z, t.X, t.Y, err)
	}
	return v.([]byte), nil
}

func (c *Cache) fromRedis(ctx context.Context, key string) ([]byte, bool) {
	if c.rc == nil {
		return nil, false
	}
	data, err := c.rc.Get(ctx, key).Bytes()
	switch {
	case err == nil:
		c.m.CacheHit(levelRedis)
		return data, true
	case errors.Is(err, redis.Nil):
		c.m.CacheMiss(levelRedis)
	default:
		c.m.CacheMiss(levelRedis)
		c.log.Warnf("redis get %s: %v", key, err)
	}
	return nil, false
}

func (c *Cache) toRedis(ctx context.Context, key string, data []byte) {
	if c.rc == nil {
		return
	}
	if err := c.rc.Set(ctx, key, data, c.ttl).Err(); err != nil {
		c.log.Warnf("redis set %s: %v", key, err)
	}
}

// Invalidate drops every cached tile from memory and the tile keys of this
// cache's prefix from Redis.
func (c *Cache) Invalidate(ctx context.Context) error {
	c.mem.Clear()
	if c.rc == nil {
		return nil
	}
	iter := c.rc.Scan(ctx, 0, c.prefix+":tile:*", 512).Iterator()
	for iter.Next(ctx) {
		if err := c.rc.Del(ctx, iter.Val()).Err(); err != nil {
			return fmt.Errorf("redis del: %w", err)
		}
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("redis scan: %w", err)
	}
	return nil
}

// Stats returns the counters of the in-memory level.
func (c *Cache) Stats() cache.Stats {
	return c.mem.Stats()
}
