package cache

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Cache is a fail-open read-through cache backed by Redis. It is advisory
// only: a miss, an unreachable backend, or a nil client all behave like a
// cold cache and the caller falls through to the authoritative store.
// All methods are safe for concurrent use.
type Cache struct {
	client       *redis.Client
	logger       *zap.Logger
	defaultTTL   time.Duration
	analyticsTTL time.Duration
}

// Options configures key TTLs.
type Options struct {
	DefaultTTL   time.Duration
	AnalyticsTTL time.Duration
}

// New connects to Redis and returns a Cache. Connection failure does not
// return an error: the cache starts disabled and every operation is a no-op.
func New(ctx context.Context, addr, password string, db int, opts Options, logger *zap.Logger) *Cache {
	if logger == nil {
		logger = zap.NewNop()
	}
	c := &Cache{logger: logger, defaultTTL: opts.DefaultTTL, analyticsTTL: opts.AnalyticsTTL}
	if c.defaultTTL <= 0 {
		c.defaultTTL = 5 * time.Minute
	}
	if c.analyticsTTL <= 0 {
		c.analyticsTTL = 10 * time.Minute
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:         addr,
		Password:     password,
		DB:           db,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 5 * time.Second,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		logger.Warn("redis unavailable, cache disabled", zap.String("addr", addr), zap.Error(err))
		_ = rdb.Close()
		return c
	}
	c.client = rdb
	logger.Info("redis cache connected", zap.String("addr", addr))
	return c
}

// NewWithClient wraps an existing Redis client. Used by tests.
func NewWithClient(client *redis.Client, opts Options, logger *zap.Logger) *Cache {
	if logger == nil {
		logger = zap.NewNop()
	}
	c := &Cache{client: client, logger: logger, defaultTTL: opts.DefaultTTL, analyticsTTL: opts.AnalyticsTTL}
	if c.defaultTTL <= 0 {
		c.defaultTTL = 5 * time.Minute
	}
	if c.analyticsTTL <= 0 {
		c.analyticsTTL = 10 * time.Minute
	}
	return c
}

// Close releases the underlying connection.
func (c *Cache) Close() error {
	if c.client == nil {
		return nil
	}
	return c.client.Close()
}

// DefaultTTL is the TTL for single-entity and list views.
func (c *Cache) DefaultTTL() time.Duration { return c.defaultTTL }

// AnalyticsTTL is the longer TTL for aggregated/analytics views.
func (c *Cache) AnalyticsTTL() time.Duration { return c.analyticsTTL }

// Get loads the JSON value stored under key into dest. Returns false on miss,
// backend error, or disabled cache.
func (c *Cache) Get(ctx context.Context, key string, dest interface{}) bool {
	if c.client == nil {
		return false
	}
	raw, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		if err != redis.Nil {
			c.logger.Warn("cache get failed", zap.String("key", key), zap.Error(err))
		}
		return false
	}
	if err := json.Unmarshal(raw, dest); err != nil {
		c.logger.Warn("cache entry corrupt", zap.String("key", key), zap.Error(err))
		return false
	}
	return true
}

// Set stores value as JSON under key with the given TTL. Zero ttl uses the
// default TTL. Failures are logged and swallowed.
func (c *Cache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) {
	if c.client == nil {
		return
	}
	raw, err := json.Marshal(value)
	if err != nil {
		c.logger.Warn("cache marshal failed", zap.String("key", key), zap.Error(err))
		return
	}
	if ttl <= 0 {
		ttl = c.defaultTTL
	}
	if err := c.client.Set(ctx, key, raw, ttl).Err(); err != nil {
		c.logger.Warn("cache set failed", zap.String("key", key), zap.Error(err))
	}
}

// Delete removes a single key. Deleting an absent key is not an error.
func (c *Cache) Delete(ctx context.Context, keys ...string) {
	if c.client == nil || len(keys) == 0 {
		return
	}
	if err := c.client.Del(ctx, keys...).Err(); err != nil {
		c.logger.Warn("cache delete failed", zap.Strings("keys", keys), zap.Error(err))
	}
}

// DeletePattern removes every key matching pattern using a cursor-based SCAN
// so a large keyspace never blocks the shared store behind a single command.
func (c *Cache) DeletePattern(ctx context.Context, pattern string) {
	if c.client == nil {
		return
	}
	var cursor uint64
	for {
		keys, next, err := c.client.Scan(ctx, cursor, pattern, 100).Result()
		if err != nil {
			c.logger.Warn("cache scan failed", zap.String("pattern", pattern), zap.Error(err))
			return
		}
		if len(keys) > 0 {
			if err := c.client.Del(ctx, keys...).Err(); err != nil {
				c.logger.Warn("cache delete failed", zap.String("pattern", pattern), zap.Error(err))
				return
			}
		}
		cursor = next
		if cursor == 0 {
			return
		}
	}
}

// Incr atomically increments the counter under key. Returns false when the
// backend is unavailable; callers must fall back to the authoritative store.
func (c *Cache) Incr(ctx context.Context, key string) (int64, bool) {
	if c.client == nil {
		return 0, false
	}
	n, err := c.client.Incr(ctx, key).Result()
	if err != nil {
		c.logger.Warn("cache incr failed", zap.String("key", key), zap.Error(err))
		return 0, false
	}
	return n, true
}
