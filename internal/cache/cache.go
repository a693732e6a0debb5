// Package cache memoizes verdicts in Redis keyed by the fingerprint of the
// raw request URL. Cache failures are never fatal: reads degrade to a miss
// and writes to a no-op, both logged.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/metahkg/metahkg-redirect/internal/hashutil"
	"github.com/metahkg/metahkg-redirect/internal/metrics"
	"github.com/metahkg/metahkg-redirect/internal/model"
)

// DefaultTTL matches the feed refresh cadence: a verdict is never served
// from cache longer than one feed cycle.
const DefaultTTL = 30 * time.Minute

// Cache is the Redis-backed verdict cache.
type Cache struct {
	rdb    *redis.Client
	prefix string
	ttl    time.Duration
	log    *slog.Logger
}

// New creates a Cache. prefix namespaces keys within a shared Redis.
func New(rdb *redis.Client, prefix string, ttl time.Duration, logger *slog.Logger) *Cache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Cache{rdb: rdb, prefix: prefix, ttl: ttl, log: logger}
}

func (c *Cache) key(rawURL string) string {
	return c.prefix + "url-" + hashutil.SHA256Hex(rawURL)
}

// Get returns the cached verdict for rawURL. Redis errors and corrupt
// entries are treated as misses.
func (c *Cache) Get(ctx context.Context, rawURL string) (*model.Verdict, bool) {
	val, err := c.rdb.Get(ctx, c.key(rawURL)).Result()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.log.Warn("verdict cache read failed", "error", err)
		}
		metrics.CacheMisses.Inc()
		return nil, false
	}
	var v model.Verdict
	if err := json.Unmarshal([]byte(val), &v); err != nil {
		c.log.Warn("corrupt verdict cache entry", "error", err)
		metrics.CacheMisses.Inc()
		return nil, false
	}
	metrics.CacheHits.Inc()
	return &v, true
}

// Set stores the verdict with the cache TTL. Failures are logged only.
func (c *Cache) Set(ctx context.Context, rawURL string, v *model.Verdict) {
	data, err := json.Marshal(v)
	if err != nil {
		c.log.Error("marshal verdict failed", "error", err)
		return
	}
	if err := c.rdb.Set(ctx, c.key(rawURL), data, c.ttl).Err(); err != nil {
		c.log.Warn("verdict cache write failed", "error", err)
	}
}
