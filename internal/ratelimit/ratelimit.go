// Package ratelimit counts evaluation requests per client identity in fixed
// Redis-backed windows. The window expiry is set on the first request only;
// later requests increment without touching it.
package ratelimit

import (
	"context"
	"errors"
	"log/slog"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/metahkg/metahkg-redirect/internal/hashutil"
)

// DefaultWindow is the counting window length.
const DefaultWindow = 30 * time.Second

// Limiter counts requests per hashed client identity.
type Limiter struct {
	rdb    *redis.Client
	prefix string
	window time.Duration
	max    int
	log    *slog.Logger
}

// New creates a Limiter. max, when positive, saturates the stored counter:
// once reached the count is reported but no longer incremented. prefix
// namespaces keys within a shared Redis.
func New(rdb *redis.Client, prefix string, window time.Duration, max int, logger *slog.Logger) *Limiter {
	if window <= 0 {
		window = DefaultWindow
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Limiter{rdb: rdb, prefix: prefix, window: window, max: max, log: logger}
}

// Admit records a request from clientID and returns the number of requests
// already observed in the current window (1 for the first). Redis failures
// fail open with a zero count, logged.
func (l *Limiter) Admit(ctx context.Context, clientID string) int {
	key := l.prefix + "rate-limit-" + hashutil.SHA256Hex(clientID)

	val, err := l.rdb.Get(ctx, key).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		l.log.Warn("rate limiter read failed", "error", err)
		return 0
	}
	count, _ := strconv.Atoi(val)
	if count > 0 {
		if l.max <= 0 || count < l.max {
			if err := l.rdb.Incr(ctx, key).Err(); err != nil {
				l.log.Warn("rate limiter increment failed", "error", err)
			}
		}
		return count
	}

	if err := l.rdb.Set(ctx, key, 1, l.window).Err(); err != nil {
		l.log.Warn("rate limiter write failed", "error", err)
		return 0
	}
	return 1
}
