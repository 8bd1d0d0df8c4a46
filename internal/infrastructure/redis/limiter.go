package redisinfra

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/solace-api/internal/pkg/id"
)

// Decision is the outcome of a limiter check.
type Decision struct {
	Allowed bool
	// RetryAfter is how long the caller should wait before the window has
	// slid far enough to admit another request. Zero when allowed.
	RetryAfter time.Duration
}

// SlidingWindowLimiter counts accepted requests per (operation, caller)
// bucket inside a trailing window, backed by a Redis sorted set whose scores
// are arrival times. With no backend (nil client) or a backend error every
// check allows: the limiter fails open rather than blocking traffic.
type SlidingWindowLimiter struct {
	client *redis.Client
	prefix string
}

// NewSlidingWindowLimiter wraps client, which may be nil.
func NewSlidingWindowLimiter(client *redis.Client) *SlidingWindowLimiter {
	return &SlidingWindowLimiter{client: client, prefix: "rl"}
}

// Check records one request for (operation, caller) and reports whether it
// fits inside limit per window. Each (limit, window) pair applies only to its
// own bucket key, so concurrent configurations never cross-contaminate.
func (l *SlidingWindowLimiter) Check(ctx context.Context, operation, caller string, limit int, window time.Duration) Decision {
	if l.client == nil || limit <= 0 || window <= 0 {
		return Decision{Allowed: true}
	}

	key := l.prefix + ":" + operation + ":" + caller
	now := time.Now()
	windowStart := now.Add(-window)
	member := id.New()

	pipe := l.client.TxPipeline()
	pipe.ZRemRangeByScore(ctx, key, "-inf", strconv.FormatInt(windowStart.UnixNano(), 10))
	pipe.ZAdd(ctx, key, redis.Z{Score: float64(now.UnixNano()), Member: member})
	card := pipe.ZCard(ctx, key)
	pipe.Expire(ctx, key, window)
	if _, err := pipe.Exec(ctx); err != nil {
		slog.Warn("rate limiter backend unavailable, allowing request", "operation", operation, "err", err)
		return Decision{Allowed: true}
	}

	if card.Val() <= int64(limit) {
		return Decision{Allowed: true}
	}

	// Over the limit: the denied request must not count against the window.
	if err := l.client.ZRem(ctx, key, member).Err(); err != nil {
		slog.Warn("rate limiter cleanup failed", "operation", operation, "err", err)
	}
	return Decision{Allowed: false, RetryAfter: l.retryAfter(ctx, key, now, window)}
}

// retryAfter derives the wait from the oldest accepted timestamp still in the
// window: once it slides out, one slot frees up.
func (l *SlidingWindowLimiter) retryAfter(ctx context.Context, key string, now time.Time, window time.Duration) time.Duration {
	oldest, err := l.client.ZRangeWithScores(ctx, key, 0, 0).Result()
	if err != nil || len(oldest) == 0 {
		return time.Second
	}
	wait := time.Unix(0, int64(oldest[0].Score)).Add(window).Sub(now)
	if wait < time.Second {
		return time.Second
	}
	// Round up to whole seconds for the Retry-After header.
	secs := int64(wait / time.Second)
	if wait%time.Second != 0 {
		secs++
	}
	return time.Duration(secs) * time.Second
}

// RetryAfterSeconds formats a decision's wait for the Retry-After header.
func (d Decision) RetryAfterSeconds() string {
	return fmt.Sprintf("%d", int64(d.RetryAfter/time.Second))
}
