package redisinfra

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestLimiter(t *testing.T) (*SlidingWindowLimiter, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() {
		_ = client.Close()
		mr.Close()
	})
	return NewSlidingWindowLimiter(client), mr
}

func TestCheckDeniesPastLimit(t *testing.T) {
	l, _ := newTestLimiter(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		d := l.Check(ctx, "reset", "203.0.113.9", 3, time.Minute)
		assert.True(t, d.Allowed, "call %d within limit", i+1)
		assert.Zero(t, d.RetryAfter)
	}

	d := l.Check(ctx, "reset", "203.0.113.9", 3, time.Minute)
	assert.False(t, d.Allowed)
	assert.GreaterOrEqual(t, d.RetryAfter, time.Second)
	assert.LessOrEqual(t, d.RetryAfter, time.Minute)

	// Denied calls must not consume window slots: keep hammering and the
	// count of accepted requests stays at the limit.
	for i := 0; i < 5; i++ {
		assert.False(t, l.Check(ctx, "reset", "203.0.113.9", 3, time.Minute).Allowed)
	}
}

func TestCheckWindowSlides(t *testing.T) {
	l, _ := newTestLimiter(t)
	ctx := context.Background()
	const window = 300 * time.Millisecond

	assert.True(t, l.Check(ctx, "login", "c1", 1, window).Allowed)
	assert.False(t, l.Check(ctx, "login", "c1", 1, window).Allowed)

	time.Sleep(window + 50*time.Millisecond)
	assert.True(t, l.Check(ctx, "login", "c1", 1, window).Allowed, "window slid past the first call")
}

func TestCheckBucketsAreIndependent(t *testing.T) {
	l, _ := newTestLimiter(t)
	ctx := context.Background()

	// Exhaust one (operation, caller) bucket.
	assert.True(t, l.Check(ctx, "reset", "c1", 1, time.Minute).Allowed)
	assert.False(t, l.Check(ctx, "reset", "c1", 1, time.Minute).Allowed)

	// Same caller, different operation — and a generous concurrent config.
	for i := 0; i < 10; i++ {
		assert.True(t, l.Check(ctx, "dashboard", "c1", 120, time.Minute).Allowed)
	}
	// Same operation, different caller.
	assert.True(t, l.Check(ctx, "reset", "c2", 1, time.Minute).Allowed)
}

func TestCheckFailsOpen(t *testing.T) {
	t.Run("nil client", func(t *testing.T) {
		l := NewSlidingWindowLimiter(nil)
		d := l.Check(context.Background(), "reset", "c1", 1, time.Minute)
		assert.True(t, d.Allowed)
	})

	t.Run("backend down", func(t *testing.T) {
		l, mr := newTestLimiter(t)
		mr.Close()
		for i := 0; i < 5; i++ {
			assert.True(t, l.Check(context.Background(), "reset", "c1", 1, time.Minute).Allowed)
		}
	})
}

func TestRetryAfterSeconds(t *testing.T) {
	assert.Equal(t, "60", Decision{RetryAfter: time.Minute}.RetryAfterSeconds())
	assert.Equal(t, "1", Decision{RetryAfter: time.Second}.RetryAfterSeconds())
}
