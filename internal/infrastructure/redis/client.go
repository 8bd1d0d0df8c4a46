package redisinfra

import (
	"context"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/solace-api/internal/config"
)

// NewClient creates a Redis client for the rate-limit counter backend, or nil
// when no address is configured. A nil client puts the limiter in fail-open
// mode — rate limiting is defense in depth, never a hard dependency.
func NewClient(cfg *config.Config) *redis.Client {
	if cfg.RedisAddr == "" {
		return nil
	}
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		slog.Warn("redis unreachable at startup, rate limiting degrades to allow-all on errors", "addr", cfg.RedisAddr, "err", err)
	}
	return client
}
