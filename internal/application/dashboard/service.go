package dashboard

import (
	"context"
	"fmt"
	"time"

	"github.com/solace-api/internal/pkg/cache"
)

// summaryTTL bounds how stale the dashboard aggregate may be. The endpoint
// is polled aggressively, so the cache, not the table scan, takes the load.
const summaryTTL = 30 * time.Second

const summaryKey = "dashboard:summary"

// Summary aggregates user counts for the operations dashboard.
type Summary struct {
	TotalUsers    int            `json:"total_users"`
	VerifiedUsers int            `json:"verified_users"`
	ByProvider    map[string]int `json:"by_provider"`
	GeneratedAt   time.Time      `json:"generated_at"`
}

// UserCounter is the aggregate query the summary needs from the user store.
type UserCounter interface {
	CountByProvider(ctx context.Context) (total, verified int, perProvider map[string]int, err error)
}

type Service interface {
	Summary(ctx context.Context) (*Summary, error)
}

type service struct {
	users UserCounter
	cache *cache.Cache
}

func NewService(users UserCounter, c *cache.Cache) Service {
	return &service{users: users, cache: c}
}

// Summary returns the cached aggregate, computing it at most once per TTL
// regardless of how many requests arrive concurrently.
func (s *service) Summary(ctx context.Context) (*Summary, error) {
	v, err := s.cache.GetOrCompute(ctx, summaryKey, summaryTTL, func(ctx context.Context) (any, error) {
		total, verified, perProvider, err := s.users.CountByProvider(ctx)
		if err != nil {
			return nil, err
		}
		return &Summary{
			TotalUsers:    total,
			VerifiedUsers: verified,
			ByProvider:    perProvider,
			GeneratedAt:   time.Now().UTC(),
		}, nil
	})
	if err != nil {
		return nil, err
	}
	sum, ok := v.(*Summary)
	if !ok {
		return nil, fmt.Errorf("unexpected cache value type %T", v)
	}
	return sum, nil
}
