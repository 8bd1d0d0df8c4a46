package dashboard

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/solace-api/internal/pkg/cache"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingUserStore struct {
	calls int64
	err   error
}

func (s *countingUserStore) CountByProvider(context.Context) (int, int, map[string]int, error) {
	atomic.AddInt64(&s.calls, 1)
	if s.err != nil {
		return 0, 0, nil, s.err
	}
	return 10, 7, map[string]int{"legacy": 6, "hybrid": 3, "new": 1}, nil
}

func TestSummaryIsServedFromCache(t *testing.T) {
	store := &countingUserStore{}
	svc := NewService(store, cache.New())

	first, err := svc.Summary(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 10, first.TotalUsers)
	assert.Equal(t, 7, first.VerifiedUsers)
	assert.Equal(t, 3, first.ByProvider["hybrid"])

	second, err := svc.Summary(context.Background())
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.Equal(t, int64(1), atomic.LoadInt64(&store.calls), "within TTL the scan must not repeat")
}

func TestSummaryConcurrentRequestsCoalesce(t *testing.T) {
	store := &countingUserStore{}
	svc := NewService(store, cache.New())

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			sum, err := svc.Summary(context.Background())
			assert.NoError(t, err)
			assert.Equal(t, 10, sum.TotalUsers)
		}()
	}
	wg.Wait()
	assert.Equal(t, int64(1), atomic.LoadInt64(&store.calls))
}

func TestSummaryPropagatesStoreErrors(t *testing.T) {
	boom := errors.New("scan failed")
	svc := NewService(&countingUserStore{err: boom}, cache.New())

	_, err := svc.Summary(context.Background())
	assert.ErrorIs(t, err, boom)
}
