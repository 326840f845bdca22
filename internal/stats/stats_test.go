package stats_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cepcode/backend/internal/domain"
	"github.com/cepcode/backend/internal/stats"
	"github.com/cepcode/backend/testutil"
)

var (
	_ stats.Recorder = (*stats.MemoryRecorder)(nil)
	_ stats.Recorder = (*stats.RedisRecorder)(nil)
)

func recordSample(t *testing.T, r stats.Recorder) {
	t.Helper()
	ctx := context.Background()
	events := []domain.ResolutionEvent{
		{Outcome: domain.OutcomeCacheHit, State: "DF", RegionID: 2},
		{Outcome: domain.OutcomeCacheHit, State: "SP", RegionID: 3},
		{Outcome: domain.OutcomeCacheMiss, State: "BA", RegionID: 1},
		{Outcome: domain.OutcomeInvalid},
	}
	for _, ev := range events {
		require.NoError(t, r.Record(ctx, ev))
	}
}

func assertSample(t *testing.T, c stats.Counts) {
	t.Helper()
	assert.Equal(t, int64(2), c.Outcomes[domain.OutcomeCacheHit])
	assert.Equal(t, int64(1), c.Outcomes[domain.OutcomeCacheMiss])
	assert.Equal(t, int64(1), c.Outcomes[domain.OutcomeInvalid])
	assert.Equal(t, map[int]int64{1: 1, 2: 1, 3: 1}, c.Regions)
	assert.Equal(t, int64(1), c.States["DF"])
	assert.Equal(t, int64(4), c.Total())
	assert.InDelta(t, 2.0/3.0, c.HitRatio(), 1e-9)
}

func TestMemoryRecorder(t *testing.T) {
	r := stats.NewMemoryRecorder()
	recordSample(t, r)

	c, err := r.Counts(context.Background())
	require.NoError(t, err)
	assertSample(t, c)
	assert.Equal(t, "memory", r.Source())
}

func TestMemoryRecorder_CountsIsACopy(t *testing.T) {
	r := stats.NewMemoryRecorder()
	recordSample(t, r)

	c, _ := r.Counts(context.Background())
	c.Outcomes[domain.OutcomeCacheHit] = 99

	again, _ := r.Counts(context.Background())
	assert.Equal(t, int64(2), again.Outcomes[domain.OutcomeCacheHit])
}

func TestMemoryRecorder_Concurrent(t *testing.T) {
	r := stats.NewMemoryRecorder()
	var wg sync.WaitGroup
	for range 50 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range 20 {
				_ = r.Record(context.Background(), domain.ResolutionEvent{Outcome: domain.OutcomeCacheMiss, RegionID: 1})
			}
		}()
	}
	wg.Wait()

	c, _ := r.Counts(context.Background())
	assert.Equal(t, int64(1000), c.Outcomes[domain.OutcomeCacheMiss])
	assert.Equal(t, int64(1000), c.Regions[1])
}

func TestCounts_HitRatioEmpty(t *testing.T) {
	assert.Zero(t, stats.Counts{}.HitRatio())
}

func TestRedisRecorder_NilIsNoop(t *testing.T) {
	var r *stats.RedisRecorder
	assert.NoError(t, r.Record(context.Background(), domain.ResolutionEvent{Outcome: domain.OutcomeCacheHit}))
}

// TestRedisRecorder runs against a live Redis and is skipped when
// TEST_REDIS_ADDR is unset.
func TestRedisRecorder(t *testing.T) {
	prefix := "cepcode:test:" + uuid.NewString()
	rdb := testutil.NewRedis(t, prefix)
	ctx := context.Background()

	r := stats.NewRedisRecorder(rdb, stats.WithPrefix(prefix+":"), stats.WithTTL(time.Minute))
	recordSample(t, r)

	c, err := r.Counts(ctx)
	require.NoError(t, err)
	assertSample(t, c)

	at := time.Date(2024, 3, 1, 12, 30, 15, 0, time.UTC)
	require.NoError(t, r.Record(ctx, domain.ResolutionEvent{Outcome: domain.OutcomeNotFound, At: at}))
	bucket, err := r.Bucket(ctx, at.Add(30*time.Second))
	require.NoError(t, err)
	assert.Equal(t, map[domain.ResolutionOutcome]int64{domain.OutcomeNotFound: 1}, bucket)
	assert.Equal(t, "redis", r.Source())
}
