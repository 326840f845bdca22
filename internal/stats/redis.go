package stats

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/cepcode/backend/internal/domain"
)

// RedisRecorder keeps counters in Redis hashes under a common prefix:
//
//	{prefix}:total              outcome → count, never expires
//	{prefix}:minute:YYYYMMDDhhmm outcome → count, expires after ttl
//	{prefix}:region             region id → count
//	{prefix}:state              UF → count
type RedisRecorder struct {
	rdb    redis.UniversalClient
	prefix string
	ttl    time.Duration
}

type RedisOption func(*RedisRecorder)

func WithPrefix(prefix string) RedisOption {
	return func(r *RedisRecorder) { r.prefix = strings.Trim(prefix, ":") }
}

// WithTTL sets the expiry of per-minute buckets. Zero keeps them forever.
func WithTTL(d time.Duration) RedisOption {
	return func(r *RedisRecorder) { r.ttl = d }
}

func NewRedisRecorder(rdb redis.UniversalClient, opts ...RedisOption) *RedisRecorder {
	r := &RedisRecorder{
		rdb:    rdb,
		prefix: "cepcode:stats",
		ttl:    7 * 24 * time.Hour,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *RedisRecorder) key(parts ...string) string {
	return r.prefix + ":" + strings.Join(parts, ":")
}

func (r *RedisRecorder) Record(ctx context.Context, ev domain.ResolutionEvent) error {
	if r == nil || r.rdb == nil {
		return nil
	}
	at := ev.At
	if at.IsZero() {
		at = time.Now()
	}
	field := string(ev.Outcome)

	pipe := r.rdb.Pipeline()
	pipe.HIncrBy(ctx, r.key("total"), field, 1)

	bucket := r.key("minute", at.UTC().Format("200601021504"))
	pipe.HIncrBy(ctx, bucket, field, 1)
	if r.ttl > 0 {
		pipe.Expire(ctx, bucket, r.ttl)
	}
	if ev.RegionID != 0 {
		pipe.HIncrBy(ctx, r.key("region"), strconv.Itoa(ev.RegionID), 1)
	}
	if ev.State != "" {
		pipe.HIncrBy(ctx, r.key("state"), ev.State, 1)
	}

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("stats.RedisRecorder.Record: %w", err)
	}
	return nil
}

func (r *RedisRecorder) Counts(ctx context.Context) (Counts, error) {
	pipe := r.rdb.Pipeline()
	total := pipe.HGetAll(ctx, r.key("total"))
	regions := pipe.HGetAll(ctx, r.key("region"))
	states := pipe.HGetAll(ctx, r.key("state"))
	if _, err := pipe.Exec(ctx); err != nil {
		return Counts{}, fmt.Errorf("stats.RedisRecorder.Counts: %w", err)
	}

	out := newCounts()
	for k, v := range total.Val() {
		out.Outcomes[domain.ResolutionOutcome(k)] = parseCount(v)
	}
	for k, v := range regions.Val() {
		id, err := strconv.Atoi(k)
		if err != nil {
			continue
		}
		out.Regions[id] = parseCount(v)
	}
	for k, v := range states.Val() {
		out.States[k] = parseCount(v)
	}
	return out, nil
}

// Bucket returns the outcome counts recorded in the minute containing at.
func (r *RedisRecorder) Bucket(ctx context.Context, at time.Time) (map[domain.ResolutionOutcome]int64, error) {
	vals, err := r.rdb.HGetAll(ctx, r.key("minute", at.UTC().Format("200601021504"))).Result()
	if err != nil {
		return nil, fmt.Errorf("stats.RedisRecorder.Bucket: %w", err)
	}
	out := make(map[domain.ResolutionOutcome]int64, len(vals))
	for k, v := range vals {
		out[domain.ResolutionOutcome(k)] = parseCount(v)
	}
	return out, nil
}

func (r *RedisRecorder) Source() string { return "redis" }

func parseCount(s string) int64 {
	n, _ := strconv.ParseInt(s, 10, 64)
	return n
}
