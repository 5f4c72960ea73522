package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/andresuchdata/controltower/backend-go/internal/config"
	"github.com/andresuchdata/controltower/backend-go/internal/domain"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return mr, client
}

func TestSummaryCacheRoundTrip(t *testing.T) {
	_, client := newTestRedis(t)
	c := NewSummaryCache(client, time.Hour)
	ctx := context.Background()

	_, ok, err := c.GetSummary(ctx, "t1", "2026-10-14")
	require.NoError(t, err)
	assert.False(t, ok)

	result := domain.RunResult{TenantID: "t1", Date: "2026-10-14", Success: true, IDIRows: 4}
	require.NoError(t, c.SetSummary(ctx, result))

	got, ok, err := c.GetSummary(ctx, "t1", "2026-10-14")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, result, *got)

	latest, ok, err := c.GetSummary(ctx, "t1", "")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 4, latest.IDIRows)
}

func TestInvalidateDashboardsIsTenantScoped(t *testing.T) {
	mr, client := newTestRedis(t)
	c := NewSummaryCache(client, time.Hour)

	require.NoError(t, mr.Set("kpi:dashboard:t1:idi", "x"))
	require.NoError(t, mr.Set("kpi:dashboard:t1:gap", "x"))
	require.NoError(t, mr.Set("kpi:dashboard:t2:idi", "x"))

	require.NoError(t, c.InvalidateDashboards(context.Background(), "t1"))

	assert.False(t, mr.Exists("kpi:dashboard:t1:idi"))
	assert.False(t, mr.Exists("kpi:dashboard:t1:gap"))
	assert.True(t, mr.Exists("kpi:dashboard:t2:idi"))
}

func TestRedisRunLock(t *testing.T) {
	mr, client := newTestRedis(t)
	ctx := context.Background()
	first := NewRedisRunLock(client)
	second := NewRedisRunLock(client)
	key := RunLockKey("t1", "2026-10-14")

	ok, err := first.TryLock(ctx, key, time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = second.TryLock(ctx, key, time.Minute)
	require.NoError(t, err)
	assert.False(t, ok)

	// a foreign owner cannot release it
	require.NoError(t, second.Unlock(ctx, key))
	assert.True(t, mr.Exists("kpi:lock:"+key))

	require.NoError(t, first.Unlock(ctx, key))
	assert.False(t, mr.Exists("kpi:lock:"+key))

	ok, err = second.TryLock(ctx, key, time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestLocalRunLockExpires(t *testing.T) {
	now := time.Date(2026, 10, 14, 0, 0, 0, 0, time.UTC)
	l := &localRunLock{held: make(map[string]time.Time), clock: func() time.Time { return now }}
	ctx := context.Background()

	ok, _ := l.TryLock(ctx, "k", time.Minute)
	assert.True(t, ok)
	ok, _ = l.TryLock(ctx, "k", time.Minute)
	assert.False(t, ok)

	now = now.Add(2 * time.Minute)
	ok, _ = l.TryLock(ctx, "k", time.Minute)
	assert.True(t, ok, "expired lock can be taken again")

	require.NoError(t, l.Unlock(ctx, "k"))
	ok, _ = l.TryLock(ctx, "k", time.Minute)
	assert.True(t, ok)
}

func TestBuildRedisOptions(t *testing.T) {
	opts, err := buildRedisOptions(config.CacheConfig{RedisHost: "cache", RedisPort: "6380", RedisDB: 2})
	require.NoError(t, err)
	assert.Equal(t, "cache:6380", opts.Addr)
	assert.Equal(t, 2, opts.DB)

	opts, err = buildRedisOptions(config.CacheConfig{RedisURL: "redis://:secret@redis.local:6379/1"})
	require.NoError(t, err)
	assert.Equal(t, "redis.local:6379", opts.Addr)
	assert.Equal(t, "secret", opts.Password)

	_, err = buildRedisOptions(config.CacheConfig{RedisURL: "http://nope"})
	assert.Error(t, err)

	assert.Equal(t, defaultSummaryTTL, SummaryTTL(config.CacheConfig{}))
}
