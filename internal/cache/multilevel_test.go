package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type dashboardPayload struct {
	Total   int      `json:"total"`
	Overdue []string `json:"overdue"`
}

func TestMemoryCache_TTLAndPattern(t *testing.T) {
	m := NewMemoryCache()
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	m.now = func() time.Time { return now }

	m.Set("dashboard:a", []byte(`1`), time.Second)
	m.Set("dashboard:b", []byte(`2`), 0)
	m.Set("prefs", []byte(`3`), 0)

	_, ok := m.Get("dashboard:a")
	assert.True(t, ok)

	now = now.Add(time.Second)
	_, ok = m.Get("dashboard:a")
	assert.False(t, ok, "entry should expire exactly at its deadline")

	assert.Equal(t, 1, m.DeletePattern("dashboard:*"))
	assert.Equal(t, 1, m.Len())
}

func TestMemoryCache_ExpiryKeepsConcurrentSet(t *testing.T) {
	m := NewMemoryCache()
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	m.now = func() time.Time { return now }

	m.Set("dashboard:summary", []byte(`"stale"`), time.Second)
	now = now.Add(2 * time.Second)

	// a writer refreshes the key between the expiry check and the eviction
	refreshed := false
	m.now = func() time.Time {
		if !refreshed {
			refreshed = true
			m.Set("dashboard:summary", []byte(`"fresh"`), time.Minute)
		}
		return now
	}

	_, ok := m.Get("dashboard:summary")
	assert.False(t, ok)

	got, ok := m.Get("dashboard:summary")
	require.True(t, ok, "the refreshed entry must survive the stale eviction")
	assert.Equal(t, `"fresh"`, string(got))
}

func TestMultiLevelCache_MemoryOnly(t *testing.T) {
	c := NewMultiLevelCache(nil)
	ctx := context.Background()

	var got dashboardPayload
	assert.ErrorIs(t, c.Get(ctx, "dashboard:summary", &got), ErrCacheMiss)

	require.NoError(t, c.Set(ctx, "dashboard:summary", dashboardPayload{Total: 3, Overdue: []string{"a"}}, time.Minute))
	require.NoError(t, c.Get(ctx, "dashboard:summary", &got))
	assert.Equal(t, 3, got.Total)

	got.Overdue[0] = "mutated"
	var again dashboardPayload
	require.NoError(t, c.Get(ctx, "dashboard:summary", &again))
	assert.Equal(t, []string{"a"}, again.Overdue)

	require.NoError(t, c.DeletePattern(ctx, "dashboard:*"))
	assert.ErrorIs(t, c.Get(ctx, "dashboard:summary", &got), ErrCacheMiss)

	m := c.Metrics()
	assert.Equal(t, int64(2), m.Hits)
	assert.Equal(t, int64(2), m.Misses)
	assert.Equal(t, 50.0, m.HitRate)
	assert.NoError(t, c.Health(ctx))
}

func TestMultiLevelCache_PromotesFromRedis(t *testing.T) {
	mr := miniredis.RunT(t)
	config := DefaultCacheConfig()
	config.Addr = mr.Addr()
	redisCache := NewRedisCache(NewRedisClient(config), config.KeyPrefix)
	ctx := context.Background()

	writer := NewMultiLevelCache(redisCache)
	require.NoError(t, writer.Set(ctx, "dashboard:summary", dashboardPayload{Total: 7}, time.Minute))
	assert.True(t, mr.Exists("taskflow:dashboard:summary"))

	// a second process only shares redis
	reader := NewMultiLevelCache(redisCache)
	var got dashboardPayload
	require.NoError(t, reader.Get(ctx, "dashboard:summary", &got))
	assert.Equal(t, 7, got.Total)

	mr.FlushAll()
	got = dashboardPayload{}
	require.NoError(t, reader.Get(ctx, "dashboard:summary", &got), "promoted value should be served from L1")
	assert.Equal(t, 7, got.Total)
}

func TestMultiLevelCache_DegradesWhenRedisIsDown(t *testing.T) {
	mr := miniredis.RunT(t)
	config := DefaultCacheConfig()
	config.Addr = mr.Addr()
	config.MaxRetries = -1
	config.DialTimeout = 100 * time.Millisecond
	redisCache := NewRedisCache(NewRedisClient(config), config.KeyPrefix)
	mr.Close()

	c := NewMultiLevelCache(redisCache, WithCircuitBreaker(NewCircuitBreaker(&CircuitBreakerConfig{
		MaxFailures:      1,
		Timeout:          time.Hour,
		HalfOpenMaxCalls: 1,
	})))
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "dashboard:summary", dashboardPayload{Total: 1}, time.Minute))

	var got dashboardPayload
	require.NoError(t, c.Get(ctx, "dashboard:summary", &got))
	assert.Equal(t, 1, got.Total)

	assert.ErrorIs(t, c.Get(ctx, "dashboard:other", &got), ErrCacheMiss)
	assert.Equal(t, CircuitBreakerOpen, c.breaker.GetState())
	assert.ErrorIs(t, c.Health(ctx), ErrCacheDown)
	assert.GreaterOrEqual(t, c.Metrics().Errors, int64(1))
}
