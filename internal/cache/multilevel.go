package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// Cache is what the services depend on. Values round-trip through JSON.
type Cache interface {
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	Get(ctx context.Context, key string, dest interface{}) error
	Delete(ctx context.Context, key string) error
	DeletePattern(ctx context.Context, pattern string) error
	Health(ctx context.Context) error
	Stats() map[string]interface{}
	Close() error
}

// MultiLevelCache answers from the in-process L1 first and falls back to
// Redis. Redis calls go through a circuit breaker; while it is open, or when
// Redis errors, the cache degrades to L1 only instead of failing the caller.
type MultiLevelCache struct {
	l1      *MemoryCache
	l2      *RedisCache
	breaker *CircuitBreaker
	metrics *CacheMetrics
	l1TTL   time.Duration
	logger  *zap.Logger
}

type MultiLevelOption func(*MultiLevelCache)

func WithLogger(logger *zap.Logger) MultiLevelOption {
	return func(c *MultiLevelCache) { c.logger = logger }
}

func WithCircuitBreaker(cb *CircuitBreaker) MultiLevelOption {
	return func(c *MultiLevelCache) { c.breaker = cb }
}

// WithL1TTL caps how long a value promoted from Redis stays in memory.
func WithL1TTL(ttl time.Duration) MultiLevelOption {
	return func(c *MultiLevelCache) { c.l1TTL = ttl }
}

// NewMultiLevelCache accepts a nil redisCache for a memory-only setup.
func NewMultiLevelCache(redisCache *RedisCache, opts ...MultiLevelOption) *MultiLevelCache {
	c := &MultiLevelCache{
		l1:      NewMemoryCache(),
		l2:      redisCache,
		breaker: NewCircuitBreaker(nil),
		metrics: NewCacheMetrics(),
		l1TTL:   time.Minute,
		logger:  zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *MultiLevelCache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		c.metrics.RecordError()
		return fmt.Errorf("failed to marshal value: %w", err)
	}

	c.l1.Set(key, data, c.l1Expiry(ttl))
	c.metrics.RecordSet()

	if c.l2 != nil {
		c.l2Call("set", key, func() error { return c.l2.Set(ctx, key, json.RawMessage(data), ttl) })
	}
	return nil
}

func (c *MultiLevelCache) Get(ctx context.Context, key string, dest interface{}) error {
	if data, ok := c.l1.Get(key); ok {
		c.metrics.RecordHit()
		return json.Unmarshal(data, dest)
	}

	if c.l2 == nil {
		c.metrics.RecordMiss()
		return ErrCacheMiss
	}

	var raw json.RawMessage
	err := c.breaker.Execute(func() error {
		err := c.l2.Get(ctx, key, &raw)
		if errors.Is(err, ErrCacheMiss) {
			// a miss is a healthy answer
			return nil
		}
		return err
	})
	if err != nil {
		c.metrics.RecordError()
		c.logger.Warn("redis get failed", zap.String("key", key), zap.Error(err))
		c.metrics.RecordMiss()
		return ErrCacheMiss
	}
	if raw == nil {
		c.metrics.RecordMiss()
		return ErrCacheMiss
	}

	if err := json.Unmarshal(raw, dest); err != nil {
		c.metrics.RecordError()
		return fmt.Errorf("failed to unmarshal cached data: %w", err)
	}
	c.l1.Set(key, raw, c.l1TTL)
	c.metrics.RecordHit()
	return nil
}

func (c *MultiLevelCache) Delete(ctx context.Context, key string) error {
	c.l1.Delete(key)
	c.metrics.RecordDelete()

	if c.l2 != nil {
		c.l2Call("delete", key, func() error { return c.l2.Delete(ctx, key) })
	}
	return nil
}

func (c *MultiLevelCache) DeletePattern(ctx context.Context, pattern string) error {
	c.l1.DeletePattern(pattern)
	c.metrics.RecordDelete()

	if c.l2 != nil {
		c.l2Call("delete pattern", pattern, func() error { return c.l2.DeletePattern(ctx, pattern) })
	}
	return nil
}

func (c *MultiLevelCache) Health(ctx context.Context) error {
	if c.l2 == nil {
		return nil
	}
	if err := c.l2.Health(ctx); err != nil {
		return fmt.Errorf("%w: %v", ErrCacheDown, err)
	}
	return nil
}

func (c *MultiLevelCache) Stats() map[string]interface{} {
	stats := map[string]interface{}{
		"l1":      c.l1.Stats(),
		"metrics": c.metrics.Snapshot(),
		"breaker": c.breaker.GetStats(),
	}
	if c.l2 != nil {
		stats["l2"] = c.l2.Stats()
	}
	return stats
}

func (c *MultiLevelCache) Metrics() MetricsSnapshot {
	return c.metrics.Snapshot()
}

func (c *MultiLevelCache) Close() error {
	if c.l2 != nil {
		return c.l2.Close()
	}
	return nil
}

func (c *MultiLevelCache) l1Expiry(ttl time.Duration) time.Duration {
	if ttl <= 0 || ttl > c.l1TTL {
		return c.l1TTL
	}
	return ttl
}

// l2Call runs a Redis write behind the breaker. Failures are counted and
// logged; L1 already holds the authoritative state for this process.
func (c *MultiLevelCache) l2Call(op, key string, fn func() error) {
	if err := c.breaker.Execute(fn); err != nil {
		c.metrics.RecordError()
		c.logger.Warn("redis "+op+" failed", zap.String("key", key), zap.Error(err))
	}
}

var _ Cache = (*MultiLevelCache)(nil)
