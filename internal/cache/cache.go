// Package cache implements the two-level cache tier: an in-process bounded
// LRU in front of a shared Redis store with per-entry TTLs. Values are opaque
// JSON-encoded bytes owned by the callers.
package cache

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"github.com/dygsom/fraudscore/internal/metrics"
)

// redisOpTimeout bounds every L2 round trip so cache trouble cannot consume
// the request deadline.
const redisOpTimeout = 500 * time.Millisecond

// TwoTier is the L1+L2 cache. Redis errors are downgraded to misses; the
// cache never fails a request.
type TwoTier struct {
	l1      *l1Cache
	rdb     *redis.Client
	metrics *metrics.Registry
}

// New builds a TwoTier cache over the given Redis client. l1MaxSize bounds
// the in-process layer by entry count.
func New(rdb *redis.Client, l1MaxSize int, m *metrics.Registry) *TwoTier {
	return &TwoTier{
		l1:      newL1Cache(l1MaxSize),
		rdb:     rdb,
		metrics: m,
	}
}

// Get consults L1, then L2. An L2 hit back-fills L1 with the remaining TTL.
func (c *TwoTier) Get(ctx context.Context, key string) ([]byte, bool) {
	now := time.Now()

	if val, ok := c.l1.get(key, now); ok {
		c.metrics.RecordCacheHit("l1")
		return val, true
	}
	c.metrics.RecordCacheMiss("l1")

	ctx, cancel := context.WithTimeout(ctx, redisOpTimeout)
	defer cancel()

	pipe := c.rdb.Pipeline()
	getCmd := pipe.Get(ctx, key)
	ttlCmd := pipe.TTL(ctx, key)
	if _, err := pipe.Exec(ctx); err != nil {
		if !errors.Is(err, redis.Nil) {
			log.Warn().Err(err).Str("key", key).Msg("cache L2 read failed, treating as miss")
		}
		c.metrics.RecordCacheMiss("l2")
		return nil, false
	}

	val, err := getCmd.Bytes()
	if err != nil {
		c.metrics.RecordCacheMiss("l2")
		return nil, false
	}

	if ttl := ttlCmd.Val(); ttl > 0 {
		c.l1.set(key, val, ttl, now)
	}
	c.metrics.RecordCacheHit("l2")
	return val, true
}

// Set writes to both layers with the given TTL. L2 failures are logged and
// swallowed; L1 keeps serving until the entry's bucket rolls over.
func (c *TwoTier) Set(ctx context.Context, key string, value []byte, ttl time.Duration) {
	now := time.Now()
	c.l1.set(key, value, ttl, now)

	ctx, cancel := context.WithTimeout(ctx, redisOpTimeout)
	defer cancel()

	if err := c.rdb.Set(ctx, key, value, ttl).Err(); err != nil {
		log.Warn().Err(err).Str("key", key).Msg("cache L2 write failed")
	}
}

// L1Len reports the current number of in-process entries.
func (c *TwoTier) L1Len() int {
	return c.l1.len()
}

// Ping verifies L2 connectivity, used by the readiness probe.
func (c *TwoTier) Ping(ctx context.Context) error {
	return c.rdb.Ping(ctx).Err()
}
