// Package ratelimit enforces per-key quotas with a sliding-window counter in
// Redis, shared across instances. The limiter is fail-open: a store error
// never blocks a request.
package ratelimit

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"github.com/dygsom/fraudscore/internal/metrics"
)

// Window is the sliding-window size.
const Window = 60 * time.Second

// expiryBuffer keeps keys around slightly past the window so late removals
// still find them.
const expiryBuffer = 10 * time.Second

// Result is the outcome of one limit check.
type Result struct {
	Allowed    bool
	Limit      int
	Remaining  int
	RetryAfter time.Duration
}

// Limiter checks per-API-key request quotas.
type Limiter struct {
	rdb     *redis.Client
	metrics *metrics.Registry
}

// New builds a Limiter over the shared Redis client.
func New(rdb *redis.Client, m *metrics.Registry) *Limiter {
	return &Limiter{rdb: rdb, metrics: m}
}

// Allow checks and, when under the limit, records one request for keyID.
// Entries older than the window are pruned from the sorted set first; if the
// remaining count is under the limit the current timestamp is inserted and
// the key's TTL refreshed.
func (l *Limiter) Allow(ctx context.Context, keyID string, limit int) Result {
	now := time.Now()
	redisKey := fmt.Sprintf("rate_limit:%s", keyID)
	windowStart := now.Add(-Window)

	pipe := l.rdb.TxPipeline()
	pipe.ZRemRangeByScore(ctx, redisKey, "0", strconv.FormatInt(windowStart.UnixMilli(), 10))
	countCmd := pipe.ZCard(ctx, redisKey)
	if _, err := pipe.Exec(ctx); err != nil {
		return l.failOpen(keyID, limit, err)
	}

	count := int(countCmd.Val())
	if count >= limit {
		l.metrics.RateLimitHits.Inc()
		retryAfter := l.retryAfter(ctx, redisKey, now)
		log.Warn().Str("key_id", keyID).Int("count", count).Int("limit", limit).
			Msg("rate limit exceeded")
		return Result{Allowed: false, Limit: limit, Remaining: 0, RetryAfter: retryAfter}
	}

	pipe = l.rdb.TxPipeline()
	pipe.ZAdd(ctx, redisKey, redis.Z{
		Score:  float64(now.UnixMilli()),
		Member: strconv.FormatInt(now.UnixNano(), 10),
	})
	pipe.Expire(ctx, redisKey, Window+expiryBuffer)
	if _, err := pipe.Exec(ctx); err != nil {
		return l.failOpen(keyID, limit, err)
	}

	return Result{Allowed: true, Limit: limit, Remaining: limit - count - 1}
}

// retryAfter derives the wait until the oldest in-window entry expires.
func (l *Limiter) retryAfter(ctx context.Context, redisKey string, now time.Time) time.Duration {
	entries, err := l.rdb.ZRangeWithScores(ctx, redisKey, 0, 0).Result()
	if err != nil || len(entries) == 0 {
		return Window
	}
	oldest := time.UnixMilli(int64(entries[0].Score))
	wait := oldest.Add(Window).Sub(now)
	if wait < time.Second {
		wait = time.Second
	}
	return wait
}

func (l *Limiter) failOpen(keyID string, limit int, err error) Result {
	l.metrics.RateLimitErrors.Inc()
	log.Error().Err(err).Str("key_id", keyID).
		Msg("rate limiter store error, allowing request")
	return Result{Allowed: true, Limit: limit, Remaining: limit}
}
