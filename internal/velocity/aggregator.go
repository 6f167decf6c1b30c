// Package velocity derives per-customer and per-IP activity snapshots from
// persisted transactions, fronted by the cache tier so hot-path lookups stay
// cheap.
package velocity

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/sony/gobreaker"

	"github.com/dygsom/fraudscore/internal/cache"
	"github.com/dygsom/fraudscore/internal/domain"
	"github.com/dygsom/fraudscore/internal/persistence"
)

// Aggregator produces velocity snapshots. It only ever reads transactions;
// snapshots are derived state and never authoritative.
type Aggregator struct {
	cache        *cache.TwoTier
	repo         persistence.TransactionRepo
	breaker      *gobreaker.CircuitBreaker
	ttl          time.Duration
	queryTimeout time.Duration
}

// New builds an Aggregator. queryTimeout bounds each velocity sub-query;
// the circuit breaker sheds load from a degraded database, answering with an
// empty snapshot until it recovers.
func New(c *cache.TwoTier, repo persistence.TransactionRepo, ttl, queryTimeout time.Duration) *Aggregator {
	settings := gobreaker.Settings{Name: "velocity-db"}
	settings.Interval = 60 * time.Second
	settings.Timeout = 30 * time.Second
	settings.ReadyToTrip = func(counts gobreaker.Counts) bool {
		return counts.ConsecutiveFailures >= 5
	}

	return &Aggregator{
		cache:        c,
		repo:         repo,
		breaker:      gobreaker.NewCircuitBreaker(settings),
		ttl:          ttl,
		queryTimeout: queryTimeout,
	}
}

// Snapshot returns the velocity snapshot for a customer/IP pair. Lookup
// order is cache then persistence; a computed snapshot is written back with
// the configured TTL. Concurrent misses for the same key may each compute
// and write; last-write-wins is fine because the computation is
// deterministic up to monotonically growing input. A degraded database
// yields an empty snapshot rather than an error.
func (a *Aggregator) Snapshot(ctx context.Context, email, ip string) domain.VelocitySnapshot {
	now := time.Now()
	key := cache.VelocityKey(email, now)

	if data, ok := a.cache.Get(ctx, key); ok {
		var snap domain.VelocitySnapshot
		if err := json.Unmarshal(data, &snap); err == nil {
			return snap
		}
		log.Warn().Str("key", key).Msg("discarding undecodable cached velocity snapshot")
	}

	result, err := a.breaker.Execute(func() (any, error) {
		return a.compute(ctx, email, ip, now)
	})
	if err != nil {
		log.Warn().Err(err).Str("customer_email", email).
			Msg("velocity computation degraded, using empty snapshot")
		return domain.VelocitySnapshot{}
	}

	snap := result.(domain.VelocitySnapshot)
	if data, err := json.Marshal(snap); err == nil {
		a.cache.Set(ctx, key, data, a.ttl)
	}
	return snap
}

// compute fans out the four velocity sub-queries in parallel and combines
// their results. Sub-query failures zero their fields; only a failure of
// every query trips the breaker.
func (a *Aggregator) compute(ctx context.Context, email, ip string, now time.Time) (domain.VelocitySnapshot, error) {
	var (
		snap domain.VelocitySnapshot
		wg   sync.WaitGroup
		mu   sync.Mutex
		errs int
	)

	oneHourAgo := now.Add(-time.Hour)
	dayAgo := now.Add(-24 * time.Hour)

	run := func(fn func(ctx context.Context) error) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			qctx, cancel := context.WithTimeout(ctx, a.queryTimeout)
			defer cancel()
			if err := fn(qctx); err != nil {
				log.Warn().Err(err).Str("customer_email", email).Msg("velocity sub-query failed")
				mu.Lock()
				errs++
				mu.Unlock()
			}
		}()
	}

	run(func(ctx context.Context) error {
		count, err := a.repo.CustomerTxCount(ctx, email, oneHourAgo)
		if err != nil {
			return err
		}
		mu.Lock()
		snap.CustomerTxCount1h = count
		mu.Unlock()
		return nil
	})

	run(func(ctx context.Context) error {
		count, err := a.repo.CustomerTxCount(ctx, email, dayAgo)
		if err != nil {
			return err
		}
		mu.Lock()
		snap.CustomerTxCount24h = count
		mu.Unlock()
		return nil
	})

	run(func(ctx context.Context) error {
		sum, err := a.repo.CustomerAmountSum(ctx, email, dayAgo)
		if err != nil {
			return err
		}
		amount, _ := sum.Float64()
		mu.Lock()
		snap.CustomerAmount24h = amount
		mu.Unlock()
		return nil
	})

	run(func(ctx context.Context) error {
		events, err := a.repo.IPTxHistory(ctx, ip, dayAgo)
		if err != nil {
			return err
		}
		within1h := 0
		for _, ev := range events {
			if ev.Timestamp.After(oneHourAgo) {
				within1h++
			}
		}
		mu.Lock()
		snap.IPTxCount1h = within1h
		snap.IPTxCount24h = len(events)
		mu.Unlock()
		return nil
	})

	wg.Wait()

	if errs == 4 {
		return snap, errAllQueriesFailed
	}
	return snap, nil
}

var errAllQueriesFailed = errors.New("all velocity sub-queries failed")
