package ratelimit

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// IPLimiter is a local per-client-IP token bucket applied before the shared
// per-key limiter. It shields the Redis limiter and the auth gate from a
// single chatty source without any network round trip.
type IPLimiter struct {
	mu        sync.Mutex
	buckets   map[string]*ipBucket
	perMinute int
}

type ipBucket struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// staleAfter is how long an idle bucket survives before cleanup.
const staleAfter = 10 * time.Minute

// NewIPLimiter builds a limiter allowing perMinute requests per source IP,
// with burst capacity equal to the per-minute allowance.
func NewIPLimiter(perMinute int) *IPLimiter {
	return &IPLimiter{
		buckets:   make(map[string]*ipBucket),
		perMinute: perMinute,
	}
}

// Allow reports whether a request from ip may proceed.
func (l *IPLimiter) Allow(ip string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	b, ok := l.buckets[ip]
	if !ok {
		b = &ipBucket{
			limiter: rate.NewLimiter(rate.Limit(float64(l.perMinute)/60.0), l.perMinute),
		}
		l.buckets[ip] = b
	}
	b.lastSeen = time.Now()

	if len(l.buckets) > 10_000 {
		l.evictStale()
	}

	return b.limiter.Allow()
}

// evictStale drops buckets idle past staleAfter. Caller holds the lock.
func (l *IPLimiter) evictStale() {
	cutoff := time.Now().Add(-staleAfter)
	for ip, b := range l.buckets {
		if b.lastSeen.Before(cutoff) {
			delete(l.buckets, ip)
		}
	}
}
