package auth

import (
	"sync"
	"time"

	"github.com/dygsom/fraudscore/internal/domain"
)

// keyCache is a bounded in-process map from key hash to resolved record.
// The short TTL bounds how long a deactivated key keeps authenticating.
type keyCache struct {
	mu      sync.Mutex
	entries map[string]keyCacheEntry
	maxSize int
	ttl     time.Duration
}

type keyCacheEntry struct {
	key     *domain.APIKey
	expires time.Time
}

func newKeyCache(maxSize int, ttl time.Duration) *keyCache {
	return &keyCache{
		entries: make(map[string]keyCacheEntry, maxSize),
		maxSize: maxSize,
		ttl:     ttl,
	}
}

func (c *keyCache) get(hash string, now time.Time) (*domain.APIKey, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.entries[hash]
	if !ok {
		return nil, false
	}
	if now.After(entry.expires) {
		delete(c.entries, hash)
		return nil, false
	}
	return entry.key, true
}

func (c *keyCache) set(hash string, key *domain.APIKey, now time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()

	// Evict expired entries first; if still full, drop an arbitrary one.
	// The TTL is seconds, so the map never grows meaningfully stale.
	if len(c.entries) >= c.maxSize {
		for h, e := range c.entries {
			if now.After(e.expires) {
				delete(c.entries, h)
			}
		}
		if len(c.entries) >= c.maxSize {
			for h := range c.entries {
				delete(c.entries, h)
				break
			}
		}
	}

	c.entries[hash] = keyCacheEntry{key: key, expires: now.Add(c.ttl)}
}
