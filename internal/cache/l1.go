package cache

import (
	"container/list"
	"sync"
	"time"
)

// l1Cache is the in-process layer: a bounded map with insertion-order
// eviction. Oldest-first eviction is acceptable because L2 remains
// authoritative for anything L1 drops early.
type l1Cache struct {
	mu      sync.Mutex
	entries map[string]*list.Element
	order   *list.List
	maxSize int
}

type l1Entry struct {
	key     string
	value   []byte
	expires time.Time
}

func newL1Cache(maxSize int) *l1Cache {
	return &l1Cache{
		entries: make(map[string]*list.Element, maxSize),
		order:   list.New(),
		maxSize: maxSize,
	}
}

func (c *l1Cache) get(key string, now time.Time) ([]byte, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	el, ok := c.entries[key]
	if !ok {
		return nil, false
	}
	entry := el.Value.(*l1Entry)
	if now.After(entry.expires) {
		c.order.Remove(el)
		delete(c.entries, key)
		return nil, false
	}
	return entry.value, true
}

func (c *l1Cache) set(key string, value []byte, ttl time.Duration, now time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if el, ok := c.entries[key]; ok {
		entry := el.Value.(*l1Entry)
		entry.value = value
		entry.expires = now.Add(ttl)
		return
	}

	if c.order.Len() >= c.maxSize {
		oldest := c.order.Front()
		if oldest != nil {
			c.order.Remove(oldest)
			delete(c.entries, oldest.Value.(*l1Entry).key)
		}
	}

	c.entries[key] = c.order.PushBack(&l1Entry{key: key, value: value, expires: now.Add(ttl)})
}

func (c *l1Cache) len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.order.Len()
}
