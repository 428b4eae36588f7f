package http

import (
	"container/list"
	"sync"
	"time"
)

type cacheEntry[T any] struct {
	key       string
	value     T
	expiresAt time.Time
}

// lruCache is a small TTL-bounded LRU used for rendered fragments and
// aggregate queries. Eviction happens on insert when capacity is reached.
type lruCache[T any] struct {
	mu       sync.Mutex
	capacity int
	ttl      time.Duration
	entries  map[string]*list.Element
	order    *list.List
}

func newLRUCache[T any](capacity int, ttl time.Duration) *lruCache[T] {
	return &lruCache[T]{
		capacity: capacity,
		ttl:      ttl,
		entries:  make(map[string]*list.Element),
		order:    list.New(),
	}
}

func (c *lruCache[T]) get(key string) (T, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var zero T
	el, ok := c.entries[key]
	if !ok {
		return zero, false
	}
	entry := el.Value.(*cacheEntry[T])
	if time.Now().After(entry.expiresAt) {
		c.order.Remove(el)
		delete(c.entries, key)
		return zero, false
	}
	c.order.MoveToFront(el)
	return entry.value, true
}

func (c *lruCache[T]) set(key string, value T) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if el, ok := c.entries[key]; ok {
		entry := el.Value.(*cacheEntry[T])
		entry.value = value
		entry.expiresAt = time.Now().Add(c.ttl)
		c.order.MoveToFront(el)
		return
	}
	if c.order.Len() >= c.capacity {
		oldest := c.order.Back()
		if oldest != nil {
			c.order.Remove(oldest)
			delete(c.entries, oldest.Value.(*cacheEntry[T]).key)
		}
	}
	entry := &cacheEntry[T]{key: key, value: value, expiresAt: time.Now().Add(c.ttl)}
	c.entries[key] = c.order.PushFront(entry)
}

func (c *lruCache[T]) invalidateAll() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]*list.Element)
	c.order.Init()
}
