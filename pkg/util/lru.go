package util

import (
	"container/list"
	"fmt"
	"sync"
	"time"
)

// entry carries the data stored in a list node.
type entry[K comparable, V any] struct {
	key        K
	value      V
	expiration time.Time
}

// LRUCache is a generic, thread-safe cache with least-recently-used
// eviction and an optional TTL.
type LRUCache[K comparable, V any] struct {
	capacity int
	ttl      time.Duration
	ll       *list.List
	cache    map[K]*list.Element
	mu       sync.Mutex
}

// NewLRU creates a cache holding at most capacity entries. ttl zero
// means entries never expire.
func NewLRU[K comparable, V any](capacity int, ttl time.Duration) (*LRUCache[K, V], error) {
	if capacity <= 0 {
		return nil, fmt.Errorf("lru capacity must be positive, got %d", capacity)
	}
	return &LRUCache[K, V]{
		capacity: capacity,
		ttl:      ttl,
		ll:       list.New(),
		cache:    make(map[K]*list.Element),
	}, nil
}

// Get returns the value for key and marks it recently used. Expired
// entries are evicted on access.
func (c *LRUCache[K, V]) Get(key K) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var zero V
	element, ok := c.cache[key]
	if !ok {
		return zero, false
	}
	e := element.Value.(*entry[K, V])
	if c.ttl > 0 && time.Now().After(e.expiration) {
		c.removeElement(element)
		return zero, false
	}
	c.ll.MoveToFront(element)
	return e.value, true
}

// Put adds or refreshes a key, evicting the least recently used entry
// when the cache is full.
func (c *LRUCache[K, V]) Put(key K, value V) {
	c.mu.Lock()
	defer c.mu.Unlock()

	expiration := time.Time{}
	if c.ttl > 0 {
		expiration = time.Now().Add(c.ttl)
	}

	if element, ok := c.cache[key]; ok {
		e := element.Value.(*entry[K, V])
		e.value = value
		e.expiration = expiration
		c.ll.MoveToFront(element)
		return
	}

	element := c.ll.PushFront(&entry[K, V]{key: key, value: value, expiration: expiration})
	c.cache[key] = element

	if c.ll.Len() > c.capacity {
		if back := c.ll.Back(); back != nil {
			c.removeElement(back)
		}
	}
}

// Len reports the number of cached entries.
func (c *LRUCache[K, V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ll.Len()
}

// removeElement is called with the lock held.
func (c *LRUCache[K, V]) removeElement(element *list.Element) {
	c.ll.Remove(element)
	delete(c.cache, element.Value.(*entry[K, V]).key)
}
