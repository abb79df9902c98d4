package cache

import (
	"sync"
	"time"
)

type item[V any] struct {
	value     V
	expiresAt int64 // UnixNano, 0 means no expiration
}

func (it item[V]) expired() bool {
	return it.expiresAt != 0 && time.Now().UnixNano() > it.expiresAt
}

// Cache is a thread-safe, generic cache with TTL support. Expired items are
// dropped lazily on access and by an optional janitor goroutine.
type Cache[K comparable, V any] struct {
	mu         sync.RWMutex
	items      map[K]item[V]
	defaultTTL time.Duration
	stopCh     chan struct{}
	stopOnce   sync.Once
}

// Option is a functional option type for Cache configuration.
type Option[K comparable, V any] func(*Cache[K, V])

// WithDefaultTTL sets the default time-to-live for items set without an
// explicit TTL. Zero means items never expire.
func WithDefaultTTL[K comparable, V any](ttl time.Duration) Option[K, V] {
	return func(c *Cache[K, V]) {
		c.defaultTTL = ttl
	}
}

// WithJanitorInterval starts a background janitor that removes expired items
// at the given interval. Without it, expired items are only removed on access.
func WithJanitorInterval[K comparable, V any](interval time.Duration) Option[K, V] {
	return func(c *Cache[K, V]) {
		if interval <= 0 {
			return
		}
		go func() {
			ticker := time.NewTicker(interval)
			defer ticker.Stop()
			for {
				select {
				case <-ticker.C:
					c.DeleteExpired()
				case <-c.stopCh:
					return
				}
			}
		}()
	}
}

// New creates a new Cache instance with optional configurations.
func New[K comparable, V any](opts ...Option[K, V]) *Cache[K, V] {
	c := &Cache[K, V]{
		items:  make(map[K]item[V]),
		stopCh: make(chan struct{}),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Set adds or updates an item with the default TTL.
func (c *Cache[K, V]) Set(k K, v V) {
	c.SetWithTTL(k, v, c.defaultTTL)
}

// SetWithTTL adds or updates an item with a specific TTL. Zero means no
// expiration.
func (c *Cache[K, V]) SetWithTTL(k K, v V, ttl time.Duration) {
	var expiresAt int64
	if ttl > 0 {
		expiresAt = time.Now().Add(ttl).UnixNano()
	}
	c.mu.Lock()
	c.items[k] = item[V]{value: v, expiresAt: expiresAt}
	c.mu.Unlock()
}

// Get retrieves an item. It returns the zero value and false if the item is
// missing or expired.
func (c *Cache[K, V]) Get(k K) (V, bool) {
	c.mu.RLock()
	it, ok := c.items[k]
	c.mu.RUnlock()
	if !ok {
		var zero V
		return zero, false
	}
	if it.expired() {
		c.Delete(k)
		var zero V
		return zero, false
	}
	return it.value, true
}

// GetOrSet returns the existing value for the key if present and not expired.
// Otherwise it stores and returns the given value with the default TTL. The
// second result is true if the value was loaded rather than stored.
func (c *Cache[K, V]) GetOrSet(k K, v V) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if it, ok := c.items[k]; ok && !it.expired() {
		return it.value, true
	}
	var expiresAt int64
	if c.defaultTTL > 0 {
		expiresAt = time.Now().Add(c.defaultTTL).UnixNano()
	}
	c.items[k] = item[V]{value: v, expiresAt: expiresAt}
	return v, false
}

// Delete removes an item from the cache.
func (c *Cache[K, V]) Delete(k K) {
	c.mu.Lock()
	delete(c.items, k)
	c.mu.Unlock()
}

// DeleteExpired removes all expired items.
func (c *Cache[K, V]) DeleteExpired() {
	c.mu.Lock()
	for k, it := range c.items {
		if it.expired() {
			delete(c.items, k)
		}
	}
	c.mu.Unlock()
}

// Len returns the number of items currently stored, including any expired
// items not yet collected.
func (c *Cache[K, V]) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.items)
}

// Close stops the janitor goroutine, if one was started.
func (c *Cache[K, V]) Close() {
	c.stopOnce.Do(func() { close(c.stopCh) })
}
