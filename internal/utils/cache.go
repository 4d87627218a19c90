package utils

import (
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
)

type cacheItem[V any] struct {
	value     V
	expiresAt time.Time
}

// TTLCache 带过期时间的本地 LRU 缓存
type TTLCache[K comparable, V any] struct {
	lruCache *lru.Cache[K, cacheItem[V]]
	ttl      time.Duration
}

// NewTTLCache creates a cache holding at most size entries, each valid for ttl.
func NewTTLCache[K comparable, V any](size int, ttl time.Duration) (*TTLCache[K, V], error) {
	l, err := lru.New[K, cacheItem[V]](size)
	if err != nil {
		return nil, err
	}
	return &TTLCache[K, V]{lruCache: l, ttl: ttl}, nil
}

func (c *TTLCache[K, V]) Set(key K, value V) {
	c.lruCache.Add(key, cacheItem[V]{
		value:     value,
		expiresAt: time.Now().Add(c.ttl),
	})
}

// Get returns the cached value, or false if missing or expired.
func (c *TTLCache[K, V]) Get(key K) (V, bool) {
	var zero V
	item, ok := c.lruCache.Get(key)
	if !ok {
		return zero, false
	}
	if time.Now().After(item.expiresAt) {
		c.lruCache.Remove(key)
		return zero, false
	}
	return item.value, true
}
