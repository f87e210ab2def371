// Package cache keeps recently synchronized geo-directory entries so that
// reads following a push or a pull do not hit the remote service again.
//
// Entries are keyed by remote id, overwritten on every successful push or
// fetch and only ever dropped by TTL expiry.
package cache

import (
	"context"
	"time"

	"geodirectory-sync/internal/domain"

	"github.com/jellydator/ttlcache/v3"
)

// EntryTTL is how long a fetched or pushed entry is served from cache.
const EntryTTL = time.Hour

const keyPrefix = "geodirectory-"

// Key returns the cache key of the entry with the given remote id.
func Key(remoteID string) string {
	return keyPrefix + remoteID
}

type EntryCache interface {
	Get(ctx context.Context, key string) (*domain.Entry, bool)
	Set(ctx context.Context, key string, entry *domain.Entry, ttl time.Duration) error
}

// MemoryCache is a process-local EntryCache. Expired entries are evicted by
// a background loop, which Close stops.
type MemoryCache struct {
	items *ttlcache.Cache[string, *domain.Entry]
}

func NewMemoryCache() *MemoryCache {
	items := ttlcache.New[string, *domain.Entry](
		// A hit must not extend the lifetime of an entry.
		ttlcache.WithDisableTouchOnHit[string, *domain.Entry](),
	)
	go items.Start()

	return &MemoryCache{items: items}
}

func (c *MemoryCache) Get(ctx context.Context, key string) (*domain.Entry, bool) {
	it := c.items.Get(key)
	if it == nil {
		return nil, false
	}
	return it.Value(), true
}

func (c *MemoryCache) Set(ctx context.Context, key string, entry *domain.Entry, ttl time.Duration) error {
	c.items.Set(key, entry, ttl)
	return nil
}

func (c *MemoryCache) Close() {
	c.items.Stop()
}
