package repository

import (
	"context"
	"fmt"
	"time"

	"geodirectory-sync/internal/cache"
	"geodirectory-sync/internal/domain"

	"github.com/go-kivik/kivik/v4"
)

// cacheDoc is one cached geo-directory entry, stored under its cache key.
type cacheDoc struct {
	Rev       string        `json:"_rev,omitempty"`
	Entry     *domain.Entry `json:"entry"`
	ExpiresAt time.Time     `json:"expires_at"`
}

type entryCacheRepository struct {
	client *kivik.Client
	dbName string
	now    func() time.Time
}

// NewEntryCacheRepository returns an entry cache kept in a CouchDB database,
// shared by every process pointing at it.
func NewEntryCacheRepository(client *kivik.Client, dbName string) cache.EntryCache {
	return &entryCacheRepository{
		client: client,
		dbName: dbName,
		now:    time.Now,
	}
}

func (r *entryCacheRepository) Get(ctx context.Context, key string) (*domain.Entry, bool) {
	db := r.client.DB(r.dbName)

	var doc cacheDoc
	if err := db.Get(ctx, key).ScanDoc(&doc); err != nil {
		return nil, false
	}
	if doc.Entry == nil || !r.now().Before(doc.ExpiresAt) {
		return nil, false
	}

	return doc.Entry, true
}

func (r *entryCacheRepository) Set(ctx context.Context, key string, entry *domain.Entry, ttl time.Duration) error {
	db := r.client.DB(r.dbName)

	rev, err := db.GetRev(ctx, key)
	if err != nil && !isNotFound(err) {
		return fmt.Errorf("failed to fetch cache entry revision: %w", err)
	}

	doc := &cacheDoc{
		Rev:       rev,
		Entry:     entry,
		ExpiresAt: r.now().Add(ttl),
	}
	if _, err := db.Put(ctx, key, doc); err != nil {
		return fmt.Errorf("failed to store cache entry: %w", err)
	}

	return nil
}
