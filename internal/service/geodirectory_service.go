package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"slices"
	"time"

	"geodirectory-sync/internal/cache"
	"geodirectory-sync/internal/config"
	"geodirectory-sync/internal/domain"
	"geodirectory-sync/internal/geodirectory"
	"geodirectory-sync/internal/metrics"
	"geodirectory-sync/internal/registry"
	"geodirectory-sync/pkg/tags"
)

const (
	opGetEntry    = "get_entry"
	opCreateEntry = "create_entry"
	opUpdateEntry = "update_entry"
	opDeleteEntry = "delete_entry"
	opClosest     = "closest"
)

// SaveOptions controls the push performed when a record is persisted.
type SaveOptions struct {
	// SkipSync stores the record locally without pushing it.
	SkipSync bool
}

type PullOptions struct {
	// BypassCache always fetches from the geo-directory.
	BypassCache bool
}

// Match is the result of resolving a geo-directory entry. Entity is set when
// the entry belongs to a known local record; Entry always holds the entry as
// received.
type Match struct {
	Entity domain.GeoEntity
	Entry  *domain.Entry
}

func (m *Match) Resolved() bool {
	return m.Entity != nil
}

// GeoDirectoryService mirrors local records into the geo-directory.
//
// Pushes happen when a record is saved and are best effort: a failed push is
// logged and the local save goes on. Pulls read through the entry cache and
// report failures to the caller. Deletes are best effort as well.
type GeoDirectoryService struct {
	client   geodirectory.Client
	cache    cache.EntryCache
	registry *registry.Registry
	metrics  *metrics.SyncMetrics
	enabled  bool
	logger   *log.Logger
	now      func() time.Time
}

// NewGeoDirectoryService wires the sync service. m may be nil; a nil logger
// writes to stderr.
func NewGeoDirectoryService(
	cfg config.GeoDirectoryConfig,
	client geodirectory.Client,
	entryCache cache.EntryCache,
	reg *registry.Registry,
	m *metrics.SyncMetrics,
	logger *log.Logger,
) *GeoDirectoryService {
	if logger == nil {
		logger = log.New(os.Stderr, "[geodirectory] ", log.LstdFlags)
	}
	return &GeoDirectoryService{
		client:   client,
		cache:    entryCache,
		registry: reg,
		metrics:  m,
		enabled:  cfg.Enabled,
		logger:   logger,
		now:      time.Now,
	}
}

func (s *GeoDirectoryService) Enabled() bool {
	return s.enabled
}

// ShouldPush reports whether saving e with opts pushes it.
func (s *GeoDirectoryService) ShouldPush(e domain.GeoEntity, opts SaveOptions) bool {
	return s.enabled && !opts.SkipSync && !e.GetGeometry().IsNull()
}

// SyncOnSave is called right before e is persisted. Push failures are logged
// and swallowed so that the local write still happens.
func (s *GeoDirectoryService) SyncOnSave(ctx context.Context, e domain.GeoEntity, opts SaveOptions) {
	if !s.ShouldPush(e, opts) {
		return
	}

	if err := s.Push(ctx, e); err != nil {
		s.logger.Printf("WARNING: Failed to push %s (remote_id=%q), saving locally only: %v",
			e.TypeTag(), e.GetRemoteID(), err)
	}
}

// Push creates or updates the remote entry of e and reconciles e with the
// response. The normalized tags are set on e before the remote call.
func (s *GeoDirectoryService) Push(ctx context.Context, e domain.GeoEntity) error {
	if !s.enabled || e.GetGeometry().IsNull() {
		return nil
	}

	normalized := tags.Normalize(e.GetTags(), e.TypeTag())
	e.SetTags(normalized)

	remoteID := e.GetRemoteID()
	op := opUpdateEntry
	if remoteID == "" {
		op = opCreateEntry
	}

	start := time.Now()
	var entry *domain.Entry
	var err error
	if remoteID == "" {
		entry, err = s.client.CreateEntry(ctx, e.GetGeometry(), normalized)
	} else {
		entry, err = s.client.UpdateEntry(ctx, remoteID, e.GetGeometry(), normalized)
	}
	if err == nil && (entry == nil || entry.ID == "") {
		err = &geodirectory.TransportError{Op: op, Err: errors.New("response carries no entry id")}
	}
	s.metrics.ObserveRemote(op, start, err)
	if err != nil {
		return fmt.Errorf("failed to push %s: %w", e.TypeTag(), err)
	}

	s.reconcile(ctx, e, entry)
	s.logger.Printf("Pushed %s remote_id=%s (%s)", e.TypeTag(), entry.ID, op)
	return nil
}

// Pull refreshes e from its remote entry, from cache unless opts says
// otherwise. It is a no-op for records without a remote id.
func (s *GeoDirectoryService) Pull(ctx context.Context, e domain.GeoEntity, opts PullOptions) error {
	remoteID := e.GetRemoteID()
	if !s.enabled || remoteID == "" {
		return nil
	}

	if !opts.BypassCache {
		entry, ok := s.cache.Get(ctx, cache.Key(remoteID))
		s.metrics.ObserveCache(ok)
		if ok {
			apply(e, entry)
			return nil
		}
	}

	start := time.Now()
	entry, err := s.client.GetEntry(ctx, remoteID)
	if err == nil && entry == nil {
		err = &geodirectory.TransportError{Op: opGetEntry, Err: errors.New("empty response")}
	}
	s.metrics.ObserveRemote(opGetEntry, start, err)
	if err != nil {
		return fmt.Errorf("failed to pull %s %s: %w", e.TypeTag(), remoteID, err)
	}
	if entry.ID == "" {
		entry.ID = remoteID
	}

	s.reconcile(ctx, e, entry)
	return nil
}

// EnsureLoaded pulls e when it is linked to a remote entry but its geometry
// or tags have not been loaded yet.
func (s *GeoDirectoryService) EnsureLoaded(ctx context.Context, e domain.GeoEntity) error {
	if e.GetRemoteID() == "" {
		return nil
	}
	if !e.GetGeometry().IsNull() && e.GetTags() != nil {
		return nil
	}
	return s.Pull(ctx, e, PullOptions{})
}

// DeleteRemote deletes the remote entry of e ahead of a local delete. A
// failure is logged and the entry is left behind.
func (s *GeoDirectoryService) DeleteRemote(ctx context.Context, e domain.GeoEntity) {
	remoteID := e.GetRemoteID()
	if !s.enabled || remoteID == "" {
		return
	}

	if err := s.deleteEntry(ctx, remoteID); err != nil {
		s.logger.Printf("WARNING: Failed to delete %s remote entry %s, it may be orphaned: %v",
			e.TypeTag(), remoteID, err)
		return
	}

	s.logger.Printf("Deleted %s remote entry %s", e.TypeTag(), remoteID)
}

// Detach deletes the remote entry of e and clears its remote id. The caller
// persists e without pushing it, otherwise the entry would be created again.
func (s *GeoDirectoryService) Detach(ctx context.Context, e domain.GeoEntity) error {
	remoteID := e.GetRemoteID()
	if remoteID == "" {
		return ErrNotLinked
	}
	if !s.enabled {
		return ErrSyncDisabled
	}

	if err := s.deleteEntry(ctx, remoteID); err != nil {
		return fmt.Errorf("failed to detach %s %s: %w", e.TypeTag(), remoteID, err)
	}

	e.SetRemoteID("")
	s.logger.Printf("Detached %s from remote entry %s", e.TypeTag(), remoteID)
	return nil
}

// Closest asks the geo-directory for the entry nearest to e, optionally
// restricted to entries carrying filter tags, and resolves it.
func (s *GeoDirectoryService) Closest(ctx context.Context, e domain.GeoEntity, filter []string) (*Match, error) {
	if !s.enabled {
		return nil, ErrSyncDisabled
	}
	remoteID := e.GetRemoteID()
	if remoteID == "" {
		return nil, ErrNotLinked
	}

	start := time.Now()
	entry, err := s.client.Closest(ctx, remoteID, filter)
	if err == nil && entry == nil {
		err = &geodirectory.TransportError{Op: opClosest, Err: errors.New("empty response")}
	}
	s.metrics.ObserveRemote(opClosest, start, err)
	if err != nil {
		return nil, fmt.Errorf("failed to find closest entry to %s: %w", remoteID, err)
	}

	return s.Resolve(ctx, entry)
}

// Resolve maps entry back to the local record owning it, using the type tag
// in first position. Entries that cannot be traced to a local record (no
// tags, unqualified or unknown type tag, no matching record) come back
// unresolved without error.
//
// TODO: unknown type tags are dropped silently; decide with product whether
// they should be reported.
func (s *GeoDirectoryService) Resolve(ctx context.Context, entry *domain.Entry) (*Match, error) {
	match := &Match{Entry: entry}

	typeTag := tags.TypeTag(entry.Tags())
	if !tags.IsQualified(typeTag) {
		return match, nil
	}

	finder, err := s.registry.Lookup(typeTag)
	if err != nil {
		return match, nil
	}

	entity, err := finder.FindByRemoteID(ctx, entry.ID)
	if errors.Is(err, domain.ErrNotFound) {
		return match, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to resolve %s %s: %w", typeTag, entry.ID, err)
	}
	if entity == nil {
		return match, nil
	}

	match.Entity = entity
	return match, nil
}

func (s *GeoDirectoryService) deleteEntry(ctx context.Context, remoteID string) error {
	start := time.Now()
	err := s.client.DeleteEntry(ctx, remoteID)
	s.metrics.ObserveRemote(opDeleteEntry, start, err)
	return err
}

// reconcile makes e match entry, the authoritative state after a successful
// remote call, and caches entry.
func (s *GeoDirectoryService) reconcile(ctx context.Context, e domain.GeoEntity, entry *domain.Entry) {
	e.SetRemoteID(entry.ID)
	e.SetLastSyncTime(s.now())
	apply(e, entry)

	if err := s.cache.Set(ctx, cache.Key(entry.ID), entry, cache.EntryTTL); err != nil {
		s.logger.Printf("WARNING: Failed to cache entry %s: %v", entry.ID, err)
	}
}

func apply(e domain.GeoEntity, entry *domain.Entry) {
	e.SetGeometry(entry.Geometry.Clone())

	entryTags := slices.Clone(entry.Tags())
	if entryTags == nil {
		entryTags = []string{}
	}
	e.SetTags(entryTags)
}
