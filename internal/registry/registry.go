// Package registry maps type tags to the stores able to find local records by
// remote id. It backs the reverse lookup from a geo-directory entry to the
// local record owning it.
package registry

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"geodirectory-sync/internal/domain"
)

// ErrUnknownType is returned when no Finder is registered for a type tag.
var ErrUnknownType = errors.New("unknown type tag")

// ResolutionError reports a type tag that could not be mapped to a local type.
type ResolutionError struct {
	TypeTag string
}

func (e *ResolutionError) Error() string {
	return fmt.Sprintf("registry: %s: %v", e.TypeTag, ErrUnknownType)
}

func (e *ResolutionError) Unwrap() error {
	return ErrUnknownType
}

// Finder looks up the local record of one type by its remote id. It returns
// domain.ErrNotFound when no record matches.
type Finder interface {
	FindByRemoteID(ctx context.Context, remoteID string) (domain.GeoEntity, error)
}

// FinderFunc adapts a function to the Finder interface.
type FinderFunc func(ctx context.Context, remoteID string) (domain.GeoEntity, error)

func (f FinderFunc) FindByRemoteID(ctx context.Context, remoteID string) (domain.GeoEntity, error) {
	return f(ctx, remoteID)
}

type Registry struct {
	mu      sync.RWMutex
	finders map[string]Finder
}

func New() *Registry {
	return &Registry{finders: make(map[string]Finder)}
}

// Register binds typeTag to finder. Registering a nil finder or the same type
// tag twice is a programming error and panics.
func (r *Registry) Register(typeTag string, finder Finder) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if finder == nil {
		panic(fmt.Sprintf("registry: Register finder is nil for %s", typeTag))
	}
	if _, exists := r.finders[typeTag]; exists {
		panic(fmt.Sprintf("registry: Register called twice for %s", typeTag))
	}

	r.finders[typeTag] = finder
}

// Lookup returns the finder bound to typeTag or a *ResolutionError.
func (r *Registry) Lookup(typeTag string) (Finder, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	finder, ok := r.finders[typeTag]
	if !ok {
		return nil, &ResolutionError{TypeTag: typeTag}
	}
	return finder, nil
}

// Types returns the registered type tags in sorted order.
func (r *Registry) Types() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	types := make([]string, 0, len(r.finders))
	for t := range r.finders {
		types = append(types, t)
	}
	sort.Strings(types)
	return types
}
