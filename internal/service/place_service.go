package service

import (
	"context"
	"errors"
	"time"

	"geodirectory-sync/internal/domain"
	"geodirectory-sync/internal/repository"

	"github.com/google/uuid"
)

type PlaceService struct {
	repo repository.PlaceRepository
	geo  *GeoDirectoryService
}

func NewPlaceService(repo repository.PlaceRepository, geo *GeoDirectoryService) *PlaceService {
	return &PlaceService{
		repo: repo,
		geo:  geo,
	}
}

func (s *PlaceService) Create(ctx context.Context, req *domain.CreatePlaceRequest) (*domain.PlaceResponse, error) {
	if req.RemoteID != "" {
		_, err := s.repo.FindByRemoteID(ctx, req.RemoteID)
		if err == nil {
			return nil, ErrRemoteIDInUse
		}
		if !errors.Is(err, domain.ErrNotFound) {
			return nil, err
		}
	}

	now := time.Now()
	place := &domain.Place{
		ID:        uuid.New().String(),
		Name:      req.Name,
		RemoteID:  req.RemoteID,
		Geometry:  req.Geometry.Clone(),
		Tags:      req.Tags,
		CreatedAt: now,
		UpdatedAt: now,
	}

	// A place linked without geometry stays lazy: nothing is pushed and the
	// entry is loaded on first read.
	s.geo.SyncOnSave(ctx, place, SaveOptions{})
	if err := s.repo.Create(ctx, place); err != nil {
		return nil, err
	}

	return domain.NewPlaceResponse(place), nil
}

func (s *PlaceService) List(ctx context.Context) ([]*domain.PlaceResponse, error) {
	places, err := s.repo.List(ctx)
	if err != nil {
		return nil, err
	}

	responses := make([]*domain.PlaceResponse, 0, len(places))
	for _, p := range places {
		responses = append(responses, domain.NewPlaceResponse(p))
	}
	return responses, nil
}

// Get returns the place, loading geometry and tags from the geo-directory
// when they are missing locally.
func (s *PlaceService) Get(ctx context.Context, id string) (*domain.PlaceResponse, error) {
	place, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if err := s.geo.EnsureLoaded(ctx, place); err != nil {
		return nil, err
	}

	return domain.NewPlaceResponse(place), nil
}

func (s *PlaceService) Update(ctx context.Context, id string, req *domain.UpdatePlaceRequest) (*domain.PlaceResponse, error) {
	place, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if err := s.geo.EnsureLoaded(ctx, place); err != nil {
		return nil, err
	}

	if req.Name != nil {
		place.Name = *req.Name
	}
	if !req.Geometry.IsNull() {
		place.Geometry = req.Geometry.Clone()
	}
	if req.Tags != nil {
		place.Tags = req.Tags
	}

	opts := SaveOptions{SkipSync: req.Sync != nil && !*req.Sync}
	if err := s.save(ctx, place, opts); err != nil {
		return nil, err
	}

	return domain.NewPlaceResponse(place), nil
}

// Delete removes the remote entry on a best effort basis, then the place.
func (s *PlaceService) Delete(ctx context.Context, id string) error {
	place, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return err
	}

	s.geo.DeleteRemote(ctx, place)
	return s.repo.Delete(ctx, id)
}

// Refresh pulls the place from the geo-directory, skipping the cache, and
// stores the result without pushing it back.
func (s *PlaceService) Refresh(ctx context.Context, id string) (*domain.PlaceResponse, error) {
	place, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !s.geo.Enabled() {
		return nil, ErrSyncDisabled
	}
	if place.RemoteID == "" {
		return nil, ErrNotLinked
	}

	if err := s.geo.Pull(ctx, place, PullOptions{BypassCache: true}); err != nil {
		return nil, err
	}
	if err := s.save(ctx, place, SaveOptions{SkipSync: true}); err != nil {
		return nil, err
	}

	return domain.NewPlaceResponse(place), nil
}

// Detach removes the remote entry of the place and unlinks it. The place
// keeps its geometry and tags.
func (s *PlaceService) Detach(ctx context.Context, id string) (*domain.PlaceResponse, error) {
	place, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if err := s.geo.EnsureLoaded(ctx, place); err != nil {
		return nil, err
	}
	if err := s.geo.Detach(ctx, place); err != nil {
		return nil, err
	}
	if err := s.save(ctx, place, SaveOptions{SkipSync: true}); err != nil {
		return nil, err
	}

	return domain.NewPlaceResponse(place), nil
}

// Closest returns the record owning the geo-directory entry nearest to the
// place, or the raw entry when it belongs to no known record.
func (s *PlaceService) Closest(ctx context.Context, id string, filter []string) (*domain.ClosestResponse, error) {
	place, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	match, err := s.geo.Closest(ctx, place, filter)
	if err != nil {
		return nil, err
	}

	if p, ok := match.Entity.(*domain.Place); ok && p != nil {
		if err := s.geo.EnsureLoaded(ctx, p); err != nil {
			return nil, err
		}
		return &domain.ClosestResponse{Place: domain.NewPlaceResponse(p)}, nil
	}
	return &domain.ClosestResponse{Entry: match.Entry}, nil
}

// FindByRemoteID makes PlaceService the registry finder for places.
func (s *PlaceService) FindByRemoteID(ctx context.Context, remoteID string) (domain.GeoEntity, error) {
	place, err := s.repo.FindByRemoteID(ctx, remoteID)
	if err != nil {
		return nil, err
	}
	return place, nil
}

func (s *PlaceService) save(ctx context.Context, place *domain.Place, opts SaveOptions) error {
	s.geo.SyncOnSave(ctx, place, opts)
	place.UpdatedAt = time.Now()
	return s.repo.Update(ctx, place)
}
