package service

import (
	"context"
	"errors"
	"slices"
	"testing"

	"geodirectory-sync/internal/domain"
	"geodirectory-sync/internal/geodirectory"
	"geodirectory-sync/internal/registry"
)

type mockPlaceRepo struct {
	places  map[string]*domain.Place
	updates int
}

func newMockPlaceRepo() *mockPlaceRepo {
	return &mockPlaceRepo{
		places: make(map[string]*domain.Place),
	}
}

func (m *mockPlaceRepo) Create(ctx context.Context, place *domain.Place) error {
	m.places[place.ID] = place
	return nil
}

func (m *mockPlaceRepo) FindByID(ctx context.Context, id string) (*domain.Place, error) {
	if p, exists := m.places[id]; exists {
		return p, nil
	}
	return nil, domain.ErrNotFound
}

func (m *mockPlaceRepo) FindByRemoteID(ctx context.Context, remoteID string) (*domain.Place, error) {
	for _, p := range m.places {
		if p.RemoteID == remoteID {
			return p, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (m *mockPlaceRepo) List(ctx context.Context) ([]*domain.Place, error) {
	var places []*domain.Place
	for _, p := range m.places {
		places = append(places, p)
	}
	return places, nil
}

func (m *mockPlaceRepo) Update(ctx context.Context, place *domain.Place) error {
	if _, exists := m.places[place.ID]; exists {
		m.updates++
		m.places[place.ID] = place
		return nil
	}
	return domain.ErrNotFound
}

func (m *mockPlaceRepo) Delete(ctx context.Context, id string) error {
	if _, exists := m.places[id]; exists {
		delete(m.places, id)
		return nil
	}
	return domain.ErrNotFound
}

func newPlaceFixture(enabled bool) (*PlaceService, *mockPlaceRepo, *geoFixture) {
	f := newGeoFixture(enabled)
	repo := newMockPlaceRepo()
	return NewPlaceService(repo, f.service), repo, f
}

func newPlaceRegistry(s *PlaceService) *registry.Registry {
	reg := registry.New()
	reg.Register(domain.PlaceTypeTag, s)
	return reg
}

func TestPlaceService_Create(t *testing.T) {
	service, repo, f := newPlaceFixture(true)

	resp, err := service.Create(context.Background(), &domain.CreatePlaceRequest{
		Name:     "Tempelhofer Feld",
		Geometry: testGeometry,
	})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	if resp.ID == "" {
		t.Error("expected place ID to be generated")
	}
	if resp.RemoteID != testRemoteID {
		t.Errorf("expected remote id %s, got %q", testRemoteID, resp.RemoteID)
	}
	if !slices.Equal(resp.Tags, []string{domain.PlaceTypeTag}) {
		t.Errorf("unexpected tags %v", resp.Tags)
	}
	if f.client.creates != 1 {
		t.Errorf("expected one create, got %d", f.client.creates)
	}
	if stored := repo.places[resp.ID]; stored == nil || stored.RemoteID != testRemoteID {
		t.Error("expected place stored with its remote id")
	}
}

func TestPlaceService_CreateWithoutGeometry(t *testing.T) {
	service, repo, f := newPlaceFixture(true)

	resp, err := service.Create(context.Background(), &domain.CreatePlaceRequest{Name: "Unplaced"})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	if f.client.creates != 0 {
		t.Errorf("expected no push, got %d creates", f.client.creates)
	}
	if resp.RemoteID != "" {
		t.Errorf("expected no remote id, got %q", resp.RemoteID)
	}
	if len(repo.places) != 1 {
		t.Errorf("expected place stored locally")
	}
}

func TestPlaceService_CreateSavesLocallyWhenPushFails(t *testing.T) {
	service, repo, f := newPlaceFixture(true)
	f.client.createErr = &geodirectory.TransportError{Op: "create_entry", StatusCode: 502, Err: errors.New("bad gateway")}

	resp, err := service.Create(context.Background(), &domain.CreatePlaceRequest{Name: "Offline", Geometry: testGeometry})
	if err != nil {
		t.Fatalf("expected push failure to be swallowed, got %v", err)
	}
	if resp.RemoteID != "" {
		t.Errorf("expected no remote id, got %q", resp.RemoteID)
	}
	if _, ok := repo.places[resp.ID]; !ok {
		t.Error("expected place stored locally")
	}
}

func TestPlaceService_CreateLinked(t *testing.T) {
	service, repo, f := newPlaceFixture(true)
	f.client.entries[testRemoteID] = &domain.Entry{
		ID:         testRemoteID,
		Geometry:   testGeometry.Clone(),
		Properties: domain.EntryProperties{Tags: []string{"shops.Shop", "bakery"}},
	}
	ctx := context.Background()

	resp, err := service.Create(ctx, &domain.CreatePlaceRequest{Name: "Linked", RemoteID: testRemoteID})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if f.client.gets != 0 || f.client.updates != 0 || f.client.creates != 0 {
		t.Errorf("expected no remote calls on link, got gets=%d updates=%d creates=%d",
			f.client.gets, f.client.updates, f.client.creates)
	}

	stored := repo.places[resp.ID]
	if !stored.Geometry.IsNull() {
		t.Errorf("expected stored geometry to stay null, got %s", stored.Geometry)
	}
	if stored.Tags != nil {
		t.Errorf("expected stored tags unloaded, got %v", stored.Tags)
	}
	if remote := f.client.entries[testRemoteID].Tags(); !slices.Equal(remote, []string{"shops.Shop", "bakery"}) {
		t.Errorf("expected remote tags untouched, got %v", remote)
	}

	loaded, err := service.Get(ctx, resp.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if f.client.gets != 1 || f.client.updates != 0 {
		t.Errorf("expected one lazy fetch and no push, got gets=%d updates=%d", f.client.gets, f.client.updates)
	}
	if loaded.Geometry.IsNull() || !slices.Equal(loaded.Tags, []string{"shops.Shop", "bakery"}) {
		t.Errorf("expected place loaded from entry, got %+v", loaded)
	}

	_, err = service.Create(ctx, &domain.CreatePlaceRequest{Name: "Duplicate", RemoteID: testRemoteID})
	if !errors.Is(err, ErrRemoteIDInUse) {
		t.Errorf("expected ErrRemoteIDInUse, got %v", err)
	}
}

func TestPlaceService_Update(t *testing.T) {
	service, _, f := newPlaceFixture(true)
	ctx := context.Background()

	created, err := service.Create(ctx, &domain.CreatePlaceRequest{Name: "Park", Geometry: testGeometry})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	name := "Renamed"
	updated, err := service.Update(ctx, created.ID, &domain.UpdatePlaceRequest{
		Name: &name,
		Tags: []string{"test", domain.PlaceTypeTag},
	})
	if err != nil {
		t.Fatalf("update: %v", err)
	}

	if updated.Name != name {
		t.Errorf("expected name %q, got %q", name, updated.Name)
	}
	if !slices.Equal(updated.Tags, []string{domain.PlaceTypeTag, "test"}) {
		t.Errorf("expected normalized tags, got %v", updated.Tags)
	}
	if f.client.updates != 1 {
		t.Errorf("expected one remote update, got %d", f.client.updates)
	}
	if updated.RemoteID != created.RemoteID {
		t.Errorf("expected remote id %q kept, got %q", created.RemoteID, updated.RemoteID)
	}
}

func TestPlaceService_UpdateWithoutSync(t *testing.T) {
	service, _, f := newPlaceFixture(true)
	ctx := context.Background()

	created, _ := service.Create(ctx, &domain.CreatePlaceRequest{Name: "Park", Geometry: testGeometry})

	sync := false
	name := "Local only"
	if _, err := service.Update(ctx, created.ID, &domain.UpdatePlaceRequest{Name: &name, Sync: &sync}); err != nil {
		t.Fatalf("update: %v", err)
	}
	if f.client.updates != 0 {
		t.Errorf("expected no remote update, got %d", f.client.updates)
	}
}

func TestPlaceService_UpdateNotFound(t *testing.T) {
	service, _, _ := newPlaceFixture(true)

	_, err := service.Update(context.Background(), "missing", &domain.UpdatePlaceRequest{})
	if !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestPlaceService_Delete(t *testing.T) {
	service, repo, f := newPlaceFixture(true)
	ctx := context.Background()

	created, _ := service.Create(ctx, &domain.CreatePlaceRequest{Name: "Park", Geometry: testGeometry})

	f.client.deleteErr = errors.New("timeout")
	if err := service.Delete(ctx, created.ID); err != nil {
		t.Fatalf("expected remote failure to be swallowed, got %v", err)
	}
	if f.client.deletes != 1 {
		t.Errorf("expected one remote delete, got %d", f.client.deletes)
	}
	if _, ok := repo.places[created.ID]; ok {
		t.Error("expected place removed locally")
	}
}

func TestPlaceService_Refresh(t *testing.T) {
	service, repo, f := newPlaceFixture(true)
	ctx := context.Background()

	created, _ := service.Create(ctx, &domain.CreatePlaceRequest{Name: "Park", Geometry: testGeometry})
	f.client.entries[testRemoteID].Properties.Tags = []string{domain.PlaceTypeTag, "remote-edit"}

	resp, err := service.Refresh(ctx, created.ID)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	if !slices.Equal(resp.Tags, []string{domain.PlaceTypeTag, "remote-edit"}) {
		t.Errorf("expected remote tags, got %v", resp.Tags)
	}
	if f.client.gets != 1 {
		t.Errorf("expected refresh to skip the cache, got %d fetches", f.client.gets)
	}
	if f.client.updates != 0 {
		t.Errorf("expected refresh not to push, got %d updates", f.client.updates)
	}
	if repo.updates != 1 {
		t.Errorf("expected refreshed place stored, got %d updates", repo.updates)
	}

	unlinked, _ := service.Create(ctx, &domain.CreatePlaceRequest{Name: "Unplaced"})
	if _, err := service.Refresh(ctx, unlinked.ID); !errors.Is(err, ErrNotLinked) {
		t.Errorf("expected ErrNotLinked, got %v", err)
	}
}

func TestPlaceService_RefreshDisabled(t *testing.T) {
	service, repo, _ := newPlaceFixture(false)
	repo.places["p1"] = &domain.Place{ID: "p1", RemoteID: testRemoteID}

	if _, err := service.Refresh(context.Background(), "p1"); !errors.Is(err, ErrSyncDisabled) {
		t.Errorf("expected ErrSyncDisabled, got %v", err)
	}
}

func TestPlaceService_Detach(t *testing.T) {
	service, repo, f := newPlaceFixture(true)
	ctx := context.Background()

	created, _ := service.Create(ctx, &domain.CreatePlaceRequest{Name: "Park", Geometry: testGeometry})

	resp, err := service.Detach(ctx, created.ID)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	if resp.RemoteID != "" {
		t.Errorf("expected remote id cleared, got %q", resp.RemoteID)
	}
	if resp.Geometry.IsNull() {
		t.Error("expected geometry kept after detach")
	}
	if f.client.creates != 1 || f.client.updates != 0 {
		t.Errorf("expected detach not to push, got creates=%d updates=%d", f.client.creates, f.client.updates)
	}
	if repo.places[created.ID].RemoteID != "" {
		t.Error("expected stored place unlinked")
	}
}

func TestPlaceService_Closest(t *testing.T) {
	service, repo, f := newPlaceFixture(true)
	ctx := context.Background()

	repo.places["near"] = &domain.Place{ID: "near", Name: "Near", RemoteID: "other"}
	f.client.entries["other"] = &domain.Entry{
		ID:         "other",
		Geometry:   domain.Geometry(`{"type":"Point","coordinates":[13.5,52.5]}`),
		Properties: domain.EntryProperties{Tags: []string{domain.PlaceTypeTag, "lake"}},
	}
	f.service.registry = newPlaceRegistry(service)

	created, _ := service.Create(ctx, &domain.CreatePlaceRequest{Name: "Park", Geometry: testGeometry})

	f.client.closestEntry = &domain.Entry{ID: "other", Properties: domain.EntryProperties{Tags: []string{domain.PlaceTypeTag}}}
	resp, err := service.Closest(ctx, created.ID, nil)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if resp.Place == nil || resp.Place.ID != "near" {
		t.Fatalf("expected closest place near, got %+v", resp)
	}
	if resp.Place.Geometry.IsNull() || !slices.Equal(resp.Place.Tags, []string{domain.PlaceTypeTag, "lake"}) {
		t.Errorf("expected closest place loaded from its entry, got %+v", resp.Place)
	}

	f.client.closestEntry = &domain.Entry{ID: "foreign", Properties: domain.EntryProperties{Tags: []string{"events.Event"}}}
	resp, err = service.Closest(ctx, created.ID, nil)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if resp.Place != nil || resp.Entry == nil || resp.Entry.ID != "foreign" {
		t.Errorf("expected raw entry, got %+v", resp)
	}
}
