package repository

import (
	"context"
	"fmt"
	"net/http"

	"geodirectory-sync/internal/domain"

	"github.com/go-kivik/kivik/v4"
)

const placeDocType = "place"

type PlaceRepository interface {
	Create(ctx context.Context, place *domain.Place) error
	FindByID(ctx context.Context, id string) (*domain.Place, error)
	FindByRemoteID(ctx context.Context, remoteID string) (*domain.Place, error)
	List(ctx context.Context) ([]*domain.Place, error)
	Update(ctx context.Context, place *domain.Place) error
	Delete(ctx context.Context, id string) error
}

type placeDoc struct {
	Rev     string `json:"_rev,omitempty"`
	DocType string `json:"doc_type"`
	*domain.Place
}

type placeRepository struct {
	client *kivik.Client
	dbName string
}

func NewPlaceRepository(client *kivik.Client, dbName string) PlaceRepository {
	return &placeRepository{
		client: client,
		dbName: dbName,
	}
}

func placeDocID(id string) string {
	return fmt.Sprintf("place:%s", id)
}

func isNotFound(err error) bool {
	return kivik.HTTPStatus(err) == http.StatusNotFound
}

func (r *placeRepository) Create(ctx context.Context, place *domain.Place) error {
	db := r.client.DB(r.dbName)

	doc := &placeDoc{DocType: placeDocType, Place: place}
	if _, err := db.Put(ctx, placeDocID(place.ID), doc); err != nil {
		return fmt.Errorf("failed to create place: %w", err)
	}

	return nil
}

func (r *placeRepository) FindByID(ctx context.Context, id string) (*domain.Place, error) {
	db := r.client.DB(r.dbName)

	var doc placeDoc
	if err := db.Get(ctx, placeDocID(id)).ScanDoc(&doc); err != nil {
		if isNotFound(err) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("failed to find place: %w", err)
	}
	if doc.Place == nil {
		return nil, domain.ErrNotFound
	}

	return doc.Place, nil
}

func (r *placeRepository) FindByRemoteID(ctx context.Context, remoteID string) (*domain.Place, error) {
	places, err := r.find(ctx, map[string]interface{}{
		"selector": map[string]interface{}{
			"doc_type":  placeDocType,
			"remote_id": remoteID,
		},
		"limit": 1,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to find place by remote id: %w", err)
	}
	if len(places) == 0 {
		return nil, domain.ErrNotFound
	}

	return places[0], nil
}

func (r *placeRepository) List(ctx context.Context) ([]*domain.Place, error) {
	places, err := r.find(ctx, map[string]interface{}{
		"selector": map[string]interface{}{
			"doc_type": placeDocType,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list places: %w", err)
	}

	return places, nil
}

func (r *placeRepository) find(ctx context.Context, query map[string]interface{}) ([]*domain.Place, error) {
	db := r.client.DB(r.dbName)

	rows := db.Find(ctx, query)
	if err := rows.Err(); err != nil {
		return nil, err
	}
	defer rows.Close()

	var places []*domain.Place
	for rows.Next() {
		var doc placeDoc
		if err := rows.ScanDoc(&doc); err != nil || doc.Place == nil {
			continue
		}
		places = append(places, doc.Place)
	}

	return places, rows.Err()
}

func (r *placeRepository) Update(ctx context.Context, place *domain.Place) error {
	db := r.client.DB(r.dbName)
	docID := placeDocID(place.ID)

	rev, err := db.GetRev(ctx, docID)
	if err != nil {
		if isNotFound(err) {
			return domain.ErrNotFound
		}
		return fmt.Errorf("failed to fetch place revision: %w", err)
	}

	doc := &placeDoc{Rev: rev, DocType: placeDocType, Place: place}
	if _, err := db.Put(ctx, docID, doc); err != nil {
		return fmt.Errorf("failed to update place: %w", err)
	}

	return nil
}

func (r *placeRepository) Delete(ctx context.Context, id string) error {
	db := r.client.DB(r.dbName)
	docID := placeDocID(id)

	rev, err := db.GetRev(ctx, docID)
	if err != nil {
		if isNotFound(err) {
			return domain.ErrNotFound
		}
		return fmt.Errorf("failed to fetch place revision: %w", err)
	}

	if _, err := db.Delete(ctx, docID, rev); err != nil {
		return fmt.Errorf("failed to delete place: %w", err)
	}

	return nil
}
