package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"geodirectory-sync/internal/domain"

	_ "github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed"
)

const placesSchema = `
CREATE TABLE IF NOT EXISTS places (
	id             TEXT PRIMARY KEY,
	name           TEXT NOT NULL,
	remote_id      TEXT UNIQUE,
	last_sync_time TEXT,
	geometry       TEXT,
	tags           TEXT,
	created_at     TEXT NOT NULL,
	updated_at     TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_places_name ON places(name);
`

const placeColumns = `id, name, remote_id, last_sync_time, geometry, tags, created_at, updated_at`

// OpenSQLite opens the embedded database at path, creating its directory if
// needed, with WAL enabled.
func OpenSQLite(path string) (*sql.DB, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	conn, err := sql.Open("sqlite3", fmt.Sprintf("file:%s", path))
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := conn.Ping(); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	for _, pragma := range []string{"PRAGMA journal_mode=WAL", "PRAGMA busy_timeout=5000"} {
		if _, err := conn.Exec(pragma); err != nil {
			_ = conn.Close()
			return nil, fmt.Errorf("failed to run %s: %w", pragma, err)
		}
	}

	return conn, nil
}

type sqlitePlaceRepository struct {
	db *sql.DB
}

// NewSQLitePlaceRepository returns a PlaceRepository backed by db. The schema
// is created if missing.
func NewSQLitePlaceRepository(ctx context.Context, db *sql.DB) (PlaceRepository, error) {
	if _, err := db.ExecContext(ctx, placesSchema); err != nil {
		return nil, fmt.Errorf("failed to create places schema: %w", err)
	}
	return &sqlitePlaceRepository{db: db}, nil
}

func (r *sqlitePlaceRepository) Create(ctx context.Context, place *domain.Place) error {
	args, err := placeArgs(place)
	if err != nil {
		return err
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO places (`+placeColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, args...)
	if err != nil {
		return fmt.Errorf("failed to create place: %w", err)
	}

	return nil
}

func (r *sqlitePlaceRepository) FindByID(ctx context.Context, id string) (*domain.Place, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+placeColumns+` FROM places WHERE id = ?`, id)
	place, err := scanPlace(row)
	if err != nil {
		return nil, fmt.Errorf("failed to find place: %w", err)
	}
	return place, nil
}

func (r *sqlitePlaceRepository) FindByRemoteID(ctx context.Context, remoteID string) (*domain.Place, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+placeColumns+` FROM places WHERE remote_id = ?`, remoteID)
	place, err := scanPlace(row)
	if err != nil {
		return nil, fmt.Errorf("failed to find place by remote id: %w", err)
	}
	return place, nil
}

func (r *sqlitePlaceRepository) List(ctx context.Context) ([]*domain.Place, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+placeColumns+` FROM places ORDER BY created_at, id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list places: %w", err)
	}
	defer rows.Close()

	var places []*domain.Place
	for rows.Next() {
		place, err := scanPlace(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan place: %w", err)
		}
		places = append(places, place)
	}

	return places, rows.Err()
}

func (r *sqlitePlaceRepository) Update(ctx context.Context, place *domain.Place) error {
	args, err := placeArgs(place)
	if err != nil {
		return err
	}

	res, err := r.db.ExecContext(ctx, `
		UPDATE places SET
			name = ?2,
			remote_id = ?3,
			last_sync_time = ?4,
			geometry = ?5,
			tags = ?6,
			created_at = ?7,
			updated_at = ?8
		WHERE id = ?1
	`, args...)
	if err != nil {
		return fmt.Errorf("failed to update place: %w", err)
	}

	return checkAffected(res)
}

func (r *sqlitePlaceRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM places WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete place: %w", err)
	}

	return checkAffected(res)
}

func checkAffected(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return domain.ErrNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPlace(row rowScanner) (*domain.Place, error) {
	var (
		place                        domain.Place
		remoteID, lastSync, geometry sql.NullString
		tags                         sql.NullString
		createdAt, updatedAt         string
	)

	err := row.Scan(&place.ID, &place.Name, &remoteID, &lastSync, &geometry, &tags, &createdAt, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	place.RemoteID = remoteID.String
	if lastSync.Valid {
		t, err := time.Parse(time.RFC3339Nano, lastSync.String)
		if err != nil {
			return nil, fmt.Errorf("invalid last_sync_time %q: %w", lastSync.String, err)
		}
		place.LastSyncTime = &t
	}
	if geometry.Valid {
		place.Geometry = domain.Geometry(geometry.String)
	}
	if tags.Valid {
		if err := json.Unmarshal([]byte(tags.String), &place.Tags); err != nil {
			return nil, fmt.Errorf("invalid tags %q: %w", tags.String, err)
		}
		if place.Tags == nil {
			place.Tags = []string{}
		}
	}
	if place.CreatedAt, err = time.Parse(time.RFC3339Nano, createdAt); err != nil {
		return nil, fmt.Errorf("invalid created_at %q: %w", createdAt, err)
	}
	if place.UpdatedAt, err = time.Parse(time.RFC3339Nano, updatedAt); err != nil {
		return nil, fmt.Errorf("invalid updated_at %q: %w", updatedAt, err)
	}

	return &place, nil
}

// placeArgs returns the column values of place in placeColumns order. Unset
// remote id, geometry and tags are stored as NULL.
func placeArgs(place *domain.Place) ([]any, error) {
	var remoteID, lastSync, geometry, tags sql.NullString

	if place.RemoteID != "" {
		remoteID = sql.NullString{String: place.RemoteID, Valid: true}
	}
	if place.LastSyncTime != nil {
		lastSync = sql.NullString{String: place.LastSyncTime.UTC().Format(time.RFC3339Nano), Valid: true}
	}
	if !place.Geometry.IsNull() {
		geometry = sql.NullString{String: string(place.Geometry), Valid: true}
	}
	if place.Tags != nil {
		data, err := json.Marshal(place.Tags)
		if err != nil {
			return nil, fmt.Errorf("failed to encode tags: %w", err)
		}
		tags = sql.NullString{String: string(data), Valid: true}
	}

	return []any{
		place.ID,
		place.Name,
		remoteID,
		lastSync,
		geometry,
		tags,
		place.CreatedAt.UTC().Format(time.RFC3339Nano),
		place.UpdatedAt.UTC().Format(time.RFC3339Nano),
	}, nil
}
