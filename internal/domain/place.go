package domain

import (
	"slices"
	"time"
)

// PlaceTypeTag is the type tag owning every geo-directory entry created for a
// Place.
const PlaceTypeTag = "places.Place"

type Place struct {
	ID           string     `json:"id"`
	Name         string     `json:"name"`
	RemoteID     string     `json:"remote_id,omitempty"`
	LastSyncTime *time.Time `json:"last_sync_time,omitempty"`
	Geometry     Geometry   `json:"geometry,omitempty"`
	Tags         []string   `json:"tags"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

func (p *Place) TypeTag() string {
	return PlaceTypeTag
}

func (p *Place) GetRemoteID() string {
	return p.RemoteID
}

func (p *Place) SetRemoteID(id string) {
	p.RemoteID = id
}

func (p *Place) GetGeometry() Geometry {
	return p.Geometry
}

func (p *Place) SetGeometry(g Geometry) {
	p.Geometry = g
}

func (p *Place) GetTags() []string {
	return p.Tags
}

func (p *Place) SetTags(tags []string) {
	p.Tags = tags
}

func (p *Place) GetLastSyncTime() *time.Time {
	return p.LastSyncTime
}

func (p *Place) SetLastSyncTime(t time.Time) {
	p.LastSyncTime = &t
}

type CreatePlaceRequest struct {
	Name     string   `json:"name" validate:"required,max=255"`
	Geometry Geometry `json:"geometry"`
	Tags     []string `json:"tags" validate:"omitempty,dive,required"`
	RemoteID string   `json:"remote_id" validate:"omitempty,uuid"`
}

// UpdatePlaceRequest carries partial updates; nil fields are left unchanged.
// Sync set to false stores the place locally without pushing it.
type UpdatePlaceRequest struct {
	Name     *string  `json:"name" validate:"omitempty,min=1,max=255"`
	Geometry Geometry `json:"geometry"`
	Tags     []string `json:"tags" validate:"omitempty,dive,required"`
	Sync     *bool    `json:"sync"`
}

type PlaceResponse struct {
	ID           string     `json:"id"`
	Name         string     `json:"name"`
	RemoteID     string     `json:"remote_id,omitempty"`
	LastSyncTime *time.Time `json:"last_sync_time,omitempty"`
	Geometry     Geometry   `json:"geometry"`
	Tags         []string   `json:"tags"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

func NewPlaceResponse(p *Place) *PlaceResponse {
	return &PlaceResponse{
		ID:           p.ID,
		Name:         p.Name,
		RemoteID:     p.RemoteID,
		LastSyncTime: p.LastSyncTime,
		Geometry:     p.Geometry,
		Tags:         slices.Clone(p.Tags),
		CreatedAt:    p.CreatedAt,
		UpdatedAt:    p.UpdatedAt,
	}
}

// ClosestResponse holds either the local place owning the closest entry or,
// when the entry cannot be traced back to a local record, the raw entry.
type ClosestResponse struct {
	Place *PlaceResponse `json:"place,omitempty"`
	Entry *Entry         `json:"entry,omitempty"`
}
