package domain

import (
	"errors"
	"time"
)

var ErrNotFound = errors.New("not found")

// GeoEntity is implemented by every local record that is mirrored into the
// geo-directory. An empty remote id means the record has not been created
// remotely yet; nil tags mean they have not been loaded.
type GeoEntity interface {
	// TypeTag is the qualified type name written as the first tag of the
	// remote entry, e.g. "places.Place".
	TypeTag() string

	GetRemoteID() string
	SetRemoteID(id string)

	GetGeometry() Geometry
	SetGeometry(g Geometry)

	GetTags() []string
	SetTags(tags []string)

	GetLastSyncTime() *time.Time
	SetLastSyncTime(t time.Time)
}
