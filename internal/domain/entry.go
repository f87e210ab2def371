package domain

import (
	"bytes"
	"slices"
)

// Geometry is a geometry value exchanged with the geo-directory. Its content
// (GeoJSON object, WKT string, ...) is passed through untouched.
type Geometry []byte

func (g Geometry) IsNull() bool {
	trimmed := bytes.TrimSpace(g)
	return len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null"))
}

func (g Geometry) MarshalJSON() ([]byte, error) {
	if g.IsNull() {
		return []byte("null"), nil
	}
	return g, nil
}

func (g *Geometry) UnmarshalJSON(data []byte) error {
	if Geometry(data).IsNull() {
		*g = nil
		return nil
	}
	*g = append((*g)[0:0], data...)
	return nil
}

func (g Geometry) Clone() Geometry {
	if g == nil {
		return nil
	}
	return slices.Clone(g)
}

// Entry is the geo-directory representation of a feature.
type Entry struct {
	ID         string          `json:"id"`
	Type       string          `json:"type,omitempty"`
	Geometry   Geometry        `json:"geometry"`
	BBox       []float64       `json:"bbox,omitempty"`
	Properties EntryProperties `json:"properties"`
}

type EntryProperties struct {
	Tags []string `json:"tags"`
}

func (e *Entry) Tags() []string {
	if e == nil {
		return nil
	}
	return e.Properties.Tags
}
