// Package state builds the per-parse render state that map consumers draw
// from: point markers grouped by location, polygons grouped by centroid for
// overlap navigation, and radius circles.
package state

// Marker is one map pin. Records that share a rounded location share a pin.
type Marker struct {
	Key     string   `json:"key"`
	Lat     float64  `json:"lat"`
	Lon     float64  `json:"lon"`
	Records []int    `json:"records"` // Indexes into the decoded record slice.
	IDs     []string `json:"ids"`
}

// PolygonLayer is one drawable polygon.
type PolygonLayer struct {
	Record int     `json:"record"`
	ID     string  `json:"id"`
	Area   float64 `json:"area"`
}

// PolygonGroup holds polygons whose centroids coincide. Layers are ordered
// largest first so smaller areas draw on top.
type PolygonGroup struct {
	Key    string         `json:"key"`
	Lat    float64        `json:"lat"`
	Lon    float64        `json:"lon"`
	Layers []PolygonLayer `json:"layers"`
}

// Circle is a radius drawn around a single position.
type Circle struct {
	Record   int     `json:"record"`
	ID       string  `json:"id"`
	Lat      float64 `json:"lat"`
	Lon      float64 `json:"lon"`
	RadiusNM float64 `json:"radius_nm"`
}

// RenderState is rebuilt from scratch on every parse.
type RenderState struct {
	Markers  []*Marker       `json:"markers"`
	Polygons []*PolygonGroup `json:"polygons"`
	Circles  []Circle        `json:"circles"`
}

// HasContent reports whether anything would be drawn.
func (s *RenderState) HasContent() bool {
	return len(s.Markers) > 0 || len(s.Polygons) > 0 || len(s.Circles) > 0
}

// MarkerFor returns the marker holding the given record index, or nil.
func (s *RenderState) MarkerFor(record int) *Marker {
	for _, m := range s.Markers {
		for _, r := range m.Records {
			if r == record {
				return m
			}
		}
	}
	return nil
}
