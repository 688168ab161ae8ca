package state

import (
	"fmt"
	"sort"

	"notam_parser/internal/geometry"
	"notam_parser/internal/notam"
	"notam_parser/internal/patterns"
)

// Rounding precision for grouping keys, in decimal places.
const (
	markerPrecision  = 4
	polygonPrecision = 3
)

func roundKey(lat, lon float64, places int) string {
	return fmt.Sprintf("%.*f,%.*f", places, lat, places, lon)
}

// Build derives the render state of a decoded record list. Marker and
// polygon groups appear in the order their first record appears.
func Build(records []notam.Record) *RenderState {
	s := &RenderState{}
	markers := make(map[string]*Marker)
	polygons := make(map[string]*PolygonGroup)

	for i, rec := range records {
		if len(rec.Coordinates) == 0 {
			continue
		}

		if rec.IsPolygon {
			c := geometry.Centroid(rec.Coordinates)
			key := roundKey(c[1], c[0], polygonPrecision)
			g, ok := polygons[key]
			if !ok {
				g = &PolygonGroup{Key: key, Lat: c[1], Lon: c[0]}
				polygons[key] = g
				s.Polygons = append(s.Polygons, g)
			}
			g.Layers = append(g.Layers, PolygonLayer{
				Record: i,
				ID:     rec.ID,
				Area:   geometry.Area(rec.Coordinates),
			})
			continue
		}

		first := rec.Coordinates[0]
		key := roundKey(first.Lat, first.Lon, markerPrecision)
		m, ok := markers[key]
		if !ok {
			m = &Marker{Key: key, Lat: first.Lat, Lon: first.Lon}
			markers[key] = m
			s.Markers = append(s.Markers, m)
		}
		m.Records = append(m.Records, i)
		m.IDs = append(m.IDs, rec.ID)

		if first.HasRadius() {
			s.Circles = append(s.Circles, Circle{
				Record:   i,
				ID:       rec.ID,
				Lat:      first.Lat,
				Lon:      first.Lon,
				RadiusNM: patterns.RadiusToNM(*first.Radius, first.RadiusUnit),
			})
		}
	}

	for _, g := range s.Polygons {
		sort.SliceStable(g.Layers, func(i, j int) bool {
			return g.Layers[i].Area > g.Layers[j].Area
		})
	}

	return s
}
