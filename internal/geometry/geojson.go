package geometry

import (
	"time"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"github.com/paulmach/orb/simplify"

	"notam_parser/internal/notam"
	"notam_parser/internal/patterns"
)

// GeoJSONOptions controls feature generation.
type GeoJSONOptions struct {
	// SimplifyTolerance applies Douglas-Peucker simplification to polygon
	// rings, in degrees. Zero disables it.
	SimplifyTolerance float64
}

// Feature converts a record to a GeoJSON feature. Polygons become Polygon
// features, everything else a Point at the first coordinate. Returns nil for
// a record without coordinates.
func Feature(rec notam.Record, opts GeoJSONOptions) *geojson.Feature {
	if len(rec.Coordinates) == 0 {
		return nil
	}

	var geom orb.Geometry
	if rec.IsPolygon && len(rec.Coordinates) >= 3 {
		ring := Ring(rec.Coordinates)
		if opts.SimplifyTolerance > 0 && len(ring) > 4 {
			if simp, ok := simplify.DouglasPeucker(opts.SimplifyTolerance).Simplify(ring).(orb.Ring); ok && len(simp) >= 4 {
				ring = simp
			}
		}
		geom = orb.Polygon{ring}
	} else {
		geom = Point(rec.Coordinates[0])
	}

	f := geojson.NewFeature(geom)
	f.ID = rec.ID
	f.Properties["id"] = rec.ID
	f.Properties["is_polygon"] = rec.IsPolygon
	f.Properties["icao_codes"] = rec.ICAOCodes
	f.Properties["permanent"] = rec.Permanent
	f.Properties["estimated"] = rec.Estimated
	f.Properties["type"] = string(rec.Coordinates[0].Type)
	if rec.StartDate != nil {
		f.Properties["start_date"] = rec.StartDate.Format(time.RFC3339)
	}
	if rec.EndDate != nil {
		f.Properties["end_date"] = rec.EndDate.Format(time.RFC3339)
	}

	if rec.IsPolygon {
		f.Properties["area"] = Area(rec.Coordinates)
	} else if c := rec.Coordinates[0]; c.HasRadius() {
		f.Properties["radius"] = *c.Radius
		f.Properties["radius_unit"] = string(c.RadiusUnit)
		f.Properties["radius_nm"] = patterns.RadiusToNM(*c.Radius, c.RadiusUnit)
	}

	return f
}

// FeatureCollection converts records to a GeoJSON feature collection in
// record order.
func FeatureCollection(records []notam.Record, opts GeoJSONOptions) *geojson.FeatureCollection {
	fc := geojson.NewFeatureCollection()
	for _, rec := range records {
		if f := Feature(rec, opts); f != nil {
			fc.Append(f)
		}
	}
	return fc
}
