// Package notam provides NOTAM notice and record types, plus the envelope-level
// parsing steps: bulletin segmentation, lettered item splitting and validity dates.
package notam

import (
	"encoding/json"
	"time"
)

// CoordType records where a coordinate was read from.
type CoordType string

const (
	// CoordPSN is a coordinate decoded from the free-text E) item.
	CoordPSN CoordType = "PSN"
	// CoordQualifierLine is the coarse centre taken from the Q) line.
	CoordQualifierLine CoordType = "QUALIFIER_LINE"
)

// RadiusUnit is the unit a radius was written in.
type RadiusUnit string

const (
	UnitNM RadiusUnit = "NM"
	UnitKM RadiusUnit = "KM"
	UnitM  RadiusUnit = "M"
)

// Coordinate is a single decoded position.
//
// Lat is always within [-90, 90]. Lon is within [-180, 180] when decoded, but
// a vertex of a normalised polygon may hold a longitude outside that range so
// that the ring stays contiguous across the antimeridian.
type Coordinate struct {
	Original   string     `json:"original"`
	Lat        float64    `json:"lat"`
	Lon        float64    `json:"lon"`
	Type       CoordType  `json:"type"`
	Radius     *float64   `json:"radius,omitempty"`
	RadiusUnit RadiusUnit `json:"radius_unit,omitempty"`
}

// HasRadius reports whether a radius was attached to the coordinate.
func (c Coordinate) HasRadius() bool {
	return c.Radius != nil && c.RadiusUnit != ""
}

// CoordinateGroup is an ordered run of coordinates forming one shape.
// Order is vertex order for polygons and irrelevant for single points.
type CoordinateGroup []Coordinate

// Clone returns a copy that does not share the backing array.
func (g CoordinateGroup) Clone() CoordinateGroup {
	if g == nil {
		return nil
	}
	out := make(CoordinateGroup, len(g))
	copy(out, g)
	return out
}

// Shape is one coordinate group plus its polygon classification.
type Shape struct {
	Coordinates CoordinateGroup `json:"coordinates"`
	Polygon     bool            `json:"polygon"`
}

// Extraction is what a coordinate extractor returns for one notice.
type Extraction struct {
	Extractor string  `json:"extractor"`
	Shapes    []Shape `json:"shapes"`
}

// Empty reports whether the extraction carries no shapes.
func (e *Extraction) Empty() bool {
	return e == nil || len(e.Shapes) == 0
}

// QualifierLine holds the seven slash-delimited fields of the Q) item.
type QualifierLine struct {
	FIR     string   `json:"fir"`
	Code    string   `json:"code"`
	Traffic string   `json:"traffic"`
	Purpose string   `json:"purpose"`
	Scope   string   `json:"scope"`
	Lower   int      `json:"lower"`
	Upper   int      `json:"upper"`
	Lat     float64  `json:"lat"`
	Lon     float64  `json:"lon"`
	Radius  *float64 `json:"radius,omitempty"` // Nautical miles.
	Coord   string   `json:"coord"`            // Raw coordinate field.
}

// Validity is the time window of a notice. All times are UTC wall clock.
type Validity struct {
	Start     *time.Time `json:"start,omitempty"`
	End       *time.Time `json:"end,omitempty"`
	Permanent bool       `json:"permanent"`
	Estimated bool       `json:"estimated"`
}

// Notice is one segmented NOTAM.
type Notice struct {
	ID       string   `json:"id"`
	Body     string   `json:"body"`
	Content  string   `json:"content"` // Notice text with blank lines dropped and lines trimmed.
	Sections Sections `json:"sections,omitempty"`
}

// Record is one geolocated output of the decoder. A notice yields one record
// per independent shape; all records of a notice share ID, content and dates.
type Record struct {
	ID          string          `json:"id"`
	FullContent string          `json:"full_content"`
	Coordinates CoordinateGroup `json:"coordinates"`
	ICAOCodes   []string        `json:"icao_codes"`
	IsPolygon   bool            `json:"is_polygon"`
	StartDate   *time.Time      `json:"start_date,omitempty"`
	EndDate     *time.Time      `json:"end_date,omitempty"`
	Permanent   bool            `json:"permanent"`
	Estimated   bool            `json:"estimated"`
}

// Validity returns the record's validity window.
func (r Record) Validity() Validity {
	return Validity{
		Start:     r.StartDate,
		End:       r.EndDate,
		Permanent: r.Permanent,
		Estimated: r.Estimated,
	}
}

// MarshalCoordinates encodes a coordinate group for storage.
func MarshalCoordinates(g CoordinateGroup) (string, error) {
	if g == nil {
		g = CoordinateGroup{}
	}
	b, err := json.Marshal(g)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// UnmarshalCoordinates decodes a coordinate group written by MarshalCoordinates.
func UnmarshalCoordinates(data []byte) (CoordinateGroup, error) {
	var g CoordinateGroup
	if len(data) == 0 {
		return g, nil
	}
	if err := json.Unmarshal(data, &g); err != nil {
		return nil, err
	}
	return g, nil
}
