// Package enrichment derives display and filtering data from decoded records:
// validity status against a clock, circle radius in nautical miles, and
// polygon area, centroid and bounds.
package enrichment

import (
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/paulmach/orb"

	"notam_parser/internal/geometry"
	"notam_parser/internal/notam"
	"notam_parser/internal/patterns"
)

// Status is where a record's validity window sits relative to now.
type Status string

const (
	StatusActive    Status = "active"
	StatusUpcoming  Status = "upcoming"
	StatusExpired   Status = "expired"
	StatusPermanent Status = "permanent"
	StatusUnknown   Status = "unknown"
)

// Summary is the derived view of one record.
type Summary struct {
	ID       string    `json:"id"`
	Status   Status    `json:"status"`
	RadiusNM *float64  `json:"radius_nm,omitempty"` // Circle radius of a single-point record.
	Area     float64   `json:"area,omitempty"`      // Planar degree², polygons only.
	Centroid orb.Point `json:"centroid"`            // (lon, lat)
	Bound    orb.Bound `json:"bound"`
}

// Enricher summarises records against a clock.
type Enricher struct {
	clock clockwork.Clock
}

// New creates an Enricher. A nil clock uses the real clock.
func New(clock clockwork.Clock) *Enricher {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Enricher{clock: clock}
}

// Summarize derives the summary of a record at the enricher's current time.
func (e *Enricher) Summarize(rec notam.Record) Summary {
	return Summarize(rec, e.clock.Now())
}

// Active reports whether the record is in force now.
func (e *Enricher) Active(rec notam.Record) bool {
	s := StatusAt(rec.Validity(), e.clock.Now())
	return s == StatusActive || s == StatusPermanent
}

// Summarize derives the summary of a record at the given instant.
func Summarize(rec notam.Record, now time.Time) Summary {
	s := Summary{
		ID:       rec.ID,
		Status:   StatusAt(rec.Validity(), now),
		Centroid: geometry.Centroid(rec.Coordinates),
		Bound:    geometry.Bound(rec.Coordinates),
	}

	if rec.IsPolygon {
		s.Area = geometry.Area(rec.Coordinates)
	} else if len(rec.Coordinates) == 1 && rec.Coordinates[0].HasRadius() {
		c := rec.Coordinates[0]
		nm := patterns.RadiusToNM(*c.Radius, c.RadiusUnit)
		s.RadiusNM = &nm
	}

	return s
}

// StatusAt classifies a validity window at an instant. A missing start is
// treated as already started; a window with neither start nor end and no
// PERM marker is unknown.
func StatusAt(v notam.Validity, now time.Time) Status {
	if v.Start == nil && v.End == nil && !v.Permanent {
		return StatusUnknown
	}
	if v.Start != nil && now.Before(*v.Start) {
		return StatusUpcoming
	}
	if v.Permanent {
		return StatusPermanent
	}
	if v.End != nil && !now.Before(*v.End) {
		return StatusExpired
	}
	return StatusActive
}
