package enrichment

import (
	"math"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"

	"notam_parser/internal/notam"
)

func ptr[T any](v T) *T { return &v }

func TestStatusAt(t *testing.T) {
	start := time.Date(2025, 1, 1, 8, 0, 0, 0, time.UTC)
	end := time.Date(2025, 1, 31, 18, 0, 0, 0, time.UTC)

	tests := []struct {
		name string
		v    notam.Validity
		now  time.Time
		want Status
	}{
		{"before start", notam.Validity{Start: &start, End: &end}, start.Add(-time.Hour), StatusUpcoming},
		{"at start", notam.Validity{Start: &start, End: &end}, start, StatusActive},
		{"inside", notam.Validity{Start: &start, End: &end}, start.Add(48 * time.Hour), StatusActive},
		{"at end", notam.Validity{Start: &start, End: &end}, end, StatusExpired},
		{"permanent", notam.Validity{Start: &start, Permanent: true}, end, StatusPermanent},
		{"permanent not yet started", notam.Validity{Start: &start, Permanent: true}, start.Add(-time.Minute), StatusUpcoming},
		{"end only", notam.Validity{End: &end}, start, StatusActive},
		{"nothing known", notam.Validity{}, start, StatusUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := StatusAt(tt.v, tt.now); got != tt.want {
				t.Errorf("StatusAt = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestEnricher_FakeClock(t *testing.T) {
	start := time.Date(2025, 1, 1, 8, 0, 0, 0, time.UTC)
	end := time.Date(2025, 1, 1, 10, 0, 0, 0, time.UTC)
	clock := clockwork.NewFakeClockAt(start.Add(-30 * time.Minute))
	e := New(clock)

	rec := notam.Record{ID: "A0001/25", StartDate: &start, EndDate: &end}

	if e.Active(rec) {
		t.Error("active before start")
	}
	clock.Advance(time.Hour)
	if !e.Active(rec) {
		t.Error("not active inside the window")
	}
	clock.Advance(2 * time.Hour)
	if got := e.Summarize(rec).Status; got != StatusExpired {
		t.Errorf("Status = %s, want expired", got)
	}
}

func TestSummarize(t *testing.T) {
	now := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)

	t.Run("circle", func(t *testing.T) {
		rec := notam.Record{
			ID: "A0002/25",
			Coordinates: notam.CoordinateGroup{
				{Lat: 49, Lon: 2, Radius: ptr(1852.0), RadiusUnit: notam.UnitM},
			},
		}
		s := Summarize(rec, now)
		if s.RadiusNM == nil || math.Abs(*s.RadiusNM-1) > 1e-9 {
			t.Errorf("RadiusNM = %v, want 1", s.RadiusNM)
		}
		if s.Area != 0 {
			t.Errorf("Area = %f, want 0", s.Area)
		}
		if s.Centroid[0] != 2 || s.Centroid[1] != 49 {
			t.Errorf("Centroid = %v", s.Centroid)
		}
		if s.Status != StatusUnknown {
			t.Errorf("Status = %s, want unknown", s.Status)
		}
	})

	t.Run("polygon", func(t *testing.T) {
		rec := notam.Record{
			ID:        "A0003/25",
			IsPolygon: true,
			Permanent: true,
			Coordinates: notam.CoordinateGroup{
				{Lat: 0, Lon: 0}, {Lat: 0, Lon: 2}, {Lat: 2, Lon: 2}, {Lat: 2, Lon: 0},
			},
		}
		s := Summarize(rec, now)
		if s.Area != 4 {
			t.Errorf("Area = %f, want 4", s.Area)
		}
		if s.RadiusNM != nil {
			t.Errorf("RadiusNM = %v, want nil", *s.RadiusNM)
		}
		if s.Bound.Min[0] != 0 || s.Bound.Max[1] != 2 {
			t.Errorf("Bound = %v", s.Bound)
		}
		if s.Status != StatusPermanent {
			t.Errorf("Status = %s, want permanent", s.Status)
		}
	})
}
