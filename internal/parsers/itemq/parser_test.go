package itemq

import (
	"math"
	"testing"

	"notam_parser/internal/notam"
)

func almostEqual(a, b, tolerance float64) bool {
	return math.Abs(a-b) < tolerance
}

func TestParseQualifierLine(t *testing.T) {
	tests := []struct {
		name   string
		input  string
		want   *notam.QualifierLine
		radius float64
	}{
		{
			name:  "with radius",
			input: "LFFF/QWELW/IV/BO/W/000/050/4840N00305E005",
			want: &notam.QualifierLine{
				FIR: "LFFF", Code: "QWELW", Traffic: "IV", Purpose: "BO", Scope: "W",
				Lower: 0, Upper: 50, Lat: 48.666667, Lon: 3.083333, Coord: "4840N00305E005",
			},
			radius: 5,
		},
		{
			name:  "spaces around fields",
			input: " EPWW / QRTCA / IV / BO / W / 000 / 095 / 5210N02056E010 ",
			want: &notam.QualifierLine{
				FIR: "EPWW", Code: "QRTCA", Traffic: "IV", Purpose: "BO", Scope: "W",
				Lower: 0, Upper: 95, Lat: 52.166667, Lon: 20.933333, Coord: "5210N02056E010",
			},
			radius: 10,
		},
		{
			name:  "no radius",
			input: "LFFF/QWELW/IV/BO/W/000/050/4840N00305E",
			want: &notam.QualifierLine{
				FIR: "LFFF", Code: "QWELW", Traffic: "IV", Purpose: "BO", Scope: "W",
				Lower: 0, Upper: 50, Lat: 48.666667, Lon: 3.083333, Coord: "4840N00305E",
			},
		},
		{
			name:  "southern western",
			input: "SCFZ/QMRLC/IV/NBO/A/000/999/3323S07047W005",
			want: &notam.QualifierLine{
				FIR: "SCFZ", Code: "QMRLC", Traffic: "IV", Purpose: "NBO", Scope: "A",
				Lower: 0, Upper: 999, Lat: -33.383333, Lon: -70.783333, Coord: "3323S07047W005",
			},
			radius: 5,
		},
		{
			name:  "unreadable levels",
			input: "LFFF/QWELW/IV/BO/W/SFC/UNL/4840N00305E005",
			want: &notam.QualifierLine{
				FIR: "LFFF", Code: "QWELW", Traffic: "IV", Purpose: "BO", Scope: "W",
				Lat: 48.666667, Lon: 3.083333, Coord: "4840N00305E005",
			},
			radius: 5,
		},
		{name: "too few fields", input: "LFFF/QWELW/IV/BO/W/000/050"},
		{name: "bad coordinate", input: "LFFF/QWELW/IV/BO/W/000/050/484024N0030441E"},
		{name: "empty", input: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ParseQualifierLine(tt.input)
			if tt.want == nil {
				if got != nil {
					t.Fatalf("ParseQualifierLine = %+v, want nil", got)
				}
				return
			}
			if got == nil {
				t.Fatal("ParseQualifierLine returned nil")
			}
			if got.FIR != tt.want.FIR || got.Code != tt.want.Code || got.Traffic != tt.want.Traffic ||
				got.Purpose != tt.want.Purpose || got.Scope != tt.want.Scope {
				t.Errorf("fields = %+v, want %+v", got, tt.want)
			}
			if got.Lower != tt.want.Lower || got.Upper != tt.want.Upper {
				t.Errorf("levels = %d/%d, want %d/%d", got.Lower, got.Upper, tt.want.Lower, tt.want.Upper)
			}
			if !almostEqual(got.Lat, tt.want.Lat, 0.0001) || !almostEqual(got.Lon, tt.want.Lon, 0.0001) {
				t.Errorf("position = (%f, %f), want (%f, %f)", got.Lat, got.Lon, tt.want.Lat, tt.want.Lon)
			}
			if got.Coord != tt.want.Coord {
				t.Errorf("Coord = %q, want %q", got.Coord, tt.want.Coord)
			}
			switch {
			case tt.radius == 0 && got.Radius != nil:
				t.Errorf("Radius = %v, want nil", *got.Radius)
			case tt.radius != 0 && (got.Radius == nil || *got.Radius != tt.radius):
				t.Errorf("Radius = %v, want %v", got.Radius, tt.radius)
			}
		})
	}
}

func TestParser(t *testing.T) {
	p := &Parser{}

	n := &notam.Notice{
		ID:   "A0100/25",
		Body: "Q) LFFF/QWELW/IV/BO/W/000/050/4840N00305E005\nA) LFFF B) 2501010800 C) 2501311800\nE) GLIDER ACTIVITY",
	}
	if !p.QuickCheck(n) {
		t.Fatal("QuickCheck failed")
	}
	ex := p.Parse(n)
	if ex.Empty() {
		t.Fatal("Parse returned no shapes")
	}
	if len(ex.Shapes) != 1 || ex.Shapes[0].Polygon {
		t.Fatalf("shapes = %+v", ex.Shapes)
	}
	c := ex.Shapes[0].Coordinates[0]
	if c.Type != notam.CoordQualifierLine {
		t.Errorf("Type = %s, want QUALIFIER_LINE", c.Type)
	}
	if c.Radius == nil || *c.Radius != 5 || c.RadiusUnit != notam.UnitNM {
		t.Errorf("radius = %v %s, want 5 NM", c.Radius, c.RadiusUnit)
	}

	missing := &notam.Notice{ID: "A0101/25", Body: "A) LFFF E) GLIDER ACTIVITY"}
	if p.QuickCheck(missing) {
		t.Error("QuickCheck passed without a Q) item")
	}
	if ex := p.Parse(missing); !ex.Empty() {
		t.Errorf("Parse = %+v, want nothing", ex)
	}
}

func TestParseWithTrace(t *testing.T) {
	p := &Parser{}
	n := &notam.Notice{Body: "Q) LFFF/QWELW/IV/BO/W/000/050/4840N00305E005 A) LFFF E) GLIDERS"}

	trace := p.ParseWithTrace(n)
	if !trace.Matched {
		t.Fatalf("trace = %+v", trace)
	}
	if len(trace.Formats) != 1 || !trace.Formats[0].Matched {
		t.Fatalf("formats = %+v", trace.Formats)
	}
	if got := trace.Formats[0].Captures["coord"]; got != "4840N00305E005" {
		t.Errorf("coord capture = %q", got)
	}
}
