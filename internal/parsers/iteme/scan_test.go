package iteme

import (
	"testing"

	"notam_parser/internal/notam"
	"notam_parser/internal/patterns"
)

func coord(lat, lon float64) notam.Coordinate {
	return notam.Coordinate{Lat: lat, Lon: lon, Type: notam.CoordPSN}
}

func TestScanner_Transitions(t *testing.T) {
	sc := newScanner()
	if sc.state != stateIdle {
		t.Fatalf("initial state = %s", sc.state)
	}

	steps := []struct {
		c      notam.Coordinate
		action scanAction
		state  scanState
	}{
		{coord(10, 20), actionAppended, stateAccumulating},
		{coord(11, 20), actionAppended, stateAccumulating},
		{coord(11, 21), actionAppended, stateAccumulating},
		{coord(10, 20), actionClosed, stateJustClosed},
		// Same place written with more precision: coarse repeat of the closed ring.
		{coord(10.0002, 20.0001), actionRepeat, stateJustClosed},
		{coord(30, 40), actionAppended, stateAccumulating},
	}

	for i, s := range steps {
		if got := sc.feed(s.c); got != s.action {
			t.Errorf("step %d: action = %s, want %s", i, got, s.action)
		}
		if sc.state != s.state {
			t.Errorf("step %d: state = %s, want %s", i, sc.state, s.state)
		}
	}

	groups := sc.finish()
	if len(groups) != 2 {
		t.Fatalf("got %d groups, want 2", len(groups))
	}
	if len(groups[0]) != 3 || len(groups[1]) != 1 {
		t.Errorf("group sizes = %d, %d; want 3, 1", len(groups[0]), len(groups[1]))
	}
	if sc.state != stateIdle {
		t.Errorf("state after finish = %s, want idle", sc.state)
	}
}

func TestScanner_StandaloneLeavesSequence(t *testing.T) {
	sc := newScanner()
	sc.feed(coord(1, 1))
	if got := sc.standalone(coord(5, 5)); got != actionStandalone {
		t.Errorf("standalone = %s", got)
	}
	sc.feed(coord(2, 2))

	groups := sc.finish()
	if len(groups) != 2 {
		t.Fatalf("got %d groups, want 2", len(groups))
	}
	if groups[0][0].Lat != 5 {
		t.Errorf("first group = %+v, want the standalone position", groups[0])
	}
	if len(groups[1]) != 2 {
		t.Errorf("working sequence has %d members, want 2", len(groups[1]))
	}
}

func TestIsPolygon(t *testing.T) {
	three := notam.CoordinateGroup{coord(1, 1), coord(2, 2), coord(3, 1)}
	closedThree := notam.CoordinateGroup{coord(1, 1), coord(2, 2), coord(1.0005, 1.0005)}

	tests := []struct {
		name  string
		eText string
		group notam.CoordinateGroup
		want  bool
	}{
		{"area keyword", "AREA 010000N 0010000E", three, true},
		{"too few", "AREA", three[:2], false},
		{"parenthesised closure", "OBST (010000N 0010000E)", three, true},
		{"long chain", "OBST 010000N 0010000E - 020000N 0020000E - 030000N 0010000E - 010000N 0010000E", three, true},
		{"short chain", "OBST 010000N 0010000E - 020000N 0020000E - 030000N 0010000E", three, false},
		{"first equals last", "OBST", closedThree, true},
		{"scattered points", "OBST", three, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			triggers := patterns.MatchTriggers(tt.eText, "")
			if got := IsPolygon(tt.eText, triggers, tt.group); got != tt.want {
				t.Errorf("IsPolygon = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestIsStandalonePosition(t *testing.T) {
	tests := []struct {
		text string
		want bool
	}{
		{"CRANE PSN 490204N 0022140E HGT 300FT", true},
		{"PSN 490204N 0022140E - 491000N 0023000E - 492000N 0022000E", false},
		{"AREA 490204N 0022140E", false},
		{"PSN AS FOLLOWS THEN 490204N 0022140E", false},
	}

	for _, tt := range tests {
		loc := patterns.CoordTokenPattern.FindStringIndex(tt.text)
		if loc == nil {
			t.Fatalf("no coordinate in %q", tt.text)
		}
		if got := isStandalonePosition(tt.text, loc[0], loc[1]); got != tt.want {
			t.Errorf("isStandalonePosition(%q) = %v, want %v", tt.text, got, tt.want)
		}
	}
}
