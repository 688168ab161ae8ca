package main

import (
	"bytes"
	"strings"
	"testing"
)

const bulletin = `A1234/25 NOTAMN
Q) LFFF/QOBCE/IV/M/A/000/003/4902N00222E001
A) LFPG B) 2501010800 C) 2501311800
E) TEMPO OBST CRANE PSN 490204N 0022140E HGT 300FT

A1236/25 NOTAMN
Q) LFFF/QMRLC/IV/NBO/A/000/999/
A) LFPG B) 2501010800 C) 2501311800 EST
E) RWY 09/27 CLSD

A1238/25 NOTAMN
A) LFPG
E) NAVAID 490204N 0022140E U/S
`

func TestAnalyze(t *testing.T) {
	r := Analyze(bulletin, 10)

	if r.Notices != 3 || r.Decoded != 1 || r.Dropped != 2 {
		t.Fatalf("notices/decoded/dropped = %d/%d/%d, want 3/1/2", r.Notices, r.Decoded, r.Dropped)
	}
	if r.Records != 1 || r.Points != 1 || r.Polygons != 0 {
		t.Errorf("records = %d (%d points, %d polygons)", r.Records, r.Points, r.Polygons)
	}

	qcodes := map[string]int{}
	for _, c := range r.DroppedQCodes {
		qcodes[c.Key] = c.Count
	}
	if qcodes["QMRLC"] != 1 || qcodes["(none)"] != 1 {
		t.Errorf("DroppedQCodes = %v", r.DroppedQCodes)
	}

	if len(r.DroppedTriggers) != 1 || r.DroppedTriggers[0].Key != "(none)" || r.DroppedTriggers[0].Count != 2 {
		t.Errorf("DroppedTriggers = %v", r.DroppedTriggers)
	}
	if len(r.DroppedWithCoords) != 1 || r.DroppedWithCoords[0] != "A1238/25" {
		t.Errorf("DroppedWithCoords = %v", r.DroppedWithCoords)
	}

	var buf bytes.Buffer
	printReport(&buf, r)
	if !strings.Contains(buf.String(), "Decoded:  1 (33.3%)") {
		t.Errorf("report = %q", buf.String())
	}
}

func TestTestPattern(t *testing.T) {
	res, err := TestPattern(bulletin, `\d{6}N`)
	if err != nil {
		t.Fatal(err)
	}
	if res.Total != 3 || res.Matches != 2 {
		t.Errorf("matches = %d/%d, want 2/3", res.Matches, res.Total)
	}
	if len(res.NonMatchIDs) != 1 || res.NonMatchIDs[0] != "A1236/25" {
		t.Errorf("NonMatchIDs = %v", res.NonMatchIDs)
	}

	if _, err := TestPattern(bulletin, "("); err == nil {
		t.Error("expected an error for an invalid pattern")
	}
}

func TestTopCounts(t *testing.T) {
	got := topCounts(map[string]int{"B": 2, "A": 2, "C": 5, "D": 1}, 3)
	want := []string{"C", "A", "B"}
	if len(got) != len(want) {
		t.Fatalf("got %d items, want %d", len(got), len(want))
	}
	for i, k := range want {
		if got[i].Key != k {
			t.Errorf("item %d = %s, want %s", i, got[i].Key, k)
		}
	}
}
