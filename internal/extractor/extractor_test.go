package extractor

import (
	"bytes"
	"log/slog"
	"math"
	"strings"
	"testing"
	"time"

	"notam_parser/internal/notam"
)

func almostEqual(a, b, tolerance float64) bool {
	return math.Abs(a-b) < tolerance
}

const bulletin = `A1234/25 NOTAMN
Q) LFFF/QOBCE/IV/M/A/000/003/4902N00222E001
A) LFPG B) 2501010800 C) 2501311800
E) TEMPO OBST CRANE PSN 490204N 0022140E HGT 300FT

A1235/25 NOTAMN
Q) LFFF/QRDCA/IV/BO/W/000/050/4845N00320E010
A) LFFF LFPG B) 2502010000 C) PERM
E) DANGER AREA WI COORD 484024N 0030441E - 484500N 0031000E - 485000N 0031500E -
485500N 0032000E - 485000N 0033000E - 484500N 0033500E - 484000N 0033000E -
483800N 0032000E - (484024N 0030441E).
F) SFC G) FL050

A1236/25 NOTAMN
Q) LFFF/QMRLC/IV/NBO/A/000/999/
A) LFPG B) 2501010800 C) 2501311800 EST
E) RWY 09/27 CLSD

A1237/25 NOTAMN
Q) LFFF/QWELW/IV/BO/W/000/050/4840N00305E005
A) LFFF
E) GLIDER ACTIVITY
`

func TestDecode(t *testing.T) {
	res := New(Options{}).Decode(bulletin)

	if res.Notices != 4 {
		t.Errorf("Notices = %d, want 4", res.Notices)
	}
	if len(res.Records) != 3 {
		t.Fatalf("got %d records, want 3", len(res.Records))
	}
	if len(res.Dropped) != 1 || res.Dropped[0] != "A1236/25" {
		t.Errorf("Dropped = %v, want [A1236/25]", res.Dropped)
	}
	if got := res.Polygons(); got != 1 {
		t.Errorf("Polygons = %d, want 1", got)
	}

	wantIDs := []string{"A1234/25", "A1235/25", "A1237/25"}
	for i, rec := range res.Records {
		if rec.ID != wantIDs[i] {
			t.Errorf("record %d id = %s, want %s", i, rec.ID, wantIDs[i])
		}
	}
}

func TestParseBulletin_Position(t *testing.T) {
	records := ParseBulletin(bulletin)
	rec := records[0]

	if rec.IsPolygon {
		t.Error("PSN record classified as polygon")
	}
	if len(rec.Coordinates) != 1 || rec.Coordinates[0].Type != notam.CoordPSN {
		t.Fatalf("coordinates = %+v, want one PSN", rec.Coordinates)
	}
	c := rec.Coordinates[0]
	if !almostEqual(c.Lat, 49.034444, 0.0001) || !almostEqual(c.Lon, 2.361111, 0.0001) {
		t.Errorf("position = (%f, %f)", c.Lat, c.Lon)
	}
	if len(rec.ICAOCodes) != 1 || rec.ICAOCodes[0] != "LFPG" {
		t.Errorf("ICAOCodes = %v, want [LFPG]", rec.ICAOCodes)
	}

	wantStart := time.Date(2025, 1, 1, 8, 0, 0, 0, time.UTC)
	wantEnd := time.Date(2025, 1, 31, 18, 0, 0, 0, time.UTC)
	if rec.StartDate == nil || !rec.StartDate.Equal(wantStart) {
		t.Errorf("StartDate = %v, want %v", rec.StartDate, wantStart)
	}
	if rec.EndDate == nil || !rec.EndDate.Equal(wantEnd) {
		t.Errorf("EndDate = %v, want %v", rec.EndDate, wantEnd)
	}
	if rec.Permanent || rec.Estimated {
		t.Errorf("Permanent = %v, Estimated = %v", rec.Permanent, rec.Estimated)
	}
	if !strings.HasPrefix(rec.FullContent, "A1234/25 NOTAMN\nQ) LFFF") {
		t.Errorf("FullContent = %q", rec.FullContent)
	}
	if strings.Contains(rec.FullContent, "A1235/25") {
		t.Error("FullContent leaks into the next notice")
	}
}

func TestParseBulletin_ClosedRing(t *testing.T) {
	rec := ParseBulletin(bulletin)[1]

	if !rec.IsPolygon {
		t.Fatal("ring not classified as polygon")
	}
	if len(rec.Coordinates) != 8 {
		t.Fatalf("got %d vertices, want 8", len(rec.Coordinates))
	}
	first, last := rec.Coordinates[0], rec.Coordinates[len(rec.Coordinates)-1]
	if almostEqual(first.Lat, last.Lat, 0.001) && almostEqual(first.Lon, last.Lon, 0.001) {
		t.Error("closing vertex kept")
	}
	if !rec.Permanent || rec.EndDate != nil {
		t.Errorf("Permanent = %v, EndDate = %v", rec.Permanent, rec.EndDate)
	}
	if len(rec.ICAOCodes) != 2 {
		t.Errorf("ICAOCodes = %v, want two codes", rec.ICAOCodes)
	}
	for i := 1; i < len(rec.Coordinates); i++ {
		if d := math.Abs(rec.Coordinates[i].Lon - rec.Coordinates[i-1].Lon); d > 180 {
			t.Errorf("vertex %d jumps %f degrees of longitude", i, d)
		}
	}
}

func TestParseBulletin_QualifierFallback(t *testing.T) {
	rec := ParseBulletin(bulletin)[2]

	if len(rec.Coordinates) != 1 {
		t.Fatalf("got %d coordinates, want 1", len(rec.Coordinates))
	}
	c := rec.Coordinates[0]
	if c.Type != notam.CoordQualifierLine {
		t.Errorf("Type = %s, want QUALIFIER_LINE", c.Type)
	}
	if !almostEqual(c.Lat, 48.6667, 0.001) || !almostEqual(c.Lon, 3.0833, 0.001) {
		t.Errorf("position = (%f, %f)", c.Lat, c.Lon)
	}
	if c.Radius == nil || *c.Radius != 5 {
		t.Errorf("Radius = %v, want 5", c.Radius)
	}
	if rec.StartDate != nil || rec.EndDate != nil {
		t.Errorf("dates set without B)/C): %v %v", rec.StartDate, rec.EndDate)
	}
}

func TestDecode_OrderIndependentOfWorkers(t *testing.T) {
	var b strings.Builder
	for i := 0; i < 40; i++ {
		b.WriteString(bulletin)
		b.WriteString("\n")
	}
	// Repeated ids are dropped by segmentation, so add distinct ones too.
	for i := 0; i < 40; i++ {
		b.WriteString("B")
		b.WriteString(strings.Repeat("0", 3))
		b.WriteByte(byte('0' + i/10))
		b.WriteByte(byte('0' + i%10))
		b.WriteString("/25\nE) PSN 490204N 0022140E\n\n")
	}
	text := b.String()

	sequential := New(Options{Workers: 1}).Parse(text)
	parallel := New(Options{Workers: 8}).Parse(text)

	if len(sequential) != 43 {
		t.Fatalf("got %d records, want 43", len(sequential))
	}
	if len(parallel) != len(sequential) {
		t.Fatalf("parallel = %d records, sequential = %d", len(parallel), len(sequential))
	}
	for i := range sequential {
		if sequential[i].ID != parallel[i].ID {
			t.Fatalf("record %d: parallel id %s, sequential id %s", i, parallel[i].ID, sequential[i].ID)
		}
	}
}

func TestDecode_Empty(t *testing.T) {
	for _, text := range []string{"", "NO NOTAMS TODAY", "\n\n\n"} {
		res := New(Options{}).Decode(text)
		if res.Notices != 0 || len(res.Records) != 0 {
			t.Errorf("Decode(%q) = %+v, want nothing", text, res)
		}
	}
}

func TestParseNotice_LogsDropped(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

	d := New(Options{Logger: logger})
	recs := d.ParseNotice(notam.Notice{ID: "C0001/25", Body: "\nE) RWY CLSD"})
	if len(recs) != 0 {
		t.Fatalf("got %d records, want 0", len(recs))
	}
	if !strings.Contains(buf.String(), "C0001/25") {
		t.Errorf("log = %q, want the dropped id", buf.String())
	}
}

func TestTrace(t *testing.T) {
	traces := New(Options{}).Trace(bulletin)
	if len(traces) != 4 {
		t.Fatalf("got %d notice traces, want 4", len(traces))
	}
	if traces[0].ID != "A1234/25" {
		t.Errorf("first trace id = %s", traces[0].ID)
	}
	if len(traces[0].Traces) != 2 {
		t.Errorf("got %d parser traces, want 2", len(traces[0].Traces))
	}
}
