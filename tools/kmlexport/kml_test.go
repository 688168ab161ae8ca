package main

import (
	"encoding/xml"
	"strings"
	"testing"
	"time"

	"notam_parser/internal/extractor"
)

const bulletin = `A1234/25 NOTAMN
A) LFPG B) 2501010800 C) 2501311800
E) TEMPO OBST CRANE PSN 490204N 0022140E HGT 300FT

A1235/25 NOTAMN
A) LFFF B) 2502010000 C) PERM
E) DANGER AREA WI COORD 484024N 0030441E - 484500N 0031000E - 485000N 0031500E - 484024N 0030441E
`

func TestGenerateKML(t *testing.T) {
	records := extractor.ParseBulletin(bulletin)
	if len(records) != 2 {
		t.Fatalf("got %d records, want 2", len(records))
	}

	kml := generateKML(records, time.Date(2025, 1, 15, 0, 0, 0, 0, time.UTC))
	pms := kml.Document.Placemarks
	if len(pms) != 2 {
		t.Fatalf("got %d placemarks, want 2", len(pms))
	}

	if pms[0].Point == nil || pms[0].Polygon != nil {
		t.Errorf("first placemark should be a point: %+v", pms[0])
	}
	if pms[0].Point != nil && pms[0].Point.Coordinates != "2.361111,49.034444,0" {
		t.Errorf("point coordinates = %q", pms[0].Point.Coordinates)
	}

	if pms[1].Polygon == nil {
		t.Fatalf("second placemark should be a polygon: %+v", pms[1])
	}
	ring := strings.Fields(pms[1].Polygon.OuterBoundary.LinearRing.Coordinates)
	if len(ring) != 4 {
		t.Fatalf("ring has %d positions, want 4 (closed triangle)", len(ring))
	}
	if ring[0] != ring[3] {
		t.Errorf("ring not closed: %s != %s", ring[0], ring[3])
	}

	status := map[string]string{}
	for _, pm := range pms {
		for _, d := range pm.ExtendedData.Data {
			if d.Name == "status" {
				status[pm.Name] = d.Value
			}
		}
	}
	if status["A1234/25"] != "active" || status["A1235/25"] != "upcoming" {
		t.Errorf("status = %v", status)
	}
}

func TestGenerateKML_Marshal(t *testing.T) {
	kml := generateKML(extractor.ParseBulletin(bulletin), time.Now())

	out, err := xml.MarshalIndent(kml, "", "  ")
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	s := string(out)
	for _, want := range []string{`<kml xmlns="http://www.opengis.net/kml/2.2">`, "<Polygon>", "<LinearRing>", "<Point>"} {
		if !strings.Contains(s, want) {
			t.Errorf("output missing %s", want)
		}
	}
	if strings.Count(s, "<Point>") != 1 {
		t.Errorf("got %d Point elements, want 1", strings.Count(s, "<Point>"))
	}
}

func TestLoadRecords_Errors(t *testing.T) {
	if _, err := loadRecords("", "", ""); err == nil {
		t.Error("expected an error without a source")
	}
	if _, err := loadRecords("a.txt", "b.db", ""); err == nil {
		t.Error("expected an error with two sources")
	}
}
