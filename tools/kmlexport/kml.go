package main

import (
	"encoding/xml"
	"fmt"
	"strconv"
	"strings"
	"time"

	"notam_parser/internal/enrichment"
	"notam_parser/internal/notam"
)

// KML structures for XML marshalling.
// These follow the KML 2.2 specification: https://developers.google.com/kml/documentation/kmlreference

// KML is the root element of a KML document.
type KML struct {
	XMLName   xml.Name `xml:"kml"`
	Namespace string   `xml:"xmlns,attr"`
	Document  Document `xml:"Document"`
}

// Document contains the document metadata and features.
type Document struct {
	Name        string      `xml:"name"`
	Description string      `xml:"description,omitempty"`
	Styles      []Style     `xml:"Style,omitempty"`
	Placemarks  []Placemark `xml:"Placemark"`
}

// Style defines the visual appearance of features.
type Style struct {
	ID        string     `xml:"id,attr"`
	IconStyle *IconStyle `xml:"IconStyle,omitempty"`
	LineStyle *LineStyle `xml:"LineStyle,omitempty"`
	PolyStyle *PolyStyle `xml:"PolyStyle,omitempty"`
}

// IconStyle defines how icons are displayed.
type IconStyle struct {
	Scale float64 `xml:"scale,omitempty"`
	Icon  Icon    `xml:"Icon"`
}

// Icon specifies the icon image.
type Icon struct {
	Href string `xml:"href"`
}

// LineStyle defines polygon outlines.
type LineStyle struct {
	Color string  `xml:"color"` // aabbggrr
	Width float64 `xml:"width"`
}

// PolyStyle defines polygon fills.
type PolyStyle struct {
	Color string `xml:"color"`
}

// Placemark represents a geographic feature with geometry and metadata.
// Exactly one of Point and Polygon is set.
type Placemark struct {
	Name         string        `xml:"name"`
	Description  string        `xml:"description,omitempty"`
	StyleURL     string        `xml:"styleUrl,omitempty"`
	Point        *Point        `xml:"Point,omitempty"`
	Polygon      *Polygon      `xml:"Polygon,omitempty"`
	ExtendedData *ExtendedData `xml:"ExtendedData,omitempty"`
}

// Point represents a geographic location.
type Point struct {
	Coordinates string `xml:"coordinates"` // Format: lon,lat,altitude
}

// Polygon is an area bounded by one closed ring.
type Polygon struct {
	OuterBoundary Boundary `xml:"outerBoundaryIs"`
}

// Boundary wraps the ring of a polygon.
type Boundary struct {
	LinearRing LinearRing `xml:"LinearRing"`
}

// LinearRing is a closed line; the first and last coordinates are equal.
type LinearRing struct {
	Coordinates string `xml:"coordinates"`
}

// ExtendedData holds custom data associated with a placemark.
type ExtendedData struct {
	Data []Data `xml:"Data"`
}

// Data represents a single piece of extended data.
type Data struct {
	Name  string `xml:"name,attr"`
	Value string `xml:"value"`
}

func kmlCoord(c notam.Coordinate) string {
	return fmt.Sprintf("%.6f,%.6f,0", c.Lon, c.Lat)
}

// ringCoordinates closes the ring, since decoded polygons omit the closing vertex.
func ringCoordinates(g notam.CoordinateGroup) string {
	parts := make([]string, 0, len(g)+1)
	for _, c := range g {
		parts = append(parts, kmlCoord(c))
	}
	parts = append(parts, kmlCoord(g[0]))
	return strings.Join(parts, " ")
}

// generateKML creates a KML document from the records.
func generateKML(records []notam.Record, now time.Time) KML {
	placemarks := make([]Placemark, 0, len(records))
	for _, rec := range records {
		if len(rec.Coordinates) == 0 {
			continue
		}
		summary := enrichment.Summarize(rec, now)

		pm := Placemark{
			Name:        rec.ID,
			Description: rec.FullContent,
			ExtendedData: &ExtendedData{
				Data: []Data{
					{Name: "status", Value: string(summary.Status)},
					{Name: "icao_codes", Value: strings.Join(rec.ICAOCodes, " ")},
					{Name: "permanent", Value: strconv.FormatBool(rec.Permanent)},
				},
			},
		}
		if rec.StartDate != nil {
			pm.ExtendedData.Data = append(pm.ExtendedData.Data, Data{Name: "start_date", Value: rec.StartDate.Format(time.RFC3339)})
		}
		if rec.EndDate != nil {
			pm.ExtendedData.Data = append(pm.ExtendedData.Data, Data{Name: "end_date", Value: rec.EndDate.Format(time.RFC3339)})
		}

		if rec.IsPolygon && len(rec.Coordinates) >= 3 {
			pm.StyleURL = "#areaStyle"
			pm.Polygon = &Polygon{OuterBoundary: Boundary{LinearRing: LinearRing{Coordinates: ringCoordinates(rec.Coordinates)}}}
		} else {
			pm.StyleURL = "#pointStyle"
			pm.Point = &Point{Coordinates: kmlCoord(rec.Coordinates[0])}
			if summary.RadiusNM != nil {
				pm.ExtendedData.Data = append(pm.ExtendedData.Data,
					Data{Name: "radius_nm", Value: strconv.FormatFloat(*summary.RadiusNM, 'f', -1, 64)})
			}
		}

		placemarks = append(placemarks, pm)
	}

	return KML{
		Namespace: "http://www.opengis.net/kml/2.2",
		Document: Document{
			Name:        "NOTAM Areas",
			Description: fmt.Sprintf("Positions and areas decoded from NOTAMs. Generated %s.", now.Format("2006-01-02 15:04:05")),
			Styles: []Style{
				{
					ID: "pointStyle",
					IconStyle: &IconStyle{
						Scale: 0.8,
						Icon: Icon{
							Href: "http://maps.google.com/mapfiles/kml/shapes/caution.png",
						},
					},
				},
				{
					ID:        "areaStyle",
					LineStyle: &LineStyle{Color: "ff0000ff", Width: 2},
					PolyStyle: &PolyStyle{Color: "400000ff"},
				},
			},
			Placemarks: placemarks,
		},
	}
}
