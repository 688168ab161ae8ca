// Package patterns provides shared regex patterns and helper functions for NOTAM decoding.
// This file contains coordinate conversion utilities.

package patterns

import (
	"strconv"
	"strings"

	"notam_parser/internal/notam"
)

var dmsCompiler = MustCompile([]Format{
	{
		Name:    "dms_spaced",
		Pattern: `^\s*(?P<lat>{LAT_STRICT})(?P<lat_dir>{LAT_DIR})?\s+(?P<lon>{LON_STRICT})(?P<lon_dir>{LON_DIR})?\s*$`,
		Fields:  []string{"lat", "lat_dir", "lon", "lon_dir"},
	},
	{
		Name:    "dms_compact",
		Pattern: `^\s*(?P<lat>{LAT_STRICT})(?P<lat_dir>{LAT_DIR})?(?P<lon>{LON_STRICT})(?P<lon_dir>{LON_DIR})?\s*$`,
		Fields:  []string{"lat", "lat_dir", "lon", "lon_dir"},
	},
}, nil)

var qualifierCompiler = MustCompile([]Format{
	{
		Name:    "qualifier_coord",
		Pattern: `^(?P<lat>{LAT_Q})(?P<lat_dir>{LAT_DIR})(?P<lon>{LON_Q})(?P<lon_dir>{LON_DIR})(?P<radius>\d{3})?$`,
		Fields:  []string{"lat", "lat_dir", "lon", "lon_dir", "radius"},
	},
}, nil)

// ParseDMSCoord parses a degrees/minutes/seconds field and returns decimal degrees.
// Supported layouts, with D the degree digits (2 for lat, 3 for lon):
//   - DDMM (e.g., 4840 = 48°40')
//   - DDMMd (e.g., 48405 = 48°40.5')
//   - DDMMSS (e.g., 484024 = 48°40'24")
//   - DDMMSSs (e.g., 4908325 = 49°08'32.5")
//   - DDMMSS.ss (e.g., 484024.50)
//   - DDMM.mm (e.g., 4840.40 = 48°40.40')
//
// dir is the direction (N/S/E/W) - S and W result in negative values.
// ok is false when the field is malformed or minutes or seconds reach 60.
func ParseDMSCoord(s string, degDigits int, dir string) (float64, bool) {
	whole, frac, hasFrac := strings.Cut(s, ".")
	if len(whole) < degDigits+2 || !allDigits(whole) {
		return 0, false
	}
	if hasFrac && (frac == "" || !allDigits(frac)) {
		return 0, false
	}

	deg, _ := strconv.Atoi(whole[:degDigits])
	minWhole, _ := strconv.Atoi(whole[degDigits : degDigits+2])
	rest := whole[degDigits+2:]

	minutes := float64(minWhole)
	var seconds float64

	switch {
	case hasFrac && rest == "":
		// DDMM.mm: decimal minutes.
		minutes, _ = strconv.ParseFloat(whole[degDigits:]+"."+frac, 64)
	case hasFrac:
		seconds, _ = strconv.ParseFloat(rest+"."+frac, 64)
	case len(rest) == 0:
	case len(rest) == 1:
		tenths, _ := strconv.Atoi(rest)
		minutes += float64(tenths) / 10.0
	case len(rest) == 2:
		sec, _ := strconv.Atoi(rest)
		seconds = float64(sec)
	default:
		// Digits past the second are fractional seconds.
		seconds, _ = strconv.ParseFloat(rest[:2]+"."+rest[2:], 64)
	}

	if minutes >= 60 || seconds >= 60 {
		return 0, false
	}

	result := float64(deg) + minutes/60.0 + seconds/3600.0

	if dir == "S" || dir == "W" {
		result = -result
	}

	return result, true
}

// ParseLatitude parses a latitude value with direction.
// Expects 2 degree digits.
func ParseLatitude(value, dir string) (float64, bool) {
	v, ok := ParseDMSCoord(value, 2, dir)
	if !ok || v < -90 || v > 90 {
		return 0, false
	}
	return v, true
}

// ParseLongitude parses a longitude value with direction.
// Expects 3 degree digits.
func ParseLongitude(value, dir string) (float64, bool) {
	v, ok := ParseDMSCoord(value, 3, dir)
	if !ok || v < -180 || v > 180 {
		return 0, false
	}
	return v, true
}

// NormalizeLongitude resolves a longitude field whose degree width is
// ambiguous, using the latitude field as a hint for the seconds precision.
//
// A 7-digit longitude is either DDDMMSS missing a trailing tenths digit or
// DDMMSSs missing a leading zero. Leading '0' means the degrees are already
// three digits, so a zero is appended. Otherwise the latitude decides: a
// 6-digit or decimal latitude suggests whole seconds (append), a 7-digit one
// suggests tenths (prepend). A 6-digit longitude paired with a 6-digit
// latitude is DDMMSS missing its leading zero.
//
// The heuristic is known to misread some inputs; see the exceptions table in
// the tests.
func NormalizeLongitude(lat, lon string) string {
	if strings.Contains(lon, ".") {
		return lon
	}
	latDecimal := strings.Contains(lat, ".")
	switch len(lon) {
	case 7:
		if lon[0] == '0' || len(lat) == 6 || latDecimal {
			return lon + "0"
		}
		return "0" + lon
	case 6:
		if len(lat) == 6 && !latDecimal {
			return "0" + lon
		}
	}
	return lon
}

// DecodeToken decodes captured latitude and longitude fields. Missing
// directions default to N and E.
func DecodeToken(lat, latDir, lon, lonDir string) (float64, float64, bool) {
	if latDir == "" {
		latDir = "N"
	}
	if lonDir == "" {
		lonDir = "E"
	}

	la, ok := ParseLatitude(lat, latDir)
	if !ok {
		return 0, 0, false
	}
	lo, ok := ParseLongitude(NormalizeLongitude(lat, lon), lonDir)
	if !ok {
		return 0, 0, false
	}
	return la, lo, true
}

// DecodeDMS decodes a whole coordinate token such as "484024N 0030441E" or
// "161514N0611540W". The spaced form is tried before the compact form.
func DecodeDMS(text string) (lat, lon float64, ok bool) {
	m := dmsCompiler.Parse(text)
	if m == nil {
		return 0, 0, false
	}
	return DecodeToken(
		m.GetCapture("lat", ""),
		m.GetCapture("lat_dir", "N"),
		m.GetCapture("lon", ""),
		m.GetCapture("lon_dir", "E"),
	)
}

// QualifierCoord is the coarse centre and radius from a Q) line.
type QualifierCoord struct {
	Lat    float64
	Lon    float64
	Radius *float64 // Nautical miles, nil if absent.
}

// DecodeQualifierCoord decodes a DDMM[NS]DDDMM[EW][RRR] field.
func DecodeQualifierCoord(s string) (QualifierCoord, bool) {
	m := qualifierCompiler.Parse(strings.TrimSpace(s))
	if m == nil {
		return QualifierCoord{}, false
	}

	lat, ok := ParseLatitude(m.Captures["lat"], m.Captures["lat_dir"])
	if !ok {
		return QualifierCoord{}, false
	}
	lon, ok := ParseLongitude(m.Captures["lon"], m.Captures["lon_dir"])
	if !ok {
		return QualifierCoord{}, false
	}

	qc := QualifierCoord{Lat: lat, Lon: lon}
	if r := m.GetCapture("radius", ""); r != "" {
		v, _ := strconv.Atoi(r)
		radius := float64(v)
		qc.Radius = &radius
	}
	return qc, true
}

// RadiusToNM converts a radius to nautical miles.
func RadiusToNM(value float64, unit notam.RadiusUnit) float64 {
	switch unit {
	case notam.UnitKM:
		return value / 1.852
	case notam.UnitM:
		return value / 1852.0
	default:
		return value
	}
}

func allDigits(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}
