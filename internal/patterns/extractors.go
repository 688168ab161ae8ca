// Package patterns provides extraction functions for NOTAM decoding.
package patterns

import (
	"strconv"
	"strings"

	"notam_parser/internal/notam"
)

// radiusWindow is how many bytes either side of a coordinate are searched
// for a radius.
const radiusWindow = 50

// Radius is a radius as written in the text.
type Radius struct {
	Value float64
	Unit  notam.RadiusUnit
}

// NM returns the radius in nautical miles.
func (r Radius) NM() float64 {
	return RadiusToNM(r.Value, r.Unit)
}

// ExtractRadius looks for a radius attached to the coordinate spanning
// text[start:end]. A "RADIUS n UNIT" immediately after the coordinate wins;
// otherwise the last "n UNIT RADIUS" or "RADIUS n UNIT" in the preceding
// window is used.
func ExtractRadius(text string, start, end int) (Radius, bool) {
	if start < 0 || end > len(text) || start > end {
		return Radius{}, false
	}

	after := text[end:min(end+radiusWindow, len(text))]
	if m := RadiusAfterPattern.FindStringSubmatch(after); m != nil {
		return buildRadius(m[1], m[2])
	}

	before := text[max(0, start-radiusWindow):start]
	matches := RadiusBeforePattern.FindAllStringSubmatch(before, -1)
	if len(matches) == 0 {
		return Radius{}, false
	}
	m := matches[len(matches)-1]
	if m[1] != "" {
		return buildRadius(m[1], m[2])
	}
	return buildRadius(m[3], m[4])
}

func buildRadius(number, unit string) (Radius, bool) {
	v, err := strconv.ParseFloat(strings.ReplaceAll(number, ",", "."), 64)
	if err != nil {
		return Radius{}, false
	}
	return Radius{Value: v, Unit: notam.RadiusUnit(strings.ToUpper(unit))}, true
}

// ExtractICAOCodes returns the leading run of 4-letter location indicators
// in an A) item.
func ExtractICAOCodes(aText string) []string {
	var codes []string
	for _, tok := range strings.Fields(strings.ToUpper(aText)) {
		if !icaoTokenPattern.MatchString(tok) {
			break
		}
		codes = append(codes, tok)
	}
	return codes
}

// ExtractQCode returns the notice code (second field) of a Q) item.
func ExtractQCode(qText string) string {
	fields := strings.Split(qText, "/")
	if len(fields) < 2 {
		return ""
	}
	return strings.ToUpper(strings.TrimSpace(fields[1]))
}
