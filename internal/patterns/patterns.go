// Package patterns provides shared regex patterns and helper functions for NOTAM decoding.
package patterns

import (
	"regexp"
)

// Coordinate shapes in free text.
var (
	// CoordTokenPattern matches a coordinate-shaped token anywhere.
	CoordTokenPattern = regexp.MustCompile(Expand(`{COORD}`))

	// ParenCoordPattern matches a coordinate wrapped in parentheses, the usual
	// way a ring's closing vertex is written.
	ParenCoordPattern = regexp.MustCompile(Expand(`\(\s*{COORD}\s*\)`))

	// CoordChainPattern matches two or more coordinates joined by dashes.
	CoordChainPattern = regexp.MustCompile(Expand(`{COORD}(?:\s*-\s*\(?\s*{COORD}\s*\)?)+`))

	// ChainContinuesPattern matches a dash followed by another coordinate at
	// the start of the text.
	ChainContinuesPattern = regexp.MustCompile(Expand(`^\s*-\s*\(?\s*{COORD}`))
)

// Radius patterns.
var (
	RadiusAfterPattern = regexp.MustCompile(Expand(`(?i)^[\s,;:-]*RADIUS\s+(?:OF\s+)?({NUMBER})\s*({RADIUS_UNIT})\b`))

	RadiusBeforePattern = regexp.MustCompile(Expand(`(?i)({NUMBER})\s*({RADIUS_UNIT})\s+RADIUS|RADIUS\s+(?:OF\s+)?({NUMBER})\s*({RADIUS_UNIT})\b`))
)

// Trigger keywords, matched together in one pass by MatchTriggers.
var (
	TriggerPattern = regexp.MustCompile(`(?P<psn>\bPSN\b)` +
		`|(?P<centre>\bCENT(?:RE|ER)(?:D|ED|S)?\b)` +
		`|(?P<obst>\bOBST)` +
		`|(?P<area>\b(?:LATERAL\s+LIMITS|LIMITES\s+LAT(?:E|É)RALES|GRANICE\s+POZIOME|WI\s+COORD|AREAS?)\b)`)

	// restrictedInPattern matches text that ends just before a false-positive
	// "RESTRICTED IN AREA".
	restrictedInPattern = regexp.MustCompile(`RESTRICTED\s+IN\s+$`)
)

// Item A) location indicators.
var icaoTokenPattern = regexp.MustCompile(Expand(`^{ICAO}$`))
