// Package patterns provides shared regex patterns and helper functions for NOTAM decoding.
// This file contains grok-style base patterns for use with the Compiler.

package patterns

// BasePatterns defines reusable regex components for grok-style pattern composition.
// These are referenced in format patterns using {PATTERN_NAME} syntax. A base
// pattern may itself reference other base patterns.
var BasePatterns = map[string]string{
	// Location indicators.
	"ICAO": `[A-Z]{4}`,
	"FIR":  `[A-Z]{4}`,

	// Notice identifiers: optional authority, series letter, number/year.
	"SERIES":    `[A-Z]\d{1,5}/\d{2,4}`,
	"AUTHORITY": `[A-Z]{4}[ -]`,
	"ACTION":    `NOTAM[NRC]?`,
	"QCODE":     `Q[A-Z]{4}`,

	// Coordinates - latitude.
	"LAT_DIR":    `[NS]`,
	"LAT_DMS":    `\d{4,7}(?:\.\d+)?`, // DDMM, DDMMD, DDMMSS, DDMMSSs, optional fraction
	"LAT_STRICT": `\d{6,7}(?:\.\d+)?`, // DDMMSS[s] only
	"LAT_Q":      `\d{4}`,             // DDMM

	// Coordinates - longitude.
	"LON_DIR":    `[EW]`,
	"LON_DMS":    `\d{5,8}(?:\.\d+)?`,
	"LON_STRICT": `\d{7,8}(?:\.\d+)?`,
	"LON_Q":      `\d{5}`, // DDDMM

	// Separator between latitude and longitude in free text.
	"COORD_SEP": `\s*[/,]?\s*`,

	// A coordinate-shaped token, without captures.
	"COORD": `{LAT_DMS}{LAT_DIR}{COORD_SEP}{LON_DMS}{LON_DIR}`,

	// Distances.
	"NUMBER":      `\d+(?:[.,]\d+)?`,
	"RADIUS_UNIT": `NM|KM|M`,

	// Flight levels on the Q line.
	"FL3": `\d{3}`,
}
