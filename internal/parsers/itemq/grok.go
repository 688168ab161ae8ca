// Package itemq provides grok-style pattern definitions for Q) qualifier lines.
package itemq

import "notam_parser/internal/patterns"

// Formats defines the qualifier line layout.
var Formats = []patterns.Format{
	// FIR/QCODE/TRAFFIC/PURPOSE/SCOPE/LOWER/UPPER/COORD
	// Example: LFFF/QWELW/IV/BO/W/000/050/4840N00305E005
	{
		Name: "qualifier_line",
		Pattern: `^\s*(?P<fir>{FIR})\s*/\s*(?P<code>{QCODE})\s*/\s*(?P<traffic>[A-Z]*)\s*/` +
			`\s*(?P<purpose>[A-Z]*)\s*/\s*(?P<scope>[A-Z]*)\s*/` +
			`\s*(?P<lower>{FL3})\s*/\s*(?P<upper>{FL3})\s*/` +
			`\s*(?P<coord>{LAT_Q}{LAT_DIR}{LON_Q}{LON_DIR}\d{0,3})`,
		Fields: []string{"fir", "code", "traffic", "purpose", "scope", "lower", "upper", "coord"},
	},
}
