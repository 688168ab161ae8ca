// Package iteme provides grok-style pattern definitions for E) item coordinate scanning.
package iteme

import "notam_parser/internal/patterns"

// Formats defines the coordinate token shapes found in free text.
var Formats = []patterns.Format{
	// Coordinate pair with optional space, slash or comma separator.
	// The leading guard stops a match starting inside a longer number.
	// Examples: 484024N 0030441E, 161514N0611540W, 4840N/00305E, 484024.5N 0030441.2E
	{
		Name: "coordinate",
		Pattern: `(?:^|[^0-9.])(?P<lat>{LAT_DMS})(?P<lat_dir>{LAT_DIR})` +
			`{COORD_SEP}(?P<lon>{LON_DMS})(?P<lon_dir>{LON_DIR})`,
		Fields: []string{"lat", "lat_dir", "lon", "lon_dir"},
	},
}
