// Package registry provides tracing interfaces for parser debugging.
package registry

import "notam_parser/internal/notam"

// TraceResult contains trace information from a parser's attempt to extract
// coordinates from a notice.
type TraceResult struct {
	ParserName string        // Name of the parser.
	QuickCheck *QuickCheck   // QuickCheck result (nil if not applicable).
	Triggers   []Trigger     // Keywords that enabled extraction.
	StartIndex int           // Extraction start index in the scanned text.
	Formats    []FormatTrace // Format/pattern match attempts (for grok-style parsers).
	Steps      []ScanStep    // One entry per coordinate token, in scan order.
	Extractors []Extractor   // Post-processing extractor results.
	Shapes     []notam.Shape // Shapes produced.
	Matched    bool          // Whether the parser produced any shape.
}

// QuickCheck contains the result of a parser's quick check.
type QuickCheck struct {
	Passed bool   // Whether the quick check passed.
	Reason string // Optional reason for the result.
}

// Trigger is one keyword hit.
type Trigger struct {
	Kind  string
	Text  string
	Start int
}

// FormatTrace contains debug information about a format/pattern match attempt.
type FormatTrace struct {
	Name     string            // Format or pattern name.
	Matched  bool              // Whether the pattern matched.
	Pattern  string            // The regex pattern used.
	Captures map[string]string // Captured groups (if matched).
}

// ScanStep records how one coordinate token was classified.
type ScanStep struct {
	Original string  // Token text.
	Start    int     // Byte offset in the scanned text.
	Lat      float64 // Decoded latitude.
	Lon      float64 // Decoded longitude.
	Action   string  // standalone, skipped, appended, closed, repeat, undecodable.
	State    string  // Scanner state after the step.
}

// Extractor contains debug information about a field extractor.
type Extractor struct {
	Name    string // Extractor name (e.g., "radius", "icao").
	Pattern string // The regex pattern used.
	Matched bool   // Whether the extractor matched.
	Value   string // Extracted value (if matched).
}

// Traceable is implemented by parsers that support debug tracing.
// This allows the debug command to show detailed information about
// why a parser did or didn't match a notice.
type Traceable interface {
	// ParseWithTrace attempts extraction and returns detailed trace information.
	ParseWithTrace(n *notam.Notice) *TraceResult
}
