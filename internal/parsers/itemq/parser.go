// Package itemq decodes the Q) qualifier line and offers its coarse centre
// as a fallback position.
package itemq

import (
	"strconv"
	"strings"
	"sync"

	"notam_parser/internal/notam"
	"notam_parser/internal/patterns"
	"notam_parser/internal/registry"
)

// qualifierFields is the field count after splitting on '/'. The
// lower/upper pair contributes two.
const qualifierFields = 8

// ParseQualifierLine decodes the text of a Q) item. Returns nil when there
// are too few fields or the coordinate field does not decode.
func ParseQualifierLine(text string) *notam.QualifierLine {
	parts := strings.Split(text, "/")
	if len(parts) < qualifierFields {
		return nil
	}
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}

	coordField := strings.ToUpper(parts[7])
	qc, ok := patterns.DecodeQualifierCoord(coordField)
	if !ok {
		return nil
	}

	// Unreadable flight levels read as zero.
	lower, _ := strconv.Atoi(parts[5])
	upper, _ := strconv.Atoi(parts[6])

	return &notam.QualifierLine{
		FIR:     parts[0],
		Code:    parts[1],
		Traffic: parts[2],
		Purpose: parts[3],
		Scope:   parts[4],
		Lower:   lower,
		Upper:   upper,
		Lat:     qc.Lat,
		Lon:     qc.Lon,
		Radius:  qc.Radius,
		Coord:   coordField,
	}
}

// Parser is the catch-all that falls back to the qualifier line centre.
type Parser struct{}

// Grok compiler singleton.
var (
	grokCompiler *patterns.Compiler
	grokOnce     sync.Once
	grokErr      error
)

// getCompiler returns the singleton grok compiler.
func getCompiler() (*patterns.Compiler, error) {
	grokOnce.Do(func() {
		grokCompiler = patterns.NewCompiler(Formats, nil)
		grokErr = grokCompiler.Compile()
	})
	return grokCompiler, grokErr
}

func init() {
	registry.RegisterCatchAll(&Parser{})
}

func (p *Parser) Name() string  { return "item_q" }
func (p *Parser) Priority() int { return 1000 }

func (p *Parser) QuickCheck(n *notam.Notice) bool {
	q, ok := sectionsOf(n).Get(notam.SectionQ)
	return ok && strings.Count(q, "/") >= qualifierFields-1
}

func (p *Parser) Parse(n *notam.Notice) *notam.Extraction {
	ql := ParseQualifierLine(sectionsOf(n)[notam.SectionQ])
	if ql == nil {
		return nil
	}

	c := notam.Coordinate{
		Original: ql.Coord,
		Lat:      ql.Lat,
		Lon:      ql.Lon,
		Type:     notam.CoordQualifierLine,
	}
	if ql.Radius != nil {
		c.Radius = ql.Radius
		c.RadiusUnit = notam.UnitNM
	}

	return &notam.Extraction{
		Extractor: p.Name(),
		Shapes:    []notam.Shape{{Coordinates: notam.CoordinateGroup{c}}},
	}
}

// ParseWithTrace implements registry.Traceable for detailed debugging.
func (p *Parser) ParseWithTrace(n *notam.Notice) *registry.TraceResult {
	trace := &registry.TraceResult{
		ParserName: p.Name(),
	}

	quickCheckPassed := p.QuickCheck(n)
	trace.QuickCheck = &registry.QuickCheck{
		Passed: quickCheckPassed,
	}
	if !quickCheckPassed {
		trace.QuickCheck.Reason = "No Q) item or too few fields"
		return trace
	}

	compiler, err := getCompiler()
	if err != nil {
		trace.QuickCheck.Reason = "Compiler error: " + err.Error()
		return trace
	}

	qText := sectionsOf(n)[notam.SectionQ]
	grokTrace := compiler.ParseWithTrace(qText)
	for _, ft := range grokTrace.Formats {
		trace.Formats = append(trace.Formats, registry.FormatTrace{
			Name:     ft.Name,
			Matched:  ft.Matched,
			Pattern:  ft.Pattern,
			Captures: ft.Captures,
		})
	}

	ex := p.Parse(n)
	if ex != nil {
		trace.Shapes = ex.Shapes
		c := ex.Shapes[0].Coordinates[0]
		trace.Extractors = append(trace.Extractors, registry.Extractor{
			Name:    "coord",
			Pattern: "DDMM[NS]DDDMM[EW][RRR]",
			Matched: true,
			Value:   c.Original,
		})
	}
	trace.Matched = !ex.Empty()
	return trace
}

func sectionsOf(n *notam.Notice) notam.Sections {
	if n.Sections != nil {
		return n.Sections
	}
	return notam.ParseSections(n.Body)
}
