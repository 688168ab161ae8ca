// Package iteme extracts positions, circles and areas from the free-text E) item.
package iteme

import (
	"strconv"
	"strings"
	"sync"

	"notam_parser/internal/notam"
	"notam_parser/internal/patterns"
	"notam_parser/internal/registry"
)

// Parser extracts coordinate groups from the E) item.
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
	registry.Register(&Parser{})
}

func (p *Parser) Name() string  { return "item_e" }
func (p *Parser) Priority() int { return 10 }

// quickKeywords are cheap substrings of every trigger keyword.
var quickKeywords = []string{"PSN", "CENT", "OBST", "AREA", "LATERAL", "LIMITES", "GRANICE", "COORD"}

func (p *Parser) QuickCheck(n *notam.Notice) bool {
	secs := sectionsOf(n)
	if strings.HasPrefix(patterns.ExtractQCode(secs[notam.SectionQ]), "QOB") {
		return true
	}
	eText, ok := secs.Get(notam.SectionE)
	if !ok || eText == "" {
		return false
	}
	upper := strings.ToUpper(eText)
	for _, kw := range quickKeywords {
		if strings.Contains(upper, kw) {
			return true
		}
	}
	return false
}

func (p *Parser) Parse(n *notam.Notice) *notam.Extraction {
	return p.extract(n, nil)
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
		trace.QuickCheck.Reason = "No E) item or no trigger keyword"
		return trace
	}

	ex := p.extract(n, trace)
	if ex != nil {
		trace.Shapes = ex.Shapes
	}
	trace.Matched = !ex.Empty()
	return trace
}

// extract runs trigger matching, the scan and classification. trace may be nil.
func (p *Parser) extract(n *notam.Notice, trace *registry.TraceResult) *notam.Extraction {
	secs := sectionsOf(n)
	eText := strings.ToUpper(secs[notam.SectionE])
	qCode := patterns.ExtractQCode(secs[notam.SectionQ])

	triggers := patterns.MatchTriggers(eText, qCode)
	if trace != nil {
		for _, h := range triggers.Hits {
			trace.Triggers = append(trace.Triggers, registry.Trigger{Kind: string(h.Kind), Text: h.Text, Start: h.Start})
		}
		if triggers.Has(patterns.TriggerObstacleCode) {
			trace.Triggers = append(trace.Triggers, registry.Trigger{Kind: string(patterns.TriggerObstacleCode), Text: qCode, Start: -1})
		}
		trace.StartIndex = triggers.StartIndex
	}
	if !triggers.Any() {
		return nil
	}

	groups := p.scan(eText, triggers, trace)
	shapes := shapesFor(eText, triggers, groups)
	if len(shapes) == 0 {
		return nil
	}

	return &notam.Extraction{
		Extractor: p.Name(),
		Shapes:    shapes,
	}
}

// scan walks the coordinate tokens left to right and groups them.
func (p *Parser) scan(text string, triggers patterns.Triggers, trace *registry.TraceResult) []notam.CoordinateGroup {
	compiler, err := getCompiler()
	if err != nil {
		return nil
	}

	sc := newScanner()

	for _, loc := range compiler.FindAllIndexed(text, "coordinate") {
		start := loc.Spans["lat"][0]
		end := loc.Spans["lon_dir"][1]
		original := text[start:end]

		lat, lon, ok := patterns.DecodeToken(loc.Captures["lat"], loc.Captures["lat_dir"], loc.Captures["lon"], loc.Captures["lon_dir"])
		if !ok {
			recordStep(trace, original, start, 0, 0, actionUndecodable, sc.state)
			continue
		}

		c := notam.Coordinate{
			Original: original,
			Lat:      lat,
			Lon:      lon,
			Type:     notam.CoordPSN,
		}
		if r, ok := patterns.ExtractRadius(text, start, end); ok {
			v := r.Value
			c.Radius = &v
			c.RadiusUnit = r.Unit
			if trace != nil {
				trace.Extractors = append(trace.Extractors, registry.Extractor{
					Name:    "radius",
					Pattern: patterns.RadiusAfterPattern.String(),
					Matched: true,
					Value:   original + " " + formatRadius(r),
				})
			}
		}

		var action scanAction
		switch {
		case isStandalonePosition(text, start, end):
			action = sc.standalone(c)
		case start < triggers.StartIndex:
			action = actionSkipped
		default:
			action = sc.feed(c)
		}
		recordStep(trace, original, start, lat, lon, action, sc.state)
	}

	return sc.finish()
}

func recordStep(trace *registry.TraceResult, original string, start int, lat, lon float64, action scanAction, state scanState) {
	if trace == nil {
		return
	}
	trace.Steps = append(trace.Steps, registry.ScanStep{
		Original: original,
		Start:    start,
		Lat:      lat,
		Lon:      lon,
		Action:   string(action),
		State:    state.String(),
	})
}

func formatRadius(r patterns.Radius) string {
	return strconv.FormatFloat(r.Value, 'f', -1, 64) + string(r.Unit)
}

// sectionsOf returns the notice's parsed items, parsing the body when the
// caller has not done so.
func sectionsOf(n *notam.Notice) notam.Sections {
	if n.Sections != nil {
		return n.Sections
	}
	return notam.ParseSections(n.Body)
}
