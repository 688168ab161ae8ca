// Package registry provides a coordinate extractor registry for dispatching
// NOTAM notices to the extractors that understand them.
package registry

import (
	"sort"
	"sync"

	"notam_parser/internal/notam"
)

// Parser is implemented by each coordinate extractor.
type Parser interface {
	// Name returns the parser's unique identifier.
	Name() string

	// QuickCheck performs a fast check before expensive regex work.
	// Returns true if the notice MIGHT yield coordinates (false = definitely skip).
	QuickCheck(n *notam.Notice) bool

	// Priority determines order among parsers of the same kind.
	// Lower number = checked first.
	Priority() int

	// Parse extracts shapes from the notice, returns nil if not applicable.
	Parse(n *notam.Notice) *notam.Extraction
}

// Registry holds all registered parsers organised for dispatch.
type Registry struct {
	mu sync.RWMutex

	// global holds parsers tried on every notice, by priority.
	global []Parser

	// catchAll holds fallback parsers that run only when no global parser
	// produced a shape.
	catchAll []Parser

	sorted bool
}

// New creates a new Registry instance.
func New() *Registry {
	return &Registry{}
}

// Global default registry.
var defaultRegistry = New()

// Default returns the global registry instance.
func Default() *Registry {
	return defaultRegistry
}

// Register adds a parser to the default registry.
// Called during init() in each parser package.
func Register(p Parser) {
	defaultRegistry.Register(p)
}

// RegisterCatchAll adds a fallback parser to the default registry.
func RegisterCatchAll(p Parser) {
	defaultRegistry.RegisterCatchAll(p)
}

// Register adds a parser to the registry.
func (r *Registry) Register(p Parser) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.global = append(r.global, p)
	r.sorted = false
}

// RegisterCatchAll adds a fallback parser.
func (r *Registry) RegisterCatchAll(p Parser) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.catchAll = append(r.catchAll, p)
	r.sorted = false
}

// Sort sorts all parser slices by priority. Call before dispatching.
func (r *Registry) Sort() {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.sorted {
		return
	}

	sort.SliceStable(r.global, func(i, j int) bool {
		return r.global[i].Priority() < r.global[j].Priority()
	})
	sort.SliceStable(r.catchAll, func(i, j int) bool {
		return r.catchAll[i].Priority() < r.catchAll[j].Priority()
	})

	r.sorted = true
}

// Dispatch returns the first non-empty extraction from the global parsers,
// falling back to the catch-all parsers when none produced a shape.
// Returns nil when nothing applies.
func (r *Registry) Dispatch(n *notam.Notice) *notam.Extraction {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, p := range r.global {
		if !p.QuickCheck(n) {
			continue
		}
		if ex := p.Parse(n); !ex.Empty() {
			return ex
		}
	}

	for _, p := range r.catchAll {
		if !p.QuickCheck(n) {
			continue
		}
		if ex := p.Parse(n); !ex.Empty() {
			return ex
		}
	}

	return nil
}

// ParserCount returns the number of unique registered parsers.
func (r *Registry) ParserCount() int {
	return len(r.AllParsers())
}

// AllParsers returns all registered parsers, global first then catch-all.
func (r *Registry) AllParsers() []Parser {
	r.mu.RLock()
	defer r.mu.RUnlock()

	seen := make(map[string]bool)
	var result []Parser

	for _, list := range [][]Parser{r.global, r.catchAll} {
		for _, p := range list {
			if !seen[p.Name()] {
				seen[p.Name()] = true
				result = append(result, p)
			}
		}
	}

	return result
}

// Trace runs every traceable parser against the notice, in dispatch order.
func (r *Registry) Trace(n *notam.Notice) []*TraceResult {
	var traces []*TraceResult
	for _, p := range r.AllParsers() {
		if tp, ok := p.(Traceable); ok {
			traces = append(traces, tp.ParseWithTrace(n))
			continue
		}
		ex := p.Parse(n)
		traces = append(traces, &TraceResult{
			ParserName: p.Name(),
			QuickCheck: &QuickCheck{Passed: p.QuickCheck(n)},
			Matched:    !ex.Empty(),
		})
	}
	return traces
}
