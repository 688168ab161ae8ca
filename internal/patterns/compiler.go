// Package patterns provides shared regex patterns and helper functions for NOTAM decoding.
// This file contains the grok-style pattern compiler.

package patterns

import (
	"regexp"
	"strings"
)

// maxExpandDepth bounds nested placeholder expansion.
const maxExpandDepth = 8

// Format represents a text format with named capture groups.
type Format struct {
	Name     string         // Format name for identification
	Pattern  string         // Pattern with {PLACEHOLDER} syntax
	Compiled *regexp.Regexp // Compiled regex (populated by Compile)
	Fields   []string       // Field names in capture order (for documentation)
}

// Compiler manages pattern compilation and parsing for a set of formats.
type Compiler struct {
	basePatterns map[string]string
	formats      []Format
}

// NewCompiler creates a new pattern compiler with the given formats.
// It merges the provided base patterns with the global BasePatterns,
// allowing local patterns to override global ones.
func NewCompiler(formats []Format, localPatterns map[string]string) *Compiler {
	c := &Compiler{
		basePatterns: make(map[string]string),
		formats:      make([]Format, len(formats)),
	}

	for k, v := range BasePatterns {
		c.basePatterns[k] = v
	}

	// Overlay local patterns (can override global ones).
	for k, v := range localPatterns {
		c.basePatterns[k] = v
	}

	copy(c.formats, formats)

	return c
}

// MustCompile builds a compiler and panics if any format fails to compile.
// Intended for package-level format tables.
func MustCompile(formats []Format, localPatterns map[string]string) *Compiler {
	c := NewCompiler(formats, localPatterns)
	if err := c.Compile(); err != nil {
		panic("patterns: " + err.Error())
	}
	return c
}

// Compile expands all {PLACEHOLDER} references and compiles regexes.
func (c *Compiler) Compile() error {
	for i := range c.formats {
		expanded := c.expand(c.formats[i].Pattern)
		re, err := regexp.Compile(expanded)
		if err != nil {
			return err
		}
		c.formats[i].Compiled = re
	}
	return nil
}

// Expand replaces placeholders in a pattern using only the global BasePatterns.
func Expand(pattern string) string {
	return (&Compiler{basePatterns: BasePatterns}).expand(pattern)
}

// expand replaces {PLACEHOLDER} with actual regex patterns until no
// known placeholder remains.
func (c *Compiler) expand(pattern string) string {
	result := pattern
	for depth := 0; depth < maxExpandDepth && strings.Contains(result, "{"); depth++ {
		before := result
		for name, regex := range c.basePatterns {
			result = strings.ReplaceAll(result, "{"+name+"}", regex)
		}
		if result == before {
			break
		}
	}
	return result
}

// Format returns the compiled format with the given name, or nil.
func (c *Compiler) Format(name string) *Format {
	for i := range c.formats {
		if c.formats[i].Name == name {
			return &c.formats[i]
		}
	}
	return nil
}

// Match represents a successful pattern match with extracted fields.
type Match struct {
	FormatName string            // Name of the matched format
	Captures   map[string]string // Named capture group values
}

// Parse attempts to parse text using all compiled formats.
// Returns the first successful match, or nil if no format matches.
func (c *Compiler) Parse(text string) *Match {
	upperText := strings.ToUpper(text)

	for _, format := range c.formats {
		if format.Compiled == nil {
			continue
		}

		match := format.Compiled.FindStringSubmatch(upperText)
		if match == nil {
			continue
		}

		return &Match{
			FormatName: format.Name,
			Captures:   captures(format.Compiled, match),
		}
	}

	return nil
}

// Located is one occurrence of a format with the byte span of each named group.
type Located struct {
	Start    int // Start of the whole match
	End      int // End of the whole match
	Captures map[string]string
	Spans    map[string][2]int // Named group -> [start, end); absent if the group did not participate
}

// FindAllIndexed finds all occurrences of a format and reports capture positions.
// Unlike Parse, the text is not upper-cased so positions index the caller's string.
func (c *Compiler) FindAllIndexed(text string, formatName string) []Located {
	f := c.Format(formatName)
	if f == nil || f.Compiled == nil {
		return nil
	}

	names := f.Compiled.SubexpNames()
	var results []Located
	for _, idx := range f.Compiled.FindAllStringSubmatchIndex(text, -1) {
		loc := Located{
			Start:    idx[0],
			End:      idx[1],
			Captures: make(map[string]string),
			Spans:    make(map[string][2]int),
		}
		for i, name := range names {
			if i == 0 || name == "" || idx[2*i] < 0 {
				continue
			}
			loc.Captures[name] = text[idx[2*i]:idx[2*i+1]]
			loc.Spans[name] = [2]int{idx[2*i], idx[2*i+1]}
		}
		results = append(results, loc)
	}

	return results
}

func captures(re *regexp.Regexp, match []string) map[string]string {
	out := make(map[string]string)
	for i, name := range re.SubexpNames() {
		if i == 0 || name == "" {
			continue
		}
		out[name] = match[i]
	}
	return out
}

// GetCapture is a helper to safely get a capture value with a default.
func (m *Match) GetCapture(name string, defaultVal string) string {
	if m == nil {
		return defaultVal
	}
	if val, ok := m.Captures[name]; ok && val != "" {
		return val
	}
	return defaultVal
}

// FormatTrace contains debug information about a format match attempt.
type FormatTrace struct {
	Name     string            // Format name
	Matched  bool              // Whether the pattern matched
	Pattern  string            // The expanded regex pattern
	Captures map[string]string // Captured groups (if matched)
}

// ParseTrace contains complete trace information for a parse attempt.
type ParseTrace struct {
	Formats []FormatTrace // All format match attempts
	Match   *Match        // The first successful match (if any)
}

// ParseWithTrace attempts to parse text and returns detailed trace information.
// This is useful for debugging why patterns don't match.
func (c *Compiler) ParseWithTrace(text string) *ParseTrace {
	upperText := strings.ToUpper(text)
	trace := &ParseTrace{
		Formats: make([]FormatTrace, 0, len(c.formats)),
	}

	for _, format := range c.formats {
		ft := FormatTrace{
			Name:    format.Name,
			Pattern: c.expand(format.Pattern),
		}

		if format.Compiled == nil {
			trace.Formats = append(trace.Formats, ft)
			continue
		}

		match := format.Compiled.FindStringSubmatch(upperText)
		if match == nil {
			trace.Formats = append(trace.Formats, ft)
			continue
		}

		ft.Matched = true
		ft.Captures = captures(format.Compiled, match)
		trace.Formats = append(trace.Formats, ft)

		if trace.Match == nil {
			trace.Match = &Match{
				FormatName: format.Name,
				Captures:   ft.Captures,
			}
		}
	}

	return trace
}
