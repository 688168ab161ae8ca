package notam

import (
	"regexp"
	"strings"
)

// Section is an ICAO item letter.
type Section string

const (
	SectionQ Section = "Q"
	SectionA Section = "A"
	SectionB Section = "B"
	SectionC Section = "C"
	SectionD Section = "D"
	SectionE Section = "E"
	SectionF Section = "F"
	SectionG Section = "G"
)

// Sections maps item letters to their trimmed text. Absent letters have no key.
type Sections map[Section]string

// Get returns the text of a section and whether it was present.
func (s Sections) Get(letter Section) (string, bool) {
	text, ok := s[letter]
	return text, ok
}

// Has reports whether a section was present, even if its text is empty.
func (s Sections) Has(letter Section) bool {
	_, ok := s[letter]
	return ok
}

var sectionMarkerRe = regexp.MustCompile(`(?:^|\s)([QABCDEFG])\)`)

type sectionMarker struct {
	letter       Section
	start        int // Index of the letter.
	contentStart int // Index just past the closing paren.
}

// ParseSections splits a notice body into lettered items.
//
// A marker is one of Q A B C D E F G followed by ")" and preceded by start of
// text or whitespace. Only the first occurrence of each letter opens a
// section; later occurrences are part of whichever section contains them.
func ParseSections(body string) Sections {
	sections := make(Sections)

	var markers []sectionMarker
	seen := make(map[Section]bool)
	for _, m := range sectionMarkerRe.FindAllStringSubmatchIndex(body, -1) {
		letter := Section(body[m[2]:m[3]])
		if seen[letter] {
			continue
		}
		seen[letter] = true
		markers = append(markers, sectionMarker{
			letter:       letter,
			start:        m[2],
			contentStart: m[1],
		})
	}

	for i, mk := range markers {
		end := len(body)
		if i+1 < len(markers) {
			end = markers[i+1].start
		}
		sections[mk.letter] = strings.TrimSpace(body[mk.contentStart:end])
	}

	return sections
}
