package notam

import (
	"regexp"
	"strings"
)

// noticeIDRe matches a notice identifier at the start of a line, with an
// optional opening paren, optional 4-letter authority prefix and optional
// NOTAMN/NOTAMR/NOTAMC action word.
var noticeIDRe = regexp.MustCompile(`(?m)^[ \t]*\(?((?:[A-Z]{4}[ -])?[A-Z]\d{1,5}/\d{2,4})(?:[ \t]+NOTAM[NRC]?)?`)

var blankLineRe = regexp.MustCompile(`\n[ \t]*\n`)

// Segment splits a bulletin into notices.
//
// A notice starts at an identifier line and its body runs to the first blank
// line, the next identifier line or the end of text. Only the first
// occurrence of an identifier is kept; output follows input order.
func Segment(text string) []Notice {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")

	matches := noticeIDRe.FindAllStringSubmatchIndex(text, -1)
	if len(matches) == 0 {
		return nil
	}

	seen := make(map[string]bool, len(matches))
	notices := make([]Notice, 0, len(matches))

	for i, m := range matches {
		id := text[m[2]:m[3]]
		if seen[id] {
			continue
		}
		seen[id] = true

		bodyStart := m[1]
		bodyEnd := len(text)
		if loc := blankLineRe.FindStringIndex(text[bodyStart:]); loc != nil {
			bodyEnd = bodyStart + loc[0]
		}
		if i+1 < len(matches) && matches[i+1][0] < bodyEnd {
			bodyEnd = matches[i+1][0]
		}

		notices = append(notices, Notice{
			ID:      id,
			Body:    text[bodyStart:bodyEnd],
			Content: cleanContent(text[m[2]:bodyEnd]),
		})
	}

	return notices
}

// cleanContent trims every line and drops the blank ones.
func cleanContent(s string) string {
	lines := strings.Split(s, "\n")
	kept := lines[:0]
	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line != "" {
			kept = append(kept, line)
		}
	}
	return strings.Join(kept, "\n")
}
