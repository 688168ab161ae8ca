package notam

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

var (
	isoStampRe  = regexp.MustCompile(`(\d{4})-(\d{2})-(\d{2})\s+(\d{2}):(\d{2})`)
	icaoStampRe = regexp.MustCompile(`(?:^|\D)(\d{2})(\d{2})(\d{2})(\d{2})(\d{2})(?:\D|$)`)
	dayFirstRe  = regexp.MustCompile(`(\d{2})\s+(\d{2})\s+(\d{4})\s+(\d{2}):(\d{2})`)
	durationRe  = regexp.MustCompile(`DU:\s*` + dayFirstRe.String())
	untilRe     = regexp.MustCompile(`AU:[ \t]*([^\n]*)`)
	permRe      = regexp.MustCompile(`\bPERM\b`)
	estRe       = regexp.MustCompile(`(?:^|[\d\s])EST\b`)
)

// ParseValidity reads the validity window from the B) and C) items, falling
// back to DU:/AU: markers in the body when neither item is present. Invalid
// or missing values are left unset; it never fails. EST may follow the end
// stamp directly, as in 2504011200EST.
func ParseValidity(sections Sections, body string) Validity {
	var v Validity

	bText, hasB := sections.Get(SectionB)
	cText, hasC := sections.Get(SectionC)

	if hasB || hasC {
		if hasB {
			v.Start = parseItemStamp(bText)
		}
		if hasC {
			if permRe.MatchString(cText) {
				v.Permanent = true
			} else if end := parseItemStamp(cText); end != nil {
				v.End = end
				v.Estimated = estRe.MatchString(cText)
			}
		}
		return v
	}

	if m := durationRe.FindStringSubmatch(body); m != nil {
		v.Start = buildTime(m[3], m[2], m[1], m[4], m[5])
	}
	if m := untilRe.FindStringSubmatch(body); m != nil {
		rest := m[1]
		if permRe.MatchString(rest) {
			v.Permanent = true
		} else if dm := dayFirstRe.FindStringSubmatch(rest); dm != nil {
			if end := buildTime(dm[3], dm[2], dm[1], dm[4], dm[5]); end != nil {
				v.End = end
				v.Estimated = estRe.MatchString(rest)
			}
		}
	}

	return v
}

// parseItemStamp accepts YYYY-MM-DD HH:MM or the ICAO YYMMDDHHMM form.
func parseItemStamp(s string) *time.Time {
	if m := isoStampRe.FindStringSubmatch(s); m != nil {
		return buildTime(m[1], m[2], m[3], m[4], m[5])
	}
	if m := icaoStampRe.FindStringSubmatch(s); m != nil {
		return buildTime("20"+m[1], m[2], m[3], m[4], m[5])
	}
	return nil
}

// buildTime validates the fields and returns a UTC time, or nil if any
// field is out of range.
func buildTime(year, month, day, hour, minute string) *time.Time {
	y, err1 := strconv.Atoi(year)
	mo, err2 := strconv.Atoi(month)
	d, err3 := strconv.Atoi(day)
	h, err4 := strconv.Atoi(hour)
	mi, err5 := strconv.Atoi(strings.TrimSpace(minute))
	if err1 != nil || err2 != nil || err3 != nil || err4 != nil || err5 != nil {
		return nil
	}
	if mo < 1 || mo > 12 || h > 23 || mi > 59 || d < 1 {
		return nil
	}
	if d > daysIn(time.Month(mo), y) {
		return nil
	}
	t := time.Date(y, time.Month(mo), d, h, mi, 0, 0, time.UTC)
	return &t
}

func daysIn(m time.Month, year int) int {
	return time.Date(year, m+1, 0, 0, 0, 0, 0, time.UTC).Day()
}
