// Package main provides a coverage analyzer for NOTAM bulletins.
// It reports how many notices decode, which Q-codes and keywords the dropped
// ones carry, and can test a regex against every E) item.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"regexp"
	"sort"
	"strings"

	"notam_parser/internal/extractor"
	"notam_parser/internal/notam"
	"notam_parser/internal/patterns"
)

func main() {
	input := flag.String("input", "-", "Bulletin file ('-' for stdin)")
	outputFormat := flag.String("format", "text", "Output format: text, json")
	topN := flag.Int("top", 20, "Show top N items in each category")
	testPattern := flag.String("test", "", "Test a regex pattern against every E) item")

	flag.Parse()

	text, err := readInput(*input)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error reading input: %v\n", err)
		os.Exit(1)
	}

	// Pattern testing mode.
	if *testPattern != "" {
		res, err := TestPattern(text, *testPattern)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Pattern: %s\n", *testPattern)
		fmt.Printf("Result: %d/%d match (%.1f%%)\n\n", res.Matches, res.Total, percent(res.Matches, res.Total))
		if len(res.MatchIDs) > 0 {
			fmt.Printf("Sample matches: %v\n", res.MatchIDs)
		}
		if len(res.NonMatchIDs) > 0 {
			fmt.Printf("Sample non-matches: %v\n", res.NonMatchIDs)
		}
		return
	}

	report := Analyze(text, *topN)

	switch *outputFormat {
	case "json":
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(report); err != nil {
			fmt.Fprintf(os.Stderr, "Error encoding report: %v\n", err)
			os.Exit(1)
		}
	default:
		printReport(os.Stdout, report)
	}
}

func readInput(path string) (string, error) {
	var r io.Reader = os.Stdin
	if path != "-" {
		f, err := os.Open(path)
		if err != nil {
			return "", err
		}
		defer f.Close()
		r = f
	}
	b, err := io.ReadAll(r)
	return string(b), err
}

// CountItem is one row of a frequency table.
type CountItem struct {
	Key   string `json:"key"`
	Count int    `json:"count"`
}

// Report summarises decoding coverage of a bulletin.
type Report struct {
	Notices  int `json:"notices"`
	Decoded  int `json:"decoded"`
	Dropped  int `json:"dropped"`
	Records  int `json:"records"`
	Polygons int `json:"polygons"`
	Points   int `json:"points"`

	// Dropped notices broken down by Q-code and by fired trigger.
	DroppedQCodes   []CountItem `json:"dropped_qcodes"`
	DroppedTriggers []CountItem `json:"dropped_triggers"`
	// Dropped notices whose E) item holds something that looks like a coordinate.
	DroppedWithCoords []string `json:"dropped_with_coords,omitempty"`
}

// Analyze decodes the bulletin and tabulates what was dropped.
func Analyze(text string, topN int) *Report {
	res := extractor.New(extractor.Options{}).Decode(text)

	r := &Report{
		Notices:  res.Notices,
		Dropped:  len(res.Dropped),
		Decoded:  res.Notices - len(res.Dropped),
		Records:  len(res.Records),
		Polygons: res.Polygons(),
	}
	r.Points = r.Records - r.Polygons

	dropped := make(map[string]bool, len(res.Dropped))
	for _, id := range res.Dropped {
		dropped[id] = true
	}

	qcodes := make(map[string]int)
	triggers := make(map[string]int)
	for _, n := range notam.Segment(text) {
		if !dropped[n.ID] {
			continue
		}
		sections := notam.ParseSections(n.Body)
		q := patterns.ExtractQCode(sections[notam.SectionQ])
		if q == "" {
			q = "(none)"
		}
		qcodes[q]++

		eText := strings.ToUpper(sections[notam.SectionE])
		fired := patterns.MatchTriggers(eText, q).Fired()
		if len(fired) == 0 {
			triggers["(none)"]++
		}
		for _, k := range fired {
			triggers[string(k)]++
		}

		if patterns.CoordTokenPattern.MatchString(eText) && len(r.DroppedWithCoords) < topN {
			r.DroppedWithCoords = append(r.DroppedWithCoords, n.ID)
		}
	}

	r.DroppedQCodes = topCounts(qcodes, topN)
	r.DroppedTriggers = topCounts(triggers, topN)
	return r
}

func topCounts(m map[string]int, n int) []CountItem {
	items := make([]CountItem, 0, len(m))
	for k, v := range m {
		items = append(items, CountItem{Key: k, Count: v})
	}
	sort.Slice(items, func(i, j int) bool {
		if items[i].Count != items[j].Count {
			return items[i].Count > items[j].Count
		}
		return items[i].Key < items[j].Key
	})
	if n > 0 && len(items) > n {
		items = items[:n]
	}
	return items
}

// PatternResult is the outcome of testing a regex against E) items.
type PatternResult struct {
	Matches     int
	Total       int
	MatchIDs    []string
	NonMatchIDs []string
}

// TestPattern counts notices whose E) item matches the pattern. At most five
// sample ids are kept for each side.
func TestPattern(text, pattern string) (*PatternResult, error) {
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, fmt.Errorf("invalid pattern: %w", err)
	}

	res := &PatternResult{}
	for _, n := range notam.Segment(text) {
		eText, ok := notam.ParseSections(n.Body).Get(notam.SectionE)
		if !ok {
			continue
		}
		res.Total++
		if re.MatchString(eText) {
			res.Matches++
			if len(res.MatchIDs) < 5 {
				res.MatchIDs = append(res.MatchIDs, n.ID)
			}
		} else if len(res.NonMatchIDs) < 5 {
			res.NonMatchIDs = append(res.NonMatchIDs, n.ID)
		}
	}
	return res, nil
}

func percent(n, total int) float64 {
	if total == 0 {
		return 0
	}
	return float64(n) / float64(total) * 100
}

func printReport(w io.Writer, r *Report) {
	fmt.Fprintln(w, "=== NOTAM Coverage ===")
	fmt.Fprintf(w, "Notices:  %d\n", r.Notices)
	fmt.Fprintf(w, "Decoded:  %d (%.1f%%)\n", r.Decoded, percent(r.Decoded, r.Notices))
	fmt.Fprintf(w, "Dropped:  %d\n", r.Dropped)
	fmt.Fprintf(w, "Records:  %d (%d polygons, %d points)\n", r.Records, r.Polygons, r.Points)

	if len(r.DroppedQCodes) > 0 {
		fmt.Fprintln(w, "\nDropped by Q-code:")
		for _, c := range r.DroppedQCodes {
			fmt.Fprintf(w, "  %-8s %d\n", c.Key, c.Count)
		}
	}
	if len(r.DroppedTriggers) > 0 {
		fmt.Fprintln(w, "\nDropped by trigger:")
		for _, c := range r.DroppedTriggers {
			fmt.Fprintf(w, "  %-8s %d\n", c.Key, c.Count)
		}
	}
	if len(r.DroppedWithCoords) > 0 {
		fmt.Fprintf(w, "\nDropped despite coordinates: %s\n", strings.Join(r.DroppedWithCoords, ", "))
	}
}
