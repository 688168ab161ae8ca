package iteme

import (
	"strings"

	"notam_parser/internal/geometry"
	"notam_parser/internal/notam"
	"notam_parser/internal/patterns"
)

// minChainLength is the number of dash-joined coordinates that marks a
// boundary list.
const minChainLength = 4

// psnLookbehind is how many bytes before a coordinate are checked for PSN.
const psnLookbehind = 10

// IsPolygon reports whether a group describes an area rather than a set of
// unrelated points. Groups of fewer than three coordinates never do.
func IsPolygon(eText string, triggers patterns.Triggers, g notam.CoordinateGroup) bool {
	if len(g) < 3 {
		return false
	}
	return triggers.Has(patterns.TriggerArea) ||
		patterns.ParenCoordPattern.MatchString(eText) ||
		maxChainLength(eText) >= minChainLength ||
		geometry.SamePosition(g[0], g[len(g)-1])
}

// maxChainLength returns the length of the longest dash-joined run of
// coordinates in the text.
func maxChainLength(text string) int {
	longest := 0
	for _, chain := range patterns.CoordChainPattern.FindAllString(text, -1) {
		if n := len(patterns.CoordTokenPattern.FindAllStringIndex(chain, -1)); n > longest {
			longest = n
		}
	}
	return longest
}

// isStandalonePosition reports whether the coordinate at text[start:end] is
// introduced by PSN and is not the first link of a dash-joined chain.
func isStandalonePosition(text string, start, end int) bool {
	before := text[max(0, start-psnLookbehind):start]
	if !strings.Contains(before, "PSN") {
		return false
	}
	return !patterns.ChainContinuesPattern.MatchString(text[end:])
}

// shapesFor classifies groups. Polygon groups are kept whole; other groups
// are split into one single-point shape per coordinate.
func shapesFor(eText string, triggers patterns.Triggers, groups []notam.CoordinateGroup) []notam.Shape {
	var shapes []notam.Shape
	for _, g := range groups {
		if IsPolygon(eText, triggers, g) {
			shapes = append(shapes, notam.Shape{Coordinates: g, Polygon: true})
			continue
		}
		for _, c := range g {
			shapes = append(shapes, notam.Shape{Coordinates: notam.CoordinateGroup{c}})
		}
	}
	return shapes
}
