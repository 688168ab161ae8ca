// Package geometry normalises polygon rings decoded from NOTAM text and
// converts decoded shapes to orb geometries.
//
// All computations are planar in degrees. Areas are degree² and only
// meaningful for comparing shapes against each other.
package geometry

import (
	"math"
	"sort"

	"github.com/paulmach/orb"

	"notam_parser/internal/notam"
)

// closureTolerance is how close, in degrees, two vertices must be on both
// axes to be considered the same point.
const closureTolerance = 0.001

// Point converts a coordinate to an orb point (lon, lat).
func Point(c notam.Coordinate) orb.Point {
	return orb.Point{c.Lon, c.Lat}
}

// Points converts a coordinate group to orb points in order.
func Points(g notam.CoordinateGroup) []orb.Point {
	pts := make([]orb.Point, len(g))
	for i, c := range g {
		pts[i] = Point(c)
	}
	return pts
}

// Ring returns the group as a closed orb ring.
func Ring(g notam.CoordinateGroup) orb.Ring {
	ring := orb.Ring(Points(g))
	if len(ring) > 0 && !ring[0].Equal(ring[len(ring)-1]) {
		ring = append(ring, ring[0])
	}
	return ring
}

// Bound returns the bounding box of the group.
func Bound(g notam.CoordinateGroup) orb.Bound {
	return orb.MultiPoint(Points(g)).Bound()
}

// SamePosition reports whether two coordinates lie within the closure tolerance.
func SamePosition(a, b notam.Coordinate) bool {
	return math.Abs(a.Lat-b.Lat) <= closureTolerance && math.Abs(a.Lon-b.Lon) <= closureTolerance
}

// Normalize prepares a polygon ring for rendering: a repeated closing vertex
// is dropped, the ring is made contiguous across the antimeridian and a
// self-intersecting vertex order is rebuilt. The input is not modified.
func Normalize(g notam.CoordinateGroup) notam.CoordinateGroup {
	out := DropClosingVertex(g)
	out = Unwrap(out)
	out, _ = RepairSelfIntersection(out)
	return Unwrap(out)
}

// DropClosingVertex removes a last vertex that repeats the first.
func DropClosingVertex(g notam.CoordinateGroup) notam.CoordinateGroup {
	out := g.Clone()
	if len(out) >= 4 && SamePosition(out[0], out[len(out)-1]) {
		out = out[:len(out)-1]
	}
	return out
}

// Unwrap walks the vertices in order and shifts longitudes by 360° whenever
// the step from the previous vertex exceeds 180°, so a ring crossing the
// antimeridian stays contiguous. Shifted longitudes may leave [-180, 180].
func Unwrap(g notam.CoordinateGroup) notam.CoordinateGroup {
	out := g.Clone()
	for i := 1; i < len(out); i++ {
		for out[i].Lon-out[i-1].Lon > 180 {
			out[i].Lon -= 360
		}
		for out[i].Lon-out[i-1].Lon < -180 {
			out[i].Lon += 360
		}
	}
	return out
}

// RepairSelfIntersection reorders the vertices by polar angle around their
// mean when any two non-adjacent edges cross. The result is simple but may
// not match the intended shape of a strongly concave ring. The bool reports
// whether a repair happened.
func RepairSelfIntersection(g notam.CoordinateGroup) (notam.CoordinateGroup, bool) {
	if !HasSelfIntersection(Points(g)) {
		return g.Clone(), false
	}

	c := Centroid(g)
	out := g.Clone()
	sort.SliceStable(out, func(i, j int) bool {
		return math.Atan2(out[i].Lat-c[1], out[i].Lon-c[0]) < math.Atan2(out[j].Lat-c[1], out[j].Lon-c[0])
	})
	return out, true
}

// HasSelfIntersection reports whether any two non-adjacent edges of the
// implicitly closed ring cross properly. Touching or collinear edges do not
// count.
func HasSelfIntersection(pts []orb.Point) bool {
	n := len(pts)
	if n < 4 {
		return false
	}
	for i := 0; i < n; i++ {
		a1, a2 := pts[i], pts[(i+1)%n]
		for j := i + 2; j < n; j++ {
			if i == 0 && j == n-1 {
				continue // Shares the closing vertex.
			}
			if segmentsCross(a1, a2, pts[j], pts[(j+1)%n]) {
				return true
			}
		}
	}
	return false
}

func orientation(a, b, c orb.Point) float64 {
	return (b[0]-a[0])*(c[1]-a[1]) - (b[1]-a[1])*(c[0]-a[0])
}

func segmentsCross(p1, p2, q1, q2 orb.Point) bool {
	d1 := orientation(q1, q2, p1)
	d2 := orientation(q1, q2, p2)
	d3 := orientation(p1, p2, q1)
	d4 := orientation(p1, p2, q2)
	return ((d1 > 0 && d2 < 0) || (d1 < 0 && d2 > 0)) &&
		((d3 > 0 && d4 < 0) || (d3 < 0 && d4 > 0))
}

// Centroid returns the arithmetic mean of the vertices as (lon, lat).
func Centroid(g notam.CoordinateGroup) orb.Point {
	if len(g) == 0 {
		return orb.Point{}
	}
	var lat, lon float64
	for _, c := range g {
		lat += c.Lat
		lon += c.Lon
	}
	n := float64(len(g))
	return orb.Point{lon / n, lat / n}
}

// ShoelaceArea returns the unsigned planar area of the implicitly closed
// ring in degree².
func ShoelaceArea(pts []orb.Point) float64 {
	n := len(pts)
	if n < 3 {
		return 0
	}
	var sum float64
	for i := 0; i < n; i++ {
		lat1, lon1 := pts[i][1], pts[i][0]
		lat2, lon2 := pts[(i+1)%n][1], pts[(i+1)%n][0]
		sum += lat1*lon2 - lat2*lon1
	}
	return math.Abs(sum) / 2
}

// Area returns the shoelace area of a coordinate group.
func Area(g notam.CoordinateGroup) float64 {
	return ShoelaceArea(Points(g))
}
