// Package geo implements the minimal planar geometry the pipeline needs:
// decoding territory boundaries from GeoJSON and testing whether an alarm
// box location falls inside a boundary. Boundaries are multipolygons whose
// rings follow the GeoJSON convention, first ring the outer shell and any
// further rings holes cut out of it.
//
// Containment uses the even-odd crossing rule with a ray cast eastward.
// The rule is deterministic on boundaries and identical for shells and
// holes: for an axis-aligned rectangle, points on the west and south
// edges are inside while points on the east and north edges are outside.
package geo

import (
	"fmt"
	"math"
)

// Point is a WGS84 coordinate.
type Point struct {
	Lat float64
	Lon float64
}

// Valid reports whether the coordinate is a real position on the globe.
func (p Point) Valid() bool {
	if math.IsNaN(p.Lat) || math.IsNaN(p.Lon) {
		return false
	}
	return math.Abs(p.Lat) <= 90 && math.Abs(p.Lon) <= 180
}

// Ring is a loop of vertices. The closing vertex may repeat the first;
// containment treats the loop as implicitly closed either way.
type Ring []Point

// BBox is an axis-aligned bounding rectangle used to short-circuit
// containment tests.
type BBox struct {
	MinLat, MinLon float64
	MaxLat, MaxLon float64
}

func (b BBox) contains(p Point) bool {
	return p.Lat >= b.MinLat && p.Lat <= b.MaxLat && p.Lon >= b.MinLon && p.Lon <= b.MaxLon
}

func (b BBox) isZero() bool {
	return b == BBox{}
}

// Polygon is one outer shell plus zero or more holes.
type Polygon struct {
	Outer Ring
	Holes []Ring
	// Bound is the shell's precomputed bounding box. A zero Bound skips
	// the prefilter instead of rejecting points; NewPolygon and
	// DecodeGeometry always set it.
	Bound BBox
}

// NewPolygon builds a polygon and precomputes its bounding box.
func NewPolygon(outer Ring, holes ...Ring) Polygon {
	return Polygon{Outer: outer, Holes: holes, Bound: ringBound(outer)}
}

func ringBound(r Ring) BBox {
	if len(r) == 0 {
		return BBox{}
	}
	b := BBox{MinLat: r[0].Lat, MaxLat: r[0].Lat, MinLon: r[0].Lon, MaxLon: r[0].Lon}
	for _, p := range r[1:] {
		b.MinLat = math.Min(b.MinLat, p.Lat)
		b.MaxLat = math.Max(b.MaxLat, p.Lat)
		b.MinLon = math.Min(b.MinLon, p.Lon)
		b.MaxLon = math.Max(b.MaxLon, p.Lon)
	}
	return b
}

// Contains reports whether the point is inside the shell and outside
// every hole.
func (p Polygon) Contains(pt Point) bool {
	if len(p.Outer) == 0 {
		return false
	}
	if !p.Bound.isZero() && !p.Bound.contains(pt) {
		return false
	}
	if !p.Outer.contains(pt) {
		return false
	}
	for _, h := range p.Holes {
		if h.contains(pt) {
			return false
		}
	}
	return true
}

// contains is the eastward even-odd ray cast. The tiny denominator guard
// keeps near-horizontal edges from dividing by zero; exactly horizontal
// edges never satisfy the crossing condition.
func (r Ring) contains(pt Point) bool {
	inside := false
	j := len(r) - 1
	for i := 0; i < len(r); i++ {
		yi, xi := r[i].Lat, r[i].Lon
		yj, xj := r[j].Lat, r[j].Lon
		if (yi > pt.Lat) != (yj > pt.Lat) {
			cross := xi + (pt.Lat-yi)/(yj-yi+1e-12)*(xj-xi)
			if pt.Lon < cross {
				inside = !inside
			}
		}
		j = i
	}
	return inside
}

// MultiPolygon is a territory boundary: one or more polygons with holes.
type MultiPolygon []Polygon

// Contains reports whether the point falls inside any member polygon.
func (m MultiPolygon) Contains(pt Point) bool {
	for _, p := range m {
		if p.Contains(pt) {
			return true
		}
	}
	return false
}

// Empty reports whether the boundary has no area at all.
func (m MultiPolygon) Empty() bool {
	for _, p := range m {
		if len(p.Outer) > 0 {
			return false
		}
	}
	return true
}

// Validate checks the boundary is structurally usable for containment.
// A malformed boundary is an error, never a silently empty territory.
func (m MultiPolygon) Validate() error {
	if m.Empty() {
		return ErrEmptyGeometry
	}
	for i, p := range m {
		if len(p.Outer) < minRingPositions {
			return fmt.Errorf("%w: polygon %d outer ring has %d positions, need at least %d",
				ErrMalformedRing, i, len(p.Outer), minRingPositions)
		}
		for j, h := range p.Holes {
			if len(h) < minRingPositions {
				return fmt.Errorf("%w: polygon %d hole %d has %d positions, need at least %d",
					ErrMalformedRing, i, j, len(h), minRingPositions)
			}
		}
	}
	return nil
}
