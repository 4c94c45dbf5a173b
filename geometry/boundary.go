// Package geometry answers point-in-region questions for search boundaries.
package geometry

import (
	"errors"
	"fmt"
	"math"
)

// Boundary is a region used to filter search results by location.
type Boundary interface {
	// Contains reports whether the point (lon, lat) lies inside the region.
	Contains(lon, lat float64) bool
	// Bounds returns the smallest box enclosing the region.
	Bounds() BBox
}

// Point is a longitude/latitude pair in degrees.
type Point struct {
	Lon float64
	Lat float64
}

// BBox is an axis-aligned box in degrees.
type BBox struct {
	MinLon float64
	MinLat float64
	MaxLon float64
	MaxLat float64
}

// NewBBox validates the corners and returns the box.
func NewBBox(minLon, minLat, maxLon, maxLat float64) (BBox, error) {
	for _, v := range []float64{minLon, minLat, maxLon, maxLat} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return BBox{}, errors.New("bounding box coordinates must be finite")
		}
	}
	if minLon > maxLon {
		return BBox{}, fmt.Errorf("min longitude %v exceeds max longitude %v", minLon, maxLon)
	}
	if minLat > maxLat {
		return BBox{}, fmt.Errorf("min latitude %v exceeds max latitude %v", minLat, maxLat)
	}
	return BBox{MinLon: minLon, MinLat: minLat, MaxLon: maxLon, MaxLat: maxLat}, nil
}

// Contains is inclusive on every edge.
func (b BBox) Contains(lon, lat float64) bool {
	return b.MinLon <= lon && lon <= b.MaxLon && b.MinLat <= lat && lat <= b.MaxLat
}

func (b BBox) Bounds() BBox { return b }

func (b BBox) String() string {
	return fmt.Sprintf("%.6f,%.6f,%.6f,%.6f", b.MinLon, b.MinLat, b.MaxLon, b.MaxLat)
}

// Polygon is a simple polygon with optional holes. Rings are closed
// implicitly; a repeated closing vertex is dropped on construction.
type Polygon struct {
	outer  []Point
	holes  [][]Point
	bounds BBox
}

// NewPolygon builds a polygon from an outer ring and optional hole rings.
func NewPolygon(outer []Point, holes ...[]Point) (*Polygon, error) {
	ring, err := normalizeRing(outer)
	if err != nil {
		return nil, fmt.Errorf("outer ring: %w", err)
	}
	p := &Polygon{outer: ring, bounds: ringBounds(ring)}
	for i, h := range holes {
		hole, err := normalizeRing(h)
		if err != nil {
			return nil, fmt.Errorf("hole %d: %w", i, err)
		}
		p.holes = append(p.holes, hole)
	}
	return p, nil
}

// Contains uses even-odd ray casting. Points on the outer ring's edges
// count as inside; points strictly inside a hole are outside.
func (p *Polygon) Contains(lon, lat float64) bool {
	if !p.bounds.Contains(lon, lat) {
		return false
	}
	if onRing(p.outer, lon, lat) {
		return true
	}
	if !inRing(p.outer, lon, lat) {
		return false
	}
	for _, hole := range p.holes {
		if inRing(hole, lon, lat) && !onRing(hole, lon, lat) {
			return false
		}
	}
	return true
}

func (p *Polygon) Bounds() BBox { return p.bounds }

// Outer returns a copy of the outer ring.
func (p *Polygon) Outer() []Point {
	out := make([]Point, len(p.outer))
	copy(out, p.outer)
	return out
}

// MultiPolygon is a set of polygons treated as one region, such as a
// coastline with offshore islands.
type MultiPolygon struct {
	polygons []*Polygon
	bounds   BBox
}

// NewMultiPolygon groups polygons into one region.
func NewMultiPolygon(polygons ...*Polygon) (*MultiPolygon, error) {
	if len(polygons) == 0 {
		return nil, errors.New("multipolygon needs at least one polygon")
	}
	m := &MultiPolygon{polygons: polygons, bounds: polygons[0].bounds}
	for _, p := range polygons[1:] {
		m.bounds = m.bounds.union(p.bounds)
	}
	return m, nil
}

// Contains reports whether any member polygon contains the point.
func (m *MultiPolygon) Contains(lon, lat float64) bool {
	if !m.bounds.Contains(lon, lat) {
		return false
	}
	for _, p := range m.polygons {
		if p.Contains(lon, lat) {
			return true
		}
	}
	return false
}

// Bounds spans every member polygon.
func (m *MultiPolygon) Bounds() BBox { return m.bounds }

func (m *MultiPolygon) Polygons() []*Polygon {
	out := make([]*Polygon, len(m.polygons))
	copy(out, m.polygons)
	return out
}

func (b BBox) union(o BBox) BBox {
	return BBox{
		MinLon: math.Min(b.MinLon, o.MinLon),
		MinLat: math.Min(b.MinLat, o.MinLat),
		MaxLon: math.Max(b.MaxLon, o.MaxLon),
		MaxLat: math.Max(b.MaxLat, o.MaxLat),
	}
}

// signedArea is positive for counter-clockwise rings.
func signedArea(ring []Point) float64 {
	var sum float64
	for i, j := 0, len(ring)-1; i < len(ring); j, i = i, i+1 {
		sum += ring[j].Lon*ring[i].Lat - ring[i].Lon*ring[j].Lat
	}
	return sum / 2
}

func normalizeRing(points []Point) ([]Point, error) {
	ring := make([]Point, 0, len(points))
	for _, pt := range points {
		if math.IsNaN(pt.Lon) || math.IsNaN(pt.Lat) || math.IsInf(pt.Lon, 0) || math.IsInf(pt.Lat, 0) {
			return nil, errors.New("vertices must be finite")
		}
		if n := len(ring); n > 0 && ring[n-1] == pt {
			continue
		}
		ring = append(ring, pt)
	}
	if n := len(ring); n > 1 && ring[0] == ring[n-1] {
		ring = ring[:n-1]
	}
	if len(ring) < 3 {
		return nil, fmt.Errorf("need at least 3 distinct vertices, got %d", len(ring))
	}
	return ring, nil
}

func ringBounds(ring []Point) BBox {
	b := BBox{MinLon: ring[0].Lon, MinLat: ring[0].Lat, MaxLon: ring[0].Lon, MaxLat: ring[0].Lat}
	for _, pt := range ring[1:] {
		b.MinLon = math.Min(b.MinLon, pt.Lon)
		b.MinLat = math.Min(b.MinLat, pt.Lat)
		b.MaxLon = math.Max(b.MaxLon, pt.Lon)
		b.MaxLat = math.Max(b.MaxLat, pt.Lat)
	}
	return b
}

func inRing(ring []Point, lon, lat float64) bool {
	inside := false
	for i, j := 0, len(ring)-1; i < len(ring); j, i = i, i+1 {
		a, b := ring[i], ring[j]
		if (a.Lat > lat) != (b.Lat > lat) {
			x := (b.Lon-a.Lon)*(lat-a.Lat)/(b.Lat-a.Lat) + a.Lon
			if lon < x {
				inside = !inside
			}
		}
	}
	return inside
}

const edgeEpsilon = 1e-12

func onRing(ring []Point, lon, lat float64) bool {
	for i, j := 0, len(ring)-1; i < len(ring); j, i = i, i+1 {
		if onSegment(ring[j], ring[i], lon, lat) {
			return true
		}
	}
	return false
}

func onSegment(a, b Point, lon, lat float64) bool {
	cross := (b.Lon-a.Lon)*(lat-a.Lat) - (b.Lat-a.Lat)*(lon-a.Lon)
	if math.Abs(cross) > edgeEpsilon {
		return false
	}
	return math.Min(a.Lon, b.Lon)-edgeEpsilon <= lon && lon <= math.Max(a.Lon, b.Lon)+edgeEpsilon &&
		math.Min(a.Lat, b.Lat)-edgeEpsilon <= lat && lat <= math.Max(a.Lat, b.Lat)+edgeEpsilon
}
