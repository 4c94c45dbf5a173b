package geometry

import (
	"errors"
	"fmt"

	shp "github.com/jonas-p/go-shp"
)

// ErrNoPolygon is returned when a shapefile holds no polygon shape.
var ErrNoPolygon = errors.New("shapefile contains no polygon")

// LoadShapefile reads the first polygon shape of an ESRI shapefile.
// Clockwise parts are outer rings and counter-clockwise parts are holes
// of the outer ring that encloses them.
func LoadShapefile(path string) (*MultiPolygon, error) {
	reader, err := shp.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open shapefile %q: %w", path, err)
	}
	defer reader.Close()

	for reader.Next() {
		_, shape := reader.Shape()
		parts, points, ok := polygonParts(shape)
		if !ok {
			continue
		}
		rings := splitRings(parts, points)
		if len(rings) == 0 {
			continue
		}
		region, err := assembleRings(rings)
		if err != nil {
			return nil, fmt.Errorf("shapefile %q: %w", path, err)
		}
		return region, nil
	}
	return nil, fmt.Errorf("%q: %w", path, ErrNoPolygon)
}

// assembleRings groups rings into polygons by winding order. A file whose
// rings all wind counter-clockwise is read as outer rings only, and a hole
// no outer ring encloses becomes an outer ring of its own.
func assembleRings(rings [][]Point) (*MultiPolygon, error) {
	var outers, holes [][]Point
	for _, ring := range rings {
		if signedArea(ring) < 0 {
			outers = append(outers, ring)
		} else {
			holes = append(holes, ring)
		}
	}
	if len(outers) == 0 {
		outers, holes = holes, nil
	}

	owned := make([][][]Point, len(outers))
	for _, hole := range holes {
		owner := -1
		for i, outer := range outers {
			if inRing(outer, hole[0].Lon, hole[0].Lat) || onRing(outer, hole[0].Lon, hole[0].Lat) {
				owner = i
				break
			}
		}
		if owner < 0 {
			outers = append(outers, hole)
			owned = append(owned, nil)
			continue
		}
		owned[owner] = append(owned[owner], hole)
	}

	polygons := make([]*Polygon, 0, len(outers))
	for i, outer := range outers {
		poly, err := NewPolygon(outer, owned[i]...)
		if err != nil {
			return nil, fmt.Errorf("ring %d: %w", i, err)
		}
		polygons = append(polygons, poly)
	}
	return NewMultiPolygon(polygons...)
}

func polygonParts(shape shp.Shape) ([]int32, []shp.Point, bool) {
	switch s := shape.(type) {
	case *shp.Polygon:
		return s.Parts, s.Points, true
	case *shp.PolygonZ:
		return s.Parts, s.Points, true
	case *shp.PolygonM:
		return s.Parts, s.Points, true
	default:
		return nil, nil, false
	}
}

func splitRings(parts []int32, points []shp.Point) [][]Point {
	if len(points) == 0 {
		return nil
	}
	if len(parts) == 0 {
		parts = []int32{0}
	}
	rings := make([][]Point, 0, len(parts))
	for i, start := range parts {
		end := int32(len(points))
		if i+1 < len(parts) {
			end = parts[i+1]
		}
		if start < 0 || start >= end || int(end) > len(points) {
			continue
		}
		ring := make([]Point, 0, end-start)
		for _, p := range points[start:end] {
			ring = append(ring, Point{Lon: p.X, Lat: p.Y})
		}
		rings = append(rings, ring)
	}
	return rings
}
