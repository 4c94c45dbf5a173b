package geometry

import (
	"path/filepath"
	"testing"

	shp "github.com/jonas-p/go-shp"
	"github.com/stretchr/testify/require"
)

func TestBBoxContains(t *testing.T) {
	box, err := NewBBox(-95.0, 29.0, -94.0, 30.0)
	require.NoError(t, err)

	tests := []struct {
		name     string
		lon, lat float64
		want     bool
	}{
		{name: "center", lon: -94.5, lat: 29.5, want: true},
		{name: "min corner", lon: -95.0, lat: 29.0, want: true},
		{name: "max edge", lon: -94.0, lat: 29.7, want: true},
		{name: "west", lon: -95.5, lat: 29.5, want: false},
		{name: "north", lon: -94.5, lat: 30.01, want: false},
		{name: "far away", lon: 120.0, lat: -45.0, want: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, box.Contains(tt.lon, tt.lat))
		})
	}
}

func TestNewBBoxRejectsInvertedCorners(t *testing.T) {
	_, err := NewBBox(-94, 29, -95, 30)
	require.ErrorContains(t, err, "longitude")

	_, err = NewBBox(-95, 30, -94, 29)
	require.ErrorContains(t, err, "latitude")
}

func TestPolygonContains(t *testing.T) {
	// An L-shaped region: the notch at the upper right is outside.
	poly, err := NewPolygon([]Point{
		{Lon: 0, Lat: 0},
		{Lon: 4, Lat: 0},
		{Lon: 4, Lat: 2},
		{Lon: 2, Lat: 2},
		{Lon: 2, Lat: 4},
		{Lon: 0, Lat: 4},
		{Lon: 0, Lat: 0},
	})
	require.NoError(t, err)
	require.Len(t, poly.Outer(), 6, "closing vertex should be dropped")

	require.True(t, poly.Contains(1, 1))
	require.True(t, poly.Contains(3, 1))
	require.True(t, poly.Contains(1, 3))
	require.False(t, poly.Contains(3, 3), "notch is outside")
	require.False(t, poly.Contains(-10, 50))
	require.True(t, poly.Contains(4, 1), "edge points are inside")
	require.True(t, poly.Contains(0, 0), "vertices are inside")

	require.Equal(t, BBox{MinLon: 0, MinLat: 0, MaxLon: 4, MaxLat: 4}, poly.Bounds())
}

func TestPolygonHole(t *testing.T) {
	poly, err := NewPolygon(
		[]Point{{0, 0}, {10, 0}, {10, 10}, {0, 10}},
		[]Point{{4, 4}, {6, 4}, {6, 6}, {4, 6}},
	)
	require.NoError(t, err)

	require.True(t, poly.Contains(2, 2))
	require.False(t, poly.Contains(5, 5))
	require.True(t, poly.Contains(4, 5), "hole boundary stays inside")
}

func TestNewPolygonRejectsDegenerateRing(t *testing.T) {
	_, err := NewPolygon([]Point{{0, 0}, {1, 1}, {0, 0}})
	require.Error(t, err)
}

func TestLoadShapefile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "region.shp")

	writer, err := shp.Create(path, shp.POLYGON)
	require.NoError(t, err)
	poly := shp.Polygon(*shp.NewPolyLine([][]shp.Point{{
		{X: -95, Y: 29},
		{X: -95, Y: 30},
		{X: -94, Y: 30},
		{X: -94, Y: 29},
		{X: -95, Y: 29},
	}}))
	writer.Write(&poly)
	writer.Close()

	boundary, err := LoadShapefile(path)
	require.NoError(t, err)
	require.True(t, boundary.Contains(-94.5, 29.5))
	require.False(t, boundary.Contains(-93.5, 29.5))
	require.Equal(t, BBox{MinLon: -95, MinLat: 29, MaxLon: -94, MaxLat: 30}, boundary.Bounds())
}

func TestLoadShapefileMissing(t *testing.T) {
	_, err := LoadShapefile(filepath.Join(t.TempDir(), "missing.shp"))
	require.Error(t, err)
}

func writeShapefile(t *testing.T, rings [][]shp.Point) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "region.shp")
	writer, err := shp.Create(path, shp.POLYGON)
	require.NoError(t, err)
	poly := shp.Polygon(*shp.NewPolyLine(rings))
	writer.Write(&poly)
	writer.Close()
	return path
}

func TestLoadShapefileIslands(t *testing.T) {
	// Both squares wind clockwise, so both are outer rings.
	path := writeShapefile(t, [][]shp.Point{
		{{X: -95, Y: 29}, {X: -95, Y: 30}, {X: -94, Y: 30}, {X: -94, Y: 29}, {X: -95, Y: 29}},
		{{X: -90, Y: 29}, {X: -90, Y: 30}, {X: -89, Y: 30}, {X: -89, Y: 29}, {X: -90, Y: 29}},
	})

	region, err := LoadShapefile(path)
	require.NoError(t, err)
	require.Len(t, region.Polygons(), 2)
	require.True(t, region.Contains(-94.5, 29.5), "first island")
	require.True(t, region.Contains(-89.5, 29.5), "second island")
	require.False(t, region.Contains(-92, 29.5), "water between the islands")
	require.Equal(t, BBox{MinLon: -95, MinLat: 29, MaxLon: -89, MaxLat: 30}, region.Bounds())
}

func TestLoadShapefileHole(t *testing.T) {
	// Outer ring clockwise, hole counter-clockwise.
	path := writeShapefile(t, [][]shp.Point{
		{{X: 0, Y: 0}, {X: 0, Y: 10}, {X: 10, Y: 10}, {X: 10, Y: 0}, {X: 0, Y: 0}},
		{{X: 4, Y: 4}, {X: 6, Y: 4}, {X: 6, Y: 6}, {X: 4, Y: 6}, {X: 4, Y: 4}},
	})

	region, err := LoadShapefile(path)
	require.NoError(t, err)
	require.Len(t, region.Polygons(), 1)
	require.True(t, region.Contains(2, 2))
	require.False(t, region.Contains(5, 5), "inside the hole")
	require.Equal(t, BBox{MinLon: 0, MinLat: 0, MaxLon: 10, MaxLat: 10}, region.Bounds())
}

func TestSignedArea(t *testing.T) {
	ccw := []Point{{0, 0}, {2, 0}, {2, 2}, {0, 2}}
	require.Equal(t, 4.0, signedArea(ccw))

	cw := []Point{{0, 0}, {0, 2}, {2, 2}, {2, 0}}
	require.Equal(t, -4.0, signedArea(cw))
}
