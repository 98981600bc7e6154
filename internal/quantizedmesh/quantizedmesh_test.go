package quantizedmesh

import (
	"bytes"
	"compress/gzip"
	"encoding/binary"
	"io"
	"math"
	"testing"

	"github.com/geodata/ctb-tile/internal/grid"
	"github.com/geodata/ctb-tile/internal/mesh"
	"github.com/stretchr/testify/require"
)

func TestZigZagRoundTrip(t *testing.T) {
	for _, n := range []int32{0, 1, -1, 2, -2, 32767, -32768, 100, -100} {
		got := ZigZagDecode(ZigZagEncode(n))
		require.Equal(t, n, got)
	}
}

func TestLLHToECEFMagnitudeNearEllipsoid(t *testing.T) {
	cases := []struct{ lon, lat, h float64 }{
		{0, 0, 0},
		{8.5, 47.4, 500},
		{-122.4, 37.8, 10},
		{179.9, -89.9, 0},
	}
	for _, c := range cases {
		p := LLHToECEF(c.lon, c.lat, c.h)
		require.Greater(t, p.Magnitude(), wgs84SemiMinorAxis*0.99)
		require.Less(t, p.Magnitude(), wgs84SemiMajorAxis*1.01)
	}
}

func TestOctEncodeRoundTripAngularError(t *testing.T) {
	vectors := []ECEFPoint{
		{X: 0, Y: 0, Z: 1},
		{X: 1, Y: 0, Z: 0},
		{X: 0, Y: 1, Z: 0},
		{X: 0, Y: 0, Z: -1},
		{X: 1, Y: 1, Z: 1},
		{X: -1, Y: -1, Z: -1},
		{X: 0.3, Y: -0.7, Z: 0.2},
	}
	for _, v := range vectors {
		n := v.Normalize()
		x, y := OctEncode(n)
		back := OctDecode(x, y)

		cosAngle := n.Dot(back)
		if cosAngle > 1 {
			cosAngle = 1
		}
		if cosAngle < -1 {
			cosAngle = -1
		}
		angle := math.Acos(cosAngle)
		require.Less(t, angle, 0.02)
	}
}

func TestBoundingSphereContainsAllPoints(t *testing.T) {
	points := []ECEFPoint{
		LLHToECEF(8.0, 47.0, 0),
		LLHToECEF(8.1, 47.0, 100),
		LLHToECEF(8.0, 47.1, 50),
		LLHToECEF(8.1, 47.1, 0),
	}
	sphere := BoundingSphereFromPoints(points)
	for _, p := range points {
		d := p.Sub(sphere.Center).Magnitude()
		require.LessOrEqual(t, d, sphere.Radius*1.0001)
	}
}

// TestEncodeSingleTriangle exercises the scenario from spec.md: a single
// triangle covering a tile, checked against the byte layout's fixed
// header size and declared counts.
func TestEncodeSingleTriangle(t *testing.T) {
	tile := &mesh.Tile{
		Coord: grid.TileCoordinate{Zoom: 0, X: 0, Y: 0},
		Vertices: []mesh.Vertex3{
			{X: -10, Y: -10, Z: 0},
			{X: 10, Y: -10, Z: 100},
			{X: 0, Y: 10, Z: 50},
		},
		Indices: []uint32{0, 1, 2},
	}

	var buf bytes.Buffer
	require.NoError(t, Encode(&buf, tile, Options{}))

	gz, err := gzip.NewReader(&buf)
	require.NoError(t, err)
	defer gz.Close()

	payload, err := io.ReadAll(gz)
	require.NoError(t, err)

	// Header: center(24) + minmax height(8) + sphere(32) + occlusion(24) = 88
	const headerSize = 24 + 8 + 32 + 24
	require.Greater(t, len(payload), headerSize)

	vertexCount := int32(binary.LittleEndian.Uint32(payload[headerSize:]))
	require.Equal(t, int32(3), vertexCount)
}

func TestEncodeWithNormalsExtension(t *testing.T) {
	tile := &mesh.Tile{
		Coord: grid.TileCoordinate{Zoom: 0, X: 0, Y: 0},
		Vertices: []mesh.Vertex3{
			{X: -10, Y: -10, Z: 0},
			{X: 10, Y: -10, Z: 100},
			{X: 0, Y: 10, Z: 50},
		},
		Indices: []uint32{0, 1, 2},
	}

	var withNormals, without bytes.Buffer
	require.NoError(t, Encode(&withNormals, tile, Options{WriteVertexNormals: true}))
	require.NoError(t, Encode(&without, tile, Options{WriteVertexNormals: false}))

	require.Greater(t, withNormals.Len(), 0)
	require.Greater(t, without.Len(), 0)
}

func TestHighWaterMarkIndicesEncodedLength(t *testing.T) {
	indices := []uint32{0, 1, 2, 1, 2, 3}
	var buf bytes.Buffer
	writeHighWaterMarkIndices(&buf, indices, false)
	require.Equal(t, len(indices)*2, buf.Len())
}
