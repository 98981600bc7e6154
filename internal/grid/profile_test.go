package grid

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestGeodeticResolutionAtZoomZero(t *testing.T) {
	p := Geodetic(65)
	require.InDelta(t, 180.0/65.0, p.Resolution(0), 1e-9)
}

func TestGeodeticTileBoundsZoomZero(t *testing.T) {
	p := Geodetic(65)
	b := p.TileBounds(TileCoordinate{Zoom: 0, X: 0, Y: 0})
	require.InDelta(t, -180.0, b.Min.X, 1e-9)
	require.InDelta(t, -90.0, b.Min.Y, 1e-9)
}

func TestTileBoundsWidthMatchesResolution(t *testing.T) {
	for _, p := range []Profile{Geodetic(65), Mercator(256)} {
		for zoom := uint8(0); zoom < 6; zoom++ {
			b := p.TileBounds(TileCoordinate{Zoom: zoom, X: 0, Y: 0})
			want := p.Resolution(zoom) * float64(p.TileSize)
			require.InDelta(t, want, b.Width(), want*1e-9)
		}
	}
}

func TestCRSToTileRoundTrip(t *testing.T) {
	p := Geodetic(65)
	for zoom := uint8(0); zoom < 8; zoom++ {
		for x := uint32(0); x < 4; x++ {
			for y := uint32(0); y < 4; y++ {
				coord := TileCoordinate{Zoom: zoom, X: x, Y: y}
				if !p.ValidCoordinate(coord) {
					continue
				}
				bounds := p.TileBounds(coord)
				// The lower-left corner is a boundary tie that PixelsToTile
				// assigns to the lower neighbour, so probe the tile centre.
				centre := CRSPoint{X: (bounds.Min.X + bounds.Max.X) / 2, Y: (bounds.Min.Y + bounds.Max.Y) / 2}
				got := p.CRSToTile(centre, zoom)
				require.Equal(t, coord, got)
			}
		}
	}
}

func TestChildFlagScenario(t *testing.T) {
	// Scenario from spec: source bounds (0,0,90,45), target tile at zoom 1
	// covering (-90,-90,90,0). Only the SE sub-quadrant overlaps the source.
	sourceBounds := CRSBounds{Min: CRSPoint{0, 0}, Max: CRSPoint{90, 45}}
	tileBounds := CRSBounds{Min: CRSPoint{-90, -90}, Max: CRSPoint{90, 0}}

	sw, se, nw, ne := tileBounds.Quadrants()
	require.False(t, sourceBounds.Overlaps(sw))
	require.True(t, sourceBounds.Overlaps(se))
	require.False(t, sourceBounds.Overlaps(nw))
	require.False(t, sourceBounds.Overlaps(ne))
}

func TestZoomForResolutionRoundsUp(t *testing.T) {
	p := Geodetic(65)
	res0 := p.Resolution(0)
	require.Equal(t, uint8(0), p.ZoomForResolution(res0))
	// A resolution slightly finer than zoom 3's should round up to zoom 4,
	// not down to 3.
	res3 := p.Resolution(3)
	z := p.ZoomForResolution(res3 * 0.99)
	require.Equal(t, uint8(4), z)
}

func TestToOrbBound(t *testing.T) {
	b := CRSBounds{Min: CRSPoint{-10, -20}, Max: CRSPoint{10, 20}}
	ob := b.ToOrb()
	require.Equal(t, -10.0, ob.Min[0])
	require.Equal(t, 20.0, ob.Max[1])
}

func TestMercatorExtentHalfCircumference(t *testing.T) {
	p := Mercator(256)
	require.True(t, math.Abs(p.Extent.Max.X-WebMercatorHalfCircumference) < 1e-6)
}
