package mesh

import (
	"testing"

	"github.com/geodata/ctb-tile/internal/grid"
	"github.com/stretchr/testify/require"
)

func flatHeights(size int) []float32 {
	h := make([]float32, size*size)
	return h
}

func TestFlatHeightfieldProducesOnlyCorners(t *testing.T) {
	const size = 65
	hf := NewHeightField(flatHeights(size), size)

	// Large error budget from the spec scenario: geodetic, tileWidth=65,
	// quality=0.25, qualityFactor=1, tilesAtZoomZero=2.
	profile := grid.Geodetic(65)
	eMax := ErrorBudgetForZoom(profile, 1.0, 65, 0)
	require.InDelta(t, 77042.56, eMax, 50)

	hf.ApplyGeometricError(eMax, false)

	bounds := grid.CRSBounds{Min: grid.CRSPoint{-180, -90}, Max: grid.CRSPoint{180, 90}}
	tile := &Tile{Coord: grid.TileCoordinate{Zoom: 0, X: 0, Y: 0}}
	emitter := NewTileEmitter(tile, bounds, size, size)

	hf.GenerateMesh(emitter, 0)

	require.Len(t, tile.Vertices, 4)
	require.Len(t, tile.Indices, 6) // 2 triangles
}

// TestPropagateWritesEdgeMidpointsAtHalfOffsetNotQuarter pins down the
// quadtree-upward propagation's vertex addressing directly, independent of
// GenerateMesh or emit. A 9x9 field has its level-1 quadrant centers seeded
// by hand, and propagate is invoked once at the point where it stops
// descending (level == targetLevel) so only the edge-midpoint/center
// addressing is under test.
func TestPropagateWritesEdgeMidpointsAtHalfOffsetNotQuarter(t *testing.T) {
	hf := NewHeightField(flatHeights(9), 9)

	// Quadrant centers around (4,4) at the level-2 quarter offset (2).
	hf.activate(6, 2, 1) // ne
	hf.activate(2, 2, 2) // nw
	hf.activate(2, 6, 3) // sw
	hf.activate(6, 6, 0) // se

	hf.propagate(4, 4, 2, 2)

	// Edge midpoints belong at the half offset (4) from the center, not the
	// quarter offset (2) used to reach the quadrant centers themselves.
	require.Equal(t, 2, hf.getLevel(4, 0), "north edge midpoint")
	require.Equal(t, 3, hf.getLevel(0, 4), "west edge midpoint")
	require.Equal(t, 3, hf.getLevel(4, 8), "south edge midpoint")
	require.Equal(t, 1, hf.getLevel(8, 4), "east edge midpoint")
	require.Equal(t, 3, hf.getLevel(4, 4), "center")

	// The quarter-offset positions a half/quarter mix-up would have written
	// to instead must be left untouched.
	require.Equal(t, -1, hf.getLevel(4, 2))
	require.Equal(t, -1, hf.getLevel(2, 4))
	require.Equal(t, -1, hf.getLevel(4, 6))
	require.Equal(t, -1, hf.getLevel(6, 4))
}

// TestReliefBumpSurvivesOnlyBelowItsActivationLevel exercises
// ApplyGeometricError and GenerateMesh together over a heightfield with
// actual relief, rather than the all-zero field TestFlatHeightfieldProducesOnlyCorners
// uses. A single center bump of height 80 against a maxError of 10 yields
// errVal=80, so update() assigns it activation level floor(log2(8)+0.5)=3;
// it must appear in the output mesh at levels 0-3 and be dropped at 4.
func TestReliefBumpSurvivesOnlyBelowItsActivationLevel(t *testing.T) {
	const size = 65
	const bumpX, bumpY = 32, 32
	const bumpHeight = 80

	bounds := grid.CRSBounds{Min: grid.CRSPoint{-180, -90}, Max: grid.CRSPoint{180, 90}}

	for level := 0; level <= 4; level++ {
		heights := flatHeights(size)
		heights[bumpY*size+bumpX] = bumpHeight
		hf := NewHeightField(heights, size)
		hf.ApplyGeometricError(10, false)

		tile := &Tile{Coord: grid.TileCoordinate{Zoom: 0, X: 0, Y: 0}}
		emitter := NewTileEmitter(tile, bounds, size, size)
		hf.GenerateMesh(emitter, level)

		hasBump := false
		for _, v := range tile.Vertices {
			if v.Z == bumpHeight {
				hasBump = true
				break
			}
		}
		if level <= 3 {
			require.Truef(t, hasBump, "level %d: bump vertex (activation level 3) should survive", level)
		} else {
			require.Falsef(t, hasBump, "level %d: bump vertex should be dropped above its activation level", level)
		}
	}
}

func TestActivationLevelPacking(t *testing.T) {
	hf := NewHeightField(flatHeights(9), 9)
	require.Equal(t, -1, hf.getLevel(3, 4))
	hf.setLevel(3, 4, 7)
	require.Equal(t, 7, hf.getLevel(3, 4))
	hf.setLevel(4, 4, 2)
	require.Equal(t, 2, hf.getLevel(4, 4))
	require.Equal(t, 7, hf.getLevel(3, 4)) // neighboring nibble unaffected
}

func TestActivateIsMaxPreserving(t *testing.T) {
	hf := NewHeightField(flatHeights(9), 9)
	hf.activate(1, 1, 3)
	hf.activate(1, 1, 1) // lower, should not override
	require.Equal(t, 3, hf.getLevel(1, 1))
	hf.activate(1, 1, 5)
	require.Equal(t, 5, hf.getLevel(1, 1))
}

func TestNeighborCoordBoundaries(t *testing.T) {
	profile := grid.Geodetic(65)
	coord := grid.TileCoordinate{Zoom: 0, X: 0, Y: 0}

	_, ok := NeighborCoord(profile, coord, BorderWest)
	require.False(t, ok)
	_, ok = NeighborCoord(profile, coord, BorderSouth)
	require.False(t, ok)

	n, ok := NeighborCoord(profile, coord, BorderEast)
	require.True(t, ok)
	require.Equal(t, grid.TileCoordinate{Zoom: 0, X: 1, Y: 0}, n)

	_, ok = NeighborCoord(profile, coord, BorderNorth)
	require.False(t, ok)

	n, ok = NeighborCoord(profile, grid.TileCoordinate{Zoom: 1, X: 0, Y: 0}, BorderNorth)
	require.True(t, ok)
	require.Equal(t, grid.TileCoordinate{Zoom: 1, X: 0, Y: 1}, n)
}

func TestErrorBudgetHalvesPerZoom(t *testing.T) {
	profile := grid.Geodetic(65)
	e0 := ErrorBudgetForZoom(profile, 1.0, 65, 0)
	e1 := ErrorBudgetForZoom(profile, 1.0, 65, 1)
	require.InDelta(t, e0/2, e1, 1e-6)
}
