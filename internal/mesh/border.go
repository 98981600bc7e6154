package mesh

import "github.com/geodata/ctb-tile/internal/grid"

// Border indices, per spec: W=0 (west), N=1 (north), E=2 (east), S=3 (south).
const (
	BorderWest = iota
	BorderNorth
	BorderEast
	BorderSouth
)

// NeighborCoord returns the tile coordinate adjacent to coord across the
// given border, and whether that neighbour lies within the grid's valid
// tile index space.
//
//	border | neighbour coord relative to (z,x,y)
//	-------|-------------------------------------
//	W (0)  | (z, x-1, y)   requires x > 0
//	N (1)  | (z, x,   y+1) requires y < maxY
//	E (2)  | (z, x+1, y)   requires x < maxX
//	S (3)  | (z, x,   y-1) requires y > 0
func NeighborCoord(profile grid.Profile, coord grid.TileCoordinate, border int) (grid.TileCoordinate, bool) {
	limit := uint32(profile.RootTiles)<<coord.Zoom - 1

	switch border {
	case BorderWest:
		if coord.X == 0 {
			return grid.TileCoordinate{}, false
		}
		return grid.TileCoordinate{Zoom: coord.Zoom, X: coord.X - 1, Y: coord.Y}, true
	case BorderNorth:
		n := grid.TileCoordinate{Zoom: coord.Zoom, X: coord.X, Y: coord.Y + 1}
		if !profile.ValidCoordinate(n) {
			return grid.TileCoordinate{}, false
		}
		return n, true
	case BorderEast:
		if coord.X >= limit {
			return grid.TileCoordinate{}, false
		}
		return grid.TileCoordinate{Zoom: coord.Zoom, X: coord.X + 1, Y: coord.Y}, true
	case BorderSouth:
		if coord.Y == 0 {
			return grid.TileCoordinate{}, false
		}
		return grid.TileCoordinate{Zoom: coord.Zoom, X: coord.X, Y: coord.Y - 1}, true
	default:
		return grid.TileCoordinate{}, false
	}
}

// ApplyBorderActivationState imports the neighbour heightfield's matching
// border activation levels into hf's corresponding border, then re-runs
// the propagation pass. Grid y increases southward (row 0 is the tile's
// north edge, row Size-1 is the south edge; column 0 is west, column
// Size-1 is east) — matching the mesh emitter's CRS placement
// (ymax - y*cellSizeY).
//
//	border | this tile's edge | imported from neighbour's edge
//	-------|------------------|-------------------------------
//	W (0)  | column x=0       | neighbour's column x=Size-1 (east)
//	N (1)  | row y=0          | neighbour's row y=Size-1 (south)
//	E (2)  | column x=Size-1  | neighbour's column x=0 (west)
//	S (3)  | row y=Size-1     | neighbour's row y=0 (north)
func (hf *HeightField) ApplyBorderActivationState(neighbor *HeightField, border int) {
	size := hf.Size

	switch border {
	case BorderWest:
		for y := 0; y < size; y++ {
			hf.activate(0, y, neighbor.getLevel(size-1, y))
		}
	case BorderNorth:
		for x := 0; x < size; x++ {
			hf.activate(x, 0, neighbor.getLevel(x, size-1))
		}
	case BorderEast:
		for y := 0; y < size; y++ {
			hf.activate(size-1, y, neighbor.getLevel(0, y))
		}
	case BorderSouth:
		for x := 0; x < size; x++ {
			hf.activate(x, size-1, neighbor.getLevel(x, 0))
		}
	}

	hf.propagateAll()
}
