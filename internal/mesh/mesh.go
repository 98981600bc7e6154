package mesh

import "github.com/geodata/ctb-tile/internal/grid"

// Vertex3 is a mesh vertex in the grid's CRS (longitude/latitude degrees
// and metres, for geodetic).
type Vertex3 struct {
	X, Y, Z float64
}

// Tile is an irregular quantized-mesh tile's geometry, before byte encoding.
type Tile struct {
	Coord      grid.TileCoordinate
	Vertices   []Vertex3
	Indices    []uint32
	ChildFlags uint8
}

// Emitter receives emitted vertices during mesh generation and is
// responsible for building the final indexed vertex/index buffers. It
// plays the role of the abstract `mesh` interface from the original
// source: a small emit-vertex capability, not a class hierarchy.
type Emitter interface {
	Clear()
	EmitVertex(hf *HeightField, x, y int)
}

// tileEmitter is the concrete Emitter used to build a Tile: it converts
// grid-space (x,y) coordinates into CRS-space vertices and deduplicates
// repeated grid cells via a hash from grid index to vertex-array index.
type tileEmitter struct {
	bounds     grid.CRSBounds
	tile       *Tile
	cellSizeX  float64
	cellSizeY  float64
	indexOfPos map[int]int
}

// NewTileEmitter builds an Emitter that appends into tile, mapping the
// heightfield's (tileSizeX x tileSizeY) grid onto bounds in CRS space.
func NewTileEmitter(tile *Tile, bounds grid.CRSBounds, tileSizeX, tileSizeY int) Emitter {
	return &tileEmitter{
		tile:       tile,
		bounds:     bounds,
		cellSizeX:  bounds.Width() / float64(tileSizeX-1),
		cellSizeY:  bounds.Height() / float64(tileSizeY-1),
		indexOfPos: make(map[int]int),
	}
}

func (e *tileEmitter) Clear() {
	e.tile.Vertices = e.tile.Vertices[:0]
	e.tile.Indices = e.tile.Indices[:0]
	e.indexOfPos = make(map[int]int)
}

func (e *tileEmitter) EmitVertex(hf *HeightField, x, y int) {
	gridIndex := hf.IndexOfGridCoordinate(x, y)
	if iv, ok := e.indexOfPos[gridIndex]; ok {
		e.tile.Indices = append(e.tile.Indices, uint32(iv))
		return
	}

	xmin := e.bounds.Min.X
	ymax := e.bounds.Max.Y
	height := hf.Height(x, y)

	iv := len(e.tile.Vertices)
	e.tile.Vertices = append(e.tile.Vertices, Vertex3{
		X: xmin + float64(x)*e.cellSizeX,
		Y: ymax - float64(y)*e.cellSizeY,
		Z: height,
	})
	e.indexOfPos[gridIndex] = iv
	e.tile.Indices = append(e.tile.Indices, uint32(iv))
}

// GenerateMesh walks the heightfield's bisection tree at output level
// `level` (0 = finest), emitting a leaf triangle wherever the base vertex
// of a bisection step is not active at this level, and recursing further
// wherever it is. This visits the same bisection tree shape used by
// ApplyGeometricError's error pass, now driven by the already-assigned
// (and possibly border-stitched) activation levels.
func (hf *HeightField) GenerateMesh(e Emitter, level int) {
	e.Clear()
	size := hf.Size

	hf.emit(e, level, point{size - 1, 0}, point{size - 1, size - 1}, point{0, 0})
	hf.emit(e, level, point{0, size - 1}, point{0, 0}, point{size - 1, size - 1})
}

func (hf *HeightField) emit(e Emitter, level int, apex, right, left point) {
	dx := right.x - left.x
	if dx < 0 {
		dx = -dx
	}
	dy := right.y - left.y
	if dy < 0 {
		dy = -dy
	}

	if dx > 1 || dy > 1 {
		b := midpoint(right, left)
		if hf.getLevel(b.x, b.y) >= level {
			hf.emit(e, level, b, apex, right)
			hf.emit(e, level, b, left, apex)
			return
		}
	}

	e.EmitVertex(hf, left.x, left.y)
	e.EmitVertex(hf, apex.x, apex.y)
	e.EmitVertex(hf, right.x, right.y)
}

// Clear releases the heightfield's working storage. Call after
// GenerateMesh has consumed all needed output for this tile.
func (hf *HeightField) Clear() {
	hf.Heights = nil
	hf.levels = nil
}
