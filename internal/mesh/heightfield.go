// Package mesh implements the Lindstrom-Koller "chunked LOD" reduction of a
// regular height grid into an irregular triangle mesh, following a per-zoom
// geometric-error budget, with deterministic activation-level propagation
// and inter-tile edge stitching.
//
// Grounded on original_source/src/HeightFieldChunker.hpp (Thatcher Ulrich's
// heightfield_chunker.cpp, as adapted by cesium-terrain-builder).
package mesh

import "math"

// levelUnset marks a heightfield vertex whose activation level has not yet
// been assigned.
const levelUnset = 0x0F

// HeightField is the chunked-LOD mesher's working state over one height
// grid. Size must be 2^k+1 for some k (65 for the standard tile size).
type HeightField struct {
	Size    int
	Heights []float32

	logSize int
	levels  []uint8 // packed 2 nibbles/byte: low nibble even x, high nibble odd x
}

// NewHeightField builds a HeightField over heights, a row-major size*size
// grid of float32 samples.
func NewHeightField(heights []float32, size int) *HeightField {
	hf := &HeightField{
		Size:    size,
		Heights: heights,
		logSize: int(math.Log2(float64(size-1)) + 0.5),
	}
	hf.levels = make([]uint8, (size*size+1)/2)
	for i := range hf.levels {
		hf.levels[i] = 0xFF // both nibbles unset
	}
	return hf
}

// IndexOfGridCoordinate returns the row-major index of grid cell (x,y).
func (hf *HeightField) IndexOfGridCoordinate(x, y int) int {
	return y*hf.Size + x
}

// Height returns the height sample at grid cell (x,y).
func (hf *HeightField) Height(x, y int) float64 {
	return float64(hf.Heights[hf.IndexOfGridCoordinate(x, y)])
}

func (hf *HeightField) getLevel(x, y int) int {
	idx := hf.IndexOfGridCoordinate(x, y)
	b := hf.levels[idx/2]
	var nibble uint8
	if idx%2 == 0 {
		nibble = b & 0x0F
	} else {
		nibble = (b >> 4) & 0x0F
	}
	if nibble == levelUnset {
		return -1
	}
	return int(nibble)
}

func (hf *HeightField) setLevel(x, y, level int) {
	idx := hf.IndexOfGridCoordinate(x, y)
	cur := hf.levels[idx/2]
	if idx%2 == 0 {
		hf.levels[idx/2] = (cur & 0xF0) | uint8(level&0x0F)
	} else {
		hf.levels[idx/2] = (cur & 0x0F) | uint8((level&0x0F)<<4)
	}
}

// activate raises the activation level at (x,y) to level if it is
// currently lower (or unset). Max-preserving.
func (hf *HeightField) activate(x, y, level int) {
	if level > hf.getLevel(x, y) {
		hf.setLevel(x, y, level)
	}
}

// ApplyGeometricError computes activation levels for every vertex given a
// maximum allowed geometric error at this zoom level. When smoothSmallZooms
// is set, a coarse regular lattice is forced to level 0 in addition to the
// error-driven activations (used at low zoom levels per the original
// pipeline's coord.zoom <= 6 rule).
func (hf *HeightField) ApplyGeometricError(maxError float64, smoothSmallZooms bool) {
	size := hf.Size

	hf.update(maxError, point{size - 1, 0}, point{size - 1, size - 1}, point{0, 0})
	hf.update(maxError, point{0, size - 1}, point{0, 0}, point{size - 1, size - 1})

	// Corners are always activated at level 0.
	hf.activate(0, 0, 0)
	hf.activate(size-1, 0, 0)
	hf.activate(0, size-1, 0)
	hf.activate(size-1, size-1, 0)

	if smoothSmallZooms {
		step := size / 16
		if step < 1 {
			step = 1
		}
		for x := 0; x < size; x += step {
			for y := 0; y < size; y += step {
				hf.activate(x, y, 0)
			}
		}
	}

	hf.propagateAll()
}

type point struct{ x, y int }

func midpoint(a, b point) point {
	return point{(a.x + b.x) / 2, (a.y + b.y) / 2}
}

// update is the base error-computation bisection: given a triangle
// (apex, right, left), compute the base vertex's geometric error against
// linear interpolation between left and right, assign an activation level
// when the error exceeds maxError, and recurse into the two sub-triangles.
func (hf *HeightField) update(maxError float64, apex, right, left point) {
	dx := right.x - left.x
	if dx < 0 {
		dx = -dx
	}
	dy := right.y - left.y
	if dy < 0 {
		dy = -dy
	}
	if dx <= 1 && dy <= 1 {
		return
	}

	b := midpoint(right, left)
	errVal := math.Abs(hf.Height(b.x, b.y) - 0.5*(hf.Height(left.x, left.y)+hf.Height(right.x, right.y)))

	if errVal >= maxError {
		level := int(math.Floor(math.Log2(errVal/maxError) + 0.5))
		hf.activate(b.x, b.y, level)
	}

	hf.update(maxError, b, apex, right)
	hf.update(maxError, b, left, apex)
}

// propagateAll runs the quadtree-upward activation-level propagation pass.
// The inner propagate call is deliberately invoked twice per iteration,
// matching the original source exactly (documented there as giving the
// same result as the reference Lindstrom-Koller implementation).
func (hf *HeightField) propagateAll() {
	size := hf.Size
	cx, cy := size/2, size/2
	for i := 0; i < hf.logSize; i++ {
		hf.propagate(cx, cy, hf.logSize-1, i)
		hf.propagate(cx, cy, hf.logSize-1, i)
	}
}

// propagate implements the quadtree-upward propagation of activation
// levels: at the target level, the four diagonal child-center vertices'
// levels are propagated to the four edge midpoints, and those in turn to
// the square's center, all via the max-preserving activate(). A level-0
// square has no child centres, so only its edge-to-centre step runs.
func (hf *HeightField) propagate(cx, cy, level, targetLevel int) {
	half := 1 << uint(level)
	quarter := half / 2
	if quarter < 1 {
		quarter = 1
	}

	if level > targetLevel {
		hf.propagate(cx-quarter, cy-quarter, level-1, targetLevel)
		hf.propagate(cx+quarter, cy-quarter, level-1, targetLevel)
		hf.propagate(cx-quarter, cy+quarter, level-1, targetLevel)
		hf.propagate(cx+quarter, cy+quarter, level-1, targetLevel)
	}

	if level == targetLevel {
		if level > 0 {
			ne := hf.getLevel(cx+quarter, cy-quarter)
			nw := hf.getLevel(cx-quarter, cy-quarter)
			sw := hf.getLevel(cx-quarter, cy+quarter)
			se := hf.getLevel(cx+quarter, cy+quarter)

			hf.activate(cx, cy-half, maxInt(ne, nw)) // north edge midpoint
			hf.activate(cx-half, cy, maxInt(nw, sw)) // west edge midpoint
			hf.activate(cx, cy+half, maxInt(sw, se)) // south edge midpoint
			hf.activate(cx+half, cy, maxInt(se, ne)) // east edge midpoint
		}

		n := hf.getLevel(cx, cy-half)
		s := hf.getLevel(cx, cy+half)
		e := hf.getLevel(cx+half, cy)
		w := hf.getLevel(cx-half, cy)
		hf.activate(cx, cy, maxInt(maxInt(n, s), maxInt(e, w)))
	}
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
