// Package grid implements the tile/pixel/CRS coordinate algebra shared by
// both artifact families, for the geodetic (EPSG:4326) and mercator
// (EPSG:3857) tiling profiles.
package grid

import (
	"fmt"

	"github.com/paulmach/orb"
)

// TileCoordinate addresses a single tile using TMS conventions: origin at
// the lower-left, zoom increasing with finer resolution.
type TileCoordinate struct {
	Zoom uint8
	X, Y uint32
}

func (c TileCoordinate) String() string {
	return fmt.Sprintf("%d/%d/%d", c.Zoom, c.X, c.Y)
}

// PixelPoint is a location in pixel space at a particular zoom level.
type PixelPoint struct {
	X, Y float64
}

// CRSPoint is a location in the grid's coordinate reference system
// (degrees for geodetic, metres for mercator).
type CRSPoint struct {
	X, Y float64
}

// CRSBounds is a closed axis-aligned box in CRS space. The invariant
// Min.X <= Max.X && Min.Y <= Max.Y is enforced by the constructors below;
// callers that build one by hand must preserve it themselves.
type CRSBounds struct {
	Min, Max CRSPoint
}

// NewCRSBounds builds a CRSBounds from two arbitrary corners, ordering them
// so the invariant always holds.
func NewCRSBounds(a, b CRSPoint) CRSBounds {
	min := CRSPoint{X: minF(a.X, b.X), Y: minF(a.Y, b.Y)}
	max := CRSPoint{X: maxF(a.X, b.X), Y: maxF(a.Y, b.Y)}
	return CRSBounds{Min: min, Max: max}
}

func (b CRSBounds) Width() float64  { return b.Max.X - b.Min.X }
func (b CRSBounds) Height() float64 { return b.Max.Y - b.Min.Y }

// Overlaps reports whether b and other share any area (closed boxes).
func (b CRSBounds) Overlaps(other CRSBounds) bool {
	return b.Min.X <= other.Max.X && b.Max.X >= other.Min.X &&
		b.Min.Y <= other.Max.Y && b.Max.Y >= other.Min.Y
}

// OverlapsPoint reports whether a single point is covered (closed box).
func (b CRSBounds) OverlapsPoint(p CRSPoint) bool {
	return p.X >= b.Min.X && p.X <= b.Max.X && p.Y >= b.Min.Y && p.Y <= b.Max.Y
}

// Quadrants returns the four sub-quadrants (SW, SE, NW, NE) of b, used by
// the child-flag overlap test in the heightmap/mesh tilers.
func (b CRSBounds) Quadrants() (sw, se, nw, ne CRSBounds) {
	midX := (b.Min.X + b.Max.X) / 2
	midY := (b.Min.Y + b.Max.Y) / 2
	sw = CRSBounds{Min: CRSPoint{b.Min.X, b.Min.Y}, Max: CRSPoint{midX, midY}}
	se = CRSBounds{Min: CRSPoint{midX, b.Min.Y}, Max: CRSPoint{b.Max.X, midY}}
	nw = CRSBounds{Min: CRSPoint{b.Min.X, midY}, Max: CRSPoint{midX, b.Max.Y}}
	ne = CRSBounds{Min: CRSPoint{midX, midY}, Max: CRSPoint{b.Max.X, b.Max.Y}}
	return
}

// ToOrb converts b to an orb.Bound. internal/debugexport does not use it;
// it builds its GeoJSON footprints from an orb.Ring directly.
func (b CRSBounds) ToOrb() orb.Bound {
	return orb.Bound{
		Min: orb.Point{b.Min.X, b.Min.Y},
		Max: orb.Point{b.Max.X, b.Max.Y},
	}
}

// Union returns the smallest CRSBounds covering both b and other.
func (b CRSBounds) Union(other CRSBounds) CRSBounds {
	return CRSBounds{
		Min: CRSPoint{X: minF(b.Min.X, other.Min.X), Y: minF(b.Min.Y, other.Min.Y)},
		Max: CRSPoint{X: maxF(b.Max.X, other.Max.X), Y: maxF(b.Max.Y, other.Max.Y)},
	}
}

func minF(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}

func maxF(a, b float64) float64 {
	if a > b {
		return a
	}
	return b
}

// TileRange is an inclusive range of tile indices covering some bounds at a
// single zoom level.
type TileRange struct {
	Zoom             uint8
	MinX, MinY       uint32
	MaxX, MaxY       uint32
}

// Width is the number of tile columns, inclusive.
func (r TileRange) Width() uint32 { return r.MaxX - r.MinX + 1 }

// Height is the number of tile rows, inclusive.
func (r TileRange) Height() uint32 { return r.MaxY - r.MinY + 1 }

// Count is the total number of tiles covered.
func (r TileRange) Count() uint64 { return uint64(r.Width()) * uint64(r.Height()) }
