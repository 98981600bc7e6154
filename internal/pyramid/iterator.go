package pyramid

import "github.com/geodata/ctb-tile/internal/grid"

// Iterator is a pure function from a profile and a per-zoom tile-range
// table to a lazy, flat sequence of tile coordinates spanning
// [maxZoom..minZoom] (highest resolution first, the original's top-down
// generation order). It holds no mutable state of its own; callers share
// one Iterator across many goroutines and drive it with an external
// atomic counter (see Run in driver.go) in place of the original's
// mutex-guarded index.
type Iterator struct {
	ranges      []grid.TileRange // ranges[0] is the first zoom iterated (maxZoom)
	cumulative  []uint64         // cumulative[i] = sum of counts of ranges[0..i)
	total       uint64
}

// NewIterator builds an Iterator covering every tile at every zoom from
// maxZoom down to minZoom (inclusive), using bounds's coverage at each
// zoom under profile.
func NewIterator(profile grid.Profile, bounds grid.CRSBounds, minZoom, maxZoom uint8) *Iterator {
	it := &Iterator{}
	var cum uint64
	for z := int(maxZoom); z >= int(minZoom); z-- {
		r := profile.TileRangeForBounds(bounds, uint8(z))
		it.ranges = append(it.ranges, r)
		it.cumulative = append(it.cumulative, cum)
		cum += r.Count()
	}
	it.total = cum
	return it
}

// Total returns the number of coordinates in the sequence.
func (it *Iterator) Total() uint64 {
	return it.total
}

// At maps a flat linear index to a tile coordinate. The second return
// value is false once n has run past the end of the sequence.
func (it *Iterator) At(n uint64) (grid.TileCoordinate, bool) {
	if n >= it.total {
		return grid.TileCoordinate{}, false
	}

	// Linear scan over zooms: the number of zoom levels is small (tens at
	// most), so this is cheaper and simpler than a binary search.
	for i, r := range it.ranges {
		count := r.Count()
		base := it.cumulative[i]
		if n < base+count {
			offset := n - base
			height := uint64(r.Height())
			col := offset / height
			row := offset % height
			return grid.TileCoordinate{
				Zoom: r.Zoom,
				X:    r.MinX + uint32(col),
				Y:    r.MinY + uint32(row),
			}, true
		}
	}
	return grid.TileCoordinate{}, false
}
