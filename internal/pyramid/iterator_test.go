package pyramid

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/geodata/ctb-tile/internal/grid"
)

func TestIteratorCoversEveryCoordinateExactlyOnce(t *testing.T) {
	profile := grid.Geodetic(65)
	bounds := profile.Extent
	it := NewIterator(profile, bounds, 0, 3)

	seen := make(map[grid.TileCoordinate]bool)
	var total uint64
	for n := uint64(0); ; n++ {
		coord, ok := it.At(n)
		if !ok {
			total = n
			break
		}
		require.False(t, seen[coord], "coordinate %+v produced twice", coord)
		seen[coord] = true
		require.True(t, profile.ValidCoordinate(coord))
	}

	require.Equal(t, it.Total(), total)

	var want uint64
	for z := uint8(0); z <= 3; z++ {
		r := profile.TileRangeForBounds(bounds, z)
		want += r.Count()
	}
	require.Equal(t, want, it.Total())
}

func TestIteratorOutOfRange(t *testing.T) {
	profile := grid.Geodetic(65)
	it := NewIterator(profile, profile.Extent, 0, 0)
	_, ok := it.At(it.Total())
	require.False(t, ok)
}

func TestIteratorHighestZoomFirst(t *testing.T) {
	profile := grid.Geodetic(65)
	it := NewIterator(profile, profile.Extent, 0, 2)
	coord, ok := it.At(0)
	require.True(t, ok)
	require.Equal(t, uint8(2), coord.Zoom)
}
