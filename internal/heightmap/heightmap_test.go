package heightmap

import (
	"bytes"
	"testing"

	"github.com/geodata/ctb-tile/internal/grid"
	"github.com/stretchr/testify/require"
)

func TestQuantizeHeightRoundTrip(t *testing.T) {
	for _, h := range []float64{0, 1000, -1000, 5500, -418, 4.5} {
		q := QuantizeHeight(h)
		got := DequantizeHeight(q)
		require.InDelta(t, h, got, 0.2)
	}
}

func TestQuantizeHeightSaturates(t *testing.T) {
	require.Equal(t, int16(32767), QuantizeHeight(1e9))
	require.Equal(t, int16(-32768), QuantizeHeight(-1e9))
}

func TestRoundTripUniformMask(t *testing.T) {
	tile := &Tile{
		Coord:      grid.TileCoordinate{Zoom: 5, X: 3, Y: 7},
		ChildFlags: ChildSE,
		Mask:       AllLand(),
	}
	for i := range tile.Heights {
		tile.Heights[i] = int16(i % 100)
	}

	var buf bytes.Buffer
	require.NoError(t, Encode(&buf, tile))

	got, err := Decode(&buf, tile.Coord)
	require.NoError(t, err)
	require.Equal(t, tile.Heights, got.Heights)
	require.Equal(t, tile.ChildFlags, got.ChildFlags)
	require.False(t, got.Mask.IsFine())
	require.Equal(t, tile.Mask.Uniform, got.Mask.Uniform)
}

func TestRoundTripFineMask(t *testing.T) {
	tile := &Tile{Coord: grid.TileCoordinate{Zoom: 1, X: 0, Y: 0}}
	tile.Mask = Mask{Fine: make([]byte, FineMaskSize)}
	for i := range tile.Mask.Fine {
		tile.Mask.Fine[i] = byte(i)
	}

	var buf bytes.Buffer
	require.NoError(t, Encode(&buf, tile))

	got, err := Decode(&buf, tile.Coord)
	require.NoError(t, err)
	require.True(t, got.Mask.IsFine())
	require.Equal(t, tile.Mask.Fine, got.Mask.Fine)
}

func TestChildFlagsForBoundsScenario(t *testing.T) {
	source := grid.CRSBounds{Min: grid.CRSPoint{0, 0}, Max: grid.CRSPoint{90, 45}}
	tile := grid.CRSBounds{Min: grid.CRSPoint{-90, -90}, Max: grid.CRSPoint{90, 0}}
	require.Equal(t, ChildSE, ChildFlagsForBounds(source, tile))
}

func TestChildFlagsNoOverlapClearsAll(t *testing.T) {
	source := grid.CRSBounds{Min: grid.CRSPoint{1000, 1000}, Max: grid.CRSPoint{2000, 2000}}
	tile := grid.CRSBounds{Min: grid.CRSPoint{-90, -90}, Max: grid.CRSPoint{90, 0}}
	require.Equal(t, uint8(0), ChildFlagsForBounds(source, tile))
}
