package raster

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/geodata/ctb-tile/internal/grid"
)

func TestEmptySourceFillsOnlyInsideTheInsetRectangle(t *testing.T) {
	bounds := grid.CRSBounds{Min: grid.CRSPoint{X: -180, Y: -90}, Max: grid.CRSPoint{X: -178, Y: -88}}
	src := NewEmptySource(bounds, 4326, 0.5, 42)

	w, h := src.RasterSize()
	require.Equal(t, 2, w)
	require.Equal(t, 2, h)

	gt := src.GeoTransform()
	spec := WarpSpec{
		TargetGeoTransform: gt,
		TargetWidth:        4,
		TargetHeight:       4,
	}
	win, err := src.Warp(spec)
	require.NoError(t, err)

	// The inset shrinks the fill rectangle by 0.5 degrees on every side, and
	// the 4x4 sample grid on the source's own geotransform reaches past that
	// rectangle, so it sees both valid (inside) and invalid (outside) samples.
	var validCount, invalidCount int
	for i, v := range win.Valid {
		if v {
			validCount++
			require.Equal(t, float32(42), win.Heights[i])
		} else {
			invalidCount++
		}
	}
	require.Positive(t, validCount)
	require.Positive(t, invalidCount)
}

func TestEmptySourceFallsBackToFullBoundsWhenInsetWouldInvert(t *testing.T) {
	bounds := grid.CRSBounds{Min: grid.CRSPoint{X: 0, Y: 0}, Max: grid.CRSPoint{X: 1, Y: 1}}
	src := NewEmptySource(bounds, 4326, 10, 7)

	gt := src.GeoTransform()
	win, err := src.Warp(WarpSpec{TargetGeoTransform: gt, TargetWidth: 2, TargetHeight: 2})
	require.NoError(t, err)
	for i, v := range win.Valid {
		require.True(t, v)
		require.Equal(t, float32(7), win.Heights[i])
	}
}

func TestEmptySourceReportsNoOverviewsAndNoData(t *testing.T) {
	src := NewEmptySource(grid.CRSBounds{Min: grid.CRSPoint{X: -1, Y: -1}, Max: grid.CRSPoint{X: 1, Y: 1}}, 4326, 0, 0)
	require.NoError(t, src.PushOverview())
	src.PopOverview()
	require.NoError(t, src.Close())
	_, ok := src.NoData()
	require.False(t, ok)
	require.Equal(t, 4326, src.ProjectionEPSG())
}
