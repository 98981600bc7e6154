package manifest

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/geodata/ctb-tile/internal/grid"
)

func TestAggregatorBuildsAvailableRanges(t *testing.T) {
	agg := NewAggregator()
	agg.Record(grid.TileCoordinate{Zoom: 0, X: 0, Y: 0}, grid.CRSBounds{
		Min: grid.CRSPoint{X: -180, Y: -90}, Max: grid.CRSPoint{X: 0, Y: 90},
	})
	agg.Record(grid.TileCoordinate{Zoom: 1, X: 0, Y: 0}, grid.CRSBounds{
		Min: grid.CRSPoint{X: -180, Y: -90}, Max: grid.CRSPoint{X: -90, Y: 0},
	})
	agg.Record(grid.TileCoordinate{Zoom: 1, X: 1, Y: 1}, grid.CRSBounds{
		Min: grid.CRSPoint{X: -90, Y: 0}, Max: grid.CRSPoint{X: 0, Y: 90},
	})

	layer, err := agg.Build(Options{
		Name: "test", Format: "heightmap-1.0",
		ProjectionName: "EPSG:4326", MaxZoom: 2,
	})
	require.NoError(t, err)

	require.Len(t, layer.Available, 3)
	require.Empty(t, layer.Available[2])
	require.Equal(t, []AvailableRange{{StartX: 0, StartY: 0, EndX: 0, EndY: 0}}, layer.Available[0])
	require.Equal(t, []AvailableRange{{StartX: 0, StartY: 0, EndX: 1, EndY: 1}}, layer.Available[1])

	require.Equal(t, [4]float64{-180, -90, 0, 90}, layer.Bounds)
}

func TestAggregatorBuildWithNoTilesFails(t *testing.T) {
	agg := NewAggregator()
	_, err := agg.Build(Options{MaxZoom: 0})
	require.Error(t, err)
}

func TestMarshalFieldOrderAndNames(t *testing.T) {
	agg := NewAggregator()
	agg.Record(grid.TileCoordinate{Zoom: 0, X: 0, Y: 0}, grid.CRSBounds{
		Min: grid.CRSPoint{X: -180, Y: -90}, Max: grid.CRSPoint{X: 180, Y: 90},
	})
	layer, err := agg.Build(Options{
		Name: "n", Format: "quantized-mesh-1.0", ProjectionName: "EPSG:4326",
		MaxZoom: 0, WriteVertexNormals: true,
	})
	require.NoError(t, err)

	data, err := Marshal(layer)
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(data, &decoded))
	require.Equal(t, "2.1.0", decoded["tilejson"])
	require.Equal(t, "tms", decoded["schema"])
	require.Equal(t, []any{"octvertexnormals"}, decoded["extensions"])
	require.Equal(t, []any{"{z}/{x}/{y}.terrain?v={version}"}, decoded["tiles"])
}
