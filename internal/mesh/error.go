package mesh

import (
	"math"

	"github.com/geodata/ctb-tile/internal/grid"
)

// WGS84SemiMajorAxis is Earth's semi-major axis in metres, used by the
// geometric-error budget formula below.
const WGS84SemiMajorAxis = 6378137.0

// DefaultHeightmapTerrainQuality is the default quality baseline used to
// derive a mesh's level-zero geometric error, matching the Cesium
// TerrainProvider.js default for heightmap-derived meshes.
const DefaultHeightmapTerrainQuality = 0.25

// ErrorBudgetForZoom returns the maximum geometric error (in the grid's
// CRS linear units, approximated via the WGS84 semi-major axis) allowed
// for meshes at the given zoom level:
//
//	E_0 = (A * 2*pi * quality * qualityFactor) / (tileWidth * tilesAtZoomZero)
//	E_z = E_0 / 2^z
func ErrorBudgetForZoom(profile grid.Profile, qualityFactor float64, tileWidth int, zoom uint8) float64 {
	resolutionAtZero := profile.Resolution(0)
	tilesAtZoomZero := profile.Extent.Width() / (float64(tileWidth) * resolutionAtZero)

	quality := DefaultHeightmapTerrainQuality * qualityFactor
	e0 := WGS84SemiMajorAxis * 2 * math.Pi * quality / (float64(tileWidth) * tilesAtZoomZero)

	return e0 / math.Pow(2, float64(zoom))
}
