package pyramid

import (
	"github.com/geodata/ctb-tile/internal/grid"
	"github.com/geodata/ctb-tile/internal/manifest"
	"github.com/geodata/ctb-tile/internal/raster"
	"github.com/geodata/ctb-tile/internal/serializer"
)

// cesiumRootInsetDegrees is the interior inset applied to the synthesized
// empty root tile's footprint, matching the 1-degree inset the original
// tool carves out of its synthetic GeoTIFF.
const cesiumRootInsetDegrees = 1.0

// applyCesiumFriendly fills in whichever of the geodetic profile's two
// zoom-0 root tiles the main pass left unwritten, so a cesium client that
// expects both 0/0/0 and 0/1/0 to exist never sees a missing root. It is a
// no-op unless the profile is geodetic, zoom 0 is within range, and
// exactly one of the two root tiles is missing on disk.
//
// Grounded on original_source/tools/ctb-tile.cpp's
// createEmptyRootElevationFile, invoked there under the same condition.
func applyCesiumFriendly(cfg Config, ser *serializer.Serializer, agg *manifest.Aggregator) error {
	if cfg.Profile.Name != "geodetic" || cfg.MinZoom != 0 {
		return nil
	}

	ext := cfg.Format.Extension()
	west := grid.TileCoordinate{Zoom: 0, X: 0, Y: 0}
	east := grid.TileCoordinate{Zoom: 0, X: 1, Y: 0}

	westExists, err := ser.Exists(west, ext)
	if err != nil {
		return err
	}
	eastExists, err := ser.Exists(east, ext)
	if err != nil {
		return err
	}
	if westExists == eastExists {
		return nil
	}

	missing := west
	if westExists {
		missing = east
	}
	missingBounds := cfg.Profile.TileBounds(missing)

	synth := raster.NewEmptySource(missingBounds, cfg.Profile.EPSG, cesiumRootInsetDegrees, 0)
	mem := NewMemGuard(0)

	if _, err := processTile(synth, cfg, missing, missingBounds, ser, agg, mem); err != nil {
		return err
	}

	agg.PatchZoom(0, 0, 0, 1, 0)
	return nil
}
