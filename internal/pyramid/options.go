package pyramid

import (
	"fmt"
	"strings"

	"github.com/geodata/ctb-tile/internal/ctberr"
	"github.com/geodata/ctb-tile/internal/grid"
	"github.com/geodata/ctb-tile/internal/raster"
)

// FormatForName resolves a CLI -f value to a Format, keeping the
// historical "Terrain" alias spec.md §6 lists alongside "heightmap".
// Anything else is taken as an opaque pass-through GDAL driver name.
func FormatForName(name string) (Format, string) {
	switch name {
	case "", "heightmap", "Terrain":
		return FormatHeightmap, ""
	case "mesh":
		return FormatMesh, ""
	default:
		return FormatGDAL, name
	}
}

// Extension returns the on-disk file extension (including the leading
// dot) for a tile produced in this format, per spec.md §6's on-disk
// layout (".terrain" for both terrain artifact families).
func (f Format) Extension() string {
	switch f {
	case FormatHeightmap, FormatMesh:
		return ".terrain"
	default:
		return ".terrain"
	}
}

// ManifestFormatName returns the exact layer.json "format" field value
// for this Format, per spec.md §4.8.
func (f Format) ManifestFormatName(driverName string) string {
	switch f {
	case FormatHeightmap:
		return "heightmap-1.0"
	case FormatMesh:
		return "quantized-mesh-1.0"
	default:
		if driverName != "" {
			return driverName
		}
		return "GDAL"
	}
}

// ParseCreationOption splits one repeatable "-n NAME=VALUE" flag value
// into a key/value pair, per spec.md §6. The parsed options are stored in
// Config.CreationOptions as an opaque map; nothing in the pipeline,
// raster.Source included, reads them (SPEC_FULL.md §12 item 3).
func ParseCreationOption(s string) (string, string, error) {
	name, value, ok := strings.Cut(s, "=")
	if !ok || name == "" {
		return "", "", ctberr.New(ctberr.Config, fmt.Errorf("creation option %q must be NAME=VALUE", s))
	}
	return name, value, nil
}

// ResolveMaxZoom computes the default start (maximum) zoom for a source:
// the zoom whose resolution first matches or exceeds the source's native
// pixel resolution, per spec.md §4.7 ("default = grid.zoomForResolution
// (sourceNativeResolution)").
func ResolveMaxZoom(profile grid.Profile, src raster.Source) uint8 {
	gt := src.GeoTransform()
	res := gt.PixelWidth
	if res <= 0 {
		res = -gt.PixelHeight
	}
	return profile.ZoomForResolution(res)
}
