// Package debugexport renders optional visual-QA artifacts from a
// completed pyramid build: per-zoom footprint GeoJSON and per-tile
// shaded-relief WebP previews. Neither output feeds back into the core
// pipeline; both are strictly additive and off by default.
package debugexport

import (
	"encoding/json"
	"fmt"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"github.com/spf13/afero"

	"github.com/geodata/ctb-tile/internal/ctberr"
	"github.com/geodata/ctb-tile/internal/grid"
	"github.com/geodata/ctb-tile/internal/manifest"
)

// WriteGeoJSON renders one polygon feature per visited zoom level, each
// covering the union CRS footprint of that zoom's tile-index range, and
// writes the resulting FeatureCollection to path.
func WriteGeoJSON(fs afero.Fs, path string, profile grid.Profile, layer *manifest.Layer) error {
	fc := geojson.NewFeatureCollection()

	for zoom, ranges := range layer.Available {
		if len(ranges) == 0 {
			continue
		}
		r := ranges[0]

		sw := profile.TileBounds(grid.TileCoordinate{Zoom: uint8(zoom), X: uint32(r.StartX), Y: uint32(r.StartY)})
		ne := profile.TileBounds(grid.TileCoordinate{Zoom: uint8(zoom), X: uint32(r.EndX), Y: uint32(r.EndY)})
		bounds := sw.Union(ne)

		ring := orb.Ring{
			{bounds.Min.X, bounds.Min.Y},
			{bounds.Max.X, bounds.Min.Y},
			{bounds.Max.X, bounds.Max.Y},
			{bounds.Min.X, bounds.Max.Y},
			{bounds.Min.X, bounds.Min.Y},
		}

		f := geojson.NewFeature(orb.Polygon{ring})
		f.Properties["zoom"] = zoom
		f.Properties["startX"] = r.StartX
		f.Properties["startY"] = r.StartY
		f.Properties["endX"] = r.EndX
		f.Properties["endY"] = r.EndY
		fc.Append(f)
	}

	data, err := json.MarshalIndent(fc, "", "  ")
	if err != nil {
		return ctberr.New(ctberr.Encode, fmt.Errorf("debugexport: marshaling geojson: %w", err))
	}

	f, err := fs.Create(path)
	if err != nil {
		return ctberr.New(ctberr.Io, fmt.Errorf("debugexport: creating %s: %w", path, err))
	}
	defer f.Close()
	if _, err := f.Write(data); err != nil {
		return ctberr.New(ctberr.Io, fmt.Errorf("debugexport: writing %s: %w", path, err))
	}
	return nil
}
