// Package raster extracts per-tile elevation windows from a georeferenced
// source raster. It mirrors a GDAL warp pipeline (target geotransform,
// resampling, overview selection, SRS reprojection) behind a small Source
// interface, so the core tiling pipeline never depends directly on a raster
// library.
//
// Grounded on internal/cog (COG/GeoTIFF reader) and a per-pixel
// inverse-warp sampling idiom for resampling.
package raster

import (
	"fmt"

	"github.com/geodata/ctb-tile/internal/ctberr"
)

// Resampling selects the interpolation kernel used when warping source
// pixels onto the output tile grid.
type Resampling int

const (
	ResamplingNearest Resampling = iota
	ResamplingBilinear
	ResamplingCubic
	ResamplingCubicSpline
	ResamplingLanczos
	ResamplingAverage
	ResamplingMode
	ResamplingMax
	ResamplingMin
	ResamplingMedian
	ResamplingQ1
	ResamplingQ3
)

// ResamplingForName parses a CLI resampling name, defaulting to average.
func ResamplingForName(name string) (Resampling, error) {
	switch name {
	case "", "average":
		return ResamplingAverage, nil
	case "nearest":
		return ResamplingNearest, nil
	case "bilinear":
		return ResamplingBilinear, nil
	case "cubic":
		return ResamplingCubic, nil
	case "cubicspline":
		return ResamplingCubicSpline, nil
	case "lanczos":
		return ResamplingLanczos, nil
	case "mode":
		return ResamplingMode, nil
	case "max":
		return ResamplingMax, nil
	case "min":
		return ResamplingMin, nil
	case "med":
		return ResamplingMedian, nil
	case "q1":
		return ResamplingQ1, nil
	case "q3":
		return ResamplingQ3, nil
	default:
		return 0, ctberr.New(ctberr.Config, fmt.Errorf("unknown resampling algorithm %q", name))
	}
}

// GeoTransform is the six-coefficient affine transform from pixel (col,row)
// to CRS coordinates: x = a + col*b, y = d + row*f (GDAL convention, with
// b and f the pixel sizes and b2/d2 sheared terms assumed zero).
type GeoTransform struct {
	OriginX, PixelWidth  float64
	OriginY, PixelHeight float64 // PixelHeight is negative (north-up)
}

// WarpSpec is the target grid a window is resampled onto, mirroring the
// GDAL warp options spec.md §4.2 requires of the collaborator.
type WarpSpec struct {
	TargetGeoTransform GeoTransform
	TargetWidth        int
	TargetHeight       int
	Resampling         Resampling
	WarpMemoryLimit    int64
	NoDataValue        float64
	ErrorThreshold     float64
}

// Window is a resampled float32 elevation grid plus a per-pixel validity
// mask (false where the source had no data).
type Window struct {
	Width, Height int
	Heights       []float32
	Valid         []bool
}

// At returns the height at (col,row) and whether it is valid (has data).
func (w *Window) At(col, row int) (float32, bool) {
	idx := row*w.Width + col
	if idx < 0 || idx >= len(w.Heights) {
		return 0, false
	}
	return w.Heights[idx], w.Valid[idx]
}

// Source is the raster collaborator contract from spec.md §6: a GDAL-like
// abstraction the core tiling pipeline consumes without depending on any
// particular raster library.
type Source interface {
	// GeoTransform returns the source's affine pixel-to-CRS transform.
	GeoTransform() GeoTransform
	// ProjectionEPSG returns the EPSG code of the source's SRS, or 0 if
	// unknown (callers should then assume the grid's own SRS).
	ProjectionEPSG() int
	// RasterSize returns the full-resolution pixel dimensions.
	RasterSize() (width, height int)
	// NoData returns the per-band no-data value for band 1 and whether one
	// is defined.
	NoData() (float64, bool)
	// Warp produces a resampled float32 window per spec.
	Warp(spec WarpSpec) (*Window, error)
	// PushOverview materialises and activates a coarser synthetic overview
	// scaled by 2^level from the finest currently active level, per
	// spec.md §4.2.1's overview-aware-reader retry strategy.
	PushOverview() error
	// PopOverview discards the most recently pushed synthetic overview.
	PopOverview()
	// Close releases any resources (memory maps, file handles) held by the
	// source.
	Close() error
}
