package raster

import "github.com/geodata/ctb-tile/internal/grid"

// EmptySource is a synthetic, in-memory Source that reports a flat height
// everywhere within a CRS rectangle inset by insetDegrees from bounds,
// used by the pyramid driver's cesium-friendly root-tile post-pass
// (spec.md §4.7) to materialise the missing 0/0/0.terrain or 0/1/0.terrain
// tile without depending on the real raster collaborator.
//
// Grounded on original_source/tools/ctb-tile.cpp's
// createEmptyRootElevationFile, which builds a tiny in-memory GTiff with
// the same 1-degree interior inset and a constant elevation; here the
// synthetic dataset never touches the filesystem at all since raster
// creation is the collaborator's concern (spec.md §6).
type EmptySource struct {
	bounds     grid.CRSBounds
	epsg       int
	width      int
	height     int
	fillHeight float64
}

// NewEmptySource returns a Source covering bounds at epsg, reporting
// fillHeight everywhere inside a rectangle inset by insetDegrees on each
// side, and no-data outside it.
func NewEmptySource(bounds grid.CRSBounds, epsg int, insetDegrees, fillHeight float64) *EmptySource {
	inset := grid.CRSBounds{
		Min: grid.CRSPoint{X: bounds.Min.X + insetDegrees, Y: bounds.Min.Y + insetDegrees},
		Max: grid.CRSPoint{X: bounds.Max.X - insetDegrees, Y: bounds.Max.Y - insetDegrees},
	}
	if inset.Min.X >= inset.Max.X || inset.Min.Y >= inset.Max.Y {
		inset = bounds
	}
	return &EmptySource{
		bounds:     inset,
		epsg:       epsg,
		width:      2,
		height:     2,
		fillHeight: fillHeight,
	}
}

func (s *EmptySource) GeoTransform() GeoTransform {
	return GeoTransform{
		OriginX:     s.bounds.Min.X,
		PixelWidth:  s.bounds.Width() / float64(s.width),
		OriginY:     s.bounds.Max.Y,
		PixelHeight: -s.bounds.Height() / float64(s.height),
	}
}

func (s *EmptySource) ProjectionEPSG() int          { return s.epsg }
func (s *EmptySource) RasterSize() (int, int)       { return s.width, s.height }
func (s *EmptySource) NoData() (float64, bool)      { return 0, false }
func (s *EmptySource) Close() error                 { return nil }
func (s *EmptySource) PushOverview() error          { return nil }
func (s *EmptySource) PopOverview()                 {}

// Warp always returns a uniform window of fillHeight, clipped against the
// inset rectangle (outside it the sample is invalid, matching a source
// raster with a narrower footprint than its declared bounds).
func (s *EmptySource) Warp(spec WarpSpec) (*Window, error) {
	win := &Window{
		Width:  spec.TargetWidth,
		Height: spec.TargetHeight,
		Heights: make([]float32, spec.TargetWidth*spec.TargetHeight),
		Valid:   make([]bool, spec.TargetWidth*spec.TargetHeight),
	}
	res := -spec.TargetGeoTransform.PixelHeight
	for row := 0; row < spec.TargetHeight; row++ {
		y := spec.TargetGeoTransform.OriginY - (float64(row)+0.5)*res
		for col := 0; col < spec.TargetWidth; col++ {
			x := spec.TargetGeoTransform.OriginX + (float64(col)+0.5)*spec.TargetGeoTransform.PixelWidth
			idx := row*spec.TargetWidth + col
			if x >= s.bounds.Min.X && x <= s.bounds.Max.X && y >= s.bounds.Min.Y && y <= s.bounds.Max.Y {
				win.Heights[idx] = float32(s.fillHeight)
				win.Valid[idx] = true
			}
		}
	}
	return win, nil
}
