package raster

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"sync"

	"github.com/geodata/ctb-tile/internal/cog"
	"github.com/geodata/ctb-tile/internal/ctberr"
)

// CogSource adapts the COG/GeoTIFF reader in internal/cog to the Source
// interface. A single reader is not safe for the overview-stack mutation
// PushOverview/PopOverview perform, so all access is serialised; the
// underlying memory-mapped reads themselves remain lock-free.
type CogSource struct {
	reader *cog.Reader

	mu         sync.Mutex
	overviews  []syntheticOverview // stack of materialised coarser levels
	floatCache *floatTileCache
}

// syntheticOverview records a VRT-style coarser view built by scaling the
// base geotransform.
type syntheticOverview struct {
	scale int // 2^overviewIndex
}

// OpenCog opens a COG/GeoTIFF file and wraps it as a Source.
func OpenCog(path string) (*CogSource, error) {
	r, err := cog.Open(path)
	if err != nil {
		return nil, ctberr.New(ctberr.Source, fmt.Errorf("opening raster %s: %w", path, err))
	}
	return &CogSource{reader: r, floatCache: newFloatTileCache(256)}, nil
}

func (s *CogSource) GeoTransform() GeoTransform {
	minX, _, _, maxY := s.reader.BoundsInCRS()
	geo := s.reader.GeoInfo()
	return GeoTransform{
		OriginX:    minX,
		PixelWidth: geo.PixelSizeX,
		OriginY:    maxY,
		PixelHeight: -geo.PixelSizeY,
	}
}

func (s *CogSource) ProjectionEPSG() int {
	return s.reader.EPSG()
}

func (s *CogSource) RasterSize() (int, int) {
	return s.reader.Width(), s.reader.Height()
}

func (s *CogSource) NoData() (float64, bool) {
	nd := strings.TrimSpace(s.reader.NoData())
	if nd == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(nd, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

func (s *CogSource) Close() error {
	return s.reader.Close()
}

// PushOverview activates a synthetic overview one level coarser than
// whatever is currently active, doubling the effective pixel size.
func (s *CogSource) PushOverview() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	prevScale := 1
	if n := len(s.overviews); n > 0 {
		prevScale = s.overviews[n-1].scale
	}
	w, h := s.reader.Width(), s.reader.Height()
	if w/(prevScale*2) < 1 || h/(prevScale*2) < 1 {
		return ctberr.New(ctberr.Window, fmt.Errorf("raster: cannot build a coarser overview than %dx", prevScale*2))
	}
	s.overviews = append(s.overviews, syntheticOverview{scale: prevScale * 2})
	return nil
}

// PopOverview discards the most recently pushed synthetic overview.
func (s *CogSource) PopOverview() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if n := len(s.overviews); n > 0 {
		s.overviews = s.overviews[:n-1]
	}
}

func (s *CogSource) activeScale() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if n := len(s.overviews); n > 0 {
		return s.overviews[n-1].scale
	}
	return 1
}

// Warp resamples the source onto spec's target grid by inverse-mapping
// each output pixel center to a source CRS coordinate and sampling the
// best-matching overview IFD, following internal/tile/resample.go's
// per-pixel inverse-warp idiom adapted to single-band float elevation.
func (s *CogSource) Warp(spec WarpSpec) (*Window, error) {
	scale := s.activeScale()
	geo := s.GeoTransform()
	srcOriginX := geo.OriginX
	srcOriginY := geo.OriginY

	srcWidth, srcHeight := s.reader.Width(), s.reader.Height()
	if srcWidth/scale < 1 || srcHeight/scale < 1 {
		return nil, ctberr.New(ctberr.Window, fmt.Errorf("raster: synthetic overview scale %d collapses raster", scale))
	}

	targetResCRS := math.Abs(spec.TargetGeoTransform.PixelWidth)
	level := s.reader.OverviewForZoom(targetResCRS * float64(scale))
	levelPixelSize := s.reader.IFDPixelSize(level) * float64(scale)
	levelW := s.reader.IFDWidth(level) / scale
	levelH := s.reader.IFDHeight(level) / scale
	if levelW < 1 {
		levelW = 1
	}
	if levelH < 1 {
		levelH = 1
	}

	noData, hasNoData := s.NoData()
	if !hasNoData {
		noData = spec.NoDataValue
	}

	w := &Window{
		Width:   spec.TargetWidth,
		Height:  spec.TargetHeight,
		Heights: make([]float32, spec.TargetWidth*spec.TargetHeight),
		Valid:   make([]bool, spec.TargetWidth*spec.TargetHeight),
	}

	tgt := spec.TargetGeoTransform
	for row := 0; row < spec.TargetHeight; row++ {
		crsY := tgt.OriginY + (float64(row)+0.5)*tgt.PixelHeight
		for col := 0; col < spec.TargetWidth; col++ {
			crsX := tgt.OriginX + (float64(col)+0.5)*tgt.PixelWidth

			levelPixX := (crsX - srcOriginX) / levelPixelSize
			levelPixY := (srcOriginY - crsY) / levelPixelSize

			idx := row*spec.TargetWidth + col
			v, ok := s.sampleLevel(level, levelPixX, levelPixY, levelW, levelH, spec.Resampling)
			if !ok {
				continue
			}
			if hasNoData && float64(v) == noData {
				continue
			}
			w.Heights[idx] = v
			w.Valid[idx] = true
		}
	}

	return w, nil
}

func (s *CogSource) sampleLevel(level int, fx, fy float64, imgW, imgH int, mode Resampling) (float32, bool) {
	if fx < 0 || fx >= float64(imgW) || fy < 0 || fy >= float64(imgH) {
		return 0, false
	}
	if mode == ResamplingNearest {
		x := int(math.Floor(fx + 0.5))
		y := int(math.Floor(fy + 0.5))
		v, err := s.readSample(level, x, y)
		if err != nil {
			return 0, false
		}
		return v, true
	}
	return s.bilinearSample(level, fx, fy, imgW, imgH)
}

func (s *CogSource) bilinearSample(level int, fx, fy float64, imgW, imgH int) (float32, bool) {
	x0 := int(math.Floor(fx))
	y0 := int(math.Floor(fy))
	x1 := clampInt(x0+1, 0, imgW-1)
	y1 := clampInt(y0+1, 0, imgH-1)
	x0 = clampInt(x0, 0, imgW-1)
	y0 = clampInt(y0, 0, imgH-1)

	dx := fx - math.Floor(fx)
	dy := fy - math.Floor(fy)

	v00, err := s.readSample(level, x0, y0)
	if err != nil {
		return 0, false
	}
	v10, err := s.readSample(level, x1, y0)
	if err != nil {
		return 0, false
	}
	v01, err := s.readSample(level, x0, y1)
	if err != nil {
		return 0, false
	}
	v11, err := s.readSample(level, x1, y1)
	if err != nil {
		return 0, false
	}

	top := lerp(float64(v00), float64(v10), dx)
	bot := lerp(float64(v01), float64(v11), dx)
	return float32(lerp(top, bot, dy)), true
}

func lerp(a, b, t float64) float64 { return a*(1-t) + b*t }

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// readSample reads a single elevation sample at source-level pixel (px,py),
// going through the float tile cache to avoid re-decoding the same source
// tile for adjacent output pixels.
func (s *CogSource) readSample(level, px, py int) (float32, error) {
	tileWH := s.reader.IFDTileSize(level)
	tw, th := tileWH[0], tileWH[1]
	if tw == 0 || th == 0 {
		tw, th = s.reader.IFDWidth(level), s.reader.IFDHeight(level)
	}
	col := px / tw
	row := py / th
	localX := px % tw
	localY := py % th

	data, w, err := s.floatCache.get(s.reader, level, col, row)
	if err != nil {
		return 0, err
	}
	idx := localY*w + localX
	if idx < 0 || idx >= len(data) {
		return 0, fmt.Errorf("raster: sample index out of range")
	}
	return data[idx], nil
}
