package pyramid

import (
	"bytes"
	"fmt"
	"runtime"
	"sync"
	"sync/atomic"

	"github.com/geodata/ctb-tile/internal/ctberr"
	"github.com/geodata/ctb-tile/internal/grid"
	"github.com/geodata/ctb-tile/internal/heightmap"
	"github.com/geodata/ctb-tile/internal/manifest"
	"github.com/geodata/ctb-tile/internal/mesh"
	"github.com/geodata/ctb-tile/internal/quantizedmesh"
	"github.com/geodata/ctb-tile/internal/raster"
	"github.com/geodata/ctb-tile/internal/serializer"
)

// maxOverviewRetries bounds how many coarser synthetic overviews
// WarpWithOverviewRetry will try before giving up on a single tile.
const maxOverviewRetries = 8

// edgeStitchMinZoom is the zoom above which mesh tiles import neighbour
// border activation state before emission, per spec.md §4.4.1.
const edgeStitchMinZoom = 6

// Opener opens one independent handle to the source raster. Run calls it
// once per worker, matching spec.md §5's "each thread opens its own
// handle to the source raster" requirement.
type Opener func() (raster.Source, error)

// Result is what a completed pyramid build produces.
type Result struct {
	Stats Stats
	Layer *manifest.Layer
}

// Run drives the full pyramid build: it resolves the source's CRS bounds,
// fans out Config.Concurrency workers (each with its own Opener-provided
// Source) over a shared Iterator via an atomic cursor, and — once every
// worker has finished — runs the optional cesium-friendly root-tile
// post-pass and emits layer.json through ser.
//
// Fans workers out over a shared monotonically-increasing cursor (an
// atomic.Uint64) rather than a buffered job channel, matching how the
// original C++ pipeline hands out tile indices to its worker threads.
func Run(open Opener, ser *serializer.Serializer, cfg Config, mopts manifest.Options) (Result, error) {
	concurrency := cfg.Concurrency
	if concurrency <= 0 {
		concurrency = runtime.NumCPU()
	}
	if cfg.MaxZoom < cfg.MinZoom {
		return Result{}, ctberr.New(ctberr.Config, fmt.Errorf("pyramid: maxZoom %d below minZoom %d", cfg.MaxZoom, cfg.MinZoom))
	}

	primary, err := open()
	if err != nil {
		return Result{}, err
	}
	defer primary.Close()

	transformer, err := raster.NewTransformer(primary.ProjectionEPSG(), cfg.Profile.EPSG)
	if err != nil {
		return Result{}, err
	}

	sourceBoundsGrid := sourceBoundsInGrid(primary, transformer)
	it := NewIterator(cfg.Profile, sourceBoundsGrid, cfg.MinZoom, cfg.MaxZoom)

	agg := manifest.NewAggregator()
	mem := NewMemGuard(cfg.WarpMemoryLimit * int64(concurrency))
	pb := newProgressBar("Tiling", int64(it.Total()), cfg.Quiet)

	var cursor atomic.Uint64
	var tileCount, emptyTiles, totalBytes atomic.Int64
	var firstErr atomic.Value // holds an error
	var wg sync.WaitGroup

	run := func(src raster.Source) {
		defer wg.Done()
		for {
			idx := cursor.Add(1) - 1
			coord, ok := it.At(idx)
			if !ok {
				return
			}
			outcome, err := processTile(src, cfg, coord, sourceBoundsGrid, ser, agg, mem)
			if err != nil {
				firstErr.CompareAndSwap(nil, errorBox{err})
				pb.Increment()
				return
			}
			if outcome.empty {
				emptyTiles.Add(1)
			} else {
				tileCount.Add(1)
				totalBytes.Add(int64(outcome.bytes))
			}
			pb.Increment()
		}
	}

	wg.Add(concurrency)
	go run(primary)
	for i := 1; i < concurrency; i++ {
		src, err := open()
		if err != nil {
			firstErr.CompareAndSwap(nil, errorBox{err})
			wg.Done()
			continue
		}
		go func() {
			defer src.Close()
			run(src)
		}()
	}
	wg.Wait()
	pb.Finish()

	if v := firstErr.Load(); v != nil {
		return Result{}, v.(errorBox).err
	}

	if cfg.CesiumFriendly {
		if err := applyCesiumFriendly(cfg, ser, agg); err != nil {
			return Result{}, err
		}
	}

	layer, err := agg.Build(mopts)
	if err != nil {
		return Result{}, err
	}
	data, err := manifest.Marshal(layer)
	if err != nil {
		return Result{}, err
	}
	if err := ser.WriteFile("layer.json", data); err != nil {
		return Result{}, err
	}

	return Result{
		Stats: Stats{
			TileCount:  tileCount.Load(),
			EmptyTiles: emptyTiles.Load(),
			TotalBytes: totalBytes.Load(),
		},
		Layer: layer,
	}, nil
}

// errorBox wraps an error so it can be stored in an atomic.Value, which
// requires every stored value to share a concrete, comparable-shaped type
// (a bare `error` interface value's dynamic type varies call to call).
type errorBox struct{ err error }

// tileOutcome reports what processTile actually did, for stats purposes.
type tileOutcome struct {
	empty bool
	bytes int
}

// sourceBoundsInGrid reprojects src's full-resolution CRS footprint into
// the grid's SRS, per spec.md §4.2 step 2.
func sourceBoundsInGrid(src raster.Source, t *raster.Transformer) grid.CRSBounds {
	w, h := src.RasterSize()
	gt := src.GeoTransform()
	minX := gt.OriginX
	maxX := gt.OriginX + float64(w)*gt.PixelWidth
	maxY := gt.OriginY
	minY := gt.OriginY + float64(h)*gt.PixelHeight
	return t.ReprojectBounds(minX, minY, maxX, maxY)
}

// processTile runs the per-tile pipeline (extract window, decide skip,
// encode, write, record in the manifest) for a single coordinate,
// matching spec.md §4.7's "Per-tile pipeline".
func processTile(src raster.Source, cfg Config, coord grid.TileCoordinate, sourceBoundsGrid grid.CRSBounds, ser *serializer.Serializer, agg *manifest.Aggregator, mem *MemGuard) (tileOutcome, error) {
	tileBounds := cfg.Profile.TileBounds(coord)

	// Metadata registration happens unconditionally, even for tiles that
	// are skipped below, per spec.md §4.6 ("Counting and metadata
	// registration still occur").
	agg.Record(coord, tileBounds)

	if cfg.MetadataOnly {
		return tileOutcome{empty: true}, nil
	}

	ext := cfg.Format.Extension()
	must, err := ser.MustSerialize(coord, ext)
	if err != nil {
		return tileOutcome{}, err
	}
	if !must {
		return tileOutcome{empty: true}, nil
	}

	win, err := extractWindow(src, cfg, coord, tileBounds, mem)
	if err != nil {
		return tileOutcome{}, err
	}

	childFlags := heightmap.ChildFlagsForBounds(sourceBoundsGrid, tileBounds)
	if coord.Zoom >= cfg.MaxZoom {
		childFlags = 0
	}

	var payload []byte
	switch cfg.Format {
	case FormatMesh:
		payload, err = encodeMeshTile(src, cfg, coord, tileBounds, win, childFlags)
	default:
		payload, err = encodeHeightmapTile(coord, win, childFlags)
	}
	if err != nil {
		return tileOutcome{}, err
	}

	if err := ser.WriteTile(coord, ext, payload); err != nil {
		return tileOutcome{}, err
	}
	return tileOutcome{bytes: len(payload)}, nil
}

// extractWindow builds the warp specification for coord and resolves it
// against src, retrying through coarser overviews on probable transform
// overflow, per spec.md §4.2/§4.2.1.
func extractWindow(src raster.Source, cfg Config, coord grid.TileCoordinate, tileBounds grid.CRSBounds, mem *MemGuard) (*raster.Window, error) {
	res := cfg.Profile.Resolution(coord.Zoom)
	spec := raster.WarpSpec{
		TargetGeoTransform: raster.GeoTransform{
			OriginX:     tileBounds.Min.X,
			PixelWidth:  res,
			OriginY:     tileBounds.Max.Y,
			PixelHeight: -res,
		},
		TargetWidth:     cfg.TileSize,
		TargetHeight:    cfg.TileSize,
		Resampling:      cfg.Resampling,
		WarpMemoryLimit: cfg.WarpMemoryLimit,
		NoDataValue:     -32768,
		ErrorThreshold:  cfg.ErrorThreshold,
	}
	if nd, ok := src.NoData(); ok {
		spec.NoDataValue = nd
	}

	budget := int64(cfg.TileSize) * int64(cfg.TileSize) * 4
	mem.Acquire(budget)
	defer mem.Release(budget)

	win, err := raster.WarpWithOverviewRetry(src, spec, maxOverviewRetries)
	if err != nil {
		return nil, ctberr.At(ctberr.Window, ctberr.Coord{Zoom: coord.Zoom, X: coord.X, Y: coord.Y}, err)
	}
	return win, nil
}

// encodeHeightmapTile builds and encodes a heightmap-1.0 tile from a
// resolved raster window, per spec.md §4.3. The core never derives water
// masks from imagery, so every tile carries the trivial all-land mask.
func encodeHeightmapTile(coord grid.TileCoordinate, win *raster.Window, childFlags uint8) ([]byte, error) {
	if win.Width != heightmap.TileSize || win.Height != heightmap.TileSize {
		return nil, ctberr.At(ctberr.Encode, ctberr.Coord{Zoom: coord.Zoom, X: coord.X, Y: coord.Y},
			fmt.Errorf("heightmap: window is %dx%d, want %dx%d", win.Width, win.Height, heightmap.TileSize, heightmap.TileSize))
	}

	tile := &heightmap.Tile{Coord: coord, ChildFlags: childFlags, Mask: heightmap.AllLand()}
	for row := 0; row < win.Height; row++ {
		for col := 0; col < win.Width; col++ {
			h, _ := win.At(col, row)
			tile.Heights[row*win.Width+col] = heightmap.QuantizeHeight(float64(h))
		}
	}

	var buf bytes.Buffer
	if err := heightmap.Encode(&buf, tile); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// encodeMeshTile builds a HeightField from the raster window, applies the
// zoom's geometric-error budget, optionally stitches neighbour border
// activation state, emits the finest-level mesh, and encodes it as
// quantized-mesh-1.0, per spec.md §4.4/§4.5.
func encodeMeshTile(src raster.Source, cfg Config, coord grid.TileCoordinate, tileBounds grid.CRSBounds, win *raster.Window, childFlags uint8) ([]byte, error) {
	hf := heightFieldFromWindow(win)
	maxError := mesh.ErrorBudgetForZoom(cfg.Profile, cfg.MeshQualityFactor, cfg.TileSize, coord.Zoom)
	smoothSmallZooms := coord.Zoom <= edgeStitchMinZoom
	hf.ApplyGeometricError(maxError, smoothSmallZooms)

	if coord.Zoom > edgeStitchMinZoom {
		for border := mesh.BorderWest; border <= mesh.BorderSouth; border++ {
			neighborHF, ok := neighborHeightField(src, cfg, coord, border)
			if !ok {
				continue
			}
			hf.ApplyBorderActivationState(neighborHF, border)
		}
	}

	tile := &mesh.Tile{Coord: coord, ChildFlags: childFlags}
	emitter := mesh.NewTileEmitter(tile, tileBounds, cfg.TileSize, cfg.TileSize)
	hf.GenerateMesh(emitter, 0)
	hf.Clear()

	var buf bytes.Buffer
	opts := quantizedmesh.Options{WriteVertexNormals: cfg.WriteVertexNormals}
	if err := quantizedmesh.Encode(&buf, tile, opts); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// neighborHeightField independently extracts and error-budgets the
// heightfield for coord's neighbour across border, for edge stitching.
// Per spec.md §4.4.1 and DESIGN.md's Open Question decision, a neighbour
// outside the grid or one whose window cannot be extracted is simply
// skipped rather than treated as fatal — the safe default for the
// overview-reader interaction the spec leaves ambiguous.
func neighborHeightField(src raster.Source, cfg Config, coord grid.TileCoordinate, border int) (*mesh.HeightField, bool) {
	neighbor, ok := mesh.NeighborCoord(cfg.Profile, coord, border)
	if !ok {
		return nil, false
	}
	neighborBounds := cfg.Profile.TileBounds(neighbor)
	win, err := extractWindow(src, cfg, neighbor, neighborBounds, NewMemGuard(0))
	if err != nil {
		return nil, false
	}
	hf := heightFieldFromWindow(win)
	maxError := mesh.ErrorBudgetForZoom(cfg.Profile, cfg.MeshQualityFactor, cfg.TileSize, neighbor.Zoom)
	hf.ApplyGeometricError(maxError, neighbor.Zoom <= edgeStitchMinZoom)
	return hf, true
}

func heightFieldFromWindow(win *raster.Window) *mesh.HeightField {
	heights := make([]float32, len(win.Heights))
	copy(heights, win.Heights)
	return mesh.NewHeightField(heights, win.Width)
}
