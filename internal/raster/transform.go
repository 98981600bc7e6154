package raster

import (
	"fmt"
	"math"
	"sync"

	"github.com/geodata/ctb-tile/internal/coord"
	"github.com/geodata/ctb-tile/internal/ctberr"
	"github.com/geodata/ctb-tile/internal/grid"
)

// Transformer reprojects between a source raster's SRS and a tiling grid's
// SRS. Construction of the underlying projection is serialised on a single
// mutex because in the host GDAL binding this work is not guaranteed
// thread-safe (spec.md §4.2 step 2); the transform itself is a pure
// function once built and is safe to call concurrently thereafter.
type Transformer struct {
	sourceProj coord.Projection
	gridProj   coord.Projection
	identity   bool
}

// transformerMu serialises every NewTransformer call in the process.
var transformerMu sync.Mutex

// NewTransformer builds a Transformer between sourceEPSG and the grid
// profile's SRS. gridEPSG is ordinarily 4326 (geodetic) or 3857 (mercator).
func NewTransformer(sourceEPSG, gridEPSG int) (*Transformer, error) {
	transformerMu.Lock()
	defer transformerMu.Unlock()
	t := &Transformer{}

	if sourceEPSG == gridEPSG {
		t.identity = true
		return t, nil
	}

	t.sourceProj = coord.ForEPSG(sourceEPSG)
	if t.sourceProj == nil {
		return nil, ctberr.New(ctberr.Transform, fmt.Errorf("raster: unsupported source SRS EPSG:%d", sourceEPSG))
	}
	t.gridProj = coord.ForEPSG(gridEPSG)
	if t.gridProj == nil {
		return nil, ctberr.New(ctberr.Transform, fmt.Errorf("raster: unsupported grid SRS EPSG:%d", gridEPSG))
	}
	return t, nil
}

// ToGrid converts a point in the source SRS to grid-SRS lon/lat degrees.
func (t *Transformer) ToGrid(x, y float64) (lon, lat float64) {
	if t.identity {
		return x, y
	}
	lon, lat = t.sourceProj.ToWGS84(x, y)
	if t.gridProj.EPSG() == 4326 {
		return lon, lat
	}
	return t.gridProj.FromWGS84(lon, lat)
}

// ReprojectBounds takes the source raster's bounding rectangle in its own
// SRS and returns the grid-SRS bounds enclosing it, by reprojecting all
// four corners and taking the min/max per spec.md §4.2 step 2 — mirroring
// internal/tile/resample.go's tileCRSBounds.
func (t *Transformer) ReprojectBounds(minX, minY, maxX, maxY float64) grid.CRSBounds {
	corners := [4][2]float64{
		{minX, minY}, {minX, maxY}, {maxX, minY}, {maxX, maxY},
	}

	rMinX, rMinY := math.Inf(1), math.Inf(1)
	rMaxX, rMaxY := math.Inf(-1), math.Inf(-1)
	for _, c := range corners {
		gx, gy := t.ToGrid(c[0], c[1])
		if gx < rMinX {
			rMinX = gx
		}
		if gy < rMinY {
			rMinY = gy
		}
		if gx > rMaxX {
			rMaxX = gx
		}
		if gy > rMaxY {
			rMaxY = gy
		}
	}

	return grid.CRSBounds{
		Min: grid.CRSPoint{X: rMinX, Y: rMinY},
		Max: grid.CRSPoint{X: rMaxX, Y: rMaxY},
	}
}
