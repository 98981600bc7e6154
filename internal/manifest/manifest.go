// Package manifest aggregates the per-zoom tile ranges visited during a
// pyramid build and emits the layer.json metadata document, following
// spec.md §4.8.
package manifest

import (
	"encoding/json"
	"errors"
	"math"
	"sync"

	"github.com/geodata/ctb-tile/internal/ctberr"
	"github.com/geodata/ctb-tile/internal/grid"
)

// ZoomRange is the per-zoom tile-coordinate extent, matching the
// `{startX,startY,endX,endY}` record spec.md §4.8 requires in the
// `available` list.
type ZoomRange struct {
	StartX, StartY int64
	EndX, EndY     int64
	visited        bool
}

// Aggregator accumulates per-zoom tile ranges and the union of every
// visited tile's CRS bounds. One mutex guards the whole struct; Record
// takes it once for every tile it records, so workers contend on it per
// tile rather than once each at the end of their run.
type Aggregator struct {
	mu     sync.Mutex
	zooms  map[uint8]*ZoomRange
	bounds grid.CRSBounds
	hasAny bool
}

// NewAggregator returns an empty Aggregator.
func NewAggregator() *Aggregator {
	return &Aggregator{
		zooms: make(map[uint8]*ZoomRange),
		bounds: grid.CRSBounds{
			Min: grid.CRSPoint{X: math.Inf(1), Y: math.Inf(1)},
			Max: grid.CRSPoint{X: math.Inf(-1), Y: math.Inf(-1)},
		},
	}
}

// Record folds coord and its CRS tile bounds into the aggregate state.
func (a *Aggregator) Record(coord grid.TileCoordinate, tileBounds grid.CRSBounds) {
	a.mu.Lock()
	defer a.mu.Unlock()

	zr, ok := a.zooms[coord.Zoom]
	if !ok {
		zr = &ZoomRange{
			StartX: math.MaxInt64, StartY: math.MaxInt64,
			EndX: math.MinInt64, EndY: math.MinInt64,
		}
		a.zooms[coord.Zoom] = zr
	}
	x, y := int64(coord.X), int64(coord.Y)
	if x < zr.StartX {
		zr.StartX = x
	}
	if y < zr.StartY {
		zr.StartY = y
	}
	if x > zr.EndX {
		zr.EndX = x
	}
	if y > zr.EndY {
		zr.EndY = y
	}
	zr.visited = true

	if tileBounds.Min.X < a.bounds.Min.X {
		a.bounds.Min.X = tileBounds.Min.X
	}
	if tileBounds.Min.Y < a.bounds.Min.Y {
		a.bounds.Min.Y = tileBounds.Min.Y
	}
	if tileBounds.Max.X > a.bounds.Max.X {
		a.bounds.Max.X = tileBounds.Max.X
	}
	if tileBounds.Max.Y > a.bounds.Max.Y {
		a.bounds.Max.Y = tileBounds.Max.Y
	}
	a.hasAny = true
}

// PatchZoom overwrites zoom's recorded tile-coordinate range outright,
// used by the cesium-friendly root-tile post-pass to report {0,0,1,0} for
// zoom 0 after synthesizing the previously-missing root tile, rather than
// folding it in via the usual min/max Record.
func (a *Aggregator) PatchZoom(zoom uint8, startX, startY, endX, endY int64) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.zooms[zoom] = &ZoomRange{StartX: startX, StartY: startY, EndX: endX, EndY: endY, visited: true}
}

// Layer is the layer.json document, field order and names per spec.md §4.8.
type Layer struct {
	TileJSON     string          `json:"tilejson"`
	Name         string          `json:"name"`
	Description  string          `json:"description"`
	Version      string          `json:"version"`
	Format       string          `json:"format"`
	Attribution  string          `json:"attribution"`
	Schema       string          `json:"schema"`
	Extensions   []string        `json:"extensions,omitempty"`
	Tiles        []string        `json:"tiles"`
	Projection   string          `json:"projection"`
	Bounds       [4]float64      `json:"bounds"`
	Available    [][]AvailableRange `json:"available"`
}

// AvailableRange is one zoom's tile-coordinate extent in layer.json's
// `available` list.
type AvailableRange struct {
	StartX int64 `json:"startX"`
	StartY int64 `json:"startY"`
	EndX   int64 `json:"endX"`
	EndY   int64 `json:"endY"`
}

// Options configures the static fields of the emitted layer.json.
type Options struct {
	Name               string
	Description        string
	Version            string
	Format             string // "heightmap-1.0", "quantized-mesh-1.0", or "GDAL"
	Attribution        string
	ProjectionName     string // "EPSG:4326" or "EPSG:3857"
	WriteVertexNormals bool
	MinZoom, MaxZoom   uint8
}

// Build renders the aggregated state into a Layer document. available[z]
// is empty for zoom levels never visited, and a single-element list
// otherwise, per spec.md §4.8.
func (a *Aggregator) Build(opts Options) (*Layer, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if !a.hasAny {
		return nil, ctberr.New(ctberr.Encode, errors.New("manifest: no tiles recorded"))
	}

	available := make([][]AvailableRange, int(opts.MaxZoom)+1)
	for z := 0; z <= int(opts.MaxZoom); z++ {
		zr, ok := a.zooms[uint8(z)]
		if !ok || !zr.visited {
			available[z] = []AvailableRange{}
			continue
		}
		available[z] = []AvailableRange{{
			StartX: zr.StartX, StartY: zr.StartY,
			EndX: zr.EndX, EndY: zr.EndY,
		}}
	}

	var extensions []string
	if opts.WriteVertexNormals {
		extensions = []string{"octvertexnormals"}
	}

	return &Layer{
		TileJSON:    "2.1.0",
		Name:        opts.Name,
		Description: opts.Description,
		Version:     opts.Version,
		Format:      opts.Format,
		Attribution: opts.Attribution,
		Schema:      "tms",
		Extensions:  extensions,
		Tiles:       []string{"{z}/{x}/{y}.terrain?v={version}"},
		Projection:  opts.ProjectionName,
		Bounds:      [4]float64{a.bounds.Min.X, a.bounds.Min.Y, a.bounds.Max.X, a.bounds.Max.Y},
		Available:   available,
	}, nil
}

// Marshal renders l as indented JSON.
func Marshal(l *Layer) ([]byte, error) {
	data, err := json.MarshalIndent(l, "", "  ")
	if err != nil {
		return nil, ctberr.New(ctberr.Encode, err)
	}
	return data, nil
}
