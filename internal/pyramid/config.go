package pyramid

import (
	"github.com/geodata/ctb-tile/internal/grid"
	"github.com/geodata/ctb-tile/internal/raster"
)

// Format selects the output tile format.
type Format int

const (
	FormatHeightmap Format = iota
	FormatMesh
	FormatGDAL // pass-through GDAL driver name, carried opaquely in DriverName
)

// Config holds everything a pyramid build needs beyond the source and
// output destination, generalizing internal/tile.Config (TileSize,
// Concurrency, Verbose, Bounds, Resampling) to the terrain domain.
type Config struct {
	Profile     grid.Profile
	Format      Format
	DriverName  string // GDAL driver name when Format == FormatGDAL

	MinZoom, MaxZoom uint8
	TileSize         int
	Concurrency      int
	Resampling       raster.Resampling
	ErrorThreshold   float64
	WarpMemoryLimit  int64

	Resume             bool
	MetadataOnly       bool
	CesiumFriendly     bool
	WriteVertexNormals bool
	MeshQualityFactor  float64

	CreationOptions map[string]string

	Quiet   bool
	Verbose bool
}

// Stats holds pyramid build statistics, generalizing internal/tile.Stats.
type Stats struct {
	TileCount  int64
	EmptyTiles int64
	TotalBytes int64
}
