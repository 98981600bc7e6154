package grid

import (
	"fmt"
	"math"
)

// WebMercatorHalfCircumference is half the circumference of the
// Web Mercator projection of the WGS84 ellipsoid, in metres.
const WebMercatorHalfCircumference = math.Pi * 6378137.0

// Profile describes an immutable tiling scheme: the pixels-per-tile edge,
// the overall CRS extent, and the number of root tiles at zoom 0. All
// derived operations are pure functions of these fields.
type Profile struct {
	Name     string
	EPSG     int
	TileSize int
	Extent   CRSBounds
	// RootTiles is the number of tiles spanning the extent's width at zoom 0.
	RootTiles int

	initialResolution float64
	xOriginShift      float64
	yOriginShift      float64
}

// Geodetic returns the EPSG:4326 profile: extent (-180,-90,180,90), two
// root tiles across at zoom 0 (so zoom 0 already has a 2x1 tile layout),
// default tile size 65.
func Geodetic(tileSize int) Profile {
	if tileSize <= 0 {
		tileSize = 65
	}
	extent := CRSBounds{Min: CRSPoint{-180, -90}, Max: CRSPoint{180, 90}}
	return newProfile("geodetic", 4326, tileSize, extent, 2)
}

// Mercator returns the EPSG:3857 profile: square extent of half-width
// WebMercatorHalfCircumference, one root tile at zoom 0, default tile
// size 256.
func Mercator(tileSize int) Profile {
	if tileSize <= 0 {
		tileSize = 256
	}
	c := WebMercatorHalfCircumference
	extent := CRSBounds{Min: CRSPoint{-c, -c}, Max: CRSPoint{c, c}}
	return newProfile("mercator", 3857, tileSize, extent, 1)
}

// ForName resolves a profile by its CLI name ("geodetic" or "mercator").
func ForName(name string, tileSize int) (Profile, error) {
	switch name {
	case "geodetic", "":
		return Geodetic(tileSize), nil
	case "mercator":
		return Mercator(tileSize), nil
	default:
		return Profile{}, fmt.Errorf("unknown profile %q (supported: geodetic, mercator)", name)
	}
}

func newProfile(name string, epsg, tileSize int, extent CRSBounds, rootTiles int) Profile {
	p := Profile{
		Name:      name,
		EPSG:      epsg,
		TileSize:  tileSize,
		Extent:    extent,
		RootTiles: rootTiles,
	}
	p.initialResolution = (extent.Width() / float64(rootTiles)) / float64(tileSize)
	p.xOriginShift = extent.Width() / 2
	p.yOriginShift = extent.Height() / 2
	return p
}

// Resolution returns the CRS units per pixel at the given zoom level.
func (p Profile) Resolution(zoom uint8) float64 {
	return p.initialResolution / math.Pow(2, float64(zoom))
}

// ZoomForResolution returns the zoom level whose resolution is just finer
// than (or equal to) res — i.e. the zoom is "rounded up" when res does not
// exactly match a level.
func (p Profile) ZoomForResolution(res float64) uint8 {
	z := math.Ceil(math.Log2(p.initialResolution) - math.Log2(res))
	if z < 0 {
		z = 0
	}
	return uint8(z)
}

// PixelsToTile returns the tile covering a pixel location, using half-open
// pixel boxes so adjacent tiles never overlap.
func (p Profile) PixelsToTile(pixel PixelPoint) (x, y uint32) {
	tx := math.Ceil(pixel.X/float64(p.TileSize)) - 1
	ty := math.Ceil(pixel.Y/float64(p.TileSize)) - 1
	if tx < 0 {
		tx = 0
	}
	if ty < 0 {
		ty = 0
	}
	return uint32(tx), uint32(ty)
}

// PixelsToCRS converts pixel coordinates at a given zoom level to CRS
// coordinates.
func (p Profile) PixelsToCRS(pixel PixelPoint, zoom uint8) CRSPoint {
	res := p.Resolution(zoom)
	return CRSPoint{
		X: (pixel.X * res) - p.xOriginShift,
		Y: (pixel.Y * res) - p.yOriginShift,
	}
}

// CRSToPixels converts a CRS point at a given zoom level to pixel
// coordinates.
func (p Profile) CRSToPixels(point CRSPoint, zoom uint8) PixelPoint {
	res := p.Resolution(zoom)
	return PixelPoint{
		X: (p.xOriginShift + point.X) / res,
		Y: (p.yOriginShift + point.Y) / res,
	}
}

// CRSToTile returns the tile coordinate in which point falls at the given
// zoom level.
func (p Profile) CRSToTile(point CRSPoint, zoom uint8) TileCoordinate {
	pixel := p.CRSToPixels(point, zoom)
	x, y := p.PixelsToTile(pixel)
	return TileCoordinate{Zoom: zoom, X: x, Y: y}
}

// TileBounds returns the CRS bounds of a tile.
func (p Profile) TileBounds(coord TileCoordinate) CRSBounds {
	pxLowerLeft := PixelPoint{X: float64(coord.X) * float64(p.TileSize), Y: float64(coord.Y) * float64(p.TileSize)}
	pxUpperRight := PixelPoint{X: float64(coord.X+1) * float64(p.TileSize), Y: float64(coord.Y+1) * float64(p.TileSize)}

	lowerLeft := p.PixelsToCRS(pxLowerLeft, coord.Zoom)
	upperRight := p.PixelsToCRS(pxUpperRight, coord.Zoom)

	return NewCRSBounds(lowerLeft, upperRight)
}

// TileRangeForBounds returns the inclusive tile index range at zoom that
// covers bounds, clamped to the profile's valid tile index space.
func (p Profile) TileRangeForBounds(bounds CRSBounds, zoom uint8) TileRange {
	ll := p.CRSToTile(CRSPoint{bounds.Min.X, bounds.Min.Y}, zoom)
	ur := p.CRSToTile(CRSPoint{bounds.Max.X, bounds.Max.Y}, zoom)

	maxIndex := uint32(p.RootTiles)<<zoom - 1
	maxRow := p.rootRows()<<zoom - 1

	minX, maxX := ll.X, ur.X
	minY, maxY := ll.Y, ur.Y
	if maxX > maxIndex {
		maxX = maxIndex
	}
	if maxY > maxRow {
		maxY = maxRow
	}

	return TileRange{Zoom: zoom, MinX: minX, MinY: minY, MaxX: maxX, MaxY: maxY}
}

// ValidCoordinate reports whether coord's x/y fall within this profile's
// tile index space at its zoom level: 0 <= x < RootTiles*2^zoom and
// 0 <= y < rows*2^zoom, where rows is the number of root tiles spanning the
// extent's height (1 for both Geodetic and Mercator).
func (p Profile) ValidCoordinate(coord TileCoordinate) bool {
	limit := uint32(p.RootTiles) << coord.Zoom
	return coord.X < limit && coord.Y < p.rootRows()<<coord.Zoom
}

// rootRows returns how many root tiles span the extent's height at zoom 0.
func (p Profile) rootRows() uint32 {
	return uint32(float64(p.RootTiles) * p.Extent.Height() / p.Extent.Width())
}
