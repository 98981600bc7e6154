package debugexport

import (
	"fmt"
	"image"
	"image/color"
	"path/filepath"
	"strconv"

	"github.com/gen2brain/webp"
	"github.com/spf13/afero"

	"github.com/geodata/ctb-tile/internal/ctberr"
	"github.com/geodata/ctb-tile/internal/grid"
	"github.com/geodata/ctb-tile/internal/heightmap"
	"github.com/geodata/ctb-tile/internal/manifest"
)

// WritePreviews renders a shaded-relief WebP image for every heightmap
// tile recorded in layer, reading tiles from tileRoot and writing previews
// under previewDir in the same <zoom>/<x>/<y>.webp layout. Tiles produced
// in any other format are skipped: only heightmap-1.0 carries the regular
// grid a shaded-relief render needs.
func WritePreviews(fs afero.Fs, tileRoot, previewDir string, layer *manifest.Layer) error {
	if layer == nil || layer.Format != "heightmap-1.0" {
		return nil
	}

	for zoom, ranges := range layer.Available {
		if len(ranges) == 0 {
			continue
		}
		r := ranges[0]
		for x := r.StartX; x <= r.EndX; x++ {
			for y := r.StartY; y <= r.EndY; y++ {
				coord := grid.TileCoordinate{Zoom: uint8(zoom), X: uint32(x), Y: uint32(y)}
				if err := writeOnePreview(fs, tileRoot, previewDir, coord); err != nil {
					return err
				}
			}
		}
	}
	return nil
}

func writeOnePreview(fs afero.Fs, tileRoot, previewDir string, coord grid.TileCoordinate) error {
	tilePath := filepath.Join(tileRoot, strconv.Itoa(int(coord.Zoom)), strconv.Itoa(int(coord.X)), strconv.Itoa(int(coord.Y))+".terrain")

	f, err := fs.Open(tilePath)
	if err != nil {
		// A tile recorded in metadata-only mode was never written; skip it.
		return nil
	}
	defer f.Close()

	tile, err := heightmap.Decode(f, coord)
	if err != nil {
		return ctberr.At(ctberr.Encode, ctberr.Coord{Zoom: coord.Zoom, X: coord.X, Y: coord.Y}, fmt.Errorf("debugexport: decoding %s: %w", tilePath, err))
	}

	img := shadedRelief(tile)

	outPath := filepath.Join(previewDir, strconv.Itoa(int(coord.Zoom)), strconv.Itoa(int(coord.X)), strconv.Itoa(int(coord.Y))+".webp")
	if err := fs.MkdirAll(filepath.Dir(outPath), 0o755); err != nil {
		return ctberr.New(ctberr.Io, fmt.Errorf("debugexport: creating %s: %w", filepath.Dir(outPath), err))
	}
	out, err := fs.Create(outPath)
	if err != nil {
		return ctberr.New(ctberr.Io, fmt.Errorf("debugexport: creating %s: %w", outPath, err))
	}
	defer out.Close()

	if err := webp.Encode(out, img, webp.Options{Lossless: true}); err != nil {
		return ctberr.New(ctberr.Encode, fmt.Errorf("debugexport: encoding %s: %w", outPath, err))
	}
	return nil
}

// shadedRelief renders a simple north-west hillshade from a heightmap
// tile's regular grid, for visual QA rather than cartographic accuracy.
func shadedRelief(t *heightmap.Tile) image.Image {
	const size = heightmap.TileSize
	img := image.NewGray(image.Rect(0, 0, size, size))

	heightAt := func(x, y int) float64 {
		x = clamp(x, 0, size-1)
		y = clamp(y, 0, size-1)
		return heightmap.DequantizeHeight(t.Heights[y*size+x])
	}

	for y := 0; y < size; y++ {
		for x := 0; x < size; x++ {
			dzdx := (heightAt(x+1, y) - heightAt(x-1, y)) / 2
			dzdy := (heightAt(x, y+1) - heightAt(x, y-1)) / 2

			// Simple Lambertian shade from a fixed north-west light, not a
			// slope/aspect hillshade model.
			shade := 128 - dzdx*4 - dzdy*4
			img.SetGray(x, size-1-y, color.Gray{Y: clampByte(shade)})
		}
	}
	return img
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func clampByte(v float64) uint8 {
	if v < 0 {
		return 0
	}
	if v > 255 {
		return 255
	}
	return uint8(v)
}
