// Package heightmap implements the heightmap-1.0 tile format: a regular
// 65x65 grid of quantized int16 heights, a child-flags byte, and a
// water mask, gzip-wrapped on the wire.
package heightmap

import (
	"bytes"
	"compress/gzip"
	"encoding/binary"
	"fmt"
	"io"

	"github.com/geodata/ctb-tile/internal/grid"
)

// TileSize is the fixed edge length of a heightmap tile in grid cells.
const TileSize = 65

// CellCount is the total number of height samples in a tile.
const CellCount = TileSize * TileSize

// FineMaskSize is the byte length of a fine (per-pixel) water mask.
const FineMaskSize = 256 * 256

// Child-flag bits, one per sub-quadrant.
const (
	ChildSW uint8 = 1 << iota
	ChildSE
	ChildNW
	ChildNE
)

// Mask is the water mask carried by a tile: either a single uniform byte
// (0 = water, 255 = land, by convention) or a full per-pixel mask.
type Mask struct {
	// Fine holds a 256x256 byte mask when non-nil; Uniform is used
	// otherwise.
	Fine    []byte
	Uniform byte
}

// IsFine reports whether this mask carries per-pixel detail.
func (m Mask) IsFine() bool { return m.Fine != nil }

// AllLand returns the trivial "all-land" uniform mask used by the core
// pipeline (producing water masks from imagery is out of scope).
func AllLand() Mask { return Mask{Uniform: 255} }

// Tile is a single heightmap-1.0 artifact.
type Tile struct {
	Coord      grid.TileCoordinate
	Heights    [CellCount]int16
	ChildFlags uint8
	Mask       Mask
}

// QuantizeHeight converts a float metre height into the heightmap-1.0
// int16 representation: round((h+1000)*5), saturated to the int16 range.
//
// The original C++ source truncates without saturating, which can alias
// extreme inputs; this implementation saturates instead and documents the
// divergence (see DESIGN.md).
func QuantizeHeight(h float64) int16 {
	v := (h + 1000) * 5
	if v < -32768 {
		return -32768
	}
	if v > 32767 {
		return 32767
	}
	return int16(roundHalfAwayFromZero(v))
}

// DequantizeHeight is the inverse of QuantizeHeight.
func DequantizeHeight(v int16) float64 {
	return float64(v)/5 - 1000
}

func roundHalfAwayFromZero(v float64) float64 {
	if v >= 0 {
		return float64(int64(v + 0.5))
	}
	return float64(int64(v - 0.5))
}

// ChildFlagsForBounds computes the child-flags byte for a non-leaf tile:
// bit i is set iff the source dataset's bounding rectangle overlaps the
// corresponding sub-quadrant of tileBounds in CRS space.
func ChildFlagsForBounds(sourceBounds, tileBounds grid.CRSBounds) uint8 {
	if !sourceBounds.Overlaps(tileBounds) {
		return 0
	}
	sw, se, nw, ne := tileBounds.Quadrants()
	var flags uint8
	if sourceBounds.Overlaps(sw) {
		flags |= ChildSW
	}
	if sourceBounds.Overlaps(se) {
		flags |= ChildSE
	}
	if sourceBounds.Overlaps(nw) {
		flags |= ChildNW
	}
	if sourceBounds.Overlaps(ne) {
		flags |= ChildNE
	}
	return flags
}

// Encode writes the gzip-compressed heightmap-1.0 byte layout for t.
func Encode(w io.Writer, t *Tile) error {
	var buf bytes.Buffer
	buf.Grow(CellCount*2 + 1 + FineMaskSize)

	var hbuf [2]byte
	for _, h := range t.Heights {
		binary.LittleEndian.PutUint16(hbuf[:], uint16(h))
		buf.Write(hbuf[:])
	}

	buf.WriteByte(t.ChildFlags)

	if t.Mask.IsFine() {
		if len(t.Mask.Fine) != FineMaskSize {
			return fmt.Errorf("heightmap: fine mask must be %d bytes, got %d", FineMaskSize, len(t.Mask.Fine))
		}
		buf.Write(t.Mask.Fine)
	} else {
		buf.WriteByte(t.Mask.Uniform)
	}

	gz, err := gzip.NewWriterLevel(w, gzip.BestCompression)
	if err != nil {
		return fmt.Errorf("heightmap: creating gzip writer: %w", err)
	}
	if _, err := gz.Write(buf.Bytes()); err != nil {
		return fmt.Errorf("heightmap: writing compressed payload: %w", err)
	}
	return gz.Close()
}

// Decode reads a gzip-compressed heightmap-1.0 payload.
func Decode(r io.Reader, coord grid.TileCoordinate) (*Tile, error) {
	gz, err := gzip.NewReader(r)
	if err != nil {
		return nil, fmt.Errorf("heightmap: opening gzip reader: %w", err)
	}
	defer gz.Close()

	raw, err := io.ReadAll(gz)
	if err != nil {
		return nil, fmt.Errorf("heightmap: reading compressed payload: %w", err)
	}

	const headerSize = CellCount*2 + 1
	if len(raw) != headerSize+1 && len(raw) != headerSize+FineMaskSize {
		return nil, fmt.Errorf("heightmap: wrong file size %d (want %d or %d)", len(raw), headerSize+1, headerSize+FineMaskSize)
	}

	t := &Tile{Coord: coord}
	for i := 0; i < CellCount; i++ {
		t.Heights[i] = int16(binary.LittleEndian.Uint16(raw[i*2 : i*2+2]))
	}
	t.ChildFlags = raw[CellCount*2]

	maskBytes := raw[headerSize:]
	if len(maskBytes) == 1 {
		t.Mask = Mask{Uniform: maskBytes[0]}
	} else {
		fine := make([]byte, FineMaskSize)
		copy(fine, maskBytes)
		t.Mask = Mask{Fine: fine}
	}

	return t, nil
}
