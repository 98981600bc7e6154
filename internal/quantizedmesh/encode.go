package quantizedmesh

import (
	"bytes"
	"compress/gzip"
	"encoding/binary"
	"fmt"
	"io"
	"math"

	"github.com/geodata/ctb-tile/internal/ctberr"
	"github.com/geodata/ctb-tile/internal/mesh"
)

// shortMax is the maximum quantized per-axis component, matching
// MeshTile.cpp's SHORT_MAX.
const shortMax = 32767.0

// maxVertexCountForShortIndices is the vertex-count threshold above which
// indices are written as uint32 instead of uint16. Resolved per DESIGN.md
// Open Question decision #1: spec.md's 65536, not the C++ source's stray
// 65636.
const maxVertexCountForShortIndices = 65536

// bounds3 is an axis-aligned box over mesh.Vertex3 in CRS space (not ECEF).
type bounds3 struct {
	Min, Max mesh.Vertex3
}

func boundsFromVertices(vs []mesh.Vertex3) bounds3 {
	posInf, negInf := math.Inf(1), math.Inf(-1)
	b := bounds3{
		Min: mesh.Vertex3{X: posInf, Y: posInf, Z: posInf},
		Max: mesh.Vertex3{X: negInf, Y: negInf, Z: negInf},
	}
	for _, v := range vs {
		if v.X < b.Min.X {
			b.Min.X = v.X
		}
		if v.Y < b.Min.Y {
			b.Min.Y = v.Y
		}
		if v.Z < b.Min.Z {
			b.Min.Z = v.Z
		}
		if v.X > b.Max.X {
			b.Max.X = v.X
		}
		if v.Y > b.Max.Y {
			b.Max.Y = v.Y
		}
		if v.Z > b.Max.Z {
			b.Max.Z = v.Z
		}
	}
	return b
}

func (b bounds3) component(axis int, v mesh.Vertex3) float64 {
	switch axis {
	case 0:
		return v.X
	case 1:
		return v.Y
	default:
		return v.Z
	}
}

func (b bounds3) min(axis int) float64 {
	switch axis {
	case 0:
		return b.Min.X
	case 1:
		return b.Min.Y
	default:
		return b.Min.Z
	}
}

func (b bounds3) max(axis int) float64 {
	switch axis {
	case 0:
		return b.Max.X
	case 1:
		return b.Max.Y
	default:
		return b.Max.Z
	}
}

// Options controls optional quantized-mesh-1.0 features.
type Options struct {
	// WriteVertexNormals, when true, appends the oct-encoded per-vertex
	// normals extension (extensionId 1).
	WriteVertexNormals bool
}

// Encode writes the gzip-compressed quantized-mesh-1.0 byte sequence for t.
func Encode(w io.Writer, t *mesh.Tile, opts Options) error {
	var buf bytes.Buffer

	cartesian := make([]ECEFPoint, len(t.Vertices))
	for i, v := range t.Vertices {
		cartesian[i] = LLHToECEF(v.X, v.Y, v.Z)
	}
	cartesianBounds := ECEFBoundsFromPoints(cartesian)
	llhBounds := boundsFromVertices(t.Vertices)

	sphere := BoundingSphereFromPoints(cartesian)
	occlusion := HorizonOcclusionPoint(cartesian, sphere)

	center := cartesianBounds.Center()
	writeFloat64(&buf, center.X)
	writeFloat64(&buf, center.Y)
	writeFloat64(&buf, center.Z)

	writeFloat32(&buf, float32(llhBounds.Min.Z))
	writeFloat32(&buf, float32(llhBounds.Max.Z))

	writeFloat64(&buf, sphere.Center.X)
	writeFloat64(&buf, sphere.Center.Y)
	writeFloat64(&buf, sphere.Center.Z)
	writeFloat64(&buf, sphere.Radius)

	writeFloat64(&buf, occlusion.X)
	writeFloat64(&buf, occlusion.Y)
	writeFloat64(&buf, occlusion.Z)

	vertexCount := len(t.Vertices)
	writeInt32(&buf, int32(vertexCount))

	if vertexCount > 0 {
		for axis := 0; axis < 3; axis++ {
			origin := llhBounds.min(axis)
			var factor float64
			if llhBounds.max(axis) > origin {
				factor = shortMax / (llhBounds.max(axis) - origin)
			}

			u0 := quantizeAxis(origin, factor, llhBounds.component(axis, t.Vertices[0]))
			writeUint16(&buf, ZigZagEncode(int32(u0)))

			for i := 1; i < vertexCount; i++ {
				u1 := quantizeAxis(origin, factor, llhBounds.component(axis, t.Vertices[i]))
				writeUint16(&buf, ZigZagEncode(int32(u1-u0)))
				u0 = u1
			}
		}
	}

	triangleCount := len(t.Indices) / 3
	writeInt32(&buf, int32(triangleCount))

	wide := vertexCount > maxVertexCountForShortIndices
	writeHighWaterMarkIndices(&buf, t.Indices, wide)

	writeEdgeIndices(&buf, t, llhBounds.Min.X, 0, wide)
	writeEdgeIndices(&buf, t, llhBounds.Min.Y, 1, wide)
	writeEdgeIndices(&buf, t, llhBounds.Max.X, 0, wide)
	writeEdgeIndices(&buf, t, llhBounds.Max.Y, 1, wide)

	if opts.WriteVertexNormals && triangleCount > 0 {
		if err := writeNormalsExtension(&buf, t, cartesian); err != nil {
			return ctberr.New(ctberr.Encode, err)
		}
	}

	gz, err := gzip.NewWriterLevel(w, gzip.BestCompression)
	if err != nil {
		return ctberr.New(ctberr.Compress, fmt.Errorf("quantizedmesh: creating gzip writer: %w", err))
	}
	if _, err := gz.Write(buf.Bytes()); err != nil {
		return ctberr.New(ctberr.Compress, fmt.Errorf("quantizedmesh: writing compressed payload: %w", err))
	}
	if err := gz.Close(); err != nil {
		return ctberr.New(ctberr.Compress, fmt.Errorf("quantizedmesh: finalizing gzip stream: %w", err))
	}
	return nil
}

func quantizeAxis(origin, factor, value float64) int32 {
	return int32(roundHalfAwayFromZero((value - origin) * factor))
}

func roundHalfAwayFromZero(v float64) float64 {
	if v >= 0 {
		return float64(int64(v + 0.5))
	}
	return float64(int64(v - 0.5))
}

// writeHighWaterMarkIndices encodes mesh.Indices using the standard
// high-water-mark scheme: emit (highest - idx), then advance highest
// whenever the emitted code is zero.
func writeHighWaterMarkIndices(buf *bytes.Buffer, indices []uint32, wide bool) {
	var highest uint32
	for _, idx := range indices {
		code := highest - idx
		if wide {
			writeUint32(buf, code)
		} else {
			writeUint16(buf, uint16(code))
		}
		if code == 0 {
			highest++
		}
	}
}

// writeEdgeIndices emits the ordered set of distinct vertex indices whose
// componentIndex coordinate equals edgeCoord, deduping on first occurrence,
// matching MeshTile.cpp's writeEdgeIndices<T>.
func writeEdgeIndices(buf *bytes.Buffer, t *mesh.Tile, edgeCoord float64, componentIndex int, wide bool) {
	var indices []uint32
	seen := make(map[uint32]bool)

	for _, idx := range t.Indices {
		v := t.Vertices[idx]
		var val float64
		if componentIndex == 0 {
			val = v.X
		} else {
			val = v.Y
		}
		if val == edgeCoord && !seen[idx] {
			seen[idx] = true
			indices = append(indices, idx)
		}
	}

	writeInt32(buf, int32(len(indices)))
	for _, idx := range indices {
		if wide {
			writeUint32(buf, idx)
		} else {
			writeUint16(buf, uint16(idx))
		}
	}
}

// writeNormalsExtension computes per-face normals in ECEF, weighted by the
// source's non-standard triangleArea(v0,v1) formula (DESIGN.md Open
// Question decision #4: cross product of raw vertex vectors, not edge
// vectors), accumulates per-vertex sums, and oct-encodes the normalized
// result.
func writeNormalsExtension(buf *bytes.Buffer, t *mesh.Tile, cartesian []ECEFPoint) error {
	vertexCount := len(t.Vertices)
	triangleCount := len(t.Indices) / 3

	buf.WriteByte(1) // extensionId
	writeInt32(buf, int32(2*vertexCount))

	normalsPerVertex := make([]ECEFPoint, vertexCount)
	normalsPerFace := make([]ECEFPoint, triangleCount)
	areasPerFace := make([]float64, triangleCount)

	for i, j := 0, 0; i < len(t.Indices); i, j = i+3, j+1 {
		v0 := cartesian[t.Indices[i]]
		v1 := cartesian[t.Indices[i+1]]
		v2 := cartesian[t.Indices[i+2]]

		normal := v1.Sub(v0).Cross(v2.Sub(v0))
		area := triangleArea(v0, v1)
		normalsPerFace[j] = normal
		areasPerFace[j] = area
	}

	for i, j := 0, 0; i < len(t.Indices); i, j = i+3, j+1 {
		i0, i1, i2 := t.Indices[i], t.Indices[i+1], t.Indices[i+2]
		weighted := normalsPerFace[j].Scale(areasPerFace[j])

		normalsPerVertex[i0] = normalsPerVertex[i0].Add(weighted)
		normalsPerVertex[i1] = normalsPerVertex[i1].Add(weighted)
		normalsPerVertex[i2] = normalsPerVertex[i2].Add(weighted)
	}

	for i := 0; i < vertexCount; i++ {
		x, y := OctEncode(normalsPerVertex[i].Normalize())
		buf.WriteByte(x)
		buf.WriteByte(y)
	}
	return nil
}

// triangleArea preserves the source's non-standard weighting exactly:
// the cross-product magnitude of the two raw vertex vectors (v0, v1), not
// the edge vectors (v1-v0, v2-v0).
func triangleArea(a, b ECEFPoint) float64 {
	i := a.Y*b.Z - a.Z*b.Y
	j := a.Z*b.X - a.X*b.Z
	k := a.X*b.Y - a.Y*b.X
	return 0.5 * math.Sqrt(i*i+j*j+k*k)
}

func writeFloat64(buf *bytes.Buffer, v float64) {
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], math.Float64bits(v))
	buf.Write(b[:])
}

func writeFloat32(buf *bytes.Buffer, v float32) {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], math.Float32bits(v))
	buf.Write(b[:])
}

func writeInt32(buf *bytes.Buffer, v int32) {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], uint32(v))
	buf.Write(b[:])
}

func writeUint32(buf *bytes.Buffer, v uint32) {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], v)
	buf.Write(b[:])
}

func writeUint16(buf *bytes.Buffer, v uint16) {
	var b [2]byte
	binary.LittleEndian.PutUint16(b[:], v)
	buf.Write(b[:])
}
