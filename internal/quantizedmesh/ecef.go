// Package quantizedmesh implements the quantized-mesh-1.0 tile format: an
// ECEF header (center, bounding sphere, horizon-occlusion point), per-axis
// quantized and delta-encoded vertices, high-water-mark-encoded indices,
// edge-index lists, and an optional oct-encoded per-vertex normals
// extension, gzip-wrapped on the wire.
//
// Grounded on original_source/src/MeshTile.cpp and BoundingSphere.hpp
// (cesium-terrain-builder).
package quantizedmesh

import "math"

// WGS84 ellipsoid constants, matching MeshTile.cpp's llh_ecef_* globals.
const (
	wgs84SemiMajorAxis      = 6378137.0
	wgs84SemiMinorAxis      = 6356752.3142451793
	wgs84FirstEccentricitySq = 0.0066943799901975848
)

// ECEFPoint is a point in the Earth-Centred Earth-Fixed Cartesian frame.
type ECEFPoint struct {
	X, Y, Z float64
}

func (p ECEFPoint) Sub(o ECEFPoint) ECEFPoint {
	return ECEFPoint{p.X - o.X, p.Y - o.Y, p.Z - o.Z}
}

func (p ECEFPoint) Add(o ECEFPoint) ECEFPoint {
	return ECEFPoint{p.X + o.X, p.Y + o.Y, p.Z + o.Z}
}

func (p ECEFPoint) Scale(s float64) ECEFPoint {
	return ECEFPoint{p.X * s, p.Y * s, p.Z * s}
}

func (p ECEFPoint) Dot(o ECEFPoint) float64 {
	return p.X*o.X + p.Y*o.Y + p.Z*o.Z
}

func (p ECEFPoint) Cross(o ECEFPoint) ECEFPoint {
	return ECEFPoint{
		X: p.Y*o.Z - p.Z*o.Y,
		Y: p.Z*o.X - p.X*o.Z,
		Z: p.X*o.Y - p.Y*o.X,
	}
}

func (p ECEFPoint) MagnitudeSquared() float64 { return p.Dot(p) }
func (p ECEFPoint) Magnitude() float64        { return math.Sqrt(p.MagnitudeSquared()) }

func (p ECEFPoint) Normalize() ECEFPoint {
	m := p.Magnitude()
	if m == 0 {
		return p
	}
	return p.Scale(1 / m)
}

// llhECEFn is the ellipsoid's prime-vertical radius of curvature at
// latitude phi (radians).
func llhECEFn(phi float64) float64 {
	s := math.Sin(phi)
	return wgs84SemiMajorAxis / math.Sqrt(1.0-wgs84FirstEccentricitySq*s*s)
}

// LLHToECEF converts a (longitude degrees, latitude degrees, height metres)
// coordinate to ECEF, matching MeshTile.cpp's LLH2ECEF.
func LLHToECEF(lonDeg, latDeg, height float64) ECEFPoint {
	lon := lonDeg * math.Pi / 180.0
	lat := latDeg * math.Pi / 180.0

	n := llhECEFn(lat)
	cosLat, sinLat := math.Cos(lat), math.Sin(lat)
	cosLon, sinLon := math.Cos(lon), math.Sin(lon)

	return ECEFPoint{
		X: (n + height) * cosLat * cosLon,
		Y: (n + height) * cosLat * sinLon,
		Z: (n*(1.0-wgs84FirstEccentricitySq) + height) * sinLat,
	}
}

// ECEFBounds is an axis-aligned box over ECEF points.
type ECEFBounds struct {
	Min, Max ECEFPoint
}

// ECEFBoundsFromPoints computes the axis-aligned bounds of points.
func ECEFBoundsFromPoints(points []ECEFPoint) ECEFBounds {
	b := ECEFBounds{
		Min: ECEFPoint{math.Inf(1), math.Inf(1), math.Inf(1)},
		Max: ECEFPoint{math.Inf(-1), math.Inf(-1), math.Inf(-1)},
	}
	for _, p := range points {
		if p.X < b.Min.X {
			b.Min.X = p.X
		}
		if p.Y < b.Min.Y {
			b.Min.Y = p.Y
		}
		if p.Z < b.Min.Z {
			b.Min.Z = p.Z
		}
		if p.X > b.Max.X {
			b.Max.X = p.X
		}
		if p.Y > b.Max.Y {
			b.Max.Y = p.Y
		}
		if p.Z > b.Max.Z {
			b.Max.Z = p.Z
		}
	}
	return b
}

// Center returns the midpoint of the box.
func (b ECEFBounds) Center() ECEFPoint {
	return ECEFPoint{
		X: b.Min.X + 0.5*(b.Max.X-b.Min.X),
		Y: b.Min.Y + 0.5*(b.Max.Y-b.Min.Y),
		Z: b.Min.Z + 0.5*(b.Max.Z-b.Min.Z),
	}
}
