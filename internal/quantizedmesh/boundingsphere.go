package quantizedmesh

import "math"

// BoundingSphere is a center point and radius enclosing a set of points.
type BoundingSphere struct {
	Center ECEFPoint
	Radius float64
}

// BoundingSphereFromPoints computes the smaller of a two-pass Ritter sphere
// and the naive min/max-box sphere, following BoundingSphere.hpp's
// fromPoints: the naive sphere is returned only when naiveRadius <
// ritterRadius, so equal radii return the Ritter sphere (see DESIGN.md
// Open Question decision #2).
func BoundingSphereFromPoints(points []ECEFPoint) BoundingSphere {
	inf := math.Inf(1)
	ninf := math.Inf(-1)

	minPointX := ECEFPoint{inf, inf, inf}
	minPointY := ECEFPoint{inf, inf, inf}
	minPointZ := ECEFPoint{inf, inf, inf}
	maxPointX := ECEFPoint{ninf, ninf, ninf}
	maxPointY := ECEFPoint{ninf, ninf, ninf}
	maxPointZ := ECEFPoint{ninf, ninf, ninf}

	for _, p := range points {
		if p.X < minPointX.X {
			minPointX = p
		}
		if p.Y < minPointY.Y {
			minPointY = p
		}
		if p.Z < minPointZ.Z {
			minPointZ = p
		}
		if p.X > maxPointX.X {
			maxPointX = p
		}
		if p.Y > maxPointY.Y {
			maxPointY = p
		}
		if p.Z > maxPointZ.Z {
			maxPointZ = p
		}
	}

	xSpan := maxPointX.Sub(minPointX).MagnitudeSquared()
	ySpan := maxPointY.Sub(minPointY).MagnitudeSquared()
	zSpan := maxPointZ.Sub(minPointZ).MagnitudeSquared()

	diameter1, diameter2 := minPointX, maxPointX
	maxSpan := xSpan
	if ySpan > maxSpan {
		diameter1, diameter2 = minPointY, maxPointY
		maxSpan = ySpan
	}
	if zSpan > maxSpan {
		diameter1, diameter2 = minPointZ, maxPointZ
	}

	ritterCenter := ECEFPoint{
		X: (diameter1.X + diameter2.X) * 0.5,
		Y: (diameter1.Y + diameter2.Y) * 0.5,
		Z: (diameter1.Z + diameter2.Z) * 0.5,
	}
	radiusSquared := diameter2.Sub(ritterCenter).MagnitudeSquared()
	ritterRadius := math.Sqrt(radiusSquared)

	minBoxPt := ECEFPoint{minPointX.X, minPointY.Y, minPointZ.Z}
	maxBoxPt := ECEFPoint{maxPointX.X, maxPointY.Y, maxPointZ.Z}
	naiveCenter := minBoxPt.Add(maxBoxPt).Scale(0.5)
	var naiveRadius float64

	for _, p := range points {
		if r := p.Sub(naiveCenter).Magnitude(); r > naiveRadius {
			naiveRadius = r
		}

		// radiusSquared deliberately stays fixed at its pre-loop value
		// here, matching BoundingSphere.hpp exactly: the comparison
		// threshold is never tightened as the Ritter sphere grows.
		oldCenterToPointSquared := p.Sub(ritterCenter).MagnitudeSquared()
		if oldCenterToPointSquared > radiusSquared {
			oldCenterToPoint := math.Sqrt(oldCenterToPointSquared)
			ritterRadius = (ritterRadius + oldCenterToPoint) * 0.5

			oldToNew := oldCenterToPoint - ritterRadius
			ritterCenter = ECEFPoint{
				X: (ritterRadius*ritterCenter.X + oldToNew*p.X) / oldCenterToPoint,
				Y: (ritterRadius*ritterCenter.Y + oldToNew*p.Y) / oldCenterToPoint,
				Z: (ritterRadius*ritterCenter.Z + oldToNew*p.Z) / oldCenterToPoint,
			}
		}
	}

	if naiveRadius < ritterRadius {
		return BoundingSphere{Center: naiveCenter, Radius: naiveRadius}
	}
	return BoundingSphere{Center: ritterCenter, Radius: ritterRadius}
}

// HorizonOcclusionPoint computes the horizon-occlusion point for a set of
// ECEF points and their bounding sphere, scaling onto the WGS84 ellipsoid
// per https://cesiumjs.org/2013/05/09/Computing-the-horizon-occlusion-point.
func HorizonOcclusionPoint(points []ECEFPoint, sphere BoundingSphere) ECEFPoint {
	rX := 1.0 / wgs84SemiMajorAxis
	rY := 1.0 / wgs84SemiMajorAxis
	rZ := 1.0 / wgs84SemiMinorAxis

	scale := func(p ECEFPoint) ECEFPoint {
		return ECEFPoint{X: p.X * rX, Y: p.Y * rY, Z: p.Z * rZ}
	}

	scaledCenter := scale(sphere.Center)

	maxMagnitude := math.Inf(-1)
	for _, p := range points {
		scaledPoint := scale(p)
		m := occlusionMagnitude(scaledPoint, scaledCenter)
		if m > maxMagnitude {
			maxMagnitude = m
		}
	}
	return scaledCenter.Scale(maxMagnitude)
}

func occlusionMagnitude(position, sphereCenter ECEFPoint) float64 {
	magnitudeSquared := position.MagnitudeSquared()
	magnitude := math.Sqrt(magnitudeSquared)
	direction := position.Scale(1.0 / magnitude)

	// Points below the ellipsoid are treated as if they were on it.
	magnitudeSquared = math.Max(1.0, magnitudeSquared)
	magnitude = math.Max(1.0, magnitude)

	cosAlpha := direction.Dot(sphereCenter)
	sinAlpha := direction.Cross(sphereCenter).Magnitude()
	cosBeta := 1.0 / magnitude
	sinBeta := math.Sqrt(magnitudeSquared-1.0) * cosBeta

	return 1.0 / (cosAlpha*cosBeta - sinAlpha*sinBeta)
}
