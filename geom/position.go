// SPDX-License-Identifier: EPL-2.0

package geom

// PolarPosition is a 3D position in ADM-format polar coordinates:
// anticlockwise azimuth and upwards elevation in degrees, and a
// distance relative to the reference radius.
type PolarPosition struct {
	Azimuth   float64
	Elevation float64
	Distance  float64
}

// Cartesian returns the equivalent Cartesian position.
func (p PolarPosition) Cartesian() Vec3 {
	return Cart(p.Azimuth, p.Elevation, p.Distance)
}

// NormPosition is the position projected onto the unit sphere.
func (p PolarPosition) NormPosition() Vec3 {
	return Cart(p.Azimuth, p.Elevation, 1)
}

// CartesianPosition is a 3D position in ADM-format Cartesian
// coordinates, each axis nominally in [-1, 1].
type CartesianPosition struct {
	X, Y, Z float64
}

func (p CartesianPosition) Vec() Vec3 { return Vec3{p.X, p.Y, p.Z} }

// Polar returns the equivalent polar position.
func (p CartesianPosition) Polar() PolarPosition {
	v := p.Vec()
	return PolarPosition{Azimuth: Azimuth(v), Elevation: Elevation(v), Distance: Distance(v)}
}
