// SPDX-License-Identifier: EPL-2.0

package panner

import (
	"math"

	"github.com/ebu/ebu-adm-renderer/geom"
)

// Conversion between polar and Cartesian position and extent
// parameters, as defined in ITU-R BS.2127 section 10. The position
// conversion is invertible; the extent conversion is not.

type convSector struct {
	az  float64
	pos geom.Vec3
}

var convMapping = []convSector{
	{0, geom.Vec3{0, 1, 0}},
	{-30, geom.Vec3{1, 1, 0}},
	{-110, geom.Vec3{1, -1, 0}},
	{110, geom.Vec3{-1, -1, 0}},
	{30, geom.Vec3{-1, 1, 0}},
}

const (
	convElTop      = 30.0
	convElTopTilde = 45.0
)

func radiansC(deg float64) float64 { return deg * math.Pi / 180 }
func degreesC(rad float64) float64 { return rad * 180 / math.Pi }

func mapAzToLinear(leftAz, rightAz, azimuth float64) float64 {
	midAz := (leftAz + rightAz) / 2
	azRange := rightAz - midAz
	relAz := azimuth - midAz

	gainR := 0.5 + 0.5*math.Tan(radiansC(relAz))/math.Tan(radiansC(azRange))
	return math.Atan2(gainR, 1-gainR) * (2 / math.Pi)
}

func mapLinearToAz(leftAz, rightAz, x float64) float64 {
	midAz := (leftAz + rightAz) / 2
	azRange := rightAz - midAz

	gainL, gainR := math.Cos(x*math.Pi/2), math.Sin(x*math.Pi/2)
	gainRNorm := gainR / (gainL + gainR)

	relAz := degreesC(math.Atan(2 * (gainRNorm - 0.5) * math.Tan(radiansC(azRange))))
	return midAz + relAz
}

func findSector(az float64) (convSector, convSector) {
	for i := range convMapping {
		j := (i + 1) % len(convMapping)
		if geom.InsideAngleRange(az, convMapping[j].az, convMapping[i].az, 0) {
			return convMapping[i], convMapping[j]
		}
	}
	panic("panner: azimuth not covered by conversion sectors")
}

func findCartSector(az float64) (convSector, convSector) {
	for i := range convMapping {
		j := (i + 1) % len(convMapping)
		if geom.InsideAngleRange(az, geom.Azimuth(convMapping[j].pos), geom.Azimuth(convMapping[i].pos), 0) {
			return convMapping[i], convMapping[j]
		}
	}
	panic("panner: azimuth not covered by conversion sectors")
}

// PointPolarToCart converts a polar position to the Cartesian cube
// space.
func PointPolarToCart(az, el, d float64) geom.Vec3 {
	var z, rxy float64
	if math.Abs(el) > convElTop {
		elTilde := convElTopTilde + (90-convElTopTilde)*(math.Abs(el)-convElTop)/(90-convElTop)
		z = d
		if el < 0 {
			z = -d
		}
		rxy = d * math.Tan(radiansC(90-elTilde))
	} else {
		elTilde := convElTopTilde * el / convElTop
		z = math.Tan(radiansC(elTilde)) * d
		rxy = d
	}

	left, right := findSector(az)

	relAz := geom.RelativeAngle(right.az, az)
	relLeftAz := geom.RelativeAngle(right.az, left.az)
	p := mapAzToLinear(relLeftAz, right.az, relAz)

	x := rxy * (left.pos[0] + (right.pos[0]-left.pos[0])*p)
	y := rxy * (left.pos[1] + (right.pos[1]-left.pos[1])*p)
	return geom.Vec3{x, y, z}
}

// PointCartToPolar converts a position in the Cartesian cube space back
// to polar coordinates.
func PointCartToPolar(x, y, z float64) (az, el, d float64) {
	const eps = 1e-10

	if math.Abs(x) < eps && math.Abs(y) < eps {
		if math.Abs(z) < eps {
			return 0, 0, 0
		}
		if z < 0 {
			return 0, -90, -z
		}
		return 0, 90, z
	}

	left, right := findCartSector(geom.Azimuth(geom.Vec3{x, y, 0}))

	// invert [x, y] = gL * leftXY + gR * rightXY
	lx, ly := left.pos[0], left.pos[1]
	rx, ry := right.pos[0], right.pos[1]
	det := lx*ry - ly*rx
	gL := (x*ry - y*rx) / det
	gR := (y*lx - x*ly) / det
	rxy := gL + gR

	relLeftAz := geom.RelativeAngle(right.az, left.az)
	az = mapLinearToAz(relLeftAz, right.az, gR/rxy)
	az = geom.RelativeAngle(-180, az)

	elTilde := degreesC(math.Atan(z / rxy))
	if math.Abs(elTilde) > convElTopTilde {
		absEl := convElTop + (90-convElTop)*(math.Abs(elTilde)-convElTopTilde)/(90-convElTopTilde)
		el = absEl
		if elTilde < 0 {
			el = -absEl
		}
		d = math.Abs(z)
	} else {
		el = convElTop * elTilde / convElTopTilde
		d = rxy
	}

	return az, el, d
}

func whdToXYZ(width, height, depth float64) (sx, sy, sz float64) {
	xSizeWidth := 1.0
	if width < 180 {
		xSizeWidth = math.Sin(radiansC(width / 2))
	}
	ySizeWidth := (1 - math.Cos(radiansC(width/2))) / 2

	zSizeHeight := 1.0
	if height < 180 {
		zSizeHeight = math.Sin(radiansC(height / 2))
	}
	ySizeHeight := (1 - math.Cos(radiansC(height/2))) / 2

	return xSizeWidth, math.Max(ySizeWidth, math.Max(ySizeHeight, depth)), zSizeHeight
}

func xyzToWHD(sx, sy, sz float64) (width, height, depth float64) {
	widthFromSx := 2 * degreesC(math.Asin(math.Min(sx, 1)))
	widthFromSy := 2 * degreesC(math.Acos(clamp(1-2*sy, -1, 1)))
	width = widthFromSx + sx*math.Max(widthFromSy-widthFromSx, 0)

	heightFromSz := 2 * degreesC(math.Asin(math.Min(sz, 1)))
	heightFromSy := 2 * degreesC(math.Acos(clamp(1-2*sy, -1, 1)))
	height = heightFromSz + sz*math.Max(heightFromSy-heightFromSz, 0)

	// depth is the y size not accounted for by the calculated width and
	// height
	_, equivY, _ := whdToXYZ(width, height, 0)
	depth = math.Max(0, sy-equivY)

	return width, height, depth
}

func clamp(x, lo, hi float64) float64 {
	return math.Min(math.Max(x, lo), hi)
}

// ExtentPolarToCart converts a polar position with polar extent
// parameters to Cartesian position and sizes.
func ExtentPolarToCart(az, el, dist, width, height, depth float64) (pos geom.Vec3, sx, sy, sz float64) {
	pos = PointPolarToCart(az, el, dist)

	fx, fy, fz := whdToXYZ(width, height, depth)
	m := geom.LocalCoordinateSystem(az, el)

	for axis := range 3 {
		sq := fx*m[0][axis]*fx*m[0][axis] +
			fy*m[1][axis]*fy*m[1][axis] +
			fz*m[2][axis]*fz*m[2][axis]
		switch axis {
		case 0:
			sx = math.Sqrt(sq)
		case 1:
			sy = math.Sqrt(sq)
		case 2:
			sz = math.Sqrt(sq)
		}
	}

	return pos, sx, sy, sz
}

// ExtentCartToPolar converts a Cartesian position and sizes to a polar
// position with polar extent parameters.
func ExtentCartToPolar(x, y, z, sx, sy, sz float64) (az, el, dist, width, height, depth float64) {
	az, el, dist = PointCartToPolar(x, y, z)

	m := geom.LocalCoordinateSystem(az, el)
	// component-wise scaling of the local axes by the Cartesian sizes
	wx := math.Sqrt(m[0][0]*sx*m[0][0]*sx + m[0][1]*sy*m[0][1]*sy + m[0][2]*sz*m[0][2]*sz)
	wy := math.Sqrt(m[1][0]*sx*m[1][0]*sx + m[1][1]*sy*m[1][1]*sy + m[1][2]*sz*m[1][2]*sz)
	wz := math.Sqrt(m[2][0]*sx*m[2][0]*sx + m[2][1]*sy*m[2][1]*sy + m[2][2]*sz*m[2][2]*sz)

	width, height, depth = xyzToWHD(wx, wy, wz)
	return az, el, dist, width, height, depth
}
