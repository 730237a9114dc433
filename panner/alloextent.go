// SPDX-License-Identifier: EPL-2.0

package panner

import (
	"math"

	"github.com/ebu/ebu-adm-renderer/geom"
)

// Cartesian extent panning, BS.2127 section 7.3.8: the source is
// represented by a weighted grid of virtual sources inside the room
// cube, combined with per-axis speaker gain functions.

const (
	numVS       = 40
	neg130dBExp = 6.5
)

var neg130dB = math.Pow(10, -neg130dBExp)

func scaleSize(v float64) float64 {
	return geom.Interp(math.Min(v, 1),
		[]float64{0, 0.2, 0.5, 0.75, 1},
		[]float64{0, 0.3, 1, 1.8, 2.8})
}

func sEff(channelPositions []geom.Vec3, sx, sy, sz float64) float64 {
	inLine := true
	inPlane := true
	for _, p := range channelPositions {
		if p[1] != channelPositions[0][1] || p[2] != channelPositions[0][2] {
			inLine = false
		}
		if p[2] != channelPositions[0][2] {
			inPlane = false
		}
	}

	switch {
	case inLine:
		return sx
	case inPlane:
		lo, hi := math.Min(sx, sy), math.Max(sx, sy)
		return 0.75*hi + 0.25*lo
	default:
		s := []float64{sx, sy, sz}
		sortFloats(s)
		return (6.0/9.0)*s[2] + (2.0/9.0)*s[1] + (1.0/9.0)*s[0]
	}
}

func sortFloats(s []float64) {
	for i := 1; i < len(s); i++ {
		for j := i; j > 0 && s[j] < s[j-1]; j-- {
			s[j], s[j-1] = s[j-1], s[j]
		}
	}
}

func pExponent(seff float64) float64 {
	if seff <= 0.5 {
		return 6
	}
	const sMax = 2.8
	return 6 - 4*((seff-0.5)/(sMax-0.5))
}

func hFunc(c, s, dBound float64) float64 {
	if dBound >= 2*s && dBound >= 0.4 {
		n := math.Max(2*s, 0.4)
		return math.Cbrt(n * n * n / (0.16 * 2 * s))
	}
	a := dBound / 0.4
	return math.Cbrt(dBound / 2 * a * a)
}

func dBound(dim int, xo, yo, zo float64) float64 {
	b := math.Min(xo+1, 1-xo)
	if dim >= 2 {
		b = math.Min(b, math.Min(yo+1, 1-yo))
	}
	if dim >= 3 {
		b = math.Min(b, math.Min(zo+1, 1-zo))
	}
	return b
}

func mu(dim int, sx, sy, sz, xo, yo, zo float64) float64 {
	db := dBound(dim, xo, yo, zo)
	switch dim {
	case 1:
		n := hFunc(xo, sx, db)
		return n * n * n
	case 2:
		n := hFunc(xo, sx, db) * hFunc(yo, sy, db)
		return math.Pow(n, 1.5)
	default:
		return hFunc(xo, sx, db) * hFunc(yo, sy, db) * hFunc(zo, sz, db)
	}
}

func calcW(o, s float64, grid []float64) []float64 {
	w := make([]float64, len(grid))
	for i, g := range grid {
		t := math.Min(math.Pow(1.5*(g-o)/(2*s), 4), neg130dBExp)
		w[i] = math.Pow(10, -t)
	}
	return w
}

func calcWz(zo, sz float64, grid []float64) []float64 {
	w := make([]float64, len(grid))
	for i, g := range grid {
		t := math.Min(math.Pow(1.5*(g-zo)/sz, 4), neg130dBExp)
		w[i] = math.Pow(10, -t) * math.Cos(g*math.Pi*(3.0/7.0))
	}
	return w
}

func dimensionality(channelPositions []geom.Vec3) int {
	dim := 0
	for axis := range 3 {
		for _, p := range channelPositions {
			if p[axis] != channelPositions[0][axis] {
				dim++
				break
			}
		}
	}
	return dim
}

// axisBounds finds the nearest speaker coordinates bracketing value
// among speakers matching the given filter; either bound may be absent.
func axisBounds(value float64, coords func(yield func(float64))) (lo, hi *float64) {
	coords(func(c float64) {
		if c <= value && (lo == nil || c > *lo) {
			v := c
			lo = &v
		}
		if c >= value && (hi == nil || c < *hi) {
			v := c
			hi = &v
		}
	})
	return lo, hi
}

// axisGain is the per-axis speaker gain for a virtual source at v.
func axisGain(pos float64, lo, hi *float64, v float64) float64 {
	switch {
	case lo == nil:
		if pos != *hi {
			return 0
		}
		return 1
	case hi == nil:
		if pos != *lo {
			return 0
		}
		return 1
	case *lo <= pos && pos <= *hi:
		switch {
		case *lo == *hi:
			return 1
		case *lo == pos:
			return math.Cos((v - *lo) / (*hi - *lo) * math.Pi / 2)
		default:
			return math.Sin((v - *lo) / (*hi - *lo) * math.Pi / 2)
		}
	default:
		return 0
	}
}

// calcGPointSeparated computes, for each speaker, the per-axis gains
// over the virtual source grids.
func calcGPointSeparated(channelPositions []geom.Vec3, xs, ys, zs []float64) (gx, gy, gz [][]float64) {
	for _, pos := range channelPositions {
		gzRow := make([]float64, len(zs))
		for i, z := range zs {
			lo, hi := axisBounds(z, func(yield func(float64)) {
				for _, p := range channelPositions {
					yield(p[2])
				}
			})
			gzRow[i] = axisGain(pos[2], lo, hi, z)
		}

		gyRow := make([]float64, len(ys))
		for i, y := range ys {
			lo, hi := axisBounds(y, func(yield func(float64)) {
				for _, p := range channelPositions {
					if p[2] == pos[2] {
						yield(p[1])
					}
				}
			})
			gyRow[i] = axisGain(pos[1], lo, hi, y)
		}

		gxRow := make([]float64, len(xs))
		for i, x := range xs {
			lo, hi := axisBounds(x, func(yield func(float64)) {
				for _, p := range channelPositions {
					if p[2] == pos[2] && p[1] == pos[1] {
						yield(p[0])
					}
				}
			})
			gxRow[i] = axisGain(pos[0], lo, hi, x)
		}

		gx = append(gx, gxRow)
		gy = append(gy, gyRow)
		gz = append(gz, gzRow)
	}
	return gx, gy, gz
}

func calcF(p float64, w []float64, gPoint [][]float64) []float64 {
	f := make([]float64, len(gPoint))
	for ch, row := range gPoint {
		sum := 0.0
		for i, g := range row {
			sum += math.Pow(g*w[i], p)
		}
		if sum < neg130dB {
			sum = 0
		}
		f[ch] = sum
	}
	return f
}

func linspace(lo, hi float64, n int) []float64 {
	out := make([]float64, n)
	for i := range n {
		out[i] = lo + (hi-lo)*float64(i)/float64(n-1)
	}
	return out
}

func safeNormalize(v []float64) []float64 {
	out := make([]float64, len(v))
	n := norm(v)
	if n <= 1e-16 {
		return out
	}
	for i := range v {
		out[i] = v[i] / n
	}
	return out
}

// AlloExtentGains computes gains for a Cartesian source with size over
// the given allocentric speaker positions.
func AlloExtentGains(channelPositions []geom.Vec3, position geom.Vec3, sizeX, sizeY, sizeZ float64) []float64 {
	xo, yo, zo := position[0], position[1], position[2]

	zLevels := map[float64]bool{}
	for _, p := range channelPositions {
		zLevels[p[2]] = true
	}
	fullHeight := len(zLevels) >= 3

	nx, ny := numVS, numVS
	nz := numVS
	var zs []float64
	if fullHeight {
		zs = linspace(-1, 1, nz)
	} else {
		nz = numVS / 2
		zs = linspace(0, 1, nz)
		zo = math.Max(0, zo)
	}
	xs := linspace(-1, 1, nx)
	ys := linspace(-1, 1, ny)

	sx := math.Max(scaleSize(sizeX), 2/float64(nx-1))
	sy := math.Max(scaleSize(sizeY), 2/float64(ny-1))
	sz := math.Max(scaleSize(sizeZ), 2/float64(nz-1))

	seff := sEff(channelPositions, sx, sy, sz)
	p := pExponent(seff)
	dim := dimensionality(channelPositions)

	muV := mu(dim, sx, sy, sz, xo, yo, zo)
	wx := calcW(xo, sx, xs)
	wy := calcW(yo, sy, ys)
	wz := calcWz(zo, sz, zs)

	gPointX, gPointY, gPointZ := calcGPointSeparated(channelPositions, xs, ys, zs)
	fx := calcF(p, wx, gPointX)
	fy := calcF(p, wy, gPointY)
	fz := calcF(p, wz, gPointZ)

	n := len(channelPositions)
	gInside := make([]float64, n)
	for i := range n {
		gInside[i] = fx[i] * fy[i] * fz[i]
	}
	gInsideNorm := safeNormalize(gInside)

	boundary := func(gPoint [][]float64, w []float64, idx int) []float64 {
		out := make([]float64, n)
		for i := range n {
			out[i] = math.Pow(gPoint[i][idx]*w[idx], p)
		}
		return out
	}
	bFloor := boundary(gPointZ, wz, 0)
	bCeil := boundary(gPointZ, wz, len(wz)-1)
	bLeft := boundary(gPointX, wx, 0)
	bRight := boundary(gPointX, wx, len(wx)-1)
	bFront := boundary(gPointY, wy, 0)
	bBack := boundary(gPointY, wy, len(wy)-1)

	gSize := make([]float64, n)
	for i := range n {
		gBound := bLeft[i]*fy[i]*fz[i] +
			bRight[i]*fy[i]*fz[i] +
			fx[i]*bFront[i]*fz[i] +
			fx[i]*bBack[i]*fz[i] +
			fx[i]*fy[i]*bCeil[i] +
			fx[i]*fy[i]*bFloor[i]
		gSize[i] = math.Pow(gBound+muV*gInsideNorm[i], 1/p)
	}
	gSizeNorm := safeNormalize(gSize)

	const sFade = 0.2
	alpha, beta := 0.0, 1.0
	if seff < sFade {
		alpha = math.Cos(seff * math.Pi / (sFade * 2))
		beta = math.Sin(seff * math.Pi / (sFade * 2))
	}

	gpx, gpy, gpz := calcGPointSeparated(channelPositions, []float64{xo}, []float64{yo}, []float64{zo})
	gTotal := make([]float64, n)
	for i := range n {
		gPoint := gpx[i][0] * gpy[i][0] * gpz[i][0]
		gTotal[i] = alpha*gPoint + beta*gSizeNorm[i]
	}

	return safeNormalize(gTotal)
}

// AllocentricExtentPan pans a Cartesian source, using the allocentric
// point panner for zero-size sources.
func AllocentricExtentPan(channelPositions []geom.Vec3, position geom.Vec3, width, height, depth float64) []float64 {
	if width == 0 && height == 0 && depth == 0 {
		return NewAllocentricPanner(channelPositions).Handle(position)
	}
	return AlloExtentGains(channelPositions, position, width, depth, height)
}
