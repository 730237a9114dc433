// SPDX-License-Identifier: EPL-2.0

// Package hoa implements the Higher Order Ambisonics maths used by the
// renderer: real spherical harmonics in the three ADM normalizations,
// AllRAD decoder design, and per-order near-field compensation filters.
package hoa

import (
	"errors"
	"fmt"
	"math"

	"github.com/ebu/ebu-adm-renderer/geom"
)

var ErrBadNormalization = errors.New("unknown normalization")

func factorial(n int) float64 {
	out := 1.0
	for i := 2; i <= n; i++ {
		out *= float64(i)
	}
	return out
}

// alegendre is the associated Legendre function P_n^m(x), omitting the
// (-1)^m Condon-Shortley phase term.
func alegendre(n, m int, x float64) float64 {
	// P_m^m = (2m-1)!! (1-x^2)^(m/2)
	pmm := 1.0
	if m > 0 {
		somx2 := math.Sqrt((1 - x) * (1 + x))
		fact := 1.0
		for range m {
			pmm *= fact * somx2
			fact += 2
		}
	}
	if n == m {
		return pmm
	}

	pmmp1 := x * float64(2*m+1) * pmm
	if n == m+1 {
		return pmmp1
	}

	var pnm float64
	for nn := m + 2; nn <= n; nn++ {
		pnm = (x*float64(2*nn-1)*pmmp1 - float64(nn+m-1)*pmm) / float64(nn-m)
		pmm, pmmp1 = pmmp1, pnm
	}
	return pnm
}

// NormN3D is the N3D normalisation for order n and absolute degree m.
func NormN3D(n, absM int) float64 {
	return math.Sqrt(float64(2*n+1) * factorial(n-absM) / factorial(n+absM))
}

// NormSN3D is the SN3D normalisation for order n and absolute degree m.
func NormSN3D(n, absM int) float64 {
	return math.Sqrt(factorial(n-absM) / factorial(n+absM))
}

var fumaConvert = map[[2]int]float64{
	{0, 0}: 1 / math.Sqrt2,
	{1, 0}: 1, {1, 1}: 1,
	{2, 0}: 1, {2, 1}: 2 / math.Sqrt(3), {2, 2}: 2 / math.Sqrt(3),
	{3, 0}: 1, {3, 1}: math.Sqrt(45.0 / 32.0), {3, 2}: 3 / math.Sqrt(5), {3, 3}: math.Sqrt(8.0 / 5.0),
}

// NormFuMa is the FuMa normalisation, defined up to order 3.
func NormFuMa(n, absM int) float64 {
	conv, ok := fumaConvert[[2]int{n, absM}]
	if !ok {
		panic(fmt.Sprintf("hoa: FuMa normalization is only defined up to order 3, not %d", n))
	}
	return NormSN3D(n, absM) * conv
}

// NormFunc maps a normalization name to the corresponding function.
func NormFunc(name string) (func(n, absM int) float64, error) {
	switch name {
	case "N3D":
		return NormN3D, nil
	case "SN3D":
		return NormSN3D, nil
	case "FuMa":
		return NormFuMa, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrBadNormalization, name)
	}
}

// SphHarm evaluates the real spherical harmonic Y_n^m at the given
// azimuth and elevation in radians, with elevation measured up from the
// equator.
func SphHarm(n, m int, az, el float64, norm func(n, absM int) float64) float64 {
	absM := m
	scale := 1.0
	switch {
	case m > 0:
		scale = math.Sqrt2 * math.Cos(float64(m)*az)
	case m < 0:
		absM = -m
		scale = -math.Sqrt2 * math.Sin(float64(m)*az)
	}

	return norm(n, absM) * alegendre(n, absM, math.Sin(el)) * scale
}

// ToACN is the Ambisonics Channel Number for order n and degree m.
func ToACN(n, m int) int { return n*n + n + m }

// FromACN returns the order and degree for an Ambisonics Channel
// Number.
func FromACN(acn int) (n, m int) {
	n = int(math.Sqrt(float64(acn)))
	m = acn - n*n - n
	return n, m
}

func pointAzEl(p geom.Vec3) (az, el float64) {
	az = -math.Atan2(p[0], p[1])
	el = math.Atan2(p[2], math.Hypot(p[0], p[1]))
	return az, el
}

// CalcGVirt evaluates the panning function at each virtual loudspeaker
// position; the result can be reused between designs for the same
// layout.
func CalcGVirt(points []geom.Vec3, panningFunc func(geom.Vec3) []float64) [][]float64 {
	out := make([][]float64, len(points))
	for i, p := range points {
		out[i] = panningFunc(p)
	}
	return out
}

// AllRADDesign builds a decoder matrix using the AllRAD technique: each
// point of a spherical design is panned to the real loudspeakers, and
// the resulting gains are projected onto the spherical harmonics of the
// declared orders and degrees. The returned matrix has one row per
// loudspeaker and one column per HOA channel.
//
// gVirt may be the result of CalcGVirt(points, panningFunc); pass nil
// to compute it here.
func AllRADDesign(points []geom.Vec3, panningFunc func(geom.Vec3) []float64,
	orders, degrees []int, norm func(n, absM int) float64, gVirt [][]float64) [][]float64 {

	if gVirt == nil {
		gVirt = CalcGVirt(points, panningFunc)
	}

	nPoints := len(points)
	nChannels := len(orders)
	nSpeakers := len(gVirt[0])

	// yVirt[c][k]: N3D harmonic c at point k
	yVirt := make([][]float64, nChannels)
	for c := range nChannels {
		yVirt[c] = make([]float64, nPoints)
		for k, p := range points {
			az, el := pointAzEl(p)
			yVirt[c][k] = SphHarm(orders[c], degrees[c], az, el, NormN3D)
		}
	}

	// D = gVirt^T . yVirt^T / nPoints
	decoder := make([][]float64, nSpeakers)
	for s := range nSpeakers {
		decoder[s] = make([]float64, nChannels)
		for c := range nChannels {
			sum := 0.0
			for k := range nPoints {
				sum += gVirt[k][s] * yVirt[c][k]
			}
			decoder[s][c] = sum / float64(nPoints)
		}
	}

	// scale to compensate for the energy lost in panning: the norm of
	// D . yVirt should be sqrt(nPoints)
	sumSq := 0.0
	for s := range nSpeakers {
		for k := range nPoints {
			acc := 0.0
			for c := range nChannels {
				acc += decoder[s][c] * yVirt[c][k]
			}
			sumSq += acc * acc
		}
	}
	scale := math.Sqrt(float64(nPoints)) / math.Sqrt(sumSq)

	for s := range nSpeakers {
		for c := range nChannels {
			absM := degrees[c]
			if absM < 0 {
				absM = -absM
			}
			decoder[s][c] *= scale * NormN3D(orders[c], absM) / norm(orders[c], absM)
		}
	}

	return decoder
}

// Points returns the fixed spherical sampling grid used for decoder
// design; the generation parameters and iteration order are fixed so
// that decoder matrices are reproducible across platforms.
func Points() []geom.Vec3 {
	const nRows = 65

	var positions []geom.Vec3
	for row := range nRows {
		el := -90 + 180*float64(row)/float64(nRows-1)

		radius := math.Cos(el * math.Pi / 180)
		nPoints := int(math.Round(radius * 2 * float64(nRows-1)))
		if nPoints == 0 {
			nPoints = 1
		}

		for p := range nPoints {
			az := 360 * float64(p) / float64(nPoints)
			positions = append(positions, geom.Cart(az, el, 1))
		}
	}
	return positions
}
