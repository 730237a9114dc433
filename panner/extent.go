// SPDX-License-Identifier: EPL-2.0

package panner

import (
	"math"

	"github.com/ebu/ebu-adm-renderer/geom"
)

// spreadingPanner pans using a uniform spread of points around the
// sphere weighted by a source shape function.
type spreadingPanner struct {
	positions []geom.Vec3
	results   [][]float64
	nchannels int
}

// generatePanningPositionsEven spreads points evenly on the sphere in
// rings of constant elevation; nRows of 37 gives 5 degree spacing.
func generatePanningPositionsEven(nRows int) []geom.Vec3 {
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

func newSpreadingPanner(psp *PointSourcePanner, nRows int) *spreadingPanner {
	s := &spreadingPanner{
		positions: generatePanningPositionsEven(nRows),
		nchannels: psp.NumChannels(),
	}
	for _, pos := range s.positions {
		s.results = append(s.results, psp.Handle(pos))
	}
	return s
}

// panningValuesForWeight sums the precomputed panning results weighted
// by the source shape, then normalises to unit power.
func (s *spreadingPanner) panningValuesForWeight(weight func(geom.Vec3) float64) []float64 {
	total := make([]float64, s.nchannels)
	for i, pos := range s.positions {
		w := weight(pos)
		if w == 0 {
			continue
		}
		for ch, g := range s.results[i] {
			total[ch] += w * g
		}
	}
	normalize(total)
	return total
}

// PolarExtentPanner computes gains for spread sources, degrading to the
// point source panner for zero-size sources.
type PolarExtentPanner struct {
	psp       *PointSourcePanner
	spreading *spreadingPanner
}

const (
	fadeWidth      = 10.0 // degrees
	spreadingNRows = 37
)

func NewPolarExtentPanner(psp *PointSourcePanner) *PolarExtentPanner {
	return &PolarExtentPanner{
		psp:       psp,
		spreading: newSpreadingPanner(psp, spreadingNRows),
	}
}

// calcBasis calculates basis vectors that rotate (0, 1, 0) onto the
// source position; positions near the poles use azimuth 0.
func calcBasis(position geom.Vec3) [3]geom.Vec3 {
	if position.Norm() < 1e-10 {
		position = geom.Vec3{0, 1, 0}
	} else {
		position = position.Normalized()
	}
	az, el := geom.Azimuth(position), geom.Elevation(position)
	if math.Abs(el) > 90-1e-5 {
		az = 0
	}
	return geom.LocalCoordinateSystem(az, el)
}

// weightFunc builds the weighting function for a spread source: one
// inside a stadium shape in azimuth-elevation space given by a width x
// height rectangle with maximally-sized rounded ends, fading to zero
// over fadeWidth. For sources where width equals height this degrades
// to a circular region around the source position.
func (p *PolarExtentPanner) weightFunc(position geom.Vec3, width, height float64) func(geom.Vec3) float64 {
	widthR := width * math.Pi / 180 / 2
	heightR := height * math.Pi / 180 / 2

	basis := calcBasis(position)
	circleRadius := math.Min(widthR, heightR)

	// flip so that the shape is always wider than it is high
	flipped := basis
	if heightR > widthR {
		widthR, heightR = heightR, widthR
		flipped = [3]geom.Vec3{basis[2], basis[1], basis[0]}
	}

	// modify the width to make the ends meet at the back
	widthFull := math.Pi + heightR
	widthMod := geom.Interp(widthR,
		[]float64{0, math.Pi / 2, math.Pi},
		[]float64{0, math.Pi / 2, widthFull})
	widthR = geom.Interp(heightR,
		[]float64{0, math.Pi / 4, math.Pi / 2, math.Pi},
		[]float64{widthMod, widthMod, widthR, widthR})

	// angle of the circle centres from the source position; the width
	// runs to the end of the rectangle
	circlePos := widthR - circleRadius

	cartOnBasis := func(az, el float64) geom.Vec3 {
		rel := geom.Vec3{
			math.Sin(az) * math.Cos(el),
			math.Cos(az) * math.Cos(el),
			math.Sin(el),
		}
		return flipped[0].Scale(rel[0]).Add(flipped[1].Scale(rel[1])).Add(flipped[2].Scale(rel[2]))
	}

	circlePositions := [2]geom.Vec3{
		cartOnBasis(-circlePos, 0),
		cartOnBasis(circlePos, 0),
	}

	fadeRadians := fadeWidth * math.Pi / 180

	return func(pos geom.Vec3) float64 {
		// azimuth/elevation in the flipped basis; the straight edges
		// run along azimuth lines
		rightC := clamp(pos.Dot(flipped[0]), -1, 1)
		forwardC := clamp(pos.Dot(flipped[1]), -1, 1)
		upC := clamp(pos.Dot(flipped[2]), -1, 1)

		azimuth := math.Atan2(rightC, forwardC)
		elevation := math.Asin(upC)

		// distance is the angle away from the stadium shape; zero or
		// negative is inside
		var distance float64
		if math.Abs(azimuth) <= circlePos {
			distance = math.Abs(elevation) - circleRadius
		} else {
			d0 := math.Acos(clamp(pos.Dot(circlePositions[0]), -1, 1))
			d1 := math.Acos(clamp(pos.Dot(circlePositions[1]), -1, 1))
			distance = math.Min(d0, d1) - circleRadius
		}

		return geom.Interp(distance, []float64{0, fadeRadians}, []float64{1, 0})
	}
}

// CalcPVSpread calculates the panning values for the position, width
// and height of a source. Sizes smaller than the fade width are blended
// with the point-source panning values.
func (p *PolarExtentPanner) CalcPVSpread(position geom.Vec3, width, height float64) []float64 {
	amountSpread := geom.Interp(math.Max(width, height), []float64{0, fadeWidth}, []float64{0, 1})
	amountPoint := 1 - amountSpread

	pv := make([]float64, p.psp.NumChannels())
	if amountPoint > 1e-10 {
		point := p.psp.Handle(position)
		for i, g := range point {
			pv[i] += amountPoint * g * g
		}
	}
	if amountSpread > 1e-10 {
		width = math.Max(width, fadeWidth/2)
		height = math.Max(height, fadeWidth/2)

		spread := p.spreading.panningValuesForWeight(p.weightFunc(position, width, height))
		for i, g := range spread {
			pv[i] += amountSpread * g * g
		}
	}

	for i := range pv {
		pv[i] = math.Sqrt(pv[i])
	}
	return pv
}

// extentMod modifies an extent parameter given a distance: a right
// triangle is formed with the adjacent edge being the distance and the
// opposite edge determined from the extent; the angle formed determines
// the new extent. At distance 0 the extent is always 360; at distance 1
// the original extent is used; beyond 1 the extent decreases.
func extentMod(extent, distance float64) float64 {
	const minSize = 0.2
	size := geom.Interp(extent, []float64{0, 360}, []float64{minSize, 1})
	extent1 := 4 * degreesC(math.Atan2(size, 1))
	return geom.Interp(4*degreesC(math.Atan2(size, distance)),
		[]float64{0, extent1, 360},
		[]float64{0, extent, 360})
}

// Handle calculates loudspeaker gains given the position and extent
// parameters of a source; depth is handled by spreading at two
// distances and power-averaging the results.
func (p *PolarExtentPanner) Handle(position geom.Vec3, width, height, depth float64) []float64 {
	distance := position.Norm()

	var distances []float64
	if depth != 0 {
		distances = []float64{
			math.Max(distance+depth/2, 0),
			math.Max(distance-depth/2, 0),
		}
	} else {
		distances = []float64{distance}
	}

	var pvs [][]float64
	for _, d := range distances {
		pvs = append(pvs, p.CalcPVSpread(position, extentMod(width, d), extentMod(height, d)))
	}

	if len(pvs) == 1 {
		return pvs[0]
	}

	out := make([]float64, len(pvs[0]))
	for i := range out {
		sum := 0.0
		for _, pv := range pvs {
			sum += pv[i] * pv[i]
		}
		out[i] = math.Sqrt(sum / float64(len(pvs)))
	}
	return out
}
