// SPDX-License-Identifier: EPL-2.0

package hoa

import "math"

// Near-field compensation filters. The analog NFC filter for order n is
// a ratio of reverse Bessel polynomials evaluated at s r/c, one at the
// reference distance and one at the reproduction distance; each root
// pair becomes a digital biquad section via the bilinear transform.

const speedOfSound = 340.0

// besselRoots holds the roots of the reverse Bessel polynomials;
// complex roots are stored as (re, im) with im > 0, each standing for a
// conjugate pair. Orders above 4 are not used by the supported
// formats.
var besselRoots = [][][2]float64{
	1: {{-1, 0}},
	2: {{-1.5, 0.8660254037844386}},
	3: {{-2.3221853546260855, 0}, {-1.8389073227055572, 1.7543809598288487}},
	4: {{-2.8962106028558400, 0.8672341289345038}, {-2.1037893971441600, 2.6574180418567526}},
}

// biquad is one direct-form-II-transposed second-order section.
type biquad struct {
	b0, b1, b2 float64
	a1, a2     float64
	z1, z2     float64
}

func (f *biquad) process(x float64) float64 {
	y := f.b0*x + f.z1
	f.z1 = f.b1*x - f.a1*y + f.z2
	f.z2 = f.b2*x - f.a2*y
	return y
}

// bilinearSection converts the analog section
// (s - z)(s - conj z) / (s - p)(s - conj p) (or the first-order
// equivalent when the imaginary parts are zero) into a digital biquad.
func bilinearSection(zRe, zIm, pRe, pIm, fs float64) biquad {
	k := 2 * fs

	if zIm == 0 && pIm == 0 {
		// first order: (s - z)/(s - p)
		b0 := k - zRe
		b1 := -k - zRe
		a0 := k - pRe
		a1 := -k - pRe
		return biquad{b0: b0 / a0, b1: b1 / a0, a1: a1 / a0}
	}

	// second order: s^2 - 2 Re s + |root|^2 for each conjugate pair
	zB := -2 * zRe
	zC := zRe*zRe + zIm*zIm
	pB := -2 * pRe
	pC := pRe*pRe + pIm*pIm

	b0 := k*k + zB*k + zC
	b1 := 2*zC - 2*k*k
	b2 := k*k - zB*k + zC
	a0 := k*k + pB*k + pC
	a1 := 2*pC - 2*k*k
	a2 := k*k - pB*k + pC

	return biquad{b0: b0 / a0, b1: b1 / a0, b2: b2 / a0, a1: a1 / a0, a2: a2 / a0}
}

// NFCFilter compensates one HOA channel of a given order for a
// reference distance refDist, reproduced at distance repDist. Order 0
// is a pass-through.
type NFCFilter struct {
	sections []biquad
	gain     float64
}

// NewNFCFilter designs the filter for one channel.
func NewNFCFilter(order int, refDist, repDist float64, sampleRate int) *NFCFilter {
	f := &NFCFilter{gain: 1}
	if order <= 0 || order >= len(besselRoots) || refDist <= 0 || repDist <= 0 {
		return f
	}

	fs := float64(sampleRate)
	wRef := speedOfSound / refDist
	wRep := speedOfSound / repDist

	for _, root := range besselRoots[order] {
		section := bilinearSection(
			root[0]*wRef, root[1]*wRef,
			root[0]*wRep, root[1]*wRep,
			fs)
		f.sections = append(f.sections, section)
	}

	// normalise to unit gain at DC, keeping the phase behaviour which
	// carries the compensation
	dc := 1.0
	for _, s := range f.sections {
		dc *= (s.b0 + s.b1 + s.b2) / (1 + s.a1 + s.a2)
	}
	if dc != 0 && !math.IsNaN(dc) && !math.IsInf(dc, 0) {
		f.gain = 1 / dc
	}

	return f
}

// Process filters samples in place.
func (f *NFCFilter) Process(samples []float64) {
	if len(f.sections) == 0 {
		return
	}
	for i, x := range samples {
		for s := range f.sections {
			x = f.sections[s].process(x)
		}
		samples[i] = x * f.gain
	}
}
