// SPDX-License-Identifier: EPL-2.0

package hoa

import (
	"math"
	"testing"

	"github.com/ebu/ebu-adm-renderer/geom"
)

func TestACN_RoundTrip(t *testing.T) {
	t.Parallel()

	for acn := range 25 {
		n, m := FromACN(acn)
		if m < -n || m > n {
			t.Fatalf("FromACN(%d) = (%d, %d): degree out of range", acn, n, m)
		}
		if got := ToACN(n, m); got != acn {
			t.Fatalf("ToACN(FromACN(%d)) = %d", acn, got)
		}
	}
}

func TestSphHarm_Order0(t *testing.T) {
	t.Parallel()

	// Y_0^0 is constant: 1 in SN3D, 1 in N3D, 1/sqrt(2) in FuMa
	for _, azEl := range [][2]float64{{0, 0}, {1, 0.5}, {-2, -1}} {
		if got := SphHarm(0, 0, azEl[0], azEl[1], NormSN3D); math.Abs(got-1) > 1e-12 {
			t.Errorf("SN3D Y_0^0 = %v", got)
		}
		if got := SphHarm(0, 0, azEl[0], azEl[1], NormFuMa); math.Abs(got-1/math.Sqrt2) > 1e-12 {
			t.Errorf("FuMa Y_0^0 = %v", got)
		}
	}
}

func TestSphHarm_Order1(t *testing.T) {
	t.Parallel()

	// the SN3D first-order harmonics are the direction cosines:
	// Y_1^-1 = sin(az)cos(el), Y_1^0 = sin(el), Y_1^1 = cos(az)cos(el)
	for _, c := range [][2]float64{{0, 0}, {0.3, 0.2}, {-1.2, 0.7}, {2.5, -0.6}} {
		az, el := c[0], c[1]

		if got := SphHarm(1, -1, az, el, NormSN3D); math.Abs(got-math.Sin(az)*math.Cos(el)) > 1e-12 {
			t.Errorf("Y_1^-1(%v, %v) = %v", az, el, got)
		}
		if got := SphHarm(1, 0, az, el, NormSN3D); math.Abs(got-math.Sin(el)) > 1e-12 {
			t.Errorf("Y_1^0(%v, %v) = %v", az, el, got)
		}
		if got := SphHarm(1, 1, az, el, NormSN3D); math.Abs(got-math.Cos(az)*math.Cos(el)) > 1e-12 {
			t.Errorf("Y_1^1(%v, %v) = %v", az, el, got)
		}
	}
}

func TestNorms(t *testing.T) {
	t.Parallel()

	// N3D = sqrt(2n+1) * SN3D
	for n := range 4 {
		for m := 0; m <= n; m++ {
			want := math.Sqrt(float64(2*n+1)) * NormSN3D(n, m)
			if got := NormN3D(n, m); math.Abs(got-want) > 1e-12 {
				t.Errorf("NormN3D(%d, %d) = %v, want %v", n, m, got, want)
			}
		}
	}
}

func TestNormFunc(t *testing.T) {
	t.Parallel()

	for _, name := range []string{"SN3D", "N3D", "FuMa"} {
		if _, err := NormFunc(name); err != nil {
			t.Errorf("NormFunc(%q) error: %v", name, err)
		}
	}
	if _, err := NormFunc("MaxN"); err == nil {
		t.Error("expected an error for an unknown normalization")
	}
}

func TestPoints(t *testing.T) {
	t.Parallel()

	points := Points()
	if len(points) < 4000 {
		t.Fatalf("expected a dense sampling grid, got %d points", len(points))
	}

	for _, p := range points {
		if math.Abs(p.Norm()-1) > 1e-10 {
			t.Fatalf("point %v is not on the unit sphere", p)
		}
	}

	// generation must be deterministic
	again := Points()
	for i := range points {
		if points[i] != again[i] {
			t.Fatal("point generation is not deterministic")
		}
	}
}

// uniformPanner pans every direction equally to four speakers; with it,
// the decoder reduces to a projection that is easy to check.
func uniformPanner(geomPos geom.Vec3) []float64 {
	g := 1.0 / 2
	return []float64{g, g, g, g}
}

func TestAllRADDesign_Order0(t *testing.T) {
	t.Parallel()

	points := Points()
	decoder := AllRADDesign(points, uniformPanner, []int{0}, []int{0}, NormSN3D, nil)

	if len(decoder) != 4 || len(decoder[0]) != 1 {
		t.Fatalf("decoder shape %dx%d", len(decoder), len(decoder[0]))
	}

	// all rows should be equal by symmetry
	for s := 1; s < 4; s++ {
		if math.Abs(decoder[s][0]-decoder[0][0]) > 1e-9 {
			t.Fatalf("asymmetric decoder: %v", decoder)
		}
	}

	// the compensation step scales the decoded energy so that decoding
	// the sampled directions preserves power
	h := SphHarm(0, 0, 0, 0, NormN3D)
	sumSq := 0.0
	for range points {
		for s := range 4 {
			v := decoder[s][0] * h
			sumSq += v * v
		}
	}
	if math.Abs(sumSq-float64(len(points))) > 1e-6*float64(len(points)) {
		t.Errorf("decoded energy %v for %d points", sumSq, len(points))
	}
}

func TestNFCFilter_Order0PassThrough(t *testing.T) {
	t.Parallel()

	f := NewNFCFilter(0, 2, 1, 48000)
	samples := []float64{1, 0.5, -0.25, 0}
	want := append([]float64{}, samples...)
	f.Process(samples)
	for i := range samples {
		if samples[i] != want[i] {
			t.Fatalf("order 0 filter modified samples: %v", samples)
		}
	}
}

func TestNFCFilter_UnityDCGain(t *testing.T) {
	t.Parallel()

	for order := 1; order <= 3; order++ {
		f := NewNFCFilter(order, 2, 1, 48000)

		// drive with DC and check convergence to 1
		out := 0.0
		for range 48000 {
			samples := []float64{1}
			f.Process(samples)
			out = samples[0]
		}
		if math.Abs(out-1) > 1e-3 {
			t.Errorf("order %d: DC response %v", order, out)
		}
	}
}
