// SPDX-License-Identifier: EPL-2.0

package panner

import (
	"math"
	"testing"

	"github.com/ebu/ebu-adm-renderer/geom"
)

func TestPointPolarToCart_Landmarks(t *testing.T) {
	t.Parallel()

	cases := []struct {
		az, el, d float64
		want      geom.Vec3
	}{
		{0, 0, 1, geom.Vec3{0, 1, 0}},
		{30, 0, 1, geom.Vec3{-1, 1, 0}},
		{-30, 0, 1, geom.Vec3{1, 1, 0}},
		{110, 0, 1, geom.Vec3{-1, -1, 0}},
		{-110, 0, 1, geom.Vec3{1, -1, 0}},
		{0, 90, 1, geom.Vec3{0, 0, 1}},
		{0, -90, 1, geom.Vec3{0, 0, -1}},
		{0, 30, 1, geom.Vec3{0, 1, 1}},
	}

	for _, c := range cases {
		got := PointPolarToCart(c.az, c.el, c.d)
		for i := range 3 {
			if math.Abs(got[i]-c.want[i]) > 1e-9 {
				t.Errorf("PointPolarToCart(%v, %v, %v) = %v, want %v", c.az, c.el, c.d, got, c.want)
				break
			}
		}
	}
}

func TestPointConversion_RoundTrip(t *testing.T) {
	t.Parallel()

	for az := -175.0; az <= 180; az += 10 {
		for el := -85.0; el <= 85; el += 10 {
			for _, d := range []float64{0.5, 1, 2} {
				pos := PointPolarToCart(az, el, d)
				gotAz, gotEl, gotD := PointCartToPolar(pos[0], pos[1], pos[2])

				azErr := math.Abs(gotAz - az)
				if azErr > 180 {
					azErr = math.Abs(azErr - 360)
				}
				if azErr > 1e-8 || math.Abs(gotEl-el) > 1e-8 || math.Abs(gotD-d) > 1e-8 {
					t.Fatalf("round trip (%v, %v, %v) -> %v -> (%v, %v, %v)",
						az, el, d, pos, gotAz, gotEl, gotD)
				}
			}
		}
	}
}

func TestPointCartToPolar_Origin(t *testing.T) {
	t.Parallel()

	az, el, d := PointCartToPolar(0, 0, 0)
	if az != 0 || el != 0 || d != 0 {
		t.Fatalf("origin = (%v, %v, %v)", az, el, d)
	}

	az, el, d = PointCartToPolar(0, 0, 0.5)
	if az != 0 || el != 90 || math.Abs(d-0.5) > 1e-12 {
		t.Fatalf("above origin = (%v, %v, %v)", az, el, d)
	}
}

func TestExtentConversion_ZeroSize(t *testing.T) {
	t.Parallel()

	pos, sx, sy, sz := ExtentPolarToCart(30, 0, 1, 0, 0, 0)
	if sx != 0 || sy != 0 || sz != 0 {
		t.Errorf("zero extent converted to (%v, %v, %v)", sx, sy, sz)
	}
	if math.Abs(pos[0]+1) > 1e-9 || math.Abs(pos[1]-1) > 1e-9 {
		t.Errorf("position = %v", pos)
	}

	az, el, dist, width, height, depth := ExtentCartToPolar(pos[0], pos[1], pos[2], 0, 0, 0)
	if math.Abs(az-30) > 1e-8 || math.Abs(el) > 1e-8 || math.Abs(dist-1) > 1e-8 {
		t.Errorf("position round trip = (%v, %v, %v)", az, el, dist)
	}
	if width != 0 || height != 0 || depth != 0 {
		t.Errorf("extent round trip = (%v, %v, %v)", width, height, depth)
	}
}

func TestExtentConversion_WidthMapsToX(t *testing.T) {
	t.Parallel()

	// a 90 degree wide front source has an x size of sin(45)
	_, sx, _, sz := ExtentPolarToCart(0, 0, 1, 90, 0, 0)
	if math.Abs(sx-math.Sin(45*math.Pi/180)) > 1e-9 {
		t.Errorf("sx = %v", sx)
	}
	if sz != 0 {
		t.Errorf("sz = %v, want 0", sz)
	}
}
