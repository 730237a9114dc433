// SPDX-License-Identifier: EPL-2.0

package geom

import (
	"math"
	"testing"
)

func almostEqual(a, b, tol float64) bool {
	return math.Abs(a-b) <= tol
}

func TestCart_KnownDirections(t *testing.T) {
	t.Parallel()

	cases := []struct {
		az, el float64
		want   Vec3
	}{
		{0, 0, Vec3{0, 1, 0}},
		{90, 0, Vec3{-1, 0, 0}},
		{-90, 0, Vec3{1, 0, 0}},
		{0, 90, Vec3{0, 0, 1}},
		{180, 0, Vec3{0, -1, 0}},
	}

	for _, c := range cases {
		got := Cart(c.az, c.el, 1)
		for i := range 3 {
			if !almostEqual(got[i], c.want[i], 1e-10) {
				t.Errorf("Cart(%v, %v, 1) = %v, want %v", c.az, c.el, got, c.want)
				break
			}
		}
	}
}

func TestCart_RoundTrip(t *testing.T) {
	t.Parallel()

	for az := -180.0; az < 180; az += 13 {
		for el := -85.0; el <= 85; el += 17 {
			p := Cart(az, el, 1)
			if !almostEqual(Azimuth(p), az, 1e-10) && !almostEqual(Azimuth(p), az-360, 1e-10) &&
				!almostEqual(Azimuth(p), az+360, 1e-10) {
				t.Errorf("Azimuth(Cart(%v, %v)) = %v", az, el, Azimuth(p))
			}
			if !almostEqual(Elevation(p), el, 1e-10) {
				t.Errorf("Elevation(Cart(%v, %v)) = %v", az, el, Elevation(p))
			}
			if !almostEqual(Distance(p), 1, 1e-10) {
				t.Errorf("Distance(Cart(%v, %v)) = %v", az, el, Distance(p))
			}
		}
	}
}

func TestInsideAngleRange(t *testing.T) {
	t.Parallel()

	cases := []struct {
		x, start, end, tol float64
		want               bool
	}{
		{0, -30, 30, 0, true},
		{31, -30, 30, 0, false},
		{31, -30, 30, 2, true},
		{180, 0, 360, 0, true},
		{-180, -180, 180, 0, true},
		{10, 0, 0, 0, false},
		{0, 0, 0, 0, true},
		{-175, 170, -170, 0, true},
		{175, 170, -170, 0, true},
		{0, 170, -170, 0, false},
	}

	for _, c := range cases {
		if got := InsideAngleRange(c.x, c.start, c.end, c.tol); got != c.want {
			t.Errorf("InsideAngleRange(%v, %v, %v, %v) = %v, want %v",
				c.x, c.start, c.end, c.tol, got, c.want)
		}
	}
}

func TestRelativeAngle(t *testing.T) {
	t.Parallel()

	if got := RelativeAngle(0, -30); got != 330 {
		t.Errorf("RelativeAngle(0, -30) = %v, want 330", got)
	}
	if got := RelativeAngle(10, 20); got != 20 {
		t.Errorf("RelativeAngle(10, 20) = %v, want 20", got)
	}
}

func TestNgonVertexOrder(t *testing.T) {
	t.Parallel()

	vertices := []Vec3{
		{-1, 1, 0}, {1.1, 1, 0},
		{-1, 1, 1}, {1, 1, 1},
	}
	order := NgonVertexOrder(vertices)

	// adjacent entries in the order must be adjacent corners of the
	// quad: they must not be the two diagonals (0, 3) and (1, 2)
	diagonal := func(a, b int) bool {
		return (a == 0 && b == 3) || (a == 3 && b == 0) || (a == 1 && b == 2) || (a == 2 && b == 1)
	}
	for i := range order {
		j := (i + 1) % len(order)
		if diagonal(order[i], order[j]) {
			t.Fatalf("NgonVertexOrder produced a diagonal step: %v", order)
		}
	}
}

func TestLocalCoordinateSystem(t *testing.T) {
	t.Parallel()

	m := LocalCoordinateSystem(0, 0)
	want := [3]Vec3{{1, 0, 0}, {0, 1, 0}, {0, 0, 1}}
	for i := range 3 {
		for j := range 3 {
			if !almostEqual(m[i][j], want[i][j], 1e-10) {
				t.Fatalf("LocalCoordinateSystem(0, 0) = %v", m)
			}
		}
	}
}

func TestInterp(t *testing.T) {
	t.Parallel()

	xp := []float64{0, 1, 2}
	fp := []float64{0, 10, 0}

	cases := []struct{ x, want float64 }{
		{-1, 0}, {0, 0}, {0.5, 5}, {1, 10}, {1.5, 5}, {2, 0}, {3, 0},
	}
	for _, c := range cases {
		if got := Interp(c.x, xp, fp); !almostEqual(got, c.want, 1e-12) {
			t.Errorf("Interp(%v) = %v, want %v", c.x, got, c.want)
		}
	}
}
