// SPDX-License-Identifier: EPL-2.0

package panner

import (
	"math"
	"testing"

	"github.com/ebu/ebu-adm-renderer/geom"
)

func TestPolarExtent_ZeroSizeIsPointSource(t *testing.T) {
	t.Parallel()

	psp := mustConfigure(t, "0+5+0")
	extent := NewPolarExtentPanner(psp)

	for _, pos := range []geom.Vec3{geom.Cart(0, 0, 1), geom.Cart(30, 0, 1), geom.Cart(-75, 10, 1)} {
		point := psp.Handle(pos)
		spread := extent.CalcPVSpread(pos, 0, 0)

		for ch := range point {
			if math.Abs(point[ch]-spread[ch]) > 1e-10 {
				t.Fatalf("zero spread differs from point source at %v: %v vs %v", pos, point, spread)
			}
		}
	}
}

func TestPolarExtent_PowerNormalised(t *testing.T) {
	t.Parallel()

	psp := mustConfigure(t, "4+5+0")
	extent := NewPolarExtentPanner(psp)

	for _, size := range []float64{0, 5, 30, 90, 180, 360} {
		pv := extent.Handle(geom.Cart(10, 5, 1), size, size/2, 0)

		power := 0.0
		for _, g := range pv {
			power += g * g
		}
		if math.Abs(power-1) > 1e-6 {
			t.Errorf("size %v: power %v", size, power)
		}
	}
}

func TestPolarExtent_WideSourceUsesMoreSpeakers(t *testing.T) {
	t.Parallel()

	psp := mustConfigure(t, "0+5+0")
	extent := NewPolarExtentPanner(psp)

	count := func(pv []float64) int {
		n := 0
		for _, g := range pv {
			if g > 0.01 {
				n++
			}
		}
		return n
	}

	narrow := count(extent.Handle(geom.Cart(0, 0, 1), 0, 0, 0))
	wide := count(extent.Handle(geom.Cart(0, 0, 1), 360, 360, 0))

	if wide <= narrow {
		t.Errorf("expected a wide source on more speakers: narrow %d, wide %d", narrow, wide)
	}
}

func TestPolarExtent_DepthSpreads(t *testing.T) {
	t.Parallel()

	psp := mustConfigure(t, "0+5+0")
	extent := NewPolarExtentPanner(psp)

	pv := extent.Handle(geom.Cart(0, 0, 1), 0, 0, 0.5)

	power := 0.0
	for _, g := range pv {
		power += g * g
	}
	if math.Abs(power-1) > 1e-6 {
		t.Errorf("depth source power %v", power)
	}
}

func TestExtentMod(t *testing.T) {
	t.Parallel()

	// at distance 1 the extent is unchanged
	for _, e := range []float64{0, 30, 180, 360} {
		if got := extentMod(e, 1); math.Abs(got-e) > 1e-9 {
			t.Errorf("extentMod(%v, 1) = %v", e, got)
		}
	}

	// at distance 0 the extent is always 360
	if got := extentMod(30, 0); math.Abs(got-360) > 1e-9 {
		t.Errorf("extentMod(30, 0) = %v", got)
	}

	// beyond distance 1 the extent decreases
	if got := extentMod(30, 2); got >= 30 {
		t.Errorf("extentMod(30, 2) = %v", got)
	}
}

func TestGeneratePanningPositionsEven(t *testing.T) {
	t.Parallel()

	positions := generatePanningPositionsEven(37)

	for _, p := range positions {
		if math.Abs(p.Norm()-1) > 1e-10 {
			t.Fatalf("position %v is not on the unit sphere", p)
		}
	}

	// poles are covered by single points
	if math.Abs(positions[0][2]+1) > 1e-10 {
		t.Errorf("first position = %v, want the south pole", positions[0])
	}
}
