// SPDX-License-Identifier: EPL-2.0

package panner

import (
	"math"
	"testing"

	"github.com/ebu/ebu-adm-renderer/geom"
)

func TestPositionsForLayout(t *testing.T) {
	t.Parallel()

	l := mustLayout(t, "0+5+0")
	positions, err := PositionsForLayout(l)
	if err != nil {
		t.Fatal(err)
	}

	if len(positions) != len(l.Channels) {
		t.Fatalf("got %d positions for %d channels", len(positions), len(l.Channels))
	}

	byName := map[string]geom.Vec3{}
	for i := range l.Channels {
		byName[l.Channels[i].Name] = positions[i]
	}

	if byName["M+000"] != (geom.Vec3{0, 1, 0}) {
		t.Errorf("M+000 at %v", byName["M+000"])
	}
	if byName["M+030"] != (geom.Vec3{-1, 1, 0}) {
		t.Errorf("M+030 at %v", byName["M+030"])
	}
	if byName["M-110"] != (geom.Vec3{1, -1, 0}) {
		t.Errorf("M-110 at %v", byName["M-110"])
	}
}

func TestAllocentricPanner_SpeakerPositions(t *testing.T) {
	t.Parallel()

	l := mustLayout(t, "4+5+0").WithoutLFE()
	positions, err := PositionsForLayout(l)
	if err != nil {
		t.Fatal(err)
	}
	panner := NewAllocentricPanner(positions)

	for i, pos := range positions {
		gains := panner.Handle(pos)
		for ch, g := range gains {
			want := 0.0
			if ch == i {
				want = 1
			}
			if math.Abs(g-want) > 1e-9 {
				t.Fatalf("panning at %s: channel %d gain %v, want %v", l.Channels[i].Name, ch, g, want)
			}
		}
	}
}

func TestAllocentricPanner_PowerPreservation(t *testing.T) {
	t.Parallel()

	l := mustLayout(t, "4+5+0").WithoutLFE()
	positions, err := PositionsForLayout(l)
	if err != nil {
		t.Fatal(err)
	}
	panner := NewAllocentricPanner(positions)

	for x := -1.0; x <= 1; x += 0.25 {
		for y := -1.0; y <= 1; y += 0.25 {
			for z := 0.0; z <= 1; z += 0.5 {
				gains := panner.Handle(geom.Vec3{x, y, z})
				power := 0.0
				for _, g := range gains {
					power += g * g
				}
				if math.Abs(power-1) > 1e-9 {
					t.Fatalf("power %v at (%v, %v, %v)", power, x, y, z)
				}
			}
		}
	}
}

func TestGetExcluded(t *testing.T) {
	t.Parallel()

	l := mustLayout(t, "0+5+0").WithoutLFE()
	positions, err := PositionsForLayout(l)
	if err != nil {
		t.Fatal(err)
	}

	// excluding everything drops the exclusion entirely
	all := make([]bool, len(positions))
	for i := range all {
		all[i] = true
	}
	got := GetExcluded(positions, all)
	for i, e := range got {
		if e {
			t.Fatalf("channel %d still excluded", i)
		}
	}

	// excluding nothing stays that way
	got = GetExcluded(positions, make([]bool, len(positions)))
	for i, e := range got {
		if e {
			t.Fatalf("channel %d spuriously excluded", i)
		}
	}
}

func TestAlloExtentGains_Normalised(t *testing.T) {
	t.Parallel()

	l := mustLayout(t, "4+5+0").WithoutLFE()
	positions, err := PositionsForLayout(l)
	if err != nil {
		t.Fatal(err)
	}

	for _, size := range []float64{0.1, 0.5, 1} {
		gains := AlloExtentGains(positions, geom.Vec3{0, 0.5, 0}, size, size, size)

		power := 0.0
		for _, g := range gains {
			power += g * g
		}
		if math.Abs(power-1) > 1e-6 {
			t.Errorf("size %v: power %v", size, power)
		}
	}
}

func TestAllocentricExtentPan_ZeroSize(t *testing.T) {
	t.Parallel()

	l := mustLayout(t, "0+5+0").WithoutLFE()
	positions, err := PositionsForLayout(l)
	if err != nil {
		t.Fatal(err)
	}

	point := NewAllocentricPanner(positions).Handle(geom.Vec3{0, 1, 0})
	spread := AllocentricExtentPan(positions, geom.Vec3{0, 1, 0}, 0, 0, 0)

	for ch := range point {
		if math.Abs(point[ch]-spread[ch]) > 1e-12 {
			t.Fatalf("zero size differs from point panner: %v vs %v", point, spread)
		}
	}
}
