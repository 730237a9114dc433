// SPDX-License-Identifier: EPL-2.0

package panner

import (
	"math"
	"testing"

	"github.com/ebu/ebu-adm-renderer/geom"
	"github.com/ebu/ebu-adm-renderer/layout"
)

func mustLayout(t *testing.T, name string) *layout.Layout {
	t.Helper()
	l, err := layout.Get(name)
	if err != nil {
		t.Fatal(err)
	}
	return l
}

func mustConfigure(t *testing.T, name string) *PointSourcePanner {
	t.Helper()
	psp, err := Configure(mustLayout(t, name).WithoutLFE())
	if err != nil {
		t.Fatal(err)
	}
	return psp
}

func sphereGrid() []geom.Vec3 {
	var out []geom.Vec3
	for az := -180.0; az < 180; az += 15 {
		for el := -90.0; el <= 90; el += 15 {
			out = append(out, geom.Cart(az, el, 1))
		}
	}
	return out
}

func TestConfigure_AllLayouts(t *testing.T) {
	t.Parallel()

	for _, name := range layout.Names() {
		psp := mustConfigure(t, name)
		if psp.NumChannels() != len(mustLayout(t, name).WithoutLFE().Channels) {
			t.Errorf("%s: NumChannels = %d", name, psp.NumChannels())
		}
	}
}

func TestHandle_PowerPreservation(t *testing.T) {
	t.Parallel()

	for _, name := range []string{"0+2+0", "0+5+0", "4+5+0", "9+10+3"} {
		psp := mustConfigure(t, name)

		for _, pos := range sphereGrid() {
			pv := psp.Handle(pos)
			if pv == nil {
				t.Fatalf("%s: no region handles %v", name, pos)
			}

			power := 0.0
			for _, g := range pv {
				power += g * g
			}
			// 0+2+0 trades energy against front/back balance
			if name != "0+2+0" && math.Abs(power-1) > 1e-9 {
				t.Fatalf("%s: power %v at %v", name, power, pos)
			}
			if name == "0+2+0" && (power > 1+1e-9 || power < 0.5-1e-9) {
				t.Fatalf("%s: power %v at %v", name, power, pos)
			}
		}
	}
}

func TestHandle_Positivity(t *testing.T) {
	t.Parallel()

	psp := mustConfigure(t, "4+5+0")
	for _, pos := range sphereGrid() {
		for ch, g := range psp.Handle(pos) {
			if g < -1e-11 {
				t.Fatalf("negative gain %v on channel %d at %v", g, ch, pos)
			}
		}
	}
}

func TestHandle_SpeakerDirections(t *testing.T) {
	t.Parallel()

	l := mustLayout(t, "0+5+0").WithoutLFE()
	psp, err := Configure(l)
	if err != nil {
		t.Fatal(err)
	}

	for i := range l.Channels {
		pv := psp.Handle(l.Channels[i].NormPosition())
		for ch, g := range pv {
			want := 0.0
			if ch == i {
				want = 1
			}
			if math.Abs(g-want) > 1e-6 {
				t.Errorf("panning at %s: channel %d gain %v, want %v", l.Channels[i].Name, ch, g, want)
			}
		}
	}
}

func TestHandle_StereoCentre(t *testing.T) {
	t.Parallel()

	psp := mustConfigure(t, "0+2+0")

	pv := psp.Handle(geom.Cart(0, 0, 1))
	want := 1 / math.Sqrt2
	if math.Abs(pv[0]-want) > 1e-6 || math.Abs(pv[1]-want) > 1e-6 {
		t.Fatalf("centre pan on 0+2+0 = %v, want both %v", pv, want)
	}
}

func TestHandle_Continuity(t *testing.T) {
	t.Parallel()

	psp := mustConfigure(t, "4+5+0")

	prev := psp.Handle(geom.Cart(-40, 0, 1))
	for az := -39.5; az <= 40; az += 0.5 {
		cur := psp.Handle(geom.Cart(az, 0, 1))
		for ch := range cur {
			if math.Abs(cur[ch]-prev[ch]) > 0.05 {
				t.Fatalf("gain step at az=%v channel %d: %v -> %v", az, ch, prev[ch], cur[ch])
			}
		}
		prev = cur
	}
}

func TestConfigure_RejectsLFE(t *testing.T) {
	t.Parallel()

	if _, err := Configure(mustLayout(t, "0+5+0")); err == nil {
		t.Fatal("expected an error when configuring with LFE channels")
	}
}

func TestConfigure_ScreenSpeakerRange(t *testing.T) {
	t.Parallel()

	l := mustLayout(t, "4+9+0").WithoutLFE()
	for i := range l.Channels {
		if l.Channels[i].Name == "M+SC" {
			l.Channels[i].PolarPosition.Azimuth = 30
		}
	}
	if _, err := Configure(l); err == nil {
		t.Fatal("expected an error for an M+SC speaker at 30 degrees")
	}
}
