// SPDX-License-Identifier: EPL-2.0

package render

import (
	"math"
	"testing"

	"github.com/ebu/ebu-adm-renderer/adm"
)

// interleave builds an interleaved buffer from per-channel slices.
func interleave(channels ...[]float64) []float64 {
	frames := len(channels[0])
	out := make([]float64, frames*len(channels))
	for f := range frames {
		for c := range channels {
			out[f*len(channels)+c] = channels[c][f]
		}
	}
	return out
}

func TestTrackProcessor_Direct(t *testing.T) {
	t.Parallel()

	input := interleave([]float64{1, 2, 3}, []float64{4, 5, 6})

	p := NewTrackProcessor(DirectTrackSpec{TrackIndex: 1})
	got := p.Process(48000, input, 2, 3)

	want := []float64{4, 5, 6}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("got %v, want %v", got, want)
		}
	}
}

func TestTrackProcessor_Silent(t *testing.T) {
	t.Parallel()

	p := NewTrackProcessor(SilentTrackSpec{})
	got := p.Process(48000, interleave([]float64{1, 2}), 1, 2)

	for _, v := range got {
		if v != 0 {
			t.Fatalf("silent track produced %v", got)
		}
	}
}

func TestTrackProcessor_Mix(t *testing.T) {
	t.Parallel()

	input := interleave([]float64{1, 2}, []float64{10, 20})

	p := NewTrackProcessor(MixTrackSpec{Inputs: []TrackSpec{
		DirectTrackSpec{TrackIndex: 0},
		DirectTrackSpec{TrackIndex: 1},
		SilentTrackSpec{},
	}})
	got := p.Process(48000, input, 2, 2)

	want := []float64{11, 22}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("got %v, want %v", got, want)
		}
	}
}

func TestTrackProcessor_MixOfSilentIsSilent(t *testing.T) {
	t.Parallel()

	p := NewTrackProcessor(MixTrackSpec{Inputs: []TrackSpec{SilentTrackSpec{}, SilentTrackSpec{}}})
	if _, ok := p.(*silentProcessor); !ok {
		t.Fatalf("mix of silent tracks should simplify to a silent processor, got %T", p)
	}
}

func TestTrackProcessor_MatrixCoefficientGain(t *testing.T) {
	t.Parallel()

	gain := 0.5
	p := NewTrackProcessor(MatrixCoefficientTrackSpec{
		Input:       DirectTrackSpec{TrackIndex: 0},
		Coefficient: &adm.MatrixCoefficient{Gain: &gain},
	})

	got := p.Process(48000, interleave([]float64{1, 2, 4}), 1, 3)
	want := []float64{0.5, 1, 2}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("got %v, want %v", got, want)
		}
	}
}

func TestTrackProcessor_MatrixCoefficientDelay(t *testing.T) {
	t.Parallel()

	// 1ms at 1kHz is one sample of delay
	delay := 1.0
	p := NewTrackProcessor(MatrixCoefficientTrackSpec{
		Input:       DirectTrackSpec{TrackIndex: 0},
		Coefficient: &adm.MatrixCoefficient{Delay: &delay},
	})

	got := p.Process(1000, interleave([]float64{1, 2, 3}), 1, 3)
	want := []float64{0, 1, 2}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("got %v, want %v", got, want)
		}
	}
}

func TestTrackProcessor_MatrixOfSilent(t *testing.T) {
	t.Parallel()

	gain := 2.0
	p := NewTrackProcessor(MatrixCoefficientTrackSpec{
		Input:       SilentTrackSpec{},
		Coefficient: &adm.MatrixCoefficient{Gain: &gain},
	})
	if _, ok := p.(*silentProcessor); !ok {
		t.Fatalf("matrix of a silent track should simplify to a silent processor, got %T", p)
	}
}

func TestMultiTrackProcessor(t *testing.T) {
	t.Parallel()

	input := interleave([]float64{1, 2}, []float64{10, 20})

	m := NewMultiTrackProcessor([]TrackSpec{
		DirectTrackSpec{TrackIndex: 1},
		SilentTrackSpec{},
	})
	got := m.Process(48000, input, 2, 2)

	want := []float64{10, 0, 20, 0}
	for i := range want {
		if math.Abs(got[i]-want[i]) > 1e-12 {
			t.Fatalf("got %v, want %v", got, want)
		}
	}
}
