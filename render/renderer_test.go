// SPDX-License-Identifier: EPL-2.0

package render_test

import (
	"math"
	"testing"

	"github.com/ebu/ebu-adm-renderer/adm"
	"github.com/ebu/ebu-adm-renderer/internal/renderertest"
	"github.com/ebu/ebu-adm-renderer/layout"
	"github.com/ebu/ebu-adm-renderer/render"
)

func mustRenderer(t *testing.T, name string) (*render.Renderer, *layout.Layout) {
	t.Helper()

	l, err := layout.Get(name)
	if err != nil {
		t.Fatal(err)
	}
	r, err := render.NewRenderer(l, nil)
	if err != nil {
		t.Fatal(err)
	}
	return r, l
}

// renderAll renders the input in two chunks to exercise the chunk
// boundary handling.
func renderAll(t *testing.T, r *render.Renderer, input []float64, channels, frames, rate int) []float64 {
	t.Helper()

	var out []float64
	half := frames / 2

	for _, chunk := range [][2]int{{0, half}, {half, frames}} {
		n := chunk[1] - chunk[0]
		if n == 0 {
			continue
		}
		rendered, err := r.Render(rate, input[chunk[0]*channels:chunk[1]*channels], channels, n)
		if err != nil {
			t.Fatal(err)
		}
		out = append(out, rendered...)
	}
	return out
}

func TestRenderer_DirectSpeakersPassThrough(t *testing.T) {
	t.Parallel()

	r, l := mustRenderer(t, "0+5+0")

	item := renderertest.DirectSpeakersItem(render.DirectTrackSpec{TrackIndex: 0},
		&adm.BlockDirectSpeakers{
			SpeakerLabels: []string{"M+030"},
			Position: adm.DSPolarPosition{
				BoundedAzimuth:  adm.Bound{Value: 30},
				BoundedDistance: adm.Bound{Value: 1},
			},
		})
	r.SetRenderingItems([]render.RenderingItem{item})

	const frames = 64
	input := renderertest.SineFrames(48000, 1, frames, 997)
	out := renderAll(t, r, input, 1, frames, 48000)

	nch := len(l.Channels)
	if len(out) != frames*nch {
		t.Fatalf("got %d samples", len(out))
	}

	target := l.ChannelIndex("M+030")
	for f := range frames {
		for ch := range nch {
			want := 0.0
			if ch == target {
				want = input[f]
			}
			if math.Abs(out[f*nch+ch]-want) > 1e-12 {
				t.Fatalf("frame %d channel %d: %v, want %v", f, ch, out[f*nch+ch], want)
			}
		}
	}
}

func TestRenderer_ObjectsGainRamp(t *testing.T) {
	t.Parallel()

	r, l := mustRenderer(t, "0+5+0")

	// position moves from M+030 to M-030 over 100 samples at 1kHz
	blockA := &adm.BlockObjects{
		BlockCommon: adm.BlockCommon{ID: "a", Rtime: renderertest.Time(0, 1), Duration: renderertest.Time(1, 20)},
		Position:    adm.PolarObjectPosition{Azimuth: 30, Distance: 1},
	}
	blockB := &adm.BlockObjects{
		BlockCommon: adm.BlockCommon{ID: "b", Rtime: renderertest.Time(1, 20), Duration: renderertest.Time(1, 20)},
		Position:    adm.PolarObjectPosition{Azimuth: -30, Distance: 1},
	}

	r.SetRenderingItems([]render.RenderingItem{renderertest.ObjectsItem(render.DirectTrackSpec{TrackIndex: 0}, blockA, blockB)})

	const (
		rate   = 1000
		frames = 100
	)
	input := renderertest.ConstantFrames(1, frames, 1)
	out := renderAll(t, r, input, 1, frames, rate)

	nch := len(l.Channels)
	left := l.ChannelIndex("M+030")
	right := l.ChannelIndex("M-030")

	// during the first block the source sits on M+030
	if math.Abs(out[10*nch+left]-1) > 1e-9 || math.Abs(out[10*nch+right]) > 1e-9 {
		t.Fatalf("frame 10: left %v right %v", out[10*nch+left], out[10*nch+right])
	}

	// the second block ramps: left falls monotonically, right rises
	for f := 51; f < 100; f++ {
		if out[f*nch+left] > out[(f-1)*nch+left]+1e-9 {
			t.Fatalf("left gain rose during the ramp at frame %d", f)
		}
		if out[f*nch+right] < out[(f-1)*nch+right]-1e-9 {
			t.Fatalf("right gain fell during the ramp at frame %d", f)
		}
	}

	// and lands on M-030; the last ramp sample sits one step before
	// the target gain
	if out[99*nch+right] < 0.8 || out[99*nch+left] > 0.2 {
		t.Fatalf("ramp did not approach M-030: left %v right %v",
			out[99*nch+left], out[99*nch+right])
	}
}

func TestRenderer_SilentTrack(t *testing.T) {
	t.Parallel()

	r, _ := mustRenderer(t, "0+5+0")

	item := renderertest.ObjectsItem(render.SilentTrackSpec{}, &adm.BlockObjects{
		Position: adm.PolarObjectPosition{Azimuth: 0, Distance: 1},
	})
	r.SetRenderingItems([]render.RenderingItem{item})

	const frames = 32
	input := renderertest.ConstantFrames(1, frames, 1)
	out := renderAll(t, r, input, 1, frames, 48000)

	for i, s := range out {
		if s != 0 {
			t.Fatalf("sample %d: %v, want silence", i, s)
		}
	}
}

func TestHOARenderer_Order1(t *testing.T) {
	t.Parallel()

	r, l := mustRenderer(t, "0+5+0")

	meta := &render.HOATypeMetadata{
		Orders:        []int{0, 1, 1, 1},
		Degrees:       []int{0, -1, 0, 1},
		Normalization: "SN3D",
	}
	item := &render.HOARenderingItem{
		TrackSpecs: []render.TrackSpec{
			render.DirectTrackSpec{TrackIndex: 0},
			render.DirectTrackSpec{TrackIndex: 1},
			render.DirectTrackSpec{TrackIndex: 2},
			render.DirectTrackSpec{TrackIndex: 3},
		},
		MetadataSource: render.NewMetadataSourceIter([]render.TypeMetadata{meta}),
	}
	r.SetRenderingItems([]render.RenderingItem{item})

	// a W-only (omnidirectional) signal decodes with equal front
	// left/right gains and silent LFE
	const frames = 16
	input := make([]float64, frames*4)
	for f := range frames {
		input[f*4] = 1 // W
	}

	out := renderAll(t, r, input, 4, frames, 48000)

	nch := len(l.Channels)
	lfe := l.ChannelIndex("LFE1")
	left := l.ChannelIndex("M+030")
	right := l.ChannelIndex("M-030")

	frame := out[8*nch : 9*nch]
	if frame[lfe] != 0 {
		t.Fatalf("LFE not silent: %v", frame[lfe])
	}
	if math.Abs(frame[left]-frame[right]) > 1e-9 {
		t.Fatalf("asymmetric decode: %v vs %v", frame[left], frame[right])
	}
	if frame[left] == 0 {
		t.Fatal("zero decode")
	}
}

func TestRenderer_OutputIndependentOfChunking(t *testing.T) {
	t.Parallel()

	build := func() *render.Renderer {
		r, _ := mustRenderer(t, "0+5+0")
		blockA := &adm.BlockObjects{
			BlockCommon: adm.BlockCommon{ID: "a", Rtime: renderertest.Time(0, 1), Duration: renderertest.Time(1, 20)},
			Position:    adm.PolarObjectPosition{Azimuth: 30, Distance: 1},
		}
		blockB := &adm.BlockObjects{
			BlockCommon: adm.BlockCommon{ID: "b", Rtime: renderertest.Time(1, 20), Duration: renderertest.Time(1, 20)},
			Position:    adm.PolarObjectPosition{Azimuth: -30, Distance: 1},
		}
		r.SetRenderingItems([]render.RenderingItem{renderertest.ObjectsItem(render.DirectTrackSpec{TrackIndex: 0}, blockA, blockB)})
		return r
	}

	const (
		rate   = 1000
		frames = 100
	)
	input := renderertest.SineFrames(rate, 1, frames, 40)

	// render in one chunk
	r1 := build()
	whole, err := r1.Render(rate, input, 1, frames)
	if err != nil {
		t.Fatal(err)
	}

	// render in uneven chunks
	r2 := build()
	var chunked []float64
	for _, bounds := range [][2]int{{0, 7}, {7, 64}, {64, 100}} {
		part, err := r2.Render(rate, input[bounds[0]:bounds[1]], 1, bounds[1]-bounds[0])
		if err != nil {
			t.Fatal(err)
		}
		chunked = append(chunked, part...)
	}

	if len(whole) != len(chunked) {
		t.Fatalf("length mismatch: %d vs %d", len(whole), len(chunked))
	}
	for i := range whole {
		if math.Abs(whole[i]-chunked[i]) > 1e-12 {
			t.Fatalf("sample %d differs: %v vs %v", i, whole[i], chunked[i])
		}
	}
}
