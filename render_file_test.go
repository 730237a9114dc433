// SPDX-License-Identifier: EPL-2.0

package ear

import (
	"bytes"
	"errors"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/ebu/ebu-adm-renderer/adm"
	"github.com/ebu/ebu-adm-renderer/bw64"
	"github.com/ebu/ebu-adm-renderer/input"
	"github.com/ebu/ebu-adm-renderer/layout"
)

// writeInputBWF builds a BW64 file with the given document and
// interleaved samples.
func writeInputBWF(t *testing.T, doc *adm.Document, rate, channels int, samples []float64) string {
	t.Helper()

	var axml bytes.Buffer
	if err := adm.Write(doc, &axml); err != nil {
		t.Fatal(err)
	}

	var chna []bw64.ChnaEntry
	for _, e := range adm.CHNAEntries(doc) {
		chna = append(chna, bw64.ChnaEntry{
			TrackIndex:        e.TrackIndex,
			UID:               e.UID,
			TrackOrChannelRef: e.TrackOrChannelRef,
			PackRef:           e.PackRef,
		})
	}

	path := filepath.Join(t.TempDir(), "input.wav")
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	w, err := bw64.NewWriter(f, bw64.WriterOptions{
		SampleRate: rate,
		Channels:   channels,
		BitDepth:   24,
		Chna:       chna,
		AXML:       axml.Bytes(),
	})
	if err != nil {
		t.Fatal(err)
	}
	if err := w.WriteFrames(samples); err != nil {
		t.Fatal(err)
	}
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}
	return path
}

func readAllFrames(t *testing.T, path string) (*bw64.Reader, []float64) {
	t.Helper()

	f, err := os.Open(path)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { f.Close() })

	r, err := bw64.NewReader(f)
	if err != nil {
		t.Fatal(err)
	}

	out := make([]float64, r.NumFrames()*int64(r.Channels))
	buf := make([]float64, 1024*r.Channels)
	pos := 0
	for {
		n, err := r.ReadFrames(buf)
		if n == 0 {
			break
		}
		copy(out[pos:], buf[:n*r.Channels])
		pos += n * r.Channels
		if err != nil {
			break
		}
	}
	return r, out
}

// directSpeakersDoc wraps one track in a DirectSpeakers channel
// labelled with the given speaker.
func directSpeakersDoc(label string) *adm.Document {
	b := adm.NewBuilder()
	b.AddProgramme("Main")
	b.AddContent("Main")
	b.AddObject("Bed")
	pack := b.AddPackFormat("Bed", adm.TypeDirectSpeakers)
	channel := b.AddChannelFormat(pack, label, &adm.BlockDirectSpeakers{
		SpeakerLabels: []string{label},
		Position: adm.DSPolarPosition{
			BoundedAzimuth:  adm.Bound{Value: 30},
			BoundedDistance: adm.Bound{Value: 1},
		},
	})
	b.AddTrackUID(pack, channel, 1)
	return b.Document()
}

func TestRenderFile_DirectSpeakersPassThrough(t *testing.T) {
	t.Parallel()

	const (
		rate   = 48000
		frames = 4800
	)

	samples := make([]float64, frames)
	for f := range frames {
		samples[f] = 0.9 * math.Sin(2*math.Pi*1000*float64(f)/rate)
	}

	inPath := writeInputBWF(t, directSpeakersDoc("M+030"), rate, 1, samples)
	outPath := filepath.Join(t.TempDir(), "out.wav")

	if err := RenderFile(inPath, outPath, RenderOptions{TargetLayout: "0+5+0"}); err != nil {
		t.Fatal(err)
	}

	reader, out := readAllFrames(t, outPath)

	l, err := layout.Get("0+5+0")
	if err != nil {
		t.Fatal(err)
	}
	if reader.Channels != len(l.Channels) {
		t.Fatalf("output has %d channels", reader.Channels)
	}

	target := l.ChannelIndex("M+030")
	nch := reader.Channels

	const tol = 1.0 / 1000000 // 24-bit quantisation, twice
	for f := range frames {
		for ch := range nch {
			want := 0.0
			if ch == target {
				want = samples[f]
			}
			if math.Abs(out[f*nch+ch]-want) > tol {
				t.Fatalf("frame %d channel %d: %v, want %v", f, ch, out[f*nch+ch], want)
			}
		}
	}
}

func TestRenderFile_OutputGain(t *testing.T) {
	t.Parallel()

	samples := make([]float64, 128)
	for i := range samples {
		samples[i] = 0.5
	}

	inPath := writeInputBWF(t, directSpeakersDoc("M+000"), 48000, 1, samples)
	outPath := filepath.Join(t.TempDir(), "out.wav")

	err := RenderFile(inPath, outPath, RenderOptions{
		TargetLayout: "0+5+0",
		OutputGainDB: -20,
	})
	if err != nil {
		t.Fatal(err)
	}

	reader, out := readAllFrames(t, outPath)
	l, _ := layout.Get("0+5+0")
	centre := l.ChannelIndex("M+000")

	want := 0.5 * math.Pow(10, -1)
	got := out[64*reader.Channels+centre]
	if math.Abs(got-want) > 1e-4 {
		t.Fatalf("gained sample %v, want %v", got, want)
	}
}

func TestRenderFile_FailOnOverload(t *testing.T) {
	t.Parallel()

	// a gained full-scale signal overloads the output
	samples := make([]float64, 256)
	for i := range samples {
		samples[i] = 0.99
	}

	inPath := writeInputBWF(t, directSpeakersDoc("M+000"), 48000, 1, samples)
	outPath := filepath.Join(t.TempDir(), "out.wav")

	err := RenderFile(inPath, outPath, RenderOptions{
		TargetLayout:   "0+5+0",
		OutputGainDB:   6,
		FailOnOverload: true,
	})
	if !errors.Is(err, ErrOverload) {
		t.Fatalf("expected ErrOverload, got %v", err)
	}
}

func TestRenderFile_TimingGap(t *testing.T) {
	t.Parallel()

	buildDoc := func() *adm.Document {
		b := adm.NewBuilder()
		b.AddProgramme("Main")
		b.AddContent("Main")
		b.AddObject("Object")
		pack := b.AddPackFormat("Object", adm.TypeObjects)

		rtime1, dur1 := adm.MakeTime(0, 1), adm.MakeTime(1, 2)
		rtime2, dur2 := adm.MakeTime(3, 5), adm.MakeTime(2, 5)

		channel := b.AddChannelFormat(pack, "Object",
			&adm.BlockObjects{
				BlockCommon: adm.BlockCommon{Rtime: &rtime1, Duration: &dur1},
				Position:    adm.PolarObjectPosition{Azimuth: 0, Distance: 1},
			},
			&adm.BlockObjects{
				BlockCommon: adm.BlockCommon{Rtime: &rtime2, Duration: &dur2},
				Position:    adm.PolarObjectPosition{Azimuth: 0, Distance: 1},
			},
		)
		b.AddTrackUID(pack, channel, 1)
		return b.Document()
	}

	samples := make([]float64, 48000)
	inPath := writeInputBWF(t, buildDoc(), 48000, 1, samples)
	outPath := filepath.Join(t.TempDir(), "out.wav")

	// without the fix flag this is a timing error
	err := RenderFile(inPath, outPath, RenderOptions{TargetLayout: "0+5+0"})
	if Kind(err) != KindTiming {
		t.Fatalf("expected a timing error, got %v (%v)", err, Kind(err))
	}

	// with the fix enabled rendering succeeds
	err = RenderFile(inPath, outPath, RenderOptions{
		TargetLayout:           "0+5+0",
		EnableBlockDurationFix: true,
	})
	if err != nil {
		t.Fatalf("render with duration fix failed: %v", err)
	}
}

func TestRenderFile_SpeakersFile(t *testing.T) {
	t.Parallel()

	samples := make([]float64, 128)
	for i := range samples {
		samples[i] = 0.5
	}

	inPath := writeInputBWF(t, directSpeakersDoc("M+030"), 48000, 1, samples)
	outPath := filepath.Join(t.TempDir(), "out.wav")

	speakers := `
speakers:
  - {channel: 1, names: M+030, gain_linear: 0.5}
  - {channel: 0, names: M-030}
  - {channel: 2, names: M+000}
  - {channel: 3, names: LFE1}
  - {channel: 4, names: M+110}
  - {channel: 5, names: M-110}
`
	err := RenderFile(inPath, outPath, RenderOptions{
		TargetLayout: "0+5+0",
		SpeakersFile: bytes.NewReader([]byte(speakers)),
	})
	if err != nil {
		t.Fatal(err)
	}

	reader, out := readAllFrames(t, outPath)
	if reader.Channels != 6 {
		t.Fatalf("output has %d channels", reader.Channels)
	}

	// M+030 routes to output channel 1 with gain 0.5
	got := out[64*reader.Channels+1]
	if math.Abs(got-0.25) > 1e-4 {
		t.Fatalf("remapped sample %v, want 0.25", got)
	}
	if math.Abs(out[64*reader.Channels+0]) > 1e-6 {
		t.Fatalf("channel 0 should be silent")
	}
}

func TestMakeTestBWF_RoundTrip(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()

	// build a plain mono WAV as the source audio
	srcPath := filepath.Join(dir, "audio.wav")
	f, err := os.Create(srcPath)
	if err != nil {
		t.Fatal(err)
	}
	w, err := bw64.NewWriter(f, bw64.WriterOptions{SampleRate: 48000, Channels: 1, BitDepth: 16})
	if err != nil {
		t.Fatal(err)
	}
	audio := make([]float64, 480)
	for i := range audio {
		audio[i] = 0.25
	}
	if err := w.WriteFrames(audio); err != nil {
		t.Fatal(err)
	}
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}
	f.Close()

	bwfPath := filepath.Join(dir, "test.wav")
	if err := MakeTestBWF(srcPath, bwfPath, []float64{30}); err != nil {
		t.Fatal(err)
	}

	// the generated file parses and renders
	outPath := filepath.Join(dir, "out.wav")
	if err := RenderFile(bwfPath, outPath, RenderOptions{TargetLayout: "0+5+0"}); err != nil {
		t.Fatal(err)
	}

	reader, out := readAllFrames(t, outPath)
	l, _ := layout.Get("0+5+0")
	target := l.ChannelIndex("M+030")

	got := out[100*reader.Channels+target]
	if math.Abs(got-0.25) > 1e-3 {
		t.Fatalf("rendered object sample %v, want about 0.25", got)
	}
}

func TestInputDecoder_WAV(t *testing.T) {
	t.Parallel()

	// the wav input decoder reads files written by the bw64 writer
	path := filepath.Join(t.TempDir(), "in.wav")
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	w, err := bw64.NewWriter(f, bw64.WriterOptions{SampleRate: 44100, Channels: 2, BitDepth: 16})
	if err != nil {
		t.Fatal(err)
	}
	if err := w.WriteFrames([]float64{0.5, -0.5, 0.25, -0.25}); err != nil {
		t.Fatal(err)
	}
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}
	f.Close()

	rf, err := os.Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer rf.Close()

	src, err := input.WAVDecoder{}.Decode(rf)
	if err != nil {
		t.Fatal(err)
	}
	if src.SampleRate() != 44100 || src.Channels() != 2 {
		t.Fatalf("format: %d Hz, %d channels", src.SampleRate(), src.Channels())
	}

	buf := make([]float64, 8)
	n, err := src.ReadFrames(buf)
	if err != nil {
		t.Fatal(err)
	}
	if n != 2 {
		t.Fatalf("read %d frames", n)
	}
	if math.Abs(buf[0]-0.5) > 1e-3 || math.Abs(buf[1]+0.5) > 1e-3 {
		t.Fatalf("samples %v", buf[:4])
	}
}
