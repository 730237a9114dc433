// SPDX-License-Identifier: EPL-2.0

package bw64

import (
	"bytes"
	"io"
	"math"
	"os"
	"path/filepath"
	"testing"
)

func writeTestFile(t *testing.T, opts WriterOptions, frames []float64) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "test.wav")
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	w, err := NewWriter(f, opts)
	if err != nil {
		t.Fatal(err)
	}
	if err := w.WriteFrames(frames); err != nil {
		t.Fatal(err)
	}
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestWriteRead_RoundTrip(t *testing.T) {
	t.Parallel()

	const (
		rate     = 48000
		channels = 2
		frames   = 1000
	)

	samples := make([]float64, frames*channels)
	for f := range frames {
		samples[f*channels] = math.Sin(2 * math.Pi * 440 * float64(f) / rate)
		samples[f*channels+1] = -samples[f*channels] / 2
	}

	axml := []byte("<testdoc/>")
	chna := []ChnaEntry{
		{TrackIndex: 1, UID: "ATU_00000001", TrackOrChannelRef: "AT_00031001_01", PackRef: "AP_00031001"},
		{TrackIndex: 2, UID: "ATU_00000002", TrackOrChannelRef: "AC_00031002"},
	}

	path := writeTestFile(t, WriterOptions{
		SampleRate: rate,
		Channels:   channels,
		BitDepth:   24,
		Chna:       chna,
		AXML:       axml,
	}, samples)

	f, err := os.Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	r, err := NewReader(f)
	if err != nil {
		t.Fatal(err)
	}

	if r.SampleRate != rate || r.Channels != channels || r.BitDepth != 24 {
		t.Fatalf("format mismatch: %d Hz, %d channels, %d bits", r.SampleRate, r.Channels, r.BitDepth)
	}
	if r.NumFrames() != frames {
		t.Fatalf("NumFrames = %d, want %d", r.NumFrames(), frames)
	}
	if !bytes.Equal(r.AXML(), axml) {
		t.Errorf("axml mismatch: %q", r.AXML())
	}

	gotChna := r.CHNA()
	if len(gotChna) != 2 {
		t.Fatalf("chna entries = %d, want 2", len(gotChna))
	}
	if gotChna[0] != chna[0] || gotChna[1] != chna[1] {
		t.Errorf("chna mismatch: %+v", gotChna)
	}

	read := make([]float64, frames*channels)
	total := 0
	buf := make([]float64, 256*channels)
	for {
		n, err := r.ReadFrames(buf)
		if n > 0 {
			copy(read[total*channels:], buf[:n*channels])
			total += n
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			t.Fatal(err)
		}
	}
	if total != frames {
		t.Fatalf("read %d frames, want %d", total, frames)
	}

	// 24-bit quantisation error bound
	const tol = 1.0 / 4000000
	for i := range read {
		if math.Abs(read[i]-samples[i]) > tol {
			t.Fatalf("sample %d: got %v, want %v", i, read[i], samples[i])
		}
	}
}

func TestReader_16Bit(t *testing.T) {
	t.Parallel()

	samples := []float64{0, 0.5, -0.5, 1}
	path := writeTestFile(t, WriterOptions{SampleRate: 44100, Channels: 1, BitDepth: 16}, samples)

	f, err := os.Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	r, err := NewReader(f)
	if err != nil {
		t.Fatal(err)
	}

	buf := make([]float64, 8)
	n, err := r.ReadFrames(buf)
	if err != nil {
		t.Fatal(err)
	}
	if n != 4 {
		t.Fatalf("read %d frames", n)
	}
	for i, want := range samples {
		if math.Abs(buf[i]-want) > 1.0/30000 {
			t.Errorf("sample %d = %v, want about %v", i, buf[i], want)
		}
	}
}

func TestReader_NotWave(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "not.wav")
	if err := os.WriteFile(path, []byte("this is not a wave file at all"), 0o644); err != nil {
		t.Fatal(err)
	}

	f, err := os.Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	if _, err := NewReader(f); err == nil {
		t.Fatal("expected an error for a non-wave file")
	}
}

func TestChna_OddAxmlPadding(t *testing.T) {
	t.Parallel()

	// odd-length axml exercises the chunk pad byte
	axml := []byte("<odd/>!")
	path := writeTestFile(t, WriterOptions{
		SampleRate: 48000, Channels: 1, BitDepth: 16,
		AXML: axml,
	}, []float64{0.25, -0.25})

	f, err := os.Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	r, err := NewReader(f)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(r.AXML(), axml) {
		t.Errorf("axml mismatch after padding: %q", r.AXML())
	}
	if r.NumFrames() != 2 {
		t.Errorf("NumFrames = %d", r.NumFrames())
	}
}
