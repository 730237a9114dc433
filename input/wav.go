// SPDX-License-Identifier: EPL-2.0

package input

import (
	"fmt"
	"io"
	"math"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

// WAVDecoder decodes PCM WAV files via github.com/go-audio/wav.
type WAVDecoder struct{}

type wavSource struct {
	dec   *wav.Decoder
	buf   *goaudio.IntBuffer
	scale float64
}

func (WAVDecoder) Decode(r io.ReadSeeker) (Source, error) {
	dec := wav.NewDecoder(r)
	dec.ReadInfo()
	if !dec.IsValidFile() {
		return nil, fmt.Errorf("%w: not a valid WAV file", ErrBadStream)
	}

	return &wavSource{
		dec:   dec,
		scale: 1 / math.Pow(2, float64(dec.BitDepth-1)),
	}, nil
}

func (s *wavSource) SampleRate() int { return int(s.dec.SampleRate) }
func (s *wavSource) Channels() int   { return int(s.dec.NumChans) }
func (s *wavSource) Close() error    { return nil }

func (s *wavSource) ReadFrames(dst []float64) (int, error) {
	channels := s.Channels()
	want := len(dst) / channels * channels
	if want == 0 {
		return 0, nil
	}

	if s.buf == nil || len(s.buf.Data) != want {
		s.buf = &goaudio.IntBuffer{
			Format: &goaudio.Format{NumChannels: channels, SampleRate: int(s.dec.SampleRate)},
			Data:   make([]int, want),
		}
	}

	n, err := s.dec.PCMBuffer(s.buf)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrBadStream, err)
	}
	if n == 0 {
		return 0, io.EOF
	}

	for i := range n {
		dst[i] = float64(s.buf.Data[i]) * s.scale
	}
	return n / channels, nil
}
