// SPDX-License-Identifier: EPL-2.0

package input

import (
	"fmt"
	"io"
	"math"

	"github.com/go-audio/aiff"
	goaudio "github.com/go-audio/audio"
)

// AIFFDecoder decodes PCM AIFF files via github.com/go-audio/aiff.
type AIFFDecoder struct{}

type aiffSource struct {
	dec   *aiff.Decoder
	buf   *goaudio.IntBuffer
	scale float64
}

func (AIFFDecoder) Decode(r io.ReadSeeker) (Source, error) {
	dec := aiff.NewDecoder(r)
	dec.ReadInfo()
	if !dec.IsValidFile() {
		return nil, fmt.Errorf("%w: not a valid AIFF file", ErrBadStream)
	}

	return &aiffSource{
		dec:   dec,
		scale: 1 / math.Pow(2, float64(dec.BitDepth-1)),
	}, nil
}

func (s *aiffSource) SampleRate() int { return s.dec.SampleRate }
func (s *aiffSource) Channels() int   { return int(s.dec.NumChans) }
func (s *aiffSource) Close() error    { return nil }

func (s *aiffSource) ReadFrames(dst []float64) (int, error) {
	channels := s.Channels()
	want := len(dst) / channels * channels
	if want == 0 {
		return 0, nil
	}

	if s.buf == nil || len(s.buf.Data) != want {
		s.buf = &goaudio.IntBuffer{
			Format: &goaudio.Format{NumChannels: channels, SampleRate: s.dec.SampleRate},
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
