// SPDX-License-Identifier: EPL-2.0

package input

import (
	"fmt"
	"io"

	"github.com/jfreymuth/oggvorbis"
)

// VorbisDecoder decodes Ogg Vorbis streams via
// github.com/jfreymuth/oggvorbis.
type VorbisDecoder struct{}

type vorbisSource struct {
	reader *oggvorbis.Reader
	buf    []float32
}

func (VorbisDecoder) Decode(r io.ReadSeeker) (Source, error) {
	reader, err := oggvorbis.NewReader(r)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadStream, err)
	}
	return &vorbisSource{reader: reader}, nil
}

func (s *vorbisSource) SampleRate() int { return s.reader.SampleRate() }
func (s *vorbisSource) Channels() int   { return s.reader.Channels() }
func (s *vorbisSource) Close() error    { return nil }

func (s *vorbisSource) ReadFrames(dst []float64) (int, error) {
	channels := s.Channels()
	samples := len(dst) / channels * channels
	if samples == 0 {
		return 0, nil
	}

	if cap(s.buf) < samples {
		s.buf = make([]float32, samples)
	}
	buf := s.buf[:samples]

	n, err := s.reader.Read(buf)
	if n == 0 {
		if err == io.EOF || err == nil {
			return 0, io.EOF
		}
		return 0, fmt.Errorf("%w: %v", ErrBadStream, err)
	}

	for i := range n {
		dst[i] = float64(buf[i])
	}
	return n / channels, nil
}
