// SPDX-License-Identifier: EPL-2.0

package input

import (
	"encoding/binary"
	"fmt"
	"io"

	gomp3 "github.com/hajimehoshi/go-mp3"
)

// MP3Decoder decodes MP3 streams via github.com/hajimehoshi/go-mp3,
// which always produces 16-bit stereo.
type MP3Decoder struct{}

type mp3Source struct {
	dec *gomp3.Decoder
	buf []byte
}

func (MP3Decoder) Decode(r io.ReadSeeker) (Source, error) {
	dec, err := gomp3.NewDecoder(r)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadStream, err)
	}
	return &mp3Source{dec: dec}, nil
}

func (s *mp3Source) SampleRate() int { return s.dec.SampleRate() }
func (s *mp3Source) Channels() int   { return 2 }
func (s *mp3Source) Close() error    { return nil }

func (s *mp3Source) ReadFrames(dst []float64) (int, error) {
	samples := len(dst) / 2 * 2
	if samples == 0 {
		return 0, nil
	}

	if cap(s.buf) < samples*2 {
		s.buf = make([]byte, samples*2)
	}
	buf := s.buf[:samples*2]

	n, err := io.ReadFull(s.dec, buf)
	if err != nil && err != io.ErrUnexpectedEOF {
		if err == io.EOF {
			return 0, io.EOF
		}
		return 0, fmt.Errorf("%w: %v", ErrBadStream, err)
	}

	read := n / 2
	for i := range read {
		v := int16(binary.LittleEndian.Uint16(buf[2*i:]))
		dst[i] = float64(v) / 32768
	}
	if read == 0 {
		return 0, io.EOF
	}
	return read / 2, nil
}
