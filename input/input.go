// SPDX-License-Identifier: EPL-2.0

// Package input decodes the audio files fed to the test-file
// utilities: WAV, AIFF, MP3 and Ogg Vorbis sources behind one
// pull-based interface, plus a cubic resampler for rate conversion.
// The rendering core reads BW64 files directly; this package only
// feeds the tooling that builds them.
package input

import (
	"io"
	"path/filepath"
	"strings"
)

// Source is a pull-based stream of interleaved float64 samples in
// [-1, 1].
type Source interface {
	// SampleRate of the stream in Hz.
	SampleRate() int
	// Channels count (1 = mono, 2 = stereo, ...).
	Channels() int
	// ReadFrames fills dst with interleaved samples, returning the
	// number of frames written; io.EOF follows the last frame.
	ReadFrames(dst []float64) (int, error)

	Close() error
}

// Decoder constructs a Source from a seekable input stream.
type Decoder interface {
	Decode(r io.ReadSeeker) (Source, error)
}

// decoders maps file extensions to decoders.
var decoders = map[string]Decoder{
	".wav":  WAVDecoder{},
	".aiff": AIFFDecoder{},
	".aif":  AIFFDecoder{},
	".mp3":  MP3Decoder{},
	".ogg":  VorbisDecoder{},
}

// DecoderForPath picks a decoder from the file extension.
func DecoderForPath(path string) (Decoder, bool) {
	d, ok := decoders[strings.ToLower(filepath.Ext(path))]
	return d, ok
}
