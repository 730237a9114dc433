// SPDX-License-Identifier: EPL-2.0

package bw64

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"math"

	"github.com/go-audio/riff"
)

type countingReader struct {
	r io.Reader
	n int64
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.n += int64(n)
	return n, err
}

// Reader reads a BW64/RF64/RIFF WAVE file, exposing the format
// information, the axml and chna chunks, and the samples as float64 in
// [-1, 1).
type Reader struct {
	SampleRate int
	Channels   int
	BitDepth   int

	axml []byte
	chna []ChnaEntry

	src        io.ReadSeeker
	format     formatInfo
	dataOffset int64
	dataSize   int64
	remaining  int64
	buf        []byte
}

// NewReader parses the chunk structure of src. The whole chunk tree is
// walked up front so that metadata chunks after the data chunk are
// found; sample reads then restart at the data chunk.
func NewReader(src io.ReadSeeker) (*Reader, error) {
	header := make([]byte, 12)
	if _, err := io.ReadFull(src, header); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNotWave, err)
	}

	magic := string(header[0:4])
	switch magic {
	case "RIFF", "BW64", "RF64":
	default:
		return nil, ErrNotWave
	}
	if string(header[8:12]) != "WAVE" {
		return nil, ErrNotWave
	}

	riffSize := binary.LittleEndian.Uint32(header[4:8])

	// the riff parser only accepts the RIFF magic; BW64 and RF64 use
	// the same layout, so present a rewritten header. The replayed
	// bytes stand in for the 12 already consumed, so the counter keeps
	// tracking real file offsets.
	copy(header[0:4], "RIFF")
	cr := &countingReader{r: io.MultiReader(bytes.NewReader(header), src)}

	parser := riff.New(cr)
	if err := parser.ParseHeaders(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNotWave, err)
	}

	r := &Reader{src: src, dataSize: -1}
	use64BitSizes := riffSize == 0xFFFFFFFF

	for {
		// chunk headers are read here rather than by the riff parser,
		// which rounds odd sizes up to include the pad byte
		chunkHeader := make([]byte, 8)
		if _, err := io.ReadFull(cr, chunkHeader); err != nil {
			// end of file; chunks after the data chunk are optional, so
			// a short trailer is tolerated once the essentials have been
			// seen
			break
		}

		id := string(chunkHeader[0:4])
		size := int64(binary.LittleEndian.Uint32(chunkHeader[4:8]))
		bodyStart := cr.n

		switch id {
		case "fmt ":
			body := make([]byte, size)
			if _, err := io.ReadFull(cr, body); err != nil {
				return nil, fmt.Errorf("fmt chunk: %w", err)
			}
			info, err := decodeFmt(body)
			if err != nil {
				return nil, err
			}
			r.format = info

		case "ds64":
			body := make([]byte, size)
			if _, err := io.ReadFull(cr, body); err != nil {
				return nil, fmt.Errorf("ds64 chunk: %w", err)
			}
			if len(body) >= 16 && use64BitSizes {
				r.dataSize = int64(binary.LittleEndian.Uint64(body[8:16]))
			}

		case "axml":
			body := make([]byte, size)
			if _, err := io.ReadFull(cr, body); err != nil {
				return nil, fmt.Errorf("axml chunk: %w", err)
			}
			r.axml = body

		case "chna":
			body := make([]byte, size)
			if _, err := io.ReadFull(cr, body); err != nil {
				return nil, fmt.Errorf("chna chunk: %w", err)
			}
			entries, err := decodeChna(body)
			if err != nil {
				return nil, err
			}
			r.chna = entries

		case "data":
			r.dataOffset = bodyStart
			if r.dataSize < 0 || !use64BitSizes {
				r.dataSize = size
			}
		}

		// move to the next chunk header, skipping any unread body and
		// the pad byte of odd-sized chunks
		next := bodyStart + size + (size & 1)
		if skip := next - cr.n; skip > 0 {
			if _, err := src.Seek(skip, io.SeekCurrent); err != nil {
				if _, err := io.CopyN(io.Discard, cr, skip); err != nil {
					break
				}
			} else {
				cr.n += skip
			}
		}
	}

	if r.format.channels == 0 {
		return nil, ErrNoFmtChunk
	}
	if r.dataOffset == 0 {
		return nil, ErrNoDataChunk
	}

	r.SampleRate = r.format.sampleRate
	r.Channels = r.format.channels
	r.BitDepth = r.format.bitsPerSample

	if err := r.Rewind(); err != nil {
		return nil, err
	}
	return r, nil
}

// AXML returns the raw axml chunk contents, or nil.
func (r *Reader) AXML() []byte { return r.axml }

// CHNA returns the parsed chna entries, or nil.
func (r *Reader) CHNA() []ChnaEntry { return r.chna }

// NumFrames is the total number of sample frames in the data chunk.
func (r *Reader) NumFrames() int64 {
	return r.dataSize / int64(r.Channels*r.BitDepth/8)
}

// Rewind restarts sample reading at the beginning of the data chunk.
func (r *Reader) Rewind() error {
	if _, err := r.src.Seek(r.dataOffset, io.SeekStart); err != nil {
		return fmt.Errorf("seeking to data chunk: %w", err)
	}
	r.remaining = r.dataSize
	return nil
}

// ReadFrames fills dst with up to len(dst)/Channels interleaved frames,
// returning the number of frames read. io.EOF is returned after the
// last frame.
func (r *Reader) ReadFrames(dst []float64) (int, error) {
	bytesPerSample := r.BitDepth / 8
	frameBytes := bytesPerSample * r.Channels

	maxFrames := len(dst) / r.Channels
	want := int64(maxFrames) * int64(frameBytes)
	if want > r.remaining {
		want = r.remaining
	}
	if want == 0 {
		return 0, io.EOF
	}

	if int64(len(r.buf)) < want {
		r.buf = make([]byte, want)
	}
	n, err := io.ReadFull(r.src, r.buf[:want])
	if err != nil && err != io.ErrUnexpectedEOF {
		return 0, fmt.Errorf("reading samples: %w", err)
	}
	r.remaining -= int64(n)

	frames := n / frameBytes
	samples := frames * r.Channels

	switch {
	case r.format.formatTag == formatFloat && r.BitDepth == 32:
		for i := range samples {
			bits := binary.LittleEndian.Uint32(r.buf[4*i:])
			dst[i] = float64(math.Float32frombits(bits))
		}
	case r.BitDepth == 16:
		for i := range samples {
			v := int16(binary.LittleEndian.Uint16(r.buf[2*i:]))
			dst[i] = float64(v) / 32768
		}
	case r.BitDepth == 24:
		for i := range samples {
			b := r.buf[3*i : 3*i+3]
			v := int32(b[0]) | int32(b[1])<<8 | int32(b[2])<<16
			// sign extend
			v = v << 8 >> 8
			dst[i] = float64(v) / 8388608
		}
	case r.BitDepth == 32:
		for i := range samples {
			v := int32(binary.LittleEndian.Uint32(r.buf[4*i:]))
			dst[i] = float64(v) / 2147483648
		}
	default:
		return 0, fmt.Errorf("%w: %d-bit", ErrUnsupportedFormat, r.BitDepth)
	}

	return frames, nil
}
