// SPDX-License-Identifier: EPL-2.0

package bw64

import (
	"encoding/binary"
	"fmt"
	"io"
)

// Writer writes a RIFF WAVE file with optional chna and axml chunks.
// Samples are 16, 24 or 32-bit PCM; chunk sizes are patched when Close
// is called.
type Writer struct {
	SampleRate int
	Channels   int
	BitDepth   int

	dst          io.WriteSeeker
	dataSizePos  int64
	riffSizePos  int64
	bytesWritten int64
	buf          []byte
	closed       bool
}

// WriterOptions configures NewWriter.
type WriterOptions struct {
	SampleRate int
	Channels   int
	// BitDepth of the output PCM samples; 16, 24 or 32. Defaults to 24.
	BitDepth int

	Chna []ChnaEntry
	AXML []byte
}

// NewWriter writes the header and metadata chunks to dst, leaving the
// writer positioned for sample writes.
func NewWriter(dst io.WriteSeeker, opts WriterOptions) (*Writer, error) {
	if opts.BitDepth == 0 {
		opts.BitDepth = 24
	}
	switch opts.BitDepth {
	case 16, 24, 32:
	default:
		return nil, fmt.Errorf("%w: %d-bit", ErrUnsupportedFormat, opts.BitDepth)
	}

	w := &Writer{
		SampleRate: opts.SampleRate,
		Channels:   opts.Channels,
		BitDepth:   opts.BitDepth,
		dst:        dst,
	}

	if _, err := dst.Write([]byte("RIFF")); err != nil {
		return nil, err
	}
	var err error
	if w.riffSizePos, err = tell(dst); err != nil {
		return nil, err
	}
	if err := writeAll(dst, make([]byte, 4), []byte("WAVE")); err != nil {
		return nil, err
	}

	fmtBody := encodeFmt(formatInfo{
		formatTag:     formatPCM,
		channels:      opts.Channels,
		sampleRate:    opts.SampleRate,
		bitsPerSample: opts.BitDepth,
	})
	if err := writeChunk(dst, "fmt ", fmtBody); err != nil {
		return nil, err
	}

	if len(opts.Chna) > 0 {
		if err := writeChunk(dst, "chna", encodeChna(opts.Chna)); err != nil {
			return nil, err
		}
	}

	if len(opts.AXML) > 0 {
		if err := writeChunk(dst, "axml", opts.AXML); err != nil {
			return nil, err
		}
	}

	if _, err := dst.Write([]byte("data")); err != nil {
		return nil, err
	}
	if w.dataSizePos, err = tell(dst); err != nil {
		return nil, err
	}
	if _, err := dst.Write(make([]byte, 4)); err != nil {
		return nil, err
	}

	return w, nil
}

func tell(s io.Seeker) (int64, error) {
	return s.Seek(0, io.SeekCurrent)
}

func writeAll(w io.Writer, bufs ...[]byte) error {
	for _, b := range bufs {
		if _, err := w.Write(b); err != nil {
			return err
		}
	}
	return nil
}

func writeChunk(w io.Writer, id string, body []byte) error {
	header := make([]byte, 8)
	copy(header, id)
	binary.LittleEndian.PutUint32(header[4:], uint32(len(body)))
	if err := writeAll(w, header, body); err != nil {
		return err
	}
	if len(body)%2 == 1 {
		if _, err := w.Write([]byte{0}); err != nil {
			return err
		}
	}
	return nil
}

// WriteFrames writes interleaved float64 frames, clipping to [-1, 1].
func (w *Writer) WriteFrames(samples []float64) error {
	bytesPerSample := w.BitDepth / 8
	need := len(samples) * bytesPerSample
	if cap(w.buf) < need {
		w.buf = make([]byte, need)
	}
	buf := w.buf[:need]

	for i, s := range samples {
		if s > 1 {
			s = 1
		} else if s < -1 {
			s = -1
		}

		switch w.BitDepth {
		case 16:
			v := int32(s * 32767)
			binary.LittleEndian.PutUint16(buf[2*i:], uint16(v))
		case 24:
			v := int32(s * 8388607)
			buf[3*i] = byte(v)
			buf[3*i+1] = byte(v >> 8)
			buf[3*i+2] = byte(v >> 16)
		case 32:
			v := int32(s * 2147483647)
			binary.LittleEndian.PutUint32(buf[4*i:], uint32(v))
		}
	}

	n, err := w.dst.Write(buf)
	w.bytesWritten += int64(n)
	return err
}

// Close patches the chunk sizes; the writer must not be used
// afterwards.
func (w *Writer) Close() error {
	if w.closed {
		return nil
	}
	w.closed = true

	if w.bytesWritten%2 == 1 {
		if _, err := w.dst.Write([]byte{0}); err != nil {
			return err
		}
	}

	end, err := tell(w.dst)
	if err != nil {
		return err
	}

	sizeBuf := make([]byte, 4)

	binary.LittleEndian.PutUint32(sizeBuf, uint32(w.bytesWritten))
	if _, err := w.dst.Seek(w.dataSizePos, io.SeekStart); err != nil {
		return err
	}
	if _, err := w.dst.Write(sizeBuf); err != nil {
		return err
	}

	binary.LittleEndian.PutUint32(sizeBuf, uint32(end-8))
	if _, err := w.dst.Seek(w.riffSizePos, io.SeekStart); err != nil {
		return err
	}
	if _, err := w.dst.Write(sizeBuf); err != nil {
		return err
	}

	_, err = w.dst.Seek(end, io.SeekStart)
	return err
}
