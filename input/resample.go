// SPDX-License-Identifier: EPL-2.0

package input

import (
	"io"
)

// cubicInterpolate evaluates a Catmull-Rom spline at fractional
// position x between y1 and y2.
func cubicInterpolate(y0, y1, y2, y3, x float64) float64 {
	a0 := -0.5*y0 + 1.5*y1 - 1.5*y2 + 0.5*y3
	a1 := y0 - 2.5*y1 + 2*y2 - 0.5*y3
	a2 := -0.5*y0 + 0.5*y2

	return a0*x*x*x + a1*x*x + a2*x + y1
}

// Resampler converts a Source to a target sample rate using cubic
// interpolation over a four-frame window; channel count is preserved.
type Resampler struct {
	src      Source
	dstRate  int
	ratio    float64 // source frames per output frame
	channels int

	// frames[0] = t-1, frames[1] = t0, frames[2] = t+1, frames[3] = t+2
	frames   [4][]float64
	haveFrames int
	pos      float64
	eof      bool

	srcBuf []float64
}

func NewResampler(src Source, dstRate int) *Resampler {
	r := &Resampler{
		src:      src,
		ratio:    float64(src.SampleRate()) / float64(dstRate),
		channels: src.Channels(),
		srcBuf:   make([]float64, src.Channels()),
	}
	for i := range r.frames {
		r.frames[i] = make([]float64, r.channels)
	}
	r.dstRate = dstRate
	return r
}

func (r *Resampler) SampleRate() int { return r.dstRate }
func (r *Resampler) Channels() int   { return r.channels }
func (r *Resampler) Close() error    { return r.src.Close() }

// fetchFrame shifts the window and reads one source frame into the
// last slot; at end of stream it returns io.EOF and leaves the window
// unchanged.
func (r *Resampler) fetchFrame() error {
	if r.eof {
		return io.EOF
	}

	n, err := r.src.ReadFrames(r.srcBuf)
	if n == 0 {
		r.eof = true
		if err != nil && err != io.EOF {
			return err
		}
		return io.EOF
	}

	first := r.frames[0]
	copy(r.frames[:], r.frames[1:])
	r.frames[3] = first
	copy(r.frames[3], r.srcBuf)
	if r.haveFrames < 4 {
		r.haveFrames++
	}
	return nil
}

// prime fills the window before the first interpolation.
func (r *Resampler) prime() error {
	for r.haveFrames < 4 {
		if err := r.fetchFrame(); err != nil {
			if r.haveFrames == 0 {
				return io.EOF
			}
			// pad by repeating the last frame
			for r.haveFrames < 4 {
				copy(r.frames[r.haveFrames], r.frames[r.haveFrames-1])
				r.haveFrames++
			}
			return nil
		}
	}
	return nil
}

// ReadFrames produces resampled interleaved frames.
func (r *Resampler) ReadFrames(dst []float64) (int, error) {
	if err := r.prime(); err != nil {
		return 0, err
	}

	maxFrames := len(dst) / r.channels
	frames := 0

	for frames < maxFrames {
		for r.pos >= 1 {
			if err := r.fetchFrame(); err != nil {
				if frames > 0 {
					return frames, nil
				}
				return 0, io.EOF
			}
			r.pos--
		}

		for ch := range r.channels {
			dst[frames*r.channels+ch] = cubicInterpolate(
				r.frames[0][ch], r.frames[1][ch], r.frames[2][ch], r.frames[3][ch],
				r.pos)
		}
		frames++
		r.pos += r.ratio
	}

	return frames, nil
}
