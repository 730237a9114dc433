// SPDX-License-Identifier: EPL-2.0

package render

// BlockAligner mixes input streams with varying delays into a single
// aligned output stream. Calls must repeat in the sequence: one Add per
// input stream, then one Get.
type BlockAligner struct {
	channels int
	buf      []float64
	// sample number of the first frame in the buffer
	bufStart int64
	// sample number of the end of the earliest buffer added this
	// round; marks the completed region
	firstEnd int64
	haveEnd  bool
}

func NewBlockAligner(channels int) *BlockAligner {
	return &BlockAligner{channels: channels}
}

// Add sums a block of interleaved frames into the output, with the
// first frame taking index start in the output; start may be negative,
// in which case leading samples are discarded before time 0.
func (a *BlockAligner) Add(start int64, samples []float64) {
	nFrames := int64(len(samples) / a.channels)

	if start < a.bufStart {
		toDiscard := min64(a.bufStart-start, nFrames)
		samples = samples[toDiscard*int64(a.channels):]
		nFrames -= toDiscard
		start += toDiscard
	}

	end := start + nFrames

	startBuf := (start - a.bufStart) * int64(a.channels)
	endBuf := (end - a.bufStart) * int64(a.channels)
	for int64(len(a.buf)) < endBuf {
		a.buf = append(a.buf, 0)
	}

	for i, s := range samples {
		a.buf[startBuf+int64(i)] += s
	}

	if !a.haveEnd || a.firstEnd > end {
		a.firstEnd = end
		a.haveEnd = true
	}
}

// Get returns the frames completely filled by all input streams,
// starting at time 0; the number of frames varies and may be zero.
func (a *BlockAligner) Get() []float64 {
	nFrames := max64(a.firstEnd-a.bufStart, 0)
	nSamples := nFrames * int64(a.channels)

	out := make([]float64, nSamples)
	copy(out, a.buf[:nSamples])

	copy(a.buf, a.buf[nSamples:])
	tail := a.buf[int64(len(a.buf))-nSamples:]
	for i := range tail {
		tail[i] = 0
	}

	a.bufStart += nFrames
	a.haveEnd = false
	return out
}
