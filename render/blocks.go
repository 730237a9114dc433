// SPDX-License-Identifier: EPL-2.0

package render

import (
	"fmt"
	"math"

	"github.com/ebu/ebu-adm-renderer/adm"
)

// samplePos is a fractional sample position; infinite positions
// represent blocks without an end.
type samplePos struct {
	value float64
	exact int64 // ceil of value, valid when !inf
	inf   bool
}

func timeToSamplePos(t adm.Time, rate int) samplePos {
	return samplePos{value: t.Seconds() * float64(rate), exact: t.CeilSamples(rate)}
}

func infSamplePos() samplePos {
	return samplePos{value: math.Inf(1), inf: true}
}

// ceilSamples is the first whole sample affected at or after the
// position.
func (p samplePos) ceilSamples() int64 {
	if p.inf {
		return math.MaxInt64
	}
	return p.exact
}

// processingBlock applies some audio effect between fractional sample
// positions start and end; the whole samples affected are those in
// [firstSample, lastSample).
type processingBlock interface {
	bounds() (firstSample, lastSample int64)
	// process applies the effect for input samples starting at
	// startSample, summing into output (interleaved, outChannels wide).
	process(startSample int64, input []float64, output []float64, outChannels int)
}

type blockTiming struct {
	start, end  samplePos
	firstSample int64
	lastSample  int64
}

func newBlockTiming(start, end samplePos) blockTiming {
	return blockTiming{
		start:       start,
		end:         end,
		firstSample: start.ceilSamples(),
		lastSample:  end.ceilSamples(),
	}
}

func (t *blockTiming) bounds() (int64, int64) { return t.firstSample, t.lastSample }

// overlap computes the sample ranges shared between this block and a
// block of nFrames samples starting at startSample: the range within
// the block state and the range within the sample block.
func (t *blockTiming) overlap(startSample int64, nFrames int) (stateLo, sampleLo, n int64) {
	endSample := startSample + int64(nFrames)

	lo := max64(startSample, t.firstSample)
	hi := min64(endSample, t.lastSample)
	if lo >= hi {
		return 0, 0, 0
	}
	return lo - t.firstSample, lo - startSample, hi - lo
}

func max64(a, b int64) int64 {
	if a > b {
		return a
	}
	return b
}

func min64(a, b int64) int64 {
	if a < b {
		return a
	}
	return b
}

// fixedGains applies n gains to one input channel, summing into n
// output channels.
type fixedGains struct {
	blockTiming
	gains []float64
}

func (b *fixedGains) process(startSample int64, input []float64, output []float64, outChannels int) {
	_, sampleLo, n := b.overlap(startSample, len(input))
	for i := range n {
		x := input[sampleLo+i]
		base := (sampleLo + i) * int64(outChannels)
		for ch, g := range b.gains {
			output[base+int64(ch)] += g * x
		}
	}
}

// interpGains applies linearly interpolated gains between gainsStart at
// the block start and gainsEnd at the block end. Either may be nil,
// which skips that leg of the crossfade.
type interpGains struct {
	blockTiming
	gainsStart []float64
	gainsEnd   []float64
}

// interpP is the 0..1 ramp coefficient for the whole sample at state
// offset i.
func (b *interpGains) interpP(i int64) float64 {
	span := b.end.value - b.start.value
	if span == 0 {
		return 1
	}
	return (float64(b.firstSample+i) - b.start.value) / span
}

func (b *interpGains) process(startSample int64, input []float64, output []float64, outChannels int) {
	stateLo, sampleLo, n := b.overlap(startSample, len(input))
	for i := range n {
		p := b.interpP(stateLo + i)
		x := input[sampleLo+i]
		base := (sampleLo + i) * int64(outChannels)

		if b.gainsStart != nil {
			fadeDown := x * (1 - p)
			for ch, g := range b.gainsStart {
				output[base+int64(ch)] += g * fadeDown
			}
		}
		if b.gainsEnd != nil {
			fadeUp := x * p
			for ch, g := range b.gainsEnd {
				output[base+int64(ch)] += g * fadeUp
			}
		}
	}
}

// fixedMatrix applies a static matrix from n input channels to a set of
// output channels.
type fixedMatrix struct {
	blockTiming
	// matrix[o][i] is the gain from input channel i to
	// outputChannels[o]
	matrix         [][]float64
	outputChannels []int
	inChannels     int
}

func (b *fixedMatrix) process(startSample int64, input []float64, output []float64, outChannels int) {
	nFrames := len(input) / b.inChannels
	_, sampleLo, n := b.overlap(startSample, nFrames)

	for f := range n {
		inBase := (sampleLo + f) * int64(b.inChannels)
		outBase := (sampleLo + f) * int64(outChannels)
		for o, row := range b.matrix {
			acc := 0.0
			for i, coeff := range row {
				acc += coeff * input[inBase+int64(i)]
			}
			output[outBase+int64(b.outputChannels[o])] += acc
		}
	}
}

// interpretMetadata turns one metadata block into processing blocks.
type interpretMetadata func(sampleRate int, block TypeMetadata) ([]processingBlock, error)

// blockProcessingChannel applies the processing described by a metadata
// source to an audio stream.
type blockProcessingChannel struct {
	source    MetadataSource
	interpret interpretMetadata
	queue     []processingBlock
}

func newBlockProcessingChannel(source MetadataSource, interpret interpretMetadata) *blockProcessingChannel {
	return &blockProcessingChannel{source: source, interpret: interpret}
}

func (c *blockProcessingChannel) refill(sampleRate int, startSample int64, checkUnderrun bool) error {
	for len(c.queue) == 0 {
		block := c.source.NextBlock()
		if block == nil {
			return nil
		}

		states, err := c.interpret(sampleRate, block)
		if err != nil {
			return err
		}
		for _, state := range states {
			first, _ := state.bounds()
			if checkUnderrun && first < startSample {
				return fmt.Errorf("%w: metadata arrived after the samples that it would apply to", ErrMetadataUnderrun)
			}
			c.queue = append(c.queue, state)
		}
	}
	return nil
}

// process applies the queued blocks to nFrames of single-channel input
// samples, summing into interleaved output.
func (c *blockProcessingChannel) process(sampleRate int, startSample int64, input []float64, output []float64, outChannels int) error {
	endSample := startSample + int64(len(input))
	if err := c.refill(sampleRate, startSample, true); err != nil {
		return err
	}

	for len(c.queue) > 0 {
		head := c.queue[0]
		head.process(startSample, input, output, outChannels)

		_, last := head.bounds()
		switch {
		case last < endSample:
			c.queue = c.queue[1:]
			if err := c.refill(sampleRate, startSample, false); err != nil {
				return err
			}
		case last == endSample:
			c.queue = c.queue[1:]
			return nil
		default:
			return nil
		}
	}
	return nil
}

// processMulti is like process for multi-channel input (used for HOA),
// with input interleaved at inChannels.
func (c *blockProcessingChannel) processMulti(sampleRate int, startSample int64, input []float64, inChannels int, output []float64, outChannels int) error {
	nFrames := len(input) / inChannels
	endSample := startSample + int64(nFrames)
	if err := c.refill(sampleRate, startSample, true); err != nil {
		return err
	}

	for len(c.queue) > 0 {
		head := c.queue[0]
		head.process(startSample, input, output, outChannels)

		_, last := head.bounds()
		switch {
		case last < endSample:
			c.queue = c.queue[1:]
			if err := c.refill(sampleRate, startSample, false); err != nil {
				return err
			}
		case last == endSample:
			c.queue = c.queue[1:]
			return nil
		default:
			return nil
		}
	}
	return nil
}

// timingInterpreter tracks block boundaries, deriving the start and end
// time of each metadata block and catching overlaps.
type timingInterpreter struct {
	lastBlockEnd *adm.Time
	sawInfEnd    bool
}

// blockStartEnd returns the start and (possibly absent) end time of a
// block given its timing fields and the object timing.
func (t *timingInterpreter) blockStartEnd(extra ExtraData, rtime, duration *adm.Time, id string) (adm.Time, *adm.Time, error) {
	objectStart := adm.MakeTime(0, 1)
	if extra.ObjectStart != nil {
		objectStart = *extra.ObjectStart
	}

	var objectEnd *adm.Time
	if extra.ObjectDuration != nil {
		end := objectStart.Add(*extra.ObjectDuration)
		objectEnd = &end
	}

	var blockStart adm.Time
	var blockEnd *adm.Time

	switch {
	case rtime != nil && duration != nil:
		blockStart = objectStart.Add(*rtime)
		end := blockStart.Add(*duration)
		blockEnd = &end

		if objectEnd != nil && end.Cmp(*objectEnd) > 0 {
			return adm.Time{}, nil, fmt.Errorf("%w: block %s ends after object", ErrBadMetadata, id)
		}
	case rtime == nil && duration == nil:
		blockStart = objectStart
		blockEnd = objectEnd
	default:
		return adm.Time{}, nil, fmt.Errorf("%w: block %s: rtime and duration must be used together", ErrBadMetadata, id)
	}

	if t.sawInfEnd {
		return adm.Time{}, nil, fmt.Errorf("%w: block %s follows a block without an end", ErrBadMetadata, id)
	}
	if t.lastBlockEnd != nil && blockStart.Cmp(*t.lastBlockEnd) < 0 {
		return adm.Time{}, nil, fmt.Errorf("%w: overlapping block %s", ErrBadMetadata, id)
	}

	if blockEnd == nil {
		t.sawInfEnd = true
	} else {
		end := *blockEnd
		t.lastBlockEnd = &end
	}

	return blockStart, blockEnd, nil
}

// endSamplePos converts an optional end time to a sample position.
func endSamplePos(end *adm.Time, rate int) samplePos {
	if end == nil {
		return infSamplePos()
	}
	return timeToSamplePos(*end, rate)
}
