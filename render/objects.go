// SPDX-License-Identifier: EPL-2.0

package render

import (
	"fmt"

	"github.com/ebu/ebu-adm-renderer/adm"
	"github.com/ebu/ebu-adm-renderer/layout"
)

// interpretObjectMetadata turns a sequence of ObjectTypeMetadata into
// processing blocks, chaining interpolation between adjacent blocks.
type interpretObjectMetadata struct {
	timingInterpreter
	calcGains func(*ObjectTypeMetadata) ([]float64, error)

	prevBlockEnd   *adm.Time
	prevBlockGains []float64
}

// interpLength is the interpolation time of a block: the whole block
// unless jumpPosition is set, in which case the interpolationLength or
// zero.
func interpLength(block *adm.BlockObjects, duration *adm.Time) *adm.Time {
	if block.JumpPosition.Flag {
		if block.JumpPosition.InterpolationLength != nil {
			return block.JumpPosition.InterpolationLength
		}
		zero := adm.MakeTime(0, 1)
		return &zero
	}
	return duration
}

func (i *interpretObjectMetadata) interpret(sampleRate int, tm TypeMetadata) ([]processingBlock, error) {
	block := tm.(*ObjectTypeMetadata)
	bf := block.BlockFormat

	start, end, err := i.blockStartEnd(block.ExtraData, bf.Rtime, bf.Duration, bf.ID)
	if err != nil {
		return nil, err
	}

	var targetTime adm.Time
	switch {
	case end != nil:
		length := interpLength(bf, bf.Duration)
		if length == nil {
			targetTime = *end
		} else {
			targetTime = start.Add(*length)
			if targetTime.Cmp(*end) > 0 {
				return nil, fmt.Errorf("%w: interpolation length longer than block %s", ErrBadMetadata, bf.ID)
			}
		}
	default:
		// a block without an end cannot change over its whole length
		length := interpLength(bf, nil)
		if length != nil {
			targetTime = start.Add(*length)
		} else {
			targetTime = start
		}
	}

	// transition from the previous block only when this block starts
	// exactly at its end
	var interpFrom []float64
	if i.prevBlockEnd != nil && start.Cmp(*i.prevBlockEnd) == 0 {
		interpFrom = i.prevBlockGains
	} else {
		targetTime = start
	}

	interpTo, err := i.calcGains(block)
	if err != nil {
		return nil, err
	}

	startPos := timeToSamplePos(start, sampleRate)
	endPos := endSamplePos(end, sampleRate)
	targetPos := timeToSamplePos(targetTime, sampleRate)

	var out []processingBlock
	if startPos.value != targetPos.value {
		if bf.JumpPosition.Flag {
			// hold the previous gains over the interpolation time, then
			// step to the new gains
			out = append(out, &fixedGains{
				blockTiming: newBlockTiming(startPos, targetPos),
				gains:       interpFrom,
			})
		} else {
			out = append(out, &interpGains{
				blockTiming: newBlockTiming(startPos, targetPos),
				gainsStart:  interpFrom,
				gainsEnd:    interpTo,
			})
		}
	}
	if endPos.inf || targetPos.value != endPos.value {
		out = append(out, &fixedGains{
			blockTiming: newBlockTiming(targetPos, endPos),
			gains:       interpTo,
		})
	}

	i.prevBlockEnd = end
	i.prevBlockGains = interpTo
	return out, nil
}

// ObjectRenderer renders Objects items by computing per-block gains and
// interpolating them over the sample stream. Diffuse gains are summed
// onto the same loudspeakers as direct gains; no decorrelation is
// applied, so the object path has no processing delay.
type ObjectRenderer struct {
	gainCalc  *GainCalc
	nchannels int
	channels  []objectChannel
}

type objectChannel struct {
	track *trackChannel
	proc  *blockProcessingChannel
}

type trackChannel struct {
	processor TrackProcessor
}

func NewObjectRenderer(l *layout.Layout, warner adm.Warner) (*ObjectRenderer, error) {
	gainCalc, err := NewGainCalc(l, warner)
	if err != nil {
		return nil, err
	}
	return &ObjectRenderer{gainCalc: gainCalc, nchannels: len(l.Channels)}, nil
}

func (r *ObjectRenderer) calcGains(block *ObjectTypeMetadata) ([]float64, error) {
	gains, err := r.gainCalc.Render(block)
	if err != nil {
		return nil, err
	}

	// direct and diffuse end up on the same channels
	out := make([]float64, len(gains.Direct))
	for ch := range out {
		out[ch] = gains.Direct[ch] + gains.Diffuse[ch]
	}
	return out, nil
}

// SetRenderingItems sets the items to process; this resets the internal
// state, so it should be called once before rendering starts.
func (r *ObjectRenderer) SetRenderingItems(items []*ObjectRenderingItem) {
	r.channels = nil
	for _, item := range items {
		path := item.ADMPath
		calcGains := func(block *ObjectTypeMetadata) ([]float64, error) {
			gains, err := r.calcGains(block)
			if err != nil && path.AudioChannelFormat != nil {
				return nil, fmt.Errorf("%w (item %s)", err, path)
			}
			return gains, err
		}

		interpreter := &interpretObjectMetadata{calcGains: calcGains}
		r.channels = append(r.channels, objectChannel{
			track: &trackChannel{processor: NewTrackProcessor(item.TrackSpec)},
			proc:  newBlockProcessingChannel(item.MetadataSource, interpreter.interpret),
		})
	}
}

// Render processes nFrames of interleaved input samples, summing into
// an output buffer of the layout's channel count.
func (r *ObjectRenderer) Render(sampleRate int, startSample int64, input []float64, inChannels, nFrames int) ([]float64, error) {
	output := make([]float64, nFrames*r.nchannels)

	for _, ch := range r.channels {
		trackSamples := ch.track.processor.Process(sampleRate, input, inChannels, nFrames)
		if err := ch.proc.process(sampleRate, startSample, trackSamples, output, r.nchannels); err != nil {
			return nil, err
		}
	}
	return output, nil
}
