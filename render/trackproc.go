// SPDX-License-Identifier: EPL-2.0

package render

import (
	"fmt"
	"math"
)

// TrackProcessor obtains the samples for a single track spec from
// multi-track input samples.
type TrackProcessor interface {
	// Process returns the samples for the track spec given nFrames
	// frames of interleaved input samples with the given channel
	// count.
	Process(sampleRate int, input []float64, channels, nFrames int) []float64
}

// NewTrackProcessor builds a processor for a track spec, simplifying it
// first: silent inputs of mixes are dropped, and mixes or matrix
// coefficients that become trivial collapse.
func NewTrackProcessor(spec TrackSpec) TrackProcessor {
	return buildProcessor(simplifyTrackSpec(spec))
}

// MultiTrackProcessor renders multiple track specs into one buffer of
// shape (nFrames x len(specs)); structurally equal specs share one
// processor, so repeated sub-mixes are evaluated once per block.
type MultiTrackProcessor struct {
	slots      []int
	processors []TrackProcessor
}

func NewMultiTrackProcessor(specs []TrackSpec) *MultiTrackProcessor {
	m := &MultiTrackProcessor{}

	byKey := map[string]int{}
	for _, spec := range specs {
		key := trackSpecKey(spec)
		slot, ok := byKey[key]
		if !ok {
			slot = len(m.processors)
			byKey[key] = slot
			m.processors = append(m.processors, NewTrackProcessor(spec))
		}
		m.slots = append(m.slots, slot)
	}
	return m
}

// trackSpecKey derives a structural-equality key for a track spec.
func trackSpecKey(spec TrackSpec) string {
	switch s := spec.(type) {
	case DirectTrackSpec:
		return fmt.Sprintf("d%d", s.TrackIndex)
	case SilentTrackSpec:
		return "s"
	case MatrixCoefficientTrackSpec:
		return fmt.Sprintf("c%p(%s)", s.Coefficient, trackSpecKey(s.Input))
	case MixTrackSpec:
		key := "m("
		for _, input := range s.Inputs {
			key += trackSpecKey(input) + ","
		}
		return key + ")"
	default:
		return fmt.Sprintf("%#v", spec)
	}
}

// Process returns interleaved samples with one channel per track spec.
func (m *MultiTrackProcessor) Process(sampleRate int, input []float64, channels, nFrames int) []float64 {
	results := make([][]float64, len(m.processors))
	for i, p := range m.processors {
		results[i] = p.Process(sampleRate, input, channels, nFrames)
	}

	out := make([]float64, nFrames*len(m.slots))
	for i, slot := range m.slots {
		track := results[slot]
		for f := range nFrames {
			out[f*len(m.slots)+i] = track[f]
		}
	}
	return out
}

func simplifyTrackSpec(spec TrackSpec) TrackSpec {
	switch s := spec.(type) {
	case MixTrackSpec:
		// drop silent inputs; collapse empty and single-input mixes
		var inputs []TrackSpec
		for _, input := range s.Inputs {
			input = simplifyTrackSpec(input)
			if _, silent := input.(SilentTrackSpec); silent {
				continue
			}
			inputs = append(inputs, input)
		}
		switch len(inputs) {
		case 0:
			return SilentTrackSpec{}
		case 1:
			return inputs[0]
		default:
			return MixTrackSpec{Inputs: inputs}
		}
	case MatrixCoefficientTrackSpec:
		input := simplifyTrackSpec(s.Input)
		if _, silent := input.(SilentTrackSpec); silent {
			return SilentTrackSpec{}
		}
		return MatrixCoefficientTrackSpec{Input: input, Coefficient: s.Coefficient}
	default:
		return spec
	}
}

func buildProcessor(spec TrackSpec) TrackProcessor {
	switch s := spec.(type) {
	case SilentTrackSpec:
		return &silentProcessor{}
	case DirectTrackSpec:
		return &directProcessor{trackIndex: s.TrackIndex}
	case MixTrackSpec:
		p := &mixProcessor{}
		for _, input := range s.Inputs {
			p.inputs = append(p.inputs, buildProcessor(input))
		}
		return p
	case MatrixCoefficientTrackSpec:
		return &matrixCoefficientProcessor{
			input: buildProcessor(s.Input),
			spec:  s,
		}
	default:
		panic("render: unknown track spec")
	}
}

type silentProcessor struct {
	buf []float64
}

func (p *silentProcessor) Process(_ int, _ []float64, _, nFrames int) []float64 {
	if cap(p.buf) < nFrames {
		p.buf = make([]float64, nFrames)
	}
	buf := p.buf[:nFrames]
	for i := range buf {
		buf[i] = 0
	}
	return buf
}

type directProcessor struct {
	trackIndex int
	buf        []float64
}

func (p *directProcessor) Process(_ int, input []float64, channels, nFrames int) []float64 {
	if cap(p.buf) < nFrames {
		p.buf = make([]float64, nFrames)
	}
	buf := p.buf[:nFrames]
	for f := range nFrames {
		buf[f] = input[f*channels+p.trackIndex]
	}
	return buf
}

type mixProcessor struct {
	inputs []TrackProcessor
	buf    []float64
}

func (p *mixProcessor) Process(sampleRate int, input []float64, channels, nFrames int) []float64 {
	if cap(p.buf) < nFrames {
		p.buf = make([]float64, nFrames)
	}
	buf := p.buf[:nFrames]
	for i := range buf {
		buf[i] = 0
	}
	for _, in := range p.inputs {
		track := in.Process(sampleRate, input, channels, nFrames)
		for f := range nFrames {
			buf[f] += track[f]
		}
	}
	return buf
}

// delayLine is a fixed whole-sample delay over a ring buffer.
type delayLine struct {
	buf []float64
	pos int
}

func newDelayLine(samples int) *delayLine {
	return &delayLine{buf: make([]float64, samples)}
}

func (d *delayLine) process(samples []float64) {
	if len(d.buf) == 0 {
		return
	}
	for i, x := range samples {
		samples[i] = d.buf[d.pos]
		d.buf[d.pos] = x
		d.pos++
		if d.pos == len(d.buf) {
			d.pos = 0
		}
	}
}

type matrixCoefficientProcessor struct {
	input TrackProcessor
	spec  MatrixCoefficientTrackSpec

	delay      *delayLine
	sampleRate int
	buf        []float64
}

func (p *matrixCoefficientProcessor) Process(sampleRate int, input []float64, channels, nFrames int) []float64 {
	track := p.input.Process(sampleRate, input, channels, nFrames)

	if cap(p.buf) < nFrames {
		p.buf = make([]float64, nFrames)
	}
	buf := p.buf[:nFrames]
	copy(buf, track)

	coeff := p.spec.Coefficient
	if coeff.Gain != nil {
		for i := range buf {
			buf[i] *= *coeff.Gain
		}
	}

	if coeff.Delay != nil {
		if p.delay == nil {
			delaySamples := int(math.Ceil(float64(sampleRate)**coeff.Delay/1000 - 0.5))
			p.delay = newDelayLine(delaySamples)
			p.sampleRate = sampleRate
		}
		p.delay.process(buf)
	}

	return buf
}
