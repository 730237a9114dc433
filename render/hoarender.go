// SPDX-License-Identifier: EPL-2.0

package render

import (
	"fmt"
	"math"

	"github.com/ebu/ebu-adm-renderer/adm"
	"github.com/ebu/ebu-adm-renderer/geom"
	"github.com/ebu/ebu-adm-renderer/hoa"
	"github.com/ebu/ebu-adm-renderer/layout"
	"github.com/ebu/ebu-adm-renderer/panner"
)

// hoaDesign designs AllRAD decoder matrices for a layout; the virtual
// loudspeaker gains are computed once and shared between designs.
type hoaDesign struct {
	psp    *panner.PointSourcePanner
	warner adm.Warner

	points []geom.Vec3
	gVirt  [][]float64
	ready  bool
}

func newHOADesign(l *layout.Layout, warner adm.Warner) (*hoaDesign, error) {
	psp, err := panner.Configure(l)
	if err != nil {
		return nil, err
	}
	return &hoaDesign{psp: psp, warner: warner}, nil
}

func (d *hoaDesign) initSlow() {
	if d.ready {
		return
	}
	d.ready = true
	d.points = hoa.Points()
	d.gVirt = hoa.CalcGVirt(d.points, d.psp.Handle)
}

func pointAzEl(p geom.Vec3) (az, el float64) {
	az = -math.Atan2(p[0], p[1])
	el = math.Atan2(p[2], math.Hypot(p[0], p[1]))
	return az, el
}

// design builds a decoder matrix for the given HOA metadata, normalised
// so that the mean decoded power over the sphere is one; rows are
// loudspeakers, columns input channels.
func (d *hoaDesign) design(meta *HOATypeMetadata) ([][]float64, error) {
	d.initSlow()

	if meta.ScreenRef && d.warner != nil {
		d.warner.Warn("screenRef for HOA is not implemented; ignoring")
	}
	if (meta.ExtraData.ChannelFrequency.LowPass != nil || meta.ExtraData.ChannelFrequency.HighPass != nil) && d.warner != nil {
		d.warner.Warn("frequency information for HOA is not implemented; ignoring")
	}

	norm, err := hoa.NormFunc(meta.Normalization)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadMetadata, err)
	}

	decoder := hoa.AllRADDesign(d.points, d.psp.Handle, meta.Orders, meta.Degrees, norm, d.gVirt)

	// mean decoded power over the sampling grid
	sumSq := 0.0
	for _, p := range d.points {
		az, el := pointAzEl(p)
		harmonics := make([]float64, len(meta.Orders))
		for c := range meta.Orders {
			harmonics[c] = hoa.SphHarm(meta.Orders[c], meta.Degrees[c], az, el, norm)
		}
		for _, row := range decoder {
			acc := 0.0
			for c, h := range harmonics {
				acc += row[c] * h
			}
			sumSq += acc * acc
		}
	}
	meanPower := math.Sqrt(sumSq / float64(len(d.points)))
	if meanPower > 0 {
		for s := range decoder {
			for c := range decoder[s] {
				decoder[s][c] /= meanPower
			}
		}
	}

	return decoder, nil
}

// hoaChannel is the processing state for one HOA item.
type hoaChannel struct {
	tracks *MultiTrackProcessor
	proc   *blockProcessingChannel
	nch    int

	// per-channel near-field compensation, created when the first
	// metadata block declares an nfcRefDist
	nfc []*hoa.NFCFilter
}

// interpretHOAMetadata yields one fixed-matrix block per metadata
// block; the timing fields live on the type metadata rather than a
// block format.
type interpretHOAMetadata struct {
	timingInterpreter
	design         func(*HOATypeMetadata) ([][]float64, error)
	outputChannels []int
	channel        *hoaChannel
	sampleRate     int
}

func (i *interpretHOAMetadata) interpret(sampleRate int, tm TypeMetadata) ([]processingBlock, error) {
	block := tm.(*HOATypeMetadata)

	start, end, err := i.blockStartEnd(block.ExtraData, block.Rtime, block.Duration, "HOA block")
	if err != nil {
		return nil, err
	}

	decoder, err := i.design(block)
	if err != nil {
		return nil, err
	}

	if block.NFCRefDist > 0 && i.channel.nfc == nil {
		for _, order := range block.Orders {
			i.channel.nfc = append(i.channel.nfc, hoa.NewNFCFilter(order, block.NFCRefDist, 1, sampleRate))
		}
	}

	return []processingBlock{&fixedMatrix{
		blockTiming:    newBlockTiming(timeToSamplePos(start, sampleRate), endSamplePos(end, sampleRate)),
		matrix:         decoder,
		outputChannels: i.outputChannels,
		inChannels:     len(block.Orders),
	}}, nil
}

// HOARenderer renders HOA items through a static decoder matrix.
type HOARenderer struct {
	design         *hoaDesign
	nchannels      int
	outputChannels []int
	channels       []*hoaChannel
}

func NewHOARenderer(l *layout.Layout, warner adm.Warner) (*HOARenderer, error) {
	design, err := newHOADesign(l.WithoutLFE(), warner)
	if err != nil {
		return nil, err
	}

	r := &HOARenderer{design: design, nchannels: len(l.Channels)}
	for ch, lfe := range l.IsLFE() {
		if !lfe {
			r.outputChannels = append(r.outputChannels, ch)
		}
	}
	return r, nil
}

// SetRenderingItems sets the items to process; this resets the internal
// state, so it should be called once before rendering starts.
func (r *HOARenderer) SetRenderingItems(items []*HOARenderingItem) {
	r.channels = nil
	for _, item := range items {
		channel := &hoaChannel{
			tracks: NewMultiTrackProcessor(item.TrackSpecs),
			nch:    len(item.TrackSpecs),
		}
		interpreter := &interpretHOAMetadata{
			design:         r.design.design,
			outputChannels: r.outputChannels,
			channel:        channel,
		}
		channel.proc = newBlockProcessingChannel(item.MetadataSource, interpreter.interpret)
		r.channels = append(r.channels, channel)
	}
}

// Render processes nFrames of interleaved input samples.
func (r *HOARenderer) Render(sampleRate int, startSample int64, input []float64, inChannels, nFrames int) ([]float64, error) {
	output := make([]float64, nFrames*r.nchannels)

	for _, ch := range r.channels {
		trackSamples := ch.tracks.Process(sampleRate, input, inChannels, nFrames)

		// pull metadata first so that NFC filters declared by the
		// first block exist before its samples are decoded
		if err := ch.proc.refill(sampleRate, startSample, true); err != nil {
			return nil, err
		}
		if ch.nfc != nil {
			r.applyNFC(ch, trackSamples, nFrames)
		}

		if err := ch.proc.processMulti(sampleRate, startSample, trackSamples, ch.nch, output, r.nchannels); err != nil {
			return nil, err
		}
	}
	return output, nil
}

func (r *HOARenderer) applyNFC(ch *hoaChannel, trackSamples []float64, nFrames int) {
	buf := make([]float64, nFrames)
	for c, filter := range ch.nfc {
		if filter == nil {
			continue
		}
		for f := range nFrames {
			buf[f] = trackSamples[f*ch.nch+c]
		}
		filter.Process(buf)
		for f := range nFrames {
			trackSamples[f*ch.nch+c] = buf[f]
		}
	}
}
