// SPDX-License-Identifier: EPL-2.0

// Package renderertest provides shared helpers for the renderer tests:
// sample generators and shortcuts for building metadata.
package renderertest

import (
	"math"

	"github.com/ebu/ebu-adm-renderer/adm"
	"github.com/ebu/ebu-adm-renderer/render"
)

// ConstantFrames generates interleaved frames with the same value on
// every channel.
func ConstantFrames(channels, frames int, value float64) []float64 {
	out := make([]float64, channels*frames)
	for i := range out {
		out[i] = value
	}
	return out
}

// SineFrames generates interleaved frames of a sine wave, identical on
// every channel.
func SineFrames(sampleRate, channels, frames int, frequency float64) []float64 {
	out := make([]float64, channels*frames)
	for f := range frames {
		v := math.Sin(2 * math.Pi * frequency * float64(f) / float64(sampleRate))
		for c := range channels {
			out[f*channels+c] = v
		}
	}
	return out
}

// Time is a shorthand for building block times.
func Time(num, den int64) *adm.Time {
	t := adm.MakeTime(num, den)
	return &t
}

// ObjectsItem wraps Objects blocks into a rendering item for one track.
func ObjectsItem(spec render.TrackSpec, blocks ...*adm.BlockObjects) *render.ObjectRenderingItem {
	var metas []render.TypeMetadata
	for _, block := range blocks {
		if block.Gain == 0 {
			block.Gain = 1
		}
		metas = append(metas, &render.ObjectTypeMetadata{BlockFormat: block})
	}
	return &render.ObjectRenderingItem{
		TrackSpec:      spec,
		MetadataSource: render.NewMetadataSourceIter(metas),
	}
}

// DirectSpeakersItem wraps DirectSpeakers blocks into a rendering item
// for one track.
func DirectSpeakersItem(spec render.TrackSpec, blocks ...*adm.BlockDirectSpeakers) *render.DirectSpeakersRenderingItem {
	var metas []render.TypeMetadata
	for _, block := range blocks {
		if block.Gain == 0 {
			block.Gain = 1
		}
		metas = append(metas, &render.DirectSpeakersTypeMetadata{BlockFormat: block})
	}
	return &render.DirectSpeakersRenderingItem{
		TrackSpec:      spec,
		MetadataSource: render.NewMetadataSourceIter(metas),
	}
}
