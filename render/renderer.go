// SPDX-License-Identifier: EPL-2.0

package render

import (
	"github.com/ebu/ebu-adm-renderer/adm"
	"github.com/ebu/ebu-adm-renderer/layout"
)

// Renderer drives the per-type renderers over a shared sample clock and
// sums their outputs.
type Renderer struct {
	aligner *BlockAligner

	objects        *ObjectRenderer
	directSpeakers *DirectSpeakersRenderer
	hoa            *HOARenderer

	nchannels   int
	startSample int64
}

// NewRenderer configures a renderer for a loudspeaker layout.
func NewRenderer(l *layout.Layout, warner adm.Warner) (*Renderer, error) {
	objects, err := NewObjectRenderer(l, warner)
	if err != nil {
		return nil, err
	}
	directSpeakers, err := NewDirectSpeakersRenderer(l, warner)
	if err != nil {
		return nil, err
	}
	hoaRenderer, err := NewHOARenderer(l, warner)
	if err != nil {
		return nil, err
	}

	return &Renderer{
		aligner:        NewBlockAligner(len(l.Channels)),
		objects:        objects,
		directSpeakers: directSpeakers,
		hoa:            hoaRenderer,
		nchannels:      len(l.Channels),
	}, nil
}

// SetRenderingItems distributes the items to the per-type renderers.
func (r *Renderer) SetRenderingItems(items []RenderingItem) {
	var objectItems []*ObjectRenderingItem
	var dsItems []*DirectSpeakersRenderingItem
	var hoaItems []*HOARenderingItem

	for _, item := range items {
		switch it := item.(type) {
		case *ObjectRenderingItem:
			objectItems = append(objectItems, it)
		case *DirectSpeakersRenderingItem:
			dsItems = append(dsItems, it)
		case *HOARenderingItem:
			hoaItems = append(hoaItems, it)
		}
	}

	r.objects.SetRenderingItems(objectItems)
	r.directSpeakers.SetRenderingItems(dsItems)
	r.hoa.SetRenderingItems(hoaItems)
}

// Render processes nFrames of interleaved input samples and returns the
// completed output frames; the first frame returned is always output
// sample 0.
func (r *Renderer) Render(sampleRate int, input []float64, inChannels, nFrames int) ([]float64, error) {
	objectOut, err := r.objects.Render(sampleRate, r.startSample, input, inChannels, nFrames)
	if err != nil {
		return nil, err
	}
	r.aligner.Add(r.startSample, objectOut)

	dsOut, err := r.directSpeakers.Render(sampleRate, r.startSample, input, inChannels, nFrames)
	if err != nil {
		return nil, err
	}
	r.aligner.Add(r.startSample, dsOut)

	hoaOut, err := r.hoa.Render(sampleRate, r.startSample, input, inChannels, nFrames)
	if err != nil {
		return nil, err
	}
	r.aligner.Add(r.startSample, hoaOut)

	r.startSample += int64(nFrames)
	return r.aligner.Get(), nil
}

// NumChannels is the number of output channels.
func (r *Renderer) NumChannels() int { return r.nchannels }
