// SPDX-License-Identifier: EPL-2.0

package render

import (
	"github.com/ebu/ebu-adm-renderer/adm"
	"github.com/ebu/ebu-adm-renderer/geom"
)

// TrackSpec describes how to obtain the samples for one rendered
// channel from the input tracks. It is one of DirectTrackSpec,
// SilentTrackSpec, MatrixCoefficientTrackSpec or MixTrackSpec.
type TrackSpec interface {
	isTrackSpec()
}

// DirectTrackSpec takes a physical input track; the index is 0-based.
type DirectTrackSpec struct {
	TrackIndex int
}

func (DirectTrackSpec) isTrackSpec() {}

// SilentTrackSpec is a track of zeros.
type SilentTrackSpec struct{}

func (SilentTrackSpec) isTrackSpec() {}

// MatrixCoefficientTrackSpec applies one matrix coefficient to the
// samples of an input track spec.
type MatrixCoefficientTrackSpec struct {
	Input       TrackSpec
	Coefficient *adm.MatrixCoefficient
}

func (MatrixCoefficientTrackSpec) isTrackSpec() {}

// MixTrackSpec sums a list of track specs.
type MixTrackSpec struct {
	Inputs []TrackSpec
}

func (MixTrackSpec) isTrackSpec() {}

// ExtraData is common metadata from outside the block format.
type ExtraData struct {
	ObjectStart      *adm.Time
	ObjectDuration   *adm.Time
	ReferenceScreen  geom.Screen
	ChannelFrequency adm.Frequency
}

// ImportanceData carries the importance values applicable to an item.
type ImportanceData struct {
	AudioObject     *int
	AudioPackFormat *int
}

// ADMPath records the route through the ADM taken to reach one
// track/channel, for diagnostics.
type ADMPath struct {
	AudioProgramme     *adm.AudioProgramme
	AudioContent       *adm.AudioContent
	AudioObjects       []*adm.AudioObject
	AudioPackFormats   []*adm.AudioPackFormat
	AudioChannelFormat *adm.AudioChannelFormat
}

// String renders the path as a list of IDs for error messages.
func (p ADMPath) String() string {
	out := ""
	add := func(id string) {
		if id == "" {
			return
		}
		if out != "" {
			out += " -> "
		}
		out += id
	}
	if p.AudioProgramme != nil {
		add(p.AudioProgramme.ID)
	}
	if p.AudioContent != nil {
		add(p.AudioContent.ID)
	}
	for _, o := range p.AudioObjects {
		add(o.ID)
	}
	for _, pf := range p.AudioPackFormats {
		add(pf.ID)
	}
	if p.AudioChannelFormat != nil {
		add(p.AudioChannelFormat.ID)
	}
	return out
}

// TypeMetadata represents all the parameters needed to render some set
// of audio channels within some time bounds; it is one of
// *ObjectTypeMetadata, *DirectSpeakersTypeMetadata or *HOATypeMetadata.
type TypeMetadata interface {
	isTypeMetadata()
}

// ObjectTypeMetadata is the type metadata for typeDefinition="Objects".
type ObjectTypeMetadata struct {
	BlockFormat *adm.BlockObjects
	ExtraData   ExtraData
}

func (*ObjectTypeMetadata) isTypeMetadata() {}

// DirectSpeakersTypeMetadata is the type metadata for
// typeDefinition="DirectSpeakers".
type DirectSpeakersTypeMetadata struct {
	BlockFormat *adm.BlockDirectSpeakers
	// path from the root audioPackFormat, used to recognise the
	// common-definition layouts for the mapping rules
	AudioPackFormats []*adm.AudioPackFormat
	ExtraData        ExtraData
}

func (*DirectSpeakersTypeMetadata) isTypeMetadata() {}

// HOATypeMetadata is the type metadata for typeDefinition="HOA"; one
// value covers all channels of the pack.
type HOATypeMetadata struct {
	Orders        []int
	Degrees       []int
	Normalization string
	NFCRefDist    float64
	ScreenRef     bool

	Rtime    *adm.Time
	Duration *adm.Time

	ExtraData ExtraData
}

func (*HOATypeMetadata) isTypeMetadata() {}

// MetadataSource produces the type metadata blocks of one item in time
// order; NextBlock returns nil when the stream is finished.
type MetadataSource interface {
	NextBlock() TypeMetadata
}

// MetadataSourceIter iterates over a fixed list of blocks.
type MetadataSourceIter struct {
	blocks []TypeMetadata
	next   int
}

func NewMetadataSourceIter(blocks []TypeMetadata) *MetadataSourceIter {
	return &MetadataSourceIter{blocks: blocks}
}

func (m *MetadataSourceIter) NextBlock() TypeMetadata {
	if m.next >= len(m.blocks) {
		return nil
	}
	block := m.blocks[m.next]
	m.next++
	return block
}

// RenderingItem is one item to be rendered: a source of type metadata
// bound to the tracks it applies to. It is one of *ObjectRenderingItem,
// *DirectSpeakersRenderingItem or *HOARenderingItem; Matrix content
// materialises as items of its output pack's type with
// MatrixCoefficient track specs.
type RenderingItem interface {
	isRenderingItem()
}

// ObjectRenderingItem is a rendering item for typeDefinition="Objects".
type ObjectRenderingItem struct {
	TrackSpec      TrackSpec
	MetadataSource MetadataSource
	Importance     ImportanceData
	ADMPath        ADMPath
}

func (*ObjectRenderingItem) isRenderingItem() {}

// DirectSpeakersRenderingItem is a rendering item for
// typeDefinition="DirectSpeakers".
type DirectSpeakersRenderingItem struct {
	TrackSpec      TrackSpec
	MetadataSource MetadataSource
	Importance     ImportanceData
	ADMPath        ADMPath
}

func (*DirectSpeakersRenderingItem) isRenderingItem() {}

// HOARenderingItem is a rendering item for typeDefinition="HOA",
// covering all tracks of one pack.
type HOARenderingItem struct {
	TrackSpecs     []TrackSpec
	MetadataSource MetadataSource
	Importances    []ImportanceData
	ADMPaths       []ADMPath
}

func (*HOARenderingItem) isRenderingItem() {}
