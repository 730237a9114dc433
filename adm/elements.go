// SPDX-License-Identifier: EPL-2.0

package adm

import (
	"fmt"

	"github.com/ebu/ebu-adm-renderer/geom"
)

// TypeDefinition is the ADM type of a pack or channel format.
type TypeDefinition int

const (
	TypeDirectSpeakers TypeDefinition = 1
	TypeMatrix         TypeDefinition = 2
	TypeObjects        TypeDefinition = 3
	TypeHOA            TypeDefinition = 4
	TypeBinaural       TypeDefinition = 5
)

func (t TypeDefinition) String() string {
	switch t {
	case TypeDirectSpeakers:
		return "DirectSpeakers"
	case TypeMatrix:
		return "Matrix"
	case TypeObjects:
		return "Objects"
	case TypeHOA:
		return "HOA"
	case TypeBinaural:
		return "Binaural"
	default:
		return fmt.Sprintf("TypeDefinition(%d)", int(t))
	}
}

// ParseTypeDefinition accepts either the numeric typeDefinition or the
// typeLabel string.
func ParseTypeDefinition(s string) (TypeDefinition, error) {
	switch s {
	case "0001", "1", "DirectSpeakers":
		return TypeDirectSpeakers, nil
	case "0002", "2", "Matrix":
		return TypeMatrix, nil
	case "0003", "3", "Objects":
		return TypeObjects, nil
	case "0004", "4", "HOA":
		return TypeHOA, nil
	case "0005", "5", "Binaural":
		return TypeBinaural, nil
	default:
		return 0, fmt.Errorf("%w: unknown type %q", ErrParse, s)
	}
}

// Frequency is the optional low/high pass information of a channel
// format, used to identify LFE channels.
type Frequency struct {
	LowPass  *float64
	HighPass *float64
}

// AudioProgramme is the top of the programme/content/object hierarchy.
type AudioProgramme struct {
	ID   string
	Name string

	Contents []*AudioContent

	Start           *Time
	End             *Time
	ReferenceScreen geom.Screen
}

// AudioContent groups audioObjects within a programme.
type AudioContent struct {
	ID   string
	Name string

	Objects []*AudioObject
}

// AudioObject binds pack formats to track UIDs, and may nest other
// objects and carry a complementary-object group.
type AudioObject struct {
	ID   string
	Name string

	PackFormats []*AudioPackFormat
	// TrackUIDs may contain nil entries, which represent silent tracks
	// (references to ATU_00000000).
	TrackUIDs []*AudioTrackUID

	Objects              []*AudioObject
	ComplementaryObjects []*AudioObject

	Start      *Time
	Duration   *Time
	Importance *int
	Interact   bool
	Gain       float64
}

// AudioPackFormat groups channel formats of one type, possibly nesting
// other packs. Matrix packs carry the encode/decode/direct references;
// HOA packs can carry pack-wide HOA parameters.
type AudioPackFormat struct {
	ID   string
	Name string
	Type TypeDefinition

	ChannelFormats []*AudioChannelFormat
	PackFormats    []*AudioPackFormat

	Importance       *int
	AbsoluteDistance *float64

	// HOA
	Normalization *string
	NFCRefDist    *float64
	ScreenRef     *bool

	// Matrix
	InputPackFormat   *AudioPackFormat
	OutputPackFormat  *AudioPackFormat
	EncodePackFormats []*AudioPackFormat

	IsCommonDefinition bool
}

// AudioChannelFormat holds the ordered block formats of one channel.
type AudioChannelFormat struct {
	ID   string
	Name string
	Type TypeDefinition

	Blocks    []BlockFormat
	Frequency Frequency

	IsCommonDefinition bool
}

// AudioStreamFormat links track formats to a channel or pack format.
type AudioStreamFormat struct {
	ID   string
	Name string

	ChannelFormat *AudioChannelFormat
	PackFormat    *AudioPackFormat
	TrackFormats  []*AudioTrackFormat
}

// AudioTrackFormat describes the coding of one track of a stream.
type AudioTrackFormat struct {
	ID   string
	Name string

	StreamFormat *AudioStreamFormat
}

// AudioTrackUID binds one track in the file to the format structure.
// The reference to the channel format may be direct (BS.2076-2 style)
// or via the track format and stream format.
type AudioTrackUID struct {
	ID string

	// 1-based index from the CHNA chunk; 0 when unknown.
	TrackIndex int

	PackFormat    *AudioPackFormat
	ChannelFormat *AudioChannelFormat
	TrackFormat   *AudioTrackFormat
}

// ResolvedChannelFormat follows either the direct channel format
// reference or the trackFormat -> streamFormat -> channelFormat chain.
func (t *AudioTrackUID) ResolvedChannelFormat() *AudioChannelFormat {
	if t.ChannelFormat != nil {
		return t.ChannelFormat
	}
	if t.TrackFormat != nil && t.TrackFormat.StreamFormat != nil {
		return t.TrackFormat.StreamFormat.ChannelFormat
	}
	return nil
}

// Document is a resolved ADM object graph. It is immutable during
// rendering.
type Document struct {
	Programmes     []*AudioProgramme
	Contents       []*AudioContent
	Objects        []*AudioObject
	PackFormats    []*AudioPackFormat
	ChannelFormats []*AudioChannelFormat
	StreamFormats  []*AudioStreamFormat
	TrackFormats   []*AudioTrackFormat
	TrackUIDs      []*AudioTrackUID

	elements map[string]any
}

// Lookup returns the element with the given ID, or nil.
func (d *Document) Lookup(id string) any {
	return d.elements[id]
}

func (d *Document) register(id string, element any) error {
	if d.elements == nil {
		d.elements = make(map[string]any)
	}
	if existing, ok := d.elements[id]; ok {
		// a parsed element may redefine a common-definition element
		if d.dropCommonDefinition(existing) {
			d.elements[id] = element
			return nil
		}
		return fmt.Errorf("%w: duplicate ID %q", ErrParse, id)
	}
	d.elements[id] = element
	return nil
}

// dropCommonDefinition removes a common-definition element so that a
// parsed element with the same ID can take its place.
func (d *Document) dropCommonDefinition(element any) bool {
	switch e := element.(type) {
	case *AudioPackFormat:
		if !e.IsCommonDefinition {
			return false
		}
		for i, p := range d.PackFormats {
			if p == e {
				d.PackFormats = append(d.PackFormats[:i], d.PackFormats[i+1:]...)
				break
			}
		}
		return true
	case *AudioChannelFormat:
		if !e.IsCommonDefinition {
			return false
		}
		for i, c := range d.ChannelFormats {
			if c == e {
				d.ChannelFormats = append(d.ChannelFormats[:i], d.ChannelFormats[i+1:]...)
				break
			}
		}
		return true
	default:
		return false
	}
}
