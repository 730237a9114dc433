// SPDX-License-Identifier: EPL-2.0

package adm

import "fmt"

// Builder assembles documents programmatically, generating IDs and
// wiring the usual reference structure; it is used by the test-file
// utilities and by tests.
type Builder struct {
	doc *Document

	nextIDs map[string]int

	programme *AudioProgramme
	content   *AudioContent
	object    *AudioObject
}

func NewBuilder() *Builder {
	return &Builder{doc: NewDocument(), nextIDs: map[string]int{}}
}

// Document returns the assembled document.
func (b *Builder) Document() *Document { return b.doc }

func (b *Builder) nextID(prefix string, typ TypeDefinition) string {
	b.nextIDs[prefix]++
	n := b.nextIDs[prefix]

	switch prefix {
	case "APR", "ACO":
		return fmt.Sprintf("%s_%04x", prefix, n)
	case "AO":
		return fmt.Sprintf("%s_%04x", prefix, 0x1000+n)
	case "ATU":
		return fmt.Sprintf("%s_%08x", prefix, n)
	default:
		return fmt.Sprintf("%s_%04x%04x", prefix, int(typ), 0x1000+n)
	}
}

func (b *Builder) register(id string, element any) {
	if err := b.doc.register(id, element); err != nil {
		panic(err)
	}
}

// AddProgramme starts a new programme; subsequent contents attach to
// it.
func (b *Builder) AddProgramme(name string) *AudioProgramme {
	p := &AudioProgramme{ID: b.nextID("APR", 0), Name: name}
	b.doc.Programmes = append(b.doc.Programmes, p)
	b.register(p.ID, p)
	b.programme = p
	return p
}

// AddContent adds a content under the current programme (creating a
// default programme if needed); subsequent objects attach to it.
func (b *Builder) AddContent(name string) *AudioContent {
	if b.programme == nil {
		b.AddProgramme("Default")
	}
	c := &AudioContent{ID: b.nextID("ACO", 0), Name: name}
	b.doc.Contents = append(b.doc.Contents, c)
	b.register(c.ID, c)
	b.programme.Contents = append(b.programme.Contents, c)
	b.content = c
	return c
}

// AddObject adds an object under the current content (creating a
// default content if needed).
func (b *Builder) AddObject(name string) *AudioObject {
	if b.content == nil {
		b.AddContent("Default")
	}
	o := &AudioObject{ID: b.nextID("AO", 0), Name: name, Gain: 1}
	b.doc.Objects = append(b.doc.Objects, o)
	b.register(o.ID, o)
	b.content.Objects = append(b.content.Objects, o)
	b.object = o
	return o
}

// AddPackFormat adds a pack format and attaches it to the current
// object.
func (b *Builder) AddPackFormat(name string, typ TypeDefinition) *AudioPackFormat {
	p := &AudioPackFormat{ID: b.nextID("AP", typ), Name: name, Type: typ}
	b.doc.PackFormats = append(b.doc.PackFormats, p)
	b.register(p.ID, p)
	if b.object != nil {
		b.object.PackFormats = append(b.object.PackFormats, p)
	}
	return p
}

// AddChannelFormat adds a channel format with the given blocks to a
// pack.
func (b *Builder) AddChannelFormat(pack *AudioPackFormat, name string, blocks ...BlockFormat) *AudioChannelFormat {
	c := &AudioChannelFormat{ID: b.nextID("AC", pack.Type), Name: name, Type: pack.Type}
	for i, block := range blocks {
		common := block.Common()
		if common.ID == "" {
			common.ID = fmt.Sprintf("AB_%s_%08x", c.ID[3:], i+1)
		}
		if common.Gain == 0 {
			common.Gain = 1
		}
		c.Blocks = append(c.Blocks, block)
	}
	b.doc.ChannelFormats = append(b.doc.ChannelFormats, c)
	b.register(c.ID, c)
	pack.ChannelFormats = append(pack.ChannelFormats, c)
	return c
}

// AddTrackUID binds a physical track (1-based) to a channel of a pack
// under the current object, referencing the channel format directly.
func (b *Builder) AddTrackUID(pack *AudioPackFormat, channel *AudioChannelFormat, trackIndex int) *AudioTrackUID {
	t := &AudioTrackUID{
		ID:            b.nextID("ATU", 0),
		TrackIndex:    trackIndex,
		PackFormat:    pack,
		ChannelFormat: channel,
	}
	b.doc.TrackUIDs = append(b.doc.TrackUIDs, t)
	b.register(t.ID, t)
	if b.object != nil {
		b.object.TrackUIDs = append(b.object.TrackUIDs, t)
	}
	return t
}

// AddSilentTrack adds a silent track reference to the current object.
func (b *Builder) AddSilentTrack() {
	if b.object != nil {
		b.object.TrackUIDs = append(b.object.TrackUIDs, nil)
	}
}
