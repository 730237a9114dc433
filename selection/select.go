// SPDX-License-Identifier: EPL-2.0

package selection

import (
	"fmt"
	"sort"

	"github.com/ebu/ebu-adm-renderer/adm"
	"github.com/ebu/ebu-adm-renderer/geom"
	"github.com/ebu/ebu-adm-renderer/render"
)

// Options selects the content to render.
type Options struct {
	// Programme to render; nil selects the only programme, or the one
	// with the lowest ID.
	AudioProgramme *adm.AudioProgramme
	// Objects to select from complementary groups; the group root is
	// selected for groups with no entry.
	ComplementaryObjects []*adm.AudioObject

	Warner adm.Warner
}

// packFormatPathsFrom lists all pack format paths through the nesting
// starting at root.
func packFormatPathsFrom(root *adm.AudioPackFormat) [][]*adm.AudioPackFormat {
	paths := [][]*adm.AudioPackFormat{{root}}
	for _, sub := range root.PackFormats {
		for _, subPath := range packFormatPathsFrom(sub) {
			paths = append(paths, append([]*adm.AudioPackFormat{root}, subPath...))
		}
	}
	return paths
}

// wrapPacks builds the allocation patterns for all packs in the
// document; matrix packs produce one pattern per usage form.
func wrapPacks(doc *adm.Document) []*allocationPack {
	var packs []*allocationPack

	channelsFromPaths := func(root *adm.AudioPackFormat) []allocationChannel {
		var channels []allocationChannel
		for _, path := range packFormatPathsFrom(root) {
			leaf := path[len(path)-1]
			for _, channel := range leaf.ChannelFormats {
				channels = append(channels, allocationChannel{
					channelFormat: channel,
					packFormats:   path,
				})
			}
		}
		return channels
	}

	for _, pack := range doc.PackFormats {
		if pack.Type != adm.TypeMatrix {
			packs = append(packs, &allocationPack{
				rootPack: pack,
				channels: channelsFromPaths(pack),
			})
			continue
		}

		kind := matrixType(pack)
		if kind == matrixDirect || kind == matrixDecode {
			// direct or decoding use: the object references the matrix
			// pack while the tracks reference the channels of its
			// input pack
			var inputChannels []allocationChannel
			for _, path := range packFormatPathsFrom(matrixInputPack(pack)) {
				leaf := path[len(path)-1]
				for _, channel := range leaf.ChannelFormats {
					inputChannels = append(inputChannels, allocationChannel{
						channelFormat: channel,
						packFormats:   []*adm.AudioPackFormat{pack},
					})
				}
			}
			packs = append(packs, &allocationPack{
				rootPack: pack,
				channels: inputChannels,
				matrix:   &matrixAllocation{},
			})

			// pre-applied use: tracks reference the matrix channels
			// themselves
			packs = append(packs, &allocationPack{
				rootPack: pack,
				channels: channelsFromPaths(pack),
				matrix:   &matrixAllocation{},
			})
		}

		if kind == matrixDecode {
			// encode-then-decode use: tracks reference the encode
			// pack and the channels of its input pack
			encodePack := pack.EncodePackFormats[0]
			var inputChannels []allocationChannel
			for _, path := range packFormatPathsFrom(encodePack.InputPackFormat) {
				leaf := path[len(path)-1]
				for _, channel := range leaf.ChannelFormats {
					inputChannels = append(inputChannels, allocationChannel{
						channelFormat: channel,
						packFormats:   []*adm.AudioPackFormat{encodePack},
					})
				}
			}
			packs = append(packs, &allocationPack{
				rootPack: pack,
				channels: inputChannels,
				matrix:   &matrixAllocation{},
			})
		}
	}

	return packs
}

// selectComplementaryIgnored determines the objects to prune given the
// complementary-object selection.
func selectComplementaryIgnored(doc *adm.Document, selected []*adm.AudioObject) ([]*adm.AudioObject, error) {
	var roots []*adm.AudioObject
	for _, obj := range doc.Objects {
		if len(obj.ComplementaryObjects) > 0 {
			roots = append(roots, obj)
		}
	}

	inGroup := func(root *adm.AudioObject) []*adm.AudioObject {
		return append([]*adm.AudioObject{root}, root.ComplementaryObjects...)
	}

	// selected objects must actually be complementary
	var allComplementary []*adm.AudioObject
	for _, root := range roots {
		allComplementary = append(allComplementary, inGroup(root)...)
	}
	for _, sel := range selected {
		found := false
		for _, comp := range allComplementary {
			if comp == sel {
				found = true
				break
			}
		}
		if !found {
			return nil, fmt.Errorf("%w: audioObject %s is not part of any complementary audioObject group",
				ErrComplementary, sel.ID)
		}
	}

	// apply the default root selection per group
	allSelected := append([]*adm.AudioObject{}, selected...)
	for _, root := range roots {
		haveSelection := false
		for _, comp := range inGroup(root) {
			for _, sel := range selected {
				if sel == comp {
					haveSelection = true
				}
			}
		}
		if !haveSelection {
			allSelected = append(allSelected, root)
		}
	}

	var ignored []*adm.AudioObject
	for _, root := range roots {
		count := 0
		for _, comp := range inGroup(root) {
			isSelected := false
			for _, sel := range allSelected {
				if sel == comp {
					isSelected = true
				}
			}
			if isSelected {
				count++
			} else {
				ignored = append(ignored, comp)
			}
		}
		if count > 1 {
			return nil, fmt.Errorf("%w: multiple audioObjects selected from complementary group %s",
				ErrComplementary, root.ID)
		}
	}

	return ignored, nil
}

// objectState is the selection of one object path plus its allocation.
type objectState struct {
	programme *adm.AudioProgramme
	content   *adm.AudioContent
	objects   []*adm.AudioObject
}

func (s *objectState) object() *adm.AudioObject {
	if len(s.objects) == 0 {
		return nil
	}
	return s.objects[len(s.objects)-1]
}

func selectProgramme(doc *adm.Document, opts Options) (*adm.AudioProgramme, error) {
	if opts.AudioProgramme != nil {
		return opts.AudioProgramme, nil
	}
	switch len(doc.Programmes) {
	case 0:
		return nil, nil
	case 1:
		return doc.Programmes[0], nil
	default:
		if opts.Warner != nil {
			opts.Warner.Warn("more than one audioProgramme; selecting the one with the lowest id")
		}
		lowest := doc.Programmes[0]
		for _, p := range doc.Programmes[1:] {
			if p.ID < lowest.ID {
				lowest = p
			}
		}
		return lowest, nil
	}
}

// objectPaths yields all object paths starting at root through the
// nesting.
func objectPaths(root *adm.AudioObject) [][]*adm.AudioObject {
	paths := [][]*adm.AudioObject{{root}}
	for _, sub := range root.Objects {
		for _, subPath := range objectPaths(sub) {
			paths = append(paths, append([]*adm.AudioObject{root}, subPath...))
		}
	}
	return paths
}

// rootObjects are objects which are not nested in another object.
func rootObjects(doc *adm.Document) []*adm.AudioObject {
	nested := map[*adm.AudioObject]bool{}
	for _, obj := range doc.Objects {
		for _, sub := range obj.Objects {
			nested[sub] = true
		}
	}

	var roots []*adm.AudioObject
	for _, obj := range doc.Objects {
		if !nested[obj] {
			roots = append(roots, obj)
		}
	}
	return roots
}

// selectStates enumerates the programme/content/object paths to render.
// A document with no programmes or objects yields a single CHNA-only
// state.
func selectStates(doc *adm.Document, opts Options) ([]objectState, error) {
	if len(doc.Programmes) == 0 && len(doc.Objects) == 0 {
		return []objectState{{}}, nil
	}

	programme, err := selectProgramme(doc, opts)
	if err != nil {
		return nil, err
	}

	var states []objectState
	add := func(programme *adm.AudioProgramme, content *adm.AudioContent, roots []*adm.AudioObject) {
		for _, root := range roots {
			for _, path := range objectPaths(root) {
				states = append(states, objectState{programme: programme, content: content, objects: path})
			}
		}
	}

	if programme != nil {
		for _, content := range programme.Contents {
			add(programme, content, content.Objects)
		}
	} else {
		add(nil, nil, rootObjects(doc))
	}

	return states, nil
}

// SelectRenderingItems walks the ADM and produces the flat list of
// rendering items; the result is deterministic for a given document and
// selection.
func SelectRenderingItems(doc *adm.Document, opts Options) ([]render.RenderingItem, error) {
	if err := validateStructure(doc); err != nil {
		return nil, err
	}

	packs := wrapPacks(doc)

	ignored, err := selectComplementaryIgnored(doc, opts.ComplementaryObjects)
	if err != nil {
		return nil, err
	}

	states, err := selectStates(doc, opts)
	if err != nil {
		return nil, err
	}

	var items []render.RenderingItem
	for _, state := range states {
		skip := false
		for _, obj := range state.objects {
			for _, ign := range ignored {
				if obj == ign {
					skip = true
				}
			}
		}
		if skip {
			continue
		}

		stateItems, err := itemsForState(doc, packs, state)
		if err != nil {
			return nil, err
		}
		items = append(items, stateItems...)
	}

	return items, nil
}

// itemsForState allocates the packs of one state and produces its
// rendering items.
func itemsForState(doc *adm.Document, packs []*allocationPack, state objectState) ([]render.RenderingItem, error) {
	var (
		packRefs  []*adm.AudioPackFormat
		tracks    []*allocationTrack
		numSilent int
	)

	if obj := state.object(); obj != nil {
		packRefs = obj.PackFormats
		for _, trackUID := range obj.TrackUIDs {
			if trackUID == nil {
				numSilent++
				continue
			}
			if err := validateSelectedTrackUID(trackUID); err != nil {
				return nil, err
			}
			tracks = append(tracks, &allocationTrack{
				trackUID:      trackUID,
				channelFormat: trackUID.ResolvedChannelFormat(),
				packFormat:    trackUID.PackFormat,
			})
		}

		// objects with no content are allowed and produce no items
		if len(packRefs) == 0 && len(tracks) == 0 && numSilent == 0 {
			return nil, nil
		}
	} else {
		for _, trackUID := range doc.TrackUIDs {
			if err := validateSelectedTrackUID(trackUID); err != nil {
				return nil, err
			}
			tracks = append(tracks, &allocationTrack{
				trackUID:      trackUID,
				channelFormat: trackUID.ResolvedChannelFormat(),
				packFormat:    trackUID.PackFormat,
			})
		}
		if len(tracks) == 0 {
			return nil, nil
		}
	}

	solutions := allocatePacks(packs, tracks, packRefs, numSilent, 2)
	switch len(solutions) {
	case 1:
	case 0:
		return nil, fmt.Errorf("%w found in %s", ErrConflicting, stateContext(state))
	default:
		return nil, fmt.Errorf("%w found in %s", ErrAmbiguous, stateContext(state))
	}

	var items []render.RenderingItem
	for _, allocated := range solutions[0] {
		packItems, err := itemsForPack(state, allocated)
		if err != nil {
			return nil, err
		}
		items = append(items, packItems...)
	}
	return items, nil
}

func stateContext(state objectState) string {
	if obj := state.object(); obj != nil {
		return "audioObject " + obj.ID
	}
	return "CHNA"
}

func extraDataFor(state objectState, channel *adm.AudioChannelFormat) render.ExtraData {
	extra := render.ExtraData{ReferenceScreen: geom.DefaultScreen()}
	if obj := state.object(); obj != nil {
		extra.ObjectStart = obj.Start
		extra.ObjectDuration = obj.Duration
	}
	if state.programme != nil {
		extra.ReferenceScreen = state.programme.ReferenceScreen
	}
	if channel != nil {
		extra.ChannelFrequency = channel.Frequency
	}
	return extra
}

func importanceFor(state objectState, packPath []*adm.AudioPackFormat) render.ImportanceData {
	importance := render.ImportanceData{}

	for _, obj := range state.objects {
		if obj.Importance == nil {
			continue
		}
		if importance.AudioObject == nil || *obj.Importance < *importance.AudioObject {
			v := *obj.Importance
			importance.AudioObject = &v
		}
	}
	for _, pack := range packPath {
		if pack.Importance == nil {
			continue
		}
		if importance.AudioPackFormat == nil || *pack.Importance < *importance.AudioPackFormat {
			v := *pack.Importance
			importance.AudioPackFormat = &v
		}
	}
	return importance
}

// packFormatPathTo finds the pack path from the output pack to the
// channel format.
func packFormatPathTo(root *adm.AudioPackFormat, channel *adm.AudioChannelFormat) []*adm.AudioPackFormat {
	for _, path := range packFormatPathsFrom(root) {
		leaf := path[len(path)-1]
		for _, c := range leaf.ChannelFormats {
			if c == channel {
				return path
			}
		}
	}
	return nil
}

func admPathFor(state objectState, packPath []*adm.AudioPackFormat, channel *adm.AudioChannelFormat) render.ADMPath {
	return render.ADMPath{
		AudioProgramme:     state.programme,
		AudioContent:       state.content,
		AudioObjects:       state.objects,
		AudioPackFormats:   packPath,
		AudioChannelFormat: channel,
	}
}

// itemsForPack builds rendering items for one allocated pack according
// to its output pack type.
func itemsForPack(state objectState, allocated allocatedPack) ([]render.RenderingItem, error) {
	outputPack := allocated.pack.outputPack()

	allocation, err := allocated.pack.outputChannelAllocation(allocated.allocation)
	if err != nil {
		return nil, err
	}

	switch outputPack.Type {
	case adm.TypeObjects:
		var items []render.RenderingItem
		for _, alloc := range allocation {
			packPath := packFormatPathTo(outputPack, alloc.channelFormat)
			extra := extraDataFor(state, alloc.channelFormat)

			var blocks []render.TypeMetadata
			for _, block := range alloc.channelFormat.Blocks {
				objects, ok := block.(*adm.BlockObjects)
				if !ok {
					return nil, fmt.Errorf("%w: non-Objects block in channel %s", ErrBadReference, alloc.channelFormat.ID)
				}
				blocks = append(blocks, &render.ObjectTypeMetadata{BlockFormat: objects, ExtraData: extra})
			}

			items = append(items, &render.ObjectRenderingItem{
				TrackSpec:      alloc.trackSpec,
				MetadataSource: render.NewMetadataSourceIter(blocks),
				Importance:     importanceFor(state, packPath),
				ADMPath:        admPathFor(state, packPath, alloc.channelFormat),
			})
		}
		return items, nil

	case adm.TypeDirectSpeakers:
		var items []render.RenderingItem
		for _, alloc := range allocation {
			packPath := packFormatPathTo(outputPack, alloc.channelFormat)
			extra := extraDataFor(state, alloc.channelFormat)

			var blocks []render.TypeMetadata
			for _, block := range alloc.channelFormat.Blocks {
				ds, ok := block.(*adm.BlockDirectSpeakers)
				if !ok {
					return nil, fmt.Errorf("%w: non-DirectSpeakers block in channel %s", ErrBadReference, alloc.channelFormat.ID)
				}
				blocks = append(blocks, &render.DirectSpeakersTypeMetadata{
					BlockFormat:      ds,
					AudioPackFormats: packPath,
					ExtraData:        extra,
				})
			}

			items = append(items, &render.DirectSpeakersRenderingItem{
				TrackSpec:      alloc.trackSpec,
				MetadataSource: render.NewMetadataSourceIter(blocks),
				Importance:     importanceFor(state, packPath),
				ADMPath:        admPathFor(state, packPath, alloc.channelFormat),
			})
		}
		return items, nil

	case adm.TypeHOA:
		return hoaItems(state, outputPack, allocation)

	default:
		return nil, fmt.Errorf("%w: cannot produce rendering items for type %v", ErrUnsupported, outputPack.Type)
	}
}

// sortHOAByACN orders the channel allocation by ambisonics channel
// number so that track order matches the declared orders and degrees.
func sortHOAByACN(allocation []channelAlloc, orders, degrees []int) {
	type entry struct {
		alloc  channelAlloc
		order  int
		degree int
	}
	entries := make([]entry, len(allocation))
	for i, alloc := range allocation {
		entries[i] = entry{alloc: alloc, order: orders[i], degree: degrees[i]}
	}
	sort.SliceStable(entries, func(a, b int) bool {
		acnA := entries[a].order*entries[a].order + entries[a].order + entries[a].degree
		acnB := entries[b].order*entries[b].order + entries[b].order + entries[b].degree
		return acnA < acnB
	})
	for i := range entries {
		allocation[i] = entries[i].alloc
		orders[i] = entries[i].order
		degrees[i] = entries[i].degree
	}
}
