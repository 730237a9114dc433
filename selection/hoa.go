// SPDX-License-Identifier: EPL-2.0

package selection

import (
	"fmt"

	"github.com/ebu/ebu-adm-renderer/adm"
	"github.com/ebu/ebu-adm-renderer/render"
)

// HOA parameters may be defined on the pack formats along the path to a
// channel or on its block format; specified values must be consistent.

func hoaBlock(channel *adm.AudioChannelFormat) (*adm.BlockHOA, error) {
	if len(channel.Blocks) != 1 {
		return nil, fmt.Errorf("%w: HOA channel %s must have exactly one block format", ErrBadReference, channel.ID)
	}
	block, ok := channel.Blocks[0].(*adm.BlockHOA)
	if !ok {
		return nil, fmt.Errorf("%w: non-HOA block in channel %s", ErrBadReference, channel.ID)
	}
	return block, nil
}

// hoaPackParam collects a parameter along the pack path and the block,
// checking for conflicts.
func hoaPackParam[T comparable](packPath []*adm.AudioPackFormat, blockValue *T,
	packValue func(*adm.AudioPackFormat) *T, name string, channelID string) (*T, error) {

	var found *T
	consider := func(v *T) error {
		if v == nil {
			return nil
		}
		if found != nil && *found != *v {
			return fmt.Errorf("%w: conflicting %s values in path to %s", ErrBadReference, name, channelID)
		}
		found = v
		return nil
	}

	for _, pack := range packPath {
		if err := consider(packValue(pack)); err != nil {
			return nil, err
		}
	}
	if err := consider(blockValue); err != nil {
		return nil, err
	}
	return found, nil
}

// hoaItems builds the single rendering item covering all channels of an
// HOA pack.
func hoaItems(state objectState, outputPack *adm.AudioPackFormat, allocation []channelAlloc) ([]render.RenderingItem, error) {
	if len(allocation) == 0 {
		return nil, nil
	}

	orders := make([]int, len(allocation))
	degrees := make([]int, len(allocation))

	var (
		normalization *string
		nfcRefDist    *float64
		screenRef     *bool
		rtime         *adm.Time
		duration      *adm.Time
	)

	for i, alloc := range allocation {
		packPath := packFormatPathTo(outputPack, alloc.channelFormat)

		block, err := hoaBlock(alloc.channelFormat)
		if err != nil {
			return nil, err
		}
		orders[i] = block.Order
		degrees[i] = block.Degree

		norm, err := hoaPackParam(packPath, block.Normalization,
			func(p *adm.AudioPackFormat) *string { return p.Normalization }, "normalization", alloc.channelFormat.ID)
		if err != nil {
			return nil, err
		}
		nfc, err := hoaPackParam(packPath, block.NFCRefDist,
			func(p *adm.AudioPackFormat) *float64 { return p.NFCRefDist }, "nfcRefDist", alloc.channelFormat.ID)
		if err != nil {
			return nil, err
		}
		screen, err := hoaPackParam(packPath, block.ScreenRef,
			func(p *adm.AudioPackFormat) *bool { return p.ScreenRef }, "screenRef", alloc.channelFormat.ID)
		if err != nil {
			return nil, err
		}

		if i == 0 {
			normalization, nfcRefDist, screenRef = norm, nfc, screen
			rtime, duration = block.Rtime, block.Duration
		} else {
			if !ptrEqual(normalization, norm) {
				return nil, hoaConflict("normalization")
			}
			if !ptrEqual(nfcRefDist, nfc) {
				return nil, hoaConflict("nfcRefDist")
			}
			if !ptrEqual(screenRef, screen) {
				return nil, hoaConflict("screenRef")
			}
			if !timePtrEqual(rtime, block.Rtime) || !timePtrEqual(duration, block.Duration) {
				return nil, hoaConflict("rtime/duration")
			}
		}
	}

	sortHOAByACN(allocation, orders, degrees)

	meta := &render.HOATypeMetadata{
		Orders:        orders,
		Degrees:       degrees,
		Normalization: "SN3D",
		Rtime:         rtime,
		Duration:      duration,
		ExtraData:     extraDataFor(state, allocation[0].channelFormat),
	}
	if normalization != nil {
		meta.Normalization = *normalization
	}
	if nfcRefDist != nil {
		meta.NFCRefDist = *nfcRefDist
	}
	if screenRef != nil {
		meta.ScreenRef = *screenRef
	}

	item := &render.HOARenderingItem{
		MetadataSource: render.NewMetadataSourceIter([]render.TypeMetadata{meta}),
	}
	for _, alloc := range allocation {
		packPath := packFormatPathTo(outputPack, alloc.channelFormat)
		item.TrackSpecs = append(item.TrackSpecs, alloc.trackSpec)
		item.Importances = append(item.Importances, importanceFor(state, packPath))
		item.ADMPaths = append(item.ADMPaths, admPathFor(state, packPath, alloc.channelFormat))
	}

	return []render.RenderingItem{item}, nil
}

func hoaConflict(name string) error {
	return fmt.Errorf("%w: all HOA audioChannelFormats in a single audioPackFormat must share the same %s value",
		ErrBadReference, name)
}

func ptrEqual[T comparable](a, b *T) bool {
	if (a == nil) != (b == nil) {
		return false
	}
	return a == nil || *a == *b
}

func timePtrEqual(a, b *adm.Time) bool {
	if (a == nil) != (b == nil) {
		return false
	}
	return a == nil || a.Cmp(*b) == 0
}
