// SPDX-License-Identifier: EPL-2.0

package selection

import (
	"fmt"

	"github.com/ebu/ebu-adm-renderer/adm"
	"github.com/ebu/ebu-adm-renderer/render"
)

type matrixKind int

const (
	matrixInvalid matrixKind = iota
	matrixDirect
	matrixEncode
	matrixDecode
)

// matrixType classifies a matrix pack: direct packs have both input and
// output references, encode packs just input, decode packs just output.
func matrixType(pack *adm.AudioPackFormat) matrixKind {
	switch {
	case pack.InputPackFormat != nil && pack.OutputPackFormat != nil:
		return matrixDirect
	case pack.InputPackFormat != nil:
		return matrixEncode
	case pack.OutputPackFormat != nil:
		return matrixDecode
	default:
		return matrixInvalid
	}
}

// matrixInputPack is the pack whose channels the tracks reference:
// the encodePackFormat for decode matrices, the inputPackFormat
// otherwise.
func matrixInputPack(pack *adm.AudioPackFormat) *adm.AudioPackFormat {
	if matrixType(pack) == matrixDecode {
		return pack.EncodePackFormats[0]
	}
	return pack.InputPackFormat
}

// matrixAllocation marks an allocationPack as a matrix use; the output
// pack follows the outputPackFormat reference, and the output channels
// are synthesised by matrix-coefficient track specs.
type matrixAllocation struct{}

// channelAlloc connects one channel of the output pack to a source of
// samples.
type channelAlloc struct {
	channelFormat *adm.AudioChannelFormat
	trackSpec     render.TrackSpec
}

func trackSpecFor(track *allocationTrack) render.TrackSpec {
	if track == nil {
		return render.SilentTrackSpec{}
	}
	return render.DirectTrackSpec{TrackIndex: track.trackUID.TrackIndex - 1}
}

// outputPack is the pack whose type determines how the allocation is
// rendered.
func (p *allocationPack) outputPack() *adm.AudioPackFormat {
	if p.matrix != nil {
		return p.rootPack.OutputPackFormat
	}
	return p.rootPack
}

// outputChannelAllocation resolves the channels of the output pack to
// track specs. For regular packs this mirrors the input allocation; for
// matrix packs the inputChannelFormat references are followed
// recursively from the matrix channels back to the allocated input
// channels, building coefficient chains on the way up.
func (p *allocationPack) outputChannelAllocation(input []allocatedChannel) ([]channelAlloc, error) {
	if p.matrix == nil {
		out := make([]channelAlloc, 0, len(input))
		for _, alloc := range input {
			out = append(out, channelAlloc{
				channelFormat: alloc.channel.channelFormat,
				trackSpec:     trackSpecFor(alloc.track),
			})
		}
		return out, nil
	}

	var trackSpecFromChannel func(channel *adm.AudioChannelFormat) (render.TrackSpec, error)
	trackSpecFromChannel = func(channel *adm.AudioChannelFormat) (render.TrackSpec, error) {
		// base case: a channel in the input allocation
		for _, alloc := range input {
			if alloc.channel.channelFormat == channel {
				return trackSpecFor(alloc.track), nil
			}
		}

		// recursive case: a matrix channel; mix its scaled inputs
		if channel.Type != adm.TypeMatrix || len(channel.Blocks) != 1 {
			return nil, fmt.Errorf("%w: channel %s is not reachable from the allocated tracks",
				ErrBadReference, channel.ID)
		}
		block, ok := channel.Blocks[0].(*adm.BlockMatrix)
		if !ok {
			return nil, fmt.Errorf("%w: channel %s has no matrix block", ErrBadReference, channel.ID)
		}

		var inputs []render.TrackSpec
		for _, coeff := range block.Matrix {
			inputSpec, err := trackSpecFromChannel(coeff.InputChannelFormat)
			if err != nil {
				return nil, err
			}
			inputs = append(inputs, render.MatrixCoefficientTrackSpec{Input: inputSpec, Coefficient: coeff})
		}
		return render.MixTrackSpec{Inputs: inputs}, nil
	}

	var out []channelAlloc
	for _, matrixChannel := range p.rootPack.ChannelFormats {
		block, ok := matrixChannel.Blocks[0].(*adm.BlockMatrix)
		if !ok || block.OutputChannelFormat == nil {
			return nil, fmt.Errorf("%w: matrix channel %s has no output channel reference",
				ErrBadReference, matrixChannel.ID)
		}
		spec, err := trackSpecFromChannel(matrixChannel)
		if err != nil {
			return nil, err
		}
		out = append(out, channelAlloc{channelFormat: block.OutputChannelFormat, trackSpec: spec})
	}
	return out, nil
}
