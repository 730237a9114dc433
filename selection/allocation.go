// SPDX-License-Identifier: EPL-2.0

package selection

import (
	"github.com/ebu/ebu-adm-renderer/adm"
)

// allocationChannel is a channel to allocate within an allocationPack:
// the channel format to match, and the nested pack formats which an
// audioTrackUID allocated to it may reference.
type allocationChannel struct {
	channelFormat *adm.AudioChannelFormat
	packFormats   []*adm.AudioPackFormat
}

// allocationPack is a complete root audioPackFormat with the channels
// to allocate within it. The output mapping is overridden for matrix
// packs.
type allocationPack struct {
	rootPack *adm.AudioPackFormat
	channels []allocationChannel

	// matrix packs resolve to a different output pack and synthesise
	// track specs; nil for regular packs
	matrix *matrixAllocation
}

// allocationTrack is a real audioTrackUID to allocate.
type allocationTrack struct {
	trackUID      *adm.AudioTrackUID
	channelFormat *adm.AudioChannelFormat
	packFormat    *adm.AudioPackFormat
}

// allocatedPack associates the channels of one pack with the tracks
// allocated to them; a nil track is a silent track.
type allocatedPack struct {
	pack       *allocationPack
	allocation []allocatedChannel
}

type allocatedChannel struct {
	channel allocationChannel
	track   *allocationTrack
}

func channelMatches(channel allocationChannel, track *allocationTrack) bool {
	if track.channelFormat != channel.channelFormat {
		return false
	}
	if track.packFormat == nil {
		return true
	}
	for _, pack := range channel.packFormats {
		if pack == track.packFormat {
			return true
		}
	}
	return false
}

// trackClass groups interchangeable tracks so that swapping them does
// not count as a distinct solution.
type trackClass struct {
	channelFormat *adm.AudioChannelFormat
	packFormat    *adm.AudioPackFormat
}

type allocator struct {
	packs     []*allocationPack
	solutions [][]allocatedPack
	limit     int
}

// allocatePacks allocates tracks to channels and packs, yielding up to
// limit possible allocations. packRefs is the list of audioPackFormat
// references from the audioObject, or nil for CHNA-only content where
// the packs are determined automatically.
func allocatePacks(packs []*allocationPack, tracks []*allocationTrack,
	packRefs []*adm.AudioPackFormat, numSilent int, limit int) [][]allocatedPack {

	a := &allocator{packs: packs, limit: limit}

	state := &allocState{
		tracks:    tracks,
		used:      make([]bool, len(tracks)),
		numSilent: numSilent,
	}

	if packRefs != nil {
		a.solveRefs(state, packRefs, nil)
	} else {
		a.solveAuto(state, nil)
	}

	return a.solutions
}

type allocState struct {
	tracks    []*allocationTrack
	used      []bool
	numSilent int
}

func (s *allocState) remaining() int {
	n := 0
	for _, u := range s.used {
		if !u {
			n++
		}
	}
	return n
}

// candidates returns the first unused track index of each
// interchangeable class matching the channel; assigning only class
// representatives avoids counting permutations as distinct solutions.
func (s *allocState) candidates(channel allocationChannel) []int {
	seen := map[trackClass]bool{}
	var out []int
	for i, track := range s.tracks {
		if s.used[i] || !channelMatches(channel, track) {
			continue
		}
		class := trackClass{channelFormat: track.channelFormat, packFormat: track.packFormat}
		if seen[class] {
			continue
		}
		seen[class] = true
		out = append(out, i)
	}
	return out
}

// allocatePack tries every way of binding tracks (or silences) to the
// channels of pack, calling done with the allocation for each.
func (a *allocator) allocatePack(state *allocState, pack *allocationPack, done func([]allocatedChannel)) {
	var assign func(chIdx int, acc []allocatedChannel)
	assign = func(chIdx int, acc []allocatedChannel) {
		if len(a.solutions) >= a.limit {
			return
		}
		if chIdx == len(pack.channels) {
			// hand out a copy: the backing array is reused while
			// backtracking
			done(append([]allocatedChannel{}, acc...))
			return
		}

		channel := pack.channels[chIdx]

		for _, trackIdx := range state.candidates(channel) {
			state.used[trackIdx] = true
			assign(chIdx+1, append(acc, allocatedChannel{channel: channel, track: state.tracks[trackIdx]}))
			state.used[trackIdx] = false
		}

		if state.numSilent > 0 {
			state.numSilent--
			assign(chIdx+1, append(acc, allocatedChannel{channel: channel, track: nil}))
			state.numSilent++
		}
	}

	assign(0, nil)
}

// solveRefs allocates one pack per reference, in order.
func (a *allocator) solveRefs(state *allocState, packRefs []*adm.AudioPackFormat, acc []allocatedPack) {
	if len(a.solutions) >= a.limit {
		return
	}
	if len(packRefs) == 0 {
		if state.remaining() == 0 && state.numSilent == 0 {
			a.solutions = append(a.solutions, append([]allocatedPack{}, acc...))
		}
		return
	}

	ref := packRefs[0]
	for _, pack := range a.packs {
		if pack.rootPack != ref {
			continue
		}
		a.allocatePack(state, pack, func(allocation []allocatedChannel) {
			a.solveRefs(state, packRefs[1:], append(acc, allocatedPack{pack: pack, allocation: allocation}))
		})
	}
}

// solveAuto repeatedly picks a pack that consumes the first unallocated
// track; used for CHNA-only content.
func (a *allocator) solveAuto(state *allocState, acc []allocatedPack) {
	if len(a.solutions) >= a.limit {
		return
	}

	first := -1
	for i, used := range state.used {
		if !used {
			first = i
			break
		}
	}
	if first < 0 {
		if state.numSilent == 0 {
			a.solutions = append(a.solutions, append([]allocatedPack{}, acc...))
		}
		return
	}

	firstTrack := state.tracks[first]
	for _, pack := range a.packs {
		consumesFirst := false
		for _, channel := range pack.channels {
			if channelMatches(channel, firstTrack) {
				consumesFirst = true
				break
			}
		}
		if !consumesFirst {
			continue
		}

		a.allocatePack(state, pack, func(allocation []allocatedChannel) {
			// the chosen pack must actually consume the first track,
			// otherwise the search would not make progress
			if !state.used[first] {
				return
			}
			a.solveAuto(state, append(acc, allocatedPack{pack: pack, allocation: allocation}))
		})
	}
}
