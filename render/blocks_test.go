// SPDX-License-Identifier: EPL-2.0

package render

import (
	"math"
	"testing"

	"github.com/ebu/ebu-adm-renderer/adm"
)

// constantFrames generates interleaved frames with the same value on
// every channel.
func constantFrames(channels, frames int, value float64) []float64 {
	out := make([]float64, channels*frames)
	for i := range out {
		out[i] = value
	}
	return out
}

// blockTime is a shorthand for building block times.
func blockTime(num, den int64) *adm.Time {
	t := adm.MakeTime(num, den)
	return &t
}

// runObjectsItem renders one item through an interpreter with canned
// gains, returning the per-sample single-output gain applied to a unit
// input.
func runObjectsItem(t *testing.T, sampleRate, frames int, blocks []*adm.BlockObjects, gains map[*adm.BlockObjects][]float64) [][]float64 {
	t.Helper()

	var metas []TypeMetadata
	for _, block := range blocks {
		if block.Gain == 0 {
			block.Gain = 1
		}
		metas = append(metas, &ObjectTypeMetadata{BlockFormat: block})
	}

	interpreter := &interpretObjectMetadata{
		calcGains: func(meta *ObjectTypeMetadata) ([]float64, error) {
			return gains[meta.BlockFormat], nil
		},
	}
	channel := newBlockProcessingChannel(NewMetadataSourceIter(metas), interpreter.interpret)

	nch := 0
	for _, g := range gains {
		nch = len(g)
	}

	input := constantFrames(1, frames, 1)
	output := make([]float64, frames*nch)
	if err := channel.process(sampleRate, 0, input, output, nch); err != nil {
		t.Fatal(err)
	}

	out := make([][]float64, frames)
	for f := range frames {
		out[f] = output[f*nch : (f+1)*nch]
	}
	return out
}

func TestInterp_RampBetweenBlocks(t *testing.T) {
	t.Parallel()

	// two adjacent blocks; the second ramps over its whole duration
	blockA := &adm.BlockObjects{
		BlockCommon: adm.BlockCommon{ID: "a", Rtime: blockTime(0, 1), Duration: blockTime(1, 100)},
		Position:    adm.PolarObjectPosition{Distance: 1},
	}
	blockB := &adm.BlockObjects{
		BlockCommon: adm.BlockCommon{ID: "b", Rtime: blockTime(1, 100), Duration: blockTime(1, 100)},
		Position:    adm.PolarObjectPosition{Distance: 1},
	}

	gains := map[*adm.BlockObjects][]float64{
		blockA: {1, 0},
		blockB: {0, 1},
	}

	const rate = 1000 // blocks are 10 samples each
	out := runObjectsItem(t, rate, 20, []*adm.BlockObjects{blockA, blockB}, gains)

	// first block holds its gains
	for f := range 10 {
		if math.Abs(out[f][0]-1) > 1e-12 || math.Abs(out[f][1]) > 1e-12 {
			t.Fatalf("frame %d: %v", f, out[f])
		}
	}

	// second block ramps linearly from (1,0) to (0,1)
	for f := 10; f < 20; f++ {
		p := float64(f-10) / 10
		if math.Abs(out[f][0]-(1-p)) > 1e-9 || math.Abs(out[f][1]-p) > 1e-9 {
			t.Fatalf("frame %d: %v, want (%v, %v)", f, out[f], 1-p, p)
		}
	}

	// continuity: no step larger than the ramp slope
	for f := 1; f < 20; f++ {
		if math.Abs(out[f][0]-out[f-1][0]) > 0.11 {
			t.Fatalf("gain step at frame %d", f)
		}
	}
}

func TestInterp_JumpPosition(t *testing.T) {
	t.Parallel()

	interpLength := adm.MakeTime(5, 1000)

	blockA := &adm.BlockObjects{
		BlockCommon: adm.BlockCommon{ID: "a", Rtime: blockTime(0, 1), Duration: blockTime(1, 100)},
		Position:    adm.PolarObjectPosition{Distance: 1},
	}
	blockB := &adm.BlockObjects{
		BlockCommon:  adm.BlockCommon{ID: "b", Rtime: blockTime(1, 100), Duration: blockTime(1, 100)},
		Position:     adm.PolarObjectPosition{Distance: 1},
		JumpPosition: adm.JumpPosition{Flag: true, InterpolationLength: &interpLength},
	}

	gains := map[*adm.BlockObjects][]float64{
		blockA: {1},
		blockB: {0},
	}

	const rate = 1000
	out := runObjectsItem(t, rate, 20, []*adm.BlockObjects{blockA, blockB}, gains)

	// with jumpPosition set, the previous gains hold for the 5-sample
	// interpolation time, then step to the new gains
	for f := 10; f < 15; f++ {
		if math.Abs(out[f][0]-1) > 1e-9 {
			t.Fatalf("frame %d: %v, want a hold at 1", f, out[f][0])
		}
	}
	for f := 15; f < 20; f++ {
		if math.Abs(out[f][0]) > 1e-12 {
			t.Fatalf("frame %d: %v, want 0", f, out[f][0])
		}
	}
}

func TestInterp_JumpWithoutLengthSteps(t *testing.T) {
	t.Parallel()

	blockA := &adm.BlockObjects{
		BlockCommon: adm.BlockCommon{ID: "a", Rtime: blockTime(0, 1), Duration: blockTime(1, 100)},
		Position:    adm.PolarObjectPosition{Distance: 1},
	}
	blockB := &adm.BlockObjects{
		BlockCommon:  adm.BlockCommon{ID: "b", Rtime: blockTime(1, 100), Duration: blockTime(1, 100)},
		Position:     adm.PolarObjectPosition{Distance: 1},
		JumpPosition: adm.JumpPosition{Flag: true},
	}

	gains := map[*adm.BlockObjects][]float64{
		blockA: {1},
		blockB: {0},
	}

	out := runObjectsItem(t, 1000, 20, []*adm.BlockObjects{blockA, blockB}, gains)

	if math.Abs(out[9][0]-1) > 1e-12 {
		t.Fatalf("frame 9: %v", out[9][0])
	}
	if math.Abs(out[10][0]) > 1e-12 {
		t.Fatalf("frame 10: %v, want an immediate step to 0", out[10][0])
	}
}

func TestInterp_GapRendersWithoutInterpolation(t *testing.T) {
	t.Parallel()

	// rtime > 0 for the first block: samples before it stay silent
	block := &adm.BlockObjects{
		BlockCommon: adm.BlockCommon{ID: "a", Rtime: blockTime(1, 100), Duration: blockTime(1, 100)},
		Position:    adm.PolarObjectPosition{Distance: 1},
	}

	gains := map[*adm.BlockObjects][]float64{block: {1}}

	out := runObjectsItem(t, 1000, 20, []*adm.BlockObjects{block}, gains)

	for f := range 10 {
		if out[f][0] != 0 {
			t.Fatalf("frame %d should be silent, got %v", f, out[f][0])
		}
	}
	for f := 10; f < 20; f++ {
		if math.Abs(out[f][0]-1) > 1e-12 {
			t.Fatalf("frame %d: %v", f, out[f][0])
		}
	}
}

func TestInterp_InterpolationLongerThanBlock(t *testing.T) {
	t.Parallel()

	tooLong := adm.MakeTime(1, 10)

	blockA := &adm.BlockObjects{
		BlockCommon: adm.BlockCommon{ID: "a", Rtime: blockTime(0, 1), Duration: blockTime(1, 100)},
		Position:    adm.PolarObjectPosition{Distance: 1},
	}
	blockB := &adm.BlockObjects{
		BlockCommon:  adm.BlockCommon{ID: "b", Rtime: blockTime(1, 100), Duration: blockTime(1, 100)},
		Position:     adm.PolarObjectPosition{Distance: 1},
		JumpPosition: adm.JumpPosition{Flag: true, InterpolationLength: &tooLong},
	}

	gains := map[*adm.BlockObjects][]float64{blockA: {1}, blockB: {0}}

	var metas []TypeMetadata
	for _, b := range []*adm.BlockObjects{blockA, blockB} {
		b.Gain = 1
		metas = append(metas, &ObjectTypeMetadata{BlockFormat: b})
	}
	interpreter := &interpretObjectMetadata{
		calcGains: func(meta *ObjectTypeMetadata) ([]float64, error) { return gains[meta.BlockFormat], nil },
	}
	channel := newBlockProcessingChannel(NewMetadataSourceIter(metas), interpreter.interpret)

	input := constantFrames(1, 30, 1)
	output := make([]float64, 30)
	if err := channel.process(1000, 0, input, output, 1); err == nil {
		t.Fatal("expected an error for interpolation longer than the block")
	}
}

func TestInterp_ZeroDurationBlock(t *testing.T) {
	t.Parallel()

	blockA := &adm.BlockObjects{
		BlockCommon: adm.BlockCommon{ID: "a", Rtime: blockTime(0, 1), Duration: blockTime(1, 100)},
		Position:    adm.PolarObjectPosition{Distance: 1},
	}
	zero := &adm.BlockObjects{
		BlockCommon: adm.BlockCommon{ID: "z", Rtime: blockTime(1, 100), Duration: blockTime(0, 1)},
		Position:    adm.PolarObjectPosition{Distance: 1},
	}
	blockB := &adm.BlockObjects{
		BlockCommon: adm.BlockCommon{ID: "b", Rtime: blockTime(1, 100), Duration: blockTime(1, 100)},
		Position:    adm.PolarObjectPosition{Distance: 1},
	}

	gains := map[*adm.BlockObjects][]float64{blockA: {1}, zero: {0.5}, blockB: {0.25}}

	out := runObjectsItem(t, 1000, 20, []*adm.BlockObjects{blockA, zero, blockB}, gains)

	// the zero-duration block resolves to an instantaneous change at
	// its start; the next block then ramps from it
	if math.Abs(out[9][0]-1) > 1e-12 {
		t.Fatalf("frame 9: %v", out[9][0])
	}
	for f := 10; f < 20; f++ {
		p := float64(f-10) / 10
		want := 0.5 + (0.25-0.5)*p
		if math.Abs(out[f][0]-want) > 1e-9 {
			t.Fatalf("frame %d: %v, want %v", f, out[f][0], want)
		}
	}
}
