// SPDX-License-Identifier: EPL-2.0

package panner

import (
	"fmt"
	"math"

	"github.com/ebu/ebu-adm-renderer/geom"
	"github.com/ebu/ebu-adm-renderer/layout"
)

// alloPositions is the allocentric loudspeaker position table from
// BS.2127 section 7.3.9; M+SC and M-SC are derived from their polar
// positions instead.
var alloPositions = map[string]map[string]geom.Vec3{
	"0+2+0": {
		"M+030": {-1, 1, 0}, "M-030": {1, 1, 0},
	},
	"0+5+0": {
		"M+030": {-1, 1, 0}, "M-030": {1, 1, 0}, "M+000": {0, 1, 0},
		"LFE1": {-1, 1, -1},
		"M+110": {-1, -1, 0}, "M-110": {1, -1, 0},
	},
	"2+5+0": {
		"M+030": {-1, 1, 0}, "M-030": {1, 1, 0}, "M+000": {0, 1, 0},
		"LFE1": {-1, 1, -1},
		"M+110": {-1, -1, 0}, "M-110": {1, -1, 0},
		"U+030": {-1, 1, 1}, "U-030": {1, 1, 1},
	},
	"4+5+0": {
		"M+030": {-1, 1, 0}, "M-030": {1, 1, 0}, "M+000": {0, 1, 0},
		"LFE1": {-1, 1, -1},
		"M+110": {-1, -1, 0}, "M-110": {1, -1, 0},
		"U+030": {-1, 1, 1}, "U-030": {1, 1, 1},
		"U+110": {-1, -1, 1}, "U-110": {1, -1, 1},
	},
	"4+5+1": {
		"M+030": {-1, 1, 0}, "M-030": {1, 1, 0}, "M+000": {0, 1, 0},
		"LFE1": {-1, 1, -1},
		"M+110": {-1, -1, 0}, "M-110": {1, -1, 0},
		"U+030": {-1, 1, 1}, "U-030": {1, 1, 1},
		"U+110": {-1, -1, 1}, "U-110": {1, -1, 1},
		"B+000": {0, 1, -1},
	},
	"3+7+0": {
		"M+000": {0, 1, 0}, "M+030": {-1, 1, 0}, "M-030": {1, 1, 0},
		"U+045": {-1, 1, 1}, "U-045": {1, 1, 1},
		"M+090": {-1, 0, 0}, "M-090": {1, 0, 0},
		"M+135": {-1, -1, 0}, "M-135": {1, -1, 0},
		"UH+180": {0, -1, 1},
		"LFE1": {-1, 1, -1}, "LFE2": {1, 1, -1},
	},
	"4+9+0": {
		"M+000": {0, 1, 0}, "M+030": {-1, 1, 0}, "M-030": {1, 1, 0},
		"M+090": {-1, 0, 0}, "M-090": {1, 0, 0},
		"M+135": {-1, -1, 0}, "M-135": {1, -1, 0},
		"U+045": {-1, 1, 1}, "U-045": {1, 1, 1},
		"U+135": {-1, -1, 1}, "U-135": {1, -1, 1},
		"LFE1": {-1, 1, -1},
	},
	"9+10+3": {
		"M+060": {-1, 1, 0}, "M-060": {1, 1, 0},
		"M+000": {0, 1, 0},
		"LFE1": {-1, 1, -1}, "LFE2": {1, 1, -1},
		"M+135": {-1, -1, 0}, "M-135": {1, -1, 0},
		"M+030": {-0.414214, 1, 0}, "M-030": {0.414214, 1, 0},
		"M+180": {0, -1, 0},
		"M+090": {-1, 0, 0}, "M-090": {1, 0, 0},
		"U+045": {-0.414214, 1, 1}, "U-045": {0.414214, 1, 1},
		"U+000": {0, 1, 1},
		"T+000": {0, 0, 1},
		"U+135": {-1, -1, 1}, "U-135": {1, -1, 1},
		"U+090": {-1, 0, 1}, "U-090": {1, 0, 1},
		"U+180": {0, -1, 1},
		"B+000": {0, 1, -1},
		"B+045": {-0.414214, 1, -1}, "B-045": {0.414214, 1, -1},
	},
	"0+7+0": {
		"M+030": {-1, 1, 0}, "M-030": {1, 1, 0}, "M+000": {0, 1, 0},
		"LFE1": {-1, 1, -1},
		"M+090": {-1, 0, 0}, "M-090": {1, 0, 0},
		"M+135": {-1, -1, 0}, "M-135": {1, -1, 0},
	},
	"4+7+0": {
		"M+030": {-1, 1, 0}, "M-030": {1, 1, 0}, "M+000": {0, 1, 0},
		"LFE1": {-1, 1, -1},
		"M+090": {-1, 0, 0}, "M-090": {1, 0, 0},
		"M+135": {-1, -1, 0}, "M-135": {1, -1, 0},
		"U+045": {-1, 1, 1}, "U-045": {1, 1, 1},
		"U+135": {-1, -1, 1}, "U-135": {1, -1, 1},
	},
}

// screenSpkPositionToCart derives the allocentric position for a polar
// screen loudspeaker position; the speaker must be either exactly at
// the front or at the side of the room.
func screenSpkPositionToCart(position geom.PolarPosition) (geom.Vec3, error) {
	posLeft := PointPolarToCart(math.Abs(position.Azimuth), 0, 1)

	atFront := math.Abs(posLeft[1]-1) < 1e-10
	atSide := math.Abs(posLeft[0]+1) < 1e-10
	if !atFront && !atSide {
		return geom.Vec3{}, fmt.Errorf("%w: screen speaker at azimuth %v", ErrNoAlloPositions, position.Azimuth)
	}

	if atFront {
		posLeft[1] = 1
	}
	if atSide {
		posLeft[0] = -1
	}

	if position.Azimuth < 0 {
		posLeft[0] = -posLeft[0]
	}
	return posLeft, nil
}

// PositionsForLayout returns the allocentric position of each channel
// in the layout.
func PositionsForLayout(l *layout.Layout) ([]geom.Vec3, error) {
	table, ok := alloPositions[l.Name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNoAlloPositions, l.Name)
	}

	out := make([]geom.Vec3, len(l.Channels))
	for i := range l.Channels {
		c := &l.Channels[i]
		if c.Name == "M+SC" || c.Name == "M-SC" {
			pos, err := screenSpkPositionToCart(c.PolarPosition)
			if err != nil {
				return nil, err
			}
			out[i] = pos
			continue
		}

		pos, ok := table[c.Name]
		if !ok {
			return nil, fmt.Errorf("%w: channel %s in %s", ErrNoAlloPositions, c.Name, l.Name)
		}
		out[i] = pos
	}
	return out, nil
}

// GetExcluded adapts a channel exclusion mask to the allocentric
// panner: side speakers on excluded walls take the rest of their row
// with them, and exclusion is dropped entirely if it would remove every
// speaker.
func GetExcluded(channelPositions []geom.Vec3, isExcluded []bool) []bool {
	excluded := make([]bool, len(isExcluded))
	copy(excluded, isExcluded)

	for i, ex := range excluded {
		c := channelPositions[i]
		if ex && math.Abs(c[0]) == 1 && math.Abs(c[1]) != 1 {
			for k, c2 := range channelPositions {
				if c2[1] == c[1] && c2[2] == c[2] {
					excluded[k] = true
				}
			}
		}
	}

	all := true
	for _, ex := range excluded {
		if !ex {
			all = false
			break
		}
	}
	if all {
		for i := range excluded {
			excluded[i] = false
		}
	}

	return excluded
}

// alloEntry is one speaker in AllocentricPanner.tree, which arranges
// speakers into z planes, y rows and x columns, each level sorted
// ascending.
type alloEntry struct {
	index int
	pos   geom.Vec3
}

type AllocentricPanner struct {
	numChannels int
	tree        [][][]alloEntry
}

// NewAllocentricPanner builds a panner over allocentric speaker
// positions; no two speakers may share a position.
func NewAllocentricPanner(positions []geom.Vec3) *AllocentricPanner {
	var tree [][][]alloEntry

	for index, pos := range positions {
		entry := alloEntry{index: index, pos: pos}

		zi := 0
		for ; zi < len(tree); zi++ {
			z := tree[zi][0][0].pos[2]
			if z >= pos[2] {
				break
			}
		}
		if zi == len(tree) || tree[zi][0][0].pos[2] != pos[2] {
			tree = append(tree, nil)
			copy(tree[zi+1:], tree[zi:])
			tree[zi] = [][]alloEntry{{entry}}
			continue
		}

		yi := 0
		for ; yi < len(tree[zi]); yi++ {
			y := tree[zi][yi][0].pos[1]
			if y >= pos[1] {
				break
			}
		}
		if yi == len(tree[zi]) || tree[zi][yi][0].pos[1] != pos[1] {
			tree[zi] = append(tree[zi], nil)
			copy(tree[zi][yi+1:], tree[zi][yi:])
			tree[zi][yi] = []alloEntry{entry}
			continue
		}

		xi := 0
		for ; xi < len(tree[zi][yi]); xi++ {
			x := tree[zi][yi][xi].pos[0]
			if x == pos[0] {
				panic("panner: two speakers with the same allocentric position")
			}
			if x > pos[0] {
				break
			}
		}
		tree[zi][yi] = append(tree[zi][yi], alloEntry{})
		copy(tree[zi][yi][xi+1:], tree[zi][yi][xi:])
		tree[zi][yi][xi] = entry
	}

	return &AllocentricPanner{numChannels: len(positions), tree: tree}
}

func singleBalancePan(minimum, maximum, value float64) (float64, float64) {
	switch {
	case minimum == maximum:
		return 1, 1
	case value <= minimum:
		return 0, 1
	case value >= maximum:
		return 1, 0
	default:
		a := (value - minimum) / (maximum - minimum) * math.Pi / 2
		return math.Cos(a), math.Sin(a)
	}
}

// findPair locates the indices of the elements bracketing value, given
// an accessor for the sorted coordinate.
func findPair(n int, coord func(int) float64, value float64) [2]int {
	if value <= coord(0) {
		return [2]int{0, 0}
	}
	for i := range n {
		c := coord(i)
		if c == value {
			return [2]int{i, i}
		}
		if c > value {
			return [2]int{i - 1, i}
		}
	}
	return [2]int{n - 1, n - 1}
}

// Handle computes gains for an allocentric position; the position is
// panned between the bracketing planes, rows and columns in turn.
func (p *AllocentricPanner) Handle(position geom.Vec3) []float64 {
	out := make([]float64, p.numChannels)

	zPlanes := findPair(len(p.tree), func(i int) float64 { return p.tree[i][0][0].pos[2] }, position[2])
	zLo, zHi := p.tree[zPlanes[0]][0][0].pos[2], p.tree[zPlanes[1]][0][0].pos[2]
	zG0, zG1 := singleBalancePan(zLo, zHi, position[2])

	// equal indices mean the same plane takes both gains, matching
	// singleBalancePan's (1, 1) result
	zGains := [2]float64{zG0, zG1}
	for k, zi := range zPlanes {
		zGain := zGains[k]
		plane := p.tree[zi]

		yRows := findPair(len(plane), func(i int) float64 { return plane[i][0].pos[1] }, position[1])
		yG0, yG1 := singleBalancePan(plane[yRows[0]][0].pos[1], plane[yRows[1]][0].pos[1], position[1])
		yGains := [2]float64{yG0, yG1}

		for m, yi := range yRows {
			yGain := yGains[m]
			row := plane[yi]

			xCols := findPair(len(row), func(i int) float64 { return row[i].pos[0] }, position[0])
			xG0, xG1 := singleBalancePan(row[xCols[0]].pos[0], row[xCols[1]].pos[0], position[0])
			xGains := [2]float64{xG0, xG1}

			for n, xi := range xCols {
				out[row[xi].index] = zGain * yGain * xGains[n]
			}
		}
	}

	return out
}

// ConfigureAllocentric builds an allocentric panner for a layout
// without LFE channels.
func ConfigureAllocentric(l *layout.Layout) (*AllocentricPanner, error) {
	for i := range l.Channels {
		if l.Channels[i].IsLFE {
			return nil, fmt.Errorf("%w: LFE channel passed to allocentric panner", ErrBadLayout)
		}
	}
	if err := checkScreenSpeakers(l); err != nil {
		return nil, err
	}

	positions, err := PositionsForLayout(l)
	if err != nil {
		return nil, err
	}
	return NewAllocentricPanner(positions), nil
}
