// SPDX-License-Identifier: EPL-2.0

package render

import (
	"math"
	"sort"

	"github.com/ebu/ebu-adm-renderer/adm"
	"github.com/ebu/ebu-adm-renderer/geom"
	"github.com/ebu/ebu-adm-renderer/layout"
)

// zoneExclusionDownmix calculates downmix coefficients routing output
// away from excluded loudspeakers.
//
// For each channel it stores groups of other channels sorted in
// priority order; energy from an excluded channel is split between the
// non-excluded channels of the highest-priority group that has any.
type zoneExclusionDownmix struct {
	numChannels   int
	channelGroups [][][]int
}

// layerPrio encodes the preference when moving between layers: prefer
// the same layer, then moving up before down.
var layerPrio = [4][4]int{
	{0, 1, 2, 3}, // B
	{3, 0, 1, 2}, // M
	{3, 2, 0, 1}, // U
	{3, 2, 1, 0}, // T
}

func speakerLayer(c *layout.Channel) int {
	el := c.NominalPosition.Elevation
	switch {
	case el < -10:
		return 0
	case el < 10:
		return 1
	case el < 75:
		return 2
	default:
		return 3
	}
}

func signTol(x float64) int {
	const epsilon = 1e-6
	switch {
	case x > epsilon:
		return 1
	case x < -epsilon:
		return -1
	default:
		return 0
	}
}

type zoneKey [4]float64

func newZoneExclusionDownmix(l *layout.Layout) *zoneExclusionDownmix {
	z := &zoneExclusionDownmix{numChannels: len(l.Channels)}

	calcKey := func(from, to *layout.Channel) zoneKey {
		fromPos, toPos := from.NominalVec(), to.NominalVec()
		return zoneKey{
			// prefer channels on the same layer
			float64(layerPrio[speakerLayer(from)][speakerLayer(to)]),
			// prefer keeping sources behind or in front of the
			// listener, which limits front/back movement when one side
			// is excluded
			math.Abs(float64(signTol(fromPos[1]) - signTol(toPos[1]))),
			// prefer closer speakers
			fromPos.Sub(toPos).Norm(),
			// break ties by the front/back distance, which avoids
			// splitting that is asymmetrical around +x or +y
			math.Abs(fromPos[1] - toPos[1]),
		}
	}

	const epsilon = 1e-6
	keysEqual := func(a, b zoneKey) bool {
		for i := range a {
			if math.Abs(a[i]-b[i]) >= epsilon {
				return false
			}
		}
		return true
	}
	keyLess := func(a, b zoneKey) bool {
		for i := range a {
			if math.Abs(a[i]-b[i]) >= epsilon {
				return a[i] < b[i]
			}
		}
		return false
	}

	for i := range l.Channels {
		type group struct {
			key      zoneKey
			channels []int
		}
		var groups []group

		for j := range l.Channels {
			key := calcKey(&l.Channels[i], &l.Channels[j])
			merged := false
			for g := range groups {
				if keysEqual(groups[g].key, key) {
					groups[g].channels = append(groups[g].channels, j)
					merged = true
					break
				}
			}
			if !merged {
				groups = append(groups, group{key: key, channels: []int{j}})
			}
		}

		sort.SliceStable(groups, func(a, b int) bool { return keyLess(groups[a].key, groups[b].key) })

		ordered := make([][]int, len(groups))
		for g := range groups {
			ordered[g] = groups[g].channels
		}
		z.channelGroups = append(z.channelGroups, ordered)
	}

	return z
}

// downmixForExcluded builds the downmix matrix for an exclusion mask;
// m[i][j] is the coefficient from channel i to channel j.
func (z *zoneExclusionDownmix) downmixForExcluded(excluded []bool) [][]float64 {
	downmix := make([][]float64, z.numChannels)
	for i := range downmix {
		downmix[i] = make([]float64, z.numChannels)
	}

	anyExcluded, allExcluded := false, true
	for _, e := range excluded {
		if e {
			anyExcluded = true
		} else {
			allExcluded = false
		}
	}
	if !anyExcluded || allExcluded {
		for i := range downmix {
			downmix[i][i] = 1
		}
		return downmix
	}

	for i, groups := range z.channelGroups {
		for _, group := range groups {
			var notExcluded []int
			for _, ch := range group {
				if !excluded[ch] {
					notExcluded = append(notExcluded, ch)
				}
			}
			if len(notExcluded) == 0 {
				continue
			}
			for _, ch := range notExcluded {
				downmix[i][ch] = 1 / float64(len(notExcluded))
			}
			break
		}
	}

	return downmix
}

// zoneExclusionHandler evaluates exclusion zones against the layout and
// applies the resulting downmix to gain vectors.
type zoneExclusionHandler struct {
	numChannels int
	positions   []geom.Vec3
	azimuths    []float64
	elevations  []float64
	zed         *zoneExclusionDownmix
}

func newZoneExclusionHandler(l *layout.Layout) *zoneExclusionHandler {
	h := &zoneExclusionHandler{
		numChannels: len(l.Channels),
		zed:         newZoneExclusionDownmix(l),
	}
	for i := range l.Channels {
		c := &l.Channels[i]
		h.positions = append(h.positions, c.NominalVec())
		h.azimuths = append(h.azimuths, c.NominalPosition.Azimuth)
		h.elevations = append(h.elevations, c.NominalPosition.Elevation)
	}
	return h
}

// getExcluded computes the channel exclusion mask for a set of zones.
func (h *zoneExclusionHandler) getExcluded(zones []adm.Zone) []bool {
	excluded := make([]bool, h.numChannels)

	const epsilon = 1e-6

	for _, zone := range zones {
		switch z := zone.(type) {
		case adm.CartesianZone:
			for i, p := range h.positions {
				if p[0]-epsilon < z.MaxX && p[1]-epsilon < z.MaxY && p[2]-epsilon < z.MaxZ &&
					p[0]+epsilon > z.MinX && p[1]+epsilon > z.MinY && p[2]+epsilon > z.MinZ {
					excluded[i] = true
				}
			}
		case adm.PolarZone:
			for i := range h.positions {
				if !(h.elevations[i]-epsilon < z.MaxElevation && h.elevations[i]+epsilon > z.MinElevation) {
					continue
				}
				// speakers at the poles have indeterminate azimuth and
				// match any range
				if math.Abs(h.elevations[i]) > 90-epsilon ||
					geom.InsideAngleRange(h.azimuths[i], z.MinAzimuth, z.MaxAzimuth, epsilon) {
					excluded[i] = true
				}
			}
		}
	}

	return excluded
}

// handle applies zone exclusion to a gain vector, preserving power.
func (h *zoneExclusionHandler) handle(gains []float64, zones []adm.Zone) ([]float64, error) {
	excluded := h.getExcluded(zones)

	all := true
	any := false
	for _, e := range excluded {
		if e {
			any = true
		} else {
			all = false
		}
	}
	if any && all {
		return nil, ErrAllExcluded
	}

	downmix := h.zed.downmixForExcluded(excluded)

	out := make([]float64, h.numChannels)
	for j := range out {
		sum := 0.0
		for i, g := range gains {
			sum += g * g * downmix[i][j]
		}
		out[j] = math.Sqrt(sum)
	}
	return out, nil
}
