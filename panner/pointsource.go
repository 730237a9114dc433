// SPDX-License-Identifier: EPL-2.0

package panner

import (
	"fmt"
	"math"

	"github.com/ebu/ebu-adm-renderer/geom"
	"github.com/ebu/ebu-adm-renderer/layout"
)

// setScreenSpeakerNominalPositions sets the nominal positions of M+-SC
// to 45 degrees if they are wider than 30 degrees, otherwise 15. This
// keeps the triangulation consistent between the nominal and real
// loudspeaker positions when the ordering changes.
func setScreenSpeakerNominalPositions(l *layout.Layout) *layout.Layout {
	if l.ChannelIndex("M+SC") < 0 {
		return l
	}

	channels := make([]layout.Channel, len(l.Channels))
	copy(channels, l.Channels)
	for i := range channels {
		c := &channels[i]
		if c.Name != "M+SC" && c.Name != "M-SC" {
			continue
		}
		oldAz := c.PolarPosition.Azimuth
		newAz := 15.0
		if math.Abs(oldAz) > 30 {
			newAz = 45
		}
		if oldAz < 0 {
			newAz = -newAz
		}
		c.NominalPosition = geom.PolarPosition{Azimuth: newAz, Elevation: 0, Distance: 1}
	}

	return &layout.Layout{Name: l.Name, Channels: channels, Screen: l.Screen}
}

// checkScreenSpeakers checks that screen loudspeakers are within the
// ranges allowed by BS.2051.
func checkScreenSpeakers(l *layout.Layout) error {
	for i := range l.Channels {
		c := &l.Channels[i]
		if c.Name != "M+SC" && c.Name != "M-SC" {
			continue
		}
		absAz := math.Abs(c.PolarPosition.Azimuth)
		if !(5 <= absAz && absAz <= 25 || 35 <= absAz && absAz <= 60) {
			return fmt.Errorf("%w: channel %s has azimuth %v, which is not in the allowed ranges of 5 to 25 and 35 to 60 degrees",
				ErrBadScreenSpeaker, c.Name, c.PolarPosition.Azimuth)
		}
	}
	return nil
}

// extraPosVerticalNominal generates extra loudspeaker positions to fill
// gaps in the upper and lower layers, returning the extra channels and
// a downmix matrix from the extended channel set to the real channels.
//
// For each mid-layer loudspeaker with an azimuth wider than the range
// covered by a layer, a virtual speaker is added directly above or
// below it, downmixed straight back to the mid-layer speaker. The
// azimuth limit has some slack so that horizontal source movements do
// not cause fast vertical gain changes. Layers with no channels get a
// copy of all mid-layer speakers.
func extraPosVerticalNominal(l *layout.Layout) ([]layout.Channel, [][]float64) {
	var extra []layout.Channel

	type posInfo struct {
		nominalAz, nominalEl float64
		realAz, realEl       float64
	}
	pos := make([]posInfo, len(l.Channels))
	for i := range l.Channels {
		c := &l.Channels[i]
		pos[i] = posInfo{
			nominalAz: c.NominalPosition.Azimuth,
			nominalEl: c.NominalPosition.Elevation,
			realAz:    c.PolarPosition.Azimuth,
			realEl:    c.PolarPosition.Elevation,
		}
	}

	var downmixRows [][]float64
	for i := range l.Channels {
		row := make([]float64, len(l.Channels))
		row[i] = 1
		downmixRows = append(downmixRows, row)
	}

	mid := func(p posInfo) bool { return -10 <= p.nominalEl && p.nominalEl <= 10 }

	layers := []struct{ nominalEl, lb, ub float64 }{
		{-30, -70, -10},
		{30, 10, 70},
	}

	for _, layer := range layers {
		inLayer := func(p posInfo) bool { return layer.lb <= p.nominalEl && p.nominalEl <= layer.ub }

		azLimit := 0.0
		layerRealEl := layer.nominalEl
		count := 0
		azRange, elSum := 0.0, 0.0
		for _, p := range pos {
			if inLayer(p) {
				count++
				azRange = math.Max(azRange, math.Abs(p.nominalAz))
				elSum += p.realEl
			}
		}
		if count > 0 {
			azLimit = azRange + 40
			layerRealEl = elSum / float64(count)
		}

		for i, p := range pos {
			if !mid(p) {
				continue
			}
			const epsilon = 1e-5
			if math.Abs(p.nominalAz) < azLimit-epsilon {
				continue
			}

			extra = append(extra, layout.Channel{
				Name: "extra",
				PolarPosition: geom.PolarPosition{
					Azimuth: p.realAz, Elevation: layerRealEl, Distance: 1,
				},
				NominalPosition: geom.PolarPosition{
					Azimuth: p.nominalAz, Elevation: layer.nominalEl, Distance: 1,
				},
			})

			row := make([]float64, len(l.Channels))
			row[i] = 1
			downmixRows = append(downmixRows, row)
		}
	}

	// transpose to (real channels, extended channels)
	downmix := make([][]float64, len(l.Channels))
	for i := range downmix {
		downmix[i] = make([]float64, len(downmixRows))
		for j, row := range downmixRows {
			downmix[i][j] = row[i]
		}
	}

	return extra, downmix
}

func configureFull(l *layout.Layout) (*PointSourcePanner, error) {
	l = setScreenSpeakerNominalPositions(l)

	// extra height speakers are treated as real speakers until the
	// final downmix
	extraChannels, downmix := extraPosVerticalNominal(l)
	extended := append(append([]layout.Channel{}, l.Channels...), extraChannels...)

	// virtual speakers above and below act as the centres of virtual
	// ngons. No upper speaker is added for layouts with T+000 or
	// UH+180, as that speaker may be directly overhead, which would
	// cause a step in the gains as sources move.
	virtualPositions := []geom.Vec3{{0, 0, -1}}
	if l.ChannelIndex("T+000") < 0 && l.ChannelIndex("UH+180") < 0 {
		virtualPositions = append(virtualPositions, geom.Vec3{0, 0, 1})
	}

	var positionsNominal, positionsReal []geom.Vec3
	for i := range extended {
		positionsNominal = append(positionsNominal, extended[i].NominalVec())
		positionsReal = append(positionsReal, extended[i].NormPosition())
	}
	virtualStart := len(extended)
	positionsNominal = append(positionsNominal, virtualPositions...)
	positionsReal = append(positionsReal, virtualPositions...)

	isVirtual := func(v int) bool { return v >= virtualStart }

	facets := convexHullFacets(positionsNominal)

	var regions []regionHandler

	// facets adjacent to a virtual speaker become virtual ngons with an
	// equal-power downmix from the virtual speaker to the real ones
	for v := range virtualPositions {
		virtualVert := virtualStart + v
		realVerts := adjacentVerts(facets, virtualVert)
		for _, rv := range realVerts {
			if isVirtual(rv) {
				return nil, fmt.Errorf("%w: adjacent virtual speakers", ErrBadLayout)
			}
		}

		positions := make([]geom.Vec3, len(realVerts))
		centreDownmix := make([]float64, len(realVerts))
		for i, rv := range realVerts {
			positions[i] = positionsReal[rv]
			centreDownmix[i] = 1 / math.Sqrt(float64(len(realVerts)))
		}

		regions = append(regions, newVirtualNgon(realVerts, positions, positionsReal[virtualVert], centreDownmix))
	}

	// remaining facets become triplets or quads; the supported layouts
	// never produce larger facets
	for _, facet := range facets {
		touchesVirtual := false
		for _, v := range facet {
			if isVirtual(v) {
				touchesVirtual = true
				break
			}
		}
		if touchesVirtual {
			continue
		}

		switch len(facet) {
		case 3:
			regions = append(regions, newTriplet(
				[3]int{facet[0], facet[1], facet[2]},
				[3]geom.Vec3{positionsReal[facet[0]], positionsReal[facet[1]], positionsReal[facet[2]]},
			))
		case 4:
			regions = append(regions, newQuadRegion(
				[4]int{facet[0], facet[1], facet[2], facet[3]},
				[4]geom.Vec3{positionsReal[facet[0]], positionsReal[facet[1]], positionsReal[facet[2]], positionsReal[facet[3]]},
			))
		default:
			return nil, fmt.Errorf("%w: facet with %d vertices", ErrBadLayout, len(facet))
		}
	}

	return &PointSourcePanner{
		regions:   regions,
		nchannels: len(extended),
		downmix:   downmix,
	}, nil
}

func configureStereo(l *layout.Layout) (*PointSourcePanner, error) {
	left := l.ChannelIndex("M+030")
	right := l.ChannelIndex("M-030")
	if left < 0 || right < 0 {
		return nil, fmt.Errorf("%w: 0+2+0 needs M+030 and M-030", ErrBadLayout)
	}

	inner, err := layout.Get("0+5+0")
	if err != nil {
		return nil, err
	}
	psp, err := configureFull(inner.WithoutLFE())
	if err != nil {
		return nil, err
	}

	return &PointSourcePanner{
		regions:   []regionHandler{&stereoPanDownmix{left: left, right: right, psp: psp}},
		nchannels: len(l.Channels),
	}, nil
}

// Configure builds a point source panner for a loudspeaker layout,
// producing gains in the same order as the layout's channels. The
// layout must not contain LFE channels.
func Configure(l *layout.Layout) (*PointSourcePanner, error) {
	for i := range l.Channels {
		if l.Channels[i].IsLFE {
			return nil, fmt.Errorf("%w: LFE channel passed to point source panner", ErrBadLayout)
		}
	}

	if err := checkScreenSpeakers(l); err != nil {
		return nil, err
	}

	if l.Name == "0+2+0" {
		return configureStereo(l)
	}
	return configureFull(l)
}
