// SPDX-License-Identifier: EPL-2.0

package render

import (
	"fmt"
	"math"
	"regexp"
	"strings"

	"github.com/ebu/ebu-adm-renderer/adm"
	"github.com/ebu/ebu-adm-renderer/geom"
	"github.com/ebu/ebu-adm-renderer/layout"
	"github.com/ebu/ebu-adm-renderer/panner"
)

// mappingRule remaps a speaker label to a set of output gains if all
// the named output loudspeakers exist and the input/output layouts
// match.
type mappingRule struct {
	speakerLabel  string
	gains         []labelGain
	inputLayouts  []string
	outputLayouts []string
}

type labelGain struct {
	label string
	gain  float64
}

func (r *mappingRule) apply(inputLayout, speakerLabel string, output *layout.Layout) []labelGain {
	if r.inputLayouts != nil && !contains(r.inputLayouts, inputLayout) {
		return nil
	}
	if r.outputLayouts != nil && !contains(r.outputLayouts, output.Name) {
		return nil
	}
	if speakerLabel != r.speakerLabel {
		return nil
	}
	for _, g := range r.gains {
		if output.ChannelIndex(g.label) < 0 {
			return nil
		}
	}
	return r.gains
}

func contains(list []string, s string) bool {
	for _, x := range list {
		if x == s {
			return true
		}
	}
	return false
}

func gainsOf(pairs ...any) []labelGain {
	out := make([]labelGain, 0, len(pairs)/2)
	for i := 0; i < len(pairs); i += 2 {
		out = append(out, labelGain{label: pairs[i].(string), gain: pairs[i+1].(float64)})
	}
	return out
}

// opposite name of a channel: + and - swapped, except at 0 and 180
func oppositeName(name string) string {
	if strings.HasSuffix(name, "000") || strings.HasSuffix(name, "180") {
		return name
	}
	if strings.Contains(name, "+") {
		return strings.Replace(name, "+", "-", 1)
	}
	return strings.Replace(name, "-", "+", 1)
}

// addSymmetricRules expands the rule set with the mirror image of each
// rule, skipping mirrors that would have the same effect.
func addSymmetricRules(rules []mappingRule) []mappingRule {
	var out []mappingRule
	for _, rule := range rules {
		out = append(out, rule)

		mirrored := mappingRule{
			speakerLabel:  oppositeName(rule.speakerLabel),
			inputLayouts:  rule.inputLayouts,
			outputLayouts: rule.outputLayouts,
		}
		for _, g := range rule.gains {
			mirrored.gains = append(mirrored.gains, labelGain{label: oppositeName(g.label), gain: g.gain})
		}

		if rule.speakerLabel != mirrored.speakerLabel || !sameGains(rule.gains, mirrored.gains) {
			out = append(out, mirrored)
		}
	}
	return out
}

func sameGains(a, b []labelGain) bool {
	if len(a) != len(b) {
		return false
	}
	used := make([]bool, len(b))
	for _, ga := range a {
		found := false
		for i, gb := range b {
			if !used[i] && ga == gb {
				used[i] = true
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

var sqrt = math.Sqrt

// mapping rules from BS.2127 section 8.4, expanded symmetrically
var mappingRules = addSymmetricRules([]mappingRule{
	{speakerLabel: "M+000", gains: gainsOf("M+000", 1.0)},
	{speakerLabel: "M+000", gains: gainsOf("M+030", sqrt(0.5), "M-030", sqrt(0.5))},

	{speakerLabel: "M+060", gains: gainsOf("M+060", 1.0)},
	{speakerLabel: "M+060", gains: gainsOf("M+030", sqrt(2.0/3.0), "M+110", sqrt(1.0/3.0))},
	{speakerLabel: "M+060", gains: gainsOf("M+030", sqrt(0.5), "M+090", sqrt(0.5))},
	{speakerLabel: "M+060", gains: gainsOf("M+030", 1.0)},

	{speakerLabel: "M+090", gains: gainsOf("M+090", 1.0)},
	{speakerLabel: "M+090", gains: gainsOf("M+030", sqrt(1.0/3.0), "M+110", sqrt(2.0/3.0)), inputLayouts: []string{"9+10+3"}},
	{speakerLabel: "M+090", gains: gainsOf("M+030", sqrt(0.5), "M+110", sqrt(0.5))},
	{speakerLabel: "M+090", gains: gainsOf("M+030", sqrt(0.5))},

	{speakerLabel: "M+110", gains: gainsOf("M+110", 1.0)},
	{speakerLabel: "M+110", gains: gainsOf("M+135", 1.0)},
	{speakerLabel: "M+110", gains: gainsOf("M+030", sqrt(0.5))},

	{speakerLabel: "M+135", gains: gainsOf("M+135", 1.0)},
	{speakerLabel: "M+135", gains: gainsOf("M+110", 1.0)},
	{speakerLabel: "M+135", gains: gainsOf("M+030", sqrt(0.5))},

	{speakerLabel: "M+180", gains: gainsOf("M+180", 1.0)},
	{speakerLabel: "M+180", gains: gainsOf("M+135", sqrt(0.5), "M-135", sqrt(0.5))},
	{speakerLabel: "M+180", gains: gainsOf("M+110", sqrt(0.5), "M-110", sqrt(0.5))},
	{speakerLabel: "M+180", gains: gainsOf("M+030", sqrt(0.25), "M-030", sqrt(0.25))},

	{speakerLabel: "U+000", gains: gainsOf("U+000", 1.0)},
	{speakerLabel: "U+000", gains: gainsOf("U+030", sqrt(0.5), "U-030", sqrt(0.5))},
	{speakerLabel: "U+000", gains: gainsOf("U+045", sqrt(0.5), "U-045", sqrt(0.5))},
	{speakerLabel: "U+000", gains: gainsOf("M+000", 1.0)},
	{speakerLabel: "U+000", gains: gainsOf("M+030", sqrt(0.5), "M-030", sqrt(0.5))},

	{speakerLabel: "U+030", gains: gainsOf("U+030", 1.0)},
	{speakerLabel: "U+030", gains: gainsOf("U+045", 1.0)},
	{speakerLabel: "U+030", gains: gainsOf("M+030", 1.0)},

	{speakerLabel: "U+045", gains: gainsOf("U+045", 1.0)},
	{speakerLabel: "U+045", gains: gainsOf("U+030", 1.0)},
	{speakerLabel: "U+045", gains: gainsOf("M+030", 1.0)},

	{speakerLabel: "U+090", gains: gainsOf("U+090", 1.0)},
	{speakerLabel: "U+090", gains: gainsOf("U+045", sqrt(2.0/3.0), "UH+180", sqrt(1.0/3.0)), inputLayouts: []string{"9+10+3"}},
	{speakerLabel: "U+090", gains: gainsOf("U+030", sqrt(0.5), "U+110", sqrt(0.5))},
	{speakerLabel: "U+090", gains: gainsOf("U+045", sqrt(0.5), "U+135", sqrt(0.5))},
	{speakerLabel: "U+090", gains: gainsOf("M+090", 1.0)},
	{speakerLabel: "U+090", gains: gainsOf("U+030", sqrt(0.5), "M+110", sqrt(0.5))},
	{speakerLabel: "U+090", gains: gainsOf("M+030", sqrt(0.5), "M+110", sqrt(0.5))},
	{speakerLabel: "U+090", gains: gainsOf("M+030", sqrt(0.5))},

	{speakerLabel: "U+110", gains: gainsOf("U+110", 1.0)},
	{speakerLabel: "U+110", gains: gainsOf("U+135", 1.0)},
	{speakerLabel: "U+110", gains: gainsOf("U+045", sqrt(0.5), "UH+180", sqrt(0.5))},
	{speakerLabel: "U+110", gains: gainsOf("M+110", 1.0)},
	{speakerLabel: "U+110", gains: gainsOf("M+135", 1.0)},
	{speakerLabel: "U+110", gains: gainsOf("M+030", sqrt(0.5))},

	{speakerLabel: "U+135", gains: gainsOf("U+135", 1.0)},
	{speakerLabel: "U+135", gains: gainsOf("U+110", 1.0)},
	{speakerLabel: "U+135", gains: gainsOf("U+045", sqrt(1.0/3.0), "UH+180", sqrt(2.0/3.0)), inputLayouts: []string{"9+10+3"}},
	{speakerLabel: "U+135", gains: gainsOf("U+045", sqrt(0.5), "UH+180", sqrt(0.5))},
	{speakerLabel: "U+135", gains: gainsOf("M+135", 1.0)},
	{speakerLabel: "U+135", gains: gainsOf("M+110", 1.0)},
	{speakerLabel: "U+135", gains: gainsOf("M+030", sqrt(0.5))},

	{speakerLabel: "U+180", gains: gainsOf("U+180", 1.0)},
	{speakerLabel: "U+180", gains: gainsOf("UH+180", 1.0)},
	{speakerLabel: "U+180", gains: gainsOf("U+135", sqrt(0.5), "U-135", sqrt(0.5))},
	{speakerLabel: "U+180", gains: gainsOf("U+110", sqrt(0.5), "U-110", sqrt(0.5))},
	{speakerLabel: "U+180", gains: gainsOf("M+135", sqrt(0.5), "M-135", sqrt(0.5))},
	{speakerLabel: "U+180", gains: gainsOf("M+110", sqrt(0.5), "M-110", sqrt(0.5))},
	{speakerLabel: "U+180", gains: gainsOf("M+030", sqrt(0.25), "M-030", sqrt(0.25))},

	{speakerLabel: "UH+180", gains: gainsOf("UH+180", 1.0)},
	{speakerLabel: "UH+180", gains: gainsOf("U+180", 1.0)},
	{speakerLabel: "UH+180", gains: gainsOf("U+135", sqrt(0.5), "U-135", sqrt(0.5))},
	{speakerLabel: "UH+180", gains: gainsOf("U+110", sqrt(0.5), "U-110", sqrt(0.5))},
	{speakerLabel: "UH+180", gains: gainsOf("M+135", sqrt(0.5), "M-135", sqrt(0.5))},
	{speakerLabel: "UH+180", gains: gainsOf("M+110", sqrt(0.5), "M-110", sqrt(0.5))},
	{speakerLabel: "UH+180", gains: gainsOf("M+030", sqrt(0.25), "M-030", sqrt(0.25))},

	{speakerLabel: "T+000", gains: gainsOf("T+000", 1.0)},
	{speakerLabel: "T+000", gains: gainsOf("U+045", sqrt(0.25), "U-045", sqrt(0.25), "U+135", sqrt(0.25), "U-135", sqrt(0.25))},
	{speakerLabel: "T+000", gains: gainsOf("U+030", sqrt(0.25), "U-030", sqrt(0.25), "U+110", sqrt(0.25), "U-110", sqrt(0.25))},
	{speakerLabel: "T+000", gains: gainsOf("U+045", sqrt(1.0/3.0), "U-045", sqrt(1.0/3.0), "UH+180", sqrt(1.0/3.0))},
	{speakerLabel: "T+000", gains: gainsOf("U+045", sqrt(0.25), "U-045", sqrt(0.25), "M+135", sqrt(0.25), "M-135", sqrt(0.25))},
	{speakerLabel: "T+000", gains: gainsOf("U+030", sqrt(0.25), "U-030", sqrt(0.25), "M+110", sqrt(0.25), "M-110", sqrt(0.25))},
	{speakerLabel: "T+000", gains: gainsOf("M+030", sqrt(0.25), "M-030", sqrt(0.25), "M+135", sqrt(0.25), "M-135", sqrt(0.25))},
	{speakerLabel: "T+000", gains: gainsOf("M+030", sqrt(0.25), "M-030", sqrt(0.25), "M+110", sqrt(0.25), "M-110", sqrt(0.25))},
	{speakerLabel: "T+000", gains: gainsOf("M+030", sqrt(0.25), "M-030", sqrt(0.25))},

	{speakerLabel: "B+000", gains: gainsOf("B+000", 1.0)},
	{speakerLabel: "B+000", gains: gainsOf("M+000", 1.0)},
	{speakerLabel: "B+000", gains: gainsOf("M+030", sqrt(0.5), "M-030", sqrt(0.5))},

	{speakerLabel: "B+045", gains: gainsOf("B+045", 1.0)},
	{speakerLabel: "B+045", gains: gainsOf("M+030", 1.0)},

	{speakerLabel: "LFE1", gains: gainsOf("LFE1", 1.0), inputLayouts: []string{"9+10+3", "3+7+0"}, outputLayouts: []string{"9+10+3", "3+7+0"}},
	{speakerLabel: "LFE2", gains: gainsOf("LFE2", 1.0), inputLayouts: []string{"9+10+3", "3+7+0"}, outputLayouts: []string{"9+10+3", "3+7+0"}},
	{speakerLabel: "LFE1", gains: gainsOf("LFE1", sqrt(0.5)), inputLayouts: []string{"9+10+3", "3+7+0"}},
	{speakerLabel: "LFE2", gains: gainsOf("LFE1", sqrt(0.5)), inputLayouts: []string{"9+10+3", "3+7+0"}},

	{speakerLabel: "LFE1", gains: gainsOf("LFE1", 1.0)},
})

var speakerURNRegex = regexp.MustCompile(`^urn:itu:bs:2051:[0-9]+:speaker:(.*)$`)

// isLFEFrequency reports whether frequency metadata marks an LFE
// channel, warning when frequency information is present but not
// recognised.
func isLFEFrequency(frequency adm.Frequency, warner adm.Warner) bool {
	if frequency.LowPass != nil && *frequency.LowPass <= 200 && frequency.HighPass == nil {
		return true
	}
	if (frequency.LowPass != nil || frequency.HighPass != nil) && warner != nil {
		warner.Warn("not treating channel with frequency information as LFE")
	}
	return false
}

// DirectSpeakersPanner maps DirectSpeakers blocks to output channel
// gains.
type DirectSpeakersPanner struct {
	layout *layout.Layout
	warner adm.Warner

	psp     *panner.PointSourcePanner
	alloPsp *panner.AllocentricPanner

	nChannels     int
	channelNames  []string
	azimuths      []float64
	elevations    []float64
	distances     []float64
	positions     []geom.Vec3
	alloPositions []geom.Vec3
	isLFE         []bool

	edgeLock      *screenEdgeLockHandler
	substitutions map[string]string
}

func NewDirectSpeakersPanner(l *layout.Layout, warner adm.Warner) (*DirectSpeakersPanner, error) {
	psp, err := panner.Configure(l.WithoutLFE())
	if err != nil {
		return nil, err
	}
	alloPsp, err := panner.ConfigureAllocentric(l.WithoutLFE())
	if err != nil {
		return nil, err
	}
	alloPositions, err := panner.PositionsForLayout(l)
	if err != nil {
		return nil, err
	}
	edgeLock, err := newScreenEdgeLockHandler(l.Screen, l)
	if err != nil {
		return nil, err
	}

	p := &DirectSpeakersPanner{
		layout:        l,
		warner:        warner,
		psp:           psp,
		alloPsp:       alloPsp,
		nChannels:     len(l.Channels),
		channelNames:  l.ChannelNames(),
		alloPositions: alloPositions,
		isLFE:         l.IsLFE(),
		edgeLock:      edgeLock,
		substitutions: map[string]string{
			"LFE":  "LFE1",
			"LFEL": "LFE1",
			"LFER": "LFE2",
		},
	}
	for i := range l.Channels {
		c := &l.Channels[i]
		p.azimuths = append(p.azimuths, c.NominalPosition.Azimuth)
		p.elevations = append(p.elevations, c.NominalPosition.Elevation)
		p.distances = append(p.distances, c.NominalPosition.Distance)
		p.positions = append(p.positions, c.NominalVec())
	}
	return p, nil
}

// nominalSpeakerLabel parses URNs and substitutes alternative LFE
// notations.
func (p *DirectSpeakersPanner) nominalSpeakerLabel(label string) string {
	if m := speakerURNRegex.FindStringSubmatch(label); m != nil {
		label = m[1]
	}
	if sub, ok := p.substitutions[label]; ok {
		label = sub
	}
	return label
}

// channelsWithinBounds returns the mask of channels inside the bounded
// position.
func (p *DirectSpeakersPanner) channelsWithinBounds(position adm.DirectSpeakersPosition, tol float64) []bool {
	within := make([]bool, p.nChannels)

	switch pos := position.(type) {
	case adm.DSPolarPosition:
		azMin, azMax := pos.BoundedAzimuth.MinMax()
		elMin, elMax := pos.BoundedElevation.MinMax()
		distMin, distMax := pos.BoundedDistance.MinMax()

		for i := range p.nChannels {
			azOK := geom.InsideAngleRange(p.azimuths[i], azMin, azMax, tol) ||
				// speakers at the poles match any azimuth range
				math.Abs(p.elevations[i]) >= 90-tol
			within[i] = azOK &&
				p.elevations[i] > elMin-tol && p.elevations[i] < elMax+tol &&
				p.distances[i] > distMin-tol && p.distances[i] < distMax+tol
		}
	case adm.DSCartesianPosition:
		xMin, xMax := pos.BoundedX.MinMax()
		yMin, yMax := pos.BoundedY.MinMax()
		zMin, zMax := pos.BoundedZ.MinMax()

		for i := range p.nChannels {
			ap := p.alloPositions[i]
			within[i] = ap[0]+tol >= xMin && ap[0]-tol <= xMax &&
				ap[1]+tol >= yMin && ap[1]-tol <= yMax &&
				ap[2]+tol >= zMin && ap[2]-tol <= zMax
		}
	}
	return within
}

// closestChannelIndex finds the candidate speaker closest to the
// position, or -1 when no unique closest speaker exists.
func (p *DirectSpeakersPanner) closestChannelIndex(positions []geom.Vec3, target geom.Vec3, candidates []bool, tol float64) int {
	best := -1
	bestDist := 0.0
	ties := 0
	for i, ok := range candidates {
		if !ok {
			continue
		}
		d := positions[i].Sub(target).Norm()
		switch {
		case best < 0 || d < bestDist-tol:
			best = i
			bestDist = d
			ties = 1
		case math.Abs(d-bestDist) < tol:
			ties++
		}
	}
	if ties != 1 {
		return -1
	}
	return best
}

func (p *DirectSpeakersPanner) isLFEChannel(meta *DirectSpeakersTypeMetadata) bool {
	hasLFEFreq := isLFEFrequency(meta.ExtraData.ChannelFrequency, p.warner)

	hasLFEName := false
	for _, label := range meta.BlockFormat.SpeakerLabels {
		nominal := p.nominalSpeakerLabel(label)
		if nominal == "LFE1" || nominal == "LFE2" {
			hasLFEName = true
		}
	}

	if hasLFEFreq != hasLFEName && len(meta.BlockFormat.SpeakerLabels) > 0 && p.warner != nil {
		p.warner.Warn("LFE indication from frequency element does not match speakerLabel")
	}

	return hasLFEFreq || hasLFEName
}

// applyScreenEdgeLock shifts the nominal position in the block to the
// screen edges when requested.
func (p *DirectSpeakersPanner) applyScreenEdgeLock(position adm.DirectSpeakersPosition) (adm.DirectSpeakersPosition, geom.Vec3) {
	switch pos := position.(type) {
	case adm.DSPolarPosition:
		az, el := p.edgeLock.handleAzEl(pos.BoundedAzimuth.Value, pos.BoundedElevation.Value, pos.ScreenEdgeLock)
		pos.BoundedAzimuth.Value = az
		pos.BoundedElevation.Value = el
		return pos, geom.Cart(az, el, pos.BoundedDistance.Value)
	case adm.DSCartesianPosition:
		v := p.edgeLock.handleVector(geom.Vec3{pos.BoundedX.Value, pos.BoundedY.Value, pos.BoundedZ.Value},
			pos.ScreenEdgeLock, true)
		pos.BoundedX.Value = v[0]
		pos.BoundedY.Value = v[1]
		pos.BoundedZ.Value = v[2]
		return pos, v
	default:
		panic("render: unknown DirectSpeakers position type")
	}
}

func oneHot(n, index int) []float64 {
	out := make([]float64, n)
	out[index] = 1
	return out
}

// Handle computes the output gain vector for one DirectSpeakers block.
func (p *DirectSpeakersPanner) Handle(meta *DirectSpeakersTypeMetadata) ([]float64, error) {
	const tol = 1e-5

	block := meta.BlockFormat

	_, isCartesian := block.Position.(adm.DSCartesianPosition)

	isLFEChannel := p.isLFEChannel(meta)

	if !isLFEChannel && p.warner != nil {
		for _, label := range block.SpeakerLabels {
			if strings.Contains(strings.ToUpper(label), "LFE") {
				p.warner.Warn(fmt.Sprintf("block %s not being treated as LFE, but has 'LFE' in a speakerLabel; use an ITU speakerLabel or audioChannelFormat frequency element instead", block.ID))
				break
			}
		}
	}

	// input layouts from the common definitions use the mapping rules
	if len(meta.AudioPackFormats) > 0 {
		pack := meta.AudioPackFormats[len(meta.AudioPackFormats)-1]
		if ituLayout, ok := adm.ITULayoutName(pack.ID); ok && pack.IsCommonDefinition && len(block.SpeakerLabels) > 0 {
			nominal := p.nominalSpeakerLabel(block.SpeakerLabels[0])

			for i := range mappingRules {
				gains := mappingRules[i].apply(ituLayout, nominal, p.layout)
				if gains == nil {
					continue
				}
				pv := make([]float64, p.nChannels)
				for _, g := range gains {
					pv[p.layout.ChannelIndex(g.label)] = g.gain
				}
				return pv, nil
			}
		}
	}

	// a speakerLabel naming a layout channel of the right type routes
	// directly; earlier labels have higher priority
	for _, label := range block.SpeakerLabels {
		nominal := p.nominalSpeakerLabel(label)
		if idx := p.layout.ChannelIndex(nominal); idx >= 0 && p.isLFE[idx] == isLFEChannel {
			return oneHot(p.nChannels, idx), nil
		}
	}

	shifted, shiftedVec := p.applyScreenEdgeLock(block.Position)

	// otherwise find the closest speaker of the right type within the
	// given bounds
	positions := p.positions
	if isCartesian {
		positions = p.alloPositions
	}

	within := p.channelsWithinBounds(shifted, tol)
	for i := range within {
		within[i] = within[i] && p.isLFE[i] == isLFEChannel
	}
	any := false
	for _, w := range within {
		if w {
			any = true
			break
		}
	}
	if any {
		if closest := p.closestChannelIndex(positions, shiftedVec, within, tol); closest >= 0 {
			return oneHot(p.nChannels, closest), nil
		}
	}

	// LFE channels without a match fall back to LFE1 or are discarded;
	// others go through the point source panner
	if isLFEChannel {
		if idx := p.layout.ChannelIndex("LFE1"); idx >= 0 {
			return oneHot(p.nChannels, idx), nil
		}
		return make([]float64, p.nChannels), nil
	}

	var gains []float64
	if isCartesian {
		gains = p.alloPsp.Handle(shiftedVec)
	} else {
		gains = p.psp.Handle(shiftedVec)
	}

	pv := make([]float64, p.nChannels)
	idx := 0
	for ch, lfe := range p.isLFE {
		if !lfe {
			pv[ch] = gains[idx]
			idx++
		}
	}
	return pv, nil
}

// interpretDirectSpeakersMetadata yields one fixed-gain block per
// metadata block.
type interpretDirectSpeakersMetadata struct {
	timingInterpreter
	calcGains func(*DirectSpeakersTypeMetadata) ([]float64, error)
}

func (i *interpretDirectSpeakersMetadata) interpret(sampleRate int, tm TypeMetadata) ([]processingBlock, error) {
	block := tm.(*DirectSpeakersTypeMetadata)
	bf := block.BlockFormat

	start, end, err := i.blockStartEnd(block.ExtraData, bf.Rtime, bf.Duration, bf.ID)
	if err != nil {
		return nil, err
	}

	gains, err := i.calcGains(block)
	if err != nil {
		return nil, err
	}

	// apply the block gain on top of the routing gains
	for ch := range gains {
		gains[ch] *= bf.Gain
	}

	return []processingBlock{&fixedGains{
		blockTiming: newBlockTiming(timeToSamplePos(start, sampleRate), endSamplePos(end, sampleRate)),
		gains:       gains,
	}}, nil
}

// DirectSpeakersRenderer renders DirectSpeakers items.
type DirectSpeakersRenderer struct {
	panner    *DirectSpeakersPanner
	nchannels int
	channels  []objectChannel
}

func NewDirectSpeakersRenderer(l *layout.Layout, warner adm.Warner) (*DirectSpeakersRenderer, error) {
	p, err := NewDirectSpeakersPanner(l, warner)
	if err != nil {
		return nil, err
	}
	return &DirectSpeakersRenderer{panner: p, nchannels: len(l.Channels)}, nil
}

// SetRenderingItems sets the items to process; this resets the internal
// state, so it should be called once before rendering starts.
func (r *DirectSpeakersRenderer) SetRenderingItems(items []*DirectSpeakersRenderingItem) {
	r.channels = nil
	for _, item := range items {
		interpreter := &interpretDirectSpeakersMetadata{calcGains: r.panner.Handle}
		r.channels = append(r.channels, objectChannel{
			track: &trackChannel{processor: NewTrackProcessor(item.TrackSpec)},
			proc:  newBlockProcessingChannel(item.MetadataSource, interpreter.interpret),
		})
	}
}

// Render processes nFrames of interleaved input samples.
func (r *DirectSpeakersRenderer) Render(sampleRate int, startSample int64, input []float64, inChannels, nFrames int) ([]float64, error) {
	output := make([]float64, nFrames*r.nchannels)
	for _, ch := range r.channels {
		trackSamples := ch.track.processor.Process(sampleRate, input, inChannels, nFrames)
		if err := ch.proc.process(sampleRate, startSample, trackSamples, output, r.nchannels); err != nil {
			return nil, err
		}
	}
	return output, nil
}
