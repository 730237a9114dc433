// SPDX-License-Identifier: EPL-2.0

package layout

import (
	"fmt"

	"github.com/ebu/ebu-adm-renderer/geom"
)

// Channel is one loudspeaker in a layout, with a name, real and nominal
// positions, allowed azimuth and elevation ranges, and an LFE flag.
//
// The azimuth range is interpreted as starting at AzRange[0] and moving
// anticlockwise to AzRange[1]; the elevation range from ElRange[0] up
// to ElRange[1].
type Channel struct {
	Name            string
	PolarPosition   geom.PolarPosition
	NominalPosition geom.PolarPosition
	AzRange         [2]float64
	ElRange         [2]float64
	IsLFE           bool
}

func (c *Channel) Position() geom.Vec3        { return c.PolarPosition.Cartesian() }
func (c *Channel) NormPosition() geom.Vec3    { return c.PolarPosition.NormPosition() }
func (c *Channel) NominalVec() geom.Vec3      { return c.NominalPosition.Cartesian() }

// CheckPosition calls callback with an error message if the real
// position is outside the allowed azimuth or elevation ranges.
func (c *Channel) CheckPosition(callback func(string)) {
	if !geom.InsideAngleRange(c.PolarPosition.Azimuth, c.AzRange[0], c.AzRange[1], 0) {
		callback(fmt.Sprintf("%s: azimuth %v out of range [%v, %v].",
			c.Name, c.PolarPosition.Azimuth, c.AzRange[0], c.AzRange[1]))
	}
	if !(c.ElRange[0] <= c.PolarPosition.Elevation && c.PolarPosition.Elevation <= c.ElRange[1]) {
		callback(fmt.Sprintf("%s: elevation %v out of range [%v, %v].",
			c.Name, c.PolarPosition.Elevation, c.ElRange[0], c.ElRange[1]))
	}
}

// Layout is a loudspeaker layout: a BS.2051 name, an ordered list of
// channels, and the screen to use for screen-related content.
type Layout struct {
	Name     string
	Channels []Channel
	Screen   geom.Screen
}

// Positions of all channels as Cartesian vectors.
func (l *Layout) Positions() []geom.Vec3 {
	out := make([]geom.Vec3, len(l.Channels))
	for i := range l.Channels {
		out[i] = l.Channels[i].Position()
	}
	return out
}

// NormPositions of all channels, projected onto the unit sphere.
func (l *Layout) NormPositions() []geom.Vec3 {
	out := make([]geom.Vec3, len(l.Channels))
	for i := range l.Channels {
		out[i] = l.Channels[i].NormPosition()
	}
	return out
}

// NominalPositions of all channels as Cartesian vectors.
func (l *Layout) NominalPositions() []geom.Vec3 {
	out := make([]geom.Vec3, len(l.Channels))
	for i := range l.Channels {
		out[i] = l.Channels[i].NominalVec()
	}
	return out
}

// WithoutLFE returns the same layout with LFE channels removed.
func (l *Layout) WithoutLFE() *Layout {
	channels := make([]Channel, 0, len(l.Channels))
	for _, c := range l.Channels {
		if !c.IsLFE {
			channels = append(channels, c)
		}
	}
	return &Layout{Name: l.Name, Channels: channels, Screen: l.Screen}
}

// IsLFE returns a mask selecting the LFE channels.
func (l *Layout) IsLFE() []bool {
	out := make([]bool, len(l.Channels))
	for i := range l.Channels {
		out[i] = l.Channels[i].IsLFE
	}
	return out
}

// ChannelNames in layout order.
func (l *Layout) ChannelNames() []string {
	out := make([]string, len(l.Channels))
	for i := range l.Channels {
		out[i] = l.Channels[i].Name
	}
	return out
}

// ChannelIndex returns the index of the named channel, or -1.
func (l *Layout) ChannelIndex(name string) int {
	for i := range l.Channels {
		if l.Channels[i].Name == name {
			return i
		}
	}
	return -1
}

// CheckPositions calls callback with error messages for any channel
// positions that are out of range.
func (l *Layout) CheckPositions(callback func(string)) {
	for i := range l.Channels {
		l.Channels[i].CheckPosition(callback)
	}
}

// Speaker is a real-world loudspeaker: an output channel number, the
// BS.2051 channel names it should handle, an optional measured
// position, and a linear gain.
type Speaker struct {
	Channel       int
	Names         []string
	PolarPosition *geom.PolarPosition
	GainLinear    float64
}

// RealLayout is a complete listening environment onto which a standard
// layout is mapped.
type RealLayout struct {
	Speakers []Speaker
	Screen   geom.Screen
}

// WithSpeakers remaps the layout's channel positions to those in
// speakers and produces an upmix matrix from layout channels to output
// channel numbers. The matrix may have missing or duplicate entries
// depending on the speaker list; see CheckUpmixMatrix.
func (l *Layout) WithSpeakers(speakers []Speaker) (*Layout, [][]float64) {
	findSpeaker := func(name string) *Speaker {
		for i := range speakers {
			for _, n := range speakers[i].Names {
				if n == name {
					return &speakers[i]
				}
			}
		}
		return nil
	}

	outChannels := 0
	for _, s := range speakers {
		if s.Channel+1 > outChannels {
			outChannels = s.Channel + 1
		}
	}

	upmix := make([][]float64, outChannels)
	for i := range upmix {
		upmix[i] = make([]float64, len(l.Channels))
	}

	newChannels := make([]Channel, len(l.Channels))
	copy(newChannels, l.Channels)

	for i := range newChannels {
		if s := findSpeaker(newChannels[i].Name); s != nil {
			upmix[s.Channel][i] = s.GainLinear
			if s.PolarPosition != nil {
				newChannels[i].PolarPosition = *s.PolarPosition
			}
		}
	}

	return &Layout{Name: l.Name, Channels: newChannels, Screen: l.Screen}, upmix
}

// WithRealLayout incorporates speaker positions and screen information
// from a real layout; see WithSpeakers for the upmix matrix semantics.
func (l *Layout) WithRealLayout(real RealLayout) (*Layout, [][]float64) {
	var (
		newLayout *Layout
		upmix     [][]float64
	)
	if real.Speakers != nil {
		newLayout, upmix = l.WithSpeakers(real.Speakers)
	} else {
		newLayout = &Layout{Name: l.Name, Channels: l.Channels, Screen: l.Screen}
		upmix = make([][]float64, len(l.Channels))
		for i := range upmix {
			upmix[i] = make([]float64, len(l.Channels))
			upmix[i][i] = 1
		}
	}

	newLayout.Screen = real.Screen
	return newLayout, upmix
}

// CheckUpmixMatrix calls callback with error messages for routing
// problems: each layout channel should feed exactly one output, and
// each output should be fed by at most one channel.
func (l *Layout) CheckUpmixMatrix(upmix [][]float64, callback func(string)) {
	for i, c := range l.Channels {
		outputs := 0
		for _, row := range upmix {
			if row[i] != 0 {
				outputs++
			}
		}
		if outputs == 0 {
			callback(fmt.Sprintf("Channel %s not mapped to any output.", c.Name))
		}
		if outputs > 1 {
			callback(fmt.Sprintf("Channel %s mapped to multiple outputs.", c.Name))
		}
	}

	for speaker, row := range upmix {
		var names []string
		for i, coeff := range row {
			if coeff != 0 {
				names = append(names, l.Channels[i].Name)
			}
		}
		if len(names) > 1 {
			callback(fmt.Sprintf("Speaker idx %d used by multiple channels: %v", speaker, names))
		}
	}
}
