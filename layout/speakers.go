// SPDX-License-Identifier: EPL-2.0

package layout

import (
	"fmt"
	"io"

	"gopkg.in/yaml.v3"

	"github.com/ebu/ebu-adm-renderer/geom"
)

type yamlSpeakerPosition struct {
	Az *float64 `yaml:"az"`
	El *float64 `yaml:"el"`
	R  *float64 `yaml:"r"`
	X  *float64 `yaml:"X"`
	Y  *float64 `yaml:"Y"`
	Z  *float64 `yaml:"Z"`
}

type yamlSpeaker struct {
	Channel    int                  `yaml:"channel"`
	Names      yaml.Node            `yaml:"names"`
	Position   *yamlSpeakerPosition `yaml:"position"`
	GainLinear *float64             `yaml:"gain_linear"`
}

type yamlScreen struct {
	Type           string              `yaml:"type"`
	AspectRatio    float64             `yaml:"aspectRatio"`
	CentrePosition yamlSpeakerPosition `yaml:"centrePosition"`
	WidthAzimuth   float64             `yaml:"widthAzimuth"`
	WidthX         float64             `yaml:"widthX"`
}

type yamlRealLayout struct {
	Speakers []yamlSpeaker `yaml:"speakers"`
	Screen   *yamlScreen   `yaml:"screen"`
}

func parsePolarPosition(p yamlSpeakerPosition) (geom.PolarPosition, error) {
	if p.Az == nil || p.El == nil || p.R == nil {
		return geom.PolarPosition{}, fmt.Errorf("%w: polar positions need az, el and r", ErrBadSpeakersFile)
	}
	return geom.PolarPosition{Azimuth: *p.Az, Elevation: *p.El, Distance: *p.R}, nil
}

func parseCartPosition(p yamlSpeakerPosition) (geom.CartesianPosition, error) {
	if p.X == nil || p.Y == nil || p.Z == nil {
		return geom.CartesianPosition{}, fmt.Errorf("%w: Cartesian positions need X, Y and Z", ErrBadSpeakersFile)
	}
	return geom.CartesianPosition{X: *p.X, Y: *p.Y, Z: *p.Z}, nil
}

func parseSpeaker(ys yamlSpeaker) (Speaker, error) {
	s := Speaker{Channel: ys.Channel, GainLinear: 1}

	// names may be a single string or a list of strings
	switch ys.Names.Kind {
	case yaml.ScalarNode:
		var name string
		if err := ys.Names.Decode(&name); err != nil {
			return s, fmt.Errorf("%w: %v", ErrBadSpeakersFile, err)
		}
		s.Names = []string{name}
	case yaml.SequenceNode:
		if err := ys.Names.Decode(&s.Names); err != nil {
			return s, fmt.Errorf("%w: %v", ErrBadSpeakersFile, err)
		}
	default:
		return s, fmt.Errorf("%w: speaker names must be a string or list", ErrBadSpeakersFile)
	}

	if ys.Position != nil {
		pos, err := parsePolarPosition(*ys.Position)
		if err != nil {
			return s, err
		}
		s.PolarPosition = &pos
	}
	if ys.GainLinear != nil {
		s.GainLinear = *ys.GainLinear
	}
	return s, nil
}

func parseScreen(ys *yamlScreen) (geom.Screen, error) {
	if ys == nil {
		return nil, nil
	}

	switch ys.Type {
	case "polar":
		centre, err := parsePolarPosition(ys.CentrePosition)
		if err != nil {
			return nil, err
		}
		return &geom.PolarScreen{
			AspectRatio:    ys.AspectRatio,
			CentrePosition: centre,
			WidthAzimuth:   ys.WidthAzimuth,
		}, nil
	case "cart":
		centre, err := parseCartPosition(ys.CentrePosition)
		if err != nil {
			return nil, err
		}
		return &geom.CartesianScreen{
			AspectRatio:    ys.AspectRatio,
			CentrePosition: centre,
			WidthX:         ys.WidthX,
		}, nil
	default:
		return nil, fmt.Errorf("%w: unknown screen type %q", ErrBadScreen, ys.Type)
	}
}

// LoadRealLayout loads a real listening environment from a yaml stream.
//
// The stream holds either a list of speakers, or a mapping with
// optional "speakers" and "screen" keys. Each speaker has a 0-based
// "channel" number, "names" (a BS.2051 channel name or list of names),
// an optional polar "position" ({az, el, r}) and an optional
// "gain_linear". The screen has "type" polar ({aspectRatio,
// centrePosition: {az, el, r}, widthAzimuth}) or cart ({aspectRatio,
// centrePosition: {X, Y, Z}, widthX}); an explicit null screen disables
// screen-related processing, while omitting it selects the default
// screen.
func LoadRealLayout(r io.Reader) (RealLayout, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return RealLayout{}, fmt.Errorf("reading speakers file: %w", err)
	}

	real := RealLayout{Screen: geom.DefaultScreen()}

	var asList []yamlSpeaker
	if err := yaml.Unmarshal(data, &asList); err == nil && len(asList) > 0 {
		for _, ys := range asList {
			s, err := parseSpeaker(ys)
			if err != nil {
				return RealLayout{}, err
			}
			real.Speakers = append(real.Speakers, s)
		}
		return real, nil
	}

	var asMap struct {
		Speakers []yamlSpeaker `yaml:"speakers"`
		Screen   yaml.Node     `yaml:"screen"`
	}
	if err := yaml.Unmarshal(data, &asMap); err != nil {
		return RealLayout{}, fmt.Errorf("%w: %v", ErrBadSpeakersFile, err)
	}

	for _, ys := range asMap.Speakers {
		s, err := parseSpeaker(ys)
		if err != nil {
			return RealLayout{}, err
		}
		real.Speakers = append(real.Speakers, s)
	}

	switch asMap.Screen.Kind {
	case 0:
		// not specified; keep the default
	case yaml.ScalarNode:
		// an explicit null disables screen processing
		real.Screen = nil
	default:
		var ys yamlScreen
		if err := asMap.Screen.Decode(&ys); err != nil {
			return RealLayout{}, fmt.Errorf("%w: %v", ErrBadScreen, err)
		}
		screen, err := parseScreen(&ys)
		if err != nil {
			return RealLayout{}, err
		}
		real.Screen = screen
	}

	return real, nil
}
