// SPDX-License-Identifier: EPL-2.0

package layout

import (
	_ "embed"
	"fmt"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/ebu/ebu-adm-renderer/geom"
)

//go:embed data/layouts.yaml
var layoutsYAML []byte

type yamlPosition struct {
	Az float64 `yaml:"az"`
	El float64 `yaml:"el"`
}

type yamlChannel struct {
	Name     string       `yaml:"name"`
	Position yamlPosition `yaml:"position"`
	AzRange  []float64    `yaml:"az_range"`
	ElRange  []float64    `yaml:"el_range"`
	IsLFE    bool         `yaml:"is_lfe"`
}

type yamlLayout struct {
	Name     string        `yaml:"name"`
	Channels []yamlChannel `yaml:"channels"`
}

var loadLayouts = sync.OnceValues(func() ([]string, map[string]*Layout) {
	var parsed []yamlLayout
	if err := yaml.Unmarshal(layoutsYAML, &parsed); err != nil {
		panic(fmt.Sprintf("layout: invalid embedded layout data: %v", err))
	}

	names := make([]string, 0, len(parsed))
	byName := make(map[string]*Layout, len(parsed))

	for _, yl := range parsed {
		l := &Layout{Name: yl.Name, Screen: geom.DefaultScreen()}
		for _, yc := range yl.Channels {
			pos := geom.PolarPosition{
				Azimuth:   yc.Position.Az,
				Elevation: yc.Position.El,
				Distance:  1,
			}
			c := Channel{
				Name:            yc.Name,
				PolarPosition:   pos,
				NominalPosition: pos,
				AzRange:         [2]float64{pos.Azimuth, pos.Azimuth},
				ElRange:         [2]float64{pos.Elevation, pos.Elevation},
				IsLFE:           yc.IsLFE,
			}
			if len(yc.AzRange) == 2 {
				c.AzRange = [2]float64{yc.AzRange[0], yc.AzRange[1]}
			}
			if len(yc.ElRange) == 2 {
				c.ElRange = [2]float64{yc.ElRange[0], yc.ElRange[1]}
			}
			l.Channels = append(l.Channels, c)
		}

		l.CheckPositions(func(msg string) {
			panic(fmt.Sprintf("layout: embedded layout %s: %s", l.Name, msg))
		})

		names = append(names, l.Name)
		byName[l.Name] = l
	}

	return names, byName
})

// Names lists the available BS.2051 layout names in catalogue order.
func Names() []string {
	names, _ := loadLayouts()
	return names
}

// Get returns the layout specified in BS.2051 with the given name, e.g.
// "4+5+0". The real speaker positions are set to the nominal positions.
func Get(name string) (*Layout, error) {
	_, byName := loadLayouts()

	l, ok := byName[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownLayout, name)
	}

	// copy, so that callers can attach screens and speakers
	channels := make([]Channel, len(l.Channels))
	copy(channels, l.Channels)
	return &Layout{Name: l.Name, Channels: channels, Screen: l.Screen}, nil
}
