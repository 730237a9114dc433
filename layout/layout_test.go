// SPDX-License-Identifier: EPL-2.0

package layout

import (
	"strings"
	"testing"

	"github.com/ebu/ebu-adm-renderer/geom"
)

func TestGet_KnownLayouts(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name     string
		channels int
		lfe      int
	}{
		{"0+2+0", 2, 0},
		{"0+5+0", 6, 1},
		{"2+5+0", 8, 1},
		{"4+5+0", 10, 1},
		{"4+5+1", 11, 1},
		{"3+7+0", 12, 2},
		{"4+9+0", 14, 1},
		{"9+10+3", 24, 2},
		{"0+7+0", 8, 1},
		{"4+7+0", 12, 1},
	}

	for _, c := range cases {
		l, err := Get(c.name)
		if err != nil {
			t.Fatalf("Get(%q) error: %v", c.name, err)
		}
		if len(l.Channels) != c.channels {
			t.Errorf("%s: %d channels, want %d", c.name, len(l.Channels), c.channels)
		}

		lfe := 0
		for _, isLFE := range l.IsLFE() {
			if isLFE {
				lfe++
			}
		}
		if lfe != c.lfe {
			t.Errorf("%s: %d LFE channels, want %d", c.name, lfe, c.lfe)
		}

		if len(l.WithoutLFE().Channels) != c.channels-c.lfe {
			t.Errorf("%s: WithoutLFE has %d channels", c.name, len(l.WithoutLFE().Channels))
		}
	}
}

func TestGet_Unknown(t *testing.T) {
	t.Parallel()

	if _, err := Get("5+1"); err == nil {
		t.Fatal("expected an error for an unknown layout")
	}
}

func TestCheckPositions(t *testing.T) {
	t.Parallel()

	l, err := Get("0+5+0")
	if err != nil {
		t.Fatal(err)
	}

	var msgs []string
	l.CheckPositions(func(msg string) { msgs = append(msgs, msg) })
	if len(msgs) != 0 {
		t.Fatalf("nominal positions should pass the checks: %v", msgs)
	}

	l.Channels[0].PolarPosition.Azimuth = 60
	l.CheckPositions(func(msg string) { msgs = append(msgs, msg) })
	if len(msgs) != 1 || !strings.Contains(msgs[0], "azimuth") {
		t.Fatalf("expected one azimuth error, got %v", msgs)
	}
}

func TestWithSpeakers(t *testing.T) {
	t.Parallel()

	l, err := Get("0+2+0")
	if err != nil {
		t.Fatal(err)
	}

	pos := geom.PolarPosition{Azimuth: 25, Elevation: 0, Distance: 2}
	speakers := []Speaker{
		{Channel: 1, Names: []string{"M+030"}, PolarPosition: &pos, GainLinear: 0.5},
		{Channel: 0, Names: []string{"M-030"}, GainLinear: 1},
	}

	newLayout, upmix := l.WithSpeakers(speakers)

	if newLayout.Channels[0].PolarPosition.Azimuth != 25 {
		t.Errorf("M+030 position not updated: %v", newLayout.Channels[0].PolarPosition)
	}
	if upmix[1][0] != 0.5 || upmix[0][1] != 1 {
		t.Errorf("unexpected upmix matrix: %v", upmix)
	}

	var msgs []string
	newLayout.CheckUpmixMatrix(upmix, func(msg string) { msgs = append(msgs, msg) })
	if len(msgs) != 0 {
		t.Errorf("unexpected upmix errors: %v", msgs)
	}
}

func TestLoadRealLayout(t *testing.T) {
	t.Parallel()

	yaml := `
speakers:
  - {channel: 0, names: M+030, position: {az: 30.0, el: 0.0, r: 2.0}}
  - {channel: 1, names: [M-030], gain_linear: 0.5}
screen:
  type: polar
  aspectRatio: 1.78
  centrePosition: {az: 0.0, el: 0.0, r: 1.0}
  widthAzimuth: 58.0
`
	real, err := LoadRealLayout(strings.NewReader(yaml))
	if err != nil {
		t.Fatal(err)
	}

	if len(real.Speakers) != 2 {
		t.Fatalf("expected 2 speakers, got %d", len(real.Speakers))
	}
	if real.Speakers[0].PolarPosition == nil || real.Speakers[0].PolarPosition.Distance != 2 {
		t.Errorf("speaker 0 position not parsed: %+v", real.Speakers[0])
	}
	if real.Speakers[1].GainLinear != 0.5 {
		t.Errorf("speaker 1 gain not parsed: %+v", real.Speakers[1])
	}
	if _, ok := real.Screen.(*geom.PolarScreen); !ok {
		t.Errorf("expected a polar screen, got %T", real.Screen)
	}
}

func TestLoadRealLayout_NullScreen(t *testing.T) {
	t.Parallel()

	real, err := LoadRealLayout(strings.NewReader("speakers:\n  - {channel: 0, names: M+000}\nscreen: null\n"))
	if err != nil {
		t.Fatal(err)
	}
	if real.Screen != nil {
		t.Errorf("null screen should disable screen processing, got %T", real.Screen)
	}
}
