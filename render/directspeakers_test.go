// SPDX-License-Identifier: EPL-2.0

package render

import (
	"math"
	"testing"

	"github.com/ebu/ebu-adm-renderer/adm"
	"github.com/ebu/ebu-adm-renderer/layout"
)

func mustDSPanner(t *testing.T, name string) (*DirectSpeakersPanner, *layout.Layout) {
	t.Helper()

	l, err := layout.Get(name)
	if err != nil {
		t.Fatal(err)
	}
	p, err := NewDirectSpeakersPanner(l, nil)
	if err != nil {
		t.Fatal(err)
	}
	return p, l
}

func dsBlock(labels []string, az, el float64) *DirectSpeakersTypeMetadata {
	return &DirectSpeakersTypeMetadata{
		BlockFormat: &adm.BlockDirectSpeakers{
			BlockCommon:   adm.BlockCommon{Gain: 1},
			SpeakerLabels: labels,
			Position: adm.DSPolarPosition{
				BoundedAzimuth:   adm.Bound{Value: az},
				BoundedElevation: adm.Bound{Value: el},
				BoundedDistance:  adm.Bound{Value: 1},
			},
		},
	}
}

func TestDirectSpeakers_LabelMatch(t *testing.T) {
	t.Parallel()

	p, l := mustDSPanner(t, "0+5+0")

	gains, err := p.Handle(dsBlock([]string{"M+030"}, 30, 0))
	if err != nil {
		t.Fatal(err)
	}

	for ch, g := range gains {
		want := 0.0
		if l.Channels[ch].Name == "M+030" {
			want = 1
		}
		if g != want {
			t.Fatalf("channel %s gain %v, want %v", l.Channels[ch].Name, g, want)
		}
	}
}

func TestDirectSpeakers_URNLabel(t *testing.T) {
	t.Parallel()

	p, l := mustDSPanner(t, "0+5+0")

	gains, err := p.Handle(dsBlock([]string{"urn:itu:bs:2051:1:speaker:M-030"}, -30, 0))
	if err != nil {
		t.Fatal(err)
	}
	if gains[l.ChannelIndex("M-030")] != 1 {
		t.Fatalf("URN label not routed: %v", gains)
	}
}

func TestDirectSpeakers_BoundsMatch(t *testing.T) {
	t.Parallel()

	p, l := mustDSPanner(t, "0+5+0")

	// no label match, but the bounds cover M+110
	block := &DirectSpeakersTypeMetadata{
		BlockFormat: &adm.BlockDirectSpeakers{
			BlockCommon:   adm.BlockCommon{Gain: 1},
			SpeakerLabels: []string{"nothing"},
			Position: adm.DSPolarPosition{
				BoundedAzimuth:   adm.Bound{Value: 105, Min: float64p(100), Max: float64p(120)},
				BoundedElevation: adm.Bound{Value: 0},
				BoundedDistance:  adm.Bound{Value: 1},
			},
		},
	}

	gains, err := p.Handle(block)
	if err != nil {
		t.Fatal(err)
	}
	if gains[l.ChannelIndex("M+110")] != 1 {
		t.Fatalf("bounds did not route to M+110: %v", gains)
	}
}

func float64p(v float64) *float64 { return &v }

func TestDirectSpeakers_LFEFallback(t *testing.T) {
	t.Parallel()

	p, l := mustDSPanner(t, "0+5+0")

	gains, err := p.Handle(dsBlock([]string{"LFE2"}, -45, -30))
	if err != nil {
		t.Fatal(err)
	}
	if gains[l.ChannelIndex("LFE1")] != 1 {
		t.Fatalf("LFE2 should fall back to LFE1: %v", gains)
	}
}

func TestDirectSpeakers_LFESubstitution(t *testing.T) {
	t.Parallel()

	p, l := mustDSPanner(t, "0+5+0")

	gains, err := p.Handle(dsBlock([]string{"LFE"}, 0, 0))
	if err != nil {
		t.Fatal(err)
	}
	if gains[l.ChannelIndex("LFE1")] != 1 {
		t.Fatalf("LFE should substitute to LFE1: %v", gains)
	}
}

func TestDirectSpeakers_PannerFallback(t *testing.T) {
	t.Parallel()

	p, l := mustDSPanner(t, "0+5+0")

	// a speaker with no label or bounds match pans between the nearest
	// loudspeakers
	gains, err := p.Handle(dsBlock([]string{"M+015"}, 15, 0))
	if err != nil {
		t.Fatal(err)
	}

	if gains[l.ChannelIndex("LFE1")] != 0 {
		t.Fatal("LFE should stay silent in the panner fallback")
	}

	power := 0.0
	for _, g := range gains {
		power += g * g
	}
	if math.Abs(power-1) > 1e-9 {
		t.Fatalf("power %v", power)
	}

	if gains[l.ChannelIndex("M+030")] == 0 || gains[l.ChannelIndex("M+000")] == 0 {
		t.Fatalf("expected panning between M+000 and M+030: %v", gains)
	}
}

func TestDirectSpeakers_MappingRule(t *testing.T) {
	t.Parallel()

	p, l := mustDSPanner(t, "0+5+0")

	// M+090 from a 0+7+0 common-definitions pack maps to M+030/M+110
	pack := &adm.AudioPackFormat{ID: "AP_0001000f", Type: adm.TypeDirectSpeakers, IsCommonDefinition: true}

	block := dsBlock([]string{"M+090"}, 90, 0)
	block.AudioPackFormats = []*adm.AudioPackFormat{pack}

	gains, err := p.Handle(block)
	if err != nil {
		t.Fatal(err)
	}

	want := math.Sqrt(0.5)
	if math.Abs(gains[l.ChannelIndex("M+030")]-want) > 1e-9 ||
		math.Abs(gains[l.ChannelIndex("M+110")]-want) > 1e-9 {
		t.Fatalf("mapping rule gains: %v", gains)
	}
}

func TestDirectSpeakers_LabelMismatchWarns(t *testing.T) {
	t.Parallel()

	l, err := layout.Get("0+5+0")
	if err != nil {
		t.Fatal(err)
	}

	var w collectWarner
	p, err := NewDirectSpeakersPanner(l, &w)
	if err != nil {
		t.Fatal(err)
	}

	// "LFEX" contains LFE but is not a recognised LFE label
	if _, err := p.Handle(dsBlock([]string{"LFEX"}, 0, 0)); err != nil {
		t.Fatal(err)
	}
	if len(w.msgs) == 0 {
		t.Error("expected a warning about the suspicious label")
	}
}

type collectWarner struct{ msgs []string }

func (w *collectWarner) Warn(msg string) { w.msgs = append(w.msgs, msg) }
