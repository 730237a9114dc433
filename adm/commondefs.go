// SPDX-License-Identifier: EPL-2.0

package adm

import (
	"fmt"

	"github.com/ebu/ebu-adm-renderer/layout"
)

// ituPacks maps the common-definition audioPackFormat IDs to the
// BS.2051 layout they describe.
var ituPacks = map[string]string{
	"AP_00010001": "0+1+0",
	"AP_00010002": "0+2+0",
	"AP_0001000c": "0+5+0",
	"AP_00010003": "0+5+0",
	"AP_00010004": "2+5+0",
	"AP_00010005": "4+5+0",
	"AP_00010010": "4+5+1",
	"AP_00010007": "3+7+0",
	"AP_00010008": "4+9+0",
	"AP_00010009": "9+10+3",
	"AP_0001000f": "0+7+0",
	"AP_00010017": "4+7+0",
}

// ITULayoutName returns the BS.2051 layout name described by a
// common-definition pack format ID.
func ITULayoutName(packID string) (string, bool) {
	name, ok := ituPacks[packID]
	return name, ok
}

// packsToGenerate lists the generated packs in a fixed order so that
// element IDs are stable.
var packsToGenerate = []string{
	"AP_00010002", "AP_00010003", "AP_00010004", "AP_00010005",
	"AP_00010007", "AP_00010008", "AP_00010009", "AP_0001000c",
	"AP_0001000f", "AP_00010010", "AP_00010017",
}

// NewDocument returns a Document pre-populated with the
// common-definitions catalogue: one DirectSpeakers pack per BS.2051
// layout, sharing channel formats between layouts.
func NewDocument() *Document {
	doc := &Document{}

	channelsByName := map[string]*AudioChannelFormat{}
	nextChannelID := 1

	channelFor := func(c *layout.Channel) *AudioChannelFormat {
		if existing, ok := channelsByName[c.Name]; ok {
			return existing
		}

		channel := &AudioChannelFormat{
			ID:                 fmt.Sprintf("AC_0001%04x", nextChannelID),
			Name:               c.Name,
			Type:               TypeDirectSpeakers,
			IsCommonDefinition: true,
		}
		nextChannelID++

		block := &BlockDirectSpeakers{
			BlockCommon:   BlockCommon{ID: channel.ID + "_00000001", Gain: 1},
			SpeakerLabels: []string{"urn:itu:bs:2051:1:speaker:" + c.Name},
			Position: DSPolarPosition{
				BoundedAzimuth:   Bound{Value: c.NominalPosition.Azimuth},
				BoundedElevation: Bound{Value: c.NominalPosition.Elevation},
				BoundedDistance:  Bound{Value: 1},
			},
		}
		if c.IsLFE {
			lowPass := 120.0
			channel.Frequency.LowPass = &lowPass
		}
		channel.Blocks = append(channel.Blocks, block)

		channelsByName[c.Name] = channel
		doc.ChannelFormats = append(doc.ChannelFormats, channel)
		if err := doc.register(channel.ID, channel); err != nil {
			panic(err)
		}
		return channel
	}

	for _, packID := range packsToGenerate {
		layoutName := ituPacks[packID]
		l, err := layout.Get(layoutName)
		if err != nil {
			panic(fmt.Sprintf("adm: common definitions reference unknown layout %s", layoutName))
		}

		pack := &AudioPackFormat{
			ID:                 packID,
			Name:               layoutName,
			Type:               TypeDirectSpeakers,
			IsCommonDefinition: true,
		}
		for i := range l.Channels {
			pack.ChannelFormats = append(pack.ChannelFormats, channelFor(&l.Channels[i]))
		}

		doc.PackFormats = append(doc.PackFormats, pack)
		if err := doc.register(pack.ID, pack); err != nil {
			panic(err)
		}
	}

	return doc
}
