// SPDX-License-Identifier: EPL-2.0

package adm

import (
	"bytes"
	"errors"
	"strings"
	"testing"
)

const testAXML = `<?xml version="1.0" encoding="utf-8"?>
<ebuCoreMain xmlns="urn:ebu:metadata-schema:ebuCore_2016">
  <coreMetadata><format><audioFormatExtended>
    <audioProgramme audioProgrammeID="APR_1001" audioProgrammeName="Main">
      <audioContentIDRef>ACO_1001</audioContentIDRef>
    </audioProgramme>
    <audioContent audioContentID="ACO_1001" audioContentName="Main">
      <audioObjectIDRef>AO_1001</audioObjectIDRef>
    </audioContent>
    <audioObject audioObjectID="AO_1001" audioObjectName="Object">
      <audioPackFormatIDRef>AP_00031001</audioPackFormatIDRef>
      <audioTrackUIDRef>ATU_00000001</audioTrackUIDRef>
    </audioObject>
    <audioPackFormat audioPackFormatID="AP_00031001" audioPackFormatName="Object" typeLabel="0003" typeDefinition="Objects">
      <audioChannelFormatIDRef>AC_00031001</audioChannelFormatIDRef>
    </audioPackFormat>
    <audioChannelFormat audioChannelFormatID="AC_00031001" audioChannelFormatName="Object" typeLabel="0003" typeDefinition="Objects">
      <audioBlockFormat audioBlockFormatID="AB_00031001_00000001" rtime="00:00:00.0" duration="00:00:01.0">
        <position coordinate="azimuth">30.0</position>
        <position coordinate="elevation">0.0</position>
        <position coordinate="distance">1.0</position>
        <width>10.0</width>
        <diffuse>0.5</diffuse>
        <channelLock maxDistance="0.5">1</channelLock>
        <objectDivergence azimuthRange="30.0">0.25</objectDivergence>
        <jumpPosition interpolationLength="0.5">1</jumpPosition>
        <zoneExclusion>
          <zone minAzimuth="-30.0" maxAzimuth="30.0" minElevation="-90.0" maxElevation="90.0"/>
        </zoneExclusion>
      </audioBlockFormat>
    </audioChannelFormat>
    <audioStreamFormat audioStreamFormatID="AS_00031001" audioStreamFormatName="PCM_Object" formatLabel="0001" formatDefinition="PCM">
      <audioChannelFormatIDRef>AC_00031001</audioChannelFormatIDRef>
      <audioTrackFormatIDRef>AT_00031001_01</audioTrackFormatIDRef>
    </audioStreamFormat>
    <audioTrackFormat audioTrackFormatID="AT_00031001_01" audioTrackFormatName="PCM_Object" formatLabel="0001" formatDefinition="PCM">
      <audioStreamFormatIDRef>AS_00031001</audioStreamFormatIDRef>
    </audioTrackFormat>
    <audioTrackUID UID="ATU_00000001">
      <audioTrackFormatIDRef>AT_00031001_01</audioTrackFormatIDRef>
      <audioPackFormatIDRef>AP_00031001</audioPackFormatIDRef>
    </audioTrackUID>
  </audioFormatExtended></format></coreMetadata>
</ebuCoreMain>`

func parseTestDoc(t *testing.T) *Document {
	t.Helper()
	doc, err := Parse(strings.NewReader(testAXML), nil)
	if err != nil {
		t.Fatal(err)
	}
	return doc
}

func TestParse_Structure(t *testing.T) {
	t.Parallel()

	doc := parseTestDoc(t)

	if len(doc.Programmes) != 1 || len(doc.Contents) != 1 || len(doc.Objects) != 1 {
		t.Fatalf("unexpected element counts: %d programmes, %d contents, %d objects",
			len(doc.Programmes), len(doc.Contents), len(doc.Objects))
	}

	obj := doc.Objects[0]
	if len(obj.PackFormats) != 1 || obj.PackFormats[0].ID != "AP_00031001" {
		t.Fatalf("object pack references not resolved: %+v", obj.PackFormats)
	}
	if len(obj.TrackUIDs) != 1 || obj.TrackUIDs[0] == nil {
		t.Fatalf("object track references not resolved")
	}

	// the trackFormat -> streamFormat -> channelFormat chain resolves
	// in either direction
	track := obj.TrackUIDs[0]
	if track.ResolvedChannelFormat() == nil || track.ResolvedChannelFormat().ID != "AC_00031001" {
		t.Fatalf("channel format not resolvable from track UID")
	}
}

func TestParse_ObjectsBlock(t *testing.T) {
	t.Parallel()

	doc := parseTestDoc(t)

	channel := doc.Lookup("AC_00031001").(*AudioChannelFormat)
	if len(channel.Blocks) != 1 {
		t.Fatalf("expected 1 block, got %d", len(channel.Blocks))
	}

	block := channel.Blocks[0].(*BlockObjects)

	pos, ok := block.Position.(PolarObjectPosition)
	if !ok || pos.Azimuth != 30 || pos.Distance != 1 {
		t.Errorf("position not parsed: %+v", block.Position)
	}
	if block.Width != 10 || block.Diffuse != 0.5 {
		t.Errorf("width/diffuse not parsed: %+v", block)
	}
	if block.ChannelLock == nil || block.ChannelLock.MaxDistance == nil || *block.ChannelLock.MaxDistance != 0.5 {
		t.Errorf("channelLock not parsed: %+v", block.ChannelLock)
	}
	if block.ObjectDivergence == nil || block.ObjectDivergence.Value != 0.25 {
		t.Errorf("objectDivergence not parsed: %+v", block.ObjectDivergence)
	}
	if !block.JumpPosition.Flag || block.JumpPosition.InterpolationLength == nil {
		t.Errorf("jumpPosition not parsed: %+v", block.JumpPosition)
	}
	if block.JumpPosition.InterpolationLength.Cmp(MakeTime(1, 2)) != 0 {
		t.Errorf("interpolationLength = %v, want 0.5s", block.JumpPosition.InterpolationLength)
	}
	if len(block.ZoneExclusion) != 1 {
		t.Fatalf("zoneExclusion not parsed")
	}
	zone := block.ZoneExclusion[0].(PolarZone)
	if zone.MinAzimuth != -30 || zone.MaxAzimuth != 30 {
		t.Errorf("zone bounds wrong: %+v", zone)
	}
	if block.Rtime == nil || block.Duration == nil || block.Duration.Cmp(MakeTime(1, 1)) != 0 {
		t.Errorf("timing not parsed: %+v", block.BlockCommon)
	}
}

func TestParse_CommonDefinitionsAvailable(t *testing.T) {
	t.Parallel()

	doc := parseTestDoc(t)

	pack, ok := doc.Lookup("AP_00010003").(*AudioPackFormat)
	if !ok || !pack.IsCommonDefinition {
		t.Fatal("common definitions should be available after parsing")
	}
	if pack.Type != TypeDirectSpeakers || len(pack.ChannelFormats) != 6 {
		t.Errorf("0+5+0 pack looks wrong: %d channels", len(pack.ChannelFormats))
	}
}

func TestParse_DanglingReference(t *testing.T) {
	t.Parallel()

	bad := strings.Replace(testAXML, "AP_00031001</audioPackFormatIDRef>", "AP_00039999</audioPackFormatIDRef>", 1)
	_, err := Parse(strings.NewReader(bad), nil)
	if !errors.Is(err, ErrReference) {
		t.Fatalf("expected a reference error, got %v", err)
	}
}

func TestParse_ZeroTrackUIDElement(t *testing.T) {
	t.Parallel()

	bad := strings.Replace(testAXML, `UID="ATU_00000001"`, `UID="ATU_00000000"`, 1)
	_, err := Parse(strings.NewReader(bad), nil)
	if !errors.Is(err, ErrReference) {
		t.Fatalf("expected a reference error, got %v", err)
	}
}

type collectWarner struct{ msgs []string }

func (w *collectWarner) Warn(msg string) { w.msgs = append(w.msgs, msg) }

func TestParse_UnknownAttributeWarns(t *testing.T) {
	t.Parallel()

	weird := strings.Replace(testAXML, `audioObjectName="Object"`, `audioObjectName="Object" wobble="1"`, 1)

	var w collectWarner
	if _, err := Parse(strings.NewReader(weird), &w); err != nil {
		t.Fatal(err)
	}

	found := false
	for _, msg := range w.msgs {
		if strings.Contains(msg, "wobble") {
			found = true
		}
	}
	if !found {
		t.Errorf("expected a warning about the unknown attribute, got %v", w.msgs)
	}
}

func TestWrite_RoundTrip(t *testing.T) {
	t.Parallel()

	doc := parseTestDoc(t)

	var buf bytes.Buffer
	if err := Write(doc, &buf); err != nil {
		t.Fatal(err)
	}

	doc2, err := Parse(bytes.NewReader(buf.Bytes()), nil)
	if err != nil {
		t.Fatalf("re-parsing generated AXML: %v\n%s", err, buf.String())
	}

	if len(doc2.Programmes) != 1 || len(doc2.Objects) != 1 {
		t.Fatal("structure lost in round trip")
	}

	block := doc2.Lookup("AC_00031001").(*AudioChannelFormat).Blocks[0].(*BlockObjects)
	pos := block.Position.(PolarObjectPosition)
	if pos.Azimuth != 30 || block.Width != 10 || !block.JumpPosition.Flag {
		t.Errorf("block fields lost in round trip: %+v", block)
	}
}

func TestApplyCHNA(t *testing.T) {
	t.Parallel()

	doc := parseTestDoc(t)

	err := ApplyCHNA(doc, []AudioID{{
		TrackIndex:        1,
		UID:               "ATU_00000001",
		TrackOrChannelRef: "AT_00031001_01",
		PackRef:           "AP_00031001",
	}})
	if err != nil {
		t.Fatal(err)
	}

	if doc.TrackUIDs[0].TrackIndex != 1 {
		t.Errorf("track index not applied")
	}
}

func TestApplyCHNA_Conflict(t *testing.T) {
	t.Parallel()

	doc := parseTestDoc(t)

	err := ApplyCHNA(doc, []AudioID{{
		TrackIndex:        1,
		UID:               "ATU_00000001",
		TrackOrChannelRef: "AC_00031001",
	}})
	if !errors.Is(err, ErrReference) {
		t.Fatalf("expected conflict error, got %v", err)
	}
}
