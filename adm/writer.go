// SPDX-License-Identifier: EPL-2.0

package adm

import (
	"fmt"
	"io"
	"strings"
)

// xmlWriter generates AXML with the element ordering conventionally
// used in BW64 files. Common-definition elements are not emitted.
type xmlWriter struct {
	b strings.Builder
}

func (w *xmlWriter) line(depth int, format string, args ...any) {
	w.b.WriteString(strings.Repeat("\t", depth))
	fmt.Fprintf(&w.b, format, args...)
	w.b.WriteByte('\n')
}

func escape(s string) string {
	r := strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;", `"`, "&quot;")
	return r.Replace(s)
}

func typeAttrs(t TypeDefinition) string {
	return fmt.Sprintf(`typeLabel="%04d" typeDefinition="%s"`, int(t), t)
}

// Write generates the AXML chunk contents for the document.
func Write(doc *Document, w io.Writer) error {
	x := &xmlWriter{}
	x.line(0, `<?xml version="1.0" encoding="utf-8"?>`)
	x.line(0, `<ebuCoreMain xmlns="urn:ebu:metadata-schema:ebuCore_2016">`)
	x.line(1, `<coreMetadata>`)
	x.line(2, `<format>`)
	x.line(3, `<audioFormatExtended>`)

	for _, e := range doc.Programmes {
		x.writeProgramme(e)
	}
	for _, e := range doc.Contents {
		x.writeContent(e)
	}
	for _, e := range doc.Objects {
		x.writeObject(e)
	}
	for _, e := range doc.PackFormats {
		if !e.IsCommonDefinition {
			x.writePack(e)
		}
	}
	for _, e := range doc.ChannelFormats {
		if !e.IsCommonDefinition {
			x.writeChannel(e)
		}
	}
	for _, e := range doc.StreamFormats {
		x.writeStream(e)
	}
	for _, e := range doc.TrackFormats {
		x.writeTrackFormat(e)
	}
	for _, e := range doc.TrackUIDs {
		x.writeTrackUID(e)
	}

	x.line(3, `</audioFormatExtended>`)
	x.line(2, `</format>`)
	x.line(1, `</coreMetadata>`)
	x.line(0, `</ebuCoreMain>`)

	_, err := io.WriteString(w, x.b.String())
	return err
}

func (x *xmlWriter) writeProgramme(e *AudioProgramme) {
	attrs := fmt.Sprintf(`audioProgrammeID="%s" audioProgrammeName="%s"`, e.ID, escape(e.Name))
	if e.Start != nil {
		attrs += fmt.Sprintf(` start="%s"`, e.Start)
	}
	if e.End != nil {
		attrs += fmt.Sprintf(` end="%s"`, e.End)
	}
	x.line(4, `<audioProgramme %s>`, attrs)
	for _, c := range e.Contents {
		x.line(5, `<audioContentIDRef>%s</audioContentIDRef>`, c.ID)
	}
	x.line(4, `</audioProgramme>`)
}

func (x *xmlWriter) writeContent(e *AudioContent) {
	x.line(4, `<audioContent audioContentID="%s" audioContentName="%s">`, e.ID, escape(e.Name))
	for _, o := range e.Objects {
		x.line(5, `<audioObjectIDRef>%s</audioObjectIDRef>`, o.ID)
	}
	x.line(4, `</audioContent>`)
}

func (x *xmlWriter) writeObject(e *AudioObject) {
	attrs := fmt.Sprintf(`audioObjectID="%s" audioObjectName="%s"`, e.ID, escape(e.Name))
	if e.Start != nil {
		attrs += fmt.Sprintf(` start="%s"`, e.Start)
	}
	if e.Duration != nil {
		attrs += fmt.Sprintf(` duration="%s"`, e.Duration)
	}
	if e.Importance != nil {
		attrs += fmt.Sprintf(` importance="%d"`, *e.Importance)
	}
	x.line(4, `<audioObject %s>`, attrs)
	for _, p := range e.PackFormats {
		x.line(5, `<audioPackFormatIDRef>%s</audioPackFormatIDRef>`, p.ID)
	}
	for _, t := range e.TrackUIDs {
		if t == nil {
			x.line(5, `<audioTrackUIDRef>%s</audioTrackUIDRef>`, ZeroTrackUID)
		} else {
			x.line(5, `<audioTrackUIDRef>%s</audioTrackUIDRef>`, t.ID)
		}
	}
	for _, o := range e.Objects {
		x.line(5, `<audioObjectIDRef>%s</audioObjectIDRef>`, o.ID)
	}
	for _, o := range e.ComplementaryObjects {
		x.line(5, `<audioComplementaryObjectIDRef>%s</audioComplementaryObjectIDRef>`, o.ID)
	}
	x.line(4, `</audioObject>`)
}

func (x *xmlWriter) writePack(e *AudioPackFormat) {
	attrs := fmt.Sprintf(`audioPackFormatID="%s" audioPackFormatName="%s" %s`, e.ID, escape(e.Name), typeAttrs(e.Type))
	if e.Normalization != nil {
		attrs += fmt.Sprintf(` normalization="%s"`, *e.Normalization)
	}
	if e.NFCRefDist != nil {
		attrs += fmt.Sprintf(` nfcRefDist="%v"`, *e.NFCRefDist)
	}
	if e.ScreenRef != nil {
		attrs += fmt.Sprintf(` screenRef="%d"`, boolTo01(*e.ScreenRef))
	}
	x.line(4, `<audioPackFormat %s>`, attrs)
	for _, c := range e.ChannelFormats {
		x.line(5, `<audioChannelFormatIDRef>%s</audioChannelFormatIDRef>`, c.ID)
	}
	for _, p := range e.PackFormats {
		x.line(5, `<audioPackFormatIDRef>%s</audioPackFormatIDRef>`, p.ID)
	}
	if e.InputPackFormat != nil {
		x.line(5, `<inputPackFormatIDRef>%s</inputPackFormatIDRef>`, e.InputPackFormat.ID)
	}
	if e.OutputPackFormat != nil {
		x.line(5, `<outputPackFormatIDRef>%s</outputPackFormatIDRef>`, e.OutputPackFormat.ID)
	}
	for _, p := range e.EncodePackFormats {
		x.line(5, `<encodePackFormatIDRef>%s</encodePackFormatIDRef>`, p.ID)
	}
	x.line(4, `</audioPackFormat>`)
}

func boolTo01(b bool) int {
	if b {
		return 1
	}
	return 0
}

func (x *xmlWriter) writeChannel(e *AudioChannelFormat) {
	x.line(4, `<audioChannelFormat audioChannelFormatID="%s" audioChannelFormatName="%s" %s>`,
		e.ID, escape(e.Name), typeAttrs(e.Type))
	if e.Frequency.LowPass != nil {
		x.line(5, `<frequency typeDefinition="lowPass">%v</frequency>`, *e.Frequency.LowPass)
	}
	if e.Frequency.HighPass != nil {
		x.line(5, `<frequency typeDefinition="highPass">%v</frequency>`, *e.Frequency.HighPass)
	}
	for _, block := range e.Blocks {
		x.writeBlock(block)
	}
	x.line(4, `</audioChannelFormat>`)
}

func (x *xmlWriter) writeBlock(block BlockFormat) {
	c := block.Common()
	attrs := fmt.Sprintf(`audioBlockFormatID="%s"`, c.ID)
	if c.Rtime != nil {
		attrs += fmt.Sprintf(` rtime="%s"`, c.Rtime)
	}
	if c.Duration != nil {
		attrs += fmt.Sprintf(` duration="%s"`, c.Duration)
	}
	x.line(5, `<audioBlockFormat %s>`, attrs)

	if c.Gain != 1 {
		x.line(6, `<gain>%v</gain>`, c.Gain)
	}

	switch b := block.(type) {
	case *BlockObjects:
		x.writeObjectsBlock(b)
	case *BlockDirectSpeakers:
		x.writeDirectSpeakersBlock(b)
	case *BlockHOA:
		x.line(6, `<order>%d</order>`, b.Order)
		x.line(6, `<degree>%d</degree>`, b.Degree)
		if b.Normalization != nil {
			x.line(6, `<normalization>%s</normalization>`, *b.Normalization)
		}
		if b.NFCRefDist != nil {
			x.line(6, `<nfcRefDist>%v</nfcRefDist>`, *b.NFCRefDist)
		}
		if b.ScreenRef != nil {
			x.line(6, `<screenRef>%d</screenRef>`, boolTo01(*b.ScreenRef))
		}
	case *BlockMatrix:
		x.line(6, `<matrix>`)
		for _, coeff := range b.Matrix {
			attrs := ""
			if coeff.Gain != nil {
				attrs += fmt.Sprintf(` gain="%v"`, *coeff.Gain)
			}
			if coeff.Delay != nil {
				attrs += fmt.Sprintf(` delay="%v"`, *coeff.Delay)
			}
			if coeff.Phase != nil {
				attrs += fmt.Sprintf(` phase="%v"`, *coeff.Phase)
			}
			x.line(7, `<coefficient%s>%s</coefficient>`, attrs, coeff.InputChannelFormat.ID)
		}
		x.line(6, `</matrix>`)
		if b.OutputChannelFormat != nil {
			x.line(6, `<outputChannelFormatIDRef>%s</outputChannelFormatIDRef>`, b.OutputChannelFormat.ID)
		}
	}

	x.line(5, `</audioBlockFormat>`)
}

func (x *xmlWriter) writeObjectsBlock(b *BlockObjects) {
	switch pos := b.Position.(type) {
	case PolarObjectPosition:
		x.line(6, `<position coordinate="azimuth">%v</position>`, pos.Azimuth)
		x.line(6, `<position coordinate="elevation">%v</position>`, pos.Elevation)
		x.line(6, `<position coordinate="distance">%v</position>`, pos.Distance)
	case CartesianObjectPosition:
		x.line(6, `<cartesian>1</cartesian>`)
		x.line(6, `<position coordinate="X">%v</position>`, pos.X)
		x.line(6, `<position coordinate="Y">%v</position>`, pos.Y)
		x.line(6, `<position coordinate="Z">%v</position>`, pos.Z)
	}

	if b.Width != 0 {
		x.line(6, `<width>%v</width>`, b.Width)
	}
	if b.Height != 0 {
		x.line(6, `<height>%v</height>`, b.Height)
	}
	if b.Depth != 0 {
		x.line(6, `<depth>%v</depth>`, b.Depth)
	}
	if b.Diffuse != 0 {
		x.line(6, `<diffuse>%v</diffuse>`, b.Diffuse)
	}
	if b.ChannelLock != nil {
		if b.ChannelLock.MaxDistance != nil {
			x.line(6, `<channelLock maxDistance="%v">1</channelLock>`, *b.ChannelLock.MaxDistance)
		} else {
			x.line(6, `<channelLock>1</channelLock>`)
		}
	}
	if b.ObjectDivergence != nil {
		attrs := ""
		if b.ObjectDivergence.AzimuthRange != nil {
			attrs += fmt.Sprintf(` azimuthRange="%v"`, *b.ObjectDivergence.AzimuthRange)
		}
		if b.ObjectDivergence.PositionRange != nil {
			attrs += fmt.Sprintf(` positionRange="%v"`, *b.ObjectDivergence.PositionRange)
		}
		x.line(6, `<objectDivergence%s>%v</objectDivergence>`, attrs, b.ObjectDivergence.Value)
	}
	if b.JumpPosition.Flag {
		if b.JumpPosition.InterpolationLength != nil {
			x.line(6, `<jumpPosition interpolationLength="%v">1</jumpPosition>`,
				b.JumpPosition.InterpolationLength.Seconds())
		} else {
			x.line(6, `<jumpPosition>1</jumpPosition>`)
		}
	}
	if b.ScreenRef {
		x.line(6, `<screenRef>1</screenRef>`)
	}
	if b.HeadLocked {
		x.line(6, `<headLocked>1</headLocked>`)
	}
	if b.Importance != nil {
		x.line(6, `<importance>%d</importance>`, *b.Importance)
	}
	if len(b.ZoneExclusion) > 0 {
		x.line(6, `<zoneExclusion>`)
		for _, zone := range b.ZoneExclusion {
			switch z := zone.(type) {
			case CartesianZone:
				x.line(7, `<zone minX="%v" maxX="%v" minY="%v" maxY="%v" minZ="%v" maxZ="%v"/>`,
					z.MinX, z.MaxX, z.MinY, z.MaxY, z.MinZ, z.MaxZ)
			case PolarZone:
				x.line(7, `<zone minAzimuth="%v" maxAzimuth="%v" minElevation="%v" maxElevation="%v"/>`,
					z.MinAzimuth, z.MaxAzimuth, z.MinElevation, z.MaxElevation)
			}
		}
		x.line(6, `</zoneExclusion>`)
	}
}

func (x *xmlWriter) writeDirectSpeakersBlock(b *BlockDirectSpeakers) {
	for _, label := range b.SpeakerLabels {
		x.line(6, `<speakerLabel>%s</speakerLabel>`, escape(label))
	}

	writeBound := func(coordinate string, bound Bound) {
		x.line(6, `<position coordinate="%s">%v</position>`, coordinate, bound.Value)
		if bound.Min != nil {
			x.line(6, `<position coordinate="%s" bound="min">%v</position>`, coordinate, *bound.Min)
		}
		if bound.Max != nil {
			x.line(6, `<position coordinate="%s" bound="max">%v</position>`, coordinate, *bound.Max)
		}
	}

	switch pos := b.Position.(type) {
	case DSPolarPosition:
		writeBound("azimuth", pos.BoundedAzimuth)
		writeBound("elevation", pos.BoundedElevation)
		if pos.BoundedDistance.Value != 1 || pos.BoundedDistance.Min != nil || pos.BoundedDistance.Max != nil {
			writeBound("distance", pos.BoundedDistance)
		}
	case DSCartesianPosition:
		writeBound("X", pos.BoundedX)
		writeBound("Y", pos.BoundedY)
		writeBound("Z", pos.BoundedZ)
	}
}

func (x *xmlWriter) writeStream(e *AudioStreamFormat) {
	x.line(4, `<audioStreamFormat audioStreamFormatID="%s" audioStreamFormatName="%s" formatLabel="0001" formatDefinition="PCM">`,
		e.ID, escape(e.Name))
	if e.ChannelFormat != nil {
		x.line(5, `<audioChannelFormatIDRef>%s</audioChannelFormatIDRef>`, e.ChannelFormat.ID)
	}
	if e.PackFormat != nil {
		x.line(5, `<audioPackFormatIDRef>%s</audioPackFormatIDRef>`, e.PackFormat.ID)
	}
	for _, t := range e.TrackFormats {
		x.line(5, `<audioTrackFormatIDRef>%s</audioTrackFormatIDRef>`, t.ID)
	}
	x.line(4, `</audioStreamFormat>`)
}

func (x *xmlWriter) writeTrackFormat(e *AudioTrackFormat) {
	x.line(4, `<audioTrackFormat audioTrackFormatID="%s" audioTrackFormatName="%s" formatLabel="0001" formatDefinition="PCM">`,
		e.ID, escape(e.Name))
	// emit the reference in both directions; see the stream format
	if e.StreamFormat != nil {
		x.line(5, `<audioStreamFormatIDRef>%s</audioStreamFormatIDRef>`, e.StreamFormat.ID)
	}
	x.line(4, `</audioTrackFormat>`)
}

func (x *xmlWriter) writeTrackUID(e *AudioTrackUID) {
	x.line(4, `<audioTrackUID UID="%s">`, e.ID)
	if e.TrackFormat != nil {
		x.line(5, `<audioTrackFormatIDRef>%s</audioTrackFormatIDRef>`, e.TrackFormat.ID)
	}
	if e.ChannelFormat != nil {
		x.line(5, `<audioChannelFormatIDRef>%s</audioChannelFormatIDRef>`, e.ChannelFormat.ID)
	}
	if e.PackFormat != nil {
		x.line(5, `<audioPackFormatIDRef>%s</audioPackFormatIDRef>`, e.PackFormat.ID)
	}
	x.line(4, `</audioTrackUID>`)
}
