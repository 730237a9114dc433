// SPDX-License-Identifier: EPL-2.0

package adm

import (
	"encoding/xml"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/ebu/ebu-adm-renderer/geom"
)

// Warner receives non-fatal diagnostics from parsing and rendering.
type Warner interface {
	Warn(msg string)
}

type discardWarner struct{}

func (discardWarner) Warn(string) {}

// raw XML shapes; IDRefs are resolved in a second pass.

type rawScreenPosition struct {
	Azimuth   *float64 `xml:"azimuth,attr"`
	Elevation *float64 `xml:"elevation,attr"`
	Distance  *float64 `xml:"distance,attr"`
	X         *float64 `xml:"X,attr"`
	Y         *float64 `xml:"Y,attr"`
	Z         *float64 `xml:"Z,attr"`
}

type rawScreenWidth struct {
	Azimuth *float64 `xml:"azimuth,attr"`
	X       *float64 `xml:"X,attr"`
}

type rawScreen struct {
	AspectRatio    float64            `xml:"aspectRatio,attr"`
	CentrePosition *rawScreenPosition `xml:"screenCentrePosition"`
	Width          *rawScreenWidth    `xml:"screenWidth"`
}

type rawProgramme struct {
	ID     string `xml:"audioProgrammeID,attr"`
	Name   string `xml:"audioProgrammeName,attr"`
	Start  string `xml:"start,attr"`
	End    string `xml:"end,attr"`
	Extra  []xml.Attr `xml:",any,attr"`

	ContentRefs []string   `xml:"audioContentIDRef"`
	Screen      *rawScreen `xml:"audioProgrammeReferenceScreen"`
}

type rawContent struct {
	ID    string     `xml:"audioContentID,attr"`
	Name  string     `xml:"audioContentName,attr"`
	Extra []xml.Attr `xml:",any,attr"`

	ObjectRefs []string `xml:"audioObjectIDRef"`
}

type rawObject struct {
	ID         string     `xml:"audioObjectID,attr"`
	Name       string     `xml:"audioObjectName,attr"`
	Start      string     `xml:"start,attr"`
	Duration   string     `xml:"duration,attr"`
	Importance *int       `xml:"importance,attr"`
	Interact   *int       `xml:"interact,attr"`
	Gain       *float64   `xml:"gain,attr"`
	Extra      []xml.Attr `xml:",any,attr"`

	PackRefs          []string `xml:"audioPackFormatIDRef"`
	TrackUIDRefs      []string `xml:"audioTrackUIDRef"`
	ObjectRefs        []string `xml:"audioObjectIDRef"`
	ComplementaryRefs []string `xml:"audioComplementaryObjectIDRef"`
}

type rawPack struct {
	ID               string     `xml:"audioPackFormatID,attr"`
	Name             string     `xml:"audioPackFormatName,attr"`
	TypeLabel        string     `xml:"typeLabel,attr"`
	TypeDefinition   string     `xml:"typeDefinition,attr"`
	Importance       *int       `xml:"importance,attr"`
	AbsoluteDistance *float64   `xml:"absoluteDistance,attr"`
	Normalization    *string    `xml:"normalization,attr"`
	NFCRefDist       *float64   `xml:"nfcRefDist,attr"`
	ScreenRef        *int       `xml:"screenRef,attr"`
	Extra            []xml.Attr `xml:",any,attr"`

	ChannelRefs    []string `xml:"audioChannelFormatIDRef"`
	PackRefs       []string `xml:"audioPackFormatIDRef"`
	InputPackRef   string   `xml:"inputPackFormatIDRef"`
	OutputPackRef  string   `xml:"outputPackFormatIDRef"`
	EncodePackRefs []string `xml:"encodePackFormatIDRef"`
	DecodePackRefs []string `xml:"decodePackFormatIDRef"`
}

type rawFrequency struct {
	TypeDefinition string `xml:"typeDefinition,attr"`
	Value          string `xml:",chardata"`
}

type rawPosition struct {
	Coordinate     string `xml:"coordinate,attr"`
	Bound          string `xml:"bound,attr"`
	ScreenEdgeLock string `xml:"screenEdgeLock,attr"`
	Value          string `xml:",chardata"`
}

type rawChannelLock struct {
	MaxDistance *float64 `xml:"maxDistance,attr"`
	Value       string   `xml:",chardata"`
}

type rawDivergence struct {
	AzimuthRange  *float64 `xml:"azimuthRange,attr"`
	PositionRange *float64 `xml:"positionRange,attr"`
	Value         string   `xml:",chardata"`
}

type rawJumpPosition struct {
	InterpolationLength *string `xml:"interpolationLength,attr"`
	Value               string  `xml:",chardata"`
}

type rawZone struct {
	MinX         *float64 `xml:"minX,attr"`
	MaxX         *float64 `xml:"maxX,attr"`
	MinY         *float64 `xml:"minY,attr"`
	MaxY         *float64 `xml:"maxY,attr"`
	MinZ         *float64 `xml:"minZ,attr"`
	MaxZ         *float64 `xml:"maxZ,attr"`
	MinAzimuth   *float64 `xml:"minAzimuth,attr"`
	MaxAzimuth   *float64 `xml:"maxAzimuth,attr"`
	MinElevation *float64 `xml:"minElevation,attr"`
	MaxElevation *float64 `xml:"maxElevation,attr"`
}

type rawZoneExclusion struct {
	Zones []rawZone `xml:"zone"`
}

type rawCoefficient struct {
	Gain     *float64 `xml:"gain,attr"`
	GainVar  *string  `xml:"gainVar,attr"`
	Delay    *float64 `xml:"delay,attr"`
	DelayVar *string  `xml:"delayVar,attr"`
	Phase    *float64 `xml:"phase,attr"`
	PhaseVar *string  `xml:"phaseVar,attr"`
	Ref      string   `xml:",chardata"`
}

type rawMatrix struct {
	Coefficients []rawCoefficient `xml:"coefficient"`
}

type rawBlock struct {
	ID       string     `xml:"audioBlockFormatID,attr"`
	Rtime    string     `xml:"rtime,attr"`
	Duration string     `xml:"duration,attr"`
	Extra    []xml.Attr `xml:",any,attr"`

	Gain *float64 `xml:"gain"`

	// Objects
	Positions     []rawPosition     `xml:"position"`
	Width         *float64          `xml:"width"`
	Height        *float64          `xml:"height"`
	Depth         *float64          `xml:"depth"`
	Diffuse       *float64          `xml:"diffuse"`
	Cartesian     *string           `xml:"cartesian"`
	ChannelLock   *rawChannelLock   `xml:"channelLock"`
	Divergence    *rawDivergence    `xml:"objectDivergence"`
	JumpPosition  *rawJumpPosition  `xml:"jumpPosition"`
	ScreenRef     *string           `xml:"screenRef"`
	HeadLocked    *string           `xml:"headLocked"`
	ZoneExclusion *rawZoneExclusion `xml:"zoneExclusion"`
	Importance    *int              `xml:"importance"`

	// DirectSpeakers
	SpeakerLabels []string `xml:"speakerLabel"`

	// HOA
	Order         *int     `xml:"order"`
	Degree        *int     `xml:"degree"`
	Normalization *string  `xml:"normalization"`
	NFCRefDist    *float64 `xml:"nfcRefDist"`
	Equation      *string  `xml:"equation"`

	// Matrix
	Matrix           *rawMatrix `xml:"matrix"`
	OutputChannelRef string     `xml:"outputChannelFormatIDRef"`
}

type rawChannel struct {
	ID             string     `xml:"audioChannelFormatID,attr"`
	Name           string     `xml:"audioChannelFormatName,attr"`
	TypeLabel      string     `xml:"typeLabel,attr"`
	TypeDefinition string     `xml:"typeDefinition,attr"`
	Extra          []xml.Attr `xml:",any,attr"`

	Frequencies []rawFrequency `xml:"frequency"`
	Blocks      []rawBlock     `xml:"audioBlockFormat"`
}

type rawStream struct {
	ID    string     `xml:"audioStreamFormatID,attr"`
	Name  string     `xml:"audioStreamFormatName,attr"`
	Extra []xml.Attr `xml:",any,attr"`

	ChannelRef string   `xml:"audioChannelFormatIDRef"`
	PackRef    string   `xml:"audioPackFormatIDRef"`
	TrackRefs  []string `xml:"audioTrackFormatIDRef"`
}

type rawTrackFormat struct {
	ID    string     `xml:"audioTrackFormatID,attr"`
	Name  string     `xml:"audioTrackFormatName,attr"`
	Extra []xml.Attr `xml:",any,attr"`

	StreamRef string `xml:"audioStreamFormatIDRef"`
}

type rawTrackUID struct {
	ID    string     `xml:"UID,attr"`
	Extra []xml.Attr `xml:",any,attr"`

	PackRef    string `xml:"audioPackFormatIDRef"`
	ChannelRef string `xml:"audioChannelFormatIDRef"`
	TrackRef   string `xml:"audioTrackFormatIDRef"`
}

type rawFormatExtended struct {
	Programmes   []rawProgramme   `xml:"audioProgramme"`
	Contents     []rawContent     `xml:"audioContent"`
	Objects      []rawObject      `xml:"audioObject"`
	Packs        []rawPack        `xml:"audioPackFormat"`
	Channels     []rawChannel     `xml:"audioChannelFormat"`
	Streams      []rawStream      `xml:"audioStreamFormat"`
	TrackFormats []rawTrackFormat `xml:"audioTrackFormat"`
	TrackUIDs    []rawTrackUID    `xml:"audioTrackUID"`
}

func findFormatExtended(doc *xml.Decoder) (*rawFormatExtended, error) {
	for {
		tok, err := doc.Token()
		if err == io.EOF {
			return nil, fmt.Errorf("%w: no audioFormatExtended element", ErrParse)
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrParse, err)
		}

		if start, ok := tok.(xml.StartElement); ok && start.Name.Local == "audioFormatExtended" {
			var raw rawFormatExtended
			if err := doc.DecodeElement(&raw, &start); err != nil {
				return nil, fmt.Errorf("%w: %v", ErrParse, err)
			}
			return &raw, nil
		}
	}
}

func parseFlag(s string) bool {
	s = strings.TrimSpace(s)
	return s == "1" || s == "true"
}

func parseOptionalTime(s, what string) (*Time, error) {
	if s == "" {
		return nil, nil
	}
	t, err := ParseTime(s)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", what, err)
	}
	return &t, nil
}

type xmlParser struct {
	doc    *Document
	warner Warner
}

func (p *xmlParser) warnExtraAttrs(element string, attrs []xml.Attr) {
	for _, a := range attrs {
		if a.Name.Space == "xmlns" || a.Name.Local == "xmlns" {
			continue
		}
		p.warner.Warn(fmt.Sprintf("unknown attribute %q on %s", a.Name.Local, element))
	}
}

func parseScreen(raw *rawScreen) (geom.Screen, error) {
	if raw == nil {
		return geom.DefaultScreen(), nil
	}
	if raw.CentrePosition == nil || raw.Width == nil {
		return nil, fmt.Errorf("%w: incomplete screen element", ErrParse)
	}

	cp := raw.CentrePosition
	switch {
	case cp.Azimuth != nil && cp.Elevation != nil:
		dist := 1.0
		if cp.Distance != nil {
			dist = *cp.Distance
		}
		if raw.Width.Azimuth == nil {
			return nil, fmt.Errorf("%w: polar screen needs azimuth width", ErrParse)
		}
		return &geom.PolarScreen{
			AspectRatio: raw.AspectRatio,
			CentrePosition: geom.PolarPosition{
				Azimuth: *cp.Azimuth, Elevation: *cp.Elevation, Distance: dist,
			},
			WidthAzimuth: *raw.Width.Azimuth,
		}, nil
	case cp.X != nil && cp.Y != nil && cp.Z != nil:
		if raw.Width.X == nil {
			return nil, fmt.Errorf("%w: Cartesian screen needs X width", ErrParse)
		}
		return &geom.CartesianScreen{
			AspectRatio:    raw.AspectRatio,
			CentrePosition: geom.CartesianPosition{X: *cp.X, Y: *cp.Y, Z: *cp.Z},
			WidthX:         *raw.Width.X,
		}, nil
	default:
		return nil, fmt.Errorf("%w: screen centre position needs azimuth/elevation or X/Y/Z", ErrParse)
	}
}

func typeOf(typeLabel, typeDefinition, id string) (TypeDefinition, error) {
	if typeDefinition != "" {
		return ParseTypeDefinition(typeDefinition)
	}
	if typeLabel != "" {
		return ParseTypeDefinition(typeLabel)
	}
	// fall back to the type encoded in the ID, e.g. AP_0003xxxx
	if parts := strings.SplitN(id, "_", 2); len(parts) == 2 && len(parts[1]) >= 4 {
		return ParseTypeDefinition(parts[1][:4])
	}
	return 0, fmt.Errorf("%w: cannot determine type of %q", ErrParse, id)
}

// Parse reads an AXML document into a resolved Document. warner
// receives non-fatal diagnostics such as unknown attributes; pass nil
// to discard them.
func Parse(r io.Reader, warner Warner) (*Document, error) {
	if warner == nil {
		warner = discardWarner{}
	}

	raw, err := findFormatExtended(xml.NewDecoder(r))
	if err != nil {
		return nil, err
	}

	p := &xmlParser{doc: NewDocument(), warner: warner}
	if err := p.build(raw); err != nil {
		return nil, err
	}
	if err := p.resolve(raw); err != nil {
		return nil, err
	}
	return p.doc, nil
}

// build creates all elements so that references can be resolved in any
// order.
func (p *xmlParser) build(raw *rawFormatExtended) error {
	doc := p.doc

	for i := range raw.Programmes {
		r := &raw.Programmes[i]
		p.warnExtraAttrs("audioProgramme", r.Extra)

		screen, err := parseScreen(r.Screen)
		if err != nil {
			return err
		}
		start, err := parseOptionalTime(r.Start, r.ID)
		if err != nil {
			return err
		}
		end, err := parseOptionalTime(r.End, r.ID)
		if err != nil {
			return err
		}

		e := &AudioProgramme{ID: r.ID, Name: r.Name, Start: start, End: end, ReferenceScreen: screen}
		doc.Programmes = append(doc.Programmes, e)
		if err := doc.register(e.ID, e); err != nil {
			return err
		}
	}

	for i := range raw.Contents {
		r := &raw.Contents[i]
		p.warnExtraAttrs("audioContent", r.Extra)
		e := &AudioContent{ID: r.ID, Name: r.Name}
		doc.Contents = append(doc.Contents, e)
		if err := doc.register(e.ID, e); err != nil {
			return err
		}
	}

	for i := range raw.Objects {
		r := &raw.Objects[i]
		p.warnExtraAttrs("audioObject", r.Extra)

		start, err := parseOptionalTime(r.Start, r.ID)
		if err != nil {
			return err
		}
		duration, err := parseOptionalTime(r.Duration, r.ID)
		if err != nil {
			return err
		}

		e := &AudioObject{
			ID: r.ID, Name: r.Name,
			Start: start, Duration: duration,
			Importance: r.Importance,
			Interact:   r.Interact != nil && *r.Interact != 0,
			Gain:       1,
		}
		if r.Gain != nil {
			e.Gain = *r.Gain
		}
		doc.Objects = append(doc.Objects, e)
		if err := doc.register(e.ID, e); err != nil {
			return err
		}
	}

	for i := range raw.Packs {
		r := &raw.Packs[i]
		p.warnExtraAttrs("audioPackFormat", r.Extra)

		typ, err := typeOf(r.TypeLabel, r.TypeDefinition, r.ID)
		if err != nil {
			return err
		}

		e := &AudioPackFormat{
			ID: r.ID, Name: r.Name, Type: typ,
			Importance:       r.Importance,
			AbsoluteDistance: r.AbsoluteDistance,
			Normalization:    r.Normalization,
			NFCRefDist:       r.NFCRefDist,
		}
		if r.ScreenRef != nil {
			v := *r.ScreenRef != 0
			e.ScreenRef = &v
		}
		doc.PackFormats = append(doc.PackFormats, e)
		if err := doc.register(e.ID, e); err != nil {
			return err
		}
	}

	for i := range raw.Channels {
		r := &raw.Channels[i]
		p.warnExtraAttrs("audioChannelFormat", r.Extra)

		typ, err := typeOf(r.TypeLabel, r.TypeDefinition, r.ID)
		if err != nil {
			return err
		}

		e := &AudioChannelFormat{ID: r.ID, Name: r.Name, Type: typ}
		for _, f := range r.Frequencies {
			v, err := parseFloatValue(f.Value, r.ID)
			if err != nil {
				return err
			}
			switch f.TypeDefinition {
			case "lowPass":
				e.Frequency.LowPass = &v
			case "highPass":
				e.Frequency.HighPass = &v
			default:
				p.warner.Warn(fmt.Sprintf("unknown frequency type %q in %s", f.TypeDefinition, r.ID))
			}
		}
		doc.ChannelFormats = append(doc.ChannelFormats, e)
		if err := doc.register(e.ID, e); err != nil {
			return err
		}
	}

	for i := range raw.Streams {
		r := &raw.Streams[i]
		p.warnExtraAttrs("audioStreamFormat", r.Extra)
		e := &AudioStreamFormat{ID: r.ID, Name: r.Name}
		doc.StreamFormats = append(doc.StreamFormats, e)
		if err := doc.register(e.ID, e); err != nil {
			return err
		}
	}

	for i := range raw.TrackFormats {
		r := &raw.TrackFormats[i]
		p.warnExtraAttrs("audioTrackFormat", r.Extra)
		e := &AudioTrackFormat{ID: r.ID, Name: r.Name}
		doc.TrackFormats = append(doc.TrackFormats, e)
		if err := doc.register(e.ID, e); err != nil {
			return err
		}
	}

	for i := range raw.TrackUIDs {
		r := &raw.TrackUIDs[i]
		p.warnExtraAttrs("audioTrackUID", r.Extra)
		if strings.EqualFold(r.ID, ZeroTrackUID) {
			return fmt.Errorf("%w: %v declared as an element", ErrReference, ZeroTrackUID)
		}
		e := &AudioTrackUID{ID: r.ID}
		doc.TrackUIDs = append(doc.TrackUIDs, e)
		if err := doc.register(e.ID, e); err != nil {
			return err
		}
	}

	return nil
}

func lookupAs[T any](doc *Document, id, what string) (T, error) {
	var zero T
	element := doc.Lookup(id)
	if element == nil {
		return zero, fmt.Errorf("%w: %s reference to unknown element %q", ErrReference, what, id)
	}
	typed, ok := element.(T)
	if !ok {
		return zero, fmt.Errorf("%w: %s reference %q resolves to the wrong element type", ErrReference, what, id)
	}
	return typed, nil
}

func resolveAll[T any](doc *Document, ids []string, what string) ([]T, error) {
	out := make([]T, 0, len(ids))
	for _, id := range ids {
		e, err := lookupAs[T](doc, strings.TrimSpace(id), what)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, nil
}

func (p *xmlParser) resolve(raw *rawFormatExtended) error {
	doc := p.doc
	var err error

	for i := range raw.Programmes {
		e := doc.Programmes[i]
		if e.Contents, err = resolveAll[*AudioContent](doc, raw.Programmes[i].ContentRefs, e.ID); err != nil {
			return err
		}
	}

	for i := range raw.Contents {
		e := doc.Contents[i]
		if e.Objects, err = resolveAll[*AudioObject](doc, raw.Contents[i].ObjectRefs, e.ID); err != nil {
			return err
		}
	}

	for i := range raw.Objects {
		r := &raw.Objects[i]
		e := doc.Objects[i]
		if e.PackFormats, err = resolveAll[*AudioPackFormat](doc, r.PackRefs, e.ID); err != nil {
			return err
		}
		if e.Objects, err = resolveAll[*AudioObject](doc, r.ObjectRefs, e.ID); err != nil {
			return err
		}
		if e.ComplementaryObjects, err = resolveAll[*AudioObject](doc, r.ComplementaryRefs, e.ID); err != nil {
			return err
		}
		for _, ref := range r.TrackUIDRefs {
			ref = strings.TrimSpace(ref)
			if strings.EqualFold(ref, ZeroTrackUID) {
				// a reference to the zero UID is a silent track
				e.TrackUIDs = append(e.TrackUIDs, nil)
				continue
			}
			track, err := lookupAs[*AudioTrackUID](doc, ref, e.ID)
			if err != nil {
				return err
			}
			e.TrackUIDs = append(e.TrackUIDs, track)
		}
	}

	// the parsed packs and channels follow the common definitions in
	// the document, so they are the last entries of each slice
	packBase := len(doc.PackFormats) - len(raw.Packs)
	channelBase := len(doc.ChannelFormats) - len(raw.Channels)

	for i := range raw.Packs {
		r := &raw.Packs[i]
		e := doc.PackFormats[packBase+i]
		if e.ChannelFormats, err = resolveAll[*AudioChannelFormat](doc, r.ChannelRefs, e.ID); err != nil {
			return err
		}
		if e.PackFormats, err = resolveAll[*AudioPackFormat](doc, r.PackRefs, e.ID); err != nil {
			return err
		}
		if r.InputPackRef != "" {
			if e.InputPackFormat, err = lookupAs[*AudioPackFormat](doc, strings.TrimSpace(r.InputPackRef), e.ID); err != nil {
				return err
			}
		}
		if r.OutputPackRef != "" {
			if e.OutputPackFormat, err = lookupAs[*AudioPackFormat](doc, strings.TrimSpace(r.OutputPackRef), e.ID); err != nil {
				return err
			}
		}
		if e.EncodePackFormats, err = resolveAll[*AudioPackFormat](doc, r.EncodePackRefs, e.ID); err != nil {
			return err
		}
		// decodePackFormatIDRef carries the same information as
		// encodePackFormatIDRef seen from the other side; accept and
		// ignore it
	}

	for i := range raw.Channels {
		r := &raw.Channels[i]
		e := doc.ChannelFormats[channelBase+i]
		for j := range r.Blocks {
			block, err := p.parseBlock(&r.Blocks[j], e)
			if err != nil {
				return err
			}
			e.Blocks = append(e.Blocks, block)
		}
	}

	for i := range raw.Streams {
		r := &raw.Streams[i]
		e := doc.StreamFormats[i]
		if r.ChannelRef != "" {
			if e.ChannelFormat, err = lookupAs[*AudioChannelFormat](doc, strings.TrimSpace(r.ChannelRef), e.ID); err != nil {
				return err
			}
		}
		if r.PackRef != "" {
			if e.PackFormat, err = lookupAs[*AudioPackFormat](doc, strings.TrimSpace(r.PackRef), e.ID); err != nil {
				return err
			}
		}
		if e.TrackFormats, err = resolveAll[*AudioTrackFormat](doc, r.TrackRefs, e.ID); err != nil {
			return err
		}
		// set the reverse references; either direction is accepted on
		// input
		for _, tf := range e.TrackFormats {
			tf.StreamFormat = e
		}
	}

	for i := range raw.TrackFormats {
		r := &raw.TrackFormats[i]
		e := doc.TrackFormats[i]
		if r.StreamRef != "" {
			stream, err := lookupAs[*AudioStreamFormat](doc, strings.TrimSpace(r.StreamRef), e.ID)
			if err != nil {
				return err
			}
			if e.StreamFormat != nil && e.StreamFormat != stream {
				return fmt.Errorf("%w: %s references conflicting stream formats", ErrReference, e.ID)
			}
			e.StreamFormat = stream
		}
	}

	for i := range raw.TrackUIDs {
		r := &raw.TrackUIDs[i]
		e := doc.TrackUIDs[i]
		if r.PackRef != "" {
			if e.PackFormat, err = lookupAs[*AudioPackFormat](doc, strings.TrimSpace(r.PackRef), e.ID); err != nil {
				return err
			}
		}
		if r.ChannelRef != "" {
			if e.ChannelFormat, err = lookupAs[*AudioChannelFormat](doc, strings.TrimSpace(r.ChannelRef), e.ID); err != nil {
				return err
			}
		}
		if r.TrackRef != "" {
			if e.TrackFormat, err = lookupAs[*AudioTrackFormat](doc, strings.TrimSpace(r.TrackRef), e.ID); err != nil {
				return err
			}
		}
		if e.ChannelFormat != nil && e.TrackFormat != nil {
			return fmt.Errorf("%w: %s references both an audioTrackFormat and an audioChannelFormat", ErrReference, e.ID)
		}
	}

	return nil
}

func (p *xmlParser) parseBlock(r *rawBlock, channel *AudioChannelFormat) (BlockFormat, error) {
	p.warnExtraAttrs("audioBlockFormat", r.Extra)

	rtime, err := parseOptionalTime(r.Rtime, r.ID)
	if err != nil {
		return nil, err
	}
	duration, err := parseOptionalTime(r.Duration, r.ID)
	if err != nil {
		return nil, err
	}

	common := BlockCommon{ID: r.ID, Rtime: rtime, Duration: duration, Gain: 1}
	if r.Gain != nil {
		common.Gain = *r.Gain
	}

	switch channel.Type {
	case TypeObjects:
		return p.parseObjectsBlock(r, common)
	case TypeDirectSpeakers:
		return p.parseDirectSpeakersBlock(r, common)
	case TypeHOA:
		b := &BlockHOA{BlockCommon: common, Normalization: r.Normalization, NFCRefDist: r.NFCRefDist, Equation: r.Equation}
		if r.Order != nil {
			b.Order = *r.Order
		}
		if r.Degree != nil {
			b.Degree = *r.Degree
		}
		if r.ScreenRef != nil {
			v := parseFlag(*r.ScreenRef)
			b.ScreenRef = &v
		}
		return b, nil
	case TypeMatrix:
		b := &BlockMatrix{BlockCommon: common}
		if r.OutputChannelRef != "" {
			if b.OutputChannelFormat, err = lookupAs[*AudioChannelFormat](p.doc, strings.TrimSpace(r.OutputChannelRef), r.ID); err != nil {
				return nil, err
			}
		}
		if r.Matrix != nil {
			for i := range r.Matrix.Coefficients {
				rc := &r.Matrix.Coefficients[i]
				input, err := lookupAs[*AudioChannelFormat](p.doc, strings.TrimSpace(rc.Ref), r.ID)
				if err != nil {
					return nil, err
				}
				b.Matrix = append(b.Matrix, &MatrixCoefficient{
					InputChannelFormat: input,
					Gain:               rc.Gain,
					Delay:              rc.Delay,
					Phase:              rc.Phase,
					GainVar:            rc.GainVar,
					DelayVar:           rc.DelayVar,
					PhaseVar:           rc.PhaseVar,
				})
			}
		}
		return b, nil
	default:
		return nil, fmt.Errorf("%w: blocks of type %v are not supported", ErrParse, channel.Type)
	}
}

func parseFloatValue(s, context string) (float64, error) {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0, fmt.Errorf("%w: invalid number %q in %s", ErrParse, s, context)
	}
	return v, nil
}

func parseEdgeLock(s string, lock *ScreenEdgeLock) error {
	switch s {
	case "":
	case "left", "right":
		lock.Horizontal = s
	case "top", "bottom":
		lock.Vertical = s
	default:
		return fmt.Errorf("%w: unknown screenEdgeLock %q", ErrParse, s)
	}
	return nil
}

func (p *xmlParser) parseObjectsBlock(r *rawBlock, common BlockCommon) (BlockFormat, error) {
	b := &BlockObjects{BlockCommon: common, Importance: r.Importance}

	if r.Width != nil {
		b.Width = *r.Width
	}
	if r.Height != nil {
		b.Height = *r.Height
	}
	if r.Depth != nil {
		b.Depth = *r.Depth
	}
	if r.Diffuse != nil {
		b.Diffuse = *r.Diffuse
	}
	if r.Cartesian != nil {
		b.Cartesian = parseFlag(*r.Cartesian)
	}
	if r.ScreenRef != nil {
		b.ScreenRef = parseFlag(*r.ScreenRef)
	}
	if r.HeadLocked != nil {
		b.HeadLocked = parseFlag(*r.HeadLocked)
	}

	if r.ChannelLock != nil && parseFlag(r.ChannelLock.Value) {
		b.ChannelLock = &ChannelLock{MaxDistance: r.ChannelLock.MaxDistance}
	}
	if r.Divergence != nil {
		value, err := parseFloatValue(r.Divergence.Value, r.ID)
		if err != nil {
			return nil, err
		}
		b.ObjectDivergence = &ObjectDivergence{
			Value:         value,
			AzimuthRange:  r.Divergence.AzimuthRange,
			PositionRange: r.Divergence.PositionRange,
		}
	}
	if r.JumpPosition != nil {
		b.JumpPosition.Flag = parseFlag(r.JumpPosition.Value)
		if r.JumpPosition.InterpolationLength != nil {
			length, err := parseInterpolationLength(*r.JumpPosition.InterpolationLength)
			if err != nil {
				return nil, fmt.Errorf("%s: %w", r.ID, err)
			}
			b.JumpPosition.InterpolationLength = length
		}
	}
	if r.ZoneExclusion != nil {
		for _, z := range r.ZoneExclusion.Zones {
			zone, err := parseZone(z)
			if err != nil {
				return nil, fmt.Errorf("%s: %w", r.ID, err)
			}
			b.ZoneExclusion = append(b.ZoneExclusion, zone)
		}
	}

	coords := map[string]float64{}
	var edgeLock ScreenEdgeLock
	for _, pos := range r.Positions {
		value, err := parseFloatValue(pos.Value, r.ID)
		if err != nil {
			return nil, err
		}
		coords[pos.Coordinate] = value
		if err := parseEdgeLock(pos.ScreenEdgeLock, &edgeLock); err != nil {
			return nil, fmt.Errorf("%s: %w", r.ID, err)
		}
	}

	_, hasAz := coords["azimuth"]
	_, hasX := coords["X"]
	switch {
	case hasAz:
		dist := 1.0
		if d, ok := coords["distance"]; ok {
			dist = d
		}
		b.Position = PolarObjectPosition{
			Azimuth:        coords["azimuth"],
			Elevation:      coords["elevation"],
			Distance:       dist,
			ScreenEdgeLock: edgeLock,
		}
	case hasX:
		b.Position = CartesianObjectPosition{
			X: coords["X"], Y: coords["Y"], Z: coords["Z"],
			ScreenEdgeLock: edgeLock,
		}
		b.Cartesian = true
	default:
		return nil, fmt.Errorf("%w: block %s has no position", ErrParse, r.ID)
	}

	return b, nil
}

// parseInterpolationLength accepts either the ADM time notation or a
// plain number of seconds.
func parseInterpolationLength(s string) (*Time, error) {
	s = strings.TrimSpace(s)
	if strings.Contains(s, ":") {
		t, err := ParseTime(s)
		if err != nil {
			return nil, err
		}
		return &t, nil
	}

	// seconds with up to 9 decimal places
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil, fmt.Errorf("%w: %q", ErrBadTime, s)
	}
	t := MakeTime(int64(f*1e9+0.5), 1e9)
	return &t, nil
}

func parseZone(z rawZone) (Zone, error) {
	if z.MinX != nil || z.MaxX != nil || z.MinY != nil || z.MaxY != nil || z.MinZ != nil || z.MaxZ != nil {
		zone := CartesianZone{MinX: -1, MaxX: 1, MinY: -1, MaxY: 1, MinZ: -1, MaxZ: 1}
		if z.MinX != nil {
			zone.MinX = *z.MinX
		}
		if z.MaxX != nil {
			zone.MaxX = *z.MaxX
		}
		if z.MinY != nil {
			zone.MinY = *z.MinY
		}
		if z.MaxY != nil {
			zone.MaxY = *z.MaxY
		}
		if z.MinZ != nil {
			zone.MinZ = *z.MinZ
		}
		if z.MaxZ != nil {
			zone.MaxZ = *z.MaxZ
		}
		return zone, nil
	}

	zone := PolarZone{MinAzimuth: -180, MaxAzimuth: 180, MinElevation: -90, MaxElevation: 90}
	if z.MinAzimuth != nil {
		zone.MinAzimuth = *z.MinAzimuth
	}
	if z.MaxAzimuth != nil {
		zone.MaxAzimuth = *z.MaxAzimuth
	}
	if z.MinElevation != nil {
		zone.MinElevation = *z.MinElevation
	}
	if z.MaxElevation != nil {
		zone.MaxElevation = *z.MaxElevation
	}
	return zone, nil
}

func (p *xmlParser) parseDirectSpeakersBlock(r *rawBlock, common BlockCommon) (BlockFormat, error) {
	b := &BlockDirectSpeakers{BlockCommon: common}
	for _, label := range r.SpeakerLabels {
		b.SpeakerLabels = append(b.SpeakerLabels, strings.TrimSpace(label))
	}

	type boundSet struct {
		value    *float64
		min, max *float64
	}
	bounds := map[string]*boundSet{}
	var edgeLock ScreenEdgeLock

	for i := range r.Positions {
		pos := &r.Positions[i]
		bs := bounds[pos.Coordinate]
		if bs == nil {
			bs = &boundSet{}
			bounds[pos.Coordinate] = bs
		}
		v, err := parseFloatValue(pos.Value, r.ID)
		if err != nil {
			return nil, err
		}
		switch pos.Bound {
		case "":
			bs.value = &v
		case "min":
			bs.min = &v
		case "max":
			bs.max = &v
		default:
			return nil, fmt.Errorf("%w: unknown bound %q in %s", ErrParse, pos.Bound, r.ID)
		}
		if err := parseEdgeLock(pos.ScreenEdgeLock, &edgeLock); err != nil {
			return nil, fmt.Errorf("%s: %w", r.ID, err)
		}
	}

	makeBound := func(name string, fallback float64) Bound {
		bs := bounds[name]
		if bs == nil {
			return Bound{Value: fallback}
		}
		b := Bound{Value: fallback, Min: bs.min, Max: bs.max}
		if bs.value != nil {
			b.Value = *bs.value
		}
		return b
	}

	if _, cartesian := bounds["X"]; cartesian {
		b.Position = DSCartesianPosition{
			BoundedX:       makeBound("X", 0),
			BoundedY:       makeBound("Y", 0),
			BoundedZ:       makeBound("Z", 0),
			ScreenEdgeLock: edgeLock,
		}
	} else {
		b.Position = DSPolarPosition{
			BoundedAzimuth:   makeBound("azimuth", 0),
			BoundedElevation: makeBound("elevation", 0),
			BoundedDistance:  makeBound("distance", 1),
			ScreenEdgeLock:   edgeLock,
		}
	}

	return b, nil
}
