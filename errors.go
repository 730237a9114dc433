// SPDX-License-Identifier: EPL-2.0

package ear

import (
	"errors"

	"github.com/ebu/ebu-adm-renderer/adm"
	"github.com/ebu/ebu-adm-renderer/layout"
	"github.com/ebu/ebu-adm-renderer/panner"
	"github.com/ebu/ebu-adm-renderer/render"
	"github.com/ebu/ebu-adm-renderer/selection"
)

var (
	// ErrOverload is returned when an output sample clips and
	// fail-on-overload is requested.
	ErrOverload = errors.New("overload in output")
	// ErrStrict is returned when a warning is promoted to an error in
	// strict mode.
	ErrStrict = errors.New("warning treated as error")
)

// ErrorKind classifies errors into the renderer's taxonomy.
type ErrorKind int

const (
	KindUnknown ErrorKind = iota
	KindParse
	KindReference
	KindTiming
	KindLayout
	KindRender
	KindOverload
)

func (k ErrorKind) String() string {
	switch k {
	case KindParse:
		return "AdmParseError"
	case KindReference:
		return "AdmReferenceError"
	case KindTiming:
		return "AdmTimingError"
	case KindLayout:
		return "LayoutError"
	case KindRender:
		return "RenderError"
	case KindOverload:
		return "OverloadError"
	default:
		return "Error"
	}
}

// Kind reports the taxonomy kind of an error.
func Kind(err error) ErrorKind {
	switch {
	case errors.Is(err, adm.ErrParse), errors.Is(err, adm.ErrBadTime),
		errors.Is(err, adm.ErrUnknownAttribute), errors.Is(err, ErrStrict):
		return KindParse
	case errors.Is(err, adm.ErrReference), errors.Is(err, adm.ErrZeroTrackUID),
		errors.Is(err, selection.ErrLoop), errors.Is(err, selection.ErrDiamond),
		errors.Is(err, selection.ErrBadReference), errors.Is(err, selection.ErrConflicting),
		errors.Is(err, selection.ErrAmbiguous), errors.Is(err, selection.ErrBadTrackUID),
		errors.Is(err, selection.ErrComplementary):
		return KindReference
	case errors.Is(err, adm.ErrTiming), errors.Is(err, render.ErrBadMetadata),
		errors.Is(err, render.ErrMetadataUnderrun):
		return KindTiming
	case errors.Is(err, layout.ErrUnknownLayout), errors.Is(err, layout.ErrBadSpeakersFile),
		errors.Is(err, layout.ErrBadScreen), errors.Is(err, panner.ErrBadLayout),
		errors.Is(err, panner.ErrBadScreenSpeaker), errors.Is(err, panner.ErrNoAlloPositions):
		return KindLayout
	case errors.Is(err, render.ErrAllExcluded), errors.Is(err, render.ErrScreenScale),
		errors.Is(err, render.ErrBadScreen), errors.Is(err, selection.ErrUnsupported):
		return KindRender
	case errors.Is(err, ErrOverload):
		return KindOverload
	default:
		return KindUnknown
	}
}
