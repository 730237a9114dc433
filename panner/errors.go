// SPDX-License-Identifier: EPL-2.0

package panner

import "errors"

var (
	ErrBadLayout         = errors.New("layout not supported by panner")
	ErrBadScreenSpeaker  = errors.New("screen speaker outside allowed range")
	ErrNoAlloPositions   = errors.New("no allocentric positions for layout")
	ErrPositionNotHandled = errors.New("position not handled by any region")
)
