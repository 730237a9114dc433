// SPDX-License-Identifier: EPL-2.0

package layout

import "errors"

var (
	ErrUnknownLayout   = errors.New("unknown layout name")
	ErrBadSpeakersFile = errors.New("invalid speakers file")
	ErrBadScreen       = errors.New("invalid screen specification")
)
