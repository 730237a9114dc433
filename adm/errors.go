// SPDX-License-Identifier: EPL-2.0

package adm

import "errors"

var (
	ErrBadTime          = errors.New("invalid time notation")
	ErrParse            = errors.New("adm parse error")
	ErrReference        = errors.New("adm reference error")
	ErrTiming           = errors.New("adm timing error")
	ErrUnknownAttribute = errors.New("unknown attribute")
	ErrZeroTrackUID     = errors.New("ATU_00000000 must not be referenced directly")
)
