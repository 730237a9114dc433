// SPDX-License-Identifier: EPL-2.0

package selection

import "errors"

var (
	ErrLoop          = errors.New("loop in adm references")
	ErrDiamond       = errors.New("element included more than once")
	ErrBadReference  = errors.New("invalid adm reference")
	ErrConflicting   = errors.New("conflicting format references")
	ErrAmbiguous     = errors.New("ambiguous format references")
	ErrBadTrackUID   = errors.New("invalid audioTrackUID")
	ErrUnsupported   = errors.New("unsupported type")
	ErrComplementary = errors.New("invalid complementary object selection")
)
