// SPDX-License-Identifier: EPL-2.0

package input

import "errors"

var (
	ErrUnknownFormat = errors.New("no decoder for input format")
	ErrBadStream     = errors.New("malformed audio stream")
)
