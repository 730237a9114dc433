// SPDX-License-Identifier: EPL-2.0

package bw64

import "errors"

var (
	ErrNotWave           = errors.New("not a RIFF/BW64 WAVE file")
	ErrBadChunk          = errors.New("malformed chunk")
	ErrNoFmtChunk        = errors.New("missing fmt chunk")
	ErrNoDataChunk       = errors.New("missing data chunk")
	ErrUnsupportedFormat = errors.New("unsupported sample format")
)
