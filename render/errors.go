// SPDX-License-Identifier: EPL-2.0

package render

import "errors"

var (
	ErrBadMetadata      = errors.New("invalid block metadata")
	ErrMetadataUnderrun = errors.New("metadata underrun")
	ErrAllExcluded      = errors.New("all loudspeakers excluded by zoneExclusion")
	ErrScreenScale      = errors.New("screen scaling undefined for position")
	ErrBadScreen        = errors.New("invalid screen specification")
)
