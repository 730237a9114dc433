// SPDX-License-Identifier: EPL-2.0

// Package layout models loudspeaker layouts: the BS.2051 catalogue with
// nominal positions and allowed ranges, and the mapping of a standard
// layout onto a real listening environment described by a speakers
// file.
package layout
