// SPDX-License-Identifier: EPL-2.0

// Package panner implements the panning geometry of BS.2127: the
// point-source panner over a triangulated sphere with virtual
// loudspeakers, the allocentric panner over the room cube, the polar
// and Cartesian extent panners, and the section 10 conversion between
// polar and Cartesian coordinates.
//
// Panners are configured once per layout and are safe for shared
// read-only use afterwards.
package panner
