// SPDX-License-Identifier: EPL-2.0

// Package geom provides the positions and angle calculations shared by
// the renderer: ADM-convention polar and Cartesian coordinates, angle
// ranges, local coordinate systems and screen descriptions.
package geom
