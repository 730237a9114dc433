// SPDX-License-Identifier: EPL-2.0

package render

import (
	"fmt"
	"math"

	"github.com/ebu/ebu-adm-renderer/adm"
	"github.com/ebu/ebu-adm-renderer/geom"
	"github.com/ebu/ebu-adm-renderer/layout"
	"github.com/ebu/ebu-adm-renderer/panner"
)

// polarEdges is the internal screen representation for scaling polar
// coordinates: the azimuths of the left and right edges and the
// elevations of the top and bottom edges.
type polarEdges struct {
	leftAzimuth     float64
	rightAzimuth    float64
	bottomElevation float64
	topElevation    float64
}

// polarEdgesFromScreen determines the Cartesian position, angle and
// size of the screen, then derives the edge azimuths and elevations.
// Screens extending past -y or past the poles have no consistent edges
// and are rejected.
func polarEdgesFromScreen(screen geom.Screen) (polarEdges, error) {
	var centre, xVec, zVec geom.Vec3

	switch s := screen.(type) {
	case *geom.PolarScreen:
		centre = s.CentrePosition.Cartesian()
		width := s.CentrePosition.Distance * math.Tan(s.WidthAzimuth/2*math.Pi/180)
		height := width / s.AspectRatio

		axes := geom.LocalCoordinateSystem(s.CentrePosition.Azimuth, s.CentrePosition.Elevation)
		xVec = axes[0].Scale(width)
		zVec = axes[2].Scale(height)
	case *geom.CartesianScreen:
		centre = s.CentrePosition.Vec()
		width := s.WidthX / 2
		height := width / s.AspectRatio
		xVec = geom.Vec3{width, 0, 0}
		zVec = geom.Vec3{0, 0, height}
	default:
		return polarEdges{}, fmt.Errorf("%w: unknown screen type", ErrBadScreen)
	}

	pe := polarEdges{
		leftAzimuth:     geom.Azimuth(centre.Sub(xVec)),
		rightAzimuth:    geom.Azimuth(centre.Add(xVec)),
		bottomElevation: geom.Elevation(centre.Sub(zVec)),
		topElevation:    geom.Elevation(centre.Add(zVec)),
	}

	if pe.rightAzimuth > pe.leftAzimuth {
		return polarEdges{}, fmt.Errorf("%w: screen must not extend past -y", ErrBadScreen)
	}
	if geom.Azimuth(centre.Sub(zVec))-geom.Azimuth(centre.Add(zVec)) > 1e-3 {
		return polarEdges{}, fmt.Errorf("%w: screen must not extend past +z or -z", ErrBadScreen)
	}

	return pe, nil
}

// compensatePosition modifies az and el so that vertical panning in
// allocentric coordinates produces vertical source positions in the
// given layout.
func compensatePosition(az, el float64, l *layout.Layout) (float64, float64) {
	if l.ChannelIndex("U+045") < 0 {
		return az, el
	}

	rightAz := geom.Interp(el, []float64{0, 30, 90}, []float64{30, 30 * 30 / 45, 30})
	newAz := geom.Interp(az,
		[]float64{-180, -30, 30, 180},
		[]float64{-180, -rightAz, rightAz, 180})
	return newAz, el
}

// screenScaleHandler warps positions from the reference screen to the
// reproduction screen.
type screenScaleHandler struct {
	repScreen geom.Screen
	layout    *layout.Layout
}

func newScreenScaleHandler(repScreen geom.Screen, l *layout.Layout) *screenScaleHandler {
	return &screenScaleHandler{repScreen: repScreen, layout: l}
}

func scaleAzEl(ref, rep polarEdges, az, el float64) (float64, float64) {
	newAz := geom.Interp(az,
		[]float64{-180, ref.rightAzimuth, ref.leftAzimuth, 180},
		[]float64{-180, rep.rightAzimuth, rep.leftAzimuth, 180})
	newEl := geom.Interp(el,
		[]float64{-90, ref.bottomElevation, ref.topElevation, 90},
		[]float64{-90, rep.bottomElevation, rep.topElevation, 90})
	return newAz, newEl
}

func (h *screenScaleHandler) handle(position geom.Vec3, screenRef bool, refScreen geom.Screen, cartesian bool) (geom.Vec3, error) {
	if !screenRef || h.repScreen == nil {
		return position, nil
	}
	if refScreen == nil {
		return position, nil
	}

	ref, err := polarEdgesFromScreen(refScreen)
	if err != nil {
		return geom.Vec3{}, fmt.Errorf("%w: reference screen: %v", ErrScreenScale, err)
	}
	rep, err := polarEdgesFromScreen(h.repScreen)
	if err != nil {
		return geom.Vec3{}, fmt.Errorf("%w: reproduction screen: %v", ErrScreenScale, err)
	}

	if cartesian {
		az, el, distance := panner.PointCartToPolar(position[0], position[1], position[2])
		scaledAz, scaledEl := scaleAzEl(ref, rep, az, el)
		compAz, compEl := compensatePosition(scaledAz, scaledEl, h.layout)
		return panner.PointPolarToCart(compAz, compEl, distance), nil
	}

	az, el := geom.Azimuth(position), geom.Elevation(position)
	distance := position.Norm()
	newAz, newEl := scaleAzEl(ref, rep, az, el)
	return geom.Cart(newAz, newEl, distance), nil
}

// screenEdgeLockHandler snaps positions to the edges of the
// reproduction screen.
type screenEdgeLockHandler struct {
	repEdges *polarEdges
	layout   *layout.Layout
}

func newScreenEdgeLockHandler(repScreen geom.Screen, l *layout.Layout) (*screenEdgeLockHandler, error) {
	h := &screenEdgeLockHandler{layout: l}
	if repScreen != nil {
		edges, err := polarEdgesFromScreen(repScreen)
		if err != nil {
			return nil, err
		}
		h.repEdges = &edges
	}
	return h, nil
}

func (h *screenEdgeLockHandler) shouldModify(lock adm.ScreenEdgeLock) bool {
	return h.repEdges != nil && (lock.Horizontal != "" || lock.Vertical != "")
}

func (h *screenEdgeLockHandler) lockAzEl(az, el float64, lock adm.ScreenEdgeLock) (float64, float64) {
	switch lock.Horizontal {
	case "left":
		az = h.repEdges.leftAzimuth
	case "right":
		az = h.repEdges.rightAzimuth
	}
	switch lock.Vertical {
	case "top":
		el = h.repEdges.topElevation
	case "bottom":
		el = h.repEdges.bottomElevation
	}
	return az, el
}

func (h *screenEdgeLockHandler) handleVector(position geom.Vec3, lock adm.ScreenEdgeLock, cartesian bool) geom.Vec3 {
	if !h.shouldModify(lock) {
		return position
	}

	if cartesian {
		az, el, distance := panner.PointCartToPolar(position[0], position[1], position[2])
		newAz, newEl := h.lockAzEl(az, el, lock)
		compAz, compEl := compensatePosition(newAz, newEl, h.layout)
		return panner.PointPolarToCart(compAz, compEl, distance)
	}

	az, el := geom.Azimuth(position), geom.Elevation(position)
	distance := position.Norm()
	newAz, newEl := h.lockAzEl(az, el, lock)
	return geom.Cart(newAz, newEl, distance)
}

func (h *screenEdgeLockHandler) handleAzEl(az, el float64, lock adm.ScreenEdgeLock) (float64, float64) {
	if !h.shouldModify(lock) {
		return az, el
	}
	return h.lockAzEl(az, el, lock)
}
