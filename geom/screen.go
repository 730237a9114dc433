// SPDX-License-Identifier: EPL-2.0

package geom

// PolarScreen describes a screen by the polar position of its centre,
// its width as an azimuth angle and its aspect ratio. It is used both
// for the audioProgramme reference screen and the reproduction-room
// screen.
type PolarScreen struct {
	AspectRatio    float64
	CentrePosition PolarPosition
	WidthAzimuth   float64
}

func (s *PolarScreen) isScreen() {}

// CartesianScreen describes a screen by the Cartesian position of its
// centre, its width along the X axis and its aspect ratio.
type CartesianScreen struct {
	AspectRatio    float64
	CentrePosition CartesianPosition
	WidthX         float64
}

func (s *CartesianScreen) isScreen() {}

// Screen is either a *PolarScreen or a *CartesianScreen; a nil Screen
// disables screen-related processing.
type Screen interface {
	isScreen()
}

// DefaultScreen is the screen assumed when none is specified, per
// BS.2127 section 4.3.
func DefaultScreen() Screen {
	return &PolarScreen{
		AspectRatio:    1.78,
		CentrePosition: PolarPosition{Azimuth: 0, Elevation: 0, Distance: 1},
		WidthAzimuth:   58,
	}
}
