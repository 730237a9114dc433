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

// coordTrans converts the ADM position object to a Cartesian vector: in
// spherical space for polar positions, or clipped to the room cube for
// Cartesian positions.
func coordTrans(position adm.ObjectPosition) geom.Vec3 {
	switch p := position.(type) {
	case adm.PolarObjectPosition:
		return geom.Cart(p.Azimuth, p.Elevation, p.Distance)
	case adm.CartesianObjectPosition:
		return geom.Vec3{
			clampUnit(p.X), clampUnit(p.Y), clampUnit(p.Z),
		}
	default:
		panic("render: unknown object position type")
	}
}

func clampUnit(x float64) float64 { return math.Min(math.Max(x, -1), 1) }

func positionEdgeLock(position adm.ObjectPosition) adm.ScreenEdgeLock {
	switch p := position.(type) {
	case adm.PolarObjectPosition:
		return p.ScreenEdgeLock
	case adm.CartesianObjectPosition:
		return p.ScreenEdgeLock
	default:
		return adm.ScreenEdgeLock{}
	}
}

// channelLockHandler implements channel locking as a position
// transformation: a position within maxDistance of a loudspeaker is
// replaced by that loudspeaker's position. Candidates are ranked by
// distance, with ties broken by the lowest channel index.
type channelLockHandler struct {
	positions []geom.Vec3
	weights   geom.Vec3
}

// newEgoChannelLockHandler uses the real normalised positions with
// unweighted distances.
func newEgoChannelLockHandler(l *layout.Layout) *channelLockHandler {
	return &channelLockHandler{positions: l.NormPositions(), weights: geom.Vec3{1, 1, 1}}
}

// newAlloChannelLockHandler uses allocentric positions with per-axis
// weighted distances.
func newAlloChannelLockHandler(positions []geom.Vec3) *channelLockHandler {
	return &channelLockHandler{positions: positions, weights: geom.Vec3{1.0 / 16, 4, 32}}
}

func (h *channelLockHandler) weightedDistance(a, b geom.Vec3) float64 {
	d := a.Sub(b)
	return math.Sqrt(h.weights[0]*d[0]*d[0] + h.weights[1]*d[1]*d[1] + h.weights[2]*d[2]*d[2])
}

func (h *channelLockHandler) handle(position geom.Vec3, lock *adm.ChannelLock, excluded []bool) geom.Vec3 {
	if lock == nil {
		return position
	}

	const tol = 1e-5

	best := -1
	bestDist := 0.0
	for i, channelPos := range h.positions {
		if excluded != nil && excluded[i] {
			continue
		}

		if lock.MaxDistance != nil {
			if position.Sub(channelPos).Norm() >= *lock.MaxDistance+tol {
				continue
			}
		}

		d := h.weightedDistance(position, channelPos)
		if best < 0 || d < bestDist-tol {
			best = i
			bestDist = d
		}
	}

	if best < 0 {
		return position
	}
	return h.positions[best]
}

// diverge implements object divergence by duplicating and displacing
// the source position, returning per-position gains and positions.
func diverge(position geom.Vec3, divergence *adm.ObjectDivergence, cartesian bool, warner adm.Warner) ([]float64, []geom.Vec3) {
	if divergence == nil || divergence.Value == 0 {
		return []float64{1}, []geom.Vec3{position}
	}

	// gains such that gl+gc+gr is 1 for all x, with gc running from 1
	// at x=0 through 1/3 at x=0.5 to 0 at x=1
	value := divergence.Value
	gLR := value / (value + 1)
	gC := (1 - value) / (value + 1)

	if cartesian {
		if divergence.AzimuthRange != nil && warner != nil {
			warner.Warn("azimuthRange specified for blockFormat in Cartesian mode; using Cartesian divergence")
		}

		positionRange := 0.0
		if divergence.PositionRange != nil {
			positionRange = *divergence.PositionRange
		}

		clampVec := func(v geom.Vec3) geom.Vec3 {
			return geom.Vec3{clampUnit(v[0]), clampUnit(v[1]), clampUnit(v[2])}
		}
		left := clampVec(position.Add(geom.Vec3{positionRange, 0, 0}))
		right := clampVec(position.Sub(geom.Vec3{positionRange, 0, 0}))

		return []float64{gLR, gC, gLR}, []geom.Vec3{left, clampVec(position), right}
	}

	if divergence.PositionRange != nil && warner != nil {
		warner.Warn("positionRange specified for blockFormat in polar mode; using polar divergence")
	}

	azimuthRange := 45.0
	if divergence.AzimuthRange != nil {
		azimuthRange = *divergence.AzimuthRange
	}

	distance := position.Norm()
	pL := geom.Cart(azimuthRange, 0, distance)
	pR := geom.Cart(-azimuthRange, 0, distance)

	// rotate the divergence triangle onto the source direction
	m := geom.LocalCoordinateSystem(geom.Azimuth(position), geom.Elevation(position))
	rotate := func(p geom.Vec3) geom.Vec3 {
		return m[0].Scale(p[0]).Add(m[1].Scale(p[1])).Add(m[2].Scale(p[2]))
	}

	return []float64{gLR, gC, gLR}, []geom.Vec3{rotate(pL), position, rotate(pR)}
}

// DirectDiffuseGains splits the calculated gains into the direct and
// diffuse paths.
type DirectDiffuseGains struct {
	Direct  []float64
	Diffuse []float64
}

// GainCalc computes a per-loudspeaker gain vector for each Objects
// block format.
type GainCalc struct {
	layout     *layout.Layout
	isLFE      []bool
	warner     adm.Warner
	psp        *panner.PointSourcePanner
	extent     *panner.PolarExtentPanner
	screenScale *screenScaleHandler
	edgeLock   *screenEdgeLockHandler
	egoLock    *channelLockHandler
	alloLock   *channelLockHandler
	zone       *zoneExclusionHandler
	alloPositions []geom.Vec3
}

// NewGainCalc configures the gain calculator for a layout (which may
// contain LFE channels; they receive zero gain).
func NewGainCalc(l *layout.Layout, warner adm.Warner) (*GainCalc, error) {
	withoutLFE := l.WithoutLFE()

	psp, err := panner.Configure(withoutLFE)
	if err != nil {
		return nil, err
	}
	edgeLock, err := newScreenEdgeLockHandler(l.Screen, withoutLFE)
	if err != nil {
		return nil, err
	}

	g := &GainCalc{
		layout:      l,
		isLFE:       l.IsLFE(),
		warner:      warner,
		psp:         psp,
		extent:      panner.NewPolarExtentPanner(psp),
		screenScale: newScreenScaleHandler(l.Screen, withoutLFE),
		edgeLock:    edgeLock,
		egoLock:     newEgoChannelLockHandler(withoutLFE),
		zone:        newZoneExclusionHandler(withoutLFE),
	}

	if g.alloPositions, err = panner.PositionsForLayout(withoutLFE); err != nil {
		return nil, err
	}
	g.alloLock = newAlloChannelLockHandler(g.alloPositions)

	return g, nil
}

// Render computes the direct and diffuse gain vectors for one block.
func (g *GainCalc) Render(meta *ObjectTypeMetadata) (DirectDiffuseGains, error) {
	block := meta.BlockFormat

	position := coordTrans(block.Position)

	position, err := g.screenScale.handle(position, block.ScreenRef && !block.HeadLocked,
		meta.ExtraData.ReferenceScreen, block.Cartesian)
	if err != nil {
		return DirectDiffuseGains{}, err
	}

	if !block.HeadLocked {
		position = g.edgeLock.handleVector(position, positionEdgeLock(block.Position), block.Cartesian)
	}

	var extentPan func(pos geom.Vec3, width, height, depth float64) []float64

	if block.Cartesian {
		zoneExcluded := g.zone.getExcluded(block.ZoneExclusion)
		allExcluded := len(zoneExcluded) > 0
		for _, ex := range zoneExcluded {
			allExcluded = allExcluded && ex
		}
		if allExcluded {
			return DirectDiffuseGains{}, fmt.Errorf("%w (block %s)", ErrAllExcluded, block.ID)
		}

		excluded := panner.GetExcluded(g.alloPositions, zoneExcluded)

		position = g.alloLock.handle(position, block.ChannelLock, excluded)

		var includedPositions []geom.Vec3
		var includedIdx []int
		for i, ex := range excluded {
			if !ex {
				includedPositions = append(includedPositions, g.alloPositions[i])
				includedIdx = append(includedIdx, i)
			}
		}

		extentPan = func(pos geom.Vec3, width, height, depth float64) []float64 {
			gains := panner.AllocentricExtentPan(includedPositions, pos, width, height, depth)
			full := make([]float64, len(excluded))
			for i, idx := range includedIdx {
				full[idx] = gains[i]
			}
			return full
		}
	} else {
		position = g.egoLock.handle(position, block.ChannelLock, nil)
		extentPan = g.extent.Handle
	}

	divergedGains, divergedPositions := diverge(position, block.ObjectDivergence, block.Cartesian, g.warner)

	nch := g.psp.NumChannels()
	gains := make([]float64, nch)
	for i, pos := range divergedPositions {
		pv := extentPan(pos, block.Width, block.Height, block.Depth)
		for ch, pg := range pv {
			gains[ch] += divergedGains[i] * pg * pg
		}
	}
	for ch := range gains {
		gains[ch] = math.Sqrt(gains[ch])
	}

	if !block.Cartesian {
		if gains, err = g.zone.handle(gains, block.ZoneExclusion); err != nil {
			return DirectDiffuseGains{}, fmt.Errorf("%w (block %s)", err, block.ID)
		}
	}

	for ch := range gains {
		if math.IsNaN(gains[ch]) {
			gains[ch] = 0
		}
		gains[ch] *= block.Gain
	}

	// expand over the full layout, leaving LFE channels silent
	full := make([]float64, len(g.isLFE))
	idx := 0
	for ch, lfe := range g.isLFE {
		if !lfe {
			full[ch] = gains[idx]
			idx++
		}
	}

	direct := make([]float64, len(full))
	diffuse := make([]float64, len(full))
	for ch, gain := range full {
		direct[ch] = gain * math.Sqrt(1-block.Diffuse)
		diffuse[ch] = gain * math.Sqrt(block.Diffuse)
	}

	return DirectDiffuseGains{Direct: direct, Diffuse: diffuse}, nil
}
