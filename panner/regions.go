// SPDX-License-Identifier: EPL-2.0

package panner

import (
	"math"

	"github.com/ebu/ebu-adm-renderer/geom"
)

// regionHandler calculates gains for positions inside some region of
// the sphere, e.g. a triangle of loudspeakers. handle returns nil when
// the position is outside the region; otherwise the value at index i is
// the gain for channel outputChannels()[i].
type regionHandler interface {
	handle(position geom.Vec3) []float64
	outputChannels() []int
}

// handleRemap calls handle and maps the output onto a full channel
// vector.
func handleRemap(r regionHandler, position geom.Vec3, nchannels int) []float64 {
	pv := r.handle(position)
	if pv == nil {
		return nil
	}
	out := make([]float64, nchannels)
	for i, ch := range r.outputChannels() {
		out[ch] = pv[i]
	}
	return out
}

func norm(v []float64) float64 {
	total := 0.0
	for _, x := range v {
		total += x * x
	}
	return math.Sqrt(total)
}

func normalize(v []float64) {
	n := norm(v)
	if n == 0 {
		return
	}
	for i := range v {
		v[i] /= n
	}
}

// invert3 inverts a 3x3 matrix given as rows.
func invert3(m [3]geom.Vec3) ([3]geom.Vec3, bool) {
	a, b, c := m[0], m[1], m[2]
	det := a.Dot(b.Cross(c))
	if det == 0 {
		return [3]geom.Vec3{}, false
	}

	// columns of the inverse are the scaled cross products
	r0 := b.Cross(c).Scale(1 / det)
	r1 := c.Cross(a).Scale(1 / det)
	r2 := a.Cross(b).Scale(1 / det)

	// transpose back to rows
	return [3]geom.Vec3{
		{r0[0], r1[0], r2[0]},
		{r0[1], r1[1], r2[1]},
		{r0[2], r1[2], r2[2]},
	}, true
}

// triplet implements VBAP over three loudspeakers. For a returned gain
// vector x: x dot positions is collinear with the source position, all
// gains are non-negative, and the vector has unit norm. The positions
// are not normalised, as this is not always desirable.
type triplet struct {
	channels  [3]int
	positions [3]geom.Vec3
	basis     [3]geom.Vec3
}

func newTriplet(channels [3]int, positions [3]geom.Vec3) *triplet {
	basis, ok := invert3(positions)
	if !ok {
		// degenerate triplets never match any position
		basis = [3]geom.Vec3{}
	}
	return &triplet{channels: channels, positions: positions, basis: basis}
}

func (t *triplet) outputChannels() []int { return t.channels[:] }

func (t *triplet) handle(position geom.Vec3) []float64 {
	// pv = position . basis
	pv := [3]float64{
		position.Dot(geom.Vec3{t.basis[0][0], t.basis[1][0], t.basis[2][0]}),
		position.Dot(geom.Vec3{t.basis[0][1], t.basis[1][1], t.basis[2][1]}),
		position.Dot(geom.Vec3{t.basis[0][2], t.basis[1][2], t.basis[2][2]}),
	}

	const epsilon = -1e-11
	if pv[0] >= epsilon && pv[1] >= epsilon && pv[2] >= epsilon {
		out := []float64{pv[0], pv[1], pv[2]}
		normalize(out)
		for i := range out {
			out[i] = math.Min(math.Max(out[i], 0), 1)
		}
		return out
	}
	return nil
}

// virtualNgon is a ring of n real loudspeakers around a central virtual
// one. Triplets are formed between the virtual speaker and pairs of
// adjacent real speakers; any gain sent to the virtual speaker is
// distributed to the real speakers by centreDownmix and the result
// renormalised.
type virtualNgon struct {
	channels      []int
	centreDownmix []float64
	regions       []*triplet
}

func newVirtualNgon(channels []int, positions []geom.Vec3, centrePosition geom.Vec3, centreDownmix []float64) *virtualNgon {
	n := len(channels)
	order := geom.NgonVertexOrder(positions)

	ngon := &virtualNgon{channels: channels, centreDownmix: centreDownmix}
	for i := range n {
		j := (i + 1) % n
		ngon.regions = append(ngon.regions, newTriplet(
			[3]int{order[i], order[j], n},
			[3]geom.Vec3{positions[order[i]], positions[order[j]], centrePosition},
		))
	}
	return ngon
}

func (v *virtualNgon) outputChannels() []int { return v.channels }

func (v *virtualNgon) handle(position geom.Vec3) []float64 {
	n := len(v.centreDownmix)
	for _, region := range v.regions {
		pv := handleRemap(region, position, n+1)
		if pv == nil {
			continue
		}

		// downmix the virtual centre speaker into the real speakers
		out := pv[:n]
		for i := range out {
			out[i] += pv[n] * v.centreDownmix[i]
		}
		normalize(out)
		return out
	}
	return nil
}

// quadRegion pans within a (possibly non-planar) quadrilateral of
// loudspeakers by splitting the position into two axis coordinates.
type quadRegion struct {
	channels  [4]int
	positions [4]geom.Vec3
	order     []int
	polyX     [3]geom.Vec3
	polyY     [3]geom.Vec3
}

// quadPanAxisPoly precomputes the polynomial used to find the panning
// position along the axis from edge (a, b) to edge (d, c).
func quadPanAxisPoly(a, b, c, d geom.Vec3) [3]geom.Vec3 {
	return [3]geom.Vec3{
		b.Sub(a).Cross(c.Sub(d)),
		a.Cross(c.Sub(d)).Add(b.Sub(a).Cross(d)),
		a.Cross(d),
	}
}

func quadPanAxis(poly [3]geom.Vec3, position geom.Vec3) (float64, bool) {
	// solve p2 x^2 + p1 x + p0 = 0 for x in [0, 1]
	p2 := poly[0].Dot(position)
	p1 := poly[1].Dot(position)
	p0 := poly[2].Dot(position)

	const epsilon = 1e-10

	check := func(root float64) (float64, bool) {
		if -epsilon < root && root < 1+epsilon {
			return math.Min(math.Max(root, 0), 1), true
		}
		return 0, false
	}

	if math.Abs(p2) < epsilon {
		if math.Abs(p1) < epsilon {
			return 0, false
		}
		return check(-p0 / p1)
	}

	disc := p1*p1 - 4*p2*p0
	if disc < 0 {
		return 0, false
	}
	sqrtDisc := math.Sqrt(disc)
	if root, ok := check((-p1 + sqrtDisc) / (2 * p2)); ok {
		return root, true
	}
	return check((-p1 - sqrtDisc) / (2 * p2))
}

func newQuadRegion(channels [4]int, positions [4]geom.Vec3) *quadRegion {
	q := &quadRegion{channels: channels, positions: positions}
	q.order = geom.NgonVertexOrder(positions[:])

	p := func(i int) geom.Vec3 { return positions[q.order[i]] }
	q.polyX = quadPanAxisPoly(p(0), p(1), p(2), p(3))
	q.polyY = quadPanAxisPoly(p(1), p(2), p(3), p(0))
	return q
}

func (q *quadRegion) outputChannels() []int { return q.channels[:] }

func (q *quadRegion) handle(position geom.Vec3) []float64 {
	x, okX := quadPanAxis(q.polyX, position)
	y, okY := quadPanAxis(q.polyY, position)
	if !okX || !okY {
		return nil
	}

	pvs := make([]float64, 4)
	pvs[q.order[0]] = (1 - x) * (1 - y)
	pvs[q.order[1]] = x * (1 - y)
	pvs[q.order[2]] = x * y
	pvs[q.order[3]] = (1 - x) * y

	// reject positions behind the plane of the quad
	velocity := geom.Vec3{}
	for i, pv := range pvs {
		velocity = velocity.Add(q.positions[i].Scale(pv))
	}
	if velocity.Dot(position) <= 0 {
		return nil
	}

	normalize(pvs)
	return pvs
}

// PointSourcePanner pans a point source to loudspeaker gains; it wraps
// a set of regions covering the sphere.
type PointSourcePanner struct {
	regions   []regionHandler
	nchannels int
	downmix   [][]float64
}

// NumChannels is the length of the gain vectors returned by Handle.
func (p *PointSourcePanner) NumChannels() int {
	if p.downmix != nil {
		return len(p.downmix)
	}
	return p.nchannels
}

// Handle calculates gains for a Cartesian source position, or nil if no
// region covers it (which cannot happen for correctly-configured
// layouts).
func (p *PointSourcePanner) Handle(position geom.Vec3) []float64 {
	for _, region := range p.regions {
		pv := handleRemap(region, position, p.nchannels)
		if pv == nil {
			continue
		}
		if p.downmix == nil {
			return pv
		}

		out := make([]float64, len(p.downmix))
		for i, row := range p.downmix {
			for j, coeff := range row {
				out[i] += coeff * pv[j]
			}
		}
		normalize(out)
		return out
	}
	return nil
}

// stereoPanDownmix implements 0+2+0 panning as 0+5+0 panning followed
// by a BS.775-style downmix with corrected position and energy.
type stereoPanDownmix struct {
	left, right int
	psp         *PointSourcePanner
}

func (s *stereoPanDownmix) outputChannels() []int { return []int{s.left, s.right} }

func (s *stereoPanDownmix) handle(position geom.Vec3) []float64 {
	// downmix as in BS.775, with the centre adjusted to preserve the
	// velocity vector rather than the output power
	downmix := [2][5]float64{
		{1, 0, math.Sqrt(3) / 3, math.Sqrt(0.5), 0},
		{0, 1, math.Sqrt(3) / 3, 0, math.Sqrt(0.5)},
	}

	pv := s.psp.Handle(position)
	if pv == nil {
		return nil
	}

	out := make([]float64, 2)
	for i := range 2 {
		for j := range 5 {
			out[i] += downmix[i][j] * pv[j]
		}
	}
	normalize(out)

	// vary the level by the front/back balance; 0dB at the front to
	// -3dB at the back
	front := math.Max(pv[0], math.Max(pv[1], pv[2]))
	back := math.Max(pv[3], pv[4])
	scale := math.Pow(0.5, 0.5*back/(front+back))

	out[0] *= scale
	out[1] *= scale
	return out
}
