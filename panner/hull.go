// SPDX-License-Identifier: EPL-2.0

package panner

import (
	"math"
	"sort"

	"github.com/ebu/ebu-adm-renderer/geom"
)

// convexHullFacets finds the facets of the convex hull of a set of
// positions, with coplanar triangles merged into facets with any number
// of corners. Each facet is a sorted list of indices into positions.
//
// The number of loudspeakers is small, so candidate planes are
// enumerated directly from vertex triples; this keeps the triangulation
// free of external solvers and deterministic across platforms.
func convexHullFacets(positions []geom.Vec3) [][]int {
	n := len(positions)
	const epsilon = 1e-6

	centroid := geom.Vec3{}
	for _, p := range positions {
		centroid = centroid.Add(p)
	}
	centroid = centroid.Scale(1 / float64(n))

	type facet struct {
		normal geom.Vec3
		offset float64
		verts  map[int]bool
	}
	var facets []*facet

	for i := range n {
		for j := i + 1; j < n; j++ {
			for k := j + 1; k < n; k++ {
				normal := positions[j].Sub(positions[i]).Cross(positions[k].Sub(positions[i]))
				if normal.Norm() < epsilon {
					continue
				}
				normal = normal.Normalized()
				offset := normal.Dot(positions[i])

				// orient outwards
				if normal.Dot(centroid)-offset > 0 {
					normal = normal.Scale(-1)
					offset = -offset
				}

				// a hull plane has all points on or below it
				onPlane := []int{}
				outside := false
				for v, p := range positions {
					d := normal.Dot(p) - offset
					if d > epsilon {
						outside = true
						break
					}
					if d > -epsilon {
						onPlane = append(onPlane, v)
					}
				}
				if outside {
					continue
				}

				merged := false
				for _, f := range facets {
					if f.normal.Sub(normal).Norm() < 1e-5 && math.Abs(f.offset-offset) < 1e-5 {
						for _, v := range onPlane {
							f.verts[v] = true
						}
						merged = true
						break
					}
				}
				if !merged {
					verts := map[int]bool{}
					for _, v := range onPlane {
						verts[v] = true
					}
					facets = append(facets, &facet{normal: normal, offset: offset, verts: verts})
				}
			}
		}
	}

	out := make([][]int, 0, len(facets))
	for _, f := range facets {
		verts := make([]int, 0, len(f.verts))
		for v := range f.verts {
			verts = append(verts, v)
		}
		sort.Ints(verts)
		out = append(out, verts)
	}

	// fixed facet ordering keeps the resulting region list, and
	// therefore the numerical output, reproducible
	sort.Slice(out, func(a, b int) bool {
		va, vb := out[a], out[b]
		for i := 0; i < len(va) && i < len(vb); i++ {
			if va[i] != vb[i] {
				return va[i] < vb[i]
			}
		}
		return len(va) < len(vb)
	})

	return out
}

// adjacentVerts finds the vertices adjacent to vert in the hull.
func adjacentVerts(facets [][]int, vert int) []int {
	seen := map[int]bool{}
	for _, facet := range facets {
		contains := false
		for _, v := range facet {
			if v == vert {
				contains = true
				break
			}
		}
		if !contains {
			continue
		}
		for _, v := range facet {
			if v != vert {
				seen[v] = true
			}
		}
	}

	out := make([]int, 0, len(seen))
	for v := range seen {
		out = append(out, v)
	}
	sort.Ints(out)
	return out
}
