package recovery

import (
	"errors"
	"fmt"
	"sort"

	"github.com/soypat/cdt/internal/predicates"
	"go.uber.org/zap"
)

// RecoverFaces makes every subface a face of the mesh. Subfaces are first
// attacked by flipping away the mesh edges crossing them, then by splitting
// their longest edge. A constraint triangle whose subfaces exhaust the retry
// budget or whose split fails is recorded as failed and the rest are still
// attempted. Only ErrBudget stops recovery early. The returned error wraps
// ErrConflict when any triangle failed.
func (r *Recoverer) RecoverFaces() error {
	m := r.m
	for {
		progress := false
		for fi := 0; fi < len(r.faces); fi++ {
			f := r.faces[fi]
			if f.dead || r.failed[f.parent] || m.HasFace(f.v[0], f.v[1], f.v[2]) {
				continue
			}
			if r.attempts[f.parent] >= r.cfg.FaceRetryBudget {
				r.failed[f.parent] = true
				r.log.Info("face recovery failed", zap.Int("triangle", f.parent), zap.Int("attempts", r.attempts[f.parent]))
				continue
			}
			r.attempts[f.parent]++
			progress = true
			if err := r.RecoverSegments(); err != nil {
				return err
			}
			if r.faces[fi].dead || r.failed[f.parent] || m.HasFace(f.v[0], f.v[1], f.v[2]) || r.flipFace(f.v) {
				continue
			}
			a, b := r.longestEdge(f.v)
			if err := r.splitEdge(a, b, -1); errors.Is(err, ErrBudget) {
				return err
			} else if err != nil {
				r.fail(f.parent, err)
			}
		}
		if !progress {
			break
		}
	}
	// Vertex insertions of the last pass may have cut subsegments that are
	// not yet guarded by a recovered face.
	if err := r.RecoverSegments(); err != nil {
		return err
	}
	r.log.Info("face recovery done",
		zap.Int("subfaces", len(r.faceIndex)),
		zap.Int("steiner", r.steiner),
		zap.Int("flips", m.Flips),
		zap.Int("failed", len(r.failed)),
	)
	if len(r.failed) > 0 {
		return fmt.Errorf("%w: %d triangles %v", ErrConflict, len(r.failed), r.Failed())
	}
	return nil
}

// flipFace tries to make triangle f a mesh face by removing, with flips,
// every mesh edge crossing its interior.
func (r *Recoverer) flipFace(f [3]int) bool {
	for iter := 0; iter < r.cfg.FlipBudget; iter++ {
		if r.m.HasFace(f[0], f[1], f[2]) {
			return true
		}
		removed := false
		for _, e := range r.crossingEdges(f) {
			if r.removeEdge(e[0], e[1], 0) {
				removed = true
				break
			}
		}
		if !removed {
			return false
		}
	}
	return r.m.HasFace(f[0], f[1], f[2])
}

// crossingEdges returns the mesh edges that cross the open triangle f at a
// single interior point, sorted.
func (r *Recoverer) crossingEdges(f [3]int) [][2]int {
	m := r.m
	V := m.Vertices
	a, b, c := V[f[0]], V[f[1]], V[f[2]]
	side := make(map[int]int)
	sideOf := func(v int) int {
		s, ok := side[v]
		if !ok {
			s = predicates.Orient3D(a, b, c, V[v])
			side[v] = s
		}
		return s
	}
	seen := make(map[[2]int]bool)
	var edges [][2]int
	for t := 0; t < m.NumTetSlots(); t++ {
		if !m.Alive(t) || m.IsGhost(t) {
			continue
		}
		nd := m.Nodes[t]
		for i := 0; i < 3; i++ {
			for j := i + 1; j < 4; j++ {
				p, q := nd[i], nd[j]
				if p > q {
					p, q = q, p
				}
				e := [2]int{p, q}
				if seen[e] || sideOf(p)*sideOf(q) >= 0 {
					continue
				}
				seen[e] = true
				s0 := predicates.Orient3D(V[p], V[q], a, b)
				s1 := predicates.Orient3D(V[p], V[q], b, c)
				s2 := predicates.Orient3D(V[p], V[q], c, a)
				if s0 != 0 && s0 == s1 && s1 == s2 {
					edges = append(edges, e)
				}
			}
		}
	}
	sort.Slice(edges, func(i, j int) bool {
		if edges[i][0] != edges[j][0] {
			return edges[i][0] < edges[j][0]
		}
		return edges[i][1] < edges[j][1]
	})
	return edges
}
