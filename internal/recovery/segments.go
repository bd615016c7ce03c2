package recovery

import (
	"errors"
	"fmt"
	"sort"

	"github.com/soypat/cdt/internal/plc"
	"github.com/soypat/cdt/internal/predicates"
	"github.com/soypat/cdt/internal/tetmesh"
	"go.uber.org/zap"
)

type crossKind uint8

const (
	crossNone crossKind = iota
	crossVertex
	crossEdge
	crossFace
)

// crossing describes the first mesh entity hit by segment ab leaving a.
type crossing struct {
	kind crossKind
	// t and slot locate the crossed face for crossFace: it is the face of t
	// opposite slot.
	t, slot int
	// v holds the crossed vertex in v[0] or the crossed edge.
	v [2]int
}

// RecoverSegments makes every subsegment an edge of the mesh, splitting
// subsegments that cannot be recovered by flips. A subsegment whose split
// fails is abandoned and the triangles on it are recorded as failed. ErrBudget
// and ErrInternal are returned, as is a failure on a subsegment no triangle
// uses.
func (r *Recoverer) RecoverSegments() error {
	for {
		missing := r.missingSegments()
		if len(missing) == 0 {
			return nil
		}
		for _, s := range missing {
			if !r.segs[s] || r.m.HasEdge(s[0], s[1]) {
				continue
			}
			err := r.recoverSegment(s[0], s[1])
			if err == nil {
				continue
			} else if errors.Is(err, ErrBudget) || errors.Is(err, tetmesh.ErrInternal) || len(r.edgeFaces[s]) == 0 {
				return err
			}
			r.stuck[s] = true
			for _, fi := range r.edgeFaces[s] {
				r.fail(r.faces[fi].parent, err)
			}
		}
	}
}

func (r *Recoverer) missingSegments() [][2]int {
	var missing [][2]int
	for s := range r.segs {
		if !r.stuck[s] && !r.m.HasEdge(s[0], s[1]) {
			missing = append(missing, s)
		}
	}
	sort.Slice(missing, func(i, j int) bool {
		if missing[i][0] != missing[j][0] {
			return missing[i][0] < missing[j][0]
		}
		return missing[i][1] < missing[j][1]
	})
	return missing
}

// recoverSegment recovers ab by flips walking from either end. It falls
// back to splitting ab on an existing collinear vertex or at its midpoint.
func (r *Recoverer) recoverSegment(a, b int) error {
	m := r.m
	for iter := 0; iter < r.cfg.FlipBudget; iter++ {
		if m.HasEdge(a, b) {
			return nil
		}
		flipped := false
		for _, end := range [2][2]int{{a, b}, {b, a}} {
			c := r.crossing(end[0], end[1])
			switch c.kind {
			case crossVertex:
				w := c.v[0]
				if !predicates.OnSegmentInterior(m.Vertices[w], m.Vertices[a], m.Vertices[b]) {
					return fmt.Errorf("%w: vertex %d found off segment %d-%d", tetmesh.ErrInternal, w, a, b)
				}
				r.log.Debug("segment through vertex", zap.Int("a", a), zap.Int("b", b), zap.Int("vertex", w))
				return r.splitEdge(a, b, w)
			case crossEdge:
				flipped = r.removeEdge(c.v[0], c.v[1], 0)
			case crossFace:
				flipped = m.Flip23(c.t, c.slot)
			}
			if flipped {
				break
			}
		}
		if !flipped {
			break
		}
	}
	if m.HasEdge(a, b) {
		return nil
	}
	return r.splitEdge(a, b, -1)
}

// crossing finds the tetrahedron around a whose cone at a contains the
// direction toward b and classifies what the segment crosses when leaving it.
func (r *Recoverer) crossing(a, b int) crossing {
	m := r.m
	V := m.Vertices
	pb := V[b]
	for _, t := range m.Star(a) {
		if m.IsGhost(t) {
			continue
		}
		i := m.Slot(t, a)
		var zero [2]int
		nz := 0
		inside := true
		for j := 0; j < 4 && inside; j++ {
			if j == i {
				continue
			}
			f := m.Face(t, j)
			switch predicates.Orient3D(V[f[0]], V[f[1]], V[f[2]], pb) {
			case -1:
				inside = false
			case 0:
				if nz < 2 {
					zero[nz] = j
				}
				nz++
			}
		}
		if !inside {
			continue
		}
		nd := m.Nodes[t]
		switch nz {
		case 0:
			return crossing{kind: crossFace, t: t, slot: i}
		case 1:
			var e [2]int
			k := 0
			for s, v := range nd {
				if s != i && s != zero[0] {
					e[k] = v
					k++
				}
			}
			return crossing{kind: crossEdge, t: t, v: e}
		case 2:
			for s, v := range nd {
				if s != i && s != zero[0] && s != zero[1] {
					return crossing{kind: crossVertex, t: t, v: [2]int{v, -1}}
				}
			}
		}
	}
	return crossing{}
}

// maxRemovalDepth bounds how deep removeEdge recurses into the edges that
// block its 2-3 flips.
const maxRemovalDepth = 6

// removeEdge removes mesh edge pq by flips. The ring of tetrahedra around
// pq is shrunk with 2-3 flips until an edge removal flip deletes the edge.
// A 2-3 flip blocked by an edge of its face is retried after removing that
// edge, up to maxRemovalDepth levels deep. Constraint edges are never
// removed.
func (r *Recoverer) removeEdge(p, q, depth int) bool {
	if p == tetmesh.Infinite || q == tetmesh.Infinite || r.segs[plc.SortedEdge(p, q)] {
		return false
	}
	m := r.m
	if depth == 0 {
		r.removalWork = 0
	}
	for iter := 0; iter < r.cfg.FlipBudget; iter++ {
		tets, ring, ok := m.EdgeRing(p, q)
		if !ok {
			return true
		}
		// Nested removals share one allowance so recursion stays bounded.
		r.removalWork++
		if r.removalWork > 4*r.cfg.FlipBudget {
			return false
		}
		n := len(ring)
		if n == 3 && m.Flip32(p, q) {
			return true
		}
		if n == 4 && (m.Flip44(p, q, ring[0], ring[2]) || m.Flip44(p, q, ring[1], ring[3])) {
			return true
		}
		if m.RemoveEdge(p, q) {
			return true
		}
		reduced := false
		for k := 0; k < n && !reduced; k++ {
			u, w, v := ring[k], ring[(k+1)%n], ring[(k+2)%n]
			if u == tetmesh.Infinite {
				continue
			}
			reduced = m.Flip23(tets[k], m.Slot(tets[k], u))
			if !reduced && depth < maxRemovalDepth && w != tetmesh.Infinite && v != tetmesh.Infinite {
				reduced = r.unblockFace(p, q, w, u, v, depth)
			}
		}
		if !reduced {
			return false
		}
	}
	return false
}

// unblockFace removes the edge of face pqw that keeps segment uv out of the
// face interior. The edge lies on uv or uv passes beyond it.
func (r *Recoverer) unblockFace(p, q, w, u, v, depth int) bool {
	m := r.m
	V := m.Vertices
	inside := -predicates.Orient3D(V[p], V[q], V[w], V[u])
	for _, e := range [2][2]int{{q, w}, {w, p}} {
		s := predicates.Orient3D(V[u], V[v], V[e[0]], V[e[1]])
		if s == inside {
			continue
		}
		if s == 0 && m.Flip44(e[0], e[1], u, v) {
			return true
		}
		if r.removeEdge(e[0], e[1], depth+1) {
			return true
		}
	}
	return false
}
