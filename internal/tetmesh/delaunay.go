package tetmesh

import (
	"fmt"
	"math/rand"

	"github.com/soypat/cdt/internal/predicates"
	"go.uber.org/zap"
	"gonum.org/v1/gonum/spatial/kdtree"
	"gonum.org/v1/gonum/spatial/r3"
)

// insertionSeed fixes the insertion order so identical input produces
// identical output.
const insertionSeed = 0x5eed

// Tetrahedrize builds the Delaunay tetrahedrization of all vertices the mesh
// was created with. Vertices are inserted in a deterministic pseudo-random
// order.
func (m *Mesh) Tetrahedrize() error {
	n := len(m.Vertices)
	if n < 4 {
		return fmt.Errorf("%w: need 4 vertices, got %d", ErrDegenerate, n)
	}
	order := rand.New(rand.NewSource(insertionSeed)).Perm(n)
	first, err := m.initialSimplex(order)
	if err != nil {
		return err
	}
	for k, v := range order {
		if k < 4 {
			continue
		}
		if err := m.insert(v); err != nil {
			return fmt.Errorf("inserting vertex %d: %w", v, err)
		}
	}
	m.log.Debug("tetrahedrized", zap.Int("vertices", n), zap.Int("first", first[0]),
		zap.Int("tetSlots", len(m.Nodes)))
	return nil
}

// initialSimplex moves four affinely independent vertices to the front of
// order and builds the first tetrahedron with its four ghosts.
func (m *Mesh) initialSimplex(order []int) ([4]int, error) {
	V := m.Vertices
	pick := [4]int{0, -1, -1, -1}
	for k := 1; k < len(order) && pick[3] < 0; k++ {
		p := V[order[k]]
		switch {
		case pick[1] < 0:
			if p != V[order[pick[0]]] {
				pick[1] = k
			}
		case pick[2] < 0:
			if !predicates.Collinear(V[order[pick[0]]], V[order[pick[1]]], p) {
				pick[2] = k
			}
		default:
			if predicates.Orient3D(V[order[pick[0]]], V[order[pick[1]]], V[order[pick[2]]], p) != 0 {
				pick[3] = k
			}
		}
	}
	if pick[3] < 0 {
		return [4]int{}, ErrDegenerate
	}
	for i, k := range pick {
		order[i], order[k] = order[k], order[i]
	}
	s := [4]int{order[0], order[1], order[2], order[3]}
	if m.orient(s[0], s[1], s[2], s[3]) < 0 {
		s[0], s[1] = s[1], s[0]
	}
	nodes := [][4]int{s}
	for i := 0; i < 4; i++ {
		f := faceIdx[i]
		// Face f has s[i] on its positive side, reversing it puts the
		// outside on the positive side of the ghost's real face.
		nodes = append(nodes, [4]int{s[f[0]], s[f[2]], s[f[1]], Infinite})
	}
	m.replace(nil, nodes)
	for _, v := range s {
		m.tree.Insert(vertexPoint{idx: v, Vec: V[v]}, false)
	}
	return s, nil
}

// InsertVertex appends p to the mesh and inserts it. On failure the vertex
// is removed again and the mesh is left unchanged.
func (m *Mesh) InsertVertex(p r3.Vec, kind VertexKind) (int, error) {
	v := len(m.Vertices)
	m.Vertices = append(m.Vertices, p)
	m.Kinds = append(m.Kinds, kind)
	m.vtet = append(m.vtet, -1)
	if err := m.insert(v); err != nil {
		m.Vertices = m.Vertices[:v]
		m.Kinds = m.Kinds[:v]
		m.vtet = m.vtet[:v]
		return -1, err
	}
	return v, nil
}

func (m *Mesh) insert(v int) error {
	p := m.Vertices[v]
	t := m.locate(p)
	for _, u := range m.Nodes[t] {
		if u != Infinite && m.Vertices[u] == p {
			return fmt.Errorf("%w: vertices %d and %d", ErrDuplicate, u, v)
		}
	}
	cavity, err := m.cavity(v, t)
	if err != nil {
		return err
	}
	inCav := make(map[int]bool, len(cavity))
	for _, s := range cavity {
		inCav[s] = true
	}
	var nodes [][4]int
	for _, s := range cavity {
		for i := 0; i < 4; i++ {
			if inCav[m.Adj[s][i]] {
				continue
			}
			nd := m.Nodes[s]
			nd[i] = v
			nodes = append(nodes, normalizeGhost(nd))
		}
	}
	m.replace(cavity, nodes)
	m.tree.Insert(vertexPoint{idx: v, Vec: p}, false)
	return nil
}

// normalizeGhost moves Infinite to the last slot with an even permutation.
func normalizeGhost(nd [4]int) [4]int {
	switch Infinite {
	case nd[0]:
		return [4]int{nd[3], nd[2], nd[1], nd[0]}
	case nd[1]:
		return [4]int{nd[2], nd[3], nd[0], nd[1]}
	case nd[2]:
		return [4]int{nd[1], nd[0], nd[3], nd[2]}
	}
	return nd
}

// conflict reports whether the circumsphere of t contains vertex v. For a
// ghost the circumsphere degenerates to the open half-space beyond its hull
// face plus the circumcircle of the face itself.
func (m *Mesh) conflict(t, v int) bool {
	nd := m.Nodes[t]
	V := m.Vertices
	p := V[v]
	if nd[3] == Infinite {
		o := predicates.Orient3D(V[nd[0]], V[nd[1]], V[nd[2]], p)
		return o > 0 || (o == 0 && predicates.InCircleCoplanar(V[nd[0]], V[nd[1]], V[nd[2]], p) > 0)
	}
	return predicates.InSphere(V[nd[0]], V[nd[1]], V[nd[2]], V[nd[3]], p) > 0
}

// cavity collects the tetrahedra in conflict with v connected to t without
// crossing protected faces, then shrinks the set until v sees every boundary
// face from its positive side.
func (m *Mesh) cavity(v, t int) ([]int, error) {
	in := map[int]bool{t: true}
	cav := []int{t}
	for k := 0; k < len(cav); k++ {
		s := cav[k]
		for i := 0; i < 4; i++ {
			n := m.Adj[s][i]
			if in[n] {
				continue
			}
			f := m.Face(s, i)
			if m.protected(f[0], f[1], f[2]) || !m.conflict(n, v) {
				continue
			}
			in[n] = true
			cav = append(cav, n)
		}
	}
	for changed := true; changed; {
		changed = false
		for _, s := range cav {
			if !in[s] {
				continue
			}
			for i := 0; i < 4; i++ {
				if in[m.Adj[s][i]] || m.validCavityFace(s, i, v) {
					continue
				}
				if s == t {
					return nil, fmt.Errorf("%w: vertex %d lies on a face it cannot see", ErrInsertion, v)
				}
				delete(in, s)
				changed = true
				break
			}
		}
		if changed {
			cav = m.reachable(t, in)
		}
	}
	return cav, nil
}

// validCavityFace reports whether replacing node i of s by v yields a
// well formed tetrahedron. A new ghost must keep the hull convex: the node
// it drops and the far node of the ghost across its hull edge stay on the
// inner side of its face.
func (m *Mesh) validCavityFace(s, i, v int) bool {
	nd := m.Nodes[s]
	removed := nd[i]
	nd[i] = v
	nd = normalizeGhost(nd)
	if nd[3] != Infinite {
		return m.orient(nd[0], nd[1], nd[2], nd[3]) > 0
	}
	V := m.Vertices
	if predicates.Collinear(V[nd[0]], V[nd[1]], V[nd[2]]) {
		return false
	}
	if m.orient(nd[0], nd[1], nd[2], removed) > 0 {
		return false
	}
	for _, q := range m.Nodes[m.Adj[s][i]][:3] {
		if q != nd[0] && q != nd[1] && q != nd[2] && m.orient(nd[0], nd[1], nd[2], q) > 0 {
			return false
		}
	}
	return true
}

// reachable returns the members of in connected to t, removing the rest from in.
func (m *Mesh) reachable(t int, in map[int]bool) []int {
	seen := map[int]bool{t: true}
	out := []int{t}
	for k := 0; k < len(out); k++ {
		for _, n := range m.Adj[out[k]] {
			if in[n] && !seen[n] {
				seen[n] = true
				out = append(out, n)
			}
		}
	}
	for s := range in {
		if !seen[s] {
			delete(in, s)
		}
	}
	return out
}

// locate returns a live tetrahedron containing p, or a ghost whose hull face
// sees p strictly, by walking from the tetrahedron of the nearest inserted
// vertex.
func (m *Mesh) locate(p r3.Vec) int {
	t := m.last
	if m.tree.Root != nil {
		if c, _ := m.tree.Nearest(vertexPoint{Vec: p}); c != nil {
			if s := m.vtet[c.(vertexPoint).idx]; m.Alive(s) {
				t = s
			}
		}
	}
	if !m.Alive(t) {
		return m.scanLocate(p)
	}
	V := m.Vertices
	limit := 4*len(m.Nodes) + 16
	for step := 0; step < limit; step++ {
		nd := m.Nodes[t]
		if nd[3] == Infinite {
			if predicates.Orient3D(V[nd[0]], V[nd[1]], V[nd[2]], p) > 0 {
				return t
			}
			t = m.Adj[t][3]
			continue
		}
		m.seed = m.seed*6364136223846793005 + 1442695040888963407
		off := int(m.seed >> 62)
		moved := false
		for k := 0; k < 4; k++ {
			i := (off + k) & 3
			f := faceIdx[i]
			if predicates.Orient3D(V[nd[f[0]]], V[nd[f[1]]], V[nd[f[2]]], p) < 0 {
				t = m.Adj[t][i]
				moved = true
				break
			}
		}
		if !moved {
			return t
		}
	}
	m.log.Debug("walk exhausted, scanning", zap.Int("limit", limit))
	return m.scanLocate(p)
}

func (m *Mesh) scanLocate(p r3.Vec) int {
	V := m.Vertices
	ghost := -1
	for t, nd := range m.Nodes {
		if m.dead[t] {
			continue
		}
		if nd[3] == Infinite {
			if ghost < 0 && predicates.Orient3D(V[nd[0]], V[nd[1]], V[nd[2]], p) > 0 {
				ghost = t
			}
			continue
		}
		inside := true
		for i := 0; i < 4 && inside; i++ {
			f := faceIdx[i]
			inside = predicates.Orient3D(V[nd[f[0]]], V[nd[f[1]]], V[nd[f[2]]], p) >= 0
		}
		if inside {
			return t
		}
	}
	if ghost < 0 {
		panic(fmt.Errorf("%w: point %v not located", ErrInternal, p))
	}
	return ghost
}

// vertexPoint is a mesh vertex stored in the walk seeding tree.
type vertexPoint struct {
	r3.Vec
	idx int
}

func (p vertexPoint) Compare(c kdtree.Comparable, d kdtree.Dim) float64 {
	q := c.(vertexPoint)
	switch d {
	case 0:
		return p.X - q.X
	case 1:
		return p.Y - q.Y
	default:
		return p.Z - q.Z
	}
}

func (p vertexPoint) Dims() int { return 3 }

func (p vertexPoint) Distance(c kdtree.Comparable) float64 {
	return r3.Norm2(r3.Sub(p.Vec, c.(vertexPoint).Vec))
}
