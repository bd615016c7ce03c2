// Package tetmesh implements an incremental Delaunay tetrahedrization over an
// arena of tetrahedra addressed by stable integer slots.
//
// The unbounded region outside the convex hull is covered by ghost
// tetrahedra: tetrahedra whose fourth node is Infinite. Ghosts make every
// face of the structure shared by exactly two tetrahedra so adjacency never
// special cases the hull.
package tetmesh

import (
	"errors"
	"fmt"
	"sort"

	"github.com/soypat/cdt/internal/predicates"
	"go.uber.org/zap"
	"gonum.org/v1/gonum/spatial/kdtree"
	"gonum.org/v1/gonum/spatial/r3"
)

// Infinite is the sentinel node of ghost tetrahedra. Ghosts always store it
// in their last slot.
const Infinite = -1

// VertexKind distinguishes how a vertex came to be in the mesh.
type VertexKind uint8

const (
	Input VertexKind = iota
	BoundingBox
	Steiner
)

// Mark is the region classification of a tetrahedron.
type Mark uint8

const (
	Unvisited Mark = iota
	Interior
	Exterior
	Ghost
)

var (
	// ErrDegenerate is returned when the vertex set spans no volume.
	ErrDegenerate = errors.New("vertex set does not span a volume")
	// ErrDuplicate is returned when inserting a vertex that coincides with an existing one.
	ErrDuplicate = errors.New("vertex coincides with existing vertex")
	// ErrInsertion is returned when no valid cavity exists for a vertex.
	ErrInsertion = errors.New("vertex insertion failed")
	// ErrInternal is returned or panicked with on a topology invariant violation.
	ErrInternal = errors.New("tetrahedrization invariant violated")
)

// faceIdx[i] lists the node slots of the face opposite slot i, ordered so
// that the node in slot i lies on the positive side of the face.
var faceIdx = [4][3]int{{1, 3, 2}, {0, 2, 3}, {0, 3, 1}, {0, 1, 2}}

// Mesh is a tetrahedrization of Vertices. A real tetrahedron n satisfies
// Orient3D(n[0], n[1], n[2], n[3]) > 0. Adj[t][i] is the tetrahedron sharing
// the face opposite Nodes[t][i].
type Mesh struct {
	Vertices []r3.Vec
	Kinds    []VertexKind
	Nodes    [][4]int
	Adj      [][4]int
	Marks    []Mark
	// Protect, when set, reports faces vertex insertion and flips must keep.
	Protect func(a, b, c int) bool

	dead []bool
	free []int
	// vtet holds a tetrahedron incident to each vertex, -1 if not inserted.
	vtet []int
	tree kdtree.Tree
	last int
	seed uint64
	log  *zap.Logger

	Flips int
}

// New returns a mesh over a copy of verts with no tetrahedra. kinds may be
// nil in which case every vertex is an Input vertex.
func New(verts []r3.Vec, kinds []VertexKind, log *zap.Logger) *Mesh {
	if log == nil {
		log = zap.NewNop()
	}
	m := &Mesh{
		Vertices: append([]r3.Vec(nil), verts...),
		Kinds:    make([]VertexKind, len(verts)),
		vtet:     make([]int, len(verts)),
		last:     -1,
		seed:     0x9e3779b97f4a7c15,
		log:      log,
	}
	copy(m.Kinds, kinds)
	for i := range m.vtet {
		m.vtet[i] = -1
	}
	return m
}

// NumVertices returns the number of vertices including Steiner vertices.
func (m *Mesh) NumVertices() int { return len(m.Vertices) }

// NumTetSlots returns the size of the tetrahedron arena. Some slots may be dead.
func (m *Mesh) NumTetSlots() int { return len(m.Nodes) }

// Alive returns true if slot t holds a tetrahedron.
func (m *Mesh) Alive(t int) bool { return t >= 0 && t < len(m.Nodes) && !m.dead[t] }

// IsGhost returns true if t is a ghost tetrahedron.
func (m *Mesh) IsGhost(t int) bool { return m.Nodes[t][3] == Infinite }

// NumSteiner returns the number of Steiner vertices.
func (m *Mesh) NumSteiner() (n int) {
	for _, k := range m.Kinds {
		if k == Steiner {
			n++
		}
	}
	return n
}

// Face returns the nodes of the face of t opposite slot i, ordered so that
// Nodes[t][i] is on its positive side.
func (m *Mesh) Face(t, i int) [3]int {
	nd := &m.Nodes[t]
	return [3]int{nd[faceIdx[i][0]], nd[faceIdx[i][1]], nd[faceIdx[i][2]]}
}

// Slot returns the slot of vertex v in t or -1.
func (m *Mesh) Slot(t, v int) int {
	for i, n := range m.Nodes[t] {
		if n == v {
			return i
		}
	}
	return -1
}

func (m *Mesh) orient(a, b, c, d int) int {
	return predicates.Orient3D(m.Vertices[a], m.Vertices[b], m.Vertices[c], m.Vertices[d])
}

func (m *Mesh) protected(a, b, c int) bool {
	if m.Protect == nil || a == Infinite || b == Infinite || c == Infinite {
		return false
	}
	return m.Protect(a, b, c)
}

// FaceKey returns the nodes of face abc sorted ascending.
func FaceKey(a, b, c int) [3]int {
	k := [3]int{a, b, c}
	if k[0] > k[1] {
		k[0], k[1] = k[1], k[0]
	}
	if k[1] > k[2] {
		k[1], k[2] = k[2], k[1]
	}
	if k[0] > k[1] {
		k[0], k[1] = k[1], k[0]
	}
	return k
}

func (m *Mesh) faceKey(t, i int) [3]int {
	f := m.Face(t, i)
	return FaceKey(f[0], f[1], f[2])
}

func (m *Mesh) alloc(nodes [4]int) int {
	var t int
	if n := len(m.free); n > 0 {
		t = m.free[n-1]
		m.free = m.free[:n-1]
		m.Nodes[t] = nodes
		m.Adj[t] = [4]int{-1, -1, -1, -1}
		m.Marks[t] = Unvisited
		m.dead[t] = false
	} else {
		t = len(m.Nodes)
		m.Nodes = append(m.Nodes, nodes)
		m.Adj = append(m.Adj, [4]int{-1, -1, -1, -1})
		m.Marks = append(m.Marks, Unvisited)
		m.dead = append(m.dead, false)
	}
	if nodes[3] == Infinite {
		m.Marks[t] = Ghost
	}
	for _, v := range nodes {
		if v != Infinite {
			m.vtet[v] = t
		}
	}
	m.last = t
	return t
}

func (m *Mesh) kill(t int) {
	m.dead[t] = true
	m.free = append(m.free, t)
}

type faceRef struct{ t, i int }

// replace atomically swaps the tetrahedra in old for new ones built from
// nodes. Faces of the new tetrahedra are glued to each other and to the
// neighbors old had outside itself. It panics if the new set does not close
// up against the old boundary, which means the caller built an invalid
// replacement.
func (m *Mesh) replace(old []int, nodes [][4]int) []int {
	inOld := make(map[int]bool, len(old))
	for _, s := range old {
		inOld[s] = true
	}
	outer := make(map[[3]int]faceRef)
	for _, s := range old {
		for i := 0; i < 4; i++ {
			n := m.Adj[s][i]
			if n < 0 || inOld[n] {
				continue
			}
			key := m.faceKey(s, i)
			outer[key] = faceRef{t: n, i: m.oppositeSlot(n, key)}
		}
	}
	for _, s := range old {
		m.kill(s)
	}
	ids := make([]int, len(nodes))
	for k, nd := range nodes {
		ids[k] = m.alloc(nd)
	}
	inner := make(map[[3]int]faceRef)
	for _, t := range ids {
		for i := 0; i < 4; i++ {
			key := m.faceKey(t, i)
			if r, ok := inner[key]; ok {
				m.Adj[t][i], m.Adj[r.t][r.i] = r.t, t
				delete(inner, key)
			} else if r, ok := outer[key]; ok {
				m.Adj[t][i], m.Adj[r.t][r.i] = r.t, t
				delete(outer, key)
			} else {
				inner[key] = faceRef{t: t, i: i}
			}
		}
	}
	if len(inner) != 0 || len(outer) != 0 {
		panic(fmt.Errorf("%w: replacement leaves %d unmatched new faces and %d unmatched boundary faces",
			ErrInternal, len(inner), len(outer)))
	}
	return ids
}

// oppositeSlot returns the slot of t whose node is not in face key.
func (m *Mesh) oppositeSlot(t int, key [3]int) int {
	for i, v := range m.Nodes[t] {
		if v != key[0] && v != key[1] && v != key[2] {
			return i
		}
	}
	panic(fmt.Errorf("%w: tetrahedron %d does not contain face %v", ErrInternal, t, key))
}

// Star returns every live tetrahedron incident to vertex v, ghosts included.
func (m *Mesh) Star(v int) []int {
	start := m.vtet[v]
	if !m.Alive(start) || m.Slot(start, v) < 0 {
		start = -1
		for t := range m.Nodes {
			if !m.dead[t] && m.Slot(t, v) >= 0 {
				start = t
				break
			}
		}
		if start < 0 {
			return nil
		}
		m.vtet[v] = start
	}
	star := []int{start}
	seen := map[int]bool{start: true}
	for k := 0; k < len(star); k++ {
		t := star[k]
		for i, n := range m.Nodes[t] {
			if n == v {
				continue // Face opposite v does not contain v.
			}
			nb := m.Adj[t][i]
			if !seen[nb] {
				seen[nb] = true
				star = append(star, nb)
			}
		}
	}
	return star
}

// FindEdge returns a tetrahedron containing edge ab.
func (m *Mesh) FindEdge(a, b int) (int, bool) {
	for _, t := range m.Star(a) {
		if m.Slot(t, b) >= 0 {
			return t, true
		}
	}
	return -1, false
}

// HasEdge returns true if ab is an edge of the mesh.
func (m *Mesh) HasEdge(a, b int) bool {
	_, ok := m.FindEdge(a, b)
	return ok
}

// FindFace returns a tetrahedron t and slot i such that face i of t is abc.
func (m *Mesh) FindFace(a, b, c int) (t, i int, ok bool) {
	for _, t := range m.Star(a) {
		sb, sc := m.Slot(t, b), m.Slot(t, c)
		if sb < 0 || sc < 0 {
			continue
		}
		sa := m.Slot(t, a)
		return t, 6 - sa - sb - sc, true
	}
	return -1, -1, false
}

// HasFace returns true if abc is a face of the mesh.
func (m *Mesh) HasFace(a, b, c int) bool {
	_, _, ok := m.FindFace(a, b, c)
	return ok
}

// EdgeRing returns the tetrahedra around edge ab in rotational order and the
// ring of vertices around it: tets[k] has nodes a, b, ring[k] and
// ring[(k+1)%len(ring)]. The ring may contain Infinite.
func (m *Mesh) EdgeRing(a, b int) (tets, ring []int, ok bool) {
	t0, ok := m.FindEdge(a, b)
	if !ok {
		return nil, nil, false
	}
	var w [2]int
	k := 0
	for _, v := range m.Nodes[t0] {
		if v != a && v != b {
			w[k] = v
			k++
		}
	}
	tets = []int{t0}
	ring = []int{w[0]}
	cur, prev, next := t0, w[0], w[1]
	for iter := 0; ; iter++ {
		if iter > len(m.Nodes) {
			panic(fmt.Errorf("%w: edge ring of %d-%d does not close", ErrInternal, a, b))
		}
		nb := m.Adj[cur][m.Slot(cur, prev)]
		if nb == t0 {
			break
		}
		var other int
		for _, v := range m.Nodes[nb] {
			if v != a && v != b && v != next {
				other = v
			}
		}
		tets = append(tets, nb)
		ring = append(ring, next)
		cur, prev, next = nb, next, other
	}
	return tets, ring, true
}

// Check verifies adjacency symmetry, ghost layout and positive orientation
// of every live tetrahedron.
func (m *Mesh) Check() error {
	for t := range m.Nodes {
		if m.dead[t] {
			continue
		}
		nd := m.Nodes[t]
		for i, v := range nd {
			if v == Infinite && i != 3 {
				return fmt.Errorf("%w: tetrahedron %d has infinite node in slot %d", ErrInternal, t, i)
			}
		}
		if nd[3] != Infinite && m.orient(nd[0], nd[1], nd[2], nd[3]) <= 0 {
			return fmt.Errorf("%w: tetrahedron %d %v not positively oriented", ErrInternal, t, nd)
		}
		for i := 0; i < 4; i++ {
			n := m.Adj[t][i]
			if !m.Alive(n) {
				return fmt.Errorf("%w: tetrahedron %d face %d has no neighbor", ErrInternal, t, i)
			}
			key := m.faceKey(t, i)
			j := m.oppositeSlot(n, key)
			if m.Adj[n][j] != t || m.faceKey(n, j) != key {
				return fmt.Errorf("%w: adjacency %d-%d not symmetric", ErrInternal, t, n)
			}
		}
	}
	return nil
}

// Faces returns the sorted keys of all faces shared by two real tetrahedra
// or lying on the convex hull.
func (m *Mesh) Faces() [][3]int {
	seen := make(map[[3]int]struct{})
	for t := range m.Nodes {
		if m.dead[t] {
			continue
		}
		for i := 0; i < 4; i++ {
			key := m.faceKey(t, i)
			if key[0] != Infinite {
				seen[key] = struct{}{}
			}
		}
	}
	faces := make([][3]int, 0, len(seen))
	for k := range seen {
		faces = append(faces, k)
	}
	sort.Slice(faces, func(i, j int) bool {
		a, b := faces[i], faces[j]
		if a[0] != b[0] {
			return a[0] < b[0]
		}
		if a[1] != b[1] {
			return a[1] < b[1]
		}
		return a[2] < b[2]
	})
	return faces
}
