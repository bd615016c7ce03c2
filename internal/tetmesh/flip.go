package tetmesh

import "github.com/soypat/cdt/internal/predicates"

// Flip23 replaces tetrahedron t and its neighbor across face i with three
// tetrahedra sharing the edge between their apexes. It returns false and
// leaves the mesh unchanged when either is a ghost, the shared face is
// protected or the result would not be positively oriented.
func (m *Mesh) Flip23(t, i int) bool {
	u := m.Adj[t][i]
	if m.IsGhost(t) || m.IsGhost(u) {
		return false
	}
	f := m.Face(t, i)
	if m.protected(f[0], f[1], f[2]) {
		return false
	}
	a := m.Nodes[t][i]
	b := m.Nodes[u][m.oppositeSlot(u, FaceKey(f[0], f[1], f[2]))]
	x, y, z := f[0], f[1], f[2]
	nodes := [][4]int{{x, y, b, a}, {y, z, b, a}, {z, x, b, a}}
	for _, nd := range nodes {
		if m.orient(nd[0], nd[1], nd[2], nd[3]) <= 0 {
			return false
		}
	}
	m.replace([]int{t, u}, nodes)
	m.Flips++
	return true
}

// Flip32 removes edge ab shared by exactly three real tetrahedra and
// replaces them with two tetrahedra sharing the triangle of the ring.
func (m *Mesh) Flip32(a, b int) bool {
	tets, ring, ok := m.EdgeRing(a, b)
	if !ok || len(ring) != 3 || !m.edgeFree(a, b, ring) {
		return false
	}
	for _, w := range ring {
		if w == Infinite {
			return false
		}
	}
	x, y, z := ring[0], ring[1], ring[2]
	oa, ob := m.orient(x, y, z, a), m.orient(x, y, z, b)
	if oa == 0 || ob == 0 || oa == ob {
		return false
	}
	nodes := [][4]int{{x, y, z, a}, {x, y, z, b}}
	if oa < 0 {
		nodes[0] = [4]int{y, x, z, a}
	} else {
		nodes[1] = [4]int{y, x, z, b}
	}
	m.replace(tets, nodes)
	m.Flips++
	return true
}

// Flip44 removes edge ab shared by four tetrahedra whose ring has p and q in
// opposite positions and a, b, p, q coplanar with segment pq crossing ab. The
// four tetrahedra are replaced by four sharing edge pq. One of the remaining
// ring vertices may be Infinite.
func (m *Mesh) Flip44(a, b, p, q int) bool {
	if a == Infinite || b == Infinite || p == Infinite || q == Infinite {
		return false
	}
	tets, ring, ok := m.EdgeRing(a, b)
	if !ok || len(ring) != 4 || !m.edgeFree(a, b, ring) {
		return false
	}
	k := -1
	for j, w := range ring {
		if w == p {
			k = j
		}
	}
	if k < 0 || ring[(k+2)%4] != q {
		return false
	}
	r := [2]int{ring[(k+1)%4], ring[(k+3)%4]}
	hint := r[0]
	if hint == Infinite {
		hint = r[1]
	}
	if hint == Infinite || m.orient(a, b, p, q) != 0 {
		return false
	}
	if m.orient(p, q, hint, a)*m.orient(p, q, hint, b) >= 0 ||
		m.orient(a, b, hint, p)*m.orient(a, b, hint, q) >= 0 {
		return false
	}
	var nodes [][4]int
	for _, w := range r {
		for _, e := range [2]int{a, b} {
			if w != Infinite {
				o := m.orient(p, q, w, e)
				if o == 0 {
					return false
				}
				if o > 0 {
					nodes = append(nodes, [4]int{p, q, w, e})
				} else {
					nodes = append(nodes, [4]int{q, p, w, e})
				}
				continue
			}
			V := m.Vertices
			if predicates.Collinear(V[p], V[q], V[e]) {
				return false
			}
			o := m.orient(p, q, e, hint)
			if o == 0 {
				return false
			}
			if o < 0 {
				nodes = append(nodes, [4]int{p, q, e, Infinite})
			} else {
				nodes = append(nodes, [4]int{q, p, e, Infinite})
			}
		}
	}
	m.replace(tets, nodes)
	m.Flips++
	return true
}

// RemoveEdge removes edge ab by replacing the n tetrahedra around it with
// 2n-4 tetrahedra built on a triangulation of its ring whose every triangle
// has a and b strictly on opposite sides. A convex hull edge is removed only
// when its two hull faces are coplanar and the chord between their far
// vertices crosses ab: the chord closes the ring polygon and carries the two
// new ghosts.
func (m *Mesh) RemoveEdge(a, b int) bool {
	if a == Infinite || b == Infinite {
		return false
	}
	tets, ring, ok := m.EdgeRing(a, b)
	if !ok || !m.edgeFree(a, b, ring) {
		return false
	}
	n := len(ring)
	poly := ring
	hull := false
	for k, w := range ring {
		if w == Infinite {
			poly = append(append([]int(nil), ring[k+1:]...), ring[:k]...)
			hull = true
			break
		}
	}
	if len(poly) < 3 {
		return false
	}
	s := 0
	for k, w := range ring {
		if w != Infinite && ring[(k+1)%n] != Infinite {
			s = m.orient(a, b, w, ring[(k+1)%n])
			break
		}
	}
	if s == 0 {
		return false
	}
	c0, cm := poly[0], poly[len(poly)-1]
	hint := Infinite
	if hull {
		if m.orient(a, b, c0, cm) != 0 {
			return false
		}
		for _, w := range poly[1 : len(poly)-1] {
			if m.orient(a, b, c0, w) != 0 {
				hint = w
				break
			}
		}
		if hint == Infinite ||
			m.orient(c0, cm, hint, a)*m.orient(c0, cm, hint, b) >= 0 ||
			m.orient(a, b, hint, c0)*m.orient(a, b, hint, cm) >= 0 {
			return false
		}
	}
	tris, ok := m.triangulateRing(poly, a, b, s)
	if !ok {
		return false
	}
	nodes := make([][4]int, 0, 2*len(tris)+2)
	for _, f := range tris {
		for _, e := range [2]int{a, b} {
			if m.orient(f[0], f[1], f[2], e) > 0 {
				nodes = append(nodes, [4]int{f[0], f[1], f[2], e})
			} else {
				nodes = append(nodes, [4]int{f[1], f[0], f[2], e})
			}
		}
	}
	if hull {
		for _, e := range [2]int{a, b} {
			if m.orient(c0, cm, e, hint) < 0 {
				nodes = append(nodes, [4]int{c0, cm, e, Infinite})
			} else {
				nodes = append(nodes, [4]int{cm, c0, e, Infinite})
			}
		}
	}
	m.replace(tets, nodes)
	m.Flips++
	return true
}

// triangulateRing triangulates polygon poly so that every triangle xyz in
// ring order has Orient3D(x,y,z,a) == -s and Orient3D(x,y,z,b) == s, s being
// the orientation of a, b and two consecutive ring vertices.
func (m *Mesh) triangulateRing(poly []int, a, b, s int) ([][3]int, bool) {
	k := len(poly)
	// split[i][j] is the apex of the triangle on chord ij, -1 if the
	// sub-polygon i..j has no valid triangulation.
	split := make([][]int, k)
	for i := range split {
		split[i] = make([]int, k)
		for j := range split[i] {
			split[i][j] = -1
		}
	}
	for gap := 2; gap < k; gap++ {
		for i := 0; i+gap < k; i++ {
			j := i + gap
			for l := i + 1; l < j; l++ {
				if (l-i > 1 && split[i][l] < 0) || (j-l > 1 && split[l][j] < 0) {
					continue
				}
				x, y, z := poly[i], poly[l], poly[j]
				if m.orient(x, y, z, a) == -s && m.orient(x, y, z, b) == s {
					split[i][j] = l
					break
				}
			}
		}
	}
	if split[0][k-1] < 0 {
		return nil, false
	}
	var tris [][3]int
	stack := [][2]int{{0, k - 1}}
	for len(stack) > 0 {
		i, j := stack[len(stack)-1][0], stack[len(stack)-1][1]
		stack = stack[:len(stack)-1]
		if j-i < 2 {
			continue
		}
		l := split[i][j]
		tris = append(tris, [3]int{poly[i], poly[l], poly[j]})
		stack = append(stack, [2]int{i, l}, [2]int{l, j})
	}
	return tris, true
}

// edgeFree reports whether no face around edge ab is protected.
func (m *Mesh) edgeFree(a, b int, ring []int) bool {
	for _, w := range ring {
		if m.protected(a, b, w) {
			return false
		}
	}
	return true
}
