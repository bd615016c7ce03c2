package recovery

import (
	"github.com/soypat/cdt/internal/tetmesh"
	"go.uber.org/zap"
)

// MarkInnerTets floods the mesh from the ghost tetrahedra across faces that
// are not subfaces. Reached tetrahedra are marked Exterior and the remaining
// real tetrahedra Interior. It returns the number of interior tetrahedra.
func (r *Recoverer) MarkInnerTets() int {
	m := r.m
	var queue []int
	for t := 0; t < m.NumTetSlots(); t++ {
		if !m.Alive(t) {
			continue
		}
		if m.IsGhost(t) {
			m.Marks[t] = tetmesh.Ghost
			queue = append(queue, t)
		} else {
			m.Marks[t] = tetmesh.Unvisited
		}
	}
	for k := 0; k < len(queue); k++ {
		t := queue[k]
		for i := 0; i < 4; i++ {
			n := m.Adj[t][i]
			if m.Marks[n] != tetmesh.Unvisited || r.isSubface(m.Face(t, i)) {
				continue
			}
			m.Marks[n] = tetmesh.Exterior
			queue = append(queue, n)
		}
	}
	r.interior = 0
	for t := 0; t < m.NumTetSlots(); t++ {
		if m.Alive(t) && m.Marks[t] == tetmesh.Unvisited {
			m.Marks[t] = tetmesh.Interior
			r.interior++
		}
	}
	r.log.Debug("classified", zap.Int("interior", r.interior), zap.Int("exteriorOrGhost", len(queue)))
	return r.interior
}

// IsPolyhedron reports whether the boundary is a closed 2-manifold whose
// triangles were all recovered and which encloses at least one tetrahedron.
// It is meaningful after MarkInnerTets.
func (r *Recoverer) IsPolyhedron() bool {
	return len(r.failed) == 0 && r.interior > 0 && r.plc.ClosedManifold()
}
