package cdt

import (
	"fmt"

	"github.com/soypat/cdt/internal/d3"
	"github.com/soypat/cdt/internal/tetmesh"
	"go.uber.org/zap"
)

// extract flattens the interior tetrahedra of m. Bounding box vertices are
// dropped and Steiner vertices renumbered to follow the input vertices.
// Tetrahedra with out of range nodes are skipped. A non-finite vertex
// coordinate fails the whole extraction.
func extract(m *tetmesh.Mesh, numInput int, log *zap.Logger) (Result, error) {
	remap := make([]int, m.NumVertices())
	res := Result{NumInputVertices: numInput}
	n := 0
	for v, kind := range m.Kinds {
		if kind == tetmesh.BoundingBox {
			remap[v] = -1
			continue
		}
		p := m.Vertices[v]
		if !d3.Finite(p) {
			return Result{}, fmt.Errorf("vertex %d has coordinates %v", v, p)
		}
		remap[v] = n
		n++
		if kind == tetmesh.Steiner {
			res.NumSteinerVertices++
		}
		res.Vertices = append(res.Vertices, p.X, p.Y, p.Z)
	}
	dropped, corrupt := 0, 0
	for t := 0; t < m.NumTetSlots(); t++ {
		if !m.Alive(t) || m.IsGhost(t) || m.Marks[t] != tetmesh.Interior {
			continue
		}
		var tet [4]uint32
		ok := true
		for i, v := range m.Nodes[t] {
			if v < 0 || v >= len(remap) {
				log.Error("tetrahedron references missing vertex", zap.Int("tet", t), zap.Int("vertex", v), zap.Int("vertices", len(remap)))
				corrupt++
				ok = false
				break
			}
			if remap[v] < 0 {
				dropped++
				ok = false
				break
			}
			tet[i] = uint32(remap[v])
		}
		if ok {
			res.Tetrahedra = append(res.Tetrahedra, tet[:]...)
		}
	}
	if dropped > 0 {
		log.Warn("dropped interior tetrahedra touching the bounding box", zap.Int("count", dropped))
	}
	if corrupt > 0 {
		log.Warn("dropped interior tetrahedra with invalid vertex indices", zap.Int("count", corrupt))
	}
	res.NumTetrahedra = len(res.Tetrahedra) / 4
	return res, nil
}
