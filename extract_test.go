package cdt

import (
	"math"
	"testing"

	"github.com/soypat/cdt/internal/tetmesh"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gonum.org/v1/gonum/spatial/r3"
)

func markedMesh(t *testing.T) (m *tetmesh.Mesh, tets []int) {
	t.Helper()
	verts := []r3.Vec{{}, {X: 1}, {Y: 1}, {Z: 1}, {X: 1, Y: 1, Z: 2}}
	m = tetmesh.New(verts, nil, nil)
	require.NoError(t, m.Tetrahedrize())
	for tet := 0; tet < m.NumTetSlots(); tet++ {
		if m.Alive(tet) && !m.IsGhost(tet) {
			m.Marks[tet] = tetmesh.Interior
			tets = append(tets, tet)
		}
	}
	require.NotEmpty(t, tets)
	return m, tets
}

func TestExtractSkipsInvalidNode(t *testing.T) {
	m, tets := markedMesh(t)
	m.Nodes[tets[0]][2] = 99
	res, err := extract(m, m.NumVertices(), zap.NewNop())
	require.NoError(t, err)
	require.Equal(t, len(tets)-1, res.NumTetrahedra)
	requireWellFormed(t, res)
}

func TestExtractNonFinite(t *testing.T) {
	m, _ := markedMesh(t)
	m.Vertices[4].Z = math.Inf(1)
	_, err := extract(m, m.NumVertices(), zap.NewNop())
	require.Error(t, err)
}
