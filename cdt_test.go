package cdt

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/spatial/r3"
)

var (
	cubeVertices = []float64{
		0, 0, 0, 1, 0, 0, 1, 1, 0, 0, 1, 0,
		0, 0, 1, 1, 0, 1, 1, 1, 1, 0, 1, 1,
	}
	cubeTriangles = []uint32{
		0, 2, 1, 0, 3, 2,
		4, 5, 6, 4, 6, 7,
		0, 1, 5, 0, 5, 4,
		2, 3, 7, 2, 7, 6,
		0, 4, 7, 0, 7, 3,
		1, 2, 6, 1, 6, 5,
	}
)

func octahedron() ([]float64, []uint32) {
	verts := []float64{1, 0, 0, -1, 0, 0, 0, 1, 0, 0, -1, 0, 0, 0, 1, 0, 0, -1}
	var tris []uint32
	for sx := uint32(0); sx < 2; sx++ {
		for sy := uint32(0); sy < 2; sy++ {
			for sz := uint32(0); sz < 2; sz++ {
				x, y, z := sx, 2+sy, 4+sz
				if (sx+sy+sz)%2 == 0 {
					tris = append(tris, x, y, z)
				} else {
					tris = append(tris, x, z, y)
				}
			}
		}
	}
	return verts, tris
}

func schonhardt() ([]float64, []uint32) {
	var verts []float64
	for z, twist := range [2]float64{0, math.Pi / 6} {
		for k := 0; k < 3; k++ {
			th := 2*math.Pi*float64(k)/3 + twist
			verts = append(verts, math.Cos(th), math.Sin(th), float64(z))
		}
	}
	tris := []uint32{0, 2, 1, 3, 4, 5}
	for k := uint32(0); k < 3; k++ {
		a0, a1 := k, (k+1)%3
		tris = append(tris, a0, a1, a1+3, a0, a1+3, a0+3)
	}
	return verts, tris
}

func resultVolume(res Result) (vol float64) {
	for i := 0; i < res.NumTetrahedra; i++ {
		t := res.Tetrahedron(i)
		a, b, c, d := res.Vertex(int(t[0])), res.Vertex(int(t[1])), res.Vertex(int(t[2])), res.Vertex(int(t[3]))
		vol += r3.Dot(r3.Sub(b, a), r3.Cross(r3.Sub(c, a), r3.Sub(d, a))) / 6
	}
	return vol
}

// requireWellFormed checks the output invariants every result must hold.
func requireWellFormed(t *testing.T, res Result) {
	t.Helper()
	require.Zero(t, len(res.Vertices)%3)
	require.Len(t, res.Tetrahedra, 4*res.NumTetrahedra)
	nv := res.NumVertices()
	if res.Success {
		require.Equal(t, nv, res.NumInputVertices+res.NumSteinerVertices)
	}
	for _, x := range res.Vertices {
		require.False(t, math.IsNaN(x) || math.IsInf(x, 0), "non-finite coordinate")
	}
	for _, idx := range res.Tetrahedra {
		require.Less(t, int(idx), nv)
	}
}

func TestComputeCDTCube(t *testing.T) {
	res := ComputeCDT(cubeVertices, cubeTriangles)
	require.NoError(t, res.Err)
	require.True(t, res.Success)
	requireWellFormed(t, res)
	require.Equal(t, 8, res.NumInputVertices)
	require.Zero(t, res.NumSteinerVertices)
	require.True(t, res.IsPolyhedron)
	require.GreaterOrEqual(t, res.NumTetrahedra, 5)
	require.InDelta(t, 1, resultVolume(res), 1e-12)
	for i := 0; i < res.NumTetrahedra; i++ {
		for _, v := range res.Tetrahedron(i) {
			p := res.Vertex(int(v))
			for _, x := range []float64{p.X, p.Y, p.Z} {
				require.True(t, x >= 0 && x <= 1, "vertex %v outside cube", p)
			}
		}
	}
}

func TestComputeCDTBoundingBox(t *testing.T) {
	verts, tris := octahedron()
	for _, bbox := range []bool{false, true} {
		res := ComputeCDT(verts, tris, WithBoundingBox(bbox))
		require.True(t, res.Success, "bbox=%v: %v", bbox, res.Err)
		requireWellFormed(t, res)
		require.Equal(t, 6, res.NumInputVertices)
		require.True(t, res.IsPolyhedron)
		require.InDelta(t, 4.0/3, resultVolume(res), 1e-9)
		// Bounding box vertices never reach the output.
		for i := 0; i < res.NumVertices(); i++ {
			require.LessOrEqual(t, r3.Norm(res.Vertex(i)), 1+1e-12)
		}
	}
}

func TestComputeCDTDegenerateInput(t *testing.T) {
	verts := []float64{0, 0, 0, 1, 0}
	info := ValidateMesh(verts, []uint32{0, 1, 2})
	require.False(t, info.Valid)

	res := ComputeCDT(verts, []uint32{0, 1, 2})
	require.False(t, res.Success)
	require.ErrorIs(t, res.Err, ErrInputStructure)
	require.Equal(t, ErrInputStructure, res.Kind())
	require.Empty(t, res.Vertices)
	require.Empty(t, res.Tetrahedra)
	require.Zero(t, res.NumInputVertices)
	require.Zero(t, res.NumSteinerVertices)
	require.Zero(t, res.NumTetrahedra)
}

func TestComputeCDTInvalid(t *testing.T) {
	for name, tc := range map[string]struct {
		verts []float64
		tris  []uint32
	}{
		"empty":        {},
		"no triangles": {verts: cubeVertices},
		"out of range": {verts: cubeVertices, tris: []uint32{0, 1, 8}},
		"degenerate":   {verts: cubeVertices, tris: []uint32{0, 1, 1}},
		"collinear":    {verts: []float64{0, 0, 0, 1, 0, 0, 2, 0, 0, 0, 0, 1}, tris: []uint32{0, 1, 2}},
		"nan":          {verts: []float64{0, 0, 0, 1, 0, 0, 0, math.NaN(), 0}, tris: []uint32{0, 1, 2}},
		"flat":         {verts: []float64{0, 0, 0, 1, 0, 0, 0, 1, 0}, tris: []uint32{0, 1, 2}},
		"duplicate":    {verts: append(cubeVertices[:len(cubeVertices):len(cubeVertices)], 1, 1, 1), tris: cubeTriangles},
	} {
		res := ComputeCDT(tc.verts, tc.tris)
		require.False(t, res.Success, name)
		require.ErrorIs(t, res.Err, ErrInputStructure, name)
		require.Empty(t, res.Vertices, name)
	}
}

func TestComputeCDTOpenSurface(t *testing.T) {
	verts := []float64{0, 0, 0, 1, 0, 0, 0, 1, 0}
	res := ComputeCDT(verts, []uint32{0, 1, 2}, WithBoundingBox(true))
	requireWellFormed(t, res)
	require.False(t, res.IsPolyhedron)
	require.Zero(t, res.NumTetrahedra)
}

func TestComputeCDTConflict(t *testing.T) {
	verts, tris := schonhardt()
	res := ComputeCDT(verts, tris)
	requireWellFormed(t, res)
	if res.Success {
		require.Positive(t, res.NumSteinerVertices)
		require.True(t, res.IsPolyhedron)
		require.Greater(t, resultVolume(res), 0.0)
	} else {
		require.ErrorIs(t, res.Err, ErrRecoveryConflict)
		require.NotEmpty(t, res.Vertices)
	}
}

func TestComputeCDTSteinerBudget(t *testing.T) {
	verts, tris := schonhardt()
	res := ComputeCDT(verts, tris, WithSteinerBudget(1), WithFlipBudget(1), WithFaceRetryBudget(2))
	requireWellFormed(t, res)
	require.LessOrEqual(t, res.NumSteinerVertices, 1)
	if !res.Success {
		require.Equal(t, ErrRecoveryConflict, res.Kind())
		require.Equal(t, 6+res.NumSteinerVertices, res.NumVertices())
	}
}

func TestComputeCDTDeterministic(t *testing.T) {
	for _, input := range []func() ([]float64, []uint32){octahedron, schonhardt} {
		verts, tris := input()
		a := ComputeCDT(verts, tris, WithBoundingBox(true))
		b := ComputeCDT(verts, tris, WithBoundingBox(true))
		require.Equal(t, a, b)
	}
}

func TestValidateMesh(t *testing.T) {
	for _, tc := range []struct {
		verts []float64
		tris  []uint32
		want  MeshInfo
	}{
		{cubeVertices, cubeTriangles, MeshInfo{NumVertices: 8, NumTriangles: 12, Valid: true}},
		{[]float64{0, 0, 0}, []uint32{0, 0, 0}, MeshInfo{NumVertices: 1, NumTriangles: 1, Valid: true}},
		{[]float64{0, 0, 0, 1}, []uint32{0, 1, 2}, MeshInfo{}},
		{cubeVertices, []uint32{0, 1}, MeshInfo{}},
		{nil, []uint32{0, 1, 2}, MeshInfo{NumTriangles: 1}},
		{cubeVertices, nil, MeshInfo{NumVertices: 8}},
	} {
		require.Equal(t, tc.want, ValidateMesh(tc.verts, tc.tris))
	}
}
