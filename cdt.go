// Package cdt computes constrained Delaunay tetrahedrizations: volumetric
// tetrahedral meshes whose faces conform to a triangulated input boundary.
//
// The pipeline builds a Delaunay tetrahedrization of the boundary's vertices,
// recovers the boundary's segments and triangles into it, inserting Steiner
// vertices where flips cannot, and keeps the tetrahedra enclosed by the
// boundary.
package cdt

import (
	"errors"
	"fmt"

	"github.com/soypat/cdt/internal/plc"
	"github.com/soypat/cdt/internal/recovery"
	"github.com/soypat/cdt/internal/tetmesh"
	"go.uber.org/zap"
	"gonum.org/v1/gonum/spatial/r3"
)

// Result is the outcome of ComputeCDT. Vertices holds x,y,z triples: input
// vertices in input order followed by Steiner vertices. Tetrahedra holds four
// indices into Vertices per interior tetrahedron.
type Result struct {
	Vertices           []float64
	Tetrahedra         []uint32
	NumInputVertices   int
	NumSteinerVertices int
	NumTetrahedra      int
	// IsPolyhedron is true when the boundary is a closed 2-manifold that
	// was fully recovered and encloses volume.
	IsPolyhedron bool
	Success      bool
	// Err is nil on success. A recovery conflict still carries the partial mesh.
	Err error
}

// Tetrahedron returns the vertex indices of the i'th tetrahedron.
func (r Result) Tetrahedron(i int) [4]uint32 {
	t := r.Tetrahedra[4*i : 4*i+4]
	return [4]uint32{t[0], t[1], t[2], t[3]}
}

// Vertex returns the i'th vertex.
func (r Result) Vertex(i int) r3.Vec {
	return r3.Vec{X: r.Vertices[3*i], Y: r.Vertices[3*i+1], Z: r.Vertices[3*i+2]}
}

// NumVertices returns the number of output vertices.
func (r Result) NumVertices() int { return len(r.Vertices) / 3 }

// ComputeCDT tetrahedrizes the volume enclosed by a triangulated boundary.
// vertices holds x,y,z triples and triangles holds vertex index triples.
//
// ComputeCDT never panics. Failures are reported through Success and Err;
// see the Err* sentinels for the failure kinds.
func ComputeCDT(vertices []float64, triangles []uint32, opts ...Option) (res Result) {
	cfg := newConfig(opts)
	log := cfg.logger()
	defer func() {
		if a := recover(); a != nil {
			err, ok := a.(error)
			if !ok {
				err = fmt.Errorf("%v", a)
			}
			log.Error("tetrahedrization aborted", zap.Error(err))
			res = Result{Err: fmt.Errorf("%w: %w", ErrInternal, err)}
		}
	}()

	p, err := plc.FromVectors(vertices, triangles, log)
	if err != nil {
		return failed(log, ErrInputStructure, err)
	}
	if cfg.boundingBox {
		p.AddBoundingBoxVertices()
	}
	kinds := make([]tetmesh.VertexKind, p.NumVertices())
	for i := p.NumInput; i < len(kinds); i++ {
		kinds[i] = tetmesh.BoundingBox
	}
	m := tetmesh.New(p.Vertices, kinds, log)
	if err := m.Tetrahedrize(); err != nil {
		kind := ErrInternal
		if errors.Is(err, tetmesh.ErrDegenerate) || errors.Is(err, tetmesh.ErrDuplicate) {
			kind = ErrInputStructure
		}
		return failed(log, kind, err)
	}

	rec := recovery.New(m, p, cfg.recovery, log)
	recErr := rec.RecoverSegments()
	if recErr == nil {
		recErr = rec.RecoverFaces()
	}
	rec.MarkInnerTets()

	res, err = extract(m, p.NumInput, log)
	if err != nil {
		return failed(log, ErrNumericInvalid, err)
	}
	res.IsPolyhedron = recErr == nil && rec.IsPolyhedron()
	res.Success = recErr == nil
	if recErr != nil {
		res.Err = fmt.Errorf("%w: %w", ErrRecoveryConflict, recErr)
		log.Warn("constraint recovery incomplete", zap.Error(recErr), zap.Ints("failedTriangles", rec.Failed()))
	}
	log.Info("tetrahedrization done",
		zap.Int("inputVertices", res.NumInputVertices),
		zap.Int("steinerVertices", res.NumSteinerVertices),
		zap.Int("tetrahedra", res.NumTetrahedra),
		zap.Bool("polyhedron", res.IsPolyhedron),
		zap.Bool("success", res.Success),
	)
	return res
}

func failed(log *zap.Logger, kind, err error) Result {
	err = fmt.Errorf("%w: %w", kind, err)
	log.Info("tetrahedrization failed", zap.Error(err))
	return Result{Err: err}
}

// MeshInfo is the outcome of ValidateMesh.
type MeshInfo struct {
	NumVertices  int
	NumTriangles int
	Valid        bool
}

// ValidateMesh checks the structural preconditions of ComputeCDT's input:
// both arrays hold whole triples and neither is empty. It does no geometric
// work. Counts are zero when the arrays do not hold whole triples.
func ValidateMesh(vertices []float64, triangles []uint32) MeshInfo {
	if len(vertices)%3 != 0 || len(triangles)%3 != 0 {
		return MeshInfo{}
	}
	info := MeshInfo{NumVertices: len(vertices) / 3, NumTriangles: len(triangles) / 3}
	info.Valid = info.NumVertices > 0 && info.NumTriangles > 0
	return info
}
