package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/fogleman/fauxgl"
	"github.com/soypat/cdt/render"
	"go.uber.org/zap"
	"gonum.org/v1/gonum/spatial/r3"
)

// loadBoundary reads a triangle mesh and welds its vertices into the flat
// arrays tetrahedrization takes. STL is read natively and other formats go
// through fauxgl. Triangles with coincident vertices are dropped.
func loadBoundary(path string, weldTol float64, log *zap.Logger) (coords []float64, tris []uint32, err error) {
	var model []render.Triangle3
	if strings.EqualFold(filepath.Ext(path), ".stl") {
		model, err = readSTLFile(path)
		if errors.Is(err, render.ErrNormalMismatch) {
			log.Warn("ignoring STL normals", zap.Error(err))
			err = nil
		}
		if err != nil {
			log.Debug("STL read failed, trying fauxgl", zap.Error(err))
			model = nil
		}
	}
	if model == nil {
		mesh, ferr := fauxgl.LoadMesh(path)
		if ferr != nil {
			if err != nil {
				return nil, nil, fmt.Errorf("%w; %w", err, ferr)
			}
			return nil, nil, ferr
		}
		model = fromFauxgl(mesh)
	}
	log.Info("loaded boundary", zap.String("file", path), zap.Int("triangles", len(model)))
	kept := model[:0]
	for _, t := range model {
		if !t.Degenerate(0) {
			kept = append(kept, t)
		}
	}
	if n := len(model) - len(kept); n > 0 {
		log.Warn("dropped collapsed triangles", zap.Int("count", n))
	}
	return render.Weld(kept, weldTol)
}

func readSTLFile(path string) ([]render.Triangle3, error) {
	fp, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer fp.Close()
	return render.ReadSTL(fp)
}

func fromFauxgl(mesh *fauxgl.Mesh) []render.Triangle3 {
	model := make([]render.Triangle3, 0, len(mesh.Triangles))
	for _, t := range mesh.Triangles {
		model = append(model, render.Triangle3{
			vecFromFauxgl(t.V1.Position),
			vecFromFauxgl(t.V2.Position),
			vecFromFauxgl(t.V3.Position),
		})
	}
	return model
}

func vecFromFauxgl(v fauxgl.Vector) r3.Vec { return r3.Vec{X: v.X, Y: v.Y, Z: v.Z} }

func toFauxgl(model []render.Triangle3) *fauxgl.Mesh {
	tris := make([]*fauxgl.Triangle, len(model))
	for i, t := range model {
		tris[i] = fauxgl.NewTriangleForPoints(
			fauxgl.V(t[0].X, t[0].Y, t[0].Z),
			fauxgl.V(t[1].X, t[1].Y, t[1].Z),
			fauxgl.V(t[2].X, t[2].Y, t[2].Z),
		)
	}
	return fauxgl.NewTriangleMesh(tris)
}
