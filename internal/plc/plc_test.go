package plc

import (
	"errors"
	"testing"

	"github.com/soypat/cdt/internal/d3"
)

var (
	cubeCoords = []float64{
		0, 0, 0,
		1, 0, 0,
		1, 1, 0,
		0, 1, 0,
		0, 0, 1,
		1, 0, 1,
		1, 1, 1,
		0, 1, 1,
	}
	cubeTriangles = []uint32{
		0, 1, 2, 2, 3, 0,
		4, 7, 6, 6, 5, 4,
		0, 4, 5, 5, 1, 0,
		2, 6, 7, 7, 3, 2,
		0, 3, 7, 7, 4, 0,
		1, 5, 6, 6, 2, 1,
	}
)

func TestFromVectorsCube(t *testing.T) {
	p, err := FromVectors(cubeCoords, cubeTriangles, nil)
	if err != nil {
		t.Fatal(err)
	}
	if p.NumVertices() != 8 || p.NumTriangles() != 12 {
		t.Fatalf("got %d vertices %d triangles", p.NumVertices(), p.NumTriangles())
	}
	// 12 cube edges plus 6 face diagonals.
	if len(p.Segments) != 18 {
		t.Errorf("want 18 segments, got %d", len(p.Segments))
	}
	for _, s := range p.Segments {
		if s[0] >= s[1] {
			t.Errorf("segment %v not sorted", s)
		}
	}
	if !p.ClosedManifold() {
		t.Error("cube must be a closed manifold")
	}
}

func TestFromVectorsInvalid(t *testing.T) {
	tests := []struct {
		name   string
		coords []float64
		tris   []uint32
	}{
		{"coords not multiple of 3", []float64{0, 0, 0, 1, 0}, []uint32{0, 1, 2}},
		{"tris not multiple of 3", cubeCoords, []uint32{0, 1}},
		{"no vertices", nil, []uint32{0, 1, 2}},
		{"no triangles", cubeCoords, nil},
		{"out of range", cubeCoords, []uint32{0, 1, 8}},
		{"repeated index", cubeCoords, []uint32{0, 1, 1}},
		{"collinear", []float64{0, 0, 0, 1, 1, 1, 2, 2, 2}, []uint32{0, 1, 2}},
		{"duplicate vertex", []float64{0, 0, 0, 1, 0, 0, 0, 1, 0, 1, 0, 0}, []uint32{0, 1, 2}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := FromVectors(tt.coords, tt.tris, nil)
			if !errors.Is(err, ErrInvalid) {
				t.Errorf("want ErrInvalid, got %v", err)
			}
		})
	}
}

func TestAddBoundingBoxVertices(t *testing.T) {
	p, err := FromVectors(cubeCoords, cubeTriangles, nil)
	if err != nil {
		t.Fatal(err)
	}
	p.AddBoundingBoxVertices()
	p.AddBoundingBoxVertices()
	if p.NumVertices() != 8+NumBoundingBoxVertices || !p.HasBoundingBox() {
		t.Fatalf("want %d vertices, got %d", 8+NumBoundingBoxVertices, p.NumVertices())
	}
	box := d3.Set(p.Vertices[p.NumInput:]).Bounds()
	for i, v := range p.Vertices[:p.NumInput] {
		if !box.ContainsStrict(v) {
			t.Errorf("input vertex %d %v not strictly inside bounding box", i, v)
		}
	}
}

func TestBoundingBoxFarFromOrigin(t *testing.T) {
	const offset = 1e17 // Spacing between floats here is 16.
	coords := make([]float64, len(cubeCoords))
	for i, c := range cubeCoords {
		coords[i] = offset + 32*c
	}
	p, err := FromVectors(coords, cubeTriangles, nil)
	if err != nil {
		t.Fatal(err)
	}
	p.AddBoundingBoxVertices()
	box := d3.Set(p.Vertices[p.NumInput:]).Bounds()
	for i, v := range p.Vertices[:p.NumInput] {
		if !box.ContainsStrict(v) {
			t.Errorf("input vertex %d %v not strictly inside bounding box %v", i, v, box)
		}
	}
}

func TestOpenSurfaceNotManifold(t *testing.T) {
	p, err := FromVectors([]float64{0, 0, 0, 1, 0, 0, 0, 1, 0}, []uint32{0, 1, 2}, nil)
	if err != nil {
		t.Fatal(err)
	}
	if p.ClosedManifold() {
		t.Error("single triangle is not a closed manifold")
	}
}
