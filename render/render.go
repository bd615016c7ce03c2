// Package render reads and writes the triangle and tetrahedron meshes that
// go in and out of a tetrahedrization: binary STL surfaces, TetGen node and
// element files and the boundary surface of a tetrahedral mesh.
package render

import (
	"gonum.org/v1/gonum/spatial/r3"
)

// Renderer is a source of triangles. ReadTriangles returns io.EOF once
// exhausted.
type Renderer interface {
	ReadTriangles(t []Triangle3) (int, error)
}

// Triangle3 is a 3D triangle. Its normal follows the right hand rule.
type Triangle3 [3]r3.Vec

// Normal returns the unit normal of the triangle.
func (t Triangle3) Normal() r3.Vec {
	e1 := r3.Sub(t[1], t[0])
	e2 := r3.Sub(t[2], t[0])
	return r3.Unit(r3.Cross(e1, e2))
}

// Degenerate returns true if two vertices of the triangle are within tol.
func (t Triangle3) Degenerate(tol float64) bool {
	return r3.Norm(r3.Sub(t[0], t[1])) <= tol ||
		r3.Norm(r3.Sub(t[1], t[2])) <= tol ||
		r3.Norm(r3.Sub(t[2], t[0])) <= tol
}
