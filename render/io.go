package render

import (
	"io"

	"github.com/soypat/cdt/internal/d3"
	"gonum.org/v1/gonum/spatial/r3"
)

// RenderAll drains r and returns every triangle it yielded. io.EOF is not
// returned as an error.
func RenderAll(r Renderer) ([]Triangle3, error) {
	var model []Triangle3
	buf := make([]Triangle3, 1024)
	for {
		n, err := r.ReadTriangles(buf)
		model = append(model, buf[:n]...)
		if err == io.EOF {
			return model, nil
		} else if err != nil {
			return model, err
		}
	}
}

// NewSliceRenderer returns a Renderer that yields model.
func NewSliceRenderer(model []Triangle3) Renderer {
	return &sliceRenderer{buf: model}
}

type sliceRenderer struct {
	buf []Triangle3
}

func (b *sliceRenderer) ReadTriangles(t []Triangle3) (int, error) {
	if len(b.buf) == 0 {
		return 0, io.EOF
	}
	n := copy(t, b.buf)
	b.buf = b.buf[n:]
	return n, nil
}

// NewCellRenderer returns a Renderer yielding the four outward faces of
// every tetrahedron, each scaled by shrink about its centroid. A shrink
// below 1 pulls neighboring cells apart so individual tetrahedra show.
// coords holds x,y,z triples and tets four vertex indices per tetrahedron.
func NewCellRenderer(coords []float64, tets []uint32, shrink float64) Renderer {
	return &cellRenderer{coords: coords, tets: tets, shrink: shrink}
}

type cellRenderer struct {
	coords []float64
	tets   []uint32
	shrink float64
	// next tetrahedron and face to yield.
	tet, face int
}

func (c *cellRenderer) ReadTriangles(t []Triangle3) (n int, err error) {
	for n < len(t) {
		if 4*c.tet+4 > len(c.tets) {
			return n, io.EOF
		}
		var cell [4]r3.Vec
		var centroid r3.Vec
		for i, v := range c.tets[4*c.tet : 4*c.tet+4] {
			cell[i] = d3.FromFlat(c.coords, int(v))
			centroid = r3.Add(centroid, r3.Scale(0.25, cell[i]))
		}
		for i := range cell {
			cell[i] = r3.Add(centroid, r3.Scale(c.shrink, r3.Sub(cell[i], centroid)))
		}
		for ; c.face < 4 && n < len(t); c.face++ {
			f := outward[c.face]
			t[n] = Triangle3{cell[f[0]], cell[f[1]], cell[f[2]]}
			n++
		}
		if c.face == 4 {
			c.face = 0
			c.tet++
		}
	}
	return n, nil
}
