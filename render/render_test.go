package render

import (
	"bytes"
	"errors"
	"io"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"gonum.org/v1/gonum/spatial/r3"
)

// Unit tetrahedron, positively oriented, and its reflection through x=0
// sharing the face in the x=0 plane.
var (
	twoTetCoords = []float64{0, 0, 0, 0, 1, 0, 0, 0, 1, 1, 0, 0, -1, 0, 0}
	twoTets      = []uint32{0, 3, 1, 2, 0, 1, 4, 2}
)

func TestBoundarySurface(t *testing.T) {
	one := BoundarySurface(twoTetCoords, twoTets[:4])
	if len(one) != 4 {
		t.Fatalf("single tetrahedron has %d boundary faces", len(one))
	}
	two := BoundarySurface(twoTetCoords, twoTets)
	if len(two) != 6 {
		t.Fatalf("two tetrahedra have %d boundary faces", len(two))
	}
	// Every normal points away from the centroid of its tetrahedron pair.
	c := r3.Vec{Y: .25, Z: .25}
	for _, tri := range two {
		mid := r3.Scale(1.0/3, r3.Add(tri[0], r3.Add(tri[1], tri[2])))
		if r3.Dot(tri.Normal(), r3.Sub(mid, c)) <= 0 {
			t.Errorf("face %v points inward", tri)
		}
	}
}

func TestSTLWriteRead(t *testing.T) {
	model := BoundarySurface(twoTetCoords, twoTets)
	var b bytes.Buffer
	if err := WriteSTL(&b, model); err != nil {
		t.Fatal(err)
	}
	if b.Len() != stlHeaderSize+stlTriangleSize*len(model) {
		t.Fatalf("unexpected STL size %d", b.Len())
	}
	got, err := ReadSTL(&b)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != len(model) {
		t.Fatalf("read %d triangles, wrote %d", len(got), len(model))
	}
	for i := range got {
		if got[i] != model[i] {
			t.Errorf("triangle %d: got %v want %v", i, got[i], model[i])
		}
	}

	path := filepath.Join(t.TempDir(), "tets.stl")
	if err := CreateSTL(path, NewSliceRenderer(model)); err != nil {
		t.Fatal(err)
	}
	file, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	var w bytes.Buffer
	WriteSTL(&w, model)
	if !bytes.Equal(file, w.Bytes()) {
		t.Error("CreateSTL and WriteSTL output mismatch")
	}
}

func TestReadSTLInvalid(t *testing.T) {
	var b bytes.Buffer
	WriteSTL(&b, []Triangle3{{{}, {X: 1}, {Y: 1}}})
	data := b.Bytes()

	_, err := ReadSTL(bytes.NewReader(data[:40]))
	if err == nil {
		t.Error("expected error on truncated header")
	}
	_, err = ReadSTL(bytes.NewReader(data[:stlHeaderSize+10]))
	if err == nil {
		t.Error("expected error on truncated triangle")
	}

	flipped := append([]byte(nil), data...)
	put3F32(flipped[stlHeaderSize:], [3]float32{0, 0, -1})
	model, err := ReadSTL(bytes.NewReader(flipped))
	if !errors.Is(err, ErrNormalMismatch) || len(model) != 1 {
		t.Errorf("got %d triangles and %v, want model and ErrNormalMismatch", len(model), err)
	}

	nan := append([]byte(nil), data...)
	put3F32(nan[stlHeaderSize+12:], [3]float32{float32(math.NaN()), 0, 0})
	if _, err = ReadSTL(bytes.NewReader(nan)); err == nil || errors.Is(err, ErrNormalMismatch) {
		t.Errorf("expected NaN vertex error, got %v", err)
	}
}

func TestWeld(t *testing.T) {
	model := BoundarySurface(twoTetCoords, twoTets)
	coords, tris, err := Weld(model, 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(coords) != 15 || len(tris) != 18 {
		t.Fatalf("welded to %d vertices and %d triangles", len(coords)/3, len(tris)/3)
	}
	// Welding the surface of a closed mesh gives every edge two uses.
	edges := make(map[[2]uint32]int)
	for i := 0; i < len(tris); i += 3 {
		for j := 0; j < 3; j++ {
			a, b := tris[i+j], tris[i+(j+1)%3]
			if a > b {
				a, b = b, a
			}
			edges[[2]uint32{a, b}]++
		}
	}
	for e, n := range edges {
		if n != 2 {
			t.Errorf("edge %v used %d times", e, n)
		}
	}
	if _, _, err = Weld(model, 10); err == nil {
		t.Error("expected error for oversized tolerance")
	}
}

func TestTetGenWriters(t *testing.T) {
	var node, ele strings.Builder
	if err := WriteNode(&node, twoTetCoords); err != nil {
		t.Fatal(err)
	}
	if err := WriteEle(&ele, twoTets); err != nil {
		t.Fatal(err)
	}
	const wantEle = "2 4 0\n0 0 3 1 2\n1 0 1 4 2\n"
	if ele.String() != wantEle {
		t.Errorf("got ele\n%s\nwant\n%s", ele.String(), wantEle)
	}
	lines := strings.Split(strings.TrimSpace(node.String()), "\n")
	if len(lines) != 6 || lines[0] != "5 3 0 0" || lines[5] != "4 -1 0 0" {
		t.Errorf("unexpected node file:\n%s", node.String())
	}
}

func TestCellRenderer(t *testing.T) {
	all, err := RenderAll(NewCellRenderer(twoTetCoords, twoTets, 0.5))
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 8 {
		t.Fatalf("got %d cell faces, want 8", len(all))
	}
	// Small buffers must yield the same faces in the same order.
	r := NewCellRenderer(twoTetCoords, twoTets, 0.5)
	buf := make([]Triangle3, 3)
	var streamed []Triangle3
	for {
		n, err := r.ReadTriangles(buf)
		streamed = append(streamed, buf[:n]...)
		if err == io.EOF {
			break
		} else if err != nil {
			t.Fatal(err)
		}
	}
	if len(streamed) != len(all) {
		t.Fatalf("streamed %d faces, want %d", len(streamed), len(all))
	}
	for i := range all {
		if streamed[i] != all[i] {
			t.Errorf("face %d: streamed %v, want %v", i, streamed[i], all[i])
		}
	}
	centroids := []r3.Vec{{X: .25, Y: .25, Z: .25}, {X: -.25, Y: .25, Z: .25}}
	for i, tri := range all {
		c := centroids[i/4]
		mid := r3.Scale(1.0/3, r3.Add(tri[0], r3.Add(tri[1], tri[2])))
		if r3.Dot(tri.Normal(), r3.Sub(mid, c)) <= 0 {
			t.Errorf("cell face %v points inward", tri)
		}
		for _, v := range tri {
			// Shrunk cells keep their vertices within half the original reach.
			if r3.Norm(r3.Sub(v, c)) > 0.5*math.Sqrt(0.75)+1e-12 {
				t.Errorf("vertex %v not pulled toward centroid %v", v, c)
			}
		}
	}
}

func TestReadASCIISTL(t *testing.T) {
	const text = `solid wedge
  facet normal 0 0 1
    outer loop
      vertex 0 0 0
      vertex 1 0 0
      vertex 0 1 0
    endloop
  endfacet
  facet normal 0 0 0
    outer loop
      vertex 0 0 1
      vertex 0 1 1
      vertex 1 0 1
    endloop
  endfacet
endsolid wedge
`
	model, err := ReadSTL(strings.NewReader(text))
	if err != nil {
		t.Fatal(err)
	}
	want := []Triangle3{
		{{}, {X: 1}, {Y: 1}},
		{{Z: 1}, {Y: 1, Z: 1}, {X: 1, Z: 1}},
	}
	if len(model) != len(want) {
		t.Fatalf("read %d facets, want %d", len(model), len(want))
	}
	for i := range want {
		if model[i] != want[i] {
			t.Errorf("facet %d: got %v want %v", i, model[i], want[i])
		}
	}

	flipped := strings.Replace(text, "normal 0 0 1", "normal 0 0 -1", 1)
	model, err = ReadSTL(strings.NewReader(flipped))
	if !errors.Is(err, ErrNormalMismatch) || len(model) != 2 {
		t.Errorf("got %d facets and %v, want model and ErrNormalMismatch", len(model), err)
	}
	truncated := text[:strings.Index(text, "endloop")]
	if _, err = ReadSTL(strings.NewReader(truncated)); err == nil {
		t.Error("expected error on truncated ASCII STL")
	}
}
