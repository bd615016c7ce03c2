// Package plc holds the piecewise linear complex a tetrahedrization must
// conform to: input vertices, constraint triangles and the constraint
// segments derived from triangle edges.
package plc

import (
	"errors"
	"fmt"
	"math"

	"github.com/soypat/cdt/internal/d3"
	"github.com/soypat/cdt/internal/predicates"
	"go.uber.org/zap"
	"gonum.org/v1/gonum/spatial/kdtree"
	"gonum.org/v1/gonum/spatial/r3"
)

// ErrInvalid is wrapped by every structural validation failure.
var ErrInvalid = errors.New("invalid boundary")

// NumBoundingBoxVertices is the number of vertices AddBoundingBoxVertices appends.
const NumBoundingBoxVertices = 8

// PLC is the boundary model. It is read-only once built except for
// bounding box augmentation.
type PLC struct {
	Vertices  []r3.Vec
	Triangles [][3]int
	// Segments are unique triangle edges stored with lower index first,
	// in order of first appearance.
	Segments [][2]int
	// NumInput is the number of caller supplied vertices. Vertices past
	// NumInput are bounding box vertices.
	NumInput int
}

// FromVectors builds a PLC from flat coordinate and triangle index arrays.
// coords holds x,y,z triples and triangles holds vertex index triples.
func FromVectors(coords []float64, triangles []uint32, log *zap.Logger) (*PLC, error) {
	if log == nil {
		log = zap.NewNop()
	}
	if len(coords)%3 != 0 {
		return nil, fmt.Errorf("%w: coordinate array length %d not a multiple of 3", ErrInvalid, len(coords))
	}
	if len(triangles)%3 != 0 {
		return nil, fmt.Errorf("%w: triangle array length %d not a multiple of 3", ErrInvalid, len(triangles))
	}
	nv, nt := len(coords)/3, len(triangles)/3
	if nv == 0 || nt == 0 {
		return nil, fmt.Errorf("%w: need at least one vertex and one triangle, got %d and %d", ErrInvalid, nv, nt)
	}
	p := &PLC{
		Vertices:  make([]r3.Vec, nv),
		Triangles: make([][3]int, nt),
		NumInput:  nv,
	}
	for i := range p.Vertices {
		v := d3.FromFlat(coords, i)
		if !d3.Finite(v) {
			return nil, fmt.Errorf("%w: vertex %d has non-finite coordinates %v", ErrInvalid, i, v)
		}
		p.Vertices[i] = v
	}
	for i := range p.Triangles {
		var tri [3]int
		for j := range tri {
			idx := triangles[3*i+j]
			if uint64(idx) >= uint64(nv) {
				return nil, fmt.Errorf("%w: triangle %d references vertex %d, have %d vertices", ErrInvalid, i, idx, nv)
			}
			tri[j] = int(idx)
		}
		if tri[0] == tri[1] || tri[1] == tri[2] || tri[2] == tri[0] ||
			predicates.Collinear(p.Vertices[tri[0]], p.Vertices[tri[1]], p.Vertices[tri[2]]) {
			return nil, fmt.Errorf("%w: triangle %d %v is degenerate", ErrInvalid, i, tri)
		}
		p.Triangles[i] = tri
	}
	if a, b, ok := findDuplicate(p.Vertices); ok {
		return nil, fmt.Errorf("%w: vertices %d and %d are coincident", ErrInvalid, a, b)
	}
	p.Segments = deriveSegments(p.Triangles)
	log.Debug("boundary model built",
		zap.Int("vertices", nv),
		zap.Int("triangles", nt),
		zap.Int("segments", len(p.Segments)),
	)
	return p, nil
}

// NumVertices returns the number of vertices including bounding box vertices.
func (p *PLC) NumVertices() int { return len(p.Vertices) }

// NumTriangles returns the number of constraint triangles.
func (p *PLC) NumTriangles() int { return len(p.Triangles) }

// HasBoundingBox returns true if bounding box vertices were appended.
func (p *PLC) HasBoundingBox() bool { return len(p.Vertices) > p.NumInput }

// AddBoundingBoxVertices appends the 8 corners of an axis aligned box that
// strictly encloses all input vertices. Calling it twice is a no-op.
func (p *PLC) AddBoundingBoxVertices() {
	if p.HasBoundingBox() {
		return
	}
	bb := d3.Set(p.Vertices[:p.NumInput]).Bounds()
	margin := 0.1 * bb.Diagonal()
	if margin == 0 || math.IsInf(margin, 0) {
		margin = 1
	}
	box := bb.Pad(margin)
	// A margin small against large coordinates can round away.
	for !box.ContainsStrict(bb.Min) || !box.ContainsStrict(bb.Max) {
		margin *= 2
		box = bb.Pad(margin)
	}
	p.Vertices = append(p.Vertices, box.Corners()...)
}

// ClosedManifold returns true when every segment is shared by exactly two
// triangles which traverse it in opposite directions.
func (p *PLC) ClosedManifold() bool {
	directed := make(map[[2]int]int, 3*len(p.Triangles))
	for _, tri := range p.Triangles {
		for j := range tri {
			directed[[2]int{tri[j], tri[(j+1)%3]}]++
		}
	}
	for e, n := range directed {
		if n != 1 || directed[[2]int{e[1], e[0]}] != 1 {
			return false
		}
	}
	return true
}

func deriveSegments(triangles [][3]int) [][2]int {
	seen := make(map[[2]int]struct{}, 3*len(triangles)/2)
	segs := make([][2]int, 0, 3*len(triangles)/2)
	for _, tri := range triangles {
		for j := range tri {
			e := SortedEdge(tri[j], tri[(j+1)%3])
			if _, ok := seen[e]; ok {
				continue
			}
			seen[e] = struct{}{}
			segs = append(segs, e)
		}
	}
	return segs
}

// SortedEdge returns the edge ab with its lower index first.
func SortedEdge(a, b int) [2]int {
	if a > b {
		a, b = b, a
	}
	return [2]int{a, b}
}

// indexedPoint is a kd-tree point that remembers its vertex index.
type indexedPoint struct {
	kdtree.Point
	idx int
}

type indexedPoints []indexedPoint

func (p indexedPoints) Index(i int) kdtree.Comparable { return p[i] }
func (p indexedPoints) Len() int                      { return len(p) }
func (p indexedPoints) Slice(start, end int) kdtree.Interface {
	return p[start:end]
}
func (p indexedPoints) Pivot(d kdtree.Dim) int {
	pl := plane{dim: d, points: p}
	return kdtree.Partition(pl, kdtree.MedianOfMedians(pl))
}

type plane struct {
	dim    kdtree.Dim
	points indexedPoints
}

func (p plane) Less(i, j int) bool { return p.points[i].Point[p.dim] < p.points[j].Point[p.dim] }
func (p plane) Swap(i, j int)      { p.points[i], p.points[j] = p.points[j], p.points[i] }
func (p plane) Len() int           { return len(p.points) }
func (p plane) Slice(start, end int) kdtree.SortSlicer {
	p.points = p.points[start:end]
	return p
}

// Compare and Distance are forwarded so indexedPoint values can be compared
// against each other inside the tree.
func (p indexedPoint) Compare(c kdtree.Comparable, d kdtree.Dim) float64 {
	return p.Point.Compare(c.(indexedPoint).Point, d)
}
func (p indexedPoint) Distance(c kdtree.Comparable) float64 {
	return p.Point.Distance(c.(indexedPoint).Point)
}

// findDuplicate returns the indices of two coincident vertices if any exist.
func findDuplicate(verts []r3.Vec) (a, b int, found bool) {
	pts := make(indexedPoints, len(verts))
	for i, v := range verts {
		pts[i] = indexedPoint{Point: kdtree.Point{v.X, v.Y, v.Z}, idx: i}
	}
	tree := kdtree.New(pts, false)
	for i, v := range verts {
		keep := kdtree.NewNKeeper(2)
		tree.NearestSet(keep, indexedPoint{Point: kdtree.Point{v.X, v.Y, v.Z}, idx: i})
		for _, cd := range keep.Heap {
			if cd.Comparable == nil {
				continue
			}
			other := cd.Comparable.(indexedPoint).idx
			if other != i && cd.Dist == 0 {
				return min(i, other), max(i, other), true
			}
		}
	}
	return 0, 0, false
}
