package render

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"github.com/soypat/cdt/internal/d3"
	"gonum.org/v1/gonum/spatial/r3"
)

// outward lists, per tetrahedron slot, the other three slots ordered so the
// face normal points away from the omitted slot for positively oriented
// tetrahedra.
var outward = [4][3]int{{1, 2, 3}, {0, 3, 2}, {0, 1, 3}, {0, 2, 1}}

// BoundarySurface returns the faces of a tetrahedral mesh that belong to a
// single tetrahedron, oriented away from it. coords holds x,y,z triples and
// tets four vertex indices per tetrahedron, positively oriented.
func BoundarySurface(coords []float64, tets []uint32) []Triangle3 {
	type face struct {
		v     [3]uint32
		count int
	}
	faces := make(map[[3]uint32]*face)
	var order [][3]uint32
	for i := 0; i+3 < len(tets); i += 4 {
		t := tets[i : i+4]
		for _, f := range outward {
			v := [3]uint32{t[f[0]], t[f[1]], t[f[2]]}
			key := v
			sort.Slice(key[:], func(i, j int) bool { return key[i] < key[j] })
			if fc, ok := faces[key]; ok {
				fc.count++
				continue
			}
			faces[key] = &face{v: v, count: 1}
			order = append(order, key)
		}
	}
	var model []Triangle3
	for _, key := range order {
		fc := faces[key]
		if fc.count != 1 {
			continue
		}
		model = append(model, Triangle3{
			d3.FromFlat(coords, int(fc.v[0])),
			d3.FromFlat(coords, int(fc.v[1])),
			d3.FromFlat(coords, int(fc.v[2])),
		})
	}
	return model
}

// Weld merges triangle vertices closer than tol into shared, indexed
// vertices. It returns flat x,y,z coordinates and three vertex indices per
// triangle. When tol is zero it is inferred from the shortest triangle edge.
func Weld(model []Triangle3, tol float64) (coords []float64, tris []uint32, err error) {
	if len(model) == 0 {
		return nil, nil, errors.New("empty triangle slice")
	}
	minDist2 := math.MaxFloat64
	maxDist2 := 0.0
	for _, tri := range model {
		for j, vert := range tri {
			side2 := r3.Norm2(r3.Sub(tri[(j+1)%3], vert))
			minDist2 = math.Min(minDist2, side2)
			maxDist2 = math.Max(maxDist2, side2)
		}
	}
	suggested := math.Sqrt(minDist2) / 256
	if tol > math.Sqrt(maxDist2)/2 {
		return nil, nil, fmt.Errorf("vertex tolerance too large for model, suggested tolerance: %g", suggested)
	}
	if tol == 0 {
		tol = suggested
	}
	if tol <= 0 {
		return nil, nil, errors.New("model has a zero length edge")
	}
	// Vertex index cache keyed by position in tolerance-space.
	cache := make(map[[3]int64]uint32)
	ri := 1 / tol
	for _, tri := range model {
		for _, vert := range tri {
			v := r3.Scale(ri, vert)
			if math.Abs(v.X) > math.MaxInt64/2 || math.Abs(v.Y) > math.MaxInt64/2 || math.Abs(v.Z) > math.MaxInt64/2 {
				return nil, nil, errors.New("tolerance too small, overflowed int64")
			}
			key := [3]int64{int64(math.Round(v.X)), int64(math.Round(v.Y)), int64(math.Round(v.Z))}
			idx, ok := cache[key]
			if !ok {
				idx = uint32(len(coords) / 3)
				cache[key] = idx
				coords = append(coords, vert.X, vert.Y, vert.Z)
			}
			tris = append(tris, idx)
		}
	}
	return coords, tris, nil
}
