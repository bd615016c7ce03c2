// Package recovery forces the segments and triangles of a boundary model
// into a Delaunay tetrahedrization and classifies the resulting tetrahedra
// as interior or exterior to the boundary.
//
// Constraints are tracked as subsegments and subfaces: whenever a Steiner
// vertex splits a constraint edge, every subface on that edge is split with
// it so subfaces always tile their parent triangle.
package recovery

import (
	"errors"
	"fmt"
	"sort"

	"github.com/soypat/cdt/internal/d3"
	"github.com/soypat/cdt/internal/plc"
	"github.com/soypat/cdt/internal/tetmesh"
	"go.uber.org/zap"
	"gonum.org/v1/gonum/spatial/r3"
)

const (
	DefaultSteinerBudget   = 10000
	DefaultFaceRetryBudget = 64
	DefaultFlipBudget      = 64
)

var (
	// ErrBudget is returned when the Steiner vertex budget is exhausted.
	ErrBudget = errors.New("steiner vertex budget exhausted")
	// ErrConflict is returned when constraint triangles remain unrecovered.
	ErrConflict = errors.New("constraint not recovered")
)

// Config bounds the work recovery may do. Zero fields take defaults.
type Config struct {
	SteinerBudget   int
	FaceRetryBudget int
	FlipBudget      int
}

func (c *Config) defaults() {
	if c.SteinerBudget <= 0 {
		c.SteinerBudget = DefaultSteinerBudget
	}
	if c.FaceRetryBudget <= 0 {
		c.FaceRetryBudget = DefaultFaceRetryBudget
	}
	if c.FlipBudget <= 0 {
		c.FlipBudget = DefaultFlipBudget
	}
}

type subface struct {
	v      [3]int
	parent int
	dead   bool
}

// Recoverer recovers the constraints of a PLC into a mesh built over the
// same vertex indices.
type Recoverer struct {
	m   *tetmesh.Mesh
	plc *plc.PLC
	cfg Config
	log *zap.Logger

	segs      map[[2]int]bool
	faces     []subface
	faceIndex map[[3]int]int
	edgeFaces map[[2]int][]int
	// unprotected subfaces may be cut by the vertex being inserted.
	unprotected map[int]bool

	// insert adds a Steiner vertex to the mesh.
	insert func(p r3.Vec) (int, error)
	// stuck holds subsegments abandoned after a failed split.
	stuck map[[2]int]bool

	attempts map[int]int
	failed   map[int]bool
	steiner  int
	interior int
	// removalWork counts ring passes of the current top level removeEdge.
	removalWork int
}

// New prepares recovery of p into m. m must have been tetrahedrized from
// p's vertices. It installs the mesh's face protection.
func New(m *tetmesh.Mesh, p *plc.PLC, cfg Config, log *zap.Logger) *Recoverer {
	if log == nil {
		log = zap.NewNop()
	}
	cfg.defaults()
	r := &Recoverer{
		m:         m,
		plc:       p,
		cfg:       cfg,
		log:       log,
		segs:      make(map[[2]int]bool, len(p.Segments)),
		faceIndex: make(map[[3]int]int, len(p.Triangles)),
		edgeFaces: make(map[[2]int][]int, len(p.Segments)),
		stuck:     make(map[[2]int]bool),
		attempts:  make(map[int]int),
		failed:    make(map[int]bool),
	}
	r.insert = func(p r3.Vec) (int, error) { return m.InsertVertex(p, tetmesh.Steiner) }
	for _, s := range p.Segments {
		r.segs[s] = true
	}
	for i, tri := range p.Triangles {
		r.addSubface(tri, i)
	}
	m.Protect = r.protected
	return r
}

// NumSteiner returns the number of Steiner vertices inserted so far.
func (r *Recoverer) NumSteiner() int { return r.steiner }

// Failed returns the indices of constraint triangles whose recovery failed.
func (r *Recoverer) Failed() []int {
	failed := make([]int, 0, len(r.failed))
	for i := range r.failed {
		failed = append(failed, i)
	}
	sort.Ints(failed)
	return failed
}

// Subfaces returns the live subfaces with their orientation preserved.
func (r *Recoverer) Subfaces() [][3]int {
	var out [][3]int
	for _, f := range r.faces {
		if !f.dead {
			out = append(out, f.v)
		}
	}
	return out
}

// fail records constraint triangle parent as unrecoverable.
func (r *Recoverer) fail(parent int, err error) {
	if !r.failed[parent] {
		r.failed[parent] = true
		r.log.Info("face recovery failed", zap.Int("triangle", parent), zap.Error(err))
	}
}

func (r *Recoverer) protected(a, b, c int) bool {
	i, ok := r.faceIndex[tetmesh.FaceKey(a, b, c)]
	return ok && !r.unprotected[i]
}

func (r *Recoverer) isSubface(f [3]int) bool {
	_, ok := r.faceIndex[tetmesh.FaceKey(f[0], f[1], f[2])]
	return ok
}

func (r *Recoverer) addSubface(v [3]int, parent int) {
	i := len(r.faces)
	r.faces = append(r.faces, subface{v: v, parent: parent})
	r.faceIndex[tetmesh.FaceKey(v[0], v[1], v[2])] = i
	for j := range v {
		e := plc.SortedEdge(v[j], v[(j+1)%3])
		r.edgeFaces[e] = append(r.edgeFaces[e], i)
	}
}

func (r *Recoverer) killSubface(i int) {
	f := &r.faces[i]
	f.dead = true
	delete(r.faceIndex, tetmesh.FaceKey(f.v[0], f.v[1], f.v[2]))
	for j := range f.v {
		e := plc.SortedEdge(f.v[j], f.v[(j+1)%3])
		list := r.edgeFaces[e]
		for k, fi := range list {
			if fi == i {
				list = append(list[:k], list[k+1:]...)
				break
			}
		}
		if len(list) == 0 {
			delete(r.edgeFaces, e)
		} else {
			r.edgeFaces[e] = list
		}
	}
}

// splitEdge splits constraint edge ab at vertex w, or at a new Steiner
// vertex on its midpoint when w is negative. Subfaces on ab are split in two
// keeping their orientation.
func (r *Recoverer) splitEdge(a, b, w int) error {
	key := plc.SortedEdge(a, b)
	onEdge := append([]int(nil), r.edgeFaces[key]...)
	if w < 0 {
		if r.steiner >= r.cfg.SteinerBudget {
			return fmt.Errorf("%w: %d vertices inserted", ErrBudget, r.steiner)
		}
		mid := d3.Midpoint(r.m.Vertices[a], r.m.Vertices[b])
		r.unprotected = make(map[int]bool, len(onEdge))
		for _, fi := range onEdge {
			r.unprotected[fi] = true
		}
		v, err := r.insert(mid)
		r.unprotected = nil
		switch {
		case errors.Is(err, tetmesh.ErrDuplicate):
			// The midpoint is already a vertex lying on ab.
			for u, p := range r.m.Vertices {
				if p == mid {
					v = u
					break
				}
			}
			if v < 0 {
				return fmt.Errorf("splitting %d-%d: %w", a, b, err)
			}
		case err != nil:
			return fmt.Errorf("splitting %d-%d: %w", a, b, err)
		default:
			r.steiner++
			r.log.Debug("steiner vertex", zap.Int("vertex", v), zap.Int("a", a), zap.Int("b", b))
		}
		w = v
	}
	if r.segs[key] {
		delete(r.segs, key)
		r.segs[plc.SortedEdge(a, w)] = true
		r.segs[plc.SortedEdge(w, b)] = true
	}
	for _, fi := range onEdge {
		f := r.faces[fi]
		r.killSubface(fi)
		// Rotate so the split edge comes first.
		v := f.v
		for v[2] == a || v[2] == b {
			v = [3]int{v[1], v[2], v[0]}
		}
		r.addSubface([3]int{v[0], w, v[2]}, f.parent)
		r.addSubface([3]int{w, v[1], v[2]}, f.parent)
	}
	return nil
}

// longestEdge returns the longest edge of triangle f.
func (r *Recoverer) longestEdge(f [3]int) (a, b int) {
	V := r.m.Vertices
	best := -1.0
	for j := range f {
		p, q := f[j], f[(j+1)%3]
		if d := r3.Norm2(r3.Sub(V[p], V[q])); d > best {
			best, a, b = d, p, q
		}
	}
	return a, b
}
