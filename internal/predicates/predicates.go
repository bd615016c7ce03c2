// Package predicates implements the geometric sign tests tetrahedrization
// relies on. Every predicate first evaluates its determinant in float64 and
// compares it against a forward error bound. When the bound cannot certify the
// sign the determinant is recomputed exactly with rational arithmetic, so the
// returned sign is always the sign of the exact determinant of the float64 inputs.
package predicates

import (
	"math"

	"gonum.org/v1/gonum/spatial/r3"
)

const epsilon = 1.0 / (1 << 53)

// Error bound coefficients. They are looser than the tightest published ones.
const (
	orient2Bound = 8 * epsilon
	orient3Bound = 16 * epsilon
	incircBound  = 24 * epsilon
	inspherBound = 64 * epsilon
)

// Orient3D returns the sign of det[b-a, c-a, d-a]: +1 when d lies on the side of
// the plane through a,b,c toward which (b-a)×(c-a) points, -1 on the opposite
// side and 0 when the four points are coplanar.
func Orient3D(a, b, c, d r3.Vec) int {
	bax, bay, baz := b.X-a.X, b.Y-a.Y, b.Z-a.Z
	cax, cay, caz := c.X-a.X, c.Y-a.Y, c.Z-a.Z
	dax, day, daz := d.X-a.X, d.Y-a.Y, d.Z-a.Z
	m1 := cay*daz - caz*day
	m2 := caz*dax - cax*daz
	m3 := cax*day - cay*dax
	det := bax*m1 + bay*m2 + baz*m3
	perm := math.Abs(bax)*(math.Abs(cay*daz)+math.Abs(caz*day)) +
		math.Abs(bay)*(math.Abs(caz*dax)+math.Abs(cax*daz)) +
		math.Abs(baz)*(math.Abs(cax*day)+math.Abs(cay*dax))
	if s, ok := certain(det, orient3Bound*perm); ok {
		return s
	}
	return exactOrient3D(a, b, c, d)
}

// InSphere returns +1 when e lies strictly inside the circumsphere of the
// positively oriented (see Orient3D) tetrahedron abcd, -1 when strictly outside
// and 0 when the five points are cospherical. The sign is reversed for
// negatively oriented tetrahedra.
func InSphere(a, b, c, d, e r3.Vec) int {
	ae, be, ce, de := r3.Sub(a, e), r3.Sub(b, e), r3.Sub(c, e), r3.Sub(d, e)
	la, lb, lc, ld := r3.Norm2(ae), r3.Norm2(be), r3.Norm2(ce), r3.Norm2(de)
	dbcd, pbcd := det3(be, ce, de)
	dacd, pacd := det3(ae, ce, de)
	dabd, pabd := det3(ae, be, de)
	dabc, pabc := det3(ae, be, ce)
	det := la*dbcd - lb*dacd + lc*dabd - ld*dabc
	perm := la*pbcd + lb*pacd + lc*pabd + ld*pabc
	if s, ok := certain(det, inspherBound*perm); ok {
		return s
	}
	return exactInSphere(a, b, c, d, e)
}

// InCircleCoplanar expects a,b,c,d to be coplanar. It returns +1 when d lies
// strictly inside the circumcircle of triangle abc, -1 when strictly outside
// and 0 when cocircular or when abc is degenerate.
func InCircleCoplanar(a, b, c, d r3.Vec) int {
	n := r3.Cross(r3.Sub(b, a), r3.Sub(c, a))
	drop := dominantAxis(n)
	pa, pb, pc, pd := project(a, drop), project(b, drop), project(c, drop), project(d, drop)
	o := orient2D(pa, pb, pc)
	if o == 0 {
		return 0
	}
	return o * inCircle2D(pa, pb, pc, pd)
}

// Collinear reports whether a, b and c lie on a common line.
func Collinear(a, b, c r3.Vec) bool {
	return orient2D(project(a, 0), project(b, 0), project(c, 0)) == 0 &&
		orient2D(project(a, 1), project(b, 1), project(c, 1)) == 0 &&
		orient2D(project(a, 2), project(b, 2), project(c, 2)) == 0
}

// OnSegmentInterior reports whether p lies on the open segment ab.
func OnSegmentInterior(p, a, b r3.Vec) bool {
	if p == a || p == b || !Collinear(a, b, p) {
		return false
	}
	return between(p.X, a.X, b.X) && between(p.Y, a.Y, b.Y) && between(p.Z, a.Z, b.Z)
}

func between(x, a, b float64) bool {
	if a > b {
		a, b = b, a
	}
	return a <= x && x <= b
}

// certain returns the sign of det if its magnitude exceeds bound.
func certain(det, bound float64) (int, bool) {
	switch {
	case det > bound:
		return 1, true
	case det < -bound:
		return -1, true
	}
	return 0, false
}

func det3(a, b, c r3.Vec) (det, perm float64) {
	m1 := b.Y*c.Z - b.Z*c.Y
	m2 := b.Z*c.X - b.X*c.Z
	m3 := b.X*c.Y - b.Y*c.X
	det = a.X*m1 + a.Y*m2 + a.Z*m3
	perm = math.Abs(a.X)*(math.Abs(b.Y*c.Z)+math.Abs(b.Z*c.Y)) +
		math.Abs(a.Y)*(math.Abs(b.Z*c.X)+math.Abs(b.X*c.Z)) +
		math.Abs(a.Z)*(math.Abs(b.X*c.Y)+math.Abs(b.Y*c.X))
	return det, perm
}

type vec2 struct{ x, y float64 }

// dominantAxis returns the axis along which n has the largest magnitude.
func dominantAxis(n r3.Vec) int {
	ax, ay, az := math.Abs(n.X), math.Abs(n.Y), math.Abs(n.Z)
	switch {
	case ax >= ay && ax >= az:
		return 0
	case ay >= az:
		return 1
	}
	return 2
}

// project drops the coordinate of axis drop.
func project(v r3.Vec, drop int) vec2 {
	switch drop {
	case 0:
		return vec2{v.Y, v.Z}
	case 1:
		return vec2{v.Z, v.X}
	}
	return vec2{v.X, v.Y}
}

func orient2D(a, b, c vec2) int {
	l := (b.x - a.x) * (c.y - a.y)
	r := (b.y - a.y) * (c.x - a.x)
	if s, ok := certain(l-r, orient2Bound*(math.Abs(l)+math.Abs(r))); ok {
		return s
	}
	return exactOrient2D(a, b, c)
}

func inCircle2D(a, b, c, d vec2) int {
	adx, ady := a.x-d.x, a.y-d.y
	bdx, bdy := b.x-d.x, b.y-d.y
	cdx, cdy := c.x-d.x, c.y-d.y
	la, lb, lc := adx*adx+ady*ady, bdx*bdx+bdy*bdy, cdx*cdx+cdy*cdy
	mbc, mca, mab := bdx*cdy-bdy*cdx, cdx*ady-cdy*adx, adx*bdy-ady*bdx
	det := la*mbc + lb*mca + lc*mab
	perm := la*(math.Abs(bdx*cdy)+math.Abs(bdy*cdx)) +
		lb*(math.Abs(cdx*ady)+math.Abs(cdy*adx)) +
		lc*(math.Abs(adx*bdy)+math.Abs(ady*bdx))
	if s, ok := certain(det, incircBound*perm); ok {
		return s
	}
	return exactInCircle2D(a, b, c, d)
}
