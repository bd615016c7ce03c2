package predicates

import (
	"math/big"

	"gonum.org/v1/gonum/spatial/r3"
)

// Exact fallbacks. float64 values convert to big.Rat without rounding and
// rational arithmetic is closed under the operations used here, so these
// return the exact determinant sign.

type rvec struct{ x, y, z *big.Rat }

func rat(f float64) *big.Rat { return new(big.Rat).SetFloat64(f) }

func rsub(a, b r3.Vec) rvec {
	return rvec{
		x: new(big.Rat).Sub(rat(a.X), rat(b.X)),
		y: new(big.Rat).Sub(rat(a.Y), rat(b.Y)),
		z: new(big.Rat).Sub(rat(a.Z), rat(b.Z)),
	}
}

func mul(a, b *big.Rat) *big.Rat { return new(big.Rat).Mul(a, b) }

func rdet3(a, b, c rvec) *big.Rat {
	m1 := new(big.Rat).Sub(mul(b.y, c.z), mul(b.z, c.y))
	m2 := new(big.Rat).Sub(mul(b.z, c.x), mul(b.x, c.z))
	m3 := new(big.Rat).Sub(mul(b.x, c.y), mul(b.y, c.x))
	det := mul(a.x, m1)
	det.Add(det, mul(a.y, m2))
	det.Add(det, mul(a.z, m3))
	return det
}

func rnorm2(a rvec) *big.Rat {
	n := mul(a.x, a.x)
	n.Add(n, mul(a.y, a.y))
	return n.Add(n, mul(a.z, a.z))
}

func exactOrient3D(a, b, c, d r3.Vec) int {
	return rdet3(rsub(b, a), rsub(c, a), rsub(d, a)).Sign()
}

func exactInSphere(a, b, c, d, e r3.Vec) int {
	ae, be, ce, de := rsub(a, e), rsub(b, e), rsub(c, e), rsub(d, e)
	det := mul(rnorm2(ae), rdet3(be, ce, de))
	det.Sub(det, mul(rnorm2(be), rdet3(ae, ce, de)))
	det.Add(det, mul(rnorm2(ce), rdet3(ae, be, de)))
	det.Sub(det, mul(rnorm2(de), rdet3(ae, be, ce)))
	return det.Sign()
}

func exactOrient2D(a, b, c vec2) int {
	bax := new(big.Rat).Sub(rat(b.x), rat(a.x))
	bay := new(big.Rat).Sub(rat(b.y), rat(a.y))
	cax := new(big.Rat).Sub(rat(c.x), rat(a.x))
	cay := new(big.Rat).Sub(rat(c.y), rat(a.y))
	return new(big.Rat).Sub(mul(bax, cay), mul(bay, cax)).Sign()
}

func exactInCircle2D(a, b, c, d vec2) int {
	sub := func(p, q float64) *big.Rat { return new(big.Rat).Sub(rat(p), rat(q)) }
	adx, ady := sub(a.x, d.x), sub(a.y, d.y)
	bdx, bdy := sub(b.x, d.x), sub(b.y, d.y)
	cdx, cdy := sub(c.x, d.x), sub(c.y, d.y)
	lift := func(x, y *big.Rat) *big.Rat { l := mul(x, x); return l.Add(l, mul(y, y)) }
	cross := func(x1, y1, x2, y2 *big.Rat) *big.Rat { return new(big.Rat).Sub(mul(x1, y2), mul(y1, x2)) }
	det := mul(lift(adx, ady), cross(bdx, bdy, cdx, cdy))
	det.Add(det, mul(lift(bdx, bdy), cross(cdx, cdy, adx, ady)))
	det.Add(det, mul(lift(cdx, cdy), cross(adx, ady, bdx, bdy)))
	return det.Sign()
}
