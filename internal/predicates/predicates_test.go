package predicates

import (
	"math"
	"testing"

	"gonum.org/v1/gonum/spatial/r3"
)

var (
	o  = r3.Vec{}
	ex = r3.Vec{X: 1}
	ey = r3.Vec{Y: 1}
	ez = r3.Vec{Z: 1}
)

func TestOrient3D(t *testing.T) {
	tests := []struct {
		name       string
		a, b, c, d r3.Vec
		want       int
	}{
		{"above", o, ex, ey, ez, 1},
		{"below", o, ex, ey, r3.Scale(-1, ez), -1},
		{"coplanar", o, ex, ey, r3.Vec{X: 3, Y: -7}, 0},
		{"swapped", o, ey, ex, ez, -1},
		// Near-degenerate input resolved by the exact fallback.
		{"nearly coplanar", o, ex, ey, r3.Vec{X: 0.5, Y: 0.5, Z: math.SmallestNonzeroFloat64}, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Orient3D(tt.a, tt.b, tt.c, tt.d); got != tt.want {
				t.Errorf("Orient3D() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestOrient3DTranslatedCoplanar(t *testing.T) {
	// 0.1 is not representable; coplanarity of the translated points is only
	// detected with exact arithmetic when the filter fails.
	off := r3.Vec{X: 0.1, Y: 0.2, Z: 0.3}
	a, b, c := r3.Add(o, off), r3.Add(ex, off), r3.Add(ey, off)
	d := r3.Vec{X: a.X, Y: a.Y, Z: a.Z}
	if got := Orient3D(a, b, c, d); got != 0 {
		t.Errorf("repeated vertex must be coplanar, got %d", got)
	}
}

func TestInSphere(t *testing.T) {
	tests := []struct {
		name string
		e    r3.Vec
		want int
	}{
		{"inside", r3.Vec{X: 0.25, Y: 0.25, Z: 0.25}, 1},
		{"outside", r3.Vec{X: 2, Y: 2, Z: 2}, -1},
		{"cospherical", r3.Vec{X: 1, Y: 1, Z: 1}, 0},
		{"vertex", ex, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := InSphere(o, ex, ey, ez, tt.e); got != tt.want {
				t.Errorf("InSphere() = %d, want %d", got, tt.want)
			}
			// Negatively oriented tetrahedra flip the sign.
			if got := InSphere(o, ey, ex, ez, tt.e); got != -tt.want {
				t.Errorf("InSphere() on swapped tetrahedron = %d, want %d", got, -tt.want)
			}
		})
	}
}

func TestInCircleCoplanar(t *testing.T) {
	a, b, c := r3.Vec{X: 0, Y: 0, Z: 1}, r3.Vec{X: 1, Y: 0, Z: 1}, r3.Vec{X: 0, Y: 1, Z: 1}
	if got := InCircleCoplanar(a, b, c, r3.Vec{X: 0.5, Y: 0.5, Z: 1}); got != 1 {
		t.Errorf("circumcenter must be inside, got %d", got)
	}
	if got := InCircleCoplanar(a, b, c, r3.Vec{X: 0.2, Y: 0.2, Z: 1}); got != 1 {
		t.Errorf("want inside, got %d", got)
	}
	if got := InCircleCoplanar(a, c, b, r3.Vec{X: 0.2, Y: 0.2, Z: 1}); got != 1 {
		t.Errorf("orientation must not matter, got %d", got)
	}
	if got := InCircleCoplanar(a, b, c, r3.Vec{X: 1, Y: 1, Z: 1}); got != 0 {
		t.Errorf("square corner is cocircular, got %d", got)
	}
	if got := InCircleCoplanar(a, b, c, r3.Vec{X: 3, Y: 3, Z: 1}); got != -1 {
		t.Errorf("want outside, got %d", got)
	}
}

func TestSegmentHelpers(t *testing.T) {
	a, b := o, r3.Vec{X: 2, Y: 2, Z: 2}
	if !Collinear(a, b, ex.Add(ey).Add(ez)) {
		t.Error("diagonal point must be collinear")
	}
	if Collinear(a, b, ex) {
		t.Error("axis point must not be collinear")
	}
	if !OnSegmentInterior(r3.Vec{X: 1, Y: 1, Z: 1}, a, b) {
		t.Error("midpoint must be on segment")
	}
	if OnSegmentInterior(r3.Vec{X: 3, Y: 3, Z: 3}, a, b) {
		t.Error("point past end must not be on segment")
	}
	if OnSegmentInterior(a, a, b) {
		t.Error("endpoints are not interior")
	}
}
