package d3

import (
	"gonum.org/v1/gonum/spatial/r3"
)

// Box is an axis aligned box.
type Box r3.Box

// Diagonal returns the length of the box diagonal.
func (a Box) Diagonal() float64 {
	return r3.Norm(r3.Sub(a.Max, a.Min))
}

// Pad grows the box by margin on every side.
func (a Box) Pad(margin float64) Box {
	m := Elem(margin)
	return Box{Min: r3.Sub(a.Min, m), Max: r3.Add(a.Max, m)}
}

// ContainsStrict checks if v lies in the open interior of the box.
func (a Box) ContainsStrict(v r3.Vec) bool {
	return a.Min.X < v.X && a.Min.Y < v.Y && a.Min.Z < v.Z &&
		v.X < a.Max.X && v.Y < a.Max.Y && v.Z < a.Max.Z
}

// Corners returns the 8 box corners. Bit 0 of the index selects Max.X,
// bit 1 Max.Y and bit 2 Max.Z.
func (a Box) Corners() Set {
	c := make(Set, 8)
	for i := range c {
		c[i] = a.Min
		if i&1 != 0 {
			c[i].X = a.Max.X
		}
		if i&2 != 0 {
			c[i].Y = a.Max.Y
		}
		if i&4 != 0 {
			c[i].Z = a.Max.Z
		}
	}
	return c
}
