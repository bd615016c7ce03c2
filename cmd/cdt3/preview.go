package main

import (
	"errors"

	"github.com/fogleman/fauxgl"
	"github.com/nfnt/resize"
	"github.com/soypat/cdt"
	"github.com/soypat/cdt/internal/d3"
	"github.com/soypat/cdt/render"
	"gonum.org/v1/gonum/spatial/r3"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
)

const (
	width  = 800
	height = 600
)

type viewConfig struct {
	// what position (point) to look at
	lookat r3.Vec
	// which way is up (direction)
	up r3.Vec
	// where the camera/eye located at (point)
	eyepos r3.Vec
	far    float64
	near   float64
}

var defaultView = viewConfig{
	up:     r3.Vec{Z: 1},
	eyepos: d3.Elem(2.4), // iso view.
	near:   1,
	far:    10,
}

// renderPNG shades the surface with a phong shader and writes it as PNG.
func renderPNG(path string, surface []render.Triangle3, view viewConfig) error {
	const (
		scale = 2  // supersampling
		fovy  = 30 // vertical field of view in degrees
	)
	var (
		eye    = fauxgl.V(view.eyepos.X, view.eyepos.Y, view.eyepos.Z)
		center = fauxgl.V(view.lookat.X, view.lookat.Y, view.lookat.Z)
		up     = fauxgl.V(view.up.X, view.up.Y, view.up.Z)
		light  = fauxgl.V(-0.75, 1, 0.25).Normalize()
		color  = fauxgl.HexColor("#468966")
	)
	mesh := toFauxgl(surface)
	// fit mesh in a bi-unit cube centered at the origin
	mesh.BiUnitCube()
	context := fauxgl.NewContext(width*scale, height*scale)
	context.ClearColorBufferWith(fauxgl.HexColor("#FFF8E3"))
	aspect := float64(width) / float64(height)
	matrix := fauxgl.LookAt(eye, center, up).Perspective(fovy, aspect, view.near, view.far)
	shader := fauxgl.NewPhongShader(matrix, light, eye)
	shader.ObjectColor = color
	context.Shader = shader
	context.DrawMesh(mesh)
	// downsample image for antialiasing
	image := resize.Resize(width, height, context.Image(), resize.Bilinear)
	return fauxgl.SavePNG(path, image)
}

// volumeHistogram plots the distribution of tetrahedron volumes.
func volumeHistogram(path string, res cdt.Result) error {
	vols := make(plotter.Values, res.NumTetrahedra)
	for i := range vols {
		t := res.Tetrahedron(i)
		vols[i] = d3.TetVolume(res.Vertex(int(t[0])), res.Vertex(int(t[1])), res.Vertex(int(t[2])), res.Vertex(int(t[3])))
	}
	if len(vols) == 0 {
		return errors.New("no tetrahedra to plot")
	}
	p := plot.New()
	p.Title.Text = "Tetrahedron volumes"
	p.X.Label.Text = "volume"
	p.Y.Label.Text = "count"
	h, err := plotter.NewHist(vols, 32)
	if err != nil {
		return err
	}
	p.Add(h)
	return p.Save(6*vg.Inch, 4*vg.Inch, path)
}
