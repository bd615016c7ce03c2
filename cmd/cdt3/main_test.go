package main

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/soypat/cdt/render"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var cubeTris = []uint32{
	0, 2, 1, 0, 3, 2,
	4, 5, 6, 4, 6, 7,
	0, 1, 5, 0, 5, 4,
	2, 3, 7, 2, 7, 6,
	0, 4, 7, 0, 7, 3,
	1, 2, 6, 1, 6, 5,
}

func cubeModel() []render.Triangle3 {
	coords := []float64{
		0, 0, 0, 1, 0, 0, 1, 1, 0, 0, 1, 0,
		0, 0, 1, 1, 0, 1, 1, 1, 1, 0, 1, 1,
	}
	var model []render.Triangle3
	for i := 0; i < len(cubeTris); i += 3 {
		var tri render.Triangle3
		for j := range tri {
			v := cubeTris[i+j]
			tri[j].X, tri[j].Y, tri[j].Z = coords[3*v], coords[3*v+1], coords[3*v+2]
		}
		model = append(model, tri)
	}
	return model
}

func writeModel(t *testing.T, path string, model []render.Triangle3) string {
	t.Helper()
	require.NoError(t, render.CreateSTL(path, render.NewSliceRenderer(model)))
	return path
}

func writeCube(t *testing.T, dir string) string {
	t.Helper()
	return writeModel(t, filepath.Join(dir, "cube.stl"), cubeModel())
}

func execute(t *testing.T, args ...string) string {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs(args)
	require.NoError(t, rootCmd.Execute())
	return out.String()
}

func TestMeshCommand(t *testing.T) {
	dir := t.TempDir()
	in := writeCube(t, dir)
	prefix := filepath.Join(dir, "cube")
	out := execute(t, "mesh", in,
		"--out", prefix,
		"--stl", filepath.Join(dir, "surface.stl"),
		"--hist", filepath.Join(dir, "hist.png"),
		"--png", filepath.Join(dir, "preview.png"),
	)
	require.Contains(t, out, "Success:          true")
	require.Contains(t, out, "Input vertices:   8")

	node, err := os.ReadFile(prefix + ".node")
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(string(node), "8 3 0 0\n"))
	ele, err := os.ReadFile(prefix + ".ele")
	require.NoError(t, err)
	require.NotEmpty(t, ele)

	fp, err := os.Open(filepath.Join(dir, "surface.stl"))
	require.NoError(t, err)
	defer fp.Close()
	surface, err := render.ReadSTL(fp)
	require.NoError(t, err)
	require.Len(t, surface, 12)

	execute(t, "mesh", in, "--shrink", "0.7", "--png", filepath.Join(dir, "cells.png"))

	for _, name := range []string{"hist.png", "preview.png", "cells.png"} {
		info, err := os.Stat(filepath.Join(dir, name))
		require.NoError(t, err)
		require.Positive(t, info.Size())
	}
}

func TestValidateCommand(t *testing.T) {
	in := writeCube(t, t.TempDir())
	out := execute(t, "validate", in)
	require.Contains(t, out, "Vertices:  8")
	require.Contains(t, out, "Triangles: 12")
	require.Contains(t, out, "Valid:     true")
}

func TestLoadBoundaryDropsCollapsed(t *testing.T) {
	var obj strings.Builder
	for _, tri := range cubeModel() {
		for _, v := range tri {
			fmt.Fprintf(&obj, "v %g %g %g\n", v.X, v.Y, v.Z)
		}
	}
	for i := 0; i < len(cubeTris)/3; i++ {
		fmt.Fprintf(&obj, "f %d %d %d\n", 3*i+1, 3*i+2, 3*i+3)
	}
	obj.WriteString("f 1 1 2\n")
	path := filepath.Join(t.TempDir(), "collapsed.obj")
	require.NoError(t, os.WriteFile(path, []byte(obj.String()), 0o644))
	coords, tris, err := loadBoundary(path, 0, zap.NewNop())
	require.NoError(t, err)
	require.Len(t, coords, 3*8)
	require.Len(t, tris, len(cubeTris))
}
