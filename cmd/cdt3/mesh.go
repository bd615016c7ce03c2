package main

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/soypat/cdt"
	"github.com/soypat/cdt/internal/recovery"
	"github.com/soypat/cdt/render"
	"github.com/spf13/cobra"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

var meshFlags struct {
	boundingBox   bool
	out           string
	stl           string
	png           string
	hist          string
	weldTol       float64
	shrink        float64
	steinerBudget int
	faceRetry     int
	flipBudget    int
}

var meshCmd = &cobra.Command{
	Use:   "mesh [file]",
	Short: "Tetrahedrize the volume enclosed by a boundary mesh",
	Args:  cobra.ExactArgs(1),
	RunE:  runMesh,
}

func init() {
	f := meshCmd.Flags()
	f.BoolVar(&meshFlags.boundingBox, "bbox", false, "enclose input in a bounding box before tetrahedrizing")
	f.StringVarP(&meshFlags.out, "out", "o", "", "write TetGen <out>.node and <out>.ele files")
	f.StringVar(&meshFlags.stl, "stl", "", "write boundary surface of the tetrahedra as binary STL")
	f.StringVar(&meshFlags.png, "png", "", "write a PNG preview of the boundary surface")
	f.StringVar(&meshFlags.hist, "hist", "", "write a histogram of tetrahedron volumes (png, svg or pdf)")
	f.Float64Var(&meshFlags.shrink, "shrink", 1, "scale each tetrahedron about its centroid in the PNG preview, 1 draws the boundary surface")
	f.Float64Var(&meshFlags.weldTol, "weld", 0, "vertex welding tolerance, 0 infers it from the shortest edge")
	f.IntVar(&meshFlags.steinerBudget, "steiner-budget", recovery.DefaultSteinerBudget, "maximum number of Steiner vertices")
	f.IntVar(&meshFlags.faceRetry, "face-retry", recovery.DefaultFaceRetryBudget, "recovery attempts per boundary triangle")
	f.IntVar(&meshFlags.flipBudget, "flip-budget", recovery.DefaultFlipBudget, "flip attempts per missing constraint")
	rootCmd.AddCommand(meshCmd)
}

func runMesh(cmd *cobra.Command, args []string) error {
	log := newLogger()
	defer log.Sync()
	coords, tris, err := loadBoundary(args[0], meshFlags.weldTol, log)
	if err != nil {
		return err
	}
	res := cdt.ComputeCDT(coords, tris,
		cdt.WithBoundingBox(meshFlags.boundingBox),
		cdt.WithLogger(log),
		cdt.WithSteinerBudget(meshFlags.steinerBudget),
		cdt.WithFaceRetryBudget(meshFlags.faceRetry),
		cdt.WithFlipBudget(meshFlags.flipBudget),
	)
	printSummary(cmd, res)
	if res.Kind() != nil && !errors.Is(res.Err, cdt.ErrRecoveryConflict) {
		return res.Err
	}
	if err := writeOutputs(res, log); err != nil {
		return err
	}
	if !res.Success {
		return res.Err
	}
	return nil
}

func printSummary(cmd *cobra.Command, res cdt.Result) {
	w := cmd.OutOrStdout()
	fmt.Fprintln(w, "Tetrahedrization")
	fmt.Fprintln(w, "================")
	fmt.Fprintf(w, "  Input vertices:   %d\n", res.NumInputVertices)
	fmt.Fprintf(w, "  Steiner vertices: %d\n", res.NumSteinerVertices)
	fmt.Fprintf(w, "  Tetrahedra:       %d\n", res.NumTetrahedra)
	fmt.Fprintf(w, "  Polyhedron:       %v\n", res.IsPolyhedron)
	fmt.Fprintf(w, "  Success:          %v\n", res.Success)
	if res.Err != nil {
		fmt.Fprintf(w, "  Error:            %v\n", res.Err)
	}
}

func writeOutputs(res cdt.Result, log *zap.Logger) error {
	if meshFlags.out != "" {
		prefix := strings.TrimSuffix(meshFlags.out, ".node")
		if err := writeFile(prefix+".node", func(fp *os.File) error { return render.WriteNode(fp, res.Vertices) }); err != nil {
			return err
		}
		if err := writeFile(prefix+".ele", func(fp *os.File) error { return render.WriteEle(fp, res.Tetrahedra) }); err != nil {
			return err
		}
		log.Info("wrote tetgen files", zap.String("prefix", prefix))
	}
	if meshFlags.stl == "" && meshFlags.png == "" && meshFlags.hist == "" {
		return nil
	}
	if res.NumTetrahedra == 0 {
		return errors.New("no tetrahedra to write")
	}
	surface := render.BoundarySurface(res.Vertices, res.Tetrahedra)
	if meshFlags.stl != "" {
		if err := render.CreateSTL(meshFlags.stl, render.NewSliceRenderer(surface)); err != nil {
			return err
		}
		log.Info("wrote stl", zap.String("file", meshFlags.stl), zap.Int("triangles", len(surface)))
	}
	if meshFlags.png != "" {
		preview := surface
		if meshFlags.shrink > 0 && meshFlags.shrink < 1 {
			cells, err := render.RenderAll(render.NewCellRenderer(res.Vertices, res.Tetrahedra, meshFlags.shrink))
			if err != nil {
				return err
			}
			preview = cells
		}
		if err := renderPNG(meshFlags.png, preview, defaultView); err != nil {
			return err
		}
	}
	if meshFlags.hist != "" {
		if err := volumeHistogram(meshFlags.hist, res); err != nil {
			return err
		}
	}
	return nil
}

func writeFile(path string, write func(fp *os.File) error) error {
	fp, err := os.Create(path)
	if err != nil {
		return err
	}
	return multierr.Combine(write(fp), fp.Close())
}
