// Command cdt3 tetrahedrizes the volume enclosed by a triangulated boundary
// read from an STL, OBJ, PLY or 3DS file.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var rootCmd = &cobra.Command{
	Use:   "cdt3",
	Short: "Constrained Delaunay tetrahedrization of triangulated boundaries",
	Long: `cdt3 builds a tetrahedral mesh of the volume enclosed by a triangle mesh.
Boundary triangles are recovered as mesh faces, adding Steiner vertices where
needed. Results can be written as TetGen .node/.ele files, as an STL of the
mesh boundary and as a PNG preview.`,
	Version:       "0.1.0",
	SilenceUsage:  true,
	SilenceErrors: true,
}

var verbose bool

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "log pipeline progress")
}

func newLogger() *zap.Logger {
	if !verbose {
		return zap.NewNop()
	}
	log, err := zap.NewDevelopment()
	if err != nil {
		return zap.NewNop()
	}
	return log
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
