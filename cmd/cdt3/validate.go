package main

import (
	"fmt"

	"github.com/soypat/cdt"
	"github.com/spf13/cobra"
)

var validateCmd = &cobra.Command{
	Use:   "validate [file]",
	Short: "Check that a boundary mesh is structurally usable as input",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		log := newLogger()
		defer log.Sync()
		coords, tris, err := loadBoundary(args[0], 0, log)
		if err != nil {
			return err
		}
		info := cdt.ValidateMesh(coords, tris)
		w := cmd.OutOrStdout()
		fmt.Fprintf(w, "Vertices:  %d\n", info.NumVertices)
		fmt.Fprintf(w, "Triangles: %d\n", info.NumTriangles)
		fmt.Fprintf(w, "Valid:     %v\n", info.Valid)
		if !info.Valid {
			return fmt.Errorf("%s is not a valid boundary", args[0])
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(validateCmd)
}
