package render

import (
	"bufio"
	"fmt"
	"io"
)

// WriteNode writes vertices in TetGen .node format with 0-based indices.
func WriteNode(w io.Writer, coords []float64) error {
	bw := bufio.NewWriter(w)
	n := len(coords) / 3
	fmt.Fprintf(bw, "%d 3 0 0\n", n)
	for i := 0; i < n; i++ {
		fmt.Fprintf(bw, "%d %.17g %.17g %.17g\n", i, coords[3*i], coords[3*i+1], coords[3*i+2])
	}
	return bw.Flush()
}

// WriteEle writes tetrahedra in TetGen .ele format with 0-based indices.
func WriteEle(w io.Writer, tets []uint32) error {
	bw := bufio.NewWriter(w)
	n := len(tets) / 4
	fmt.Fprintf(bw, "%d 4 0\n", n)
	for i := 0; i < n; i++ {
		t := tets[4*i : 4*i+4]
		fmt.Fprintf(bw, "%d %d %d %d %d\n", i, t[0], t[1], t[2], t[3])
	}
	return bw.Flush()
}
