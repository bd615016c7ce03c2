package render

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/chewxy/math32"
	"go.uber.org/multierr"
	"gonum.org/v1/gonum/spatial/r3"
)

const (
	stlHeaderSize   = 84
	stlTriangleSize = 50
)

// stlHeader defines the STL file header.
type stlHeader struct {
	_     [80]uint8 // Header
	Count uint32    // Number of triangles
}

// stlTriangle defines the triangle data within an STL file.
type stlTriangle struct {
	Normal  [3]float32
	Vertex1 [3]float32
	Vertex2 [3]float32
	Vertex3 [3]float32
	_       uint16 // Attribute byte count
}

// WriteSTL writes model triangles to a writer in binary STL format.
func WriteSTL(w io.Writer, model []Triangle3) error {
	if len(model) == 0 {
		return errors.New("empty triangle slice")
	}
	header := stlHeader{Count: uint32(len(model))}
	if err := binary.Write(w, binary.LittleEndian, &header); err != nil {
		return err
	}
	var b [stlTriangleSize]byte
	for _, t := range model {
		fromTriangle3(t).put(b[:])
		if _, err := w.Write(b[:]); err != nil {
			return err
		}
	}
	return nil
}

// CreateSTL streams the triangles of r into a binary STL file at path. The
// header is written last once the triangle count is known.
func CreateSTL(path string, r Renderer) (err error) {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer func() {
		err = multierr.Combine(err, file.Close())
	}()
	if _, err = file.Seek(stlHeaderSize, io.SeekStart); err != nil {
		return err
	}
	var (
		buf = make([]Triangle3, 1024)
		b   [stlTriangleSize]byte
		nt  uint32
	)
	for {
		n, rerr := r.ReadTriangles(buf)
		for _, t := range buf[:n] {
			fromTriangle3(t).put(b[:])
			if _, err = file.Write(b[:]); err != nil {
				return err
			}
			nt++
		}
		if rerr == io.EOF {
			break
		} else if rerr != nil {
			return rerr
		}
	}
	if nt == 0 {
		return errors.New("renderer yielded no triangles")
	}
	if _, err = file.Seek(0, io.SeekStart); err != nil {
		return err
	}
	return binary.Write(file, binary.LittleEndian, &stlHeader{Count: nt})
}

// ReadSTL reads a binary or ASCII STL. Triangles with non-finite
// coordinates or coincident vertices are rejected. Facet normals disagreeing
// with the vertex winding are tolerated: the triangles are returned alongside
// ErrNormalMismatch.
func ReadSTL(r io.Reader) ([]Triangle3, error) {
	br := bufio.NewReader(r)
	if isASCIISTL(br) {
		return readASCIISTL(br)
	}
	return readBinarySTL(br)
}

// isASCIISTL peeks at the start of the stream. Binary headers may also
// begin with "solid" so a facet keyword must follow.
func isASCIISTL(br *bufio.Reader) bool {
	head, _ := br.Peek(512)
	text := strings.TrimSpace(string(head))
	return strings.HasPrefix(text, "solid") && strings.Contains(text, "facet")
}

func readASCIISTL(r io.Reader) (output []Triangle3, readErr error) {
	sc := bufio.NewScanner(r)
	sc.Split(bufio.ScanWords)
	line := 0
	next := func() string {
		if !sc.Scan() {
			return ""
		}
		line++
		return sc.Text()
	}
	vec := func() (v [3]float32, err error) {
		for i := range v {
			f, err := strconv.ParseFloat(next(), 32)
			if err != nil {
				return v, err
			}
			v[i] = float32(f)
		}
		return v, nil
	}
	expect := func(words ...string) error {
		for _, w := range words {
			if got := next(); got != w {
				return fmt.Errorf("ASCII STL token %d: got %q, want %q", line, got, w)
			}
		}
		return nil
	}
	if err := expect("solid"); err != nil {
		return nil, err
	}
	var d stlTriangle
	for tok := next(); tok != "endsolid"; tok = next() {
		switch tok {
		case "facet":
		case "":
			return nil, errors.New("ASCII STL ended without endsolid")
		default:
			if len(output) == 0 {
				continue // Solid name.
			}
			return nil, fmt.Errorf("ASCII STL token %d: unexpected %q", line, tok)
		}
		var err error
		if err = expect("normal"); err == nil {
			d.Normal, err = vec()
		}
		if err == nil {
			err = expect("outer", "loop")
		}
		for _, v := range []*[3]float32{&d.Vertex1, &d.Vertex2, &d.Vertex3} {
			if err == nil {
				err = expect("vertex")
			}
			if err == nil {
				*v, err = vec()
			}
		}
		if err == nil {
			err = expect("endloop", "endfacet")
		}
		if err == nil {
			err = d.validate()
		}
		if err != nil && !errors.Is(err, ErrNormalMismatch) {
			return nil, fmt.Errorf("ASCII STL facet %d: %w", len(output), err)
		} else if err != nil {
			readErr = err
		}
		output = append(output, d.toTriangle3())
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	if len(output) == 0 {
		return nil, errors.New("ASCII STL has no facets")
	}
	return output, readErr
}

// ErrNormalMismatch is returned alongside a full model when stored facet
// normals do not match the normals computed from the vertices.
var ErrNormalMismatch = errors.New("STL facet normal not approximately equal to normal computed from vertices")

func readBinarySTL(r io.Reader) (output []Triangle3, readErr error) {
	var header stlHeader
	if err := binary.Read(r, binary.LittleEndian, &header); err != nil {
		if errors.Is(err, io.ErrUnexpectedEOF) || errors.Is(err, io.EOF) {
			return nil, errors.New("encountered EOF while reading STL header")
		}
		return nil, errors.New("STL header read failed: " + err.Error())
	}
	if header.Count == 0 {
		return nil, errors.New("STL header indicates 0 triangles present")
	}
	var (
		buf [stlTriangleSize]byte
		d   stlTriangle
		i   int
	)
	defer func() {
		if readErr != nil && !errors.Is(readErr, ErrNormalMismatch) {
			readErr = fmt.Errorf("%d/%d STL triangles read: %w", i+1, header.Count, readErr)
		}
	}()
	// The count of a text STL misread as binary is garbage, do not trust it for allocation.
	output = make([]Triangle3, 0, min(int(header.Count), 1<<16))
	for i = 0; i < int(header.Count); i++ {
		if _, err := io.ReadFull(r, buf[:]); err != nil {
			return nil, err
		}
		d.get(buf[:])
		if err := d.validate(); err != nil {
			if !errors.Is(err, ErrNormalMismatch) {
				return nil, err
			}
			readErr = err
		}
		output = append(output, d.toTriangle3())
	}
	return output, readErr
}

func fromTriangle3(t Triangle3) (d stlTriangle) {
	n := t.Normal()
	d.Normal = to3F32(n)
	d.Vertex1 = to3F32(t[0])
	d.Vertex2 = to3F32(t[1])
	d.Vertex3 = to3F32(t[2])
	return d
}

func (d stlTriangle) toTriangle3() Triangle3 {
	return Triangle3{r3From3F32(d.Vertex1), r3From3F32(d.Vertex2), r3From3F32(d.Vertex3)}
}

func (t stlTriangle) put(b []byte) {
	if len(b) < stlTriangleSize {
		panic("need length 50 to marshal stlTriangle")
	}
	put3F32(b, t.Normal)
	put3F32(b[12:], t.Vertex1)
	put3F32(b[24:], t.Vertex2)
	put3F32(b[36:], t.Vertex3)
	binary.LittleEndian.PutUint16(b[48:], 0)
}

func (t *stlTriangle) get(b []byte) {
	if len(b) < stlTriangleSize {
		panic("need length 50 to unmarshal stlTriangle")
	}
	get3F32(b, &t.Normal)
	get3F32(b[12:], &t.Vertex1)
	get3F32(b[24:], &t.Vertex2)
	get3F32(b[36:], &t.Vertex3)
}

func put3F32(b []byte, f [3]float32) {
	_ = b[11] // early bounds check
	binary.LittleEndian.PutUint32(b, math.Float32bits(f[0]))
	binary.LittleEndian.PutUint32(b[4:], math.Float32bits(f[1]))
	binary.LittleEndian.PutUint32(b[8:], math.Float32bits(f[2]))
}

func get3F32(b []byte, f *[3]float32) {
	_ = b[11] // early bounds check
	f[0] = math.Float32frombits(binary.LittleEndian.Uint32(b))
	f[1] = math.Float32frombits(binary.LittleEndian.Uint32(b[4:]))
	f[2] = math.Float32frombits(binary.LittleEndian.Uint32(b[8:]))
}

func bad3F32(f [3]float32) bool {
	return math32.IsNaN(f[0]) || math32.IsInf(f[0], 0) ||
		math32.IsNaN(f[1]) || math32.IsInf(f[1], 0) ||
		math32.IsNaN(f[2]) || math32.IsInf(f[2], 0)
}

func (t stlTriangle) validate() error {
	const normTol = 5e-2
	if bad3F32(t.Vertex1) || bad3F32(t.Vertex2) || bad3F32(t.Vertex3) {
		return errors.New("inf/NaN STL triangle vertex")
	}
	if t.Vertex1 == t.Vertex2 || t.Vertex2 == t.Vertex3 || t.Vertex3 == t.Vertex1 {
		return errors.New("triangle is degenerate")
	}
	if bad3F32(t.Normal) {
		return errors.New("inf/NaN STL triangle normal")
	}
	if t.Normal == [3]float32{} {
		// Zero normals are a common way of leaving normals unspecified.
		return nil
	}
	calc := to3F32(t.toTriangle3().Normal())
	if !equalWithin3F32(calc, t.Normal, normTol) {
		return ErrNormalMismatch
	}
	return nil
}

func equalWithin3F32(a, b [3]float32, tol float32) bool {
	return math32.Abs(a[0]-b[0]) <= tol &&
		math32.Abs(a[1]-b[1]) <= tol &&
		math32.Abs(a[2]-b[2]) <= tol
}

func to3F32(v r3.Vec) [3]float32 {
	return [3]float32{float32(v.X), float32(v.Y), float32(v.Z)}
}

func r3From3F32(f [3]float32) r3.Vec {
	return r3.Vec{X: float64(f[0]), Y: float64(f[1]), Z: float64(f[2])}
}
