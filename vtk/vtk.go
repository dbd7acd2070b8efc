// Package vtk writes solution fields on a mesh in the legacy VTK ASCII
// format.
package vtk

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"

	"github.com/rwcarlsen/scfem/element"
	"github.com/rwcarlsen/scfem/mesh"
)

// ErrFieldLength is returned when a field does not have one value per point
// (or cell).
var ErrFieldLength = errors.New("vtk: field length mismatch")

// cellTypes maps element kinds to VTK cell type codes.
var cellTypes = map[element.Kind]int{
	element.Line:        3,
	element.Triangle:    5,
	element.Tetrahedron: 10,
	element.Hexahedron:  12,
	element.Prism:       13,
}

// wedgeOrder reorders prism nodes for VTK, whose wedge base triangle faces
// away from the top.
var wedgeOrder = []int{0, 2, 1, 3, 5, 4}

// Fields holds the data written alongside the mesh.
type Fields struct {
	// Potential holds one value per mesh node indexed by node ID.
	Potential []float64
	// CurrentDensity optionally holds one vector per mesh element.
	CurrentDensity [][3]float64
}

// Write writes m and f to w as a legacy VTK unstructured grid.
func Write(w io.Writer, m *mesh.Mesh, f Fields) error {
	if len(f.Potential) != m.NumNodes() {
		return fmt.Errorf("%w: %d potential values for %d points", ErrFieldLength, len(f.Potential), m.NumNodes())
	}
	if f.CurrentDensity != nil && len(f.CurrentDensity) != len(m.Elements) {
		return fmt.Errorf("%w: %d current density vectors for %d cells", ErrFieldLength, len(f.CurrentDensity), len(m.Elements))
	}

	ew := &errWriter{w: bufio.NewWriter(w)}
	ew.printf("# vtk DataFile Version 3.0\n")
	ew.printf("scfem potential\n")
	ew.printf("ASCII\n")
	ew.printf("DATASET UNSTRUCTURED_GRID\n")

	ew.printf("POINTS %d double\n", m.NumNodes())
	for _, n := range m.Nodes {
		ew.floats(n.X[:]...)
	}

	size := 0
	for _, e := range m.Elements {
		size += 1 + len(e.Nodes)
	}
	ew.printf("CELLS %d %d\n", len(m.Elements), size)
	for _, e := range m.Elements {
		ids := e.NodeIDs()
		if e.Kind == element.Prism {
			reordered := make([]int, len(ids))
			for i, j := range wedgeOrder {
				reordered[i] = ids[j]
			}
			ids = reordered
		}
		ew.ints(append([]int{len(ids)}, ids...)...)
	}
	ew.printf("CELL_TYPES %d\n", len(m.Elements))
	for _, e := range m.Elements {
		ew.ints(cellTypes[e.Kind])
	}

	ew.printf("POINT_DATA %d\n", m.NumNodes())
	ew.printf("SCALARS potential double 1\nLOOKUP_TABLE default\n")
	for _, v := range f.Potential {
		ew.floats(v)
	}

	ew.printf("CELL_DATA %d\n", len(m.Elements))
	ew.printf("SCALARS physical_group int 1\nLOOKUP_TABLE default\n")
	for _, e := range m.Elements {
		ew.ints(e.PhysicalTag)
	}
	if f.CurrentDensity != nil {
		ew.printf("VECTORS current_density double\n")
		for _, j := range f.CurrentDensity {
			ew.floats(j[:]...)
		}
	}

	if ew.err != nil {
		return ew.err
	}
	return ew.w.Flush()
}

// WriteFile writes m and f to the file at path.  The file is written to a
// temporary file first and renamed into place, so a failed write leaves no
// partial output behind.
func WriteFile(path string, m *mesh.Mesh, f Fields) (err error) {
	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".*.tmp")
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			tmp.Close()
			os.Remove(tmp.Name())
		}
	}()

	if err := Write(tmp, m, f); err != nil {
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}

// errWriter keeps the first write error and turns later writes into no-ops.
type errWriter struct {
	w   *bufio.Writer
	buf []byte
	err error
}

func (ew *errWriter) printf(format string, args ...any) {
	if ew.err != nil {
		return
	}
	_, ew.err = fmt.Fprintf(ew.w, format, args...)
}

func (ew *errWriter) line(fn func(i int) []byte, n int) {
	if ew.err != nil {
		return
	}
	ew.buf = ew.buf[:0]
	for i := 0; i < n; i++ {
		if i > 0 {
			ew.buf = append(ew.buf, ' ')
		}
		ew.buf = append(ew.buf, fn(i)...)
	}
	ew.buf = append(ew.buf, '\n')
	_, ew.err = ew.w.Write(ew.buf)
}

func (ew *errWriter) floats(vs ...float64) {
	var num []byte
	ew.line(func(i int) []byte {
		num = strconv.AppendFloat(num[:0], vs[i], 'g', -1, 64)
		return num
	}, len(vs))
}

func (ew *errWriter) ints(vs ...int) {
	var num []byte
	ew.line(func(i int) []byte {
		num = strconv.AppendInt(num[:0], int64(vs[i]), 10)
		return num
	}, len(vs))
}
