// Package sparse provides sparse matrix storage and linear solvers for
// assembled finite element systems.
package sparse

import (
	"fmt"
	"sort"

	"gonum.org/v1/gonum/mat"
)

// Matrix is a sparse matrix that can be mutated in place by boundary
// condition application and consumed by the solvers in this package.
type Matrix interface {
	mat.Matrix
	// Set stores v at (i,j).  Storing exactly zero removes the entry.
	Set(i, j int, v float64)
	// IdentityRows replaces each listed row with the corresponding row of
	// the identity matrix.
	IdentityRows(rows ...int)
	// Row returns the column indices (ascending) and values of the stored
	// entries in row i.  The returned slices must not be modified.
	Row(i int) (cols []int, vals []float64)
	// MulVec computes dst = A*x.
	MulVec(dst, x []float64) error
	// NNZ returns the number of stored entries.
	NNZ() int
}

var (
	_ Matrix = (*Sparse)(nil)
	_ Matrix = (*CSR)(nil)
)

// Sparse is a key-addressed sparse matrix backed by one map per row.  It is
// convenient for building small systems by hand.  Large systems should be
// accumulated with a Triplet and compressed to CSR.
type Sparse struct {
	// rows[i] maps column index to value for row i
	rows       []map[int]float64
	nrow, ncol int
}

// NewSparse returns an empty r-by-c sparse matrix.
func NewSparse(r, c int) *Sparse {
	return &Sparse{rows: make([]map[int]float64, r), nrow: r, ncol: c}
}

func (m *Sparse) Dims() (int, int) { return m.nrow, m.ncol }
func (m *Sparse) T() mat.Matrix    { return mat.Transpose{Matrix: m} }

func (m *Sparse) At(i, j int) float64 {
	m.check(i, j)
	return m.rows[i][j]
}

func (m *Sparse) check(i, j int) {
	if i < 0 || i >= m.nrow || j < 0 || j >= m.ncol {
		panic(mat.ErrIndexOutOfRange)
	}
}

func (m *Sparse) Set(i, j int, v float64) {
	m.check(i, j)
	if v == 0 {
		delete(m.rows[i], j)
		return
	}
	if m.rows[i] == nil {
		m.rows[i] = make(map[int]float64)
	}
	m.rows[i][j] = v
}

// Add adds v to the entry at (i,j).
func (m *Sparse) Add(i, j int, v float64) { m.Set(i, j, m.At(i, j)+v) }

func (m *Sparse) NNZ() int {
	n := 0
	for _, row := range m.rows {
		n += len(row)
	}
	return n
}

func (m *Sparse) Row(i int) (cols []int, vals []float64) {
	m.check(i, 0)
	cols = make([]int, 0, len(m.rows[i]))
	for j := range m.rows[i] {
		cols = append(cols, j)
	}
	sort.Ints(cols)
	vals = make([]float64, len(cols))
	for k, j := range cols {
		vals[k] = m.rows[i][j]
	}
	return cols, vals
}

func (m *Sparse) IdentityRows(rows ...int) {
	for _, i := range rows {
		m.check(i, i)
		m.rows[i] = map[int]float64{i: 1}
	}
}

func (m *Sparse) MulVec(dst, x []float64) error {
	if len(x) != m.ncol || len(dst) != m.nrow {
		return fmt.Errorf("%w: %dx%d matrix times vector of length %d into %d", ErrDimensionMismatch, m.nrow, m.ncol, len(x), len(dst))
	}
	for i, row := range m.rows {
		tot := 0.0
		for j, v := range row {
			tot += v * x[j]
		}
		dst[i] = tot
	}
	return nil
}

// Clone returns a deep copy of m.
func (m *Sparse) Clone() *Sparse {
	clone := NewSparse(m.nrow, m.ncol)
	for i, row := range m.rows {
		for j, v := range row {
			clone.Set(i, j, v)
		}
	}
	return clone
}

// ToCSR returns the compressed row form of m.
func (m *Sparse) ToCSR() *CSR {
	t := NewTriplet(m.nrow, m.ncol, m.NNZ())
	for i, row := range m.rows {
		for j, v := range row {
			t.Put(i, j, v)
		}
	}
	return t.ToCSR()
}

// Permute stores into dst the entries of src relocated so that src(i,j)
// lands at dst(mapping[i], mapping[j]).
func Permute(dst, src Matrix, mapping []int) {
	r, _ := src.Dims()
	for i := 0; i < r; i++ {
		cols, vals := src.Row(i)
		for k, j := range cols {
			dst.Set(mapping[i], mapping[j], vals[k])
		}
	}
}
