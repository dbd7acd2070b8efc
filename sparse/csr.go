package sparse

import (
	"fmt"
	"sort"

	"gonum.org/v1/gonum/mat"
)

// CSR is a compressed sparse row matrix.  The column indices of row i are
// ColIdx[RowPtr[i]:RowPtr[i+1]] in ascending order with the matching values
// in Val.  len(RowPtr) is the number of rows plus one.
type CSR struct {
	RowPtr []int
	ColIdx []int
	Val    []float64
	ncol   int
}

// NewCSR builds an r-by-c CSR matrix from raw arrays, validating their
// structure.  The arrays are used directly, not copied.
func NewCSR(r, c int, rowPtr, colIdx []int, val []float64) (*CSR, error) {
	if len(rowPtr) != r+1 || rowPtr[0] != 0 || len(colIdx) != len(val) || rowPtr[r] != len(val) {
		return nil, fmt.Errorf("%w: inconsistent csr arrays for %dx%d matrix", ErrDimensionMismatch, r, c)
	}
	for i := 0; i < r; i++ {
		if rowPtr[i+1] < rowPtr[i] {
			return nil, fmt.Errorf("sparse: row pointer decreases at row %d", i)
		}
		for k := rowPtr[i]; k < rowPtr[i+1]; k++ {
			if colIdx[k] < 0 || colIdx[k] >= c {
				return nil, fmt.Errorf("%w: column %d out of range in row %d", ErrDimensionMismatch, colIdx[k], i)
			}
			if k > rowPtr[i] && colIdx[k] <= colIdx[k-1] {
				return nil, fmt.Errorf("sparse: columns not strictly ascending in row %d", i)
			}
		}
	}
	return &CSR{RowPtr: rowPtr, ColIdx: colIdx, Val: val, ncol: c}, nil
}

func (m *CSR) Dims() (int, int) { return len(m.RowPtr) - 1, m.ncol }
func (m *CSR) T() mat.Matrix    { return mat.Transpose{Matrix: m} }
func (m *CSR) NNZ() int         { return len(m.Val) }

func (m *CSR) check(i, j int) {
	r, c := m.Dims()
	if i < 0 || i >= r || j < 0 || j >= c {
		panic(mat.ErrIndexOutOfRange)
	}
}

// find returns the storage position of (i,j), or the position it would be
// inserted at along with false if it is not stored.
func (m *CSR) find(i, j int) (int, bool) {
	lo, hi := m.RowPtr[i], m.RowPtr[i+1]
	k := lo + sort.SearchInts(m.ColIdx[lo:hi], j)
	return k, k < hi && m.ColIdx[k] == j
}

func (m *CSR) At(i, j int) float64 {
	m.check(i, j)
	if k, ok := m.find(i, j); ok {
		return m.Val[k]
	}
	return 0
}

func (m *CSR) Row(i int) (cols []int, vals []float64) {
	m.check(i, 0)
	lo, hi := m.RowPtr[i], m.RowPtr[i+1]
	return m.ColIdx[lo:hi], m.Val[lo:hi]
}

// Set stores v at (i,j).  Updating a stored entry is done in place.
// Inserting or removing an entry shifts the storage arrays and costs
// O(NNZ).
func (m *CSR) Set(i, j int, v float64) {
	m.check(i, j)
	k, ok := m.find(i, j)
	switch {
	case ok && v != 0:
		m.Val[k] = v
	case ok:
		m.ColIdx = append(m.ColIdx[:k], m.ColIdx[k+1:]...)
		m.Val = append(m.Val[:k], m.Val[k+1:]...)
		for r := i + 1; r < len(m.RowPtr); r++ {
			m.RowPtr[r]--
		}
	case v != 0:
		m.ColIdx = append(m.ColIdx, 0)
		copy(m.ColIdx[k+1:], m.ColIdx[k:])
		m.ColIdx[k] = j
		m.Val = append(m.Val, 0)
		copy(m.Val[k+1:], m.Val[k:])
		m.Val[k] = v
		for r := i + 1; r < len(m.RowPtr); r++ {
			m.RowPtr[r]++
		}
	}
}

// Add adds v to the entry at (i,j).
func (m *CSR) Add(i, j int, v float64) {
	m.check(i, j)
	if k, ok := m.find(i, j); ok {
		m.Set(i, j, m.Val[k]+v)
		return
	}
	m.Set(i, j, v)
}

// IdentityRows replaces the listed rows with identity rows in a single pass
// over the storage.
func (m *CSR) IdentityRows(rows ...int) {
	if len(rows) == 0 {
		return
	}
	r, _ := m.Dims()
	ident := make(map[int]bool, len(rows))
	for _, i := range rows {
		m.check(i, i)
		ident[i] = true
	}

	rowPtr := make([]int, r+1)
	colIdx := make([]int, 0, len(m.ColIdx)+len(rows))
	val := make([]float64, 0, len(m.Val)+len(rows))
	for i := 0; i < r; i++ {
		if ident[i] {
			colIdx = append(colIdx, i)
			val = append(val, 1)
		} else {
			lo, hi := m.RowPtr[i], m.RowPtr[i+1]
			colIdx = append(colIdx, m.ColIdx[lo:hi]...)
			val = append(val, m.Val[lo:hi]...)
		}
		rowPtr[i+1] = len(colIdx)
	}
	m.RowPtr, m.ColIdx, m.Val = rowPtr, colIdx, val
}

// MulVec computes dst = A*x.
func (m *CSR) MulVec(dst, x []float64) error {
	r, c := m.Dims()
	if len(x) != c || len(dst) != r {
		return fmt.Errorf("%w: %dx%d matrix times vector of length %d into %d", ErrDimensionMismatch, r, c, len(x), len(dst))
	}
	for i := 0; i < r; i++ {
		tot := 0.0
		for k := m.RowPtr[i]; k < m.RowPtr[i+1]; k++ {
			tot += m.Val[k] * x[m.ColIdx[k]]
		}
		dst[i] = tot
	}
	return nil
}

// Mul returns A*x in a newly allocated vector.
func (m *CSR) Mul(x []float64) ([]float64, error) {
	r, _ := m.Dims()
	dst := make([]float64, r)
	return dst, m.MulVec(dst, x)
}

// Diagonal returns the diagonal entries of a square matrix.
func (m *CSR) Diagonal() []float64 {
	r, _ := m.Dims()
	diag := make([]float64, r)
	for i := range diag {
		if k, ok := m.find(i, i); ok {
			diag[i] = m.Val[k]
		}
	}
	return diag
}

// Clone returns a deep copy of m.
func (m *CSR) Clone() *CSR {
	return &CSR{
		RowPtr: append([]int(nil), m.RowPtr...),
		ColIdx: append([]int(nil), m.ColIdx...),
		Val:    append([]float64(nil), m.Val...),
		ncol:   m.ncol,
	}
}

// ToSparse returns the key-addressed form of m.
func (m *CSR) ToSparse() *Sparse {
	r, c := m.Dims()
	s := NewSparse(r, c)
	for i := 0; i < r; i++ {
		for k := m.RowPtr[i]; k < m.RowPtr[i+1]; k++ {
			s.Set(i, m.ColIdx[k], m.Val[k])
		}
	}
	return s
}
