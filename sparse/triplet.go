package sparse

import (
	"sort"

	"gonum.org/v1/gonum/mat"
)

// Triplet accumulates (row, col, value) entries in insertion order.
// Duplicate positions are allowed and are summed by ToCSR, which makes
// Triplet the builder of choice for finite element assembly.
type Triplet struct {
	nrow, ncol int
	is, js     []int
	vs         []float64
}

// NewTriplet returns an empty r-by-c builder with room for capacity entries.
func NewTriplet(r, c, capacity int) *Triplet {
	return &Triplet{
		nrow: r,
		ncol: c,
		is:   make([]int, 0, capacity),
		js:   make([]int, 0, capacity),
		vs:   make([]float64, 0, capacity),
	}
}

func (t *Triplet) Dims() (int, int) { return t.nrow, t.ncol }

// Len returns the number of accumulated entries, duplicates included.
func (t *Triplet) Len() int { return len(t.vs) }

// Put records v to be added at (i,j).
func (t *Triplet) Put(i, j int, v float64) {
	if i < 0 || i >= t.nrow || j < 0 || j >= t.ncol {
		panic(mat.ErrIndexOutOfRange)
	}
	t.is = append(t.is, i)
	t.js = append(t.js, j)
	t.vs = append(t.vs, v)
}

// Reset discards all entries while keeping the allocated storage.
func (t *Triplet) Reset() {
	t.is, t.js, t.vs = t.is[:0], t.js[:0], t.vs[:0]
}

// ToCSR sorts and merges the accumulated entries into a CSR matrix.
// Duplicates are summed in insertion order and sums of exactly zero are
// dropped.
func (t *Triplet) ToCSR() *CSR {
	// bucket entries by row, keeping insertion order within a row
	start := make([]int, t.nrow+1)
	for _, i := range t.is {
		start[i+1]++
	}
	for i := 0; i < t.nrow; i++ {
		start[i+1] += start[i]
	}
	next := append([]int(nil), start[:t.nrow]...)
	order := make([]int, len(t.is))
	for k, i := range t.is {
		order[next[i]] = k
		next[i]++
	}

	rowPtr := make([]int, t.nrow+1)
	colIdx := make([]int, 0, len(t.js))
	val := make([]float64, 0, len(t.vs))
	for i := 0; i < t.nrow; i++ {
		seg := order[start[i]:start[i+1]]
		sort.SliceStable(seg, func(a, b int) bool { return t.js[seg[a]] < t.js[seg[b]] })
		for n := 0; n < len(seg); {
			j := t.js[seg[n]]
			v := 0.0
			for ; n < len(seg) && t.js[seg[n]] == j; n++ {
				v += t.vs[seg[n]]
			}
			if v != 0 {
				colIdx = append(colIdx, j)
				val = append(val, v)
			}
		}
		rowPtr[i+1] = len(colIdx)
	}
	return &CSR{RowPtr: rowPtr, ColIdx: colIdx, Val: val, ncol: t.ncol}
}
