package sparse

import (
	"errors"
	"fmt"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// chain returns the stiffness matrix of n unit line elements (n+1 nodes)
// with the end nodes fixed by identity rows, along with the matching right
// hand side for potentials left and right.
func chain(n int, left, right float64) (*CSR, []float64) {
	t := NewTriplet(n+1, n+1, 4*n)
	for e := 0; e < n; e++ {
		t.Put(e, e, 1)
		t.Put(e, e+1, -1)
		t.Put(e+1, e, -1)
		t.Put(e+1, e+1, 1)
	}
	A := t.ToCSR()
	A.IdentityRows(0, n)
	b := make([]float64, n+1)
	b[0], b[n] = left, right
	return A, b
}

func allSolvers() []Solver {
	return []Solver{&GaussSeidel{}, &DenseLU{}, &CG{}, &BandCholesky{}}
}

func TestSolvers_Chain(t *testing.T) {
	n := 10
	A, b := chain(n, 0, 1)
	for _, s := range allSolvers() {
		x, err := s.Solve(A, b)
		require.NoError(t, err, "%T", s)
		for i, v := range x {
			assert.InDelta(t, float64(i)/float64(n), v, 1e-8, "%T node %v", s, i)
		}
		t.Logf("%T: %v", s, s.Status())
	}
}

type system struct {
	name string
	A    Matrix
	b    []float64
}

func TestSolvers_Agree(t *testing.T) {
	rng := rand.New(rand.NewSource(3))
	A, b := chain(12, -2, 3)
	tests := []system{{"chain", A, b}}

	for _, size := range []int{5, 20, 60} {
		s := randSparse(rng, size, 6)
		b := make([]float64, size)
		for i := range b {
			b[i] = rng.NormFloat64()
		}
		// fix a couple of dofs the way dirichlet conditions do
		s.IdentityRows(0, size/2)
		tests = append(tests, system{fmt.Sprintf("random n=%v", size), s.ToCSR(), b})
	}

	for _, test := range tests {
		ref, err := (&GaussSeidel{}).Solve(test.A, test.b)
		require.NoError(t, err, test.name)
		res, err := Residual(test.A, ref, test.b)
		require.NoError(t, err)
		assert.Less(t, res, 1e-8, test.name)

		for _, s := range allSolvers()[1:] {
			x, err := s.Solve(test.A, test.b)
			require.NoError(t, err, "%v %T", test.name, s)
			assert.InDeltaSlice(t, ref, x, 1e-8, "%v %T", test.name, s)
		}
	}
}

func TestSolvers_DoNotModifyInputs(t *testing.T) {
	A, b := chain(6, 1, 2)
	before := A.Clone()
	bcopy := append([]float64(nil), b...)
	for _, s := range allSolvers() {
		_, err := s.Solve(A, b)
		require.NoError(t, err)
		assert.Equal(t, before, A, "%T", s)
		assert.Equal(t, bcopy, b, "%T", s)
	}
}

func TestSolvers_DimensionMismatch(t *testing.T) {
	A, _ := chain(3, 0, 1)
	for _, s := range allSolvers() {
		_, err := s.Solve(A, []float64{1, 2})
		assert.ErrorIs(t, err, ErrDimensionMismatch, "%T", s)
		_, err = s.Solve(NewSparse(2, 3), []float64{1, 2})
		assert.ErrorIs(t, err, ErrDimensionMismatch, "%T", s)
	}
}

func TestGaussSeidel_InitialGuess(t *testing.T) {
	// the identity converges in one sweep from the right hand side guess
	s := NewSparse(3, 3)
	s.IdentityRows(0, 1, 2)
	gs := &GaussSeidel{}
	x, err := gs.Solve(s, []float64{4, 5, 6})
	require.NoError(t, err)
	assert.Equal(t, []float64{4, 5, 6}, x)
	assert.Equal(t, 1, gs.Iterations())
}

func TestGaussSeidel_Singular(t *testing.T) {
	s := fromDense(3, 3, []float64{
		2, -1, 0,
		-1, 0, -1,
		0, -1, 2,
	})
	_, err := (&GaussSeidel{}).Solve(s, []float64{1, 1, 1})
	assert.ErrorIs(t, err, ErrSingular)

	s.Set(1, 1, 1e-11)
	_, err = (&GaussSeidel{}).Solve(s.ToCSR(), []float64{1, 1, 1})
	assert.ErrorIs(t, err, ErrSingular)
}

func TestGaussSeidel_NotConverged(t *testing.T) {
	A, b := chain(40, 0, 1)
	gs := &GaussSeidel{MaxIter: 5}
	x, err := gs.Solve(A, b)
	require.ErrorIs(t, err, ErrNotConverged)

	var nc *NotConvergedError
	require.True(t, errors.As(err, &nc))
	assert.Equal(t, 5, nc.Iterations)
	assert.Greater(t, nc.Delta, DefaultTol)
	assert.Equal(t, x, nc.X)
	assert.Len(t, x, 41)
}

func TestDenseLU_Singular(t *testing.T) {
	s := fromDense(2, 2, []float64{
		1, 2,
		2, 4,
	})
	_, err := (&DenseLU{}).Solve(s, []float64{1, 1})
	assert.ErrorIs(t, err, ErrSingular)
}

func TestBandCholesky_NotPositiveDefinite(t *testing.T) {
	s := fromDense(2, 2, []float64{
		1, 2,
		2, 1,
	})
	_, err := (&BandCholesky{}).Solve(s, []float64{1, 1})
	assert.ErrorIs(t, err, ErrNotPositiveDefinite)
}

func BenchmarkSolve(b *testing.B) {
	b.Run("nodes=10", benchSolveN(10))
	b.Run("nodes=100", benchSolveN(100))
	b.Run("nodes=1000", benchSolveN(1000))
}

func benchSolveN(n int) func(b *testing.B) {
	return func(b *testing.B) {
		A, rhs := chain(n, 0, 1)
		for _, s := range []Solver{&CG{}, &BandCholesky{}} {
			b.Run(fmt.Sprintf("%T", s), func(b *testing.B) {
				for i := 0; i < b.N; i++ {
					if _, err := s.Solve(A, rhs); err != nil {
						b.Fatal(err)
					}
				}
			})
		}
	}
}
