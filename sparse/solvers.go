package sparse

import (
	"bytes"
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

const (
	// DefaultMaxIter is the sweep cap used by GaussSeidel when MaxIter is
	// zero.
	DefaultMaxIter = 1000
	// DefaultTol is the convergence threshold on the largest per-sweep
	// update used by GaussSeidel when Tol is zero.
	DefaultTol = 1e-10
	// PivotTol is the magnitude below which a diagonal entry is treated as
	// zero.
	PivotTol = 1e-10
)

// Solver solves the linear system A*x = b.  Solvers must not modify A or b.
type Solver interface {
	Solve(A Matrix, b []float64) (x []float64, err error)
	// Status returns a human readable summary of the last solve.
	Status() string
}

func checkSystem(A Matrix, b []float64) error {
	r, c := A.Dims()
	if r != c || len(b) != r {
		return fmt.Errorf("%w: %dx%d system with right hand side of length %d", ErrDimensionMismatch, r, c, len(b))
	}
	return nil
}

// Residual returns max_i |(A*x - b)_i|.
func Residual(A Matrix, x, b []float64) (float64, error) {
	r, _ := A.Dims()
	ax := make([]float64, r)
	if err := A.MulVec(ax, x); err != nil {
		return 0, err
	}
	if len(b) != r {
		return 0, fmt.Errorf("%w: residual of %d rows against vector of length %d", ErrDimensionMismatch, r, len(b))
	}
	floats.Sub(ax, b)
	return floats.Norm(ax, math.Inf(1)), nil
}

// GaussSeidel implements the Gauss-Seidel fixed point iteration.  The
// initial guess is the right hand side itself.  Each sweep updates every row
// in place, in row order, using the values already updated in the same
// sweep.  The iteration stops when the largest update of a sweep is below
// Tol.  A diagonal smaller than PivotTol in magnitude is a fatal error,
// there is no pivoting.
type GaussSeidel struct {
	MaxIter int
	Tol     float64

	niter int
	delta float64
	ndof  int
}

func (gs *GaussSeidel) Status() string {
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "Gauss-Seidel Solver Stats:\n")
	fmt.Fprintf(&buf, "    %v dof\n", gs.ndof)
	fmt.Fprintf(&buf, "    %v iterations, last max update %g", gs.niter, gs.delta)
	return buf.String()
}

// Iterations returns the number of sweeps performed by the last solve.
func (gs *GaussSeidel) Iterations() int { return gs.niter }

func (gs *GaussSeidel) Solve(A Matrix, b []float64) ([]float64, error) {
	if err := checkSystem(A, b); err != nil {
		return nil, err
	}
	maxIter, tol := gs.MaxIter, gs.Tol
	if maxIter <= 0 {
		maxIter = DefaultMaxIter
	}
	if tol <= 0 {
		tol = DefaultTol
	}

	size := len(b)
	gs.ndof, gs.niter, gs.delta = size, 0, 0
	diag := make([]float64, size)
	for i := range diag {
		cols, vals := A.Row(i)
		for k, j := range cols {
			if j == i {
				diag[i] = vals[k]
			}
		}
		if math.Abs(diag[i]) < PivotTol {
			return nil, fmt.Errorf("%w: diagonal %g at row %d", ErrSingular, diag[i], i)
		}
	}

	x := append([]float64(nil), b...)
	for gs.niter = 1; gs.niter <= maxIter; gs.niter++ {
		gs.delta = 0
		for i := 0; i < size; i++ {
			cols, vals := A.Row(i)
			tot := b[i]
			for k, j := range cols {
				if j != i {
					tot -= vals[k] * x[j]
				}
			}
			xnew := tot / diag[i]
			gs.delta = math.Max(gs.delta, math.Abs(xnew-x[i]))
			x[i] = xnew
		}
		if gs.delta < tol {
			return x, nil
		}
	}
	gs.niter = maxIter
	return x, &NotConvergedError{Iterations: maxIter, Delta: gs.delta, X: x}
}

// DenseLU solves the system with a dense LU factorization with partial
// pivoting.  It is intended for small to moderate systems.
type DenseLU struct {
	ndof int
	cond float64
}

func (lu *DenseLU) Status() string {
	return fmt.Sprintf("dense LU: %v dof, condition number %g", lu.ndof, lu.cond)
}

func (lu *DenseLU) Solve(A Matrix, b []float64) ([]float64, error) {
	if err := checkSystem(A, b); err != nil {
		return nil, err
	}
	lu.ndof = len(b)
	if len(b) == 0 {
		return []float64{}, nil
	}

	var f mat.LU
	f.Factorize(A)
	lu.cond = f.Cond()
	var x mat.VecDense
	if err := f.SolveVecTo(&x, false, mat.NewVecDense(len(b), b)); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSingular, err)
	}
	return x.RawVector().Data, nil
}

// CG implements a Jacobi preconditioned linear conjugate gradient solver (see
// http://wikipedia.org/wiki/Conjugate_gradient_method).  Identity rows (as
// left by Dirichlet elimination) are eliminated symmetrically before the
// iteration, so the remaining system must be symmetric positive definite.
// Tol is relative to the norm of the reduced right hand side.
type CG struct {
	MaxIter int
	Tol     float64

	niter    int
	ndof     int
	residual float64
}

func (cg *CG) Status() string {
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "CG Solver Stats:\n")
	fmt.Fprintf(&buf, "    %v free dof\n", cg.ndof)
	fmt.Fprintf(&buf, "    %v iterations, relative residual %g", cg.niter, cg.residual)
	return buf.String()
}

func (cg *CG) Solve(A Matrix, b []float64) ([]float64, error) {
	if err := checkSystem(A, b); err != nil {
		return nil, err
	}
	red := reduce(A, b)
	size := len(red.free)
	cg.ndof, cg.niter, cg.residual = size, 0, 0

	maxIter, tol := cg.MaxIter, cg.Tol
	if maxIter <= 0 {
		maxIter = 10 * size
	}
	if tol <= 0 {
		tol = 1e-12
	}

	x := make([]float64, size)
	bnorm := floats.Norm(red.b, 2)
	if size == 0 || bnorm == 0 {
		return red.expand(x), nil
	}

	diag := red.A.Diagonal()
	for i, d := range diag {
		if math.Abs(d) < PivotTol {
			return nil, fmt.Errorf("%w: diagonal %g at row %d", ErrSingular, d, red.free[i])
		}
	}

	r := append([]float64(nil), red.b...)
	z := make([]float64, size)
	floats.DivTo(z, r, diag)
	p := append([]float64(nil), z...)
	ap := make([]float64, size)
	rz := floats.Dot(r, z)

	for cg.niter = 1; cg.niter <= maxIter; cg.niter++ {
		if err := red.A.MulVec(ap, p); err != nil {
			return nil, err
		}
		pap := floats.Dot(p, ap)
		if pap <= 0 {
			return nil, fmt.Errorf("%w: p.Ap = %g at iteration %d", ErrNotPositiveDefinite, pap, cg.niter)
		}
		alpha := rz / pap
		floats.AddScaled(x, alpha, p)   // xnext = x+alpha*p
		floats.AddScaled(r, -alpha, ap) // rnext = r-alpha*A*p
		cg.residual = floats.Norm(r, 2) / bnorm
		if cg.residual < tol {
			return red.expand(x), nil
		}
		floats.DivTo(z, r, diag)
		rznext := floats.Dot(r, z)
		beta := rznext / rz
		rz = rznext
		floats.Scale(beta, p) // pnext = z + beta*p
		floats.Add(p, z)
	}
	cg.niter = maxIter
	xx := red.expand(x)
	return xx, &NotConvergedError{Iterations: maxIter, Delta: cg.residual, X: xx}
}

// BandCholesky is a direct solver for symmetric positive definite systems.
// Identity rows are eliminated symmetrically, the remaining dofs are
// renumbered with RCM to shrink the bandwidth and the banded matrix is
// factorized with a Cholesky decomposition.  Only the upper triangle of A is
// read for the free dofs.
type BandCholesky struct {
	ndof      int
	bandwidth int
}

func (bc *BandCholesky) Status() string {
	return fmt.Sprintf("banded Cholesky: %v free dof, bandwidth %v after RCM", bc.ndof, bc.bandwidth)
}

func (bc *BandCholesky) Solve(A Matrix, b []float64) ([]float64, error) {
	if err := checkSystem(A, b); err != nil {
		return nil, err
	}
	red := reduce(A, b)
	size := len(red.free)
	bc.ndof, bc.bandwidth = size, 0
	if size == 0 {
		return red.expand(nil), nil
	}

	mapping := RCM(red.A)
	for i := 0; i < size; i++ {
		cols, _ := red.A.Row(i)
		for _, j := range cols {
			if d := absInt(mapping[i] - mapping[j]); d > bc.bandwidth {
				bc.bandwidth = d
			}
		}
	}

	band := mat.NewSymBandDense(size, bc.bandwidth, nil)
	for i := 0; i < size; i++ {
		cols, vals := red.A.Row(i)
		for k, j := range cols {
			if pi, pj := mapping[i], mapping[j]; pi <= pj {
				band.SetSymBand(pi, pj, vals[k])
			}
		}
	}

	var chol mat.BandCholesky
	if ok := chol.Factorize(band); !ok {
		return nil, ErrNotPositiveDefinite
	}

	bp := make([]float64, size)
	for i, v := range red.b {
		bp[mapping[i]] = v
	}
	var xp mat.VecDense
	if err := chol.SolveVecTo(&xp, mat.NewVecDense(size, bp)); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSingular, err)
	}

	xf := make([]float64, size)
	for i := range xf {
		xf[i] = xp.AtVec(mapping[i])
	}
	return red.expand(xf), nil
}
