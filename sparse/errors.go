package sparse

import (
	"errors"
	"fmt"
)

var (
	// ErrDimensionMismatch is returned when vector and matrix sizes are
	// incompatible.
	ErrDimensionMismatch = errors.New("sparse: dimension mismatch")
	// ErrSingular is returned for a zero pivot or a singular matrix.
	ErrSingular = errors.New("sparse: singular matrix")
	// ErrNotPositiveDefinite is returned by solvers that require a symmetric
	// positive definite system.
	ErrNotPositiveDefinite = errors.New("sparse: matrix is not positive definite")
	// ErrNotConverged is returned when an iterative solver hits its
	// iteration cap.
	ErrNotConverged = errors.New("sparse: solver did not converge")
)

// NotConvergedError is returned by iterative solvers that exhaust their
// iteration budget.  X holds the best-effort solution after the last
// iteration.
type NotConvergedError struct {
	Iterations int
	// Delta is the convergence measure of the last iteration.
	Delta float64
	X     []float64
}

func (e *NotConvergedError) Error() string {
	return fmt.Sprintf("sparse: no convergence after %d iterations (last delta %g)", e.Iterations, e.Delta)
}

func (e *NotConvergedError) Unwrap() error { return ErrNotConverged }
