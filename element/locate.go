package element

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

const (
	maxNewtonIter = 50
	newtonTol     = 1e-12
	// containsTol is the slack allowed on the reference element faces and,
	// relative to the element size, on the distance of a point from a line or
	// triangle.
	containsTol = 1e-9
)

// NaturalCoordinates returns the natural coordinates of the global point x by
// Newton iteration on the coordinate mapping.  For lines and triangles the
// result is the natural coordinate of the point's projection onto the element.
func (e *Element) NaturalCoordinates(x [3]float64) ([]float64, error) {
	xi := e.Kind.Center()
	r := mat.NewVecDense(3, nil)
	for iter := 0; iter < maxNewtonIter; iter++ {
		pos := e.Position(xi)
		for d := range pos {
			r.SetVec(d, pos[d]-x[d])
		}

		jac, _ := e.jacobian(xi)
		var delta mat.VecDense
		if err := delta.SolveVec(jac, r); err != nil {
			return nil, fmt.Errorf("element %d: %w: %v", e.ID, ErrInversion, err)
		}
		floats.Sub(xi, delta.RawVector().Data)
		if mat.Norm(&delta, math.Inf(1)) < newtonTol {
			return xi, nil
		}
	}
	return nil, fmt.Errorf("element %d: %w after %d iterations", e.ID, ErrInversion, maxNewtonIter)
}

// Contains reports whether the global point x lies inside the element.
func (e *Element) Contains(x [3]float64) bool {
	xi, err := e.NaturalCoordinates(x)
	if err != nil || !e.Kind.Inside(xi, containsTol) {
		return false
	}
	if e.Kind.Dim() < 3 {
		// the point must lie on the line/triangle, not just project into it
		p := e.Position(xi)
		return math.Sqrt(dist2(p, x)) <= containsTol*math.Max(e.scale, 1)
	}
	return true
}
