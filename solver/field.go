package solver

import (
	"fmt"

	"github.com/rwcarlsen/scfem/element"
)

// nodal returns the solution values at the nodes of e in local order.
func (s *Solver) nodal(e *element.Element) []float64 {
	vals := make([]float64, len(e.Nodes))
	for i, n := range e.Nodes {
		vals[i] = s.x[n.ID]
	}
	return vals
}

// Interpolate returns the potential at the global point x.
func (s *Solver) Interpolate(x [3]float64) (float64, error) {
	if s.state != Solved {
		return 0, fmt.Errorf("%w: no solution when %v", ErrState, s.state)
	}
	e, xi, err := s.mesh.Locate(x)
	if err != nil {
		return 0, err
	}
	return e.Interpolate(s.nodal(e), xi), nil
}

// CurrentDensity returns the current density J = -sigma grad(phi) evaluated
// at the natural center of every mesh element, indexed like the mesh's
// Elements.  Boundary elements (those below the domain dimension) get a zero
// vector.
func (s *Solver) CurrentDensity() ([][3]float64, error) {
	if s.state != Solved {
		return nil, fmt.Errorf("%w: no solution when %v", ErrState, s.state)
	}

	domain := map[*element.Element]bool{}
	elems := s.mesh.Domain()
	for _, e := range elems {
		domain[e] = true
	}

	j := make([][3]float64, len(s.mesh.Elements))
	for i, e := range s.mesh.Elements {
		if !domain[e] {
			continue
		}
		grad, err := e.Gradient(s.nodal(e), e.Kind.Center())
		if err != nil {
			return nil, fmt.Errorf("solver: current density of element %d: %w", e.ID, err)
		}
		for d := range grad {
			j[i][d] = -s.sigma[e.Group] * grad[d]
		}
	}
	return j, nil
}
