package solver

import (
	"errors"
	"fmt"

	"github.com/rwcarlsen/scfem/element"
	"github.com/rwcarlsen/scfem/material"
	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/mat"
)

// Assemble discards any previous system and builds the global stiffness
// matrix and load vector from the domain elements of the mesh (the elements
// of the highest dimension present).  Lower dimensional elements only carry
// boundary groups and need no material.
//
// Element matrices are computed concurrently and scatter-added in mesh order,
// so the result does not depend on the number of workers.  If several
// elements fail, the error of the first in mesh order is returned.
func (s *Solver) Assemble() error {
	s.reset()
	if s.mesh == nil {
		return ErrNoMesh
	}

	elems := s.mesh.Domain()
	sigma, err := s.conductivities(elems)
	if err != nil {
		return err
	}

	locals := make([]*mat.SymDense, len(elems))
	errs := make([]error, len(elems))
	var g errgroup.Group
	g.SetLimit(s.workers)
	for i, e := range elems {
		g.Go(func() error {
			locals[i], errs[i] = e.StiffnessMatrix(sigma[e.Group])
			return errs[i]
		})
	}
	if g.Wait() != nil {
		for i, err := range errs {
			if err != nil {
				return fmt.Errorf("solver: assembling element %d: %w", elems[i].ID, err)
			}
		}
	}

	n := s.mesh.NumNodes()
	nnz := 0
	for _, e := range elems {
		nnz += len(e.Nodes) * len(e.Nodes)
	}
	t := newScatter(n, nnz)
	for i, e := range elems {
		t.add(e, locals[i])
	}

	s.sigma = sigma
	s.stiffness = t.ToCSR()
	s.load = make([]float64, n)
	s.state = Assembled
	s.logger.Info("assembled", "elements", len(elems), "dof", n, "nnz", s.stiffness.NNZ(), "workers", s.workers)
	return nil
}

// conductivities resolves the conductivity of every group in elems.
func (s *Solver) conductivities(elems []*element.Element) (map[string]float64, error) {
	sigma := map[string]float64{}
	for _, e := range elems {
		if _, ok := sigma[e.Group]; ok {
			continue
		}

		v, err := s.materials[e.Group].Conductivity()
		switch {
		case err == nil:
		case errors.Is(err, material.ErrMissing) && s.defaultSigma != nil:
			v = *s.defaultSigma
			s.logger.Warn("using default conductivity", "group", e.Group, "conductivity", v)
		case errors.Is(err, material.ErrMissing):
			return nil, &MissingMaterialError{Group: e.Group, Element: e.ID}
		default:
			return nil, fmt.Errorf("solver: group %q: %w", e.Group, err)
		}
		sigma[e.Group] = v
	}
	return sigma, nil
}
