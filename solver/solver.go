// Package solver drives the solution of a steady-state conduction problem:
// assembly of the global system from a mesh and per group materials,
// application of boundary conditions and the linear solve.
package solver

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"runtime"

	"github.com/rwcarlsen/scfem/bc"
	"github.com/rwcarlsen/scfem/material"
	"github.com/rwcarlsen/scfem/mesh"
	"github.com/rwcarlsen/scfem/sparse"
)

var (
	// ErrState is returned when a stage is run out of order.
	ErrState = errors.New("solver: operation not valid in current state")
	// ErrNoMesh is returned when an operation needs a mesh and none has
	// been loaded.
	ErrNoMesh = errors.New("solver: no mesh loaded")
)

// State is the stage of the solution pipeline a Solver has completed.
type State uint8

const (
	Unassembled State = iota
	Assembled
	BoundaryApplied
	Solved
)

func (s State) String() string {
	switch s {
	case Unassembled:
		return "unassembled"
	case Assembled:
		return "assembled"
	case BoundaryApplied:
		return "boundary-applied"
	case Solved:
		return "solved"
	}
	return fmt.Sprintf("State(%d)", uint8(s))
}

// MissingMaterialError is returned by Assemble when the physical group of a
// domain element has no conductivity and no default is configured.
type MissingMaterialError struct {
	Group string
	// Element is the ID of the first element of the group.
	Element int
}

func (e *MissingMaterialError) Error() string {
	return fmt.Sprintf("solver: no conductivity for physical group %q (element %d)", e.Group, e.Element)
}

func (e *MissingMaterialError) Unwrap() error { return material.ErrMissing }

// Option configures a Solver.
type Option func(*Solver)

// WithSolver sets the linear solver.  The default is Gauss-Seidel with
// sparse.DefaultMaxIter sweeps and tolerance sparse.DefaultTol.
func WithSolver(ls sparse.Solver) Option {
	return func(s *Solver) { s.linear = ls }
}

// WithWorkers bounds the number of element stiffness matrices computed
// concurrently.  Values below one select runtime.GOMAXPROCS(0).
func WithWorkers(n int) Option {
	return func(s *Solver) { s.workers = n }
}

// WithDefaultConductivity makes groups without material properties fall
// back to sigma instead of failing assembly.
func WithDefaultConductivity(sigma float64) Option {
	return func(s *Solver) { s.defaultSigma = &sigma }
}

// WithLogger sets the logger stage transitions and warnings are written to.
func WithLogger(l *slog.Logger) Option {
	return func(s *Solver) { s.logger = l }
}

// Solver computes the electric potential over a mesh.  The stages Assemble,
// ApplyBoundaryConditions and Solve must run in that order; running a stage
// out of order returns ErrState and a failing stage leaves the state
// unchanged.  A Solver is not safe for concurrent use.
type Solver struct {
	mesh         *mesh.Mesh
	materials    map[string]material.Properties
	linear       sparse.Solver
	workers      int
	defaultSigma *float64
	logger       *slog.Logger

	state State
	// sigma holds the conductivity each domain group was assembled with.
	sigma map[string]float64
	// stiffness and load are the assembled system before boundary
	// conditions.
	stiffness *sparse.CSR
	load      []float64
	// system and rhs have boundary conditions applied.
	system *sparse.CSR
	rhs    []float64
	x      []float64
}

// New returns a solver for m, which may be nil if the mesh is loaded later
// with LoadMesh.
func New(m *mesh.Mesh, opts ...Option) *Solver {
	s := &Solver{
		mesh:      m,
		materials: map[string]material.Properties{},
		linear:    &sparse.GaussSeidel{},
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.workers < 1 {
		s.workers = runtime.GOMAXPROCS(0)
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	s.logger = s.logger.With("component", "solver")
	return s
}

// State returns the last completed stage.
func (s *Solver) State() State { return s.state }

// Mesh returns the mesh being solved.
func (s *Solver) Mesh() *mesh.Mesh { return s.mesh }

// LoadMesh reads the Gmsh mesh at path and replaces the current mesh.
func (s *Solver) LoadMesh(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	d := mesh.NewDecoder(f)
	d.Logger = s.logger
	m, err := d.Decode()
	if err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	s.logger.Info("loaded mesh", "path", path, "nodes", m.NumNodes(), "elements", len(m.Elements))
	s.SetMesh(m)
	return nil
}

// SetMesh replaces the current mesh and resets the solver.
func (s *Solver) SetMesh(m *mesh.Mesh) {
	s.mesh = m
	s.reset()
}

// SetMaterialProperties assigns props to a physical group.  A previously
// assembled system is discarded.
func (s *Solver) SetMaterialProperties(group string, props material.Properties) {
	p := make(material.Properties, len(props))
	for k, v := range props {
		p[k] = v
	}
	s.materials[group] = p
	s.reset()
}

// SetConductivities assigns the conductivity of every group in table.
func (s *Solver) SetConductivities(table map[string]float64) {
	for group, sigma := range table {
		s.SetMaterialProperties(group, material.WithConductivity(sigma))
	}
}

// AddBoundaryCondition resolves c against the mesh and attaches it.
// Conditions are applied in the order they were added.  A system with
// boundary conditions already applied falls back to Assembled.
func (s *Solver) AddBoundaryCondition(c bc.Condition) error {
	if s.mesh == nil {
		return ErrNoMesh
	}
	if err := c.Resolve(s.mesh); err != nil {
		return err
	}
	s.mesh.AddBoundaryCondition(c)
	if s.state > Assembled {
		s.state = Assembled
		s.system, s.rhs, s.x = nil, nil, nil
	}
	return nil
}

func (s *Solver) reset() {
	s.state = Unassembled
	s.stiffness, s.load, s.system, s.rhs, s.x = nil, nil, nil, nil, nil
}

// ApplyBoundaryConditions imposes the mesh's boundary conditions, in order,
// on a copy of the assembled system.
func (s *Solver) ApplyBoundaryConditions() error {
	if s.state != Assembled {
		return fmt.Errorf("%w: cannot apply boundary conditions when %v", ErrState, s.state)
	}

	A, b := s.stiffness.Clone(), append([]float64(nil), s.load...)
	var ndirichlet, nneumann int
	for _, c := range s.mesh.BoundaryConditions {
		if err := c.Resolve(s.mesh); err != nil {
			return err
		}
		if err := c.Apply(A, b); err != nil {
			return fmt.Errorf("solver: %v condition on %q: %w", c.Kind(), c.Group(), err)
		}
		switch c.Kind() {
		case bc.Dirichlet:
			ndirichlet++
		case bc.Neumann:
			nneumann++
		}
	}
	if ndirichlet == 0 {
		s.logger.Warn("no dirichlet conditions, the system is singular unless the solver tolerates it")
	}

	s.system, s.rhs = A, b
	s.state = BoundaryApplied
	s.logger.Info("applied boundary conditions", "dirichlet", ndirichlet, "neumann", nneumann)
	return nil
}

// Solve solves the system with boundary conditions applied.  If the linear
// solver does not converge the returned error wraps a
// *sparse.NotConvergedError holding the best-effort solution and the solver
// stays in BoundaryApplied.
func (s *Solver) Solve() error {
	if s.state != BoundaryApplied {
		return fmt.Errorf("%w: cannot solve when %v", ErrState, s.state)
	}

	x, err := s.linear.Solve(s.system, s.rhs)
	if err != nil {
		s.logger.Error("linear solve failed", "status", s.linear.Status(), "err", err)
		return fmt.Errorf("solver: %w", err)
	}
	res, err := sparse.Residual(s.system, x, s.rhs)
	if err != nil {
		return fmt.Errorf("solver: %w", err)
	}

	s.x = x
	s.state = Solved
	s.logger.Info("solved", "status", s.linear.Status(), "residual", res)
	return nil
}

// GetSolution returns a copy of the nodal potentials indexed by global node
// ID.
func (s *Solver) GetSolution() ([]float64, error) {
	if s.state != Solved {
		return nil, fmt.Errorf("%w: no solution when %v", ErrState, s.state)
	}
	return append([]float64(nil), s.x...), nil
}

// StiffnessMatrix returns the assembled global stiffness matrix before
// boundary conditions are applied, or nil if the system is not assembled.
func (s *Solver) StiffnessMatrix() *sparse.CSR { return s.stiffness }

// SystemMatrix returns the global matrix with boundary conditions applied, or
// nil if they have not been applied.
func (s *Solver) SystemMatrix() *sparse.CSR { return s.system }

// LoadVector returns the current right hand side: the assembled load vector
// with boundary conditions applied once they have been.
func (s *Solver) LoadVector() []float64 {
	if s.rhs != nil {
		return s.rhs
	}
	return s.load
}
