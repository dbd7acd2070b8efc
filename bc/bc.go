// Package bc implements boundary conditions that are imposed on an assembled
// finite element system.
package bc

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/rwcarlsen/scfem/sparse"
)

var (
	// ErrUnresolved is returned when a condition is applied before its node
	// set has been resolved.
	ErrUnresolved = errors.New("bc: condition not resolved")
	// ErrUnknownGroup is returned by resolvers for a physical group that has
	// no elements.
	ErrUnknownGroup = errors.New("bc: unknown physical group")
)

type Kind uint8

const (
	// Dirichlet conditions prescribe the potential at their nodes.
	Dirichlet Kind = iota + 1
	// Neumann conditions inject a prescribed current (flux) at their nodes.
	Neumann
)

func (k Kind) String() string {
	switch k {
	case Dirichlet:
		return "dirichlet"
	case Neumann:
		return "neumann"
	}
	return fmt.Sprintf("Kind(%d)", uint8(k))
}

// GroupResolver maps a physical group name to the global indices of the
// nodes of its elements.
type GroupResolver interface {
	GroupNodes(group string) ([]int, error)
}

// Condition is a boundary condition on the nodes of a physical group.
type Condition interface {
	Group() string
	Value() float64
	Kind() Kind
	// Nodes returns the resolved global node indices in ascending order, or
	// nil if the condition has not been resolved.
	Nodes() []int
	// Resolve computes the node set of the condition.  It must be called
	// before Apply.
	Resolve(g GroupResolver) error
	// Apply imposes the condition on the system A*x = rhs.
	Apply(A sparse.Matrix, rhs []float64) error
}

type base struct {
	group    string
	value    float64
	nodes    []int
	resolved bool
}

func (b *base) Group() string  { return b.group }
func (b *base) Value() float64 { return b.value }
func (b *base) Nodes() []int   { return b.nodes }

func (b *base) Resolve(g GroupResolver) error {
	nodes, err := g.GroupNodes(b.group)
	if err != nil {
		return fmt.Errorf("bc: resolving group %q: %w", b.group, err)
	}
	nodes = append([]int(nil), nodes...)
	sort.Ints(nodes)
	b.nodes = dedup(nodes)
	b.resolved = true
	return nil
}

func dedup(sorted []int) []int {
	if len(sorted) == 0 {
		return sorted
	}
	out := sorted[:1]
	for _, v := range sorted[1:] {
		if v != out[len(out)-1] {
			out = append(out, v)
		}
	}
	return out
}

func (b *base) check(A sparse.Matrix, rhs []float64) error {
	if !b.resolved {
		return fmt.Errorf("%w: group %q", ErrUnresolved, b.group)
	}
	r, c := A.Dims()
	if r != c || len(rhs) != r {
		return fmt.Errorf("%w: %dx%d matrix with right hand side of length %d", sparse.ErrDimensionMismatch, r, c, len(rhs))
	}
	for _, n := range b.nodes {
		if n < 0 || n >= r {
			return fmt.Errorf("%w: node %d of group %q outside %d-dof system", sparse.ErrDimensionMismatch, n, b.group, r)
		}
	}
	return nil
}

// DirichletCondition prescribes the potential on a physical group.  It is
// imposed by row elimination: each node's row becomes an identity row and
// its right hand side entry the prescribed value.  Column entries of other rows are
// left in place, so the system is no longer symmetric.  When several
// Dirichlet conditions share a node, the one applied last wins.
type DirichletCondition struct{ base }

// NewDirichlet returns an unresolved Dirichlet condition.
func NewDirichlet(group string, value float64) *DirichletCondition {
	return &DirichletCondition{base{group: group, value: value}}
}

func (d *DirichletCondition) Kind() Kind { return Dirichlet }

func (d *DirichletCondition) Apply(A sparse.Matrix, rhs []float64) error {
	if err := d.check(A, rhs); err != nil {
		return err
	}
	A.IdentityRows(d.nodes...)
	for _, n := range d.nodes {
		rhs[n] = d.value
	}
	return nil
}

// NeumannCondition prescribes a nodal current injection on a physical group.
// The value is added to the right hand side of every node of the group and
// the matrix is left untouched.
type NeumannCondition struct{ base }

// NewNeumann returns an unresolved Neumann condition.
func NewNeumann(group string, value float64) *NeumannCondition {
	return &NeumannCondition{base{group: group, value: value}}
}

func (n *NeumannCondition) Kind() Kind { return Neumann }

func (n *NeumannCondition) Apply(A sparse.Matrix, rhs []float64) error {
	if err := n.check(A, rhs); err != nil {
		return err
	}
	for _, i := range n.nodes {
		rhs[i] += n.value
	}
	return nil
}

// New returns an unresolved condition of the given kind.
func New(kind Kind, group string, value float64) (Condition, error) {
	switch kind {
	case Dirichlet:
		return NewDirichlet(group, value), nil
	case Neumann:
		return NewNeumann(group, value), nil
	}
	return nil, fmt.Errorf("bc: unknown kind %v", kind)
}

// Parse builds a condition of the given kind from a "group=value" string.
func Parse(kind Kind, s string) (Condition, error) {
	i := strings.LastIndexByte(s, '=')
	if i <= 0 {
		return nil, fmt.Errorf("bc: %q: want group=value", s)
	}
	group := strings.TrimSpace(s[:i])
	v, err := strconv.ParseFloat(strings.TrimSpace(s[i+1:]), 64)
	if err != nil || group == "" {
		return nil, fmt.Errorf("bc: %q: want group=value", s)
	}
	return New(kind, group, v)
}
