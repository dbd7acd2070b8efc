// Package mesh holds the nodes, elements and physical groups of a finite
// element discretization and reads them from Gmsh files.
package mesh

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/rwcarlsen/scfem/bc"
	"github.com/rwcarlsen/scfem/element"
)

var (
	// ErrUnknownNode is returned when an element references a node tag that
	// has not been added to the mesh.
	ErrUnknownNode = errors.New("mesh: unknown node")
	// ErrDuplicateNode is returned when a node tag is added twice.
	ErrDuplicateNode = errors.New("mesh: duplicate node")
	// ErrUnknownGroup is returned for a physical group with no elements.
	ErrUnknownGroup = bc.ErrUnknownGroup
	// ErrNotFound is returned when no element contains a point.
	ErrNotFound = errors.New("mesh: no element contains point")
)

// Mesh represents a collection of elements constituting an approximation for
// a differential equation solution over a closed, contiguous volume.
type Mesh struct {
	// Nodes holds all mesh nodes indexed by their global ID.
	Nodes []element.Node
	// Elements is an ordered list of elements that make up the mesh.  The
	// order is the order in which they were added (file order for meshes
	// read from disk).
	Elements []*element.Element
	// PhysicalNames maps physical group tags to their names.
	PhysicalNames map[int]string
	// BoundaryConditions holds the conditions declared for the mesh in the
	// order they were added.
	BoundaryConditions []bc.Condition

	// tagIndex maps node tags to global node IDs.
	tagIndex map[int]int
	// groups maps group names to the indices of their elements.
	groups map[string][]int
	// points maps group names to the IDs of nodes tagged individually, as
	// by point elements in a mesh file.
	points map[string][]int
	// grid is a helper to speed up the identification of elements that
	// enclose certain points in the mesh.  It is built on first use and
	// dropped whenever elements are added.
	grid *grid
}

// New returns an empty mesh.
func New() *Mesh {
	return &Mesh{
		PhysicalNames: map[int]string{},
		tagIndex:      map[int]int{},
		groups:        map[string][]int{},
		points:        map[string][]int{},
	}
}

// AddNode adds a node with the given file tag and position and returns its
// global ID.  IDs are assigned densely in insertion order.
func (m *Mesh) AddNode(tag int, x [3]float64) (int, error) {
	if _, ok := m.tagIndex[tag]; ok {
		return 0, fmt.Errorf("%w: tag %d", ErrDuplicateNode, tag)
	}
	id := len(m.Nodes)
	m.Nodes = append(m.Nodes, element.Node{ID: id, Tag: tag, X: x})
	m.tagIndex[tag] = id
	return id, nil
}

// Node returns the node with the given file tag.
func (m *Mesh) Node(tag int) (element.Node, bool) {
	id, ok := m.tagIndex[tag]
	if !ok {
		return element.Node{}, false
	}
	return m.Nodes[id], true
}

// NumNodes returns the number of nodes, i.e. the number of degrees of
// freedom of the discretized problem.
func (m *Mesh) NumNodes() int { return len(m.Nodes) }

// AddElement builds an element of the given kind over the nodes with the
// given tags (in local node order) and adds it to the physical group.
func (m *Mesh) AddElement(id int, kind element.Kind, nodeTags []int, group string) (*element.Element, error) {
	nodes := make([]element.Node, len(nodeTags))
	for i, tag := range nodeTags {
		n, ok := m.Node(tag)
		if !ok {
			return nil, fmt.Errorf("element %d: %w: tag %d", id, ErrUnknownNode, tag)
		}
		nodes[i] = n
	}
	e, err := element.New(id, kind, nodes, group)
	if err != nil {
		return nil, err
	}
	m.groups[group] = append(m.groups[group], len(m.Elements))
	m.Elements = append(m.Elements, e)
	m.grid = nil
	return e, nil
}

// AddPoint adds the node with the given tag to a physical group on its own.
// Point groups take part in boundary conditions but not in assembly.
func (m *Mesh) AddPoint(tag int, group string) error {
	id, ok := m.tagIndex[tag]
	if !ok {
		return fmt.Errorf("point in %q: %w: tag %d", group, ErrUnknownNode, tag)
	}
	m.points[group] = append(m.points[group], id)
	return nil
}

// Groups returns the names of all physical groups that own at least one
// element or point, in sorted order.
func (m *Mesh) Groups() []string {
	names := make([]string, 0, len(m.groups)+len(m.points))
	for name := range m.groups {
		names = append(names, name)
	}
	for name := range m.points {
		if _, ok := m.groups[name]; !ok {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}

// ElementsInGroup returns the elements of the named group in mesh order.
func (m *Mesh) ElementsInGroup(group string) []*element.Element {
	idx := m.groups[group]
	elems := make([]*element.Element, len(idx))
	for i, j := range idx {
		elems[i] = m.Elements[j]
	}
	return elems
}

// GroupNodes returns the sorted, distinct global IDs of all nodes of the
// elements and points in the named group.
func (m *Mesh) GroupNodes(group string) ([]int, error) {
	idx, ok := m.groups[group]
	points, okp := m.points[group]
	if !ok && !okp {
		return nil, fmt.Errorf("%w %q", ErrUnknownGroup, group)
	}
	seen := map[int]bool{}
	var ids []int
	visit := func(id int) {
		if !seen[id] {
			seen[id] = true
			ids = append(ids, id)
		}
	}
	for _, j := range idx {
		for _, n := range m.Elements[j].Nodes {
			visit(n.ID)
		}
	}
	for _, id := range points {
		visit(id)
	}
	sort.Ints(ids)
	return ids, nil
}

// AddBoundaryCondition appends c to the mesh's conditions.  Conditions are
// applied in the order they were added.
func (m *Mesh) AddBoundaryCondition(c bc.Condition) {
	m.BoundaryConditions = append(m.BoundaryConditions, c)
}

// Locate returns the first element (in mesh order) that contains the global
// point x along with the natural coordinates of x in it.  Only elements of
// the highest dimension present in the mesh are searched so that points are
// not attributed to boundary elements.
func (m *Mesh) Locate(x [3]float64) (*element.Element, []float64, error) {
	if m.grid == nil {
		m.grid = newGrid(m.Domain(), gridSplits(len(m.Elements)))
	}
	for _, e := range m.grid.candidates(x) {
		if !e.Contains(x) {
			continue
		}
		xi, err := e.NaturalCoordinates(x)
		if err != nil {
			continue
		}
		return e, xi, nil
	}
	return nil, nil, fmt.Errorf("%w %v", ErrNotFound, x)
}

// Domain returns, in mesh order, the elements of the highest dimension
// present.  Lower dimensional elements only mark boundaries.
func (m *Mesh) Domain() []*element.Element {
	dim := 0
	for _, e := range m.Elements {
		dim = max(dim, e.Kind.Dim())
	}
	var elems []*element.Element
	for _, e := range m.Elements {
		if e.Kind.Dim() == dim {
			elems = append(elems, e)
		}
	}
	return elems
}

func (m *Mesh) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "mesh: %d nodes, %d elements", len(m.Nodes), len(m.Elements))
	for _, g := range m.Groups() {
		fmt.Fprintf(&b, "\n    %v: %d elements", g, len(m.groups[g]))
		if n := len(m.points[g]); n > 0 {
			fmt.Fprintf(&b, ", %d points", n)
		}
	}
	return b.String()
}
