package element

import "fmt"

// Kind identifies one of the supported element families.  The zero value is
// not a valid kind.
type Kind uint8

const (
	Line Kind = iota + 1
	Triangle
	Tetrahedron
	Hexahedron
	Prism
)

// Kinds lists every supported element family in declaration order.
var Kinds = []Kind{Line, Triangle, Tetrahedron, Hexahedron, Prism}

type kindInfo struct {
	name  string
	nodes int
	// dim is the number of natural coordinates of the family.
	dim int
	// center is the natural coordinate of the reference element centroid.
	center [3]float64
}

var kinds = [...]kindInfo{
	Line:        {name: "line", nodes: 2, dim: 1, center: [3]float64{0, 0, 0}},
	Triangle:    {name: "triangle", nodes: 3, dim: 2, center: [3]float64{1. / 3, 1. / 3, 0}},
	Tetrahedron: {name: "tetrahedron", nodes: 4, dim: 3, center: [3]float64{.25, .25, .25}},
	Hexahedron:  {name: "hexahedron", nodes: 8, dim: 3, center: [3]float64{0, 0, 0}},
	Prism:       {name: "prism", nodes: 6, dim: 3, center: [3]float64{1. / 3, 1. / 3, 0}},
}

// Valid reports whether k is one of the supported families.
func (k Kind) Valid() bool { return k >= Line && k <= Prism }

func (k Kind) String() string {
	if !k.Valid() {
		return fmt.Sprintf("Kind(%d)", uint8(k))
	}
	return kinds[k].name
}

// NumNodes returns the fixed node count of the family.
func (k Kind) NumNodes() int { return kinds[k].nodes }

// Dim returns the number of natural coordinates used to parametrize the
// family - 1 for lines, 2 for triangles and 3 for the volumetric families.
func (k Kind) Dim() int { return kinds[k].dim }

// Simplex reports whether shape function gradients are constant over
// elements of this family.
func (k Kind) Simplex() bool { return k == Line || k == Triangle || k == Tetrahedron }

// Center returns the natural coordinates of the reference element centroid.
func (k Kind) Center() []float64 {
	c := kinds[k].center
	return append([]float64(nil), c[:k.Dim()]...)
}

// Inside reports whether the natural coordinate xi lies within the reference
// element, allowing a slack of tol on every bounding face.
func (k Kind) Inside(xi []float64, tol float64) bool {
	r, s, t := natural(xi)
	switch k {
	case Line:
		return r >= -1-tol && r <= 1+tol
	case Triangle:
		return r >= -tol && s >= -tol && r+s <= 1+tol
	case Tetrahedron:
		return r >= -tol && s >= -tol && t >= -tol && r+s+t <= 1+tol
	case Hexahedron:
		return r >= -1-tol && r <= 1+tol && s >= -1-tol && s <= 1+tol && t >= -1-tol && t <= 1+tol
	case Prism:
		return r >= -tol && s >= -tol && r+s <= 1+tol && t >= -1-tol && t <= 1+tol
	}
	return false
}

// natural unpacks up to three natural coordinates, treating missing trailing
// components as zero.
func natural(xi []float64) (r, s, t float64) {
	switch {
	case len(xi) >= 3:
		return xi[0], xi[1], xi[2]
	case len(xi) == 2:
		return xi[0], xi[1], 0
	case len(xi) == 1:
		return xi[0], 0, 0
	}
	return 0, 0, 0
}
