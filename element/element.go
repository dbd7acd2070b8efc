package element

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
)

// jacobianTol is the threshold, relative to the element size raised to the
// family dimension, below which a Jacobian determinant is treated as zero.
const jacobianTol = 1e-12

// Element is a single finite element of one of the supported families.  It
// provides shape functions, the natural-to-global coordinate mapping and the
// element conductivity (stiffness) matrix.
type Element struct {
	// ID identifies the element within its mesh.
	ID   int
	Kind Kind
	// Nodes holds the element nodes in local order.  The order defines the
	// shape function indexing.
	Nodes []Node
	// Group is the name of the physical group the element belongs to.  It
	// is used to resolve material and boundary assignment.
	Group string
	// PhysicalTag is the numeric physical group tag from the mesh file.
	PhysicalTag int

	// scale is the characteristic element size used for degeneracy checks.
	scale float64
}

// New builds an element of the given kind over nodes.  An error wrapping
// ErrNodeCount is returned if len(nodes) does not match the family.
func New(id int, kind Kind, nodes []Node, group string) (*Element, error) {
	if !kind.Valid() {
		return nil, fmt.Errorf("element %d: %w %v", id, ErrKind, kind)
	}
	if len(nodes) != kind.NumNodes() {
		return nil, fmt.Errorf("element %d: %w: %v needs %d nodes, got %d", id, ErrNodeCount, kind, kind.NumNodes(), len(nodes))
	}

	e := &Element{ID: id, Kind: kind, Nodes: append([]Node(nil), nodes...), Group: group}
	for _, n := range e.Nodes[1:] {
		e.scale = math.Max(e.scale, n.Dist(e.Nodes[0]))
	}
	return e, nil
}

// NodeIDs returns the global node indices of the element in local order.
func (e *Element) NodeIDs() []int {
	ids := make([]int, len(e.Nodes))
	for i, n := range e.Nodes {
		ids[i] = n.ID
	}
	return ids
}

// coords returns the nodes-by-3 matrix of node coordinates.
func (e *Element) coords() *mat.Dense {
	x := mat.NewDense(len(e.Nodes), 3, nil)
	for i, n := range e.Nodes {
		x.SetRow(i, n.X[:])
	}
	return x
}

// ShapeFunctions returns the value of every node's shape function at the
// natural coordinate xi.
func (e *Element) ShapeFunctions(xi []float64) []float64 { return ShapeValues(e.Kind, xi) }

// jacobian returns the 3-by-dim matrix of partial derivatives of global
// coordinates with respect to natural coordinates along with the natural
// shape function derivatives it was built from.
func (e *Element) jacobian(xi []float64) (jac, dn *mat.Dense) {
	dn = ShapeDerivs(e.Kind, xi)
	jac = mat.NewDense(3, e.Kind.Dim(), nil)
	jac.Mul(e.coords().T(), dn)
	return jac, dn
}

// jacobianDet returns the determinant of the coordinate mapping.  For the
// volumetric families it is the signed determinant of the 3x3 Jacobian.  For
// lines and triangles embedded in 3D it is the (non-negative) metric
// determinant sqrt(det(J^T J)).
func jacobianDet(jac *mat.Dense) float64 {
	_, dim := jac.Dims()
	if dim == 3 {
		return mat.Det(jac)
	}
	var g mat.Dense
	g.Mul(jac.T(), jac)
	return math.Sqrt(math.Max(mat.Det(&g), 0))
}

// Jacobian returns the determinant of the natural-to-global coordinate
// mapping at xi.  For simplices it is constant: half the length of a line,
// twice the area of a triangle and six times the volume of a tetrahedron.
func (e *Element) Jacobian(xi []float64) float64 {
	jac, _ := e.jacobian(xi)
	return jacobianDet(jac)
}

func (e *Element) degenerate(xi []float64, det float64) error {
	p := append([]float64(nil), xi...)
	return &DegenerateError{ID: e.ID, Kind: e.Kind, Point: p, Jacobian: det}
}

// gradients computes the nodes-by-3 matrix of global shape function
// gradients at xi and the mapping determinant there.
func (e *Element) gradients(xi []float64) (*mat.Dense, float64, error) {
	jac, dn := e.jacobian(xi)
	det := jacobianDet(jac)
	dim := e.Kind.Dim()
	if det <= jacobianTol*math.Pow(e.scale, float64(dim)) {
		return nil, det, e.degenerate(xi, det)
	}

	grad := mat.NewDense(len(e.Nodes), 3, nil)
	if dim == 3 {
		var inv mat.Dense
		if err := inv.Inverse(jac); err != nil {
			return nil, det, e.degenerate(xi, det)
		}
		grad.Mul(dn, &inv)
		return grad, det, nil
	}

	// Lines and triangles are parametrized intrinsically, the gradient is
	// dN (J^T J)^-1 J^T which lies in the tangent space of the element.
	var g, ginv, tmp mat.Dense
	g.Mul(jac.T(), jac)
	if err := ginv.Inverse(&g); err != nil {
		return nil, det, e.degenerate(xi, det)
	}
	tmp.Mul(dn, &ginv)
	grad.Mul(&tmp, jac.T())
	return grad, det, nil
}

// ShapeFunctionGradients returns the nodes-by-3 matrix holding the gradient
// of each node's shape function in global coordinates at xi.  An error
// wrapping ErrDegenerate is returned if the mapping is singular or inverted
// there.
func (e *Element) ShapeFunctionGradients(xi []float64) (*mat.Dense, error) {
	grad, _, err := e.gradients(xi)
	return grad, err
}

// StiffnessMatrix returns the symmetric element conductivity matrix
//
//	K_ij = conductivity * integral(grad N_i . grad N_j) over the element
//
// evaluated with the family's integration rule.
func (e *Element) StiffnessMatrix(conductivity float64) (*mat.SymDense, error) {
	if !(conductivity > 0) || math.IsInf(conductivity, 1) {
		return nil, fmt.Errorf("element %d: %w (got %v)", e.ID, ErrConductivity, conductivity)
	}

	rule := rules[e.Kind]
	dim := e.Kind.Dim()
	k := mat.NewSymDense(len(e.Nodes), nil)
	for q, p := range rule.Points {
		grad, det, err := e.gradients(p[:dim])
		if err != nil {
			return nil, err
		}
		k.SymRankK(k, conductivity*rule.Weights[q]*det, grad)
	}
	return k, nil
}

// Measure returns the length, area or volume of the element.
func (e *Element) Measure() (float64, error) {
	rule := rules[e.Kind]
	dim := e.Kind.Dim()
	tot := 0.0
	for q, p := range rule.Points {
		jac, _ := e.jacobian(p[:dim])
		det := jacobianDet(jac)
		if det <= jacobianTol*math.Pow(e.scale, float64(dim)) {
			return 0, e.degenerate(p[:dim], det)
		}
		tot += rule.Weights[q] * det
	}
	return tot, nil
}

// Position maps the natural coordinate xi to global coordinates.
func (e *Element) Position(xi []float64) [3]float64 {
	var x [3]float64
	for i, n := range e.ShapeFunctions(xi) {
		for d := range x {
			x[d] += n * e.Nodes[i].X[d]
		}
	}
	return x
}

// Centroid returns the arithmetic mean of the node positions.
func (e *Element) Centroid() [3]float64 {
	var c [3]float64
	for _, n := range e.Nodes {
		for d := range c {
			c[d] += n.X[d] / float64(len(e.Nodes))
		}
	}
	return c
}

// Bounds returns an axis aligned bounding box enclosing the element.
func (e *Element) Bounds() (low, up [3]float64) {
	low, up = e.Nodes[0].X, e.Nodes[0].X
	for _, n := range e.Nodes[1:] {
		for d := range low {
			low[d] = math.Min(low[d], n.X[d])
			up[d] = math.Max(up[d], n.X[d])
		}
	}
	return low, up
}

// Interpolate returns the value of the field with nodal values vals (in local
// node order) at the natural coordinate xi.
func (e *Element) Interpolate(vals, xi []float64) float64 {
	u := 0.0
	for i, n := range e.ShapeFunctions(xi) {
		u += n * vals[i]
	}
	return u
}

// Gradient returns the global gradient of the field with nodal values vals
// (in local node order) at the natural coordinate xi.
func (e *Element) Gradient(vals, xi []float64) ([3]float64, error) {
	var g [3]float64
	grad, err := e.ShapeFunctionGradients(xi)
	if err != nil {
		return g, err
	}
	var v mat.VecDense
	v.MulVec(grad.T(), mat.NewVecDense(len(vals), vals))
	for d := range g {
		g[d] = v.AtVec(d)
	}
	return g, nil
}
