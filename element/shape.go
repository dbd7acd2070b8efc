package element

import "gonum.org/v1/gonum/mat"

// shapeFunc evaluates the shape functions of a family and their derivatives
// with respect to the natural coordinates.  value stores one entry per node in
// n.  deriv stores an nodes-by-dim matrix in dn.
type shapeFunc struct {
	value func(n []float64, r, s, t float64)
	deriv func(dn *mat.Dense, r, s, t float64)
}

var shapes = [...]shapeFunc{
	Line:        {value: lineValue, deriv: lineDeriv},
	Triangle:    {value: triValue, deriv: triDeriv},
	Tetrahedron: {value: tetValue, deriv: tetDeriv},
	Hexahedron:  {value: hexValue, deriv: hexDeriv},
	Prism:       {value: prismValue, deriv: prismDeriv},
}

// hexCorners holds the natural coordinates of the hexahedron nodes: the
// bottom face (zeta=-1) counter-clockwise followed by the top face.
var hexCorners = [8][3]float64{
	{-1, -1, -1}, {1, -1, -1}, {1, 1, -1}, {-1, 1, -1},
	{-1, -1, 1}, {1, -1, 1}, {1, 1, 1}, {-1, 1, 1},
}

func lineValue(n []float64, r, _, _ float64) {
	n[0] = (1 - r) / 2
	n[1] = (1 + r) / 2
}

func lineDeriv(dn *mat.Dense, _, _, _ float64) {
	dn.Set(0, 0, -.5)
	dn.Set(1, 0, .5)
}

func triValue(n []float64, r, s, _ float64) {
	n[0] = 1 - r - s
	n[1] = r
	n[2] = s
}

func triDeriv(dn *mat.Dense, _, _, _ float64) {
	dn.Set(0, 0, -1)
	dn.Set(0, 1, -1)
	dn.Set(1, 0, 1)
	dn.Set(1, 1, 0)
	dn.Set(2, 0, 0)
	dn.Set(2, 1, 1)
}

func tetValue(n []float64, r, s, t float64) {
	n[0] = 1 - r - s - t
	n[1] = r
	n[2] = s
	n[3] = t
}

func tetDeriv(dn *mat.Dense, _, _, _ float64) {
	dn.Zero()
	dn.Set(0, 0, -1)
	dn.Set(0, 1, -1)
	dn.Set(0, 2, -1)
	dn.Set(1, 0, 1)
	dn.Set(2, 1, 1)
	dn.Set(3, 2, 1)
}

func hexValue(n []float64, r, s, t float64) {
	for i, c := range hexCorners {
		n[i] = (1 + r*c[0]) * (1 + s*c[1]) * (1 + t*c[2]) / 8
	}
}

func hexDeriv(dn *mat.Dense, r, s, t float64) {
	for i, c := range hexCorners {
		fr, fs, ft := 1+r*c[0], 1+s*c[1], 1+t*c[2]
		dn.Set(i, 0, c[0]*fs*ft/8)
		dn.Set(i, 1, c[1]*fr*ft/8)
		dn.Set(i, 2, c[2]*fr*fs/8)
	}
}

// The prism is the tensor product of the linear triangle in (r,s) and the
// linear line in t.  Nodes 0-2 sit on the t=-1 face and nodes 3-5 on t=+1.

func prismValue(n []float64, r, s, t float64) {
	tri := [3]float64{1 - r - s, r, s}
	lin := [2]float64{(1 - t) / 2, (1 + t) / 2}
	for m := range lin {
		for k := range tri {
			n[3*m+k] = tri[k] * lin[m]
		}
	}
}

func prismDeriv(dn *mat.Dense, r, s, t float64) {
	tri := [3]float64{1 - r - s, r, s}
	dtri := [3][2]float64{{-1, -1}, {1, 0}, {0, 1}}
	lin := [2]float64{(1 - t) / 2, (1 + t) / 2}
	dlin := [2]float64{-.5, .5}
	for m := range lin {
		for k := range tri {
			i := 3*m + k
			dn.Set(i, 0, dtri[k][0]*lin[m])
			dn.Set(i, 1, dtri[k][1]*lin[m])
			dn.Set(i, 2, tri[k]*dlin[m])
		}
	}
}

// ShapeValues returns the shape function values of the family k at the
// natural coordinate xi.  Missing trailing coordinates are treated as zero.
func ShapeValues(k Kind, xi []float64) []float64 {
	n := make([]float64, k.NumNodes())
	r, s, t := natural(xi)
	shapes[k].value(n, r, s, t)
	return n
}

// ShapeDerivs returns the nodes-by-dim matrix of shape function derivatives
// with respect to the natural coordinates of family k at xi.
func ShapeDerivs(k Kind, xi []float64) *mat.Dense {
	dn := mat.NewDense(k.NumNodes(), k.Dim(), nil)
	r, s, t := natural(xi)
	shapes[k].deriv(dn, r, s, t)
	return dn
}
