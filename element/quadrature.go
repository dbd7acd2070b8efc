package element

import "gonum.org/v1/gonum/integrate/quad"

// Rule is a numerical integration rule over a reference element.  Points are
// natural coordinates (unused trailing components are zero) and Weights
// already include the reference element measure, so that sum(Weights) is the
// measure of the reference element.
type Rule struct {
	Points  [][3]float64
	Weights []float64
}

// gaussOrder is the number of Gauss-Legendre points per natural axis used by
// the non-simplex families.
const gaussOrder = 2

// rules holds the integration rule for each family.  Simplex families have
// constant shape function gradients and use a single centroid point whose
// weight is the reference measure.
var rules = [...]Rule{
	Line:        {Points: [][3]float64{{0, 0, 0}}, Weights: []float64{2}},
	Triangle:    {Points: [][3]float64{{1. / 3, 1. / 3, 0}}, Weights: []float64{.5}},
	Tetrahedron: {Points: [][3]float64{{.25, .25, .25}}, Weights: []float64{1. / 6}},
	Hexahedron:  hexRule(gaussOrder),
	Prism:       prismRule(gaussOrder),
}

// QuadratureRule returns the integration rule used for elements of family k.
func QuadratureRule(k Kind) Rule { return rules[k] }

// legendre returns the n Gauss-Legendre locations and weights on [-1,1].
func legendre(n int) (xs, weights []float64) {
	xs = make([]float64, n)
	weights = make([]float64, n)
	quad.Legendre{}.FixedLocations(xs, weights, -1, 1)
	return xs, weights
}

// hexRule builds the full n*n*n tensor product Gauss rule on [-1,1]^3.
func hexRule(n int) Rule {
	xs, ws := legendre(n)
	var rule Rule
	for _, perm := range tensorIndices(3, n) {
		var p [3]float64
		w := 1.0
		for d, i := range perm {
			p[d] = xs[i]
			w *= ws[i]
		}
		rule.Points = append(rule.Points, p)
		rule.Weights = append(rule.Weights, w)
	}
	return rule
}

// prismRule builds an n*n*n point rule for the prism (unit triangle times
// [-1,1]).  The cube tensor points (a,b,c) are collapsed onto the triangle
// with r = (1+a)(1-b)/4, s = (1+b)/2 whose Jacobian (1-b)/8 scales the
// weights.  The rule is exact for affinely mapped prisms.
func prismRule(n int) Rule {
	xs, ws := legendre(n)
	var rule Rule
	for _, perm := range tensorIndices(3, n) {
		a, b, c := xs[perm[0]], xs[perm[1]], xs[perm[2]]
		w := ws[perm[0]] * ws[perm[1]] * ws[perm[2]]
		rule.Points = append(rule.Points, [3]float64{(1 + a) * (1 - b) / 4, (1 + b) / 2, c})
		rule.Weights = append(rule.Weights, w*(1-b)/8)
	}
	return rule
}

// tensorIndices returns every combination of ndim indices each running over
// [0,n) with the last dimension varying fastest.
func tensorIndices(ndim, n int) [][]int {
	return permute(ndim, n, nil)
}

func permute(ndim, n int, prefix []int) [][]int {
	if len(prefix) == ndim {
		return [][]int{prefix}
	}
	var set [][]int
	for i := 0; i < n; i++ {
		next := append(append([]int{}, prefix...), i)
		set = append(set, permute(ndim, n, next)...)
	}
	return set
}
