package mesh

import (
	"math"

	"github.com/rwcarlsen/scfem/element"
)

const maxSplits = 32

// box is an axis aligned bounding box.
type box struct {
	Low [3]float64
	Up  [3]float64
}

func (b *box) extend(low, up [3]float64) {
	for d := range b.Low {
		b.Low[d] = math.Min(b.Low[d], low[d])
		b.Up[d] = math.Max(b.Up[d], up[d])
	}
}

// grid splits the bounding box of a set of elements into n sections along
// every dimension and records for each cell the elements whose bounding
// boxes overlap it.
type grid struct {
	bounds box
	n      int
	cells  map[[3]int][]*element.Element
}

// gridSplits picks the number of sections per dimension so that each cell
// holds a handful of elements on average.
func gridSplits(nelems int) int {
	n := int(math.Ceil(math.Cbrt(float64(nelems) / 4)))
	return min(max(n, 1), maxSplits)
}

func newGrid(elems []*element.Element, n int) *grid {
	g := &grid{n: n, cells: map[[3]int][]*element.Element{}}
	if len(elems) == 0 {
		return g
	}
	g.bounds.Low, g.bounds.Up = elems[0].Bounds()
	for _, e := range elems[1:] {
		g.bounds.extend(e.Bounds())
	}

	for _, e := range elems {
		low, up := e.Bounds()
		var lo, hi [3]int
		for d := range lo {
			lo[d], hi[d] = g.index(d, low[d]), g.index(d, up[d])
		}
		for _, comb := range combinations(lo[:], hi[:], nil) {
			cell := [3]int{comb[0], comb[1], comb[2]}
			g.cells[cell] = append(g.cells[cell], e)
		}
	}
	return g
}

// index returns the section along dimension d that v falls into, clamped to
// the grid.
func (g *grid) index(d int, v float64) int {
	dx := g.bounds.Up[d] - g.bounds.Low[d]
	if dx <= 0 {
		return 0
	}
	i := int(math.Floor((v - g.bounds.Low[d]) / dx * float64(g.n)))
	return min(max(i, 0), g.n-1)
}

// candidates returns the elements that may contain x in the order they were
// added to the grid.  Points outside the grid bounds get no candidates
// except for the slack at the boundary needed by points lying on a face.
func (g *grid) candidates(x [3]float64) []*element.Element {
	var cell [3]int
	for d := range cell {
		slack := 1e-9 * math.Max(g.bounds.Up[d]-g.bounds.Low[d], 1)
		if x[d] < g.bounds.Low[d]-slack || x[d] > g.bounds.Up[d]+slack {
			return nil
		}
		cell[d] = g.index(d, x[d])
	}
	return g.cells[cell]
}

// combinations returns every index tuple with prefix followed by entries
// lo[k] <= i <= hi[k] for each remaining dimension k.
func combinations(lo, hi []int, prefix []int) [][]int {
	if len(prefix) == len(lo) {
		return [][]int{prefix}
	}

	dim := len(prefix)
	combs := [][]int{}
	for i := lo[dim]; i <= hi[dim]; i++ {
		next := append(append([]int(nil), prefix...), i)
		combs = append(combs, combinations(lo, hi, next)...)
	}
	return combs
}
