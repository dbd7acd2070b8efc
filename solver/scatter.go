package solver

import (
	"github.com/rwcarlsen/scfem/element"
	"github.com/rwcarlsen/scfem/sparse"
	"gonum.org/v1/gonum/mat"
)

// scatter accumulates element matrices into global triplets.
type scatter struct {
	*sparse.Triplet
}

func newScatter(ndof, capacity int) *scatter {
	return &scatter{sparse.NewTriplet(ndof, ndof, capacity)}
}

// add scatter-adds the local matrix k of e at the global IDs of its nodes.
// Contributions to the same entry from different elements accumulate.
func (t *scatter) add(e *element.Element, k mat.Symmetric) {
	ids := e.NodeIDs()
	for a, i := range ids {
		for b, j := range ids {
			t.Put(i, j, k.At(a, b))
		}
	}
}
