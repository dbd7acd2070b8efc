package element

import "math"

// Node is a mesh vertex.
type Node struct {
	// ID is the dense, 0-based index of the node in the global system.  It
	// is the row/column the node occupies in the assembled stiffness matrix.
	ID int
	// Tag is the identifier the node carried in the mesh file it was read
	// from.
	Tag int
	// X is the position/coordinates of the node.
	X [3]float64
}

// Dist returns the euclidean distance between n and other.
func (n Node) Dist(other Node) float64 {
	return math.Sqrt(dist2(n.X, other.X))
}

func dist2(a, b [3]float64) float64 {
	dx, dy, dz := a[0]-b[0], a[1]-b[1], a[2]-b[2]
	return dx*dx + dy*dy + dz*dz
}
