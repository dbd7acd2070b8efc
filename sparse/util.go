package sparse

import "sort"

// RCM provides an alternate degree-of-freedom reordering of an assembled
// (structurally symmetric) matrix that reduces its bandwidth.  The returned
// mapping sends old index i to new index mapping[i].
func RCM(A Matrix) []int {
	size, _ := A.Dims()
	degree := func(i int) int {
		cols, _ := A.Row(i)
		return len(cols)
	}

	byDegree := make([]int, size)
	for i := range byDegree {
		byDegree[i] = i
	}
	sort.SliceStable(byDegree, func(i, j int) bool { return degree(byDegree[i]) < degree(byDegree[j]) })

	// breadth-first search across adjacency/connections between nodes/dofs,
	// restarting from the lowest degree unvisited dof for every disconnected
	// component.
	order := make([]int, 0, size)
	visited := make([]bool, size)
	for _, start := range byDegree {
		if visited[start] {
			continue
		}
		visited[start] = true
		level := []int{start}
		for len(level) > 0 {
			order = append(order, level...)
			level = nextRCMLevel(A, visited, level, degree)
		}
	}

	mapping := make([]int, size)
	for pos, i := range order {
		mapping[i] = size - 1 - pos
	}
	return mapping
}

func nextRCMLevel(A Matrix, visited []bool, level []int, degree func(int) int) []int {
	var next []int
	for _, i := range level {
		cols, _ := A.Row(i)
		var tmp []int
		for _, j := range cols {
			if !visited[j] {
				visited[j] = true
				tmp = append(tmp, j)
			}
		}
		sort.SliceStable(tmp, func(a, b int) bool { return degree(tmp[a]) < degree(tmp[b]) })
		next = append(next, tmp...)
	}
	return next
}

// Bandwidth returns the largest |i-j| over the stored entries of A.
func Bandwidth(A Matrix) int {
	r, _ := A.Dims()
	bw := 0
	for i := 0; i < r; i++ {
		cols, _ := A.Row(i)
		for _, j := range cols {
			if d := absInt(i - j); d > bw {
				bw = d
			}
		}
	}
	return bw
}

func absInt(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

// reduction is the system left after eliminating identity rows (imposed
// values) symmetrically: their columns are moved into the right hand side,
// leaving the coupling among the free dofs only.
type reduction struct {
	// free maps reduced index to original index
	free []int
	// x holds the imposed values at their original positions
	x []float64
	A *CSR
	b []float64
}

// reduce splits off the rows of A whose only stored entry is the diagonal.
func reduce(A Matrix, b []float64) *reduction {
	n, _ := A.Dims()
	red := &reduction{x: make([]float64, n)}
	fixed := make([]bool, n)
	index := make([]int, n)
	for i := 0; i < n; i++ {
		cols, vals := A.Row(i)
		if len(cols) == 1 && cols[0] == i {
			fixed[i] = true
			red.x[i] = b[i] / vals[0]
			continue
		}
		index[i] = len(red.free)
		red.free = append(red.free, i)
	}

	nf := len(red.free)
	t := NewTriplet(nf, nf, A.NNZ())
	red.b = make([]float64, nf)
	for fi, i := range red.free {
		red.b[fi] = b[i]
		cols, vals := A.Row(i)
		for k, j := range cols {
			if fixed[j] {
				red.b[fi] -= vals[k] * red.x[j]
				continue
			}
			t.Put(fi, index[j], vals[k])
		}
	}
	red.A = t.ToCSR()
	return red
}

// expand scatters a solution of the reduced system back into the full
// solution vector.
func (r *reduction) expand(xf []float64) []float64 {
	x := append([]float64(nil), r.x...)
	for fi, i := range r.free {
		x[i] = xf[fi]
	}
	return x
}
