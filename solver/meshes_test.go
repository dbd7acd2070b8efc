package solver

import (
	"io"
	"log/slog"
	"testing"

	"github.com/rwcarlsen/scfem/element"
	"github.com/rwcarlsen/scfem/mesh"
	"github.com/stretchr/testify/require"
)

func quiet() *slog.Logger { return slog.New(slog.NewTextHandler(io.Discard, nil)) }

// chain returns n unit line elements along x in group "wire" with point
// groups "left" and "right" on the end nodes.
func chain(t testing.TB, n int) *mesh.Mesh {
	m := mesh.New()
	for i := 0; i <= n; i++ {
		_, err := m.AddNode(i+1, [3]float64{float64(i), 0, 0})
		require.NoError(t, err)
	}
	for i := 0; i < n; i++ {
		_, err := m.AddElement(i+1, element.Line, []int{i + 1, i + 2}, "wire")
		require.NoError(t, err)
	}
	require.NoError(t, m.AddPoint(1, "left"))
	require.NoError(t, m.AddPoint(n+1, "right"))
	return m
}

// grid holds the nodes of an (n+1)^3 lattice over the unit cube with point
// groups "x0" and "x1" on the faces x=0 and x=1.
type grid struct {
	m *mesh.Mesh
	n int
}

func newGrid(t testing.TB, n int) *grid {
	g := &grid{m: mesh.New(), n: n}
	h := 1 / float64(n)
	for k := 0; k <= n; k++ {
		for j := 0; j <= n; j++ {
			for i := 0; i <= n; i++ {
				_, err := g.m.AddNode(g.tag(i, j, k), [3]float64{float64(i) * h, float64(j) * h, float64(k) * h})
				require.NoError(t, err)
				if i == 0 {
					require.NoError(t, g.m.AddPoint(g.tag(i, j, k), "x0"))
				}
				if i == n {
					require.NoError(t, g.m.AddPoint(g.tag(i, j, k), "x1"))
				}
			}
		}
	}
	return g
}

func (g *grid) tag(i, j, k int) int { return 1 + i + (g.n+1)*(j+(g.n+1)*k) }

// cells calls fn with the 8 corner tags of every lattice cell indexed by
// corner bits x + 2y + 4z.
func (g *grid) cells(fn func(c [8]int)) {
	for k := 0; k < g.n; k++ {
		for j := 0; j < g.n; j++ {
			for i := 0; i < g.n; i++ {
				var c [8]int
				for b := range c {
					c[b] = g.tag(i+b&1, j+b>>1&1, k+b>>2&1)
				}
				fn(c)
			}
		}
	}
}

func hexMesh(t testing.TB, n int) *mesh.Mesh {
	g := newGrid(t, n)
	id := 0
	g.cells(func(c [8]int) {
		id++
		_, err := g.m.AddElement(id, element.Hexahedron, []int{c[0], c[1], c[3], c[2], c[4], c[5], c[7], c[6]}, "bulk")
		require.NoError(t, err)
	})
	return g.m
}

func prismMesh(t testing.TB, n int) *mesh.Mesh {
	g := newGrid(t, n)
	id := 0
	g.cells(func(c [8]int) {
		for _, nodes := range [][]int{
			{c[0], c[1], c[2], c[4], c[5], c[6]},
			{c[1], c[3], c[2], c[5], c[7], c[6]},
		} {
			id++
			_, err := g.m.AddElement(id, element.Prism, nodes, "bulk")
			require.NoError(t, err)
		}
	})
	return g.m
}

// tetMesh splits every cell into the six tetrahedra around its main
// diagonal.  The boundary triangles on the face z=0 form the group "floor".
func tetMesh(t testing.TB, n int) *mesh.Mesh {
	g := newGrid(t, n)
	perms := [][3]int{{1, 2, 4}, {1, 4, 2}, {2, 1, 4}, {2, 4, 1}, {4, 1, 2}, {4, 2, 1}}
	id := 0
	g.cells(func(c [8]int) {
		for _, p := range perms {
			nodes := []int{c[0], c[p[0]], c[p[0]+p[1]], c[7]}
			if orientation(t, g.m, nodes) < 0 {
				nodes[1], nodes[2] = nodes[2], nodes[1]
			}
			id++
			_, err := g.m.AddElement(id, element.Tetrahedron, nodes, "bulk")
			require.NoError(t, err)
		}
	})
	for j := 0; j < n; j++ {
		for i := 0; i < n; i++ {
			for _, tri := range [][]int{
				{g.tag(i, j, 0), g.tag(i+1, j, 0), g.tag(i+1, j+1, 0)},
				{g.tag(i, j, 0), g.tag(i+1, j+1, 0), g.tag(i, j+1, 0)},
			} {
				id++
				_, err := g.m.AddElement(id, element.Triangle, tri, "floor")
				require.NoError(t, err)
			}
		}
	}
	return g.m
}

// orientation returns six times the signed volume of the tetrahedron with
// the given node tags.
func orientation(t testing.TB, m *mesh.Mesh, tags []int) float64 {
	var x [4][3]float64
	for i, tag := range tags {
		n, ok := m.Node(tag)
		require.True(t, ok)
		x[i] = n.X
	}
	var a, b, c [3]float64
	for d := 0; d < 3; d++ {
		a[d], b[d], c[d] = x[1][d]-x[0][d], x[2][d]-x[0][d], x[3][d]-x[0][d]
	}
	return a[0]*(b[1]*c[2]-b[2]*c[1]) - a[1]*(b[0]*c[2]-b[2]*c[0]) + a[2]*(b[0]*c[1]-b[1]*c[0])
}

type meshCase struct {
	name  string
	build func(t testing.TB, n int) *mesh.Mesh
}

var volumeMeshes = []meshCase{
	{"hex", hexMesh},
	{"prism", prismMesh},
	{"tet", tetMesh},
}
