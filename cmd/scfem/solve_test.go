package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stripMsh is the unit square as two triangles with the edges x=0 and x=1
// in groups "left" and "right".
const stripMsh = `$MeshFormat
2.2 0 8
$EndMeshFormat
$PhysicalNames
3
1 1 "left"
1 2 "right"
2 3 "bulk"
$EndPhysicalNames
$Nodes
4
1 0 0 0
2 1 0 0
3 1 1 0
4 0 1 0
$EndNodes
$Elements
4
1 1 2 1 1 4 1
2 1 2 2 2 2 3
3 2 2 3 3 1 2 3
4 2 2 3 3 1 3 4
$EndElements
`

func writeInputs(t *testing.T, materials string) (dir, meshPath, matPath string) {
	dir = t.TempDir()
	meshPath = filepath.Join(dir, "strip.msh")
	matPath = filepath.Join(dir, "materials.txt")
	require.NoError(t, os.WriteFile(meshPath, []byte(stripMsh), 0o644))
	require.NoError(t, os.WriteFile(matPath, []byte(materials), 0o644))
	return dir, meshPath, matPath
}

func execute(t *testing.T, args ...string) (stdout, stderr string, err error) {
	var out, errOut bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(args)
	err = cmd.Execute()
	return out.String(), errOut.String(), err
}

// potential returns the POINT_DATA values of a VTK file.
func potential(t *testing.T, path string) []float64 {
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	lines := strings.Split(string(data), "\n")
	for i, line := range lines {
		if !strings.HasPrefix(line, "POINT_DATA ") {
			continue
		}
		n, err := strconv.Atoi(strings.TrimPrefix(line, "POINT_DATA "))
		require.NoError(t, err)
		vals := make([]float64, n)
		for k := range vals {
			vals[k], err = strconv.ParseFloat(lines[i+3+k], 64)
			require.NoError(t, err)
		}
		return vals
	}
	t.Fatalf("no POINT_DATA in %s", path)
	return nil
}

func TestSolve(t *testing.T) {
	for _, name := range []string{"gauss-seidel", "lu", "cg", "cholesky"} {
		t.Run(name, func(t *testing.T) {
			dir, meshPath, matPath := writeInputs(t, "bulk 2.5\n")
			stdout, _, err := execute(t, "solve", meshPath, matPath,
				"--dirichlet", "left=0", "--dirichlet", "right=1", "--solver", name)
			require.NoError(t, err)

			out := filepath.Join(dir, "strip.vtk")
			assert.Equal(t, out+"\n", stdout)
			assert.InDeltaSlice(t, []float64{0, 1, 1, 0}, potential(t, out), 1e-8)
		})
	}
}

func TestSolve_Errors(t *testing.T) {
	tests := []struct {
		name      string
		materials string
		args      []string
		want      string
	}{
		{"missing material", "other 1\n", []string{"--dirichlet", "left=0"}, "bulk"},
		{"unknown solver", "bulk 1\n", []string{"--solver", "magic"}, "magic"},
		{"unknown group", "bulk 1\n", []string{"--dirichlet", "top=1"}, "top"},
		{"bad condition", "bulk 1\n", []string{"--neumann", "left"}, "group=value"},
		{"bad material table", "bulk one\n", nil, "line 1"},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			dir, meshPath, matPath := writeInputs(t, test.materials)
			args := append([]string{"solve", meshPath, matPath}, test.args...)
			_, _, err := execute(t, args...)
			require.Error(t, err)
			assert.Contains(t, err.Error(), test.want)

			_, statErr := os.Stat(filepath.Join(dir, "strip.vtk"))
			assert.True(t, os.IsNotExist(statErr), "no output is written on failure")
		})
	}
}

func TestSolve_Args(t *testing.T) {
	_, _, err := execute(t, "solve", "only-a-mesh.msh")
	assert.Error(t, err)
}

func TestSolve_DefaultConductivity(t *testing.T) {
	dir, meshPath, matPath := writeInputs(t, "")
	out := filepath.Join(dir, "custom.vtk")
	_, stderr, err := execute(t, "solve", meshPath, matPath,
		"--dirichlet", "left=1", "--neumann", "right=0",
		"--default-conductivity", "3", "--solver", "lu", "-o", out)
	require.NoError(t, err)
	assert.Contains(t, stderr, "using default conductivity")
	assert.InDeltaSlice(t, []float64{1, 1, 1, 1}, potential(t, out), 1e-8)
}

func TestSolve_ConfigAndEnv(t *testing.T) {
	dir, meshPath, matPath := writeInputs(t, "bulk=1\n")
	config := filepath.Join(dir, "scfem.yaml")
	require.NoError(t, os.WriteFile(config, []byte(`solver: cholesky
dirichlet:
  - left=2
  - right=4
`), 0o644))
	out := filepath.Join(dir, "env.vtk")
	t.Setenv("SCFEM_OUTPUT", out)

	_, stderr, err := execute(t, "solve", meshPath, matPath, "--config", config, "--verbose")
	require.NoError(t, err)
	assert.Contains(t, stderr, "level=DEBUG")
	assert.Contains(t, stderr, "banded Cholesky")
	assert.InDeltaSlice(t, []float64{2, 4, 4, 2}, potential(t, out), 1e-8)
}
