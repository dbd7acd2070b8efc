package main

import (
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/rwcarlsen/scfem/bc"
	"github.com/rwcarlsen/scfem/material"
	"github.com/rwcarlsen/scfem/solver"
	"github.com/rwcarlsen/scfem/sparse"
	"github.com/rwcarlsen/scfem/vtk"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var errUnknownSolver = errors.New("unknown linear solver")

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "scfem",
		Short:         "Steady-state DC conduction finite element solver",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(newSolveCmd())
	return root
}

func newSolveCmd() *cobra.Command {
	v := viper.New()
	cmd := &cobra.Command{
		Use:   "solve <mesh.msh> <materials.txt>",
		Short: "Solve for the electric potential and write a VTK file",
		Long: `Solve reads a Gmsh 2.2 ASCII mesh and a material table of
"group conductivity" lines, applies the boundary conditions given with
--dirichlet and --neumann and writes the nodal potential and element current
density to a legacy VTK file.

Every flag can also be set in the --config file or through an SCFEM_
environment variable (for example SCFEM_MAX_ITER).`,
		Args: cobra.ExactArgs(2),
		PreRunE: func(cmd *cobra.Command, args []string) error {
			return loadConfig(v, cmd)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSolve(cmd, v, args[0], args[1])
		},
	}

	f := cmd.Flags()
	f.String("config", "", "config file (yaml, toml or json)")
	f.StringArray("dirichlet", nil, "fixed potential `group=value` (repeatable)")
	f.StringArray("neumann", nil, "injected current `group=value` per node (repeatable)")
	f.StringP("output", "o", "", "VTK output path (default: mesh path with .vtk extension)")
	f.String("solver", "gauss-seidel", "linear solver: gauss-seidel, lu, cg or cholesky")
	f.Int("max-iter", sparse.DefaultMaxIter, "iteration cap of the iterative solvers")
	f.Float64("tol", sparse.DefaultTol, "convergence tolerance of the iterative solvers")
	f.Int("workers", 0, "concurrent element computations (0 uses all CPUs)")
	f.Float64("default-conductivity", 0, "conductivity of groups missing from the material table (unset fails)")
	f.BoolP("verbose", "v", false, "log debug output")
	return cmd
}

// loadConfig binds the command flags, SCFEM_ environment variables and the
// optional config file into v.  Explicit flags take precedence.
func loadConfig(v *viper.Viper, cmd *cobra.Command) error {
	if err := v.BindPFlags(cmd.Flags()); err != nil {
		return err
	}
	v.SetEnvPrefix("SCFEM")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	if path := v.GetString("config"); path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return fmt.Errorf("reading config: %w", err)
		}
	}
	return nil
}

func newLogger(cmd *cobra.Command, verbose bool) *slog.Logger {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level}))
}

func linearSolver(name string, maxIter int, tol float64) (sparse.Solver, error) {
	switch name {
	case "gauss-seidel", "gs":
		return &sparse.GaussSeidel{MaxIter: maxIter, Tol: tol}, nil
	case "lu":
		return &sparse.DenseLU{}, nil
	case "cg":
		return &sparse.CG{MaxIter: maxIter, Tol: tol}, nil
	case "cholesky":
		return &sparse.BandCholesky{}, nil
	}
	return nil, fmt.Errorf("%w %q", errUnknownSolver, name)
}

func runSolve(cmd *cobra.Command, v *viper.Viper, meshPath, materialPath string) error {
	logger := newLogger(cmd, v.GetBool("verbose"))

	ls, err := linearSolver(v.GetString("solver"), v.GetInt("max-iter"), v.GetFloat64("tol"))
	if err != nil {
		return err
	}
	opts := []solver.Option{
		solver.WithSolver(ls),
		solver.WithWorkers(v.GetInt("workers")),
		solver.WithLogger(logger),
	}
	if v.IsSet("default-conductivity") {
		opts = append(opts, solver.WithDefaultConductivity(v.GetFloat64("default-conductivity")))
	}
	s := solver.New(nil, opts...)

	if err := s.LoadMesh(meshPath); err != nil {
		return err
	}
	logger.Debug(s.Mesh().String())

	table, err := material.LoadTable(materialPath)
	if err != nil {
		return err
	}
	s.SetConductivities(table)

	for _, kc := range []struct {
		kind bc.Kind
		args []string
	}{
		{bc.Dirichlet, v.GetStringSlice("dirichlet")},
		{bc.Neumann, v.GetStringSlice("neumann")},
	} {
		for _, arg := range kc.args {
			c, err := bc.Parse(kc.kind, arg)
			if err != nil {
				return err
			}
			if err := s.AddBoundaryCondition(c); err != nil {
				return fmt.Errorf("%v condition %q: %w", kc.kind, arg, err)
			}
		}
	}

	if err := s.Assemble(); err != nil {
		return err
	}
	if err := s.ApplyBoundaryConditions(); err != nil {
		return err
	}
	if err := s.Solve(); err != nil {
		return err
	}

	phi, err := s.GetSolution()
	if err != nil {
		return err
	}
	j, err := s.CurrentDensity()
	if err != nil {
		return err
	}

	out := v.GetString("output")
	if out == "" {
		out = strings.TrimSuffix(meshPath, filepath.Ext(meshPath)) + ".vtk"
	}
	if err := vtk.WriteFile(out, s.Mesh(), vtk.Fields{Potential: phi, CurrentDensity: j}); err != nil {
		return err
	}
	logger.Info("wrote solution", "path", out)
	fmt.Fprintln(cmd.OutOrStdout(), out)
	return nil
}
