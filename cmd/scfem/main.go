// Command scfem solves steady-state DC conduction problems on Gmsh meshes
// and writes the potential and current density as a VTK file.
package main

import (
	"log/slog"
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		slog.Error("scfem failed", "err", err)
		os.Exit(1)
	}
}
