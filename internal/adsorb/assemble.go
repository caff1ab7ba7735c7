// Package adsorb turns genomes into scoreable structures: assembly of the
// combined surface+molecule system and the memoizing fitness evaluator that
// converts calculator output into adsorption energies.
package adsorb

import (
	"goad/internal/geom"
	"goad/internal/model"
	"goad/internal/torsion"
)

// Assemble realizes a genome as a combined structure: torsions on a fresh
// molecule copy, then translation of the molecule centroid to the genome
// position, then Euler rotation about that centroid, then concatenation of
// surface atoms followed by molecule atoms. The search scores rigid-surface
// placements only, so every surface atom is fixed regardless of any mask on
// the input and every molecule atom is free; relaxation stages build their
// own masks.
func Assemble(surface, molecule model.Structure, genome model.Genome, torsions *torsion.Model) (model.Structure, error) {
	working, err := torsions.Apply(molecule, genome.Torsions)
	if err != nil {
		return model.Structure{}, err
	}

	centroid := working.Centroid()
	working.Translate([3]float64{
		genome.Position[0] - centroid[0],
		genome.Position[1] - centroid[1],
		genome.Position[2] - centroid[2],
	})
	working.SetPositions(geom.RotateAboutCentroid(working.Positions(), genome.Orientation))

	combined := model.Structure{
		Cell:  surface.Cell,
		Atoms: make([]model.Atom, 0, len(surface.Atoms)+len(working.Atoms)),
		Fixed: make([]bool, len(surface.Atoms)+len(working.Atoms)),
	}
	combined.Atoms = append(combined.Atoms, surface.Atoms...)
	combined.Atoms = append(combined.Atoms, working.Atoms...)
	for i := range surface.Atoms {
		combined.Fixed[i] = true
	}
	return combined, nil
}
