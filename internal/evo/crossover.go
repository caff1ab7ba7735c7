package evo

import (
	"math/rand"

	"goad/internal/model"
)

// Crossover recombines two parents block-wise: the child takes the position
// from parent1, the orientation from parent2, and each torsion independently
// from either parent with equal probability. The child starts unevaluated.
func Crossover(rng *rand.Rand, parent1, parent2 model.Genome, id string) model.Genome {
	child := model.CloneGenome(parent1)
	child.ID = id
	child.Orientation = parent2.Orientation
	for i := range child.Torsions {
		if i < len(parent2.Torsions) && rng.Float64() < 0.5 {
			child.Torsions[i] = parent2.Torsions[i]
		}
	}
	child.ResetEnergy()
	return child
}
