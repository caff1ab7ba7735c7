package evo

import (
	"math/rand"

	"goad/internal/model"
)

// DefaultTournamentSize matches the selection pressure the search is tuned
// for. Larger tournaments converge faster but sample less of the surface.
const DefaultTournamentSize = 5

// Selector picks one parent from an evaluated population. Implementations
// must return a deep copy so later mutation cannot corrupt the pool.
type Selector interface {
	Select(rng *rand.Rand, population []model.Genome) model.Genome
}

// TournamentSelector draws Size distinct genomes and keeps the one with the
// lowest energy. A Size at or above the population degenerates to picking
// the population best.
type TournamentSelector struct {
	Size int
}

func (s TournamentSelector) Select(rng *rand.Rand, population []model.Genome) model.Genome {
	size := s.Size
	if size <= 0 {
		size = DefaultTournamentSize
	}
	if size > len(population) {
		size = len(population)
	}

	order := rng.Perm(len(population))
	best := order[0]
	for _, candidate := range order[1:size] {
		if energyOf(population[candidate]) < energyOf(population[best]) {
			best = candidate
		}
	}
	return model.CloneGenome(population[best])
}

// energyOf treats an unevaluated genome as unusable. The monitor evaluates
// the whole population before selection, so the +Inf branch only matters if
// a caller skips that step.
func energyOf(g model.Genome) float64 {
	if g.Energy == nil {
		return inf
	}
	return *g.Energy
}
