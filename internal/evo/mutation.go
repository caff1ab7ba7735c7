package evo

import (
	"math"
	"math/rand"

	"goad/internal/model"
)

// Default mutation scales: angstrom for position, degrees for angles.
const (
	DefaultPositionSigma    = 0.5
	DefaultOrientationSigma = 10.0
	DefaultTorsionSigma     = 20.0
	DefaultTorsionRate      = 0.5
)

// Operator perturbs a genome in place. Every operator must reset the cached
// energy when it changes any gene.
type Operator interface {
	Name() string
	Mutate(rng *rand.Rand, genome *model.Genome)
}

// PerturbPosition adds Gaussian noise to all three position genes.
type PerturbPosition struct {
	Sigma float64
}

func (p PerturbPosition) Name() string { return "perturb_position" }

func (p PerturbPosition) Mutate(rng *rand.Rand, genome *model.Genome) {
	sigma := p.Sigma
	if sigma <= 0 {
		sigma = DefaultPositionSigma
	}
	for axis := 0; axis < 3; axis++ {
		genome.Position[axis] += rng.NormFloat64() * sigma
	}
	genome.ResetEnergy()
}

// PerturbOrientation adds Gaussian noise to all three Euler angles and wraps
// them back into [0, 360).
type PerturbOrientation struct {
	Sigma float64
}

func (p PerturbOrientation) Name() string { return "perturb_orientation" }

func (p PerturbOrientation) Mutate(rng *rand.Rand, genome *model.Genome) {
	sigma := p.Sigma
	if sigma <= 0 {
		sigma = DefaultOrientationSigma
	}
	for axis := 0; axis < 3; axis++ {
		genome.Orientation[axis] = wrap360(genome.Orientation[axis] + rng.NormFloat64()*sigma)
	}
	genome.ResetEnergy()
}

// PerturbTorsions perturbs each torsion independently with probability Rate.
// A genome with no rotatable bonds is left untouched, cached energy included.
type PerturbTorsions struct {
	Sigma float64
	Rate  float64
}

func (p PerturbTorsions) Name() string { return "perturb_torsions" }

func (p PerturbTorsions) Mutate(rng *rand.Rand, genome *model.Genome) {
	if len(genome.Torsions) == 0 {
		return
	}
	sigma := p.Sigma
	if sigma <= 0 {
		sigma = DefaultTorsionSigma
	}
	rate := p.Rate
	if rate <= 0 {
		rate = DefaultTorsionRate
	}
	for i := range genome.Torsions {
		if rng.Float64() < rate {
			genome.Torsions[i] = wrap360(genome.Torsions[i] + rng.NormFloat64()*sigma)
		}
	}
	genome.ResetEnergy()
}

// WeightedOperator pairs an operator with a selection weight.
type WeightedOperator struct {
	Operator Operator
	Weight   float64
}

// MutationPolicy picks one operator per application, weighted.
type MutationPolicy struct {
	operators []WeightedOperator
	total     float64
}

func NewMutationPolicy(operators []WeightedOperator) *MutationPolicy {
	policy := &MutationPolicy{}
	for _, op := range operators {
		if op.Operator == nil || op.Weight <= 0 {
			continue
		}
		policy.operators = append(policy.operators, op)
		policy.total += op.Weight
	}
	return policy
}

// DefaultMutationPolicy weights all three perturbation operators equally.
func DefaultMutationPolicy() *MutationPolicy {
	return NewMutationPolicy([]WeightedOperator{
		{Operator: PerturbPosition{}, Weight: 1},
		{Operator: PerturbOrientation{}, Weight: 1},
		{Operator: PerturbTorsions{}, Weight: 1},
	})
}

// Apply runs one weighted-random operator against the genome.
func (p *MutationPolicy) Apply(rng *rand.Rand, genome *model.Genome) {
	if len(p.operators) == 0 {
		return
	}
	target := rng.Float64() * p.total
	for _, op := range p.operators {
		target -= op.Weight
		if target < 0 {
			op.Operator.Mutate(rng, genome)
			return
		}
	}
	p.operators[len(p.operators)-1].Operator.Mutate(rng, genome)
}

func wrap360(angle float64) float64 {
	wrapped := math.Mod(angle, 360)
	if wrapped < 0 {
		wrapped += 360
	}
	return wrapped
}
