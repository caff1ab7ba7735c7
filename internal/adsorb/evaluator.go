package adsorb

import (
	"context"
	"fmt"
	"sync/atomic"

	"go.uber.org/zap"

	"goad/internal/calc"
	"goad/internal/model"
	"goad/internal/torsion"
)

// DefaultPenalty is the sentinel energy assigned when the calculator cannot
// score a structure. It is far worse than any plausible adsorption energy so
// selection strongly disfavors the genome while the run continues. A run
// whose best energy equals the penalty found nothing scoreable.
const DefaultPenalty = 1000.0

// EvaluatorConfig wires the fitness evaluator. Calculator, Surface, Molecule
// and Torsions are required; reference energies default to zero and Penalty
// to DefaultPenalty.
type EvaluatorConfig struct {
	Calculator     calc.Calculator
	Surface        model.Structure
	Molecule       model.Structure
	Torsions       *torsion.Model
	SurfaceEnergy  float64
	MoleculeEnergy float64
	Penalty        float64
	Logger         *zap.Logger
}

// Evaluator scores genomes at most once each, caching the adsorption energy
// and the realized structure on the genome. Safe for concurrent use across
// distinct genomes; two goroutines must not share one genome.
type Evaluator struct {
	cfg      EvaluatorConfig
	failures atomic.Int64
}

func NewEvaluator(cfg EvaluatorConfig) (*Evaluator, error) {
	if cfg.Calculator == nil {
		return nil, fmt.Errorf("calculator is required")
	}
	if len(cfg.Surface.Atoms) == 0 {
		return nil, fmt.Errorf("surface has no atoms")
	}
	if len(cfg.Molecule.Atoms) == 0 {
		return nil, fmt.Errorf("molecule has no atoms")
	}
	if cfg.Torsions == nil {
		return nil, fmt.Errorf("torsion model is required")
	}
	if cfg.Penalty == 0 {
		cfg.Penalty = DefaultPenalty
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	return &Evaluator{cfg: cfg}, nil
}

// Evaluate returns the genome's adsorption energy, computing it if needed:
// E_ads = E_total − (E_surface + E_molecule). Calculator failures are
// absorbed into the penalty energy and counted; they never abort the run.
func (e *Evaluator) Evaluate(ctx context.Context, genome *model.Genome) float64 {
	if genome.Evaluated() {
		return *genome.Energy
	}

	structure, err := Assemble(e.cfg.Surface, e.cfg.Molecule, *genome, e.cfg.Torsions)
	if err != nil {
		return e.penalize(genome, err)
	}

	total, err := e.cfg.Calculator.PotentialEnergy(ctx, structure)
	if err != nil {
		return e.penalize(genome, err)
	}

	adsorption := total - (e.cfg.SurfaceEnergy + e.cfg.MoleculeEnergy)
	genome.Energy = &adsorption
	genome.Structure = &structure
	return adsorption
}

// Penalty returns the configured failure sentinel.
func (e *Evaluator) Penalty() float64 {
	return e.cfg.Penalty
}

// Failures returns how many evaluations were absorbed as penalties so far.
func (e *Evaluator) Failures() int {
	return int(e.failures.Load())
}

func (e *Evaluator) penalize(genome *model.Genome, cause error) float64 {
	e.failures.Add(1)
	e.cfg.Logger.Warn("energy evaluation failed",
		zap.String("genome", genome.ID),
		zap.Error(cause),
	)
	penalty := e.cfg.Penalty
	genome.Energy = &penalty
	genome.Structure = nil
	return penalty
}
