package evo

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"runtime"
	"sort"
	"sync"

	"go.uber.org/zap"

	"goad/internal/model"
)

var inf = math.Inf(1)

// Defaults for the GA loop.
const (
	DefaultPopulationSize = 20
	DefaultGenerations    = 50
	DefaultEliteCount     = 2
	DefaultCrossoverRate  = 0.7
)

// Evaluator scores one genome, caching the result on it. adsorb.Evaluator is
// the production implementation.
type Evaluator interface {
	Evaluate(ctx context.Context, genome *model.Genome) float64
	Failures() int
}

// MonitorConfig configures one search. Evaluator is required; everything
// else falls back to the defaults above. A nil CrossoverRate takes
// DefaultCrossoverRate; an explicit 0 disables crossover so every child is
// a mutated tournament winner.
type MonitorConfig struct {
	Evaluator      Evaluator
	Codec          Codec
	PopulationSize int
	Generations    int
	EliteCount     int
	CrossoverRate  *float64
	Selector       Selector
	Mutation       *MutationPolicy
	Workers        int
	Seed           int64
	Logger         *zap.Logger
}

// RunResult is everything a finished search produced.
type RunResult struct {
	Best             model.Genome
	BestEnergy       float64
	History          []model.FitnessSample
	BestByGeneration []float64
	Diagnostics      []model.GenerationDiagnostics
	Evaluations      int
}

// Monitor runs the generational loop: evaluate, track the best placement
// ever seen, then reproduce with elitism, tournament selection, crossover
// and mutation.
type Monitor struct {
	cfg MonitorConfig
	rng *rand.Rand

	best       *model.Genome
	history    []model.FitnessSample
	bestByGen  []float64
	diags      []model.GenerationDiagnostics
	evaluated  int
	population []model.Genome
}

func NewMonitor(cfg MonitorConfig) (*Monitor, error) {
	if cfg.Evaluator == nil {
		return nil, fmt.Errorf("evaluator is required")
	}
	if cfg.PopulationSize == 0 {
		cfg.PopulationSize = DefaultPopulationSize
	}
	if cfg.PopulationSize < 2 {
		return nil, fmt.Errorf("population size must be >= 2, got %d", cfg.PopulationSize)
	}
	if cfg.Generations == 0 {
		cfg.Generations = DefaultGenerations
	}
	if cfg.Generations < 1 {
		return nil, fmt.Errorf("generations must be >= 1, got %d", cfg.Generations)
	}
	if cfg.EliteCount < 0 || cfg.EliteCount >= cfg.PopulationSize {
		return nil, fmt.Errorf("elite count must be in [0, %d), got %d", cfg.PopulationSize, cfg.EliteCount)
	}
	if cfg.CrossoverRate == nil {
		rate := DefaultCrossoverRate
		cfg.CrossoverRate = &rate
	}
	if *cfg.CrossoverRate < 0 || *cfg.CrossoverRate > 1 {
		return nil, fmt.Errorf("crossover rate must be in [0, 1], got %v", *cfg.CrossoverRate)
	}
	if cfg.Selector == nil {
		cfg.Selector = TournamentSelector{Size: DefaultTournamentSize}
	}
	if cfg.Mutation == nil {
		cfg.Mutation = DefaultMutationPolicy()
	}
	if cfg.Workers <= 0 {
		cfg.Workers = runtime.NumCPU()
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	return &Monitor{
		cfg: cfg,
		rng: rand.New(rand.NewSource(cfg.Seed)),
	}, nil
}

// Run executes the search until the generation budget is spent or the
// context is canceled. A canceled run returns the best found so far along
// with the context error.
func (m *Monitor) Run(ctx context.Context) (RunResult, error) {
	m.population = make([]model.Genome, m.cfg.PopulationSize)
	for i := range m.population {
		m.population[i] = m.cfg.Codec.Random(m.rng, genomeID(0, i))
	}

	var runErr error
	for gen := 0; gen < m.cfg.Generations; gen++ {
		if err := ctx.Err(); err != nil {
			runErr = err
			break
		}

		m.evaluateAll(ctx, gen)
		m.recordGeneration(gen)

		// The final population is evaluated but never reproduced.
		if gen < m.cfg.Generations-1 {
			m.reproduce(gen + 1)
		}
	}

	result := RunResult{
		BestEnergy:       inf,
		History:          m.history,
		BestByGeneration: m.bestByGen,
		Diagnostics:      m.diags,
		Evaluations:      m.evaluated,
	}
	if m.best != nil {
		result.Best = model.CloneGenome(*m.best)
		result.BestEnergy = *m.best.Energy
	}
	return result, runErr
}

// evaluateAll scores every unevaluated genome using a bounded worker pool
// and appends the new scores to the history in population index order.
func (m *Monitor) evaluateAll(ctx context.Context, generation int) {
	pending := make([]int, 0, len(m.population))
	for i := range m.population {
		if !m.population[i].Evaluated() {
			pending = append(pending, i)
		}
	}

	jobs := make(chan int, len(pending))
	var wg sync.WaitGroup
	workers := m.cfg.Workers
	if workers > len(pending) {
		workers = len(pending)
	}
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for idx := range jobs {
				m.cfg.Evaluator.Evaluate(ctx, &m.population[idx])
			}
		}()
	}
	for _, idx := range pending {
		jobs <- idx
	}
	close(jobs)
	wg.Wait()

	for _, idx := range pending {
		genome := m.population[idx]
		if !genome.Evaluated() {
			continue
		}
		m.evaluated++
		m.history = append(m.history, model.FitnessSample{
			Generation: generation,
			GenomeID:   genome.ID,
			Energy:     *genome.Energy,
		})
	}
}

func (m *Monitor) recordGeneration(generation int) {
	genBest, mean, worst := inf, 0.0, -inf
	scored := 0
	for i := range m.population {
		if !m.population[i].Evaluated() {
			continue
		}
		energy := *m.population[i].Energy
		scored++
		mean += energy
		if energy < genBest {
			genBest = energy
		}
		if energy > worst {
			worst = energy
		}
		// Strictly better only, so the first genome to reach the optimum
		// stays the reported best.
		if m.best == nil || energy < *m.best.Energy {
			clone := model.CloneGenome(m.population[i])
			m.best = &clone
		}
	}
	if scored > 0 {
		mean /= float64(scored)
	}
	overallBest := inf
	if m.best != nil {
		overallBest = *m.best.Energy
	}

	m.bestByGen = append(m.bestByGen, genBest)
	m.diags = append(m.diags, model.GenerationDiagnostics{
		Generation:  generation,
		BestEnergy:  genBest,
		MeanEnergy:  mean,
		WorstEnergy: worst,
		OverallBest: overallBest,
		Evaluations: m.evaluated,
		Failures:    m.cfg.Evaluator.Failures(),
	})

	m.cfg.Logger.Info("generation complete",
		zap.Int("generation", generation),
		zap.Float64("best", genBest),
		zap.Float64("mean", mean),
		zap.Float64("overall_best", overallBest),
		zap.Int("evaluations", m.evaluated),
		zap.Int("failures", m.cfg.Evaluator.Failures()),
	)
}

// reproduce builds the next population: elites carried over by value with
// their cached energies, the rest bred from tournament winners.
func (m *Monitor) reproduce(nextGeneration int) {
	ranked := make([]model.Genome, len(m.population))
	copy(ranked, m.population)
	sort.SliceStable(ranked, func(i, j int) bool {
		return energyOf(ranked[i]) < energyOf(ranked[j])
	})

	next := make([]model.Genome, 0, m.cfg.PopulationSize)
	for i := 0; i < m.cfg.EliteCount; i++ {
		next = append(next, model.CloneGenome(ranked[i]))
	}

	for len(next) < m.cfg.PopulationSize {
		id := genomeID(nextGeneration, len(next))
		parent1 := m.cfg.Selector.Select(m.rng, m.population)

		// Crossover children are used as produced; only the mutation branch
		// perturbs its single parent.
		var child model.Genome
		if m.rng.Float64() < *m.cfg.CrossoverRate {
			parent2 := m.cfg.Selector.Select(m.rng, m.population)
			child = Crossover(m.rng, parent1, parent2, id)
		} else {
			child = parent1
			child.ID = id
			m.cfg.Mutation.Apply(m.rng, &child)
		}
		// Bred children are always re-scored, even when the drawn mutation
		// was a no-op for this molecule.
		child.ResetEnergy()
		next = append(next, child)
	}
	m.population = next
}

func genomeID(generation, index int) string {
	return fmt.Sprintf("g%03d-i%03d", generation, index)
}
