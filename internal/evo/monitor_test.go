package evo

import (
	"context"
	"math"
	"math/rand"
	"sync/atomic"
	"testing"

	"goad/internal/model"
)

func floatPtr(v float64) *float64 { return &v }

// funcEvaluator scores genomes with an arbitrary function and counts calls.
type funcEvaluator struct {
	score    func(g *model.Genome) (float64, bool)
	calls    atomic.Int64
	failures atomic.Int64
	penalty  float64
}

func (f *funcEvaluator) Evaluate(_ context.Context, genome *model.Genome) float64 {
	if genome.Evaluated() {
		return *genome.Energy
	}
	f.calls.Add(1)
	energy, ok := f.score(genome)
	if !ok {
		f.failures.Add(1)
		energy = f.penalty
	}
	genome.Energy = &energy
	return energy
}

func (f *funcEvaluator) Failures() int { return int(f.failures.Load()) }

// distanceScore rewards genomes near a target point, so the search has a
// smooth landscape to descend.
func distanceScore(target [3]float64) func(g *model.Genome) (float64, bool) {
	return func(g *model.Genome) (float64, bool) {
		dx := g.Position[0] - target[0]
		dy := g.Position[1] - target[1]
		dz := g.Position[2] - target[2]
		return math.Sqrt(dx*dx + dy*dy + dz*dz), true
	}
}

func testCodec(torsions int) Codec {
	return Codec{
		CenterXY:      [2]float64{0, 0},
		SurfaceZMax:   0,
		SearchRadius:  5,
		SurfaceBuffer: 1,
		MaxHeight:     6,
		TorsionCount:  torsions,
	}
}

func TestMonitorEvaluationBudget(t *testing.T) {
	eval := &funcEvaluator{score: func(g *model.Genome) (float64, bool) { return 1, true }}
	monitor, err := NewMonitor(MonitorConfig{
		Evaluator:      eval,
		Codec:          testCodec(2),
		PopulationSize: 10,
		Generations:    5,
		EliteCount:     2,
		Seed:           1,
		Workers:        4,
	})
	if err != nil {
		t.Fatalf("new monitor: %v", err)
	}

	result, err := monitor.Run(context.Background())
	if err != nil {
		t.Fatalf("run: %v", err)
	}

	// Generation 0 scores the whole population; each later generation only
	// scores the non-elite children.
	want := 10 + 4*(10-2)
	if result.Evaluations != want {
		t.Fatalf("evaluations: got %d want %d", result.Evaluations, want)
	}
	if len(result.History) != want {
		t.Fatalf("history length: got %d want %d", len(result.History), want)
	}
	if int(eval.calls.Load()) != want {
		t.Fatalf("calculator calls: got %d want %d", eval.calls.Load(), want)
	}
	if len(result.Diagnostics) != 5 || len(result.BestByGeneration) != 5 {
		t.Fatalf("per-generation records: %d diagnostics, %d best",
			len(result.Diagnostics), len(result.BestByGeneration))
	}
}

func TestMonitorHistoryIsOrdered(t *testing.T) {
	eval := &funcEvaluator{score: distanceScore([3]float64{0, 0, 3})}
	monitor, err := NewMonitor(MonitorConfig{
		Evaluator:      eval,
		Codec:          testCodec(0),
		PopulationSize: 8,
		Generations:    3,
		EliteCount:     1,
		Seed:           11,
		Workers:        8,
	})
	if err != nil {
		t.Fatalf("new monitor: %v", err)
	}

	result, err := monitor.Run(context.Background())
	if err != nil {
		t.Fatalf("run: %v", err)
	}

	prevGen := -1
	for i, sample := range result.History {
		if sample.Generation < prevGen {
			t.Fatalf("history sample %d out of generation order", i)
		}
		prevGen = sample.Generation
	}
	// Within generation 0 the samples follow population index order.
	for i := 0; i < 8; i++ {
		if result.History[i].GenomeID != genomeID(0, i) {
			t.Fatalf("sample %d: got %s want %s", i, result.History[i].GenomeID, genomeID(0, i))
		}
	}
}

func TestMonitorBestIsMonotonic(t *testing.T) {
	eval := &funcEvaluator{score: distanceScore([3]float64{1, -2, 4})}
	monitor, err := NewMonitor(MonitorConfig{
		Evaluator:      eval,
		Codec:          testCodec(0),
		PopulationSize: 12,
		Generations:    15,
		EliteCount:     2,
		Seed:           3,
	})
	if err != nil {
		t.Fatalf("new monitor: %v", err)
	}

	result, err := monitor.Run(context.Background())
	if err != nil {
		t.Fatalf("run: %v", err)
	}

	prev := math.Inf(1)
	for i, d := range result.Diagnostics {
		if d.OverallBest > prev {
			t.Fatalf("overall best worsened at generation %d: %v > %v", i, d.OverallBest, prev)
		}
		prev = d.OverallBest
	}
	if result.BestEnergy != prev {
		t.Fatalf("final best %v does not match last diagnostic %v", result.BestEnergy, prev)
	}
	if !result.Best.Evaluated() || *result.Best.Energy != result.BestEnergy {
		t.Fatal("best genome must carry its energy")
	}
	// With 15 generations on a smooth landscape the search must improve on
	// random initialization.
	if result.Diagnostics[len(result.Diagnostics)-1].OverallBest >= result.Diagnostics[0].BestEnergy {
		t.Fatal("search never improved on the initial population")
	}
}

func TestMonitorElitismPreservesBest(t *testing.T) {
	eval := &funcEvaluator{score: distanceScore([3]float64{0, 0, 2})}
	monitor, err := NewMonitor(MonitorConfig{
		Evaluator:      eval,
		Codec:          testCodec(1),
		PopulationSize: 6,
		Generations:    10,
		EliteCount:     2,
		Seed:           17,
	})
	if err != nil {
		t.Fatalf("new monitor: %v", err)
	}

	result, err := monitor.Run(context.Background())
	if err != nil {
		t.Fatalf("run: %v", err)
	}

	// With elitism each generation's population best can never be worse
	// than the previous generation's.
	for i := 1; i < len(result.Diagnostics); i++ {
		if result.Diagnostics[i].BestEnergy > result.Diagnostics[i-1].BestEnergy+1e-12 {
			t.Fatalf("generation %d best regressed: %v > %v",
				i, result.Diagnostics[i].BestEnergy, result.Diagnostics[i-1].BestEnergy)
		}
	}
}

// countingOperator records every mutation it performs. Reproduction runs in
// the single GA goroutine, so a plain counter is enough.
type countingOperator struct{ calls int }

func (c *countingOperator) Name() string { return "counting" }

func (c *countingOperator) Mutate(_ *rand.Rand, genome *model.Genome) {
	c.calls++
	genome.ResetEnergy()
}

// countingSelector counts parent picks.
type countingSelector struct {
	inner Selector
	calls int
}

func (s *countingSelector) Select(rng *rand.Rand, population []model.Genome) model.Genome {
	s.calls++
	return s.inner.Select(rng, population)
}

func TestMonitorCrossoverChildrenAreNotMutated(t *testing.T) {
	eval := &funcEvaluator{score: distanceScore([3]float64{0, 0, 2})}
	mutation := &countingOperator{}
	selector := &countingSelector{inner: TournamentSelector{Size: 3}}
	monitor, err := NewMonitor(MonitorConfig{
		Evaluator:      eval,
		Codec:          testCodec(1),
		PopulationSize: 6,
		Generations:    3,
		EliteCount:     1,
		CrossoverRate:  floatPtr(1.0),
		Selector:       selector,
		Mutation:       NewMutationPolicy([]WeightedOperator{{Operator: mutation, Weight: 1}}),
		Seed:           13,
	})
	if err != nil {
		t.Fatalf("new monitor: %v", err)
	}

	if _, err := monitor.Run(context.Background()); err != nil {
		t.Fatalf("run: %v", err)
	}

	// Every bred child comes from crossover and must be left as produced.
	if mutation.calls != 0 {
		t.Fatalf("mutation fired %d times on crossover-only reproduction", mutation.calls)
	}
	// Two parent picks per child, two reproduction rounds of 5 children.
	if want := 2 * 2 * (6 - 1); selector.calls != want {
		t.Fatalf("parent picks: got %d want %d", selector.calls, want)
	}
}

func TestMonitorMutationOnlyRun(t *testing.T) {
	eval := &funcEvaluator{score: distanceScore([3]float64{0, 0, 2})}
	mutation := &countingOperator{}
	selector := &countingSelector{inner: TournamentSelector{Size: 3}}
	monitor, err := NewMonitor(MonitorConfig{
		Evaluator:      eval,
		Codec:          testCodec(1),
		PopulationSize: 6,
		Generations:    3,
		EliteCount:     1,
		CrossoverRate:  floatPtr(0),
		Selector:       selector,
		Mutation:       NewMutationPolicy([]WeightedOperator{{Operator: mutation, Weight: 1}}),
		Seed:           29,
	})
	if err != nil {
		t.Fatalf("new monitor: %v", err)
	}

	result, err := monitor.Run(context.Background())
	if err != nil {
		t.Fatalf("run: %v", err)
	}

	// An explicit zero rate disables crossover instead of falling back to
	// the default: one parent pick and one mutation per bred child.
	wantChildren := 2 * (6 - 1)
	if selector.calls != wantChildren {
		t.Fatalf("parent picks: got %d want %d", selector.calls, wantChildren)
	}
	if mutation.calls != wantChildren {
		t.Fatalf("mutations: got %d want %d", mutation.calls, wantChildren)
	}
	if want := 6 + wantChildren; result.Evaluations != want {
		t.Fatalf("evaluations: got %d want %d", result.Evaluations, want)
	}
}

func TestMonitorAllFailuresRunCompletes(t *testing.T) {
	eval := &funcEvaluator{
		penalty: 1000,
		score:   func(g *model.Genome) (float64, bool) { return 0, false },
	}
	monitor, err := NewMonitor(MonitorConfig{
		Evaluator:      eval,
		Codec:          testCodec(0),
		PopulationSize: 6,
		Generations:    4,
		EliteCount:     1,
		Seed:           9,
	})
	if err != nil {
		t.Fatalf("new monitor: %v", err)
	}

	result, err := monitor.Run(context.Background())
	if err != nil {
		t.Fatalf("run: %v", err)
	}

	// When every evaluation fails the search degenerates to the penalty
	// sentinel but still terminates normally.
	if result.BestEnergy != 1000 {
		t.Fatalf("best energy: got %v want the 1000 penalty", result.BestEnergy)
	}
	if !result.Best.Evaluated() {
		t.Fatal("best genome must carry the penalty energy")
	}
	if eval.Failures() != result.Evaluations {
		t.Fatalf("failures: got %d want %d", eval.Failures(), result.Evaluations)
	}
}

func TestMonitorContainsFailures(t *testing.T) {
	// Half of the landscape fails; the other half scores well below the
	// penalty.
	eval := &funcEvaluator{
		penalty: 1000,
		score: func(g *model.Genome) (float64, bool) {
			if g.Position[0] < 0 {
				return 0, false
			}
			return -g.Position[2], true
		},
	}
	monitor, err := NewMonitor(MonitorConfig{
		Evaluator:      eval,
		Codec:          testCodec(0),
		PopulationSize: 10,
		Generations:    6,
		EliteCount:     1,
		Seed:           5,
	})
	if err != nil {
		t.Fatalf("new monitor: %v", err)
	}

	result, err := monitor.Run(context.Background())
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if eval.Failures() == 0 {
		t.Fatal("expected some failed evaluations")
	}
	if result.BestEnergy >= 1000 {
		t.Fatalf("penalties must not win: best %v", result.BestEnergy)
	}
	last := result.Diagnostics[len(result.Diagnostics)-1]
	if last.Failures != eval.Failures() {
		t.Fatalf("diagnostics failures: got %d want %d", last.Failures, eval.Failures())
	}
}

func TestMonitorCanceledContext(t *testing.T) {
	eval := &funcEvaluator{score: func(g *model.Genome) (float64, bool) { return 0, true }}
	monitor, err := NewMonitor(MonitorConfig{
		Evaluator:      eval,
		Codec:          testCodec(0),
		PopulationSize: 4,
		Generations:    3,
		Seed:           1,
	})
	if err != nil {
		t.Fatalf("new monitor: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := monitor.Run(ctx); err == nil {
		t.Fatal("expected context error")
	}
}

func TestNewMonitorValidation(t *testing.T) {
	eval := &funcEvaluator{score: func(g *model.Genome) (float64, bool) { return 0, true }}
	cases := []struct {
		name string
		cfg  MonitorConfig
	}{
		{name: "nil evaluator", cfg: MonitorConfig{}},
		{name: "tiny population", cfg: MonitorConfig{Evaluator: eval, PopulationSize: 1}},
		{name: "negative generations", cfg: MonitorConfig{Evaluator: eval, Generations: -1}},
		{name: "elite too large", cfg: MonitorConfig{Evaluator: eval, PopulationSize: 4, EliteCount: 4}},
		{name: "bad crossover rate", cfg: MonitorConfig{Evaluator: eval, CrossoverRate: floatPtr(1.5)}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := NewMonitor(tc.cfg); err == nil {
				t.Fatal("expected validation error")
			}
		})
	}
}
