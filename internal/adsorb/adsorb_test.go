package adsorb

import (
	"context"
	"errors"
	"math"
	"testing"

	"goad/internal/model"
	"goad/internal/torsion"
)

func testSurface() model.Structure {
	return model.Structure{
		Atoms: []model.Atom{
			{Symbol: "Cu", Position: [3]float64{0, 0, 0}},
			{Symbol: "Cu", Position: [3]float64{2.5, 0, 0}},
		},
		Cell: [3][3]float64{{5, 0, 0}, {0, 5, 0}, {0, 0, 20}},
	}
}

func testMolecule() model.Structure {
	return model.Structure{Atoms: []model.Atom{
		{Symbol: "C", Position: [3]float64{0, 0, 0}},
		{Symbol: "O", Position: [3]float64{1.13, 0, 0}},
	}}
}

func rigidModel(t *testing.T, molecule model.Structure) *torsion.Model {
	t.Helper()
	m, err := torsion.New(molecule, nil)
	if err != nil {
		t.Fatalf("torsion model: %v", err)
	}
	return m
}

// constCalc returns a fixed energy for every structure.
type constCalc struct {
	energy float64
}

func (c constCalc) Name() string { return "const" }

func (c constCalc) PotentialEnergy(_ context.Context, _ model.Structure) (float64, error) {
	return c.energy, nil
}

// failCalc always fails.
type failCalc struct{}

func (failCalc) Name() string { return "fail" }

func (failCalc) PotentialEnergy(_ context.Context, _ model.Structure) (float64, error) {
	return 0, errors.New("did not converge")
}

func TestAssembleLayoutAndMask(t *testing.T) {
	surface := testSurface()
	molecule := testMolecule()
	genome := model.Genome{Position: [3]float64{1, 2, 8}}

	combined, err := Assemble(surface, molecule, genome, rigidModel(t, molecule))
	if err != nil {
		t.Fatalf("assemble: %v", err)
	}

	if len(combined.Atoms) != 4 {
		t.Fatalf("expected 4 atoms, got %d", len(combined.Atoms))
	}
	// Surface atoms first, in original order, fixed.
	for i := range surface.Atoms {
		if combined.Atoms[i].Symbol != surface.Atoms[i].Symbol {
			t.Fatalf("surface atom %d out of order", i)
		}
		if !combined.Fixed[i] {
			t.Fatalf("surface atom %d must be fixed", i)
		}
	}
	for i := len(surface.Atoms); i < len(combined.Atoms); i++ {
		if combined.Fixed[i] {
			t.Fatalf("molecule atom %d must be free", i)
		}
	}
	if combined.Cell != surface.Cell {
		t.Fatalf("combined cell: got %v want %v", combined.Cell, surface.Cell)
	}
}

func TestAssembleFixesSurfaceDespiteMask(t *testing.T) {
	surface := testSurface()
	surface.Fixed = []bool{false, false}
	molecule := testMolecule()

	combined, err := Assemble(surface, molecule, model.Genome{Position: [3]float64{1, 1, 8}}, rigidModel(t, molecule))
	if err != nil {
		t.Fatalf("assemble: %v", err)
	}

	// Relaxation masks on the input surface never leak into scored structures.
	for i := range surface.Atoms {
		if !combined.Fixed[i] {
			t.Fatalf("surface atom %d must stay fixed", i)
		}
	}
}

func TestAssemblePlacesCentroid(t *testing.T) {
	surface := testSurface()
	molecule := testMolecule()
	genome := model.Genome{
		Position:    [3]float64{2.5, 2.5, 7},
		Orientation: [3]float64{33, 140, 287},
	}

	combined, err := Assemble(surface, molecule, genome, rigidModel(t, molecule))
	if err != nil {
		t.Fatalf("assemble: %v", err)
	}

	// Rotation happens about the final centroid, so the molecule centroid
	// must equal the genome position regardless of orientation.
	moleculePart := model.Structure{Atoms: combined.Atoms[len(surface.Atoms):]}
	centroid := moleculePart.Centroid()
	for axis := 0; axis < 3; axis++ {
		if math.Abs(centroid[axis]-genome.Position[axis]) > 1e-9 {
			t.Fatalf("centroid axis %d: got %v want %v", axis, centroid, genome.Position)
		}
	}
}

func TestAssembleDoesNotMutateInputs(t *testing.T) {
	surface := testSurface()
	molecule := testMolecule()
	before := molecule.Atoms[0].Position

	_, err := Assemble(surface, molecule, model.Genome{Position: [3]float64{9, 9, 9}}, rigidModel(t, molecule))
	if err != nil {
		t.Fatalf("assemble: %v", err)
	}
	if molecule.Atoms[0].Position != before {
		t.Fatal("assemble mutated the input molecule")
	}
}

func TestEvaluateAdsorptionEnergy(t *testing.T) {
	molecule := testMolecule()
	evaluator, err := NewEvaluator(EvaluatorConfig{
		Calculator:     constCalc{energy: -7},
		Surface:        testSurface(),
		Molecule:       molecule,
		Torsions:       rigidModel(t, molecule),
		SurfaceEnergy:  -4,
		MoleculeEnergy: -1,
	})
	if err != nil {
		t.Fatalf("new evaluator: %v", err)
	}

	genome := model.Genome{Position: [3]float64{1, 1, 8}}
	got := evaluator.Evaluate(context.Background(), &genome)
	if got != -2 {
		t.Fatalf("E_ads: got %v want -2", got)
	}
	if genome.Energy == nil || *genome.Energy != -2 {
		t.Fatalf("energy not cached: %v", genome.Energy)
	}
	if genome.Structure == nil || len(genome.Structure.Atoms) != 4 {
		t.Fatal("structure not cached")
	}
}

func TestEvaluateMemoizes(t *testing.T) {
	molecule := testMolecule()
	evaluator, err := NewEvaluator(EvaluatorConfig{
		Calculator: constCalc{energy: 5},
		Surface:    testSurface(),
		Molecule:   molecule,
		Torsions:   rigidModel(t, molecule),
	})
	if err != nil {
		t.Fatalf("new evaluator: %v", err)
	}

	cached := -123.0
	genome := model.Genome{Energy: &cached}
	if got := evaluator.Evaluate(context.Background(), &genome); got != -123 {
		t.Fatalf("expected cached energy, got %v", got)
	}
}

func TestEvaluateFailureBecomesPenalty(t *testing.T) {
	molecule := testMolecule()
	evaluator, err := NewEvaluator(EvaluatorConfig{
		Calculator: failCalc{},
		Surface:    testSurface(),
		Molecule:   molecule,
		Torsions:   rigidModel(t, molecule),
		Penalty:    500,
	})
	if err != nil {
		t.Fatalf("new evaluator: %v", err)
	}

	genome := model.Genome{Position: [3]float64{0, 0, 6}}
	if got := evaluator.Evaluate(context.Background(), &genome); got != 500 {
		t.Fatalf("expected penalty 500, got %v", got)
	}
	if evaluator.Failures() != 1 {
		t.Fatalf("failures: got %d want 1", evaluator.Failures())
	}
	if genome.Structure != nil {
		t.Fatal("failed evaluation must not cache a structure")
	}
}

func TestNewEvaluatorValidation(t *testing.T) {
	molecule := testMolecule()
	torsions := rigidModel(t, molecule)

	cases := []struct {
		name string
		cfg  EvaluatorConfig
	}{
		{name: "nil calculator", cfg: EvaluatorConfig{Surface: testSurface(), Molecule: molecule, Torsions: torsions}},
		{name: "empty surface", cfg: EvaluatorConfig{Calculator: constCalc{}, Molecule: molecule, Torsions: torsions}},
		{name: "empty molecule", cfg: EvaluatorConfig{Calculator: constCalc{}, Surface: testSurface(), Torsions: torsions}},
		{name: "nil torsions", cfg: EvaluatorConfig{Calculator: constCalc{}, Surface: testSurface(), Molecule: molecule}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := NewEvaluator(tc.cfg); err == nil {
				t.Fatal("expected validation error")
			}
		})
	}
}
