package storage

import (
	"context"
	"testing"

	"goad/internal/model"
)

func versioned() model.VersionedRecord {
	return model.VersionedRecord{SchemaVersion: CurrentSchemaVersion, CodecVersion: CurrentCodecVersion}
}

func testRun(id, createdAt string) model.RunRecord {
	return model.RunRecord{
		VersionedRecord: versioned(),
		ID:              id,
		CreatedAtUTC:    createdAt,
		Calculator:      "lj",
		PopulationSize:  10,
		Generations:     5,
		BestEnergy:      -1.25,
	}
}

func TestMemoryStoreRunRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	if err := store.Init(ctx); err != nil {
		t.Fatalf("init: %v", err)
	}

	if err := store.SaveRun(ctx, testRun("run-1", "2026-01-02T03:04:05Z")); err != nil {
		t.Fatalf("save run: %v", err)
	}

	run, ok, err := store.GetRun(ctx, "run-1")
	if err != nil || !ok {
		t.Fatalf("get run: ok=%v err=%v", ok, err)
	}
	if run.BestEnergy != -1.25 || run.Calculator != "lj" {
		t.Fatalf("round trip mismatch: %+v", run)
	}

	if _, ok, err := store.GetRun(ctx, "missing"); err != nil || ok {
		t.Fatalf("missing run: ok=%v err=%v", ok, err)
	}
}

func TestMemoryStoreListRunsNewestFirst(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	if err := store.Init(ctx); err != nil {
		t.Fatalf("init: %v", err)
	}

	for _, run := range []model.RunRecord{
		testRun("old", "2026-01-01T00:00:00Z"),
		testRun("new", "2026-03-01T00:00:00Z"),
		testRun("mid", "2026-02-01T00:00:00Z"),
	} {
		if err := store.SaveRun(ctx, run); err != nil {
			t.Fatalf("save run: %v", err)
		}
	}

	runs, err := store.ListRuns(ctx)
	if err != nil {
		t.Fatalf("list runs: %v", err)
	}
	want := []string{"new", "mid", "old"}
	if len(runs) != len(want) {
		t.Fatalf("run count: got %d want %d", len(runs), len(want))
	}
	for i, id := range want {
		if runs[i].ID != id {
			t.Fatalf("run %d: got %s want %s", i, runs[i].ID, id)
		}
	}
}

func TestMemoryStoreBestGenomeIsIsolated(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	if err := store.Init(ctx); err != nil {
		t.Fatalf("init: %v", err)
	}

	energy := -3.5
	genome := model.Genome{
		VersionedRecord: versioned(),
		ID:              "best",
		Torsions:        []float64{10, 20},
		Energy:          &energy,
	}
	if err := store.SaveBestGenome(ctx, "run-1", genome); err != nil {
		t.Fatalf("save best: %v", err)
	}

	// Mutating the caller's copy must not leak into the store.
	genome.Torsions[0] = 999

	got, ok, err := store.GetBestGenome(ctx, "run-1")
	if err != nil || !ok {
		t.Fatalf("get best: ok=%v err=%v", ok, err)
	}
	if got.Torsions[0] != 10 {
		t.Fatalf("stored genome was aliased: %v", got.Torsions)
	}
	if got.Energy == nil || *got.Energy != -3.5 {
		t.Fatalf("energy lost: %v", got.Energy)
	}
}

func TestMemoryStoreHistoryAndDiagnostics(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	if err := store.Init(ctx); err != nil {
		t.Fatalf("init: %v", err)
	}

	history := []model.FitnessSample{
		{Generation: 0, GenomeID: "g000-i000", Energy: 2},
		{Generation: 0, GenomeID: "g000-i001", Energy: -1},
	}
	if err := store.SaveFitnessHistory(ctx, "run-1", history); err != nil {
		t.Fatalf("save history: %v", err)
	}
	got, ok, err := store.GetFitnessHistory(ctx, "run-1")
	if err != nil || !ok {
		t.Fatalf("get history: ok=%v err=%v", ok, err)
	}
	if len(got) != 2 || got[1].Energy != -1 {
		t.Fatalf("history mismatch: %+v", got)
	}

	diagnostics := []model.GenerationDiagnostics{{Generation: 0, BestEnergy: -1, OverallBest: -1}}
	if err := store.SaveGenerationDiagnostics(ctx, "run-1", diagnostics); err != nil {
		t.Fatalf("save diagnostics: %v", err)
	}
	gotDiag, ok, err := store.GetGenerationDiagnostics(ctx, "run-1")
	if err != nil || !ok {
		t.Fatalf("get diagnostics: ok=%v err=%v", ok, err)
	}
	if len(gotDiag) != 1 || gotDiag[0].BestEnergy != -1 {
		t.Fatalf("diagnostics mismatch: %+v", gotDiag)
	}

	if _, ok, err := store.GetFitnessHistory(ctx, "missing"); err != nil || ok {
		t.Fatalf("missing history: ok=%v err=%v", ok, err)
	}
}
