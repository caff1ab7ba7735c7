//go:build sqlite

package storage

import (
	"context"
	"path/filepath"
	"testing"

	"goad/internal/model"
)

func newTestSQLiteStore(t *testing.T) *SQLiteStore {
	t.Helper()
	store := NewSQLiteStore(filepath.Join(t.TempDir(), "goad.db"))
	if err := store.Init(context.Background()); err != nil {
		t.Fatalf("init: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestSQLiteRunRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := newTestSQLiteStore(t)

	run := testRun("run-1", "2026-01-02T03:04:05Z")
	if err := store.SaveRun(ctx, run); err != nil {
		t.Fatalf("save run: %v", err)
	}

	got, ok, err := store.GetRun(ctx, "run-1")
	if err != nil || !ok {
		t.Fatalf("get run: ok=%v err=%v", ok, err)
	}
	if got != run {
		t.Fatalf("round trip mismatch: %+v", got)
	}

	// Upsert replaces the payload.
	run.BestEnergy = -9
	if err := store.SaveRun(ctx, run); err != nil {
		t.Fatalf("save run again: %v", err)
	}
	got, _, err = store.GetRun(ctx, "run-1")
	if err != nil {
		t.Fatalf("get run again: %v", err)
	}
	if got.BestEnergy != -9 {
		t.Fatalf("upsert did not replace: %v", got.BestEnergy)
	}
}

func TestSQLiteListRunsNewestFirst(t *testing.T) {
	ctx := context.Background()
	store := newTestSQLiteStore(t)

	for _, run := range []model.RunRecord{
		testRun("old", "2026-01-01T00:00:00Z"),
		testRun("new", "2026-03-01T00:00:00Z"),
	} {
		if err := store.SaveRun(ctx, run); err != nil {
			t.Fatalf("save run: %v", err)
		}
	}

	runs, err := store.ListRuns(ctx)
	if err != nil {
		t.Fatalf("list runs: %v", err)
	}
	if len(runs) != 2 || runs[0].ID != "new" || runs[1].ID != "old" {
		t.Fatalf("order mismatch: %+v", runs)
	}
}

func TestSQLiteBestGenomeAndArtifacts(t *testing.T) {
	ctx := context.Background()
	store := newTestSQLiteStore(t)

	energy := -4.5
	genome := model.Genome{
		VersionedRecord: versioned(),
		ID:              "best",
		Position:        [3]float64{1, 2, 3},
		Torsions:        []float64{120},
		Energy:          &energy,
	}
	if err := store.SaveBestGenome(ctx, "run-1", genome); err != nil {
		t.Fatalf("save best: %v", err)
	}
	got, ok, err := store.GetBestGenome(ctx, "run-1")
	if err != nil || !ok {
		t.Fatalf("get best: ok=%v err=%v", ok, err)
	}
	if got.Energy == nil || *got.Energy != -4.5 || got.Position != genome.Position {
		t.Fatalf("best genome mismatch: %+v", got)
	}

	history := []model.FitnessSample{{Generation: 0, GenomeID: "g000-i000", Energy: 1}}
	if err := store.SaveFitnessHistory(ctx, "run-1", history); err != nil {
		t.Fatalf("save history: %v", err)
	}
	gotHistory, ok, err := store.GetFitnessHistory(ctx, "run-1")
	if err != nil || !ok || len(gotHistory) != 1 {
		t.Fatalf("get history: ok=%v err=%v len=%d", ok, err, len(gotHistory))
	}

	diagnostics := []model.GenerationDiagnostics{{Generation: 0, BestEnergy: 1}}
	if err := store.SaveGenerationDiagnostics(ctx, "run-1", diagnostics); err != nil {
		t.Fatalf("save diagnostics: %v", err)
	}
	gotDiag, ok, err := store.GetGenerationDiagnostics(ctx, "run-1")
	if err != nil || !ok || len(gotDiag) != 1 {
		t.Fatalf("get diagnostics: ok=%v err=%v len=%d", ok, err, len(gotDiag))
	}

	if _, ok, err := store.GetBestGenome(ctx, "missing"); err != nil || ok {
		t.Fatalf("missing best: ok=%v err=%v", ok, err)
	}
}
