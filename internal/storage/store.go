// Package storage persists finished runs: the run record, the best genome,
// the per-evaluation fitness history and the per-generation diagnostics.
package storage

import (
	"context"

	"goad/internal/model"
)

// Store defines persistence operations for run artifacts. Lookups return
// (zero, false, nil) when the key is absent.
type Store interface {
	Init(ctx context.Context) error
	SaveRun(ctx context.Context, run model.RunRecord) error
	GetRun(ctx context.Context, id string) (model.RunRecord, bool, error)
	ListRuns(ctx context.Context) ([]model.RunRecord, error)
	SaveBestGenome(ctx context.Context, runID string, genome model.Genome) error
	GetBestGenome(ctx context.Context, runID string) (model.Genome, bool, error)
	SaveFitnessHistory(ctx context.Context, runID string, history []model.FitnessSample) error
	GetFitnessHistory(ctx context.Context, runID string) ([]model.FitnessSample, bool, error)
	SaveGenerationDiagnostics(ctx context.Context, runID string, diagnostics []model.GenerationDiagnostics) error
	GetGenerationDiagnostics(ctx context.Context, runID string) ([]model.GenerationDiagnostics, bool, error)
}
