// Package goad is the public surface of the adsorption search engine. A
// Client runs genetic searches for low-energy molecule placements on
// crystalline surfaces and answers queries about finished runs.
package goad

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"

	"goad/internal/adsorb"
	"goad/internal/calc"
	"goad/internal/chem"
	"goad/internal/evo"
	"goad/internal/model"
	"goad/internal/stats"
	"goad/internal/storage"
	"goad/internal/surface"
	"goad/internal/torsion"
)

const (
	defaultRunsDir    = "runs"
	defaultExportsDir = "exports"
	defaultDBPath     = "goad.db"
)

type Options struct {
	StoreKind  string
	DBPath     string
	RunsDir    string
	ExportsDir string
	Logger     *zap.Logger
}

type Client struct {
	store  storage.Store
	logger *zap.Logger

	initialized bool
	runsDir     string
	exportsDir  string
}

// RunRequest describes one search. SurfacePath and MoleculePath are
// required; everything else has a sensible default. A nil CrossoverRate
// takes the engine default; an explicit 0 runs mutation-only reproduction.
type RunRequest struct {
	SurfacePath       string
	MoleculePath      string
	Calculator        string
	CalculatorCommand string
	CalculatorArgs    []string
	Population        int
	Generations       int
	EliteCount        int
	CrossoverRate     *float64
	TournamentSize    int
	Workers           int
	Seed              int64
	Penalty           float64
	SearchRadius      float64
	SurfaceBuffer     float64
	MaxHeight         float64
	FreeLayers        int
	SurfaceEnergy     float64
	MoleculeEnergy    float64
}

type RunSummary struct {
	RunID            string
	ArtifactsDir     string
	SurfaceType      string
	TorsionCount     int
	BestByGeneration []float64
	FinalBestEnergy  float64
	Evaluations      int
	Failures         int
}

type RunsRequest struct {
	Limit int
}

type RunItem struct {
	RunID           string
	CreatedAtUTC    string
	Calculator      string
	Seed            int64
	Population      int
	Generations     int
	TorsionCount    int
	FinalBestEnergy float64
}

type FitnessHistoryRequest struct {
	RunID  string
	Latest bool
	Limit  int
}

type DiagnosticsRequest struct {
	RunID  string
	Latest bool
	Limit  int
}

type BestRequest struct {
	RunID  string
	Latest bool
}

type BestSummary struct {
	RunID  string
	Genome model.Genome
	Energy float64
}

type ExportRequest struct {
	RunID  string
	Latest bool
	OutDir string
}

type ExportSummary struct {
	RunID     string
	Directory string
}

func New(opts Options) (*Client, error) {
	storeKind := opts.StoreKind
	if storeKind == "" {
		storeKind = storage.DefaultStoreKind()
	}
	dbPath := opts.DBPath
	if dbPath == "" {
		dbPath = defaultDBPath
	}
	runsDir := opts.RunsDir
	if runsDir == "" {
		runsDir = defaultRunsDir
	}
	exportsDir := opts.ExportsDir
	if exportsDir == "" {
		exportsDir = defaultExportsDir
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	store, err := storage.NewStore(storeKind, dbPath)
	if err != nil {
		return nil, err
	}

	return &Client{
		store:      store,
		logger:     logger,
		runsDir:    runsDir,
		exportsDir: exportsDir,
	}, nil
}

func (c *Client) Close() error {
	return storage.CloseIfSupported(c.store)
}

func (c *Client) Init(ctx context.Context) error {
	return c.ensureStore(ctx)
}

func (c *Client) Run(ctx context.Context, req RunRequest) (RunSummary, error) {
	if req.SurfacePath == "" {
		return RunSummary{}, errors.New("surface path is required")
	}
	if req.MoleculePath == "" {
		return RunSummary{}, errors.New("molecule path is required")
	}
	if req.Calculator == "" {
		req.Calculator = "lj"
	}
	if req.Population <= 0 {
		req.Population = evo.DefaultPopulationSize
	}
	if req.Generations <= 0 {
		req.Generations = evo.DefaultGenerations
	}
	if req.EliteCount <= 0 {
		req.EliteCount = evo.DefaultEliteCount
	}
	if req.EliteCount >= req.Population {
		return RunSummary{}, fmt.Errorf("elite count %d must be below population %d", req.EliteCount, req.Population)
	}
	if req.TournamentSize <= 0 {
		req.TournamentSize = evo.DefaultTournamentSize
	}
	if req.CrossoverRate == nil {
		rate := evo.DefaultCrossoverRate
		req.CrossoverRate = &rate
	}
	if req.Workers <= 0 {
		req.Workers = 4
	}

	surfaceStructure, err := chem.ReadXYZFile(req.SurfacePath)
	if err != nil {
		return RunSummary{}, fmt.Errorf("read surface: %w", err)
	}
	molecule, err := chem.ReadXYZFile(req.MoleculePath)
	if err != nil {
		return RunSummary{}, fmt.Errorf("read molecule: %w", err)
	}

	profile, err := surface.Analyze(surfaceStructure)
	if err != nil {
		return RunSummary{}, fmt.Errorf("analyze surface: %w", err)
	}
	// The GA scores every placement against a fully frozen surface; freed
	// layers only matter to the relaxation stages around it, so the mask is
	// written to the run artifacts instead.
	var relaxMask []bool
	if req.FreeLayers > 0 {
		relaxMask = profile.FixedMask(len(surfaceStructure.Atoms), req.FreeLayers)
	}

	rotatable := chem.DetectRotatableBonds(molecule)
	torsions, err := torsion.New(molecule, rotatable)
	if err != nil {
		return RunSummary{}, fmt.Errorf("torsion model: %w", err)
	}

	calculator, err := calculatorFromRequest(req)
	if err != nil {
		return RunSummary{}, err
	}

	evaluator, err := adsorb.NewEvaluator(adsorb.EvaluatorConfig{
		Calculator:     calculator,
		Surface:        surfaceStructure,
		Molecule:       molecule,
		Torsions:       torsions,
		SurfaceEnergy:  req.SurfaceEnergy,
		MoleculeEnergy: req.MoleculeEnergy,
		Penalty:        req.Penalty,
		Logger:         c.logger,
	})
	if err != nil {
		return RunSummary{}, err
	}

	codec, err := evo.NewCodec(profile, torsions.Count())
	if err != nil {
		return RunSummary{}, err
	}
	if req.SearchRadius > 0 {
		codec.SearchRadius = req.SearchRadius
	}
	if req.SurfaceBuffer > 0 {
		codec.SurfaceBuffer = req.SurfaceBuffer
	}
	if req.MaxHeight > 0 {
		codec.MaxHeight = req.MaxHeight
	}

	monitor, err := evo.NewMonitor(evo.MonitorConfig{
		Evaluator:      evaluator,
		Codec:          codec,
		PopulationSize: req.Population,
		Generations:    req.Generations,
		EliteCount:     req.EliteCount,
		CrossoverRate:  req.CrossoverRate,
		Selector:       evo.TournamentSelector{Size: req.TournamentSize},
		Workers:        req.Workers,
		Seed:           req.Seed,
		Logger:         c.logger,
	})
	if err != nil {
		return RunSummary{}, err
	}

	now := time.Now().UTC()
	runID := fmt.Sprintf("%s-%d-%d", moleculeName(req.MoleculePath), req.Seed, now.Unix())
	c.logger.Info("starting run",
		zap.String("run_id", runID),
		zap.String("calculator", calculator.Name()),
		zap.String("surface_type", profile.Type),
		zap.Int("torsion_count", torsions.Count()),
	)

	result, err := monitor.Run(ctx)
	if err != nil {
		return RunSummary{}, err
	}
	if !result.Best.Evaluated() {
		return RunSummary{}, errors.New("search produced no evaluated genome")
	}

	cfg := stats.RunConfig{
		RunID:             runID,
		SurfacePath:       req.SurfacePath,
		MoleculePath:      req.MoleculePath,
		Calculator:        calculator.Name(),
		CalculatorCommand: req.CalculatorCommand,
		CalculatorArgs:    req.CalculatorArgs,
		PopulationSize:    req.Population,
		Generations:       req.Generations,
		EliteCount:        req.EliteCount,
		CrossoverRate:     *req.CrossoverRate,
		TournamentSize:    req.TournamentSize,
		Workers:           req.Workers,
		Seed:              req.Seed,
		Penalty:           evaluator.Penalty(),
		SearchRadius:      codec.SearchRadius,
		SurfaceBuffer:     codec.SurfaceBuffer,
		MaxHeight:         codec.MaxHeight,
		FreeLayers:        req.FreeLayers,
		SurfaceEnergy:     req.SurfaceEnergy,
		MoleculeEnergy:    req.MoleculeEnergy,
		TorsionCount:      torsions.Count(),
	}

	best := result.Best
	best.SchemaVersion = storage.CurrentSchemaVersion
	best.CodecVersion = storage.CurrentCodecVersion

	runDir, err := stats.WriteRunArtifacts(c.runsDir, stats.RunArtifacts{
		Config:                cfg,
		BestByGeneration:      result.BestByGeneration,
		FitnessHistory:        result.History,
		GenerationDiagnostics: result.Diagnostics,
		FinalBestEnergy:       result.BestEnergy,
		BestGenome:            best,
		BestStructure:         best.Structure,
		RelaxationMask:        relaxMask,
	})
	if err != nil {
		return RunSummary{}, err
	}
	if err := stats.AppendRunIndex(c.runsDir, stats.RunIndexEntry{
		RunID:           runID,
		Calculator:      calculator.Name(),
		PopulationSize:  req.Population,
		Generations:     req.Generations,
		Seed:            req.Seed,
		EliteCount:      req.EliteCount,
		TorsionCount:    torsions.Count(),
		FinalBestEnergy: result.BestEnergy,
		CreatedAtUTC:    now.Format(time.RFC3339Nano),
	}); err != nil {
		return RunSummary{}, err
	}

	if err := c.ensureStore(ctx); err != nil {
		return RunSummary{}, err
	}
	record := model.RunRecord{
		VersionedRecord: model.VersionedRecord{
			SchemaVersion: storage.CurrentSchemaVersion,
			CodecVersion:  storage.CurrentCodecVersion,
		},
		ID:             runID,
		CreatedAtUTC:   now.Format(time.RFC3339Nano),
		SurfacePath:    req.SurfacePath,
		MoleculePath:   req.MoleculePath,
		Calculator:     calculator.Name(),
		PopulationSize: req.Population,
		Generations:    req.Generations,
		EliteCount:     req.EliteCount,
		Seed:           req.Seed,
		TorsionCount:   torsions.Count(),
		BestEnergy:     result.BestEnergy,
	}
	if err := c.store.SaveRun(ctx, record); err != nil {
		return RunSummary{}, err
	}
	if err := c.store.SaveBestGenome(ctx, runID, best); err != nil {
		return RunSummary{}, err
	}
	if err := c.store.SaveFitnessHistory(ctx, runID, result.History); err != nil {
		return RunSummary{}, err
	}
	if err := c.store.SaveGenerationDiagnostics(ctx, runID, result.Diagnostics); err != nil {
		return RunSummary{}, err
	}

	return RunSummary{
		RunID:            runID,
		ArtifactsDir:     filepath.Clean(runDir),
		SurfaceType:      profile.Type,
		TorsionCount:     torsions.Count(),
		BestByGeneration: append([]float64(nil), result.BestByGeneration...),
		FinalBestEnergy:  result.BestEnergy,
		Evaluations:      result.Evaluations,
		Failures:         evaluator.Failures(),
	}, nil
}

func (c *Client) Runs(_ context.Context, req RunsRequest) ([]RunItem, error) {
	if req.Limit <= 0 {
		req.Limit = 20
	}

	entries, err := stats.ListRunIndex(c.runsDir)
	if err != nil {
		return nil, err
	}
	if len(entries) > req.Limit {
		entries = entries[:req.Limit]
	}

	out := make([]RunItem, 0, len(entries))
	for _, e := range entries {
		out = append(out, RunItem{
			RunID:           e.RunID,
			CreatedAtUTC:    e.CreatedAtUTC,
			Calculator:      e.Calculator,
			Seed:            e.Seed,
			Population:      e.PopulationSize,
			Generations:     e.Generations,
			TorsionCount:    e.TorsionCount,
			FinalBestEnergy: e.FinalBestEnergy,
		})
	}
	return out, nil
}

func (c *Client) FitnessHistory(ctx context.Context, req FitnessHistoryRequest) ([]model.FitnessSample, error) {
	if req.Limit < 0 {
		return nil, errors.New("limit must be >= 0")
	}
	runID, err := c.resolveRunID(req.RunID, req.Latest)
	if err != nil {
		return nil, err
	}

	if err := c.ensureStore(ctx); err != nil {
		return nil, err
	}
	history, ok, err := c.store.GetFitnessHistory(ctx, runID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("fitness history not found for run id: %s", runID)
	}
	if req.Limit > 0 && len(history) > req.Limit {
		history = history[:req.Limit]
	}
	return history, nil
}

func (c *Client) Diagnostics(ctx context.Context, req DiagnosticsRequest) ([]model.GenerationDiagnostics, error) {
	if req.Limit < 0 {
		return nil, errors.New("limit must be >= 0")
	}
	runID, err := c.resolveRunID(req.RunID, req.Latest)
	if err != nil {
		return nil, err
	}

	if err := c.ensureStore(ctx); err != nil {
		return nil, err
	}
	diagnostics, ok, err := c.store.GetGenerationDiagnostics(ctx, runID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("diagnostics not found for run id: %s", runID)
	}
	if req.Limit > 0 && len(diagnostics) > req.Limit {
		diagnostics = diagnostics[:req.Limit]
	}
	return diagnostics, nil
}

func (c *Client) Best(ctx context.Context, req BestRequest) (BestSummary, error) {
	runID, err := c.resolveRunID(req.RunID, req.Latest)
	if err != nil {
		return BestSummary{}, err
	}

	if err := c.ensureStore(ctx); err != nil {
		return BestSummary{}, err
	}
	genome, ok, err := c.store.GetBestGenome(ctx, runID)
	if err != nil {
		return BestSummary{}, err
	}
	if !ok {
		return BestSummary{}, fmt.Errorf("best genome not found for run id: %s", runID)
	}
	summary := BestSummary{RunID: runID, Genome: genome}
	if genome.Energy != nil {
		summary.Energy = *genome.Energy
	}
	return summary, nil
}

func (c *Client) Export(_ context.Context, req ExportRequest) (ExportSummary, error) {
	runID, err := c.resolveRunID(req.RunID, req.Latest)
	if err != nil {
		return ExportSummary{}, err
	}
	if req.OutDir == "" {
		req.OutDir = c.exportsDir
	}

	exportedDir, err := stats.ExportRunArtifacts(c.runsDir, runID, req.OutDir)
	if err != nil {
		return ExportSummary{}, err
	}
	return ExportSummary{RunID: runID, Directory: filepath.Clean(exportedDir)}, nil
}

func (c *Client) ensureStore(ctx context.Context) error {
	if c.initialized {
		return nil
	}
	if err := c.store.Init(ctx); err != nil {
		return err
	}
	c.initialized = true
	return nil
}

func (c *Client) resolveRunID(runID string, latest bool) (string, error) {
	if runID != "" && latest {
		return "", errors.New("use either run id or latest")
	}
	if latest {
		entries, err := stats.ListRunIndex(c.runsDir)
		if err != nil {
			return "", err
		}
		if len(entries) == 0 {
			return "", errors.New("no runs available")
		}
		return entries[0].RunID, nil
	}
	if runID == "" {
		return "", errors.New("run id or latest is required")
	}
	return runID, nil
}

func calculatorFromRequest(req RunRequest) (calc.Calculator, error) {
	switch req.Calculator {
	case "lj":
		return &calc.LennardJones{}, nil
	case "command":
		if req.CalculatorCommand == "" {
			return nil, errors.New("calculator command is required for the command backend")
		}
		return &calc.Command{Program: req.CalculatorCommand, Args: req.CalculatorArgs}, nil
	default:
		return nil, fmt.Errorf("unsupported calculator: %s", req.Calculator)
	}
}

func moleculeName(path string) string {
	name := filepath.Base(path)
	return strings.TrimSuffix(name, filepath.Ext(name))
}
