package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"

	"go.uber.org/zap"

	"goad/internal/storage"
	goadapi "goad/pkg/goad"
)

const (
	runsDir    = "runs"
	exportsDir = "exports"
)

func main() {
	if err := run(context.Background(), os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return usageError("missing command")
	}

	switch args[0] {
	case "init":
		return runInit(ctx, args[1:])
	case "run":
		return runRun(ctx, args[1:])
	case "runs":
		return runRuns(ctx, args[1:])
	case "fitness":
		return runFitness(ctx, args[1:])
	case "diagnostics":
		return runDiagnostics(ctx, args[1:])
	case "best":
		return runBest(ctx, args[1:])
	case "export":
		return runExport(ctx, args[1:])
	default:
		return usageError(fmt.Sprintf("unknown command: %s", args[0]))
	}
}

func runInit(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("init", flag.ContinueOnError)
	storeKind := fs.String("store", storage.DefaultStoreKind(), "store backend: memory|sqlite")
	dbPath := fs.String("db-path", "goad.db", "sqlite database path")
	if err := fs.Parse(args); err != nil {
		return err
	}

	client, err := goadapi.New(goadapi.Options{
		StoreKind:  *storeKind,
		DBPath:     *dbPath,
		RunsDir:    runsDir,
		ExportsDir: exportsDir,
	})
	if err != nil {
		return err
	}
	defer func() {
		_ = client.Close()
	}()

	if err := client.Init(ctx); err != nil {
		return err
	}
	fmt.Printf("initialized store=%s\n", *storeKind)
	return nil
}

func runRun(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("run", flag.ContinueOnError)
	configPath := fs.String("config", "", "optional run config JSON path")
	surfacePath := fs.String("surface", "", "surface XYZ path")
	moleculePath := fs.String("molecule", "", "molecule XYZ path")
	calculator := fs.String("calculator", "lj", "energy calculator: lj|command")
	calculatorCommand := fs.String("calculator-command", "", "program to invoke for calculator=command")
	population := fs.Int("pop", 20, "population size")
	generations := fs.Int("gens", 50, "generation count")
	eliteCount := fs.Int("elite", 2, "elite genomes carried into each generation")
	crossoverRate := fs.Float64("crossover-rate", 0.7, "probability a child is bred from two parents")
	tournamentSize := fs.Int("tournament", 5, "tournament size for parent selection")
	workers := fs.Int("workers", 4, "concurrent evaluation workers")
	seed := fs.Int64("seed", 1, "rng seed")
	penalty := fs.Float64("penalty", 0, "energy assigned to failed evaluations (0 uses default)")
	searchRadius := fs.Float64("search-radius", 0, "lateral search radius in angstrom (0 uses default)")
	surfaceBuffer := fs.Float64("surface-buffer", 0, "minimum height above the surface in angstrom (0 uses default)")
	maxHeight := fs.Float64("max-height", 0, "maximum initial height above the surface in angstrom (0 uses default)")
	freeLayers := fs.Int("free-layers", 0, "top surface layers left free in the fixed mask")
	surfaceEnergy := fs.Float64("surface-energy", 0, "reference energy of the isolated surface")
	moleculeEnergy := fs.Float64("molecule-energy", 0, "reference energy of the isolated molecule")
	storeKind := fs.String("store", storage.DefaultStoreKind(), "store backend: memory|sqlite")
	dbPath := fs.String("db-path", "goad.db", "sqlite database path")
	verbose := fs.Bool("verbose", false, "log generation progress")
	if err := fs.Parse(args); err != nil {
		return err
	}
	setFlags := make(map[string]bool)
	fs.Visit(func(f *flag.Flag) {
		setFlags[f.Name] = true
	})

	req, err := loadOrDefaultRunRequest(*configPath)
	if err != nil {
		return err
	}
	if *configPath == "" {
		req = goadapi.RunRequest{
			SurfacePath:       *surfacePath,
			MoleculePath:      *moleculePath,
			Calculator:        *calculator,
			CalculatorCommand: *calculatorCommand,
			CalculatorArgs:    fs.Args(),
			Population:        *population,
			Generations:       *generations,
			EliteCount:        *eliteCount,
			CrossoverRate:     crossoverRate,
			TournamentSize:    *tournamentSize,
			Workers:           *workers,
			Seed:              *seed,
			Penalty:           *penalty,
			SearchRadius:      *searchRadius,
			SurfaceBuffer:     *surfaceBuffer,
			MaxHeight:         *maxHeight,
			FreeLayers:        *freeLayers,
			SurfaceEnergy:     *surfaceEnergy,
			MoleculeEnergy:    *moleculeEnergy,
		}
	} else if err := overrideFromFlags(&req, setFlags, map[string]any{
		"surface":            *surfacePath,
		"molecule":           *moleculePath,
		"calculator":         *calculator,
		"calculator-command": *calculatorCommand,
		"pop":                *population,
		"gens":               *generations,
		"elite":              *eliteCount,
		"crossover-rate":     *crossoverRate,
		"tournament":         *tournamentSize,
		"workers":            *workers,
		"seed":               *seed,
		"penalty":            *penalty,
		"search-radius":      *searchRadius,
		"surface-buffer":     *surfaceBuffer,
		"max-height":         *maxHeight,
		"free-layers":        *freeLayers,
		"surface-energy":     *surfaceEnergy,
		"molecule-energy":    *moleculeEnergy,
	}); err != nil {
		return err
	}

	logger := zap.NewNop()
	if *verbose {
		logger, err = zap.NewDevelopment()
		if err != nil {
			return err
		}
		defer func() {
			_ = logger.Sync()
		}()
	}

	client, err := goadapi.New(goadapi.Options{
		StoreKind:  *storeKind,
		DBPath:     *dbPath,
		RunsDir:    runsDir,
		ExportsDir: exportsDir,
		Logger:     logger,
	})
	if err != nil {
		return err
	}
	defer func() {
		_ = client.Close()
	}()

	summary, err := client.Run(ctx, req)
	if err != nil {
		return err
	}

	fmt.Printf("run_id=%s surface=%s torsions=%d evaluations=%d failures=%d best_energy=%.6f artifacts=%s\n",
		summary.RunID,
		summary.SurfaceType,
		summary.TorsionCount,
		summary.Evaluations,
		summary.Failures,
		summary.FinalBestEnergy,
		summary.ArtifactsDir,
	)
	return nil
}

func runRuns(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("runs", flag.ContinueOnError)
	limit := fs.Int("limit", 20, "max runs to print")
	jsonOut := fs.Bool("json", false, "emit runs as JSON")
	if err := fs.Parse(args); err != nil {
		return err
	}

	client, err := goadapi.New(goadapi.Options{StoreKind: "memory", RunsDir: runsDir, ExportsDir: exportsDir})
	if err != nil {
		return err
	}
	defer func() {
		_ = client.Close()
	}()

	runs, err := client.Runs(ctx, goadapi.RunsRequest{Limit: *limit})
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		fmt.Println("no runs")
		return nil
	}
	if *jsonOut {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(runs)
	}

	for _, r := range runs {
		fmt.Printf("run_id=%s created=%s calculator=%s seed=%d pop=%d gens=%d torsions=%d best_energy=%.6f\n",
			r.RunID,
			r.CreatedAtUTC,
			r.Calculator,
			r.Seed,
			r.Population,
			r.Generations,
			r.TorsionCount,
			r.FinalBestEnergy,
		)
	}
	return nil
}

func runFitness(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("fitness", flag.ContinueOnError)
	runID := fs.String("run-id", "", "run id")
	latest := fs.Bool("latest", false, "show fitness history for the most recent run")
	limit := fs.Int("limit", 50, "max samples to print (<=0 for all)")
	jsonOut := fs.Bool("json", false, "emit fitness history as JSON")
	storeKind := fs.String("store", storage.DefaultStoreKind(), "store backend: memory|sqlite")
	dbPath := fs.String("db-path", "goad.db", "sqlite database path")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *runID != "" && *latest {
		return errors.New("use either --run-id or --latest, not both")
	}
	if *runID == "" && !*latest {
		return errors.New("fitness requires --run-id or --latest")
	}

	client, err := goadapi.New(goadapi.Options{
		StoreKind:  *storeKind,
		DBPath:     *dbPath,
		RunsDir:    runsDir,
		ExportsDir: exportsDir,
	})
	if err != nil {
		return err
	}
	defer func() {
		_ = client.Close()
	}()

	history, err := client.FitnessHistory(ctx, goadapi.FitnessHistoryRequest{
		RunID:  *runID,
		Latest: *latest,
		Limit:  *limit,
	})
	if err != nil {
		return err
	}
	if len(history) == 0 {
		fmt.Println("no fitness history")
		return nil
	}
	if *jsonOut {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(history)
	}

	for _, sample := range history {
		fmt.Printf("generation=%d genome=%s energy=%.6f\n", sample.Generation, sample.GenomeID, sample.Energy)
	}
	return nil
}

func runDiagnostics(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("diagnostics", flag.ContinueOnError)
	runID := fs.String("run-id", "", "run id")
	latest := fs.Bool("latest", false, "show diagnostics for the most recent run")
	limit := fs.Int("limit", 50, "max generations to print (<=0 for all)")
	jsonOut := fs.Bool("json", false, "emit diagnostics as JSON")
	storeKind := fs.String("store", storage.DefaultStoreKind(), "store backend: memory|sqlite")
	dbPath := fs.String("db-path", "goad.db", "sqlite database path")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *runID != "" && *latest {
		return errors.New("use either --run-id or --latest, not both")
	}
	if *runID == "" && !*latest {
		return errors.New("diagnostics requires --run-id or --latest")
	}

	client, err := goadapi.New(goadapi.Options{
		StoreKind:  *storeKind,
		DBPath:     *dbPath,
		RunsDir:    runsDir,
		ExportsDir: exportsDir,
	})
	if err != nil {
		return err
	}
	defer func() {
		_ = client.Close()
	}()

	diagnostics, err := client.Diagnostics(ctx, goadapi.DiagnosticsRequest{
		RunID:  *runID,
		Latest: *latest,
		Limit:  *limit,
	})
	if err != nil {
		return err
	}
	if len(diagnostics) == 0 {
		fmt.Println("no diagnostics")
		return nil
	}
	if *jsonOut {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(diagnostics)
	}

	for _, d := range diagnostics {
		fmt.Printf("generation=%d best=%.6f mean=%.6f worst=%.6f overall_best=%.6f evaluations=%d failures=%d\n",
			d.Generation,
			d.BestEnergy,
			d.MeanEnergy,
			d.WorstEnergy,
			d.OverallBest,
			d.Evaluations,
			d.Failures,
		)
	}
	return nil
}

func runBest(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("best", flag.ContinueOnError)
	runID := fs.String("run-id", "", "run id")
	latest := fs.Bool("latest", false, "show the best placement of the most recent run")
	jsonOut := fs.Bool("json", false, "emit the best genome as JSON")
	storeKind := fs.String("store", storage.DefaultStoreKind(), "store backend: memory|sqlite")
	dbPath := fs.String("db-path", "goad.db", "sqlite database path")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *runID != "" && *latest {
		return errors.New("use either --run-id or --latest, not both")
	}
	if *runID == "" && !*latest {
		return errors.New("best requires --run-id or --latest")
	}

	client, err := goadapi.New(goadapi.Options{
		StoreKind:  *storeKind,
		DBPath:     *dbPath,
		RunsDir:    runsDir,
		ExportsDir: exportsDir,
	})
	if err != nil {
		return err
	}
	defer func() {
		_ = client.Close()
	}()

	best, err := client.Best(ctx, goadapi.BestRequest{RunID: *runID, Latest: *latest})
	if err != nil {
		return err
	}
	if *jsonOut {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(best)
	}

	fmt.Printf("run_id=%s genome=%s energy=%.6f position=(%.4f, %.4f, %.4f) orientation=(%.2f, %.2f, %.2f) torsions=%v\n",
		best.RunID,
		best.Genome.ID,
		best.Energy,
		best.Genome.Position[0], best.Genome.Position[1], best.Genome.Position[2],
		best.Genome.Orientation[0], best.Genome.Orientation[1], best.Genome.Orientation[2],
		best.Genome.Torsions,
	)
	return nil
}

func runExport(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("export", flag.ContinueOnError)
	runID := fs.String("run-id", "", "run id")
	latest := fs.Bool("latest", false, "export the most recent run")
	outDir := fs.String("out", "", "output directory (defaults to exports/)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	client, err := goadapi.New(goadapi.Options{StoreKind: "memory", RunsDir: runsDir, ExportsDir: exportsDir})
	if err != nil {
		return err
	}
	defer func() {
		_ = client.Close()
	}()

	exported, err := client.Export(ctx, goadapi.ExportRequest{
		RunID:  *runID,
		Latest: *latest,
		OutDir: *outDir,
	})
	if err != nil {
		return err
	}
	fmt.Printf("exported run_id=%s dir=%s\n", exported.RunID, exported.Directory)
	return nil
}

func usageError(msg string) error {
	return fmt.Errorf("%s\nusage: goadctl <init|run|runs|fitness|diagnostics|best|export> [flags]", msg)
}
