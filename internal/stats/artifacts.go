// Package stats writes and reads on-disk run artifacts: per-run JSON files,
// the CSV energy series, the exported best placement and the run index.
package stats

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"goad/internal/chem"
	"goad/internal/model"
)

const (
	runIndexFile  = "run_index.json"
	bestXYZFile   = "best.xyz"
	relaxMaskFile = "relaxation_mask.json"
)

// RunConfig is the full input of one run, persisted verbatim so a run can be
// reproduced from its artifacts alone.
type RunConfig struct {
	RunID             string   `json:"run_id"`
	SurfacePath       string   `json:"surface_path"`
	MoleculePath      string   `json:"molecule_path"`
	Calculator        string   `json:"calculator"`
	CalculatorCommand string   `json:"calculator_command,omitempty"`
	CalculatorArgs    []string `json:"calculator_args,omitempty"`
	PopulationSize    int      `json:"population_size"`
	Generations       int      `json:"generations"`
	EliteCount        int      `json:"elite_count"`
	CrossoverRate     float64  `json:"crossover_rate"`
	TournamentSize    int      `json:"tournament_size"`
	Workers           int      `json:"workers"`
	Seed              int64    `json:"seed"`
	Penalty           float64  `json:"penalty"`
	SearchRadius      float64  `json:"search_radius"`
	SurfaceBuffer     float64  `json:"surface_buffer"`
	MaxHeight         float64  `json:"max_height"`
	FreeLayers        int      `json:"free_layers"`
	SurfaceEnergy     float64  `json:"surface_energy"`
	MoleculeEnergy    float64  `json:"molecule_energy"`
	TorsionCount      int      `json:"torsion_count"`
}

// RunArtifacts is everything one run produces.
type RunArtifacts struct {
	Config                RunConfig                     `json:"config"`
	BestByGeneration      []float64                     `json:"best_by_generation"`
	FitnessHistory        []model.FitnessSample         `json:"fitness_history,omitempty"`
	GenerationDiagnostics []model.GenerationDiagnostics `json:"generation_diagnostics,omitempty"`
	FinalBestEnergy       float64                       `json:"final_best_energy"`
	BestGenome            model.Genome                  `json:"best_genome"`
	BestStructure         *model.Structure              `json:"-"`
	// RelaxationMask is the per-surface-atom fixed mask for the relaxation
	// stages around the search; the search itself fixes the whole surface.
	RelaxationMask []bool `json:"-"`
}

// RunIndexEntry is one line of the cross-run index.
type RunIndexEntry struct {
	RunID           string  `json:"run_id"`
	Calculator      string  `json:"calculator"`
	PopulationSize  int     `json:"population_size"`
	Generations     int     `json:"generations"`
	Seed            int64   `json:"seed"`
	EliteCount      int     `json:"elite_count"`
	TorsionCount    int     `json:"torsion_count"`
	FinalBestEnergy float64 `json:"final_best_energy"`
	CreatedAtUTC    string  `json:"created_at_utc"`
}

// WriteRunArtifacts writes the run directory under baseDir and returns its
// path. The best structure, when present, is written as an XYZ file next to
// the JSON artifacts.
func WriteRunArtifacts(baseDir string, artifacts RunArtifacts) (string, error) {
	if artifacts.Config.RunID == "" {
		return "", fmt.Errorf("run id is required")
	}

	runDir := filepath.Join(baseDir, artifacts.Config.RunID)
	if err := os.MkdirAll(runDir, 0o755); err != nil {
		return "", err
	}

	if err := writeJSON(filepath.Join(runDir, "config.json"), artifacts.Config); err != nil {
		return "", err
	}
	if err := writeJSON(filepath.Join(runDir, "fitness_history.json"), map[string]any{
		"best_by_generation": artifacts.BestByGeneration,
		"samples":            artifacts.FitnessHistory,
		"final_best_energy":  artifacts.FinalBestEnergy,
	}); err != nil {
		return "", err
	}
	if err := writeJSON(filepath.Join(runDir, "generation_diagnostics.json"), artifacts.GenerationDiagnostics); err != nil {
		return "", err
	}
	if err := writeJSON(filepath.Join(runDir, "best_genome.json"), artifacts.BestGenome); err != nil {
		return "", err
	}
	if err := WriteEnergySeries(runDir, artifacts.BestByGeneration); err != nil {
		return "", err
	}
	if artifacts.BestStructure != nil {
		if err := chem.WriteXYZFile(filepath.Join(runDir, bestXYZFile), *artifacts.BestStructure,
			fmt.Sprintf("run %s E_ads=%g", artifacts.Config.RunID, artifacts.FinalBestEnergy)); err != nil {
			return "", err
		}
	}
	if len(artifacts.RelaxationMask) > 0 {
		if err := writeJSON(filepath.Join(runDir, relaxMaskFile), map[string]any{
			"free_layers":   artifacts.Config.FreeLayers,
			"surface_fixed": artifacts.RelaxationMask,
		}); err != nil {
			return "", err
		}
	}

	return runDir, nil
}

func AppendRunIndex(baseDir string, entry RunIndexEntry) error {
	if entry.RunID == "" {
		return fmt.Errorf("run id is required")
	}
	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		return err
	}

	index, err := ListRunIndex(baseDir)
	if err != nil {
		return err
	}

	for i := range index {
		if index[i].RunID == entry.RunID {
			index[i] = entry
			return writeJSON(filepath.Join(baseDir, runIndexFile), index)
		}
	}

	index = append(index, entry)
	return writeJSON(filepath.Join(baseDir, runIndexFile), index)
}

// ListRunIndex returns the index newest first.
func ListRunIndex(baseDir string) ([]RunIndexEntry, error) {
	path := filepath.Join(baseDir, runIndexFile)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return []RunIndexEntry{}, nil
		}
		return nil, err
	}

	var entries []RunIndexEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, err
	}

	type indexedEntry struct {
		entry RunIndexEntry
		idx   int
	}
	indexed := make([]indexedEntry, len(entries))
	for i := range entries {
		indexed[i] = indexedEntry{entry: entries[i], idx: i}
	}
	sort.Slice(indexed, func(i, j int) bool {
		if indexed[i].entry.CreatedAtUTC == indexed[j].entry.CreatedAtUTC {
			// Prefer later appended entries for equal timestamps.
			return indexed[i].idx > indexed[j].idx
		}
		return indexed[i].entry.CreatedAtUTC > indexed[j].entry.CreatedAtUTC
	})

	sorted := make([]RunIndexEntry, 0, len(indexed))
	for _, item := range indexed {
		sorted = append(sorted, item.entry)
	}
	return sorted, nil
}

// ExportRunArtifacts copies a run's artifact files into outDir/runID.
func ExportRunArtifacts(baseDir, runID, outDir string) (string, error) {
	if runID == "" {
		return "", fmt.Errorf("run id is required")
	}

	src := filepath.Join(baseDir, runID)
	if _, err := os.Stat(src); err != nil {
		return "", err
	}

	dst := filepath.Join(outDir, runID)
	if err := os.MkdirAll(dst, 0o755); err != nil {
		return "", err
	}

	files := []string{"config.json", "fitness_history.json", "generation_diagnostics.json", "best_genome.json", "energy_series.csv"}
	for _, file := range files {
		if err := copyFile(filepath.Join(src, file), filepath.Join(dst, file)); err != nil {
			return "", err
		}
	}
	for _, file := range []string{bestXYZFile, relaxMaskFile} {
		srcPath := filepath.Join(src, file)
		if _, err := os.Stat(srcPath); err == nil {
			if err := copyFile(srcPath, filepath.Join(dst, file)); err != nil {
				return "", err
			}
		} else if !os.IsNotExist(err) {
			return "", err
		}
	}

	return dst, nil
}

func ReadRunConfig(baseDir, runID string) (RunConfig, bool, error) {
	path := filepath.Join(baseDir, runID, "config.json")
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return RunConfig{}, false, nil
		}
		return RunConfig{}, false, err
	}

	var cfg RunConfig
	if err := json.Unmarshal(data, &cfg); err != nil {
		return RunConfig{}, false, err
	}
	return cfg, true, nil
}

func WriteRunConfig(baseDir, runID string, cfg RunConfig) error {
	if strings.TrimSpace(runID) == "" {
		return fmt.Errorf("run id is required")
	}
	if strings.TrimSpace(cfg.RunID) == "" {
		cfg.RunID = strings.TrimSpace(runID)
	}
	if cfg.RunID != strings.TrimSpace(runID) {
		return fmt.Errorf("run config run id mismatch: got=%s want=%s", cfg.RunID, strings.TrimSpace(runID))
	}
	runDir := filepath.Join(baseDir, runID)
	if err := os.MkdirAll(runDir, 0o755); err != nil {
		return err
	}
	return writeJSON(filepath.Join(runDir, "config.json"), cfg)
}

func ReadBestGenome(baseDir, runID string) (model.Genome, bool, error) {
	path := filepath.Join(baseDir, runID, "best_genome.json")
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return model.Genome{}, false, nil
		}
		return model.Genome{}, false, err
	}

	var genome model.Genome
	if err := json.Unmarshal(data, &genome); err != nil {
		return model.Genome{}, false, err
	}
	return genome, true, nil
}

// WriteEnergySeries writes the per-generation best energies as CSV.
func WriteEnergySeries(runDir string, bestByGeneration []float64) error {
	path := filepath.Join(runDir, "energy_series.csv")
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	if err := writer.Write([]string{"generation", "best_energy"}); err != nil {
		return err
	}
	for i, best := range bestByGeneration {
		if err := writer.Write([]string{
			strconv.Itoa(i),
			strconv.FormatFloat(best, 'f', -1, 64),
		}); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}

func ReadEnergySeries(baseDir, runID string) ([]float64, bool, error) {
	path := filepath.Join(baseDir, runID, "energy_series.csv")
	file, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, false, nil
		}
		return nil, false, err
	}
	defer file.Close()

	reader := csv.NewReader(file)
	header, err := reader.Read()
	if err != nil {
		if err == io.EOF {
			return []float64{}, true, nil
		}
		return nil, false, err
	}
	if len(header) < 2 {
		return nil, false, fmt.Errorf("energy series header must have at least 2 columns")
	}

	series := make([]float64, 0, 128)
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, false, err
		}
		if len(record) < 2 {
			return nil, false, fmt.Errorf("energy series row must have at least 2 columns")
		}
		value, err := strconv.ParseFloat(record[1], 64)
		if err != nil {
			return nil, false, err
		}
		series = append(series, value)
	}
	return series, true, nil
}

func writeJSON(path string, value any) error {
	data, err := json.MarshalIndent(value, "", "  ")
	if err != nil {
		return err
	}
	data = append(data, '\n')
	return os.WriteFile(path, data, 0o644)
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer out.Close()

	if _, err := io.Copy(out, in); err != nil {
		return err
	}
	return out.Sync()
}
