package main

import (
	"encoding/json"
	"fmt"
	"os"

	goadapi "goad/pkg/goad"
)

func loadRunRequestFromConfig(path string) (goadapi.RunRequest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return goadapi.RunRequest{}, err
	}
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return goadapi.RunRequest{}, err
	}

	var req goadapi.RunRequest
	if v, ok := asString(raw["surface_path"]); ok {
		req.SurfacePath = v
	}
	if v, ok := asString(raw["molecule_path"]); ok {
		req.MoleculePath = v
	}
	if v, ok := asString(raw["calculator"]); ok {
		req.Calculator = v
	}
	if v, ok := asString(raw["calculator_command"]); ok {
		req.CalculatorCommand = v
	}
	if v, ok := asStringSlice(raw["calculator_args"]); ok {
		req.CalculatorArgs = v
	}
	if v, ok := asInt(raw["population"]); ok {
		req.Population = v
	}
	if v, ok := asInt(raw["generations"]); ok {
		req.Generations = v
	}
	if v, ok := asInt(raw["elite_count"]); ok {
		req.EliteCount = v
	}
	if v, ok := asFloat64(raw["crossover_rate"]); ok {
		req.CrossoverRate = &v
	}
	if v, ok := asInt(raw["tournament_size"]); ok {
		req.TournamentSize = v
	}
	if v, ok := asInt(raw["workers"]); ok {
		req.Workers = v
	}
	if v, ok := asInt64(raw["seed"]); ok {
		req.Seed = v
	}
	if v, ok := asFloat64(raw["penalty"]); ok {
		req.Penalty = v
	}
	if v, ok := asFloat64(raw["search_radius"]); ok {
		req.SearchRadius = v
	}
	if v, ok := asFloat64(raw["surface_buffer"]); ok {
		req.SurfaceBuffer = v
	}
	if v, ok := asFloat64(raw["max_height"]); ok {
		req.MaxHeight = v
	}
	if v, ok := asInt(raw["free_layers"]); ok {
		req.FreeLayers = v
	}
	if v, ok := asFloat64(raw["surface_energy"]); ok {
		req.SurfaceEnergy = v
	}
	if v, ok := asFloat64(raw["molecule_energy"]); ok {
		req.MoleculeEnergy = v
	}

	return req, nil
}

func loadOrDefaultRunRequest(configPath string) (goadapi.RunRequest, error) {
	if configPath == "" {
		return goadapi.RunRequest{}, nil
	}
	req, err := loadRunRequestFromConfig(configPath)
	if err != nil {
		return goadapi.RunRequest{}, fmt.Errorf("load config: %w", err)
	}
	return req, nil
}

func overrideFromFlags(req *goadapi.RunRequest, set map[string]bool, flagValue map[string]any) error {
	for name := range set {
		v, ok := flagValue[name]
		if !ok {
			continue
		}
		switch name {
		case "surface":
			req.SurfacePath = v.(string)
		case "molecule":
			req.MoleculePath = v.(string)
		case "calculator":
			req.Calculator = v.(string)
		case "calculator-command":
			req.CalculatorCommand = v.(string)
		case "pop":
			req.Population = v.(int)
		case "gens":
			req.Generations = v.(int)
		case "elite":
			req.EliteCount = v.(int)
		case "crossover-rate":
			rate := v.(float64)
			req.CrossoverRate = &rate
		case "tournament":
			req.TournamentSize = v.(int)
		case "workers":
			req.Workers = v.(int)
		case "seed":
			req.Seed = v.(int64)
		case "penalty":
			req.Penalty = v.(float64)
		case "search-radius":
			req.SearchRadius = v.(float64)
		case "surface-buffer":
			req.SurfaceBuffer = v.(float64)
		case "max-height":
			req.MaxHeight = v.(float64)
		case "free-layers":
			req.FreeLayers = v.(int)
		case "surface-energy":
			req.SurfaceEnergy = v.(float64)
		case "molecule-energy":
			req.MoleculeEnergy = v.(float64)
		}
	}
	return nil
}

func asString(v any) (string, bool) {
	s, ok := v.(string)
	return s, ok
}

func asStringSlice(v any) ([]string, bool) {
	items, ok := v.([]any)
	if !ok {
		return nil, false
	}
	out := make([]string, 0, len(items))
	for _, item := range items {
		s, ok := item.(string)
		if !ok {
			return nil, false
		}
		out = append(out, s)
	}
	return out, true
}

func asInt(v any) (int, bool) {
	switch x := v.(type) {
	case int:
		return x, true
	case float64:
		return int(x), true
	default:
		return 0, false
	}
}

func asInt64(v any) (int64, bool) {
	switch x := v.(type) {
	case int64:
		return x, true
	case int:
		return int64(x), true
	case float64:
		return int64(x), true
	default:
		return 0, false
	}
}

func asFloat64(v any) (float64, bool) {
	switch x := v.(type) {
	case float64:
		return x, true
	case int:
		return float64(x), true
	default:
		return 0, false
	}
}
