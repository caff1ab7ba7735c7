package calc

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"strconv"

	"goad/internal/chem"
	"goad/internal/model"
)

// energyLine matches "Energy = -12.345" style output, case-insensitive, with
// optional scientific notation. The last match in the output wins, so
// programs that print intermediate energies still parse.
var energyLine = regexp.MustCompile(`(?i)energy\s*[=:]\s*(-?\d+(?:\.\d+)?(?:[eE][+-]?\d+)?)`)

// Command scores structures by running an external single-point program: the
// structure is written as an XYZ file into a fresh scratch directory, the
// program is invoked with that path appended to Args, and the energy is
// parsed from its output. Fixed atoms are communicated through a companion
// .fixed file listing fixed atom indices, one per line.
type Command struct {
	Program    string
	Args       []string
	ScratchDir string
}

func (c *Command) Name() string {
	return "command"
}

func (c *Command) PotentialEnergy(ctx context.Context, structure model.Structure) (float64, error) {
	if c.Program == "" {
		return 0, fmt.Errorf("command calculator requires a program")
	}

	scratch, err := os.MkdirTemp(c.ScratchDir, "goad-calc-")
	if err != nil {
		return 0, err
	}
	defer os.RemoveAll(scratch)

	inputPath := filepath.Join(scratch, "input.xyz")
	if err := chem.WriteXYZFile(inputPath, structure, "goad single point"); err != nil {
		return 0, err
	}
	if err := writeFixedFile(filepath.Join(scratch, "input.fixed"), structure.Fixed); err != nil {
		return 0, err
	}

	args := append(append([]string(nil), c.Args...), inputPath)
	cmd := exec.CommandContext(ctx, c.Program, args...)
	cmd.Dir = scratch
	output, err := cmd.CombinedOutput()
	if err != nil {
		return 0, fmt.Errorf("run %s: %w (output: %s)", c.Program, err, truncate(output, 300))
	}
	return ParseEnergy(output)
}

// ParseEnergy extracts the last reported energy from program output.
func ParseEnergy(output []byte) (float64, error) {
	matches := energyLine.FindAllSubmatch(output, -1)
	if len(matches) == 0 {
		return 0, fmt.Errorf("no energy found in program output")
	}
	last := matches[len(matches)-1]
	value, err := strconv.ParseFloat(string(last[1]), 64)
	if err != nil {
		return 0, fmt.Errorf("parse energy %q: %w", last[1], err)
	}
	return value, nil
}

func writeFixedFile(path string, fixed []bool) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	for i, isFixed := range fixed {
		if isFixed {
			if _, err := fmt.Fprintf(f, "%d\n", i); err != nil {
				_ = f.Close()
				return err
			}
		}
	}
	return f.Close()
}

func truncate(data []byte, limit int) string {
	if len(data) <= limit {
		return string(data)
	}
	return string(data[:limit]) + "..."
}
