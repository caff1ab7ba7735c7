package chem

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"goad/internal/model"
)

// ReadXYZ parses an XYZ geometry: atom count, comment line, then one
// "Symbol X Y Z" line per atom. A periodic cell may be given in the comment
// line in extended-XYZ form: Lattice="ax ay az bx by bz cx cy cz".
func ReadXYZ(r io.Reader) (model.Structure, error) {
	scanner := bufio.NewScanner(r)

	if !scanner.Scan() {
		return model.Structure{}, fmt.Errorf("missing atom count line")
	}
	count, err := strconv.Atoi(strings.TrimSpace(scanner.Text()))
	if err != nil || count < 0 {
		return model.Structure{}, fmt.Errorf("invalid atom count: %q", scanner.Text())
	}

	var structure model.Structure
	if !scanner.Scan() {
		return model.Structure{}, fmt.Errorf("missing comment line")
	}
	cell, ok, err := parseLattice(scanner.Text())
	if err != nil {
		return model.Structure{}, err
	}
	if ok {
		structure.Cell = cell
	}

	structure.Atoms = make([]model.Atom, 0, count)
	for i := 0; i < count; i++ {
		if !scanner.Scan() {
			return model.Structure{}, fmt.Errorf("expected %d atoms, got %d", count, i)
		}
		fields := strings.Fields(scanner.Text())
		if len(fields) < 4 {
			return model.Structure{}, fmt.Errorf("atom line %d: expected symbol and 3 coordinates, got %q", i+1, scanner.Text())
		}
		var pos [3]float64
		for axis := 0; axis < 3; axis++ {
			value, err := strconv.ParseFloat(fields[axis+1], 64)
			if err != nil {
				return model.Structure{}, fmt.Errorf("atom line %d: bad coordinate %q", i+1, fields[axis+1])
			}
			pos[axis] = value
		}
		structure.Atoms = append(structure.Atoms, model.Atom{Symbol: fields[0], Position: pos})
	}
	if err := scanner.Err(); err != nil {
		return model.Structure{}, err
	}
	return structure, nil
}

// ReadXYZFile reads an XYZ geometry from disk.
func ReadXYZFile(path string) (model.Structure, error) {
	f, err := os.Open(path)
	if err != nil {
		return model.Structure{}, err
	}
	defer f.Close()

	structure, err := ReadXYZ(f)
	if err != nil {
		return model.Structure{}, fmt.Errorf("parse %s: %w", path, err)
	}
	return structure, nil
}

// WriteXYZ writes the structure in XYZ form. A nonzero cell is emitted as an
// extended-XYZ Lattice entry on the comment line.
func WriteXYZ(w io.Writer, structure model.Structure, comment string) error {
	if _, err := fmt.Fprintf(w, "%d\n", len(structure.Atoms)); err != nil {
		return err
	}
	line := comment
	if structure.Cell != ([3][3]float64{}) {
		lattice := formatLattice(structure.Cell)
		if line == "" {
			line = lattice
		} else {
			line = line + " " + lattice
		}
	}
	if _, err := fmt.Fprintf(w, "%s\n", line); err != nil {
		return err
	}
	for _, atom := range structure.Atoms {
		if _, err := fmt.Fprintf(w, "%-3s %16.8f %16.8f %16.8f\n",
			atom.Symbol, atom.Position[0], atom.Position[1], atom.Position[2]); err != nil {
			return err
		}
	}
	return nil
}

// WriteXYZFile writes the structure to path, creating or truncating it.
func WriteXYZFile(path string, structure model.Structure, comment string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := WriteXYZ(f, structure, comment); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

func parseLattice(comment string) ([3][3]float64, bool, error) {
	var cell [3][3]float64
	idx := strings.Index(comment, `Lattice="`)
	if idx < 0 {
		return cell, false, nil
	}
	rest := comment[idx+len(`Lattice="`):]
	end := strings.Index(rest, `"`)
	if end < 0 {
		return cell, false, fmt.Errorf("unterminated Lattice entry")
	}
	fields := strings.Fields(rest[:end])
	if len(fields) != 9 {
		return cell, false, fmt.Errorf("Lattice entry needs 9 values, got %d", len(fields))
	}
	for i, field := range fields {
		value, err := strconv.ParseFloat(field, 64)
		if err != nil {
			return cell, false, fmt.Errorf("bad Lattice value %q", field)
		}
		cell[i/3][i%3] = value
	}
	return cell, true, nil
}

func formatLattice(cell [3][3]float64) string {
	values := make([]string, 0, 9)
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			values = append(values, strconv.FormatFloat(cell[i][j], 'f', -1, 64))
		}
	}
	return `Lattice="` + strings.Join(values, " ") + `"`
}
