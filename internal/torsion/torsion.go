// Package torsion applies dihedral angles to a molecule. A Model is built
// once per run from the molecule's connectivity and the rotatable-bond list;
// the bond order defines the torsion-gene layout and stays fixed for the
// lifetime of the run.
package torsion

import (
	"errors"
	"fmt"

	"goad/internal/chem"
	"goad/internal/geom"
	"goad/internal/model"
)

// ErrAngleCount reports a torsion-gene count that does not match the
// rotatable-bond count. Apply returns the molecule unmodified in that case;
// guessing a pairing would silently scramble the genome layout.
var ErrAngleCount = errors.New("torsion angle count does not match bond count")

type Model struct {
	bonds []model.RotatableBond
	adj   [][]int
}

// New builds a torsion model for the molecule. The bond list may be empty: a
// rigid molecule is valid and Apply becomes a copy. Connectivity is captured
// here; rotations preserve intra-fragment distances, so it never needs to be
// recomputed.
func New(molecule model.Structure, bonds []model.RotatableBond) (*Model, error) {
	n := len(molecule.Atoms)
	for i, b := range bonds {
		if b.Begin < 0 || b.Begin >= n || b.End < 0 || b.End >= n {
			return nil, fmt.Errorf("rotatable bond %d (%d-%d) out of range for %d atoms", i, b.Begin, b.End, n)
		}
		if b.Begin == b.End {
			return nil, fmt.Errorf("rotatable bond %d is degenerate: atom %d bonded to itself", i, b.Begin)
		}
	}
	return &Model{
		bonds: append([]model.RotatableBond(nil), bonds...),
		adj:   chem.Adjacency(n, chem.DetectBonds(molecule)),
	}, nil
}

// Count returns the number of torsion genes.
func (m *Model) Count() int {
	return len(m.bonds)
}

// Bonds returns a copy of the rotatable-bond list in gene order.
func (m *Model) Bonds() []model.RotatableBond {
	return append([]model.RotatableBond(nil), m.bonds...)
}

// Apply rotates a copy of the molecule by the given dihedral angles, one per
// rotatable bond, strictly in bond-list order; each torsion acts on the
// geometry produced by the previous ones. The input molecule is never
// modified.
func (m *Model) Apply(molecule model.Structure, angles []float64) (model.Structure, error) {
	working := molecule.Copy()
	if len(angles) != len(m.bonds) {
		return working, fmt.Errorf("%w: got %d angles for %d bonds", ErrAngleCount, len(angles), len(m.bonds))
	}
	if len(m.bonds) == 0 {
		return working, nil
	}

	for i, bond := range m.bonds {
		if err := m.applySingle(&working, bond, angles[i]); err != nil {
			return molecule.Copy(), fmt.Errorf("torsion %d (%d-%d): %w", i, bond.Begin, bond.End, err)
		}
	}
	return working, nil
}

// applySingle rotates the fragment on the `end` side of the bond about the
// begin→end axis, pivoting at the `end` atom.
func (m *Model) applySingle(molecule *model.Structure, bond model.RotatableBond, angleDeg float64) error {
	beginPos := molecule.Atoms[bond.Begin].Position
	endPos := molecule.Atoms[bond.End].Position
	axis := [3]float64{endPos[0] - beginPos[0], endPos[1] - beginPos[1], endPos[2] - beginPos[2]}

	fragment := m.rotatingFragment(bond)
	if len(fragment) == 0 {
		return nil
	}

	points := make([][3]float64, len(fragment))
	for i, atomIdx := range fragment {
		points[i] = molecule.Atoms[atomIdx].Position
	}
	rotated, err := geom.RotateAboutAxis(points, endPos, axis, angleDeg)
	if err != nil {
		return err
	}
	for i, atomIdx := range fragment {
		molecule.Atoms[atomIdx].Position = rotated[i]
	}
	return nil
}

// rotatingFragment collects the atoms reachable from bond.End without
// crossing back through bond.Begin, excluding the bond atoms themselves.
// Breadth-first over the connectivity captured at construction.
func (m *Model) rotatingFragment(bond model.RotatableBond) []int {
	visited := make([]bool, len(m.adj))
	visited[bond.Begin] = true
	visited[bond.End] = true

	var fragment []int
	queue := []int{bond.End}
	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]
		for _, next := range m.adj[current] {
			if visited[next] {
				continue
			}
			visited[next] = true
			fragment = append(fragment, next)
			queue = append(queue, next)
		}
	}
	return fragment
}
