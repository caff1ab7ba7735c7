package chem

import (
	"math"

	"goad/internal/model"
)

// BondTolerance is added to the sum of covalent radii when deciding whether
// two atoms are bonded.
const BondTolerance = 0.45

// Bond is an undirected covalent bond between two atom indices.
type Bond struct {
	I    int
	J    int
	Dist float64
}

// DetectBonds finds covalent bonds by the distance criterion
// d(i,j) <= r(i) + r(j) + BondTolerance. It is O(n²), which is fine for the
// molecule sizes the search handles.
func DetectBonds(molecule model.Structure) []Bond {
	var bonds []Bond
	for i := 0; i < len(molecule.Atoms); i++ {
		for j := i + 1; j < len(molecule.Atoms); j++ {
			dist := distance(molecule.Atoms[i].Position, molecule.Atoms[j].Position)
			cutoff := CovalentRadius(molecule.Atoms[i].Symbol) + CovalentRadius(molecule.Atoms[j].Symbol) + BondTolerance
			if dist <= cutoff && dist > 1e-6 {
				bonds = append(bonds, Bond{I: i, J: j, Dist: dist})
			}
		}
	}
	return bonds
}

// Adjacency builds a neighbor list from bonds for a molecule of n atoms.
func Adjacency(n int, bonds []Bond) [][]int {
	adj := make([][]int, n)
	for _, b := range bonds {
		adj[b.I] = append(adj[b.I], b.J)
		adj[b.J] = append(adj[b.J], b.I)
	}
	return adj
}

// DetectRotatableBonds returns the bonds that may be treated as torsional
// degrees of freedom, in a stable order (ascending begin, then end index):
// both endpoints heavier than hydrogen, both endpoints with at least two
// neighbors, and the bond not part of a ring. An empty result means a rigid
// molecule, which is valid.
//
// Bond-order information is not available from the distance model, so every
// detected bond is treated as single; multiple bonds short enough to pass
// the degree and ring filters are rare in adsorbates and over-rotation is
// harmless to the search.
func DetectRotatableBonds(molecule model.Structure) []model.RotatableBond {
	bonds := DetectBonds(molecule)
	adj := Adjacency(len(molecule.Atoms), bonds)

	var rotatable []model.RotatableBond
	for _, b := range bonds {
		if molecule.Atoms[b.I].Symbol == "H" || molecule.Atoms[b.J].Symbol == "H" {
			continue
		}
		if len(adj[b.I]) < 2 || len(adj[b.J]) < 2 {
			continue
		}
		if inRing(adj, b.I, b.J) {
			continue
		}
		rotatable = append(rotatable, model.RotatableBond{Begin: b.I, End: b.J})
	}
	return rotatable
}

// inRing reports whether the i-j bond lies on a cycle: with the bond removed,
// j must still be reachable from i.
func inRing(adj [][]int, i, j int) bool {
	visited := make([]bool, len(adj))
	visited[i] = true
	queue := []int{i}
	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]
		for _, next := range adj[current] {
			if current == i && next == j {
				continue
			}
			if next == j {
				return true
			}
			if !visited[next] {
				visited[next] = true
				queue = append(queue, next)
			}
		}
	}
	return false
}

func distance(a, b [3]float64) float64 {
	dx := a[0] - b[0]
	dy := a[1] - b[1]
	dz := a[2] - b[2]
	return math.Sqrt(dx*dx + dy*dy + dz*dz)
}
