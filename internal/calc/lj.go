package calc

import (
	"context"
	"fmt"
	"math"

	"goad/internal/model"
)

const (
	defaultEpsilon = 0.0103 // eV, argon-like well depth
	defaultSigma   = 3.4    // angstrom
	defaultCutoff  = 10.0
	// minSeparation guards the r^-12 term; closer pairs are reported as a
	// calculator failure so the GA can penalize the genome instead of
	// producing astronomic energies.
	minSeparation = 0.1
)

// LennardJones is a pairwise 12-6 potential over all atom pairs. It exists so
// runs and tests work without an external electronic-structure code; per-pair
// sigma uses arithmetic mixing of per-element values when provided.
type LennardJones struct {
	Epsilon float64
	Sigma   float64
	Cutoff  float64
	// SigmaBySymbol overrides Sigma per element; missing symbols use Sigma.
	SigmaBySymbol map[string]float64
}

func (lj *LennardJones) Name() string {
	return "lj"
}

func (lj *LennardJones) PotentialEnergy(ctx context.Context, structure model.Structure) (float64, error) {
	epsilon := lj.Epsilon
	if epsilon == 0 {
		epsilon = defaultEpsilon
	}
	cutoff := lj.Cutoff
	if cutoff == 0 {
		cutoff = defaultCutoff
	}

	total := 0.0
	atoms := structure.Atoms
	for i := 0; i < len(atoms); i++ {
		if err := ctx.Err(); err != nil {
			return 0, err
		}
		for j := i + 1; j < len(atoms); j++ {
			dx := atoms[i].Position[0] - atoms[j].Position[0]
			dy := atoms[i].Position[1] - atoms[j].Position[1]
			dz := atoms[i].Position[2] - atoms[j].Position[2]
			r := math.Sqrt(dx*dx + dy*dy + dz*dz)
			if r < minSeparation {
				return 0, fmt.Errorf("atoms %d and %d overlap (r=%.4f)", i, j, r)
			}
			if r > cutoff {
				continue
			}
			sigma := lj.pairSigma(atoms[i].Symbol, atoms[j].Symbol)
			sr6 := math.Pow(sigma/r, 6)
			total += 4 * epsilon * (sr6*sr6 - sr6)
		}
	}
	return total, nil
}

func (lj *LennardJones) pairSigma(a, b string) float64 {
	return (lj.elementSigma(a) + lj.elementSigma(b)) / 2
}

func (lj *LennardJones) elementSigma(symbol string) float64 {
	if s, ok := lj.SigmaBySymbol[symbol]; ok {
		return s
	}
	if lj.Sigma != 0 {
		return lj.Sigma
	}
	return defaultSigma
}
