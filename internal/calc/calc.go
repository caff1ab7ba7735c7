// Package calc defines the energy-calculator contract the search scores
// against, plus two implementations: an in-process Lennard-Jones potential
// and a wrapper around an external single-point program. The GA treats every
// calculator as an opaque, possibly slow, possibly failing scoring oracle.
package calc

import (
	"context"

	"goad/internal/model"
)

// Calculator scores a full structure (surface + molecule, with the fixed
// mask set) and returns its potential energy. Implementations must be
// deterministic for identical inputs; they may relax free atoms internally.
type Calculator interface {
	Name() string
	PotentialEnergy(ctx context.Context, structure model.Structure) (float64, error)
}
