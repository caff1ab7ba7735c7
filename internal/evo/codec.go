// Package evo owns the genetic search: genome layout and random
// initialization, tournament selection, crossover and mutation operators,
// and the population monitor that drives generations.
package evo

import (
	"fmt"
	"math"
	"math/rand"

	"goad/internal/model"
	"goad/internal/surface"
)

const (
	// DefaultSearchRadius is the lateral search radius around the surface XY
	// centroid, in angstrom.
	DefaultSearchRadius = 10.0
	// DefaultSurfaceBuffer is the minimum molecule height above the surface
	// top.
	DefaultSurfaceBuffer = 1.5
	// DefaultMaxHeight is the top of the initialization band above the
	// surface.
	DefaultMaxHeight = 8.0
)

// Codec defines the genome layout (3 position genes, 3 orientation genes,
// TorsionCount torsion genes) and the bounds used for random initialization:
// XY uniform in a disk of SearchRadius around the surface centroid, Z uniform
// in [zmax+SurfaceBuffer, zmax+MaxHeight], all angles uniform in [0,360).
type Codec struct {
	CenterXY      [2]float64
	SurfaceZMax   float64
	SearchRadius  float64
	SurfaceBuffer float64
	MaxHeight     float64
	TorsionCount  int
}

// NewCodec derives initialization bounds from a surface profile.
func NewCodec(profile surface.Profile, torsionCount int) (Codec, error) {
	if torsionCount < 0 {
		return Codec{}, fmt.Errorf("torsion count must be >= 0, got %d", torsionCount)
	}
	return Codec{
		CenterXY:      profile.CenterXY,
		SurfaceZMax:   profile.ZMax,
		SearchRadius:  DefaultSearchRadius,
		SurfaceBuffer: DefaultSurfaceBuffer,
		MaxHeight:     DefaultMaxHeight,
		TorsionCount:  torsionCount,
	}, nil
}

// Random draws a fresh unevaluated genome within the initialization bounds.
func (c Codec) Random(rng *rand.Rand, id string) model.Genome {
	radius := c.SearchRadius
	if radius <= 0 {
		radius = DefaultSearchRadius
	}
	buffer := c.SurfaceBuffer
	if buffer <= 0 {
		buffer = DefaultSurfaceBuffer
	}
	maxHeight := c.MaxHeight
	if maxHeight <= buffer {
		maxHeight = buffer + DefaultMaxHeight
	}

	// Uniform over the disk area, not the radius.
	r := radius * math.Sqrt(rng.Float64())
	theta := rng.Float64() * 2 * math.Pi

	genome := model.Genome{
		ID: id,
		Position: [3]float64{
			c.CenterXY[0] + r*math.Cos(theta),
			c.CenterXY[1] + r*math.Sin(theta),
			c.SurfaceZMax + buffer + rng.Float64()*(maxHeight-buffer),
		},
		Orientation: [3]float64{
			rng.Float64() * 360,
			rng.Float64() * 360,
			rng.Float64() * 360,
		},
	}
	if c.TorsionCount > 0 {
		genome.Torsions = make([]float64, c.TorsionCount)
		for i := range genome.Torsions {
			genome.Torsions[i] = rng.Float64() * 360
		}
	}
	return genome
}
