// Package surface analyzes a rigid surface structure: Z extent, lateral
// centroid, slab-vs-porous classification from the vacuum gap, and the
// partition of atoms into height layers. The GA initialization box is derived
// from the profile; the layer partition feeds fixed-mask construction for
// relaxation stages before and after the GA (the GA stage itself always fixes
// the whole surface).
package surface

import (
	"fmt"
	"math"
	"sort"

	"goad/internal/model"
)

const (
	// DefaultVacuumThreshold is the minimum gap between slab top and cell
	// top to classify the structure as a slab.
	DefaultVacuumThreshold = 5.0
	// LayerTolerance groups atoms whose Z differs by less than this into the
	// same layer.
	LayerTolerance = 0.3
)

// Layer is one height layer: reference Z plus the member atom indices.
type Layer struct {
	Z           float64 `json:"z"`
	AtomIndices []int   `json:"atom_indices"`
}

// Profile summarizes a surface structure.
type Profile struct {
	NumAtoms    int            `json:"n_atoms"`
	Type        string         `json:"type"`
	ZMin        float64        `json:"z_min"`
	ZMax        float64        `json:"z_max"`
	CenterXY    [2]float64     `json:"center_xy"`
	Vacuum      float64        `json:"vacuum"`
	Layers      []Layer        `json:"layers,omitempty"`
	Composition map[string]int `json:"composition"`
	Dimensions  [3]float64     `json:"dimensions"`
	Area        float64        `json:"area"`
}

// Analyze profiles the surface with the default vacuum threshold.
func Analyze(structure model.Structure) (Profile, error) {
	return AnalyzeWithThreshold(structure, DefaultVacuumThreshold)
}

// AnalyzeWithThreshold profiles the surface. Layer detection only runs for
// slabs; porous frameworks have no meaningful height layering.
func AnalyzeWithThreshold(structure model.Structure, vacuumThreshold float64) (Profile, error) {
	if len(structure.Atoms) == 0 {
		return Profile{}, fmt.Errorf("surface has no atoms")
	}

	p := Profile{
		NumAtoms:    len(structure.Atoms),
		ZMin:        math.Inf(1),
		ZMax:        math.Inf(-1),
		Composition: map[string]int{},
	}

	var minPos, maxPos [3]float64
	for axis := 0; axis < 3; axis++ {
		minPos[axis] = math.Inf(1)
		maxPos[axis] = math.Inf(-1)
	}
	for _, atom := range structure.Atoms {
		p.Composition[atom.Symbol]++
		p.CenterXY[0] += atom.Position[0]
		p.CenterXY[1] += atom.Position[1]
		for axis := 0; axis < 3; axis++ {
			minPos[axis] = math.Min(minPos[axis], atom.Position[axis])
			maxPos[axis] = math.Max(maxPos[axis], atom.Position[axis])
		}
	}
	n := float64(len(structure.Atoms))
	p.CenterXY[0] /= n
	p.CenterXY[1] /= n
	p.ZMin = minPos[2]
	p.ZMax = maxPos[2]
	for axis := 0; axis < 3; axis++ {
		p.Dimensions[axis] = maxPos[axis] - minPos[axis]
	}

	cellA := math.Sqrt(structure.Cell[0][0]*structure.Cell[0][0] + structure.Cell[0][1]*structure.Cell[0][1] + structure.Cell[0][2]*structure.Cell[0][2])
	cellB := math.Sqrt(structure.Cell[1][0]*structure.Cell[1][0] + structure.Cell[1][1]*structure.Cell[1][1] + structure.Cell[1][2]*structure.Cell[1][2])
	p.Area = cellA * cellB

	cellHeight := structure.Cell[2][2]
	p.Vacuum = cellHeight - (p.ZMax - p.ZMin)
	if cellHeight == 0 || p.Vacuum >= vacuumThreshold {
		// No cell at all is treated as an isolated slab.
		p.Type = "slab"
		p.Layers = clusterLayers(structure)
	} else {
		p.Type = "porous"
	}

	return p, nil
}

// clusterLayers groups atoms into height layers within LayerTolerance,
// ordered top to bottom.
func clusterLayers(structure model.Structure) []Layer {
	zs := make([]float64, len(structure.Atoms))
	for i, atom := range structure.Atoms {
		zs[i] = atom.Position[2]
	}
	sorted := append([]float64(nil), zs...)
	sort.Float64s(sorted)

	var layerZ []float64
	for _, z := range sorted {
		found := false
		for _, ref := range layerZ {
			if math.Abs(z-ref) < LayerTolerance {
				found = true
				break
			}
		}
		if !found {
			layerZ = append(layerZ, z)
		}
	}
	sort.Sort(sort.Reverse(sort.Float64Slice(layerZ)))

	layers := make([]Layer, len(layerZ))
	for i, ref := range layerZ {
		layers[i] = Layer{Z: ref}
		for atomIdx, z := range zs {
			if math.Abs(z-ref) < LayerTolerance {
				layers[i].AtomIndices = append(layers[i].AtomIndices, atomIdx)
			}
		}
	}
	return layers
}

// FixedMask builds a per-atom mask that frees the top freeLayers layers and
// fixes everything below, for use in relaxation stages around the GA. With
// freeLayers <= 0 every surface atom is fixed, which is the GA-stage mask.
func (p Profile) FixedMask(numAtoms, freeLayers int) []bool {
	mask := make([]bool, numAtoms)
	for i := range mask {
		mask[i] = true
	}
	for layerIdx, layer := range p.Layers {
		if layerIdx >= freeLayers {
			break
		}
		for _, atomIdx := range layer.AtomIndices {
			if atomIdx >= 0 && atomIdx < numAtoms {
				mask[atomIdx] = false
			}
		}
	}
	return mask
}
