// Package chem provides the light cheminformatics the search needs: covalent
// bond detection from interatomic distances, the rotatable-bond filter that
// defines the torsion genes, and XYZ geometry I/O.
package chem

// Covalent radii in angstrom (Cordero et al., single-bond values) for the
// elements that show up in adsorption studies. Unknown symbols fall back to
// defaultRadius.
var covalentRadii = map[string]float64{
	"H":  0.31,
	"He": 0.28,
	"Li": 1.28,
	"Be": 0.96,
	"B":  0.84,
	"C":  0.76,
	"N":  0.71,
	"O":  0.66,
	"F":  0.57,
	"Na": 1.66,
	"Mg": 1.41,
	"Al": 1.21,
	"Si": 1.11,
	"P":  1.07,
	"S":  1.05,
	"Cl": 1.02,
	"K":  2.03,
	"Ca": 1.76,
	"Ti": 1.60,
	"Cr": 1.39,
	"Mn": 1.39,
	"Fe": 1.32,
	"Co": 1.26,
	"Ni": 1.24,
	"Cu": 1.32,
	"Zn": 1.22,
	"Br": 1.20,
	"Mo": 1.54,
	"Ru": 1.46,
	"Rh": 1.42,
	"Pd": 1.39,
	"Ag": 1.45,
	"I":  1.39,
	"Pt": 1.36,
	"Au": 1.36,
	"Pb": 1.46,
}

const defaultRadius = 0.77

// CovalentRadius returns the covalent radius for a symbol, falling back to a
// carbon-like default for unknown elements.
func CovalentRadius(symbol string) float64 {
	if r, ok := covalentRadii[symbol]; ok {
		return r
	}
	return defaultRadius
}
