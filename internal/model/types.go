package model

// VersionedRecord captures schema and codec evolution for persistent data.
type VersionedRecord struct {
	SchemaVersion int `json:"schema_version"`
	CodecVersion  int `json:"codec_version"`
}

// Atom is one atom of a structure: element symbol plus cartesian position in
// angstrom.
type Atom struct {
	Symbol   string     `json:"symbol"`
	Position [3]float64 `json:"position"`
}

// Structure is an ordered sequence of atoms with a periodic cell and an
// optional per-atom fixed mask. A true mask entry means the calculator must
// not move that atom. Structures are value-like: mutate copies, never shared
// instances.
type Structure struct {
	Atoms []Atom        `json:"atoms"`
	Cell  [3][3]float64 `json:"cell"`
	Fixed []bool        `json:"fixed,omitempty"`
}

// Genome is one candidate placement: molecule centroid position, Euler
// orientation angles in degrees, one dihedral angle in degrees per rotatable
// bond. Energy is nil until the genome has been evaluated. Structure caches
// the realized system from the last evaluation.
type Genome struct {
	VersionedRecord
	ID          string     `json:"id"`
	Position    [3]float64 `json:"position"`
	Orientation [3]float64 `json:"orientation"`
	Torsions    []float64  `json:"torsions,omitempty"`
	Energy      *float64   `json:"energy,omitempty"`
	Structure   *Structure `json:"-"`
}

// RotatableBond is an ordered pair of molecule atom indices whose dihedral is
// a torsion gene. The bond list and its order are fixed for a whole run.
type RotatableBond struct {
	Begin int `json:"begin"`
	End   int `json:"end"`
}

// FitnessSample is one completed energy evaluation, recorded in the order
// genomes sit within their generation.
type FitnessSample struct {
	Generation int     `json:"generation"`
	GenomeID   string  `json:"genome_id"`
	Energy     float64 `json:"energy"`
}

// GenerationDiagnostics summarizes one GA generation.
type GenerationDiagnostics struct {
	Generation  int     `json:"generation"`
	BestEnergy  float64 `json:"best_energy"`
	MeanEnergy  float64 `json:"mean_energy"`
	WorstEnergy float64 `json:"worst_energy"`
	OverallBest float64 `json:"overall_best"`
	Evaluations int     `json:"evaluations"`
	Failures    int     `json:"failures"`
}

// RunRecord is the persistent summary of a finished GA run.
type RunRecord struct {
	VersionedRecord
	ID             string  `json:"id"`
	CreatedAtUTC   string  `json:"created_at_utc"`
	SurfacePath    string  `json:"surface_path"`
	MoleculePath   string  `json:"molecule_path"`
	Calculator     string  `json:"calculator"`
	PopulationSize int     `json:"population_size"`
	Generations    int     `json:"generations"`
	EliteCount     int     `json:"elite_count"`
	Seed           int64   `json:"seed"`
	TorsionCount   int     `json:"torsion_count"`
	BestEnergy     float64 `json:"best_energy"`
}
