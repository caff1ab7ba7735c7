package model

// Copy returns a deep copy of the structure. Callers that transform atom
// positions must work on a copy so that genomes never observe each other's
// in-progress edits.
func (s Structure) Copy() Structure {
	out := Structure{Cell: s.Cell}
	out.Atoms = make([]Atom, len(s.Atoms))
	copy(out.Atoms, s.Atoms)
	if s.Fixed != nil {
		out.Fixed = make([]bool, len(s.Fixed))
		copy(out.Fixed, s.Fixed)
	}
	return out
}

// Positions returns a fresh slice of the atom positions.
func (s Structure) Positions() [][3]float64 {
	out := make([][3]float64, len(s.Atoms))
	for i, atom := range s.Atoms {
		out[i] = atom.Position
	}
	return out
}

// SetPositions overwrites atom positions in place. The slice length must
// match the atom count; extra or missing entries are a programming error and
// are ignored beyond the shorter length.
func (s *Structure) SetPositions(positions [][3]float64) {
	n := len(s.Atoms)
	if len(positions) < n {
		n = len(positions)
	}
	for i := 0; i < n; i++ {
		s.Atoms[i].Position = positions[i]
	}
}

// Centroid is the unweighted mean of the atom positions.
func (s Structure) Centroid() [3]float64 {
	var c [3]float64
	if len(s.Atoms) == 0 {
		return c
	}
	for _, atom := range s.Atoms {
		c[0] += atom.Position[0]
		c[1] += atom.Position[1]
		c[2] += atom.Position[2]
	}
	n := float64(len(s.Atoms))
	c[0] /= n
	c[1] /= n
	c[2] /= n
	return c
}

// Translate shifts every atom by delta, in place.
func (s *Structure) Translate(delta [3]float64) {
	for i := range s.Atoms {
		s.Atoms[i].Position[0] += delta[0]
		s.Atoms[i].Position[1] += delta[1]
		s.Atoms[i].Position[2] += delta[2]
	}
}

// CloneGenome returns a deep copy of g. Nested slices and the cached
// structure are copied so a later mutation of the source cannot corrupt the
// clone; this is what the best-so-far snapshot and parent cloning rely on.
func CloneGenome(g Genome) Genome {
	out := g
	out.Torsions = append([]float64(nil), g.Torsions...)
	if g.Energy != nil {
		energy := *g.Energy
		out.Energy = &energy
	}
	if g.Structure != nil {
		structure := g.Structure.Copy()
		out.Structure = &structure
	}
	return out
}

// Evaluated reports whether the genome already carries an energy.
func (g Genome) Evaluated() bool {
	return g.Energy != nil
}

// ResetEnergy clears the cached energy and structure after a genetic
// operation changed the genes.
func (g *Genome) ResetEnergy() {
	g.Energy = nil
	g.Structure = nil
}
