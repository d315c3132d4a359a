package lsh

import "math/rand"

// MultiProbeIndex approximates true multi-probe LSH by querying several
// independently parameterized levels, each once with the original vector
// and once per pre-generated perturbation. Compared to adding more tables
// this raises recall without growing memory per item.
type MultiProbeIndex struct {
	levels []*Index

	// perturbations[level][probe] is a ternary (-1/0/1) vector matching
	// the level's input width.
	perturbations [][][]float64
}

const (
	defaultNumLevels        = 3
	defaultNumPerturbations = 4
)

// NewMultiProbeIndex builds numLevels banding indexes from the base config.
// Each level trades hash functions for buckets: level i has one hash
// function fewer and twice the buckets of level i-1.
func NewMultiProbeIndex(base Config, numLevels, numPerturbations int) *MultiProbeIndex {
	if numLevels <= 0 {
		numLevels = defaultNumLevels
	}
	if numPerturbations <= 0 {
		numPerturbations = defaultNumPerturbations
	}
	base = base.withDefaults()
	rng := rand.New(rand.NewSource(base.Seed))

	levels := make([]*Index, numLevels)
	perturbations := make([][][]float64, numLevels)
	for lvl := 0; lvl < numLevels; lvl++ {
		cfg := base
		cfg.NumHashFunctions = base.NumHashFunctions - lvl
		if cfg.NumHashFunctions < 1 {
			cfg.NumHashFunctions = 1
		}
		cfg.NumBuckets = base.NumBuckets << lvl
		cfg.Seed = rng.Int63()
		levels[lvl] = NewIndex(cfg)

		perturbations[lvl] = make([][]float64, numPerturbations)
		for p := range perturbations[lvl] {
			vec := make([]float64, cfg.NumBits)
			for i := range vec {
				vec[i] = float64(rng.Intn(3) - 1)
			}
			perturbations[lvl][p] = vec
		}
	}

	return &MultiProbeIndex{levels: levels, perturbations: perturbations}
}

// Insert adds the hash to every level.
func (m *MultiProbeIndex) Insert(id string, bits []uint8) {
	for _, lvl := range m.levels {
		lvl.Insert(id, bits)
	}
}

// Query unions the base query of every level with the queries of the
// perturbed vectors.
func (m *MultiProbeIndex) Query(bits []uint8) map[string]struct{} {
	result := make(map[string]struct{})
	for l, lvl := range m.levels {
		vec := lvl.featureVector(bits)
		for id := range lvl.queryVector(vec) {
			result[id] = struct{}{}
		}
		for _, pert := range m.perturbations[l] {
			probe := make([]float64, len(vec))
			for i := range vec {
				probe[i] = vec[i] + pert[i]
			}
			for id := range lvl.queryVector(probe) {
				result[id] = struct{}{}
			}
		}
	}
	return result
}

// Remove deletes the id from every level.
func (m *MultiProbeIndex) Remove(id string, bits []uint8) {
	for _, lvl := range m.levels {
		lvl.Remove(id, bits)
	}
}

// Clear drops all stored IDs on every level.
func (m *MultiProbeIndex) Clear() {
	for _, lvl := range m.levels {
		lvl.Clear()
	}
}
