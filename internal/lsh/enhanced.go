package lsh

// EnhancedConfig extends the banding config with multi-probe and E2LSH
// settings.
type EnhancedConfig struct {
	Config

	// NumProbes is passed through to EuclideanIndex queries; values above
	// one probe neighboring buckets.
	NumProbes int

	// UseE2LSH enables the Euclidean index for continuous vectors.
	UseE2LSH bool

	// FeatureDim is the dimension of the vectors fed to the Euclidean
	// index. Zero falls back to NumBits (hash-derived vectors).
	FeatureDim int

	NumLevels        int
	NumPerturbations int
}

// EnhancedIndex composes a multi-probe banding index over binary hashes
// with an optional Euclidean index over feature vectors. Queries union
// both candidate sets.
type EnhancedIndex struct {
	cfg       EnhancedConfig
	multi     *MultiProbeIndex
	euclidean *EuclideanIndex // nil unless UseE2LSH
}

// NewEnhancedIndex builds the composed index.
func NewEnhancedIndex(cfg EnhancedConfig) *EnhancedIndex {
	cfg.Config = cfg.Config.withDefaults()
	if cfg.NumProbes <= 0 {
		cfg.NumProbes = 1
	}

	idx := &EnhancedIndex{
		cfg:   cfg,
		multi: NewMultiProbeIndex(cfg.Config, cfg.NumLevels, cfg.NumPerturbations),
	}
	if cfg.UseE2LSH {
		dim := cfg.FeatureDim
		if dim <= 0 {
			dim = cfg.NumBits
		}
		idx.euclidean = NewEuclideanIndex(EuclideanConfig{
			Dim:  dim,
			Seed: cfg.Seed + 1,
		})
	}
	return idx
}

// hashVector derives a ±1 feature vector from a binary hash for the
// Euclidean index when no raw feature vector is supplied.
func (e *EnhancedIndex) hashVector(bits []uint8) []float64 {
	dim := e.cfg.FeatureDim
	if dim <= 0 {
		dim = e.cfg.NumBits
	}
	vec := make([]float64, dim)
	for i := 0; i < len(bits) && i < dim; i++ {
		if bits[i] != 0 {
			vec[i] = 1
		} else {
			vec[i] = -1
		}
	}
	return vec
}

// Insert feeds the binary hash to the multi-probe index and, when E2LSH is
// enabled, the feature vector (or a hash-derived stand-in) to the
// Euclidean index.
func (e *EnhancedIndex) Insert(id string, bits []uint8, feature []float64) {
	e.multi.Insert(id, bits)
	if e.euclidean != nil {
		e.euclidean.Insert(id, e.euclideanVector(bits, feature))
	}
}

// Query unions candidates from both component indexes.
func (e *EnhancedIndex) Query(bits []uint8, feature []float64) map[string]struct{} {
	result := e.multi.Query(bits)
	if e.euclidean != nil {
		for id := range e.euclidean.Query(e.euclideanVector(bits, feature), e.cfg.NumProbes) {
			result[id] = struct{}{}
		}
	}
	return result
}

// Remove mirrors Insert on both component indexes.
func (e *EnhancedIndex) Remove(id string, bits []uint8, feature []float64) {
	e.multi.Remove(id, bits)
	if e.euclidean != nil {
		e.euclidean.Remove(id, e.euclideanVector(bits, feature))
	}
}

// Clear drops all stored IDs from both component indexes.
func (e *EnhancedIndex) Clear() {
	e.multi.Clear()
	if e.euclidean != nil {
		e.euclidean.Clear()
	}
}

func (e *EnhancedIndex) euclideanVector(bits []uint8, feature []float64) []float64 {
	if len(feature) > 0 {
		return feature
	}
	return e.hashVector(bits)
}
