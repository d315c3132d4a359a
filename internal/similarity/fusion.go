package similarity

import "github.com/chenjuwe/photo-dedup/internal/photo"

// FusionWeights holds the base weights of the three similarity levels plus
// the split between the mid-level color and texture descriptors.
type FusionWeights struct {
	LowLevel  float64 `yaml:"low_level"`  // hash similarity
	MidLevel  float64 `yaml:"mid_level"`  // color + texture
	HighLevel float64 `yaml:"high_level"` // deep feature vector

	ColorWeight   float64 `yaml:"color_weight"`
	TextureWeight float64 `yaml:"texture_weight"`
}

// DefaultFusionWeights leans on the deep features when they exist.
func DefaultFusionWeights() FusionWeights {
	return FusionWeights{
		LowLevel:      0.35,
		MidLevel:      0.25,
		HighLevel:     0.40,
		ColorWeight:   0.5,
		TextureWeight: 0.5,
	}
}

func (w FusionWeights) isZero() bool {
	return w.LowLevel == 0 && w.MidLevel == 0 && w.HighLevel == 0
}

// Fuser combines per-level similarities into one score, redistributing the
// weight of levels that are missing on either item.
type Fuser struct {
	hashWeights HashWeights
	weights     FusionWeights
}

// NewFuser builds a fusion scorer; zero-valued arguments select defaults.
func NewFuser(hashWeights HashWeights, weights FusionWeights) *Fuser {
	if hashWeights == nil {
		hashWeights = DefaultHashWeights()
	}
	if weights.isZero() {
		weights = DefaultFusionWeights()
	}
	if weights.ColorWeight == 0 && weights.TextureWeight == 0 {
		weights.ColorWeight = 0.5
		weights.TextureWeight = 0.5
	}
	return &Fuser{hashWeights: hashWeights, weights: weights}
}

// Compare scores two items using every level available on both sides. It
// never fails; with no comparable data it returns 0 with MethodNone.
func (f *Fuser) Compare(a, b *photo.Item) Score {
	if a == nil || b == nil {
		return Score{Similarity: 0, Method: MethodNone}
	}

	type level struct {
		weight float64
		score  float64
		method Method
	}
	available := make([]level, 0, 3)
	var missing float64

	if s := HashSimilarity(a.Hashes, b.Hashes, f.hashWeights); s.Method != MethodNone {
		available = append(available, level{f.weights.LowLevel, s.Similarity, MethodHash})
	} else {
		missing += f.weights.LowLevel
	}

	if s, ok := f.midLevel(a, b); ok {
		available = append(available, level{f.weights.MidLevel, s, MethodFeature})
	} else {
		missing += f.weights.MidLevel
	}

	if s, ok := highLevel(a, b); ok {
		available = append(available, level{f.weights.HighLevel, s, MethodFeature})
	} else {
		missing += f.weights.HighLevel
	}

	if len(available) == 0 {
		return Score{Similarity: 0, Method: MethodNone}
	}

	// Redistribute the missing levels' weight evenly over the remaining
	// ones, then renormalize so the weights sum to 1.
	share := missing / float64(len(available))
	var totalWeight, combined float64
	for i := range available {
		available[i].weight += share
		totalWeight += available[i].weight
	}
	if totalWeight == 0 {
		return Score{Similarity: 0, Method: MethodNone}
	}
	for _, lvl := range available {
		combined += lvl.score * (lvl.weight / totalWeight)
	}

	method := MethodFused
	if len(available) == 1 {
		method = available[0].method
	}
	return Score{Similarity: clamp100(combined), Method: method}
}

// midLevel combines color and texture similarities over whichever of the
// two descriptors both items carry.
func (f *Fuser) midLevel(a, b *photo.Item) (float64, bool) {
	var sum, weight float64

	if len(a.ColorFeature) > 0 && len(b.ColorFeature) > 0 {
		if s := FeatureSimilarity(a.ColorFeature, b.ColorFeature); s.Method != MethodNone {
			sum += s.Similarity * f.weights.ColorWeight
			weight += f.weights.ColorWeight
		}
	}
	if len(a.TextureFeature) > 0 && len(b.TextureFeature) > 0 {
		if s := FeatureSimilarity(a.TextureFeature, b.TextureFeature); s.Method != MethodNone {
			sum += s.Similarity * f.weights.TextureWeight
			weight += f.weights.TextureWeight
		}
	}

	if weight == 0 {
		return 0, false
	}
	return sum / weight, true
}

// highLevel compares reduced vectors when both items carry compatible
// ones, falling back to the raw feature vectors.
func highLevel(a, b *photo.Item) (float64, bool) {
	if len(a.Reduced) > 0 && len(a.Reduced) == len(b.Reduced) {
		if s := FeatureSimilarity(a.Reduced, b.Reduced); s.Method != MethodNone {
			return s.Similarity, true
		}
	}
	if s := FeatureSimilarity(a.Feature, b.Feature); s.Method != MethodNone {
		return s.Similarity, true
	}
	return 0, false
}
