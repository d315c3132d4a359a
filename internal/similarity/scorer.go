// Package similarity turns hash distances and feature vectors into
// normalized 0-100 similarity scores and fuses scores across feature
// levels.
package similarity

import (
	"math"

	"github.com/chenjuwe/photo-dedup/internal/fingerprint"
)

// Method tags how a score was obtained. MethodNone marks "no comparable
// data", which callers must distinguish from a genuine low similarity.
type Method string

const (
	MethodNone    Method = "none"
	MethodHash    Method = "hash"
	MethodFeature Method = "feature"
	MethodFused   Method = "fused"
)

// Score is a normalized similarity in [0, 100] plus its provenance.
type Score struct {
	Similarity float64 `json:"similarity"`
	Method     Method  `json:"method"`
}

// HashWeights assigns a relative weight to each hash kind. Kinds missing
// from the map or weighted zero are ignored.
type HashWeights map[fingerprint.HashKind]float64

// DefaultHashWeights favors the perceptual hash, which tolerates small
// edits better than the other two.
func DefaultHashWeights() HashWeights {
	return HashWeights{
		fingerprint.KindAverage:    0.25,
		fingerprint.KindDifference: 0.35,
		fingerprint.KindPerceptual: 0.40,
	}
}

// HashSimilarity scores two hash sets over the kinds present in both. The
// weighted mean Hamming distance is converted to 100*(1 - d/maxBits) and
// clamped to [0, 100]. Without any shared weighted kind the result is 0
// with MethodNone.
func HashSimilarity(a, b fingerprint.HashSet, weights HashWeights) Score {
	if weights == nil {
		weights = DefaultHashWeights()
	}

	var weightedDist, weightedMaxBits, totalWeight float64
	for kind, weight := range weights {
		if weight <= 0 {
			continue
		}
		ha, okA := a[kind]
		hb, okB := b[kind]
		if !okA || !okB {
			continue
		}
		maxBits := fingerprint.BitLength(ha)
		if bits := fingerprint.BitLength(hb); bits > maxBits {
			maxBits = bits
		}
		if maxBits == 0 {
			continue
		}
		weightedDist += float64(fingerprint.HammingDistanceHex(ha, hb)) * weight
		weightedMaxBits += float64(maxBits) * weight
		totalWeight += weight
	}

	if totalWeight == 0 || weightedMaxBits == 0 {
		return Score{Similarity: 0, Method: MethodNone}
	}

	meanDist := weightedDist / totalWeight
	meanMaxBits := weightedMaxBits / totalWeight
	return Score{
		Similarity: clamp100(100 * (1 - meanDist/meanMaxBits)),
		Method:     MethodHash,
	}
}

// Cosine returns the cosine similarity of two equal-length vectors,
// clamped to [-1, 1]. Mismatched or empty input yields 0.
func Cosine(a, b []float64) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}

	var dot, normA, normB float64
	for i := range a {
		dot += a[i] * b[i]
		normA += a[i] * a[i]
		normB += b[i] * b[i]
	}
	if normA == 0 || normB == 0 {
		return 0
	}

	sim := dot / (math.Sqrt(normA) * math.Sqrt(normB))
	if sim > 1 {
		sim = 1
	}
	if sim < -1 {
		sim = -1
	}
	return sim
}

// FeatureSimilarity scores two feature vectors by cosine similarity scaled
// to [0, 100]; negative correlation counts as 0.
func FeatureSimilarity(a, b []float64) Score {
	if len(a) == 0 || len(b) == 0 || len(a) != len(b) {
		return Score{Similarity: 0, Method: MethodNone}
	}
	sim := Cosine(a, b)
	if sim < 0 {
		sim = 0
	}
	return Score{Similarity: clamp100(sim * 100), Method: MethodFeature}
}

func clamp100(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}
