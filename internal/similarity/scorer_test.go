package similarity

import (
	"math"
	"strings"
	"testing"

	"github.com/chenjuwe/photo-dedup/internal/fingerprint"
)

func TestHashSimilarityIdentical(t *testing.T) {
	set := fingerprint.HashSet{
		fingerprint.KindAverage:    "ffff0000ffff0000",
		fingerprint.KindDifference: "abcdef",
	}

	s := HashSimilarity(set, set, nil)
	if s.Method != MethodHash {
		t.Fatalf("method = %s; want hash", s.Method)
	}
	if s.Similarity != 100 {
		t.Errorf("similarity of identical sets = %f; want 100", s.Similarity)
	}
}

func TestHashSimilarityNoSharedKinds(t *testing.T) {
	a := fingerprint.HashSet{fingerprint.KindAverage: "ffff"}
	b := fingerprint.HashSet{fingerprint.KindDifference: "ffff"}

	s := HashSimilarity(a, b, nil)
	if s.Method != MethodNone {
		t.Errorf("method = %s; want none", s.Method)
	}
	if s.Similarity != 0 {
		t.Errorf("similarity = %f; want 0", s.Similarity)
	}
}

func TestHashSimilarityEmptySets(t *testing.T) {
	s := HashSimilarity(fingerprint.HashSet{}, fingerprint.HashSet{}, nil)
	if s.Method != MethodNone {
		t.Errorf("empty sets: method = %s; want none", s.Method)
	}
}

func TestHashSimilarityZeroWeightIgnoresKind(t *testing.T) {
	a := fingerprint.HashSet{fingerprint.KindAverage: "ffff"}
	b := fingerprint.HashSet{fingerprint.KindAverage: "0000"}
	weights := HashWeights{fingerprint.KindAverage: 0}

	if s := HashSimilarity(a, b, weights); s.Method != MethodNone {
		t.Errorf("zero-weighted kind still compared: method = %s", s.Method)
	}
}

func TestHashSimilarityMonotonicInDistance(t *testing.T) {
	base := fingerprint.HashSet{fingerprint.KindAverage: "0000000000000000"}

	// Each step flips four more bits than the previous one.
	steps := []string{
		"0000000000000000",
		"f000000000000000",
		"ff00000000000000",
		"fff0000000000000",
		"ffffffff00000000",
		"ffffffffffffffff",
	}

	prev := 101.0
	for _, h := range steps {
		s := HashSimilarity(base, fingerprint.HashSet{fingerprint.KindAverage: h}, nil)
		if s.Similarity < 0 || s.Similarity > 100 {
			t.Fatalf("similarity %f out of [0,100]", s.Similarity)
		}
		if s.Similarity > prev {
			t.Errorf("similarity increased with distance: %f after %f (hash %s)", s.Similarity, prev, h)
		}
		prev = s.Similarity
	}
	if prev != 0 {
		t.Errorf("fully inverted hash similarity = %f; want 0", prev)
	}
}

func TestHashSimilarityWeightedMean(t *testing.T) {
	// avg matches exactly, diff is fully inverted; the score must land
	// strictly between the two extremes.
	a := fingerprint.HashSet{
		fingerprint.KindAverage:    "ffff",
		fingerprint.KindDifference: "ffff",
	}
	b := fingerprint.HashSet{
		fingerprint.KindAverage:    "ffff",
		fingerprint.KindDifference: "0000",
	}

	s := HashSimilarity(a, b, nil)
	if s.Similarity <= 0 || s.Similarity >= 100 {
		t.Errorf("mixed-distance similarity = %f; want strictly between 0 and 100", s.Similarity)
	}
}

func TestCosine(t *testing.T) {
	tests := []struct {
		name     string
		a        []float64
		b        []float64
		expected float64
		delta    float64
	}{
		{"identical", []float64{1, 0, 0}, []float64{1, 0, 0}, 1, 0.001},
		{"opposite", []float64{1, 0, 0}, []float64{-1, 0, 0}, -1, 0.001},
		{"orthogonal", []float64{1, 0, 0}, []float64{0, 1, 0}, 0, 0.001},
		{"similar", []float64{1, 1, 0}, []float64{1, 0, 0}, 0.707, 0.01},
		{"empty", nil, nil, 0, 0.001},
		{"length mismatch", []float64{1}, []float64{1, 0}, 0, 0.001},
		{"zero vector", []float64{0, 0}, []float64{1, 0}, 0, 0.001},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := Cosine(tc.a, tc.b)
			if math.Abs(got-tc.expected) > tc.delta {
				t.Errorf("Cosine(%v, %v) = %f; want %f", tc.a, tc.b, got, tc.expected)
			}
		})
	}
}

func TestFeatureSimilarity(t *testing.T) {
	identical := FeatureSimilarity([]float64{1, 2, 3}, []float64{1, 2, 3})
	if identical.Method != MethodFeature || math.Abs(identical.Similarity-100) > 0.001 {
		t.Errorf("identical vectors: got %+v", identical)
	}

	opposite := FeatureSimilarity([]float64{1, 0}, []float64{-1, 0})
	if opposite.Similarity != 0 {
		t.Errorf("opposite vectors scored %f; want 0", opposite.Similarity)
	}

	mismatch := FeatureSimilarity([]float64{1, 2}, []float64{1, 2, 3})
	if mismatch.Method != MethodNone {
		t.Errorf("length mismatch: method = %s; want none", mismatch.Method)
	}
}

func TestHashSimilarityUnequalLengths(t *testing.T) {
	// A truncated hash still compares; the missing tail counts as zeros.
	a := fingerprint.HashSet{fingerprint.KindAverage: strings.Repeat("f", 16)}
	b := fingerprint.HashSet{fingerprint.KindAverage: strings.Repeat("f", 8)}

	s := HashSimilarity(a, b, nil)
	if s.Method != MethodHash {
		t.Fatalf("method = %s; want hash", s.Method)
	}
	if math.Abs(s.Similarity-50) > 0.001 {
		t.Errorf("similarity = %f; want 50", s.Similarity)
	}
}
