package lsh

import (
	"math/rand"
	"testing"
)

func randomVector(dim int, seed int64) []float64 {
	rng := rand.New(rand.NewSource(seed))
	vec := make([]float64, dim)
	for i := range vec {
		vec[i] = rng.Float64()*20 - 10
	}
	return vec
}

func TestEuclideanSelfRetrieval(t *testing.T) {
	idx := NewEuclideanIndex(EuclideanConfig{Dim: 8, Seed: 42})
	vec := randomVector(8, 1)

	idx.Insert("a", vec)

	if _, ok := idx.Query(vec, 1)["a"]; !ok {
		t.Error("query with the inserted vector must return the inserted id")
	}
}

func TestEuclideanQueryEmpty(t *testing.T) {
	idx := NewEuclideanIndex(EuclideanConfig{Dim: 8, Seed: 42})
	if got := idx.Query(randomVector(8, 2), 3); len(got) != 0 {
		t.Errorf("query on empty index returned %d ids; want 0", len(got))
	}
}

func TestEuclideanSingleProbeSubsetOfMultiProbe(t *testing.T) {
	idx := NewEuclideanIndex(EuclideanConfig{Dim: 8, Seed: 42})

	for i := int64(0); i < 200; i++ {
		idx.Insert(string(rune(i)), randomVector(8, 1000+i))
	}

	query := randomVector(8, 5)
	exact := idx.Query(query, 1)
	probed := idx.Query(query, 3)

	if len(probed) < len(exact) {
		t.Fatalf("probed result smaller than exact: %d < %d", len(probed), len(exact))
	}
	for id := range exact {
		if _, ok := probed[id]; !ok {
			t.Errorf("id %q in exact result missing from probed result", id)
		}
	}
}

func TestEuclideanCloseVectorsCollide(t *testing.T) {
	idx := NewEuclideanIndex(EuclideanConfig{Dim: 4, Seed: 42})

	base := []float64{1, 2, 3, 4}
	near := []float64{1.001, 2.001, 3.001, 4.001}

	idx.Insert("base", base)

	// A vector this close quantizes into the same buckets in practice;
	// allow neighbor probing to absorb boundary effects.
	if _, ok := idx.Query(near, 3)["base"]; !ok {
		t.Error("near-identical vector did not retrieve its neighbor")
	}
}

func TestEuclideanRemove(t *testing.T) {
	idx := NewEuclideanIndex(EuclideanConfig{Dim: 8, Seed: 42})
	vec := randomVector(8, 3)

	idx.Insert("a", vec)
	idx.Remove("a", vec)

	if _, ok := idx.Query(vec, 1)["a"]; ok {
		t.Error("removed id still returned by query")
	}
}

func TestEuclideanClear(t *testing.T) {
	idx := NewEuclideanIndex(EuclideanConfig{Dim: 8, Seed: 42})
	vec := randomVector(8, 4)

	idx.Insert("a", vec)
	idx.Clear()

	if got := idx.Query(vec, 1); len(got) != 0 {
		t.Errorf("cleared index returned %d ids", len(got))
	}
}

func TestBoxMullerProducesFiniteValues(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	var sum float64
	for i := 0; i < 1000; i++ {
		v := boxMuller(rng)
		if v != v { // NaN check
			t.Fatal("box-muller produced NaN")
		}
		sum += v
	}
	mean := sum / 1000
	if mean < -0.2 || mean > 0.2 {
		t.Errorf("sample mean %f too far from 0", mean)
	}
}
