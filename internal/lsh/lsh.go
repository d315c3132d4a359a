// Package lsh provides locality-sensitive hash indexes for sub-linear
// candidate retrieval over perceptual hashes and feature vectors.
//
// Three index families are implemented: a banding index over sign random
// projections (Index), a multi-probe composition of several such indexes
// (MultiProbeIndex) and a Euclidean-distance index for continuous vectors
// (EuclideanIndex). EnhancedIndex combines the latter two.
//
// None of the indexes lock internally; each instance has a single logical
// owner at a time.
package lsh

import (
	"math/rand"
	"time"
)

// Config parameterizes a banding LSH index. Zero values fall back to the
// documented defaults at construction time.
type Config struct {
	NumHashFunctions int // bits per bucket signature (default 8)
	NumBuckets       int // buckets per table (default 1024)
	NumTables        int // independent tables (default 4)
	NumBits          int // projection input width (default 256)

	// Seed makes projection generation reproducible. Zero selects a
	// time-based seed.
	Seed int64
}

const (
	defaultNumHashFunctions = 8
	defaultNumBuckets       = 1024
	defaultNumTables        = 4
	defaultNumBits          = 256
)

func (c Config) withDefaults() Config {
	if c.NumHashFunctions <= 0 {
		c.NumHashFunctions = defaultNumHashFunctions
	}
	if c.NumBuckets <= 0 {
		c.NumBuckets = defaultNumBuckets
	}
	if c.NumTables <= 0 {
		c.NumTables = defaultNumTables
	}
	if c.NumBits <= 0 {
		c.NumBits = defaultNumBits
	}
	if c.Seed == 0 {
		c.Seed = time.Now().UnixNano()
	}
	return c
}

// Index is a banding LSH index over sign random projections. Similar bit
// patterns land in the same bucket of at least one table with high
// probability; misses are accepted LSH behavior, not a defect.
type Index struct {
	cfg Config

	// projections[table][fn] is a ±1 vector of length NumBits, generated
	// once at construction and never mutated.
	projections [][][]float64

	// tables[table] maps bucket signature to the IDs stored there.
	tables []map[int]map[string]struct{}
}

// NewIndex builds an index with freshly sampled projections.
func NewIndex(cfg Config) *Index {
	cfg = cfg.withDefaults()
	rng := rand.New(rand.NewSource(cfg.Seed))

	projections := make([][][]float64, cfg.NumTables)
	for t := range projections {
		projections[t] = make([][]float64, cfg.NumHashFunctions)
		for f := range projections[t] {
			vec := make([]float64, cfg.NumBits)
			for i := range vec {
				if rng.Intn(2) == 0 {
					vec[i] = 1
				} else {
					vec[i] = -1
				}
			}
			projections[t][f] = vec
		}
	}

	idx := &Index{cfg: cfg, projections: projections}
	idx.Clear()
	return idx
}

// featureVector expands a binary hash into a ±1 vector of length NumBits,
// padding with zeros and truncating as needed.
func (idx *Index) featureVector(bits []uint8) []float64 {
	vec := make([]float64, idx.cfg.NumBits)
	for i := 0; i < len(bits) && i < idx.cfg.NumBits; i++ {
		if bits[i] != 0 {
			vec[i] = 1
		} else {
			vec[i] = -1
		}
	}
	return vec
}

// signature assembles the per-function projection signs into a bucket ID
// for one table.
func (idx *Index) signature(table int, vec []float64) int {
	sig := 0
	for _, proj := range idx.projections[table] {
		var dot float64
		for i, p := range proj {
			dot += vec[i] * p
		}
		sig <<= 1
		if dot >= 0 {
			sig |= 1
		}
	}
	return sig % idx.cfg.NumBuckets
}

// Insert adds id to the bucket the hash maps to in every table.
func (idx *Index) Insert(id string, bits []uint8) {
	idx.insertVector(id, idx.featureVector(bits))
}

func (idx *Index) insertVector(id string, vec []float64) {
	for t := range idx.tables {
		sig := idx.signature(t, vec)
		bucket, ok := idx.tables[t][sig]
		if !ok {
			bucket = make(map[string]struct{})
			idx.tables[t][sig] = bucket
		}
		bucket[id] = struct{}{}
	}
}

// Query returns the union of the matching buckets across all tables. An
// empty index yields an empty result, never an error.
func (idx *Index) Query(bits []uint8) map[string]struct{} {
	return idx.queryVector(idx.featureVector(bits))
}

func (idx *Index) queryVector(vec []float64) map[string]struct{} {
	result := make(map[string]struct{})
	for t := range idx.tables {
		sig := idx.signature(t, vec)
		for id := range idx.tables[t][sig] {
			result[id] = struct{}{}
		}
	}
	return result
}

// Remove deletes id from the buckets the hash maps to, mirroring Insert.
func (idx *Index) Remove(id string, bits []uint8) {
	vec := idx.featureVector(bits)
	for t := range idx.tables {
		sig := idx.signature(t, vec)
		if bucket, ok := idx.tables[t][sig]; ok {
			delete(bucket, id)
			if len(bucket) == 0 {
				delete(idx.tables[t], sig)
			}
		}
	}
}

// Clear drops all stored IDs but keeps the sampled projections.
func (idx *Index) Clear() {
	idx.tables = make([]map[int]map[string]struct{}, idx.cfg.NumTables)
	for t := range idx.tables {
		idx.tables[t] = make(map[int]map[string]struct{})
	}
}

// Len returns the number of distinct IDs currently indexed.
func (idx *Index) Len() int {
	seen := make(map[string]struct{})
	for _, table := range idx.tables {
		for _, bucket := range table {
			for id := range bucket {
				seen[id] = struct{}{}
			}
		}
	}
	return len(seen)
}
