package lsh

import (
	"fmt"
	"math"
	"math/rand"
	"strings"
	"time"
)

// BucketWidth is the fixed E2LSH quantization width (the "w" parameter of
// Datar et al.).
const BucketWidth = 4.0

// maxExtraProbes bounds neighbor probing per query.
const maxExtraProbes = 10

// EuclideanConfig parameterizes a EuclideanIndex.
type EuclideanConfig struct {
	Dim              int // input vector dimension (required)
	NumTables        int // independent tables (default 4)
	NumHashFunctions int // bucket IDs per table key (default 4)
	Seed             int64
}

func (c EuclideanConfig) withDefaults() EuclideanConfig {
	if c.NumTables <= 0 {
		c.NumTables = 4
	}
	if c.NumHashFunctions <= 0 {
		c.NumHashFunctions = 4
	}
	if c.Seed == 0 {
		c.Seed = time.Now().UnixNano()
	}
	return c
}

// EuclideanIndex is an E2LSH index for continuous feature vectors. Each
// table key is the tuple of floor((a·x + b)/w) over the table's Gaussian
// projections.
type EuclideanIndex struct {
	cfg EuclideanConfig

	// a[table][fn] are Gaussian projection vectors, b[table][fn] the
	// uniform offsets in [0, w).
	a [][][]float64
	b [][]float64

	tables []map[string]map[string]struct{}
}

// NewEuclideanIndex samples projections for vectors of dimension cfg.Dim.
func NewEuclideanIndex(cfg EuclideanConfig) *EuclideanIndex {
	cfg = cfg.withDefaults()
	rng := rand.New(rand.NewSource(cfg.Seed))

	a := make([][][]float64, cfg.NumTables)
	b := make([][]float64, cfg.NumTables)
	for t := 0; t < cfg.NumTables; t++ {
		a[t] = make([][]float64, cfg.NumHashFunctions)
		b[t] = make([]float64, cfg.NumHashFunctions)
		for f := 0; f < cfg.NumHashFunctions; f++ {
			vec := make([]float64, cfg.Dim)
			for i := range vec {
				vec[i] = boxMuller(rng)
			}
			a[t][f] = vec
			b[t][f] = rng.Float64() * BucketWidth
		}
	}

	idx := &EuclideanIndex{cfg: cfg, a: a, b: b}
	idx.Clear()
	return idx
}

// boxMuller samples a standard normal value from two uniforms.
func boxMuller(rng *rand.Rand) float64 {
	u1 := rng.Float64()
	for u1 == 0 {
		u1 = rng.Float64()
	}
	u2 := rng.Float64()
	return math.Sqrt(-2*math.Log(u1)) * math.Cos(2*math.Pi*u2)
}

// bucketIDs computes the per-function bucket IDs of one table.
func (idx *EuclideanIndex) bucketIDs(table int, vec []float64) []int {
	ids := make([]int, idx.cfg.NumHashFunctions)
	for f := 0; f < idx.cfg.NumHashFunctions; f++ {
		var dot float64
		proj := idx.a[table][f]
		for i := 0; i < len(proj) && i < len(vec); i++ {
			dot += proj[i] * vec[i]
		}
		ids[f] = int(math.Floor((dot + idx.b[table][f]) / BucketWidth))
	}
	return ids
}

func bucketKey(ids []int) string {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = fmt.Sprintf("%d", id)
	}
	return strings.Join(parts, ",")
}

// Insert adds id to the matching bucket of every table.
func (idx *EuclideanIndex) Insert(id string, vec []float64) {
	for t := range idx.tables {
		key := bucketKey(idx.bucketIDs(t, vec))
		bucket, ok := idx.tables[t][key]
		if !ok {
			bucket = make(map[string]struct{})
			idx.tables[t][key] = bucket
		}
		bucket[id] = struct{}{}
	}
}

// Query unions matching buckets across tables. With numProbes > 1 it also
// probes, per hash function independently, the two neighboring buckets
// (±1), bounded to maxExtraProbes extra lookups per query. numProbes <= 1
// returns exact-bucket matches only.
func (idx *EuclideanIndex) Query(vec []float64, numProbes int) map[string]struct{} {
	result := make(map[string]struct{})
	extra := 0

	for t := range idx.tables {
		ids := idx.bucketIDs(t, vec)
		for id := range idx.tables[t][bucketKey(ids)] {
			result[id] = struct{}{}
		}
		if numProbes <= 1 {
			continue
		}

		for f := 0; f < len(ids) && extra < maxExtraProbes; f++ {
			for _, delta := range []int{-1, 1} {
				if extra >= maxExtraProbes {
					break
				}
				probe := make([]int, len(ids))
				copy(probe, ids)
				probe[f] += delta
				for id := range idx.tables[t][bucketKey(probe)] {
					result[id] = struct{}{}
				}
				extra++
			}
		}
	}
	return result
}

// Remove deletes id from the buckets the vector maps to.
func (idx *EuclideanIndex) Remove(id string, vec []float64) {
	for t := range idx.tables {
		key := bucketKey(idx.bucketIDs(t, vec))
		if bucket, ok := idx.tables[t][key]; ok {
			delete(bucket, id)
			if len(bucket) == 0 {
				delete(idx.tables[t], key)
			}
		}
	}
}

// Clear drops all stored IDs but keeps the sampled projections.
func (idx *EuclideanIndex) Clear() {
	idx.tables = make([]map[string]map[string]struct{}, idx.cfg.NumTables)
	for t := range idx.tables {
		idx.tables[t] = make(map[string]map[string]struct{})
	}
}
