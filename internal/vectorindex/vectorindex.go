// Package vectorindex wraps an HNSW graph over deep feature vectors. It
// serves as a second candidate source next to the LSH indexes for items
// that carry embeddings.
package vectorindex

import (
	"sync"

	"github.com/coder/hnsw"
)

// maxNeighbors is the HNSW M parameter.
const maxNeighbors = 16

// Index is an approximate nearest neighbor index over item IDs. Unlike the
// engine's LSH structures it locks internally, because the CLI shares one
// instance between the hashing workers and the grouping pass.
type Index struct {
	mu    sync.RWMutex
	graph *hnsw.Graph[string]
	dims  map[string]int
}

// New creates an empty index.
func New() *Index {
	return &Index{dims: make(map[string]int)}
}

// Add inserts or replaces the vector stored under id. Empty vectors are
// ignored.
func (x *Index) Add(id string, vector []float64) {
	if len(vector) == 0 {
		return
	}

	x.mu.Lock()
	defer x.mu.Unlock()

	if x.graph == nil {
		g := hnsw.NewGraph[string]()
		g.M = maxNeighbors
		g.Ml = 1.0 / float64(maxNeighbors)
		g.Distance = hnsw.CosineDistance
		x.graph = g
	}

	x.graph.Add(hnsw.MakeNode(id, toFloat32(vector)))
	x.dims[id] = len(vector)
}

// Search returns up to k item IDs nearest to the query vector by cosine
// distance. An empty index yields an empty result.
func (x *Index) Search(vector []float64, k int) []string {
	x.mu.RLock()
	defer x.mu.RUnlock()

	if x.graph == nil || len(vector) == 0 || k <= 0 {
		return nil
	}

	neighbors := x.graph.Search(toFloat32(vector), k)
	ids := make([]string, 0, len(neighbors))
	for _, n := range neighbors {
		// Entries deleted from the side table no longer count.
		if _, ok := x.dims[n.Key]; ok {
			ids = append(ids, n.Key)
		}
	}
	return ids
}

// Delete removes id from search results. The HNSW graph has no true
// deletion; filtering through the side table is how the results forget.
func (x *Index) Delete(id string) {
	x.mu.Lock()
	defer x.mu.Unlock()
	delete(x.dims, id)
}

// Count returns the number of live entries.
func (x *Index) Count() int {
	x.mu.RLock()
	defer x.mu.RUnlock()
	return len(x.dims)
}

// Clear drops the graph and all entries.
func (x *Index) Clear() {
	x.mu.Lock()
	defer x.mu.Unlock()
	x.graph = nil
	x.dims = make(map[string]int)
}

func toFloat32(v []float64) []float32 {
	out := make([]float32, len(v))
	for i, f := range v {
		out[i] = float32(f)
	}
	return out
}
