// Package grouping partitions a photo set into near-duplicate groups.
//
// The clustering is greedy and order-dependent by construction: items are
// visited in input order and each ungrouped item seeds a new group that
// absorbs its similar LSH candidates. Two photos that are both similar to
// a shared third photo but not to each other can therefore land in
// different groups. A connected-components variant would change results
// and is deliberately not implemented.
package grouping

import (
	"context"
	"sort"

	"github.com/google/uuid"

	"github.com/chenjuwe/photo-dedup/internal/lsh"
	"github.com/chenjuwe/photo-dedup/internal/pca"
	"github.com/chenjuwe/photo-dedup/internal/photo"
	"github.com/chenjuwe/photo-dedup/internal/similarity"
	"github.com/chenjuwe/photo-dedup/internal/vectorindex"
)

// Per-run item states.
type itemState uint8

const (
	stateUnprocessed itemState = iota
	stateInGroup
	stateDone
)

// Member is one photo inside a group with the score that admitted it.
type Member struct {
	ID         string            `json:"id"`
	Similarity float64           `json:"similarity"`
	Method     similarity.Method `json:"method"`
}

// Group is a set of near-duplicate photos. KeyID names the representative:
// the member with the highest quality composite score.
type Group struct {
	ID      string   `json:"id"`
	KeyID   string   `json:"key_id"`
	Members []Member `json:"members"`
}

// Config parameterizes one grouping engine.
type Config struct {
	// LSH configures the candidate index built per run.
	LSH lsh.EnhancedConfig

	// VectorCandidates is the number of embedding nearest neighbors
	// unioned into each candidate set. Zero disables the vector index.
	VectorCandidates int

	// QualityPenaltyScale scales the brightness/contrast correction
	// subtracted from the fused score. Zero selects the default.
	QualityPenaltyScale float64

	// ReduceDim projects item features down to this many components
	// before scoring. Zero keeps the raw features. Reduction is skipped
	// when too few items carry features to train on. The reduced vectors
	// live only for the run; caller items are never modified.
	ReduceDim int
}

const defaultQualityPenaltyScale = 10

// Engine runs greedy duplicate grouping over scored LSH candidates.
// Instances are not safe for concurrent use, but runs only read the
// input items, so one item set can feed several engines at once.
type Engine struct {
	fuser *similarity.Fuser
	cfg   Config
}

// NewEngine builds an engine; a nil fuser selects default weights.
func NewEngine(fuser *similarity.Fuser, cfg Config) *Engine {
	if fuser == nil {
		fuser = similarity.NewFuser(nil, similarity.FusionWeights{})
	}
	if cfg.QualityPenaltyScale <= 0 {
		cfg.QualityPenaltyScale = defaultQualityPenaltyScale
	}
	return &Engine{fuser: fuser, cfg: cfg}
}

// FindAllSimilarGroups partitions items into duplicate groups at the given
// similarity threshold (0-100). Every item ends up in at most one group;
// groups with a single member are not emitted. Cancellation via ctx aborts
// the run and returns ctx.Err() instead of a partial result.
func (e *Engine) FindAllSimilarGroups(ctx context.Context, items []*photo.Item, threshold float64) ([]Group, error) {
	// Index positions double as the deterministic candidate order.
	pos := make(map[string]int, len(items))
	bits := make(map[string][]uint8, len(items))
	byID := make(map[string]*photo.Item, len(items))
	for i, it := range items {
		if it == nil || it.ID == "" {
			continue
		}
		if _, dup := pos[it.ID]; dup {
			continue // first occurrence wins
		}
		pos[it.ID] = i
		bits[it.ID] = it.Hashes.BinaryHash()
		byID[it.ID] = it
	}

	// Scoring reads from run-local shallow copies when reduction is on,
	// so the shared input items stay untouched.
	scored := byID
	if e.cfg.ReduceDim > 0 {
		if reduced := reduceFeatures(items, byID, e.cfg.ReduceDim); len(reduced) > 0 {
			scored = make(map[string]*photo.Item, len(byID))
			for id, it := range byID {
				if vec, ok := reduced[id]; ok {
					cp := *it
					cp.Reduced = vec
					scored[id] = &cp
				} else {
					scored[id] = it
				}
			}
		}
	}

	index := lsh.NewEnhancedIndex(e.cfg.LSH)
	var vindex *vectorindex.Index
	if e.cfg.VectorCandidates > 0 {
		vindex = vectorindex.New()
	}
	for _, it := range items {
		if it == nil || byID[it.ID] != it {
			continue
		}
		index.Insert(it.ID, bits[it.ID], it.Feature)
		if vindex != nil && it.HasFeature() {
			vindex.Add(it.ID, it.Feature)
		}
	}

	states := make(map[string]itemState, len(byID))
	var groups []Group

	for _, seed := range items {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		if seed == nil || byID[seed.ID] != seed {
			continue
		}
		if states[seed.ID] != stateUnprocessed {
			continue
		}

		states[seed.ID] = stateInGroup
		members := []Member{{ID: seed.ID, Similarity: 100, Method: similarity.MethodHash}}

		for _, candID := range e.candidates(seed, bits[seed.ID], index, vindex, pos) {
			if candID == seed.ID || states[candID] != stateUnprocessed {
				continue
			}
			cand := byID[candID]

			score := e.fuser.Compare(scored[seed.ID], scored[candID])
			if score.Method == similarity.MethodNone {
				continue // nothing comparable; skip, don't abort the run
			}
			adjusted := applyQualityPenalty(score.Similarity, seed, cand, e.cfg.QualityPenaltyScale)
			if adjusted < threshold {
				continue
			}

			states[candID] = stateInGroup
			members = append(members, Member{ID: candID, Similarity: adjusted, Method: score.Method})
		}

		for _, m := range members {
			states[m.ID] = stateDone
		}

		if len(members) < 2 {
			continue
		}
		groups = append(groups, Group{
			ID:      uuid.NewString(),
			KeyID:   representative(members, byID),
			Members: members,
		})
	}

	return groups, nil
}

// candidates unions LSH and optional vector-index candidates, ordered by
// input position so runs are reproducible.
func (e *Engine) candidates(seed *photo.Item, seedBits []uint8, index *lsh.EnhancedIndex, vindex *vectorindex.Index, pos map[string]int) []string {
	set := index.Query(seedBits, seed.Feature)
	if vindex != nil && seed.HasFeature() {
		for _, id := range vindex.Search(seed.Feature, e.cfg.VectorCandidates) {
			set[id] = struct{}{}
		}
	}

	ids := make([]string, 0, len(set))
	for id := range set {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return pos[ids[i]] < pos[ids[j]] })
	return ids
}

// reduceFeatures trains a PCA basis on the items that carry features of a
// common dimension and returns the reduced vector per item ID. Input items
// are only read, never written. Too little training data returns nil; the
// fusion scorer falls back to the raw features.
func reduceFeatures(items []*photo.Item, byID map[string]*photo.Item, components int) map[string][]float64 {
	var train []*photo.Item
	dim := 0
	for _, it := range items {
		if it == nil || byID[it.ID] != it || !it.HasFeature() {
			continue
		}
		if dim == 0 {
			dim = len(it.Feature)
		}
		if len(it.Feature) == dim {
			train = append(train, it)
		}
	}
	if len(train) < pca.MinTrainingVectors || components >= dim {
		return nil
	}

	vectors := make([][]float64, len(train))
	for i, it := range train {
		vectors[i] = it.Feature
	}

	reducer := pca.NewReducer(pca.Options{Components: components, Normalize: true})
	if err := reducer.Train(vectors); err != nil {
		return nil
	}

	reduced := make(map[string][]float64, len(train))
	for _, it := range train {
		if vec, err := reducer.Transform(it.Feature); err == nil {
			reduced[it.ID] = vec
		}
	}
	return reduced
}

// applyQualityPenalty subtracts a brightness/contrast correction when both
// items carry quality metrics. Exposure differences indicate edits rather
// than true duplicates even when the hashes agree.
func applyQualityPenalty(score float64, a, b *photo.Item, scale float64) float64 {
	if a.Quality == nil || b.Quality == nil {
		return score
	}
	diffBrightness := a.Quality.Brightness - b.Quality.Brightness
	if diffBrightness < 0 {
		diffBrightness = -diffBrightness
	}
	diffContrast := a.Quality.Contrast - b.Quality.Contrast
	if diffContrast < 0 {
		diffContrast = -diffContrast
	}

	penalty := (diffBrightness + diffContrast) / 255 * scale
	adjusted := score - penalty
	if adjusted < 0 {
		return 0
	}
	return adjusted
}

// representative picks the member with the highest quality composite
// score. Members are already in input order, so the first maximum wins;
// members without quality data rank below any scored member.
func representative(members []Member, byID map[string]*photo.Item) string {
	best := members[0].ID
	bestScore := -1.0
	for _, m := range members {
		it := byID[m.ID]
		score := -1.0
		if it != nil && it.Quality != nil {
			score = it.Quality.Composite
		}
		if score > bestScore {
			bestScore = score
			best = m.ID
		}
	}
	return best
}
