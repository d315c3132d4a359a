package grouping

import (
	"context"
	"math/rand"
	"sync"
	"testing"

	"github.com/chenjuwe/photo-dedup/internal/fingerprint"
	"github.com/chenjuwe/photo-dedup/internal/lsh"
	"github.com/chenjuwe/photo-dedup/internal/photo"
	"github.com/chenjuwe/photo-dedup/internal/quality"
)

func testEngine() *Engine {
	return NewEngine(nil, Config{
		LSH: lsh.EnhancedConfig{
			Config: lsh.Config{
				NumHashFunctions: 8,
				NumBuckets:       256,
				NumTables:        4,
				NumBits:          256,
				Seed:             42,
			},
			NumLevels: 2,
		},
	})
}

func gradientBuffer(width, height int, offset byte) []byte {
	pix := make([]byte, width*height*4)
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			v := byte((x+y)*255/(width+height)) + offset
			off := (y*width + x) * 4
			pix[off] = v
			pix[off+1] = v
			pix[off+2] = v
			pix[off+3] = 255
		}
	}
	return pix
}

func randomBuffer(width, height int, seed int64) []byte {
	rng := rand.New(rand.NewSource(seed))
	pix := make([]byte, width*height*4)
	for i := 0; i < width*height; i++ {
		pix[i*4] = byte(rng.Intn(256))
		pix[i*4+1] = byte(rng.Intn(256))
		pix[i*4+2] = byte(rng.Intn(256))
		pix[i*4+3] = 255
	}
	return pix
}

func itemFromBuffer(id string, pix []byte, width, height int) *photo.Item {
	return &photo.Item{
		ID:     id,
		Hashes: fingerprint.Compute(pix, width, height, fingerprint.DefaultOptions()),
	}
}

func TestIdenticalBuffersGrouped(t *testing.T) {
	pix := gradientBuffer(64, 64, 0)
	items := []*photo.Item{
		itemFromBuffer("a", pix, 64, 64),
		itemFromBuffer("b", pix, 64, 64),
	}

	// Identical pixels mean distance 0 on every kind, so the pair groups
	// at any threshold up to 100.
	for _, threshold := range []float64{50, 90, 100} {
		groups, err := testEngine().FindAllSimilarGroups(context.Background(), items, threshold)
		if err != nil {
			t.Fatalf("threshold %v: %v", threshold, err)
		}
		if len(groups) != 1 {
			t.Fatalf("threshold %v: got %d groups; want 1", threshold, len(groups))
		}
		if len(groups[0].Members) != 2 {
			t.Errorf("threshold %v: group has %d members; want 2", threshold, len(groups[0].Members))
		}
	}
}

func TestRandomBuffersNotGrouped(t *testing.T) {
	items := []*photo.Item{
		itemFromBuffer("a", randomBuffer(128, 128, 1), 128, 128),
		itemFromBuffer("b", randomBuffer(128, 128, 2), 128, 128),
	}

	groups, err := testEngine().FindAllSimilarGroups(context.Background(), items, 90)
	if err != nil {
		t.Fatal(err)
	}
	if len(groups) != 0 {
		t.Errorf("uncorrelated buffers grouped at threshold 90: %+v", groups)
	}
}

func TestGroupDisjointness(t *testing.T) {
	// Three clusters of identical buffers plus noise items.
	var items []*photo.Item
	for c := 0; c < 3; c++ {
		pix := gradientBuffer(64, 64, byte(c*40))
		for i := 0; i < 3; i++ {
			items = append(items, itemFromBuffer(
				string(rune('a'+c))+string(rune('0'+i)), pix, 64, 64))
		}
	}
	for i := int64(0); i < 4; i++ {
		items = append(items, itemFromBuffer(
			"noise"+string(rune('0'+i)), randomBuffer(64, 64, 50+i), 64, 64))
	}

	groups, err := testEngine().FindAllSimilarGroups(context.Background(), items, 95)
	if err != nil {
		t.Fatal(err)
	}

	seen := make(map[string]string)
	for _, g := range groups {
		if len(g.Members) < 2 {
			t.Errorf("group %s emitted with %d members", g.ID, len(g.Members))
		}
		for _, m := range g.Members {
			if prev, ok := seen[m.ID]; ok {
				t.Errorf("item %s appears in groups %s and %s", m.ID, prev, g.ID)
			}
			seen[m.ID] = g.ID
		}
	}
}

func TestSingletonsNotEmitted(t *testing.T) {
	items := []*photo.Item{
		itemFromBuffer("only", gradientBuffer(64, 64, 0), 64, 64),
	}

	groups, err := testEngine().FindAllSimilarGroups(context.Background(), items, 90)
	if err != nil {
		t.Fatal(err)
	}
	if len(groups) != 0 {
		t.Errorf("singleton emitted as group: %+v", groups)
	}
}

func TestCancellation(t *testing.T) {
	pix := gradientBuffer(64, 64, 0)
	items := []*photo.Item{
		itemFromBuffer("a", pix, 64, 64),
		itemFromBuffer("b", pix, 64, 64),
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	groups, err := testEngine().FindAllSimilarGroups(ctx, items, 90)
	if err == nil {
		t.Fatal("cancelled run returned no error")
	}
	if groups != nil {
		t.Errorf("cancelled run returned partial groups: %+v", groups)
	}
}

func TestRepresentativeByQuality(t *testing.T) {
	pix := gradientBuffer(64, 64, 0)
	a := itemFromBuffer("a", pix, 64, 64)
	b := itemFromBuffer("b", pix, 64, 64)
	c := itemFromBuffer("c", pix, 64, 64)
	a.Quality = &quality.Metrics{Composite: 40}
	b.Quality = &quality.Metrics{Composite: 80}
	c.Quality = &quality.Metrics{Composite: 80} // tie with b; b comes first

	groups, err := testEngine().FindAllSimilarGroups(context.Background(), []*photo.Item{a, b, c}, 90)
	if err != nil {
		t.Fatal(err)
	}
	if len(groups) != 1 {
		t.Fatalf("got %d groups; want 1", len(groups))
	}
	if groups[0].KeyID != "b" {
		t.Errorf("representative = %s; want b (first highest composite)", groups[0].KeyID)
	}
}

func TestRepresentativeDefaultsToSeed(t *testing.T) {
	pix := gradientBuffer(64, 64, 0)
	items := []*photo.Item{
		itemFromBuffer("first", pix, 64, 64),
		itemFromBuffer("second", pix, 64, 64),
	}

	groups, err := testEngine().FindAllSimilarGroups(context.Background(), items, 90)
	if err != nil {
		t.Fatal(err)
	}
	if len(groups) != 1 {
		t.Fatalf("got %d groups; want 1", len(groups))
	}
	if groups[0].KeyID != "first" {
		t.Errorf("representative without quality data = %s; want first", groups[0].KeyID)
	}
}

func TestIncomparableCandidateSkipped(t *testing.T) {
	pix := gradientBuffer(64, 64, 0)
	items := []*photo.Item{
		itemFromBuffer("a", pix, 64, 64),
		{ID: "empty", Hashes: fingerprint.HashSet{}}, // nothing to compare
		itemFromBuffer("b", pix, 64, 64),
	}

	groups, err := testEngine().FindAllSimilarGroups(context.Background(), items, 90)
	if err != nil {
		t.Fatalf("run aborted on incomparable item: %v", err)
	}
	if len(groups) != 1 {
		t.Fatalf("got %d groups; want 1", len(groups))
	}
	for _, m := range groups[0].Members {
		if m.ID == "empty" {
			t.Error("incomparable item was grouped")
		}
	}
}

func TestQualityPenaltyBlocksGrouping(t *testing.T) {
	pix := gradientBuffer(64, 64, 0)
	a := itemFromBuffer("a", pix, 64, 64)
	b := itemFromBuffer("b", pix, 64, 64)
	a.Quality = &quality.Metrics{Brightness: 0, Contrast: 0}
	b.Quality = &quality.Metrics{Brightness: 255, Contrast: 0}

	// Identical hashes score 100, but the full-range brightness gap costs
	// the whole default penalty of 10 points.
	groups, err := testEngine().FindAllSimilarGroups(context.Background(), []*photo.Item{a, b}, 95)
	if err != nil {
		t.Fatal(err)
	}
	if len(groups) != 0 {
		t.Errorf("exposure-divergent pair grouped despite penalty: %+v", groups)
	}
}

func featureItems(n, dim int) []*photo.Item {
	pix := gradientBuffer(64, 64, 0)
	rng := rand.New(rand.NewSource(7))
	items := make([]*photo.Item, n)
	for i := range items {
		it := itemFromBuffer(string(rune('a'+i)), pix, 64, 64)
		it.Feature = make([]float64, dim)
		for j := range it.Feature {
			it.Feature[j] = rng.Float64()
		}
		items[i] = it
	}
	return items
}

func idMap(items []*photo.Item) map[string]*photo.Item {
	byID := make(map[string]*photo.Item, len(items))
	for _, it := range items {
		byID[it.ID] = it
	}
	return byID
}

func TestReduceFeaturesReturnsRunLocalVectors(t *testing.T) {
	items := featureItems(8, 16)

	reduced := reduceFeatures(items, idMap(items), 4)
	if len(reduced) != len(items) {
		t.Fatalf("reduced %d items; want %d", len(reduced), len(items))
	}
	for id, vec := range reduced {
		if len(vec) != 4 {
			t.Errorf("item %s reduced dim = %d; want 4", id, len(vec))
		}
	}
	for _, it := range items {
		if it.Reduced != nil {
			t.Errorf("item %s was written by reduction", it.ID)
		}
	}
}

func TestReduceFeaturesSkipsSmallTrainingSet(t *testing.T) {
	items := featureItems(2, 4)

	if reduced := reduceFeatures(items, idMap(items), 2); reduced != nil {
		t.Errorf("reduction ran with too few training vectors: %v", reduced)
	}
}

func TestConcurrentRunsOverSharedItems(t *testing.T) {
	// Several engines grouping the same catalog at once, as the HTTP
	// handler does for concurrent requests. Runs must only read the
	// shared items, reduction included.
	items := featureItems(16, 16)

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			engine := NewEngine(nil, Config{
				LSH:       lsh.EnhancedConfig{Config: lsh.Config{Seed: 42}},
				ReduceDim: 4,
			})
			if _, err := engine.FindAllSimilarGroups(context.Background(), items, 90); err != nil {
				t.Error(err)
			}
		}()
	}
	wg.Wait()

	for _, it := range items {
		if it.Reduced != nil {
			t.Errorf("shared item %s mutated during concurrent runs", it.ID)
		}
	}
}

func TestVectorIndexAddsCandidates(t *testing.T) {
	pix := gradientBuffer(64, 64, 0)
	a := itemFromBuffer("a", pix, 64, 64)
	b := itemFromBuffer("b", pix, 64, 64)
	a.Feature = []float64{1, 0, 0, 0}
	b.Feature = []float64{1, 0, 0, 0}

	engine := NewEngine(nil, Config{
		LSH: lsh.EnhancedConfig{
			Config: lsh.Config{Seed: 42},
		},
		VectorCandidates: 5,
	})

	groups, err := engine.FindAllSimilarGroups(context.Background(), []*photo.Item{a, b}, 90)
	if err != nil {
		t.Fatal(err)
	}
	if len(groups) != 1 {
		t.Fatalf("got %d groups; want 1", len(groups))
	}
}
