package config

import (
	"math"
	"os"
	"testing"

	"github.com/chenjuwe/photo-dedup/internal/fingerprint"
)

func TestLoadEmbeddedTuning(t *testing.T) {
	cfg := Load()

	if cfg.Tuning.Hash.Size != 8 {
		t.Errorf("hash size = %d; want 8", cfg.Tuning.Hash.Size)
	}
	if cfg.Tuning.Hash.PreciseMinSize != 32 {
		t.Errorf("precise min size = %d; want 32", cfg.Tuning.Hash.PreciseMinSize)
	}
	if cfg.Tuning.Grouping.SimilarityThreshold != 90 {
		t.Errorf("similarity threshold = %v; want 90", cfg.Tuning.Grouping.SimilarityThreshold)
	}

	sum := cfg.Tuning.Hash.Weights.Average +
		cfg.Tuning.Hash.Weights.Difference +
		cfg.Tuning.Hash.Weights.Perceptual
	if math.Abs(sum-1.0) > 0.001 {
		t.Errorf("hash weights sum = %v; want 1.0", sum)
	}
}

func TestEnvOverrides(t *testing.T) {
	os.Setenv("CACHE_PATH", "/tmp/test-cache.db")
	os.Setenv("WEB_PORT", "9999")
	defer os.Unsetenv("CACHE_PATH")
	defer os.Unsetenv("WEB_PORT")

	cfg := Load()
	if cfg.Cache.Path != "/tmp/test-cache.db" {
		t.Errorf("cache path = %q; want env override", cfg.Cache.Path)
	}
	if cfg.Web.Port != 9999 {
		t.Errorf("web port = %d; want 9999", cfg.Web.Port)
	}
}

func TestEnvIntInvalidFallsBack(t *testing.T) {
	os.Setenv("WEB_PORT", "not-a-number")
	defer os.Unsetenv("WEB_PORT")

	cfg := Load()
	if cfg.Web.Port != 8080 {
		t.Errorf("web port = %d; want default 8080", cfg.Web.Port)
	}
}

func TestHashOptionsConversion(t *testing.T) {
	cfg := Load()
	opts := cfg.Tuning.HashOptions()

	if opts.Size != cfg.Tuning.Hash.Size {
		t.Errorf("options size = %d; want %d", opts.Size, cfg.Tuning.Hash.Size)
	}
	if !opts.IncludeAvg || !opts.IncludeDiff || !opts.IncludePerceptual {
		t.Error("all hash kinds should be enabled by default")
	}
}

func TestHashWeightsConversion(t *testing.T) {
	cfg := Load()
	w := cfg.Tuning.HashWeights()

	if w[fingerprint.KindPerceptual] != cfg.Tuning.Hash.Weights.Perceptual {
		t.Errorf("perceptual weight = %v; want %v",
			w[fingerprint.KindPerceptual], cfg.Tuning.Hash.Weights.Perceptual)
	}
}

func TestLSHConfigEnablesE2LSHWithFeatureDim(t *testing.T) {
	cfg := Load()

	if got := cfg.Tuning.LSHConfig(0); got.UseE2LSH {
		t.Error("E2LSH enabled without a feature dimension")
	}
	got := cfg.Tuning.LSHConfig(768)
	if !got.UseE2LSH || got.FeatureDim != 768 {
		t.Errorf("E2LSH config = %+v; want enabled with dim 768", got)
	}
}
