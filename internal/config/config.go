// Package config loads runtime configuration from the environment and the
// embedded tuning file.
package config

import (
	_ "embed"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"

	"github.com/chenjuwe/photo-dedup/internal/fingerprint"
	"github.com/chenjuwe/photo-dedup/internal/lsh"
	"github.com/chenjuwe/photo-dedup/internal/similarity"
)

//go:embed tuning.yaml
var tuningYAML []byte

type Config struct {
	Cache     CacheConfig
	Database  DatabaseConfig
	Embedding EmbeddingConfig
	Web       WebConfig
	Tuning    TuningConfig
}

type CacheConfig struct {
	Path string // SQLite cache file (default photo-dedup.db)
}

type DatabaseConfig struct {
	URL          string // PostgreSQL connection URL; empty disables the embedding store
	MaxOpenConns int    // Maximum open connections (default 25)
	MaxIdleConns int    // Maximum idle connections (default 5)
}

type EmbeddingConfig struct {
	Dim int // feature vector width (default 768)
}

type WebConfig struct {
	Host string // defaults to 0.0.0.0
	Port int    // defaults to 8080
}

// TuningConfig carries the algorithm constants from the embedded YAML.
type TuningConfig struct {
	Hash struct {
		Size           int `yaml:"size"`
		PreciseMinSize int `yaml:"precise_min_size"`
		BlockDivisor   int `yaml:"block_divisor"`
		Weights        struct {
			Average    float64 `yaml:"average"`
			Difference float64 `yaml:"difference"`
			Perceptual float64 `yaml:"perceptual"`
		} `yaml:"weights"`
	} `yaml:"hash"`
	LSH struct {
		NumHashFunctions int `yaml:"num_hash_functions"`
		NumBuckets       int `yaml:"num_buckets"`
		NumTables        int `yaml:"num_tables"`
		NumBits          int `yaml:"num_bits"`
		NumLevels        int `yaml:"num_levels"`
		NumPerturbations int `yaml:"num_perturbations"`
		NumProbes        int `yaml:"num_probes"`
	} `yaml:"lsh"`
	Fusion struct {
		LowLevel  float64 `yaml:"low_level"`
		MidLevel  float64 `yaml:"mid_level"`
		HighLevel float64 `yaml:"high_level"`
		Color     float64 `yaml:"color"`
		Texture   float64 `yaml:"texture"`
	} `yaml:"fusion"`
	Grouping struct {
		SimilarityThreshold float64 `yaml:"similarity_threshold"`
		QualityPenaltyScale float64 `yaml:"quality_penalty_scale"`
		VectorCandidates    int     `yaml:"vector_candidates"`
		ReduceDim           int     `yaml:"reduce_dim"`
	} `yaml:"grouping"`
}

// envInt reads an environment variable and parses it as a positive integer.
// Returns the default value if the env var is unset, empty, or invalid.
func envInt(key string, defaultVal int) int {
	s := os.Getenv(key)
	if s == "" {
		return defaultVal
	}
	if n, err := strconv.Atoi(s); err == nil && n > 0 {
		return n
	}
	return defaultVal
}

func envString(key, defaultVal string) string {
	if s := os.Getenv(key); s != "" {
		return s
	}
	return defaultVal
}

func Load() *Config {
	var tuning TuningConfig
	if err := yaml.Unmarshal(tuningYAML, &tuning); err != nil {
		// The file is embedded, so this can only happen on a bad edit.
		panic("failed to unmarshal embedded tuning.yaml: " + err.Error())
	}

	return &Config{
		Cache: CacheConfig{
			Path: envString("CACHE_PATH", "photo-dedup.db"),
		},
		Database: DatabaseConfig{
			URL:          os.Getenv("DATABASE_URL"),
			MaxOpenConns: envInt("DATABASE_MAX_OPEN_CONNS", 25),
			MaxIdleConns: envInt("DATABASE_MAX_IDLE_CONNS", 5),
		},
		Embedding: EmbeddingConfig{
			Dim: envInt("EMBEDDING_DIM", 768),
		},
		Web: WebConfig{
			Host: envString("WEB_HOST", "0.0.0.0"),
			Port: envInt("WEB_PORT", 8080),
		},
		Tuning: tuning,
	}
}

// HashOptions converts the tuning block into fingerprint options.
func (t *TuningConfig) HashOptions() fingerprint.Options {
	return fingerprint.Options{
		Size:              t.Hash.Size,
		IncludeAvg:        true,
		IncludeDiff:       true,
		IncludePerceptual: true,
		ToGrayscale:       true,
		PreciseMinSize:    t.Hash.PreciseMinSize,
		BlockDivisor:      t.Hash.BlockDivisor,
	}
}

// HashWeights converts the tuning block into scorer weights.
func (t *TuningConfig) HashWeights() similarity.HashWeights {
	return similarity.HashWeights{
		fingerprint.KindAverage:    t.Hash.Weights.Average,
		fingerprint.KindDifference: t.Hash.Weights.Difference,
		fingerprint.KindPerceptual: t.Hash.Weights.Perceptual,
	}
}

// FusionWeights converts the tuning block into fusion weights.
func (t *TuningConfig) FusionWeights() similarity.FusionWeights {
	return similarity.FusionWeights{
		LowLevel:      t.Fusion.LowLevel,
		MidLevel:      t.Fusion.MidLevel,
		HighLevel:     t.Fusion.HighLevel,
		ColorWeight:   t.Fusion.Color,
		TextureWeight: t.Fusion.Texture,
	}
}

// LSHConfig converts the tuning block into the enhanced index config.
// featureDim enables the Euclidean stage when positive.
func (t *TuningConfig) LSHConfig(featureDim int) lsh.EnhancedConfig {
	return lsh.EnhancedConfig{
		Config: lsh.Config{
			NumHashFunctions: t.LSH.NumHashFunctions,
			NumBuckets:       t.LSH.NumBuckets,
			NumTables:        t.LSH.NumTables,
			NumBits:          t.LSH.NumBits,
		},
		NumProbes:        t.LSH.NumProbes,
		UseE2LSH:         featureDim > 0,
		FeatureDim:       featureDim,
		NumLevels:        t.LSH.NumLevels,
		NumPerturbations: t.LSH.NumPerturbations,
	}
}
