// Package photo defines the item aggregate the engine operates on.
package photo

import (
	"github.com/chenjuwe/photo-dedup/internal/fingerprint"
	"github.com/chenjuwe/photo-dedup/internal/quality"
)

// Item aggregates everything the engine knows about one photo. Hashes are
// required for hash-level comparison; feature vectors and quality metrics
// are optional and supplied by external collaborators (or the CLI edge).
type Item struct {
	ID string `json:"id"`

	// Perceptual hashes computed by the fingerprint package.
	Hashes fingerprint.HashSet `json:"hashes"`

	// Feature is an optional high-level feature vector from an external
	// model. Reduced is its projection through a trained PCA transform.
	Feature []float64 `json:"feature,omitempty"`
	Reduced []float64 `json:"reduced,omitempty"`

	// Mid-level descriptors, optional.
	ColorFeature   []float64 `json:"color_feature,omitempty"`
	TextureFeature []float64 `json:"texture_feature,omitempty"`

	// Quality is optional; groups pick the member with the highest
	// composite score as their representative.
	Quality *quality.Metrics `json:"quality,omitempty"`

	// Meta carries caller-supplied metadata (file path, capture date, ...).
	Meta map[string]string `json:"meta,omitempty"`
}

// HasFeature reports whether the item carries a high-level feature vector.
func (it *Item) HasFeature() bool {
	return it != nil && len(it.Feature) > 0
}
