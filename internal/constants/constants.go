// Package constants provides shared constants used across the codebase.
// Centralizing these values ensures consistency and makes them easier to modify.
package constants

// Similarity constants
const (
	// DefaultSimilarityThreshold is the default fused score (0-100) a pair
	// must reach to be grouped as near-duplicates
	DefaultSimilarityThreshold = 90.0

	// DefaultVectorCandidates is the default number of embedding nearest
	// neighbors unioned into each LSH candidate set
	DefaultVectorCandidates = 20
)

// Processing constants
const (
	// WorkerPoolSize is the default number of parallel workers for hashing
	WorkerPoolSize = 8

	// MaxImageSize is the maximum dimension (width or height) for image processing
	MaxImageSize = 1920
)

// Web API constants
const (
	// DefaultGroupLimit is the default max number of duplicate groups returned
	DefaultGroupLimit = 100

	// MaxUploadBytes caps the request body for photo registration
	MaxUploadBytes = 32 << 20
)
