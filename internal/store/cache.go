// Package store persists computed fingerprints between runs so unchanged
// files are not rehashed.
package store

import (
	"context"
	"time"

	"github.com/chenjuwe/photo-dedup/internal/fingerprint"
	"github.com/chenjuwe/photo-dedup/internal/quality"
)

// Entry is one cached fingerprint record.
type Entry struct {
	Path     string
	Size     int64
	ModTime  time.Time
	Hashes   fingerprint.HashSet
	Quality  quality.Metrics
	CachedAt time.Time
}

// Cache is the hash cache contract. A cached record is valid only while
// the file keeps its size and modification time; Get treats a mismatch
// as a miss.
type Cache interface {
	Get(ctx context.Context, path string, size int64, modTime time.Time) (*Entry, error)
	Put(ctx context.Context, entry Entry) error
	Delete(ctx context.Context, path string) error
	Count(ctx context.Context) (int, error)
	Close() error
}
