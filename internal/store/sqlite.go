package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/chenjuwe/photo-dedup/internal/fingerprint"
	_ "modernc.org/sqlite"
)

// SQLiteCache stores fingerprints in a local SQLite database. The driver
// is pure Go, so the cache works without cgo.
type SQLiteCache struct {
	db *sql.DB
}

const createFingerprintsTable = `
	CREATE TABLE IF NOT EXISTS fingerprints (
		path TEXT PRIMARY KEY,
		size INTEGER NOT NULL,
		mod_time INTEGER NOT NULL,
		average_hash TEXT,
		difference_hash TEXT,
		perceptual_hash TEXT,
		brightness REAL,
		contrast REAL,
		sharpness REAL,
		quality REAL,
		cached_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_fingerprints_average ON fingerprints(average_hash);
	CREATE INDEX IF NOT EXISTS idx_fingerprints_perceptual ON fingerprints(perceptual_hash);
`

// OpenSQLiteCache opens (and if needed creates) a cache database at path.
// Use ":memory:" for an ephemeral cache.
func OpenSQLiteCache(path string) (*SQLiteCache, error) {
	if path == "" {
		return nil, errors.New("cache path is required")
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open cache database: %w", err)
	}

	// A single writer avoids SQLITE_BUSY from concurrent workers.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(createFingerprintsTable); err != nil {
		db.Close()
		return nil, fmt.Errorf("create fingerprints table: %w", err)
	}

	return &SQLiteCache{db: db}, nil
}

// Get returns the cached entry for path, or nil when the file is unknown
// or has changed size or modification time since it was hashed.
func (c *SQLiteCache) Get(ctx context.Context, path string, size int64, modTime time.Time) (*Entry, error) {
	query := `
		SELECT path, size, mod_time, average_hash, difference_hash, perceptual_hash,
		       brightness, contrast, sharpness, quality, cached_at
		FROM fingerprints
		WHERE path = ?
	`

	var (
		entry         Entry
		modUnix       int64
		cachedUnix    int64
		avg, dif, per sql.NullString
	)
	err := c.db.QueryRowContext(ctx, query, path).Scan(
		&entry.Path,
		&entry.Size,
		&modUnix,
		&avg,
		&dif,
		&per,
		&entry.Quality.Brightness,
		&entry.Quality.Contrast,
		&entry.Quality.Sharpness,
		&entry.Quality.Composite,
		&cachedUnix,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query fingerprint: %w", err)
	}

	entry.ModTime = time.Unix(modUnix, 0)
	entry.CachedAt = time.Unix(cachedUnix, 0)
	if entry.Size != size || modUnix != modTime.Unix() {
		return nil, nil // stale record, caller rehashes
	}

	entry.Hashes = fingerprint.HashSet{}
	if avg.Valid && avg.String != "" {
		entry.Hashes[fingerprint.KindAverage] = avg.String
	}
	if dif.Valid && dif.String != "" {
		entry.Hashes[fingerprint.KindDifference] = dif.String
	}
	if per.Valid && per.String != "" {
		entry.Hashes[fingerprint.KindPerceptual] = per.String
	}
	return &entry, nil
}

// Put inserts or replaces the record for entry.Path.
func (c *SQLiteCache) Put(ctx context.Context, entry Entry) error {
	if entry.Path == "" {
		return errors.New("entry path is required")
	}

	query := `
		INSERT INTO fingerprints (path, size, mod_time, average_hash, difference_hash, perceptual_hash,
			brightness, contrast, sharpness, quality, cached_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (path) DO UPDATE SET
			size = excluded.size,
			mod_time = excluded.mod_time,
			average_hash = excluded.average_hash,
			difference_hash = excluded.difference_hash,
			perceptual_hash = excluded.perceptual_hash,
			brightness = excluded.brightness,
			contrast = excluded.contrast,
			sharpness = excluded.sharpness,
			quality = excluded.quality,
			cached_at = excluded.cached_at
	`

	cachedAt := entry.CachedAt
	if cachedAt.IsZero() {
		cachedAt = time.Now()
	}

	_, err := c.db.ExecContext(ctx, query,
		entry.Path,
		entry.Size,
		entry.ModTime.Unix(),
		entry.Hashes[fingerprint.KindAverage],
		entry.Hashes[fingerprint.KindDifference],
		entry.Hashes[fingerprint.KindPerceptual],
		entry.Quality.Brightness,
		entry.Quality.Contrast,
		entry.Quality.Sharpness,
		entry.Quality.Composite,
		cachedAt.Unix(),
	)
	if err != nil {
		return fmt.Errorf("save fingerprint: %w", err)
	}
	return nil
}

// Delete removes the record for path. Deleting an unknown path is not an
// error.
func (c *SQLiteCache) Delete(ctx context.Context, path string) error {
	if _, err := c.db.ExecContext(ctx, "DELETE FROM fingerprints WHERE path = ?", path); err != nil {
		return fmt.Errorf("delete fingerprint: %w", err)
	}
	return nil
}

// Count returns the number of cached records.
func (c *SQLiteCache) Count(ctx context.Context) (int, error) {
	var count int
	if err := c.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM fingerprints").Scan(&count); err != nil {
		return 0, fmt.Errorf("count fingerprints: %w", err)
	}
	return count, nil
}

// Close closes the underlying database.
func (c *SQLiteCache) Close() error {
	if c.db != nil {
		if err := c.db.Close(); err != nil {
			return fmt.Errorf("closing cache database: %w", err)
		}
	}
	return nil
}

var _ Cache = (*SQLiteCache)(nil)
