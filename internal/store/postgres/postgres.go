// Package postgres stores deep feature embeddings in PostgreSQL with the
// pgvector extension, so similarity candidates survive process restarts.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/lib/pq"
)

// Config holds the connection parameters for one pool.
type Config struct {
	URL          string
	MaxOpenConns int
	MaxIdleConns int
}

// Pool manages a PostgreSQL connection pool. Callers construct one
// explicitly and pass it where needed.
type Pool struct {
	db *sql.DB
}

// NewPool opens and verifies a connection pool.
func NewPool(cfg Config) (*Pool, error) {
	if cfg.URL == "" {
		return nil, errors.New("database URL is required")
	}

	db, err := sql.Open("postgres", cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		db.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	db.SetConnMaxLifetime(time.Hour)
	db.SetConnMaxIdleTime(10 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &Pool{db: db}, nil
}

// Migrate creates the embeddings schema. dim is the vector width; it must
// match the features the application computes.
func (p *Pool) Migrate(ctx context.Context, dim int) error {
	if dim <= 0 {
		return errors.New("embedding dimension must be positive")
	}

	statements := []string{
		"CREATE EXTENSION IF NOT EXISTS vector",
		fmt.Sprintf(`
			CREATE TABLE IF NOT EXISTS embeddings (
				photo_id TEXT PRIMARY KEY,
				embedding vector(%d) NOT NULL,
				dim INTEGER NOT NULL,
				created_at TIMESTAMPTZ DEFAULT NOW()
			)`, dim),
		"CREATE INDEX IF NOT EXISTS idx_embeddings_cosine ON embeddings USING hnsw (embedding vector_cosine_ops)",
	}

	for _, stmt := range statements {
		if _, err := p.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("execute migration: %w", err)
		}
	}
	return nil
}

// DB returns the underlying sql.DB for direct access.
func (p *Pool) DB() *sql.DB {
	return p.db
}

// Close closes the connection pool.
func (p *Pool) Close() error {
	if p.db != nil {
		if err := p.db.Close(); err != nil {
			return fmt.Errorf("closing database connection: %w", err)
		}
	}
	return nil
}
