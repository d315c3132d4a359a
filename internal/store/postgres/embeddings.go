package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"
	"github.com/pgvector/pgvector-go"
)

// StoredEmbedding is one persisted feature vector.
type StoredEmbedding struct {
	PhotoID   string
	Embedding []float32
	Dim       int
	CreatedAt time.Time
}

// EmbeddingRepository provides pgvector-backed embedding storage.
type EmbeddingRepository struct {
	pool *Pool
}

// NewEmbeddingRepository creates a repository on top of pool.
func NewEmbeddingRepository(pool *Pool) *EmbeddingRepository {
	return &EmbeddingRepository{pool: pool}
}

// Get retrieves an embedding by photo ID, returning nil if not found.
func (r *EmbeddingRepository) Get(ctx context.Context, photoID string) (*StoredEmbedding, error) {
	query := `
		SELECT photo_id, embedding, dim, created_at
		FROM embeddings
		WHERE photo_id = $1
	`

	var emb StoredEmbedding
	var vec pgvector.Vector

	err := r.pool.db.QueryRowContext(ctx, query, photoID).Scan(
		&emb.PhotoID,
		&vec,
		&emb.Dim,
		&emb.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query embedding: %w", err)
	}

	emb.Embedding = vec.Slice()
	return &emb, nil
}

// Has checks whether an embedding exists for the given photo ID.
func (r *EmbeddingRepository) Has(ctx context.Context, photoID string) (bool, error) {
	var exists bool
	err := r.pool.db.QueryRowContext(ctx,
		"SELECT EXISTS(SELECT 1 FROM embeddings WHERE photo_id = $1)", photoID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check embedding exists: %w", err)
	}
	return exists, nil
}

// Count returns the total number of stored embeddings.
func (r *EmbeddingRepository) Count(ctx context.Context) (int, error) {
	var count int
	if err := r.pool.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM embeddings").Scan(&count); err != nil {
		return 0, fmt.Errorf("count embeddings: %w", err)
	}
	return count, nil
}

// CountByIDs returns how many of the given photo IDs have embeddings.
func (r *EmbeddingRepository) CountByIDs(ctx context.Context, ids []string) (int, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	var count int
	err := r.pool.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM embeddings WHERE photo_id = ANY($1)", pq.Array(ids)).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count embeddings by IDs: %w", err)
	}
	return count, nil
}

// Save stores an embedding (upsert).
func (r *EmbeddingRepository) Save(ctx context.Context, photoID string, embedding []float32) error {
	query := `
		INSERT INTO embeddings (photo_id, embedding, dim)
		VALUES ($1, $2::vector, $3)
		ON CONFLICT (photo_id) DO UPDATE SET
			embedding = EXCLUDED.embedding,
			dim = EXCLUDED.dim,
			created_at = NOW()
	`

	vec := pgvector.NewVector(embedding)
	if _, err := r.pool.db.ExecContext(ctx, query, photoID, vec, len(embedding)); err != nil {
		return fmt.Errorf("save embedding: %w", err)
	}
	return nil
}

// SaveBatch saves multiple embeddings in a single transaction.
func (r *EmbeddingRepository) SaveBatch(ctx context.Context, embeddings []StoredEmbedding) error {
	if len(embeddings) == 0 {
		return nil
	}

	tx, err := r.pool.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO embeddings (photo_id, embedding, dim)
		VALUES ($1, $2::vector, $3)
		ON CONFLICT (photo_id) DO UPDATE SET
			embedding = EXCLUDED.embedding,
			dim = EXCLUDED.dim,
			created_at = NOW()
	`)
	if err != nil {
		return fmt.Errorf("prepare statement: %w", err)
	}
	defer stmt.Close()

	for _, emb := range embeddings {
		vec := pgvector.NewVector(emb.Embedding)
		if _, err := stmt.ExecContext(ctx, emb.PhotoID, vec, len(emb.Embedding)); err != nil {
			return fmt.Errorf("insert embedding %s: %w", emb.PhotoID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// FindSimilar returns up to limit embeddings nearest to the query vector
// by cosine distance, closest first.
func (r *EmbeddingRepository) FindSimilar(ctx context.Context, embedding []float32, limit int) ([]StoredEmbedding, error) {
	query := `
		SELECT photo_id, embedding, dim, created_at
		FROM embeddings
		ORDER BY embedding <=> $1::vector
		LIMIT $2
	`

	vec := pgvector.NewVector(embedding)
	rows, err := r.pool.db.QueryContext(ctx, query, vec, limit)
	if err != nil {
		return nil, fmt.Errorf("query similar embeddings: %w", err)
	}
	defer rows.Close()

	return scanEmbeddings(rows)
}

// FindSimilarWithDistance returns similar embeddings whose cosine distance
// does not exceed maxDistance, along with the distances themselves.
func (r *EmbeddingRepository) FindSimilarWithDistance(ctx context.Context, embedding []float32, limit int, maxDistance float64) ([]StoredEmbedding, []float64, error) {
	query := `
		SELECT photo_id, embedding, dim, created_at,
		       embedding <=> $1::vector AS distance
		FROM embeddings
		WHERE embedding <=> $1::vector < $2
		ORDER BY distance
		LIMIT $3
	`

	vec := pgvector.NewVector(embedding)
	rows, err := r.pool.db.QueryContext(ctx, query, vec, maxDistance, limit)
	if err != nil {
		return nil, nil, fmt.Errorf("query similar embeddings: %w", err)
	}
	defer rows.Close()

	var embeddings []StoredEmbedding
	var distances []float64

	for rows.Next() {
		var emb StoredEmbedding
		var rowVec pgvector.Vector
		var dist float64

		if err := rows.Scan(&emb.PhotoID, &rowVec, &emb.Dim, &emb.CreatedAt, &dist); err != nil {
			return nil, nil, fmt.Errorf("scan embedding: %w", err)
		}

		emb.Embedding = rowVec.Slice()
		embeddings = append(embeddings, emb)
		distances = append(distances, dist)
	}

	if err := rows.Err(); err != nil {
		return nil, nil, fmt.Errorf("iterate embeddings: %w", err)
	}

	return embeddings, distances, nil
}

// Delete removes the embedding for a photo.
func (r *EmbeddingRepository) Delete(ctx context.Context, photoID string) error {
	if _, err := r.pool.db.ExecContext(ctx, "DELETE FROM embeddings WHERE photo_id = $1", photoID); err != nil {
		return fmt.Errorf("delete embedding: %w", err)
	}
	return nil
}

// PhotoIDs returns all photo IDs that have embeddings, sorted.
func (r *EmbeddingRepository) PhotoIDs(ctx context.Context) ([]string, error) {
	rows, err := r.pool.db.QueryContext(ctx, "SELECT photo_id FROM embeddings ORDER BY photo_id")
	if err != nil {
		return nil, fmt.Errorf("query embedding photo IDs: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan photo ID: %w", err)
		}
		ids = append(ids, id)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate photo IDs: %w", err)
	}
	return ids, nil
}

func scanEmbeddings(rows *sql.Rows) ([]StoredEmbedding, error) {
	var embeddings []StoredEmbedding

	for rows.Next() {
		var emb StoredEmbedding
		var vec pgvector.Vector

		if err := rows.Scan(&emb.PhotoID, &vec, &emb.Dim, &emb.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan embedding: %w", err)
		}

		emb.Embedding = vec.Slice()
		embeddings = append(embeddings, emb)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate embeddings: %w", err)
	}
	return embeddings, nil
}
