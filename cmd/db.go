package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/chenjuwe/photo-dedup/internal/config"
	"github.com/chenjuwe/photo-dedup/internal/store/postgres"
)

var dbCmd = &cobra.Command{
	Use:   "db",
	Short: "Manage the PostgreSQL embedding store",
	Long: `Manage the optional PostgreSQL embedding store. Feature vectors
pushed by external embedding pipelines live here; the similarity engine
uses them as an extra candidate source when available.

Requires DATABASE_URL to point at a PostgreSQL instance with the
pgvector extension.`,
}

var dbMigrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or update the embeddings schema",
	RunE:  runDBMigrate,
}

var dbCountCmd = &cobra.Command{
	Use:   "count",
	Short: "Count stored embeddings",
	RunE:  runDBCount,
}

var dbSimilarCmd = &cobra.Command{
	Use:   "similar <photo-id>",
	Short: "Find photos with embeddings similar to the given photo",
	Args:  cobra.ExactArgs(1),
	RunE:  runDBSimilar,
}

func init() {
	rootCmd.AddCommand(dbCmd)
	dbCmd.AddCommand(dbMigrateCmd)
	dbCmd.AddCommand(dbCountCmd)
	dbCmd.AddCommand(dbSimilarCmd)

	dbSimilarCmd.Flags().Int("limit", 10, "Maximum number of results")
	dbSimilarCmd.Flags().Float64("max-distance", 0.5, "Maximum cosine distance")
}

func openPool(cfg *config.Config) (*postgres.Pool, error) {
	pool, err := postgres.NewPool(postgres.Config{
		URL:          cfg.Database.URL,
		MaxOpenConns: cfg.Database.MaxOpenConns,
		MaxIdleConns: cfg.Database.MaxIdleConns,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to PostgreSQL: %w", err)
	}
	return pool, nil
}

func runDBMigrate(cmd *cobra.Command, args []string) error {
	cfg := config.Load()

	pool, err := openPool(cfg)
	if err != nil {
		return err
	}
	defer pool.Close()

	if err := pool.Migrate(context.Background(), cfg.Embedding.Dim); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	fmt.Printf("Schema ready (embedding dim %d)\n", cfg.Embedding.Dim)
	return nil
}

func runDBCount(cmd *cobra.Command, args []string) error {
	cfg := config.Load()

	pool, err := openPool(cfg)
	if err != nil {
		return err
	}
	defer pool.Close()

	count, err := postgres.NewEmbeddingRepository(pool).Count(context.Background())
	if err != nil {
		return err
	}
	fmt.Printf("Embeddings in database: %d\n", count)
	return nil
}

func runDBSimilar(cmd *cobra.Command, args []string) error {
	photoID := args[0]
	limit := mustGetInt(cmd, "limit")
	maxDistance := mustGetFloat64(cmd, "max-distance")

	cfg := config.Load()
	ctx := context.Background()

	pool, err := openPool(cfg)
	if err != nil {
		return err
	}
	defer pool.Close()

	repo := postgres.NewEmbeddingRepository(pool)
	emb, err := repo.Get(ctx, photoID)
	if err != nil {
		return err
	}
	if emb == nil {
		return fmt.Errorf("no embedding stored for %s", photoID)
	}

	results, distances, err := repo.FindSimilarWithDistance(ctx, emb.Embedding, limit+1, maxDistance)
	if err != nil {
		return err
	}

	fmt.Printf("Similar to %s:\n", photoID)
	for i, r := range results {
		if r.PhotoID == photoID {
			continue // the query photo matches itself at distance 0
		}
		fmt.Printf("  %.4f  %s\n", distances[i], r.PhotoID)
	}
	return nil
}
