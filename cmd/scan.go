package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"syscall"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/chenjuwe/photo-dedup/internal/config"
	"github.com/chenjuwe/photo-dedup/internal/constants"
	"github.com/chenjuwe/photo-dedup/internal/fingerprint"
	"github.com/chenjuwe/photo-dedup/internal/grouping"
	"github.com/chenjuwe/photo-dedup/internal/photo"
	"github.com/chenjuwe/photo-dedup/internal/quality"
	"github.com/chenjuwe/photo-dedup/internal/store"
)

var scanCmd = &cobra.Command{
	Use:   "scan <directory>",
	Short: "Scan a directory for near-duplicate photos",
	Long: `Scan a directory tree, fingerprint every image and report groups of
near-duplicates. Hashes are cached in a local SQLite database, so a
rescan only rehashes files that changed.

Examples:
  # Scan with defaults (threshold 90)
  photo-dedup scan ~/Pictures

  # Stricter matching and more workers
  photo-dedup scan --threshold 95 --workers 16 ~/Pictures

  # Machine-readable output
  photo-dedup scan --json ~/Pictures`,
	Args: cobra.ExactArgs(1),
	RunE: runScan,
}

func init() {
	rootCmd.AddCommand(scanCmd)

	scanCmd.Flags().Float64("threshold", constants.DefaultSimilarityThreshold, "Similarity threshold (0-100)")
	scanCmd.Flags().Int("workers", constants.WorkerPoolSize, "Number of parallel hashing workers")
	scanCmd.Flags().Bool("no-cache", false, "Skip the hash cache and rehash everything")
	scanCmd.Flags().Bool("json", false, "Print groups as JSON")
}

// scanResult carries one hashed file from the worker pool.
type scanResult struct {
	index int
	item  *photo.Item
	err   error
}

func runScan(cmd *cobra.Command, args []string) error {
	dir := args[0]
	threshold := mustGetFloat64(cmd, "threshold")
	workers := mustGetInt(cmd, "workers")
	noCache := mustGetBool(cmd, "no-cache")
	asJSON := mustGetBool(cmd, "json")

	if threshold < 0 || threshold > 100 {
		return fmt.Errorf("threshold %v out of range 0-100", threshold)
	}
	if workers < 1 {
		workers = 1
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg := config.Load()

	var cache store.Cache
	if !noCache {
		c, err := store.OpenSQLiteCache(cfg.Cache.Path)
		if err != nil {
			return fmt.Errorf("failed to open hash cache: %w", err)
		}
		defer c.Close()
		cache = c
	}

	paths, err := collectImagePaths(dir)
	if err != nil {
		return err
	}
	if len(paths) == 0 {
		fmt.Println("No images found.")
		return nil
	}
	fmt.Printf("Found %d images\n", len(paths))

	items, err := hashFiles(ctx, paths, cfg.Tuning.HashOptions(), cache, workers)
	if err != nil {
		return err
	}

	engine := grouping.NewEngine(nil, grouping.Config{
		LSH:                 cfg.Tuning.LSHConfig(0),
		QualityPenaltyScale: cfg.Tuning.Grouping.QualityPenaltyScale,
		ReduceDim:           cfg.Tuning.Grouping.ReduceDim,
	})
	groups, err := engine.FindAllSimilarGroups(ctx, items, threshold)
	if err != nil {
		return fmt.Errorf("grouping failed: %w", err)
	}

	if asJSON {
		return json.NewEncoder(os.Stdout).Encode(groups)
	}
	printGroups(groups)
	return nil
}

// collectImagePaths walks dir and returns supported image files in a
// stable order.
func collectImagePaths(dir string) ([]string, error) {
	var paths []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			// Skip hidden directories like .git or .thumbnails.
			if name := d.Name(); name != "." && strings.HasPrefix(name, ".") {
				return filepath.SkipDir
			}
			return nil
		}
		if isImageFile(strings.ToLower(filepath.Ext(path))) {
			paths = append(paths, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walking %s: %w", dir, err)
	}
	sort.Strings(paths)
	return paths, nil
}

// hashFiles fingerprints all paths with a bounded worker pool, consulting
// the cache first. Results keep the input order.
func hashFiles(ctx context.Context, paths []string, opts fingerprint.Options, cache store.Cache, workers int) ([]*photo.Item, error) {
	bar := progressbar.NewOptions(len(paths),
		progressbar.OptionSetDescription("Hashing photos"),
		progressbar.OptionShowCount(),
		progressbar.OptionShowIts(),
		progressbar.OptionSetItsString("photos"),
		progressbar.OptionShowElapsedTimeOnFinish(),
		progressbar.OptionSetPredictTime(true),
		progressbar.OptionFullWidth(),
	)

	results := make([]*photo.Item, len(paths))
	var errorCount int
	var mu sync.Mutex

	sem := make(chan struct{}, workers)
	var wg sync.WaitGroup

	for i, path := range paths {
		if ctx.Err() != nil {
			break
		}
		wg.Add(1)
		go func(index int, path string) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			item, err := hashFile(ctx, path, opts, cache)
			mu.Lock()
			if err != nil {
				errorCount++
			} else {
				results[index] = item
			}
			mu.Unlock()
			bar.Add(1)
		}(i, path)
	}

	wg.Wait()
	fmt.Println()
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if errorCount > 0 {
		fmt.Printf("Skipped %d unreadable files\n", errorCount)
	}

	items := make([]*photo.Item, 0, len(results))
	for _, item := range results {
		if item != nil {
			items = append(items, item)
		}
	}
	return items, nil
}

// hashFile returns the fingerprint for one file, from cache when the file
// is unchanged.
func hashFile(ctx context.Context, path string, opts fingerprint.Options, cache store.Cache) (*photo.Item, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("stat %s: %w", path, err)
	}

	if cache != nil {
		entry, err := cache.Get(ctx, path, info.Size(), info.ModTime())
		if err == nil && entry != nil {
			m := entry.Quality
			return &photo.Item{
				ID:      path,
				Hashes:  entry.Hashes,
				Quality: &m,
			}, nil
		}
	}

	pixels, width, height, err := loadPixels(path)
	if err != nil {
		return nil, err
	}

	hashes := fingerprint.Compute(pixels, width, height, opts)
	metrics := quality.Measure(pixels, width, height)

	if cache != nil {
		// Cache failures must not fail the scan.
		_ = cache.Put(ctx, store.Entry{
			Path:    path,
			Size:    info.Size(),
			ModTime: info.ModTime(),
			Hashes:  hashes,
			Quality: metrics,
		})
	}

	return &photo.Item{
		ID:      path,
		Hashes:  hashes,
		Quality: &metrics,
	}, nil
}

func printGroups(groups []grouping.Group) {
	if len(groups) == 0 {
		fmt.Println("No duplicate groups found.")
		return
	}

	fmt.Printf("\nFound %d duplicate groups:\n", len(groups))
	for i, g := range groups {
		fmt.Printf("\nGroup %d (%d photos):\n", i+1, len(g.Members))
		for _, m := range g.Members {
			marker := " "
			if m.ID == g.KeyID {
				marker = "*" // best quality copy
			}
			fmt.Printf("  %s %5.1f%%  %s\n", marker, m.Similarity, m.ID)
		}
	}
	fmt.Println("\n* marks the best copy of each group")
}
