package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/chenjuwe/photo-dedup/internal/config"
	"github.com/chenjuwe/photo-dedup/internal/store"
)

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Manage the local hash cache",
}

var cacheStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show hash cache statistics",
	RunE:  runCacheStats,
}

var cacheClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Delete the hash cache",
	RunE:  runCacheClear,
}

func init() {
	rootCmd.AddCommand(cacheCmd)
	cacheCmd.AddCommand(cacheStatsCmd)
	cacheCmd.AddCommand(cacheClearCmd)
}

func runCacheStats(cmd *cobra.Command, args []string) error {
	cfg := config.Load()

	cache, err := store.OpenSQLiteCache(cfg.Cache.Path)
	if err != nil {
		return fmt.Errorf("failed to open hash cache: %w", err)
	}
	defer cache.Close()

	count, err := cache.Count(context.Background())
	if err != nil {
		return err
	}

	fmt.Printf("Cache file: %s\n", cfg.Cache.Path)
	fmt.Printf("Cached fingerprints: %d\n", count)
	return nil
}

func runCacheClear(cmd *cobra.Command, args []string) error {
	cfg := config.Load()

	if err := os.Remove(cfg.Cache.Path); err != nil {
		if os.IsNotExist(err) {
			fmt.Println("Cache is already empty.")
			return nil
		}
		return fmt.Errorf("failed to delete cache: %w", err)
	}
	fmt.Printf("Deleted %s\n", cfg.Cache.Path)
	return nil
}
