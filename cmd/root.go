package cmd

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "photo-dedup",
	Short: "A CLI tool for finding near-duplicate photos",
	Long: `Photo Dedup scans photo collections for near-duplicates using
perceptual hashes, locality-sensitive hashing and multi-level similarity
fusion, then groups them so the best copy of each duplicate set is easy
to keep.`,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)
}

func initConfig() {
	// .env file is optional, don't fail if not found
	_ = godotenv.Load()
}
