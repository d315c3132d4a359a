package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/chenjuwe/photo-dedup/internal/config"
	"github.com/chenjuwe/photo-dedup/internal/fingerprint"
	"github.com/chenjuwe/photo-dedup/internal/quality"
	"github.com/chenjuwe/photo-dedup/internal/similarity"
)

var hashCmd = &cobra.Command{
	Use:   "hash <image> [image2]",
	Short: "Compute perceptual hashes for an image",
	Long: `Compute the average, difference and perceptual hashes for an image
and print them as hex strings. With two images, also print the Hamming
distances and the weighted similarity score.

Examples:
  # Hash a single photo
  photo-dedup hash vacation.jpg

  # Compare two photos
  photo-dedup hash vacation.jpg vacation-edit.jpg

  # Use the precise DCT mode
  photo-dedup hash --precise vacation.jpg`,
	Args: cobra.RangeArgs(1, 2),
	RunE: runHash,
}

func init() {
	rootCmd.AddCommand(hashCmd)

	hashCmd.Flags().Bool("precise", false, "Use the DCT hash mode (slower, more robust)")
	hashCmd.Flags().Int("size", 0, "Hash grid size (default from tuning)")
}

func runHash(cmd *cobra.Command, args []string) error {
	cfg := config.Load()
	opts := cfg.Tuning.HashOptions()
	opts.Precise = mustGetBool(cmd, "precise")
	if size := mustGetInt(cmd, "size"); size > 0 {
		opts.Size = size
	}

	sets := make([]fingerprint.HashSet, 0, len(args))
	for _, path := range args {
		pixels, width, height, err := loadPixels(path)
		if err != nil {
			return err
		}

		hashes := fingerprint.Compute(pixels, width, height, opts)
		metrics := quality.Measure(pixels, width, height)
		sets = append(sets, hashes)

		fmt.Printf("%s (%dx%d)\n", path, width, height)
		for _, kind := range []fingerprint.HashKind{
			fingerprint.KindAverage,
			fingerprint.KindDifference,
			fingerprint.KindPerceptual,
		} {
			if hash, ok := hashes[kind]; ok {
				fmt.Printf("  %-12s %s (%d bits)\n", kind, hash, fingerprint.BitLength(hash))
			}
		}
		fmt.Printf("  %-12s %.1f (brightness %.1f, contrast %.1f, sharpness %.1f)\n",
			"quality", metrics.Composite, metrics.Brightness, metrics.Contrast, metrics.Sharpness)
	}

	if len(sets) == 2 {
		fmt.Println("\nComparison:")
		for kind, hash := range sets[0] {
			other, ok := sets[1][kind]
			if !ok {
				continue
			}
			fmt.Printf("  %-12s distance %d\n", kind, fingerprint.HammingDistanceHex(hash, other))
		}
		score := similarity.HashSimilarity(sets[0], sets[1], cfg.Tuning.HashWeights())
		fmt.Printf("  %-12s %.1f%%\n", "similarity", score.Similarity)
	}

	return nil
}
