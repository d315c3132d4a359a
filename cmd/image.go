package cmd

import (
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"os"

	_ "golang.org/x/image/bmp"
	"golang.org/x/image/draw"

	"github.com/chenjuwe/photo-dedup/internal/constants"
)

// loadPixels decodes an image file into a flat RGBA buffer. Images larger
// than MaxImageSize on either side are scaled down first; the perceptual
// hashes resample again anyway and the smaller buffer keeps the worker
// pool memory bounded.
func loadPixels(path string) ([]byte, int, int, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, 0, 0, fmt.Errorf("open image: %w", err)
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return nil, 0, 0, fmt.Errorf("decode image %s: %w", path, err)
	}

	bounds := img.Bounds()
	width, height := bounds.Dx(), bounds.Dy()
	if width > constants.MaxImageSize || height > constants.MaxImageSize {
		scale := float64(constants.MaxImageSize) / float64(max(width, height))
		width = int(float64(width) * scale)
		height = int(float64(height) * scale)
	}
	if width < 1 {
		width = 1
	}
	if height < 1 {
		height = 1
	}

	rgba := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.BiLinear.Scale(rgba, rgba.Bounds(), img, bounds, draw.Src, nil)
	return rgba.Pix, width, height, nil
}

// isImageFile reports whether the extension looks like a supported image.
func isImageFile(ext string) bool {
	switch ext {
	case ".jpg", ".jpeg", ".png", ".gif", ".bmp":
		return true
	}
	return false
}
