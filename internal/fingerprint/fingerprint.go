// Package fingerprint derives compact perceptual hashes from pixel data.
//
// Three hash kinds are supported: average (aHash), difference (dHash) and
// perceptual (pHash). All of them share a single preprocessing pipeline
// (bilinear resampling onto a small grid plus grayscale conversion) so
// computing several kinds for one image costs one resize. Every hash is a
// pure function of the pixel input: identical pixels always produce
// identical hex strings.
package fingerprint

import (
	"encoding/hex"
	"image"
	"math"

	"golang.org/x/image/draw"
)

// Compute derives the hashes selected in opts from an RGBA pixel buffer.
// The buffer layout is row-major RGBA, 4 bytes per pixel. Degenerate input
// (non-positive dimensions, short buffer) yields an empty HashSet rather
// than an error; callers treat an empty set as "nothing to compare".
func Compute(pixels []byte, width, height int, opts Options) HashSet {
	if width <= 0 || height <= 0 || len(pixels) < width*height*4 {
		return HashSet{}
	}

	src := &image.RGBA{
		Pix:    pixels[:width*height*4],
		Stride: width * 4,
		Rect:   image.Rect(0, 0, width, height),
	}
	return computeFromRGBA(src, opts.withDefaults())
}

// ComputeFromImage is a convenience wrapper for callers that hold a decoded
// image rather than a raw buffer.
func ComputeFromImage(img image.Image, opts Options) HashSet {
	if img == nil {
		return HashSet{}
	}
	bounds := img.Bounds()
	if bounds.Dx() <= 0 || bounds.Dy() <= 0 {
		return HashSet{}
	}
	rgba := image.NewRGBA(image.Rect(0, 0, bounds.Dx(), bounds.Dy()))
	draw.Draw(rgba, rgba.Bounds(), img, bounds.Min, draw.Src)
	return computeFromRGBA(rgba, opts.withDefaults())
}

func computeFromRGBA(src *image.RGBA, opts Options) HashSet {
	grid := resampleGrid(src, opts)

	set := HashSet{}
	if opts.IncludeAvg {
		set[KindAverage] = averageHash(grid)
	}
	if opts.IncludeDiff {
		set[KindDifference] = differenceHash(grid)
	}
	if opts.IncludePerceptual {
		if opts.Precise && opts.Size >= opts.PreciseMinSize {
			set[KindPerceptual] = dctHash(grid)
		} else {
			set[KindPerceptual] = blockHash(grid, opts.BlockDivisor)
		}
	}
	return set
}

// resampleGrid scales the image to a Size x Size grid with bilinear
// interpolation and converts it to luminance values, indexed grid[y][x].
func resampleGrid(src *image.RGBA, opts Options) [][]float64 {
	size := opts.Size
	scaled := image.NewRGBA(image.Rect(0, 0, size, size))
	draw.BiLinear.Scale(scaled, scaled.Bounds(), src, src.Bounds(), draw.Src, nil)

	grid := make([][]float64, size)
	for y := 0; y < size; y++ {
		grid[y] = make([]float64, size)
		for x := 0; x < size; x++ {
			off := scaled.PixOffset(x, y)
			r := float64(scaled.Pix[off])
			g := float64(scaled.Pix[off+1])
			b := float64(scaled.Pix[off+2])
			if opts.ToGrayscale {
				// ITU-R BT.601 luma weights.
				grid[y][x] = 0.299*r + 0.587*g + 0.114*b
			} else {
				grid[y][x] = (r + g + b) / 3
			}
		}
	}
	return grid
}

// averageHash thresholds every grid cell against the global mean.
func averageHash(grid [][]float64) string {
	size := len(grid)
	mean := gridMean(grid)

	bits := make([]uint8, 0, size*size)
	for y := 0; y < size; y++ {
		for x := 0; x < size; x++ {
			if grid[y][x] >= mean {
				bits = append(bits, 1)
			} else {
				bits = append(bits, 0)
			}
		}
	}
	return packBits(bits)
}

// differenceHash compares each cell to its right neighbor, row by row,
// producing size*(size-1) bits.
func differenceHash(grid [][]float64) string {
	size := len(grid)
	bits := make([]uint8, 0, size*(size-1))
	for y := 0; y < size; y++ {
		for x := 0; x < size-1; x++ {
			if grid[y][x] > grid[y][x+1] {
				bits = append(bits, 1)
			} else {
				bits = append(bits, 0)
			}
		}
	}
	return packBits(bits)
}

// blockHash partitions the grid into blocks and thresholds each block mean
// against the global mean. One bit per block.
func blockHash(grid [][]float64, blockDivisor int) string {
	size := len(grid)
	blockSize := size / blockDivisor
	if blockSize < 1 {
		blockSize = 1
	}
	blocks := size / blockSize

	globalMean := gridMean(grid)

	bits := make([]uint8, 0, blocks*blocks)
	for by := 0; by < blocks; by++ {
		for bx := 0; bx < blocks; bx++ {
			var sum float64
			for y := by * blockSize; y < (by+1)*blockSize; y++ {
				for x := bx * blockSize; x < (bx+1)*blockSize; x++ {
					sum += grid[y][x]
				}
			}
			blockMean := sum / float64(blockSize*blockSize)
			if blockMean >= globalMean {
				bits = append(bits, 1)
			} else {
				bits = append(bits, 0)
			}
		}
	}
	return packBits(bits)
}

// dctHash runs a 2-D DCT over the grid, keeps the 8x8 low-frequency corner,
// drops the DC coefficient and thresholds the remaining 63 coefficients
// against their mean.
func dctHash(grid [][]float64) string {
	dct := computeDCT(grid)

	coeffs := make([]float64, 0, 63)
	for u := 0; u < 8; u++ {
		for v := 0; v < 8; v++ {
			if u == 0 && v == 0 {
				continue // DC carries only overall brightness
			}
			coeffs = append(coeffs, dct[u][v])
		}
	}

	var sum float64
	for _, c := range coeffs {
		sum += c
	}
	mean := sum / float64(len(coeffs))

	bits := make([]uint8, 0, len(coeffs))
	for _, c := range coeffs {
		if c > mean {
			bits = append(bits, 1)
		} else {
			bits = append(bits, 0)
		}
	}
	return packBits(bits)
}

// computeDCT computes the type-II Discrete Cosine Transform of the grid.
func computeDCT(grid [][]float64) [][]float64 {
	size := len(grid)

	// Precompute the cosine table; the naive O(n^4) transform is fine for
	// the small grids used here.
	cosTable := make([][]float64, size)
	for i := range cosTable {
		cosTable[i] = make([]float64, size)
		for j := 0; j < size; j++ {
			cosTable[i][j] = math.Cos(math.Pi * float64(i) * (2*float64(j) + 1) / (2 * float64(size)))
		}
	}

	dct := make([][]float64, size)
	for u := range dct {
		dct[u] = make([]float64, size)
		for v := 0; v < size; v++ {
			var sum float64
			for x := 0; x < size; x++ {
				for y := 0; y < size; y++ {
					sum += grid[y][x] * cosTable[u][x] * cosTable[v][y]
				}
			}
			dct[u][v] = sum
		}
	}
	return dct
}

func gridMean(grid [][]float64) float64 {
	var sum float64
	var count int
	for _, row := range grid {
		for _, v := range row {
			sum += v
			count++
		}
	}
	if count == 0 {
		return 0
	}
	return sum / float64(count)
}

// packBits packs bits (most significant first) into bytes, zero-padding the
// final byte, and returns the hex encoding. Fixed-width byte buffers keep
// the string length deterministic for a given grid size.
func packBits(bits []uint8) string {
	packed := make([]byte, (len(bits)+7)/8)
	for i, bit := range bits {
		if bit != 0 {
			packed[i/8] |= 1 << (7 - uint(i%8))
		}
	}
	return hex.EncodeToString(packed)
}
