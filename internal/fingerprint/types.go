package fingerprint

// HashKind identifies one of the perceptual hash algorithms.
type HashKind string

const (
	// KindAverage is the mean-threshold hash (aHash).
	KindAverage HashKind = "avg"
	// KindDifference is the horizontal gradient hash (dHash).
	KindDifference HashKind = "diff"
	// KindPerceptual is the block/DCT perceptual hash (pHash).
	KindPerceptual HashKind = "perceptual"
)

// kindOrder fixes the concatenation order used by BinaryHash.
var kindOrder = []HashKind{KindAverage, KindDifference, KindPerceptual}

// HashSet maps each computed hash kind to its hex-encoded bit string.
// An empty HashSet means no hash-based comparison is possible for the item.
type HashSet map[HashKind]string

// Options controls which hashes are computed and how.
// Every field is explicit; use DefaultOptions for the standard configuration.
type Options struct {
	// Size is the side length of the resampled grid. Values <= 0 fall back
	// to DefaultGridSize.
	Size int

	IncludeAvg        bool
	IncludeDiff       bool
	IncludePerceptual bool

	// ToGrayscale selects BT.601 luma conversion. When false the three
	// color channels are averaged instead.
	ToGrayscale bool

	// Precise switches the perceptual hash to its DCT mode. It only takes
	// effect when Size >= PreciseMinSize.
	Precise bool

	// PreciseMinSize is the minimum grid size for the DCT mode. The cutover
	// is empirical; it is kept configurable rather than hard-coded. Values
	// below the 8x8 coefficient corner read by the DCT hash are raised to 8.
	PreciseMinSize int

	// BlockDivisor controls the block size of the non-precise perceptual
	// hash: blocks are Size/BlockDivisor pixels on a side.
	BlockDivisor int
}

const (
	// DefaultGridSize is the default resampling grid side length.
	DefaultGridSize = 8

	// DefaultPreciseMinSize is the default minimum grid size for DCT mode.
	DefaultPreciseMinSize = 32

	// DefaultBlockDivisor is the default block partitioning factor for the
	// non-precise perceptual hash.
	DefaultBlockDivisor = 4

	// dctMinSize is the smallest grid the DCT mode can hash: dctHash reads
	// the 8x8 low-frequency corner of the transform.
	dctMinSize = 8
)

// DefaultOptions returns options computing all three hashes on an 8x8 grid.
func DefaultOptions() Options {
	return Options{
		Size:              DefaultGridSize,
		IncludeAvg:        true,
		IncludeDiff:       true,
		IncludePerceptual: true,
		ToGrayscale:       true,
		PreciseMinSize:    DefaultPreciseMinSize,
		BlockDivisor:      DefaultBlockDivisor,
	}
}

func (o Options) withDefaults() Options {
	if o.Size <= 0 {
		o.Size = DefaultGridSize
	}
	if o.PreciseMinSize <= 0 {
		o.PreciseMinSize = DefaultPreciseMinSize
	} else if o.PreciseMinSize < dctMinSize {
		// A smaller cutover would send grids without an 8x8 corner into
		// the DCT path; such grids use block mode instead.
		o.PreciseMinSize = dctMinSize
	}
	if o.BlockDivisor <= 0 {
		o.BlockDivisor = DefaultBlockDivisor
	}
	return o
}

// BinaryHash expands all present hashes into a single bit slice, in the
// fixed order avg, diff, perceptual. The result is only meaningful as LSH
// input; it is never compared for equality.
func (s HashSet) BinaryHash() []uint8 {
	var bits []uint8
	for _, kind := range kindOrder {
		hexStr, ok := s[kind]
		if !ok {
			continue
		}
		bits = append(bits, hexToBits(hexStr)...)
	}
	return bits
}

// BitLength returns the number of bits encoded by a hex hash string.
func BitLength(hexHash string) int {
	return len(hexHash) * 4
}

// hexToBits expands a hex string into bits, most significant bit first.
func hexToBits(s string) []uint8 {
	bits := make([]uint8, 0, len(s)*4)
	for i := 0; i < len(s); i++ {
		v := hexDigitValue(s[i])
		for shift := 3; shift >= 0; shift-- {
			bits = append(bits, uint8((v>>shift)&1))
		}
	}
	return bits
}
