package fingerprint

// popcount4 holds the number of set bits for every 4-bit value.
var popcount4 = [16]int{0, 1, 1, 2, 1, 2, 2, 3, 1, 2, 2, 3, 2, 3, 3, 4}

// HammingDistanceHex computes the Hamming distance between two hex-encoded
// hashes. The shorter string is treated as zero-padded at the end, so the
// distance is defined for hashes of unequal length. Distance 0 implies the
// hashes are bit-identical.
func HammingDistanceHex(a, b string) int {
	n := len(a)
	if len(b) > n {
		n = len(b)
	}

	distance := 0
	for i := 0; i < n; i++ {
		var va, vb int
		if i < len(a) {
			va = hexDigitValue(a[i])
		}
		if i < len(b) {
			vb = hexDigitValue(b[i])
		}
		distance += popcount4[va^vb]
	}
	return distance
}

// hexDigitValue parses a single hex digit. Non-hex bytes count as zero so a
// corrupt hash degrades to a large distance instead of a panic.
func hexDigitValue(c byte) int {
	switch {
	case c >= '0' && c <= '9':
		return int(c - '0')
	case c >= 'a' && c <= 'f':
		return int(c-'a') + 10
	case c >= 'A' && c <= 'F':
		return int(c-'A') + 10
	}
	return 0
}
