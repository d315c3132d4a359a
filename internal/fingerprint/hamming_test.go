package fingerprint

import "testing"

func TestHammingDistanceHex(t *testing.T) {
	tests := []struct {
		name     string
		a        string
		b        string
		expected int
	}{
		{"identical", "ffff", "ffff", 0},
		{"empty strings", "", "", 0},
		{"completely different", "ffff", "0000", 16},
		{"one bit", "0001", "0000", 1},
		{"one nibble", "000f", "0000", 4},
		{"alternating", "aaaa", "5555", 16},
		{"shorter padded with zeros", "ff", "ff00", 0},
		{"shorter against set bits", "", "ff", 8},
		{"uppercase digits", "FF", "ff", 0},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := HammingDistanceHex(tc.a, tc.b); got != tc.expected {
				t.Errorf("HammingDistanceHex(%q, %q) = %d; want %d", tc.a, tc.b, got, tc.expected)
			}
		})
	}
}

func TestHammingDistanceSymmetry(t *testing.T) {
	pairs := [][2]string{
		{"deadbeef", "cafebabe"},
		{"0f", "f0f0"},
		{"", "1234"},
	}
	for _, p := range pairs {
		if HammingDistanceHex(p[0], p[1]) != HammingDistanceHex(p[1], p[0]) {
			t.Errorf("distance not symmetric for %q, %q", p[0], p[1])
		}
	}
}

func TestBitLength(t *testing.T) {
	if got := BitLength("ffff"); got != 16 {
		t.Errorf("BitLength(ffff) = %d; want 16", got)
	}
	if got := BitLength(""); got != 0 {
		t.Errorf("BitLength(empty) = %d; want 0", got)
	}
}
