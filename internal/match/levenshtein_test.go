package match

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLevenshtein(t *testing.T) {
	tests := []struct {
		a, b string
		want int
	}{
		{"", "", 0},
		{"abc", "", 3},
		{"", "abc", 3},
		{"kitten", "sitting", 3},
		{"ibuprofen", "ibuprofen", 0},
		{"ibuprofen", "ibuprofem", 1},
		{"paracetamol", "paracetmol", 1},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Levenshtein(tt.a, tt.b), "%q vs %q", tt.a, tt.b)
	}
}

func TestSimilarity(t *testing.T) {
	assert.InDelta(t, 1.0, Similarity("", ""), 1e-9)
	assert.InDelta(t, 1.0, Similarity("aspirin", "aspirin"), 1e-9)
	assert.InDelta(t, 0.0, Similarity("ab", "xy"), 1e-9)
	// one edit over nine runes
	assert.InDelta(t, 1.0-1.0/9.0, Similarity("ibuprofen", "ibuprofem"), 1e-9)
}

func TestFoldOCR(t *testing.T) {
	// 1/l/i and 0/o confusions collapse
	assert.Equal(t, FoldOCR("ibuprofen"), FoldOCR("lbuprofen"))
	assert.Equal(t, FoldOCR("ibupr0fen"), FoldOCR("ibuprofen"))
	// rn is commonly misread as m
	assert.Equal(t, FoldOCR("modem"), FoldOCR("modern"))
}

func TestPhoneticSimilarityEqualAfterFold(t *testing.T) {
	assert.InDelta(t, 1.0, PhoneticSimilarity("ibuprofen", "lbupr0fen"), 1e-9)
}
