package extractor

import (
	"strings"
	"unicode"
)

// minWordLength is the shortest token counted as a recognized word.
const minWordLength = 2

// QualityScore rates recognized text in [0, 1]. The score combines
// character density (the share of letters and digits among non-space
// runes) with the share of tokens that look like words rather than OCR
// debris. Empty or whitespace-only text scores zero.
func QualityScore(text string) float64 {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return 0
	}

	var total, alnum int
	for _, r := range trimmed {
		if unicode.IsSpace(r) {
			continue
		}
		total++
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			alnum++
		}
	}
	if total == 0 {
		return 0
	}
	density := float64(alnum) / float64(total)

	tokens := strings.Fields(trimmed)
	recognized := 0
	for _, tok := range tokens {
		if isWordLike(tok) {
			recognized++
		}
	}
	wordRatio := float64(recognized) / float64(len(tokens))

	return 0.5*density + 0.5*wordRatio
}

// isWordLike reports whether a token reads as a word or dose figure
// rather than recognizer noise.
func isWordLike(tok string) bool {
	letters, digits, other := 0, 0, 0
	for _, r := range tok {
		switch {
		case unicode.IsLetter(r):
			letters++
		case unicode.IsDigit(r):
			digits++
		default:
			other++
		}
	}
	if letters+digits < minWordLength {
		return false
	}
	// Mostly punctuation means debris, whatever the length.
	return other <= (letters+digits)/2
}
