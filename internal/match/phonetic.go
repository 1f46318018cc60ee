package match

import "strings"

// ocrFold maps characters that OCR engines routinely confuse onto a shared
// representative, so "lbuprofen" and "Ibuprofen" fold to the same string.
// The table covers visual confusions (0/o, 1/l/i, 5/s, 8/b, 2/z, 6/g) and a
// few phonetically interchangeable clusters common in drug names.
var ocrFold = map[rune]rune{
	'0': 'o',
	'1': 'i',
	'l': 'i',
	'|': 'i',
	'!': 'i',
	'5': 's',
	'8': 'b',
	'2': 'z',
	'6': 'g',
	'9': 'g',
	'q': 'g',
	'z': 's',
	'c': 'k',
	'y': 'i',
	'w': 'v',
	'u': 'v',
}

// digraphFold collapses multi-character confusions before the rune fold.
var digraphFold = []struct{ from, to string }{
	{"rn", "m"},
	{"cl", "d"},
	{"vv", "w"},
	{"ph", "f"},
	{"th", "t"},
}

// FoldOCR canonicalizes a normalized key for confusion-tolerant comparison.
// The input is expected to already be lower case (see catalog.NormalizeKey).
func FoldOCR(s string) string {
	for _, d := range digraphFold {
		s = strings.ReplaceAll(s, d.from, d.to)
	}
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if rep, ok := ocrFold[r]; ok {
			r = rep
		}
		b.WriteRune(r)
	}
	return b.String()
}

// PhoneticSimilarity compares two normalized keys after OCR-confusion
// folding. Equal folded forms score 1.0; otherwise the folded edit-distance
// similarity is returned.
func PhoneticSimilarity(a, b string) float64 {
	fa, fb := FoldOCR(a), FoldOCR(b)
	if fa == fb {
		return 1.0
	}
	return Similarity(fa, fb)
}
