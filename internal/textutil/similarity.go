package textutil

import (
	"math"
	"strings"
	"unicode"

	"golang.org/x/text/cases"
)

var folder = cases.Fold()

// Tokenize splits text into case-folded letter/digit runs.
func Tokenize(text string) []string {
	folded := folder.String(CleanLine(text))
	return strings.FieldsFunc(folded, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

// NameSimilarity returns the cosine similarity of the character bigram
// vectors of a and b, in [0, 1]. Bigrams tolerate the single-character
// substitutions typical of OCR output better than whole tokens.
func NameSimilarity(a, b string) float64 {
	va := bigrams(Tokenize(a))
	vb := bigrams(Tokenize(b))
	if len(va) == 0 || len(vb) == 0 {
		return 0
	}
	var dot, na, nb float64
	for gram, count := range va {
		na += count * count
		if other, ok := vb[gram]; ok {
			dot += count * other
		}
	}
	for _, count := range vb {
		nb += count * count
	}
	if dot == 0 {
		return 0
	}
	return math.Min(1, dot/math.Sqrt(na*nb))
}

func bigrams(tokens []string) map[string]float64 {
	out := make(map[string]float64)
	for _, token := range tokens {
		runes := []rune(token)
		if len(runes) == 1 {
			out[token]++
			continue
		}
		for i := 0; i+1 < len(runes); i++ {
			out[string(runes[i:i+2])]++
		}
	}
	return out
}
