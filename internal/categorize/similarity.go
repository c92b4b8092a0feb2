package categorize

import (
	"strings"
	"unicode/utf8"
)

// minWordLen is the length a word of the first string must exceed to count.
const minWordLen = 2

// Similarity is a word-overlap ratio in [0,1]. Words of a longer than two
// characters that also occur in b are counted and divided by the word count
// of the longer input. Punctuation is not normalized.
func Similarity(a, b string) float64 {
	words1 := strings.Fields(strings.ToLower(a))
	words2 := strings.Fields(strings.ToLower(b))
	denom := max(len(words1), len(words2))
	if denom == 0 {
		return 0
	}
	set2 := make(map[string]struct{}, len(words2))
	for _, w := range words2 {
		set2[w] = struct{}{}
	}
	common := 0
	for _, w := range words1 {
		if utf8.RuneCountInString(w) <= minWordLen {
			continue
		}
		if _, ok := set2[w]; ok {
			common++
		}
	}
	return float64(common) / float64(denom)
}
