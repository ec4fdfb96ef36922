package terminology

import "strings"

var stopWords = map[string]struct{}{
	"the": {}, "and": {}, "or": {}, "of": {}, "in": {}, "on": {},
	"at": {}, "to": {}, "for": {}, "with": {}, "by": {},
}

// ExtractKeywords returns the lower-cased description tokens that carry meaning.
// Length and stop-word checks apply to the raw token; punctuation is trimmed after,
// and tokens that were only punctuation are dropped.
func ExtractKeywords(description string) []string {
	words := strings.Fields(strings.ToLower(description))
	keywords := make([]string, 0, len(words))
	for _, word := range words {
		if _, stop := stopWords[word]; stop {
			continue
		}
		if len([]rune(word)) <= 2 {
			continue
		}
		if trimmed := strings.Trim(word, "(),.-"); trimmed != "" {
			keywords = append(keywords, trimmed)
		}
	}
	return keywords
}
