package icdmap

import (
	"sort"

	"github.com/synaptica-ai/icd-mapper/pkg/common/models"
)

// RankPolicy sizes the suggestion window. Specific mappings take up to SpecificCap
// slots, then synonym and fuzzy matches fill the rest of Window in that order.
type RankPolicy struct {
	SpecificCap int
	Window      int
}

var DefaultRankPolicy = RankPolicy{SpecificCap: 5, Window: 6}

func (p RankPolicy) normalized() RankPolicy {
	if p.Window <= 0 {
		p.Window = DefaultRankPolicy.Window
	}
	if p.SpecificCap <= 0 || p.SpecificCap > p.Window {
		p.SpecificCap = p.Window
	}
	return p
}

// Rank keeps one suggestion per code and assembles the final window, most trusted
// tier first.
func Rank(suggestions []models.CodeSuggestion, policy RankPolicy) []models.CodeSuggestion {
	policy = policy.normalized()

	var specific, synonym, fuzzy []models.CodeSuggestion
	for _, s := range dedupByCode(suggestions) {
		switch s.MatchType {
		case models.MatchSpecific:
			specific = append(specific, s)
		case models.MatchSynonym:
			synonym = append(synonym, s)
		case models.MatchFuzzy:
			fuzzy = append(fuzzy, s)
		}
	}
	byConfidence(specific)
	byConfidence(synonym)
	byConfidence(fuzzy)

	final := make([]models.CodeSuggestion, 0, policy.Window)
	final = appendUpTo(final, specific, policy.SpecificCap)
	final = appendUpTo(final, synonym, policy.Window)
	final = appendUpTo(final, fuzzy, policy.Window)

	// the window is already unique per code; guard against policy changes upstream
	seen := make(map[string]struct{}, len(final))
	out := final[:0]
	for _, s := range final {
		if _, dup := seen[s.ICD10Code]; dup {
			continue
		}
		seen[s.ICD10Code] = struct{}{}
		out = append(out, s)
	}
	return out
}

// dedupByCode keeps, for each code, the suggestion with the highest confidence.
// Ties keep the first one seen. A specific mapping is never displaced by another
// tier. Codes keep the position of their first occurrence.
func dedupByCode(suggestions []models.CodeSuggestion) []models.CodeSuggestion {
	index := make(map[string]int, len(suggestions))
	var out []models.CodeSuggestion
	for _, s := range suggestions {
		i, ok := index[s.ICD10Code]
		if !ok {
			index[s.ICD10Code] = len(out)
			out = append(out, s)
			continue
		}
		if better(s, out[i]) {
			out[i] = s
		}
	}
	return out
}

func better(candidate, current models.CodeSuggestion) bool {
	cs := candidate.MatchType == models.MatchSpecific
	ks := current.MatchType == models.MatchSpecific
	if cs != ks {
		return cs
	}
	return candidate.ConfidenceScore > current.ConfidenceScore
}

func byConfidence(s []models.CodeSuggestion) {
	sort.SliceStable(s, func(i, j int) bool {
		return s[i].ConfidenceScore > s[j].ConfidenceScore
	})
}

// appendUpTo adds from src until dst holds limit items.
func appendUpTo(dst, src []models.CodeSuggestion, limit int) []models.CodeSuggestion {
	for _, s := range src {
		if len(dst) >= limit {
			break
		}
		dst = append(dst, s)
	}
	return dst
}
