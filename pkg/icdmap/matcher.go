package icdmap

import (
	"fmt"
	"strings"

	"github.com/synaptica-ai/icd-mapper/pkg/common/logger"
	"github.com/synaptica-ai/icd-mapper/pkg/common/models"
	"github.com/synaptica-ai/icd-mapper/pkg/terminology"
	"golang.org/x/sync/errgroup"
)

const (
	specificConfidence     = 0.95
	synonymConfidence      = 0.90
	synonymCrossConfidence = 0.85

	keywordWeight = 20
	minWordLength = 4

	// below this many entries per worker the scan is not worth splitting
	minChunk = 2048
)

// Match resolves one concept. The curated tiers are tried first and the fuzzy
// vocabulary scan only runs when neither produced anything. A failed scan is
// logged and yields no suggestions.
func (e *Engine) Match(c models.ConceptRecord) []models.CodeSuggestion {
	suggestions, err := e.match(c)
	if err != nil {
		logger.Component("icdmap").WithError(err).WithField("concept", c.Text).Error("concept matching failed")
		return nil
	}
	return suggestions
}

func (e *Engine) match(c models.ConceptRecord) ([]models.CodeSuggestion, error) {
	text := conceptKey(c)
	if text == "" {
		return nil, nil
	}

	suggestions := e.matchSpecific(text)
	suggestions = append(suggestions, e.matchSynonyms(text)...)
	if len(suggestions) > 0 {
		return suggestions, nil
	}
	return e.matchFuzzy(text)
}

func (e *Engine) matchSpecific(text string) []models.CodeSuggestion {
	words := longWords(text)
	var out []models.CodeSuggestion
	for _, mapping := range e.tables.SpecificConditions {
		condition := strings.ToLower(mapping.Condition)
		if !e.conditionMatches(text, words, condition) {
			continue
		}
		for _, code := range mapping.Values {
			entry, ok := e.vocab.Lookup(code)
			if !ok {
				continue
			}
			out = append(out, suggestion(entry, specificConfidence, models.MatchSpecific, text,
				fmt.Sprintf("specific_condition_mapping:%s→%s", mapping.Condition, code)))
		}
	}
	return out
}

func (e *Engine) conditionMatches(text string, words []string, condition string) bool {
	if condition == text || strings.Contains(text, condition) || strings.Contains(condition, text) {
		return true
	}
	if containsAnyWord(condition, words) {
		return true
	}
	_, ok := e.rules.Match(text, condition)
	return ok
}

func (e *Engine) matchSynonyms(text string) []models.CodeSuggestion {
	words := longWords(text)
	var out []models.CodeSuggestion
	for _, group := range e.tables.Synonyms {
		condition := strings.ToLower(group.Condition)
		for _, synonym := range group.Values {
			syn := strings.ToLower(synonym)
			if !strings.Contains(text, syn) && !strings.Contains(syn, text) && !containsAnyWord(syn, words) {
				continue
			}

			if codes, ok := e.tables.CodesFor(group.Condition); ok {
				for _, code := range codes {
					entry, ok := e.vocab.Lookup(code)
					if !ok {
						continue
					}
					out = append(out, suggestion(entry, synonymConfidence, models.MatchSynonym, text,
						fmt.Sprintf("synonym:%s→%s→%s", synonym, group.Condition, code)))
				}
			}

			// first description naming the condition only
			for _, entry := range e.vocab.Entries() {
				if strings.Contains(entry.Normalized, condition) {
					out = append(out, suggestion(entry, synonymCrossConfidence, models.MatchSynonym, text,
						fmt.Sprintf("synonym:%s→%s→fuzzy_match", synonym, group.Condition)))
					break
				}
			}
		}
	}
	return out
}

func (e *Engine) matchFuzzy(text string) ([]models.CodeSuggestion, error) {
	entries := e.vocab.Entries()
	chunks := e.workers
	if limit := len(entries)/minChunk + 1; chunks > limit {
		chunks = limit
	}
	if chunks <= 1 {
		return e.scanChunk(text, entries, 0, len(entries))
	}

	size := (len(entries) + chunks - 1) / chunks
	results := make([][]models.CodeSuggestion, chunks)
	var g errgroup.Group
	for i := 0; i < chunks; i++ {
		lo := i * size
		hi := lo + size
		if hi > len(entries) {
			hi = len(entries)
		}
		if lo >= hi {
			continue
		}
		g.Go(func() (err error) {
			results[i], err = e.scanChunk(text, entries, lo, hi)
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var out []models.CodeSuggestion
	for _, r := range results {
		out = append(out, r...)
	}
	return out, nil
}

// scanChunk scores entries[lo:hi], turning a panic into an error so it never
// escapes a worker goroutine.
func (e *Engine) scanChunk(text string, entries []terminology.CodeEntry, lo, hi int) (out []models.CodeSuggestion, err error) {
	defer func() {
		if r := recover(); r != nil {
			out, err = nil, fmt.Errorf("fuzzy scan of entries %d-%d: %v", lo, hi, r)
		}
	}()
	return e.scanFuzzy(text, entries[lo:hi]), nil
}

func (e *Engine) scanFuzzy(text string, entries []terminology.CodeEntry) []models.CodeSuggestion {
	var out []models.CodeSuggestion
	for _, entry := range entries {
		fuzzyScore := e.score(text, entry.Normalized)
		keywordScore := 0
		for _, kw := range entry.Keywords {
			if strings.Contains(text, strings.ToLower(kw)) {
				keywordScore += keywordWeight
			}
		}
		total := fuzzyScore
		if keywordScore > total {
			total = keywordScore
		}
		if total < e.threshold {
			continue
		}
		if total > 100 {
			total = 100
		}
		out = append(out, suggestion(entry, float64(total)/100, models.MatchFuzzy, text,
			fmt.Sprintf("fuzzy:%d, keyword:%d", fuzzyScore, keywordScore)))
	}
	return out
}

func suggestion(entry terminology.CodeEntry, confidence float64, mt models.MatchType, source, method string) models.CodeSuggestion {
	return models.CodeSuggestion{
		ICD10Code:       entry.Code,
		Description:     entry.Description,
		Category:        entry.Category,
		ConfidenceScore: confidence,
		MatchType:       mt,
		SourceConcept:   source,
		MatchingMethod:  method,
	}
}

// longWords returns the words of text longer than three characters.
func longWords(text string) []string {
	var out []string
	for _, w := range strings.Fields(text) {
		if len([]rune(w)) >= minWordLength {
			out = append(out, w)
		}
	}
	return out
}

func containsAnyWord(s string, words []string) bool {
	for _, w := range words {
		if strings.Contains(s, w) {
			return true
		}
	}
	return false
}
