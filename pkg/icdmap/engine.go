package icdmap

import (
	"fmt"
	"strings"
	"time"

	"github.com/synaptica-ai/icd-mapper/pkg/common/logger"
	"github.com/synaptica-ai/icd-mapper/pkg/common/models"
	"github.com/synaptica-ai/icd-mapper/pkg/terminology"
)

const DefaultFuzzyThreshold = 70

// Engine maps concept records to ranked ICD-10 suggestions. It only reads the
// vocabulary and tables it was built with and is safe for concurrent use.
type Engine struct {
	vocab      *terminology.Vocabulary
	tables     *terminology.MappingTables
	exclusions []string
	rules      RuleSet
	policy     RankPolicy
	threshold  int
	workers    int
	score      func(text, description string) int
}

type Option func(*Engine)

func WithRules(rules RuleSet) Option {
	return func(e *Engine) { e.rules = rules }
}

func WithRankPolicy(p RankPolicy) Option {
	return func(e *Engine) { e.policy = p }
}

func WithFuzzyThreshold(threshold int) Option {
	return func(e *Engine) {
		if threshold > 0 {
			e.threshold = threshold
		}
	}
}

// WithFuzzyWorkers bounds the goroutines used by the fuzzy vocabulary scan.
func WithFuzzyWorkers(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.workers = n
		}
	}
}

func NewEngine(vocab *terminology.Vocabulary, tables *terminology.MappingTables, opts ...Option) *Engine {
	if vocab == nil {
		vocab = terminology.DefaultVocabulary()
	}
	if tables == nil {
		tables = terminology.FallbackMappingTables()
	}
	e := &Engine{
		vocab:     vocab,
		tables:    tables,
		rules:     DefaultRules,
		policy:    DefaultRankPolicy,
		threshold: DefaultFuzzyThreshold,
		workers:   1,
		score:     PartialRatio,
	}
	for _, med := range tables.MedicationExclusions {
		if med = strings.ToLower(strings.TrimSpace(med)); med != "" {
			e.exclusions = append(e.exclusions, med)
		}
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func (e *Engine) Vocabulary() *terminology.Vocabulary {
	return e.vocab
}

// MapRaw coerces loosely typed extractor output before mapping it.
func (e *Engine) MapRaw(raw interface{}) []models.CodeSuggestion {
	return e.Map(CoerceConcepts(raw))
}

// Map runs filter, match, rank and enrichment. It never panics: an unexpected
// failure yields the single fallback suggestion.
func (e *Engine) Map(concepts []models.ConceptRecord) (out []models.CodeSuggestion) {
	log := logger.Component("icdmap")
	start := time.Now()

	defer func() {
		if r := recover(); r != nil {
			log.WithField("error", fmt.Sprint(r)).Error("icd-10 mapping failed")
			out = FallbackSuggestions()
		}
	}()

	if len(concepts) == 0 {
		log.Warn("no valid concepts found for icd-10 mapping")
		return []models.CodeSuggestion{}
	}

	var candidates []models.CodeSuggestion
	mappable := e.Filter(concepts)
	for _, c := range mappable {
		matched, err := e.match(c)
		if err != nil {
			log.WithError(err).WithField("concept", c.Text).Error("icd-10 mapping failed")
			return FallbackSuggestions()
		}
		candidates = append(candidates, matched...)
	}

	ranked := Rank(candidates, e.policy)
	out = make([]models.CodeSuggestion, 0, len(ranked))
	for _, s := range ranked {
		out = append(out, Enrich(s, concepts))
	}

	log.WithFields(map[string]interface{}{
		"concepts":    len(concepts),
		"mappable":    len(mappable),
		"candidates":  len(candidates),
		"suggestions": len(out),
		"duration_ms": time.Since(start).Milliseconds(),
	}).Info("icd-10 mapping completed")
	return out
}

// FallbackSuggestions is returned when mapping fails outright.
func FallbackSuggestions() []models.CodeSuggestion {
	return []models.CodeSuggestion{{
		ICD10Code:           "Z99.9",
		Description:         "Dependence on unspecified enabling machine or device",
		Category:            "Factors",
		ConfidenceScore:     0.1,
		MatchType:           models.MatchFallback,
		SourceConcept:       "mapping_failed",
		ValidationNotes:     []string{"ICD-10 mapping system encountered an error"},
		UsageRecommendation: "Manual review required",
	}}
}

// IsFallback reports whether suggestions is the failure sentinel.
func IsFallback(suggestions []models.CodeSuggestion) bool {
	return len(suggestions) == 1 && suggestions[0].MatchType == models.MatchFallback
}
