package models

import (
	"time"
)

// Event Bus models
type Event struct {
	ID        string                 `json:"id"`
	Type      string                 `json:"type"` // extract-concepts, icd10-map
	Source    string                 `json:"source"`
	Data      map[string]interface{} `json:"data"`
	Timestamp time.Time              `json:"timestamp"`
	Metadata  map[string]string      `json:"metadata,omitempty"`
}

// Concept extraction output, consumed by the mapper
type ConceptRecord struct {
	Text         string  `json:"text"`
	Category     string  `json:"category"` // symptom, condition, procedure, vital_measurement, medication, unknown
	Confidence   float64 `json:"confidence"`
	IsNegated    bool    `json:"is_negated"`
	AttributedTo string  `json:"attributed_to"`
}

type MatchType string

const (
	MatchSpecific MatchType = "specific_mapping"
	MatchSynonym  MatchType = "synonym_mapping"
	MatchFuzzy    MatchType = "fuzzy_match"
	MatchFallback MatchType = "fallback"
)

// Rank orders match tiers by trust; lower is more trusted.
func (m MatchType) Rank() int {
	switch m {
	case MatchSpecific:
		return 0
	case MatchSynonym:
		return 1
	case MatchFuzzy:
		return 2
	default:
		return 3
	}
}

type ClinicalContext struct {
	SupportingConcepts []string `json:"supporting_concepts"`
	RelatedSymptoms    []string `json:"related_symptoms"`
	MentionedBy        string   `json:"mentioned_by"`
}

// ICD-10 code suggestion
type CodeSuggestion struct {
	ICD10Code           string           `json:"icd10_code"`
	Description         string           `json:"description"`
	Category            string           `json:"category"`
	ConfidenceScore     float64          `json:"confidence_score"`
	MatchType           MatchType        `json:"match_type"`
	SourceConcept       string           `json:"source_concept"`
	MatchingMethod      string           `json:"matching_method,omitempty"`
	ClinicalContext     *ClinicalContext `json:"clinical_context,omitempty"`
	ValidationNotes     []string         `json:"validation_notes,omitempty"`
	UsageRecommendation string           `json:"usage_recommendation,omitempty"`
}

type CodeValidation struct {
	Code             string   `json:"code"`
	IsValid          bool     `json:"is_valid"`
	FormatCorrect    bool     `json:"format_correct"`
	ExistsInDatabase bool     `json:"exists_in_database"`
	Warnings         []string `json:"warnings"`
}

type MapRequest struct {
	RequestID string        `json:"request_id,omitempty"`
	Concepts  []interface{} `json:"concepts"`
}

type MapResponse struct {
	RunID       string           `json:"run_id"`
	RequestID   string           `json:"request_id,omitempty"`
	Suggestions []CodeSuggestion `json:"suggestions"`
	Cached      bool             `json:"cached"`
	Fallback    bool             `json:"fallback"`
	Timestamp   time.Time        `json:"timestamp"`
}
