package icdmap

import (
	"strings"

	"github.com/synaptica-ai/icd-mapper/pkg/common/models"
)

var symptomCategories = map[string]struct{}{
	"symptom":           {},
	"symptoms":          {},
	"vital_measurement": {},
	"vital-measurement": {},
}

// Enrich attaches clinical context, validation notes and a usage recommendation.
func Enrich(s models.CodeSuggestion, concepts []models.ConceptRecord) models.CodeSuggestion {
	s.ClinicalContext = clinicalContext(s, concepts)
	s.ValidationNotes = validationNotes(s)
	s.UsageRecommendation = usageRecommendation(s.ConfidenceScore)
	return s
}

func clinicalContext(s models.CodeSuggestion, concepts []models.ConceptRecord) *models.ClinicalContext {
	ctx := &models.ClinicalContext{
		SupportingConcepts: []string{},
		RelatedSymptoms:    []string{},
		MentionedBy:        UnknownSpeaker,
	}
	for _, c := range concepts {
		if strings.Contains(strings.ToLower(c.Text), s.SourceConcept) {
			ctx.MentionedBy = speaker(c)
			ctx.SupportingConcepts = append(ctx.SupportingConcepts, c.Text)
		}
	}
	for _, c := range concepts {
		if _, ok := symptomCategories[strings.ToLower(c.Category)]; ok {
			ctx.RelatedSymptoms = append(ctx.RelatedSymptoms, c.Text)
		}
	}
	return ctx
}

func speaker(c models.ConceptRecord) string {
	if c.AttributedTo == "" {
		return UnknownSpeaker
	}
	return c.AttributedTo
}

func validationNotes(s models.CodeSuggestion) []string {
	var notes []string
	switch {
	case s.ConfidenceScore >= 0.9:
		notes = append(notes, "High confidence match - likely accurate")
	case s.ConfidenceScore >= 0.7:
		notes = append(notes, "Good match - review for accuracy")
	default:
		notes = append(notes, "Lower confidence - requires clinical validation")
	}

	switch s.MatchType {
	case models.MatchFuzzy:
		notes = append(notes, "Matched based on text similarity")
	case models.MatchSynonym:
		notes = append(notes, "Matched through synonym mapping")
	}
	return notes
}

func usageRecommendation(confidence float64) string {
	switch {
	case confidence >= 0.9:
		return "Recommended for use - high confidence match"
	case confidence >= 0.8:
		return "Consider for use - good match with clinical review"
	case confidence >= 0.7:
		return "Use with caution - requires clinical validation"
	default:
		return "Not recommended - low confidence match"
	}
}
