package icdmap

import (
	"strings"

	"github.com/synaptica-ai/icd-mapper/pkg/common/models"
)

const minConceptConfidence = 0.6

var mappableCategories = map[string]struct{}{
	"condition":  {},
	"conditions": {},
	"symptom":    {},
	"symptoms":   {},
	"procedure":  {},
	"procedures": {},
}

var clinicalKeywords = []string{"pain", "ache", "disorder", "disease", "syndrome"}

// Filter keeps the concepts worth looking up: affirmed, confident, clinically
// relevant and not a medication.
func (e *Engine) Filter(concepts []models.ConceptRecord) []models.ConceptRecord {
	var out []models.ConceptRecord
	for _, c := range concepts {
		if e.mappable(c) {
			out = append(out, c)
		}
	}
	return out
}

func (e *Engine) mappable(c models.ConceptRecord) bool {
	text := conceptKey(c)
	if text == "" {
		return false
	}
	for _, med := range e.exclusions {
		if strings.Contains(text, med) {
			return false
		}
	}
	if c.IsNegated || c.Confidence < minConceptConfidence {
		return false
	}
	if _, ok := mappableCategories[strings.ToLower(strings.TrimSpace(c.Category))]; ok {
		return true
	}
	for _, kw := range clinicalKeywords {
		if strings.Contains(text, kw) {
			return true
		}
	}
	return false
}
