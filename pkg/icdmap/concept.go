package icdmap

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/synaptica-ai/icd-mapper/pkg/common/logger"
	"github.com/synaptica-ai/icd-mapper/pkg/common/models"
	"golang.org/x/text/unicode/norm"
)

const (
	UnknownCategory = "unknown"
	UnknownSpeaker  = "unknown"

	// bare strings carry no extractor confidence of their own
	coercedConfidence = 0.7
)

// CoerceConcepts turns heterogeneous extractor output into concept records. A list
// may hold objects or bare strings; anything else is skipped with a warning.
func CoerceConcepts(raw interface{}) []models.ConceptRecord {
	log := logger.Component("icdmap")

	switch v := raw.(type) {
	case nil:
		return nil
	case []models.ConceptRecord:
		out := make([]models.ConceptRecord, len(v))
		for i, c := range v {
			out[i] = NormalizeConcept(c)
		}
		return out
	case []string:
		out := make([]models.ConceptRecord, 0, len(v))
		for _, s := range v {
			out = append(out, conceptFromString(s))
		}
		return out
	case []interface{}:
		out := make([]models.ConceptRecord, 0, len(v))
		for i, item := range v {
			concept, ok := coerceConcept(item)
			if !ok {
				log.WithFields(map[string]interface{}{
					"index": i,
					"type":  fmt.Sprintf("%T", item),
				}).Warn("skipping concept with unexpected type")
				continue
			}
			out = append(out, concept)
		}
		return out
	default:
		log.WithField("type", fmt.Sprintf("%T", raw)).Warn("expected list of concepts")
		return nil
	}
}

func coerceConcept(item interface{}) (models.ConceptRecord, bool) {
	switch v := item.(type) {
	case string:
		return conceptFromString(v), true
	case models.ConceptRecord:
		return NormalizeConcept(v), true
	case map[string]interface{}:
		return conceptFromMap(v), true
	default:
		return models.ConceptRecord{}, false
	}
}

func conceptFromString(s string) models.ConceptRecord {
	return NormalizeConcept(models.ConceptRecord{
		Text:       s,
		Category:   UnknownCategory,
		Confidence: coercedConfidence,
	})
}

func conceptFromMap(m map[string]interface{}) models.ConceptRecord {
	text := getString(m["text"])
	if text == "" {
		text = getString(m["concept"])
	}
	return NormalizeConcept(models.ConceptRecord{
		Text:         text,
		Category:     getString(m["category"]),
		Confidence:   getFloat(m["confidence"]),
		IsNegated:    getBool(m["is_negated"]),
		AttributedTo: getString(m["attributed_to"]),
	})
}

// NormalizeConcept fills defaults and applies NFKC so visually identical text compares equal.
func NormalizeConcept(c models.ConceptRecord) models.ConceptRecord {
	c.Text = norm.NFKC.String(c.Text)
	if strings.TrimSpace(c.Category) == "" {
		c.Category = UnknownCategory
	}
	if strings.TrimSpace(c.AttributedTo) == "" {
		c.AttributedTo = UnknownSpeaker
	}
	return c
}

// conceptKey is the lower-cased trimmed text the matcher works on.
func conceptKey(c models.ConceptRecord) string {
	return strings.ToLower(strings.TrimSpace(c.Text))
}

func getString(v interface{}) string {
	switch val := v.(type) {
	case string:
		return strings.TrimSpace(val)
	case fmt.Stringer:
		return strings.TrimSpace(val.String())
	default:
		return ""
	}
}

func getFloat(v interface{}) float64 {
	switch val := v.(type) {
	case float64:
		return val
	case float32:
		return float64(val)
	case int:
		return float64(val)
	case int64:
		return float64(val)
	case json.Number:
		f, err := val.Float64()
		if err != nil {
			return 0
		}
		return f
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(val), 64)
		if err != nil {
			return 0
		}
		return f
	default:
		return 0
	}
}

func getBool(v interface{}) bool {
	switch val := v.(type) {
	case bool:
		return val
	case string:
		b, err := strconv.ParseBool(strings.TrimSpace(val))
		return err == nil && b
	default:
		return false
	}
}
