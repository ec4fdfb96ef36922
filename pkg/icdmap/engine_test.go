package icdmap

import (
	"fmt"
	"testing"

	"github.com/synaptica-ai/icd-mapper/pkg/common/logger"
	"github.com/synaptica-ai/icd-mapper/pkg/common/models"
	"github.com/synaptica-ai/icd-mapper/pkg/terminology"
)

func init() {
	logger.Silence()
}

func testVocabulary() *terminology.Vocabulary {
	return terminology.NewVocabulary("test", []terminology.CodeEntry{
		{Code: "I10", Description: "Essential (primary) hypertension"},
		{Code: "I11", Description: "Hypertensive heart disease"},
		{Code: "R51", Description: "Headache"},
		{Code: "E11", Description: "Type 2 diabetes mellitus"},
		{Code: "F32", Description: "Major depressive disorder, single episode"},
		{Code: "F41", Description: "Other anxiety disorders"},
		{Code: "R50", Description: "Fever of other and unknown origin"},
		{Code: "R07.9", Description: "Chest pain, unspecified"},
	})
}

func emptyTables() *terminology.MappingTables {
	return terminology.NewMappingTables(nil, nil, nil)
}

func codes(suggestions []models.CodeSuggestion) []string {
	out := make([]string, len(suggestions))
	for i, s := range suggestions {
		out[i] = s.ICD10Code
	}
	return out
}

func assertNoDuplicateCodes(t *testing.T, suggestions []models.CodeSuggestion) {
	t.Helper()
	seen := map[string]bool{}
	for _, s := range suggestions {
		if seen[s.ICD10Code] {
			t.Fatalf("duplicate code %s in %v", s.ICD10Code, codes(suggestions))
		}
		seen[s.ICD10Code] = true
	}
}

func TestMapHypertensionUsesSpecificMapping(t *testing.T) {
	engine := NewEngine(testVocabulary(), terminology.FallbackMappingTables())

	out := engine.Map([]models.ConceptRecord{
		{Text: "hypertension", Category: "condition", Confidence: 0.9},
	})
	if len(out) != 2 {
		t.Fatalf("expected 2 suggestions, got %v", codes(out))
	}
	for i, want := range []string{"I10", "I11"} {
		s := out[i]
		if s.ICD10Code != want {
			t.Fatalf("position %d: expected %s, got %s", i, want, s.ICD10Code)
		}
		if s.ConfidenceScore != 0.95 || s.MatchType != models.MatchSpecific {
			t.Fatalf("expected specific mapping at 0.95, got %s at %v", s.MatchType, s.ConfidenceScore)
		}
		if s.UsageRecommendation != "Recommended for use - high confidence match" {
			t.Fatalf("unexpected recommendation %q", s.UsageRecommendation)
		}
		if s.ClinicalContext == nil || len(s.ClinicalContext.SupportingConcepts) != 1 {
			t.Fatalf("expected supporting concept, got %+v", s.ClinicalContext)
		}
	}
}

func TestMapFiltersMedicationExclusions(t *testing.T) {
	engine := NewEngine(testVocabulary(), terminology.FallbackMappingTables())
	concepts := []models.ConceptRecord{
		{Text: "ibuprofen", Category: "medication", Confidence: 0.9},
	}

	if filtered := engine.Filter(concepts); len(filtered) != 0 {
		t.Fatalf("expected ibuprofen to be filtered, got %+v", filtered)
	}
	out := engine.Map(concepts)
	if out == nil || len(out) != 0 {
		t.Fatalf("expected empty non-nil result, got %v", out)
	}
}

func TestMapRawCoercesBareStrings(t *testing.T) {
	engine := NewEngine(terminology.DefaultVocabulary(), terminology.FallbackMappingTables())

	out := engine.MapRaw([]interface{}{"headache"})
	if len(out) == 0 {
		t.Fatal("expected at least one suggestion")
	}
	if out[0].ICD10Code != "R51" {
		t.Fatalf("expected R51, got %v", codes(out))
	}
	if out[0].MatchType != models.MatchFuzzy || out[0].ConfidenceScore != 1 {
		t.Fatalf("expected fuzzy match at 1.0, got %s at %v", out[0].MatchType, out[0].ConfidenceScore)
	}
}

func TestMapDefaultVocabularyKeywordRoundTrip(t *testing.T) {
	engine := NewEngine(terminology.DefaultVocabulary(), emptyTables())
	for code, keyword := range map[string]string{"I10": "hypertension", "E11": "diabetes", "R51": "headache"} {
		out := engine.Map([]models.ConceptRecord{{Text: keyword, Category: "condition", Confidence: 0.9}})
		found := false
		for _, s := range out {
			if s.ICD10Code == code {
				found = true
				if s.MatchType != models.MatchFuzzy || s.ConfidenceScore < 0.7 {
					t.Fatalf("%s: expected fuzzy confidence >= 0.7, got %s %v", keyword, s.MatchType, s.ConfidenceScore)
				}
			}
		}
		if !found {
			t.Fatalf("%s: expected %s in %v", keyword, code, codes(out))
		}
	}
}

func TestMapNegatedConceptsAreDropped(t *testing.T) {
	engine := NewEngine(testVocabulary(), terminology.FallbackMappingTables())
	out := engine.Map([]models.ConceptRecord{
		{Text: "chest pain", Category: "symptom", Confidence: 1, IsNegated: true},
	})
	if len(out) != 0 {
		t.Fatalf("expected no suggestions, got %v", codes(out))
	}
}

func TestMapPanicReturnsFallback(t *testing.T) {
	boom := RuleSet{{Name: "boom", Match: func(string, string) bool { panic("rule exploded") }}}
	engine := NewEngine(testVocabulary(), terminology.FallbackMappingTables(), WithRules(boom))

	out := engine.Map([]models.ConceptRecord{{Text: "fever", Category: "symptom", Confidence: 0.9}})
	if !IsFallback(out) {
		t.Fatalf("expected fallback suggestion, got %+v", out)
	}
	if out[0].ConfidenceScore != 0.1 || out[0].SourceConcept != "mapping_failed" {
		t.Fatalf("unexpected fallback record %+v", out[0])
	}
}

func TestMapInvariantsAcrossManyConcepts(t *testing.T) {
	engine := NewEngine(testVocabulary(), terminology.FallbackMappingTables())
	concepts := []models.ConceptRecord{
		{Text: "hypertension", Category: "condition", Confidence: 0.9},
		{Text: "blood pressure", Category: "condition", Confidence: 0.9},
		{Text: "diabetes", Category: "conditions", Confidence: 0.85},
		{Text: "headache", Category: "symptoms", Confidence: 0.8},
		{Text: "fever", Category: "symptoms", Confidence: 0.75},
		{Text: "chest pain", Category: "symptom", Confidence: 0.75},
		{Text: "feeling anxious", Category: "symptom", Confidence: 0.7},
		{Text: "depression", Category: "condition", Confidence: 0.9},
	}

	out := engine.Map(concepts)
	if len(out) > 6 {
		t.Fatalf("expected at most 6 suggestions, got %d", len(out))
	}
	assertNoDuplicateCodes(t, out)

	lastTier := -1
	for _, s := range out {
		if r := s.MatchType.Rank(); r < lastTier {
			t.Fatalf("tiers out of order: %v", codes(out))
		} else {
			lastTier = r
		}
		if s.MatchType == models.MatchSpecific && s.ConfidenceScore != 0.95 {
			t.Fatalf("specific mapping must carry 0.95, got %v", s.ConfidenceScore)
		}
	}
}

func generatedVocabulary() *terminology.Vocabulary {
	var entries []terminology.CodeEntry
	for i := 0; i < 10000; i++ {
		desc := fmt.Sprintf("Unspecified condition number %d", i)
		if i%997 == 0 {
			desc = fmt.Sprintf("Fever with complication %d", i)
		}
		entries = append(entries, terminology.CodeEntry{Code: fmt.Sprintf("R%05d", i), Description: desc})
	}
	return terminology.NewVocabulary("generated", entries)
}

func TestFuzzyScanIsOrderStableAcrossWorkers(t *testing.T) {
	vocab := generatedVocabulary()

	sequential := NewEngine(vocab, emptyTables()).Match(models.ConceptRecord{Text: "fever"})
	parallel := NewEngine(vocab, emptyTables(), WithFuzzyWorkers(4)).Match(models.ConceptRecord{Text: "fever"})

	if len(sequential) == 0 {
		t.Fatal("expected fuzzy matches")
	}
	if len(sequential) != len(parallel) {
		t.Fatalf("expected %d matches, got %d", len(sequential), len(parallel))
	}
	for i := range sequential {
		if sequential[i].ICD10Code != parallel[i].ICD10Code {
			t.Fatalf("position %d: %s != %s", i, sequential[i].ICD10Code, parallel[i].ICD10Code)
		}
	}
}

func TestFuzzyScanFailureDoesNotPanic(t *testing.T) {
	fever := models.ConceptRecord{Text: "fever", Category: "symptom", Confidence: 0.9}

	for _, workers := range []int{1, 4} {
		engine := NewEngine(generatedVocabulary(), emptyTables(), WithFuzzyWorkers(workers))
		engine.score = func(text, description string) int {
			if description == "unspecified condition number 5000" {
				panic("scorer exploded")
			}
			return PartialRatio(text, description)
		}

		if _, err := engine.match(fever); err == nil {
			t.Fatalf("workers=%d: expected scan error", workers)
		}

		var out []models.CodeSuggestion
		func() {
			defer func() {
				if r := recover(); r != nil {
					t.Fatalf("workers=%d: Match panicked: %v", workers, r)
				}
			}()
			out = engine.Match(fever)
		}()
		if out != nil {
			t.Fatalf("workers=%d: expected no suggestions, got %v", workers, codes(out))
		}

		if got := engine.Map([]models.ConceptRecord{fever}); !IsFallback(got) {
			t.Fatalf("workers=%d: expected fallback suggestion, got %+v", workers, got)
		}
	}
}
