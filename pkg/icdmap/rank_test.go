package icdmap

import (
	"fmt"
	"strings"
	"testing"

	"github.com/synaptica-ai/icd-mapper/pkg/common/models"
)

func candidate(code string, mt models.MatchType, confidence float64) models.CodeSuggestion {
	return models.CodeSuggestion{ICD10Code: code, MatchType: mt, ConfidenceScore: confidence, SourceConcept: "c-" + code}
}

func TestRankSpecificNotDisplacedByFuzzy(t *testing.T) {
	out := Rank([]models.CodeSuggestion{
		candidate("I10", models.MatchFuzzy, 1.0),
		candidate("I10", models.MatchSpecific, 0.95),
	}, DefaultRankPolicy)

	if len(out) != 1 {
		t.Fatalf("expected one suggestion, got %v", codes(out))
	}
	if out[0].MatchType != models.MatchSpecific || out[0].ConfidenceScore != 0.95 {
		t.Fatalf("expected the specific mapping to win, got %s at %v", out[0].MatchType, out[0].ConfidenceScore)
	}
}

func TestRankSpecificWinsInEitherOrder(t *testing.T) {
	out := Rank([]models.CodeSuggestion{
		candidate("I10", models.MatchSpecific, 0.95),
		candidate("I10", models.MatchFuzzy, 1.0),
		candidate("I10", models.MatchSynonym, 0.9),
	}, DefaultRankPolicy)

	if len(out) != 1 || out[0].MatchType != models.MatchSpecific {
		t.Fatalf("expected the specific mapping to stay, got %+v", out)
	}
}

func TestRankDedupPrefersConfidenceOverSynonymTier(t *testing.T) {
	orders := [][]models.CodeSuggestion{
		{candidate("I110", models.MatchFuzzy, 1.0), candidate("I110", models.MatchSynonym, 0.9)},
		{candidate("I110", models.MatchSynonym, 0.9), candidate("I110", models.MatchFuzzy, 1.0)},
	}
	for i, in := range orders {
		out := Rank(in, DefaultRankPolicy)
		if len(out) != 1 {
			t.Fatalf("order %d: expected one suggestion, got %v", i, codes(out))
		}
		if out[0].MatchType != models.MatchFuzzy || out[0].ConfidenceScore != 1.0 {
			t.Fatalf("order %d: expected fuzzy at 1.0, got %s at %v", i, out[0].MatchType, out[0].ConfidenceScore)
		}
	}

	// equal confidence keeps the first seen, whatever the tier
	out := Rank([]models.CodeSuggestion{
		candidate("F419", models.MatchFuzzy, 0.9),
		candidate("F419", models.MatchSynonym, 0.9),
	}, DefaultRankPolicy)
	if out[0].MatchType != models.MatchFuzzy {
		t.Fatalf("expected the first of equal candidates, got %s", out[0].MatchType)
	}
}

func TestRankDedupKeepsHighestConfidenceWithinTier(t *testing.T) {
	first := candidate("R50", models.MatchFuzzy, 0.8)
	first.SourceConcept = "fever"
	second := candidate("R50", models.MatchFuzzy, 0.8)
	second.SourceConcept = "pyrexia"

	out := Rank([]models.CodeSuggestion{first, second, candidate("R50", models.MatchFuzzy, 0.75)}, DefaultRankPolicy)
	if len(out) != 1 || out[0].SourceConcept != "fever" {
		t.Fatalf("expected the first of equal candidates to survive, got %+v", out)
	}

	out = Rank([]models.CodeSuggestion{candidate("R50", models.MatchFuzzy, 0.72), candidate("R50", models.MatchFuzzy, 0.9)}, DefaultRankPolicy)
	if out[0].ConfidenceScore != 0.9 {
		t.Fatalf("expected 0.9 to win, got %v", out[0].ConfidenceScore)
	}
}

func TestRankSpecificCap(t *testing.T) {
	var in []models.CodeSuggestion
	for i := 0; i < 7; i++ {
		in = append(in, candidate(fmt.Sprintf("S%02d", i), models.MatchSpecific, 0.95))
	}
	in = append(in,
		candidate("Y01", models.MatchSynonym, 0.90),
		candidate("Y02", models.MatchSynonym, 0.85),
		candidate("F01", models.MatchFuzzy, 0.99),
	)

	out := Rank(in, DefaultRankPolicy)
	if got := strings.Join(codes(out), ","); got != "S00,S01,S02,S03,S04,Y01" {
		t.Fatalf("unexpected window %s", got)
	}
}

func TestRankFillsWithFuzzyByConfidence(t *testing.T) {
	in := []models.CodeSuggestion{
		candidate("F01", models.MatchFuzzy, 0.71),
		candidate("F02", models.MatchFuzzy, 0.93),
		candidate("S01", models.MatchSpecific, 0.95),
		candidate("F03", models.MatchFuzzy, 0.80),
		candidate("Y01", models.MatchSynonym, 0.85),
		candidate("F04", models.MatchFuzzy, 0.80),
		candidate("F05", models.MatchFuzzy, 0.75),
		candidate("F06", models.MatchFuzzy, 0.70),
	}

	out := Rank(in, DefaultRankPolicy)
	if got := strings.Join(codes(out), ","); got != "S01,Y01,F02,F03,F04,F05" {
		t.Fatalf("unexpected window %s", got)
	}
}

func TestRankCustomPolicy(t *testing.T) {
	in := []models.CodeSuggestion{
		candidate("S01", models.MatchSpecific, 0.95),
		candidate("S02", models.MatchSpecific, 0.95),
		candidate("Y01", models.MatchSynonym, 0.9),
	}
	out := Rank(in, RankPolicy{SpecificCap: 1, Window: 2})
	if got := strings.Join(codes(out), ","); got != "S01,Y01" {
		t.Fatalf("unexpected window %s", got)
	}

	// a zero policy falls back to the default window
	out = Rank(in, RankPolicy{})
	if len(out) != 3 {
		t.Fatalf("expected all three suggestions, got %v", codes(out))
	}
}

func TestRankEmpty(t *testing.T) {
	if out := Rank(nil, DefaultRankPolicy); len(out) != 0 {
		t.Fatalf("expected empty result, got %v", codes(out))
	}
}
