package icdmap

import "testing"

func TestPartialRatio(t *testing.T) {
	cases := []struct {
		a, b string
		want int
	}{
		{"hypertension", "essential (primary) hypertension", 100},
		{"essential (primary) hypertension", "hypertension", 100},
		{"headache", "headache", 100},
		{"", "headache", 0},
		{"abc", "xyz", 0},
		{"fever", "fevor", 80},
		{"ab", "ac", 50},
	}
	for _, tc := range cases {
		if got := PartialRatio(tc.a, tc.b); got != tc.want {
			t.Fatalf("PartialRatio(%q, %q) = %d, want %d", tc.a, tc.b, got, tc.want)
		}
	}
}

func TestPartialRatioBounds(t *testing.T) {
	pairs := [][2]string{
		{"chest pain", "other chest pain"},
		{"shortness of breath", "acute respiratory failure with hypoxia"},
		{"migraine", "migraine without aura, not intractable"},
	}
	for _, p := range pairs {
		score := PartialRatio(p[0], p[1])
		if score < 0 || score > 100 {
			t.Fatalf("score out of range for %v: %d", p, score)
		}
		if score != PartialRatio(p[1], p[0]) {
			t.Fatalf("expected symmetric score for %v", p)
		}
	}
}

func TestSequenceMatcherRatio(t *testing.T) {
	m := newSequenceMatcher([]rune("abcd"), []rune("bcde"))
	if got := m.ratio(); got != 0.75 {
		t.Fatalf("expected ratio 0.75, got %v", got)
	}
	blocks := m.matchingBlocks()
	last := blocks[len(blocks)-1]
	if last.i != 4 || last.j != 4 || last.size != 0 {
		t.Fatalf("expected sentinel block, got %+v", last)
	}
}
