package icdmap

import "strings"

// ConditionRule links a concept to a curated condition when plain text comparison
// cannot. Both arguments are lower-cased.
type ConditionRule struct {
	Name  string
	Match func(concept, condition string) bool
}

type RuleSet []ConditionRule

func (rs RuleSet) Match(concept, condition string) (string, bool) {
	for _, r := range rs {
		if r.Match(concept, condition) {
			return r.Name, true
		}
	}
	return "", false
}

// DefaultRules covers blood pressure phrasing that never names the condition.
var DefaultRules = RuleSet{
	{
		Name: "elevated-blood-pressure",
		Match: func(concept, condition string) bool {
			return (concept == "elevated" || concept == "high") && strings.Contains(condition, "blood pressure")
		},
	},
	{
		Name: "blood-pressure-hypertension",
		Match: func(concept, condition string) bool {
			return concept == "blood pressure" && strings.Contains(condition, "hypertension")
		},
	},
}
