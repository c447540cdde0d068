package rules

import "sort"

// FirstMatch evaluates the rule set against a transaction and returns the
// first fully-satisfied rule, in strict ascending priority order with ties
// broken by original list order. Evaluation stops at the first hit; later
// rules are never consulted for that transaction.
//
// The input slice is not modified and no rule is mutated. Returns ok=false
// when no rule matches.
func FirstMatch(subject Subject, ruleSet []Rule) (rule *Rule, ok bool) {
	if len(ruleSet) == 0 {
		return nil, false
	}

	ordered := make([]*Rule, len(ruleSet))
	for i := range ruleSet {
		ordered[i] = &ruleSet[i]
	}
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].Priority < ordered[j].Priority
	})

	for _, r := range ordered {
		if r.Conditions.matches(subject) {
			return r, true
		}
	}

	return nil, false
}
