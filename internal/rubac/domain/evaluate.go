package domain

import (
	"cmp"
	"fmt"
	"slices"
)

// Reasons for rules that do not constrain a request.
const (
	ReasonRuleInactive      = "rule inactive"
	ReasonRuleSatisfied     = "rule satisfied"
	ReasonNoBoundRules      = "no applicable rules"
	ReasonAllRulesSatisfied = "all rules satisfied"
)

// Decision is the outcome of a rule evaluation.
type Decision struct {
	Allowed bool
	Reason  string
	Rule    *AccessRule
}

// EvaluateAccessRule checks one rule against ctx. Inert rules allow; a config that
// cannot be decoded denies.
func EvaluateAccessRule(rule *AccessRule, ctx Context) Decision {
	if !rule.IsActive(ctx.now()) {
		return Decision{Allowed: true, Reason: ReasonRuleInactive, Rule: rule}
	}

	p, err := rule.predicate()
	if err != nil {
		return Decision{Allowed: false, Reason: ReasonInvalidConfig, Rule: rule}
	}

	if reason := p.check(ctx); reason != "" {
		return Decision{Allowed: false, Reason: fmt.Sprintf("rule %q: %s", rule.Name, reason), Rule: rule}
	}
	return Decision{Allowed: true, Reason: ReasonRuleSatisfied, Rule: rule}
}

// EvaluateAll checks rules in descending priority and stops at the first denial.
func EvaluateAll(rules []*AccessRule, ctx Context) Decision {
	if len(rules) == 0 {
		return Decision{Allowed: true, Reason: ReasonNoBoundRules}
	}

	ordered := slices.Clone(rules)
	slices.SortStableFunc(ordered, func(a, b *AccessRule) int {
		return cmp.Compare(b.Priority, a.Priority)
	})

	for _, rule := range ordered {
		if decision := EvaluateAccessRule(rule, ctx); !decision.Allowed {
			return decision
		}
	}
	return Decision{Allowed: true, Reason: ReasonAllRulesSatisfied}
}
