package domain

import (
	"cmp"
	"fmt"
	"reflect"
	"slices"
	"strings"
	"time"

	"github.com/spf13/cast"
)

// Decision reasons. Reasons name policies and attributes, never attribute values.
const (
	ReasonNoBoundPolicies = "no applicable policies"
	ReasonNoPolicyMatched = "no policy matched"
	ReasonPolicyDisabled  = "policy disabled"
)

// Environment carries the request-time attributes supplied by the caller.
type Environment struct {
	NetworkSecurityLevel string
	ThreatScore          float64
	MaintenanceMode      bool
	CurrentTime          time.Time
	Extra                map[string]any
}

// AttributeMap flattens the environment. Named fields override Extra entries.
func (e Environment) AttributeMap() map[string]any {
	attrs := make(map[string]any, len(e.Extra)+5)
	for k, v := range e.Extra {
		attrs[k] = v
	}
	now := e.CurrentTime
	if now.IsZero() {
		now = time.Now()
	}
	now = now.UTC()
	attrs["networkSecurityLevel"] = e.NetworkSecurityLevel
	attrs["threatScore"] = e.ThreatScore
	attrs["maintenanceMode"] = e.MaintenanceMode
	attrs["currentTime"] = now.Format(time.RFC3339)
	attrs["currentHour"] = now.Hour()
	return attrs
}

// Attributes is the three-scope attribute set a policy is evaluated against.
type Attributes struct {
	Subject     map[string]any
	Resource    map[string]any
	Environment map[string]any
}

// Lookup resolves a qualified or bare attribute name. Bare names are searched in
// subject, resource and environment scope, in that order.
func (a Attributes) Lookup(name string) (any, bool) {
	if scope, key, ok := strings.Cut(name, "."); ok {
		switch scope {
		case "subject", "user":
			v, found := a.Subject[key]
			return v, found
		case "resource":
			v, found := a.Resource[key]
			return v, found
		case "environment", "env":
			v, found := a.Environment[key]
			return v, found
		}
	}
	for _, scope := range []map[string]any{a.Subject, a.Resource, a.Environment} {
		if v, found := scope[name]; found {
			return v, true
		}
	}
	return nil, false
}

// Matches evaluates a single condition. A missing attribute never matches.
func (c Condition) Matches(attrs Attributes) bool {
	actual, found := attrs.Lookup(c.Attribute)
	if !found || actual == nil {
		return false
	}

	switch c.Operator {
	case OperatorEquals:
		return valuesEqual(actual, c.Value)
	case OperatorContains:
		if items, ok := toList(actual); ok {
			return slices.ContainsFunc(items, func(item any) bool { return valuesEqual(item, c.Value) })
		}
		return strings.Contains(cast.ToString(actual), cast.ToString(c.Value))
	case OperatorGreaterThan, OperatorLessThan:
		a, errA := toNumber(actual)
		e, errE := toNumber(c.Value)
		if errA != nil || errE != nil {
			return false
		}
		if c.Operator == OperatorGreaterThan {
			return a > e
		}
		return a < e
	case OperatorIn:
		candidates := inList(c.Value)
		if items, ok := toList(actual); ok {
			return slices.ContainsFunc(items, func(item any) bool { return containsValue(candidates, item) })
		}
		return containsValue(candidates, actual)
	default:
		return false
	}
}

// Fires reports whether every condition holds. On failure it returns the attribute
// name of the first condition that did not match.
func (p *AccessPolicy) Fires(attrs Attributes) (bool, string) {
	for _, condition := range p.Conditions {
		if !condition.Matches(attrs) {
			return false, condition.Attribute
		}
	}
	return true, ""
}

// Decision is the outcome of an ABAC evaluation.
type Decision struct {
	Allowed bool
	Reason  string
	Policy  *AccessPolicy
}

// EvaluateSingle evaluates one policy on its own: it must be enabled, fire, and carry
// the ALLOW effect.
func EvaluateSingle(policy *AccessPolicy, attrs Attributes) Decision {
	if !policy.Enabled {
		return Decision{Allowed: false, Reason: ReasonPolicyDisabled, Policy: policy}
	}
	fired, failed := policy.Fires(attrs)
	if !fired {
		return Decision{Allowed: false, Reason: fmt.Sprintf("condition on %s not satisfied", failed), Policy: policy}
	}
	if policy.Effect == EffectDeny {
		return Decision{Allowed: false, Reason: fmt.Sprintf("denied by policy %q", policy.Name), Policy: policy}
	}
	return Decision{Allowed: true, Reason: fmt.Sprintf("allowed by policy %q", policy.Name), Policy: policy}
}

// Combine evaluates bound policies in descending priority. The highest priority at
// which any policy fires decides: a fired DENY there wins over fired ALLOWs of the
// same or lower priority. Nothing firing denies; no enabled policies allows.
func Combine(policies []*AccessPolicy, attrs Attributes) Decision {
	enabled := make([]*AccessPolicy, 0, len(policies))
	for _, policy := range policies {
		if policy.Enabled {
			enabled = append(enabled, policy)
		}
	}
	if len(enabled) == 0 {
		return Decision{Allowed: true, Reason: ReasonNoBoundPolicies}
	}

	slices.SortStableFunc(enabled, func(a, b *AccessPolicy) int {
		return cmp.Compare(b.Priority, a.Priority)
	})

	var allowedBy *AccessPolicy
	for _, policy := range enabled {
		if allowedBy != nil && policy.Priority < allowedBy.Priority {
			break
		}
		if fired, _ := policy.Fires(attrs); !fired {
			continue
		}
		if policy.Effect == EffectDeny {
			return Decision{Allowed: false, Reason: fmt.Sprintf("denied by policy %q", policy.Name), Policy: policy}
		}
		if allowedBy == nil {
			allowedBy = policy
		}
	}

	if allowedBy != nil {
		return Decision{Allowed: true, Reason: fmt.Sprintf("allowed by policy %q", allowedBy.Name), Policy: allowedBy}
	}
	return Decision{Allowed: false, Reason: ReasonNoPolicyMatched}
}

func valuesEqual(actual, expected any) bool {
	if b, ok := actual.(bool); ok {
		e, err := cast.ToBoolE(expected)
		return err == nil && b == e
	}
	if a, errA := toNumber(actual); errA == nil {
		if e, errE := toNumber(expected); errE == nil {
			return a == e
		}
	}
	if items, ok := toList(actual); ok {
		expectedItems, ok := toList(expected)
		if !ok || len(items) != len(expectedItems) {
			return false
		}
		for i := range items {
			if !valuesEqual(items[i], expectedItems[i]) {
				return false
			}
		}
		return true
	}
	return cast.ToString(actual) == cast.ToString(expected)
}

func containsValue(candidates []any, value any) bool {
	return slices.ContainsFunc(candidates, func(candidate any) bool { return valuesEqual(value, candidate) })
}

// inList accepts an array value or a comma-separated string.
func inList(value any) []any {
	if items, ok := toList(value); ok {
		return items
	}
	parts := strings.Split(cast.ToString(value), ",")
	items := make([]any, 0, len(parts))
	for _, part := range parts {
		if part = strings.TrimSpace(part); part != "" {
			items = append(items, part)
		}
	}
	return items
}

func toList(value any) ([]any, bool) {
	if value == nil {
		return nil, false
	}
	rv := reflect.ValueOf(value)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return nil, false
	}
	if _, isBytes := value.([]byte); isBytes {
		return nil, false
	}
	items := make([]any, rv.Len())
	for i := range items {
		items[i] = rv.Index(i).Interface()
	}
	return items, true
}

// toNumber coerces numbers, numeric strings and RFC 3339 timestamps (as Unix seconds).
func toNumber(value any) (float64, error) {
	switch v := value.(type) {
	case bool:
		return 0, fmt.Errorf("boolean is not numeric")
	case time.Time:
		return float64(v.Unix()), nil
	case string:
		if ts, err := time.Parse(time.RFC3339, v); err == nil {
			return float64(ts.Unix()), nil
		}
	}
	return cast.ToFloat64E(value)
}
