/*
condition.go - Condition evaluation and rule matching

PURPOSE:
  Decides whether a commission rule applies to a deal. Each RuleCondition is
  evaluated against the deal's flat attribute map; a rule's verdict folds the
  per-condition results left to right using each condition's own logical
  operator.

FOLD SEMANTICS:
  result = c1; for each subsequent ci: result = result <ci.op> ci
  There is NO precedence grouping - "a AND b OR c" is (a AND b) OR c. This
  matches a naive left-to-right chain, not a parsed boolean expression; rules
  needing grouping must be split into separate rules.

FAILURE SEMANTICS:
  - Missing field: the condition is false, never an error. Absent optional
    attributes fail to match rather than aborting evaluation.
  - Type mismatch (ordinal operator on a non-ordinal field, string operator
    on a number): that single condition is false. One malformed condition
    must not block evaluation of independent rules.

SEE ALSO:
  - deal.go: the attribute map
  - engine.go: rule ranking and first-match selection
*/
package engine

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// CONDITION EVALUATOR
// =============================================================================

// EvaluateCondition evaluates one condition against the attribute map.
// Missing fields and type mismatches evaluate to false.
func EvaluateCondition(c RuleCondition, attrs map[string]Attribute) bool {
	attr, ok := attrs[c.Field]
	if !ok {
		return false
	}

	switch c.Operator {
	case OpEquals:
		return equalAttr(attr, c.Value)
	case OpNotEquals:
		return !equalAttr(attr, c.Value)
	case OpGreaterThan, OpLessThan, OpGreaterOrEqual, OpLessOrEqual:
		return compareOrdinal(attr, c.Operator, c.Value)
	case OpContains:
		return attr.Kind == AttrString && strings.Contains(attr.Str, c.Value)
	case OpStartsWith:
		return attr.Kind == AttrString && strings.HasPrefix(attr.Str, c.Value)
	case OpEndsWith:
		return attr.Kind == AttrString && strings.HasSuffix(attr.Str, c.Value)
	case OpIn:
		return inSet(attr, c.Value)
	case OpNotIn:
		return !inSet(attr, c.Value)
	default:
		return false
	}
}

// equalAttr compares on the attribute's natural type: numeric equality for
// numbers, date equality for dates, case-sensitive string equality otherwise.
func equalAttr(attr Attribute, value string) bool {
	switch attr.Kind {
	case AttrNumber:
		v, err := decimal.NewFromString(value)
		if err != nil {
			return false
		}
		return attr.Number.Equal(v)
	case AttrDate:
		v, err := parseDate(value)
		if err != nil {
			return false
		}
		return attr.Date.Equal(v)
	default:
		return attr.Str == value
	}
}

// compareOrdinal handles the four ordering operators. Only numbers and dates
// are ordinal; anything else is a type mismatch and therefore a non-match.
func compareOrdinal(attr Attribute, op ConditionOperator, value string) bool {
	var cmp int
	switch attr.Kind {
	case AttrNumber:
		v, err := decimal.NewFromString(value)
		if err != nil {
			return false
		}
		cmp = attr.Number.Cmp(v)
	case AttrDate:
		v, err := parseDate(value)
		if err != nil {
			return false
		}
		switch {
		case attr.Date.Before(v):
			cmp = -1
		case attr.Date.After(v):
			cmp = 1
		}
	default:
		return false
	}

	switch op {
	case OpGreaterThan:
		return cmp > 0
	case OpLessThan:
		return cmp < 0
	case OpGreaterOrEqual:
		return cmp >= 0
	case OpLessOrEqual:
		return cmp <= 0
	}
	return false
}

// inSet treats value as a comma-delimited set and checks membership of the
// attribute's string form. Elements are trimmed; numbers compare numerically
// so "10" and "10.0" are the same member.
func inSet(attr Attribute, value string) bool {
	for _, elem := range strings.Split(value, ",") {
		elem = strings.TrimSpace(elem)
		if attr.Kind == AttrNumber {
			v, err := decimal.NewFromString(elem)
			if err == nil && attr.Number.Equal(v) {
				return true
			}
			continue
		}
		if attr.Str == elem {
			return true
		}
	}
	return false
}

func parseDate(s string) (time.Time, error) {
	if t, err := time.Parse("2006-01-02", s); err == nil {
		return t, nil
	}
	return time.Parse(time.RFC3339, s)
}

// =============================================================================
// RULE MATCHER
// =============================================================================

// MatchRule folds the rule's ordered conditions into one verdict. A rule
// with zero conditions always matches (universal rule).
func MatchRule(r CommissionRule, attrs map[string]Attribute) bool {
	if len(r.Conditions) == 0 {
		return true
	}

	result := EvaluateCondition(r.Conditions[0], attrs)
	for _, c := range r.Conditions[1:] {
		next := EvaluateCondition(c, attrs)
		if c.LogicalOperator == LogicalOr {
			result = result || next
		} else {
			result = result && next
		}
	}
	return result
}
