/*
plan.go - Commission plan definitions and activation

PURPOSE:
  A CommissionPlan is the ruleset governing how commission is computed:
  prioritized conditional rules (each carrying a tier table or a flat rate)
  plus date-bounded bonus rules. Plans are authored data, so this file also
  owns structural validation - a malformed tier table must be rejected before
  it can ever misprice a deal.

ACTIVATION:
  A plan is usable on a date iff its status is Active AND the date falls
  within [EffectiveStart, EffectiveEnd]. Both bounds are inclusive and either
  may be open (nil = unbounded on that side).

TIER TABLE WELL-FORMEDNESS (per rule, after sorting by lower bound):
  - lower < upper on every bounded tier
  - tiers are contiguous: tier[i].upper == tier[i+1].lower
  - only the last tier may be unbounded (nil upper)
  - rates are non-negative

SEE ALSO:
  - tier.go: resolving a deal value against a tier table
  - bonus.go: selecting active bonus rules
  - errors.go: PlanNotActiveError, TierTableError
*/
package engine

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// RULE CONDITION - One predicate over a deal attribute
// =============================================================================

// ConditionOperator is the comparison a RuleCondition applies.
type ConditionOperator string

const (
	OpEquals         ConditionOperator = "equals"
	OpNotEquals      ConditionOperator = "not_equals"
	OpGreaterThan    ConditionOperator = "greater_than"
	OpLessThan       ConditionOperator = "less_than"
	OpGreaterOrEqual ConditionOperator = "greater_or_equal"
	OpLessOrEqual    ConditionOperator = "less_or_equal"
	OpContains       ConditionOperator = "contains"
	OpStartsWith     ConditionOperator = "starts_with"
	OpEndsWith       ConditionOperator = "ends_with"
	OpIn             ConditionOperator = "in"
	OpNotIn          ConditionOperator = "not_in"
)

// LogicalOperator chains a condition with the PREVIOUS condition in the
// rule's ordered list. The first condition's operator is ignored.
type LogicalOperator string

const (
	LogicalAnd LogicalOperator = "and"
	LogicalOr  LogicalOperator = "or"
)

// RuleCondition is one predicate in a rule's condition chain. Value is the
// comparison operand in string form; numeric and date comparisons parse it
// on demand, In/NotIn treat it as a comma-delimited set.
type RuleCondition struct {
	Field           string
	Operator        ConditionOperator
	Value           string
	LogicalOperator LogicalOperator
}

// =============================================================================
// COMMISSION TIER - Value-range-to-rate mapping
// =============================================================================

// CommissionTier maps a deal-value range to a rate. A percentage tier's rate
// applies to the whole deal value; a flat tier pays Rate verbatim.
type CommissionTier struct {
	LowerBound   decimal.Decimal
	UpperBound   *decimal.Decimal // nil = unbounded
	Rate         decimal.Decimal
	IsPercentage bool
}

// ContainsValue reports whether v falls in [LowerBound, UpperBound).
// An unbounded tier contains everything at or above its lower bound.
func (t CommissionTier) ContainsValue(v decimal.Decimal) bool {
	if v.LessThan(t.LowerBound) {
		return false
	}
	if t.UpperBound != nil && v.GreaterThanOrEqual(*t.UpperBound) {
		return false
	}
	return true
}

// =============================================================================
// COMMISSION RULE - Conditional gate plus tier table or flat rate
// =============================================================================

// CommissionRule gates a tier table (or flat rate) behind a condition chain.
// Higher priority rules are evaluated first; the first match wins.
type CommissionRule struct {
	ID         RuleID
	Name       string
	Priority   int
	Conditions []RuleCondition
	Tiers      []CommissionTier
	// FlatRate is a percentage of deal value, used only when Tiers is empty.
	FlatRate decimal.Decimal
}

// =============================================================================
// BONUS RULE - Date-bounded additive amount or accelerator multiplier
// =============================================================================

// BonusRule defines an incentive stacked on top of base commission. Rules of
// type BonusAccelerator contribute Amount as a multiplier instead of an
// additive amount.
type BonusRule struct {
	ID           RuleID
	Name         string
	Description  string
	Amount       decimal.Decimal
	IsPercentage bool
	Type         BonusType
	StartDate    *time.Time // nil = unbounded
	EndDate      *time.Time // nil = unbounded
}

// IsActiveOn reports whether the rule applies on d: StartDate <= d <= EndDate,
// inclusive, with either bound optional.
func (b BonusRule) IsActiveOn(d time.Time) bool {
	if b.StartDate != nil && d.Before(*b.StartDate) {
		return false
	}
	if b.EndDate != nil && d.After(*b.EndDate) {
		return false
	}
	return true
}

// =============================================================================
// COMMISSION PLAN
// =============================================================================

type CommissionPlan struct {
	ID             PlanID
	Name           string
	Status         PlanStatus
	EffectiveStart *time.Time // nil = unbounded
	EffectiveEnd   *time.Time // nil = unbounded
	Rules          []CommissionRule
	Bonuses        []BonusRule
}

// IsUsableOn reports whether the plan can produce calculations on asOf.
func (p *CommissionPlan) IsUsableOn(asOf time.Time) bool {
	if p.Status != PlanActive {
		return false
	}
	if p.EffectiveStart != nil && asOf.Before(*p.EffectiveStart) {
		return false
	}
	if p.EffectiveEnd != nil && asOf.After(*p.EffectiveEnd) {
		return false
	}
	return true
}

// CheckActivation is the plan activation guard. It returns a
// *PlanNotActiveError (wrapping ErrPlanNotActive) when the plan is unusable
// on asOf, nil otherwise.
func CheckActivation(p *CommissionPlan, asOf time.Time) error {
	if p.IsUsableOn(asOf) {
		return nil
	}
	return &PlanNotActiveError{PlanID: p.ID, Status: p.Status, AsOf: asOf}
}

// RankedRules returns the plan's rules sorted for matching: priority
// descending, ties broken by rule id ascending for determinism.
func (p *CommissionPlan) RankedRules() []CommissionRule {
	rules := append([]CommissionRule(nil), p.Rules...)
	sort.SliceStable(rules, func(i, j int) bool {
		if rules[i].Priority != rules[j].Priority {
			return rules[i].Priority > rules[j].Priority
		}
		return rules[i].ID < rules[j].ID
	})
	return rules
}

// Clone returns an independent copy of the plan.
func (p *CommissionPlan) Clone() *CommissionPlan {
	out := *p
	out.Rules = make([]CommissionRule, len(p.Rules))
	for i, r := range p.Rules {
		rc := r
		rc.Conditions = append([]RuleCondition(nil), r.Conditions...)
		rc.Tiers = append([]CommissionTier(nil), r.Tiers...)
		out.Rules[i] = rc
	}
	out.Bonuses = append([]BonusRule(nil), p.Bonuses...)
	return &out
}

// =============================================================================
// STRUCTURAL VALIDATION
// =============================================================================

// Validate checks every rule's tier table and every bonus rule for
// structural soundness. A structural error is fatal: the engine refuses to
// calculate against a malformed plan.
func (p *CommissionPlan) Validate() error {
	for _, rule := range p.Rules {
		if rule.FlatRate.IsNegative() {
			return &TierTableError{RuleID: rule.ID, Reason: "negative flat rate"}
		}
		if err := validateTiers(rule.ID, rule.Tiers); err != nil {
			return err
		}
	}
	for _, bonus := range p.Bonuses {
		if bonus.Type == BonusAccelerator {
			if !bonus.Amount.IsPositive() {
				return &InvalidMultiplierError{RuleID: bonus.ID, Multiplier: bonus.Amount}
			}
			continue
		}
		if bonus.Amount.IsNegative() {
			return &TierTableError{RuleID: bonus.ID, Reason: "negative bonus amount"}
		}
	}
	return nil
}

func validateTiers(ruleID RuleID, tiers []CommissionTier) error {
	if len(tiers) == 0 {
		return nil
	}

	sorted := append([]CommissionTier(nil), tiers...)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].LowerBound.LessThan(sorted[j].LowerBound)
	})

	for i, t := range sorted {
		if t.Rate.IsNegative() {
			return &TierTableError{RuleID: ruleID, Reason: "negative rate"}
		}
		if t.UpperBound != nil && !t.LowerBound.LessThan(*t.UpperBound) {
			return &TierTableError{RuleID: ruleID, Reason: "lower bound not below upper bound"}
		}
		if i == len(sorted)-1 {
			continue
		}
		next := sorted[i+1]
		if t.UpperBound == nil {
			return &TierTableError{RuleID: ruleID, Reason: "unbounded tier is not last"}
		}
		cmp := t.UpperBound.Cmp(next.LowerBound)
		if cmp > 0 {
			return &TierTableError{RuleID: ruleID, Reason: "overlapping tiers"}
		}
		if cmp < 0 {
			return &TierTableError{RuleID: ruleID, Reason: "gap between tiers"}
		}
	}
	return nil
}

// SortedTiers returns the tier table in ascending lower-bound order without
// mutating the rule.
func (r CommissionRule) SortedTiers() []CommissionTier {
	tiers := append([]CommissionTier(nil), r.Tiers...)
	sort.SliceStable(tiers, func(i, j int) bool {
		return tiers[i].LowerBound.LessThan(tiers[j].LowerBound)
	})
	return tiers
}
