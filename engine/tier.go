/*
tier.go - Tier resolution

PURPOSE:
  Computes the base commission from the winning rule's tier table and the
  deal value. Exactly one tier can contain a given value because tier tables
  are validated contiguous and non-overlapping (plan.go).

RATE POLICY:
  RateFlatBracket (default): the matched tier's percentage rate applies to
  the ENTIRE deal value. A 7% tier on a 12,000 deal pays 840, full stop.

  RateMarginal: the matched tier's percentage rate applies only to the
  excess above the tier's lower bound - bracket-style. This is an explicit
  opt-in policy, not the default.

  Flat (non-percentage) tiers pay Rate verbatim under either policy.

SEE ALSO:
  - plan.go: tier table well-formedness
  - engine.go: where the resolution feeds the calculation
*/
package engine

import (
	"github.com/shopspring/decimal"
)

// RatePolicy selects how a percentage tier's rate is applied.
type RatePolicy int

const (
	// RateFlatBracket applies the matched tier's rate to the whole deal value.
	RateFlatBracket RatePolicy = iota

	// RateMarginal applies the matched tier's rate to (value - lowerBound) only.
	RateMarginal
)

// TierResolution is the outcome of resolving a deal value against a rule.
type TierResolution struct {
	Base       decimal.Decimal
	Tier       *CommissionTier // nil when no tier contained the value or tiers were empty
	Diagnostic Diagnostic      // zero value when the resolution is clean
}

// ResolveTier computes the base commission for value under rule.
//
// Empty tier table: the rule's FlatRate is applied as a percentage of the
// deal value. Otherwise the single containing tier determines the base; a
// value outside every tier yields zero with DiagValueOutsideTierRange.
func ResolveTier(rule CommissionRule, value decimal.Decimal, policy RatePolicy) TierResolution {
	if len(rule.Tiers) == 0 {
		return TierResolution{Base: RoundMoney(Percent(value, rule.FlatRate))}
	}

	for _, tier := range rule.SortedTiers() {
		if !tier.ContainsValue(value) {
			continue
		}
		t := tier
		if !tier.IsPercentage {
			return TierResolution{Base: RoundMoney(tier.Rate), Tier: &t}
		}
		rateBase := value
		if policy == RateMarginal {
			rateBase = value.Sub(tier.LowerBound)
		}
		return TierResolution{Base: RoundMoney(Percent(rateBase, tier.Rate)), Tier: &t}
	}

	return TierResolution{Base: decimal.Zero, Diagnostic: DiagValueOutsideTierRange}
}
