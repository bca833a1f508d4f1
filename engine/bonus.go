/*
bonus.go - Bonus resolution

PURPOSE:
  Selects the plan's bonus rules active on the calculation date and turns
  each into a BonusCalculation line item. All active bonuses stack
  additively; there is no mutual exclusion between bonus types. Accelerator-
  typed rules are NOT additive - they are pulled out separately and feed the
  accelerator composer.

ORDERING:
  The resulting list preserves the plan's declaration order. It affects only
  audit-trail readability, never the sum.

SEE ALSO:
  - accelerator.go: multiplicative composition of accelerator rules
  - calculation.go: the line-item types
*/
package engine

import (
	"time"

	"github.com/shopspring/decimal"
)

// ResolveBonuses returns one line item per non-accelerator bonus rule active
// on asOf. Percentage bonuses compute against base; fixed bonuses contribute
// Amount verbatim.
func ResolveBonuses(bonuses []BonusRule, base decimal.Decimal, asOf time.Time) []BonusCalculation {
	var out []BonusCalculation
	for _, rule := range bonuses {
		if rule.Type == BonusAccelerator || !rule.IsActiveOn(asOf) {
			continue
		}
		amount := rule.Amount
		if rule.IsPercentage {
			amount = Percent(base, rule.Amount)
		}
		out = append(out, BonusCalculation{
			RuleID:      rule.ID,
			Name:        rule.Name,
			Amount:      RoundMoney(amount),
			Description: rule.Description,
		})
	}
	return out
}

// ResolveAccelerators returns one line item per accelerator-typed bonus rule
// active on asOf, in declaration order. The rule's Amount is the multiplier.
func ResolveAccelerators(bonuses []BonusRule, asOf time.Time) []AcceleratorCalculation {
	var out []AcceleratorCalculation
	for _, rule := range bonuses {
		if rule.Type != BonusAccelerator || !rule.IsActiveOn(asOf) {
			continue
		}
		out = append(out, AcceleratorCalculation{
			RuleID:      rule.ID,
			Name:        rule.Name,
			Multiplier:  rule.Amount,
			Description: rule.Description,
		})
	}
	return out
}
