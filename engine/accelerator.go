/*
accelerator.go - Accelerator composition

PURPOSE:
  Applies a sequence of multipliers to the pre-accelerator subtotal
  (base + sum of bonuses). Multiplication is associative and commutative, so
  order changes only the audit trail, never the number.

CONSTRAINT:
  A multiplier must be strictly positive. Accelerators may decelerate
  (multiplier < 1) but never zero out or invert a commission.
*/
package engine

import (
	"github.com/shopspring/decimal"
)

// ComposeAccelerators multiplies subtotal by each accelerator's multiplier in
// sequence. A multiplier <= 0 is a structural error and aborts the run.
func ComposeAccelerators(subtotal decimal.Decimal, accelerators []AcceleratorCalculation) (decimal.Decimal, error) {
	total := subtotal
	for _, a := range accelerators {
		if !a.Multiplier.IsPositive() {
			return decimal.Zero, &InvalidMultiplierError{RuleID: a.RuleID, Multiplier: a.Multiplier}
		}
		total = total.Mul(a.Multiplier)
	}
	return RoundMoney(total), nil
}
