/*
calculation.go - The CommissionCalculation aggregate

PURPOSE:
  The persisted, auditable result of one engine run. Holds the base
  commission plus every bonus and accelerator line item, and the derived
  gross/net totals.

NO-STALE-DERIVED-STATE INVARIANT:
  At every observable point:

    Gross == (Base + sum(bonus amounts)) * product(accelerator multipliers)
    Net   == Gross                        (no deductions modeled)

  Every mutator (AddBonus, AddAccelerator, SetBaseCommission) re-derives the
  totals in the same call. There is deliberately NO exported Recalculate
  method: a separately-callable recompute step is exactly the stale-state
  bug this type exists to prevent.

STATUS:
  The engine only ever creates a calculation as Calculated. All other states
  are applied by the downstream workflow via TransitionTo, which enforces
  the legal transition table.

SEE ALSO:
  - engine.go: calculation assembly
  - workflow package: status transitions, disputes, payout
*/
package engine

import (
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// LINE ITEMS - Immutable, owned exclusively by one calculation
// =============================================================================

// BonusCalculation is one additive bonus line item.
type BonusCalculation struct {
	RuleID      RuleID
	Name        string
	Amount      decimal.Decimal
	Description string
}

// AcceleratorCalculation is one multiplicative line item.
type AcceleratorCalculation struct {
	RuleID      RuleID
	Name        string
	Multiplier  decimal.Decimal
	Description string
}

// =============================================================================
// COMMISSION CALCULATION
// =============================================================================

// CommissionCalculation is the aggregate an engine run produces. Read fields
// freely; mutate only through AddBonus/AddAccelerator/SetBaseCommission and
// TransitionTo so the derived totals can never go stale.
type CommissionCalculation struct {
	ID              CalculationID
	DealID          DealID
	SalesRepID      SalesRepID
	PlanID          PlanID
	BaseCommission  decimal.Decimal
	Bonuses         []BonusCalculation
	Accelerators    []AcceleratorCalculation
	GrossCommission decimal.Decimal
	NetCommission   decimal.Decimal
	Status          CalculationStatus
	Diagnostics     []Diagnostic
	CalculationDate time.Time
	PayoutDate      *time.Time
}

// NewCalculation creates an empty Calculated aggregate with totals derived
// from the (zero) base.
func NewCalculation(id CalculationID, dealID DealID, rep SalesRepID, planID PlanID, asOf time.Time) *CommissionCalculation {
	c := &CommissionCalculation{
		ID:              id,
		DealID:          dealID,
		SalesRepID:      rep,
		PlanID:          planID,
		Status:          CalcCalculated,
		CalculationDate: asOf,
	}
	c.recompute()
	return c
}

// SetBaseCommission replaces the base and re-derives the totals in the same
// call.
func (c *CommissionCalculation) SetBaseCommission(base decimal.Decimal) {
	c.BaseCommission = RoundMoney(base)
	c.recompute()
}

// AddBonus appends a bonus line item and re-derives the totals in the same
// call.
func (c *CommissionCalculation) AddBonus(b BonusCalculation) {
	c.Bonuses = append(c.Bonuses, b)
	c.recompute()
}

// AddAccelerator appends an accelerator line item and re-derives the totals
// in the same call. The multiplier must be positive.
func (c *CommissionCalculation) AddAccelerator(a AcceleratorCalculation) error {
	if !a.Multiplier.IsPositive() {
		return &InvalidMultiplierError{RuleID: a.RuleID, Multiplier: a.Multiplier}
	}
	c.Accelerators = append(c.Accelerators, a)
	c.recompute()
	return nil
}

// AddDiagnostic annotates the calculation for manual review. Diagnostics are
// additive and never affect the totals.
func (c *CommissionCalculation) AddDiagnostic(d Diagnostic) {
	c.Diagnostics = append(c.Diagnostics, d)
}

// Subtotal is base + sum of bonuses, before accelerators.
func (c *CommissionCalculation) Subtotal() decimal.Decimal {
	sub := c.BaseCommission
	for _, b := range c.Bonuses {
		sub = sub.Add(b.Amount)
	}
	return sub
}

// recompute derives gross/net from base, bonuses, and accelerators. Called
// by every mutator; never exported.
func (c *CommissionCalculation) recompute() {
	total := c.Subtotal()
	for _, a := range c.Accelerators {
		total = total.Mul(a.Multiplier)
	}
	c.GrossCommission = RoundMoney(total)
	c.NetCommission = c.GrossCommission
}

// Clone returns an independent copy. Stores hand out clones so two callers
// can never share line-item slices.
func (c *CommissionCalculation) Clone() *CommissionCalculation {
	out := *c
	out.Bonuses = append([]BonusCalculation(nil), c.Bonuses...)
	out.Accelerators = append([]AcceleratorCalculation(nil), c.Accelerators...)
	out.Diagnostics = append([]Diagnostic(nil), c.Diagnostics...)
	if c.PayoutDate != nil {
		d := *c.PayoutDate
		out.PayoutDate = &d
	}
	return &out
}

// =============================================================================
// STATUS TRANSITIONS
// =============================================================================

// legalTransitions is the calculation status state machine. The engine never
// consults it; only the workflow moves a calculation out of Calculated.
var legalTransitions = map[CalculationStatus][]CalculationStatus{
	CalcCalculated: {CalcApproved, CalcDisputed, CalcAdjusted, CalcCancelled},
	CalcApproved:   {CalcPaid, CalcDisputed, CalcCancelled},
	CalcDisputed:   {CalcAdjusted, CalcApproved, CalcCancelled},
	CalcAdjusted:   {CalcApproved, CalcDisputed, CalcCancelled},
	CalcPaid:       {CalcDisputed},
	CalcCancelled:  {},
}

// CanTransitionTo reports whether the status change is legal.
func (c *CommissionCalculation) CanTransitionTo(to CalculationStatus) bool {
	for _, allowed := range legalTransitions[c.Status] {
		if allowed == to {
			return true
		}
	}
	return false
}

// TransitionTo applies a status change, enforcing the legal transition
// table. Returns a *TransitionError (wrapping ErrInvalidTransition) on an
// illegal move.
func (c *CommissionCalculation) TransitionTo(to CalculationStatus) error {
	if !c.CanTransitionTo(to) {
		return &TransitionError{CalculationID: c.ID, From: c.Status, To: to}
	}
	c.Status = to
	return nil
}
