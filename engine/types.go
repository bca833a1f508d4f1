/*
Package engine provides the core commission calculation engine.

PURPOSE:
  This package contains the domain types and algorithms for turning a closed
  sales deal and a commission plan into an auditable commission calculation:
  condition matching, tier resolution, bonus stacking, and accelerator
  composition.

KEY CONCEPTS IN THIS FILE (types.go):
  - Money helpers: all amounts are decimal.Decimal, rounded at derivation points
  - Typed identifiers: DealID, PlanID, RuleID, SalesRepID, CalculationID
  - Status enumerations: plan, deal, and calculation lifecycles
  - Diagnostic: non-fatal annotations attached to a calculation

DESIGN PRINCIPLES:
  1. Precision: decimal.Decimal everywhere money flows, never float64
  2. Type Safety: strong ID types prevent mixing deal/plan/rule identifiers
  3. Purity: the engine performs no I/O; persistence lives behind Store
  4. Auditability: every bonus and accelerator becomes a named line item

SEE ALSO:
  - plan.go: CommissionPlan, rules, tiers, bonus rules
  - deal.go: Deal and derived-value invariant
  - calculation.go: the CommissionCalculation aggregate
  - engine.go: the orchestrating Calculate entry point
*/
package engine

import (
	"github.com/shopspring/decimal"
)

// =============================================================================
// MONEY - Decimal helpers shared across the engine
// =============================================================================

// MoneyScale is the number of decimal places all derived amounts are rounded
// to. Rounding is half-up (decimal.Round rounds half away from zero, which is
// half-up for the non-negative amounts this engine produces).
const MoneyScale = 2

var hundred = decimal.NewFromInt(100)

// RoundMoney rounds an amount to the engine's money scale.
func RoundMoney(d decimal.Decimal) decimal.Decimal {
	return d.Round(MoneyScale)
}

// Percent applies rate as a percentage of base: base * rate / 100.
func Percent(base, rate decimal.Decimal) decimal.Decimal {
	return base.Mul(rate).Div(hundred)
}

// DecimalOrZero parses a decimal string, returning zero on failure.
// Intended for literals in configuration and tests.
func DecimalOrZero(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}

// =============================================================================
// IDENTIFIERS
// =============================================================================

type DealID string
type PlanID string
type RuleID string
type SalesRepID string
type CalculationID string

// =============================================================================
// STATUS ENUMERATIONS
// =============================================================================

// PlanStatus is the lifecycle state of a commission plan.
// Only Active plans produce calculations.
type PlanStatus string

const (
	PlanDraft    PlanStatus = "draft"
	PlanActive   PlanStatus = "active"
	PlanInactive PlanStatus = "inactive"
	PlanArchived PlanStatus = "archived"
)

// DealStatus is the lifecycle state of a sales deal.
type DealStatus string

const (
	DealOpen      DealStatus = "open"
	DealWon       DealStatus = "won"
	DealLost      DealStatus = "lost"
	DealCancelled DealStatus = "cancelled"
)

// CalculationStatus is the lifecycle state of a commission calculation.
// The engine only ever produces Calculated; every other state is set by the
// downstream workflow (see the workflow package).
type CalculationStatus string

const (
	CalcCalculated CalculationStatus = "calculated"
	CalcApproved   CalculationStatus = "approved"
	CalcPaid       CalculationStatus = "paid"
	CalcDisputed   CalculationStatus = "disputed"
	CalcAdjusted   CalculationStatus = "adjusted"
	CalcCancelled  CalculationStatus = "cancelled"
)

// BonusType classifies a bonus rule. Accelerator-typed rules contribute a
// multiplier instead of an additive amount.
type BonusType string

const (
	BonusFixed            BonusType = "fixed"
	BonusSpif             BonusType = "spif"
	BonusAccelerator      BonusType = "accelerator"
	BonusQuotaAchievement BonusType = "quota_achievement"
	BonusTeamPerformance  BonusType = "team_performance"
	BonusSpecialIncentive BonusType = "special_incentive"
)

// =============================================================================
// DIAGNOSTICS - Non-fatal annotations on a calculation
// =============================================================================

// Diagnostic flags a degenerate-but-valid calculation for manual review.
// A diagnostic never aborts a run; fatal conditions are errors (errors.go).
type Diagnostic string

const (
	// DiagNoMatchingRule: no plan rule matched the deal; base commission is zero.
	DiagNoMatchingRule Diagnostic = "no_matching_rule"

	// DiagValueOutsideTierRange: the deal value fell outside every tier of the
	// winning rule; base commission is zero.
	DiagValueOutsideTierRange Diagnostic = "value_outside_tier_range"
)
