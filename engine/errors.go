/*
errors.go - Centralized error types for the commission engine

PURPOSE:
  All engine error types in one place. Collaborating packages (workflow, api,
  stores) wrap these with their own context.

ERROR CATEGORIES:
  1. Structural errors - malformed plan data; the engine refuses to calculate
  2. Activation errors - plan unusable on the requested date
  3. Not-found errors  - store lookups for missing plans/deals/calculations
  4. Transition errors - illegal calculation status changes

Degenerate results (no rule matched, value outside every tier) are NOT
errors: they yield a valid zero-base calculation annotated with a Diagnostic
so downstream review can proceed.

USAGE:
  if errors.Is(err, engine.ErrPlanNotActive) { ... }
  if engine.IsFatal(err) { reject the operation }
*/
package engine

import (
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrPlanNotActive is returned when a plan's status or effective window
	// makes it unusable on the requested date.
	ErrPlanNotActive = errors.New("plan not active")

	// ErrMalformedTierTable is returned for overlapping, non-contiguous, or
	// negative-rate tier tables.
	ErrMalformedTierTable = errors.New("malformed tier table")

	// ErrInvalidMultiplier is returned for accelerator multipliers <= 0.
	// Accelerators may decelerate (multiplier < 1) but never invert sign.
	ErrInvalidMultiplier = errors.New("invalid accelerator multiplier")

	// ErrInvalidTransition is returned for illegal calculation status changes.
	ErrInvalidTransition = errors.New("invalid status transition")

	// ErrPlanNotFound is returned when a referenced plan doesn't exist.
	ErrPlanNotFound = errors.New("plan not found")

	// ErrDealNotFound is returned when a referenced deal doesn't exist.
	ErrDealNotFound = errors.New("deal not found")

	// ErrCalculationNotFound is returned when a referenced calculation doesn't exist.
	ErrCalculationNotFound = errors.New("calculation not found")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// PlanNotActiveError reports why a plan failed the activation guard.
type PlanNotActiveError struct {
	PlanID PlanID
	Status PlanStatus
	AsOf   time.Time
}

func (e *PlanNotActiveError) Error() string {
	return fmt.Sprintf("plan %s not active on %s (status: %s)",
		e.PlanID, e.AsOf.Format("2006-01-02"), e.Status)
}

func (e *PlanNotActiveError) Unwrap() error { return ErrPlanNotActive }

// TierTableError reports a structural defect in a rule's tier table or a
// bonus rule's amount.
type TierTableError struct {
	RuleID RuleID
	Reason string
}

func (e *TierTableError) Error() string {
	return fmt.Sprintf("rule %s: %s", e.RuleID, e.Reason)
}

func (e *TierTableError) Unwrap() error { return ErrMalformedTierTable }

// InvalidMultiplierError reports an accelerator multiplier outside (0, inf).
type InvalidMultiplierError struct {
	RuleID     RuleID
	Multiplier decimal.Decimal
}

func (e *InvalidMultiplierError) Error() string {
	return fmt.Sprintf("accelerator %s: multiplier %s must be positive",
		e.RuleID, e.Multiplier)
}

func (e *InvalidMultiplierError) Unwrap() error { return ErrInvalidMultiplier }

// TransitionError reports an illegal calculation status change.
type TransitionError struct {
	CalculationID CalculationID
	From          CalculationStatus
	To            CalculationStatus
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("calculation %s: cannot transition %s -> %s",
		e.CalculationID, e.From, e.To)
}

func (e *TransitionError) Unwrap() error { return ErrInvalidTransition }

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsFatal returns true if the error means no calculation was (or should be)
// produced. Diagnostic-flagged calculations never surface as errors.
func IsFatal(err error) bool {
	return errors.Is(err, ErrPlanNotActive) ||
		errors.Is(err, ErrMalformedTierTable) ||
		errors.Is(err, ErrInvalidMultiplier)
}

// IsNotFound returns true if the error indicates a missing stored record.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrPlanNotFound) ||
		errors.Is(err, ErrDealNotFound) ||
		errors.Is(err, ErrCalculationNotFound)
}

// IsClientError returns true if the error is due to invalid caller input
// rather than an internal failure.
func IsClientError(err error) bool {
	return IsFatal(err) || errors.Is(err, ErrInvalidTransition)
}
