/*
engine.go - The commission engine orchestrator

PURPOSE:
  Ties the leaf components together: activation guard -> rule matching ->
  tier resolution -> bonus stacking -> accelerator composition -> assembled
  CommissionCalculation.

CONTROL FLOW (Calculate):
  1. CheckActivation: fatal ErrPlanNotActive if the plan is unusable on asOf
  2. Validate: fatal on malformed tier tables or bad multipliers
  3. Rank rules (priority desc, id asc) and take the first match; no match
     yields a zero-base calculation tagged DiagNoMatchingRule, not an error
  4. ResolveTier on the winning rule
  5. ResolveBonuses, stacked additively
  6. ResolveAccelerators, composed multiplicatively
  7. Assemble the calculation with Status=Calculated; gross/net are derived
     by the aggregate's own mutators, atomically with each input

PURITY:
  Calculate performs no I/O, holds no shared mutable state between calls,
  and never mutates its inputs; concurrent runs need no coordination. The
  only per-engine state is an explicit bonus-selection cache keyed by
  (planID, asOf) - instance state, never package-level.

SEE ALSO:
  - store.go: the persistence boundary callers use around Calculate
  - workflow package: load/calculate/save/notify orchestration
*/
package engine

import (
	"sync"
	"time"
)

// =============================================================================
// ENGINE
// =============================================================================

// Engine computes commission calculations. The zero value is NOT usable;
// construct with NewEngine.
type Engine struct {
	// RatePolicy selects flat-bracket (default) or marginal tier math.
	RatePolicy RatePolicy

	// ExtraAttributes are merged into every deal's attribute map, letting
	// callers expose sales-rep facts (region, quota standing) to conditions.
	ExtraAttributes map[string]Attribute

	// NewID mints calculation ids. Defaults to uuid-based ids; tests inject
	// deterministic ones.
	NewID func() CalculationID

	mu         sync.Mutex
	bonusCache map[bonusCacheKey]bonusCacheEntry
}

type bonusCacheKey struct {
	PlanID PlanID
	AsOf   string // date-only; bonus windows have day granularity
}

type bonusCacheEntry struct {
	bonuses      []BonusRule
	accelerators []AcceleratorCalculation
}

// NewEngine creates an engine with flat-bracket tier math.
func NewEngine() *Engine {
	return &Engine{
		NewID:      newCalculationID,
		bonusCache: make(map[bonusCacheKey]bonusCacheEntry),
	}
}

// Calculate evaluates deal against plan as of asOf.
//
// Fatal errors (plan not active, malformed plan) return a nil calculation.
// Degenerate outcomes (no matching rule, value outside every tier) return a
// valid zero-base calculation annotated with a Diagnostic.
func (e *Engine) Calculate(deal *Deal, plan *CommissionPlan, asOf time.Time) (*CommissionCalculation, error) {
	if err := CheckActivation(plan, asOf); err != nil {
		return nil, err
	}
	if err := plan.Validate(); err != nil {
		return nil, err
	}

	calc := NewCalculation(e.NewID(), deal.ID, deal.SalesRepID, plan.ID, asOf)

	attrs := deal.Attributes(e.ExtraAttributes)
	winner, matched := e.selectRule(plan, attrs)
	if !matched {
		calc.AddDiagnostic(DiagNoMatchingRule)
	} else {
		res := ResolveTier(winner, deal.Value, e.RatePolicy)
		calc.SetBaseCommission(res.Base)
		if res.Diagnostic != "" {
			calc.AddDiagnostic(res.Diagnostic)
		}
	}

	activeBonuses, accelerators := e.activeBonuses(plan, asOf)
	for _, b := range ResolveBonuses(activeBonuses, calc.BaseCommission, asOf) {
		calc.AddBonus(b)
	}
	for _, a := range accelerators {
		if err := calc.AddAccelerator(a); err != nil {
			return nil, err
		}
	}

	return calc, nil
}

// selectRule returns the highest-priority matching rule. Ranking is priority
// descending with rule id ascending as the deterministic tie-break.
func (e *Engine) selectRule(plan *CommissionPlan, attrs map[string]Attribute) (CommissionRule, bool) {
	for _, rule := range plan.RankedRules() {
		if MatchRule(rule, attrs) {
			return rule, true
		}
	}
	return CommissionRule{}, false
}

// activeBonuses returns the plan's bonus rules and accelerator line items
// active on asOf, memoized per (planID, date). Repeated recalculations of
// deals under the same plan and date skip the window scan.
func (e *Engine) activeBonuses(plan *CommissionPlan, asOf time.Time) ([]BonusRule, []AcceleratorCalculation) {
	key := bonusCacheKey{PlanID: plan.ID, AsOf: asOf.Format("2006-01-02")}

	e.mu.Lock()
	entry, ok := e.bonusCache[key]
	e.mu.Unlock()
	if ok {
		return entry.bonuses, entry.accelerators
	}

	var active []BonusRule
	for _, b := range plan.Bonuses {
		if b.Type != BonusAccelerator && b.IsActiveOn(asOf) {
			active = append(active, b)
		}
	}
	accelerators := ResolveAccelerators(plan.Bonuses, asOf)

	e.mu.Lock()
	e.bonusCache[key] = bonusCacheEntry{bonuses: active, accelerators: accelerators}
	e.mu.Unlock()

	return active, accelerators
}

// InvalidatePlan drops cached bonus selections for a plan. Call after a plan
// edit when reusing a long-lived engine.
func (e *Engine) InvalidatePlan(id PlanID) {
	e.mu.Lock()
	defer e.mu.Unlock()
	for key := range e.bonusCache {
		if key.PlanID == id {
			delete(e.bonusCache, key)
		}
	}
}
