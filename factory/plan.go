/*
Package factory provides JSON to Go commission plan conversion.

PURPOSE:
  Converts JSON plan definitions into engine.CommissionPlan values. This
  enables plan configuration without code changes - sales ops can define
  plans in JSON, and the factory creates the proper Go structs. The API and
  CLI both feed plan documents through here.

JSON SCHEMA:
  {
    "id": "plan-enterprise",
    "name": "Enterprise Plan",
    "status": "active",
    "effective_start": "2026-01-01",
    "effective_end": "2026-12-31",
    "rules": [
      {
        "id": "rule-tiered",
        "priority": 10,
        "conditions": [
          {"field": "value", "operator": "greater_or_equal", "value": "1000"}
        ],
        "tiers": [
          {"lower_bound": "0", "upper_bound": "10000", "rate": "5", "is_percentage": true},
          {"lower_bound": "10000", "rate": "7", "is_percentage": true}
        ]
      },
      {"id": "rule-default", "priority": 1, "flat_rate": "3"}
    ],
    "bonuses": [
      {"id": "spif-q1", "type": "spif", "amount": "200",
       "start_date": "2026-01-01", "end_date": "2026-03-31"},
      {"id": "accel-kicker", "type": "accelerator", "amount": "1.1"}
    ]
  }

KEY FEATURES:
  - Decimal fields are JSON strings so no precision is lost in transit
  - Dates are date-only (2006-01-02); open bounds are simply omitted
  - Parsed plans are validated structurally before being returned

SEE ALSO:
  - engine/plan.go: the target types and their validation
*/
package factory

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/warp/commission-engine/engine"
)

// =============================================================================
// JSON SCHEMA TYPES
// =============================================================================

// PlanJSON is the JSON representation of a commission plan.
type PlanJSON struct {
	ID             string      `json:"id"`
	Name           string      `json:"name"`
	Status         string      `json:"status,omitempty"` // defaults to draft
	EffectiveStart string      `json:"effective_start,omitempty"`
	EffectiveEnd   string      `json:"effective_end,omitempty"`
	Rules          []RuleJSON  `json:"rules,omitempty"`
	Bonuses        []BonusJSON `json:"bonuses,omitempty"`
}

// RuleJSON is one conditional rule.
type RuleJSON struct {
	ID         string          `json:"id"`
	Name       string          `json:"name,omitempty"`
	Priority   int             `json:"priority"`
	Conditions []ConditionJSON `json:"conditions,omitempty"`
	Tiers      []TierJSON      `json:"tiers,omitempty"`
	FlatRate   string          `json:"flat_rate,omitempty"` // percentage, used when tiers empty
}

// ConditionJSON is one predicate in a rule's chain.
type ConditionJSON struct {
	Field           string `json:"field"`
	Operator        string `json:"operator"`
	Value           string `json:"value"`
	LogicalOperator string `json:"logical_operator,omitempty"` // and (default) | or
}

// TierJSON is one value-range-to-rate mapping.
type TierJSON struct {
	LowerBound   string `json:"lower_bound"`
	UpperBound   string `json:"upper_bound,omitempty"` // omitted = unbounded
	Rate         string `json:"rate"`
	IsPercentage bool   `json:"is_percentage"`
}

// BonusJSON is one bonus rule.
type BonusJSON struct {
	ID           string `json:"id"`
	Name         string `json:"name,omitempty"`
	Description  string `json:"description,omitempty"`
	Type         string `json:"type,omitempty"` // defaults to fixed
	Amount       string `json:"amount"`
	IsPercentage bool   `json:"is_percentage,omitempty"`
	StartDate    string `json:"start_date,omitempty"`
	EndDate      string `json:"end_date,omitempty"`
}

// =============================================================================
// PLAN FACTORY
// =============================================================================

// PlanFactory converts JSON plans to engine structs.
type PlanFactory struct{}

// NewPlanFactory creates a new plan factory.
func NewPlanFactory() *PlanFactory {
	return &PlanFactory{}
}

// ParsePlan parses a JSON string into a validated CommissionPlan.
func (f *PlanFactory) ParsePlan(jsonStr string) (*engine.CommissionPlan, error) {
	var pj PlanJSON
	if err := json.Unmarshal([]byte(jsonStr), &pj); err != nil {
		return nil, fmt.Errorf("failed to parse plan JSON: %w", err)
	}
	return f.FromJSON(pj)
}

// FromJSON converts PlanJSON to a validated engine.CommissionPlan.
func (f *PlanFactory) FromJSON(pj PlanJSON) (*engine.CommissionPlan, error) {
	if pj.ID == "" {
		return nil, fmt.Errorf("plan id is required")
	}

	plan := &engine.CommissionPlan{
		ID:     engine.PlanID(pj.ID),
		Name:   pj.Name,
		Status: parseStatus(pj.Status),
	}

	var err error
	if plan.EffectiveStart, err = parseOptionalDate(pj.EffectiveStart); err != nil {
		return nil, fmt.Errorf("plan %s: bad effective_start: %w", pj.ID, err)
	}
	if plan.EffectiveEnd, err = parseOptionalDate(pj.EffectiveEnd); err != nil {
		return nil, fmt.Errorf("plan %s: bad effective_end: %w", pj.ID, err)
	}

	for _, rj := range pj.Rules {
		rule, err := parseRule(rj)
		if err != nil {
			return nil, fmt.Errorf("plan %s: %w", pj.ID, err)
		}
		plan.Rules = append(plan.Rules, rule)
	}

	for _, bj := range pj.Bonuses {
		bonus, err := parseBonus(bj)
		if err != nil {
			return nil, fmt.Errorf("plan %s: %w", pj.ID, err)
		}
		plan.Bonuses = append(plan.Bonuses, bonus)
	}

	if err := plan.Validate(); err != nil {
		return nil, err
	}
	return plan, nil
}

// ToJSON converts a plan back to its JSON schema form (for API responses).
func (f *PlanFactory) ToJSON(plan *engine.CommissionPlan) PlanJSON {
	pj := PlanJSON{
		ID:     string(plan.ID),
		Name:   plan.Name,
		Status: string(plan.Status),
	}
	if plan.EffectiveStart != nil {
		pj.EffectiveStart = plan.EffectiveStart.Format("2006-01-02")
	}
	if plan.EffectiveEnd != nil {
		pj.EffectiveEnd = plan.EffectiveEnd.Format("2006-01-02")
	}
	for _, r := range plan.Rules {
		rj := RuleJSON{ID: string(r.ID), Name: r.Name, Priority: r.Priority}
		if len(r.Tiers) == 0 && !r.FlatRate.IsZero() {
			rj.FlatRate = r.FlatRate.String()
		}
		for _, c := range r.Conditions {
			rj.Conditions = append(rj.Conditions, ConditionJSON{
				Field:           c.Field,
				Operator:        string(c.Operator),
				Value:           c.Value,
				LogicalOperator: string(c.LogicalOperator),
			})
		}
		for _, t := range r.Tiers {
			tj := TierJSON{LowerBound: t.LowerBound.String(), Rate: t.Rate.String(), IsPercentage: t.IsPercentage}
			if t.UpperBound != nil {
				tj.UpperBound = t.UpperBound.String()
			}
			rj.Tiers = append(rj.Tiers, tj)
		}
		pj.Rules = append(pj.Rules, rj)
	}
	for _, b := range plan.Bonuses {
		bj := BonusJSON{
			ID:           string(b.ID),
			Name:         b.Name,
			Description:  b.Description,
			Type:         string(b.Type),
			Amount:       b.Amount.String(),
			IsPercentage: b.IsPercentage,
		}
		if b.StartDate != nil {
			bj.StartDate = b.StartDate.Format("2006-01-02")
		}
		if b.EndDate != nil {
			bj.EndDate = b.EndDate.Format("2006-01-02")
		}
		pj.Bonuses = append(pj.Bonuses, bj)
	}
	return pj
}

// =============================================================================
// PARSE HELPERS
// =============================================================================

func parseStatus(s string) engine.PlanStatus {
	switch engine.PlanStatus(s) {
	case engine.PlanActive, engine.PlanInactive, engine.PlanArchived:
		return engine.PlanStatus(s)
	default:
		return engine.PlanDraft
	}
}

func parseRule(rj RuleJSON) (engine.CommissionRule, error) {
	rule := engine.CommissionRule{
		ID:       engine.RuleID(rj.ID),
		Name:     rj.Name,
		Priority: rj.Priority,
	}
	if rj.ID == "" {
		return rule, fmt.Errorf("rule id is required")
	}

	for _, cj := range rj.Conditions {
		cond, err := parseCondition(cj)
		if err != nil {
			return rule, fmt.Errorf("rule %s: %w", rj.ID, err)
		}
		rule.Conditions = append(rule.Conditions, cond)
	}

	for _, tj := range rj.Tiers {
		tier, err := parseTier(tj)
		if err != nil {
			return rule, fmt.Errorf("rule %s: %w", rj.ID, err)
		}
		rule.Tiers = append(rule.Tiers, tier)
	}

	if rj.FlatRate != "" {
		rate, err := decimal.NewFromString(rj.FlatRate)
		if err != nil {
			return rule, fmt.Errorf("rule %s: bad flat_rate %q", rj.ID, rj.FlatRate)
		}
		rule.FlatRate = rate
	}
	return rule, nil
}

func parseCondition(cj ConditionJSON) (engine.RuleCondition, error) {
	op := engine.ConditionOperator(cj.Operator)
	switch op {
	case engine.OpEquals, engine.OpNotEquals,
		engine.OpGreaterThan, engine.OpLessThan,
		engine.OpGreaterOrEqual, engine.OpLessOrEqual,
		engine.OpContains, engine.OpStartsWith, engine.OpEndsWith,
		engine.OpIn, engine.OpNotIn:
	default:
		return engine.RuleCondition{}, fmt.Errorf("unknown operator %q", cj.Operator)
	}

	logical := engine.LogicalAnd
	if cj.LogicalOperator == string(engine.LogicalOr) {
		logical = engine.LogicalOr
	}

	return engine.RuleCondition{
		Field:           cj.Field,
		Operator:        op,
		Value:           cj.Value,
		LogicalOperator: logical,
	}, nil
}

func parseTier(tj TierJSON) (engine.CommissionTier, error) {
	lower, err := decimal.NewFromString(tj.LowerBound)
	if err != nil {
		return engine.CommissionTier{}, fmt.Errorf("bad lower_bound %q", tj.LowerBound)
	}
	rate, err := decimal.NewFromString(tj.Rate)
	if err != nil {
		return engine.CommissionTier{}, fmt.Errorf("bad rate %q", tj.Rate)
	}

	tier := engine.CommissionTier{LowerBound: lower, Rate: rate, IsPercentage: tj.IsPercentage}
	if tj.UpperBound != "" {
		upper, err := decimal.NewFromString(tj.UpperBound)
		if err != nil {
			return engine.CommissionTier{}, fmt.Errorf("bad upper_bound %q", tj.UpperBound)
		}
		tier.UpperBound = &upper
	}
	return tier, nil
}

func parseBonus(bj BonusJSON) (engine.BonusRule, error) {
	if bj.ID == "" {
		return engine.BonusRule{}, fmt.Errorf("bonus id is required")
	}
	amount, err := decimal.NewFromString(bj.Amount)
	if err != nil {
		return engine.BonusRule{}, fmt.Errorf("bonus %s: bad amount %q", bj.ID, bj.Amount)
	}

	bonus := engine.BonusRule{
		ID:           engine.RuleID(bj.ID),
		Name:         bj.Name,
		Description:  bj.Description,
		Amount:       amount,
		IsPercentage: bj.IsPercentage,
		Type:         parseBonusType(bj.Type),
	}
	if bonus.StartDate, err = parseOptionalDate(bj.StartDate); err != nil {
		return bonus, fmt.Errorf("bonus %s: bad start_date: %w", bj.ID, err)
	}
	if bonus.EndDate, err = parseOptionalDate(bj.EndDate); err != nil {
		return bonus, fmt.Errorf("bonus %s: bad end_date: %w", bj.ID, err)
	}
	return bonus, nil
}

func parseBonusType(s string) engine.BonusType {
	switch engine.BonusType(s) {
	case engine.BonusSpif, engine.BonusAccelerator, engine.BonusQuotaAchievement,
		engine.BonusTeamPerformance, engine.BonusSpecialIncentive:
		return engine.BonusType(s)
	default:
		return engine.BonusFixed
	}
}

func parseOptionalDate(s string) (*time.Time, error) {
	if s == "" {
		return nil, nil
	}
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return nil, err
	}
	return &t, nil
}
