/*
scenarios.go - Demo scenario loaders

PURPOSE:
  Seeds the store with ready-made plans and deals so the system can be
  explored without hand-authoring JSON. Each scenario demonstrates one part
  of the engine: tiered rates, rule priorities, bonus stacking with
  accelerators.

Scenarios only write plans and deals; calculations are produced by calling
POST /api/calculations afterwards.
*/
package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/warp/commission-engine/engine"
)

// Scenario describes one loadable demo dataset.
type Scenario struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

var scenarios = []Scenario{
	{
		ID:          "tiered-basic",
		Name:        "Tiered Commission",
		Description: "One active plan with 5%/7% value tiers and a fixed bonus; two deals straddling the tier boundary.",
	},
	{
		ID:          "priority-rules",
		Name:        "Rule Priorities",
		Description: "An enterprise rule (priority 10) gated on deal value outranking a universal default rule (priority 1).",
	},
	{
		ID:          "bonus-stacking",
		Name:        "Bonuses and Accelerators",
		Description: "A fixed SPIF, a percentage bonus, and a 1.1x accelerator stacking on one plan.",
	},
}

// ListScenarios returns the available demo scenarios.
func (h *Handler) ListScenarios(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, scenarios)
}

// LoadScenario seeds the store with the named scenario's plans and deals.
func (h *Handler) LoadScenario(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ID string `json:"id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("invalid JSON: %w", err))
		return
	}

	planJSON, deals, err := scenarioData(req.ID)
	if err != nil {
		writeError(w, http.StatusNotFound, err)
		return
	}

	plan, err := h.PlanFactory.ParsePlan(planJSON)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	if err := h.Store.SavePlan(r.Context(), plan); err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	for _, d := range deals {
		if err := h.Store.SaveDeal(r.Context(), d); err != nil {
			writeError(w, http.StatusInternalServerError, err)
			return
		}
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"scenario": req.ID,
		"plan":     string(plan.ID),
		"deals":    len(deals),
	})
}

// scenarioData returns the plan config and deals for a scenario id.
func scenarioData(id string) (string, []*engine.Deal, error) {
	closeDate := time.Date(2026, time.March, 15, 0, 0, 0, 0, time.UTC)

	switch id {
	case "tiered-basic":
		plan := `{
			"id": "plan-tiered", "name": "Tiered Plan", "status": "active",
			"rules": [{
				"id": "rule-tiered", "priority": 1,
				"tiers": [
					{"lower_bound": "0", "upper_bound": "10000", "rate": "5", "is_percentage": true},
					{"lower_bound": "10000", "rate": "7", "is_percentage": true}
				]
			}],
			"bonuses": [{"id": "bonus-fixed", "name": "Closer Bonus", "amount": "200"}]
		}`
		deals := []*engine.Deal{
			engine.NewDeal("deal-small", "rep-ana", engine.DecimalOrZero("8000"), closeDate),
			engine.NewDeal("deal-large", "rep-ana", engine.DecimalOrZero("12000"), closeDate),
		}
		return plan, deals, nil

	case "priority-rules":
		plan := `{
			"id": "plan-priority", "name": "Priority Plan", "status": "active",
			"rules": [
				{
					"id": "rule-enterprise", "priority": 10,
					"conditions": [{"field": "value", "operator": "greater_or_equal", "value": "50000"}],
					"flat_rate": "8"
				},
				{"id": "rule-default", "priority": 1, "flat_rate": "4"}
			]
		}`
		deals := []*engine.Deal{
			engine.NewDeal("deal-enterprise", "rep-bo", engine.DecimalOrZero("75000"), closeDate),
			engine.NewDeal("deal-midmarket", "rep-bo", engine.DecimalOrZero("20000"), closeDate),
		}
		return plan, deals, nil

	case "bonus-stacking":
		plan := `{
			"id": "plan-stacking", "name": "Stacking Plan", "status": "active",
			"rules": [{"id": "rule-base", "priority": 1, "flat_rate": "10"}],
			"bonuses": [
				{"id": "spif-launch", "name": "Launch SPIF", "type": "spif", "amount": "500"},
				{"id": "bonus-pct", "name": "Base Kicker", "amount": "10", "is_percentage": true},
				{"id": "accel-q1", "name": "Q1 Accelerator", "type": "accelerator", "amount": "1.1"}
			]
		}`
		deals := []*engine.Deal{
			engine.NewDeal("deal-stacked", "rep-cy", engine.DecimalOrZero("10000"), closeDate),
		}
		return plan, deals, nil
	}

	return "", nil, fmt.Errorf("unknown scenario %q", id)
}
