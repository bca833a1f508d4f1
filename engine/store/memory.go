// Package store provides an in-memory Store implementation.
package store

import (
	"context"
	"sort"
	"sync"

	"github.com/warp/commission-engine/engine"
)

// =============================================================================
// MEMORY STORE - In-memory implementation (for testing/dev)
// =============================================================================

type Memory struct {
	mu           sync.RWMutex
	plans        map[engine.PlanID]*engine.CommissionPlan
	deals        map[engine.DealID]*engine.Deal
	calculations map[engine.CalculationID]*engine.CommissionCalculation
}

func NewMemory() *Memory {
	return &Memory{
		plans:        make(map[engine.PlanID]*engine.CommissionPlan),
		deals:        make(map[engine.DealID]*engine.Deal),
		calculations: make(map[engine.CalculationID]*engine.CommissionCalculation),
	}
}

// -----------------------------------------------------------------------------
// PlanStore
// -----------------------------------------------------------------------------

func (m *Memory) GetPlan(_ context.Context, id engine.PlanID) (*engine.CommissionPlan, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	plan, ok := m.plans[id]
	if !ok {
		return nil, engine.ErrPlanNotFound
	}
	return plan.Clone(), nil
}

func (m *Memory) SavePlan(_ context.Context, plan *engine.CommissionPlan) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.plans[plan.ID] = plan.Clone()
	return nil
}

func (m *Memory) ListPlans(_ context.Context) ([]*engine.CommissionPlan, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*engine.CommissionPlan, 0, len(m.plans))
	for _, p := range m.plans {
		out = append(out, p.Clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// -----------------------------------------------------------------------------
// DealStore
// -----------------------------------------------------------------------------

func (m *Memory) GetDeal(_ context.Context, id engine.DealID) (*engine.Deal, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	deal, ok := m.deals[id]
	if !ok {
		return nil, engine.ErrDealNotFound
	}
	return deal.Clone(), nil
}

func (m *Memory) SaveDeal(_ context.Context, deal *engine.Deal) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.deals[deal.ID] = deal.Clone()
	return nil
}

func (m *Memory) ListDeals(_ context.Context) ([]*engine.Deal, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*engine.Deal, 0, len(m.deals))
	for _, d := range m.deals {
		out = append(out, d.Clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// -----------------------------------------------------------------------------
// CalculationStore
// -----------------------------------------------------------------------------

func (m *Memory) SaveCalculation(_ context.Context, calc *engine.CommissionCalculation) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calculations[calc.ID] = calc.Clone()
	return nil
}

func (m *Memory) GetCalculation(_ context.Context, id engine.CalculationID) (*engine.CommissionCalculation, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	calc, ok := m.calculations[id]
	if !ok {
		return nil, engine.ErrCalculationNotFound
	}
	return calc.Clone(), nil
}

func (m *Memory) FindCalculationsBySalesRep(_ context.Context, rep engine.SalesRepID) ([]*engine.CommissionCalculation, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*engine.CommissionCalculation
	for _, c := range m.calculations {
		if c.SalesRepID == rep {
			out = append(out, c.Clone())
		}
	}
	sortCalculations(out)
	return out, nil
}

func (m *Memory) ListCalculations(_ context.Context) ([]*engine.CommissionCalculation, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*engine.CommissionCalculation, 0, len(m.calculations))
	for _, c := range m.calculations {
		out = append(out, c.Clone())
	}
	sortCalculations(out)
	return out, nil
}

// sortCalculations orders by calculation date then id, newest first, so
// listings read like a statement.
func sortCalculations(calcs []*engine.CommissionCalculation) {
	sort.Slice(calcs, func(i, j int) bool {
		if !calcs[i].CalculationDate.Equal(calcs[j].CalculationDate) {
			return calcs[i].CalculationDate.After(calcs[j].CalculationDate)
		}
		return calcs[i].ID < calcs[j].ID
	})
}
