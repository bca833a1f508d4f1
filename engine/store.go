/*
store.go - Persistence interfaces around the engine

PURPOSE:
  Defines the boundary between the pure engine and whatever persists plans,
  deals, and calculations. The engine itself never touches a Store; the
  workflow package loads inputs, runs Calculate, and saves the result.

INTERFACES:
  PlanStore:        commission plan lookup and storage
  DealStore:        deal lookup and storage
  CalculationStore: calculation storage and per-rep queries
  Store:            the composition, what full backends implement

OWNERSHIP CONTRACT:
  Implementations must hand out and accept COPIES. A caller mutating a
  returned plan or calculation must never affect stored state; SaveX takes a
  snapshot. Both provided backends (engine/store memory, store/sqlite) obey
  this via Clone / serialization.

IMPLEMENTATIONS:
  - engine/store/memory.go: in-memory, for tests and dev
  - store/sqlite/sqlite.go: production SQLite
*/
package engine

import "context"

// PlanStore persists commission plans.
type PlanStore interface {
	GetPlan(ctx context.Context, id PlanID) (*CommissionPlan, error)
	SavePlan(ctx context.Context, plan *CommissionPlan) error
	ListPlans(ctx context.Context) ([]*CommissionPlan, error)
}

// DealStore persists deals.
type DealStore interface {
	GetDeal(ctx context.Context, id DealID) (*Deal, error)
	SaveDeal(ctx context.Context, deal *Deal) error
	ListDeals(ctx context.Context) ([]*Deal, error)
}

// CalculationStore persists calculations. SaveCalculation is an upsert: the
// workflow saves the same calculation id again after each status change.
type CalculationStore interface {
	SaveCalculation(ctx context.Context, calc *CommissionCalculation) error
	GetCalculation(ctx context.Context, id CalculationID) (*CommissionCalculation, error)
	FindCalculationsBySalesRep(ctx context.Context, rep SalesRepID) ([]*CommissionCalculation, error)
	ListCalculations(ctx context.Context) ([]*CommissionCalculation, error)
}

// Store is the full persistence surface.
type Store interface {
	PlanStore
	DealStore
	CalculationStore
}
