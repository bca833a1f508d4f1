/*
Package workflow orchestrates what happens around a calculation.

PURPOSE:
  The engine is a pure computation; this package is the collaborator that
  loads inputs from the Store, runs the engine, persists the result, invokes
  the Notifier, and moves calculations through their status lifecycle
  (Approved, Paid, Disputed, Adjusted, Cancelled).

DIVISION OF LABOR:
  - engine:   computes amounts, never changes status, never does I/O
  - workflow: changes status, never computes amounts (adjustments go through
    the aggregate's own mutators so totals stay derived)

STATUS LIFECYCLE:
  Calculated -> Approved -> Paid
       |            |
       +-- Disputed/Adjusted/Cancelled per the aggregate's transition table

SEE ALSO:
  - engine/calculation.go: the legal transition table
  - dispute.go: the dispute ticket state machine
*/
package workflow

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/warp/commission-engine/engine"
	"github.com/warp/commission-engine/notify"
)

// ContactResolver maps a sales rep to notification contact info. Kept as a
// tiny interface because user records live outside this module.
type ContactResolver interface {
	ContactFor(ctx context.Context, rep engine.SalesRepID) (notify.Contact, error)
}

// StaticContacts is a ContactResolver backed by a fixed map. Reps without an
// entry get a placeholder contact rather than an error.
type StaticContacts map[engine.SalesRepID]notify.Contact

func (s StaticContacts) ContactFor(_ context.Context, rep engine.SalesRepID) (notify.Contact, error) {
	if c, ok := s[rep]; ok {
		return c, nil
	}
	return notify.Contact{Name: string(rep)}, nil
}

// =============================================================================
// WORKFLOW
// =============================================================================

// Workflow wires the engine to its collaborators.
type Workflow struct {
	Engine   *engine.Engine
	Store    engine.Store
	Notifier notify.Notifier
	Contacts ContactResolver

	// Now is injectable for tests.
	Now func() time.Time

	// Dispute tickets are workflow state, not engine state. Kept in memory;
	// a durable backend would hang off engine.Store the same way.
	disputeMu sync.RWMutex
	disputes  map[string]*Dispute
}

func New(eng *engine.Engine, store engine.Store, notifier notify.Notifier) *Workflow {
	return &Workflow{
		Engine:   eng,
		Store:    store,
		Notifier: notifier,
		Contacts: StaticContacts{},
		Now:      time.Now,
	}
}

// Run loads the deal and plan, calculates as of asOf, saves the result, and
// notifies the rep. Fatal engine errors abort before anything is persisted.
func (w *Workflow) Run(ctx context.Context, dealID engine.DealID, planID engine.PlanID, asOf time.Time) (*engine.CommissionCalculation, error) {
	deal, err := w.Store.GetDeal(ctx, dealID)
	if err != nil {
		return nil, err
	}
	plan, err := w.Store.GetPlan(ctx, planID)
	if err != nil {
		return nil, err
	}

	calc, err := w.Engine.Calculate(deal, plan, asOf)
	if err != nil {
		return nil, err
	}
	if err := w.Store.SaveCalculation(ctx, calc); err != nil {
		return nil, err
	}

	contact, err := w.Contacts.ContactFor(ctx, calc.SalesRepID)
	if err == nil {
		// Notification failure never fails the run; the calculation is saved.
		_ = w.Notifier.CalculationCompleted(ctx, calc, contact)
	}

	return calc, nil
}

// =============================================================================
// STATUS TRANSITIONS
// =============================================================================

// Approve moves a calculation to Approved.
func (w *Workflow) Approve(ctx context.Context, id engine.CalculationID) (*engine.CommissionCalculation, error) {
	return w.transition(ctx, id, engine.CalcApproved, nil)
}

// MarkPaid moves an approved calculation to Paid and stamps the payout date.
func (w *Workflow) MarkPaid(ctx context.Context, id engine.CalculationID, payoutDate time.Time) (*engine.CommissionCalculation, error) {
	return w.transition(ctx, id, engine.CalcPaid, func(calc *engine.CommissionCalculation) {
		calc.PayoutDate = &payoutDate
	})
}

// Cancel moves a calculation to Cancelled. Terminal.
func (w *Workflow) Cancel(ctx context.Context, id engine.CalculationID) (*engine.CommissionCalculation, error) {
	return w.transition(ctx, id, engine.CalcCancelled, nil)
}

// Adjust appends a manual adjustment line item (which re-derives the totals
// in the same call) and moves the calculation to Adjusted.
func (w *Workflow) Adjust(ctx context.Context, id engine.CalculationID, adjustment engine.BonusCalculation) (*engine.CommissionCalculation, error) {
	return w.transition(ctx, id, engine.CalcAdjusted, func(calc *engine.CommissionCalculation) {
		calc.AddBonus(adjustment)
	})
}

func (w *Workflow) transition(ctx context.Context, id engine.CalculationID, to engine.CalculationStatus, mutate func(*engine.CommissionCalculation)) (*engine.CommissionCalculation, error) {
	calc, err := w.Store.GetCalculation(ctx, id)
	if err != nil {
		return nil, err
	}
	from := calc.Status

	if mutate != nil {
		mutate(calc)
	}
	if err := calc.TransitionTo(to); err != nil {
		return nil, err
	}
	if err := w.Store.SaveCalculation(ctx, calc); err != nil {
		return nil, fmt.Errorf("failed to persist transition: %w", err)
	}

	contact, err := w.Contacts.ContactFor(ctx, calc.SalesRepID)
	if err == nil {
		_ = w.Notifier.StatusChanged(ctx, calc, from, contact)
	}
	return calc, nil
}
