/*
Package notify defines the notification boundary.

PURPOSE:
  The workflow announces finished calculations and status changes to the
  sales rep. Delivery (email, chat, webhooks) is outside this module; the
  package ships a log-backed implementation for development and a no-op for
  tests.

The engine itself never notifies anyone - only the workflow does, after the
calculation is persisted.
*/
package notify

import (
	"context"
	"log"

	"github.com/warp/commission-engine/engine"
)

// Contact is the resolved recipient for a notification.
type Contact struct {
	Name  string
	Email string
}

// Notifier receives completed calculations and status changes.
type Notifier interface {
	// CalculationCompleted is invoked with a finished calculation and the
	// sales rep's contact info, after the calculation is persisted.
	CalculationCompleted(ctx context.Context, calc *engine.CommissionCalculation, to Contact) error

	// StatusChanged is invoked after a workflow status transition.
	StatusChanged(ctx context.Context, calc *engine.CommissionCalculation, from engine.CalculationStatus, to Contact) error
}

// =============================================================================
// LOG NOTIFIER - Development implementation
// =============================================================================

// LogNotifier writes notifications to the standard logger.
type LogNotifier struct{}

func (LogNotifier) CalculationCompleted(_ context.Context, calc *engine.CommissionCalculation, to Contact) error {
	log.Printf("notify %s <%s>: commission %s for deal %s calculated, gross %s",
		to.Name, to.Email, calc.ID, calc.DealID, calc.GrossCommission)
	return nil
}

func (LogNotifier) StatusChanged(_ context.Context, calc *engine.CommissionCalculation, from engine.CalculationStatus, to Contact) error {
	log.Printf("notify %s <%s>: commission %s moved %s -> %s",
		to.Name, to.Email, calc.ID, from, calc.Status)
	return nil
}

// =============================================================================
// NOP NOTIFIER - For tests and headless runs
// =============================================================================

type NopNotifier struct{}

func (NopNotifier) CalculationCompleted(context.Context, *engine.CommissionCalculation, Contact) error {
	return nil
}

func (NopNotifier) StatusChanged(context.Context, *engine.CommissionCalculation, engine.CalculationStatus, Contact) error {
	return nil
}
