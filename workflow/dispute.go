/*
dispute.go - Dispute tickets over a calculation

PURPOSE:
  A sales rep who believes a calculation is wrong opens a Dispute. The
  dispute references the calculation by id; it never participates in
  computing it. Resolution feeds back into the calculation's own status
  (Disputed while open, Adjusted/Approved when settled).

STATE MACHINE:
  Initiated -> UnderReview -> {AdditionalInfoRequested, Escalated,
  Approved, Rejected} -> Resolved; Cancelled reachable from any open state.
*/
package workflow

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/warp/commission-engine/engine"
)

// DisputeStatus is the lifecycle state of a dispute ticket.
type DisputeStatus string

const (
	DisputeInitiated     DisputeStatus = "initiated"
	DisputeUnderReview   DisputeStatus = "under_review"
	DisputeInfoRequested DisputeStatus = "additional_info_requested"
	DisputeEscalated     DisputeStatus = "escalated"
	DisputeApproved      DisputeStatus = "approved"
	DisputeRejected      DisputeStatus = "rejected"
	DisputeResolved      DisputeStatus = "resolved"
	DisputeCancelled     DisputeStatus = "cancelled"
)

// ErrDisputeNotFound is returned for lookups of unknown dispute ids.
var ErrDisputeNotFound = errors.New("dispute not found")

// ErrInvalidDisputeTransition is returned for illegal dispute status moves.
var ErrInvalidDisputeTransition = errors.New("invalid dispute transition")

var disputeTransitions = map[DisputeStatus][]DisputeStatus{
	DisputeInitiated:     {DisputeUnderReview, DisputeCancelled},
	DisputeUnderReview:   {DisputeInfoRequested, DisputeEscalated, DisputeApproved, DisputeRejected, DisputeCancelled},
	DisputeInfoRequested: {DisputeUnderReview, DisputeCancelled},
	DisputeEscalated:     {DisputeApproved, DisputeRejected, DisputeCancelled},
	DisputeApproved:      {DisputeResolved},
	DisputeRejected:      {DisputeResolved},
	DisputeResolved:      {},
	DisputeCancelled:     {},
}

// DisputeComment is one entry in a dispute's discussion thread.
type DisputeComment struct {
	Author string
	Text   string
	At     time.Time
}

// Dispute is a ticket over one calculation.
type Dispute struct {
	ID            string
	CalculationID engine.CalculationID
	RaisedBy      engine.SalesRepID
	Reason        string
	Status        DisputeStatus
	Comments      []DisputeComment
	OpenedAt      time.Time
	ClosedAt      *time.Time
}

// CanTransitionTo reports whether the status change is legal.
func (d *Dispute) CanTransitionTo(to DisputeStatus) bool {
	for _, allowed := range disputeTransitions[d.Status] {
		if allowed == to {
			return true
		}
	}
	return false
}

// =============================================================================
// DISPUTE OPERATIONS ON THE WORKFLOW
// =============================================================================

// OpenDispute creates a ticket and moves the calculation to Disputed.
func (w *Workflow) OpenDispute(ctx context.Context, calcID engine.CalculationID, raisedBy engine.SalesRepID, reason string) (*Dispute, error) {
	if _, err := w.transition(ctx, calcID, engine.CalcDisputed, nil); err != nil {
		return nil, err
	}

	d := &Dispute{
		ID:            "disp-" + uuid.NewString(),
		CalculationID: calcID,
		RaisedBy:      raisedBy,
		Reason:        reason,
		Status:        DisputeInitiated,
		OpenedAt:      w.Now(),
	}
	w.storeDispute(d)
	return d, nil
}

// CommentDispute appends to the ticket's discussion thread.
func (w *Workflow) CommentDispute(ctx context.Context, disputeID, author, text string) (*Dispute, error) {
	d, err := w.GetDispute(ctx, disputeID)
	if err != nil {
		return nil, err
	}
	d.Comments = append(d.Comments, DisputeComment{Author: author, Text: text, At: w.Now()})
	w.storeDispute(d)
	return d, nil
}

// AdvanceDispute moves a ticket through its state machine. Reaching Resolved
// stamps ClosedAt.
func (w *Workflow) AdvanceDispute(ctx context.Context, disputeID string, to DisputeStatus) (*Dispute, error) {
	d, err := w.GetDispute(ctx, disputeID)
	if err != nil {
		return nil, err
	}
	if !d.CanTransitionTo(to) {
		return nil, fmt.Errorf("%w: %s -> %s", ErrInvalidDisputeTransition, d.Status, to)
	}
	d.Status = to
	if to == DisputeResolved || to == DisputeCancelled {
		closed := w.Now()
		d.ClosedAt = &closed
	}
	w.storeDispute(d)
	return d, nil
}

// GetDispute returns a copy of the ticket.
func (w *Workflow) GetDispute(_ context.Context, disputeID string) (*Dispute, error) {
	w.disputeMu.RLock()
	defer w.disputeMu.RUnlock()
	d, ok := w.disputes[disputeID]
	if !ok {
		return nil, ErrDisputeNotFound
	}
	return cloneDispute(d), nil
}

// DisputesForCalculation returns all tickets referencing a calculation.
func (w *Workflow) DisputesForCalculation(_ context.Context, calcID engine.CalculationID) []*Dispute {
	w.disputeMu.RLock()
	defer w.disputeMu.RUnlock()
	var out []*Dispute
	for _, d := range w.disputes {
		if d.CalculationID == calcID {
			out = append(out, cloneDispute(d))
		}
	}
	return out
}

func (w *Workflow) storeDispute(d *Dispute) {
	w.disputeMu.Lock()
	defer w.disputeMu.Unlock()
	if w.disputes == nil {
		w.disputes = make(map[string]*Dispute)
	}
	w.disputes[d.ID] = cloneDispute(d)
}

func cloneDispute(d *Dispute) *Dispute {
	out := *d
	out.Comments = append([]DisputeComment(nil), d.Comments...)
	if d.ClosedAt != nil {
		c := *d.ClosedAt
		out.ClosedAt = &c
	}
	return &out
}
