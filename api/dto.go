/*
dto.go - Request/response data structures for the HTTP API

PURPOSE:
  JSON shapes crossing the HTTP boundary. Decimal amounts travel as strings
  so no precision is lost in transit; dates are date-only strings.

SEE ALSO:
  - handlers.go: uses these types
  - factory/plan.go: PlanJSON is reused as the plan wire format
*/
package api

import (
	"time"

	"github.com/warp/commission-engine/engine"
	"github.com/warp/commission-engine/factory"
	"github.com/warp/commission-engine/workflow"
)

// =============================================================================
// REQUEST/RESPONSE TYPES
// =============================================================================

// DealProductDTO is one deal line item on the wire.
type DealProductDTO struct {
	ProductID string `json:"product_id"`
	Quantity  int    `json:"quantity"`
	Price     string `json:"price"`
	Discount  string `json:"discount,omitempty"`
}

// DealDTO represents a deal in API responses.
type DealDTO struct {
	ID           string           `json:"id"`
	Value        string           `json:"value"`
	SalesRepID   string           `json:"sales_rep_id"`
	CloseDate    string           `json:"close_date"`
	Status       string           `json:"status"`
	Products     []DealProductDTO `json:"products,omitempty"`
	ValueDerived bool             `json:"value_derived"`
}

// CreateDealRequest creates a deal. Omit value to derive it from products.
type CreateDealRequest struct {
	ID         string           `json:"id"`
	Value      string           `json:"value,omitempty"`
	SalesRepID string           `json:"sales_rep_id"`
	CloseDate  string           `json:"close_date"`
	Products   []DealProductDTO `json:"products,omitempty"`
}

// CreatePlanRequest is the request to create a plan.
type CreatePlanRequest struct {
	Config factory.PlanJSON `json:"config"`
}

// CalculateRequest asks for a commission calculation.
type CalculateRequest struct {
	DealID string `json:"deal_id"`
	PlanID string `json:"plan_id"`
	AsOf   string `json:"as_of,omitempty"` // date-only; defaults to today
}

// BonusLineDTO is one bonus line item.
type BonusLineDTO struct {
	RuleID      string `json:"rule_id"`
	Name        string `json:"name"`
	Amount      string `json:"amount"`
	Description string `json:"description,omitempty"`
}

// AcceleratorLineDTO is one accelerator line item.
type AcceleratorLineDTO struct {
	RuleID      string `json:"rule_id"`
	Name        string `json:"name"`
	Multiplier  string `json:"multiplier"`
	Description string `json:"description,omitempty"`
}

// CalculationDTO represents a calculation in API responses.
type CalculationDTO struct {
	ID              string               `json:"id"`
	DealID          string               `json:"deal_id"`
	SalesRepID      string               `json:"sales_rep_id"`
	PlanID          string               `json:"plan_id"`
	BaseCommission  string               `json:"base_commission"`
	Bonuses         []BonusLineDTO       `json:"bonuses,omitempty"`
	Accelerators    []AcceleratorLineDTO `json:"accelerators,omitempty"`
	GrossCommission string               `json:"gross_commission"`
	NetCommission   string               `json:"net_commission"`
	Status          string               `json:"status"`
	Diagnostics     []string             `json:"diagnostics,omitempty"`
	CalculationDate string               `json:"calculation_date"`
	PayoutDate      string               `json:"payout_date,omitempty"`
}

// AdjustRequest appends a manual adjustment line to a calculation.
type AdjustRequest struct {
	Name        string `json:"name"`
	Amount      string `json:"amount"`
	Description string `json:"description,omitempty"`
}

// MarkPaidRequest stamps a payout date.
type MarkPaidRequest struct {
	PayoutDate string `json:"payout_date,omitempty"` // defaults to today
}

// OpenDisputeRequest opens a dispute ticket over a calculation.
type OpenDisputeRequest struct {
	RaisedBy string `json:"raised_by"`
	Reason   string `json:"reason"`
}

// DisputeCommentRequest appends to a dispute's thread.
type DisputeCommentRequest struct {
	Author string `json:"author"`
	Text   string `json:"text"`
}

// AdvanceDisputeRequest moves a dispute through its state machine.
type AdvanceDisputeRequest struct {
	Status string `json:"status"`
}

// DisputeDTO represents a dispute ticket.
type DisputeDTO struct {
	ID            string              `json:"id"`
	CalculationID string              `json:"calculation_id"`
	RaisedBy      string              `json:"raised_by"`
	Reason        string              `json:"reason"`
	Status        string              `json:"status"`
	Comments      []DisputeCommentDTO `json:"comments,omitempty"`
	OpenedAt      string              `json:"opened_at"`
	ClosedAt      string              `json:"closed_at,omitempty"`
}

// DisputeCommentDTO is one thread entry.
type DisputeCommentDTO struct {
	Author string `json:"author"`
	Text   string `json:"text"`
	At     string `json:"at"`
}

// ErrorResponse is the JSON error envelope.
type ErrorResponse struct {
	Error string `json:"error"`
}

// =============================================================================
// CONVERTERS
// =============================================================================

func dealToDTO(d *engine.Deal) DealDTO {
	dto := DealDTO{
		ID:           string(d.ID),
		Value:        d.Value.String(),
		SalesRepID:   string(d.SalesRepID),
		CloseDate:    d.CloseDate.Format("2006-01-02"),
		Status:       string(d.Status),
		ValueDerived: d.ValueDerived(),
	}
	for _, p := range d.Products {
		dto.Products = append(dto.Products, DealProductDTO{
			ProductID: p.ProductID,
			Quantity:  p.Quantity,
			Price:     p.Price.String(),
			Discount:  p.Discount.String(),
		})
	}
	return dto
}

func calculationToDTO(c *engine.CommissionCalculation) CalculationDTO {
	dto := CalculationDTO{
		ID:              string(c.ID),
		DealID:          string(c.DealID),
		SalesRepID:      string(c.SalesRepID),
		PlanID:          string(c.PlanID),
		BaseCommission:  c.BaseCommission.StringFixed(2),
		GrossCommission: c.GrossCommission.StringFixed(2),
		NetCommission:   c.NetCommission.StringFixed(2),
		Status:          string(c.Status),
		CalculationDate: c.CalculationDate.Format("2006-01-02"),
	}
	for _, b := range c.Bonuses {
		dto.Bonuses = append(dto.Bonuses, BonusLineDTO{
			RuleID:      string(b.RuleID),
			Name:        b.Name,
			Amount:      b.Amount.StringFixed(2),
			Description: b.Description,
		})
	}
	for _, a := range c.Accelerators {
		dto.Accelerators = append(dto.Accelerators, AcceleratorLineDTO{
			RuleID:      string(a.RuleID),
			Name:        a.Name,
			Multiplier:  a.Multiplier.String(),
			Description: a.Description,
		})
	}
	for _, d := range c.Diagnostics {
		dto.Diagnostics = append(dto.Diagnostics, string(d))
	}
	if c.PayoutDate != nil {
		dto.PayoutDate = c.PayoutDate.Format("2006-01-02")
	}
	return dto
}

func disputeToDTO(d *workflow.Dispute) DisputeDTO {
	dto := DisputeDTO{
		ID:            d.ID,
		CalculationID: string(d.CalculationID),
		RaisedBy:      string(d.RaisedBy),
		Reason:        d.Reason,
		Status:        string(d.Status),
		OpenedAt:      d.OpenedAt.Format(time.RFC3339),
	}
	for _, c := range d.Comments {
		dto.Comments = append(dto.Comments, DisputeCommentDTO{
			Author: c.Author,
			Text:   c.Text,
			At:     c.At.Format(time.RFC3339),
		})
	}
	if d.ClosedAt != nil {
		dto.ClosedAt = d.ClosedAt.Format(time.RFC3339)
	}
	return dto
}
