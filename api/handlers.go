/*
handlers.go - HTTP API handlers for the commission system

PURPOSE:
  Exposes the commission engine via REST. Handles HTTP request/response and
  JSON serialization, delegates everything else to the workflow and engine.

ENDPOINTS:
  Deals:
    GET    /api/deals                       List deals
    POST   /api/deals                       Create deal (value explicit or derived)
    GET    /api/deals/{id}                  Get deal

  Plans:
    GET    /api/plans                       List plans
    POST   /api/plans                       Create plan from JSON config
    GET    /api/plans/{id}                  Get plan

  Calculations:
    POST   /api/calculations                Run the engine for a deal+plan
    GET    /api/calculations                List calculations
    GET    /api/calculations/{id}           Get calculation
    POST   /api/calculations/{id}/approve   Workflow: approve
    POST   /api/calculations/{id}/pay       Workflow: mark paid
    POST   /api/calculations/{id}/adjust    Workflow: manual adjustment line
    POST   /api/calculations/{id}/cancel    Workflow: cancel
    POST   /api/calculations/{id}/disputes  Open a dispute ticket

  Disputes:
    GET    /api/disputes/{id}               Get dispute
    POST   /api/disputes/{id}/comments      Comment on a dispute
    POST   /api/disputes/{id}/advance       Move a dispute through its states

  Reports:
    GET    /api/reps/{id}/calculations      Per-rep calculation list
    GET    /api/reps/{id}/statement         Plain-text commission statement

  Scenarios:
    GET    /api/scenarios                   List demo scenarios
    POST   /api/scenarios/load              Seed a demo scenario

ERROR HANDLING:
  Errors are returned as JSON with appropriate HTTP status:
  - 400: validation errors, fatal engine errors (plan inactive, malformed plan)
  - 404: missing deal/plan/calculation/dispute
  - 409: illegal status transitions
  - 500: internal errors

SEE ALSO:
  - dto.go: request/response shapes
  - scenarios.go: demo data loaders
  - server.go: router setup and middleware
*/
package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/warp/commission-engine/engine"
	"github.com/warp/commission-engine/factory"
	"github.com/warp/commission-engine/report"
	"github.com/warp/commission-engine/workflow"
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Store       engine.Store
	Workflow    *workflow.Workflow
	PlanFactory *factory.PlanFactory
}

// NewHandler creates a new handler around a store and workflow.
func NewHandler(store engine.Store, wf *workflow.Workflow) *Handler {
	return &Handler{
		Store:       store,
		Workflow:    wf,
		PlanFactory: factory.NewPlanFactory(),
	}
}

// =============================================================================
// DEALS
// =============================================================================

func (h *Handler) ListDeals(w http.ResponseWriter, r *http.Request) {
	deals, err := h.Store.ListDeals(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	out := make([]DealDTO, 0, len(deals))
	for _, d := range deals {
		out = append(out, dealToDTO(d))
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *Handler) CreateDeal(w http.ResponseWriter, r *http.Request) {
	var req CreateDealRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("invalid JSON: %w", err))
		return
	}
	if req.ID == "" || req.SalesRepID == "" {
		writeError(w, http.StatusBadRequest, fmt.Errorf("id and sales_rep_id are required"))
		return
	}

	closeDate, err := time.Parse("2006-01-02", req.CloseDate)
	if err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("bad close_date %q", req.CloseDate))
		return
	}

	products := make([]engine.DealProduct, 0, len(req.Products))
	for _, p := range req.Products {
		price := engine.DecimalOrZero(p.Price)
		discount := engine.DecimalOrZero(p.Discount)
		if p.Quantity <= 0 {
			writeError(w, http.StatusBadRequest, fmt.Errorf("product %s: quantity must be positive", p.ProductID))
			return
		}
		products = append(products, engine.DealProduct{
			ProductID: p.ProductID,
			Quantity:  p.Quantity,
			Price:     price,
			Discount:  discount,
		})
	}

	var deal *engine.Deal
	if req.Value != "" {
		deal = engine.NewDeal(engine.DealID(req.ID), engine.SalesRepID(req.SalesRepID),
			engine.DecimalOrZero(req.Value), closeDate)
		deal.Products = products
	} else {
		deal = engine.NewDealFromProducts(engine.DealID(req.ID), engine.SalesRepID(req.SalesRepID),
			closeDate, products...)
	}

	if err := h.Store.SaveDeal(r.Context(), deal); err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusCreated, dealToDTO(deal))
}

func (h *Handler) GetDeal(w http.ResponseWriter, r *http.Request) {
	deal, err := h.Store.GetDeal(r.Context(), engine.DealID(chi.URLParam(r, "id")))
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, dealToDTO(deal))
}

// =============================================================================
// PLANS
// =============================================================================

func (h *Handler) ListPlans(w http.ResponseWriter, r *http.Request) {
	plans, err := h.Store.ListPlans(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	out := make([]factory.PlanJSON, 0, len(plans))
	for _, p := range plans {
		out = append(out, h.PlanFactory.ToJSON(p))
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *Handler) CreatePlan(w http.ResponseWriter, r *http.Request) {
	var req CreatePlanRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("invalid JSON: %w", err))
		return
	}

	plan, err := h.PlanFactory.FromJSON(req.Config)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if err := h.Store.SavePlan(r.Context(), plan); err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusCreated, h.PlanFactory.ToJSON(plan))
}

func (h *Handler) GetPlan(w http.ResponseWriter, r *http.Request) {
	plan, err := h.Store.GetPlan(r.Context(), engine.PlanID(chi.URLParam(r, "id")))
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, h.PlanFactory.ToJSON(plan))
}

// =============================================================================
// CALCULATIONS
// =============================================================================

func (h *Handler) Calculate(w http.ResponseWriter, r *http.Request) {
	var req CalculateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("invalid JSON: %w", err))
		return
	}

	asOf := time.Now().UTC().Truncate(24 * time.Hour)
	if req.AsOf != "" {
		var err error
		asOf, err = time.Parse("2006-01-02", req.AsOf)
		if err != nil {
			writeError(w, http.StatusBadRequest, fmt.Errorf("bad as_of %q", req.AsOf))
			return
		}
	}

	calc, err := h.Workflow.Run(r.Context(), engine.DealID(req.DealID), engine.PlanID(req.PlanID), asOf)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, calculationToDTO(calc))
}

func (h *Handler) ListCalculations(w http.ResponseWriter, r *http.Request) {
	calcs, err := h.Store.ListCalculations(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, calculationsToDTOs(calcs))
}

func (h *Handler) GetCalculation(w http.ResponseWriter, r *http.Request) {
	calc, err := h.Store.GetCalculation(r.Context(), engine.CalculationID(chi.URLParam(r, "id")))
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, calculationToDTO(calc))
}

// =============================================================================
// WORKFLOW TRANSITIONS
// =============================================================================

func (h *Handler) ApproveCalculation(w http.ResponseWriter, r *http.Request) {
	calc, err := h.Workflow.Approve(r.Context(), engine.CalculationID(chi.URLParam(r, "id")))
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, calculationToDTO(calc))
}

func (h *Handler) PayCalculation(w http.ResponseWriter, r *http.Request) {
	var req MarkPaidRequest
	if r.ContentLength > 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, fmt.Errorf("invalid JSON: %w", err))
			return
		}
	}

	payout := time.Now().UTC().Truncate(24 * time.Hour)
	if req.PayoutDate != "" {
		var err error
		payout, err = time.Parse("2006-01-02", req.PayoutDate)
		if err != nil {
			writeError(w, http.StatusBadRequest, fmt.Errorf("bad payout_date %q", req.PayoutDate))
			return
		}
	}

	calc, err := h.Workflow.MarkPaid(r.Context(), engine.CalculationID(chi.URLParam(r, "id")), payout)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, calculationToDTO(calc))
}

func (h *Handler) AdjustCalculation(w http.ResponseWriter, r *http.Request) {
	var req AdjustRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("invalid JSON: %w", err))
		return
	}

	adjustment := engine.BonusCalculation{
		RuleID:      "manual-adjustment",
		Name:        req.Name,
		Amount:      engine.DecimalOrZero(req.Amount),
		Description: req.Description,
	}
	calc, err := h.Workflow.Adjust(r.Context(), engine.CalculationID(chi.URLParam(r, "id")), adjustment)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, calculationToDTO(calc))
}

func (h *Handler) CancelCalculation(w http.ResponseWriter, r *http.Request) {
	calc, err := h.Workflow.Cancel(r.Context(), engine.CalculationID(chi.URLParam(r, "id")))
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, calculationToDTO(calc))
}

// =============================================================================
// DISPUTES
// =============================================================================

func (h *Handler) OpenDispute(w http.ResponseWriter, r *http.Request) {
	var req OpenDisputeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("invalid JSON: %w", err))
		return
	}
	d, err := h.Workflow.OpenDispute(r.Context(),
		engine.CalculationID(chi.URLParam(r, "id")),
		engine.SalesRepID(req.RaisedBy), req.Reason)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, disputeToDTO(d))
}

func (h *Handler) GetDispute(w http.ResponseWriter, r *http.Request) {
	d, err := h.Workflow.GetDispute(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusNotFound, err)
		return
	}
	writeJSON(w, http.StatusOK, disputeToDTO(d))
}

func (h *Handler) CommentDispute(w http.ResponseWriter, r *http.Request) {
	var req DisputeCommentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("invalid JSON: %w", err))
		return
	}
	d, err := h.Workflow.CommentDispute(r.Context(), chi.URLParam(r, "id"), req.Author, req.Text)
	if err != nil {
		writeError(w, http.StatusNotFound, err)
		return
	}
	writeJSON(w, http.StatusOK, disputeToDTO(d))
}

func (h *Handler) AdvanceDispute(w http.ResponseWriter, r *http.Request) {
	var req AdvanceDisputeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("invalid JSON: %w", err))
		return
	}
	d, err := h.Workflow.AdvanceDispute(r.Context(), chi.URLParam(r, "id"), workflow.DisputeStatus(req.Status))
	if err != nil {
		status := http.StatusConflict
		if err == workflow.ErrDisputeNotFound {
			status = http.StatusNotFound
		}
		writeError(w, status, err)
		return
	}
	writeJSON(w, http.StatusOK, disputeToDTO(d))
}

// =============================================================================
// REPORTS
// =============================================================================

func (h *Handler) RepCalculations(w http.ResponseWriter, r *http.Request) {
	calcs, err := h.Store.FindCalculationsBySalesRep(r.Context(), engine.SalesRepID(chi.URLParam(r, "id")))
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, calculationsToDTOs(calcs))
}

func (h *Handler) RepStatement(w http.ResponseWriter, r *http.Request) {
	rep := engine.SalesRepID(chi.URLParam(r, "id"))
	calcs, err := h.Store.FindCalculationsBySalesRep(r.Context(), rep)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	fmt.Fprint(w, report.Statement(rep, calcs))
}

// =============================================================================
// RESPONSE HELPERS
// =============================================================================

func calculationsToDTOs(calcs []*engine.CommissionCalculation) []CalculationDTO {
	out := make([]CalculationDTO, 0, len(calcs))
	for _, c := range calcs {
		out = append(out, calculationToDTO(c))
	}
	return out
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, ErrorResponse{Error: err.Error()})
}

// writeStoreError maps store lookups to 404s.
func writeStoreError(w http.ResponseWriter, err error) {
	if engine.IsNotFound(err) {
		writeError(w, http.StatusNotFound, err)
		return
	}
	writeError(w, http.StatusInternalServerError, err)
}

// writeEngineError maps engine/workflow failures to HTTP statuses.
func writeEngineError(w http.ResponseWriter, err error) {
	switch {
	case engine.IsNotFound(err):
		writeError(w, http.StatusNotFound, err)
	case engine.IsFatal(err):
		writeError(w, http.StatusBadRequest, err)
	case engine.IsClientError(err):
		writeError(w, http.StatusConflict, err)
	default:
		writeError(w, http.StatusInternalServerError, err)
	}
}
