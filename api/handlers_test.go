/*
handlers_test.go - HTTP-level tests for the commission API

Exercises the full stack through the router: scenario seeding, calculation,
the approval lifecycle, disputes, and error mapping.
*/
package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/warp/commission-engine/engine"
	"github.com/warp/commission-engine/engine/store"
	"github.com/warp/commission-engine/factory"
	"github.com/warp/commission-engine/notify"
	"github.com/warp/commission-engine/workflow"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	st := store.NewMemory()
	wf := workflow.New(engine.NewEngine(), st, notify.NopNotifier{})
	srv := httptest.NewServer(NewRouter(NewHandler(st, wf)))
	t.Cleanup(srv.Close)
	return srv
}

func postJSON(t *testing.T, url string, body any) *http.Response {
	t.Helper()
	raw, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("Failed to encode request: %v", err)
	}
	resp, err := http.Post(url, "application/json", bytes.NewReader(raw))
	if err != nil {
		t.Fatalf("POST %s failed: %v", url, err)
	}
	return resp
}

func decodeBody[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	defer resp.Body.Close()
	var v T
	if err := json.NewDecoder(resp.Body).Decode(&v); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	return v
}

func loadScenario(t *testing.T, srv *httptest.Server, id string) {
	t.Helper()
	resp := postJSON(t, srv.URL+"/api/scenarios/load", map[string]string{"id": id})
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("Failed to load scenario %s: status %d", id, resp.StatusCode)
	}
}

func calculate(t *testing.T, srv *httptest.Server, dealID, planID string) CalculationDTO {
	t.Helper()
	resp := postJSON(t, srv.URL+"/api/calculations", CalculateRequest{
		DealID: dealID, PlanID: planID, AsOf: "2026-03-15",
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("Calculate %s/%s: status %d", dealID, planID, resp.StatusCode)
	}
	return decodeBody[CalculationDTO](t, resp)
}

// =============================================================================
// SCENARIO + CALCULATION TESTS
// =============================================================================

func TestTieredScenario_EndToEnd(t *testing.T) {
	// GIVEN: The tiered scenario (5%/7% tiers plus a $200 fixed bonus)
	srv := newTestServer(t)
	loadScenario(t, srv, "tiered-basic")

	// WHEN: Calculating the deal above the tier boundary
	calc := calculate(t, srv, "deal-large", "plan-tiered")

	// THEN: 7% of 12000 + 200 = 1040.00
	if calc.BaseCommission != "840.00" {
		t.Errorf("Expected base 840.00, got %s", calc.BaseCommission)
	}
	if calc.GrossCommission != "1040.00" {
		t.Errorf("Expected gross 1040.00, got %s", calc.GrossCommission)
	}
	if calc.NetCommission != calc.GrossCommission {
		t.Errorf("Expected net == gross, got %s vs %s", calc.NetCommission, calc.GrossCommission)
	}

	// And the deal below the boundary lands in the 5% tier
	small := calculate(t, srv, "deal-small", "plan-tiered")
	if small.BaseCommission != "400.00" {
		t.Errorf("Expected base 400.00, got %s", small.BaseCommission)
	}
}

func TestPriorityScenario(t *testing.T) {
	srv := newTestServer(t)
	loadScenario(t, srv, "priority-rules")

	// The enterprise rule (priority 10, value >= 50000, 8%) outranks the default.
	enterprise := calculate(t, srv, "deal-enterprise", "plan-priority")
	if enterprise.BaseCommission != "6000.00" {
		t.Errorf("Expected base 6000.00 (8%% of 75000), got %s", enterprise.BaseCommission)
	}

	// Below the gate, the default 4% rule applies.
	mid := calculate(t, srv, "deal-midmarket", "plan-priority")
	if mid.BaseCommission != "800.00" {
		t.Errorf("Expected base 800.00 (4%% of 20000), got %s", mid.BaseCommission)
	}
}

func TestBonusStackingScenario(t *testing.T) {
	srv := newTestServer(t)
	loadScenario(t, srv, "bonus-stacking")

	calc := calculate(t, srv, "deal-stacked", "plan-stacking")

	// base 1000 + 500 SPIF + 100 (10% of base) = 1600; x1.1 = 1760.00
	if calc.GrossCommission != "1760.00" {
		t.Errorf("Expected gross 1760.00, got %s", calc.GrossCommission)
	}
	if len(calc.Bonuses) != 2 {
		t.Errorf("Expected 2 bonus lines, got %d", len(calc.Bonuses))
	}
	if len(calc.Accelerators) != 1 {
		t.Errorf("Expected 1 accelerator line, got %d", len(calc.Accelerators))
	}
}

func TestCalculate_UnknownDeal_Returns404(t *testing.T) {
	srv := newTestServer(t)
	loadScenario(t, srv, "tiered-basic")

	resp := postJSON(t, srv.URL+"/api/calculations", CalculateRequest{
		DealID: "missing", PlanID: "plan-tiered", AsOf: "2026-03-15",
	})
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("Expected 404, got %d", resp.StatusCode)
	}
}

func TestCalculate_InactivePlan_Returns400(t *testing.T) {
	srv := newTestServer(t)
	loadScenario(t, srv, "tiered-basic")

	// A draft plan is never usable for calculation.
	resp := postJSON(t, srv.URL+"/api/plans", CreatePlanRequest{
		Config: factory.PlanJSON{ID: "plan-draft", Name: "Draft", Status: "draft"},
	})
	resp.Body.Close()
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("Failed to create plan: %d", resp.StatusCode)
	}

	resp = postJSON(t, srv.URL+"/api/calculations", CalculateRequest{
		DealID: "deal-small", PlanID: "plan-draft", AsOf: "2026-03-15",
	})
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("Expected 400 for inactive plan, got %d", resp.StatusCode)
	}
}

// =============================================================================
// DEAL TESTS
// =============================================================================

func TestCreateDeal_DerivesValueFromProducts(t *testing.T) {
	srv := newTestServer(t)

	resp := postJSON(t, srv.URL+"/api/deals", CreateDealRequest{
		ID:         "deal-products",
		SalesRepID: "rep-1",
		CloseDate:  "2026-03-01",
		Products: []DealProductDTO{
			{ProductID: "prod-a", Quantity: 10, Price: "100", Discount: "50"},
			{ProductID: "prod-b", Quantity: 2, Price: "250"},
		},
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("Expected 201, got %d", resp.StatusCode)
	}
	deal := decodeBody[DealDTO](t, resp)

	if deal.Value != "1450" {
		t.Errorf("Expected derived value 1450, got %s", deal.Value)
	}
	if !deal.ValueDerived {
		t.Error("Expected value_derived to be true")
	}
}

func TestCreateDeal_MissingFields_Returns400(t *testing.T) {
	srv := newTestServer(t)

	resp := postJSON(t, srv.URL+"/api/deals", CreateDealRequest{ID: "deal-x"})
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("Expected 400, got %d", resp.StatusCode)
	}
}

// =============================================================================
// LIFECYCLE TESTS
// =============================================================================

func TestApprovePayLifecycle(t *testing.T) {
	srv := newTestServer(t)
	loadScenario(t, srv, "tiered-basic")
	calc := calculate(t, srv, "deal-large", "plan-tiered")

	resp := postJSON(t, srv.URL+"/api/calculations/"+calc.ID+"/approve", nil)
	approved := decodeBody[CalculationDTO](t, resp)
	if approved.Status != "approved" {
		t.Errorf("Expected approved, got %s", approved.Status)
	}

	resp = postJSON(t, srv.URL+"/api/calculations/"+calc.ID+"/pay", MarkPaidRequest{PayoutDate: "2026-04-15"})
	paid := decodeBody[CalculationDTO](t, resp)
	if paid.Status != "paid" {
		t.Errorf("Expected paid, got %s", paid.Status)
	}
	if paid.PayoutDate != "2026-04-15" {
		t.Errorf("Expected payout date 2026-04-15, got %s", paid.PayoutDate)
	}
}

func TestPayBeforeApprove_Returns409(t *testing.T) {
	srv := newTestServer(t)
	loadScenario(t, srv, "tiered-basic")
	calc := calculate(t, srv, "deal-large", "plan-tiered")

	resp := postJSON(t, srv.URL+"/api/calculations/"+calc.ID+"/pay", MarkPaidRequest{})
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusConflict {
		t.Errorf("Expected 409 for illegal transition, got %d", resp.StatusCode)
	}
}

func TestAdjustCalculation(t *testing.T) {
	srv := newTestServer(t)
	loadScenario(t, srv, "tiered-basic")
	calc := calculate(t, srv, "deal-large", "plan-tiered")

	resp := postJSON(t, srv.URL+"/api/calculations/"+calc.ID+"/adjust", AdjustRequest{
		Name: "Clawback correction", Amount: "150",
	})
	adjusted := decodeBody[CalculationDTO](t, resp)

	if adjusted.Status != "adjusted" {
		t.Errorf("Expected adjusted, got %s", adjusted.Status)
	}
	// 1040.00 + 150 = 1190.00, re-derived with the adjustment line
	if adjusted.GrossCommission != "1190.00" {
		t.Errorf("Expected gross 1190.00, got %s", adjusted.GrossCommission)
	}
}

// =============================================================================
// DISPUTE TESTS
// =============================================================================

func TestDisputeLifecycle(t *testing.T) {
	srv := newTestServer(t)
	loadScenario(t, srv, "tiered-basic")
	calc := calculate(t, srv, "deal-large", "plan-tiered")

	// Open
	resp := postJSON(t, srv.URL+"/api/calculations/"+calc.ID+"/disputes", OpenDisputeRequest{
		RaisedBy: "rep-ana", Reason: "Expected the 7% tier",
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("Expected 201, got %d", resp.StatusCode)
	}
	d := decodeBody[DisputeDTO](t, resp)
	if d.Status != "initiated" {
		t.Errorf("Expected initiated, got %s", d.Status)
	}

	// The calculation itself is now disputed
	getResp, err := http.Get(srv.URL + "/api/calculations/" + calc.ID)
	if err != nil {
		t.Fatalf("GET calculation failed: %v", err)
	}
	got := decodeBody[CalculationDTO](t, getResp)
	if got.Status != "disputed" {
		t.Errorf("Expected disputed calculation, got %s", got.Status)
	}

	// Comment, then advance to resolution
	resp = postJSON(t, srv.URL+"/api/disputes/"+d.ID+"/comments", DisputeCommentRequest{
		Author: "manager-1", Text: "Checking the tier table",
	})
	commented := decodeBody[DisputeDTO](t, resp)
	if len(commented.Comments) != 1 {
		t.Errorf("Expected 1 comment, got %d", len(commented.Comments))
	}

	for _, status := range []string{"under_review", "approved", "resolved"} {
		resp = postJSON(t, srv.URL+"/api/disputes/"+d.ID+"/advance", AdvanceDisputeRequest{Status: status})
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("Advance to %s: status %d", status, resp.StatusCode)
		}
		d = decodeBody[DisputeDTO](t, resp)
	}
	if d.ClosedAt == "" {
		t.Error("Expected closed_at to be stamped on resolution")
	}
}

func TestAdvanceDispute_IllegalMove_Returns409(t *testing.T) {
	srv := newTestServer(t)
	loadScenario(t, srv, "tiered-basic")
	calc := calculate(t, srv, "deal-large", "plan-tiered")

	resp := postJSON(t, srv.URL+"/api/calculations/"+calc.ID+"/disputes", OpenDisputeRequest{
		RaisedBy: "rep-ana", Reason: "reason",
	})
	d := decodeBody[DisputeDTO](t, resp)

	resp = postJSON(t, srv.URL+"/api/disputes/"+d.ID+"/advance", AdvanceDisputeRequest{Status: "resolved"})
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusConflict {
		t.Errorf("Expected 409, got %d", resp.StatusCode)
	}
}

// =============================================================================
// REPORT TESTS
// =============================================================================

func TestRepStatement(t *testing.T) {
	srv := newTestServer(t)
	loadScenario(t, srv, "tiered-basic")
	calculate(t, srv, "deal-small", "plan-tiered")
	calculate(t, srv, "deal-large", "plan-tiered")

	resp, err := http.Get(srv.URL + "/api/reps/rep-ana/statement")
	if err != nil {
		t.Fatalf("GET statement failed: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("Expected 200, got %d", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); !strings.HasPrefix(ct, "text/plain") {
		t.Errorf("Expected text/plain, got %s", ct)
	}

	var buf bytes.Buffer
	if _, err := buf.ReadFrom(resp.Body); err != nil {
		t.Fatalf("Failed to read body: %v", err)
	}
	body := buf.String()
	if !strings.Contains(body, "Commission Statement - rep-ana") {
		t.Errorf("Statement missing header:\n%s", body)
	}
	if !strings.Contains(body, "2 calculations") {
		t.Errorf("Statement missing totals footer:\n%s", body)
	}
}
