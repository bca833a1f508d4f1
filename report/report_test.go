package report

import (
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/warp/commission-engine/engine"
)

func dec(s string) decimal.Decimal {
	return engine.DecimalOrZero(s)
}

func calc(id engine.CalculationID, base string, status engine.CalculationStatus) *engine.CommissionCalculation {
	c := engine.NewCalculation(id, "deal-"+engine.DealID(id), "rep-1", "plan-1",
		time.Date(2026, time.March, 15, 0, 0, 0, 0, time.UTC))
	c.SetBaseCommission(dec(base))
	c.Status = status
	return c
}

// =============================================================================
// SUMMARY TESTS
// =============================================================================

func TestSummarize(t *testing.T) {
	flagged := calc("c3", "0", engine.CalcCalculated)
	flagged.AddDiagnostic(engine.DiagNoMatchingRule)

	calcs := []*engine.CommissionCalculation{
		calc("c1", "500", engine.CalcApproved),
		calc("c2", "300", engine.CalcPaid),
		flagged,
		calc("c4", "1000", engine.CalcCancelled),
	}

	s := Summarize(calcs)

	if s.Count != 4 {
		t.Errorf("count = %d, want 4", s.Count)
	}
	// Cancelled calculations never pay out: 500 + 300 + 0 = 800.00
	if !s.TotalGross.Equal(dec("800.00")) {
		t.Errorf("total gross = %s, want 800.00", s.TotalGross)
	}
	if !s.TotalNet.Equal(s.TotalGross) {
		t.Errorf("total net = %s, want %s", s.TotalNet, s.TotalGross)
	}
	if s.Flagged != 1 {
		t.Errorf("flagged = %d, want 1", s.Flagged)
	}
	if s.ByStatus[engine.CalcCancelled] != 1 || s.ByStatus[engine.CalcApproved] != 1 {
		t.Errorf("by-status counts wrong: %v", s.ByStatus)
	}
}

func TestSummarize_Empty(t *testing.T) {
	s := Summarize(nil)
	if s.Count != 0 || !s.TotalGross.IsZero() {
		t.Errorf("empty summary = %+v", s)
	}
}

// =============================================================================
// STATEMENT TESTS
// =============================================================================

func TestStatement(t *testing.T) {
	c := calc("c1", "600", engine.CalcCalculated)
	c.AddBonus(engine.BonusCalculation{RuleID: "spif", Name: "Q1 SPIF", Amount: dec("200")})
	if err := c.AddAccelerator(engine.AcceleratorCalculation{RuleID: "accel", Name: "Kicker", Multiplier: dec("1.1")}); err != nil {
		t.Fatalf("add accelerator: %v", err)
	}
	warned := calc("c2", "0", engine.CalcCalculated)
	warned.AddDiagnostic(engine.DiagValueOutsideTierRange)

	out := Statement("rep-1", []*engine.CommissionCalculation{c, warned})

	for _, want := range []string{
		"Commission Statement - rep-1",
		"deal deal-c1",
		"+ bonus Q1 SPIF",
		"200.00",
		"x accelerator Kicker",
		"! review: value_outside_tier_range",
		"2 calculations, 1 flagged for review",
		"total gross 880.00, total net 880.00",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("statement missing %q:\n%s", want, out)
		}
	}
}
