/*
Package report renders commission statements.

PURPOSE:
  Consumes lists of calculations (typically FindCalculationsBySalesRep
  output) and produces plain-text statements and summary totals. Display
  only: nothing here feeds back into the engine.
*/
package report

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/warp/commission-engine/engine"
)

// Summary is the rolled-up view of a set of calculations.
type Summary struct {
	Count      int
	TotalGross decimal.Decimal
	TotalNet   decimal.Decimal
	ByStatus   map[engine.CalculationStatus]int
	Flagged    int // calculations carrying diagnostics
}

// Summarize rolls up a calculation list.
func Summarize(calcs []*engine.CommissionCalculation) Summary {
	s := Summary{
		TotalGross: decimal.Zero,
		TotalNet:   decimal.Zero,
		ByStatus:   make(map[engine.CalculationStatus]int),
	}
	for _, c := range calcs {
		s.Count++
		s.ByStatus[c.Status]++
		if len(c.Diagnostics) > 0 {
			s.Flagged++
		}
		// Cancelled commissions never pay out.
		if c.Status == engine.CalcCancelled {
			continue
		}
		s.TotalGross = s.TotalGross.Add(c.GrossCommission)
		s.TotalNet = s.TotalNet.Add(c.NetCommission)
	}
	return s
}

// Statement renders a plain-text commission statement for one sales rep.
func Statement(rep engine.SalesRepID, calcs []*engine.CommissionCalculation) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Commission Statement - %s\n", rep)
	b.WriteString(strings.Repeat("=", 64) + "\n")

	for _, c := range calcs {
		fmt.Fprintf(&b, "%s  deal %-12s  plan %-12s  %-10s  gross %10s\n",
			c.CalculationDate.Format("2006-01-02"), c.DealID, c.PlanID, c.Status, c.GrossCommission.StringFixed(2))
		for _, bonus := range c.Bonuses {
			fmt.Fprintf(&b, "    + bonus %-28s %10s\n", bonus.Name, bonus.Amount.StringFixed(2))
		}
		for _, acc := range c.Accelerators {
			fmt.Fprintf(&b, "    x accelerator %-22s %10s\n", acc.Name, acc.Multiplier)
		}
		for _, diag := range c.Diagnostics {
			fmt.Fprintf(&b, "    ! review: %s\n", diag)
		}
	}

	s := Summarize(calcs)
	b.WriteString(strings.Repeat("-", 64) + "\n")
	fmt.Fprintf(&b, "%d calculations, %d flagged for review\n", s.Count, s.Flagged)
	fmt.Fprintf(&b, "total gross %s, total net %s\n", s.TotalGross.StringFixed(2), s.TotalNet.StringFixed(2))

	return b.String()
}
