/*
main.go - Thin CLI wrapper around the engine

PURPOSE:
  Loads a deal and a plan from the store, runs one calculation, and prints
  the result. Useful for spot-checking plan changes without the HTTP server.

COMMAND-LINE FLAGS:
  -db       SQLite database path (default: commissions.db)
  -deal     Deal id (required)
  -plan     Plan id (required)
  -asof     Calculation date, YYYY-MM-DD (default: today)
  -save     Persist the calculation (default: print only)

EXAMPLE:
  ./commission -db=./data/commissions.db -deal=deal-large -plan=plan-tiered -asof=2026-03-15
*/
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/warp/commission-engine/engine"
	"github.com/warp/commission-engine/report"
	"github.com/warp/commission-engine/store/sqlite"
)

func main() {
	dbPath := flag.String("db", "commissions.db", "SQLite database path")
	dealID := flag.String("deal", "", "deal id")
	planID := flag.String("plan", "", "plan id")
	asOfStr := flag.String("asof", "", "calculation date (YYYY-MM-DD), defaults to today")
	save := flag.Bool("save", false, "persist the calculation")
	flag.Parse()

	if *dealID == "" || *planID == "" {
		flag.Usage()
		os.Exit(2)
	}

	asOf := time.Now().UTC().Truncate(24 * time.Hour)
	if *asOfStr != "" {
		var err error
		asOf, err = time.Parse("2006-01-02", *asOfStr)
		if err != nil {
			log.Fatalf("Bad -asof date %q: %v", *asOfStr, err)
		}
	}

	store, err := sqlite.New(*dbPath)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer store.Close()

	ctx := context.Background()
	deal, err := store.GetDeal(ctx, engine.DealID(*dealID))
	if err != nil {
		log.Fatalf("Failed to load deal: %v", err)
	}
	plan, err := store.GetPlan(ctx, engine.PlanID(*planID))
	if err != nil {
		log.Fatalf("Failed to load plan: %v", err)
	}

	calc, err := engine.NewEngine().Calculate(deal, plan, asOf)
	if err != nil {
		log.Fatalf("Calculation failed: %v", err)
	}

	if *save {
		if err := store.SaveCalculation(ctx, calc); err != nil {
			log.Fatalf("Failed to save calculation: %v", err)
		}
	}

	fmt.Print(report.Statement(calc.SalesRepID, []*engine.CommissionCalculation{calc}))
}
