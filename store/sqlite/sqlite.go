/*
Package sqlite provides a SQLite-backed implementation of engine.Store.

PURPOSE:
  Persists commission plans, deals, and calculations. In production the same
  patterns apply to PostgreSQL - only minor SQL dialect differences.

STORAGE MODEL:
  Each aggregate is stored as a JSON document column plus the key columns
  queries filter on. Plans and deals are authored data; calculations are
  engine output re-saved by the workflow after each status change, so all
  three tables upsert on id.

KEY TABLES:
  plans:         commission plan documents
  deals:         deal documents
  calculations:  calculation documents, indexed by sales rep for statements

CONCURRENCY:
  Uses sync.RWMutex for thread-safety. With PostgreSQL, database-level
  concurrency control handles this instead.

WAL MODE:
  SQLite is opened with WAL (Write-Ahead Logging): multiple readers don't
  block, single writer at a time, better crash recovery.

USAGE:
  store, err := sqlite.New("./data/commissions.db")
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close()

SEE ALSO:
  - engine/store.go: interface definitions and ownership contract
  - engine/store/memory.go: in-memory implementation for testing
*/
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/warp/commission-engine/engine"
)

// Store implements engine.Store using SQLite.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

// New creates a new SQLite store with the given database path.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// migrate creates the database schema.
func (s *Store) migrate() error {
	schema := `
	-- Commission plans
	CREATE TABLE IF NOT EXISTS plans (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		status TEXT NOT NULL,
		doc TEXT NOT NULL,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_plans_status ON plans(status);

	-- Deals
	CREATE TABLE IF NOT EXISTS deals (
		id TEXT PRIMARY KEY,
		sales_rep_id TEXT NOT NULL,
		status TEXT NOT NULL,
		close_date TEXT NOT NULL,
		doc TEXT NOT NULL,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_deals_sales_rep ON deals(sales_rep_id);

	-- Calculations
	CREATE TABLE IF NOT EXISTS calculations (
		id TEXT PRIMARY KEY,
		deal_id TEXT NOT NULL,
		sales_rep_id TEXT NOT NULL,
		plan_id TEXT NOT NULL,
		status TEXT NOT NULL,
		calculation_date TEXT NOT NULL,
		doc TEXT NOT NULL,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);

	-- Hot path: per-rep statement queries
	CREATE INDEX IF NOT EXISTS idx_calculations_sales_rep
		ON calculations(sales_rep_id, calculation_date DESC);
	CREATE INDEX IF NOT EXISTS idx_calculations_deal
		ON calculations(deal_id);
	CREATE INDEX IF NOT EXISTS idx_calculations_status
		ON calculations(status);
	`

	_, err := s.db.Exec(schema)
	return err
}

// =============================================================================
// PLAN STORE (engine.PlanStore interface)
// =============================================================================

func (s *Store) SavePlan(ctx context.Context, plan *engine.CommissionPlan) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := json.Marshal(plan)
	if err != nil {
		return fmt.Errorf("failed to encode plan: %w", err)
	}

	now := time.Now().UTC().Format(time.RFC3339)
	query := `
		INSERT INTO plans (id, name, status, doc, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			status = excluded.status,
			doc = excluded.doc,
			updated_at = excluded.updated_at
	`
	_, err = s.db.ExecContext(ctx, query, plan.ID, plan.Name, plan.Status, string(doc), now, now)
	if err != nil {
		return fmt.Errorf("failed to save plan: %w", err)
	}
	return nil
}

func (s *Store) GetPlan(ctx context.Context, id engine.PlanID) (*engine.CommissionPlan, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var doc string
	err := s.db.QueryRowContext(ctx, "SELECT doc FROM plans WHERE id = ?", id).Scan(&doc)
	if err == sql.ErrNoRows {
		return nil, engine.ErrPlanNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load plan: %w", err)
	}

	var plan engine.CommissionPlan
	if err := json.Unmarshal([]byte(doc), &plan); err != nil {
		return nil, fmt.Errorf("failed to decode plan %s: %w", id, err)
	}
	return &plan, nil
}

func (s *Store) ListPlans(ctx context.Context) ([]*engine.CommissionPlan, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, "SELECT doc FROM plans ORDER BY id ASC")
	if err != nil {
		return nil, fmt.Errorf("failed to query plans: %w", err)
	}
	defer rows.Close()

	var plans []*engine.CommissionPlan
	for rows.Next() {
		var doc string
		if err := rows.Scan(&doc); err != nil {
			return nil, err
		}
		var plan engine.CommissionPlan
		if err := json.Unmarshal([]byte(doc), &plan); err != nil {
			return nil, fmt.Errorf("failed to decode plan: %w", err)
		}
		plans = append(plans, &plan)
	}
	return plans, rows.Err()
}

// =============================================================================
// DEAL STORE (engine.DealStore interface)
// =============================================================================

func (s *Store) SaveDeal(ctx context.Context, deal *engine.Deal) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := json.Marshal(deal)
	if err != nil {
		return fmt.Errorf("failed to encode deal: %w", err)
	}

	now := time.Now().UTC().Format(time.RFC3339)
	query := `
		INSERT INTO deals (id, sales_rep_id, status, close_date, doc, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			sales_rep_id = excluded.sales_rep_id,
			status = excluded.status,
			close_date = excluded.close_date,
			doc = excluded.doc,
			updated_at = excluded.updated_at
	`
	_, err = s.db.ExecContext(ctx, query,
		deal.ID, deal.SalesRepID, deal.Status,
		deal.CloseDate.UTC().Format(time.RFC3339), string(doc), now, now)
	if err != nil {
		return fmt.Errorf("failed to save deal: %w", err)
	}
	return nil
}

func (s *Store) GetDeal(ctx context.Context, id engine.DealID) (*engine.Deal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var doc string
	err := s.db.QueryRowContext(ctx, "SELECT doc FROM deals WHERE id = ?", id).Scan(&doc)
	if err == sql.ErrNoRows {
		return nil, engine.ErrDealNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load deal: %w", err)
	}

	var deal engine.Deal
	if err := json.Unmarshal([]byte(doc), &deal); err != nil {
		return nil, fmt.Errorf("failed to decode deal %s: %w", id, err)
	}
	return &deal, nil
}

func (s *Store) ListDeals(ctx context.Context) ([]*engine.Deal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, "SELECT doc FROM deals ORDER BY id ASC")
	if err != nil {
		return nil, fmt.Errorf("failed to query deals: %w", err)
	}
	defer rows.Close()

	var deals []*engine.Deal
	for rows.Next() {
		var doc string
		if err := rows.Scan(&doc); err != nil {
			return nil, err
		}
		var deal engine.Deal
		if err := json.Unmarshal([]byte(doc), &deal); err != nil {
			return nil, fmt.Errorf("failed to decode deal: %w", err)
		}
		deals = append(deals, &deal)
	}
	return deals, rows.Err()
}

// =============================================================================
// CALCULATION STORE (engine.CalculationStore interface)
// =============================================================================

// SaveCalculation upserts: the workflow re-saves the same calculation id
// after every status change.
func (s *Store) SaveCalculation(ctx context.Context, calc *engine.CommissionCalculation) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := json.Marshal(calc)
	if err != nil {
		return fmt.Errorf("failed to encode calculation: %w", err)
	}

	now := time.Now().UTC().Format(time.RFC3339)
	query := `
		INSERT INTO calculations
		(id, deal_id, sales_rep_id, plan_id, status, calculation_date, doc, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			status = excluded.status,
			doc = excluded.doc,
			updated_at = excluded.updated_at
	`
	_, err = s.db.ExecContext(ctx, query,
		calc.ID, calc.DealID, calc.SalesRepID, calc.PlanID, calc.Status,
		calc.CalculationDate.UTC().Format(time.RFC3339), string(doc), now, now)
	if err != nil {
		return fmt.Errorf("failed to save calculation: %w", err)
	}
	return nil
}

func (s *Store) GetCalculation(ctx context.Context, id engine.CalculationID) (*engine.CommissionCalculation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var doc string
	err := s.db.QueryRowContext(ctx, "SELECT doc FROM calculations WHERE id = ?", id).Scan(&doc)
	if err == sql.ErrNoRows {
		return nil, engine.ErrCalculationNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load calculation: %w", err)
	}
	return decodeCalculation(doc)
}

func (s *Store) FindCalculationsBySalesRep(ctx context.Context, rep engine.SalesRepID) ([]*engine.CommissionCalculation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := `
		SELECT doc FROM calculations
		WHERE sales_rep_id = ?
		ORDER BY calculation_date DESC, id ASC
	`
	return s.queryCalculations(ctx, query, rep)
}

func (s *Store) ListCalculations(ctx context.Context) ([]*engine.CommissionCalculation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := `
		SELECT doc FROM calculations
		ORDER BY calculation_date DESC, id ASC
	`
	return s.queryCalculations(ctx, query)
}

func (s *Store) queryCalculations(ctx context.Context, query string, args ...any) ([]*engine.CommissionCalculation, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query calculations: %w", err)
	}
	defer rows.Close()

	var calcs []*engine.CommissionCalculation
	for rows.Next() {
		var doc string
		if err := rows.Scan(&doc); err != nil {
			return nil, err
		}
		calc, err := decodeCalculation(doc)
		if err != nil {
			return nil, err
		}
		calcs = append(calcs, calc)
	}
	return calcs, rows.Err()
}

func decodeCalculation(doc string) (*engine.CommissionCalculation, error) {
	var calc engine.CommissionCalculation
	if err := json.Unmarshal([]byte(doc), &calc); err != nil {
		return nil, fmt.Errorf("failed to decode calculation: %w", err)
	}
	return &calc, nil
}
