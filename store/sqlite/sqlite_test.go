package sqlite

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/commission-engine/engine"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func dec(s string) decimal.Decimal {
	return engine.DecimalOrZero(s)
}

func testPlan(id engine.PlanID) *engine.CommissionPlan {
	return &engine.CommissionPlan{
		ID:     id,
		Name:   "Test Plan",
		Status: engine.PlanActive,
		Rules: []engine.CommissionRule{
			{ID: "rule-1", Name: "Default", Priority: 1, FlatRate: dec("5")},
		},
		Bonuses: []engine.BonusRule{
			{ID: "bonus-1", Name: "Fixed", Amount: dec("200"), Type: engine.BonusFixed},
		},
	}
}

func testCalc(id engine.CalculationID, rep engine.SalesRepID, day time.Time) *engine.CommissionCalculation {
	calc := engine.NewCalculation(id, "deal-1", rep, "plan-1", day)
	calc.SetBaseCommission(dec("500"))
	calc.AddBonus(engine.BonusCalculation{RuleID: "bonus-1", Name: "Fixed", Amount: dec("200")})
	return calc
}

// =============================================================================
// PLAN ROUND-TRIP TESTS
// =============================================================================

func TestPlanRoundTrip(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	plan := testPlan("plan-1")
	require.NoError(t, store.SavePlan(ctx, plan))

	got, err := store.GetPlan(ctx, "plan-1")
	require.NoError(t, err)
	assert.Equal(t, plan.ID, got.ID)
	assert.Equal(t, plan.Status, got.Status)
	require.Len(t, got.Rules, 1)
	assert.True(t, got.Rules[0].FlatRate.Equal(dec("5")))
	require.Len(t, got.Bonuses, 1)
	assert.True(t, got.Bonuses[0].Amount.Equal(dec("200")))
}

func TestSavePlan_Upserts(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	plan := testPlan("plan-1")
	require.NoError(t, store.SavePlan(ctx, plan))

	plan.Status = engine.PlanInactive
	require.NoError(t, store.SavePlan(ctx, plan))

	got, err := store.GetPlan(ctx, "plan-1")
	require.NoError(t, err)
	assert.Equal(t, engine.PlanInactive, got.Status)

	plans, err := store.ListPlans(ctx)
	require.NoError(t, err)
	assert.Len(t, plans, 1, "upsert must not duplicate rows")
}

func TestGetPlan_NotFound(t *testing.T) {
	store := newTestStore(t)

	_, err := store.GetPlan(context.Background(), "missing")
	assert.ErrorIs(t, err, engine.ErrPlanNotFound)
	assert.True(t, engine.IsNotFound(err))
}

// =============================================================================
// DEAL ROUND-TRIP TESTS
// =============================================================================

func TestDealRoundTrip_KeepsDerivedFlag(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	closeDate := time.Date(2026, time.March, 1, 0, 0, 0, 0, time.UTC)
	deal := engine.NewDealFromProducts("deal-1", "rep-1", closeDate,
		engine.DealProduct{ProductID: "prod-a", Quantity: 2, Price: dec("100")},
	)
	require.NoError(t, store.SaveDeal(ctx, deal))

	got, err := store.GetDeal(ctx, "deal-1")
	require.NoError(t, err)
	assert.True(t, got.Value.Equal(dec("200")))
	assert.True(t, got.ValueDerived(), "derived flag must survive the round trip")
	require.Len(t, got.Products, 1)
}

func TestGetDeal_NotFound(t *testing.T) {
	store := newTestStore(t)

	_, err := store.GetDeal(context.Background(), "missing")
	assert.ErrorIs(t, err, engine.ErrDealNotFound)
}

func TestListDeals(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	closeDate := time.Date(2026, time.March, 1, 0, 0, 0, 0, time.UTC)
	require.NoError(t, store.SaveDeal(ctx, engine.NewDeal("deal-b", "rep-1", dec("100"), closeDate)))
	require.NoError(t, store.SaveDeal(ctx, engine.NewDeal("deal-a", "rep-2", dec("200"), closeDate)))

	deals, err := store.ListDeals(ctx)
	require.NoError(t, err)
	require.Len(t, deals, 2)
	assert.Equal(t, engine.DealID("deal-a"), deals[0].ID, "deals list in id order")
}

// =============================================================================
// CALCULATION TESTS
// =============================================================================

func TestCalculationRoundTrip(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	day := time.Date(2026, time.March, 15, 0, 0, 0, 0, time.UTC)
	calc := testCalc("calc-1", "rep-1", day)
	require.NoError(t, store.SaveCalculation(ctx, calc))

	got, err := store.GetCalculation(ctx, "calc-1")
	require.NoError(t, err)
	assert.True(t, got.BaseCommission.Equal(dec("500.00")))
	assert.True(t, got.GrossCommission.Equal(dec("700.00")))
	assert.True(t, got.NetCommission.Equal(got.GrossCommission))
	assert.Equal(t, engine.CalcCalculated, got.Status)
	require.Len(t, got.Bonuses, 1)
}

func TestSaveCalculation_UpsertsStatusChanges(t *testing.T) {
	// The workflow re-saves the same calculation id after each transition.
	store := newTestStore(t)
	ctx := context.Background()

	day := time.Date(2026, time.March, 15, 0, 0, 0, 0, time.UTC)
	calc := testCalc("calc-1", "rep-1", day)
	require.NoError(t, store.SaveCalculation(ctx, calc))

	require.NoError(t, calc.TransitionTo(engine.CalcApproved))
	require.NoError(t, store.SaveCalculation(ctx, calc))

	got, err := store.GetCalculation(ctx, "calc-1")
	require.NoError(t, err)
	assert.Equal(t, engine.CalcApproved, got.Status)

	all, err := store.ListCalculations(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestFindCalculationsBySalesRep(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	older := time.Date(2026, time.February, 1, 0, 0, 0, 0, time.UTC)
	newer := time.Date(2026, time.March, 1, 0, 0, 0, 0, time.UTC)

	require.NoError(t, store.SaveCalculation(ctx, testCalc("calc-old", "rep-1", older)))
	require.NoError(t, store.SaveCalculation(ctx, testCalc("calc-new", "rep-1", newer)))
	require.NoError(t, store.SaveCalculation(ctx, testCalc("calc-other", "rep-2", newer)))

	calcs, err := store.FindCalculationsBySalesRep(ctx, "rep-1")
	require.NoError(t, err)
	require.Len(t, calcs, 2)
	assert.Equal(t, engine.CalculationID("calc-new"), calcs[0].ID, "newest first")
	assert.Equal(t, engine.CalculationID("calc-old"), calcs[1].ID)
}

func TestGetCalculation_NotFound(t *testing.T) {
	store := newTestStore(t)

	_, err := store.GetCalculation(context.Background(), "missing")
	assert.ErrorIs(t, err, engine.ErrCalculationNotFound)
}
