package workflow

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/commission-engine/engine"
	"github.com/warp/commission-engine/engine/store"
	"github.com/warp/commission-engine/notify"
)

// recordingNotifier captures every notification for assertions.
type recordingNotifier struct {
	mu        sync.Mutex
	completed []engine.CalculationID
	changes   []string // "calc-id:from->to"
}

func (r *recordingNotifier) CalculationCompleted(_ context.Context, calc *engine.CommissionCalculation, _ notify.Contact) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.completed = append(r.completed, calc.ID)
	return nil
}

func (r *recordingNotifier) StatusChanged(_ context.Context, calc *engine.CommissionCalculation, from engine.CalculationStatus, _ notify.Contact) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.changes = append(r.changes, string(calc.ID)+":"+string(from)+"->"+string(calc.Status))
	return nil
}

func dec(s string) decimal.Decimal {
	return engine.DecimalOrZero(s)
}

func day(year int, month time.Month, d int) time.Time {
	return time.Date(year, month, d, 0, 0, 0, 0, time.UTC)
}

// newTestWorkflow seeds a deal and an active plan behind a memory store.
func newTestWorkflow(t *testing.T) (*Workflow, *recordingNotifier) {
	t.Helper()
	ctx := context.Background()

	st := store.NewMemory()
	require.NoError(t, st.SaveDeal(ctx, engine.NewDeal("deal-1", "rep-1", dec("12000"), day(2026, time.March, 1))))
	require.NoError(t, st.SavePlan(ctx, &engine.CommissionPlan{
		ID:     "plan-1",
		Name:   "Standard",
		Status: engine.PlanActive,
		Rules: []engine.CommissionRule{
			{ID: "rule-1", Priority: 1, FlatRate: dec("5")},
		},
		Bonuses: []engine.BonusRule{
			{ID: "bonus-1", Name: "Fixed", Amount: dec("200"), Type: engine.BonusFixed},
		},
	}))

	notifier := &recordingNotifier{}
	w := New(engine.NewEngine(), st, notifier)
	w.Now = func() time.Time { return day(2026, time.April, 1) }
	return w, notifier
}

// =============================================================================
// RUN TESTS
// =============================================================================

func TestRun_CalculatesSavesAndNotifies(t *testing.T) {
	w, notifier := newTestWorkflow(t)
	ctx := context.Background()

	calc, err := w.Run(ctx, "deal-1", "plan-1", day(2026, time.March, 15))
	require.NoError(t, err)

	// 5% of 12000 + 200 = 800.00
	assert.True(t, calc.GrossCommission.Equal(dec("800.00")))

	saved, err := w.Store.GetCalculation(ctx, calc.ID)
	require.NoError(t, err)
	assert.Equal(t, engine.CalcCalculated, saved.Status)

	require.Len(t, notifier.completed, 1)
	assert.Equal(t, calc.ID, notifier.completed[0])
}

func TestRun_MissingDeal(t *testing.T) {
	w, _ := newTestWorkflow(t)

	_, err := w.Run(context.Background(), "missing", "plan-1", day(2026, time.March, 15))
	assert.ErrorIs(t, err, engine.ErrDealNotFound)
}

func TestRun_InactivePlan_NothingPersisted(t *testing.T) {
	w, notifier := newTestWorkflow(t)
	ctx := context.Background()

	require.NoError(t, w.Store.SavePlan(ctx, &engine.CommissionPlan{
		ID: "plan-draft", Name: "Draft", Status: engine.PlanDraft,
	}))

	_, err := w.Run(ctx, "deal-1", "plan-draft", day(2026, time.March, 15))
	assert.ErrorIs(t, err, engine.ErrPlanNotActive)

	all, err := w.Store.ListCalculations(ctx)
	require.NoError(t, err)
	assert.Empty(t, all, "fatal engine errors must not persist anything")
	assert.Empty(t, notifier.completed)
}

// =============================================================================
// LIFECYCLE TESTS
// =============================================================================

func TestApproveThenMarkPaid(t *testing.T) {
	w, notifier := newTestWorkflow(t)
	ctx := context.Background()

	calc, err := w.Run(ctx, "deal-1", "plan-1", day(2026, time.March, 15))
	require.NoError(t, err)

	approved, err := w.Approve(ctx, calc.ID)
	require.NoError(t, err)
	assert.Equal(t, engine.CalcApproved, approved.Status)

	payout := day(2026, time.April, 15)
	paid, err := w.MarkPaid(ctx, calc.ID, payout)
	require.NoError(t, err)
	assert.Equal(t, engine.CalcPaid, paid.Status)
	require.NotNil(t, paid.PayoutDate)
	assert.True(t, paid.PayoutDate.Equal(payout))

	saved, err := w.Store.GetCalculation(ctx, calc.ID)
	require.NoError(t, err)
	assert.Equal(t, engine.CalcPaid, saved.Status)

	require.Len(t, notifier.changes, 2)
	assert.Contains(t, notifier.changes[0], "calculated->approved")
	assert.Contains(t, notifier.changes[1], "approved->paid")
}

func TestMarkPaid_BeforeApproval_Rejected(t *testing.T) {
	w, _ := newTestWorkflow(t)
	ctx := context.Background()

	calc, err := w.Run(ctx, "deal-1", "plan-1", day(2026, time.March, 15))
	require.NoError(t, err)

	_, err = w.MarkPaid(ctx, calc.ID, day(2026, time.April, 15))
	assert.ErrorIs(t, err, engine.ErrInvalidTransition)

	saved, err := w.Store.GetCalculation(ctx, calc.ID)
	require.NoError(t, err)
	assert.Equal(t, engine.CalcCalculated, saved.Status, "a rejected transition must not persist")
}

func TestAdjust_RederivesTotals(t *testing.T) {
	// GIVEN: A saved calculation with gross 800.00
	// WHEN: Adding a +150 manual adjustment
	// THEN: Totals are re-derived atomically with the status change

	w, _ := newTestWorkflow(t)
	ctx := context.Background()

	calc, err := w.Run(ctx, "deal-1", "plan-1", day(2026, time.March, 15))
	require.NoError(t, err)

	adjusted, err := w.Adjust(ctx, calc.ID, engine.BonusCalculation{
		RuleID: "manual", Name: "Adjustment", Amount: dec("150"),
	})
	require.NoError(t, err)
	assert.Equal(t, engine.CalcAdjusted, adjusted.Status)
	assert.True(t, adjusted.GrossCommission.Equal(dec("950.00")))
	assert.True(t, adjusted.NetCommission.Equal(adjusted.GrossCommission))

	saved, err := w.Store.GetCalculation(ctx, calc.ID)
	require.NoError(t, err)
	assert.True(t, saved.GrossCommission.Equal(dec("950.00")))
}

func TestCancel_IsTerminal(t *testing.T) {
	w, _ := newTestWorkflow(t)
	ctx := context.Background()

	calc, err := w.Run(ctx, "deal-1", "plan-1", day(2026, time.March, 15))
	require.NoError(t, err)

	_, err = w.Cancel(ctx, calc.ID)
	require.NoError(t, err)

	_, err = w.Approve(ctx, calc.ID)
	assert.ErrorIs(t, err, engine.ErrInvalidTransition)
}

// =============================================================================
// DISPUTE TESTS
// =============================================================================

func TestOpenDispute_MarksCalculationDisputed(t *testing.T) {
	w, _ := newTestWorkflow(t)
	ctx := context.Background()

	calc, err := w.Run(ctx, "deal-1", "plan-1", day(2026, time.March, 15))
	require.NoError(t, err)

	d, err := w.OpenDispute(ctx, calc.ID, "rep-1", "missing accelerator")
	require.NoError(t, err)
	assert.Equal(t, DisputeInitiated, d.Status)
	assert.Equal(t, calc.ID, d.CalculationID)
	assert.NotEmpty(t, d.ID)

	saved, err := w.Store.GetCalculation(ctx, calc.ID)
	require.NoError(t, err)
	assert.Equal(t, engine.CalcDisputed, saved.Status)
}

func TestDispute_CommentAndAdvanceToResolved(t *testing.T) {
	w, _ := newTestWorkflow(t)
	ctx := context.Background()

	calc, err := w.Run(ctx, "deal-1", "plan-1", day(2026, time.March, 15))
	require.NoError(t, err)
	d, err := w.OpenDispute(ctx, calc.ID, "rep-1", "rate looks wrong")
	require.NoError(t, err)

	d, err = w.CommentDispute(ctx, d.ID, "manager-1", "reviewing the tier table")
	require.NoError(t, err)
	require.Len(t, d.Comments, 1)
	assert.Equal(t, "manager-1", d.Comments[0].Author)

	for _, to := range []DisputeStatus{DisputeUnderReview, DisputeApproved, DisputeResolved} {
		d, err = w.AdvanceDispute(ctx, d.ID, to)
		require.NoError(t, err, "advancing to %s", to)
	}

	assert.Equal(t, DisputeResolved, d.Status)
	require.NotNil(t, d.ClosedAt, "resolving must stamp ClosedAt")
}

func TestDispute_IllegalTransition(t *testing.T) {
	w, _ := newTestWorkflow(t)
	ctx := context.Background()

	calc, err := w.Run(ctx, "deal-1", "plan-1", day(2026, time.March, 15))
	require.NoError(t, err)
	d, err := w.OpenDispute(ctx, calc.ID, "rep-1", "reason")
	require.NoError(t, err)

	// Initiated cannot jump straight to Resolved.
	_, err = w.AdvanceDispute(ctx, d.ID, DisputeResolved)
	assert.ErrorIs(t, err, ErrInvalidDisputeTransition)
}

func TestDispute_NotFound(t *testing.T) {
	w, _ := newTestWorkflow(t)

	_, err := w.GetDispute(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrDisputeNotFound)
}

func TestDisputesForCalculation(t *testing.T) {
	w, _ := newTestWorkflow(t)
	ctx := context.Background()

	calc, err := w.Run(ctx, "deal-1", "plan-1", day(2026, time.March, 15))
	require.NoError(t, err)
	_, err = w.OpenDispute(ctx, calc.ID, "rep-1", "first")
	require.NoError(t, err)

	tickets := w.DisputesForCalculation(ctx, calc.ID)
	require.Len(t, tickets, 1)
	assert.Empty(t, w.DisputesForCalculation(ctx, "other-calc"))
}
