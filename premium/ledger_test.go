package premium_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/insurecrm/policy-engine/domain"
	"github.com/insurecrm/policy-engine/premium"
	"github.com/insurecrm/policy-engine/store/memory"
)

// =============================================================================
// TEST SETUP
// =============================================================================

func newTestLedger(t *testing.T) (*premium.Ledger, domain.PolicyID) {
	t.Helper()
	store := memory.New()
	ledger := premium.NewLedger(store)

	policyID := domain.NewPolicyID()
	dates := premium.Schedule(
		domain.NewDate(2024, time.January, 1),
		domain.NewDate(2024, time.April, 1),
		domain.FrequencyMonthly,
	)
	batch := premium.Installments(policyID, domain.NewMoney(1000), dates)
	require.NoError(t, store.InsertPremiumBatch(context.Background(), batch))

	return ledger, policyID
}

// =============================================================================
// LEDGER TESTS
// =============================================================================

func TestLedger_Pending_OrderedByDueDate(t *testing.T) {
	ledger, policyID := newTestLedger(t)
	ctx := context.Background()

	pending, err := ledger.Pending(ctx, policyID)
	require.NoError(t, err)
	require.Len(t, pending, 4)

	for i := 1; i < len(pending); i++ {
		assert.True(t, pending[i-1].DueDate.Before(pending[i].DueDate),
			"pending installments should be ordered by due date")
	}
}

func TestLedger_MarkPaid_TransitionsAndStamps(t *testing.T) {
	// GIVEN: A pending installment
	// WHEN: Marking it paid
	// THEN: It becomes Paid with the paid date stamped, and leaves the
	//       pending set

	ledger, policyID := newTestLedger(t)
	ctx := context.Background()

	pending, err := ledger.Pending(ctx, policyID)
	require.NoError(t, err)
	first := pending[0]

	paidOn := domain.NewDate(2024, time.January, 2)
	require.NoError(t, ledger.MarkPaid(ctx, first.ID, paidOn))

	inst, err := ledger.Get(ctx, first.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.PremiumPaid, inst.Status)
	require.NotNil(t, inst.PaidDate)
	assert.True(t, inst.PaidDate.Equal(paidOn))

	remaining, err := ledger.Pending(ctx, policyID)
	require.NoError(t, err)
	assert.Len(t, remaining, 3)
}

func TestLedger_MarkPaid_MissingInstallment_NotFound(t *testing.T) {
	ledger, _ := newTestLedger(t)

	err := ledger.MarkPaid(context.Background(), "PR-missing", domain.Today())

	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestLedger_MarkPaid_AlreadyPaid_Rejected(t *testing.T) {
	// Double payment is rejected, never absorbed.
	ledger, policyID := newTestLedger(t)
	ctx := context.Background()

	pending, err := ledger.Pending(ctx, policyID)
	require.NoError(t, err)
	id := pending[0].ID

	require.NoError(t, ledger.MarkPaid(ctx, id, domain.Today()))
	err = ledger.MarkPaid(ctx, id, domain.Today())

	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestLedger_PurgePending_KeepsPaidHistory(t *testing.T) {
	// GIVEN: One paid and three pending installments
	// WHEN: Purging the pending set
	// THEN: Three are deleted, the paid record survives

	ledger, policyID := newTestLedger(t)
	ctx := context.Background()

	pending, err := ledger.Pending(ctx, policyID)
	require.NoError(t, err)
	require.NoError(t, ledger.MarkPaid(ctx, pending[0].ID, domain.Today()))

	purged, err := ledger.PurgePending(ctx, policyID)
	require.NoError(t, err)
	assert.Equal(t, 3, purged)

	history, err := ledger.History(ctx, policyID)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, domain.PremiumPaid, history[0].Status)
}

func TestLedger_Get_Missing_NotFound(t *testing.T) {
	ledger, _ := newTestLedger(t)

	_, err := ledger.Get(context.Background(), "PR-missing")

	assert.ErrorIs(t, err, domain.ErrNotFound)
	var nf *domain.NotFoundError
	require.ErrorAs(t, err, &nf)
	assert.Equal(t, "premium", nf.Kind)
}
