package sqlite_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/insurecrm/policy-engine/domain"
	"github.com/insurecrm/policy-engine/store/sqlite"
)

// =============================================================================
// TEST SETUP
// =============================================================================

func newTestStore(t *testing.T) *sqlite.Store {
	t.Helper()
	store, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func seedAgentAndCustomer(t *testing.T, store *sqlite.Store) (domain.AgentID, domain.Customer) {
	t.Helper()
	ctx := context.Background()

	agent := domain.Agent{ID: "A1001", Name: "John Doe", CreatedAt: time.Now().UTC()}
	require.NoError(t, store.InsertAgent(ctx, agent))

	c := domain.Customer{
		ID:        domain.NewCustomerID(),
		AgentID:   agent.ID,
		PAN:       "ABCPD1234E",
		Aadhar:    "123412341234",
		Name:      "Priya Desai",
		Phone:     "9812345670",
		Income:    domain.Income5To10L,
		CreatedAt: time.Now().UTC(),
	}
	require.NoError(t, store.InsertCustomer(ctx, c))
	return agent.ID, c
}

func testPolicy(c domain.Customer, number string) domain.Policy {
	return domain.Policy{
		ID:           domain.NewPolicyID(),
		InsuredID:    c.ID,
		HolderID:     c.ID,
		Number:       number,
		Premium:      domain.NewMoney(1500),
		Frequency:    domain.FrequencyMonthly,
		Type:         "Health",
		Provider:     "Star Health",
		CoverageType: "Individual",
		Nominee:      domain.IdentitySnapshot{Name: "Aarav Desai"},
		Start:        domain.NewDate(2024, time.January, 1),
		End:          domain.NewDate(2024, time.December, 31),
		Status:       domain.PolicyActive,
		CreatedAt:    time.Now().UTC(),
	}
}

// =============================================================================
// ROUND-TRIP AND CONSTRAINT TESTS
// =============================================================================

func TestStore_CustomerRoundTrip(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	_, c := seedAgentAndCustomer(t, store)

	got, err := store.GetCustomer(ctx, c.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, c.PAN, got.PAN)
	assert.Equal(t, c.Income, got.Income)
	assert.Nil(t, got.ParentID)

	byPAN, err := store.GetCustomerByPAN(ctx, c.PAN)
	require.NoError(t, err)
	require.NotNil(t, byPAN)
	assert.Equal(t, c.ID, byPAN.ID)
}

func TestStore_DuplicatePAN_Conflict(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	agentID, c := seedAgentAndCustomer(t, store)

	dup := c
	dup.ID = domain.NewCustomerID()
	dup.AgentID = agentID

	err := store.InsertCustomer(ctx, dup)
	require.ErrorIs(t, err, domain.ErrConflict)
	var cerr *domain.ConflictError
	require.ErrorAs(t, err, &cerr)
	assert.Equal(t, "pan", cerr.Field)
}

func TestStore_PolicyRoundTrip_DecimalAndDates(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	_, c := seedAgentAndCustomer(t, store)

	p := testPolicy(c, "POL-001")
	p.Premium, _ = domain.MoneyFromString("1234.56")
	require.NoError(t, store.InsertPolicy(ctx, p))

	got, err := store.GetPolicy(ctx, p.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "1234.56", got.Premium.String())
	assert.True(t, got.Start.Equal(p.Start))
	assert.True(t, got.End.Equal(p.End))
	assert.Equal(t, domain.PolicyActive, got.Status)
}

func TestStore_DuplicatePolicyNumber_Conflict(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	_, c := seedAgentAndCustomer(t, store)

	require.NoError(t, store.InsertPolicy(ctx, testPolicy(c, "POL-001")))
	err := store.InsertPolicy(ctx, testPolicy(c, "POL-001"))
	assert.ErrorIs(t, err, domain.ErrConflict)
}

func TestStore_MarkPremiumPaid_StateGuard(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	_, c := seedAgentAndCustomer(t, store)

	p := testPolicy(c, "POL-001")
	require.NoError(t, store.InsertPolicy(ctx, p))

	inst := domain.PremiumInstallment{
		ID:       domain.NewPremiumID(),
		PolicyID: p.ID,
		DueDate:  p.Start,
		Amount:   p.Premium,
		Status:   domain.PremiumPending,
	}
	require.NoError(t, store.InsertPremiumBatch(ctx, []domain.PremiumInstallment{inst}))

	paidOn := domain.NewDate(2024, time.January, 2)
	require.NoError(t, store.MarkPremiumPaid(ctx, inst.ID, paidOn))

	got, err := store.GetPremium(ctx, inst.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.PremiumPaid, got.Status)
	require.NotNil(t, got.PaidDate)
	assert.True(t, got.PaidDate.Equal(paidOn))

	// Second payment hits the status guard in the WHERE clause.
	err = store.MarkPremiumPaid(ctx, inst.ID, paidOn)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

// =============================================================================
// TRANSACTION TESTS
// =============================================================================

func TestStore_WithTx_RollsBackOnError(t *testing.T) {
	// GIVEN: A transaction inserting a policy and its schedule
	// WHEN: The callback fails after the inserts
	// THEN: Neither the policy nor the installments exist afterwards

	store := newTestStore(t)
	ctx := context.Background()
	_, c := seedAgentAndCustomer(t, store)

	p := testPolicy(c, "POL-001")
	boom := errors.New("boom")

	err := store.WithTx(ctx, func(tx domain.Store) error {
		if err := tx.InsertPolicy(ctx, p); err != nil {
			return err
		}
		if err := tx.InsertPremiumBatch(ctx, []domain.PremiumInstallment{{
			ID:       domain.NewPremiumID(),
			PolicyID: p.ID,
			DueDate:  p.Start,
			Amount:   p.Premium,
			Status:   domain.PremiumPending,
		}}); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)

	got, err := store.GetPolicy(ctx, p.ID)
	require.NoError(t, err)
	assert.Nil(t, got)

	installments, err := store.ListPremiumsByPolicy(ctx, p.ID)
	require.NoError(t, err)
	assert.Empty(t, installments)
}

func TestStore_WithTx_CommitsOnSuccess(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	_, c := seedAgentAndCustomer(t, store)

	p := testPolicy(c, "POL-001")
	err := store.WithTx(ctx, func(tx domain.Store) error {
		return tx.InsertPolicy(ctx, p)
	})
	require.NoError(t, err)

	got, err := store.GetPolicy(ctx, p.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
}

// =============================================================================
// UPCOMING PREMIUM JOIN TESTS
// =============================================================================

func TestStore_ListUpcomingPremiums_WindowAndScope(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	agentID, c := seedAgentAndCustomer(t, store)

	p := testPolicy(c, "POL-001")
	require.NoError(t, store.InsertPolicy(ctx, p))

	today := domain.NewDate(2024, time.March, 1)
	batch := []domain.PremiumInstallment{
		{ID: domain.NewPremiumID(), PolicyID: p.ID, DueDate: today.AddDays(-1), Amount: p.Premium, Status: domain.PremiumPending},
		{ID: domain.NewPremiumID(), PolicyID: p.ID, DueDate: today, Amount: p.Premium, Status: domain.PremiumPending},
		{ID: domain.NewPremiumID(), PolicyID: p.ID, DueDate: today.AddDays(30), Amount: p.Premium, Status: domain.PremiumPending},
		{ID: domain.NewPremiumID(), PolicyID: p.ID, DueDate: today.AddDays(31), Amount: p.Premium, Status: domain.PremiumPending},
	}
	require.NoError(t, store.InsertPremiumBatch(ctx, batch))

	ups, err := store.ListUpcomingPremiums(ctx, agentID, today, 30)
	require.NoError(t, err)
	require.Len(t, ups, 2, "overdue and past-window installments are excluded")
	assert.True(t, ups[0].DueDate.Equal(today))
	assert.True(t, ups[1].DueDate.Equal(today.AddDays(30)))
	assert.Equal(t, "POL-001", ups[0].PolicyNumber)
	assert.Equal(t, c.Name, ups[0].CustomerName)
	assert.Equal(t, c.Name, ups[0].HolderName)

	// Another agent sees nothing.
	ups, err = store.ListUpcomingPremiums(ctx, "A9999", today, 30)
	require.NoError(t, err)
	assert.Empty(t, ups)
}
