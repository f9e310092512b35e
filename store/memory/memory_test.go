package memory_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/insurecrm/policy-engine/domain"
	"github.com/insurecrm/policy-engine/store/memory"
)

func seedCustomer(t *testing.T, store *memory.Store) domain.Customer {
	t.Helper()
	c := domain.Customer{
		ID:        domain.NewCustomerID(),
		AgentID:   "A1001",
		PAN:       "ABCPD1234E",
		Aadhar:    "123412341234",
		Name:      "Priya Desai",
		Phone:     "9812345670",
		Income:    domain.Income5To10L,
		CreatedAt: time.Now().UTC(),
	}
	require.NoError(t, store.InsertCustomer(context.Background(), c))
	return c
}

func TestMemory_WithTx_RollsBackOnError(t *testing.T) {
	// GIVEN: A transaction inserting a policy and its schedule
	// WHEN: The callback fails after the inserts
	// THEN: The snapshot is restored and nothing persists

	store := memory.New()
	ctx := context.Background()
	c := seedCustomer(t, store)

	p := domain.Policy{
		ID:        domain.NewPolicyID(),
		InsuredID: c.ID,
		HolderID:  c.ID,
		Number:    "POL-001",
		Premium:   domain.NewMoney(1500),
		Frequency: domain.FrequencyMonthly,
		Status:    domain.PolicyActive,
	}
	boom := errors.New("boom")

	err := store.WithTx(ctx, func(tx domain.Store) error {
		if err := tx.InsertPolicy(ctx, p); err != nil {
			return err
		}
		if err := tx.InsertPremiumBatch(ctx, []domain.PremiumInstallment{{
			ID:       domain.NewPremiumID(),
			PolicyID: p.ID,
			DueDate:  domain.Today(),
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

func TestMemory_UniquenessInsideTx(t *testing.T) {
	store := memory.New()
	ctx := context.Background()
	c := seedCustomer(t, store)

	dup := c
	dup.ID = domain.NewCustomerID()

	err := store.WithTx(ctx, func(tx domain.Store) error {
		return tx.InsertCustomer(ctx, dup)
	})
	assert.ErrorIs(t, err, domain.ErrConflict)
}
